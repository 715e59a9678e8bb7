// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
)

type (
	// ActionableError is a user-facing error that names the failed operation
	// and the file or bundle involved, and carries hints for fixing it.
	//
	//	return issue.NewErrorContext().
	//		WithOperation("load bundle").
	//		WithResource("./sunset.bundle").
	//		WithSuggestion("Run 'respack bundle list' to see known bundles").
	//		WithIssue(BundleNotFoundId).
	//		Wrap(err).
	//		BuildError()
	ActionableError struct {
		// Operation is a verb phrase such as "install bundle".
		Operation   string
		Resource    string
		Suggestions []string
		// Issue optionally points at the catalog entry explaining the failure.
		Issue Id
		Cause error
	}

	// ErrorContext builds an ActionableError incrementally.
	ErrorContext struct {
		err ActionableError
	}
)

// NewErrorContext returns an empty ErrorContext.
func NewErrorContext() *ErrorContext {
	return &ErrorContext{}
}

// Error returns "failed to <operation>[: <resource>][: <cause>]".
func (e *ActionableError) Error() string {
	var msg strings.Builder
	msg.WriteString("failed to ")
	msg.WriteString(e.Operation)
	if e.Resource != "" {
		msg.WriteString(": ")
		msg.WriteString(e.Resource)
	}
	if e.Cause != nil {
		msg.WriteString(": ")
		msg.WriteString(e.Cause.Error())
	}
	return msg.String()
}

func (e *ActionableError) Unwrap() error { return e.Cause }

// HasSuggestions reports whether e carries any hints.
func (e *ActionableError) HasSuggestions() bool { return len(e.Suggestions) > 0 }

// Format renders the message followed by one bullet per suggestion. Verbose
// output appends the numbered cause chain.
func (e *ActionableError) Format(verbose bool) string {
	var msg strings.Builder
	msg.WriteString(e.Error())

	if e.HasSuggestions() {
		msg.WriteString("\n")
		for _, s := range e.Suggestions {
			msg.WriteString("\n  • ")
			msg.WriteString(s)
		}
	}

	if verbose && e.Cause != nil {
		msg.WriteString("\n\nError chain:")
		for depth, err := 1, e.Cause; err != nil; depth, err = depth+1, errors.Unwrap(err) {
			fmt.Fprintf(&msg, "\n  %d. %s", depth, err.Error())
		}
	}
	return msg.String()
}

func (c *ErrorContext) WithOperation(op string) *ErrorContext {
	c.err.Operation = op
	return c
}

func (c *ErrorContext) WithResource(res string) *ErrorContext {
	c.err.Resource = res
	return c
}

// WithSuggestion appends a hint; call it once per hint.
func (c *ErrorContext) WithSuggestion(sug string) *ErrorContext {
	c.err.Suggestions = append(c.err.Suggestions, sug)
	return c
}

func (c *ErrorContext) WithIssue(id Id) *ErrorContext {
	c.err.Issue = id
	return c
}

func (c *ErrorContext) Wrap(err error) *ErrorContext {
	c.err.Cause = err
	return c
}

// Build returns the error, or nil when no operation was set.
func (c *ErrorContext) Build() *ActionableError {
	if c.err.Operation == "" {
		return nil
	}
	ae := c.err
	ae.Suggestions = append([]string(nil), c.err.Suggestions...)
	return &ae
}

// BuildError is Build for return statements: it yields a nil error interface
// rather than a typed nil when no operation was set.
func (c *ErrorContext) BuildError() error {
	if ae := c.Build(); ae != nil {
		return ae
	}
	return nil
}
