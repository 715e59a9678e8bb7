// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/respack/respack/internal/issue"
	"github.com/respack/respack/internal/manager"
	"github.com/respack/respack/internal/output"
	"github.com/respack/respack/pkg/bundle"
)

// ServiceError is an error that carries an optional issue catalog entry for
// the CLI layer to render before the error itself.
// Always create via newServiceError to enforce the Err-must-be-non-nil invariant.
type ServiceError struct {
	// Err is the underlying error (must not be nil).
	Err error
	// IssueID is the optional issue catalog ID for rendering help text.
	IssueID issue.Id
}

// newServiceError creates a ServiceError with a nil-Err panic guard.
func newServiceError(err error, issueID issue.Id) *ServiceError {
	if err == nil {
		panic("ServiceError: Err must not be nil")
	}
	return &ServiceError{Err: err, IssueID: issueID}
}

// Error implements the error interface.
func (e *ServiceError) Error() string { return e.Err.Error() }

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *ServiceError) Unwrap() error { return e.Err }

// classifyError maps domain errors to the issue catalog. It returns 0 when no
// entry applies.
func classifyError(err error) issue.Id {
	var ae *issue.ActionableError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &ae) && ae.Issue != 0:
		return ae.Issue
	case errors.Is(err, manager.ErrUnknownBundle), errors.Is(err, fs.ErrNotExist):
		return issue.BundleNotFoundId
	case errors.Is(err, bundle.ErrBrokenBundle),
		errors.Is(err, bundle.ErrMissingManifest),
		errors.Is(err, bundle.ErrMissingMeta),
		errors.Is(err, bundle.ErrArchiveOpen):
		return issue.BundleBrokenId
	case errors.Is(err, bundle.ErrNotLoaded):
		return issue.BundleNotLoadedId
	case errors.Is(err, bundle.ErrNoResourceRoot):
		return issue.ResourceRootMissingId
	case errors.Is(err, bundle.ErrInvalidName):
		return issue.InvalidBundleNameId
	case errors.Is(err, bundle.ErrBundleExists):
		return issue.BundleExistsId
	case errors.Is(err, bundle.ErrInvalidRecipe):
		return issue.RecipeInvalidId
	case errors.Is(err, fs.ErrPermission):
		return issue.PermissionDeniedId
	default:
		return 0
	}
}

// wrapServiceError attaches the matching issue entry to err, if any.
func wrapServiceError(err error) error {
	if err == nil {
		return nil
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return err
	}
	if id := classifyError(err); id != 0 {
		return newServiceError(err, id)
	}
	return err
}

// renderServiceError prints the issue help section of svcErr.
func renderServiceError(stderr io.Writer, svcErr *ServiceError, style string) {
	if svcErr == nil || svcErr.IssueID == 0 {
		return
	}

	if catalogEntry := issue.Get(svcErr.IssueID); catalogEntry != nil {
		rendered, renderErr := catalogEntry.Render(style)
		if renderErr != nil {
			output.Warn("failed to render issue catalog entry", "issueID", svcErr.IssueID, "err", renderErr)
			return
		}
		fmt.Fprint(stderr, rendered)
	}
}
