// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/respack/respack/internal/issue"
	"github.com/respack/respack/internal/manager"
	"github.com/respack/respack/pkg/bundle"
)

func hexString(b []byte) string { return hex.EncodeToString(b) }

func TestClassifyError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want issue.Id
	}{
		{"nil", nil, 0},
		{"unknown bundle", fmt.Errorf("nope: %w", manager.ErrUnknownBundle), issue.BundleNotFoundId},
		{"missing file", fs.ErrNotExist, issue.BundleNotFoundId},
		{"broken", &bundle.MissingEntryError{Entry: bundle.ManifestEntry}, issue.BundleBrokenId},
		{"not loaded", bundle.ErrNotLoaded, issue.BundleNotLoadedId},
		{"no root", bundle.ErrNoResourceRoot, issue.ResourceRootMissingId},
		{"bad name", bundle.ValidateName("a/b"), issue.InvalidBundleNameId},
		{"exists", bundle.ErrBundleExists, issue.BundleExistsId},
		{"recipe", fmt.Errorf("%w: bad", bundle.ErrInvalidRecipe), issue.RecipeInvalidId},
		{"permission", fmt.Errorf("open: %w", fs.ErrPermission), issue.PermissionDeniedId},
		{"other", errors.New("boom"), 0},
		{
			"actionable with issue",
			issue.NewErrorContext().WithOperation("load configuration").WithIssue(issue.ConfigLoadFailedId).Wrap(fs.ErrNotExist).BuildError(),
			issue.ConfigLoadFailedId,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := classifyError(tt.err); got != tt.want {
				t.Errorf("classifyError(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestWrapServiceError(t *testing.T) {
	t.Parallel()

	if wrapServiceError(nil) != nil {
		t.Error("wrapServiceError(nil) should be nil")
	}

	plain := errors.New("boom")
	if got := wrapServiceError(plain); got != plain {
		t.Errorf("unclassified error should pass through, got %v", got)
	}

	wrapped := wrapServiceError(bundle.ErrNotLoaded)
	var svcErr *ServiceError
	if !errors.As(wrapped, &svcErr) || svcErr.IssueID != issue.BundleNotLoadedId {
		t.Fatalf("wrapServiceError() = %#v", wrapped)
	}
	if !errors.Is(wrapped, bundle.ErrNotLoaded) {
		t.Error("wrapped error should unwrap to the cause")
	}
	if again := wrapServiceError(wrapped); again != wrapped {
		t.Error("a ServiceError should not be wrapped twice")
	}
}

func TestNewServiceErrorPanicsOnNil(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Error("newServiceError(nil) should panic")
		}
	}()
	_ = newServiceError(nil, issue.BundleNotFoundId)
}

func TestRenderServiceError(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	renderServiceError(&buf, &ServiceError{Err: errors.New("x")}, "notty")
	if buf.Len() != 0 {
		t.Errorf("no issue id should render nothing, got %q", buf.String())
	}

	renderServiceError(&buf, newServiceError(manager.ErrUnknownBundle, issue.BundleNotFoundId), "notty")
	if !bytes.Contains(buf.Bytes(), []byte("Bundle not found")) {
		t.Errorf("rendered = %q", buf.String())
	}
}
