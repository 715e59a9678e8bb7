// SPDX-License-Identifier: MPL-2.0

package bundle

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/respack/respack/internal/testutil"
	"github.com/respack/respack/pkg/meta"
	"github.com/respack/respack/pkg/restype"
)

const sampleRecipe = `
name:        "sunset"
author:      "Alice"
license:     "CC-BY-4.0"
description: "Warm gradients and a dotted pattern"
tags: ["warm"]
resources: [
	{type: "ko_gradients", file: "src/foo.ggr", tags: ["sky"]},
	{type: "ko_patterns", file: "src/dots.pat"},
]
`

func TestParseRecipe(t *testing.T) {
	t.Parallel()

	r, err := ParseRecipe([]byte(sampleRecipe), "recipe.cue", "/base")
	if err != nil {
		t.Fatalf("ParseRecipe() failed: %v", err)
	}
	if r.Name != "sunset" || r.Author != "Alice" || len(r.Resources) != 2 {
		t.Errorf("decoded = %+v", r)
	}
	if r.Resources[0].Type != restype.Gradients || !slices.Equal(r.Resources[0].Tags, []string{"sky"}) {
		t.Errorf("resource[0] = %+v", r.Resources[0])
	}
	if got := r.resolve("src/foo.ggr"); got != filepath.Join("/base", "src", "foo.ggr") {
		t.Errorf("resolve() = %q", got)
	}
}

func TestParseRecipeErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		doc     string
		errPart string
	}{
		{
			name:    "unknown resource type",
			doc:     `name: "x", resources: [{type: "ko_fonts", file: "a.ttf"}]`,
			errPart: "resources[0].type",
		},
		{
			name:    "no resources",
			doc:     `name: "x", resources: []`,
			errPart: "resources",
		},
		{
			name:    "name with separator",
			doc:     `name: "a/b", resources: [{type: "ko_gradients", file: "a.ggr"}]`,
			errPart: "name",
		},
		{
			name:    "unknown field",
			doc:     `name: "x", colour: "red", resources: [{type: "ko_gradients", file: "a.ggr"}]`,
			errPart: "colour",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := ParseRecipe([]byte(tt.doc), "recipe.cue", "")
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrInvalidRecipe) {
				t.Errorf("error should wrap ErrInvalidRecipe, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.errPart) {
				t.Errorf("error %q should mention %q", err, tt.errPart)
			}
		})
	}
}

func TestRecipeBuild(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(dir, "src", "foo.ggr"), []byte(gradientData))
	testutil.MustWriteFile(t, filepath.Join(dir, "src", "dots.pat"), []byte(patternData))
	recipePath := filepath.Join(dir, "recipe.cue")
	testutil.MustWriteFile(t, recipePath, []byte(sampleRecipe))

	r, err := LoadRecipe(recipePath)
	if err != nil {
		t.Fatalf("LoadRecipe() failed: %v", err)
	}
	out := filepath.Join(dir, "out", "sunset.bundle")
	b, err := r.Build(context.Background(), out, WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	if !b.Valid() || b.Name() != "sunset" {
		t.Errorf("Valid() = %v, Name() = %q", b.Valid(), b.Name())
	}

	loaded := New(out, WithLogger(quietLogger()))
	if err := loaded.Load(); err != nil {
		t.Fatalf("Load() of built bundle failed: %v", err)
	}
	if got := loaded.ResourceTypes(); !slices.Equal(got, []restype.Type{restype.Gradients, restype.Patterns}) {
		t.Errorf("ResourceTypes() = %v", got)
	}
	if loaded.Meta(meta.KeyAuthor) != "Alice" || loaded.Meta(meta.KeyPackName) != "sunset" || loaded.Meta(meta.KeyCreated) == "" {
		t.Errorf("author = %q, packName = %q, created = %q",
			loaded.Meta(meta.KeyAuthor), loaded.Meta(meta.KeyPackName), loaded.Meta(meta.KeyCreated))
	}
	if got := loaded.TagsList(); !slices.Contains(got, "sky") || !slices.Contains(got, "warm") {
		t.Errorf("TagsList() = %v", got)
	}
	entries := testutil.MustReadZip(t, out)
	if entries["gradients/foo.ggr"] != gradientData || entries["patterns/dots.pat"] != patternData {
		t.Errorf("resource entries = %q, %q", entries["gradients/foo.ggr"], entries["patterns/dots.pat"])
	}

	if _, err := r.Build(context.Background(), out); !errors.Is(err, ErrBundleExists) {
		t.Errorf("second Build() error = %v, want ErrBundleExists", err)
	}
}

func TestRecipeBuildMissingFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	r, err := ParseRecipe([]byte(sampleRecipe), "recipe.cue", dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Build(context.Background(), filepath.Join(dir, "x.bundle")); err == nil {
		t.Error("Build() should fail when a resource file is missing")
	}
}
