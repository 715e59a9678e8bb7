// SPDX-License-Identifier: MPL-2.0

package bundle

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/respack/respack/pkg/cueutil"
	"github.com/respack/respack/pkg/meta"
	"github.com/respack/respack/pkg/registry"
	"github.com/respack/respack/pkg/restype"
)

//go:embed recipe_schema.cue
var recipeSchema []byte

var (
	// ErrBundleExists is returned when a recipe would overwrite an existing archive.
	ErrBundleExists = errors.New("bundle already exists")
	// ErrInvalidRecipe wraps recipe parse and schema errors.
	ErrInvalidRecipe = errors.New("invalid bundle recipe")
)

type (
	// Recipe describes a bundle to build from files on disk.
	Recipe struct {
		Name        string           `json:"name"`
		Author      string           `json:"author,omitempty"`
		Email       string           `json:"email,omitempty"`
		License     string           `json:"license,omitempty"`
		Website     string           `json:"website,omitempty"`
		Description string           `json:"description,omitempty"`
		Thumbnail   string           `json:"thumbnail,omitempty"`
		Tags        []string         `json:"tags,omitempty"`
		Resources   []RecipeResource `json:"resources"`

		// baseDir resolves relative file paths.
		baseDir string
	}

	// RecipeResource is one resource file of a recipe.
	RecipeResource struct {
		Type restype.Type `json:"type"`
		File string       `json:"file"`
		Tags []string     `json:"tags,omitempty"`
	}
)

// ParseRecipe decodes and validates recipe CUE source. Relative file paths
// are resolved against baseDir.
func ParseRecipe(data []byte, filename, baseDir string) (*Recipe, error) {
	result, err := cueutil.ParseAndDecode[Recipe](recipeSchema, data, "#Recipe", cueutil.WithFilename(filename))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRecipe, err)
	}
	r := result.Value
	r.baseDir = baseDir
	return r, nil
}

// LoadRecipe reads and parses a recipe file.
func LoadRecipe(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read recipe: %w", err)
	}
	return ParseRecipe(data, filepath.Base(path), filepath.Dir(path))
}

// Build writes the bundle described by the recipe to outPath and returns it
// loaded. It refuses to overwrite an existing file.
func (r *Recipe) Build(ctx context.Context, outPath string, opts ...Option) (*Bundle, error) {
	if err := ValidateName(r.Name); err != nil {
		return nil, err
	}
	if _, err := os.Stat(outPath); err == nil {
		return nil, fmt.Errorf("%w at %s", ErrBundleExists, outPath)
	}

	b := New(outPath, opts...)
	b.name = r.Name

	provider := registry.NewProvider(registry.WithServerLogger(b.logger))
	for _, res := range r.Resources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		file := r.resolve(res.File)
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read resource %s: %w", res.File, err)
		}
		item := registry.NewResource(file, data)
		if err := b.AddResource(res.Type, file, res.Tags, item.ContentHash()); err != nil {
			return nil, err
		}
		provider.Server(res.Type).AddResource(item, false, false)
	}

	now := b.clock.Now().Format(DateLayout)
	for _, kv := range []meta.Entry{
		{Key: meta.KeyName, Value: r.Name},
		{Key: meta.KeyPackName, Value: r.Name},
		{Key: meta.KeyFilename, Value: filepath.Base(outPath)},
		{Key: meta.KeyAuthor, Value: r.Author},
		{Key: meta.KeyEmail, Value: r.Email},
		{Key: meta.KeyLicense, Value: r.License},
		{Key: meta.KeyWebsite, Value: r.Website},
		{Key: meta.KeyDescription, Value: r.Description},
		{Key: meta.KeyCreated, Value: now},
	} {
		if kv.Value != "" {
			b.AddMeta(kv.Key, kv.Value)
		}
	}
	for _, tag := range r.Tags {
		b.AddMeta(meta.KeyTag, tag)
	}

	if r.Thumbnail != "" {
		if err := b.SetThumbnail(r.resolve(r.Thumbnail)); err != nil {
			return nil, err
		}
	}

	if err := b.Save(ctx, provider); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *Recipe) resolve(file string) string {
	if filepath.IsAbs(file) || r.baseDir == "" {
		return file
	}
	return filepath.Join(r.baseDir, filepath.FromSlash(file))
}
