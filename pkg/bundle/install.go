// SPDX-License-Identifier: MPL-2.0

package bundle

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/respack/respack/pkg/meta"
)

// ErrInvalidThumbnail is returned when a thumbnail file is not a PNG image.
var ErrInvalidThumbnail = errors.New("thumbnail is not a PNG image")

// Install extracts every referenced resource to
// <root>/<dir>/<name>/<basename>, exports the resource tags to p, marks the
// bundle installed and saves it. Files that cannot be extracted are logged
// and skipped.
func (b *Bundle) Install(ctx context.Context, p Provider) error {
	if !b.valid {
		return ErrNotLoaded
	}
	if b.root == "" {
		return ErrNoResourceRoot
	}

	name, err := b.installName()
	if err != nil {
		return err
	}
	if err := b.extractAll(ctx, name); err != nil {
		return err
	}
	if p != nil {
		b.manifest.ExportTags(p, b.root, name)
	}
	b.installed = true
	return b.Save(ctx, p)
}

func (b *Bundle) extractAll(ctx context.Context, name string) (err error) {
	zr, err := zip.OpenReader(b.path)
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrArchiveOpen, b.path, err)
	}
	defer func() {
		if closeErr := zr.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	entries := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		entries[f.Name] = f
	}

	targets := b.manifest.FilesToExtract(b.root, name)
	for _, src := range slices.Sorted(maps.Keys(targets)) {
		if err := ctx.Err(); err != nil {
			return err
		}
		dst := targets[src]
		if !within(b.root, dst) {
			b.logger.Warn("refusing to install outside the resource root", "entry", src, "target", dst)
			continue
		}
		f := entries[src]
		if f == nil {
			b.logger.Warn("could not install missing entry", "entry", src)
			continue
		}
		if err := extractFile(f, dst); err != nil {
			if mkErr := os.MkdirAll(filepath.Dir(dst), 0o755); mkErr != nil {
				b.logger.Warn("could not create install directory", "dir", filepath.Dir(dst), "err", mkErr)
				continue
			}
			if err := extractFile(f, dst); err != nil {
				b.logger.Warn("could not install resource", "entry", src, "target", dst, "err", err)
				continue
			}
		}
	}
	return nil
}

// Uninstall removes the installed resource directories, clears the installed
// flag and saves the bundle. It does nothing when the bundle is not
// installed. Directories that cannot be removed are logged and skipped.
func (b *Bundle) Uninstall(ctx context.Context, p Provider) error {
	if !b.installed {
		return nil
	}
	if b.root == "" {
		return ErrNoResourceRoot
	}

	name, err := b.installName()
	if err != nil {
		return err
	}
	for _, d := range b.manifest.DirList() {
		dir, err := b.installDir(d, name)
		if err != nil {
			return err
		}
		if err := RemoveDir(dir); err != nil {
			b.logger.Warn("could not delete folder", "dir", dir, "err", err)
		}
	}

	b.installed = false
	return b.Save(ctx, p)
}

// Rename changes the bundle name to newName up to its first dot and records
// newFileName in the metadata. Installed resource directories are renamed
// to match; failures there are logged. The bundle is saved afterwards.
func (b *Bundle) Rename(ctx context.Context, p Provider, newFileName, newName string) error {
	shortName, _, _ := strings.Cut(newName, ".")
	if err := ValidateName(shortName); err != nil {
		return err
	}

	oldName, oldErr := b.installName()
	b.AddMeta(meta.KeyFilename, newFileName)
	b.AddMeta(meta.KeyName, shortName)
	b.AddMeta(meta.KeyPackName, shortName)
	b.manifest.Rename(shortName)
	b.name = shortName

	if b.installed && b.root != "" && oldErr == nil && oldName != shortName {
		for _, d := range b.manifest.DirList() {
			from, fromErr := b.installDir(d, oldName)
			to, toErr := b.installDir(d, shortName)
			if err := errors.Join(fromErr, toErr); err != nil {
				b.logger.Warn("refusing to rename resource folder", "dir", d, "err", err)
				continue
			}
			if err := os.Rename(from, to); err != nil {
				b.logger.Warn("could not rename resource folder", "from", from, "to", to, "err", err)
			}
		}
	}
	return b.Save(ctx, p)
}

// SetThumbnail loads a PNG file as the bundle thumbnail. It takes effect on
// the next Save.
func (b *Bundle) SetThumbnail(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read thumbnail: %w", err)
	}
	if _, err := png.DecodeConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidThumbnail, filename, err)
	}
	b.thumbnail = data
	return nil
}

// RemoveDir deletes dir depth-first, removing files before subdirectories.
// The first failure aborts the remaining removal and is returned. A missing
// directory is not an error.
func RemoveDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}

	var subdirs []string
	for _, e := range entries {
		p := filepath.Join(dir, e.Name())
		if e.IsDir() {
			subdirs = append(subdirs, p)
			continue
		}
		if err := os.Remove(p); err != nil {
			return err
		}
	}
	for _, sub := range subdirs {
		if err := RemoveDir(sub); err != nil {
			return err
		}
	}
	return os.Remove(dir)
}

// extractFile copies one archive entry to destPath.
func extractFile(file *zip.File, destPath string) (err error) {
	rc, err := file.Open()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := rc.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	destFile, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := destFile.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	//nolint:gosec // G110: bundles are user-chosen archives
	_, err = io.Copy(destFile, rc)
	return err
}

// within reports whether target resolves inside root.
func within(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
