// SPDX-License-Identifier: MPL-2.0

package bundle

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/respack/respack/pkg/manifest"
	"github.com/respack/respack/pkg/meta"
	"github.com/respack/respack/pkg/registry"
	"github.com/respack/respack/pkg/restype"
)

// Save writes the bundle archive. Every manifest reference is resolved
// through p, by content hash first and by filename second, and written to
// <dir>/<basename>. A reference that cannot be resolved from p or from the
// current archive is logged and dropped from the manifest.
//
// The archive is written to a temporary file next to the target and renamed
// over it, so a failed save leaves the previous archive untouched.
func (b *Bundle) Save(ctx context.Context, p Provider) (err error) {
	if b.path == "" {
		return ErrNoPath
	}

	b.meta.Set(meta.KeyUpdated, b.clock.Now().Format(DateLayout))
	b.meta.CheckSort()

	_, statErr := os.Stat(b.path)
	existed := statErr == nil

	old := openPrevious(b.path)
	defer func() {
		if old != nil {
			_ = old.Close()
		}
	}()

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath) // Best-effort cleanup of temp file
		}
	}()

	zw := zip.NewWriter(tmp)
	if err := b.writeResources(ctx, zw, p, old); err != nil {
		return err
	}
	if len(b.thumbnail) > 0 {
		if err := writeEntry(zw, ThumbnailEntry, b.thumbnail); err != nil {
			return err
		}
	}

	var buf bytes.Buffer
	if err := b.manifest.Encode(&buf, b.installed); err != nil {
		return err
	}
	if err := writeEntry(zw, ManifestEntry, buf.Bytes()); err != nil {
		return err
	}
	metaBytes, err := b.meta.Bytes()
	if err != nil {
		return err
	}
	if err := writeEntry(zw, MetaEntry, metaBytes); err != nil {
		return err
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close archive: %w", err)
	}
	if old != nil {
		// Windows cannot rename over an open file.
		_ = old.Close()
		old = nil
	}
	if err := os.Rename(tmpPath, b.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", b.path, err)
	}
	committed = true

	if b.hash, err = registry.HashFile(b.path); err != nil {
		return err
	}

	if existed && !b.installed && b.root != "" {
		for _, d := range b.manifest.DirList() {
			if err := RemoveDir(filepath.Join(b.root, tempDir, d)); err != nil {
				b.logger.Warn("could not purge temp directory", "dir", d, "err", err)
			}
		}
	}

	b.valid = true
	return nil
}

// writeResources writes one entry per manifest reference and normalizes each
// reference path to the entry it was written to.
func (b *Bundle) writeResources(ctx context.Context, zw *zip.Writer, p Provider, old *zip.ReadCloser) error {
	written := make(map[string]bool)
	for _, t := range b.manifest.Types() {
		var lookup registry.Lookup
		if p != nil {
			lookup = p.Lookup(t)
		}
		for _, ref := range b.manifest.Files(t) {
			if err := ctx.Err(); err != nil {
				return err
			}

			entry, err := restype.EntryPath(t, ref.Basename())
			if err != nil {
				return err
			}
			data, err := resolve(lookup, old, ref)
			if err != nil {
				b.logger.Warn("could not resolve resource, dropping it", "bundle", b.name, "path", ref.Path, "err", err)
				b.RemoveFile(ref.Path)
				continue
			}
			if written[entry] {
				b.logger.Warn("duplicate archive entry, dropping reference", "bundle", b.name, "entry", entry)
				b.RemoveFile(ref.Path)
				continue
			}
			if err := writeEntry(zw, entry, data); err != nil {
				return err
			}
			written[entry] = true
			if entry != ref.Path {
				b.manifest.SetPath(t, ref.Path, entry)
			}
		}
	}
	return nil
}

var errUnresolved = errors.New("resource not found")

func resolve(lookup registry.Lookup, old *zip.ReadCloser, ref manifest.ResourceReference) ([]byte, error) {
	if lookup != nil {
		r := lookup.ResourceByContentHash(ref.Hash)
		if r == nil {
			name := ref.Basename()
			r = lookup.ResourceByFilename(strings.TrimSuffix(name, path.Ext(name)))
			if r == nil {
				r = lookup.ResourceByFilename(name)
			}
		}
		if r != nil {
			if data, err := r.Bytes(); err == nil {
				return data, nil
			}
		}
	}
	if old != nil {
		for _, f := range old.File {
			if f.Name == ref.Path {
				return readEntry(f)
			}
		}
	}
	return nil, errUnresolved
}

func openPrevious(archive string) *zip.ReadCloser {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return nil
	}
	return zr
}

// writeEntry stores data under name. Success means every byte was written.
func writeEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return fmt.Errorf("failed to create entry %s: %w", name, err)
	}
	n, err := w.Write(data)
	if err != nil {
		return fmt.Errorf("failed to write entry %s: %w", name, err)
	}
	if n != len(data) {
		return fmt.Errorf("entry %s: %w (%d of %d bytes)", name, ErrShortWrite, n, len(data))
	}
	return nil
}
