// SPDX-License-Identifier: MPL-2.0

// Package bundle reads, writes and installs resource bundles.
//
// A bundle is a ZIP archive with the ".bundle" extension containing:
//   - META-INF/manifest.xml: the typed resource index (see package manifest)
//   - meta.xml: free-form metadata (see package meta)
//   - thumbnail.png: an optional preview image
//   - <dir>/<basename>: one entry per referenced resource, where <dir> is the
//     archive directory of the resource type (e.g. "gradients")
//
// Installing a bundle extracts its resources to
// <root>/<dir>/<bundle name>/<basename> under the user's resource root.
// Uninstalling removes those directories again. Both rewrite the archive so
// that the installed flag persists.
package bundle

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/respack/respack/pkg/manifest"
	"github.com/respack/respack/pkg/meta"
	"github.com/respack/respack/pkg/registry"
	"github.com/respack/respack/pkg/restype"
)

const (
	// Extension is the file extension of bundle archives.
	Extension = ".bundle"

	// ManifestEntry is the archive entry holding the manifest.
	ManifestEntry = "META-INF/manifest.xml"
	// MetaEntry is the archive entry holding the metadata.
	MetaEntry = "meta.xml"
	// ThumbnailEntry is the optional archive entry holding the preview image.
	ThumbnailEntry = "thumbnail.png"

	// DateLayout is the layout of the "created" and "updated" metadata values.
	DateLayout = "02/01/2006"

	// tempDir is the staging directory purged after saving an uninstalled bundle.
	tempDir = "temp"
)

var (
	// ErrNoPath is returned when a bundle has no file path.
	ErrNoPath = errors.New("bundle has no file path")
	// ErrArchiveOpen is returned when the bundle archive cannot be opened.
	ErrArchiveOpen = errors.New("cannot open bundle archive")
	// ErrMissingManifest is returned when the manifest entry is absent or unreadable.
	ErrMissingManifest = errors.New("bundle manifest is missing or malformed")
	// ErrBrokenBundle is the sentinel wrapped by MissingEntryError.
	ErrBrokenBundle = errors.New("bundle is broken")
	// ErrMissingMeta is returned when the metadata entry is absent or unreadable.
	ErrMissingMeta = errors.New("bundle metadata is missing or malformed")
	// ErrShortWrite is returned when fewer bytes were written than requested.
	ErrShortWrite = errors.New("short write")
	// ErrNotLoaded is returned by operations that require a valid bundle.
	ErrNotLoaded = errors.New("bundle is not loaded")
	// ErrNoResourceRoot is returned when an operation needs the resource root
	// but none was configured.
	ErrNoResourceRoot = errors.New("no resource root configured")
	// ErrInvalidName is the sentinel wrapped by InvalidNameError.
	ErrInvalidName = errors.New("invalid bundle name")
)

// nameRegex accepts a bundle short name: no path separators, no leading dot.
var nameRegex = regexp.MustCompile(`^[\p{L}\p{N}_][\p{L}\p{N}_ .+-]*$`)

type (
	// Provider resolves resources for saving and receives tags on install.
	Provider interface {
		// Lookup returns the resolver for a resource type, or nil.
		Lookup(t restype.Type) registry.Lookup
		// TagResource attaches tags to an installed resource file.
		TagResource(t restype.Type, filename string, tags ...string)
	}

	// Clock supplies the current time for metadata timestamps.
	Clock interface {
		Now() time.Time
	}

	// MissingEntryError is returned by Load when a manifest reference has no
	// archive entry. It wraps ErrBrokenBundle.
	MissingEntryError struct {
		Entry string
	}

	// InvalidNameError is returned when a bundle name cannot be used as a
	// directory name. It wraps ErrInvalidName.
	InvalidNameError struct {
		Value string
	}

	// Option configures a Bundle.
	Option func(*Bundle)

	// Bundle is a resource bundle archive.
	//
	// A Bundle starts unloaded. Load makes it valid or invalid; Install and
	// Uninstall toggle the installed flag of a valid bundle and persist it.
	Bundle struct {
		path      string
		name      string
		root      string
		manifest  *manifest.Manifest
		meta      *meta.Metadata
		thumbnail []byte
		hash      []byte
		installed bool
		valid     bool
		logger    *log.Logger
		clock     Clock
	}

	systemClock struct{}
)

// Error implements the error interface.
func (e *MissingEntryError) Error() string {
	return fmt.Sprintf("bundle is broken: file %s is missing", e.Entry)
}

// Unwrap returns ErrBrokenBundle for errors.Is() compatibility.
func (e *MissingEntryError) Unwrap() error { return ErrBrokenBundle }

// Error implements the error interface.
func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("invalid bundle name %q: must not be empty, start with a dot or contain path separators", e.Value)
}

// Unwrap returns ErrInvalidName for errors.Is() compatibility.
func (e *InvalidNameError) Unwrap() error { return ErrInvalidName }

func (systemClock) Now() time.Time { return time.Now() }

// WithResourceRoot sets the directory resources are installed under.
func WithResourceRoot(root string) Option {
	return func(b *Bundle) { b.root = root }
}

// WithLogger sets the logger used for non-fatal diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(b *Bundle) { b.logger = l }
}

// WithClock sets the clock used for the "updated" timestamp.
func WithClock(c Clock) Option {
	return func(b *Bundle) { b.clock = c }
}

// New returns an unloaded bundle for the archive at path. Its name defaults to
// the file name without extension.
func New(path string, opts ...Option) *Bundle {
	b := &Bundle{
		path:     path,
		name:     baseName(path),
		manifest: manifest.New(),
		meta:     meta.New(),
		clock:    systemClock{},
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = log.Default().WithPrefix("bundle")
	}
	return b
}

// ValidateName checks that name can be used as an install directory name.
func ValidateName(name string) error {
	if !nameRegex.MatchString(name) {
		return &InvalidNameError{Value: name}
	}
	return nil
}

// Load reads the archive. On failure the bundle becomes invalid and the
// returned error wraps one of ErrNoPath, ErrArchiveOpen, ErrMissingManifest,
// ErrBrokenBundle or ErrMissingMeta.
func (b *Bundle) Load() (err error) {
	b.valid = false
	b.installed = false
	if b.path == "" {
		return ErrNoPath
	}

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

	mf := entries[ManifestEntry]
	if mf == nil {
		return fmt.Errorf("%w: no %s entry", ErrMissingManifest, ManifestEntry)
	}
	m, installed, err := decodeEntry(mf, manifest.Decode)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMissingManifest, err)
	}
	for _, ref := range m.All() {
		if entries[ref.Path] == nil {
			b.logger.Warn("bundle is broken", "bundle", b.path, "missing", ref.Path)
			return &MissingEntryError{Entry: ref.Path}
		}
	}

	me := entries[MetaEntry]
	if me == nil {
		return fmt.Errorf("%w: no %s entry", ErrMissingMeta, MetaEntry)
	}
	md, _, err := decodeEntry(me, func(r io.Reader) (*meta.Metadata, bool, error) {
		md, err := meta.Decode(r)
		return md, false, err
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMissingMeta, err)
	}

	var thumb []byte
	if tf := entries[ThumbnailEntry]; tf != nil {
		if thumb, err = readEntry(tf); err != nil {
			b.logger.Warn("could not read thumbnail", "bundle", b.path, "err", err)
			thumb = nil
		}
	}

	hash, err := registry.HashFile(b.path)
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrArchiveOpen, b.path, err)
	}

	b.manifest = m
	b.meta = md
	b.thumbnail = thumb
	b.hash = hash
	b.installed = installed
	b.valid = true
	return nil
}

// Name returns the bundle name.
func (b *Bundle) Name() string { return b.name }

// Filename returns the archive path.
func (b *Bundle) Filename() string { return b.path }

// ContentHash returns the MD5 digest of the archive file as of the last load
// or save. It is nil for a bundle that was never loaded or saved.
func (b *Bundle) ContentHash() []byte { return slices.Clone(b.hash) }

// IsInstalled reports whether the bundle's resources are installed.
func (b *Bundle) IsInstalled() bool { return b.installed }

// SetInstalled overrides the installed flag without touching the filesystem.
// The flag is persisted by the next Save.
func (b *Bundle) SetInstalled(installed bool) { b.installed = installed }

// Valid reports whether the last Load or Save succeeded.
func (b *Bundle) Valid() bool { return b.valid }

// Manifest returns the bundle manifest. Callers must not keep it across
// Load calls.
func (b *Bundle) Manifest() *manifest.Manifest { return b.manifest }

// Thumbnail returns the PNG thumbnail bytes, or nil.
func (b *Bundle) Thumbnail() []byte { return slices.Clone(b.thumbnail) }

// AddResource references a resource file and adds its tags to the metadata.
// The archive path is normalized to <dir>/<basename>.
func (b *Bundle) AddResource(t restype.Type, filename string, tags []string, hash []byte) error {
	entry, err := restype.EntryPath(t, filename)
	if err != nil {
		return err
	}
	b.manifest.AddResource(t, entry, tags, hash)
	b.meta.AddTags(tags)
	return nil
}

// RemoveFile drops the reference with the given archive path and removes from
// the metadata every tag no remaining reference carries.
func (b *Bundle) RemoveFile(entry string) {
	for _, tag := range b.manifest.RemoveFile(entry) {
		b.meta.RemoveFirstTag(meta.KeyTag, tag)
	}
}

// AddMeta records a metadata value. Tags accumulate; any other key keeps a
// single value.
func (b *Bundle) AddMeta(key, value string) {
	if key == meta.KeyTag {
		b.meta.AddTag(key, value)
		return
	}
	b.meta.Set(key, value)
}

// Meta returns the first metadata value for key.
func (b *Bundle) Meta(key string) string { return b.meta.Value(key) }

// Metadata returns the bundle metadata.
func (b *Bundle) Metadata() *meta.Metadata { return b.meta }

// TagsList returns the bundle tags.
func (b *Bundle) TagsList() []string { return b.meta.TagsList() }

// RemoveTag removes one occurrence of tag from the metadata.
func (b *Bundle) RemoveTag(tag string) { b.meta.RemoveFirstTag(meta.KeyTag, tag) }

// ResourceTypes returns the resource types the bundle references.
func (b *Bundle) ResourceTypes() []restype.Type { return b.manifest.Types() }

// Resources returns the live resources of type t referenced by the bundle,
// resolved by content hash.
func (b *Bundle) Resources(t restype.Type, p Provider) []*registry.Resource {
	if p == nil {
		return nil
	}
	lookup := p.Lookup(t)
	if lookup == nil {
		return nil
	}
	var out []*registry.Resource
	for _, ref := range b.manifest.Files(t) {
		if r := lookup.ResourceByContentHash(ref.Hash); r != nil {
			out = append(out, r)
		}
	}
	return out
}

// ResourceDirs maps each referenced resource type to the directory its
// resources are installed in.
func (b *Bundle) ResourceDirs() map[restype.Type]string {
	out := make(map[restype.Type]string)
	if b.root == "" {
		return out
	}
	name, err := b.installName()
	if err != nil {
		return out
	}
	for _, t := range b.manifest.Types() {
		out[t] = filepath.Join(b.root, t.Dir(), name)
	}
	return out
}

// installName is the directory name resources are installed under. It comes
// from archive metadata, so names that are not a single path element are
// rejected.
func (b *Bundle) installName() (string, error) {
	n := b.meta.Value(meta.KeyPackName)
	if n == "" {
		n = b.name
	}
	if n == "" || n == "." || n == ".." || strings.ContainsAny(n, `/\`) || filepath.VolumeName(n) != "" {
		return "", &InvalidNameError{Value: n}
	}
	return n, nil
}

// installDir returns <root>/<dir>/<name>, refusing targets that are not
// strictly inside <root>/<dir>.
func (b *Bundle) installDir(dir, name string) (string, error) {
	base := filepath.Join(b.root, dir)
	target := filepath.Join(base, name)
	if target == base || !within(base, target) {
		return "", &InvalidNameError{Value: name}
	}
	return target, nil
}

func decodeEntry[T any](f *zip.File, decode func(io.Reader) (T, bool, error)) (v T, flag bool, err error) {
	rc, err := f.Open()
	if err != nil {
		return v, false, err
	}
	defer func() {
		if closeErr := rc.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return decode(rc)
}

func readEntry(f *zip.File) (data []byte, err error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rc.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return io.ReadAll(rc)
}

func baseName(path string) string {
	base := filepath.Base(path)
	if path == "" || base == "." || base == string(filepath.Separator) {
		return ""
	}
	if i := strings.Index(base, "."); i > 0 {
		return base[:i]
	}
	return base
}
