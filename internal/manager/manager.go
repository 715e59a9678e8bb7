// SPDX-License-Identifier: MPL-2.0

// Package manager keeps the set of known bundles: the active ones found in the
// bundles directory and the blacklisted ones recorded in the blacklist file.
// It answers searches and applies install/uninstall selections.
//
// A Manager is not safe for concurrent use.
package manager

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/sahilm/fuzzy"

	"github.com/respack/respack/pkg/bundle"
	"github.com/respack/respack/pkg/meta"
	"github.com/respack/respack/pkg/registry"
	"github.com/respack/respack/pkg/restype"
)

var (
	// ErrUnknownBundle is reported for a selection or lookup matching no bundle.
	ErrUnknownBundle = errors.New("bundle doesn't exist")
	// ErrAddFailed is reported when an installed bundle cannot be indexed.
	ErrAddFailed = errors.New("couldn't add bundle to resource server")
	// ErrBlacklistRemoveFailed is reported when an installed bundle stays blacklisted.
	ErrBlacklistRemoveFailed = errors.New("couldn't remove bundle from blacklist")
)

type (
	// Entry is one row of a Refresh result.
	Entry struct {
		Bundle *bundle.Bundle
		// Checked is true for active bundles and false for blacklisted ones.
		Checked     bool
		Blacklisted bool
	}

	// Selection is the desired state of one bundle, identified by content hash.
	Selection struct {
		Hash    []byte
		Checked bool
	}

	// Section lists the resources of one type inside a bundle.
	Section struct {
		Type      restype.Type
		Label     string
		Resources []string
	}

	// Details describes a bundle for display.
	Details struct {
		Name         string
		Filename     string
		Author       string
		Email        string
		License      string
		Website      string
		Description  string
		Created      string
		Updated      string
		Tags         []string
		Installed    bool
		Blacklisted  bool
		HasThumbnail bool
		Contents     []Section
	}

	// Option configures a Manager.
	Option func(*Manager)

	// Manager tracks bundles and the resources they install.
	Manager struct {
		bundlesDir    string
		root          string
		blacklistFile string
		server        *registry.Server[*bundle.Bundle]
		provider      *registry.Provider
		blacklisted   []*bundle.Bundle
		bundleOpts    []bundle.Option
		logger        *log.Logger
	}
)

// WithResourceRoot sets the directory bundles install into.
func WithResourceRoot(root string) Option {
	return func(m *Manager) { m.root = root }
}

// WithBlacklistFile persists the bundle blacklist to path.
func WithBlacklistFile(path string) Option {
	return func(m *Manager) { m.blacklistFile = path }
}

// WithLogger sets the logger used for non-fatal diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithBundleOptions adds options applied to every bundle the manager opens.
func WithBundleOptions(opts ...bundle.Option) Option {
	return func(m *Manager) { m.bundleOpts = append(m.bundleOpts, opts...) }
}

// New creates a manager for the bundles stored in bundlesDir. Call
// LoadBundles before using it.
func New(bundlesDir string, opts ...Option) *Manager {
	m := &Manager{bundlesDir: bundlesDir}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = log.Default().WithPrefix("manager")
	}
	m.bundleOpts = append([]bundle.Option{
		bundle.WithResourceRoot(m.root),
		bundle.WithLogger(m.logger.WithPrefix("bundle")),
	}, m.bundleOpts...)
	m.server = registry.NewServer[*bundle.Bundle]("bundles",
		registry.WithBlacklistFile(m.blacklistFile),
		registry.WithServerLogger(m.logger))
	m.provider = registry.NewProvider(registry.WithServerLogger(m.logger))
	return m
}

// Provider returns the resource registry bundles resolve against.
func (m *Manager) Provider() *registry.Provider { return m.provider }

// Server returns the bundle index.
func (m *Manager) Server() *registry.Server[*bundle.Bundle] { return m.server }

// OpenBundle returns an unloaded bundle for path configured like the
// manager's own bundles.
func (m *Manager) OpenBundle(path string) *bundle.Bundle {
	return bundle.New(path, m.bundleOpts...)
}

// LoadBundles reads the blacklist, indexes the installed resources under the
// resource root and loads every non-blacklisted *.bundle file in the bundles
// directory. Bundles that fail to load are logged and skipped. It returns the
// number of bundles indexed.
func (m *Manager) LoadBundles(ctx context.Context) (int, error) {
	if err := m.server.LoadBlacklist(); err != nil {
		return 0, err
	}
	if m.root != "" {
		if _, err := m.provider.Scan(m.root); err != nil {
			m.logger.Warn("could not index installed resources", "root", m.root, "err", err)
		}
	}

	if _, err := os.Stat(m.bundlesDir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	matches, err := doublestar.Glob(os.DirFS(m.bundlesDir), "*"+bundle.Extension, doublestar.WithFilesOnly())
	if err != nil {
		return 0, fmt.Errorf("failed to list bundles in %s: %w", m.bundlesDir, err)
	}

	n := 0
	for _, match := range matches {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		path := filepath.Join(m.bundlesDir, filepath.FromSlash(match))
		if m.server.IsBlacklisted(path) {
			continue
		}
		b := m.OpenBundle(path)
		if err := b.Load(); err != nil {
			m.logger.Warn("could not load bundle", "file", path, "err", err)
			continue
		}
		if m.server.AddResource(b, false, false) {
			n++
		}
	}
	return n, nil
}

// Refresh reloads the blacklisted bundles and returns the active bundles
// matching query followed by every valid blacklisted bundle. Blacklisted
// bundles are reported as not installed.
//
// An active bundle matches when its name fuzzy-matches query, its author
// contains query or its description contains the trimmed query. An empty
// query matches everything.
func (m *Manager) Refresh(query string) []Entry {
	m.loadBlacklisted()

	var out []Entry
	for _, b := range filter(m.server.Resources(), query) {
		out = append(out, Entry{Bundle: b, Checked: true})
	}
	for _, b := range m.blacklisted {
		out = append(out, Entry{Bundle: b, Blacklisted: true})
	}
	return out
}

func (m *Manager) loadBlacklisted() {
	m.blacklisted = m.blacklisted[:0]
	for _, f := range m.server.BlacklistedFiles() {
		b := m.OpenBundle(f)
		if err := b.Load(); err != nil {
			m.logger.Debug("skipping blacklisted bundle", "file", f, "err", err)
			continue
		}
		b.SetInstalled(false)
		m.blacklisted = append(m.blacklisted, b)
	}
}

func filter(bundles []*bundle.Bundle, query string) []*bundle.Bundle {
	valid := slices.DeleteFunc(bundles, func(b *bundle.Bundle) bool { return !b.Valid() })
	if query == "" {
		return valid
	}

	names := make([]string, len(valid))
	for i, b := range valid {
		names[i] = strings.ToLower(b.Name())
	}
	matched := make([]bool, len(valid))
	for _, match := range fuzzy.Find(strings.ToLower(query), names) {
		matched[match.Index] = true
	}

	trimmed := strings.TrimSpace(query)
	var out []*bundle.Bundle
	for i, b := range valid {
		if matched[i] ||
			strings.Contains(b.Meta(meta.KeyAuthor), query) ||
			strings.Contains(b.Meta(meta.KeyDescription), trimmed) {
			out = append(out, b)
		}
	}
	return out
}

// Apply brings each selected bundle into the requested state:
//   - checked and not installed: install, index and un-blacklist it
//   - checked and installed: un-blacklist it
//   - unchecked and installed: uninstall and blacklist it
//
// Bundles are found by content hash among the active bundles first and the
// blacklisted ones from the last Refresh second. Problems do not stop the
// remaining selections; they are returned as feedback.
func (m *Manager) Apply(ctx context.Context, selections []Selection) []error {
	var feedback []error
	for _, sel := range selections {
		if err := ctx.Err(); err != nil {
			return append(feedback, err)
		}
		b, blacklisted := m.lookup(sel.Hash)
		if b == nil {
			feedback = append(feedback, fmt.Errorf("%x: %w", sel.Hash, ErrUnknownBundle))
			continue
		}

		switch {
		case sel.Checked && !b.IsInstalled():
			// The content hash changes on save, so re-index under the new one.
			m.server.RemoveResource(b)
			if err := b.Install(ctx, m.provider); err != nil {
				feedback = append(feedback, fmt.Errorf("install %s: %w", b.Name(), err))
				if !blacklisted {
					m.server.AddResource(b, false, false)
				}
				continue
			}
			m.indexInstalled(b)
			if !m.server.AddResource(b, false, false) {
				feedback = append(feedback, fmt.Errorf("%s: %w", b.Name(), ErrAddFailed))
			}
			if blacklisted && !m.server.RemoveFromBlacklist(b) {
				feedback = append(feedback, fmt.Errorf("%s: %w", b.Name(), ErrBlacklistRemoveFailed))
			}
		case sel.Checked:
			// Already-installed bundles must not stay blacklisted; false here
			// only means it was not.
			m.server.RemoveFromBlacklist(b)
			if blacklisted {
				m.server.AddResource(b, false, false)
			}
		case b.IsInstalled():
			m.server.RemoveResource(b)
			if err := b.Uninstall(ctx, m.provider); err != nil {
				feedback = append(feedback, fmt.Errorf("uninstall %s: %w", b.Name(), err))
				m.server.AddResource(b, false, false)
				continue
			}
			m.server.AddToBlacklist(b)
		}
	}
	return feedback
}

// indexInstalled registers the freshly installed resource directories of b
// with the resource registry.
func (m *Manager) indexInstalled(b *bundle.Bundle) {
	for t, dir := range b.ResourceDirs() {
		k, err := t.Kind()
		if err != nil {
			continue
		}
		if _, err := registry.ScanDir(m.provider.Server(t), dir, k.Patterns); err != nil {
			m.logger.Warn("could not index installed resources", "bundle", b.Name(), "dir", dir, "err", err)
		}
	}
}

func (m *Manager) lookup(hash []byte) (b *bundle.Bundle, blacklisted bool) {
	if b := m.server.ResourceByContentHash(hash); b != nil {
		return b, false
	}
	for _, b := range m.blacklisted {
		if slices.Equal(b.ContentHash(), hash) {
			return b, true
		}
	}
	return nil, false
}

// Find returns the bundle whose path, file name or name equals ref, looking at
// active bundles first and blacklisted ones second.
func (m *Manager) Find(ref string) (*bundle.Bundle, error) {
	if len(m.blacklisted) == 0 {
		m.loadBlacklisted()
	}
	candidates := append(m.server.Resources(), m.blacklisted...)
	for _, b := range candidates {
		if b.Filename() == ref || filepath.Base(b.Filename()) == ref || b.Name() == ref {
			return b, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", ref, ErrUnknownBundle)
}

// Details describes the bundle with the given content hash.
func (m *Manager) Details(hash []byte) (*Details, error) {
	b, blacklisted := m.lookup(hash)
	if b == nil {
		return nil, fmt.Errorf("%x: %w", hash, ErrUnknownBundle)
	}
	return Describe(b, blacklisted), nil
}

// Describe builds the display details of b.
func Describe(b *bundle.Bundle, blacklisted bool) *Details {
	d := &Details{
		Name:         b.Name(),
		Filename:     b.Filename(),
		Author:       b.Meta(meta.KeyAuthor),
		Email:        b.Meta(meta.KeyEmail),
		License:      b.Meta(meta.KeyLicense),
		Website:      b.Meta(meta.KeyWebsite),
		Description:  b.Meta(meta.KeyDescription),
		Created:      b.Meta(meta.KeyCreated),
		Updated:      b.Meta(meta.KeyUpdated),
		Tags:         b.TagsList(),
		Installed:    b.IsInstalled(),
		Blacklisted:  blacklisted,
		HasThumbnail: len(b.Thumbnail()) > 0,
	}
	for _, t := range b.ResourceTypes() {
		sec := Section{Type: t, Label: t.Label()}
		for _, ref := range b.Manifest().Files(t) {
			sec.Resources = append(sec.Resources, ref.Basename())
		}
		d.Contents = append(d.Contents, sec)
	}
	return d
}
