// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"bytes"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

type (
	// Item is anything a Server can index.
	Item interface {
		// Name is the display name.
		Name() string
		// Filename is the path of the backing file.
		Filename() string
		// ContentHash is the digest identifying the item.
		ContentHash() []byte
	}

	// Saver is implemented by items that can persist themselves when added
	// with save=true.
	Saver interface {
		Save() error
	}

	// Server is the live index of one kind of item, keyed by content hash and
	// by filename. It also tracks blacklisted files and a tag index.
	Server[T Item] struct {
		mu            sync.RWMutex
		name          string
		items         []T
		blacklist     []string
		blacklistPath string
		tags          map[string][]string
		logger        *log.Logger
	}

	// ServerOption configures a Server.
	ServerOption func(*serverOptions)

	serverOptions struct {
		blacklistPath string
		logger        *log.Logger
	}
)

// WithBlacklistFile persists the blacklist to path on every change.
func WithBlacklistFile(path string) ServerOption {
	return func(o *serverOptions) { o.blacklistPath = path }
}

// WithServerLogger sets the logger used for non-fatal diagnostics.
func WithServerLogger(l *log.Logger) ServerOption {
	return func(o *serverOptions) { o.logger = l }
}

// NewServer creates an empty server. name is used in log output.
func NewServer[T Item](name string, opts ...ServerOption) *Server[T] {
	o := serverOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.Default().WithPrefix("registry")
	}
	return &Server[T]{
		name:          name,
		blacklistPath: o.blacklistPath,
		tags:          make(map[string][]string),
		logger:        o.logger,
	}
}

// Name returns the server name.
func (s *Server[T]) Name() string { return s.name }

// ResourceByContentHash returns the item with the given hash.
func (s *Server[T]) ResourceByContentHash(hash []byte) T {
	var zero T
	if len(hash) == 0 {
		return zero
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.items {
		if bytes.Equal(it.ContentHash(), hash) {
			return it
		}
	}
	return zero
}

// ResourceByFilename returns the item whose file basename equals name, either
// with or without its extension.
func (s *Server[T]) ResourceByFilename(name string) T {
	var zero T
	if name == "" {
		return zero
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.items {
		base := filepath.Base(it.Filename())
		if base == name || strings.TrimSuffix(base, filepath.Ext(base)) == name {
			return it
		}
	}
	return zero
}

// AddResource indexes r. With front it is inserted before existing items;
// with save it is persisted when it implements Saver. It returns false for a
// nil item, an item without a hash, or a duplicate hash.
func (s *Server[T]) AddResource(r T, save, front bool) bool {
	if isNil(r) || len(r.ContentHash()) == 0 {
		return false
	}
	if save {
		if sv, ok := any(r).(Saver); ok {
			if err := sv.Save(); err != nil {
				s.logger.Warn("could not save resource", "server", s.name, "file", r.Filename(), "err", err)
				return false
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		if bytes.Equal(it.ContentHash(), r.ContentHash()) {
			return false
		}
	}
	if front {
		s.items = slices.Insert(s.items, 0, r)
	} else {
		s.items = append(s.items, r)
	}
	return true
}

// RemoveResource drops r from the index. It reports whether r was indexed.
func (s *Server[T]) RemoveResource(r T) bool {
	if isNil(r) {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.items, func(it T) bool { return bytes.Equal(it.ContentHash(), r.ContentHash()) })
	if i < 0 {
		return false
	}
	s.items = slices.Delete(s.items, i, i+1)
	return true
}

// Resources returns a snapshot of the indexed items.
func (s *Server[T]) Resources() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

// BlacklistedFiles returns the blacklisted file paths.
func (s *Server[T]) BlacklistedFiles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.blacklist)
}

// IsBlacklisted reports whether filename is blacklisted.
func (s *Server[T]) IsBlacklisted(filename string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.blacklist, filename)
}

// RemoveFromBlacklist un-blacklists the file of r. It returns false if the
// file was not blacklisted.
func (s *Server[T]) RemoveFromBlacklist(r T) bool {
	if isNil(r) {
		return false
	}
	s.mu.Lock()
	i := slices.Index(s.blacklist, r.Filename())
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.blacklist = slices.Delete(s.blacklist, i, i+1)
	s.mu.Unlock()

	s.persistBlacklist()
	return true
}

// AddToBlacklist blacklists the file of r without touching the index.
// It returns false if the file was already blacklisted.
func (s *Server[T]) AddToBlacklist(r T) bool {
	if isNil(r) {
		return false
	}
	s.mu.Lock()
	if slices.Contains(s.blacklist, r.Filename()) {
		s.mu.Unlock()
		return false
	}
	s.blacklist = append(s.blacklist, r.Filename())
	s.mu.Unlock()

	s.persistBlacklist()
	return true
}

// TagResource attaches tags to the file in the server's tag index.
func (s *Server[T]) TagResource(filename string, tags ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.tags[filename]
	for _, t := range tags {
		if t != "" && !slices.Contains(cur, t) {
			cur = append(cur, t)
		}
	}
	s.tags[filename] = cur
}

// Tags returns the tags attached to filename.
func (s *Server[T]) Tags(filename string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.tags[filename])
}

func (s *Server[T]) persistBlacklist() {
	if s.blacklistPath == "" {
		return
	}
	if err := s.SaveBlacklist(); err != nil {
		s.logger.Warn("could not save blacklist", "server", s.name, "path", s.blacklistPath, "err", err)
	}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
