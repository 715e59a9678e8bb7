// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"

	"github.com/respack/respack/pkg/restype"
)

type (
	// Lookup resolves resources of one type.
	Lookup interface {
		ResourceByContentHash(hash []byte) *Resource
		ResourceByFilename(name string) *Resource
	}

	// Provider holds one resource Server per resource type.
	Provider struct {
		servers map[restype.Type]*Server[*Resource]
		logger  *log.Logger
	}
)

// NewProvider creates a provider with an empty server for every known type.
func NewProvider(opts ...ServerOption) *Provider {
	o := serverOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.Default().WithPrefix("registry")
	}

	p := &Provider{
		servers: make(map[restype.Type]*Server[*Resource]),
		logger:  o.logger,
	}
	for _, k := range restype.All() {
		p.servers[k.Type] = NewServer[*Resource](k.Dir, WithServerLogger(o.logger))
	}
	return p
}

// Server returns the server for t, or nil for an unknown type.
func (p *Provider) Server(t restype.Type) *Server[*Resource] {
	return p.servers[t]
}

// Lookup returns the resolver for t, or nil for an unknown type.
func (p *Provider) Lookup(t restype.Type) Lookup {
	s := p.servers[t]
	if s == nil {
		return nil
	}
	return s
}

// TagResource forwards tags to the server for t.
func (p *Provider) TagResource(t restype.Type, filename string, tags ...string) {
	if s := p.servers[t]; s != nil {
		s.TagResource(filename, tags...)
	}
}

// Scan indexes every resource file found under root/<dir> for each type.
// It returns the number of newly indexed resources. A missing type directory
// is skipped.
func (p *Provider) Scan(root string) (int, error) {
	total := 0
	for _, k := range restype.All() {
		n, err := ScanResources(p.servers[k.Type], root, k.Type)
		if err != nil {
			return total, fmt.Errorf("failed to scan %s: %w", k.Dir, err)
		}
		if n > 0 {
			p.logger.Debug("indexed resources", "type", k.Type, "count", n)
		}
		total += n
	}
	return total, nil
}

// ScanResources indexes the files of type t found under root/<dir>.
func ScanResources(s *Server[*Resource], root string, t restype.Type) (int, error) {
	k, err := t.Kind()
	if err != nil {
		return 0, err
	}
	return ScanDir(s, filepath.Join(root, k.Dir), k.Patterns)
}

// ScanDir indexes files under dir matching any of the doublestar patterns.
// Blacklisted and unreadable files are skipped.
func ScanDir(s *Server[*Resource], dir string, patterns []string) (int, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("%s is not a directory", dir)
	}

	fsys := os.DirFS(dir)
	seen := make(map[string]bool)
	added := 0
	for _, pattern := range patterns {
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return added, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if seen[m] {
				continue
			}
			seen[m] = true

			full := filepath.Join(dir, filepath.FromSlash(m))
			if s.IsBlacklisted(full) {
				continue
			}
			res, err := LoadResource(full)
			if err != nil {
				s.logger.Warn("skipping unreadable resource", "file", full, "err", err)
				continue
			}
			if s.AddResource(res, false, false) {
				added++
			}
		}
	}
	return added, nil
}
