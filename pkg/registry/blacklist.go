// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/pelletier/go-toml/v2"
)

// blacklistFile is the on-disk shape of a blacklist.
type blacklistFile struct {
	Server string   `toml:"server"`
	Files  []string `toml:"files"`
}

// LoadBlacklist replaces the in-memory blacklist with the one stored in the
// server's blacklist file. A missing file yields an empty blacklist.
func (s *Server[T]) LoadBlacklist() error {
	if s.blacklistPath == "" {
		return nil
	}
	data, err := os.ReadFile(s.blacklistPath)
	if err != nil {
		if os.IsNotExist(err) {
			s.mu.Lock()
			s.blacklist = nil
			s.mu.Unlock()
			return nil
		}
		return fmt.Errorf("failed to read blacklist: %w", err)
	}

	var f blacklistFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse blacklist %s: %w", s.blacklistPath, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blacklist = s.blacklist[:0]
	for _, name := range f.Files {
		if name != "" && !slices.Contains(s.blacklist, name) {
			s.blacklist = append(s.blacklist, name)
		}
	}
	return nil
}

// SaveBlacklist writes the blacklist to the server's blacklist file atomically.
func (s *Server[T]) SaveBlacklist() error {
	if s.blacklistPath == "" {
		return nil
	}

	s.mu.RLock()
	f := blacklistFile{Server: s.name, Files: slices.Clone(s.blacklist)}
	s.mu.RUnlock()
	if f.Files == nil {
		f.Files = []string{}
	}

	data, err := toml.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to encode blacklist: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.blacklistPath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Write atomically using temp file + rename
	tmpPath := s.blacklistPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write blacklist: %w", err)
	}
	if err := os.Rename(tmpPath, s.blacklistPath); err != nil {
		_ = os.Remove(tmpPath) // Best-effort cleanup of temp file
		return fmt.Errorf("failed to rename blacklist: %w", err)
	}
	return nil
}
