// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

type savingItem struct {
	*Resource
	saved   int
	saveErr error
}

func (s *savingItem) Save() error {
	s.saved++
	return s.saveErr
}

func TestServerAddAndLookup(t *testing.T) {
	t.Parallel()

	s := NewServer[*Resource]("gradients")
	a := NewResource("/r/gradients/warm.ggr", []byte("warm"))
	b := NewResource("/r/gradients/cold.ggr", []byte("cold"))

	if !s.AddResource(a, false, false) {
		t.Fatal("AddResource(a) = false")
	}
	if !s.AddResource(b, false, true) {
		t.Fatal("AddResource(b) = false")
	}
	if s.AddResource(NewResource("/elsewhere/warm.ggr", []byte("warm")), false, false) {
		t.Error("duplicate hash should be rejected")
	}
	if s.AddResource(nil, false, false) {
		t.Error("nil resource should be rejected")
	}

	got := s.Resources()
	if len(got) != 2 || got[0] != b || got[1] != a {
		t.Fatalf("Resources() order wrong: %v", got)
	}
	if s.ResourceByContentHash(ContentHash([]byte("warm"))) != a {
		t.Error("ResourceByContentHash() did not find a")
	}
	if s.ResourceByContentHash(nil) != nil {
		t.Error("ResourceByContentHash(nil) should be nil")
	}
	if s.ResourceByFilename("cold.ggr") != b || s.ResourceByFilename("cold") != b {
		t.Error("ResourceByFilename() did not find b")
	}
	if s.ResourceByFilename("missing") != nil {
		t.Error("ResourceByFilename(missing) should be nil")
	}

	if !s.RemoveResource(a) || s.RemoveResource(a) {
		t.Error("RemoveResource() should succeed exactly once")
	}
}

func TestServerAddResourceSaves(t *testing.T) {
	t.Parallel()

	s := NewServer[*savingItem]("bundles")
	ok := &savingItem{Resource: NewResource("/b/a.bundle", []byte("a"))}
	if !s.AddResource(ok, true, false) || ok.saved != 1 {
		t.Errorf("saved = %d, want 1", ok.saved)
	}

	failing := &savingItem{Resource: NewResource("/b/b.bundle", []byte("b")), saveErr: errors.New("disk full")}
	if s.AddResource(failing, true, false) {
		t.Error("AddResource() should fail when Save fails")
	}
	if len(s.Resources()) != 1 {
		t.Errorf("Resources() len = %d, want 1", len(s.Resources()))
	}
}

func TestServerBlacklist(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "blacklists", "gradients.toml")
	s := NewServer[*Resource]("gradients", WithBlacklistFile(path))
	r := NewResource("/r/gradients/pack/warm.ggr", []byte("warm"))
	s.AddResource(r, false, false)

	s.RemoveResource(r)
	if !s.AddToBlacklist(r) {
		t.Fatal("AddToBlacklist() = false")
	}
	if len(s.Resources()) != 0 {
		t.Error("resource still indexed after blacklisting")
	}
	if !s.IsBlacklisted(r.Filename()) {
		t.Error("file not blacklisted")
	}
	if s.AddToBlacklist(r) {
		t.Error("second blacklist should report false")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("blacklist not persisted: %v", err)
	}
	if !strings.Contains(string(data), r.Filename()) {
		t.Errorf("blacklist file missing entry:\n%s", data)
	}

	reloaded := NewServer[*Resource]("gradients", WithBlacklistFile(path))
	if err := reloaded.LoadBlacklist(); err != nil {
		t.Fatalf("LoadBlacklist() failed: %v", err)
	}
	if !slices.Equal(reloaded.BlacklistedFiles(), []string{r.Filename()}) {
		t.Errorf("reloaded blacklist = %v", reloaded.BlacklistedFiles())
	}

	if !reloaded.RemoveFromBlacklist(r) {
		t.Fatal("RemoveFromBlacklist() = false")
	}
	if reloaded.RemoveFromBlacklist(r) {
		t.Error("second RemoveFromBlacklist() should report false")
	}

	again := NewServer[*Resource]("gradients", WithBlacklistFile(path))
	if err := again.LoadBlacklist(); err != nil {
		t.Fatalf("LoadBlacklist() failed: %v", err)
	}
	if len(again.BlacklistedFiles()) != 0 {
		t.Errorf("blacklist should be empty, got %v", again.BlacklistedFiles())
	}
}

func TestLoadBlacklistMissingFile(t *testing.T) {
	t.Parallel()

	s := NewServer[*Resource]("patterns", WithBlacklistFile(filepath.Join(t.TempDir(), "none.toml")))
	if err := s.LoadBlacklist(); err != nil {
		t.Fatalf("LoadBlacklist() failed: %v", err)
	}
	if len(s.BlacklistedFiles()) != 0 {
		t.Error("expected empty blacklist")
	}
}

func TestLoadBlacklistInvalid(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("files = [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewServer[*Resource]("patterns", WithBlacklistFile(path))
	if err := s.LoadBlacklist(); err == nil {
		t.Error("LoadBlacklist() should fail on invalid TOML")
	}
}

func TestTagResource(t *testing.T) {
	t.Parallel()

	s := NewServer[*Resource]("brushes")
	s.TagResource("/r/brushes/p/tip.gbr", "ink", "", "ink", "soft")
	s.TagResource("/r/brushes/p/tip.gbr", "soft", "dry")

	if got := s.Tags("/r/brushes/p/tip.gbr"); !slices.Equal(got, []string{"ink", "soft", "dry"}) {
		t.Errorf("Tags() = %v", got)
	}
}
