// SPDX-License-Identifier: MPL-2.0

package restype

import (
	"errors"
	"testing"
)

func TestTypeKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		typ   Type
		dir   string
		label string
	}{
		{Gradients, "gradients", "Gradients"},
		{Patterns, "patterns", "Patterns"},
		{Brushes, "brushes", "Brushes"},
		{Palettes, "palettes", "Palettes"},
		{Workspaces, "workspaces", "Workspaces"},
		{PaintOpPresets, "paintoppresets", "Brush Presets"},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			t.Parallel()

			if err := tt.typ.Validate(); err != nil {
				t.Fatalf("Validate() = %v", err)
			}
			if got := tt.typ.Dir(); got != tt.dir {
				t.Errorf("Dir() = %q, want %q", got, tt.dir)
			}
			if got := tt.typ.Label(); got != tt.label {
				t.Errorf("Label() = %q, want %q", got, tt.label)
			}
		})
	}
}

func TestUnknownType(t *testing.T) {
	t.Parallel()

	err := Type("ko_fonts").Validate()
	if !errors.Is(err, ErrUnknownType) {
		t.Fatalf("Validate() = %v, want ErrUnknownType", err)
	}
	if Type("ko_fonts").Dir() != "" {
		t.Error("Dir() of unknown type should be empty")
	}
	if Type("ko_fonts").Label() != "ko_fonts" {
		t.Error("Label() of unknown type should fall back to the id")
	}
}

func TestEntryPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		typ      Type
		filename string
		want     string
		wantErr  bool
	}{
		{"plain basename", Gradients, "foo.ggr", "gradients/foo.ggr", false},
		{"absolute path", Brushes, "/home/a/brushes/tip.gbr", "brushes/tip.gbr", false},
		{"windows path", Palettes, `C:\res\palettes\warm.gpl`, "palettes/warm.gpl", false},
		{"unknown type", Type("nope"), "foo", "", true},
		{"empty filename", Gradients, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := EntryPath(tt.typ, tt.filename)
			if (err != nil) != tt.wantErr {
				t.Fatalf("EntryPath() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("EntryPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAllIsCopy(t *testing.T) {
	t.Parallel()

	all := All()
	all[0].Dir = "mutated"
	if Brushes.Dir() != "brushes" {
		t.Error("All() must return a copy")
	}
	if len(Types()) != len(all) {
		t.Errorf("Types() len = %d, want %d", len(Types()), len(all))
	}
}
