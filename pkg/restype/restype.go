// SPDX-License-Identifier: MPL-2.0

// Package restype enumerates the resource kinds a bundle can carry.
//
// Each kind is identified by the type id stored in a bundle manifest
// (e.g. "ko_gradients") and maps to the directory used both inside the
// archive and under the user's resource root (e.g. "gradients").
package restype

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

const (
	// Gradients are .ggr/.svg gradient definitions.
	Gradients Type = "ko_gradients"
	// Patterns are fill patterns.
	Patterns Type = "ko_patterns"
	// Brushes are brush tips.
	Brushes Type = "kis_brushes"
	// Palettes are color sets.
	Palettes Type = "ko_palettes"
	// Workspaces are saved window layouts.
	Workspaces Type = "kis_workspaces"
	// PaintOpPresets are brush presets.
	PaintOpPresets Type = "kis_paintoppresets"
)

// ErrUnknownType is the sentinel error wrapped by UnknownTypeError.
var ErrUnknownType = errors.New("unknown resource type")

type (
	// Type is a manifest resource type id.
	Type string

	// UnknownTypeError is returned when a type id is not recognized.
	// It wraps ErrUnknownType for errors.Is() compatibility.
	UnknownTypeError struct {
		Value string
	}

	// Kind describes how a resource type is stored.
	Kind struct {
		// Type is the manifest type id.
		Type Type
		// Dir is the archive subdirectory and the resource-root subdirectory.
		Dir string
		// Label is the human readable group name.
		Label string
		// Patterns are doublestar globs matching files of this kind,
		// relative to the kind's directory.
		Patterns []string
	}
)

// kinds is ordered the way groups are presented to the user.
var kinds = []Kind{
	{Type: Brushes, Dir: "brushes", Label: "Brushes", Patterns: []string{"**/*.gbr", "**/*.gih", "**/*.abr", "**/*.png", "**/*.svg"}},
	{Type: PaintOpPresets, Dir: "paintoppresets", Label: "Brush Presets", Patterns: []string{"**/*.kpp"}},
	{Type: Gradients, Dir: "gradients", Label: "Gradients", Patterns: []string{"**/*.ggr", "**/*.svg", "**/*.kgr"}},
	{Type: Palettes, Dir: "palettes", Label: "Palettes", Patterns: []string{"**/*.gpl", "**/*.pal", "**/*.act", "**/*.aco", "**/*.colors", "**/*.kpl", "**/*.xml", "**/*.sbz"}},
	{Type: Patterns, Dir: "patterns", Label: "Patterns", Patterns: []string{"**/*.pat", "**/*.jpg", "**/*.gif", "**/*.png", "**/*.tif", "**/*.xpm", "**/*.bmp"}},
	{Type: Workspaces, Dir: "workspaces", Label: "Workspaces", Patterns: []string{"**/*.kws"}},
}

// Error implements the error interface for UnknownTypeError.
func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown resource type %q", e.Value)
}

// Unwrap returns ErrUnknownType for errors.Is() compatibility.
func (e *UnknownTypeError) Unwrap() error { return ErrUnknownType }

// String returns the string representation of the Type.
func (t Type) String() string { return string(t) }

// Validate returns nil if the Type is a known resource type.
func (t Type) Validate() error {
	if _, ok := lookup(t); !ok {
		return &UnknownTypeError{Value: string(t)}
	}
	return nil
}

// Kind returns the storage description for the type.
func (t Type) Kind() (Kind, error) {
	k, ok := lookup(t)
	if !ok {
		return Kind{}, &UnknownTypeError{Value: string(t)}
	}
	return k, nil
}

// Dir returns the archive directory of the type, or "" if the type is unknown.
func (t Type) Dir() string {
	k, _ := lookup(t)
	return k.Dir
}

// Label returns the display label of the type, or the raw id if the type is unknown.
func (t Type) Label() string {
	if k, ok := lookup(t); ok {
		return k.Label
	}
	return string(t)
}

// All returns every known kind in presentation order.
func All() []Kind {
	out := make([]Kind, len(kinds))
	copy(out, kinds)
	return out
}

// Types returns every known type id in presentation order.
func Types() []Type {
	out := make([]Type, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, k.Type)
	}
	return out
}

// EntryPath returns the canonical archive entry for a resource file of type t:
// "<dir>/<basename>".
func EntryPath(t Type, filename string) (string, error) {
	k, err := t.Kind()
	if err != nil {
		return "", err
	}
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		return "", fmt.Errorf("invalid resource filename %q", filename)
	}
	return k.Dir + "/" + base, nil
}

func lookup(t Type) (Kind, bool) {
	for _, k := range kinds {
		if k.Type == t {
			return k, true
		}
	}
	return Kind{}, false
}
