// SPDX-License-Identifier: MPL-2.0

// Package manifest implements the resource index stored inside a bundle
// (META-INF/manifest.xml).
//
// A manifest groups resource references by resource type. Each reference
// names an archive entry, the content hash of the resource and its tags.
package manifest

import (
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/respack/respack/pkg/restype"
)

type (
	// ResourceReference points at one resource file inside the archive.
	ResourceReference struct {
		// Path is the archive entry, e.g. "gradients/foo.ggr".
		Path string
		// Hash is the content digest of the resource file.
		Hash []byte
		// Tags is an ordered set of tags attached to the resource.
		Tags []string
	}

	group struct {
		typ  restype.Type
		refs []ResourceReference
	}

	// Manifest is the ordered set of typed references of one bundle.
	// The zero value is an empty manifest ready for use.
	Manifest struct {
		groups []*group
	}

	// TagExporter receives resource tags when a bundle is installed.
	TagExporter interface {
		TagResource(t restype.Type, filename string, tags ...string)
	}
)

// New returns an empty manifest.
func New() *Manifest {
	return &Manifest{}
}

// Basename returns the last path element of the reference.
func (r ResourceReference) Basename() string {
	return path.Base(r.Path)
}

// AddResource appends a reference to the group for t, creating the group if needed.
// A reference with the same path in that group is replaced in place.
func (m *Manifest) AddResource(t restype.Type, resourcePath string, tags []string, hash []byte) {
	ref := ResourceReference{
		Path: resourcePath,
		Hash: slices.Clone(hash),
		Tags: dedup(tags),
	}

	g := m.group(t)
	if g == nil {
		g = &group{typ: t}
		m.groups = append(m.groups, g)
	}
	for i := range g.refs {
		if g.refs[i].Path == resourcePath {
			g.refs[i] = ref
			return
		}
	}
	g.refs = append(g.refs, ref)
}

// RemoveFile removes the reference with the given path from whichever group
// holds it and returns the tags no remaining reference carries.
// It returns nil when the path is not in the manifest.
func (m *Manifest) RemoveFile(resourcePath string) []string {
	var removed *ResourceReference
	for gi, g := range m.groups {
		i := slices.IndexFunc(g.refs, func(r ResourceReference) bool { return r.Path == resourcePath })
		if i < 0 {
			continue
		}
		ref := g.refs[i]
		removed = &ref
		g.refs = slices.Delete(g.refs, i, i+1)
		if len(g.refs) == 0 {
			m.groups = slices.Delete(m.groups, gi, gi+1)
		}
		break
	}
	if removed == nil {
		return nil
	}

	var orphaned []string
	for _, tag := range removed.Tags {
		if !m.hasTag(tag) {
			orphaned = append(orphaned, tag)
		}
	}
	return orphaned
}

// Rename rewrites the bundle-name segment of every reference stored as
// "<dir>/<bundle>/<basename>". References without such a segment are untouched.
func (m *Manifest) Rename(newShortName string) {
	for _, g := range m.groups {
		for i := range g.refs {
			parts := strings.Split(g.refs[i].Path, "/")
			if len(parts) < 3 {
				continue
			}
			g.refs[i].Path = parts[0] + "/" + newShortName + "/" + parts[len(parts)-1]
		}
	}
}

// SetPath changes the archive path of the reference currently stored at oldPath.
func (m *Manifest) SetPath(t restype.Type, oldPath, newPath string) {
	g := m.group(t)
	if g == nil {
		return
	}
	for i := range g.refs {
		if g.refs[i].Path == oldPath {
			g.refs[i].Path = newPath
			return
		}
	}
}

// FilesToExtract maps every archive path to its install target
// "<root>/<dir>/<bundleName>/<basename>".
func (m *Manifest) FilesToExtract(root, bundleName string) map[string]string {
	out := make(map[string]string)
	for _, g := range m.groups {
		dir := g.typ.Dir()
		for _, r := range g.refs {
			out[r.Path] = filepath.Join(root, dir, bundleName, r.Basename())
		}
	}
	return out
}

// DirList returns the distinct resource directories referenced, in group order.
func (m *Manifest) DirList() []string {
	var dirs []string
	for _, g := range m.groups {
		if len(g.refs) == 0 {
			continue
		}
		d := g.typ.Dir()
		if d != "" && !slices.Contains(dirs, d) {
			dirs = append(dirs, d)
		}
	}
	return dirs
}

// Types returns the resource types with at least one reference, in group order.
func (m *Manifest) Types() []restype.Type {
	out := make([]restype.Type, 0, len(m.groups))
	for _, g := range m.groups {
		if len(g.refs) > 0 {
			out = append(out, g.typ)
		}
	}
	return out
}

// Files returns a copy of the references of type t.
func (m *Manifest) Files(t restype.Type) []ResourceReference {
	g := m.group(t)
	if g == nil {
		return nil
	}
	return cloneRefs(g.refs)
}

// All returns a copy of every reference in group order.
func (m *Manifest) All() []ResourceReference {
	var out []ResourceReference
	for _, g := range m.groups {
		out = append(out, cloneRefs(g.refs)...)
	}
	return out
}

// Len returns the number of references.
func (m *Manifest) Len() int {
	n := 0
	for _, g := range m.groups {
		n += len(g.refs)
	}
	return n
}

// ExportTags pushes the tags of every reference to the exporter, keyed by the
// file path the reference is installed to.
func (m *Manifest) ExportTags(exporter TagExporter, root, bundleName string) {
	for _, g := range m.groups {
		dir := g.typ.Dir()
		for _, r := range g.refs {
			if len(r.Tags) == 0 {
				continue
			}
			exporter.TagResource(g.typ, filepath.Join(root, dir, bundleName, r.Basename()), r.Tags...)
		}
	}
}

func (m *Manifest) group(t restype.Type) *group {
	for _, g := range m.groups {
		if g.typ == t {
			return g
		}
	}
	return nil
}

func (m *Manifest) hasTag(tag string) bool {
	for _, g := range m.groups {
		for _, r := range g.refs {
			if slices.Contains(r.Tags, tag) {
				return true
			}
		}
	}
	return false
}

func cloneRefs(refs []ResourceReference) []ResourceReference {
	out := make([]ResourceReference, len(refs))
	for i, r := range refs {
		out[i] = ResourceReference{
			Path: r.Path,
			Hash: slices.Clone(r.Hash),
			Tags: slices.Clone(r.Tags),
		}
	}
	return out
}

func dedup(tags []string) []string {
	var out []string
	for _, t := range tags {
		if t != "" && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}
