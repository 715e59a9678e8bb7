// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"encoding/hex"
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"github.com/respack/respack/pkg/restype"
)

// ErrMalformedManifest is returned when manifest.xml cannot be decoded.
var ErrMalformedManifest = errors.New("malformed manifest")

type (
	xmlManifest struct {
		XMLName   xml.Name   `xml:"manifest"`
		Installed *bool      `xml:"installed,attr"`
		Groups    []xmlGroup `xml:"group"`
	}

	xmlGroup struct {
		Type  string    `xml:"type,attr"`
		Files []xmlFile `xml:"file"`
	}

	xmlFile struct {
		Path   string   `xml:"path,attr"`
		MD5Sum string   `xml:"md5sum,attr,omitempty"`
		Tags   []string `xml:"tag"`
	}
)

// Encode writes the manifest as XML with the given installed flag.
func (m *Manifest) Encode(w io.Writer, installed bool) error {
	doc := xmlManifest{Installed: &installed}
	for _, g := range m.groups {
		if len(g.refs) == 0 {
			continue
		}
		xg := xmlGroup{Type: string(g.typ)}
		for _, r := range g.refs {
			xg.Files = append(xg.Files, xmlFile{
				Path:   r.Path,
				MD5Sum: hex.EncodeToString(r.Hash),
				Tags:   r.Tags,
			})
		}
		doc.Groups = append(doc.Groups, xg)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// Decode reads a manifest document and returns it with its installed flag.
func Decode(r io.Reader) (m *Manifest, installed bool, err error) {
	var doc xmlManifest
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrMalformedManifest, err)
	}
	if doc.Installed == nil {
		return nil, false, fmt.Errorf("%w: missing installed attribute", ErrMalformedManifest)
	}

	m = New()
	for gi, g := range doc.Groups {
		if g.Type == "" {
			return nil, false, fmt.Errorf("%w: group %d has no type attribute", ErrMalformedManifest, gi)
		}
		t := restype.Type(g.Type)
		if err := t.Validate(); err != nil {
			return nil, false, fmt.Errorf("%w: %w", ErrMalformedManifest, err)
		}
		for fi, f := range g.Files {
			if f.Path == "" {
				return nil, false, fmt.Errorf("%w: %s file %d has no path attribute", ErrMalformedManifest, g.Type, fi)
			}
			var hash []byte
			if f.MD5Sum != "" {
				hash, err = hex.DecodeString(f.MD5Sum)
				if err != nil {
					return nil, false, fmt.Errorf("%w: %s: invalid md5sum: %w", ErrMalformedManifest, f.Path, err)
				}
			}
			m.AddResource(t, f.Path, f.Tags, hash)
		}
	}
	return m, *doc.Installed, nil
}
