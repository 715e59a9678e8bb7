// SPDX-License-Identifier: MPL-2.0

// Package meta implements the bundle metadata document (meta.xml).
//
// The document is a schema-less, ordered list of key/value pairs. A key may
// carry several values; the "tag" key holds the bundle's user-visible tags.
package meta

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"
)

// Well-known keys.
const (
	KeyName        = "name"
	KeyAuthor      = "author"
	KeyEmail       = "email"
	KeyLicense     = "license"
	KeyWebsite     = "website"
	KeyDescription = "description"
	KeyCreated     = "created"
	KeyUpdated     = "updated"
	KeyFilename    = "filename"
	KeyPackName    = "packName"
	KeyTag         = "tag"
)

// ErrMalformedMeta is returned when meta.xml cannot be decoded.
var ErrMalformedMeta = errors.New("malformed metadata document")

type (
	// Entry is a single key/value pair.
	Entry struct {
		Key   string
		Value string
	}

	// Metadata is the ordered key/value store of a bundle.
	// The zero value is an empty document ready for use.
	Metadata struct {
		entries []Entry
	}

	xmlDoc struct {
		XMLName xml.Name `xml:"meta"`
		Tags    []xmlTag `xml:"tag"`
	}

	xmlTag struct {
		Type  *string `xml:"type,attr"`
		Value string  `xml:"value,attr"`
	}
)

// New returns an empty metadata document.
func New() *Metadata {
	return &Metadata{}
}

// AddTag appends value under key. An identical key/value pair is not added twice.
func (m *Metadata) AddTag(key, value string) {
	if slices.Contains(m.entries, Entry{Key: key, Value: value}) {
		return
	}
	m.entries = append(m.entries, Entry{Key: key, Value: value})
}

// AddTags adds each value under the "tag" key.
func (m *Metadata) AddTags(values []string) {
	for _, v := range values {
		m.AddTag(KeyTag, v)
	}
}

// Set replaces every value of key with value.
// The new entry takes the position of the first existing one.
func (m *Metadata) Set(key, value string) {
	idx := -1
	out := m.entries[:0]
	for _, e := range m.entries {
		if e.Key != key {
			out = append(out, e)
			continue
		}
		if idx < 0 {
			idx = len(out)
			out = append(out, Entry{Key: key, Value: value})
		}
	}
	m.entries = out
	if idx < 0 {
		m.entries = append(m.entries, Entry{Key: key, Value: value})
	}
}

// Value returns the first value stored under key, or "".
func (m *Metadata) Value(key string) string {
	for _, e := range m.entries {
		if e.Key == key {
			return e.Value
		}
	}
	return ""
}

// Values returns every value stored under key in document order.
func (m *Metadata) Values(key string) []string {
	var out []string
	for _, e := range m.entries {
		if e.Key == key {
			out = append(out, e.Value)
		}
	}
	return out
}

// RemoveFirstTag removes the first entry matching key and value.
// It reports whether an entry was removed.
func (m *Metadata) RemoveFirstTag(key, value string) bool {
	i := slices.Index(m.entries, Entry{Key: key, Value: value})
	if i < 0 {
		return false
	}
	m.entries = slices.Delete(m.entries, i, i+1)
	return true
}

// TagsList returns the values stored under the "tag" key.
func (m *Metadata) TagsList() []string {
	return m.Values(KeyTag)
}

// Len returns the number of entries.
func (m *Metadata) Len() int { return len(m.entries) }

// CheckSort orders entries by key. Values keep their relative order within a key.
// Call before every Encode so the written document is deterministic.
func (m *Metadata) CheckSort() {
	sort.SliceStable(m.entries, func(i, j int) bool {
		return m.entries[i].Key < m.entries[j].Key
	})
}

// Encode writes the document as XML.
func (m *Metadata) Encode(w io.Writer) error {
	doc := xmlDoc{Tags: make([]xmlTag, 0, len(m.entries))}
	for _, e := range m.entries {
		key := e.Key
		doc.Tags = append(doc.Tags, xmlTag{Type: &key, Value: e.Value})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// Bytes returns the XML encoding of the document.
func (m *Metadata) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := m.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads a metadata document from r.
func Decode(r io.Reader) (*Metadata, error) {
	var doc xmlDoc
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedMeta, err)
	}

	m := New()
	for i, t := range doc.Tags {
		if t.Type == nil {
			return nil, fmt.Errorf("%w: tag %d has no type attribute", ErrMalformedMeta, i)
		}
		m.entries = append(m.entries, Entry{Key: *t.Type, Value: t.Value})
	}
	return m, nil
}
