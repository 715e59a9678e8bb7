// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// ParseResult holds a decoded document.
type ParseResult[T any] struct {
	Value *T
	// Unified is the schema-unified CUE value.
	Unified cue.Value
}

// ParseAndDecode unifies data with the schema definition at schemaPath
// (e.g. "#Recipe"), validates the result and decodes it into T. T may be a
// struct or map[string]any. Errors in data are formatted by FormatError;
// errors in the schema itself are reported as internal errors.
func ParseAndDecode[T any](schema, data []byte, schemaPath string, opts ...Option) (*ParseResult[T], error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.filename == "" {
		o.filename = "<input>"
	}

	unified, err := unify(schema, data, schemaPath, o)
	if err != nil {
		return nil, err
	}

	var v T
	if err := unified.Decode(&v); err != nil {
		return nil, FormatError(err, o.filename)
	}
	return &ParseResult[T]{Value: &v, Unified: unified}, nil
}

// ParseAndDecodeString is ParseAndDecode for a schema embedded as a string.
func ParseAndDecodeString[T any](schema string, data []byte, schemaPath string, opts ...Option) (*ParseResult[T], error) {
	return ParseAndDecode[T]([]byte(schema), data, schemaPath, opts...)
}

func unify(schema, data []byte, schemaPath string, o parseOptions) (cue.Value, error) {
	if err := CheckFileSize(data, o.maxFileSize, o.filename); err != nil {
		return cue.Value{}, err
	}

	ctx := cuecontext.New()
	def := ctx.CompileBytes(schema).LookupPath(cue.ParsePath(schemaPath))
	if err := def.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("internal error: schema definition %s: %w", schemaPath, err)
	}

	doc := ctx.CompileBytes(data, cue.Filename(o.filename))
	if err := doc.Err(); err != nil {
		return cue.Value{}, FormatError(err, o.filename)
	}

	unified := def.Unify(doc)
	if err := unified.Validate(cue.Concrete(o.concrete)); err != nil {
		return cue.Value{}, FormatError(err, o.filename)
	}
	return unified, nil
}
