// SPDX-License-Identifier: MPL-2.0

// Package cueutil decodes CUE documents against an embedded schema.
//
// Config files and bundle recipes share the same flow: compile the schema,
// unify the user document with one schema definition, then validate and
// decode into a Go struct. Errors carry the file name and a JSON-style path
// to the offending field (e.g. "resources[1].type").
//
//	//go:embed recipe_schema.cue
//	var schema []byte
//
//	res, err := cueutil.ParseAndDecode[Recipe](schema, data, "#Recipe",
//	    cueutil.WithFilename("recipe.cue"))
package cueutil
