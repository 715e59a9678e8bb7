// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"strings"
	"testing"
)

const testSchema = `
#Item: {
	type: "gradient" | "pattern"
	file: string & !=""
	tags?: [...string]
}

#Doc: {
	name:         string
	description?: string
	items: [...#Item]
}

#Settings: {
	root?:    string
	verbose?: bool
}
`

type (
	testItem struct {
		Type string   `json:"type"`
		File string   `json:"file"`
		Tags []string `json:"tags,omitempty"`
	}

	testDoc struct {
		Name        string     `json:"name"`
		Description string     `json:"description,omitempty"`
		Items       []testItem `json:"items"`
	}

	testSettings struct {
		Root    string `json:"root,omitempty"`
		Verbose bool   `json:"verbose,omitempty"`
	}
)

func TestParseAndDecode(t *testing.T) {
	t.Parallel()

	t.Run("valid document", func(t *testing.T) {
		t.Parallel()

		data := []byte(`
name: "warm"
items: [
	{type: "gradient", file: "a.ggr", tags: ["sunset"]},
	{type: "pattern", file: "b.pat"},
]
`)
		res, err := ParseAndDecode[testDoc]([]byte(testSchema), data, "#Doc")
		if err != nil {
			t.Fatalf("ParseAndDecode() failed: %v", err)
		}
		if res.Value.Name != "warm" || len(res.Value.Items) != 2 {
			t.Errorf("decoded = %+v", res.Value)
		}
		if res.Value.Items[0].Tags[0] != "sunset" {
			t.Errorf("tags = %v", res.Value.Items[0].Tags)
		}
		if res.Unified.Err() != nil {
			t.Errorf("unified value has error: %v", res.Unified.Err())
		}
	})

	t.Run("enum violation names the field", func(t *testing.T) {
		t.Parallel()

		data := []byte(`
name: "warm"
items: [{type: "font", file: "a.ttf"}]
`)
		_, err := ParseAndDecode[testDoc]([]byte(testSchema), data, "#Doc", WithFilename("doc.cue"))
		if err == nil {
			t.Fatal("expected error for invalid type")
		}
		if !strings.Contains(err.Error(), "doc.cue") || !strings.Contains(err.Error(), "items[0].type") {
			t.Errorf("error should name file and path, got: %v", err)
		}
	})

	t.Run("missing required field", func(t *testing.T) {
		t.Parallel()

		_, err := ParseAndDecode[testDoc]([]byte(testSchema), []byte(`items: []`), "#Doc")
		if err == nil {
			t.Error("expected error for missing name")
		}
	})

	t.Run("syntax error", func(t *testing.T) {
		t.Parallel()

		_, err := ParseAndDecode[testDoc]([]byte(testSchema), []byte(`name: "x`), "#Doc", WithFilename("bad.cue"))
		if err == nil || !strings.Contains(err.Error(), "bad.cue") {
			t.Errorf("expected syntax error naming bad.cue, got %v", err)
		}
	})

	t.Run("optional fields with WithConcrete(false)", func(t *testing.T) {
		t.Parallel()

		res, err := ParseAndDecode[testSettings]([]byte(testSchema), []byte(`{}`), "#Settings", WithConcrete(false))
		if err != nil {
			t.Fatalf("ParseAndDecode() failed: %v", err)
		}
		if res.Value.Root != "" || res.Value.Verbose {
			t.Errorf("expected zero settings, got %+v", res.Value)
		}
	})

	t.Run("unknown definition", func(t *testing.T) {
		t.Parallel()

		_, err := ParseAndDecode[testDoc]([]byte(testSchema), []byte(`name: "x"`), "#Missing")
		if err == nil || !strings.Contains(err.Error(), "#Missing") {
			t.Errorf("expected schema lookup error, got %v", err)
		}
	})
}

func TestFileSizeLimit(t *testing.T) {
	t.Parallel()

	data := []byte(strings.Repeat("a", 200))
	_, err := ParseAndDecode[testDoc]([]byte(testSchema), data, "#Doc", WithMaxFileSize(100))
	if err == nil || !strings.Contains(err.Error(), "exceeds maximum") {
		t.Errorf("expected size limit error, got %v", err)
	}
}

func TestParseAndDecodeString(t *testing.T) {
	t.Parallel()

	res, err := ParseAndDecodeString[testSettings](testSchema, []byte(`verbose: true`), "#Settings")
	if err != nil {
		t.Fatalf("ParseAndDecodeString() failed: %v", err)
	}
	if !res.Value.Verbose {
		t.Error("expected verbose=true")
	}
}

func TestParseAndDecodeIntoMap(t *testing.T) {
	t.Parallel()

	res, err := ParseAndDecodeString[map[string]any](testSchema, []byte(`root: "/srv/res"`), "#Settings",
		WithConcrete(false), WithFilename("config.cue"))
	if err != nil {
		t.Fatalf("ParseAndDecodeString() failed: %v", err)
	}
	m := *res.Value
	if m["root"] != "/srv/res" {
		t.Errorf("root = %v", m["root"])
	}
	if _, ok := m["verbose"]; ok {
		t.Error("unset optional fields should be absent")
	}

	_, err = ParseAndDecodeString[map[string]any](testSchema, []byte(`verbose: "yes"`), "#Settings",
		WithConcrete(false), WithFilename("config.cue"))
	if err == nil || !strings.Contains(err.Error(), "config.cue") {
		t.Errorf("expected error naming config.cue, got %v", err)
	}
}
