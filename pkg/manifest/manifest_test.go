// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"bytes"
	"errors"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"testing"

	"github.com/respack/respack/pkg/restype"
)

type recordingExporter struct {
	calls map[string][]string
}

func (r *recordingExporter) TagResource(_ restype.Type, filename string, tags ...string) {
	if r.calls == nil {
		r.calls = make(map[string][]string)
	}
	r.calls[filename] = append(r.calls[filename], tags...)
}

func sampleManifest() *Manifest {
	m := New()
	m.AddResource(restype.Gradients, "gradients/foo.ggr", []string{"warm"}, []byte{0x01, 0x02})
	m.AddResource(restype.Gradients, "gradients/bar.ggr", []string{"warm", "cold"}, []byte{0x03})
	m.AddResource(restype.Brushes, "brushes/tip.gbr", []string{"ink"}, nil)
	return m
}

func TestAddResource(t *testing.T) {
	t.Parallel()

	m := sampleManifest()
	if m.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", m.Len())
	}
	if got := m.Types(); !slices.Equal(got, []restype.Type{restype.Gradients, restype.Brushes}) {
		t.Errorf("Types() = %v", got)
	}

	// Same path in the same group replaces.
	m.AddResource(restype.Gradients, "gradients/foo.ggr", []string{"hot", "hot"}, []byte{0x09})
	files := m.Files(restype.Gradients)
	if len(files) != 2 {
		t.Fatalf("Files() len = %d, want 2", len(files))
	}
	if !slices.Equal(files[0].Tags, []string{"hot"}) || !bytes.Equal(files[0].Hash, []byte{0x09}) {
		t.Errorf("replaced reference = %+v", files[0])
	}
}

func TestFilesReturnsCopy(t *testing.T) {
	t.Parallel()

	m := sampleManifest()
	files := m.Files(restype.Gradients)
	files[0].Tags[0] = "mutated"
	files[0].Hash[0] = 0xff

	again := m.Files(restype.Gradients)
	if again[0].Tags[0] != "warm" || again[0].Hash[0] != 0x01 {
		t.Error("Files() must not expose internal state")
	}
}

func TestRemoveFile(t *testing.T) {
	t.Parallel()

	t.Run("returns only orphaned tags", func(t *testing.T) {
		t.Parallel()

		m := sampleManifest()
		orphaned := m.RemoveFile("gradients/bar.ggr")
		if !slices.Equal(orphaned, []string{"cold"}) {
			t.Errorf("RemoveFile() = %v, want [cold]", orphaned)
		}
		if m.Len() != 2 {
			t.Errorf("Len() = %d, want 2", m.Len())
		}
	})

	t.Run("drops empty group", func(t *testing.T) {
		t.Parallel()

		m := sampleManifest()
		orphaned := m.RemoveFile("brushes/tip.gbr")
		if !slices.Equal(orphaned, []string{"ink"}) {
			t.Errorf("RemoveFile() = %v, want [ink]", orphaned)
		}
		if slices.Contains(m.Types(), restype.Brushes) {
			t.Error("empty brushes group should be dropped")
		}
		if slices.Contains(m.DirList(), "brushes") {
			t.Error("DirList() should not include removed type")
		}
	})

	t.Run("unknown path is a no-op", func(t *testing.T) {
		t.Parallel()

		m := sampleManifest()
		if got := m.RemoveFile("gradients/missing.ggr"); got != nil {
			t.Errorf("RemoveFile() = %v, want nil", got)
		}
		if m.Len() != 3 {
			t.Errorf("Len() = %d, want 3", m.Len())
		}
	})
}

func TestRename(t *testing.T) {
	t.Parallel()

	m := New()
	m.AddResource(restype.Gradients, "gradients/oldpack/foo.ggr", nil, nil)
	m.AddResource(restype.Brushes, "brushes/tip.gbr", nil, nil)

	m.Rename("newpack")

	if got := m.Files(restype.Gradients)[0].Path; got != "gradients/newpack/foo.ggr" {
		t.Errorf("renamed path = %q", got)
	}
	if got := m.Files(restype.Brushes)[0].Path; got != "brushes/tip.gbr" {
		t.Errorf("two-segment path changed: %q", got)
	}
}

func TestFilesToExtractAndDirList(t *testing.T) {
	t.Parallel()

	m := sampleManifest()
	root := filepath.Join("res", "root")
	got := m.FilesToExtract(root, "pack")

	want := map[string]string{
		"gradients/foo.ggr": filepath.Join(root, "gradients", "pack", "foo.ggr"),
		"gradients/bar.ggr": filepath.Join(root, "gradients", "pack", "bar.ggr"),
		"brushes/tip.gbr":   filepath.Join(root, "brushes", "pack", "tip.gbr"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FilesToExtract() = %v, want %v", got, want)
	}
	if dirs := m.DirList(); !slices.Equal(dirs, []string{"gradients", "brushes"}) {
		t.Errorf("DirList() = %v", dirs)
	}
}

func TestExportTags(t *testing.T) {
	t.Parallel()

	m := sampleManifest()
	exp := &recordingExporter{}
	m.ExportTags(exp, "/r", "pack")

	target := filepath.Join("/r", "gradients", "pack", "bar.ggr")
	if got := exp.calls[target]; !slices.Equal(got, []string{"warm", "cold"}) {
		t.Errorf("tags for %s = %v", target, got)
	}
	if len(exp.calls) != 3 {
		t.Errorf("exported %d files, want 3", len(exp.calls))
	}
}

func TestXMLRoundTrip(t *testing.T) {
	t.Parallel()

	m := sampleManifest()
	var buf bytes.Buffer
	if err := m.Encode(&buf, true); err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}

	got, installed, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	if !installed {
		t.Error("installed flag not round-tripped")
	}
	if !reflect.DeepEqual(got.All(), m.All()) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got.All(), m.All())
	}
	if !slices.Equal(got.Types(), m.Types()) {
		t.Errorf("group order mismatch: %v vs %v", got.Types(), m.Types())
	}
}

func TestDecodeErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
	}{
		{"malformed", `<manifest installed="true"><group`},
		{"missing installed", `<manifest></manifest>`},
		{"missing group type", `<manifest installed="false"><group><file path="a/b"/></group></manifest>`},
		{"unknown group type", `<manifest installed="false"><group type="ko_fonts"/></manifest>`},
		{"missing file path", `<manifest installed="false"><group type="ko_gradients"><file md5sum="00"/></group></manifest>`},
		{"bad hash", `<manifest installed="false"><group type="ko_gradients"><file path="gradients/a.ggr" md5sum="zz"/></group></manifest>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, _, err := Decode(strings.NewReader(tt.doc))
			if !errors.Is(err, ErrMalformedManifest) {
				t.Errorf("Decode() error = %v, want ErrMalformedManifest", err)
			}
		})
	}
}
