// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/respack/respack/internal/issue"
	"github.com/respack/respack/internal/testutil"
)

// Tests here change process environment and must not run in parallel.

func isolate(t *testing.T) (cfgDir, dataHome string) {
	t.Helper()
	tmp := t.TempDir()
	_, dataHome = testutil.SetXDGDirs(t, tmp)
	for _, key := range []string{"RESPACK_RESOURCE_ROOT", "RESPACK_BUNDLES_DIR", "RESPACK_BLACKLIST_FILE", "RESPACK_UI_VERBOSE", "RESPACK_UI_COLOR_SCHEME"} {
		t.Cleanup(testutil.MustUnsetenv(t, key))
	}
	return filepath.Join(tmp, "cfg"), dataHome
}

func TestLoadDefaults(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("default data dir layout is XDG specific")
	}
	cfgDir, dataHome := isolate(t)

	cfg, path, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: cfgDir})
	if err != nil {
		t.Fatalf("loadWithOptions() failed: %v", err)
	}
	if path != "" {
		t.Errorf("resolved path = %q, want empty without a config file", path)
	}

	root := filepath.Join(dataHome, AppName)
	if cfg.ResourceRoot != DirPath(root) {
		t.Errorf("ResourceRoot = %q, want %q", cfg.ResourceRoot, root)
	}
	if cfg.BundlesDir != DirPath(filepath.Join(root, "bundles")) {
		t.Errorf("BundlesDir = %q", cfg.BundlesDir)
	}
	if cfg.BlacklistFile != DirPath(filepath.Join(root, "bundles", "blacklist.toml")) {
		t.Errorf("BlacklistFile = %q", cfg.BlacklistFile)
	}
	if cfg.UI.ColorScheme != ColorSchemeAuto || cfg.UI.Verbose {
		t.Errorf("UI = %+v", cfg.UI)
	}
}

func TestLoadFromFile(t *testing.T) {
	cfgDir, _ := isolate(t)
	root := filepath.Join(t.TempDir(), "res")
	testutil.MustWriteFile(t, filepath.Join(cfgDir, "config.cue"), []byte(`
resource_root: "`+filepath.ToSlash(root)+`"
ui: {
	color_scheme: "dark"
	verbose: true
}
`))

	cfg, path, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: cfgDir})
	if err != nil {
		t.Fatalf("loadWithOptions() failed: %v", err)
	}
	if path != filepath.Join(cfgDir, "config.cue") {
		t.Errorf("resolved path = %q", path)
	}
	if filepath.Clean(string(cfg.ResourceRoot)) != root {
		t.Errorf("ResourceRoot = %q, want %q", cfg.ResourceRoot, root)
	}
	if filepath.Clean(string(cfg.BundlesDir)) != filepath.Join(root, "bundles") {
		t.Errorf("BundlesDir should derive from resource_root, got %q", cfg.BundlesDir)
	}
	if cfg.UI.ColorScheme != ColorSchemeDark || !cfg.UI.Verbose {
		t.Errorf("UI = %+v", cfg.UI)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	cfgDir, _ := isolate(t)
	root := t.TempDir()
	bundles := t.TempDir()
	t.Cleanup(testutil.MustSetenv(t, "RESPACK_RESOURCE_ROOT", root))
	t.Cleanup(testutil.MustSetenv(t, "RESPACK_BUNDLES_DIR", bundles))
	t.Cleanup(testutil.MustSetenv(t, "RESPACK_UI_VERBOSE", "true"))

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: cfgDir})
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.ResourceRoot != DirPath(root) || cfg.BundlesDir != DirPath(bundles) {
		t.Errorf("paths = %q, %q", cfg.ResourceRoot, cfg.BundlesDir)
	}
	if cfg.BlacklistFile != DirPath(filepath.Join(bundles, "blacklist.toml")) {
		t.Errorf("BlacklistFile = %q", cfg.BlacklistFile)
	}
	if !cfg.UI.Verbose {
		t.Error("RESPACK_UI_VERBOSE should enable verbose")
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errPart string
	}{
		{"unknown field", `colour: "red"`, "colour"},
		{"bad color scheme", `ui: {color_scheme: "neon"}`, "color_scheme"},
		{"syntax error", `resource_root: "unterminated`, "config.cue"},
		{"relative path", `resource_root: "relative/dir"`, "absolute"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfgDir, _ := isolate(t)
			testutil.MustWriteFile(t, filepath.Join(cfgDir, "config.cue"), []byte(tt.content))

			_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: cfgDir})
			if err == nil {
				t.Fatal("expected error")
			}
			var ae *issue.ActionableError
			if !errors.As(err, &ae) {
				t.Errorf("error should be actionable, got %T", err)
			}
			if !strings.Contains(err.Error(), tt.errPart) {
				t.Errorf("error %q should mention %q", err, tt.errPart)
			}
		})
	}
}

func TestLoadExplicitFileMissing(t *testing.T) {
	isolate(t)

	_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: filepath.Join(t.TempDir(), "nope.cue")})
	if err == nil || !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("Load() error = %v", err)
	}
}

func TestProviderFunc(t *testing.T) {
	t.Parallel()

	want := DefaultConfig()
	var got LoadOptions
	p := ProviderFunc(func(_ context.Context, opts LoadOptions) (*Config, error) {
		got = opts
		return want, nil
	})

	opts := LoadOptions{ConfigDirPath: "/portable"}
	cfg, err := p.Load(context.Background(), opts)
	if err != nil || cfg != want {
		t.Fatalf("Load() = %v, %v", cfg, err)
	}
	if got != opts {
		t.Errorf("options = %+v, want %+v", got, opts)
	}
}

func TestLoadCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewProvider().Load(ctx, LoadOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}

func TestCreateDefaultConfigRoundTrip(t *testing.T) {
	cfgDir, _ := isolate(t)
	path, err := FilePath(LoadOptions{ConfigDirPath: cfgDir})
	if err != nil {
		t.Fatal(err)
	}

	created, err := CreateDefaultConfig(path)
	if err != nil || !created {
		t.Fatalf("CreateDefaultConfig() = %v, %v", created, err)
	}
	if created, err := CreateDefaultConfig(path); err != nil || created {
		t.Errorf("second CreateDefaultConfig() = %v, %v, want no rewrite", created, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `color_scheme: "auto"`) {
		t.Errorf("generated config:\n%s", data)
	}
	if _, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigFilePath: path}); err != nil {
		t.Errorf("generated config does not load: %v", err)
	}
}

func TestColorScheme(t *testing.T) {
	t.Parallel()

	for _, cs := range []ColorScheme{"", ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight} {
		if valid, errs := cs.IsValid(); !valid {
			t.Errorf("%q should be valid: %v", cs, errs)
		}
	}
	valid, errs := ColorScheme("neon").IsValid()
	if valid || len(errs) != 1 || !errors.Is(errs[0], ErrInvalidColorScheme) {
		t.Errorf("IsValid(neon) = %v, %v", valid, errs)
	}
	if ColorSchemeLight.GlamourStyle() != "light" || ColorScheme("").GlamourStyle() != "auto" {
		t.Error("GlamourStyle() mapping is wrong")
	}
}

func TestConfigIsValid(t *testing.T) {
	t.Parallel()

	cfg := Config{ResourceRoot: "rel", BundlesDir: "also/rel", UI: UIConfig{ColorScheme: "neon"}}
	valid, errs := cfg.IsValid()
	if valid {
		t.Fatal("config with relative paths should be invalid")
	}
	var cfgErr *InvalidConfigError
	if !errors.As(errs[0], &cfgErr) || !errors.Is(errs[0], ErrInvalidConfig) {
		t.Fatalf("error = %T %v", errs[0], errs[0])
	}
	if len(cfgErr.FieldErrors) != 3 {
		t.Errorf("field errors = %v, want 3", cfgErr.FieldErrors)
	}
	if !errors.Is(cfgErr.FieldErrors[0], ErrInvalidDirPath) {
		t.Errorf("first field error = %v", cfgErr.FieldErrors[0])
	}
}
