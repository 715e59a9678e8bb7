// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/respack/respack/internal/config"
	"github.com/respack/respack/internal/manager"
	"github.com/respack/respack/internal/output"
	"github.com/respack/respack/pkg/bundle"
)

type (
	// App wires the CLI commands to their services. One App serves one
	// command invocation.
	App struct {
		Config config.Provider
		stdout io.Writer
		stderr io.Writer
		clock  bundle.Clock

		verbose    bool
		configFile string
		configDir  string

		cfg    *config.Config
		cfgErr error
		loaded bool
	}

	// Dependencies defines the injection points for building an App. Nil fields
	// are replaced with production defaults by NewApp.
	Dependencies struct {
		Config config.Provider
		Stdout io.Writer
		Stderr io.Writer
		// Clock overrides the time source for bundle timestamps.
		Clock bundle.Clock
	}
)

// NewApp creates an App from deps.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	return &App{
		Config: deps.Config,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
		clock:  deps.Clock,
	}
}

// loadOptions returns the config loading inputs for the current flags.
func (a *App) loadOptions() config.LoadOptions {
	return config.LoadOptions{ConfigFilePath: a.configFile, ConfigDirPath: a.configDir}
}

// config loads the configuration once per App.
func (a *App) config(ctx context.Context) (*config.Config, error) {
	if !a.loaded {
		a.cfg, a.cfgErr = a.Config.Load(ctx, a.loadOptions())
		a.loaded = true
	}
	return a.cfg, a.cfgErr
}

// glamourStyle returns the Markdown style for the configured color scheme.
func (a *App) glamourStyle() string {
	if a.cfg == nil {
		return config.ColorSchemeAuto.GlamourStyle()
	}
	return a.cfg.UI.ColorScheme.GlamourStyle()
}

func (a *App) bundleOptions(cfg *config.Config) []bundle.Option {
	opts := []bundle.Option{
		bundle.WithResourceRoot(string(cfg.ResourceRoot)),
		bundle.WithLogger(output.For("bundle")),
	}
	if a.clock != nil {
		opts = append(opts, bundle.WithClock(a.clock))
	}
	return opts
}

// manager returns a manager with the configured bundles loaded.
func (a *App) manager(ctx context.Context) (*manager.Manager, *config.Config, error) {
	cfg, err := a.config(ctx)
	if err != nil {
		return nil, nil, err
	}
	m := manager.New(string(cfg.BundlesDir),
		manager.WithResourceRoot(string(cfg.ResourceRoot)),
		manager.WithBlacklistFile(string(cfg.BlacklistFile)),
		manager.WithLogger(output.For("manager")),
		manager.WithBundleOptions(a.bundleOptions(cfg)...))
	if _, err := m.LoadBundles(ctx); err != nil {
		return nil, nil, err
	}
	return m, cfg, nil
}

// resolveBundle finds ref among the managed bundles by name, file name or
// path. A path to a bundle outside the bundles directory is opened and loaded
// directly; managed reports which case applied.
func resolveBundle(m *manager.Manager, ref string) (b *bundle.Bundle, managed bool, err error) {
	b, findErr := m.Find(ref)
	if findErr == nil {
		return b, true, nil
	}
	abs, absErr := filepath.Abs(ref)
	if absErr == nil {
		if b, err := m.Find(abs); err == nil {
			return b, true, nil
		}
	}

	info, statErr := os.Stat(ref)
	if statErr != nil || info.IsDir() {
		if statErr != nil && !errors.Is(statErr, os.ErrNotExist) {
			return nil, false, statErr
		}
		return nil, false, findErr
	}
	if absErr != nil {
		return nil, false, absErr
	}
	b = m.OpenBundle(abs)
	if err := b.Load(); err != nil {
		return nil, false, err
	}
	return b, false, nil
}
