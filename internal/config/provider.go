// SPDX-License-Identifier: MPL-2.0

package config

import "context"

type (
	// LoadOptions selects where configuration is read from. The zero value
	// reads config.cue from ConfigDir when it exists.
	LoadOptions struct {
		// ConfigFilePath names a config file that must exist. It takes
		// precedence over ConfigDirPath.
		ConfigFilePath string
		// ConfigDirPath replaces ConfigDir, e.g. for a portable install that
		// keeps its config next to the resource root.
		ConfigDirPath string
	}

	// Provider loads a Config. The CLI takes one so tests can substitute it.
	Provider interface {
		Load(ctx context.Context, opts LoadOptions) (*Config, error)
	}

	// ProviderFunc adapts a function to Provider.
	ProviderFunc func(ctx context.Context, opts LoadOptions) (*Config, error)
)

// Load calls f.
func (f ProviderFunc) Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	return f(ctx, opts)
}

// NewProvider returns the provider that layers defaults, the CUE config file
// and RESPACK_* environment overrides.
func NewProvider() Provider {
	return ProviderFunc(func(ctx context.Context, opts LoadOptions) (*Config, error) {
		cfg, _, err := loadWithOptions(ctx, opts)
		return cfg, err
	})
}
