// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"path/filepath"
)

const (
	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"

	bundlesDirName    = "bundles"
	blacklistFileName = "blacklist.toml"
)

var (
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidDirPath is returned when a configured directory is not absolute.
	ErrInvalidDirPath = errors.New("invalid directory path")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	// It wraps ErrInvalidColorScheme for errors.Is() compatibility.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// DirPath is an absolute filesystem path. The zero value means "use the default".
	DirPath string

	// InvalidDirPathError is returned when a non-empty DirPath is relative.
	InvalidDirPathError struct {
		Field string
		Value DirPath
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// ResourceRoot is the directory bundles install their resources below.
		ResourceRoot DirPath `json:"resource_root" mapstructure:"resource_root"`
		// BundlesDir is the directory scanned for bundle archives.
		BundlesDir DirPath `json:"bundles_dir" mapstructure:"bundles_dir"`
		// BlacklistFile records blacklisted bundles between runs.
		BlacklistFile DirPath `json:"blacklist_file" mapstructure:"blacklist_file"`
		// UI configures the user interface
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// ColorScheme sets the color scheme
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
		// Verbose enables verbose output
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}
)

// DefaultConfig returns the configuration used when no file is present.
// Paths are left empty and filled in by resolveDefaults.
func DefaultConfig() *Config {
	return &Config{
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
		},
	}
}

// resolveDefaults fills unset paths: bundles live below the resource root and
// the blacklist lives next to the bundles.
func (c *Config) resolveDefaults() error {
	if c.ResourceRoot == "" {
		dir, err := DataDir()
		if err != nil {
			return err
		}
		c.ResourceRoot = DirPath(dir)
	}
	if c.BundlesDir == "" {
		c.BundlesDir = DirPath(filepath.Join(string(c.ResourceRoot), bundlesDirName))
	}
	if c.BlacklistFile == "" {
		c.BlacklistFile = DirPath(filepath.Join(string(c.BundlesDir), blacklistFileName))
	}
	return nil
}

// IsValid returns whether the Config has valid fields.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	for _, f := range []struct {
		name string
		val  DirPath
	}{
		{"resource_root", c.ResourceRoot},
		{"bundles_dir", c.BundlesDir},
		{"blacklist_file", c.BlacklistFile},
	} {
		if f.val != "" && !filepath.IsAbs(string(f.val)) {
			errs = append(errs, &InvalidDirPathError{Field: f.name, Value: f.val})
		}
	}
	if valid, fieldErrs := c.UI.ColorScheme.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %d field error(s): %v", len(e.FieldErrors), errors.Join(e.FieldErrors...))
}

func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

func (p DirPath) String() string { return string(p) }

func (e *InvalidDirPathError) Error() string {
	return fmt.Sprintf("%s: %q must be an absolute path", e.Field, e.Value)
}

func (e *InvalidDirPathError) Unwrap() error { return ErrInvalidDirPath }

func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

func (e *InvalidColorSchemeError) Unwrap() error {
	return ErrInvalidColorScheme
}

func (cs ColorScheme) String() string { return string(cs) }

// IsValid returns whether the ColorScheme is one of the defined schemes.
// The zero value is treated as auto.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case "", ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: cs}}
	}
}

// GlamourStyle maps the scheme to a glamour standard style name.
func (cs ColorScheme) GlamourStyle() string {
	switch cs {
	case ColorSchemeDark:
		return "dark"
	case ColorSchemeLight:
		return "light"
	default:
		return "auto"
	}
}
