// SPDX-License-Identifier: MPL-2.0

// Package config handles respack configuration using Viper with CUE as the file format.
//
// Configuration is loaded from $XDG_CONFIG_HOME/respack/config.cue (or
// ~/Library/Application Support/respack/config.cue on macOS, %APPDATA%\respack\config.cue
// on Windows) and validated against the embedded config_schema.cue. Every key can be
// overridden from the environment with a RESPACK_ prefix, e.g. RESPACK_RESOURCE_ROOT
// or RESPACK_UI_VERBOSE.
package config
