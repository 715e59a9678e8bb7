// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"path/filepath"
	"runtime"
	"testing"
)

// SetHomeDir points the platform home variable (USERPROFILE on Windows, HOME
// elsewhere) at dir and returns a cleanup function restoring it.
func SetHomeDir(t testing.TB, dir string) func() {
	t.Helper()

	switch runtime.GOOS {
	case "windows":
		return MustSetenv(t, "USERPROFILE", dir)
	default:
		return MustSetenv(t, "HOME", dir)
	}
}

// SetXDGDirs points XDG_CONFIG_HOME and XDG_DATA_HOME at subdirectories of
// dir and registers their restoration with t.Cleanup. It returns the config
// and data directories.
func SetXDGDirs(t testing.TB, dir string) (configHome, dataHome string) {
	t.Helper()
	configHome = filepath.Join(dir, "config")
	dataHome = filepath.Join(dir, "data")
	t.Cleanup(MustSetenv(t, "XDG_CONFIG_HOME", configHome))
	t.Cleanup(MustSetenv(t, "XDG_DATA_HOME", dataHome))
	return configHome, dataHome
}
