// SPDX-License-Identifier: MPL-2.0

// Package testutil provides test helpers that fail the test on error instead
// of returning it.
//
// It covers environment handling (MustSetenv, MustUnsetenv, SetHomeDir,
// SetXDGDirs), filesystem fixtures (MustMkdirAll, MustWriteFile, MustWriteZip)
// and a FakeClock for deterministic timestamps.
package testutil
