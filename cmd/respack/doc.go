// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for respack.
//
// The command tree is built with Cobra and executed through fang. Commands
// share an App that carries the configuration provider and the output
// streams, so tests can run them against temporary directories.
package cmd
