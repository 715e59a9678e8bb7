// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/respack/respack/internal/issue"
	"github.com/respack/respack/internal/output"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// newRootCommand builds the command tree around app.
func newRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "respack",
		Short: "Install and manage resource bundles",
		Long: TitleStyle.Render("respack") + SubtitleStyle.Render(" - Install and manage resource bundles") + `

respack installs resource bundles (ZIP archives of gradients, patterns,
brushes, palettes, workspaces and brush presets) into a resource root, and
keeps track of which bundles are active and which are blacklisted.

` + SubtitleStyle.Render("Examples:") + `
  respack bundle list                 List known bundles
  respack bundle install sunset       Install the 'sunset' bundle
  respack bundle create recipe.cue    Build a bundle from a recipe
  respack config show                 Show current configuration`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.config(cmd.Context())
			verbose := app.verbose || (cfg != nil && cfg.UI.Verbose)
			output.SetupLoggingTo(app.stderr, verbose)
			if err != nil {
				// Config commands must keep working with a broken file.
				fmt.Fprintln(app.stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, verbose))
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&app.configFile, "config", "", "config file (default is $XDG_CONFIG_HOME/respack/config.cue)")
	rootCmd.PersistentFlags().StringVar(&app.configDir, "config-dir", "", "directory holding config.cue, used when --config is not set")

	rootCmd.AddCommand(newBundleCommand(app))
	rootCmd.AddCommand(newConfigCommand(app))
	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI. It is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})
	rootCmd := newRootCommand(app)

	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var svcErr *ServiceError
		if errors.As(err, &svcErr) {
			renderServiceError(os.Stderr, svcErr, app.glamourStyle())
		}
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(ExitFailure)
	}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
