// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/respack/respack/internal/config"
	"github.com/respack/respack/internal/issue"
)

// newConfigCommand creates the `respack config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage respack configuration",
		Long: `Manage respack configuration.

Configuration is stored in:
  - Linux: ~/.config/respack/config.cue
  - macOS: ~/Library/Application Support/respack/config.cue
  - Windows: %APPDATA%\respack\config.cue

Use --config to read a specific file or --config-dir to look for config.cue
in another directory. Every key can be overridden from the environment,
e.g. RESPACK_RESOURCE_ROOT.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.Context(), app)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(app)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.FilePath(app.loadOptions())
			if err != nil {
				return err
			}
			fmt.Fprintln(app.stdout, path)
			return nil
		},
	})

	return cfgCmd
}

func showConfig(ctx context.Context, app *App) error {
	cfg, err := app.config(ctx)
	if err != nil {
		return newServiceError(err, issue.ConfigLoadFailedId)
	}

	keyStyle := CmdStyle
	valueStyle := SuccessStyle
	w := app.stdout

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)

	path, err := config.FilePath(app.loadOptions())
	if err == nil && fileExists(path) {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), path)
	} else {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("resource_root"), valueStyle.Render(cfg.ResourceRoot.String()))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("bundles_dir"), valueStyle.Render(cfg.BundlesDir.String()))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("blacklist_file"), valueStyle.Render(cfg.BlacklistFile.String()))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("ui"))
	fmt.Fprintf(w, "  color_scheme: %s\n", valueStyle.Render(cfg.UI.ColorScheme.String()))
	fmt.Fprintf(w, "  verbose: %s\n", valueStyle.Render(fmt.Sprintf("%v", cfg.UI.Verbose)))

	return nil
}

func initConfig(app *App) error {
	path, err := config.FilePath(app.loadOptions())
	if err != nil {
		return err
	}
	created, err := config.CreateDefaultConfig(path)
	if err != nil {
		return err
	}
	if !created {
		fmt.Fprintf(app.stdout, "Config file already exists at: %s\n", path)
		return nil
	}
	fmt.Fprintf(app.stdout, "%s Created default config at: %s\n", SuccessStyle.Render("✓"), path)
	return nil
}
