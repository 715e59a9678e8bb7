// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/respack/respack/internal/manager"
	"github.com/respack/respack/internal/output"
	"github.com/respack/respack/internal/watch"
	"github.com/respack/respack/pkg/bundle"
)

func newBundleWatchCommand(app *App) *cobra.Command {
	var (
		install  bool
		debounce time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the bundles directory and report changes",
		Long: `Watch the bundles directory and report changes.

Whenever a bundle archive or the blacklist changes, the bundle list is
reloaded and printed. With --install, new bundles that are neither installed
nor blacklisted are installed as they appear. Stop with Ctrl+C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.config(cmd.Context())
			if err != nil {
				return err
			}
			patterns := []string{"*" + bundle.Extension}
			if filepath.Dir(cfg.BlacklistFile.String()) == filepath.Clean(cfg.BundlesDir.String()) {
				patterns = append(patterns, filepath.Base(cfg.BlacklistFile.String()))
			}

			w, err := watch.New(watch.Config{
				Dir:      cfg.BundlesDir.String(),
				Patterns: patterns,
				Debounce: debounce,
				Logger:   output.For("watch"),
				OnChange: func(ctx context.Context, changed []string) error {
					fmt.Fprintf(app.stdout, "%s %s\n", SubtitleStyle.Render("changed:"), strings.Join(changed, ", "))
					return syncBundles(ctx, app, install)
				},
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(app.stdout, "Watching %s\n", w.Dir())
			if err := syncBundles(cmd.Context(), app, install); err != nil {
				return wrapServiceError(err)
			}
			return w.Run(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&install, "install", false, "install new bundles as they appear")
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "quiet period before reacting to changes")
	return cmd
}

// syncBundles reloads the bundles, optionally installs the available ones and
// prints the resulting list.
func syncBundles(ctx context.Context, app *App, install bool) error {
	m, _, err := app.manager(ctx)
	if err != nil {
		return err
	}
	entries := m.Refresh("")
	if install {
		var selections []manager.Selection
		for _, e := range entries {
			if !e.Blacklisted && !e.Bundle.IsInstalled() {
				selections = append(selections, manager.Selection{Hash: e.Bundle.ContentHash(), Checked: true})
				fmt.Fprintf(app.stdout, "%s installing %s\n", SuccessStyle.Render("→"), e.Bundle.Name())
			}
		}
		for _, fb := range m.Apply(ctx, selections) {
			fmt.Fprintf(app.stderr, "%s %s\n", ErrorStyle.Render("✗"), fb)
		}
		entries = m.Refresh("")
	}

	rows := listRows(entries)
	if len(rows) == 0 {
		fmt.Fprintln(app.stdout, SubtitleStyle.Render("No bundles found."))
		return nil
	}
	tbl := output.NewTable("NAME", "STATUS", "AUTHOR", "FILE")
	for _, r := range rows {
		tbl.Row(r.Name, r.Status, r.Author, filepath.Base(r.File))
	}
	fmt.Fprintln(app.stdout, tbl.String())
	return nil
}
