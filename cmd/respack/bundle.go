// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/respack/respack/internal/manager"
	"github.com/respack/respack/internal/output"
	"github.com/respack/respack/pkg/bundle"
	"github.com/respack/respack/pkg/meta"
	"github.com/respack/respack/pkg/registry"
)

// newBundleCommand creates the `respack bundle` command tree.
func newBundleCommand(app *App) *cobra.Command {
	bundleCmd := &cobra.Command{
		Use:   "bundle",
		Short: "Manage resource bundles",
		Long: `Manage resource bundles.

A bundle is a ZIP archive with the ` + CmdStyle.Render(bundle.Extension) + ` extension that contains:
  - ` + CmdStyle.Render(bundle.ManifestEntry) + `, the typed resource index
  - ` + CmdStyle.Render(bundle.MetaEntry) + `, author, license, description and tags
  - one entry per resource, e.g. ` + CmdStyle.Render("gradients/sunset.ggr") + `

Bundles are referenced by name, by file name or by path. Bundles found in
the bundles directory are managed: installing and uninstalling them also
updates the blacklist.

Examples:
  respack bundle list --search warm
  respack bundle info sunset
  respack bundle install sunset ocean
  respack bundle apply sunset=on ocean=off`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	bundleCmd.AddCommand(
		newBundleListCommand(app),
		newBundleInfoCommand(app),
		newBundleInstallCommand(app, true),
		newBundleInstallCommand(app, false),
		newBundleApplyCommand(app),
		newBundleRenameCommand(app),
		newBundleCreateCommand(app),
		newBundleThumbnailCommand(app),
		newBundleVerifyCommand(app),
		newBundleHashCommand(app),
		newBundleWatchCommand(app),
	)
	return bundleCmd
}

type listRow struct {
	Name     string   `json:"name" yaml:"name"`
	Status   string   `json:"status" yaml:"status"`
	Author   string   `json:"author,omitempty" yaml:"author,omitempty"`
	Contents []string `json:"contents" yaml:"contents"`
	File     string   `json:"file" yaml:"file"`
}

func newBundleListCommand(app *App) *cobra.Command {
	var search, format string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active and blacklisted bundles",
		Long: `List active and blacklisted bundles.

With --search, active bundles are filtered: a bundle matches when its name
fuzzy-matches the query, its author contains it or its description contains
it. Blacklisted bundles are always listed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := app.manager(cmd.Context())
			if err != nil {
				return wrapServiceError(err)
			}
			rows := listRows(m.Refresh(search))
			switch format {
			case "json":
				enc := json.NewEncoder(app.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			case "yaml":
				enc := yaml.NewEncoder(app.stdout)
				enc.SetIndent(2)
				if err := enc.Encode(rows); err != nil {
					return err
				}
				return enc.Close()
			case "table":
			default:
				return fmt.Errorf("unknown format %q: want table, json or yaml", format)
			}

			if len(rows) == 0 {
				fmt.Fprintln(app.stdout, SubtitleStyle.Render("No bundles found."))
				return nil
			}
			tbl := output.NewTable("NAME", "STATUS", "AUTHOR", "CONTENTS", "FILE")
			for _, r := range rows {
				tbl.Row(r.Name, r.Status, r.Author, strings.Join(r.Contents, ", "), filepath.Base(r.File))
			}
			fmt.Fprintln(app.stdout, tbl.String())
			return nil
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "filter active bundles by name, author or description")
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format: table, json or yaml")
	return cmd
}

func listRows(entries []manager.Entry) []listRow {
	rows := make([]listRow, 0, len(entries))
	for _, e := range entries {
		b := e.Bundle
		labels := []string{}
		for _, t := range b.ResourceTypes() {
			labels = append(labels, t.Label())
		}
		rows = append(rows, listRow{
			Name:     b.Name(),
			Status:   status(e),
			Author:   b.Meta(meta.KeyAuthor),
			Contents: labels,
			File:     b.Filename(),
		})
	}
	return rows
}

func status(e manager.Entry) string {
	switch {
	case e.Blacklisted:
		return "blacklisted"
	case e.Bundle.IsInstalled():
		return "installed"
	default:
		return "available"
	}
}

func newBundleInfoCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "info <bundle>",
		Short: "Show bundle metadata and contents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := app.manager(cmd.Context())
			if err != nil {
				return wrapServiceError(err)
			}
			b, managed, err := resolveBundle(m, args[0])
			if err != nil {
				return wrapServiceError(err)
			}
			d := manager.Describe(b, false)
			if managed {
				if d, err = m.Details(b.ContentHash()); err != nil {
					return wrapServiceError(err)
				}
			}
			rendered, err := renderMarkdown(detailsMarkdown(d), app.glamourStyle())
			if err != nil {
				return err
			}
			fmt.Fprint(app.stdout, rendered)
			return nil
		},
	}
}

// newBundleInstallCommand builds `install` (checked) or `uninstall`.
func newBundleInstallCommand(app *App, install bool) *cobra.Command {
	use, short := "install <bundle>...", "Install bundles into the resource root"
	if !install {
		use, short = "uninstall <bundle>...", "Uninstall bundles and blacklist managed ones"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			states := make(map[string]bool, len(args))
			for _, a := range args {
				states[a] = install
			}
			return applyStates(cmd.Context(), app, args, states)
		},
	}
}

func newBundleApplyCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "apply <bundle>=on|off...",
		Short: "Bring several bundles into the given states at once",
		Long: `Bring several bundles into the given states at once.

on installs a bundle that is not installed and removes it from the
blacklist. off uninstalls an installed bundle and blacklists it.
Problems with one bundle do not stop the others; they are reported at the end.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var order []string
			states := make(map[string]bool, len(args))
			for _, a := range args {
				ref, state, ok := strings.Cut(a, "=")
				if !ok || (state != "on" && state != "off") {
					return fmt.Errorf("invalid selection %q: want <bundle>=on or <bundle>=off", a)
				}
				order = append(order, ref)
				states[ref] = state == "on"
			}
			return applyStates(cmd.Context(), app, order, states)
		},
	}
}

// applyStates resolves refs and applies their desired states. Managed bundles
// go through the manager; bundles outside the bundles directory are installed
// or uninstalled directly.
func applyStates(ctx context.Context, app *App, refs []string, states map[string]bool) error {
	m, _, err := app.manager(ctx)
	if err != nil {
		return wrapServiceError(err)
	}

	var (
		feedback   []error
		selections []manager.Selection
		selected   []string
	)
	for _, ref := range refs {
		b, managed, err := resolveBundle(m, ref)
		if err != nil {
			feedback = append(feedback, err)
			continue
		}
		if managed {
			selections = append(selections, manager.Selection{Hash: b.ContentHash(), Checked: states[ref]})
			selected = append(selected, b.Name())
			continue
		}
		if states[ref] {
			err = b.Install(ctx, m.Provider())
		} else {
			err = b.Uninstall(ctx, m.Provider())
		}
		if err != nil {
			feedback = append(feedback, fmt.Errorf("%s: %w", b.Name(), err))
			continue
		}
		fmt.Fprintf(app.stdout, "%s %s\n", SuccessStyle.Render("✓"), b.Name())
	}

	applied := m.Apply(ctx, selections)
	if len(applied) == 0 {
		for _, name := range selected {
			fmt.Fprintf(app.stdout, "%s %s\n", SuccessStyle.Render("✓"), name)
		}
	}
	feedback = append(feedback, applied...)

	if len(feedback) == 0 {
		return nil
	}
	for _, fb := range feedback {
		fmt.Fprintf(app.stderr, "%s %s\n", ErrorStyle.Render("✗"), fb)
	}
	if len(feedback) == 1 {
		return &ExitError{Code: ExitFailure, Err: wrapServiceError(feedback[0])}
	}
	return &ExitError{Code: ExitPartial, Err: errors.Join(feedback...)}
}

func newBundleRenameCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <bundle> <new-name>",
		Short: "Rename a bundle and its installed resource folders",
		Long: `Rename a bundle and its installed resource folders.

The new name is cut at its first dot. The archive is moved to
<new-name>` + bundle.Extension + ` next to the old file unless that file exists.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := app.manager(cmd.Context())
			if err != nil {
				return wrapServiceError(err)
			}
			b, _, err := resolveBundle(m, args[0])
			if err != nil {
				return wrapServiceError(err)
			}
			shortName, _, _ := strings.Cut(args[1], ".")
			from := b.Filename()
			to := filepath.Join(filepath.Dir(from), shortName+bundle.Extension)
			move := to != from && !fileExists(to)
			if !move {
				// The archive stays put, so the recorded file name must too.
				to = from
			}
			if err := b.Rename(cmd.Context(), m.Provider(), filepath.Base(to), args[1]); err != nil {
				return wrapServiceError(err)
			}

			if move {
				if err := os.Rename(from, to); err != nil {
					return fmt.Errorf("failed to move %s: %w", from, err)
				}
				// The blacklist is keyed by path; carry the entry over.
				if m.Server().RemoveFromBlacklist(b) {
					m.Server().AddToBlacklist(m.OpenBundle(to))
				}
			}
			fmt.Fprintf(app.stdout, "%s Renamed to %s (%s)\n", SuccessStyle.Render("✓"), b.Name(), to)
			return nil
		},
	}
}

func newBundleCreateCommand(app *App) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "create <recipe.cue>",
		Short: "Build a bundle from a CUE recipe",
		Long: `Build a bundle from a CUE recipe.

Example recipe:

  name:    "sunset"
  author:  "Alice"
  license: "CC-BY-4.0"
  tags: ["warm"]
  resources: [
    {type: "ko_gradients", file: "src/sunset.ggr", tags: ["sky"]},
    {type: "ko_patterns",  file: "src/dots.pat"},
  ]

Resource paths are relative to the recipe. The bundle is written to the
bundles directory unless --output is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.config(cmd.Context())
			if err != nil {
				return err
			}
			r, err := bundle.LoadRecipe(args[0])
			if err != nil {
				return wrapServiceError(err)
			}
			path := out
			if path == "" {
				path = filepath.Join(cfg.BundlesDir.String(), r.Name+bundle.Extension)
			}
			b, err := r.Build(cmd.Context(), path, app.bundleOptions(cfg)...)
			if err != nil {
				return wrapServiceError(err)
			}
			fmt.Fprintf(app.stdout, "%s Created %s\n  %s %s\n", SuccessStyle.Render("✓"), path,
				SubtitleStyle.Render("md5:"), hex.EncodeToString(b.ContentHash()))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output bundle path")
	return cmd
}

func newBundleThumbnailCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "thumbnail <bundle> <image.png>",
		Short: "Set the bundle thumbnail",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := app.manager(cmd.Context())
			if err != nil {
				return wrapServiceError(err)
			}
			b, _, err := resolveBundle(m, args[0])
			if err != nil {
				return wrapServiceError(err)
			}
			if err := b.SetThumbnail(args[1]); err != nil {
				return err
			}
			if err := b.Save(cmd.Context(), m.Provider()); err != nil {
				return wrapServiceError(err)
			}
			fmt.Fprintf(app.stdout, "%s Thumbnail set for %s\n", SuccessStyle.Render("✓"), b.Name())
			return nil
		},
	}
}

func newBundleVerifyCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <file>...",
		Short: "Check that bundle archives are complete",
		Long: `Check that bundle archives are complete.

A bundle is complete when it has a manifest and a metadata entry and every
resource the manifest references is present in the archive.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results := make([]error, len(args))
			counts := make([]int, len(args))
			var g errgroup.Group
			g.SetLimit(runtime.NumCPU())
			for i, file := range args {
				g.Go(func() error {
					b := bundle.New(file, bundle.WithLogger(output.For("bundle")))
					if results[i] = b.Load(); results[i] == nil {
						counts[i] = b.Manifest().Len()
					}
					return nil
				})
			}
			_ = g.Wait()

			var firstErr error
			for i, file := range args {
				if err := results[i]; err != nil {
					fmt.Fprintf(app.stdout, "%s %s: %v\n", ErrorStyle.Render("✗"), file, err)
					if firstErr == nil {
						firstErr = err
					}
					continue
				}
				fmt.Fprintf(app.stdout, "%s %s: %d resource(s)\n", SuccessStyle.Render("✓"), file, counts[i])
			}
			if firstErr != nil {
				return &ExitError{Code: ExitFailure, Err: wrapServiceError(firstErr)}
			}
			return nil
		},
	}
}

func newBundleHashCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "hash <file>...",
		Short: "Print the MD5 content hash of files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, file := range args {
				sum, err := registry.HashFile(file)
				if err != nil {
					return err
				}
				fmt.Fprintf(app.stdout, "%s  %s\n", hex.EncodeToString(sum), file)
			}
			return nil
		},
	}
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
