// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/respack/respack/internal/manager"
)

var renderMarkdown = glamour.Render

// detailsMarkdown lays out bundle details as a Markdown document.
func detailsMarkdown(d *manager.Details) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", d.Name)

	state := "not installed"
	switch {
	case d.Blacklisted:
		state = "blacklisted"
	case d.Installed:
		state = "installed"
	}
	fmt.Fprintf(&sb, "*%s* · `%s`\n\n", state, d.Filename)

	if d.Description != "" {
		sb.WriteString(d.Description + "\n\n")
	}

	fields := []struct{ key, val string }{
		{"Author", d.Author},
		{"Email", d.Email},
		{"License", d.License},
		{"Website", d.Website},
		{"Created", d.Created},
		{"Updated", d.Updated},
	}
	sb.WriteString("| | |\n|---|---|\n")
	for _, f := range fields {
		if f.val != "" {
			fmt.Fprintf(&sb, "| %s | %s |\n", f.key, escapeCell(f.val))
		}
	}
	if len(d.Tags) > 0 {
		fmt.Fprintf(&sb, "| Tags | %s |\n", escapeCell(strings.Join(d.Tags, ", ")))
	}
	if d.HasThumbnail {
		sb.WriteString("| Thumbnail | yes |\n")
	}

	for _, sec := range d.Contents {
		fmt.Fprintf(&sb, "\n## %s\n\n", sec.Label)
		for _, r := range sec.Resources {
			fmt.Fprintf(&sb, "- %s\n", r)
		}
	}
	return sb.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
