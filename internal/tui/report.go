// SPDX-License-Identifier: MPL-2.0

package tui

import (
	"fmt"
	"strings"

	"github.com/KrisTC/mrpack-updater/internal/rebuild"
	"github.com/KrisTC/mrpack-updater/internal/resolver"
	"github.com/KrisTC/mrpack-updater/internal/tracker"
)

// UpdateReport builds the markdown update report for one run: a summary line,
// the packaged projects, fallback hints, and the exclusion list with reasons.
// Render it with Format before printing.
func UpdateReport(rows []resolver.Row, report *rebuild.Report, target resolver.Target) string {
	var md strings.Builder

	fmt.Fprintf(&md, "# Update to %s / %s\n\n", target.GameVersion, target.Loader)
	fmt.Fprintf(&md, "**%d of %d** projects packaged.\n", report.Included, len(rows))

	var packaged, hints []resolver.Row
	for _, row := range rows {
		switch {
		case row.Available && row.Origin == resolver.OriginPrimary:
			packaged = append(packaged, row)
		case row.Available && row.Origin == resolver.OriginFallback:
			hints = append(hints, row)
		}
	}

	if len(packaged) > 0 {
		md.WriteString("\n## Packaged\n\n")
		md.WriteString("| Project | Version | Channel |\n")
		md.WriteString("|---------|---------|--------|\n")
		for _, row := range packaged {
			fmt.Fprintf(&md, "| %s | %s | %s |\n",
				row.Project.DisplayName(), row.Chosen.VersionNumber, row.Chosen.VersionType)
		}
	}

	if len(hints) > 0 {
		md.WriteString("\n## Available elsewhere\n\n")
		md.WriteString("These builds exist on their project's GitHub releases but are not\n")
		md.WriteString("packaged; download and verify them yourself.\n\n")
		for _, row := range hints {
			fmt.Fprintf(&md, "- **%s**: release %s, asset `%s`",
				row.Project.DisplayName(), row.Fallback.Release.TagName, row.Fallback.Asset.Name)
			if url := row.Fallback.Release.HTMLURL; url != "" {
				fmt.Fprintf(&md, " (<%s>)", url)
			}
			md.WriteString("\n")
		}
	}

	if len(report.Excluded) > 0 {
		md.WriteString("\n## Not included\n\n")
		for _, item := range report.Excluded {
			fmt.Fprintf(&md, "- **%s**: %s\n", item.Name, item.Reason)
		}
	}

	if len(report.Notes) > 0 {
		md.WriteString("\n## Notes\n\n")
		for _, note := range report.Notes {
			fmt.Fprintf(&md, "- %s\n", note)
		}
	}

	return md.String()
}

// MissingReport builds the markdown listing of the persistent missing-items
// store.
func MissingReport(store *tracker.Store) string {
	var md strings.Builder

	md.WriteString("# Missing items\n\n")
	if store.Len() == 0 {
		md.WriteString("Nothing recorded. Every project resolved on the last run.\n")
		return md.String()
	}

	md.WriteString("| Project | Last target | First seen | Last seen |\n")
	md.WriteString("|---------|-------------|------------|----------|\n")
	for _, identity := range store.Identities() {
		entry, _ := store.Entry(identity)
		first, last := "-", "-"
		if !entry.FirstSeen.IsZero() {
			first = entry.FirstSeen.Format("2006-01-02")
		}
		if !entry.LastSeen.IsZero() {
			last = entry.LastSeen.Format("2006-01-02")
		}
		fmt.Fprintf(&md, "| %s | %s | %s | %s |\n", entry.Name, entry.Target, first, last)
	}

	return md.String()
}
