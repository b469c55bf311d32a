// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KrisTC/mrpack-updater/internal/issue"
	"github.com/KrisTC/mrpack-updater/internal/resolver"
	"github.com/KrisTC/mrpack-updater/internal/tui"
	"github.com/KrisTC/mrpack-updater/pkg/mrpack"
)

// newInspectCommand creates the `mrpack-updater inspect` command, which prints
// a summary of a pack without touching the network.
func newInspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "inspect <pack.mrpack>",
		Short:   "Show the contents of a pack manifest",
		Example: `  mrpack-updater inspect ./pack.mrpack`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			if err := runInspect(cmd.OutOrStdout(), args[0]); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), ErrorStyle.Render("Error: ")+formatUpdateError(err, verbose))
				return &ExitError{Code: 1, Err: err}
			}
			return nil
		},
	}

	return cmd
}

// runInspect loads the pack and renders its manifest summary.
func runInspect(stdout io.Writer, packPath string) error {
	pack, err := mrpack.Load(packPath)
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("load modpack").
			WithResource(packPath).
			Wrap(err).
			BuildError()
	}

	md := inspectReport(pack)
	if rendered, renderErr := tui.Format(tui.FormatOptions{Content: md, Width: 100}); renderErr == nil {
		fmt.Fprint(stdout, rendered)
	} else {
		fmt.Fprint(stdout, md)
	}
	return nil
}

// inspectReport builds the markdown summary of a pack manifest.
func inspectReport(pack *mrpack.Pack) string {
	var md strings.Builder

	fmt.Fprintf(&md, "# %s\n\n", pack.Index.Name)
	fmt.Fprintf(&md, "Pack version **%s** for %s, manifest format %d.\n",
		pack.Index.VersionID, pack.Index.Game, pack.Index.FormatVersion)

	if len(pack.Index.Dependencies) > 0 {
		md.WriteString("\n## Dependency pins\n\n")
		keys := make([]string, 0, len(pack.Index.Dependencies))
		for key := range pack.Index.Dependencies {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Fprintf(&md, "- `%s`: %s\n", key, pack.Index.Dependencies[key])
		}
	}

	counts := map[resolver.Category]int{}
	for _, file := range pack.Index.Files {
		counts[resolver.CategoryForPath(file.Path)]++
	}
	md.WriteString("\n## Content\n\n")
	fmt.Fprintf(&md, "- mods: %d\n", counts[resolver.CategoryMod])
	fmt.Fprintf(&md, "- resource packs: %d\n", counts[resolver.CategoryResourcePack])
	fmt.Fprintf(&md, "- shader packs: %d\n", counts[resolver.CategoryShaderPack])
	fmt.Fprintf(&md, "- override entries: %d\n", len(pack.Overrides))

	return md.String()
}
