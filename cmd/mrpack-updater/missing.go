// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/KrisTC/mrpack-updater/internal/config"
	"github.com/KrisTC/mrpack-updater/internal/issue"
	"github.com/KrisTC/mrpack-updater/internal/tracker"
	"github.com/KrisTC/mrpack-updater/internal/tui"
)

// newMissingCommand creates the `mrpack-updater missing` command group over
// the persistent missing-items store.
func newMissingCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "missing",
		Short: "Manage the record of items that failed to resolve",
		Long: `Manage the record of items that failed to resolve.

Every update run records the projects that could not be resolved for
the requested target, so repeated updates show how long an item has
been missing. Items are dropped automatically once they resolve.`,
	}

	cmd.AddCommand(newMissingListCommand())
	cmd.AddCommand(newMissingClearCommand())

	return cmd
}

func newMissingListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List items that failed to resolve on past runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			store, _, err := loadMissingStore()
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))
				return &ExitError{Code: 1, Err: err}
			}

			md := tui.MissingReport(store)
			if rendered, renderErr := tui.Format(tui.FormatOptions{Content: md, Width: 100}); renderErr == nil {
				fmt.Fprint(cmd.OutOrStdout(), rendered)
			} else {
				fmt.Fprint(cmd.OutOrStdout(), md)
			}
			return nil
		},
	}
}

func newMissingClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Forget all recorded missing items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			store, path, err := loadMissingStore()
			if errors.Is(err, tracker.ErrUnsupportedSchema) {
				// A store too new to decode can still be cleared: drop the file.
				if rmErr := os.Remove(path); rmErr != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), ErrorStyle.Render("Error: ")+rmErr.Error())
					return &ExitError{Code: 1, Err: rmErr}
				}
				fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("Removed the missing-items store"))
				return nil
			}
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))
				return &ExitError{Code: 1, Err: err}
			}

			count := store.Len()
			store.Clear()
			if err := store.Save(); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), ErrorStyle.Render("Error: ")+err.Error())
				return &ExitError{Code: 1, Err: err}
			}

			fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render(
				fmt.Sprintf("Cleared %d recorded items", count)))
			return nil
		},
	}
}

// loadMissingStore opens the missing-items store at its default location.
func loadMissingStore() (*tracker.Store, string, error) {
	dataDir, err := config.DataDir()
	if err != nil {
		return nil, "", err
	}
	path := filepath.Join(dataDir, "missing.toml")

	store, err := tracker.Load(path)
	if err != nil {
		return nil, path, issue.NewErrorContext().
			WithOperation("load missing-items store").
			WithResource(path).
			WithSuggestion("Run 'mrpack-updater missing clear' to reset the store").
			Wrap(err).
			BuildError()
	}
	return store, path, nil
}
