// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/KrisTC/mrpack-updater/internal/config"
)

// newConfigCommand creates the `mrpack-updater config` command group.
func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the active configuration",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigPathCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "api_base_url:  %s\n", cfg.APIBaseURL)
			fmt.Fprintf(out, "user_agent:    %s\n", cfg.UserAgent)
			fmt.Fprintf(out, "concurrency:   %d\n", cfg.Concurrency)
			fmt.Fprintf(out, "track_missing: %t\n", cfg.TrackMissing)

			if len(cfg.Fallback) > 0 {
				fmt.Fprintln(out, "fallback:")
				identities := make([]string, 0, len(cfg.Fallback))
				for identity := range cfg.Fallback {
					identities = append(identities, identity)
				}
				sort.Strings(identities)
				for _, identity := range identities {
					rule := cfg.Fallback[identity]
					fmt.Fprintf(out, "  %s: %s/%s (prereleases: %t)\n",
						identity, rule.Owner, rule.Repo, rule.IncludePrereleases)
				}
			}
			return nil
		},
	}
}

func newConfigPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			if cfgFile != "" {
				fmt.Fprintln(cmd.OutOrStdout(), cfgFile)
				return nil
			}
			dir, err := config.ConfigDir()
			if err != nil {
				return &ExitError{Code: 1, Err: err}
			}
			fmt.Fprintln(cmd.OutOrStdout(), filepath.Join(dir,
				config.ConfigFileName+"."+config.ConfigFileExt))
			return nil
		},
	}
}
