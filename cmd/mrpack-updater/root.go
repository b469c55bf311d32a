// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for mrpack-updater.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/KrisTC/mrpack-updater/internal/config"
	"github.com/KrisTC/mrpack-updater/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables verbose output
	verbose bool
	// cfgFile allows specifying a custom config file
	cfgFile string

	// cfg is the loaded application configuration, populated before any
	// subcommand runs.
	cfg *config.Config

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "mrpack-updater",
		Short: "Update Modrinth modpacks to a new game version",
		Long: TitleStyle.Render("mrpack-updater") + SubtitleStyle.Render(" - Update Modrinth modpacks to a new game version") + `

mrpack-updater takes a .mrpack modpack, resolves every pinned mod,
resource pack, and shader against the Modrinth registry for a target
game version and mod loader, and rebuilds the pack manifest with the
matching releases.

Projects the registry cannot serve are reported, and allow-listed
projects are additionally checked against their GitHub release feeds
so you know where a compatible build exists.

` + SubtitleStyle.Render("Examples:") + `
  mrpack-updater update ./pack.mrpack --game-version 1.21 --loader fabric
  mrpack-updater inspect ./pack.mrpack
  mrpack-updater missing list`,
	}
)

func init() {
	cobra.OnInitialize(initRootConfig)

	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/mrpack-updater/config.toml)")

	// Add subcommands
	rootCmd.AddCommand(newUpdateCommand())
	rootCmd.AddCommand(newInspectCommand())
	rootCmd.AddCommand(newMissingCommand())
	rootCmd.AddCommand(newConfigCommand())
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	// Use fang.Execute for enhanced Cobra styling
	// Pass version via fang.WithVersion() since fang overrides rootCmd.Version
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// initRootConfig reads in config file and ENV variables if set.
func initRootConfig() {
	if verbose {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	loaded, err := config.Load(cfgFile)
	if err != nil {
		// Config trouble degrades to defaults; the run itself can proceed.
		fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, verbose))
		loaded = config.DefaultConfig()
	}
	cfg = loaded
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
