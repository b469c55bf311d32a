// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/KrisTC/mrpack-updater/internal/config"
	"github.com/KrisTC/mrpack-updater/internal/fallback"
	"github.com/KrisTC/mrpack-updater/internal/issue"
	"github.com/KrisTC/mrpack-updater/internal/rebuild"
	"github.com/KrisTC/mrpack-updater/internal/registry"
	"github.com/KrisTC/mrpack-updater/internal/resolver"
	"github.com/KrisTC/mrpack-updater/internal/tracker"
	"github.com/KrisTC/mrpack-updater/internal/tui"
	"github.com/KrisTC/mrpack-updater/pkg/mrpack"
)

// updateParams bundles the dependencies and flags for the update command,
// enabling the core logic in runUpdate to be tested without a real Cobra
// command or live registry calls.
type updateParams struct {
	stdout io.Writer
	stderr io.Writer
	cfg    *config.Config

	packPath   string
	outputPath string // empty = derive from packPath and game version
	target     resolver.Target

	concurrency int  // 0 = take from config
	noFallback  bool // skip GitHub release feed hints
	noTrack     bool // skip the missing-items store
	dryRun      bool // resolve and report, write nothing

	storePath  string                    // missing-items store location (empty = default)
	loaderMeta *registry.LoaderMetaClient // nil = default endpoints
}

// newUpdateCommand creates the `mrpack-updater update` command, which resolves
// every pinned item of a pack against the registry for a new game version and
// loader and writes the rebuilt archive.
func newUpdateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <pack.mrpack>",
		Short: "Resolve a pack against a new game version and rebuild it",
		Long: `Resolve a pack against a new game version and rebuild it.

Every file pinned in the pack manifest is resolved by hash to its
project, then each project is queried for a release matching the
target game version and loader. The rebuilt archive keeps the original
overrides and entry paths; projects without a compatible release are
listed in the report instead of silently dropped.

Fallback results from GitHub release feeds are report-only: they tell
you where a build exists, but are never packaged.`,
		Example: `  # Update a pack to Minecraft 1.21 on Fabric
  mrpack-updater update ./pack.mrpack --game-version 1.21 --loader fabric

  # Write the result somewhere specific
  mrpack-updater update ./pack.mrpack -g 1.21 -l fabric -o /tmp/out.mrpack

  # Primary registry only, no GitHub hints
  mrpack-updater update ./pack.mrpack -g 1.21 -l fabric --no-fallback`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			gameVersion, _ := cmd.Flags().GetString("game-version")
			loader, _ := cmd.Flags().GetString("loader")
			output, _ := cmd.Flags().GetString("output")
			concurrency, _ := cmd.Flags().GetInt("concurrency")
			noFallback, _ := cmd.Flags().GetBool("no-fallback")
			noTrack, _ := cmd.Flags().GetBool("no-track")
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			p := updateParams{
				stdout:      cmd.OutOrStdout(),
				stderr:      cmd.ErrOrStderr(),
				cfg:         cfg,
				packPath:    args[0],
				outputPath:  output,
				target:      resolver.Target{GameVersion: gameVersion, Loader: strings.ToLower(loader)},
				concurrency: concurrency,
				noFallback:  noFallback,
				noTrack:     noTrack,
				dryRun:      dryRun,
			}

			if err := runUpdate(cmd.Context(), p); err != nil {
				fmt.Fprintln(p.stderr, ErrorStyle.Render("Error: ")+formatUpdateError(err, verbose))
				return &ExitError{Code: classifyUpdateExitCode(err), Err: err}
			}

			return nil
		},
	}

	cmd.Flags().StringP("game-version", "g", "", "Target game version (required)")
	cmd.Flags().StringP("loader", "l", "", "Target mod loader: fabric, quilt, forge, or neoforge (required)")
	cmd.Flags().StringP("output", "o", "", "Output path for the rebuilt pack")
	cmd.Flags().Int("concurrency", 0, "Resolution fan-out ceiling (default from config)")
	cmd.Flags().Bool("no-fallback", false, "Skip GitHub release feed hints")
	cmd.Flags().Bool("no-track", false, "Skip recording missing items across runs")
	cmd.Flags().Bool("dry-run", false, "Resolve and report without writing anything")
	_ = cmd.MarkFlagRequired("game-version")
	_ = cmd.MarkFlagRequired("loader")

	return cmd
}

// runUpdate is the core update pipeline, separated from Cobra for testability.
// All user-facing output goes through p.stdout and p.stderr.
//
// Flow:
//  1. Load the pack and collect the pinned hashes.
//  2. Resolve hashes to their projects in one registry batch.
//  3. Resolve each project for the target, fan-out bounded by the config.
//  4. Rebuild the manifest, retargeting the dependency pins.
//  5. Write the archive, update the missing-items store, print the report.
func runUpdate(ctx context.Context, p updateParams) error {
	pack, err := mrpack.Load(p.packPath)
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("load modpack").
			WithResource(p.packPath).
			WithSuggestion("Check that the path points to a Modrinth .mrpack file").
			Wrap(err).
			BuildError()
	}

	hashes := pack.Hashes()
	if len(hashes) == 0 {
		fmt.Fprintln(p.stderr, WarningStyle.Render("Warning: ")+
			"the pack pins no content; only the dependency pins will be retargeted")
	}

	client := registry.NewClient(
		registry.WithBaseURL(p.cfg.APIBaseURL),
		registry.WithUserAgent(p.cfg.UserAgent),
	)

	var resolved map[string]registry.Version
	if len(hashes) > 0 {
		resolved, err = client.VersionsByHashes(ctx, hashes, "sha1")
		if err != nil {
			return issue.NewErrorContext().
				WithOperation("resolve pinned hashes").
				WithSuggestion("Check your network connection and the registry status").
				Wrap(err).
				BuildError()
		}
	}

	projects := resolver.Aggregate(pack, resolved)

	var arbiter *fallback.Arbiter
	if !p.noFallback && len(p.cfg.Fallback) > 0 {
		rules := make(map[string]fallback.Rule, len(p.cfg.Fallback))
		for identity, rule := range p.cfg.Fallback {
			rules[identity] = fallback.Rule{
				Owner:              rule.Owner,
				Repo:               rule.Repo,
				IncludePrereleases: rule.IncludePrereleases,
			}
		}
		arbiter = fallback.NewArbiter(rules, fallback.WithUserAgent(p.cfg.UserAgent))
	}

	concurrency := p.concurrency
	if concurrency < 1 {
		concurrency = p.cfg.Concurrency
	}

	rows := resolver.New(client, arbiter).Resolve(ctx, projects, p.target, resolver.Options{
		Concurrency: concurrency,
		Progress: func(completed, total int) {
			fmt.Fprintf(p.stderr, "\rResolving projects... %d/%d", completed, total)
			if completed == total {
				fmt.Fprintln(p.stderr)
			}
		},
	})

	loaderMeta := p.loaderMeta
	if loaderMeta == nil {
		loaderMeta = registry.NewLoaderMetaClient()
	}
	rebuilt, report := rebuild.NewBuilder(loaderMeta).Build(ctx, pack, rows, p.target)

	outputPath := p.outputPath
	if outputPath == "" {
		outputPath = deriveOutputPath(p.packPath, p.target.GameVersion)
	}

	if p.dryRun {
		printReport(p.stdout, rows, report, p.target)
		fmt.Fprintln(p.stdout, SubtitleStyle.Render("Dry run: would write "+outputPath))
		return nil
	}

	if err := rebuilt.Write(outputPath); err != nil {
		return issue.NewErrorContext().
			WithOperation("write rebuilt pack").
			WithResource(outputPath).
			WithSuggestion("Check that the output directory exists and is writable").
			Wrap(err).
			BuildError()
	}

	if p.cfg.TrackMissing && !p.noTrack {
		if err := recordMissing(p, rows); err != nil {
			fmt.Fprintln(p.stderr, WarningStyle.Render("Warning: ")+
				"missing-items store not updated: "+err.Error())
		}
	}

	printReport(p.stdout, rows, report, p.target)

	if report.Incomplete() {
		fmt.Fprintln(p.stdout, WarningStyle.Render(
			fmt.Sprintf("Wrote %s with %d of %d projects", outputPath, report.Included, len(rows))))
	} else {
		fmt.Fprintln(p.stdout, SuccessStyle.Render("Wrote "+outputPath))
	}

	return nil
}

// printReport renders the markdown update report, falling back to raw
// markdown when the terminal renderer fails.
func printReport(w io.Writer, rows []resolver.Row, report *rebuild.Report, target resolver.Target) {
	md := tui.UpdateReport(rows, report, target)
	if rendered, err := tui.Format(tui.FormatOptions{Content: md, Width: 100}); err == nil {
		fmt.Fprint(w, rendered)
	} else {
		fmt.Fprint(w, md)
	}
}

// deriveOutputPath places the rebuilt pack next to the source, suffixed with
// the target game version: pack.mrpack -> pack-1.21.mrpack.
func deriveOutputPath(packPath, gameVersion string) string {
	dir := filepath.Dir(packPath)
	base := strings.TrimSuffix(filepath.Base(packPath), ".mrpack")
	return filepath.Join(dir, base+"-"+gameVersion+".mrpack")
}

// recordMissing updates the persistent missing-items store from this run's
// rows: unavailable projects are recorded, resolved ones are forgotten.
func recordMissing(p updateParams, rows []resolver.Row) error {
	storePath := p.storePath
	if storePath == "" {
		dataDir, err := config.DataDir()
		if err != nil {
			return err
		}
		storePath = filepath.Join(dataDir, "missing.toml")
	}

	store, err := tracker.Load(storePath)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	targetLabel := p.target.GameVersion + "/" + p.target.Loader
	for _, row := range rows {
		if row.Available {
			store.Forget(row.Project.Identity)
			continue
		}
		store.Record(row.Project.Identity, row.Project.DisplayName(), targetLabel, now)
	}

	return store.Save()
}

// classifyUpdateExitCode maps an update error to the appropriate process exit
// code. Pack and rate-limit problems use exit code 1 (user-correctable); all
// other failures use exit code 2 (unexpected/transient).
func classifyUpdateExitCode(err error) int {
	var rateLimitErr *registry.RateLimitError
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return 1
	case errors.Is(err, mrpack.ErrMissingIndex):
		return 1
	case errors.As(err, &rateLimitErr):
		return 1
	default:
		return 2
	}
}

// formatUpdateError produces a user-friendly error message, attaching the
// rendered issue card for failure modes with a known remediation.
func formatUpdateError(err error, verboseMode bool) string {
	msg := formatErrorForDisplay(err, verboseMode)

	if card := issueCardFor(err); card != "" {
		return msg + "\n" + card
	}
	return msg
}

// issueCardFor maps an error to its rendered issue card, if one exists.
func issueCardFor(err error) string {
	var (
		parseErr     *mrpack.ParseError
		rateLimitErr *registry.RateLimitError
	)

	var id issue.Id
	switch {
	case errors.Is(err, fs.ErrNotExist):
		id = issue.PackNotFoundId
	case errors.Is(err, mrpack.ErrMissingIndex):
		id = issue.PackIndexMissingId
	case errors.As(err, &parseErr):
		id = issue.PackParseErrorId
	case errors.As(err, &rateLimitErr):
		id = issue.RateLimitedId
	default:
		return ""
	}

	iss := issue.Get(id)
	if iss == nil {
		return ""
	}
	rendered, renderErr := iss.Render("auto")
	if renderErr != nil {
		return ""
	}
	return rendered
}
