// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/KrisTC/mrpack-updater/internal/fallback"
	"github.com/KrisTC/mrpack-updater/internal/registry"
)

// DefaultConcurrency is the resolution fan-out ceiling when none is configured.
const DefaultConcurrency = 4

// Origin tags which source produced a row's resolution.
type Origin string

// Row origins. Fallback-origin rows are reported but never packaged.
const (
	OriginPrimary  Origin = "primary"
	OriginFallback Origin = "fallback"
)

type (
	// Target is the runtime/loader pair the pack is being updated to.
	Target struct {
		GameVersion string
		Loader      string
	}

	// Row is the finalized resolution result for one canonical project.
	// Rows are never mutated after Resolve returns them.
	Row struct {
		Project   CanonicalProject
		Target    Target
		Available bool
		Origin    Origin
		Chosen    *registry.Version
		Fallback  *fallback.Match

		// Err records a per-project lookup failure. It is informational:
		// a failed project is an unavailable row, not a failed run.
		Err error
	}

	// ProgressFunc receives (completed, total) after each task finishes.
	// Calls are serialized and completed is strictly increasing, reaching
	// total exactly once.
	ProgressFunc func(completed, total int)

	// Options tunes one Resolve run.
	Options struct {
		// Concurrency is the ceiling K on in-flight resolution tasks.
		// Values below 1 fall back to DefaultConcurrency.
		Concurrency int

		Progress ProgressFunc
	}

	// Resolver runs resolution tasks against the registry, consulting the
	// fallback arbiter for allow-listed projects with no primary candidate.
	Resolver struct {
		registry *registry.Client
		arbiter  *fallback.Arbiter
	}
)

// New creates a Resolver. The arbiter may be nil, which disables fallback
// lookups entirely.
func New(client *registry.Client, arbiter *fallback.Arbiter) *Resolver {
	return &Resolver{registry: client, arbiter: arbiter}
}

// Resolve runs one resolution task per project with at most K in flight.
// The returned slice is index-aligned with the input: rows[i] is the result
// for projects[i] regardless of completion order. Task failures degrade to
// unavailable rows; Resolve itself never fails.
func (r *Resolver) Resolve(ctx context.Context, projects []CanonicalProject, target Target, opts Options) []Row {
	limit := opts.Concurrency
	if limit < 1 {
		limit = DefaultConcurrency
	}

	rows := make([]Row, len(projects))
	total := len(projects)

	var (
		eg   errgroup.Group
		mu   sync.Mutex
		done int
	)
	eg.SetLimit(limit)

	for i := range projects {
		eg.Go(func() error {
			// Each task writes only its own slot; the progress counter is
			// the only cross-task state and is updated under the mutex. The
			// callback runs inside the critical section so its (completed,
			// total) pairs are strictly increasing.
			rows[i] = r.resolveOne(ctx, projects[i], target)

			mu.Lock()
			done++
			if opts.Progress != nil {
				opts.Progress(done, total)
			}
			mu.Unlock()
			return nil
		})
	}

	// Tasks always return nil, so Wait only synchronizes.
	_ = eg.Wait()

	return rows
}

// resolveOne is the per-project task body: project metadata and the primary
// candidate listing are fetched concurrently, then the selection policy picks
// the candidate. The fallback arbiter runs only when the primary source has
// no candidate and the project is allow-listed.
func (r *Resolver) resolveOne(ctx context.Context, project CanonicalProject, target Target) Row {
	row := Row{Project: project, Target: target}

	var (
		wg       sync.WaitGroup
		meta     []registry.Project
		versions []registry.Version
		metaErr  error
		verErr   error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		meta, metaErr = r.registry.Projects(ctx, []string{project.Identity})
	}()
	go func() {
		defer wg.Done()
		versions, verErr = r.registry.ProjectVersions(ctx, project.Identity,
			[]string{target.Loader}, []string{target.GameVersion})
	}()
	wg.Wait()

	// Metadata is a display concern: a failed backfill degrades the name,
	// nothing else.
	if metaErr != nil {
		slog.Debug("project metadata lookup failed",
			"project", project.Identity, "error", metaErr)
	} else if len(meta) > 0 {
		row.Project.Title = meta[0].Title
		row.Project.Slug = meta[0].Slug
	}

	if verErr != nil {
		slog.Warn("version listing failed, marking project unavailable",
			"project", project.Identity, "error", verErr)
		row.Err = verErr
		return row
	}

	if chosen := SelectVersion(versions); chosen != nil {
		row.Available = true
		row.Origin = OriginPrimary
		row.Chosen = chosen
		return row
	}

	if r.arbiter == nil || !r.arbiter.Allowed(project.Identity) {
		return row
	}

	match, err := r.arbiter.Resolve(ctx, project.Identity, target.GameVersion)
	if err != nil {
		slog.Warn("fallback lookup failed",
			"project", project.Identity, "error", err)
		row.Err = err
		return row
	}

	row.Available = true
	row.Origin = OriginFallback
	row.Fallback = match
	return row
}
