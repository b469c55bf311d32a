// SPDX-License-Identifier: MPL-2.0

// Package rebuild assembles a new modpack manifest from finalized resolution
// rows. Only rows whose chosen candidate is primary-origin and carries a
// complete artifact record (both digests, positive size, a download URL) are
// packaged; everything else lands in the excluded-items report. Original
// paths and environment requirements are reused when an identity maps back
// to an entry of the source pack, and the ambient dependency pins are
// recomputed with a single best-effort loader version lookup.
package rebuild

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/KrisTC/mrpack-updater/internal/registry"
	"github.com/KrisTC/mrpack-updater/internal/resolver"
	"github.com/KrisTC/mrpack-updater/pkg/mrpack"
)

// Reason explains why a row was excluded from the rebuilt manifest.
type Reason string

// Exclusion reasons surfaced in the report.
const (
	ReasonNonPrimarySource   Reason = "non-primary source"
	ReasonIncompleteArtifact Reason = "incomplete artifact metadata"
	ReasonUnavailable        Reason = "not available"
)

// loaderPinKeys maps loader names to their dependency pin key in the manifest.
var loaderPinKeys = map[string]string{
	"fabric":   "fabric-loader",
	"quilt":    "quilt-loader",
	"forge":    "forge",
	"neoforge": "neoforge",
}

type (
	// ExcludedItem is one row left out of the rebuilt manifest.
	ExcludedItem struct {
		Identity string
		Name     string
		Reason   Reason
	}

	// Report summarizes one rebuild: how many rows were packaged, which were
	// excluded and why, and non-fatal notes (for example a failed dependency
	// pin lookup).
	Report struct {
		Included int
		Excluded []ExcludedItem
		Notes    []string
	}

	// Builder rebuilds manifests. The loader meta client backs the single
	// best-effort dependency pin lookup; a nil client skips the lookup and
	// retains previous pins.
	Builder struct {
		loaderMeta *registry.LoaderMetaClient
	}
)

// Incomplete reports whether the rebuild excluded any rows.
func (r *Report) Incomplete() bool {
	return len(r.Excluded) > 0
}

// NewBuilder creates a Builder using the given loader meta client.
func NewBuilder(loaderMeta *registry.LoaderMetaClient) *Builder {
	return &Builder{loaderMeta: loaderMeta}
}

// Build produces the rebuilt pack and its report. The source pack is not
// modified; override entries are carried through verbatim. Build never fails:
// every degradation is an exclusion or a note.
func (b *Builder) Build(ctx context.Context, pack *mrpack.Pack, rows []resolver.Row, target resolver.Target) (*mrpack.Pack, *Report) {
	report := &Report{}

	rebuilt := &mrpack.Pack{
		Index: mrpack.Index{
			FormatVersion: mrpack.FormatVersion,
			Game:          mrpack.DefaultGame,
			VersionID:     pack.Index.VersionID,
			Name:          pack.Index.Name,
			Summary:       pack.Index.Summary,
			Dependencies:  b.rebuildPins(ctx, pack.Index.Dependencies, target, report),
		},
		Overrides: pack.Overrides,
	}

	seenPaths := make(map[string]struct{}, len(rows))
	for i := range rows {
		row := &rows[i]

		file, reason := packageRow(row)
		if reason != "" {
			report.Excluded = append(report.Excluded, ExcludedItem{
				Identity: row.Project.Identity,
				Name:     row.Project.DisplayName(),
				Reason:   reason,
			})
			continue
		}

		// Identity partition makes duplicate paths impossible for reused
		// paths; synthesized paths are uniquified just in case.
		if _, dup := seenPaths[file.Path]; dup {
			file.Path = uniquePath(file.Path, row.Project.Identity)
		}
		seenPaths[file.Path] = struct{}{}

		rebuilt.Index.Files = append(rebuilt.Index.Files, *file)
		report.Included++
	}

	return rebuilt, report
}

// packageRow converts one eligible row into a manifest file entry, or returns
// the exclusion reason.
func packageRow(row *resolver.Row) (*mrpack.File, Reason) {
	if !row.Available {
		return nil, ReasonUnavailable
	}
	if row.Origin != resolver.OriginPrimary {
		return nil, ReasonNonPrimarySource
	}

	artifact := row.Chosen.PrimaryFile()
	if artifact == nil ||
		artifact.Hashes.SHA1 == "" || artifact.Hashes.SHA512 == "" ||
		artifact.Size <= 0 || artifact.URL == "" {
		return nil, ReasonIncompleteArtifact
	}

	file := &mrpack.File{
		Hashes:    mrpack.Hashes{SHA1: artifact.Hashes.SHA1, SHA512: artifact.Hashes.SHA512},
		Downloads: []string{artifact.URL},
		FileSize:  artifact.Size,
	}

	if rep := row.Project.Representative; rep != nil {
		file.Path = rep.Path
		file.Env = rep.Env
	} else {
		file.Path = synthesizePath(&row.Project, artifact)
	}

	return file, ""
}

// synthesizePath builds a deterministic default path for an identity without
// an original manifest entry. Expected to be rare: the pipeline introduces no
// new identities.
func synthesizePath(project *resolver.CanonicalProject, artifact *registry.VersionFile) string {
	base := artifact.Filename
	if base == "" {
		name := project.Slug
		if name == "" {
			name = project.Identity
		}
		base = name + ".jar"
	}
	return path.Join(project.Category.Dir(), base)
}

// uniquePath inserts the identity before the extension to break a path
// collision deterministically.
func uniquePath(p, identity string) string {
	ext := path.Ext(p)
	return strings.TrimSuffix(p, ext) + "-" + identity + ext
}

// rebuildPins recomputes the ambient dependency pins for the target: the
// game version pin is set directly, stale loader pins are dropped, and the
// target loader's pin comes from one best-effort meta lookup. On lookup
// failure the previous pin is retained when one exists, otherwise the pin is
// left unset; either way a note is emitted and the rebuild continues.
func (b *Builder) rebuildPins(ctx context.Context, prev map[string]string, target resolver.Target, report *Report) map[string]string {
	pins := make(map[string]string, len(prev)+2)
	for key, value := range prev {
		if isLoaderPinKey(key) {
			continue
		}
		pins[key] = value
	}

	pins["minecraft"] = target.GameVersion

	loaderKey, ok := loaderPinKeys[target.Loader]
	if !ok {
		report.Notes = append(report.Notes,
			fmt.Sprintf("unknown loader %q: no loader pin written", target.Loader))
		return pins
	}

	previousPin := prev[loaderKey]

	if b.loaderMeta == nil {
		if previousPin != "" {
			pins[loaderKey] = previousPin
		}
		return pins
	}

	version, err := b.loaderMeta.LoaderVersion(ctx, target.Loader)
	if err != nil {
		slog.Warn("loader pin lookup failed", "loader", target.Loader, "error", err)
		if previousPin != "" {
			pins[loaderKey] = previousPin
			report.Notes = append(report.Notes,
				fmt.Sprintf("loader pin lookup failed, retained previous %s pin %s", loaderKey, previousPin))
		} else {
			report.Notes = append(report.Notes,
				fmt.Sprintf("loader pin lookup failed, %s pin left unset", loaderKey))
		}
		return pins
	}

	pins[loaderKey] = version
	return pins
}

// isLoaderPinKey reports whether a dependency pin key belongs to a loader.
// Stale loader pins are dropped so a loader switch leaves no leftover pin.
func isLoaderPinKey(key string) bool {
	for _, pinKey := range loaderPinKeys {
		if key == pinKey {
			return true
		}
	}
	return false
}
