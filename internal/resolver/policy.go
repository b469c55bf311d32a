// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"slices"

	"github.com/KrisTC/mrpack-updater/internal/registry"
)

// SelectVersion picks exactly one version from candidates already restricted
// to the target game version and loader. Ordering: stability tier descending
// (release > beta > other), then publish time descending, with residual ties
// keeping the provider-supplied order (stable sort, earliest-listed wins).
// Returns nil for an empty candidate set.
func SelectVersion(candidates []registry.Version) *registry.Version {
	if len(candidates) == 0 {
		return nil
	}

	ranked := slices.Clone(candidates)
	slices.SortStableFunc(ranked, func(a, b registry.Version) int {
		if d := b.StabilityRank() - a.StabilityRank(); d != 0 {
			return d
		}
		return b.DatePublished.Compare(a.DatePublished)
	})

	return &ranked[0]
}
