// SPDX-License-Identifier: MPL-2.0

// Package fallback implements the secondary-source arbiter consulted when the
// primary registry has no matching version for an allow-listed project.
//
// The allow-list is a configuration table mapping a project identity to a
// GitHub repository whose release feed is queried instead. Drafts are always
// discarded, prereleases are discarded unless the rule opts in, and releases
// are examined in the feed's native order (assumed newest-first); the first
// release carrying an asset whose name contains the target game-version token
// at a word boundary wins. No date comparison against the primary source is
// performed.
//
// Fallback results are lower-trust by construction: they carry no verifiable
// digest pair, so they are surfaced in reports but never packaged into a
// rebuilt manifest.
package fallback
