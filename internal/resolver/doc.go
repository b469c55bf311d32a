// SPDX-License-Identifier: MPL-2.0

// Package resolver is the core of the pack update pipeline: it collapses
// resolved content hashes into a deduplicated set of canonical projects,
// fans out one resolution task per project under a concurrency ceiling, and
// applies the deterministic version selection policy to each project's
// candidates for the target game version and loader.
//
// The scheduler guarantees slot-stable output: result row i always
// corresponds to input project i, no matter in which order tasks complete.
// Task failures never abort the run; a failing project degrades to an
// unavailable row and the remaining queue keeps draining.
package resolver
