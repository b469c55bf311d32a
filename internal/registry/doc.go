// SPDX-License-Identifier: MPL-2.0

// Package registry is the HTTP client layer for the Modrinth API and the
// loader meta services.
//
// Three lookups back the resolution pipeline: a batched hash-to-version
// resolution (POST /version_files), batched project metadata (GET /projects),
// and per-project version listings filtered by loader and game version
// (GET /project/{id}/version). A fourth, best-effort lookup against a loader
// meta service resolves the ambient loader version pin for rebuilt packs.
//
// All responses are size-limited and rate-limit headers are surfaced as
// typed errors. The client never retries; callers decide how a failed lookup
// degrades.
package registry
