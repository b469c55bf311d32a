// SPDX-License-Identifier: MPL-2.0

// Package mrpack reads and writes Modrinth modpack archives (.mrpack).
//
// An .mrpack archive is a ZIP file containing a modrinth.index.json manifest
// plus optional override files (configs, scripts, and other pack assets that
// are not content-addressed). The manifest pins every included artifact by
// path, SHA-1/SHA-512 digest, size, download URLs, and per-side environment
// requirement, and records ambient dependency pins (game version, loader
// version) in a flat map.
//
// The package exposes the manifest as plain data: loading never mutates the
// archive, and writing produces a fresh archive from an Index plus the
// recorded overrides.
package mrpack
