// SPDX-License-Identifier: MPL-2.0

package mrpack

import (
	"errors"
	"fmt"
	"io/fs"
)

const (
	// IndexFileName is the manifest entry every .mrpack archive must contain.
	IndexFileName = "modrinth.index.json"

	// FormatVersion is the manifest format version this package reads and writes.
	FormatVersion = 1

	// DefaultGame is the game identifier written into rebuilt manifests.
	DefaultGame = "minecraft"
)

// Environment requirement values for File.Env sides.
const (
	EnvRequired    = "required"
	EnvOptional    = "optional"
	EnvUnsupported = "unsupported"
)

// ErrMissingIndex is returned when an archive opens cleanly but contains no
// modrinth.index.json entry.
var ErrMissingIndex = errors.New("archive contains no " + IndexFileName)

type (
	// Index is the decoded modrinth.index.json manifest.
	Index struct {
		FormatVersion int               `json:"formatVersion"`
		Game          string            `json:"game"`
		VersionID     string            `json:"versionId"`
		Name          string            `json:"name"`
		Summary       string            `json:"summary,omitempty"`
		Files         []File            `json:"files"`
		Dependencies  map[string]string `json:"dependencies"`
	}

	// File is one pinned, content-addressed entry in the manifest.
	// Entries are immutable once loaded.
	File struct {
		Path      string   `json:"path"`
		Hashes    Hashes   `json:"hashes"`
		Env       *Env     `json:"env,omitempty"`
		Downloads []string `json:"downloads"`
		FileSize  int64    `json:"fileSize"`
	}

	// Hashes holds the digest pair identifying a file's content.
	Hashes struct {
		SHA1   string `json:"sha1"`
		SHA512 string `json:"sha512"`
	}

	// Env is the per-side environment requirement of a file.
	// Each side is one of EnvRequired, EnvOptional, or EnvUnsupported.
	Env struct {
		Client string `json:"client"`
		Server string `json:"server"`
	}

	// Override is a non-manifest archive entry (configs, resource overrides)
	// carried through a rebuild verbatim.
	Override struct {
		Name string
		Mode fs.FileMode
		Data []byte
	}

	// Pack is a fully loaded .mrpack archive: the manifest plus the override
	// entries in their original archive order.
	Pack struct {
		Index     Index
		Overrides []Override
	}
)

// ParseError indicates the archive or its manifest could not be decoded.
// It wraps the underlying zip or JSON error.
type ParseError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing modpack %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// HashIndex maps each file's SHA-1 digest to its manifest entry. When two
// entries share a digest the first one in manifest order wins, so every hash
// maps to at most one entry. Entries without a SHA-1 digest are skipped.
func (p *Pack) HashIndex() map[string]*File {
	idx := make(map[string]*File, len(p.Index.Files))
	for i := range p.Index.Files {
		f := &p.Index.Files[i]
		if f.Hashes.SHA1 == "" {
			continue
		}
		if _, ok := idx[f.Hashes.SHA1]; !ok {
			idx[f.Hashes.SHA1] = f
		}
	}
	return idx
}

// Hashes returns the distinct SHA-1 digests of the pack's files, in manifest
// order. An empty manifest yields an empty (non-nil) slice.
func (p *Pack) Hashes() []string {
	seen := make(map[string]struct{}, len(p.Index.Files))
	hashes := make([]string, 0, len(p.Index.Files))
	for i := range p.Index.Files {
		h := p.Index.Files[i].Hashes.SHA1
		if h == "" {
			continue
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		hashes = append(hashes, h)
	}
	return hashes
}
