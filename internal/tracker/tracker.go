// SPDX-License-Identifier: MPL-2.0

// Package tracker persists identities that failed to resolve across runs, so
// repeated updates can show which items have been missing before. It is a
// layer above the resolution core: the core hands it plain report data and
// never reads it back.
//
// The store is a schema-versioned TOML file. Version 1 held a bare identity
// list; version 2 keeps one entry per identity with a display name, the
// target it was missing for, and first/last seen timestamps. Loading a v1
// file upgrades it in memory; the next save writes v2.
package tracker

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// SchemaVersion is the store format version this package writes.
const SchemaVersion = 2

// ErrUnsupportedSchema is returned when the store file declares a schema
// version newer than this package understands.
var ErrUnsupportedSchema = errors.New("unsupported missing-items schema version")

type (
	// Entry is one missing identity with its display context.
	Entry struct {
		Name      string    `toml:"name"`
		Target    string    `toml:"target"`
		FirstSeen time.Time `toml:"first_seen,omitempty"`
		LastSeen  time.Time `toml:"last_seen,omitempty"`
	}

	// Store is the loaded missing-items file. Mutations happen in memory;
	// Save writes the file atomically.
	Store struct {
		path    string
		entries map[string]Entry
	}

	// document is the v2 TOML wire format.
	document struct {
		SchemaVersion int              `toml:"schema_version"`
		Entries       map[string]Entry `toml:"entries,omitempty"`
	}

	// legacyDocument is the v1 TOML wire format: a bare identity list.
	legacyDocument struct {
		SchemaVersion int      `toml:"schema_version"`
		Identities    []string `toml:"identities,omitempty"`
	}
)

// NewStore returns an empty store not bound to a file.
func NewStore() *Store {
	return &Store{entries: make(map[string]Entry)}
}

// Load reads the store at path. A missing file yields an empty store; a v1
// file is upgraded in memory.
func Load(path string) (*Store, error) {
	store := &Store{path: path, entries: make(map[string]Entry)}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return store, nil
		}
		return nil, fmt.Errorf("reading missing-items store: %w", err)
	}

	var doc document
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding missing-items store: %w", err)
	}

	switch {
	case doc.SchemaVersion <= 1:
		var legacy legacyDocument
		if err := toml.Unmarshal(data, &legacy); err != nil {
			return nil, fmt.Errorf("decoding v1 missing-items store: %w", err)
		}
		for _, identity := range legacy.Identities {
			store.entries[identity] = Entry{Name: identity}
		}
	case doc.SchemaVersion == SchemaVersion:
		for identity, entry := range doc.Entries {
			store.entries[identity] = entry
		}
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedSchema, doc.SchemaVersion)
	}

	return store, nil
}

// Record marks an identity missing for the given target. FirstSeen is kept
// from the earliest recording; LastSeen and the display context are refreshed.
func (s *Store) Record(identity, name, target string, now time.Time) {
	entry, ok := s.entries[identity]
	if !ok {
		entry = Entry{FirstSeen: now}
	}
	if entry.FirstSeen.IsZero() {
		entry.FirstSeen = now
	}
	entry.Name = name
	entry.Target = target
	entry.LastSeen = now
	s.entries[identity] = entry
}

// Forget drops an identity, typically because it resolved successfully.
func (s *Store) Forget(identity string) {
	delete(s.entries, identity)
}

// Clear empties the store.
func (s *Store) Clear() {
	s.entries = make(map[string]Entry)
}

// Len returns the number of recorded identities.
func (s *Store) Len() int {
	return len(s.entries)
}

// Entry returns the entry for an identity, if recorded.
func (s *Store) Entry(identity string) (Entry, bool) {
	entry, ok := s.entries[identity]
	return entry, ok
}

// Identities returns the recorded identities in sorted order.
func (s *Store) Identities() []string {
	ids := make([]string, 0, len(s.entries))
	for identity := range s.entries {
		ids = append(ids, identity)
	}
	sort.Strings(ids)
	return ids
}

// Save writes the store atomically as schema v2.
func (s *Store) Save() error {
	doc := document{SchemaVersion: SchemaVersion}
	if len(s.entries) > 0 {
		doc.Entries = s.entries
	}

	data, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding missing-items store: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("writing missing-items store: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath) // Best-effort cleanup of temp file
		return fmt.Errorf("renaming missing-items store: %w", err)
	}
	return nil
}
