// SPDX-License-Identifier: MPL-2.0

package mrpack

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// maxIndexBytes is the upper bound on manifest size (50 MB). Prevents
// unbounded memory consumption from a malformed archive entry.
const maxIndexBytes = 50 << 20

// Load opens an .mrpack archive from disk and decodes its manifest.
// An unreadable archive yields a *ParseError; an archive without a
// modrinth.index.json entry yields ErrMissingIndex.
func Load(path string) (*Pack, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	defer r.Close()

	return readArchive(&r.Reader, path)
}

// Read decodes an .mrpack archive from an in-memory reader. The name
// parameter is used only for error messages.
func Read(ra io.ReaderAt, size int64, name string) (*Pack, error) {
	r, err := zip.NewReader(ra, size)
	if err != nil {
		return nil, &ParseError{Path: name, Err: err}
	}
	return readArchive(r, name)
}

func readArchive(r *zip.Reader, name string) (*Pack, error) {
	pack := &Pack{}
	foundIndex := false

	for _, entry := range r.File {
		if strings.HasSuffix(entry.Name, "/") {
			continue
		}

		if entry.Name == IndexFileName {
			if err := decodeIndex(entry, &pack.Index); err != nil {
				return nil, &ParseError{Path: name, Err: err}
			}
			foundIndex = true
			continue
		}

		data, err := readEntry(entry)
		if err != nil {
			return nil, &ParseError{Path: name, Err: err}
		}
		pack.Overrides = append(pack.Overrides, Override{
			Name: entry.Name,
			Mode: entry.Mode(),
			Data: data,
		})
	}

	if !foundIndex {
		return nil, ErrMissingIndex
	}

	return pack, nil
}

func decodeIndex(entry *zip.File, index *Index) error {
	rc, err := entry.Open()
	if err != nil {
		return fmt.Errorf("opening %s: %w", entry.Name, err)
	}
	defer rc.Close()

	if err := json.NewDecoder(io.LimitReader(rc, maxIndexBytes)).Decode(index); err != nil {
		return fmt.Errorf("decoding %s: %w", entry.Name, err)
	}
	return nil
}

func readEntry(entry *zip.File) ([]byte, error) {
	rc, err := entry.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", entry.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", entry.Name, err)
	}
	return data, nil
}

// Write assembles the pack into an .mrpack archive at the given path.
// The manifest is written first, then the overrides in recorded order, so
// rebuilding the same pack twice produces identical entry layouts. The
// archive is written to a temp file and renamed into place.
func (p *Pack) Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating archive: %w", err)
	}

	if err := p.writeEntries(f); err != nil {
		f.Close()
		_ = os.Remove(tmpPath)
		return err
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("closing archive: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath) // Best-effort cleanup of temp file
		return fmt.Errorf("renaming archive: %w", err)
	}
	return nil
}

func (p *Pack) writeEntries(w io.Writer) error {
	zw := zip.NewWriter(w)

	indexData, err := json.MarshalIndent(&p.Index, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", IndexFileName, err)
	}

	entry, err := zw.Create(IndexFileName)
	if err != nil {
		return fmt.Errorf("creating %s entry: %w", IndexFileName, err)
	}
	if _, err := entry.Write(indexData); err != nil {
		return fmt.Errorf("writing %s: %w", IndexFileName, err)
	}

	for _, ov := range p.Overrides {
		header := &zip.FileHeader{
			Name:   ov.Name,
			Method: zip.Deflate,
		}
		header.SetMode(ov.Mode)

		entry, err := zw.CreateHeader(header)
		if err != nil {
			return fmt.Errorf("creating override entry %s: %w", ov.Name, err)
		}
		if _, err := entry.Write(ov.Data); err != nil {
			return fmt.Errorf("writing override %s: %w", ov.Name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalizing archive: %w", err)
	}
	return nil
}
