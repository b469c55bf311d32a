// SPDX-License-Identifier: MPL-2.0

package registry

import "time"

// Version stability tiers as reported by the API.
const (
	VersionTypeRelease = "release"
	VersionTypeBeta    = "beta"
	VersionTypeAlpha   = "alpha"
)

type (
	// Project is the metadata of a canonical Modrinth project.
	Project struct {
		ID          string `json:"id"`
		Slug        string `json:"slug"`
		Title       string `json:"title"`
		ProjectType string `json:"project_type"`
	}

	// Version is one published version of a project, with its downloadable files.
	Version struct {
		ID            string        `json:"id"`
		ProjectID     string        `json:"project_id"`
		Name          string        `json:"name"`
		VersionNumber string        `json:"version_number"`
		VersionType   string        `json:"version_type"`
		DatePublished time.Time     `json:"date_published"`
		GameVersions  []string      `json:"game_versions"`
		Loaders       []string      `json:"loaders"`
		Files         []VersionFile `json:"files"`
	}

	// VersionFile is a single downloadable artifact of a version.
	VersionFile struct {
		Hashes   FileHashes `json:"hashes"`
		URL      string     `json:"url"`
		Filename string     `json:"filename"`
		Primary  bool       `json:"primary"`
		Size     int64      `json:"size"`
	}

	// FileHashes is the digest pair the API reports for a version file.
	FileHashes struct {
		SHA1   string `json:"sha1"`
		SHA512 string `json:"sha512"`
	}
)

// PrimaryFile returns the file flagged primary, falling back to the first
// file when the API marks none. Returns nil for a version without files.
func (v *Version) PrimaryFile() *VersionFile {
	for i := range v.Files {
		if v.Files[i].Primary {
			return &v.Files[i]
		}
	}
	if len(v.Files) > 0 {
		return &v.Files[0]
	}
	return nil
}

// StabilityRank maps the version type onto the ordinal used for version
// selection: release=3, beta=2, anything else (alpha, unknown)=1.
func (v *Version) StabilityRank() int {
	switch v.VersionType {
	case VersionTypeRelease:
		return 3
	case VersionTypeBeta:
		return 2
	default:
		return 1
	}
}
