// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"strings"

	"github.com/KrisTC/mrpack-updater/internal/registry"
	"github.com/KrisTC/mrpack-updater/pkg/mrpack"
)

// Category classifies a canonical project by where its artifact lives in the
// pack layout.
type Category string

// Known categories. Anything outside the recognized pack directories is a mod.
const (
	CategoryMod          Category = "mod"
	CategoryResourcePack Category = "resource-pack"
	CategoryShaderPack   Category = "shader-pack"
)

// categoryRoots maps pack directory prefixes to categories. Matching is
// case-sensitive and first match wins.
var categoryRoots = []struct {
	prefix   string
	category Category
}{
	{"resourcepacks/", CategoryResourcePack},
	{"shaderpacks/", CategoryShaderPack},
}

// Dir returns the pack directory artifacts of this category are placed in.
func (c Category) Dir() string {
	switch c {
	case CategoryResourcePack:
		return "resourcepacks"
	case CategoryShaderPack:
		return "shaderpacks"
	default:
		return "mods"
	}
}

// CategoryForPath classifies a manifest path by its directory prefix.
func CategoryForPath(path string) Category {
	for _, root := range categoryRoots {
		if strings.HasPrefix(path, root.prefix) {
			return root.category
		}
	}
	return CategoryMod
}

// CanonicalProject is the stable owning entity behind one or more pinned
// files in the pack. Identity is the registry project ID; Title and Slug are
// backfilled once from project metadata when available.
type CanonicalProject struct {
	Identity string
	Category Category

	// Representative is the first manifest entry observed for this identity.
	// It supplies the display name fallback and the path/env reused on rebuild.
	Representative *mrpack.File

	// PriorVersion is the currently pinned version that resolved from the
	// representative entry's hash.
	PriorVersion registry.Version

	Title string
	Slug  string
}

// DisplayName returns the best available human-readable name: backfilled
// title, then slug, then the representative file's path, then the identity.
func (p *CanonicalProject) DisplayName() string {
	switch {
	case p.Title != "":
		return p.Title
	case p.Slug != "":
		return p.Slug
	case p.Representative != nil && p.Representative.Path != "":
		return p.Representative.Path
	default:
		return p.Identity
	}
}

// Aggregate collapses hash resolution results into unique canonical projects.
// Files are visited in manifest order; the first file whose hash resolved to
// an identity becomes that identity's representative, and later files mapping
// to the same identity are ignored. Unresolved hashes contribute nothing.
// The output order is the order of first appearance, so aggregation over any
// permutation of the same resolution map yields the same project set.
func Aggregate(pack *mrpack.Pack, resolved map[string]registry.Version) []CanonicalProject {
	seen := make(map[string]struct{}, len(resolved))
	projects := make([]CanonicalProject, 0, len(resolved))

	for i := range pack.Index.Files {
		file := &pack.Index.Files[i]
		version, ok := resolved[file.Hashes.SHA1]
		if !ok {
			continue
		}
		if _, dup := seen[version.ProjectID]; dup {
			continue
		}
		seen[version.ProjectID] = struct{}{}

		projects = append(projects, CanonicalProject{
			Identity:       version.ProjectID,
			Category:       CategoryForPath(file.Path),
			Representative: file,
			PriorVersion:   version,
		})
	}

	return projects
}
