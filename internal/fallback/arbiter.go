// SPDX-License-Identifier: MPL-2.0

package fallback

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotAllowListed is returned when a project has no fallback rule.
	ErrNotAllowListed = errors.New("project has no fallback rule")

	// ErrNoMatch is returned when the feed has no release with a matching asset.
	ErrNoMatch = errors.New("no fallback release matches the target version")
)

type (
	// Rule maps one project identity to the GitHub repository consulted when
	// the primary registry has no match. Prereleases are skipped unless the
	// rule opts in.
	Rule struct {
		Owner              string
		Repo               string
		IncludePrereleases bool
	}

	// Match is a successful fallback resolution: the release that satisfied
	// the version-token match and the asset that matched.
	Match struct {
		Release Release
		Asset   Asset
		Rule    Rule
	}

	// Arbiter consults GitHub release feeds for allow-listed projects only.
	Arbiter struct {
		client *FeedClient
		rules  map[string]Rule
	}
)

// NewArbiter creates an Arbiter over the given identity-to-rule table.
// A nil table yields an arbiter that rejects every project.
func NewArbiter(rules map[string]Rule, opts ...FeedOption) *Arbiter {
	return &Arbiter{
		client: NewFeedClient(opts...),
		rules:  rules,
	}
}

// Allowed reports whether the project identity has a fallback rule.
// Callers use this to skip the arbiter entirely for unlisted projects.
func (a *Arbiter) Allowed(identity string) bool {
	_, ok := a.rules[identity]
	return ok
}

// Resolve queries the fallback feed for the given project and returns the
// first release, in feed order, carrying an asset whose name contains the
// target game-version token at a word boundary. The feed is assumed
// newest-first; no date comparison is performed.
func (a *Arbiter) Resolve(ctx context.Context, identity, gameVersion string) (*Match, error) {
	rule, ok := a.rules[identity]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotAllowListed, identity)
	}

	releases, err := a.client.Releases(ctx, rule.Owner, rule.Repo)
	if err != nil {
		return nil, fmt.Errorf("fallback lookup for %s: %w", identity, err)
	}

	for i := range releases {
		rel := &releases[i]
		if rel.Prerelease && !rule.IncludePrereleases {
			continue
		}
		for j := range rel.Assets {
			if matchesToken(rel.Assets[j].Name, gameVersion) {
				return &Match{Release: *rel, Asset: rel.Assets[j], Rule: rule}, nil
			}
		}
	}

	return nil, fmt.Errorf("%w: %s for %s", ErrNoMatch, identity, gameVersion)
}

// matchesToken reports whether name contains token delimited by word
// boundaries. A boundary is any non-alphanumeric character or the string
// edge, except that a dot followed by a digit continues a version token, so
// "1.21" does not match inside "1.21.1".
func matchesToken(name, token string) bool {
	if token == "" {
		return false
	}

	for start := 0; ; {
		idx := strings.Index(name[start:], token)
		if idx < 0 {
			return false
		}
		idx += start
		end := idx + len(token)

		if boundaryBefore(name, idx) && boundaryAfter(name, end) {
			return true
		}
		start = idx + 1
	}
}

func boundaryBefore(s string, idx int) bool {
	if idx == 0 {
		return true
	}
	return !isAlphanumeric(s[idx-1])
}

func boundaryAfter(s string, end int) bool {
	if end == len(s) {
		return true
	}
	if isAlphanumeric(s[end]) {
		return false
	}
	// "1.21" inside "1.21.4" is a version prefix, not a word match.
	if s[end] == '.' && end+1 < len(s) && s[end+1] >= '0' && s[end+1] <= '9' {
		return false
	}
	return true
}

func isAlphanumeric(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
