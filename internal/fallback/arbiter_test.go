// SPDX-License-Identifier: MPL-2.0

package fallback

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func feedServer(t *testing.T, releases []githubRelease) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(releases); err != nil {
			t.Errorf("encoding releases: %v", err)
		}
	}))
}

func TestResolve_NotAllowListed(t *testing.T) {
	t.Parallel()

	arbiter := NewArbiter(nil)
	_, err := arbiter.Resolve(context.Background(), "some-project", "1.21")
	if !errors.Is(err, ErrNotAllowListed) {
		t.Fatalf("got error %v, want ErrNotAllowListed", err)
	}
}

func TestResolve_FirstMatchingReleaseInFeedOrder(t *testing.T) {
	t.Parallel()

	// The feed is newest-first; the arbiter must take the first release with
	// a matching asset and never re-sort.
	releases := []githubRelease{
		{
			TagName: "v9.0", Draft: true,
			Assets: []githubAsset{{Name: "optifine-1.21.jar"}},
		},
		{
			TagName: "v8.0", Prerelease: true,
			Assets: []githubAsset{{Name: "optifine-1.21.jar"}},
		},
		{
			TagName: "v7.0",
			Assets:  []githubAsset{{Name: "optifine-1.20.4.jar"}},
		},
		{
			TagName: "v6.0",
			Assets:  []githubAsset{{Name: "optifine-1.21.jar", BrowserDownloadURL: "https://example.com/v6"}},
		},
		{
			TagName: "v5.0",
			Assets:  []githubAsset{{Name: "optifine-1.21.jar"}},
		},
	}
	srv := feedServer(t, releases)
	defer srv.Close()

	arbiter := NewArbiter(
		map[string]Rule{"optifine": {Owner: "sp614x", Repo: "optifine"}},
		WithBaseURL(srv.URL),
	)

	match, err := arbiter.Resolve(context.Background(), "optifine", "1.21")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Draft (v9.0) always skipped, prerelease (v8.0) skipped by default,
	// v7.0 has no matching asset, so v6.0 wins over the older v5.0.
	if match.Release.TagName != "v6.0" {
		t.Errorf("got release %q, want v6.0", match.Release.TagName)
	}
	if match.Asset.BrowserDownloadURL != "https://example.com/v6" {
		t.Errorf("got asset URL %q, want the v6.0 asset", match.Asset.BrowserDownloadURL)
	}
}

func TestResolve_PrereleaseOptIn(t *testing.T) {
	t.Parallel()

	releases := []githubRelease{
		{
			TagName: "v2.0-rc1", Prerelease: true,
			Assets: []githubAsset{{Name: "mod-1.21.jar"}},
		},
	}
	srv := feedServer(t, releases)
	defer srv.Close()

	arbiter := NewArbiter(
		map[string]Rule{"mod": {Owner: "o", Repo: "r", IncludePrereleases: true}},
		WithBaseURL(srv.URL),
	)

	match, err := arbiter.Resolve(context.Background(), "mod", "1.21")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if match.Release.TagName != "v2.0-rc1" {
		t.Errorf("got release %q, want v2.0-rc1", match.Release.TagName)
	}
}

func TestResolve_NoMatch(t *testing.T) {
	t.Parallel()

	releases := []githubRelease{
		{TagName: "v1.0", Assets: []githubAsset{{Name: "mod-1.19.jar"}}},
	}
	srv := feedServer(t, releases)
	defer srv.Close()

	arbiter := NewArbiter(
		map[string]Rule{"mod": {Owner: "o", Repo: "r"}},
		WithBaseURL(srv.URL),
	)

	_, err := arbiter.Resolve(context.Background(), "mod", "1.21")
	if !errors.Is(err, ErrNoMatch) {
		t.Fatalf("got error %v, want ErrNoMatch", err)
	}
}

func TestMatchesToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"mod-1.21.jar", "1.21", true},
		{"mod_1.21_final.zip", "1.21", true},
		{"1.21-pack.jar", "1.21", true},
		{"mod-1.21", "1.21", true},
		{"mod-1.21.4.jar", "1.21", false},  // version prefix, not a word match
		{"mod-11.21.jar", "1.21", false},   // not at a word boundary
		{"mod-1.215.jar", "1.21", false},   // digit continues the token
		{"mod-1.20.jar", "1.21", false},    // different version
		{"mod-1.21-and-1.21.4.jar", "1.21", true}, // first occurrence matches
		{"anything", "", false},
	}

	for _, tt := range tests {
		if got := matchesToken(tt.name, tt.token); got != tt.want {
			t.Errorf("matchesToken(%q, %q) = %v, want %v", tt.name, tt.token, got, tt.want)
		}
	}
}

func TestReleases_DropsDraftsKeepsOrder(t *testing.T) {
	t.Parallel()

	releases := []githubRelease{
		{TagName: "v3.0", Draft: true},
		{TagName: "v1.5"}, // deliberately out of semver order
		{TagName: "v2.0"},
	}
	srv := feedServer(t, releases)
	defer srv.Close()

	client := NewFeedClient(WithBaseURL(srv.URL))
	got, err := client.Releases(context.Background(), "o", "r")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Draft dropped; the feed's native order preserved, no semver re-sort.
	if len(got) != 2 {
		t.Fatalf("got %d releases, want 2", len(got))
	}
	if got[0].TagName != "v1.5" || got[1].TagName != "v2.0" {
		t.Errorf("feed order not preserved: %q, %q", got[0].TagName, got[1].TagName)
	}
}
