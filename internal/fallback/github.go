// SPDX-License-Identifier: MPL-2.0

package fallback

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	// defaultPerPage is the number of releases fetched per API page.
	defaultPerPage = 30

	// maxPages is the upper bound on pagination to avoid runaway requests.
	maxPages = 3

	// maxJSONResponseBytes is the upper bound on JSON API response size (10 MB).
	maxJSONResponseBytes = 10 << 20
)

type (
	// Release is one entry of a GitHub release feed.
	Release struct {
		TagName    string
		Name       string
		Prerelease bool
		Draft      bool
		Assets     []Asset
		HTMLURL    string
		CreatedAt  string
	}

	// Asset is a single downloadable file attached to a release.
	Asset struct {
		Name               string
		BrowserDownloadURL string
		Size               int64
		ContentType        string
	}

	// githubRelease is the JSON wire format for a GitHub Release API response.
	githubRelease struct {
		TagName    string        `json:"tag_name"`
		Name       string        `json:"name"`
		Prerelease bool          `json:"prerelease"`
		Draft      bool          `json:"draft"`
		HTMLURL    string        `json:"html_url"`
		CreatedAt  string        `json:"created_at"`
		Assets     []githubAsset `json:"assets"`
	}

	// githubAsset is the JSON wire format for a GitHub Release asset.
	githubAsset struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
		Size               int64  `json:"size"`
		ContentType        string `json:"content_type"`
	}

	// FeedClient fetches release feeds from the GitHub API.
	FeedClient struct {
		httpClient *http.Client
		baseURL    string // API base URL (default: "https://api.github.com", overridable for tests)
		userAgent  string
	}

	// FeedOption configures a FeedClient during construction.
	FeedOption func(*FeedClient)
)

// WithHTTPClient sets a custom HTTP client, useful for tests or proxy configurations.
func WithHTTPClient(c *http.Client) FeedOption {
	return func(f *FeedClient) {
		f.httpClient = c
	}
}

// WithBaseURL overrides the GitHub API base URL, primarily for test servers.
func WithBaseURL(base string) FeedOption {
	return func(f *FeedClient) {
		f.baseURL = strings.TrimRight(base, "/")
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) FeedOption {
	return func(f *FeedClient) {
		f.userAgent = ua
	}
}

// NewFeedClient creates a FeedClient with sensible defaults.
func NewFeedClient(opts ...FeedOption) *FeedClient {
	f := &FeedClient{
		httpClient: http.DefaultClient,
		baseURL:    "https://api.github.com",
		userAgent:  "mrpack-updater/dev",
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Releases fetches the release feed of one repository in the feed's native
// order, which GitHub documents as newest-first. Drafts are dropped here;
// prerelease filtering is left to the arbiter so a rule can opt in. No
// re-sorting is applied — downstream matching depends on feed order.
func (f *FeedClient) Releases(ctx context.Context, owner, repo string) ([]Release, error) {
	pageURL := fmt.Sprintf("%s/repos/%s/%s/releases?per_page=%d",
		f.baseURL, owner, repo, defaultPerPage)

	var all []Release

	for page := 0; page < maxPages && pageURL != ""; page++ {
		resp, reqErr := f.doRequest(ctx, pageURL)
		if reqErr != nil {
			return nil, fmt.Errorf("listing releases for %s/%s: %w", owner, repo, reqErr)
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("listing releases for %s/%s: unexpected status %d", owner, repo, resp.StatusCode)
		}

		releases, parseErr := parseReleases(io.LimitReader(resp.Body, maxJSONResponseBytes))
		nextURL := parseLinkHeader(resp.Header.Get("Link"))
		resp.Body.Close()
		if parseErr != nil {
			return nil, fmt.Errorf("listing releases for %s/%s: %w", owner, repo, parseErr)
		}

		for i := range releases {
			if !releases[i].Draft {
				all = append(all, releases[i])
			}
		}

		pageURL = nextURL
	}

	return all, nil
}

func (f *FeedClient) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}

	return resp, nil
}

// parseReleases decodes a JSON array of GitHub releases from the response body.
func parseReleases(body io.Reader) ([]Release, error) {
	var raw []githubRelease
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding releases: %w", err)
	}

	releases := make([]Release, 0, len(raw))
	for _, gr := range raw {
		releases = append(releases, toRelease(gr))
	}
	return releases, nil
}

// parseLinkHeader extracts the URL for the "next" page from a GitHub API Link header.
// Returns an empty string if no next page exists.
//
// Example header: <https://api.github.com/...?page=2>; rel="next", <...>; rel="last"
func parseLinkHeader(header string) string {
	if header == "" {
		return ""
	}

	for part := range strings.SplitSeq(header, ",") {
		part = strings.TrimSpace(part)
		if !strings.Contains(part, `rel="next"`) {
			continue
		}

		start := strings.Index(part, "<")
		end := strings.Index(part, ">")
		if start >= 0 && end > start {
			return part[start+1 : end]
		}
	}

	return ""
}

// toRelease converts the internal JSON wire type to the exported Release type.
// Asset fields are identical between githubAsset and Asset (ignoring struct
// tags), so Go permits direct type conversion.
func toRelease(gr githubRelease) Release {
	assets := make([]Asset, 0, len(gr.Assets))
	for _, ga := range gr.Assets {
		assets = append(assets, Asset(ga))
	}

	return Release{
		TagName:    gr.TagName,
		Name:       gr.Name,
		Prerelease: gr.Prerelease,
		Draft:      gr.Draft,
		Assets:     assets,
		HTMLURL:    gr.HTMLURL,
		CreatedAt:  gr.CreatedAt,
	}
}
