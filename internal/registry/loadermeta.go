// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"golang.org/x/mod/semver"
)

// ErrNoMetaEndpoint is returned when no meta service is known for a loader.
var ErrNoMetaEndpoint = errors.New("no meta endpoint configured for loader")

// defaultLoaderEndpoints maps loader names to their meta service base URLs.
// Only loaders with a Fabric-style /versions/loader feed are listed; pin
// lookups for other loaders fail soft and the previous pin is retained.
var defaultLoaderEndpoints = map[string]string{
	"fabric": "https://meta.fabricmc.net/v2",
	"quilt":  "https://meta.quiltmc.org/v3",
}

type (
	// LoaderMetaClient resolves the current loader component version from a
	// loader meta service. It backs the single best-effort dependency pin
	// lookup performed during a rebuild.
	LoaderMetaClient struct {
		httpClient *http.Client
		endpoints  map[string]string
		userAgent  string
	}

	// LoaderMetaOption configures a LoaderMetaClient during construction.
	LoaderMetaOption func(*LoaderMetaClient)

	// loaderVersion is the wire format of one /versions/loader feed entry.
	loaderVersion struct {
		Version string `json:"version"`
		Stable  bool   `json:"stable"`
	}
)

// WithLoaderHTTPClient sets a custom HTTP client.
func WithLoaderHTTPClient(c *http.Client) LoaderMetaOption {
	return func(l *LoaderMetaClient) {
		l.httpClient = c
	}
}

// WithLoaderEndpoint overrides or adds the meta base URL for one loader,
// primarily for test servers.
func WithLoaderEndpoint(loader, base string) LoaderMetaOption {
	return func(l *LoaderMetaClient) {
		l.endpoints[loader] = strings.TrimRight(base, "/")
	}
}

// NewLoaderMetaClient creates a LoaderMetaClient with the default endpoint table.
func NewLoaderMetaClient(opts ...LoaderMetaOption) *LoaderMetaClient {
	l := &LoaderMetaClient{
		httpClient: http.DefaultClient,
		endpoints:  make(map[string]string, len(defaultLoaderEndpoints)),
		userAgent:  "mrpack-updater/dev",
	}
	for loader, base := range defaultLoaderEndpoints {
		l.endpoints[loader] = base
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoaderVersion returns the newest stable loader component version for the
// given loader. Entries are ordered by semantic version descending before the
// first stable one is picked; feeds without any stable entry fall back to the
// newest entry.
func (l *LoaderMetaClient) LoaderVersion(ctx context.Context, loader string) (string, error) {
	base, ok := l.endpoints[loader]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoMetaEndpoint, loader)
	}

	reqURL := base + "/versions/loader"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("looking up %s loader version: %w", loader, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", l.userAgent)

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("looking up %s loader version: %w", loader, err)
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("looking up %s loader version: unexpected status %d", loader, resp.StatusCode)
	}

	var versions []loaderVersion
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONResponseBytes)).Decode(&versions); err != nil {
		return "", fmt.Errorf("looking up %s loader version: decoding response: %w", loader, err)
	}
	if len(versions) == 0 {
		return "", fmt.Errorf("looking up %s loader version: empty feed", loader)
	}

	// Sort by semantic version descending; entries without valid semver sort last.
	sort.SliceStable(versions, func(i, j int) bool {
		vi, vj := "v"+versions[i].Version, "v"+versions[j].Version
		validI, validJ := semver.IsValid(vi), semver.IsValid(vj)
		if validI != validJ {
			return validI
		}
		if !validI {
			return false
		}
		return semver.Compare(vi, vj) > 0
	})

	for i := range versions {
		if versions[i].Stable {
			return versions[i].Version, nil
		}
	}
	return versions[0].Version, nil
}
