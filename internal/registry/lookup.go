// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// requestBody carries an optional JSON request payload through doRequest.
type requestBody struct {
	data        []byte
	contentType string
}

func jsonBody(v any) (requestBody, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return requestBody{}, fmt.Errorf("encoding request body: %w", err)
	}
	return requestBody{data: data, contentType: "application/json"}, nil
}

func (b requestBody) reader() io.Reader {
	if b.data == nil {
		return http.NoBody
	}
	return bytes.NewReader(b.data)
}

// VersionsByHashes performs one batched lookup mapping content hashes to the
// versions that own them. Hashes unknown to the registry are simply absent
// from the returned map; duplicates in the input are tolerated. The algorithm
// tag is "sha1" or "sha512".
func (c *Client) VersionsByHashes(ctx context.Context, hashes []string, algorithm string) (map[string]Version, error) {
	body, err := jsonBody(map[string]any{
		"hashes":    hashes,
		"algorithm": algorithm,
	})
	if err != nil {
		return nil, fmt.Errorf("resolving hashes: %w", err)
	}

	reqURL := c.baseURL + "/version_files"
	resp, err := c.doRequest(ctx, http.MethodPost, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("resolving hashes: %w", err)
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	if err := checkRateLimit(resp); err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("resolving hashes: unexpected status %d", resp.StatusCode)
	}

	var resolved map[string]Version
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONResponseBytes)).Decode(&resolved); err != nil {
		return nil, fmt.Errorf("resolving hashes: decoding response: %w", err)
	}
	return resolved, nil
}

// Projects fetches project metadata for the given identity list in one
// batched request. The response order is not guaranteed to match the input.
func (c *Client) Projects(ctx context.Context, ids []string) ([]Project, error) {
	idsJSON, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("fetching projects: encoding ids: %w", err)
	}

	reqURL := fmt.Sprintf("%s/projects?ids=%s", c.baseURL, url.QueryEscape(string(idsJSON)))
	resp, err := c.doRequest(ctx, http.MethodGet, reqURL, requestBody{})
	if err != nil {
		return nil, fmt.Errorf("fetching projects: %w", err)
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	if err := checkRateLimit(resp); err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching projects: unexpected status %d", resp.StatusCode)
	}

	var projects []Project
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONResponseBytes)).Decode(&projects); err != nil {
		return nil, fmt.Errorf("fetching projects: decoding response: %w", err)
	}
	return projects, nil
}

// ProjectVersions lists the versions of one project restricted to the given
// loaders and game versions. The registry does not guarantee any ordering;
// callers apply their own selection policy.
func (c *Client) ProjectVersions(ctx context.Context, projectID string, loaders, gameVersions []string) ([]Version, error) {
	query := url.Values{}
	if len(loaders) > 0 {
		loadersJSON, err := json.Marshal(loaders)
		if err != nil {
			return nil, fmt.Errorf("listing versions for %s: encoding loaders: %w", projectID, err)
		}
		query.Set("loaders", string(loadersJSON))
	}
	if len(gameVersions) > 0 {
		gvJSON, err := json.Marshal(gameVersions)
		if err != nil {
			return nil, fmt.Errorf("listing versions for %s: encoding game versions: %w", projectID, err)
		}
		query.Set("game_versions", string(gvJSON))
	}

	reqURL := fmt.Sprintf("%s/project/%s/version", c.baseURL, url.PathEscape(projectID))
	if encoded := query.Encode(); encoded != "" {
		reqURL += "?" + encoded
	}

	resp, err := c.doRequest(ctx, http.MethodGet, reqURL, requestBody{})
	if err != nil {
		return nil, fmt.Errorf("listing versions for %s: %w", projectID, err)
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	if err := checkRateLimit(resp); err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing versions for %s: unexpected status %d", projectID, resp.StatusCode)
	}

	var versions []Version
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONResponseBytes)).Decode(&versions); err != nil {
		return nil, fmt.Errorf("listing versions for %s: decoding response: %w", projectID, err)
	}
	return versions, nil
}
