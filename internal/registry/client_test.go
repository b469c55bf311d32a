// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestVersionsByHashes_UnknownHashesAbsent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("got method %s, want POST", r.Method)
		}
		if r.URL.Path != "/version_files" {
			t.Errorf("got path %s, want /version_files", r.URL.Path)
		}

		var req struct {
			Hashes    []string `json:"hashes"`
			Algorithm string   `json:"algorithm"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if req.Algorithm != "sha1" {
			t.Errorf("got algorithm %q, want sha1", req.Algorithm)
		}
		if len(req.Hashes) != 3 {
			t.Errorf("got %d hashes, want 3", len(req.Hashes))
		}

		// Respond with only two of the three requested hashes resolved.
		w.Header().Set("Content-Type", "application/json")
		resp := map[string]Version{
			"aaa": {ID: "ver-a", ProjectID: "proj-a"},
			"bbb": {ID: "ver-b", ProjectID: "proj-b"},
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Errorf("encoding response: %v", err)
		}
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	got, err := client.VersionsByHashes(context.Background(), []string{"aaa", "bbb", "ccc"}, "sha1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("got %d resolved hashes, want 2", len(got))
	}
	if _, ok := got["ccc"]; ok {
		t.Error("unresolved hash ccc should be absent from the result")
	}
	if got["aaa"].ProjectID != "proj-a" {
		t.Errorf("hash aaa resolved to project %q, want proj-a", got["aaa"].ProjectID)
	}
}

func TestVersionsByHashes_RateLimited(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Ratelimit-Remaining", "0")
		w.Header().Set("X-Ratelimit-Reset", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	_, err := client.VersionsByHashes(context.Background(), []string{"aaa"}, "sha1")

	var rlErr *RateLimitError
	if !errors.As(err, &rlErr) {
		t.Fatalf("got error %v, want *RateLimitError", err)
	}
	if rlErr.Remaining != 0 {
		t.Errorf("got remaining %d, want 0", rlErr.Remaining)
	}
}

func TestProjects_BatchedLookup(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/projects" {
			t.Errorf("got path %s, want /projects", r.URL.Path)
		}

		var ids []string
		if err := json.Unmarshal([]byte(r.URL.Query().Get("ids")), &ids); err != nil {
			t.Errorf("decoding ids query: %v", err)
		}
		if len(ids) != 2 {
			t.Errorf("got %d ids, want 2", len(ids))
		}

		w.Header().Set("Content-Type", "application/json")
		projects := []Project{
			{ID: "proj-a", Slug: "sodium", Title: "Sodium", ProjectType: "mod"},
			{ID: "proj-b", Slug: "lithium", Title: "Lithium", ProjectType: "mod"},
		}
		if err := json.NewEncoder(w).Encode(projects); err != nil {
			t.Errorf("encoding response: %v", err)
		}
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	got, err := client.Projects(context.Background(), []string{"proj-a", "proj-b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d projects, want 2", len(got))
	}
	if got[0].Slug != "sodium" {
		t.Errorf("got slug %q, want sodium", got[0].Slug)
	}
}

func TestProjectVersions_FiltersAndNotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/project/proj-a/version":
			var loaders []string
			if err := json.Unmarshal([]byte(r.URL.Query().Get("loaders")), &loaders); err != nil {
				t.Errorf("decoding loaders query: %v", err)
			}
			if len(loaders) != 1 || loaders[0] != "fabric" {
				t.Errorf("got loaders %v, want [fabric]", loaders)
			}

			w.Header().Set("Content-Type", "application/json")
			versions := []Version{
				{ID: "ver-1", ProjectID: "proj-a", VersionType: VersionTypeRelease},
			}
			if err := json.NewEncoder(w).Encode(versions); err != nil {
				t.Errorf("encoding response: %v", err)
			}
		case "/project/gone/version":
			w.WriteHeader(http.StatusNotFound)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))

	got, err := client.ProjectVersions(context.Background(), "proj-a", []string{"fabric"}, []string{"1.21"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "ver-1" {
		t.Fatalf("unexpected versions: %+v", got)
	}

	// A 404 means the project has no versions, not a failed run.
	got, err = client.ProjectVersions(context.Background(), "gone", []string{"fabric"}, nil)
	if err != nil {
		t.Fatalf("unexpected error for missing project: %v", err)
	}
	if got != nil {
		t.Errorf("got %v for missing project, want nil", got)
	}
}

func TestPrimaryFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		version Version
		want    string // expected filename, "" for nil
	}{
		{
			name: "primary flagged file wins",
			version: Version{Files: []VersionFile{
				{Filename: "sources.jar", Primary: false},
				{Filename: "mod.jar", Primary: true},
			}},
			want: "mod.jar",
		},
		{
			name: "falls back to first file when none flagged",
			version: Version{Files: []VersionFile{
				{Filename: "first.jar"},
				{Filename: "second.jar"},
			}},
			want: "first.jar",
		},
		{
			name:    "nil for version without files",
			version: Version{},
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := tt.version.PrimaryFile()
			if tt.want == "" {
				if got != nil {
					t.Fatalf("got %+v, want nil", got)
				}
				return
			}
			if got == nil || got.Filename != tt.want {
				t.Fatalf("got %+v, want filename %q", got, tt.want)
			}
		})
	}
}

func TestStabilityRank(t *testing.T) {
	t.Parallel()

	tests := []struct {
		versionType string
		want        int
	}{
		{VersionTypeRelease, 3},
		{VersionTypeBeta, 2},
		{VersionTypeAlpha, 1},
		{"weird", 1},
	}

	for _, tt := range tests {
		v := Version{VersionType: tt.versionType}
		if got := v.StabilityRank(); got != tt.want {
			t.Errorf("StabilityRank(%q) = %d, want %d", tt.versionType, got, tt.want)
		}
	}
}

func TestCheckRateLimit_IgnoresPositiveRemaining(t *testing.T) {
	t.Parallel()

	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set("X-Ratelimit-Remaining", "42")
	if err := checkRateLimit(resp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp.Header.Set("X-Ratelimit-Remaining", "0")
	resp.Header.Set("X-Ratelimit-Reset", "60")
	err := checkRateLimit(resp)
	var rlErr *RateLimitError
	if !errors.As(err, &rlErr) {
		t.Fatalf("got %v, want *RateLimitError", err)
	}
	if rlErr.ResetAt.Before(time.Now().Add(50 * time.Second)) {
		t.Errorf("reset time %v not derived from header", rlErr.ResetAt)
	}
}
