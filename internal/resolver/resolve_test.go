// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/KrisTC/mrpack-updater/internal/fallback"
	"github.com/KrisTC/mrpack-updater/internal/registry"
)

// fakeRegistry serves /projects and /project/{id}/version with configurable
// per-project delays and failures, tracking the peak number of concurrent
// version-listing requests.
type fakeRegistry struct {
	mu          sync.Mutex
	inFlight    int
	maxInFlight int

	delays   map[string]time.Duration
	fail     map[string]bool
	versions map[string][]registry.Version
}

func (f *fakeRegistry) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if r.URL.Path == "/projects" {
			var ids []string
			if err := json.Unmarshal([]byte(r.URL.Query().Get("ids")), &ids); err != nil {
				t.Errorf("decoding ids: %v", err)
			}
			projects := make([]registry.Project, 0, len(ids))
			for _, id := range ids {
				projects = append(projects, registry.Project{
					ID: id, Slug: "slug-" + id, Title: "Title " + id, ProjectType: "mod",
				})
			}
			if err := json.NewEncoder(w).Encode(projects); err != nil {
				t.Errorf("encoding projects: %v", err)
			}
			return
		}

		if strings.HasPrefix(r.URL.Path, "/project/") && strings.HasSuffix(r.URL.Path, "/version") {
			id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/project/"), "/version")

			f.mu.Lock()
			f.inFlight++
			if f.inFlight > f.maxInFlight {
				f.maxInFlight = f.inFlight
			}
			delay := f.delays[id]
			f.mu.Unlock()

			if delay > 0 {
				time.Sleep(delay)
			}

			f.mu.Lock()
			f.inFlight--
			shouldFail := f.fail[id]
			versions := f.versions[id]
			f.mu.Unlock()

			if shouldFail {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			if versions == nil {
				versions = []registry.Version{}
			}
			if err := json.NewEncoder(w).Encode(versions); err != nil {
				t.Errorf("encoding versions: %v", err)
			}
			return
		}

		t.Errorf("unexpected path %s", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}
}

func namedProjects(ids ...string) []CanonicalProject {
	projects := make([]CanonicalProject, 0, len(ids))
	for _, id := range ids {
		projects = append(projects, CanonicalProject{Identity: id, Category: CategoryMod})
	}
	return projects
}

func TestResolve_OutputOrderInvariantUnderVariedDelays(t *testing.T) {
	t.Parallel()

	// Adversarial timing: earlier slots take longer, so completion order is
	// roughly the reverse of input order. Slot i must still hold project i.
	fake := &fakeRegistry{
		delays:   map[string]time.Duration{},
		versions: map[string][]registry.Version{},
	}
	var ids []string
	for i := 0; i < 8; i++ {
		id := fmt.Sprintf("proj-%d", i)
		ids = append(ids, id)
		fake.delays[id] = time.Duration(8-i) * 10 * time.Millisecond
		fake.versions[id] = []registry.Version{
			{ID: "ver-" + id, ProjectID: id, VersionType: registry.VersionTypeRelease},
		}
	}

	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	r := New(registry.NewClient(registry.WithBaseURL(srv.URL)), nil)
	rows := r.Resolve(context.Background(), namedProjects(ids...),
		Target{GameVersion: "1.21", Loader: "fabric"}, Options{Concurrency: 8})

	if len(rows) != len(ids) {
		t.Fatalf("got %d rows, want %d", len(rows), len(ids))
	}
	for i, id := range ids {
		if rows[i].Project.Identity != id {
			t.Errorf("rows[%d] holds %q, want %q", i, rows[i].Project.Identity, id)
		}
		if !rows[i].Available || rows[i].Chosen == nil || rows[i].Chosen.ID != "ver-"+id {
			t.Errorf("rows[%d] not resolved to its own version: %+v", i, rows[i])
		}
	}
}

func TestResolve_ConcurrencyCeilingAndProgress(t *testing.T) {
	t.Parallel()

	const (
		n = 10
		k = 3
	)

	fake := &fakeRegistry{
		delays:   map[string]time.Duration{},
		versions: map[string][]registry.Version{},
	}
	var ids []string
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("proj-%d", i)
		ids = append(ids, id)
		fake.delays[id] = 20 * time.Millisecond
		fake.versions[id] = []registry.Version{
			{ID: "ver-" + id, ProjectID: id, VersionType: registry.VersionTypeRelease},
		}
	}

	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	var progressMu sync.Mutex
	var progress []int
	r := New(registry.NewClient(registry.WithBaseURL(srv.URL)), nil)
	rows := r.Resolve(context.Background(), namedProjects(ids...),
		Target{GameVersion: "1.21", Loader: "fabric"},
		Options{
			Concurrency: k,
			Progress: func(completed, total int) {
				if total != n {
					t.Errorf("progress total = %d, want %d", total, n)
				}
				progressMu.Lock()
				progress = append(progress, completed)
				progressMu.Unlock()
			},
		})

	if len(rows) != n {
		t.Fatalf("got %d rows, want %d", len(rows), n)
	}

	// Each task performs exactly one version-listing request, so the peak
	// number of concurrent listing requests bounds the in-flight task count.
	fake.mu.Lock()
	peak := fake.maxInFlight
	fake.mu.Unlock()
	if peak > k {
		t.Errorf("peak in-flight tasks = %d, want <= %d", peak, k)
	}

	if len(progress) != n {
		t.Fatalf("progress fired %d times, want %d", len(progress), n)
	}
	for i, completed := range progress {
		if completed != i+1 {
			t.Fatalf("progress[%d] = %d, want strictly increasing by one", i, completed)
		}
	}
}

func TestResolve_FailingTaskDoesNotStallQueue(t *testing.T) {
	t.Parallel()

	fake := &fakeRegistry{
		delays: map[string]time.Duration{},
		fail:   map[string]bool{"proj-bad": true},
		versions: map[string][]registry.Version{
			"proj-good": {{ID: "ver-good", ProjectID: "proj-good", VersionType: registry.VersionTypeRelease}},
			"proj-late": {{ID: "ver-late", ProjectID: "proj-late", VersionType: registry.VersionTypeRelease}},
		},
	}

	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	r := New(registry.NewClient(registry.WithBaseURL(srv.URL)), nil)
	rows := r.Resolve(context.Background(), namedProjects("proj-good", "proj-bad", "proj-late"),
		Target{GameVersion: "1.21", Loader: "fabric"}, Options{Concurrency: 1})

	if !rows[0].Available {
		t.Error("proj-good should have resolved")
	}
	if rows[1].Available || rows[1].Err == nil {
		t.Errorf("proj-bad should be unavailable with an error, got %+v", rows[1])
	}
	if !rows[2].Available {
		t.Error("proj-late should still resolve after the failing task")
	}
}

func TestResolve_MetadataBackfill(t *testing.T) {
	t.Parallel()

	fake := &fakeRegistry{
		delays: map[string]time.Duration{},
		versions: map[string][]registry.Version{
			"proj-a": {{ID: "ver-a", ProjectID: "proj-a", VersionType: registry.VersionTypeRelease}},
		},
	}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	r := New(registry.NewClient(registry.WithBaseURL(srv.URL)), nil)
	rows := r.Resolve(context.Background(), namedProjects("proj-a"),
		Target{GameVersion: "1.21", Loader: "fabric"}, Options{})

	if rows[0].Project.Title != "Title proj-a" || rows[0].Project.Slug != "slug-proj-a" {
		t.Errorf("metadata not backfilled: %+v", rows[0].Project)
	}
}

func TestResolve_NonAllowListedNeverConsultsFallback(t *testing.T) {
	t.Parallel()

	fake := &fakeRegistry{
		delays:   map[string]time.Duration{},
		versions: map[string][]registry.Version{}, // zero candidates for everyone
	}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	var feedHits atomic.Int64
	feedSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		feedHits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, "[]")
	}))
	defer feedSrv.Close()

	arbiter := fallback.NewArbiter(
		map[string]fallback.Rule{"some-other-project": {Owner: "o", Repo: "r"}},
		fallback.WithBaseURL(feedSrv.URL),
	)

	r := New(registry.NewClient(registry.WithBaseURL(srv.URL)), arbiter)
	rows := r.Resolve(context.Background(), namedProjects("proj-unlisted"),
		Target{GameVersion: "1.21", Loader: "fabric"}, Options{})

	if rows[0].Available {
		t.Error("project with zero candidates should be unavailable")
	}
	if rows[0].Err != nil {
		t.Errorf("absence of candidates is not an error, got %v", rows[0].Err)
	}
	if feedHits.Load() != 0 {
		t.Errorf("fallback feed consulted %d times, want 0", feedHits.Load())
	}
}

func TestResolve_AllowListedFallsBack(t *testing.T) {
	t.Parallel()

	fake := &fakeRegistry{
		delays:   map[string]time.Duration{},
		versions: map[string][]registry.Version{},
	}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	feedSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"tag_name":"v1.0","assets":[{"name":"mod-1.21.jar","browser_download_url":"https://example.com/a"}]}]`)
	}))
	defer feedSrv.Close()

	arbiter := fallback.NewArbiter(
		map[string]fallback.Rule{"proj-listed": {Owner: "o", Repo: "r"}},
		fallback.WithBaseURL(feedSrv.URL),
	)

	r := New(registry.NewClient(registry.WithBaseURL(srv.URL)), arbiter)
	rows := r.Resolve(context.Background(), namedProjects("proj-listed"),
		Target{GameVersion: "1.21", Loader: "fabric"}, Options{})

	if !rows[0].Available {
		t.Fatal("allow-listed project should resolve through the fallback feed")
	}
	if rows[0].Origin != OriginFallback {
		t.Errorf("got origin %q, want fallback", rows[0].Origin)
	}
	if rows[0].Fallback == nil || rows[0].Fallback.Release.TagName != "v1.0" {
		t.Errorf("unexpected fallback match: %+v", rows[0].Fallback)
	}
}
