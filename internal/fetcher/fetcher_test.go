package fetcher

import (
	"azdoexport/internal/azdo"
	"azdoexport/internal/logging"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
)

func newTestFetcher(t *testing.T, handler http.Handler) *Fetcher {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := azdo.NewClient("fabrikam", azdo.NewPATCredential("test-pat"),
		azdo.WithBaseURL(server.URL),
		azdo.WithAnalyticsURL(server.URL+"/analytics"),
		azdo.WithIdentityURL(server.URL+"/identity"))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	f, err := NewFetcher(client, "Fabrikam", logging.New(logging.LevelError, io.Discard))
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	return f
}

func TestFetcher_ProjectInfo_SharedAcrossCallers(t *testing.T) {
	var hits atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/_apis/projects/Fabrikam", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Query().Get("includeCapabilities") != "true" {
			t.Errorf("missing includeCapabilities, query = %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "proj-1",
			"name": "Fabrikam",
			"state": "wellFormed",
			"revision": 12,
			"visibility": "private",
			"capabilities": {"processTemplate": {"templateTypeId": "adcc42ab-9882-485e-a3ed-7678f01f66bc", "templateName": "Agile"}}
		}`)
	})
	f := newTestFetcher(t, mux)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			info, err := f.ProjectInfo(context.Background())
			if err != nil {
				t.Errorf("ProjectInfo: %v", err)
				return
			}
			if info.ID != "proj-1" || info.Capabilities.ProcessTemplate.TemplateName != "Agile" {
				t.Errorf("unexpected info: %+v", info)
			}
		}()
	}
	wg.Wait()

	// A later caller hits the cache.
	if _, err := f.ProjectInfo(context.Background()); err != nil {
		t.Fatalf("ProjectInfo: %v", err)
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("server hits = %d, want 1 (singleflight + cache)", got)
	}
}

func TestFetcher_TeamRefs_CachedAfterFirstFetch(t *testing.T) {
	var hits atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/_apis/projects/Fabrikam/teams", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"count":2,"value":[
			{"id":"t1","name":"Fabrikam Team","description":"default"},
			{"id":"t2","name":"Ops"}
		]}`)
	})
	f := newTestFetcher(t, mux)

	for i := 0; i < 3; i++ {
		teams, err := f.TeamRefs(context.Background())
		if err != nil {
			t.Fatalf("TeamRefs: %v", err)
		}
		if len(teams) != 2 || teams[0].ID != "t1" || teams[1].Name != "Ops" {
			t.Fatalf("unexpected teams: %+v", teams)
		}
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("server hits = %d, want 1", got)
	}
}

func TestFetcher_SharedFailure_IsNotCached(t *testing.T) {
	var hits atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/_apis/projects/Fabrikam", func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			io.WriteString(w, `{"message":"busy"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"proj-1","name":"Fabrikam"}`)
	})
	f := newTestFetcher(t, mux)

	if _, err := f.ProjectInfo(context.Background()); err == nil {
		t.Fatal("first call should fail")
	}
	info, err := f.ProjectInfo(context.Background())
	if err != nil {
		t.Fatalf("second call should recover: %v", err)
	}
	if info.Name != "Fabrikam" {
		t.Fatalf("unexpected info: %+v", info)
	}
	if got := hits.Load(); got != 2 {
		t.Fatalf("server hits = %d, want 2", got)
	}
}

func TestNewFetcher_Validation(t *testing.T) {
	log := logging.New(logging.LevelError, io.Discard)
	client, err := azdo.NewClient("fabrikam", azdo.NewPATCredential("pat"),
		azdo.WithBaseURL("http://127.0.0.1:1"))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	if _, err := NewFetcher(nil, "Fabrikam", log); err == nil {
		t.Fatal("nil client should fail")
	}
	if _, err := NewFetcher(client, "", log); err == nil {
		t.Fatal("empty project should fail")
	}
	if _, err := NewFetcher(client, "Fabrikam", nil); err == nil {
		t.Fatal("nil logger should fail")
	}
}
