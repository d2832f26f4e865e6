package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/signalsfoundry/conjunction-engine/kb"
)

func TestProvider_LiveFetchWritesThroughToCache(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleCatalog))
	}))
	defer srv.Close()

	cache := openTestCache(t, 5)
	provider := NewProvider(NewFetcher(srv.URL, nil), cache, nil)

	snap, err := provider.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Source() != kb.SourceLive {
		t.Errorf("Source() = %q, want live", snap.Source())
	}
	if snap.Len() != 2 {
		t.Errorf("Len() = %d, want 2", snap.Len())
	}

	// The fetched body must now be the cache fallback.
	body, _, err := cache.Latest(ctx)
	if err != nil {
		t.Fatalf("cache.Latest: %v", err)
	}
	if string(body) != sampleCatalog {
		t.Errorf("cached body does not match the fetched catalog")
	}
}

func TestProvider_FallsBackToCacheWhenSourceDown(t *testing.T) {
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleCatalog))
	}))
	cache := openTestCache(t, 5)
	provider := NewProvider(NewFetcher(srv.URL, nil), cache, nil)

	if _, err := provider.Snapshot(ctx); err != nil {
		t.Fatalf("priming Snapshot: %v", err)
	}
	srv.Close() // source goes dark

	snap, err := provider.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot with dead source: %v", err)
	}
	if snap.Source() != kb.SourceCache {
		t.Errorf("Source() = %q, want cache", snap.Source())
	}
	if snap.Len() != 2 {
		t.Errorf("Len() = %d, want 2", snap.Len())
	}
}

func TestProvider_NoSourceNoCacheIsTerminal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cache := openTestCache(t, 5)
	provider := NewProvider(NewFetcher(srv.URL, nil), cache, nil)

	if _, err := provider.Snapshot(context.Background()); err == nil {
		t.Errorf("Snapshot succeeded with a dead source and an empty cache")
	}
}

func TestProvider_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.tle")
	if err := os.WriteFile(path, []byte(sampleCatalog), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	provider := NewProvider(NewFetcher("https://unreachable.test/tle", nil), nil, nil)
	snap, err := provider.FromFile(context.Background(), path)
	if err != nil {
		t.Fatalf("FromFile: %v", err)
	}
	if snap.Source() != kb.SourceFile {
		t.Errorf("Source() = %q, want file", snap.Source())
	}
	if _, ok := snap.Get("25544"); !ok {
		t.Errorf("snapshot missing the ISS entry")
	}
}
