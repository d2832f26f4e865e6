package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestCache(t *testing.T, maxKeep int) *Cache {
	t.Helper()
	cache, err := OpenCache(filepath.Join(t.TempDir(), "catalog.db"), maxKeep)
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	t.Cleanup(func() { cache.Close() })
	return cache
}

func TestCache_PutAndLatest(t *testing.T) {
	ctx := context.Background()
	cache := openTestCache(t, 5)

	t1 := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	if err := cache.Put(ctx, []byte("old catalog"), "https://example.test/tle", t1); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := cache.Put(ctx, []byte("new catalog"), "https://example.test/tle", t2); err != nil {
		t.Fatalf("Put: %v", err)
	}

	body, fetchedAt, err := cache.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if string(body) != "new catalog" {
		t.Errorf("Latest body = %q, want the newest snapshot", body)
	}
	if !fetchedAt.Equal(t2) {
		t.Errorf("fetchedAt = %v, want %v", fetchedAt, t2)
	}
}

func TestCache_EmptyIsTyped(t *testing.T) {
	cache := openTestCache(t, 5)

	if _, _, err := cache.Latest(context.Background()); !errors.Is(err, ErrCacheEmpty) {
		t.Errorf("Latest on empty cache: err = %v, want ErrCacheEmpty", err)
	}
}

func TestCache_PruneKeepsNewest(t *testing.T) {
	ctx := context.Background()
	cache := openTestCache(t, 2)

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		body := []byte{byte('a' + i)}
		if err := cache.Put(ctx, body, "u", base.Add(time.Duration(i)*time.Hour)); err != nil {
			t.Fatalf("Put %d: %v", i, err)
		}
	}

	n, err := cache.Len(ctx)
	if err != nil {
		t.Fatalf("Len: %v", err)
	}
	if n != 2 {
		t.Errorf("Len() = %d after pruning, want 2", n)
	}

	body, _, err := cache.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if string(body) != "d" {
		t.Errorf("Latest body = %q, want the newest snapshot %q", body, "d")
	}
}

func TestCache_RejectsEmptyBody(t *testing.T) {
	cache := openTestCache(t, 5)
	if err := cache.Put(context.Background(), nil, "u", time.Now()); err == nil {
		t.Errorf("Put accepted an empty body")
	}
}
