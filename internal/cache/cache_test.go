package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDiskCacheRoundTrip(t *testing.T) {
	c, err := NewDiskCache(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	ctx := context.Background()

	err = c.Set(ctx, "ABCDEF", &LyricEntry{CandidateID: "1", Raw: "[0,100]a", SyncOffset: 0.5})
	if err != nil {
		t.Fatalf("set failed: %v", err)
	}

	// a fresh instance reads from disk rather than memory
	reopened, err := NewDiskCache(filepath.Dir(c.Path()))
	if err != nil {
		t.Fatalf("failed to reopen cache: %v", err)
	}

	entry, err := reopened.Get(ctx, "abcdef")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if entry.Raw != "[0,100]a" || entry.SyncOffset != 0.5 {
		t.Errorf("unexpected entry: %+v", entry)
	}
	if entry.Version != cacheVersion || entry.Hash != "ABCDEF" {
		t.Errorf("bookkeeping fields not stamped: %+v", entry)
	}
}

func TestDiskCacheMiss(t *testing.T) {
	c, err := NewDiskCache(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}

	_, err = c.Get(context.Background(), "missing")
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected ErrCacheMiss, got %v", err)
	}

	_, err = c.Get(context.Background(), "")
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected ErrCacheMiss for empty hash, got %v", err)
	}
}

func TestDiskCacheExpiry(t *testing.T) {
	c, err := NewDiskCache(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	ctx := context.Background()

	if err := c.Set(ctx, "old", &LyricEntry{Raw: "x"}); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	// rewrite the file with an expiry in the past
	entry, _ := c.Get(ctx, "old")
	entry.ExpiresAt = time.Now().Add(-time.Hour).Unix()
	if err := c.writeToDisk(c.getFilePath(generateKey("old")), entry); err != nil {
		t.Fatalf("rewrite failed: %v", err)
	}

	fresh, _ := NewDiskCache(filepath.Dir(c.Path()))
	_, err = fresh.Get(ctx, "old")
	if !errors.Is(err, ErrCacheExpired) {
		t.Errorf("expected ErrCacheExpired, got %v", err)
	}
}

func TestDiskCacheCorruptFile(t *testing.T) {
	c, err := NewDiskCache(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}

	path := c.getFilePath(generateKey("bad"))
	if err := os.WriteFile(path, []byte("garbage"), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	_, err = c.Get(context.Background(), "bad")
	if !errors.Is(err, ErrCacheCorrupt) {
		t.Errorf("expected ErrCacheCorrupt, got %v", err)
	}

	pruned, err := c.Prune()
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if pruned != 1 {
		t.Errorf("expected 1 pruned entry, got %d", pruned)
	}
}

func TestDiskCacheStatsListDeleteClear(t *testing.T) {
	c, err := NewDiskCache(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	ctx := context.Background()

	for _, hash := range []string{"a", "b", "c"} {
		if err := c.Set(ctx, hash, &LyricEntry{Raw: hash}); err != nil {
			t.Fatalf("set %s failed: %v", hash, err)
		}
	}

	count, size, err := c.Stats()
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if count != 3 || size == 0 {
		t.Errorf("unexpected stats: count=%d size=%d", count, size)
	}

	if err := c.Delete(ctx, "b"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	entries, err := c.ListAll()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 entries after delete, got %d", len(entries))
	}

	if err := c.Clear(); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	count, _, _ = c.Stats()
	if count != 0 {
		t.Errorf("expected empty cache after clear, got %d", count)
	}
	if _, err := c.Get(ctx, "a"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected miss after clear, got %v", err)
	}
}

func TestStampKeepsCreatedAt(t *testing.T) {
	entry := &LyricEntry{CreatedAt: 100}
	stamp(entry, "h", time.Hour)

	if entry.CreatedAt != 100 {
		t.Errorf("created time was overwritten: %d", entry.CreatedAt)
	}
	if entry.ExpiresAt <= time.Now().Unix() {
		t.Errorf("expiry should be in the future: %d", entry.ExpiresAt)
	}
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	if err := c.Set(ctx, "h", &LyricEntry{Raw: "x"}); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	entry, err := c.Get(ctx, "H")
	if err != nil || entry.Raw != "x" {
		t.Errorf("expected case-insensitive hit, got %+v, %v", entry, err)
	}
	if c.Path() != "" {
		t.Errorf("memory cache should have no path, got %q", c.Path())
	}
}

func TestRedisCacheUnreachable(t *testing.T) {
	_, err := NewRedisCache("127.0.0.1:1", "", 0)
	if err == nil {
		t.Error("expected error connecting to a closed port")
	}
}
