package main

import (
	"strings"
	"testing"

	"karolbroda.com/lyricsync/internal/cache"
	"karolbroda.com/lyricsync/internal/config"
)

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{
		0:           "0 B",
		1023:        "1023 B",
		1024:        "1.0 KB",
		1536:        "1.5 KB",
		5 << 20:     "5.0 MB",
		3 << 30 / 2: "1.5 GB",
	}
	for in, want := range tests {
		if got := formatBytes(in); got != want {
			t.Errorf("formatBytes(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := map[float64]string{
		0:     "0:00",
		59.4:  "0:59",
		61:    "1:01",
		754.6: "12:35",
	}
	for in, want := range tests {
		if got := formatDuration(in); got != want {
			t.Errorf("formatDuration(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestSortCacheEntries(t *testing.T) {
	entries := func() []*cache.LyricEntry {
		return []*cache.LyricEntry{
			{Hash: "A", Singer: "beta", Song: "zulu", CreatedAt: 1},
			{Hash: "B", Singer: "Alpha", Song: "yankee", CreatedAt: 3},
			{Hash: "C", Singer: "gamma", Song: "Xray", CreatedAt: 2},
		}
	}

	tests := []struct {
		sortBy string
		want   string
	}{
		{"date", "BCA"},
		{"singer", "BAC"},
		{"song", "CBA"},
		{"bogus", "BCA"},
	}

	for _, tt := range tests {
		t.Run(tt.sortBy, func(t *testing.T) {
			list := entries()
			sortCacheEntries(list, tt.sortBy)
			got := ""
			for _, e := range list {
				got += e.Hash
			}
			if got != tt.want {
				t.Errorf("order = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestOpenStore(t *testing.T) {
	t.Run("none", func(t *testing.T) {
		store, cleanup, err := openStore(&config.Config{CacheBackend: config.CacheNone})
		if err != nil {
			t.Fatal(err)
		}
		defer cleanup()
		if store != nil {
			t.Errorf("expected no store, got %T", store)
		}
	})

	t.Run("disk", func(t *testing.T) {
		dir := t.TempDir()
		store, cleanup, err := openStore(&config.Config{CacheBackend: config.CacheDisk, CacheDir: dir})
		if err != nil {
			t.Fatal(err)
		}
		defer cleanup()
		dc, ok := store.(*cache.DiskCache)
		if !ok {
			t.Fatalf("expected a disk cache, got %T", store)
		}
		if !strings.HasPrefix(dc.Path(), dir) {
			t.Errorf("path %q is not under %q", dc.Path(), dir)
		}
	})

	t.Run("unreachable redis falls back to disk", func(t *testing.T) {
		cfg := &config.Config{
			CacheBackend: config.CacheRedis,
			CacheDir:     t.TempDir(),
			Redis:        config.RedisConfig{Addr: "127.0.0.1:1"},
		}
		store, cleanup, err := openStore(cfg)
		if err != nil {
			t.Fatal(err)
		}
		defer cleanup()
		if _, ok := store.(*cache.DiskCache); !ok {
			t.Errorf("expected disk fallback, got %T", store)
		}
	})
}
