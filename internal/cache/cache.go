package cache

import (
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	cacheVersion    = 2
	DefaultTTL      = 30 * 24 * time.Hour
	cacheDirName    = "lyricsync"
	lyricsCacheName = "lyrics"
)

var (
	ErrCacheMiss    = errors.New("cache miss")
	ErrCacheExpired = errors.New("cache expired")
	ErrCacheCorrupt = errors.New("cache corrupt")
)

// LyricEntry is the cached raw lyric payload for one track hash.
type LyricEntry struct {
	Version     uint8
	Hash        string
	CandidateID string
	AccessKey   string
	Song        string
	Singer      string
	Raw         string
	SyncOffset  float64
	CreatedAt   int64
	ExpiresAt   int64
}

// Store is the cache contract shared by the disk and redis backends.
type Store interface {
	Get(ctx context.Context, hash string) (*LyricEntry, error)
	Set(ctx context.Context, hash string, entry *LyricEntry) error
	Delete(ctx context.Context, hash string) error
}

type DiskCache struct {
	basePath string
	ttl      time.Duration
	mu       sync.RWMutex
	memCache map[string]*LyricEntry
}

// NewDiskCache stores entries under dir; an empty dir means the default
// XDG cache location. A failing directory degrades to memory only.
func NewDiskCache(dir string) (*DiskCache, error) {
	if dir == "" {
		base, err := DefaultDir()
		if err != nil {
			return NewMemoryCache(), err
		}
		dir = base
	}

	lyricsPath := filepath.Join(dir, lyricsCacheName)
	err := os.MkdirAll(lyricsPath, 0755)
	if err != nil {
		return NewMemoryCache(), err
	}

	return &DiskCache{
		basePath: lyricsPath,
		ttl:      DefaultTTL,
		memCache: make(map[string]*LyricEntry),
	}, nil
}

func NewMemoryCache() *DiskCache {
	return &DiskCache{
		ttl:      DefaultTTL,
		memCache: make(map[string]*LyricEntry),
	}
}

func DefaultDir() (string, error) {
	// xdg cache home takes priority
	xdgCache := os.Getenv("XDG_CACHE_HOME")
	if xdgCache != "" {
		return filepath.Join(xdgCache, cacheDirName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(homeDir, ".cache", cacheDirName), nil
}

func (c *DiskCache) Path() string {
	return c.basePath
}

func (c *DiskCache) SetTTL(ttl time.Duration) {
	if ttl > 0 {
		c.ttl = ttl
	}
}

func generateKey(hash string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(hash))))
	return hex.EncodeToString(sum[:12])
}

func (c *DiskCache) getFilePath(key string) string {
	if c.basePath == "" {
		return ""
	}
	return filepath.Join(c.basePath, key+".bin")
}

func (c *DiskCache) Get(_ context.Context, hash string) (*LyricEntry, error) {
	if hash == "" {
		return nil, ErrCacheMiss
	}

	key := generateKey(hash)

	c.mu.RLock()
	entry, exists := c.memCache[key]
	c.mu.RUnlock()

	if exists {
		if entry.ExpiresAt > time.Now().Unix() {
			return entry, nil
		}
		c.mu.Lock()
		delete(c.memCache, key)
		c.mu.Unlock()
	}

	if c.basePath == "" {
		return nil, ErrCacheMiss
	}

	filePath := c.getFilePath(key)
	entry, err := c.readFromDisk(filePath)
	if err != nil {
		return nil, err
	}

	if entry.ExpiresAt <= time.Now().Unix() {
		_ = os.Remove(filePath)
		return nil, ErrCacheExpired
	}

	c.mu.Lock()
	c.memCache[key] = entry
	c.mu.Unlock()

	return entry, nil
}

func (c *DiskCache) Set(_ context.Context, hash string, entry *LyricEntry) error {
	if hash == "" || entry == nil {
		return errors.New("invalid cache entry")
	}

	key := generateKey(hash)
	stamp(entry, hash, c.ttl)

	c.mu.Lock()
	c.memCache[key] = entry
	c.mu.Unlock()

	if c.basePath == "" {
		return nil
	}

	return c.writeToDisk(c.getFilePath(key), entry)
}

func (c *DiskCache) Delete(_ context.Context, hash string) error {
	if hash == "" {
		return errors.New("invalid hash")
	}

	key := generateKey(hash)

	c.mu.Lock()
	delete(c.memCache, key)
	c.mu.Unlock()

	if c.basePath == "" {
		return nil
	}

	err := os.Remove(c.getFilePath(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}

// stamp fills the bookkeeping fields. CreatedAt survives rewrites so
// offset updates do not look like fresh downloads.
func stamp(entry *LyricEntry, hash string, ttl time.Duration) {
	now := time.Now().Unix()
	entry.Version = cacheVersion
	entry.Hash = hash
	if entry.CreatedAt == 0 {
		entry.CreatedAt = now
	}
	entry.ExpiresAt = now + int64(ttl/time.Second)
}

func (c *DiskCache) readFromDisk(filePath string) (*LyricEntry, error) {
	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	defer file.Close()

	var entry LyricEntry
	err = gob.NewDecoder(file).Decode(&entry)
	if err != nil {
		return nil, ErrCacheCorrupt
	}

	// version mismatch means stale format
	if entry.Version != cacheVersion {
		_ = os.Remove(filePath)
		return nil, ErrCacheCorrupt
	}

	return &entry, nil
}

func (c *DiskCache) writeToDisk(filePath string, entry *LyricEntry) error {
	// write to temp file first, then rename for atomicity
	tmpPath := filePath + ".tmp"

	file, err := os.Create(tmpPath)
	if err != nil {
		return err
	}

	err = gob.NewEncoder(file).Encode(entry)
	if err == nil {
		err = file.Sync()
	}
	if err != nil {
		file.Close()
		_ = os.Remove(tmpPath)
		return err
	}

	err = file.Close()
	if err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	return os.Rename(tmpPath, filePath)
}

func (c *DiskCache) Clear() error {
	c.mu.Lock()
	c.memCache = make(map[string]*LyricEntry)
	c.mu.Unlock()

	if c.basePath == "" {
		return nil
	}

	entries, err := os.ReadDir(c.basePath)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".bin") {
			_ = os.Remove(filepath.Join(c.basePath, entry.Name()))
		}
	}

	return nil
}

// Prune removes expired and unreadable entries and reports how many went.
func (c *DiskCache) Prune() (int, error) {
	if c.basePath == "" {
		return 0, nil
	}

	entries, err := os.ReadDir(c.basePath)
	if err != nil {
		return 0, err
	}

	pruned := 0
	now := time.Now().Unix()

	for _, dirEntry := range entries {
		if dirEntry.IsDir() || !strings.HasSuffix(dirEntry.Name(), ".bin") {
			continue
		}

		filePath := filepath.Join(c.basePath, dirEntry.Name())
		entry, err := c.readFromDisk(filePath)
		if err != nil || entry.ExpiresAt <= now {
			_ = os.Remove(filePath)
			pruned++
		}
	}

	return pruned, nil
}

func (c *DiskCache) Stats() (count int, sizeBytes int64, err error) {
	if c.basePath == "" {
		return 0, 0, nil
	}

	entries, err := os.ReadDir(c.basePath)
	if err != nil {
		return 0, 0, err
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".bin") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		count++
		sizeBytes += info.Size()
	}

	return count, sizeBytes, nil
}

func (c *DiskCache) ListAll() ([]*LyricEntry, error) {
	if c.basePath == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(c.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var result []*LyricEntry

	for _, dirEntry := range entries {
		if dirEntry.IsDir() || !strings.HasSuffix(dirEntry.Name(), ".bin") {
			continue
		}

		entry, err := c.readFromDisk(filepath.Join(c.basePath, dirEntry.Name()))
		if err != nil {
			continue
		}

		result = append(result, entry)
	}

	return result, nil
}
