package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "lyricsync:lyrics:"

// RedisCache keeps entries in redis so several viewers can share fetches.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(addr string, password string, db int) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", addr, err)
	}

	return &RedisCache{rdb: rdb, ttl: DefaultTTL}, nil
}

func redisKey(hash string) string {
	return redisKeyPrefix + strings.ToLower(strings.TrimSpace(hash))
}

func (c *RedisCache) Get(ctx context.Context, hash string) (*LyricEntry, error) {
	if hash == "" {
		return nil, ErrCacheMiss
	}

	data, err := c.rdb.Get(ctx, redisKey(hash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}

	var entry LyricEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, ErrCacheCorrupt
	}
	if entry.Version != cacheVersion {
		_ = c.rdb.Del(ctx, redisKey(hash)).Err()
		return nil, ErrCacheCorrupt
	}

	return &entry, nil
}

func (c *RedisCache) Set(ctx context.Context, hash string, entry *LyricEntry) error {
	if hash == "" || entry == nil {
		return errors.New("invalid cache entry")
	}

	stamp(entry, hash, c.ttl)

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	return c.rdb.Set(ctx, redisKey(hash), data, c.ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, hash string) error {
	return c.rdb.Del(ctx, redisKey(hash)).Err()
}

func (c *RedisCache) Close() error {
	return c.rdb.Close()
}
