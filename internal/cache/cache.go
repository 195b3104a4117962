// Package cache provides the short-lived analysis result cache. Repeat
// analyses of the same drug with the same parameters are served from here
// instead of re-querying the upstream sources.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"pathmind/pkg/common"
	"pathmind/pkg/logger"
)

// Cache is the analysis payload cache. A miss returns (nil, false) with no
// error distinction: cache failures degrade to misses.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration)
	Stats() Stats
}

// Stats counts cache outcomes since process start.
type Stats struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
}

// Key derives the cache key for one analysis: the canonical compound id
// combined with a hash over the full parameter set, so different parameters
// never collide.
func Key(canonicalID string, params common.AnalysisParams) string {
	encoded, _ := json.Marshal(params)
	hasher := fnv.New64a()
	hasher.Write(encoded)
	return fmt.Sprintf("analysis:%s:%016x", canonicalID, hasher.Sum64())
}

type counters struct {
	hits   atomic.Uint64
	misses atomic.Uint64
}

func (c *counters) stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

// RedisCache stores payloads in Redis. Connection problems are logged and
// treated as misses, an unavailable cache never fails an analysis.
type RedisCache struct {
	client   *redis.Client
	counters counters
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(ctx context.Context, addr, password string, db int) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return &RedisCache{client: client}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn("[Cache] Redis read failed", "key", key, "error", err)
		}
		c.counters.misses.Add(1)
		return nil, false
	}
	c.counters.hits.Add(1)
	return payload, true
}

func (c *RedisCache) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) {
	if err := c.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		logger.Warn("[Cache] Redis write failed", "key", key, "error", err)
	}
}

func (c *RedisCache) Stats() Stats {
	return c.counters.stats()
}

// Close releases the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

// MemoryCache is the fallback when no Redis is configured.
type MemoryCache struct {
	mu       sync.Mutex
	entries  map[string]memoryEntry
	counters counters
	now      func() time.Time
}

// NewMemoryCache creates an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: map[string]memoryEntry{},
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok || c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		c.counters.misses.Add(1)
		return nil, false
	}
	c.counters.hits.Add(1)
	return append([]byte(nil), entry.payload...), true
}

func (c *MemoryCache) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{
		payload:   append([]byte(nil), payload...),
		expiresAt: c.now().Add(ttl),
	}
}

func (c *MemoryCache) Stats() Stats {
	return c.counters.stats()
}
