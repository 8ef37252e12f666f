// Package cache keeps a namespaced redis map from request digests to stored
// output descriptors, so a byte-identical re-upload skips the whole pipeline.
package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/c0d3rb4b4/image-optimizer/internal/entities"
)

type Cache struct {
	Redis     redis.UniversalClient
	Namespace string
	TTL       time.Duration
}

// New creates a result cache. TTL <= 0 falls back to an hour.
func New(namespace string, ttl time.Duration, redisCl redis.UniversalClient) *Cache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{Namespace: namespace, TTL: ttl, Redis: redisCl}
}

func (c *Cache) key(digest string) string { return c.Namespace + ":" + digest }

// Lookup fetches the descriptor stored under digest. Redis or decode errors
// are reported as plain misses.
func (c *Cache) Lookup(ctx context.Context, digest string) (entities.OutputDescriptor, bool) {
	var d entities.OutputDescriptor

	raw, err := c.Redis.Get(ctx, c.key(digest)).Bytes()
	if err != nil {
		return d, false
	}
	if err := json.Unmarshal(raw, &d); err != nil {
		// stale entry from an older schema; drop it
		c.Redis.Del(ctx, c.key(digest))
		return d, false
	}
	return d, true
}

// Store records the descriptor under digest with the configured TTL.
func (c *Cache) Store(ctx context.Context, digest string, d entities.OutputDescriptor) {
	raw, err := json.Marshal(d)
	if err != nil {
		return
	}
	if err := c.Redis.Set(ctx, c.key(digest), raw, c.TTL).Err(); err != nil {
		log.Printf("[cache] store failed: %v", err)
	}
}

// Flush removes every entry in the namespace.
func (c *Cache) Flush(ctx context.Context) error {
	keys := c.Redis.Keys(ctx, c.Namespace+":*")
	pl := c.Redis.Pipeline()
	for _, key := range keys.Val() {
		pl.Del(ctx, key)
	}
	_, err := pl.Exec(ctx)
	return err
}
