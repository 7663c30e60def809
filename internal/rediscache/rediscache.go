// Package rediscache implements the optional SessionContext cache
// described in the specification's §5 shared-resource policy: a
// concurrency-safe cache, keyed by a hash of the query and the last 500
// characters of conversation, with idempotent last-writer-wins
// semantics. Backed by redis, following the teacher's thin client-
// wrapper convention.
package rediscache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"practitioner-ranker/internal/config"
	"practitioner-ranker/internal/sessioncontext"
)

// NewClient builds a redis client from the application config.
func NewClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// Cache wraps a redis client with SessionContext-specific get/set
// operations. Stale entries are tolerated; writes are last-writer-wins.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache builds a Cache with the given entry TTL.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Key derives the cache key from the query and the last 500 characters
// of conversation, per §5's shared-resource policy.
func Key(query, conversation string) string {
	ctx := conversation
	if len(ctx) > 500 {
		ctx = ctx[len(ctx)-500:]
	}
	sum := sha256.Sum256([]byte(query + "\x00" + ctx))
	return "sessioncontext:" + hex.EncodeToString(sum[:])
}

// Get returns the cached SessionContext for the key, if present.
func (c *Cache) Get(ctx context.Context, query, conversation string) (sessioncontext.SessionContext, bool) {
	raw, err := c.client.Get(ctx, Key(query, conversation)).Bytes()
	if err != nil {
		return sessioncontext.SessionContext{}, false
	}
	var sc sessioncontext.SessionContext
	if err := json.Unmarshal(raw, &sc); err != nil {
		return sessioncontext.SessionContext{}, false
	}
	return sc, true
}

// Set writes a SessionContext to the cache. Writes are idempotent: the
// last writer for a given key always wins, and a failed write is
// non-fatal (the cache is a pure optimization, never a correctness
// dependency).
func (c *Cache) Set(ctx context.Context, query, conversation string, sc sessioncontext.SessionContext) error {
	raw, err := json.Marshal(sc)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, Key(query, conversation), raw, c.ttl).Err()
}
