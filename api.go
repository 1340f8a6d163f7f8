package sidecache

import (
	"context"
	"time"

	"github.com/unkn0wn-root/sidecache/backend"
	c "github.com/unkn0wn-root/sidecache/codec"
)

// Cache is the high-level, backend-agnostic cache-aside API.
// V is the caller's value type. Serialization is handled by a pluggable
// Codec[V].
//
// No method except Close returns an error: every failure inside the cache
// is logged, reported to Hooks, and absorbed into a miss or a no-op. A
// broken cache slows callers down to source-of-truth speed; it never breaks
// them.
type Cache[V any] interface {
	// Get returns the value cached under key. ok is false when the key is
	// absent or expired, the backend failed, or the payload would not
	// decode. Callers cannot tell these apart and are not meant to: every
	// false means "go compute it".
	Get(ctx context.Context, key string) (v V, ok bool)

	// Set stores value under key. ttl == 0 applies Options.DefaultTTL;
	// ttl < 0 stores without expiry.
	Set(ctx context.Context, key string, value V, ttl time.Duration)

	// Delete removes one key, best effort.
	Delete(ctx context.Context, key string)

	// DeletePattern removes every key matching pattern, where '*' matches
	// any run of characters, and returns how many live entries went away.
	// 0 means nothing matched or the attempt failed.
	DeletePattern(ctx context.Context, pattern string) int64

	// Exists reports whether key holds a live entry; false on any failure.
	Exists(ctx context.Context, key string) bool

	// TTL returns the remaining lifetime of key, backend.TTLNoExpiry for
	// entries stored without one, and backend.TTLMissing when the key is
	// absent, expired, or the lookup failed.
	TTL(ctx context.Context, key string) time.Duration

	// Close releases the backend and the front cache.
	Close(ctx context.Context) error
}

// Options tune the generic cache. The zero value works: no options means an
// in-memory store, JSON serialization and silent logging.
type Options[V any] struct {
	// Backend overrides store selection entirely, for custom compositions
	// (your own NewFailover wiring, a bigcache store, a fake in tests).
	// When set, RedisURL is ignored.
	Backend backend.Backend

	// RedisURL selects a networked store with the in-memory store as
	// fallback. Empty means fallback only; no connection is attempted.
	// Typically FromEnv(). A malformed URL is logged and degrades to
	// fallback only, it never fails construction.
	RedisURL string

	Codec  c.Codec[V] // if nil, codec.JSON[V] is used
	Logger Logger     // if nil, NopLogger is used
	Hooks  Hooks      // if nil, NopHooks is used

	DefaultTTL time.Duration // substituted for ttl == 0 on Set; 0 => 60s

	// FrontCacheEntries > 0 puts a small in-process layer sized for about
	// that many hot entries in front of the backend. See DefaultFrontTTL
	// for the staleness bound.
	FrontCacheEntries int64
	FrontTTL          time.Duration // front entry lifetime cap; 0 => 5s

	// SweepInterval is handed to the in-memory store when one is built
	// (fallback and fallback-only modes). 0 => one minute; < 0 disables
	// background sweeping.
	SweepInterval time.Duration
}

func New[V any](opts Options[V]) (Cache[V], error) {
	return newCache[V](opts)
}
