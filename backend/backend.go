// Package backend defines the storage abstraction used by sidecache.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly
// the same []byte that was previously passed to Set for a key (no
// prepended/appended metadata, no re-encoding, no mutation). If a store
// performs internal transforms (e.g., compression or framing), they MUST be
// fully reversed so that the bytes returned by Get are identical to the
// bytes provided to Set.
//
// Expiry is a readability property, not an eviction schedule: once an
// entry's TTL has elapsed it must never be returned, counted or listed,
// whether or not the store has physically removed it yet.
package backend

import (
	"context"
	"time"
)

// TTL sentinels, matching the raw negative replies a Redis TTL command
// produces for the same cases.
const (
	// TTLNoExpiry is reported for keys stored without an expiry.
	TTLNoExpiry time.Duration = -1
	// TTLMissing is reported for keys that do not exist (or have expired).
	TTLMissing time.Duration = -2
)

// Backend is a byte store with per-key TTLs and pattern listing.
// Must be safe for concurrent use.
type Backend interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// Expired entries are misses. If an IO/remote error happens, return
	// (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key, replacing any previous entry and its
	// expiry. ttl > 0 bounds the entry's lifetime; ttl <= 0 stores it
	// without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Del removes the given keys and returns how many live entries were
	// actually removed. Missing and expired keys are not counted and not
	// an error. Del with no keys is a no-op returning 0.
	Del(ctx context.Context, keys ...string) (int64, error)

	// Keys returns the live keys matching pattern, where '*' matches any
	// run of characters and every other character matches literally. No
	// ordering is guaranteed. A pattern without '*' matches at most the
	// one exact key.
	Keys(ctx context.Context, pattern string) ([]string, error)

	// Exists reports whether key holds a live entry.
	Exists(ctx context.Context, key string) (bool, error)

	// TTL returns the remaining lifetime of key, TTLNoExpiry for entries
	// stored without one, or TTLMissing when the key is absent or expired.
	TTL(ctx context.Context, key string) (time.Duration, error)

	// Close releases resources. Operations after Close fail.
	Close(ctx context.Context) error
}

// ReadyBackend is a Backend that can cheaply report whether it is currently
// able to serve, typically because it fronts a networked store that may be
// down. Ready must never block for long: implementations are expected to
// answer from recent state and refresh it in the background or on a budget.
type ReadyBackend interface {
	Backend

	// Ready reports whether the store is believed reachable right now.
	Ready(ctx context.Context) bool
}
