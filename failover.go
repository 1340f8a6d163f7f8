package sidecache

import (
	"context"
	"errors"
	"time"

	"github.com/unkn0wn-root/sidecache/backend"
)

// NewFailover combines a networked primary with a local fallback. Every
// operation is routed to the primary only while it reports ready; otherwise
// the fallback serves it. The choice is re-made per call, so traffic moves
// back to the primary as soon as its next probe succeeds.
//
// The two stores are never reconciled: entries written while one side
// served are invisible to the other. For a cache that costs at most some
// re-derived misses, never wrong data.
func NewFailover(primary backend.ReadyBackend, fallback backend.Backend) backend.Backend {
	return &failover{primary: primary, fallback: fallback}
}

type failover struct {
	primary  backend.ReadyBackend
	fallback backend.Backend
}

var _ backend.Backend = (*failover)(nil)

func (f *failover) route(ctx context.Context) backend.Backend {
	if f.primary.Ready(ctx) {
		return f.primary
	}
	return f.fallback
}

func (f *failover) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return f.route(ctx).Get(ctx, key)
}

func (f *failover) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return f.route(ctx).Set(ctx, key, value, ttl)
}

func (f *failover) Del(ctx context.Context, keys ...string) (int64, error) {
	return f.route(ctx).Del(ctx, keys...)
}

func (f *failover) Keys(ctx context.Context, pattern string) ([]string, error) {
	return f.route(ctx).Keys(ctx, pattern)
}

func (f *failover) Exists(ctx context.Context, key string) (bool, error) {
	return f.route(ctx).Exists(ctx, key)
}

func (f *failover) TTL(ctx context.Context, key string) (time.Duration, error) {
	return f.route(ctx).TTL(ctx, key)
}

func (f *failover) Close(ctx context.Context) error {
	return errors.Join(f.primary.Close(ctx), f.fallback.Close(ctx))
}
