package sidecache

import (
	"context"
	"fmt"
	"time"

	"github.com/unkn0wn-root/sidecache/backend"
	"github.com/unkn0wn-root/sidecache/backend/memory"
	rd "github.com/unkn0wn-root/sidecache/backend/redis"
	c "github.com/unkn0wn-root/sidecache/codec"
)

type cache[V any] struct {
	be    backend.Backend
	codec c.Codec[V]
	log   Logger
	hooks Hooks
	front *frontCache[V]

	defaultTTL time.Duration
}

var _ Cache[struct{}] = (*cache[struct{}])(nil)

func newCache[V any](opts Options[V]) (*cache[V], error) {
	cc := &cache[V]{}

	// defaults
	cc.codec = coalesce[c.Codec[V]](opts.Codec, c.JSON[V]{})
	cc.log = coalesce[Logger](opts.Logger, NopLogger{})
	cc.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	cc.defaultTTL = coalesce[time.Duration](opts.DefaultTTL, DefaultTTL)

	switch {
	case opts.Backend != nil:
		cc.be = opts.Backend
	case opts.RedisURL != "":
		cc.be = cc.connect(opts)
	default:
		cc.be = memory.New(memory.Config{SweepInterval: opts.SweepInterval})
	}

	if opts.FrontCacheEntries > 0 {
		fc, err := newFrontCache[V](opts.FrontCacheEntries, coalesce[time.Duration](opts.FrontTTL, DefaultFrontTTL))
		if err != nil {
			return nil, fmt.Errorf("sidecache: front cache: %w", err)
		}
		cc.front = fc
	}
	return cc, nil
}

// connect wires the networked store with an in-memory fallback behind it.
// An unusable URL degrades to fallback only; construction never fails over
// a bad address because the cache must come up regardless.
func (cc *cache[V]) connect(opts Options[V]) backend.Backend {
	fallback := memory.New(memory.Config{SweepInterval: opts.SweepInterval})
	primary, err := rd.New(rd.Config{
		URL: opts.RedisURL,
		OnStateChange: func(ready bool, err error) {
			if ready {
				cc.log.Info("store reachable; serving from it", Fields{})
				return
			}
			cc.log.Warn("store unreachable; serving from in-memory fallback", Fields{"err": err})
		},
	})
	if err != nil {
		cc.log.Error("store url rejected; using in-memory fallback only", Fields{"err": err})
		return fallback
	}
	return NewFailover(primary, fallback)
}

func (cc *cache[V]) Get(ctx context.Context, key string) (V, bool) {
	var zero V
	if cc.front != nil {
		if v, ok := cc.front.get(key); ok {
			cc.hooks.Hit(key)
			return v, true
		}
	}

	raw, ok, err := cc.be.Get(ctx, key)
	if err != nil {
		cc.log.Error("cache read failed; treating as miss", Fields{"key": key, "err": err})
		cc.hooks.BackendError("get", key, err)
		return zero, false
	}
	if !ok {
		cc.hooks.Miss(key)
		return zero, false
	}

	v, err := cc.codec.Decode(raw)
	if err != nil {
		// drop the undecodable entry so the next write starts clean
		cc.log.Error("cache entry failed to decode; dropping it", Fields{"key": key, "err": err})
		cc.hooks.CodecError("decode", key, err)
		if _, derr := cc.be.Del(ctx, key); derr != nil {
			cc.hooks.BackendError("delete", key, derr)
		}
		return zero, false
	}

	if cc.front != nil {
		cc.front.set(key, v, 0)
	}
	cc.hooks.Hit(key)
	return v, true
}

func (cc *cache[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) {
	if ttl == 0 {
		ttl = cc.defaultTTL
	}

	raw, err := cc.codec.Encode(value)
	if err != nil {
		cc.log.Error("cache value failed to encode; skipping write", Fields{"key": key, "err": err})
		cc.hooks.CodecError("encode", key, err)
		return
	}

	if err := cc.be.Set(ctx, key, raw, ttl); err != nil {
		cc.log.Error("cache write failed", Fields{"key": key, "err": err})
		cc.hooks.BackendError("set", key, err)
		return
	}

	if cc.front != nil {
		cc.front.set(key, value, ttl)
	}
}

func (cc *cache[V]) Delete(ctx context.Context, key string) {
	if cc.front != nil {
		cc.front.del(key)
	}
	if _, err := cc.be.Del(ctx, key); err != nil {
		cc.log.Error("cache delete failed", Fields{"key": key, "err": err})
		cc.hooks.BackendError("delete", key, err)
	}
}

func (cc *cache[V]) DeletePattern(ctx context.Context, pattern string) int64 {
	keys, err := cc.be.Keys(ctx, pattern)
	if err != nil {
		cc.log.Error("cache invalidation scan failed", Fields{"pattern": pattern, "err": err})
		cc.hooks.BackendError("keys", pattern, err)
		return 0
	}
	if len(keys) == 0 {
		return 0
	}

	// the front cache cannot enumerate keys; clearing it keeps every
	// matching entry from outliving the invalidation
	if cc.front != nil {
		cc.front.clear()
	}

	n, err := cc.be.Del(ctx, keys...)
	if err != nil {
		cc.log.Error("cache invalidation failed", Fields{"pattern": pattern, "matched": len(keys), "err": err})
		cc.hooks.BackendError("delete", pattern, err)
		return 0
	}
	cc.hooks.PatternInvalidated(pattern, n)
	return n
}

func (cc *cache[V]) Exists(ctx context.Context, key string) bool {
	ok, err := cc.be.Exists(ctx, key)
	if err != nil {
		cc.log.Error("cache existence check failed", Fields{"key": key, "err": err})
		cc.hooks.BackendError("exists", key, err)
		return false
	}
	return ok
}

func (cc *cache[V]) TTL(ctx context.Context, key string) time.Duration {
	d, err := cc.be.TTL(ctx, key)
	if err != nil {
		cc.log.Error("cache ttl lookup failed", Fields{"key": key, "err": err})
		cc.hooks.BackendError("ttl", key, err)
		return backend.TTLMissing
	}
	return d
}

func (cc *cache[V]) Close(ctx context.Context) error {
	if cc.front != nil {
		cc.front.close()
	}
	if cc.be != nil {
		return cc.be.Close(ctx)
	}
	return nil
}
