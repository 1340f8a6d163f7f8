// Package asynchook decorates a Hooks implementation with a bounded queue
// and worker pool, decoupling slow consumers from the cache's hot paths.
// When the queue is full, events are dropped rather than blocking a cache
// operation.
//
// usage:
//
//	raw := sloghook.New(slog.Default(), sloghook.Options{
//	    HitMissEvery: 100, // sample: ~every 100th hit/miss
//	})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	cache, _ := sidecache.New[User](sidecache.Options[User]{
//	    RedisURL: sidecache.FromEnv(),
//	    Hooks:    hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"

	"github.com/unkn0wn-root/sidecache"
)

type Hooks struct {
	inner sidecache.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ sidecache.Hooks = (*Hooks)(nil)

func New(inner sidecache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Hook calls after Close
// panic; close the cache first.
func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

func (h *Hooks) try(f func()) {
	select {
	case h.q <- f:
	default: // drop
	}
}

func (h *Hooks) Hit(key string)  { h.try(func() { h.inner.Hit(key) }) }
func (h *Hooks) Miss(key string) { h.try(func() { h.inner.Miss(key) }) }
func (h *Hooks) BackendError(op, key string, err error) {
	h.try(func() { h.inner.BackendError(op, key, err) })
}
func (h *Hooks) CodecError(op, key string, err error) {
	h.try(func() { h.inner.CodecError(op, key, err) })
}
func (h *Hooks) PatternInvalidated(pattern string, removed int64) {
	h.try(func() { h.inner.PatternInvalidated(pattern, removed) })
}
