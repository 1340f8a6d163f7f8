package sidecache

import (
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// frontCache is an optional in-process layer backed by ristretto that
// serves repeated reads of hot keys without a backend round trip. Entries
// live at most frontTTL, so after an out-of-band invalidation a reader can
// see a stale value for that window at worst. Pattern invalidations clear
// the whole layer because ristretto cannot enumerate its keys.
//
// Decoded values are handed out as-is, not copied; callers must treat
// cached values as read-only.
type frontCache[V any] struct {
	rc  *ristretto.Cache[string, V]
	ttl time.Duration
}

func newFrontCache[V any](entries int64, ttl time.Duration) (*frontCache[V], error) {
	rc, err := ristretto.NewCache(&ristretto.Config[string, V]{
		NumCounters: entries * 10,
		MaxCost:     entries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &frontCache[V]{rc: rc, ttl: ttl}, nil
}

func (f *frontCache[V]) get(key string) (V, bool) {
	return f.rc.Get(key)
}

// set admits key for min(entryTTL, frontTTL) so the layer never outlives
// the backend entry it shadows. entryTTL <= 0 means the backend entry is
// persistent; the front cap alone applies.
func (f *frontCache[V]) set(key string, v V, entryTTL time.Duration) {
	ttl := f.ttl
	if entryTTL > 0 && entryTTL < ttl {
		ttl = entryTTL
	}
	f.rc.SetWithTTL(key, v, 1, ttl)
	f.rc.Wait() // make the write observable to the caller's next read
}

func (f *frontCache[V]) del(key string) {
	f.rc.Del(key)
}

func (f *frontCache[V]) clear() {
	f.rc.Clear()
}

func (f *frontCache[V]) close() {
	f.rc.Close()
}
