// Package memory provides a process-local Backend. It is the fallback the
// cache serves from when no networked store is configured or reachable, and
// a convenient store for tests.
//
// Entries expire lazily: any read that encounters an expired entry treats it
// as a miss and drops it. An optional background sweep prunes entries nobody
// reads again, bounding memory held by abandoned keys.
package memory

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/unkn0wn-root/sidecache/backend"
	"github.com/unkn0wn-root/sidecache/internal/glob"
)

// DefaultSweepInterval is the sweep period used when Config leaves it zero.
const DefaultSweepInterval = time.Minute

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("memory: store closed")

type Config struct {
	// SweepInterval is the background expiry sweep period.
	// Zero selects DefaultSweepInterval; a negative value disables the
	// sweep entirely (expired entries then only go away when read).
	SweepInterval time.Duration
}

type entry struct {
	value     []byte
	expiresAt time.Time // zero = no expiry
}

// expiredAt treats the expiry instant itself as already expired.
func (e *entry) expiredAt(now time.Time) bool {
	return !e.expiresAt.IsZero() && !e.expiresAt.After(now)
}

// Store is an in-memory Backend. Values are copied on write and on read, so
// callers can never alias cache-internal buffers.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	closed  bool

	ticker    *time.Ticker
	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

var _ backend.Backend = (*Store)(nil)

func New(cfg Config) *Store {
	s := &Store{
		entries: make(map[string]*entry),
	}
	interval := cfg.SweepInterval
	if interval == 0 {
		interval = DefaultSweepInterval
	}
	if interval > 0 {
		s.ticker = time.NewTicker(interval)
		s.stopCh = make(chan struct{})
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for {
				select {
				case <-s.ticker.C:
					s.sweep(time.Now())
				case <-s.stopCh:
					return
				}
			}
		}()
	}
	return s
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	now := time.Now()
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, false, ErrClosed
	}
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if e.expiredAt(now) {
		s.dropExpired(key, e)
		return nil, false, nil
	}
	// entry values are immutable once published, so reading after unlock is safe
	return bytes.Clone(e.value), true, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	e := &entry{value: bytes.Clone(value), expiresAt: exp}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.entries[key] = e
	return nil
}

func (s *Store) Del(_ context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	var n int64
	for _, k := range keys {
		e, ok := s.entries[k]
		if !ok {
			continue
		}
		delete(s.entries, k)
		// expired entries read as absent, so removing one is not a removal
		if !e.expiredAt(now) {
			n++
		}
	}
	return n, nil
}

func (s *Store) Keys(_ context.Context, pattern string) ([]string, error) {
	re, err := glob.Compile(pattern)
	if err != nil {
		return nil, err
	}
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	var out []string
	for k, e := range s.entries {
		if e.expiredAt(now) {
			delete(s.entries, k)
			continue
		}
		if re.MatchString(k) {
			out = append(out, k)
		}
	}
	return out, nil
}

func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	now := time.Now()
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return false, ErrClosed
	}
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return false, nil
	}
	if e.expiredAt(now) {
		s.dropExpired(key, e)
		return false, nil
	}
	return true, nil
}

func (s *Store) TTL(_ context.Context, key string) (time.Duration, error) {
	now := time.Now()
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return 0, ErrClosed
	}
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return backend.TTLMissing, nil
	}
	if e.expiredAt(now) {
		s.dropExpired(key, e)
		return backend.TTLMissing, nil
	}
	if e.expiresAt.IsZero() {
		return backend.TTLNoExpiry, nil
	}
	return e.expiresAt.Sub(now), nil
}

func (s *Store) Close(_ context.Context) error {
	s.closeOnce.Do(func() {
		if s.stopCh != nil {
			close(s.stopCh)
			s.ticker.Stop()
			s.wg.Wait()
		}
		s.mu.Lock()
		s.closed = true
		s.entries = nil
		s.mu.Unlock()
	})
	return nil
}

// dropExpired removes key only if it still holds the same expired entry,
// so a concurrent overwrite is never clobbered.
func (s *Store) dropExpired(key string, e *entry) {
	s.mu.Lock()
	if cur, ok := s.entries[key]; ok && cur == e {
		delete(s.entries, key)
	}
	s.mu.Unlock()
}

func (s *Store) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for k, e := range s.entries {
		if e.expiredAt(now) {
			delete(s.entries, k)
		}
	}
}
