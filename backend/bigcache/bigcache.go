// Package bigcache provides a Backend over allegro/bigcache, an embedded
// byte store designed to keep GC pressure flat under millions of entries.
//
// BigCache has no per-entry TTL, only a global LifeWindow, so entries are
// framed with their absolute expiry and filtered on read. The LifeWindow is
// a hard ceiling on every entry's lifetime regardless of the TTL it was
// stored with; configure it above the longest TTL the cache will see.
package bigcache

import (
	"context"
	"errors"
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/unkn0wn-root/sidecache/backend"
	"github.com/unkn0wn-root/sidecache/internal/envelope"
	"github.com/unkn0wn-root/sidecache/internal/glob"
)

type Config struct {
	LifeWindow         time.Duration // required; upper bound on any entry's lifetime
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int           // ~ memory limit; 0 = unlimited
}

type Store struct {
	c *bc.BigCache
}

var _ backend.Backend = (*Store)(nil)

func New(cfg Config) (*Store, error) {
	if cfg.LifeWindow <= 0 {
		return nil, errors.New("bigcache backend: LifeWindow must be positive")
	}
	conf := bc.DefaultConfig(cfg.LifeWindow)
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.New(context.Background(), conf)
	if err != nil {
		return nil, err
	}
	return &Store{c: c}, nil
}

// entry reads and unwraps key. Corrupt and expired entries are dropped on
// sight and read as absent.
func (s *Store) entry(key string) (payload []byte, expiresAt time.Time, ok bool, err error) {
	raw, err := s.c.Get(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil, time.Time{}, false, nil
	}
	if err != nil {
		return nil, time.Time{}, false, err
	}
	exp, p, derr := envelope.Decode(raw)
	if derr != nil {
		_ = s.c.Delete(key)
		return nil, time.Time{}, false, nil
	}
	if expired(exp, time.Now()) {
		_ = s.c.Delete(key)
		return nil, time.Time{}, false, nil
	}
	return p, exp, true, nil
}

func expired(expiresAt, now time.Time) bool {
	return !expiresAt.IsZero() && !expiresAt.After(now)
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	p, _, ok, err := s.entry(key)
	return p, ok, err
}

func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	return s.c.Set(key, envelope.Encode(exp, value))
}

func (s *Store) Del(_ context.Context, keys ...string) (int64, error) {
	var n int64
	for _, k := range keys {
		_, _, live, err := s.entry(k)
		if err != nil {
			return n, err
		}
		derr := s.c.Delete(k)
		if derr != nil && !errors.Is(derr, bc.ErrEntryNotFound) {
			return n, derr
		}
		// concurrent Dels race for the same key; only the call whose Delete
		// actually removed the entry may count it
		if live && derr == nil {
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

	var out, dead []string
	it := s.c.Iterator()
	for it.SetNext() {
		info, err := it.Value()
		if err != nil {
			continue // entry changed mid-iteration; skip it
		}
		exp, _, derr := envelope.Decode(info.Value())
		if derr != nil || expired(exp, now) {
			dead = append(dead, info.Key())
			continue
		}
		if re.MatchString(info.Key()) {
			out = append(out, info.Key())
		}
	}
	// deleting after the walk keeps the iterator stable
	for _, k := range dead {
		_ = s.c.Delete(k)
	}
	return out, nil
}

func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	_, _, ok, err := s.entry(key)
	return ok, err
}

func (s *Store) TTL(_ context.Context, key string) (time.Duration, error) {
	_, exp, ok, err := s.entry(key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return backend.TTLMissing, nil
	}
	if exp.IsZero() {
		return backend.TTLNoExpiry, nil
	}
	d := time.Until(exp)
	if d <= 0 {
		return backend.TTLMissing, nil
	}
	return d, nil
}

func (s *Store) Close(_ context.Context) error {
	return s.c.Close()
}
