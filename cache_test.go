package sidecache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/unkn0wn-root/sidecache/backend"
	"github.com/unkn0wn-root/sidecache/backend/memory"
	c "github.com/unkn0wn-root/sidecache/codec"
)

type user struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// faultBackend wraps a real store and injects failures per operation.
type faultBackend struct {
	backend.Backend

	failGet    error
	failSet    error
	failDel    error
	failKeys   error
	failExists error
	failTTL    error

	delCalls atomic.Int32
}

func newFaultBackend(t *testing.T) *faultBackend {
	t.Helper()
	mem := memory.New(memory.Config{SweepInterval: -1})
	t.Cleanup(func() { _ = mem.Close(context.Background()) })
	return &faultBackend{Backend: mem}
}

func (f *faultBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if f.failGet != nil {
		return nil, false, f.failGet
	}
	return f.Backend.Get(ctx, key)
}

func (f *faultBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if f.failSet != nil {
		return f.failSet
	}
	return f.Backend.Set(ctx, key, value, ttl)
}

func (f *faultBackend) Del(ctx context.Context, keys ...string) (int64, error) {
	f.delCalls.Add(1)
	if f.failDel != nil {
		return 0, f.failDel
	}
	return f.Backend.Del(ctx, keys...)
}

func (f *faultBackend) Keys(ctx context.Context, pattern string) ([]string, error) {
	if f.failKeys != nil {
		return nil, f.failKeys
	}
	return f.Backend.Keys(ctx, pattern)
}

func (f *faultBackend) Exists(ctx context.Context, key string) (bool, error) {
	if f.failExists != nil {
		return false, f.failExists
	}
	return f.Backend.Exists(ctx, key)
}

func (f *faultBackend) TTL(ctx context.Context, key string) (time.Duration, error) {
	if f.failTTL != nil {
		return 0, f.failTTL
	}
	return f.Backend.TTL(ctx, key)
}

// recHooks records every event for assertions.
type recHooks struct {
	mu       sync.Mutex
	hits     []string
	misses   []string
	backend  []string // "op key"
	codec    []string // "op key"
	patterns []string
}

func (r *recHooks) Hit(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hits = append(r.hits, key)
}
func (r *recHooks) Miss(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.misses = append(r.misses, key)
}
func (r *recHooks) BackendError(op, key string, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backend = append(r.backend, op+" "+key)
}
func (r *recHooks) CodecError(op, key string, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codec = append(r.codec, op+" "+key)
}
func (r *recHooks) PatternInvalidated(pattern string, _ int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patterns = append(r.patterns, pattern)
}

// recLogger counts records per level so tests can assert that containment
// paths actually say something.
type recLogger struct {
	mu     sync.Mutex
	errors []string
	warns  []string
	infos  []string
}

func (r *recLogger) Debug(string, Fields) {}
func (r *recLogger) Info(msg string, _ Fields) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.infos = append(r.infos, msg)
}
func (r *recLogger) Warn(msg string, _ Fields) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warns = append(r.warns, msg)
}
func (r *recLogger) Error(msg string, _ Fields) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, msg)
}

func (r *recLogger) errorCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errors)
}

func newTestCache(t *testing.T, be backend.Backend, mut func(*Options[user])) Cache[user] {
	t.Helper()
	opts := Options[user]{Backend: be}
	if mut != nil {
		mut(&opts)
	}
	cc, err := New[user](opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = cc.Close(context.Background()) })
	return cc
}

func TestCacheAsideFlow(t *testing.T) {
	ctx := context.Background()
	hooks := &recHooks{}
	cc := newTestCache(t, newFaultBackend(t), func(o *Options[user]) { o.Hooks = hooks })

	k := "users:item:1"
	v := user{ID: "1", Name: "Ada"}

	if _, ok := cc.Get(ctx, k); ok {
		t.Fatalf("expected initial miss")
	}

	cc.Set(ctx, k, v, 0)

	got, ok := cc.Get(ctx, k)
	if !ok || got != v {
		t.Fatalf("Get = %+v, %v; want %+v, true", got, ok, v)
	}
	if !cc.Exists(ctx, k) {
		t.Fatalf("Exists = false for live key")
	}

	cc.Delete(ctx, k)
	if _, ok := cc.Get(ctx, k); ok {
		t.Fatalf("expected miss after delete")
	}

	if len(hooks.hits) != 1 || len(hooks.misses) != 2 {
		t.Fatalf("hooks saw %d hits / %d misses, want 1 / 2", len(hooks.hits), len(hooks.misses))
	}
}

func TestSetTTLSemantics(t *testing.T) {
	ctx := context.Background()
	cc := newTestCache(t, newFaultBackend(t), nil)

	// ttl == 0 applies the default
	cc.Set(ctx, "def", user{ID: "1"}, 0)
	if d := cc.TTL(ctx, "def"); d <= 0 || d > DefaultTTL {
		t.Fatalf("TTL after default Set = %v, want within (0, %v]", d, DefaultTTL)
	}

	// ttl < 0 stores without expiry
	cc.Set(ctx, "forever", user{ID: "2"}, -1)
	if d := cc.TTL(ctx, "forever"); d != backend.TTLNoExpiry {
		t.Fatalf("TTL for persistent entry = %v, want TTLNoExpiry", d)
	}

	// explicit ttl expires
	cc.Set(ctx, "brief", user{ID: "3"}, 150*time.Millisecond)
	time.Sleep(300 * time.Millisecond)
	if _, ok := cc.Get(ctx, "brief"); ok {
		t.Fatalf("expected miss after expiry")
	}
	if d := cc.TTL(ctx, "brief"); d != backend.TTLMissing {
		t.Fatalf("TTL for expired entry = %v, want TTLMissing", d)
	}
}

func TestCustomDefaultTTL(t *testing.T) {
	ctx := context.Background()
	cc := newTestCache(t, newFaultBackend(t), func(o *Options[user]) {
		o.DefaultTTL = 200 * time.Millisecond
	})

	cc.Set(ctx, "k", user{ID: "1"}, 0)
	if _, ok := cc.Get(ctx, "k"); !ok {
		t.Fatalf("expected hit before the custom default elapsed")
	}
	time.Sleep(350 * time.Millisecond)
	if _, ok := cc.Get(ctx, "k"); ok {
		t.Fatalf("expected miss after the custom default elapsed")
	}
}

func TestReadFailureBecomesMiss(t *testing.T) {
	ctx := context.Background()
	fb := newFaultBackend(t)
	hooks := &recHooks{}
	log := &recLogger{}
	cc := newTestCache(t, fb, func(o *Options[user]) {
		o.Hooks = hooks
		o.Logger = log
	})

	cc.Set(ctx, "k", user{ID: "1"}, 0)
	fb.failGet = errors.New("connection reset")

	if _, ok := cc.Get(ctx, "k"); ok {
		t.Fatalf("backend failure must surface as a miss")
	}
	if len(hooks.backend) != 1 || hooks.backend[0] != "get k" {
		t.Fatalf("backend error hook = %v", hooks.backend)
	}
	if log.errorCount() == 0 {
		t.Fatalf("containment must log the swallowed failure")
	}
}

func TestWriteFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	fb := newFaultBackend(t)
	hooks := &recHooks{}
	cc := newTestCache(t, fb, func(o *Options[user]) { o.Hooks = hooks })

	fb.failSet = errors.New("store full")
	cc.Set(ctx, "k", user{ID: "1"}, 0) // must not panic or surface anything

	fb.failSet = nil
	if _, ok := cc.Get(ctx, "k"); ok {
		t.Fatalf("failed write should not have stored a value")
	}
	if len(hooks.backend) != 1 || hooks.backend[0] != "set k" {
		t.Fatalf("backend error hook = %v", hooks.backend)
	}
}

type encodeFail struct{}

func (encodeFail) Encode(user) ([]byte, error) { return nil, errors.New("unencodable") }
func (encodeFail) Decode([]byte) (user, error) { return user{}, errors.New("undecodable") }

func TestEncodeFailureSkipsWrite(t *testing.T) {
	ctx := context.Background()
	fb := newFaultBackend(t)
	hooks := &recHooks{}
	cc := newTestCache(t, fb, func(o *Options[user]) {
		o.Hooks = hooks
		o.Codec = encodeFail{}
	})

	cc.Set(ctx, "k", user{ID: "1"}, 0)

	if ok, _ := fb.Backend.Exists(ctx, "k"); ok {
		t.Fatalf("nothing should reach the backend when encoding fails")
	}
	if len(hooks.codec) != 1 || hooks.codec[0] != "encode k" {
		t.Fatalf("codec error hook = %v", hooks.codec)
	}
}

func TestUndecodableEntryIsDropped(t *testing.T) {
	ctx := context.Background()
	fb := newFaultBackend(t)
	hooks := &recHooks{}
	cc := newTestCache(t, fb, func(o *Options[user]) { o.Hooks = hooks })

	// plant bytes that never went through the codec
	if err := fb.Backend.Set(ctx, "k", []byte("{definitely not json"), 0); err != nil {
		t.Fatalf("backend Set: %v", err)
	}

	if _, ok := cc.Get(ctx, "k"); ok {
		t.Fatalf("undecodable entry must read as a miss")
	}
	// the entry is gone, so the next write starts clean
	if ok, _ := fb.Backend.Exists(ctx, "k"); ok {
		t.Fatalf("undecodable entry still resident")
	}
	if len(hooks.codec) != 1 || hooks.codec[0] != "decode k" {
		t.Fatalf("codec error hook = %v", hooks.codec)
	}
}

func TestDeletePattern(t *testing.T) {
	ctx := context.Background()
	fb := newFaultBackend(t)
	hooks := &recHooks{}
	cc := newTestCache(t, fb, func(o *Options[user]) { o.Hooks = hooks })

	cc.Set(ctx, ListKey("users", 1, 10, ""), user{ID: "1"}, 0)
	cc.Set(ctx, ListKey("users", 2, 10, ""), user{ID: "2"}, 0)
	cc.Set(ctx, "users:item:7", user{ID: "7"}, 0)
	cc.Set(ctx, ListKey("orders", 1, 10, ""), user{ID: "o"}, 0)

	if n := cc.DeletePattern(ctx, ListPattern("users")); n != 2 {
		t.Fatalf("DeletePattern removed %d, want 2", n)
	}
	if _, ok := cc.Get(ctx, "users:item:7"); !ok {
		t.Fatalf("non-list key should survive the pattern")
	}
	if _, ok := cc.Get(ctx, ListKey("orders", 1, 10, "")); !ok {
		t.Fatalf("other resource should survive the pattern")
	}
	if len(hooks.patterns) != 1 || hooks.patterns[0] != "users:list:*" {
		t.Fatalf("pattern hook = %v", hooks.patterns)
	}

	// nothing left to match: result is 0 and no delete round trip happens
	before := fb.delCalls.Load()
	if n := cc.DeletePattern(ctx, ListPattern("users")); n != 0 {
		t.Fatalf("second DeletePattern removed %d, want 0", n)
	}
	if fb.delCalls.Load() != before {
		t.Fatalf("DeletePattern issued a delete for an empty match set")
	}
}

func TestDeletePatternContainsFailures(t *testing.T) {
	ctx := context.Background()
	fb := newFaultBackend(t)
	hooks := &recHooks{}
	cc := newTestCache(t, fb, func(o *Options[user]) { o.Hooks = hooks })

	cc.Set(ctx, "users:list:page=1", user{ID: "1"}, 0)

	fb.failKeys = errors.New("scan refused")
	if n := cc.DeletePattern(ctx, "users:list:*"); n != 0 {
		t.Fatalf("DeletePattern with failing scan = %d, want 0", n)
	}
	fb.failKeys = nil

	fb.failDel = errors.New("delete refused")
	if n := cc.DeletePattern(ctx, "users:list:*"); n != 0 {
		t.Fatalf("DeletePattern with failing delete = %d, want 0", n)
	}
	fb.failDel = nil

	if len(hooks.backend) != 2 {
		t.Fatalf("backend error hooks = %v, want scan and delete failures", hooks.backend)
	}
	// no invalidation event was emitted for the failed attempts
	if len(hooks.patterns) != 0 {
		t.Fatalf("pattern hook fired despite failures: %v", hooks.patterns)
	}
}

func TestExistsAndTTLContainment(t *testing.T) {
	ctx := context.Background()
	fb := newFaultBackend(t)
	cc := newTestCache(t, fb, nil)

	cc.Set(ctx, "k", user{ID: "1"}, 0)

	fb.failExists = errors.New("down")
	if cc.Exists(ctx, "k") {
		t.Fatalf("Exists must report false when the backend fails")
	}
	fb.failTTL = errors.New("down")
	if d := cc.TTL(ctx, "k"); d != backend.TTLMissing {
		t.Fatalf("TTL on failure = %v, want TTLMissing", d)
	}
}

func TestZeroOptionsWork(t *testing.T) {
	ctx := context.Background()
	cc, err := New[user](Options[user]{})
	if err != nil {
		t.Fatalf("New with zero options: %v", err)
	}
	defer cc.Close(ctx)

	cc.Set(ctx, "k", user{ID: "1", Name: "Ada"}, 0)
	got, ok := cc.Get(ctx, "k")
	if !ok || got.Name != "Ada" {
		t.Fatalf("Get = %+v, %v", got, ok)
	}
}

func TestExplicitCodecRoundTrip(t *testing.T) {
	ctx := context.Background()
	fb := newFaultBackend(t)
	cc := newTestCache(t, fb, func(o *Options[user]) { o.Codec = c.Msgpack[user]{} })

	v := user{ID: "7", Name: "Grace"}
	cc.Set(ctx, "k", v, 0)

	got, ok := cc.Get(ctx, "k")
	if !ok || got != v {
		t.Fatalf("Get = %+v, %v; want %+v, true", got, ok, v)
	}

	// the stored payload is the supplied codec's output, not the JSON default
	raw, ok, err := fb.Backend.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("backend Get = ok=%v err=%v", ok, err)
	}
	if json.Valid(raw) {
		t.Fatalf("payload stored as JSON despite the explicit codec")
	}
}

func TestBadStoreURLFallsBack(t *testing.T) {
	ctx := context.Background()
	log := &recLogger{}
	cc, err := New[user](Options[user]{
		RedisURL: "::junk",
		Logger:   log,
	})
	if err != nil {
		t.Fatalf("New must absorb a malformed URL, got %v", err)
	}
	defer cc.Close(ctx)

	if log.errorCount() == 0 {
		t.Fatalf("rejected URL should be logged")
	}

	// the in-memory fallback serves alone
	cc.Set(ctx, "k", user{ID: "1"}, 0)
	if _, ok := cc.Get(ctx, "k"); !ok {
		t.Fatalf("fallback-only cache should round trip")
	}
}
