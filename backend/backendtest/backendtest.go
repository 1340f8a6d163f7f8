// Package backendtest exercises the backend.Backend contract against an
// arbitrary implementation. Store packages run the suite from their own
// tests; new implementations only need a factory.
package backendtest

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/unkn0wn-root/sidecache/backend"
)

// Factory builds the store under test for one subtest. The factory owns the
// store's lifecycle and should release it via t.Cleanup. Factories backed by
// shared infrastructure (a real networked store) may hand out the same
// underlying store every time; the suite namespaces all keys it writes, so
// runs never collide.
type Factory func(t *testing.T) backend.Backend

var nsCounter atomic.Int64

// ns returns a key prefix unique to one subtest run.
func ns() string {
	return fmt.Sprintf("conf:%d:%d:", time.Now().UnixNano(), nsCounter.Add(1))
}

// Run exercises the full Backend contract against factory-built stores.
func Run(t *testing.T, factory Factory) {
	t.Run("RoundTrip", func(t *testing.T) { testRoundTrip(t, factory(t)) })
	t.Run("ValueIsolation", func(t *testing.T) { testValueIsolation(t, factory(t)) })
	t.Run("EmptyValue", func(t *testing.T) { testEmptyValue(t, factory(t)) })
	t.Run("Expiry", func(t *testing.T) { testExpiry(t, factory(t)) })
	t.Run("OverwriteResetsExpiry", func(t *testing.T) { testOverwriteResetsExpiry(t, factory(t)) })
	t.Run("PersistWithoutTTL", func(t *testing.T) { testPersistWithoutTTL(t, factory(t)) })
	t.Run("TTLReporting", func(t *testing.T) { testTTLReporting(t, factory(t)) })
	t.Run("DelCounts", func(t *testing.T) { testDelCounts(t, factory(t)) })
	t.Run("DelExpiredNotCounted", func(t *testing.T) { testDelExpiredNotCounted(t, factory(t)) })
	t.Run("DelNoKeys", func(t *testing.T) { testDelNoKeys(t, factory(t)) })
	t.Run("KeysPattern", func(t *testing.T) { testKeysPattern(t, factory(t)) })
	t.Run("KeysExcludeExpired", func(t *testing.T) { testKeysExcludeExpired(t, factory(t)) })
	t.Run("ConcurrentAccess", func(t *testing.T) { testConcurrentAccess(t, factory(t)) })
}

func mustSet(t *testing.T, b backend.Backend, key string, value []byte, ttl time.Duration) {
	t.Helper()
	if err := b.Set(context.Background(), key, value, ttl); err != nil {
		t.Fatalf("Set(%q): %v", key, err)
	}
}

func mustGet(t *testing.T, b backend.Backend, key string) ([]byte, bool) {
	t.Helper()
	v, ok, err := b.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("Get(%q): %v", key, err)
	}
	return v, ok
}

func mustTTL(t *testing.T, b backend.Backend, key string) time.Duration {
	t.Helper()
	d, err := b.TTL(context.Background(), key)
	if err != nil {
		t.Fatalf("TTL(%q): %v", key, err)
	}
	return d
}

func testRoundTrip(t *testing.T, b backend.Backend) {
	p := ns()
	mustSet(t, b, p+"k", []byte("value-1"), 0)

	v, ok := mustGet(t, b, p+"k")
	if !ok {
		t.Fatalf("expected hit")
	}
	if !bytes.Equal(v, []byte("value-1")) {
		t.Fatalf("value mismatch: got %q", v)
	}

	if _, ok := mustGet(t, b, p+"missing"); ok {
		t.Fatalf("expected miss for absent key")
	}

	live, err := b.Exists(context.Background(), p+"k")
	if err != nil || !live {
		t.Fatalf("Exists = %v, %v; want true, nil", live, err)
	}
	live, err = b.Exists(context.Background(), p+"missing")
	if err != nil || live {
		t.Fatalf("Exists = %v, %v; want false, nil", live, err)
	}
}

func testValueIsolation(t *testing.T, b backend.Backend) {
	p := ns()
	in := []byte("original")
	mustSet(t, b, p+"k", in, 0)
	in[0] = 'X' // caller keeps mutating its buffer

	v, ok := mustGet(t, b, p+"k")
	if !ok || !bytes.Equal(v, []byte("original")) {
		t.Fatalf("stored value affected by caller mutation: got %q", v)
	}

	v[0] = 'Y' // mutate what Get handed out
	v2, ok := mustGet(t, b, p+"k")
	if !ok || !bytes.Equal(v2, []byte("original")) {
		t.Fatalf("stored value affected by reader mutation: got %q", v2)
	}
}

func testEmptyValue(t *testing.T, b backend.Backend) {
	p := ns()
	mustSet(t, b, p+"empty", []byte{}, 0)
	v, ok := mustGet(t, b, p+"empty")
	if !ok {
		t.Fatalf("expected hit for empty value")
	}
	if len(v) != 0 {
		t.Fatalf("expected empty value, got %q", v)
	}
}

func testExpiry(t *testing.T, b backend.Backend) {
	p := ns()
	mustSet(t, b, p+"k", []byte("short-lived"), 200*time.Millisecond)

	if _, ok := mustGet(t, b, p+"k"); !ok {
		t.Fatalf("expected hit before expiry")
	}

	time.Sleep(350 * time.Millisecond)

	if _, ok := mustGet(t, b, p+"k"); ok {
		t.Fatalf("expected miss after expiry")
	}
	live, err := b.Exists(context.Background(), p+"k")
	if err != nil || live {
		t.Fatalf("Exists after expiry = %v, %v; want false, nil", live, err)
	}
	if d := mustTTL(t, b, p+"k"); d != backend.TTLMissing {
		t.Fatalf("TTL after expiry = %v, want TTLMissing", d)
	}
}

func testOverwriteResetsExpiry(t *testing.T, b backend.Backend) {
	p := ns()
	mustSet(t, b, p+"k", []byte("v1"), 250*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	mustSet(t, b, p+"k", []byte("v2"), 5*time.Second)
	time.Sleep(250 * time.Millisecond) // past the first deadline

	v, ok := mustGet(t, b, p+"k")
	if !ok || !bytes.Equal(v, []byte("v2")) {
		t.Fatalf("overwrite did not reset expiry: ok=%v v=%q", ok, v)
	}

	// the other direction: persistent entry overwritten with a short TTL
	mustSet(t, b, p+"j", []byte("forever"), 0)
	mustSet(t, b, p+"j", []byte("brief"), 150*time.Millisecond)
	time.Sleep(300 * time.Millisecond)
	if _, ok := mustGet(t, b, p+"j"); ok {
		t.Fatalf("expected miss after TTL overwrote persistence")
	}
}

func testPersistWithoutTTL(t *testing.T, b backend.Backend) {
	p := ns()
	mustSet(t, b, p+"zero", []byte("v"), 0)
	if d := mustTTL(t, b, p+"zero"); d != backend.TTLNoExpiry {
		t.Fatalf("TTL for ttl=0 entry = %v, want TTLNoExpiry", d)
	}
	mustSet(t, b, p+"neg", []byte("v"), -time.Second)
	if d := mustTTL(t, b, p+"neg"); d != backend.TTLNoExpiry {
		t.Fatalf("TTL for negative-ttl entry = %v, want TTLNoExpiry", d)
	}
}

func testTTLReporting(t *testing.T, b backend.Backend) {
	p := ns()
	mustSet(t, b, p+"k", []byte("v"), 5*time.Second)
	d := mustTTL(t, b, p+"k")
	if d <= 0 || d > 5*time.Second {
		t.Fatalf("TTL = %v, want within (0, 5s]", d)
	}
	if d := mustTTL(t, b, p+"missing"); d != backend.TTLMissing {
		t.Fatalf("TTL for missing key = %v, want TTLMissing", d)
	}
}

func testDelCounts(t *testing.T, b backend.Backend) {
	p := ns()
	mustSet(t, b, p+"a", []byte("1"), 0)
	mustSet(t, b, p+"b", []byte("2"), 0)

	n, err := b.Del(context.Background(), p+"a", p+"b", p+"missing")
	if err != nil {
		t.Fatalf("Del: %v", err)
	}
	if n != 2 {
		t.Fatalf("Del removed %d, want 2", n)
	}
	if _, ok := mustGet(t, b, p+"a"); ok {
		t.Fatalf("expected miss after delete")
	}

	// deleting again is a no-op, not an error
	n, err = b.Del(context.Background(), p+"a")
	if err != nil || n != 0 {
		t.Fatalf("second Del = %d, %v; want 0, nil", n, err)
	}
}

func testDelExpiredNotCounted(t *testing.T, b backend.Backend) {
	p := ns()
	mustSet(t, b, p+"k", []byte("v"), 150*time.Millisecond)
	time.Sleep(300 * time.Millisecond)

	n, err := b.Del(context.Background(), p+"k")
	if err != nil {
		t.Fatalf("Del: %v", err)
	}
	if n != 0 {
		t.Fatalf("Del counted %d expired entries, want 0", n)
	}
}

func testDelNoKeys(t *testing.T, b backend.Backend) {
	n, err := b.Del(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("Del() = %d, %v; want 0, nil", n, err)
	}
}

func testKeysPattern(t *testing.T, b backend.Backend) {
	p := ns()
	for _, k := range []string{
		"users:list:page=1",
		"users:list:page=2",
		"users:item[7]",
		"orders:list:page=1",
	} {
		mustSet(t, b, p+k, []byte("v"), 0)
	}

	got, err := b.Keys(context.Background(), p+"users:list:*")
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	want := []string{p + "users:list:page=1", p + "users:list:page=2"}
	sort.Strings(got)
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("Keys(users:list:*) = %v, want %v", got, want)
	}

	// no wildcard: the pattern matches exactly one key, metacharacters and all
	got, err = b.Keys(context.Background(), p+"users:item[7]")
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(got) != 1 || got[0] != p+"users:item[7]" {
		t.Fatalf("Keys(literal) = %v, want the exact key", got)
	}

	// '*' alone sees every live key in the namespace
	got, err = b.Keys(context.Background(), p+"*")
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("Keys(*) returned %d keys, want 4: %v", len(got), got)
	}

	// nothing matches an unused prefix
	got, err = b.Keys(context.Background(), p+"sessions:*")
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Keys(sessions:*) = %v, want none", got)
	}
}

func testKeysExcludeExpired(t *testing.T, b backend.Backend) {
	p := ns()
	mustSet(t, b, p+"users:list:stale", []byte("v"), 150*time.Millisecond)
	mustSet(t, b, p+"users:list:fresh", []byte("v"), 0)
	time.Sleep(300 * time.Millisecond)

	got, err := b.Keys(context.Background(), p+"users:list:*")
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(got) != 1 || got[0] != p+"users:list:fresh" {
		t.Fatalf("Keys = %v, want only the fresh key", got)
	}
}

func testConcurrentAccess(t *testing.T, b backend.Backend) {
	p := ns()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("%sk%d", p, i%4)
			for j := 0; j < 25; j++ {
				switch j % 4 {
				case 0:
					_ = b.Set(context.Background(), key, []byte("v"), time.Second)
				case 1:
					_, _, _ = b.Get(context.Background(), key)
				case 2:
					_, _ = b.Exists(context.Background(), key)
				case 3:
					_, _ = b.Del(context.Background(), key)
				}
			}
		}(i)
	}
	wg.Wait()
}
