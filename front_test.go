package sidecache

import (
	"context"
	"testing"
	"time"

	"github.com/unkn0wn-root/sidecache/backend/memory"
)

func newFrontedCache(t *testing.T, mem *memory.Store, mut func(*Options[user])) Cache[user] {
	t.Helper()
	opts := Options[user]{
		Backend:           mem,
		FrontCacheEntries: 128,
	}
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

func newMem(t *testing.T) *memory.Store {
	t.Helper()
	mem := memory.New(memory.Config{SweepInterval: -1})
	t.Cleanup(func() { _ = mem.Close(context.Background()) })
	return mem
}

func TestFrontServesWithoutBackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	mem := newMem(t)
	cc := newFrontedCache(t, mem, nil)

	cc.Set(ctx, "k", user{ID: "1", Name: "Ada"}, 10*time.Second)

	// remove the entry behind the facade's back; the front layer still has it
	if _, err := mem.Del(ctx, "k"); err != nil {
		t.Fatalf("backend Del: %v", err)
	}
	got, ok := cc.Get(ctx, "k")
	if !ok || got.Name != "Ada" {
		t.Fatalf("front layer should serve the hot key, got %+v, %v", got, ok)
	}

	// an explicit Delete clears the front layer too
	cc.Delete(ctx, "k")
	if _, ok := cc.Get(ctx, "k"); ok {
		t.Fatalf("expected miss after Delete")
	}
}

func TestFrontPromotesBackendHits(t *testing.T) {
	ctx := context.Background()
	mem := newMem(t)
	cc := newFrontedCache(t, mem, nil)

	// write through a second facade so this one's front layer starts cold
	other, err := New[user](Options[user]{Backend: mem})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	other.Set(ctx, "k", user{ID: "1", Name: "Ada"}, 10*time.Second)

	if _, ok := cc.Get(ctx, "k"); !ok { // backend hit, promoted
		t.Fatalf("expected backend hit")
	}

	// gone from the backend, still served from the promoted front entry
	if _, err := mem.Del(ctx, "k"); err != nil {
		t.Fatalf("backend Del: %v", err)
	}
	if _, ok := cc.Get(ctx, "k"); !ok {
		t.Fatalf("promoted entry should serve from the front layer")
	}
}

func TestFrontStalenessIsBounded(t *testing.T) {
	ctx := context.Background()
	mem := newMem(t)
	cc := newFrontedCache(t, mem, func(o *Options[user]) {
		o.FrontTTL = 100 * time.Millisecond
	})

	cc.Set(ctx, "k", user{ID: "1", Name: "old"}, 10*time.Second)

	// another writer replaces the entry out of band
	other, err := New[user](Options[user]{Backend: mem})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	other.Set(ctx, "k", user{ID: "1", Name: "new"}, 10*time.Second)

	// within the front window the old value may still be served
	if got, ok := cc.Get(ctx, "k"); !ok || got.Name != "old" {
		t.Fatalf("expected front-cached value, got %+v, %v", got, ok)
	}

	// after the window the backend's value wins
	time.Sleep(250 * time.Millisecond)
	got, ok := cc.Get(ctx, "k")
	if !ok || got.Name != "new" {
		t.Fatalf("expected refreshed value after front window, got %+v, %v", got, ok)
	}
}

func TestFrontClearedOnPatternInvalidation(t *testing.T) {
	ctx := context.Background()
	mem := newMem(t)
	cc := newFrontedCache(t, mem, nil)

	cc.Set(ctx, "users:list:page=1", user{ID: "1"}, 10*time.Second)
	cc.Set(ctx, "users:list:page=2", user{ID: "2"}, 10*time.Second)

	if n := cc.DeletePattern(ctx, "users:list:*"); n != 2 {
		t.Fatalf("DeletePattern removed %d, want 2", n)
	}
	if _, ok := cc.Get(ctx, "users:list:page=1"); ok {
		t.Fatalf("front layer served an invalidated entry")
	}
	if _, ok := cc.Get(ctx, "users:list:page=2"); ok {
		t.Fatalf("front layer served an invalidated entry")
	}
}

func TestFrontHonorsShortEntryTTL(t *testing.T) {
	ctx := context.Background()
	mem := newMem(t)
	cc := newFrontedCache(t, mem, nil) // default 5s front window

	cc.Set(ctx, "k", user{ID: "1"}, 120*time.Millisecond)
	if _, ok := cc.Get(ctx, "k"); !ok {
		t.Fatalf("expected hit before expiry")
	}
	time.Sleep(250 * time.Millisecond)
	// the front entry was capped at the entry TTL, not the front window
	if _, ok := cc.Get(ctx, "k"); ok {
		t.Fatalf("front layer outlived the entry's TTL")
	}
}
