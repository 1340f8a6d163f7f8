package sidecache

import "testing"

func TestListKey(t *testing.T) {
	got := ListKey("users", 2, 10, "ann")
	want := "users:list:page=2:limit=10:search=ann"
	if got != want {
		t.Fatalf("ListKey = %q, want %q", got, want)
	}

	// empty search still yields a well-formed key
	got = ListKey("orders", 1, 25, "")
	want = "orders:list:page=1:limit=25:search="
	if got != want {
		t.Fatalf("ListKey = %q, want %q", got, want)
	}
}

func TestListPatternCoversListKeys(t *testing.T) {
	pattern := ListPattern("users")
	if pattern != "users:list:*" {
		t.Fatalf("ListPattern = %q", pattern)
	}
}

func TestQueryKeyDeterministic(t *testing.T) {
	a := QueryKey("users", "list", map[string]any{"page": 1, "limit": 10, "search": "x"})
	b := QueryKey("users", "list", map[string]any{"search": "x", "page": 1, "limit": 10})
	if a != b {
		t.Fatalf("same params produced different keys: %q vs %q", a, b)
	}
	want := "users:list:limit=10:page=1:search=x"
	if a != want {
		t.Fatalf("QueryKey = %q, want %q", a, want)
	}

	if got := QueryKey("users", "count", nil); got != "users:count" {
		t.Fatalf("QueryKey with no params = %q", got)
	}
}
