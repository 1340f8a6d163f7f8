package sidecache

import (
	"fmt"
	"sort"
	"strings"
)

// Key-building helpers for the listing convention this cache grew up
// around: resources cache their query results under "<resource>:<op>:..."
// and invalidate whole families with one pattern. Using them is optional;
// any key scheme works as long as writers and invalidators agree on it.

// ListKey returns the cache key for one page of a resource listing, e.g.
// "users:list:page=2:limit=10:search=ann".
func ListKey(resource string, page, limit int, search string) string {
	return fmt.Sprintf("%s:list:page=%d:limit=%d:search=%s", resource, page, limit, search)
}

// ListPattern matches every cached list page of resource, including every
// page, limit and search variant.
func ListPattern(resource string) string {
	return resource + ":list:*"
}

// QueryKey builds "<resource>:<op>:k=v:..." from arbitrary parameters,
// sorting parameter names so equal parameter sets always produce the same
// key regardless of map iteration order.
func QueryKey(resource, op string, params map[string]any) string {
	if len(params) == 0 {
		return resource + ":" + op
	}
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(resource)
	b.WriteByte(':')
	b.WriteString(op)
	for _, name := range names {
		fmt.Fprintf(&b, ":%s=%v", name, params[name])
	}
	return b.String()
}
