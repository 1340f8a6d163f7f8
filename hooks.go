package sidecache

// Hooks are lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking; the cache calls them on
// hot paths. Wrap with hooks/async when a consumer might stall.
type Hooks interface {
	// A read was served (from the front cache or the backend).
	Hit(key string)

	// A read found nothing: absent, expired, or degraded to a miss.
	Miss(key string)

	// A backend operation failed and was contained.
	// op ∈ {"get", "set", "delete", "keys", "exists", "ttl"}
	BackendError(op, key string, err error)

	// A value failed to encode or decode. Decode failures also evict the
	// offending entry.
	// op ∈ {"encode", "decode"}
	CodecError(op, key string, err error)

	// A pattern invalidation completed, removing that many live entries.
	PatternInvalidated(pattern string, removed int64)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) Hit(string)                         {}
func (NopHooks) Miss(string)                        {}
func (NopHooks) BackendError(string, string, error) {}
func (NopHooks) CodecError(string, string, error)   {}
func (NopHooks) PatternInvalidated(string, int64)   {}
