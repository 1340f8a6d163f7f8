package sidecache

import "time"

const (
	// DefaultTTL is substituted when Set receives a zero TTL.
	DefaultTTL = 60 * time.Second

	// DefaultFrontTTL caps how long the optional front cache may serve an
	// entry without consulting the backend.
	DefaultFrontTTL = 5 * time.Second
)

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
