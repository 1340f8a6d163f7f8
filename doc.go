// Package sidecache implements a fail-soft cache-aside layer over a
// networked store with a built-in in-memory fallback. Reads that fail
// anywhere inside the cache come back as misses; writes that fail are
// dropped. Callers re-derive from the source of truth and keep working.
//
// Components:
//   - backend.Backend: byte store with per-key TTLs and '*'-pattern listing
//     (Redis, in-memory, BigCache).
//   - codec.Codec[V]: (de)serializes V <-> []byte. JSON by default.
//   - NewFailover: per-call routing between a ready-aware primary and a
//     local fallback.
//
// Cache-aside pattern:
//
//	if v, ok := cache.Get(ctx, key); ok {
//		return v
//	}
//	v := readFromDB(ctx)
//	cache.Set(ctx, key, v, 0) // 0 => DefaultTTL
//	return v
//
// Invalidation after a write:
//
//	db.UpdateUser(ctx, u)
//	cache.DeletePattern(ctx, sidecache.ListPattern("users"))
package sidecache
