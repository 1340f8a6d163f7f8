package sidecache

import "os"

// EnvRedisURL names the environment variable conventionally holding the
// networked store endpoint.
const EnvRedisURL = "REDIS_URL"

// FromEnv reads the store endpoint from the environment. An empty result
// fed to Options.RedisURL selects fallback-only mode, so
//
//	cache, err := sidecache.New[[]User](sidecache.Options[[]User]{RedisURL: sidecache.FromEnv()})
//
// does the right thing both with and without a configured store.
func FromEnv() string {
	return os.Getenv(EnvRedisURL)
}
