// Package cache provides byte caches for rendered artifacts.
//
// Entries are opaque byte slices addressed by string keys. Keys are built by a
// [Keyer] so that every component derives them the same way:
//
//	keyer := cache.NewDefaultKeyer()
//	key := keyer.ArtifactKey("graphviz", cache.Hash(src), cache.ArtifactKeyOpts{Format: "svg"})
//	if data, hit, err := c.Get(ctx, key); err == nil && hit {
//		return data
//	}
//
// Three backends are available: [FileCache] for the CLI, [RedisCache] for the
// server, and [NullCache] when caching is disabled. [Instrument] wraps any of
// them so that hits and misses reach the registered observability hooks.
package cache

import (
	"context"
	"time"
)

// TTLArtifact is the default lifetime of cached render output.
const TTLArtifact = 7 * 24 * time.Hour

// Cache stores byte slices under string keys.
//
// Implementations must be safe for concurrent use. A miss is reported as
// (nil, false, nil); errors are reserved for backend failures.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
