package cache

import (
	"context"
	"strings"
	"time"

	"github.com/matzehuels/kindview/pkg/observability"
)

// Instrument wraps c so that lookups and writes are reported to
// [observability.Cache]. The key type reported is the key up to its last colon.
func Instrument(c Cache) Cache {
	if c == nil {
		c = NewNullCache()
	}
	return &instrumented{inner: c}
}

type instrumented struct {
	inner Cache
}

func (c *instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, hit, err := c.inner.Get(ctx, key)
	if err == nil {
		if hit {
			observability.Cache().OnCacheHit(ctx, keyType(key))
		} else {
			observability.Cache().OnCacheMiss(ctx, keyType(key))
		}
	}
	return data, hit, err
}

func (c *instrumented) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := c.inner.Set(ctx, key, data, ttl); err != nil {
		return err
	}
	observability.Cache().OnCacheSet(ctx, keyType(key), len(data))
	return nil
}

func (c *instrumented) Delete(ctx context.Context, key string) error {
	return c.inner.Delete(ctx, key)
}

func (c *instrumented) Close() error {
	return c.inner.Close()
}

func keyType(key string) string {
	if i := strings.LastIndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return "unknown"
}
