package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/kindview/pkg/observability"
)

// exercise runs the behavior every backend shares.
func exercise(t *testing.T, c Cache) {
	t.Helper()
	ctx := context.Background()

	if _, hit, err := c.Get(ctx, "artifact:graphviz:missing"); err != nil || hit {
		t.Fatalf("Get(missing) = hit %v, err %v", hit, err)
	}
	if err := c.Set(ctx, "artifact:graphviz:a", []byte("<svg/>"), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, hit, err := c.Get(ctx, "artifact:graphviz:a")
	if err != nil || !hit {
		t.Fatalf("Get = hit %v, err %v", hit, err)
	}
	if string(data) != "<svg/>" {
		t.Errorf("Get = %q, want %q", data, "<svg/>")
	}
	if err := c.Delete(ctx, "artifact:graphviz:a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "artifact:graphviz:a"); hit {
		t.Error("entry still present after Delete")
	}
	if err := c.Delete(ctx, "artifact:graphviz:a"); err != nil {
		t.Errorf("Delete(missing): %v", err)
	}
}

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, hit, err := c.Get(ctx, "key")
	if err != nil || hit || data != nil {
		t.Errorf("Get = (%v, %v, %v), want miss", data, hit, err)
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete: %v", err)
	}
}

func TestFileCache(t *testing.T) {
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	exercise(t, c)
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if err := c.Set(ctx, "k", []byte("v"), time.Nanosecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("expired entry returned")
	}
	if _, err := os.Stat(c.path("k")); !os.IsNotExist(err) {
		t.Error("expired entry file not removed")
	}

	if err := c.Set(ctx, "forever", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := c.Get(ctx, "forever"); !hit {
		t.Error("zero ttl entry missing")
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	path := c.path("bad")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, hit, err := c.Get(ctx, "bad")
	if err != nil || hit {
		t.Errorf("Get(corrupt) = hit %v, err %v; want clean miss", hit, err)
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"a", "b", "c"} {
		if err := c.Set(ctx, k, []byte(k), 0); err != nil {
			t.Fatal(err)
		}
	}

	n, err := c.Clear()
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n != 3 {
		t.Errorf("Clear removed %d entries, want 3", n)
	}
	if _, hit, _ := c.Get(ctx, "a"); hit {
		t.Error("entry survived Clear")
	}
}

func TestRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	c := NewRedisCacheFromClient(client, WithRedisPrefix("test:"))
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	exercise(t, c)

	if err := c.Set(context.Background(), "k", []byte("v"), time.Minute); err != nil {
		t.Fatal(err)
	}
	if !mr.Exists("test:k") {
		t.Error("prefix not applied to stored key")
	}
	mr.FastForward(2 * time.Minute)
	if _, hit, _ := c.Get(context.Background(), "k"); hit {
		t.Error("expired redis entry returned")
	}

	// The client is borrowed, so Close must leave it usable.
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Errorf("client closed by borrowed cache: %v", err)
	}
}

func TestNewRedisCacheOwnsClient(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewRedisCache(mr.Addr(), "", 0)
	exercise(t, c)
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := c.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("second Close = %v, want ErrClosed", err)
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	if h1 != Hash([]byte("hello")) {
		t.Error("Hash is not deterministic")
	}
	if h1 == Hash([]byte("world")) {
		t.Error("different inputs produced the same hash")
	}
	if len(h1) != 64 {
		t.Errorf("Hash length = %d, want 64", len(h1))
	}
	if HashString("hello") != h1 {
		t.Error("HashString differs from Hash")
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()
	src := HashString("digraph { a -> b }")

	svg := k.ArtifactKey("graphviz", src, ArtifactKeyOpts{Format: "svg", Engine: "dot"})
	if !strings.HasPrefix(svg, "artifact:graphviz:") {
		t.Errorf("ArtifactKey = %q, want artifact:graphviz: prefix", svg)
	}
	if svg != k.ArtifactKey("graphviz", src, ArtifactKeyOpts{Format: "svg", Engine: "dot"}) {
		t.Error("ArtifactKey is not deterministic")
	}

	tests := []struct {
		name string
		key  string
	}{
		{"engine", k.ArtifactKey("graphviz", src, ArtifactKeyOpts{Format: "svg", Engine: "neato"})},
		{"kind", k.ArtifactKey("image", src, ArtifactKeyOpts{Format: "svg", Engine: "dot"})},
		{"source", k.ArtifactKey("graphviz", HashString("graph {}"), ArtifactKeyOpts{Format: "svg", Engine: "dot"})},
		{"extra", k.ArtifactKey("graphviz", src, ArtifactKeyOpts{Format: "svg", Engine: "dot", Extra: map[string]any{"dpi": 96}})},
	}
	for _, tt := range tests {
		if tt.key == svg {
			t.Errorf("changing %s did not change the key", tt.name)
		}
	}
}

func TestScopedKeyer(t *testing.T) {
	inner := NewDefaultKeyer()
	scoped := NewScopedKeyer(inner, "env:notebook:")
	opts := ArtifactKeyOpts{Format: "svg"}

	got := scoped.ArtifactKey("graphviz", "h", opts)
	want := "env:notebook:" + inner.ArtifactKey("graphviz", "h", opts)
	if got != want {
		t.Errorf("ArtifactKey = %q, want %q", got, want)
	}
	if got := NewScopedKeyer(nil, "p:").ArtifactKey("graphviz", "h", opts); got != "p:"+inner.ArtifactKey("graphviz", "h", opts) {
		t.Errorf("nil inner keyer: ArtifactKey = %q", got)
	}
}

func TestRetryWithBackoff(t *testing.T) {
	old := retryDelay
	retryDelay = time.Millisecond
	defer func() { retryDelay = old }()

	t.Run("retries transient errors", func(t *testing.T) {
		calls := 0
		err := RetryWithBackoff(context.Background(), func() error {
			calls++
			if calls < 3 {
				return Retryable(errors.New("flaky"))
			}
			return nil
		})
		if err != nil || calls != 3 {
			t.Errorf("err %v after %d calls, want nil after 3", err, calls)
		}
	})

	t.Run("stops on permanent errors", func(t *testing.T) {
		calls := 0
		perm := errors.New("permanent")
		err := RetryWithBackoff(context.Background(), func() error {
			calls++
			return perm
		})
		if !errors.Is(err, perm) || calls != 1 {
			t.Errorf("err %v after %d calls, want permanent after 1", err, calls)
		}
	})

	t.Run("honors cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := RetryWithBackoff(ctx, func() error {
			return Retryable(errors.New("flaky"))
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	})
}

type recordingHooks struct {
	mu     sync.Mutex
	events []string
}

func (h *recordingHooks) record(e string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
}

func (h *recordingHooks) OnCacheHit(_ context.Context, keyType string)  { h.record("hit " + keyType) }
func (h *recordingHooks) OnCacheMiss(_ context.Context, keyType string) { h.record("miss " + keyType) }
func (h *recordingHooks) OnCacheSet(_ context.Context, keyType string, _ int) {
	h.record("set " + keyType)
}

func TestInstrument(t *testing.T) {
	hooks := &recordingHooks{}
	observability.SetCacheHooks(hooks)
	defer observability.Reset()

	fc, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	c := Instrument(fc)
	ctx := context.Background()

	c.Get(ctx, "artifact:graphviz:abc")
	c.Set(ctx, "artifact:graphviz:abc", []byte("x"), 0)
	c.Get(ctx, "artifact:graphviz:abc")

	want := []string{"miss artifact:graphviz", "set artifact:graphviz", "hit artifact:graphviz"}
	if strings.Join(hooks.events, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", hooks.events, want)
	}
}
