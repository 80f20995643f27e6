package graphviz

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/kindview/pkg/cache"
	"github.com/matzehuels/kindview/pkg/errors"
	"github.com/matzehuels/kindview/pkg/kind"
	"github.com/matzehuels/kindview/pkg/mime"
	"github.com/matzehuels/kindview/pkg/note"
	"github.com/matzehuels/kindview/pkg/render"
)

type memCache struct {
	data map[string][]byte
	sets int
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	b, ok := c.data[key]
	return b, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, data []byte, _ time.Duration) error {
	c.data[key] = data
	c.sets++
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	delete(c.data, key)
	return nil
}

func (c *memCache) Close() error { return nil }

func engineWith(r *Renderer) *render.Engine {
	return render.NewEngine(render.WithRegistry(render.NewRegistry(r.Definition())))
}

func TestRenderSVG(t *testing.T) {
	svg, err := RenderSVG(context.Background(), "digraph { a -> b }", "dot")
	if err != nil {
		t.Fatalf("RenderSVG: %v", err)
	}
	s := string(svg)
	if !strings.HasPrefix(s, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 `) {
		t.Errorf("root element not normalized: %.120s", s)
	}
	if !strings.Contains(s, "<title>a</title>") || !strings.Contains(s, "<title>b</title>") {
		t.Error("nodes missing from SVG")
	}
}

func TestRenderSVGInvalid(t *testing.T) {
	_, err := RenderSVG(context.Background(), "digraph { a -> ", "dot")
	if !errors.Is(err, errors.ErrCodeInvalidValue) {
		t.Errorf("err = %v, want INVALID_VALUE", err)
	}
}

func TestRenderCaches(t *testing.T) {
	mc := newMemCache()
	e := engineWith(New(mc))
	n := note.Note{Kind: kind.Graphviz, Value: "digraph { a -> b }"}

	first, err := e.RenderTop(context.Background(), n)
	if err != nil {
		t.Fatal(err)
	}
	if first.Payload.MIME != mime.TypeSVG {
		t.Errorf("MIME = %q, want %q", first.Payload.MIME, mime.TypeSVG)
	}
	if mc.sets != 1 {
		t.Fatalf("cache writes = %d, want 1", mc.sets)
	}

	second, err := e.RenderTop(context.Background(), n)
	if err != nil {
		t.Fatal(err)
	}
	if mc.sets != 1 {
		t.Errorf("second render wrote the cache again")
	}
	if string(second.Payload.Data) != string(first.Payload.Data) {
		t.Error("cached payload differs")
	}
}

func TestRenderUsesCachedSVG(t *testing.T) {
	mc := newMemCache()
	src := "digraph { x }"
	key := cache.NewDefaultKeyer().ArtifactKey("graphviz", cache.HashString(src),
		cache.ArtifactKeyOpts{Format: "svg", Engine: "neato"})
	mc.data[key] = []byte("<svg>cached</svg>")

	n := note.Note{Kind: kind.Graphviz, Value: src, Options: map[string]any{"engine": "neato", "class": "wide"}}
	a, err := engineWith(New(mc)).RenderTop(context.Background(), n)
	if err != nil {
		t.Fatal(err)
	}
	want := `<div class="kind-graphviz wide" data-engine="neato"><svg>cached</svg></div>`
	if got := a.Tree.HTML(); got != want {
		t.Errorf("tree = %s, want %s", got, want)
	}
}

func TestRenderPolicyFailures(t *testing.T) {
	tests := []struct {
		name string
		note note.Note
		code errors.Code
	}{
		{"not text", note.Note{Kind: kind.Graphviz, Value: 42}, errors.ErrCodeInvalidValue},
		{"empty", note.Note{Kind: kind.Graphviz, Value: "  "}, errors.ErrCodeInvalidValue},
		{"bad engine", note.Note{Kind: kind.Graphviz, Value: "graph {}", Options: map[string]any{"engine": "spring"}}, errors.ErrCodeInvalidOptions},
	}
	e := engineWith(New(nil))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := e.RenderTop(context.Background(), tt.note)
			if err != nil {
				t.Fatalf("policy failure escaped as error: %v", err)
			}
			if got := a.Tree.Attr("data-code"); got != string(tt.code) {
				t.Errorf("data-code = %v, want %s", got, tt.code)
			}
		})
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := `<svg width="62pt" height="116pt" viewBox="0.00 0.00 62.00 116.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`
	got := string(normalizeViewBox([]byte(in)))
	want := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 62.00 116.00" width="62" height="116"><g/></svg>`
	if got != want {
		t.Errorf("normalizeViewBox =\n%s\nwant\n%s", got, want)
	}

	plain := `<svg><g/></svg>`
	if got := string(normalizeViewBox([]byte(plain))); got != plain {
		t.Errorf("svg without viewBox changed: %s", got)
	}
}

func TestStripProlog(t *testing.T) {
	in := "<?xml version=\"1.0\"?>\n<!DOCTYPE svg>\n<svg></svg>"
	if got := string(stripProlog([]byte(in))); got != "<svg></svg>" {
		t.Errorf("stripProlog = %q", got)
	}
}
