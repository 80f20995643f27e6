// Package graphviz renders DOT graph descriptions to inline SVG.
//
// Output is cached by a hash of the DOT source and the layout engine:
//
//	r := graphviz.New(cache.Instrument(fc))
//	reg.Register(r.Definition())
package graphviz

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/kindview/pkg/cache"
	"github.com/matzehuels/kindview/pkg/errors"
	"github.com/matzehuels/kindview/pkg/kind"
	"github.com/matzehuels/kindview/pkg/markup"
	"github.com/matzehuels/kindview/pkg/mime"
	"github.com/matzehuels/kindview/pkg/note"
	"github.com/matzehuels/kindview/pkg/render"
)

// Engines lists the accepted layout engines.
var Engines = []string{"dot", "neato", "fdp", "sfdp", "circo", "twopi", "osage", "patchwork"}

var options = render.Schema{
	"engine": render.OneOf(Engines...),
	"class":  render.String(),
}

type config struct {
	Engine string `option:"engine"`
	Class  string `option:"class"`
}

// Renderer lays out DOT sources. It is safe for concurrent use.
type Renderer struct {
	cache cache.Cache
	keyer cache.Keyer
	ttl   time.Duration
}

// Option configures a [Renderer].
type Option func(*Renderer)

// WithKeyer sets the keyer used for cache keys.
func WithKeyer(k cache.Keyer) Option {
	return func(r *Renderer) {
		if k != nil {
			r.keyer = k
		}
	}
}

// WithTTL sets the lifetime of cached output. Zero keeps entries forever.
func WithTTL(d time.Duration) Option {
	return func(r *Renderer) {
		r.ttl = d
	}
}

// New returns a renderer backed by c. A nil cache disables caching.
func New(c cache.Cache, opts ...Option) *Renderer {
	if c == nil {
		c = cache.NewNullCache()
	}
	r := &Renderer{cache: c, keyer: cache.NewDefaultKeyer(), ttl: cache.TTLArtifact}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Definition returns the graphviz kind definition rendered by r.
func (r *Renderer) Definition() render.Definition {
	return render.Definition{
		Kind:        kind.Graphviz,
		Description: "Graphviz DOT graph as SVG",
		Options:     options,
		Nestable:    true,
		Render:      r.Render,
	}
}

// Render lays out n.Value: DOT source, or a graph mapping (see [Graph]).
func (r *Renderer) Render(ctx context.Context, e *render.Engine, n note.Note, _ render.Scope) (render.Artifact, error) {
	var cfg config
	if err := render.Decode(n.Options, &cfg); err != nil {
		return render.Artifact{}, err
	}
	if cfg.Engine == "" {
		cfg.Engine = "dot"
	}
	src, err := source(n.Value)
	if err != nil {
		return render.Artifact{}, err
	}

	key := r.keyer.ArtifactKey(string(kind.Graphviz), cache.HashString(src),
		cache.ArtifactKeyOpts{Format: "svg", Engine: cfg.Engine})

	svg, hit, err := r.cache.Get(ctx, key)
	if err != nil {
		e.Logger().Debug("graphviz cache read failed", "err", err)
	}
	if !hit {
		svg, err = RenderSVG(ctx, src, cfg.Engine)
		if err != nil {
			return render.Artifact{}, err
		}
		if err := r.cache.Set(ctx, key, svg, r.ttl); err != nil {
			e.Logger().Debug("graphviz cache write failed", "err", err)
		}
	}

	class := "kind-graphviz"
	if cfg.Class != "" {
		class += " " + cfg.Class
	}
	tree := markup.El("div", markup.Attrs{"class": class, "data-engine": cfg.Engine}, markup.Raw(string(svg)))
	return render.Artifact{Tree: tree, Payload: mime.Image("svg+xml", svg)}, nil
}

func source(v any) (string, error) {
	switch v := v.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return "", errors.New(errors.ErrCodeInvalidValue, "graphviz expects DOT source, got an empty string")
		}
		return v, nil
	case []byte:
		return source(string(v))
	default:
		g, err := graphFromValue(v)
		if err != nil {
			return "", err
		}
		return ToDOT(g), nil
	}
}

// RenderSVG lays out dot with the named engine and returns SVG with a
// normalized root element. Malformed DOT is an invalid value.
func RenderSVG(ctx context.Context, dot, engine string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "init graphviz")
	}
	defer gv.Close()
	gv.SetLayout(graphviz.Layout(engine))

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidValue, err, "graphviz could not parse DOT source")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidValue, err, "graphviz layout failed")
	}
	return normalizeViewBox(stripProlog(buf.Bytes())), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.-]+)\s+([0-9.-]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces the root svg element with one whose viewBox
// starts at the origin and whose width and height match it.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	loc := svgTagRe.FindIndex(svg)
	if loc == nil {
		return svg
	}
	out := make([]byte, 0, len(svg))
	out = append(out, svg[:loc[0]]...)
	out = append(out, root...)
	return append(out, svg[loc[1]:]...)
}

// stripProlog drops the XML declaration and doctype before the root element.
func stripProlog(svg []byte) []byte {
	if i := bytes.Index(svg, []byte("<svg")); i > 0 {
		return svg[i:]
	}
	return svg
}
