// Package composite renders collection kinds by dispatching every element
// back through the engine in a nested scope.
//
// Sequence kinds (vector, set, seq) wrap each element tree in a
// div.kind-item inside a div.kind-<tag> container, preserving order. The
// map kind interleaves keys and values. Table and dataset kinds build an
// HTML table of printed scalars.
package composite

import (
	"context"
	"iter"
	"maps"
	"reflect"
	"slices"
	"strings"

	"github.com/matzehuels/kindview/pkg/errors"
	"github.com/matzehuels/kindview/pkg/kind"
	"github.com/matzehuels/kindview/pkg/markup"
	"github.com/matzehuels/kindview/pkg/mime"
	"github.com/matzehuels/kindview/pkg/note"
	"github.com/matzehuels/kindview/pkg/printer"
	"github.com/matzehuels/kindview/pkg/render"
)

// DefaultSeqLimit bounds how many elements of a lazy sequence are rendered.
const DefaultSeqLimit = 1000

var containerOptions = render.Schema{
	"style": render.Map(),
	"class": render.String(),
}

type containerConfig struct {
	Style map[string]any `option:"style"`
	Class string         `option:"class"`
	Limit int            `option:"limit"`
}

// Definitions returns the composite kind definitions.
func Definitions() []render.Definition {
	seqOptions := render.Schema{"limit": render.Int()}
	maps.Copy(seqOptions, containerOptions)
	return []render.Definition{
		{Kind: kind.Vector, Description: "ordered sequence", Options: containerOptions, Nestable: true, Render: Sequence(kind.Vector)},
		{Kind: kind.Set, Description: "set of distinct values", Options: containerOptions, Nestable: true, Render: Sequence(kind.Set)},
		{Kind: kind.Seq, Description: "lazy sequence", Options: seqOptions, Nestable: true, Render: Sequence(kind.Seq)},
		{Kind: kind.Map, Description: "key/value mapping", Options: containerOptions, Nestable: true, Render: Mapping},
		{Kind: kind.Table, Description: "columns and rows", Options: tableOptions, Nestable: true, Render: Table},
		{Kind: kind.Dataset, Description: "sequence of records", Options: tableOptions, Nestable: true, Render: Dataset},
	}
}

// Sequence returns the renderer of a sequence kind tagged tag.
func Sequence(tag note.Kind) render.Renderer {
	return func(ctx context.Context, e *render.Engine, n note.Note, s render.Scope) (render.Artifact, error) {
		var cfg containerConfig
		if err := render.Decode(n.Options, &cfg); err != nil {
			return render.Artifact{}, err
		}
		limit := cfg.Limit
		if limit <= 0 {
			limit = DefaultSeqLimit
		}
		elems, ok := elements(n.Value, limit)
		if !ok {
			return render.Artifact{}, errors.New(errors.ErrCodeInvalidValue, "%s expects a sequence, got %T", tag, n.Value)
		}
		var items []*markup.Node
		for v := range elems {
			tree, err := renderChild(ctx, e, v, s)
			if err != nil {
				return render.Artifact{}, err
			}
			items = append(items, item(tree))
		}
		return container(tag, cfg, items), nil
	}
}

// Mapping renders key/value pairs as an interleaved sequence of
// individually wrapped keys and values. Keys print literally unless they
// carry kind metadata as a *note.Kinded.
func Mapping(ctx context.Context, e *render.Engine, n note.Note, s render.Scope) (render.Artifact, error) {
	var cfg containerConfig
	if err := render.Decode(n.Options, &cfg); err != nil {
		return render.Artifact{}, err
	}
	pairs, ok := entries(n.Value)
	if !ok {
		return render.Artifact{}, errors.New(errors.ErrCodeInvalidValue, "map expects a mapping, got %T", n.Value)
	}
	items := make([]*markup.Node, 0, 2*len(pairs))
	for _, p := range pairs {
		var keyTree *markup.Node
		if k, ok := p.key.(*note.Kinded); ok && k != nil {
			t, err := renderChild(ctx, e, *k, s)
			if err != nil {
				return render.Artifact{}, err
			}
			keyTree = t
		} else {
			keyTree = markup.El("code", markup.Class("kind-key"), markup.Leaf(printer.Sprint(p.key)))
		}
		valTree, err := renderChild(ctx, e, p.val, s)
		if err != nil {
			return render.Artifact{}, err
		}
		items = append(items, item(keyTree), item(valTree))
	}
	return container(kind.Map, cfg, items), nil
}

func renderChild(ctx context.Context, e *render.Engine, v any, s render.Scope) (*markup.Node, error) {
	a, err := e.Render(ctx, note.New(v, ""), s.Child())
	if err != nil {
		return nil, err
	}
	return a.Tree, nil
}

func item(tree *markup.Node) *markup.Node {
	return markup.El("div", markup.Class("kind-item"), tree)
}

func container(tag note.Kind, cfg containerConfig, items []*markup.Node) render.Artifact {
	class := "kind-" + string(tag)
	if cfg.Class != "" {
		class += " " + cfg.Class
	}
	attrs := markup.Attrs{"class": class}
	if len(cfg.Style) > 0 {
		attrs["style"] = cfg.Style
	}
	tree := markup.El("div", attrs, items...)
	return render.Artifact{Tree: tree, Payload: mime.FromTree(tree)}
}

// elements iterates the elements of a sequence-shaped value.
func elements(v any, limit int) (iter.Seq[any], bool) {
	switch v := v.(type) {
	case []any:
		return slices.Values(v), true
	case note.Set:
		return slices.Values(v), true
	case iter.Seq[any]:
		return take(v, limit), true
	case nil:
		return slices.Values([]any(nil)), true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return func(yield func(any) bool) {
			for i := range rv.Len() {
				if !yield(rv.Index(i).Interface()) {
					return
				}
			}
		}, true
	case reflect.Map:
		// A Go map used as a set: keys in printed order.
		keys := rv.MapKeys()
		slices.SortFunc(keys, func(a, b reflect.Value) int {
			return strings.Compare(printer.Sprint(a.Interface()), printer.Sprint(b.Interface()))
		})
		return func(yield func(any) bool) {
			for _, k := range keys {
				if !yield(k.Interface()) {
					return
				}
			}
		}, true
	}
	return nil, false
}

func take(seq iter.Seq[any], n int) iter.Seq[any] {
	return func(yield func(any) bool) {
		i := 0
		for v := range seq {
			if i == n || !yield(v) {
				return
			}
			i++
		}
	}
}

type pair struct {
	key, val any
}

// entries returns the key/value pairs of a mapping-shaped value. Ordered
// maps keep insertion order; Go maps are sorted by printed key.
func entries(v any) ([]pair, bool) {
	if m, ok := v.(*note.Map); ok {
		if m == nil {
			return nil, true
		}
		out := make([]pair, 0, m.Len())
		for p := m.Oldest(); p != nil; p = p.Next() {
			out = append(out, pair{p.Key, p.Value})
		}
		return out, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map {
		return nil, false
	}
	out := make([]pair, 0, rv.Len())
	it := rv.MapRange()
	for it.Next() {
		out = append(out, pair{it.Key().Interface(), it.Value().Interface()})
	}
	slices.SortFunc(out, func(a, b pair) int {
		return strings.Compare(printer.Sprint(a.key), printer.Sprint(b.key))
	})
	return out, true
}

