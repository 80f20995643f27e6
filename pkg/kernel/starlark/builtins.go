package starlark

import (
	"fmt"
	"maps"
	"slices"

	star "go.starlark.net/starlark"

	"github.com/matzehuels/kindview/pkg/kind"
	"github.com/matzehuels/kindview/pkg/note"
)

// kinded is the Starlark side of note.Kinded: a value with kind metadata.
type kinded struct {
	kind  note.Kind
	value star.Value
	opts  []star.Tuple
	deps  []string

	// columns is set for tables built from rows and column names.
	columns star.Value
}

var (
	_ star.Value    = (*kinded)(nil)
	_ star.HasAttrs = (*kinded)(nil)
)

func (k *kinded) String() string {
	return fmt.Sprintf("<%s %s>", k.kind, k.value)
}

func (k *kinded) Type() string {
	return "kinded"
}

func (k *kinded) Truth() star.Bool {
	return star.True
}

// Hash combines the kind with the value's hash when it has one. Equality
// is identity, so equal kinded values always hash alike.
func (k *kinded) Hash() (uint32, error) {
	h, err := star.String(k.kind).Hash()
	if err != nil {
		return 0, err
	}
	if vh, err := k.value.Hash(); err == nil {
		h = h*31 ^ vh
	}
	return h, nil
}

func (k *kinded) Freeze() {
	k.value.Freeze()
	for _, o := range k.opts {
		o.Freeze()
	}
	if k.columns != nil {
		k.columns.Freeze()
	}
}

func (k *kinded) Attr(name string) (star.Value, error) {
	switch name {
	case "kind":
		return star.String(k.kind), nil
	case "value":
		return k.value, nil
	}
	return nil, nil
}

func (k *kinded) AttrNames() []string { return []string{"kind", "value"} }

func (k *kinded) toGo(kern *Kernel) (any, error) {
	v, err := toGo(kern, k.value)
	if err != nil {
		return nil, err
	}
	if k.columns != nil {
		v, err = tableOf(kern, k.columns, v)
		if err != nil {
			return nil, err
		}
	}
	var opts map[string]any
	if len(k.opts) > 0 {
		opts = make(map[string]any, len(k.opts))
		for _, kv := range k.opts {
			ov, err := toGo(kern, kv[1])
			if err != nil {
				return nil, err
			}
			opts[string(kv[0].(star.String))] = ov
		}
	}
	return note.Kinded{Kind: k.kind, Value: v, Options: opts, Deps: slices.Clone(k.deps)}, nil
}

func kindedFromGo(k note.Kinded) (star.Value, error) {
	v, err := fromGo(k.Value)
	if err != nil {
		return nil, err
	}
	out := &kinded{kind: k.Kind, value: v, deps: slices.Clone(k.Deps)}
	for _, name := range slices.Sorted(maps.Keys(k.Options)) {
		ov, err := fromGo(k.Options[name])
		if err != nil {
			return nil, err
		}
		out.opts = append(out.opts, star.Tuple{star.String(name), ov})
	}
	return out, nil
}

func tableOf(kern *Kernel, columns star.Value, rows any) (note.Table, error) {
	cols, err := toGo(kern, columns)
	if err != nil {
		return note.Table{}, err
	}
	colList, ok := cols.([]any)
	if !ok {
		return note.Table{}, fmt.Errorf("table: columns must be a list, got %s", columns.Type())
	}
	rowList, ok := rows.([]any)
	if !ok {
		return note.Table{}, fmt.Errorf("table: rows must be a list")
	}
	t := note.Table{Columns: colList, Rows: make([][]any, len(rowList))}
	for i, r := range rowList {
		cells, ok := r.([]any)
		if !ok {
			return note.Table{}, fmt.Errorf("table: row %d is not a list", i)
		}
		t.Rows[i] = cells
	}
	return t, nil
}

// builtins returns the predeclared kind functions.
func builtins() star.StringDict {
	d := star.StringDict{
		"kind":   star.NewBuiltin("kind", builtinKind),
		"fn":     star.NewBuiltin("fn", builtinFn),
		"call":   star.NewBuiltin("call", builtinCall),
		"table":  star.NewBuiltin("table", builtinTable),
		"hidden": star.NewBuiltin("hidden", builtinHidden),
	}
	for name, k := range map[string]note.Kind{
		"pprint":     kind.PPrint,
		"code":       kind.Code,
		"md":         kind.Markdown,
		"tex":        kind.TeX,
		"html":       kind.HTML,
		"image":      kind.Image,
		"vector":     kind.Vector,
		"dataset":    kind.Dataset,
		"vega_lite":  kind.VegaLite,
		"vega":       kind.Vega,
		"plotly":     kind.Plotly,
		"echarts":    kind.ECharts,
		"cytoscape":  kind.Cytoscape,
		"highcharts": kind.Highcharts,
		"mermaid":    kind.Mermaid,
		"graphviz":   kind.Graphviz,
	} {
		d[name] = star.NewBuiltin(name, wrapper(k))
	}
	return d
}

// wrapper returns a builtin f(value, deps=None, **opts) attaching kind k.
func wrapper(k note.Kind) func(*star.Thread, *star.Builtin, star.Tuple, []star.Tuple) (star.Value, error) {
	return func(_ *star.Thread, b *star.Builtin, args star.Tuple, kwargs []star.Tuple) (star.Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("%s: got %d arguments, want 1", b.Name(), len(args))
		}
		return newKinded(b.Name(), k, args[0], kwargs)
	}
}

// kind(tag, value, deps=None, **opts)
func builtinKind(_ *star.Thread, b *star.Builtin, args star.Tuple, kwargs []star.Tuple) (star.Value, error) {
	var tag string
	var value star.Value
	if err := star.UnpackPositionalArgs(b.Name(), args, nil, 2, &tag, &value); err != nil {
		return nil, err
	}
	return newKinded(b.Name(), note.Kind(tag), value, kwargs)
}

// hidden(value) renders nothing.
func builtinHidden(_ *star.Thread, b *star.Builtin, args star.Tuple, kwargs []star.Tuple) (star.Value, error) {
	var value star.Value
	if err := star.UnpackArgs(b.Name(), args, kwargs, "value", &value); err != nil {
		return nil, err
	}
	return &kinded{kind: kind.Hidden, value: value}, nil
}

// fn(f, **inputs) defers f(inputs) to render time.
func builtinFn(_ *star.Thread, b *star.Builtin, args star.Tuple, kwargs []star.Tuple) (star.Value, error) {
	var f star.Callable
	if err := star.UnpackPositionalArgs(b.Name(), args, nil, 1, &f); err != nil {
		return nil, err
	}
	inputs := star.NewDict(len(kwargs) + 1)
	for _, kv := range kwargs {
		if err := inputs.SetKey(kv[0], kv[1]); err != nil {
			return nil, err
		}
	}
	if err := inputs.SetKey(star.String(kind.FnKey), f); err != nil {
		return nil, err
	}
	return &kinded{kind: kind.Fn, value: inputs}, nil
}

// call(f, *args) defers f(*args) to render time.
func builtinCall(_ *star.Thread, b *star.Builtin, args star.Tuple, kwargs []star.Tuple) (star.Value, error) {
	if len(kwargs) > 0 {
		return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("%s: missing function", b.Name())
	}
	if _, ok := args[0].(star.Callable); !ok {
		return nil, fmt.Errorf("%s: %s is not callable", b.Name(), args[0].Type())
	}
	return &kinded{kind: kind.Fn, value: star.NewList(slices.Clone(args))}, nil
}

// table(rows, columns=None, deps=None, **opts): rows of lists with column
// names make a table; rows of dicts make a dataset.
func builtinTable(_ *star.Thread, b *star.Builtin, args star.Tuple, kwargs []star.Tuple) (star.Value, error) {
	var rows star.Value
	if err := star.UnpackPositionalArgs(b.Name(), args, nil, 1, &rows); err != nil {
		return nil, err
	}
	var columns star.Value
	rest := kwargs[:0:0]
	for _, kv := range kwargs {
		if kv[0] == star.String("columns") {
			columns = kv[1]
			continue
		}
		rest = append(rest, kv)
	}
	k := kind.Dataset
	if columns != nil && columns != star.None {
		k = kind.Table
	} else {
		columns = nil
	}
	out, err := newKinded(b.Name(), k, rows, rest)
	if err != nil {
		return nil, err
	}
	out.columns = columns
	return out, nil
}

func newKinded(name string, k note.Kind, value star.Value, kwargs []star.Tuple) (*kinded, error) {
	out := &kinded{kind: k, value: value}
	for _, kv := range kwargs {
		if kv[0] != star.String("deps") {
			out.opts = append(out.opts, kv)
			continue
		}
		deps, err := stringList(kv[1])
		if err != nil {
			return nil, fmt.Errorf("%s: deps: %w", name, err)
		}
		out.deps = deps
	}
	return out, nil
}

func stringList(v star.Value) ([]string, error) {
	if v == star.None {
		return nil, nil
	}
	if s, ok := star.AsString(v); ok {
		return []string{s}, nil
	}
	iter := star.Iterate(v)
	if iter == nil {
		return nil, fmt.Errorf("got %s, want a list of strings", v.Type())
	}
	defer iter.Done()
	var out []string
	var x star.Value
	for iter.Next(&x) {
		s, ok := star.AsString(x)
		if !ok {
			return nil, fmt.Errorf("got %s element, want string", x.Type())
		}
		out = append(out, s)
	}
	return out, nil
}
