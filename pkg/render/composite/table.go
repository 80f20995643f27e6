package composite

import (
	"context"
	"fmt"
	"maps"
	"reflect"
	"slices"

	"github.com/matzehuels/kindview/pkg/errors"
	"github.com/matzehuels/kindview/pkg/markup"
	"github.com/matzehuels/kindview/pkg/mime"
	"github.com/matzehuels/kindview/pkg/note"
	"github.com/matzehuels/kindview/pkg/printer"
	"github.com/matzehuels/kindview/pkg/render"
)

var tableOptions = render.Schema{
	"columns":  render.Slice(render.Any()),
	"max-rows": render.Int(),
	"style":    render.Map(),
	"class":    render.String(),
}

type tableConfig struct {
	Columns []any          `option:"columns"`
	MaxRows int            `option:"max-rows"`
	Style   map[string]any `option:"style"`
	Class   string         `option:"class"`
}

// Table renders a [note.Table]. Cells are printed scalars whatever the
// nesting scope.
func Table(_ context.Context, _ *render.Engine, n note.Note, _ render.Scope) (render.Artifact, error) {
	var cfg tableConfig
	if err := render.Decode(n.Options, &cfg); err != nil {
		return render.Artifact{}, err
	}
	var t note.Table
	switch v := n.Value.(type) {
	case note.Table:
		t = v
	case *note.Table:
		if v != nil {
			t = *v
		}
	default:
		return render.Artifact{}, errors.New(errors.ErrCodeInvalidValue, "table expects a table value, got %T", n.Value)
	}
	if len(cfg.Columns) > 0 {
		t = reorder(t, cfg.Columns)
	}
	return tableArtifact(t, cfg), nil
}

// Dataset renders a sequence of records as a table. Columns are the union
// of record keys in first-seen order (sorted for Go maps) unless the
// columns option lists them.
func Dataset(_ context.Context, _ *render.Engine, n note.Note, _ render.Scope) (render.Artifact, error) {
	var cfg tableConfig
	if err := render.Decode(n.Options, &cfg); err != nil {
		return render.Artifact{}, err
	}
	records, ok := recordsOf(n.Value)
	if !ok {
		return render.Artifact{}, errors.New(errors.ErrCodeInvalidValue, "dataset expects a sequence of records, got %T", n.Value)
	}

	columns := cfg.Columns
	if len(columns) == 0 {
		for _, r := range records {
			for _, k := range r.keys {
				if !slices.Contains(columns, k) {
					columns = append(columns, k)
				}
			}
		}
	}
	t := note.Table{Columns: columns, Rows: make([][]any, len(records))}
	for i, r := range records {
		row := make([]any, len(columns))
		for j, c := range columns {
			row[j] = r.get(c)
		}
		t.Rows[i] = row
	}
	return tableArtifact(t, cfg), nil
}

func tableArtifact(t note.Table, cfg tableConfig) render.Artifact {
	header := make([]*markup.Node, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = markup.El("th", nil, markup.Leaf(printer.Scalar(c)))
	}

	rows := t.Rows
	hidden := 0
	if cfg.MaxRows > 0 && len(rows) > cfg.MaxRows {
		hidden = len(rows) - cfg.MaxRows
		rows = rows[:cfg.MaxRows]
	}
	body := make([]*markup.Node, len(rows))
	for i, row := range rows {
		cells := make([]*markup.Node, len(row))
		for j, v := range row {
			cells[j] = markup.El("td", nil, markup.Leaf(cellText(v)))
		}
		body[i] = markup.El("tr", nil, cells...)
	}

	class := "kind-table"
	if cfg.Class != "" {
		class += " " + cfg.Class
	}
	attrs := markup.Attrs{"class": class}
	if len(cfg.Style) > 0 {
		attrs["style"] = cfg.Style
	}
	var foot *markup.Node
	if hidden > 0 {
		foot = markup.El("tfoot", nil, markup.El("tr", nil,
			markup.El("td", markup.Attrs{"colspan": len(t.Columns)}, markup.Leaf(fmt.Sprintf("%d more rows", hidden)))))
	}
	tree := markup.El("table", attrs,
		markup.El("thead", nil, markup.El("tr", nil, header...)),
		markup.El("tbody", nil, body...),
		foot,
	)
	return render.Artifact{Tree: tree, Payload: mime.FromTree(tree)}
}

func cellText(v any) string {
	if v == nil {
		return ""
	}
	return printer.Scalar(v)
}

// reorder projects t onto columns. Unknown columns yield nil cells.
func reorder(t note.Table, columns []any) note.Table {
	idx := make([]int, len(columns))
	for i, c := range columns {
		idx[i] = slices.IndexFunc(t.Columns, func(x any) bool { return printer.Scalar(x) == printer.Scalar(c) })
	}
	out := note.Table{Columns: columns, Rows: make([][]any, len(t.Rows))}
	for r, row := range t.Rows {
		cells := make([]any, len(columns))
		for i, j := range idx {
			if j >= 0 && j < len(row) {
				cells[i] = row[j]
			}
		}
		out.Rows[r] = cells
	}
	return out
}

type record struct {
	keys []any
	get  func(key any) any
}

func recordsOf(v any) ([]record, bool) {
	switch v := v.(type) {
	case []map[string]any:
		out := make([]record, len(v))
		for i, m := range v {
			out[i] = goMapRecord(reflect.ValueOf(m))
		}
		return out, true
	case []*note.Map:
		out := make([]record, len(v))
		for i, m := range v {
			out[i] = orderedRecord(m)
		}
		return out, true
	case []any:
		out := make([]record, len(v))
		for i, e := range v {
			r, ok := recordOf(e)
			if !ok {
				return nil, false
			}
			out[i] = r
		}
		return out, true
	}
	return nil, false
}

func recordOf(v any) (record, bool) {
	if m, ok := v.(*note.Map); ok {
		return orderedRecord(m), true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map {
		return record{}, false
	}
	return goMapRecord(rv), true
}

func orderedRecord(m *note.Map) record {
	if m == nil {
		return record{get: func(any) any { return nil }}
	}
	var keys []any
	for p := m.Oldest(); p != nil; p = p.Next() {
		keys = append(keys, p.Key)
	}
	return record{keys: keys, get: func(k any) any {
		v, _ := m.Get(k)
		return v
	}}
}

func goMapRecord(rv reflect.Value) record {
	byName := make(map[string]any, rv.Len())
	it := rv.MapRange()
	for it.Next() {
		byName[printer.Scalar(it.Key().Interface())] = it.Key().Interface()
	}
	names := slices.Sorted(maps.Keys(byName))
	keys := make([]any, len(names))
	for i, name := range names {
		keys[i] = byName[name]
	}
	return record{keys: keys, get: func(k any) any {
		kv := reflect.ValueOf(k)
		if !kv.IsValid() || !kv.Type().AssignableTo(rv.Type().Key()) {
			return nil
		}
		v := rv.MapIndex(kv)
		if !v.IsValid() {
			return nil
		}
		return v.Interface()
	}}
}
