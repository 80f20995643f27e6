package composite

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/kindview/pkg/kind"
	"github.com/matzehuels/kindview/pkg/note"
	"github.com/matzehuels/kindview/pkg/render"
)

// grid returns the header cells and body rows of a rendered table.
func grid(t *testing.T, a render.Artifact) ([]string, [][]string) {
	t.Helper()
	if a.Tree.Tag != "table" {
		t.Fatalf("tag = %q, want table (text %q)", a.Tree.Tag, a.Text())
	}
	var header []string
	for _, th := range a.Tree.Children[0].Children[0].Children {
		header = append(header, th.TextContent())
	}
	var rows [][]string
	for _, tr := range a.Tree.Children[1].Children {
		var cells []string
		for _, td := range tr.Children {
			cells = append(cells, td.TextContent())
		}
		rows = append(rows, cells)
	}
	return header, rows
}

func TestTable(t *testing.T) {
	tbl := note.Table{
		Columns: []any{"name", "n"},
		Rows:    [][]any{{"a", 1}, {"b", 2.5}, {"c", nil}},
	}
	a, err := newEngine().RenderTop(context.Background(), note.Note{Kind: kind.Table, Value: tbl})
	if err != nil {
		t.Fatal(err)
	}
	header, rows := grid(t, a)
	if diff := cmp.Diff([]string{"name", "n"}, header); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
	want := [][]string{{"a", "1"}, {"b", "2.5"}, {"c", ""}}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestTableCellsArePlainWhenNested(t *testing.T) {
	tbl := note.Table{Columns: []any{"img"}, Rows: [][]any{{kind.AsImage([]byte{1})}}}
	a, err := newEngine().RenderTop(context.Background(), note.Note{Kind: kind.Vector, Value: []any{kind.AsTable(tbl)}})
	if err != nil {
		t.Fatal(err)
	}
	inner := a.Tree.Children[0].Children[0]
	_, rows := grid(t, render.Artifact{Tree: inner})
	if rows[0][0] != "#bytes[1]" {
		t.Errorf("cell = %q, want printed scalar", rows[0][0])
	}
}

func TestTableMaxRowsAndColumns(t *testing.T) {
	tbl := note.Table{Columns: []any{"a", "b"}, Rows: [][]any{{1, 2}, {3, 4}, {5, 6}}}
	n := note.Note{Kind: kind.Table, Value: tbl, Options: map[string]any{"max-rows": 2, "columns": []any{"b", "a"}}}
	a, err := newEngine().RenderTop(context.Background(), n)
	if err != nil {
		t.Fatal(err)
	}
	header, rows := grid(t, a)
	if diff := cmp.Diff([]string{"b", "a"}, header); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([][]string{{"2", "1"}, {"4", "3"}}, rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	foot := a.Tree.Children[2]
	if foot.Tag != "tfoot" || foot.TextContent() != "1 more rows" {
		t.Errorf("footer = %s %q", foot.Tag, foot.TextContent())
	}
}

func TestDataset(t *testing.T) {
	tests := []struct {
		name       string
		value      any
		opts       map[string]any
		wantHeader []string
		wantRows   [][]string
	}{
		{
			name:       "go maps sorted union",
			value:      []map[string]any{{"b": 1, "a": 2}, {"c": 3}},
			wantHeader: []string{"a", "b", "c"},
			wantRows:   [][]string{{"2", "1", ""}, {"", "", "3"}},
		},
		{
			name:       "ordered records",
			value:      []*note.Map{note.MapOf("y", 1, "x", 2)},
			wantHeader: []string{"y", "x"},
			wantRows:   [][]string{{"1", "2"}},
		},
		{
			name:       "explicit columns",
			value:      []any{map[string]any{"a": 1, "b": 2}},
			opts:       map[string]any{"columns": []any{"b"}},
			wantHeader: []string{"b"},
			wantRows:   [][]string{{"2"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := newEngine().RenderTop(context.Background(), note.Note{Kind: kind.Dataset, Value: tt.value, Options: tt.opts})
			if err != nil {
				t.Fatal(err)
			}
			header, rows := grid(t, a)
			if diff := cmp.Diff(tt.wantHeader, header); diff != "" {
				t.Errorf("header mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantRows, rows); diff != "" {
				t.Errorf("rows mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDatasetShape(t *testing.T) {
	rows := make([]map[string]any, 5)
	for i := range rows {
		rows[i] = map[string]any{"x": i, "y": i * i, "z": -i}
	}
	a, err := newEngine().RenderTop(context.Background(), note.Note{Kind: kind.Dataset, Value: rows})
	if err != nil {
		t.Fatal(err)
	}
	header, body := grid(t, a)
	if len(header) != 3 || len(body) != 5 {
		t.Errorf("got %d columns x %d rows, want 3 x 5", len(header), len(body))
	}
	for i, r := range body {
		if len(r) != 3 {
			t.Errorf("row %d has %d cells", i, len(r))
		}
	}
}

func TestTableRejectsWrongValue(t *testing.T) {
	a, err := newEngine().RenderTop(context.Background(), note.Note{Kind: kind.Table, Value: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if a.Tree.Tag == "table" {
		t.Fatal("rendered a table for a string")
	}
}
