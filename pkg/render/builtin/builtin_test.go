package builtin

import (
	"context"
	"strings"
	"testing"

	"github.com/matzehuels/kindview/pkg/errors"
	"github.com/matzehuels/kindview/pkg/kind"
	"github.com/matzehuels/kindview/pkg/note"
)

func TestDefinitionsCoverEveryKind(t *testing.T) {
	reg, err := Registry(Config{})
	if err != nil {
		t.Fatal(err)
	}
	for _, k := range []note.Kind{
		kind.PPrint, kind.Code, kind.Hidden, kind.Markdown, kind.TeX, kind.HTML,
		kind.Image, kind.Vector, kind.Set, kind.Seq, kind.Map, kind.Table,
		kind.Dataset, kind.Fn, kind.Vega, kind.VegaLite, kind.Plotly,
		kind.ECharts, kind.Cytoscape, kind.Highcharts, kind.Mermaid, kind.Graphviz,
	} {
		if _, ok := reg.Lookup(k); !ok {
			t.Errorf("kind %q not registered", k)
		}
	}
}

func TestDefinitionsRejectBadAssetURL(t *testing.T) {
	_, err := Definitions(Config{AssetURLs: map[string]string{"vega": "javascript:alert(1)"}})
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("err = %v, want INVALID_CONFIG", err)
	}
	_, err = Definitions(Config{AssetURLs: map[string]string{"d3": "https://example.com/d3.js"}})
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("unknown library: err = %v, want INVALID_CONFIG", err)
	}
}

func TestNewEngineRendersMixedVector(t *testing.T) {
	e, err := NewEngine(Config{})
	if err != nil {
		t.Fatal(err)
	}
	value := []any{
		1,
		kind.AsMarkdown("# title"),
		kind.AsCode("x = 1", kind.Options{"language": "python"}),
		map[string]any{"a": []any{true, nil}},
	}

	a, err := e.RenderTop(context.Background(), note.New(value, "[1 md code {a}]"))
	if err != nil {
		t.Fatal(err)
	}
	if got := a.Tree.Attr("class"); got != "kind-vector" {
		t.Fatalf("root class = %v, want kind-vector", got)
	}
	items := a.Tree.Children
	if len(items) != 4 {
		t.Fatalf("items = %d, want 4", len(items))
	}
	if got := items[1].TextContent(); !strings.HasPrefix(got, "nested rendering of markdown not possible in kindview") {
		t.Errorf("nested markdown text = %q", got)
	}
	html := a.Tree.HTML()
	if !strings.Contains(html, `<code class="language-python">x = 1</code>`) {
		t.Errorf("code item missing:\n%s", html)
	}
}
