// Package chart renders chart-description kinds drawn by client-side
// libraries: vega-lite, vega, plotly, echarts, cytoscape, highcharts and
// mermaid.
//
// The payload is the chart document itself. The tree is a container div
// holding a target element and a loader script from package asset that
// loads the library once per page and draws the chart into the target.
package chart

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/matzehuels/kindview/pkg/errors"
	"github.com/matzehuels/kindview/pkg/kind"
	"github.com/matzehuels/kindview/pkg/markup"
	"github.com/matzehuels/kindview/pkg/mime"
	"github.com/matzehuels/kindview/pkg/note"
	"github.com/matzehuels/kindview/pkg/render"
	"github.com/matzehuels/kindview/pkg/render/asset"
)

// TypeMermaid is the payload MIME type of mermaid diagrams.
const TypeMermaid = "text/vnd.mermaid"

var options = render.Schema{
	"width":  render.Dimension(),
	"height": render.Dimension(),
	"style":  render.Map(),
}

type config struct {
	Width  any            `option:"width"`
	Height any            `option:"height"`
	Style  map[string]any `option:"style"`
}

// spec describes one chart kind.
type spec struct {
	kind        note.Kind
	description string
	mime        string
	libs        []string
	nestable    bool
	// text marks kinds whose value is source text rather than a JSON document.
	text    bool
	command string
}

var specs = []spec{
	{
		kind: kind.VegaLite, description: "vega-lite chart", mime: mime.TypeVegaLite,
		libs:    []string{"vega", "vega-lite", "vega-embed"},
		command: `await vegaEmbed(el, spec, { mode: "vega-lite" });`,
	},
	{
		kind: kind.Vega, description: "vega chart", mime: mime.TypeVega, nestable: true,
		libs:    []string{"vega", "vega-lite", "vega-embed"},
		command: `await vegaEmbed(el, spec, { mode: "vega" });`,
	},
	{
		kind: kind.Plotly, description: "plotly figure", mime: mime.TypePlotly, nestable: true,
		libs:    []string{"plotly"},
		command: `Plotly.newPlot(el, spec.data || [], spec.layout || {}, spec.config || {});`,
	},
	{
		kind: kind.ECharts, description: "echarts option document", mime: mime.TypeJSON, nestable: true,
		libs:    []string{"echarts"},
		command: `echarts.init(el).setOption(spec);`,
	},
	{
		kind: kind.Cytoscape, description: "cytoscape graph", mime: mime.TypeJSON, nestable: true,
		libs:    []string{"cytoscape"},
		command: `cytoscape(Object.assign({ container: el }, spec));`,
	},
	{
		kind: kind.Highcharts, description: "highcharts chart", mime: mime.TypeJSON, nestable: true,
		libs:    []string{"highcharts"},
		command: `Highcharts.chart(el, spec);`,
	},
	{
		kind: kind.Mermaid, description: "mermaid diagram", mime: TypeMermaid, nestable: true, text: true,
		libs:    []string{"mermaid"},
		command: "mermaid.initialize({ startOnLoad: false });\nawait mermaid.run({ nodes: [el.querySelector(\"pre\")] });",
	},
}

// Definitions returns the chart kind definitions drawing scripts from gen
// and library URLs from cat.
func Definitions(gen *asset.Generator, cat asset.Catalog) []render.Definition {
	if gen == nil {
		gen = asset.NewGenerator()
	}
	if cat == nil {
		cat = asset.DefaultCatalog()
	}
	out := make([]render.Definition, 0, len(specs))
	for _, s := range specs {
		r := &renderer{spec: s, gen: gen, catalog: cat}
		out = append(out, render.Definition{
			Kind:        s.kind,
			Description: s.description,
			Options:     options,
			Nestable:    s.nestable,
			Render:      r.render,
		})
	}
	return out
}

type renderer struct {
	spec
	gen     *asset.Generator
	catalog asset.Catalog
}

func (r *renderer) render(_ context.Context, _ *render.Engine, n note.Note, _ render.Scope) (render.Artifact, error) {
	var cfg config
	if err := render.Decode(n.Options, &cfg); err != nil {
		return render.Artifact{}, err
	}
	doc, err := r.document(n.Value)
	if err != nil {
		return render.Artifact{}, err
	}

	libs, err := r.catalog.Resolve(dependencies(r.libs, n.Deps)...)
	if err != nil {
		return render.Artifact{}, errors.Wrap(errors.ErrCodeInvalidValue, err, "%s dependencies", r.kind)
	}

	id := "kind-" + r.gen.ID()
	attrs := markup.Attrs{"id": id, "class": "kind-chart"}
	if st := style(cfg); st != nil {
		attrs["style"] = st
	}
	target := markup.El("div", attrs)
	specJSON := scriptJSON(doc)
	if r.text {
		target.Children = []*markup.Node{markup.El("pre", markup.Class(string(r.kind)), markup.Leaf(string(doc)))}
		specJSON, _ = json.Marshal(string(doc))
	}

	cmd := fmt.Sprintf("const el = document.getElementById(%q);\nconst spec = %s;\n%s", id, specJSON, r.command)
	script, err := r.gen.Script(cmd, libs...)
	if err != nil {
		return render.Artifact{}, err
	}

	tree := markup.El("div", markup.Class("kind-"+string(r.kind)), target, script.Node())
	return render.Artifact{
		Tree:    tree,
		Payload: mime.Chart(r.mime, doc),
	}, nil
}

// document returns the chart document bytes. JSON kinds accept any
// JSON-encodable value or a JSON string; text kinds take source text.
func (r *renderer) document(v any) ([]byte, error) {
	if r.text {
		s, ok := v.(string)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidValue, "%s expects diagram source, got %T", r.kind, v)
		}
		return []byte(s), nil
	}
	switch v := v.(type) {
	case string:
		if !json.Valid([]byte(v)) {
			return nil, errors.New(errors.ErrCodeInvalidValue, "%s expects a JSON document", r.kind)
		}
		return []byte(v), nil
	case []byte:
		if !json.Valid(v) {
			return nil, errors.New(errors.ErrCodeInvalidValue, "%s expects a JSON document", r.kind)
		}
		return v, nil
	case nil:
		return nil, errors.New(errors.ErrCodeInvalidValue, "%s expects a chart document, got nil", r.kind)
	}
	doc, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidValue, err, "%s document is not JSON-encodable", r.kind)
	}
	return doc, nil
}

// scriptJSON returns doc with <, > and & escaped inside strings so it can
// sit in a script element. doc must be valid JSON.
func scriptJSON(doc []byte) []byte {
	var buf bytes.Buffer
	json.HTMLEscape(&buf, doc)
	return buf.Bytes()
}

// dependencies returns base followed by the extra libraries it lacks.
func dependencies(base, extra []string) []string {
	out := slices.Clone(base)
	for _, d := range extra {
		if !slices.Contains(out, d) {
			out = append(out, d)
		}
	}
	return out
}

func style(cfg config) map[string]any {
	out := make(map[string]any, len(cfg.Style)+2)
	maps.Copy(out, cfg.Style)
	if v := dimension(cfg.Width); v != "" {
		out["width"] = v
	}
	if v := dimension(cfg.Height); v != "" {
		out["height"] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func dimension(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return fmt.Sprintf("%gpx", v)
	case float32:
		return fmt.Sprintf("%gpx", v)
	}
	return fmt.Sprintf("%vpx", v)
}
