// Package kind names the built-in kind tags and offers helpers that attach
// explicit kind metadata to values.
//
//	kind.AsMarkdown("# Title")
//	kind.AsVegaLite(spec, kind.Options{"width": 400})
//	kind.AsFn(sum, map[string]any{"x": 1, "y": 2})
package kind

import (
	"maps"

	"github.com/matzehuels/kindview/pkg/note"
)

// Built-in kind tags.
const (
	PPrint     note.Kind = "pprint"
	Code       note.Kind = "code"
	Hidden     note.Kind = "hidden"
	Markdown   note.Kind = "markdown"
	TeX        note.Kind = "tex"
	HTML       note.Kind = "html"
	Image      note.Kind = "image"
	Vector     note.Kind = "vector"
	Set        note.Kind = "set"
	Seq        note.Kind = "seq"
	Map        note.Kind = "map"
	Table      note.Kind = "table"
	Dataset    note.Kind = "dataset"
	Fn         note.Kind = "fn"
	Vega       note.Kind = "vega"
	VegaLite   note.Kind = "vega-lite"
	Plotly     note.Kind = "plotly"
	ECharts    note.Kind = "echarts"
	Cytoscape  note.Kind = "cytoscape"
	Highcharts note.Kind = "highcharts"
	Mermaid    note.Kind = "mermaid"
	Graphviz   note.Kind = "graphviz"
)

// FnKey is the reserved input key holding the callable of a deferred
// function value.
const FnKey = "kind/f"

// Options are kind-specific rendering options.
type Options map[string]any

// Of attaches kind k to v. Multiple option maps are merged left to right.
func Of(k note.Kind, v any, opts ...Options) note.Kinded {
	var merged map[string]any
	for _, o := range opts {
		if len(o) == 0 {
			continue
		}
		if merged == nil {
			merged = make(map[string]any, len(o))
		}
		maps.Copy(merged, o)
	}
	return note.Kinded{Kind: k, Value: v, Options: merged}
}

func AsPPrint(v any, opts ...Options) note.Kinded {
	return Of(PPrint, v, opts...)
}

func AsCode(src string, opts ...Options) note.Kinded {
	return Of(Code, src, opts...)
}

func AsHidden(v any) note.Kinded {
	return Of(Hidden, v)
}

func AsMarkdown(src string, opts ...Options) note.Kinded {
	return Of(Markdown, src, opts...)
}

func AsTeX(src string, opts ...Options) note.Kinded {
	return Of(TeX, src, opts...)
}

func AsHTML(src string, opts ...Options) note.Kinded {
	return Of(HTML, src, opts...)
}

// AsImage marks v as an image. v is an image.Image or encoded image bytes.
func AsImage(v any, opts ...Options) note.Kinded {
	return Of(Image, v, opts...)
}

func AsVector(v any, opts ...Options) note.Kinded {
	return Of(Vector, v, opts...)
}

func AsSet(v any, opts ...Options) note.Kinded {
	return Of(Set, v, opts...)
}

func AsSeq(v any, opts ...Options) note.Kinded {
	return Of(Seq, v, opts...)
}

func AsMap(v any, opts ...Options) note.Kinded {
	return Of(Map, v, opts...)
}

func AsTable(t note.Table, opts ...Options) note.Kinded {
	return Of(Table, t, opts...)
}

// AsDataset marks a sequence of records as tabular data.
func AsDataset(rows any, opts ...Options) note.Kinded {
	return Of(Dataset, rows, opts...)
}

// AsVegaLite marks a chart specification document. spec is any value that
// encodes to a JSON object.
func AsVegaLite(spec any, opts ...Options) note.Kinded {
	return Of(VegaLite, spec, opts...)
}

func AsVega(spec any, opts ...Options) note.Kinded {
	return Of(Vega, spec, opts...)
}

func AsPlotly(spec any, opts ...Options) note.Kinded {
	return Of(Plotly, spec, opts...)
}

func AsECharts(spec any, opts ...Options) note.Kinded {
	return Of(ECharts, spec, opts...)
}

func AsCytoscape(spec any, opts ...Options) note.Kinded {
	return Of(Cytoscape, spec, opts...)
}

func AsHighcharts(spec any, opts ...Options) note.Kinded {
	return Of(Highcharts, spec, opts...)
}

func AsMermaid(src string, opts ...Options) note.Kinded {
	return Of(Mermaid, src, opts...)
}

func AsGraphviz(dot string, opts ...Options) note.Kinded {
	return Of(Graphviz, dot, opts...)
}

// AsFn builds a deferred function value: inputs with the callable stored
// under [FnKey]. The result is rendered in place of the value at render
// time.
func AsFn(f any, inputs map[string]any) note.Kinded {
	m := make(map[string]any, len(inputs)+1)
	maps.Copy(m, inputs)
	m[FnKey] = f
	return Of(Fn, m)
}

// Call builds the positional deferred function form: f applied to args.
func Call(f any, args ...any) note.Kinded {
	return Of(Fn, append([]any{f}, args...))
}
