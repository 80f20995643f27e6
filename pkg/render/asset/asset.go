// Package asset generates client-side loader scripts for external
// visualization libraries.
//
// A generated script defines one loader function per library, checks
// whether the library's global object exists, awaits the loader only when
// it does not, and then runs the render command. The command runs whether
// or not a loader was needed:
//
//	(async () => {
//	  const load_vegaEmbed_3f2a... = () => { ... };
//	  if (typeof window["vegaEmbed"] === "undefined") {
//	    await load_vegaEmbed_3f2a...();
//	  }
//	  vegaEmbed(...);
//	})();
//
// Loads are shared through a page-wide promise table keyed by URL, so a
// library is requested at most once per page however many artifacts need
// it. Loader names carry a fresh id per script and never collide when
// several artifacts share a page. A load that fails is logged to the console
// and the render command does not run; a load that never completes leaves
// it pending. There is no timeout.
package asset

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/matzehuels/kindview/pkg/errors"
	"github.com/matzehuels/kindview/pkg/markup"
)

// PromiseTable is the window property holding the page-wide load promises.
const PromiseTable = "__kindviewAssets"

// Library is an external script defining a global object.
type Library struct {
	Name   string
	URL    string
	Global string
}

// Validate checks that l can be embedded in a generated script.
func (l Library) Validate() error {
	if err := errors.ValidateURL(l.URL); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "library %s", l.Name)
	}
	if err := errors.ValidateGlobalName(l.Global); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "library %s", l.Name)
	}
	return nil
}

// Catalog maps library names to libraries.
type Catalog map[string]Library

// DefaultCatalog returns the built-in libraries.
func DefaultCatalog() Catalog {
	libs := []Library{
		{Name: "vega", URL: "https://cdn.jsdelivr.net/npm/vega@5", Global: "vega"},
		{Name: "vega-lite", URL: "https://cdn.jsdelivr.net/npm/vega-lite@5", Global: "vegaLite"},
		{Name: "vega-embed", URL: "https://cdn.jsdelivr.net/npm/vega-embed@6", Global: "vegaEmbed"},
		{Name: "plotly", URL: "https://cdn.plot.ly/plotly-2.35.2.min.js", Global: "Plotly"},
		{Name: "echarts", URL: "https://cdn.jsdelivr.net/npm/echarts@5/dist/echarts.min.js", Global: "echarts"},
		{Name: "cytoscape", URL: "https://cdn.jsdelivr.net/npm/cytoscape@3/dist/cytoscape.min.js", Global: "cytoscape"},
		{Name: "highcharts", URL: "https://code.highcharts.com/highcharts.js", Global: "Highcharts"},
		{Name: "mermaid", URL: "https://cdn.jsdelivr.net/npm/mermaid@10/dist/mermaid.min.js", Global: "mermaid"},
	}
	c := make(Catalog, len(libs))
	for _, l := range libs {
		c[l.Name] = l
	}
	return c
}

// WithURLs returns a copy of c with library URLs replaced by overrides.
// Overrides for unknown names are rejected.
func (c Catalog) WithURLs(overrides map[string]string) (Catalog, error) {
	out := maps.Clone(c)
	for _, name := range slices.Sorted(maps.Keys(overrides)) {
		l, ok := out[name]
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown asset library %q", name)
		}
		l.URL = overrides[name]
		if err := l.Validate(); err != nil {
			return nil, err
		}
		out[name] = l
	}
	return out, nil
}

// Resolve returns the named libraries in the given order.
func (c Catalog) Resolve(names ...string) ([]Library, error) {
	out := make([]Library, 0, len(names))
	for _, name := range names {
		l, ok := c[name]
		if !ok {
			return nil, errors.New(errors.ErrCodeNotFound, "unknown asset library %q", name)
		}
		out = append(out, l)
	}
	return out, nil
}

// Generator builds loader scripts.
type Generator struct {
	newID func() string
}

// GeneratorOption configures a [Generator].
type GeneratorOption func(*Generator)

// WithIDSource replaces the id source. Ids must be valid identifier
// suffixes and unique per call.
func WithIDSource(f func() string) GeneratorOption {
	return func(g *Generator) {
		if f != nil {
			g.newID = f
		}
	}
}

// NewGenerator returns a generator drawing ids from random UUIDs.
func NewGenerator(opts ...GeneratorOption) *Generator {
	g := &Generator{newID: func() string {
		return strings.ReplaceAll(uuid.NewString(), "-", "")
	}}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ID returns a fresh id, e.g. for the DOM element a script renders into.
func (g *Generator) ID() string {
	return g.newID()
}

// Script is a generated loader script.
type Script struct {
	ID string
	// Loaders are the loader function names in load order.
	Loaders []string
	Source  string
}

// Node returns the script as a markup element.
func (s Script) Node() *markup.Node {
	return markup.El("script", markup.Attrs{"type": "text/javascript", "data-asset-id": s.ID}, markup.Raw(s.Source))
}

// Script returns a script that loads libs in order, skipping libraries
// whose global already exists, and then runs cmd.
func (g *Generator) Script(cmd string, libs ...Library) (Script, error) {
	for _, l := range libs {
		if err := l.Validate(); err != nil {
			return Script{}, err
		}
	}
	s := Script{ID: g.newID()}
	if !validID(s.ID) {
		return Script{}, errors.New(errors.ErrCodeInternal, "invalid script id %q", s.ID)
	}

	var b strings.Builder
	b.WriteString("(async () => {\n")
	fmt.Fprintf(&b, "  const assets = (window.%[1]s = window.%[1]s || {});\n", PromiseTable)
	for _, l := range libs {
		name := fmt.Sprintf("load_%s_%s", l.Global, s.ID)
		s.Loaders = append(s.Loaders, name)
		writeLoader(&b, name, l)
	}
	for i, l := range libs {
		fmt.Fprintf(&b, "  if (typeof window[%q] === \"undefined\") {\n", l.Global)
		fmt.Fprintf(&b, "    try {\n      await %s();\n    } catch (err) {\n      console.error(err);\n      return;\n    }\n", s.Loaders[i])
		b.WriteString("  }\n")
	}
	for _, line := range strings.Split(strings.TrimSpace(cmd), "\n") {
		b.WriteString("  " + line + "\n")
	}
	b.WriteString("})();\n")
	s.Source = b.String()
	return s, nil
}

func validID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		if !(r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return true
}

func writeLoader(b *strings.Builder, name string, l Library) {
	fmt.Fprintf(b, "  const %s = () => {\n", name)
	fmt.Fprintf(b, "    const url = %q;\n", l.URL)
	b.WriteString("    if (!assets[url]) {\n")
	b.WriteString("      assets[url] = new Promise((resolve, reject) => {\n")
	b.WriteString("        const script = document.createElement(\"script\");\n")
	b.WriteString("        script.src = url;\n")
	b.WriteString("        script.async = true;\n")
	b.WriteString("        script.addEventListener(\"load\", () => resolve(), { once: true });\n")
	b.WriteString("        script.addEventListener(\"error\", () => reject(new Error(\"failed to load \" + url)), { once: true });\n")
	b.WriteString("        document.head.appendChild(script);\n")
	b.WriteString("      });\n")
	b.WriteString("    }\n")
	b.WriteString("    return assets[url];\n")
	b.WriteString("  };\n")
}
