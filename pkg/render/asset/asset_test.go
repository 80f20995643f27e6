package asset

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/kindview/pkg/errors"
)

func sequentialIDs() GeneratorOption {
	n := 0
	return WithIDSource(func() string {
		n++
		return fmt.Sprintf("id%d", n)
	})
}

func mustResolve(t *testing.T, names ...string) []Library {
	t.Helper()
	libs, err := DefaultCatalog().Resolve(names...)
	if err != nil {
		t.Fatal(err)
	}
	return libs
}

func TestScriptStructure(t *testing.T) {
	g := NewGenerator(sequentialIDs())
	s, err := g.Script(`vegaEmbed("#chart", spec);`, mustResolve(t, "vega-embed")...)
	if err != nil {
		t.Fatal(err)
	}

	loader := "load_vegaEmbed_id1"
	if diff := cmp.Diff([]string{loader}, s.Loaders); diff != "" {
		t.Errorf("Loaders mismatch (-want +got):\n%s", diff)
	}

	def := strings.Index(s.Source, "const "+loader+" = ")
	check := strings.Index(s.Source, `if (typeof window["vegaEmbed"] === "undefined") {`)
	call := strings.Index(s.Source, "await "+loader+"()")
	cmd := strings.Index(s.Source, `vegaEmbed("#chart", spec);`)
	if def < 0 || check < 0 || call < 0 || cmd < 0 {
		t.Fatalf("missing script parts:\n%s", s.Source)
	}
	if !(def < check && check < call && call < cmd) {
		t.Errorf("parts out of order: def=%d check=%d call=%d cmd=%d", def, check, call, cmd)
	}

	// The command sits after the closing brace of the conditional.
	closing := strings.LastIndex(s.Source[:cmd], "  }\n")
	if closing < call {
		t.Errorf("render command is inside the conditional:\n%s", s.Source)
	}
	catch := strings.Index(s.Source, "} catch (err) {")
	if catch < call || !strings.Contains(s.Source[catch:cmd], "return;") {
		t.Errorf("a failed load should stop before the render command:\n%s", s.Source)
	}
	if !strings.Contains(s.Source, "window."+PromiseTable) {
		t.Error("script does not use the page-wide promise table")
	}
	if !strings.Contains(s.Source, `addEventListener("load"`) {
		t.Error("loader does not resolve on load")
	}
}

func TestScriptsDoNotCollide(t *testing.T) {
	g := NewGenerator()
	libs := mustResolve(t, "plotly")
	a, err := g.Script("Plotly.newPlot(el, data);", libs...)
	if err != nil {
		t.Fatal(err)
	}
	b, err := g.Script("Plotly.newPlot(el, data);", libs...)
	if err != nil {
		t.Fatal(err)
	}
	if a.ID == b.ID || a.Loaders[0] == b.Loaders[0] {
		t.Errorf("scripts share identifiers: %s / %s", a.Loaders[0], b.Loaders[0])
	}
	for _, s := range []Script{a, b} {
		if !strings.Contains(s.Source, `if (typeof window["Plotly"] === "undefined")`) {
			t.Errorf("script %s lacks the existence check", s.ID)
		}
		if strings.Count(s.Source, "Plotly.newPlot(el, data);") != 1 {
			t.Errorf("script %s must run the command exactly once", s.ID)
		}
	}
}

func TestScriptLoadsInOrder(t *testing.T) {
	g := NewGenerator(sequentialIDs())
	s, err := g.Script("run();", mustResolve(t, "vega", "vega-lite", "vega-embed")...)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"load_vega_id1", "load_vegaLite_id1", "load_vegaEmbed_id1"}
	if diff := cmp.Diff(want, s.Loaders); diff != "" {
		t.Errorf("Loaders mismatch (-want +got):\n%s", diff)
	}
	prev := -1
	for _, name := range want {
		i := strings.Index(s.Source, "await "+name+"()")
		if i <= prev {
			t.Errorf("%s awaited out of order", name)
		}
		prev = i
	}
}

func TestScriptNode(t *testing.T) {
	s, err := NewGenerator(sequentialIDs()).Script("go();")
	if err != nil {
		t.Fatal(err)
	}
	html := s.Node().HTML()
	if !strings.HasPrefix(html, `<script data-asset-id="id1" type="text/javascript">(async () => {`) {
		t.Errorf("HTML = %s", html)
	}
}

func TestScriptRejectsUnsafeInput(t *testing.T) {
	g := NewGenerator()
	bad := []Library{
		{Name: "x", URL: "javascript:alert(1)", Global: "x"},
		{Name: "x", URL: "https://a.example/x.js", Global: "x-y"},
	}
	for _, l := range bad {
		if _, err := g.Script("run();", l); !errors.Is(err, errors.ErrCodeInvalidConfig) {
			t.Errorf("Script(%+v) err = %v, want invalid config", l, err)
		}
	}

	weird := NewGenerator(WithIDSource(func() string { return "a-b" }))
	if _, err := weird.Script("run();"); err == nil {
		t.Error("accepted id that is not an identifier suffix")
	}
}

func TestCatalog(t *testing.T) {
	c, err := DefaultCatalog().WithURLs(map[string]string{"plotly": "https://mirror.example/plotly.js"})
	if err != nil {
		t.Fatal(err)
	}
	libs, _ := c.Resolve("plotly")
	if libs[0].URL != "https://mirror.example/plotly.js" {
		t.Errorf("URL = %q", libs[0].URL)
	}
	if DefaultCatalog()["plotly"].URL == libs[0].URL {
		t.Error("WithURLs mutated the default catalog")
	}

	if _, err := DefaultCatalog().WithURLs(map[string]string{"nope": "https://x.example"}); err == nil {
		t.Error("accepted override for unknown library")
	}
	if _, err := DefaultCatalog().Resolve("nope"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("Resolve(nope) err = %v", err)
	}
}
