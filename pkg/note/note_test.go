package note

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestWithHelpersDoNotMutate(t *testing.T) {
	orig := Note{Value: 1, Form: "1", Options: map[string]any{"a": 1}, Deps: []string{"vega"}}

	k := orig.WithKind("pprint")
	k.Options["a"] = 2
	o := orig.WithOptions(map[string]any{"b": 2})
	d := orig.WithDeps("vega", "vega-lite")
	v := orig.WithValue(2)

	want := Note{Value: 1, Form: "1", Options: map[string]any{"a": 1}, Deps: []string{"vega"}}
	if diff := cmp.Diff(want, orig); diff != "" {
		t.Errorf("original mutated (-want +got):\n%s", diff)
	}
	if k.Kind != "pprint" {
		t.Errorf("WithKind kind = %q", k.Kind)
	}
	if diff := cmp.Diff(map[string]any{"a": 1, "b": 2}, o.Options); diff != "" {
		t.Errorf("WithOptions (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"vega", "vega-lite"}, d.Deps); diff != "" {
		t.Errorf("WithDeps (-want +got):\n%s", diff)
	}
	if v.Value != 2 {
		t.Errorf("WithValue value = %v", v.Value)
	}
}

func TestKindedUnwrap(t *testing.T) {
	k := Kinded{Kind: "image", Value: "img", Options: map[string]any{"width": 10, "height": 5}}
	n := Note{Value: k, Form: "(img)", Options: map[string]any{"width": 20}}

	got := k.Unwrap(n)
	if got.Kind != "image" || got.Value != "img" || got.Form != "(img)" {
		t.Errorf("Unwrap = %+v", got)
	}
	if diff := cmp.Diff(map[string]any{"width": 20, "height": 5}, got.Options); diff != "" {
		t.Errorf("note options should win (-want +got):\n%s", diff)
	}
}

func TestSet(t *testing.T) {
	s := NewSet(1, 2, 1, "a", []int{1})
	if len(s) != 4 {
		t.Fatalf("len = %d, want 4 (%v)", len(s), s)
	}
	if !s.Contains("a") || s.Contains(3) {
		t.Error("Contains mismatch")
	}
}

func TestMapOfKeepsOrder(t *testing.T) {
	m := MapOf("b", 1, "a", 2, "c")
	var keys []any
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	if diff := cmp.Diff([]any{"b", "a", "c"}, keys); diff != "" {
		t.Errorf("keys (-want +got):\n%s", diff)
	}
	if v, _ := m.Get("c"); v != nil {
		t.Errorf("trailing key value = %v, want nil", v)
	}
}
