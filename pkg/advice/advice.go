// Package advice infers kind tags for values that carry no explicit kind.
//
// An [Advisor] receives the originating form and the evaluated value and
// returns candidate kinds ordered best first. The render engine takes the
// top suggestion. [Default] classifies by Go type; callers may prepend
// their own [Rule]s with [New].
package advice

import (
	"context"
	"errors"
	"image"
	"iter"
	"net/http"
	"reflect"

	"github.com/matzehuels/kindview/pkg/kind"
	"github.com/matzehuels/kindview/pkg/note"
)

// ErrNoAdvice is returned when no rule matches a value.
var ErrNoAdvice = errors.New("no kind advice")

// Advice is one candidate kind with the reason it was suggested.
type Advice struct {
	Kind   note.Kind
	Reason string
}

// Advisor suggests kinds for a value.
type Advisor interface {
	Advise(ctx context.Context, form string, value any) ([]Advice, error)
}

// Func adapts a function to the [Advisor] interface.
type Func func(ctx context.Context, form string, value any) ([]Advice, error)

// Advise calls f.
func (f Func) Advise(ctx context.Context, form string, value any) ([]Advice, error) {
	return f(ctx, form, value)
}

// Rule inspects a value and reports a suggestion when it applies.
type Rule func(form string, value any) (Advice, bool)

// Rules is an Advisor that evaluates rules in order and returns every
// matching suggestion.
type Rules []Rule

// New returns an advisor running extra before the default rules.
func New(extra ...Rule) Rules {
	out := make(Rules, 0, len(extra)+len(defaultRules))
	out = append(out, extra...)
	return append(out, defaultRules...)
}

// Default returns the type-based advisor.
func Default() Rules {
	return New()
}

// Advise implements [Advisor].
func (r Rules) Advise(ctx context.Context, form string, value any) ([]Advice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []Advice
	for _, rule := range r {
		if a, ok := rule(form, value); ok {
			out = append(out, a)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoAdvice
	}
	return out, nil
}

var defaultRules = []Rule{
	kindedRule,
	typeRule,
	fallbackRule,
}

func kindedRule(_ string, v any) (Advice, bool) {
	if k, ok := v.(note.Kinded); ok && k.Kind != "" {
		return Advice{Kind: k.Kind, Reason: "kind metadata"}, true
	}
	return Advice{}, false
}

func typeRule(_ string, v any) (Advice, bool) {
	switch v := v.(type) {
	case nil:
		return Advice{Kind: kind.PPrint, Reason: "nil"}, true
	case image.Image:
		return Advice{Kind: kind.Image, Reason: "decoded image"}, true
	case []byte:
		if isImageData(v) {
			return Advice{Kind: kind.Image, Reason: "encoded image bytes"}, true
		}
		return Advice{}, false
	case note.Table, *note.Table:
		return Advice{Kind: kind.Table, Reason: "table value"}, true
	case []map[string]any, []*note.Map:
		return Advice{Kind: kind.Dataset, Reason: "sequence of records"}, true
	case note.Set:
		return Advice{Kind: kind.Set, Reason: "set"}, true
	case map[string]any:
		if _, ok := v[kind.FnKey]; ok {
			return Advice{Kind: kind.Fn, Reason: "inputs with " + kind.FnKey}, true
		}
		return Advice{Kind: kind.Map, Reason: "map"}, true
	case *note.Map:
		if v != nil {
			if _, ok := v.Get(kind.FnKey); ok {
				return Advice{Kind: kind.Fn, Reason: "inputs with " + kind.FnKey}, true
			}
		}
		return Advice{Kind: kind.Map, Reason: "ordered map"}, true
	case iter.Seq[any]:
		return Advice{Kind: kind.Seq, Reason: "lazy sequence"}, true
	case string, error:
		return Advice{Kind: kind.PPrint, Reason: "scalar"}, true
	}

	switch reflect.ValueOf(v).Kind() {
	case reflect.Slice, reflect.Array:
		return Advice{Kind: kind.Vector, Reason: "sequence"}, true
	case reflect.Map:
		return Advice{Kind: kind.Map, Reason: "map"}, true
	}
	return Advice{}, false
}

func fallbackRule(string, any) (Advice, bool) {
	return Advice{Kind: kind.PPrint, Reason: "default"}, true
}

func isImageData(b []byte) bool {
	switch http.DetectContentType(b) {
	case "image/png", "image/jpeg", "image/gif", "image/bmp", "image/webp":
		return true
	}
	return false
}
