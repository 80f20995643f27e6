// Package note defines the unit of rendering work and the value shapes the
// render engine understands.
//
// A [Note] bundles an evaluated value with the source form it came from, a
// kind tag, kind-specific options and the external libraries its rendering
// needs. Notes are values: every With* helper returns an augmented copy and
// never mutates the receiver.
package note

import (
	"maps"
	"slices"
)

// Kind is a tag identifying a rendering strategy. The vocabulary is open;
// unknown tags are rendered by the default renderer.
type Kind string

// String returns the tag.
func (k Kind) String() string { return string(k) }

// Note is the per-render unit of work.
type Note struct {
	// Value is the evaluated payload. It is opaque to the engine.
	Value any
	// Form is the originating source expression, used for diagnostics and
	// by the deferred-function kind.
	Form string
	// Kind selects the renderer. Empty means "infer".
	Kind Kind
	// Options are kind-specific rendering options.
	Options map[string]any
	// Deps names the external libraries the rendering requires.
	Deps []string
}

// New returns a note for value with the originating form and no kind.
func New(value any, form string) Note {
	return Note{Value: value, Form: form}
}

// WithKind returns a copy of n with the kind set.
func (n Note) WithKind(k Kind) Note {
	n.Options = maps.Clone(n.Options)
	n.Deps = slices.Clone(n.Deps)
	n.Kind = k
	return n
}

// WithValue returns a copy of n carrying v.
func (n Note) WithValue(v any) Note {
	n.Options = maps.Clone(n.Options)
	n.Deps = slices.Clone(n.Deps)
	n.Value = v
	return n
}

// WithOptions returns a copy of n with opts merged over its options.
func (n Note) WithOptions(opts map[string]any) Note {
	merged := make(map[string]any, len(n.Options)+len(opts))
	maps.Copy(merged, n.Options)
	maps.Copy(merged, opts)
	if len(merged) == 0 {
		merged = nil
	}
	n.Options = merged
	n.Deps = slices.Clone(n.Deps)
	return n
}

// WithDeps returns a copy of n with deps added. Duplicates are dropped and
// first-seen order is kept.
func (n Note) WithDeps(deps ...string) Note {
	out := slices.Clone(n.Deps)
	for _, d := range deps {
		if !slices.Contains(out, d) {
			out = append(out, d)
		}
	}
	n.Deps = out
	n.Options = maps.Clone(n.Options)
	return n
}

// Option returns the option value for key and whether it is set.
func (n Note) Option(key string) (any, bool) {
	v, ok := n.Options[key]
	return v, ok
}

// Kinded attaches explicit kind metadata to a value. A Kinded value
// rendered without an explicit note kind is rendered with its own kind and
// options instead of going through kind advice.
type Kinded struct {
	Kind    Kind
	Value   any
	Options map[string]any
	Deps    []string
}

// Unwrap returns a copy of n with the metadata of k applied: the kind,
// k's value, and k's options merged under n's own options.
func (k Kinded) Unwrap(n Note) Note {
	opts := make(map[string]any, len(k.Options)+len(n.Options))
	maps.Copy(opts, k.Options)
	maps.Copy(opts, n.Options)
	if len(opts) == 0 {
		opts = nil
	}
	out := n.WithValue(k.Value).WithDeps(k.Deps...)
	out.Kind = k.Kind
	out.Options = opts
	return out
}
