package render

import (
	"context"
	"slices"
	"sync"

	"github.com/matzehuels/kindview/pkg/markup"
	"github.com/matzehuels/kindview/pkg/mime"
	"github.com/matzehuels/kindview/pkg/note"
	"github.com/matzehuels/kindview/pkg/printer"
)

// Renderer renders one note. e is the engine to re-enter for nested
// values; s is the nesting context of this call.
type Renderer func(ctx context.Context, e *Engine, n note.Note, s Scope) (Artifact, error)

// Definition registers the rendering strategy of one kind.
type Definition struct {
	Kind note.Kind
	// Description is a one-line summary shown by tooling.
	Description string
	// Options declares the recognised options. Ignored when AnyOptions is set.
	Options    Schema
	AnyOptions bool
	// Nestable reports whether the kind's tree may be embedded in a
	// composite. Non-nestable kinds are wrapped by [Guard].
	Nestable bool
	Render   Renderer
}

// Registry maps kind tags to definitions. Unknown tags resolve to the
// default definition. A registry is populated during setup and shared
// read-only by concurrent renders afterwards.
type Registry struct {
	mu   sync.RWMutex
	defs map[note.Kind]Definition
	def  Definition
}

// NewRegistry returns a registry holding defs.
func NewRegistry(defs ...Definition) *Registry {
	r := &Registry{
		defs: make(map[note.Kind]Definition, len(defs)),
		def:  Unimplemented(),
	}
	for _, d := range defs {
		r.Register(d)
	}
	return r
}

// Register adds def under def.Kind. An existing definition for the same
// tag is replaced. Every tag is accepted, including the empty one.
func (r *Registry) Register(def Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defs[def.Kind] = def
}

// SetDefault replaces the definition used for unknown kinds.
func (r *Registry) SetDefault(def Definition) {
	if def.Render == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.def = def
}

// Resolve returns the definition for k, or the default definition when k
// is not registered. The result always has a renderer.
func (r *Registry) Resolve(k note.Kind) Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if d, ok := r.defs[k]; ok && d.Render != nil {
		return d
	}
	return r.def
}

// Lookup returns the definition registered for k.
func (r *Registry) Lookup(k note.Kind) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.defs[k]
	return d, ok
}

// Kinds returns the registered tags, sorted.
func (r *Registry) Kinds() []note.Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]note.Kind, 0, len(r.defs))
	for k := range r.defs {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Definitions returns the registered definitions ordered by kind.
func (r *Registry) Definitions() []Definition {
	kinds := r.Kinds()
	out := make([]Definition, 0, len(kinds))
	for _, k := range kinds {
		if d, ok := r.Lookup(k); ok {
			out = append(out, d)
		}
	}
	return out
}

// Len returns the number of registered kinds.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.defs)
}

// Clone returns an independent copy of r.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c := &Registry{defs: make(map[note.Kind]Definition, len(r.defs)), def: r.def}
	for k, d := range r.defs {
		c.defs[k] = d
	}
	return c
}

// Unimplemented returns the default definition. It accepts any options,
// nests anywhere and never fails: the tree shows the kind tag and the
// printed value.
func Unimplemented() Definition {
	return Definition{
		Description: "fallback for unregistered kinds",
		AnyOptions:  true,
		Nestable:    true,
		Render:      renderUnimplemented,
	}
}

func renderUnimplemented(_ context.Context, _ *Engine, n note.Note, _ Scope) (Artifact, error) {
	printed := printer.Sprint(n.Value)
	tree := markup.El("div", markup.Attrs{"class": "kind-unimplemented", "data-kind": string(n.Kind)},
		markup.Leaf("Unimplemented: "),
		markup.El("code", nil, markup.Leaf(string(n.Kind))),
		markup.Leaf(" "),
		markup.El("pre", nil, markup.Leaf(printed)),
	)
	return Artifact{Tree: tree, Payload: mime.Text("Unimplemented: " + string(n.Kind) + " " + printed)}, nil
}
