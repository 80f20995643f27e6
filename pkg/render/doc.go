// Package render is the kind-dispatch rendering engine.
//
// # Overview
//
// A [note.Note] is rendered into an [Artifact]: a markup tree for
// composition and a platform payload for direct display. The [Engine]
// resolves the note's kind through a [Registry] of [Definition]s, asking
// the kind advisor when no kind is attached, validates the note's options
// against the definition's [Schema] and invokes the definition's
// [Renderer].
//
// # Nesting
//
// Composite renderers re-enter [Engine.Render] for their elements with
// [Scope.Child]. Definitions that are not nestable are wrapped by [Guard]:
// inside a composite they keep their payload but their tree is replaced by
// the literal diagnostic "nested rendering of <kind> not possible in <env>".
//
// # Failures
//
// Rendering-policy failures (invalid options, illegal nesting, unknown
// values, exceeded depth) never escape [Engine.Render]; they are rendered
// as content by [Failure]. Failures of the kind advisor and of user
// callables are returned as errors.
//
// # Subpackages
//
//   - [composite]: vector, set, seq, map, table and dataset kinds
//   - [deferred]: the fn kind
//   - [asset]: idempotent client-side library loaders
//   - [text], [image], [chart], [graphviz]: leaf kinds
//   - [builtin]: assembles the built-in registry
package render
