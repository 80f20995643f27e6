// Package pkg provides the libraries behind kindview, a rendering engine
// that turns evaluated values into displayable output chosen by kind.
//
// # Overview
//
// The pkg directory is organized into these areas:
//
//  1. [note], [kind] - the unit of rendering work and the built-in kind tags
//  2. [render] - the engine, registry, option schemas and nesting guard
//  3. [render/builtin] - the standard renderer set (text, image, charts,
//     graphviz, composites, deferred functions)
//  4. [kernel], [eval] - source evaluation and the front door joining it
//     to the engine
//  5. [notebook] - HTML export of whole scripts
//  6. [cache], [observability], [errors] - shared infrastructure
//
// # Architecture
//
// The typical data flow:
//
//	source form
//	     ↓
//	[kernel] evaluates it to a value
//	     ↓
//	[eval] wraps the value in a [note.Note] unless it is displayable
//	     ↓
//	[render.Engine] resolves a kind (explicit, kinded value, or [advice])
//	     ↓
//	renderer for that kind, recursing through composites
//	     ↓
//	[render.Artifact]: markup tree plus MIME payload
//
// # Quick Start
//
//	engine, err := builtin.NewEngine(builtin.Config{})
//	if err != nil {
//	    return err
//	}
//	ev := eval.New(starlark.New(), engine)
//	out, err := ev.Kind(ctx, `md("# Hello")`)
//
// Rendering policy failures (bad options, illegal nesting, values a kind
// cannot show) become diagnostic content in the output instead of errors.
package pkg
