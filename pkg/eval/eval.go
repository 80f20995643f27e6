// Package eval is the kind front door: it evaluates a source form with a
// kernel and renders the resulting value unless it is already displayable.
//
//	ev := eval.New(starlark.New(), engine)
//	out, err := ev.Kind(ctx, `md("# Hello")`)
//
// Values returned unchanged are nil, previously produced payloads, decoded
// images and reference handles such as [kernel.Binding]. Everything else is
// wrapped in a note carrying the form and rendered at top level.
package eval

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"time"

	"github.com/matzehuels/kindview/pkg/errors"
	"github.com/matzehuels/kindview/pkg/kernel"
	"github.com/matzehuels/kindview/pkg/mime"
	"github.com/matzehuels/kindview/pkg/note"
	"github.com/matzehuels/kindview/pkg/observability"
	"github.com/matzehuels/kindview/pkg/render"
)

// Evaluator joins a kernel and a render engine.
type Evaluator struct {
	kernel kernel.Kernel
	engine *render.Engine
	hooks  observability.EvalHooks
}

// New returns an evaluator. A nil engine renders through an engine with an
// empty registry.
func New(k kernel.Kernel, e *render.Engine) *Evaluator {
	if e == nil {
		e = render.NewEngine()
	}
	return &Evaluator{kernel: k, engine: e, hooks: observability.Eval()}
}

// Engine returns the render engine.
func (ev *Evaluator) Engine() *render.Engine { return ev.engine }

// Kernel returns the kernel.
func (ev *Evaluator) Kernel() kernel.Kernel { return ev.kernel }

// Result is the outcome of evaluating one form.
type Result struct {
	Form  string
	Value any
	// Passthrough is set when Value was returned without rendering.
	Passthrough bool
	// Artifact is the rendering of Value. Zero when Passthrough is set.
	Artifact render.Artifact
}

// Display returns what the transport shows: the value itself when it passed
// through, otherwise the artifact payload.
func (r Result) Display() any {
	if r.Passthrough {
		return r.Value
	}
	return r.Artifact.Payload
}

// Bundle returns the MIME bundle of the display value. Pass-through
// images are encoded as PNG and other pass-through values are shown as
// plain text.
func (r Result) Bundle() map[string]any {
	switch v := r.Display().(type) {
	case mime.Payload:
		return mime.Bundle(v)
	case *mime.Payload:
		return mime.Bundle(*v)
	case nil:
		return mime.Bundle(mime.Text(""))
	case image.Image:
		var buf bytes.Buffer
		if err := png.Encode(&buf, v); err == nil {
			return mime.Bundle(mime.Image("png", buf.Bytes()))
		}
		return mime.Bundle(mime.Text("<image>"))
	default:
		return mime.Bundle(mime.Text(fmt.Sprint(v)))
	}
}

// Eval evaluates form and renders its value. Kernel failures carry
// [errors.ErrCodeKernel]; render errors are returned as they come from the
// engine.
func (ev *Evaluator) Eval(ctx context.Context, form string) (res Result, err error) {
	start := time.Now()
	ev.hooks.OnEvalStart(ctx)
	defer func() {
		ev.hooks.OnEvalComplete(ctx, res.Passthrough, time.Since(start), err)
	}()

	res.Form = form
	v, err := ev.kernel.Eval(ctx, form)
	if err != nil {
		if errors.GetCode(err) == "" {
			err = errors.Wrap(errors.ErrCodeKernel, err, "evaluate form")
		}
		return res, err
	}
	res.Value = v
	if v == nil || mime.Displayable(v) {
		res.Passthrough = true
		ev.engine.Logger().Debug("value passed through", "type", fmt.Sprintf("%T", v))
		return res, nil
	}

	res.Artifact, err = ev.engine.RenderTop(ctx, note.New(v, form))
	return res, err
}

// Kind evaluates form and returns its display value: the value itself when
// displayable, otherwise the payload of its top-level rendering.
func (ev *Evaluator) Kind(ctx context.Context, form string) (any, error) {
	res, err := ev.Eval(ctx, form)
	if err != nil {
		return nil, err
	}
	return res.Display(), nil
}

// Artifact evaluates form and returns the full rendering. The bool is false
// when the value passed through without rendering.
func (ev *Evaluator) Artifact(ctx context.Context, form string) (render.Artifact, bool, error) {
	res, err := ev.Eval(ctx, form)
	if err != nil {
		return render.Artifact{}, false, err
	}
	return res.Artifact, !res.Passthrough, nil
}
