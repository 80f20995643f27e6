// Package starlark is a [kernel.Kernel] that evaluates Starlark.
//
// Globals persist across forms, so a notebook can define a function in one
// form and call it in the next. A form that is a single expression yields
// its value; a form ending in an expression runs the preceding statements
// and then yields the expression; a form ending in an assignment or def
// yields a [kernel.Binding]; anything else yields nil.
//
// The kind builtins (md, vega_lite, fn, ...) are predeclared and attach kind
// metadata to values, which the render engine honors:
//
//	k := starlark.New()
//	v, err := k.Eval(ctx, `md("# Hello " + name)`)
package starlark

import (
	"context"
	"io"
	"maps"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
	star "go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/matzehuels/kindview/pkg/errors"
	"github.com/matzehuels/kindview/pkg/kernel"
	"github.com/matzehuels/kindview/pkg/printer"
)

// Kernel evaluates Starlark forms. It is safe for concurrent use; forms are
// evaluated one at a time.
type Kernel struct {
	mu      sync.Mutex
	globals star.StringDict
	opts    *syntax.FileOptions
	out     io.Writer
	logger  *log.Logger
}

// Option configures a [Kernel].
type Option func(*Kernel)

// WithOutput sets the destination of print(). The default discards output.
func WithOutput(w io.Writer) Option {
	return func(k *Kernel) {
		if w != nil {
			k.out = w
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(k *Kernel) {
		if l != nil {
			k.logger = l
		}
	}
}

// WithGlobals predeclares extra values, converted from Go.
func WithGlobals(values map[string]any) Option {
	return func(k *Kernel) {
		for name, v := range values {
			sv, err := fromGo(v)
			if err != nil {
				k.logger.Warn("skipping global", "name", name, "err", err)
				continue
			}
			k.globals[name] = sv
		}
	}
}

// New returns a kernel with the kind builtins predeclared.
func New(opts ...Option) *Kernel {
	k := &Kernel{
		globals: builtins(),
		opts: &syntax.FileOptions{
			Set:             true,
			While:           true,
			TopLevelControl: true,
			GlobalReassign:  true,
			Recursion:       true,
		},
		out:    io.Discard,
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Eval evaluates form. Syntax and runtime errors, and cancellation through
// ctx, are returned with [errors.ErrCodeKernel].
func (k *Kernel) Eval(ctx context.Context, form string) (any, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	v, err := k.eval(ctx, form)
	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return nil, errors.Wrap(errors.ErrCodeKernel, err, "evaluate %s", abbreviate(form))
	}
	return v, nil
}

func (k *Kernel) eval(ctx context.Context, form string) (any, error) {
	f, err := k.opts.Parse("<form>", form, 0)
	if err != nil {
		return nil, err
	}
	thread, done := k.thread(ctx)
	defer done()

	if len(f.Stmts) == 0 {
		return nil, nil
	}
	last := f.Stmts[len(f.Stmts)-1]
	expr, isExpr := last.(*syntax.ExprStmt)
	if isExpr {
		f.Stmts = f.Stmts[:len(f.Stmts)-1]
	}
	if len(f.Stmts) > 0 {
		if err := star.ExecREPLChunk(f, thread, k.globals); err != nil {
			return nil, err
		}
	}
	if !isExpr {
		k.logger.Debug("executed statements", "count", len(f.Stmts))
		return binding(last), nil
	}

	v, err := star.EvalExprOptions(k.opts, thread, expr.X, k.globals)
	if err != nil {
		return nil, err
	}
	return toGo(k, v)
}

// thread returns a thread cancelled when ctx is done, and a func releasing it.
func (k *Kernel) thread(ctx context.Context) (*star.Thread, func()) {
	thread := &star.Thread{
		Name: "kindview",
		Print: func(_ *star.Thread, msg string) {
			io.WriteString(k.out, msg+"\n")
		},
	}
	stop := context.AfterFunc(ctx, func() {
		thread.Cancel(context.Cause(ctx).Error())
	})
	return thread, func() { stop() }
}

// Names returns the names defined by evaluated forms, sorted.
func (k *Kernel) Names() []string {
	k.mu.Lock()
	defer k.mu.Unlock()
	predeclared := builtins()
	var names []string
	for _, name := range slices.Sorted(maps.Keys(k.globals)) {
		if _, ok := predeclared[name]; !ok {
			names = append(names, name)
		}
	}
	return names
}

// binding returns the handle for a defining statement, or nil.
func binding(stmt syntax.Stmt) any {
	switch s := stmt.(type) {
	case *syntax.AssignStmt:
		if id, ok := s.LHS.(*syntax.Ident); ok {
			return kernel.Binding{Name: id.Name}
		}
	case *syntax.DefStmt:
		return kernel.Binding{Name: s.Name.Name}
	}
	return nil
}

// abbreviate quotes form for error messages, cut to a readable length.
func abbreviate(form string) string {
	const limit = 60
	if r := []rune(form); len(r) > limit {
		form = string(r[:limit]) + "..."
	}
	return printer.Sprint(form)
}

var _ kernel.Kernel = (*Kernel)(nil)
