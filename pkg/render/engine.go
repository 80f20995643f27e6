package render

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/kindview/pkg/advice"
	"github.com/matzehuels/kindview/pkg/errors"
	"github.com/matzehuels/kindview/pkg/note"
	"github.com/matzehuels/kindview/pkg/observability"
)

const (
	// DefaultEnvironment names the host environment in nesting diagnostics.
	DefaultEnvironment = "kindview"
	// DefaultMaxDeferrals bounds chains of deferred function calls.
	DefaultMaxDeferrals = 16
	// DefaultMaxDepth bounds composite nesting.
	DefaultMaxDepth = 64
)

// Engine renders notes by kind.
type Engine struct {
	registry     *Registry
	advisor      advice.Advisor
	logger       *log.Logger
	hooks        observability.RenderHooks
	env          string
	maxDeferrals int
	maxDepth     int
}

// Option configures an [Engine].
type Option func(*Engine)

// WithRegistry sets the definitions the engine dispatches to.
func WithRegistry(r *Registry) Option {
	return func(e *Engine) {
		if r != nil {
			e.registry = r
		}
	}
}

// WithAdvisor sets the kind advisor consulted for notes without a kind.
func WithAdvisor(a advice.Advisor) Option {
	return func(e *Engine) {
		if a != nil {
			e.advisor = a
		}
	}
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithHooks sets the render hooks. The default is the globally registered
// [observability.Render] hooks.
func WithHooks(h observability.RenderHooks) Option {
	return func(e *Engine) {
		if h != nil {
			e.hooks = h
		}
	}
}

// WithEnvironment sets the environment name shown in nesting diagnostics.
func WithEnvironment(name string) Option {
	return func(e *Engine) {
		if name != "" {
			e.env = name
		}
	}
}

// WithMaxDeferrals bounds chained deferred function calls.
func WithMaxDeferrals(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxDeferrals = n
		}
	}
}

// WithMaxDepth bounds composite nesting.
func WithMaxDepth(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxDepth = n
		}
	}
}

// NewEngine returns an engine. Without [WithRegistry] the registry is
// empty and every kind renders through the default definition.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		advisor:      advice.Default(),
		logger:       log.New(io.Discard),
		env:          DefaultEnvironment,
		maxDeferrals: DefaultMaxDeferrals,
		maxDepth:     DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		e.registry = NewRegistry()
	}
	if e.hooks == nil {
		e.hooks = observability.Render()
	}
	return e
}

// Registry returns the engine's registry.
func (e *Engine) Registry() *Registry { return e.registry }

// Environment returns the environment name.
func (e *Engine) Environment() string { return e.env }

// MaxDeferrals returns the deferred call bound.
func (e *Engine) MaxDeferrals() int { return e.maxDeferrals }

// Logger returns the engine's logger.
func (e *Engine) Logger() *log.Logger { return e.logger }

// RenderTop renders n at top level.
func (e *Engine) RenderTop(ctx context.Context, n note.Note) (Artifact, error) {
	return e.Render(ctx, n, Scope{})
}

// Render renders n in scope s.
//
// A note without a kind takes the kind of its [note.Kinded] value, or else
// the advisor's top suggestion. Policy failures are returned as diagnostic
// artifacts with a nil error. Advisor failures are wrapped with
// [errors.ErrCodeAdvice]; renderer errors without a policy code are
// returned as is.
func (e *Engine) Render(ctx context.Context, n note.Note, s Scope) (Artifact, error) {
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}
	n, err := e.resolveKind(ctx, n)
	if err != nil {
		return Artifact{}, err
	}

	kind := string(n.Kind)
	start := time.Now()
	e.hooks.OnRenderStart(ctx, kind, s.Nested)

	a, err := e.dispatch(ctx, n, s)
	if err != nil && errors.IsPolicy(err) {
		code := string(errors.GetCode(err))
		e.logger.Warn("render policy failure", "kind", kind, "code", code, "err", errors.UserMessage(err))
		e.hooks.OnPolicyFailure(ctx, kind, code)
		a, err = Failure(n.Kind, err), nil
	}
	if err == nil {
		a = a.complete()
	}

	elapsed := time.Since(start)
	e.hooks.OnRenderComplete(ctx, kind, s.Nested, elapsed, err)
	e.logger.Debug("rendered", "kind", kind, "nested", s.Nested, "depth", s.Depth, "elapsed", elapsed)
	return a, err
}

func (e *Engine) resolveKind(ctx context.Context, n note.Note) (note.Note, error) {
	if n.Kind != "" {
		return n, nil
	}
	if k, ok := n.Value.(note.Kinded); ok {
		n = k.Unwrap(n)
		if n.Kind != "" {
			return n, nil
		}
	}
	suggestions, err := e.advisor.Advise(ctx, n.Form, n.Value)
	if err == nil && len(suggestions) == 0 {
		err = advice.ErrNoAdvice
	}
	if err != nil {
		return n, errors.Wrap(errors.ErrCodeAdvice, err, "kind advice for %s", formLabel(n.Form))
	}
	return n.WithKind(suggestions[0].Kind), nil
}

func (e *Engine) dispatch(ctx context.Context, n note.Note, s Scope) (Artifact, error) {
	if s.Depth > e.maxDepth {
		return Artifact{}, errors.New(errors.ErrCodeDepthExceeded, "nesting exceeded %d levels", e.maxDepth)
	}
	def := e.registry.Resolve(n.Kind)
	if !def.AnyOptions {
		if err := Validate(n.Kind, def.Options, n.Options); err != nil {
			return Artifact{}, err
		}
	}
	compute := func() (Artifact, error) { return def.Render(ctx, e, n, s) }
	if def.Nestable {
		return compute()
	}
	return Guard(e.env, n, s, compute)
}

func formLabel(form string) string {
	if form == "" {
		return "value"
	}
	if len(form) > 60 {
		form = form[:57] + "..."
	}
	return "form " + form
}
