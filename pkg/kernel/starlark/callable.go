package starlark

import (
	"context"
	"maps"
	"slices"

	star "go.starlark.net/starlark"

	"github.com/matzehuels/kindview/pkg/render/deferred"
)

// Callable is a Starlark function handed to Go. Calls run on the kernel
// that produced it, serialized with its evaluations.
type Callable struct {
	fn     star.Callable
	kernel *Kernel
}

var (
	_ deferred.Caller    = (*Callable)(nil)
	_ deferred.MapCaller = (*Callable)(nil)
)

// Name returns the function name.
func (c *Callable) Name() string { return c.fn.Name() }

func (c *Callable) String() string { return c.fn.String() }

// Call calls the function with positional arguments.
func (c *Callable) Call(ctx context.Context, args ...any) (any, error) {
	sargs := make(star.Tuple, len(args))
	for i, a := range args {
		v, err := fromGo(a)
		if err != nil {
			return nil, err
		}
		sargs[i] = v
	}
	return c.call(ctx, sargs)
}

// CallMap calls the function with inputs as a single dict argument.
func (c *Callable) CallMap(ctx context.Context, inputs map[string]any) (any, error) {
	d := star.NewDict(len(inputs))
	for _, key := range slices.Sorted(maps.Keys(inputs)) {
		if err := setItem(d, key, inputs[key]); err != nil {
			return nil, err
		}
	}
	return c.call(ctx, star.Tuple{d})
}

func (c *Callable) call(ctx context.Context, args star.Tuple) (any, error) {
	k := c.kernel
	k.mu.Lock()
	defer k.mu.Unlock()

	thread, done := k.thread(ctx)
	defer done()
	v, err := star.Call(thread, c.fn, args, nil)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return toGo(k, v)
}
