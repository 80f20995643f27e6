// Package deferred implements the fn kind: a value computed by calling a
// user function at render time and rendered in place of the call.
//
// Two value shapes are accepted. The mapping form holds the callable under
// the reserved key "kind/f"; every other entry is passed to it as one
// mapping. The vector form is a slice whose first element is the callable
// and whose remaining elements are positional arguments.
//
// The result is wrapped in a fresh note with the original form and no
// kind, then dispatched through the engine again. Chains of deferred
// calls are bounded by the engine's MaxDeferrals.
package deferred

import (
	"context"
	"fmt"
	"reflect"

	"github.com/matzehuels/kindview/pkg/errors"
	"github.com/matzehuels/kindview/pkg/kind"
	"github.com/matzehuels/kindview/pkg/note"
	"github.com/matzehuels/kindview/pkg/printer"
	"github.com/matzehuels/kindview/pkg/render"
)

// MapCaller is a callable that takes named inputs.
type MapCaller interface {
	CallMap(ctx context.Context, inputs map[string]any) (any, error)
}

// Caller is a callable that takes positional arguments.
type Caller interface {
	Call(ctx context.Context, args ...any) (any, error)
}

// Definition returns the fn kind definition.
func Definition() render.Definition {
	return render.Definition{
		Kind:        kind.Fn,
		Description: "value computed by a function at render time",
		Options:     render.Schema{},
		Nestable:    true,
		Render:      Render,
	}
}

// Render calls the deferred function of n and renders its result.
func Render(ctx context.Context, e *render.Engine, n note.Note, s render.Scope) (render.Artifact, error) {
	if s.Deferrals >= e.MaxDeferrals() {
		return render.Artifact{}, errors.New(errors.ErrCodeDepthExceeded,
			"deferred rendering exceeded %d nested calls", e.MaxDeferrals())
	}
	result, err := Invoke(ctx, n.Value)
	if err != nil {
		return render.Artifact{}, err
	}
	e.Logger().Debug("deferred call", "depth", s.Deferrals+1, "result", fmt.Sprintf("%T", result))
	return e.Render(ctx, note.Note{Value: result, Form: n.Form}, s.Deferred())
}

// Invoke evaluates a deferred function value without rendering the result.
// Malformed values are policy failures; callable failures carry
// [errors.ErrCodeCallable].
func Invoke(ctx context.Context, v any) (any, error) {
	switch v := v.(type) {
	case map[string]any:
		f, ok := v[kind.FnKey]
		if !ok {
			return nil, missingFn()
		}
		return callMap(ctx, f, inputsOf(v))
	case *note.Map:
		if v == nil {
			return nil, missingFn()
		}
		f, ok := v.Get(kind.FnKey)
		if !ok {
			return nil, missingFn()
		}
		inputs := make(map[string]any, v.Len())
		for p := v.Oldest(); p != nil; p = p.Next() {
			key := printer.Scalar(p.Key)
			if key != kind.FnKey {
				inputs[key] = p.Value
			}
		}
		return callMap(ctx, f, inputs)
	case []any:
		if len(v) == 0 {
			return nil, errors.New(errors.ErrCodeInvalidValue, "deferred call needs a function")
		}
		return callArgs(ctx, v[0], v[1:])
	}
	return nil, errors.New(errors.ErrCodeInvalidValue, "fn expects a mapping with %q or a call vector, got %T", kind.FnKey, v)
}

func missingFn() error {
	return errors.New(errors.ErrCodeInvalidValue, "deferred inputs have no %q function", kind.FnKey)
}

func inputsOf(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if k != kind.FnKey {
			out[k] = v
		}
	}
	return out
}

func callMap(ctx context.Context, f any, inputs map[string]any) (result any, err error) {
	defer recoverCall(&err)
	switch f := f.(type) {
	case MapCaller:
		return wrapResult(f.CallMap(ctx, inputs))
	case func(map[string]any) (any, error):
		return wrapResult(f(inputs))
	case func(map[string]any) any:
		return f(inputs), nil
	case func(context.Context, map[string]any) (any, error):
		return wrapResult(f(ctx, inputs))
	}
	return reflectCall(f, []any{inputs})
}

func callArgs(ctx context.Context, f any, args []any) (result any, err error) {
	defer recoverCall(&err)
	switch f := f.(type) {
	case Caller:
		return wrapResult(f.Call(ctx, args...))
	case func(...any) (any, error):
		return wrapResult(f(args...))
	case func(...any) any:
		return f(args...), nil
	}
	return reflectCall(f, args)
}

func wrapResult(v any, err error) (any, error) {
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCallable, err, "deferred call failed")
	}
	return v, nil
}

func recoverCall(err *error) {
	if r := recover(); r != nil {
		*err = errors.Wrap(errors.ErrCodeCallable, fmt.Errorf("panic: %v", r), "deferred call failed")
	}
}

var errorType = reflect.TypeFor[error]()

// reflectCall applies an arbitrary Go function to args. Arguments are
// converted to the parameter types where Go allows it.
func reflectCall(f any, args []any) (any, error) {
	fv := reflect.ValueOf(f)
	if fv.Kind() != reflect.Func || fv.IsNil() {
		return nil, errors.New(errors.ErrCodeInvalidValue, "deferred value is not callable: %T", f)
	}
	ft := fv.Type()
	in, err := arguments(ft, args)
	if err != nil {
		return nil, err
	}
	out := fv.Call(in)

	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if ft.Out(0) == errorType {
			return nil, callableError(out[0])
		}
		return out[0].Interface(), nil
	case 2:
		if ft.Out(1) != errorType {
			return nil, errors.New(errors.ErrCodeInvalidValue, "deferred function %s must return (value, error)", ft)
		}
		if err := callableError(out[1]); err != nil {
			return nil, err
		}
		return out[0].Interface(), nil
	}
	return nil, errors.New(errors.ErrCodeInvalidValue, "deferred function %s returns too many values", ft)
}

func callableError(v reflect.Value) error {
	if v.IsNil() {
		return nil
	}
	return errors.Wrap(errors.ErrCodeCallable, v.Interface().(error), "deferred call failed")
}

func arguments(ft reflect.Type, args []any) ([]reflect.Value, error) {
	n := ft.NumIn()
	if ft.IsVariadic() {
		if len(args) < n-1 {
			return nil, arity(ft, len(args))
		}
	} else if len(args) != n {
		return nil, arity(ft, len(args))
	}
	in := make([]reflect.Value, len(args))
	for i, a := range args {
		var pt reflect.Type
		if ft.IsVariadic() && i >= n-1 {
			pt = ft.In(n - 1).Elem()
		} else {
			pt = ft.In(i)
		}
		v, err := convert(a, pt)
		if err != nil {
			return nil, errors.New(errors.ErrCodeInvalidValue, "argument %d of %s: %v", i+1, ft, err)
		}
		in[i] = v
	}
	return in, nil
}

func arity(ft reflect.Type, got int) error {
	return errors.New(errors.ErrCodeInvalidValue, "deferred function %s called with %d arguments", ft, got)
}

func convert(a any, t reflect.Type) (reflect.Value, error) {
	if a == nil {
		switch t.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, fmt.Errorf("nil for %s", t)
	}
	v := reflect.ValueOf(a)
	if v.Type().AssignableTo(t) {
		return v, nil
	}
	if isNumber(v.Kind()) && isNumber(t.Kind()) {
		return v.Convert(t), nil
	}
	if v.Kind() == reflect.String && t.Kind() == reflect.String {
		return v.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %T as %s", a, t)
}

func isNumber(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Float64
}
