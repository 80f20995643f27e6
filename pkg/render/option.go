package render

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/matzehuels/kindview/pkg/errors"
	"github.com/matzehuels/kindview/pkg/note"
)

// Type validates one option value.
type Type interface {
	// Name returns the human-readable name of the type (e.g. "string").
	Name() string
	// Validate checks whether a value conforms to the type.
	Validate(value any) error
}

// Schema declares the options a kind recognises. The key set is the
// declared option-name set; an empty schema accepts no options.
type Schema map[string]Type

// Keys returns the declared option names, sorted.
func (s Schema) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

type typeFunc struct {
	name     string
	validate func(any) error
}

func (t typeFunc) Name() string             { return t.name }
func (t typeFunc) Validate(value any) error { return t.validate(value) }

// Any accepts every value.
func Any() Type {
	return typeFunc{"any", func(any) error { return nil }}
}

// String accepts strings.
func String() Type {
	return typeFunc{"string", func(v any) error {
		if _, ok := v.(string); !ok {
			return fmt.Errorf("expected string, got %T", v)
		}
		return nil
	}}
}

// Int accepts integers and whole floats.
func Int() Type {
	return typeFunc{"int", func(v any) error {
		switch v := v.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return nil
		case float64:
			if v == float64(int64(v)) {
				return nil
			}
			return fmt.Errorf("expected int, got float (not a whole number)")
		}
		return fmt.Errorf("expected int, got %T", v)
	}}
}

// Float accepts any number.
func Float() Type {
	return typeFunc{"float", func(v any) error {
		switch v.(type) {
		case float32, float64, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return nil
		}
		return fmt.Errorf("expected float, got %T", v)
	}}
}

// Bool accepts booleans.
func Bool() Type {
	return typeFunc{"bool", func(v any) error {
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("expected bool, got %T", v)
		}
		return nil
	}}
}

// Map accepts maps, including ordered maps.
func Map() Type {
	return typeFunc{"map", func(v any) error {
		if _, ok := v.(*note.Map); ok {
			return nil
		}
		if reflect.ValueOf(v).Kind() != reflect.Map {
			return fmt.Errorf("expected map, got %T", v)
		}
		return nil
	}}
}

// Slice accepts slices whose elements all conform to elem.
func Slice(elem Type) Type {
	return typeFunc{"[" + elem.Name() + "]", func(v any) error {
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return fmt.Errorf("expected slice, got %T", v)
		}
		for i := range rv.Len() {
			if err := elem.Validate(rv.Index(i).Interface()); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
		return nil
	}}
}

// OneOf accepts one of the listed strings.
func OneOf(values ...string) Type {
	return typeFunc{strings.Join(values, "|"), func(v any) error {
		s, ok := v.(string)
		if !ok || !slices.Contains(values, s) {
			return fmt.Errorf("expected one of %s, got %v", strings.Join(values, ", "), v)
		}
		return nil
	}}
}

// Dimension accepts a pixel count or a CSS length string.
func Dimension() Type {
	return typeFunc{"dimension", func(v any) error {
		if _, ok := v.(string); ok {
			return nil
		}
		return Float().Validate(v)
	}}
}

// FieldError is a declared option whose value has the wrong type.
type FieldError struct {
	Key    string
	Reason string
}

// ValidationError lists the offending options of one note.
type ValidationError struct {
	Kind    note.Kind
	Unknown []string
	Invalid []FieldError
}

// Keys returns every offending option name, sorted.
func (e *ValidationError) Keys() []string {
	keys := slices.Clone(e.Unknown)
	for _, f := range e.Invalid {
		keys = append(keys, f.Key)
	}
	slices.Sort(keys)
	return keys
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Unknown)+len(e.Invalid))
	parts = append(parts, e.Unknown...)
	for _, f := range e.Invalid {
		parts = append(parts, fmt.Sprintf("%s (%s)", f.Key, f.Reason))
	}
	slices.Sort(parts)
	return "invalid options: " + strings.Join(parts, ", ")
}

// Validate checks opts against schema. Keys missing from schema are
// unknown; declared keys are type checked unless their value is nil. The
// returned error carries [errors.ErrCodeInvalidOptions] and wraps a
// [*ValidationError].
func Validate(k note.Kind, schema Schema, opts map[string]any) error {
	if len(opts) == 0 {
		return nil
	}
	ve := &ValidationError{Kind: k}
	for key, value := range opts {
		typ, ok := schema[key]
		if !ok {
			ve.Unknown = append(ve.Unknown, key)
			continue
		}
		if value == nil || typ == nil {
			continue
		}
		if err := typ.Validate(value); err != nil {
			ve.Invalid = append(ve.Invalid, FieldError{Key: key, Reason: err.Error()})
		}
	}
	if len(ve.Unknown) == 0 && len(ve.Invalid) == 0 {
		return nil
	}
	slices.Sort(ve.Unknown)
	slices.SortFunc(ve.Invalid, func(a, b FieldError) int { return strings.Compare(a.Key, b.Key) })
	return &errors.Error{Code: errors.ErrCodeInvalidOptions, Message: ve.Error(), Cause: ve}
}

// Decode copies validated options into the struct pointed to by target.
// Fields are matched by their `option` tag; numeric and string values are
// converted weakly.
func Decode(opts map[string]any, target any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "option",
		WeaklyTypedInput: true,
		Result:           target,
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "option decoder")
	}
	if err := dec.Decode(opts); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOptions, err, "invalid options: %v", err)
	}
	return nil
}
