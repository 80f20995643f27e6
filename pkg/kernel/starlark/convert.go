package starlark

import (
	"fmt"
	"math"
	"reflect"

	star "go.starlark.net/starlark"

	"github.com/matzehuels/kindview/pkg/note"
)

// toGo converts a Starlark value to the value shapes the render engine
// understands. Lists and tuples become []any, dicts *note.Map, sets
// note.Set, callables *Callable and kinded values note.Kinded. Values with
// no Go counterpart are returned unchanged and print through String.
func toGo(k *Kernel, v star.Value) (any, error) {
	switch v := v.(type) {
	case star.NoneType:
		return nil, nil
	case star.Bool:
		return bool(v), nil
	case star.Int:
		if i, ok := v.Int64(); ok {
			if i >= math.MinInt && i <= math.MaxInt {
				return int(i), nil
			}
			return i, nil
		}
		return v.BigInt(), nil
	case star.Float:
		return float64(v), nil
	case star.String:
		return string(v), nil
	case star.Bytes:
		return []byte(v), nil
	case *star.List:
		return elems(k, v)
	case star.Tuple:
		return elems(k, v)
	case *star.Set:
		items, err := elems(k, v)
		if err != nil {
			return nil, err
		}
		return note.NewSet(items...), nil
	case *star.Dict:
		m := note.NewMap()
		for _, item := range v.Items() {
			key, err := dictKey(k, item[0])
			if err != nil {
				return nil, err
			}
			val, err := toGo(k, item[1])
			if err != nil {
				return nil, err
			}
			m.Set(key, val)
		}
		return m, nil
	case *kinded:
		return v.toGo(k)
	case star.Callable:
		return &Callable{fn: v, kernel: k}, nil
	}
	return v, nil
}

// dictKey converts a dict key to a comparable Go value. Kinded keys
// become *note.Kinded; tuple and bytes keys keep their Starlark spelling.
func dictKey(k *Kernel, v star.Value) (any, error) {
	switch v := v.(type) {
	case *kinded:
		gv, err := v.toGo(k)
		if err != nil {
			return nil, err
		}
		kv := gv.(note.Kinded)
		return &kv, nil
	case star.Tuple:
		return v.String(), nil
	case star.Bytes:
		return string(v), nil
	}
	return toGo(k, v)
}

func elems(k *Kernel, v star.Iterable) ([]any, error) {
	iter := v.Iterate()
	defer iter.Done()
	out := []any{}
	var x star.Value
	for iter.Next(&x) {
		gv, err := toGo(k, x)
		if err != nil {
			return nil, err
		}
		out = append(out, gv)
	}
	return out, nil
}

// fromGo converts a Go value to Starlark. It accepts what toGo produces
// plus the common Go scalar, slice, map and struct shapes.
func fromGo(v any) (star.Value, error) {
	switch v := v.(type) {
	case nil:
		return star.None, nil
	case star.Value:
		return v, nil
	case *Callable:
		return v.fn, nil
	case bool:
		return star.Bool(v), nil
	case string:
		return star.String(v), nil
	case []byte:
		return star.Bytes(v), nil
	case int:
		return star.MakeInt(v), nil
	case int64:
		return star.MakeInt64(v), nil
	case uint64:
		return star.MakeUint64(v), nil
	case float64:
		return star.Float(v), nil
	case float32:
		return star.Float(v), nil
	case []any:
		return listOf(v)
	case note.Set:
		s := star.NewSet(len(v))
		for _, e := range v {
			sv, err := fromGo(e)
			if err != nil {
				return nil, err
			}
			if err := s.Insert(sv); err != nil {
				return nil, err
			}
		}
		return s, nil
	case *note.Map:
		d := star.NewDict(v.Len())
		for p := v.Oldest(); p != nil; p = p.Next() {
			if err := setItem(d, p.Key, p.Value); err != nil {
				return nil, err
			}
		}
		return d, nil
	case map[string]any:
		d := star.NewDict(len(v))
		for key, val := range v {
			if err := setItem(d, key, val); err != nil {
				return nil, err
			}
		}
		return d, nil
	case note.Kinded:
		return kindedFromGo(v)
	case *note.Kinded:
		if v == nil {
			return star.None, nil
		}
		return kindedFromGo(*v)
	case note.Table:
		cols, err := fromGo(v.Columns)
		if err != nil {
			return nil, err
		}
		rows := make([]any, len(v.Rows))
		for i, r := range v.Rows {
			rows[i] = r
		}
		rowList, err := fromGo(rows)
		if err != nil {
			return nil, err
		}
		d := star.NewDict(2)
		d.SetKey(star.String("columns"), cols)
		d.SetKey(star.String("rows"), rowList)
		return d, nil
	case error:
		return star.String(v.Error()), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return star.Bool(rv.Bool()), nil
	case reflect.String:
		return star.String(rv.String()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return star.MakeInt64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return star.MakeUint64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return star.Float(rv.Float()), nil
	case reflect.Slice, reflect.Array:
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return listOf(items)
	case reflect.Map:
		d := star.NewDict(rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			if err := setItem(d, iter.Key().Interface(), iter.Value().Interface()); err != nil {
				return nil, err
			}
		}
		return d, nil
	case reflect.Struct:
		typ := rv.Type()
		d := star.NewDict(rv.NumField())
		for i := range rv.NumField() {
			field := typ.Field(i)
			if !field.IsExported() {
				continue
			}
			if err := setItem(d, field.Name, rv.Field(i).Interface()); err != nil {
				return nil, err
			}
		}
		return d, nil
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return star.None, nil
		}
		return fromGo(rv.Elem().Interface())
	}
	return nil, fmt.Errorf("no Starlark value for %T", v)
}

func listOf(items []any) (star.Value, error) {
	out := make([]star.Value, len(items))
	for i, e := range items {
		sv, err := fromGo(e)
		if err != nil {
			return nil, err
		}
		out[i] = sv
	}
	return star.NewList(out), nil
}

func setItem(d *star.Dict, key, val any) error {
	sk, err := fromGo(key)
	if err != nil {
		return err
	}
	sv, err := fromGo(val)
	if err != nil {
		return err
	}
	return d.SetKey(sk, sv)
}
