// Package printer produces the best-effort printed representation of
// values used by default, pprint and composite renderers.
//
// The format follows the reader-friendly conventions of a REPL: nil prints
// as "nil", strings are quoted, sequences print as [a b], sets as #{a b}
// and mappings as {k v, k v}. Go maps are printed in sorted key order so
// the output is deterministic; ordered maps keep insertion order.
package printer

import (
	"cmp"
	"fmt"
	"iter"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/matzehuels/kindview/pkg/note"
)

// MaxLen bounds the length of a printed representation. Longer output is
// truncated with a trailing ellipsis.
const MaxLen = 4096

// MaxSeq bounds how many elements of an iter.Seq are consumed.
const MaxSeq = 1000

// Sprint returns the printed representation of v.
func Sprint(v any) string {
	var p printer
	p.print(v, 0)
	return p.String()
}

// Scalar returns the printed form of a table cell or column identifier:
// strings print unquoted, everything else as [Sprint].
func Scalar(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	}
	return Sprint(v)
}

type printer struct {
	b         strings.Builder
	truncated bool
}

func (p *printer) String() string {
	if p.truncated {
		return p.b.String() + "..."
	}
	return p.b.String()
}

func (p *printer) write(s string) {
	if p.truncated {
		return
	}
	if p.b.Len()+len(s) > MaxLen {
		p.b.WriteString(s[:MaxLen-p.b.Len()])
		p.truncated = true
		return
	}
	p.b.WriteString(s)
}

const maxDepth = 32

func (p *printer) print(v any, depth int) {
	if p.truncated {
		return
	}
	if depth > maxDepth {
		p.write("...")
		return
	}
	switch v := v.(type) {
	case nil:
		p.write("nil")
	case string:
		p.write(strconv.Quote(v))
	case bool:
		p.write(strconv.FormatBool(v))
	case int:
		p.write(strconv.Itoa(v))
	case int64:
		p.write(strconv.FormatInt(v, 10))
	case float64:
		p.write(formatFloat(v, 64))
	case float32:
		p.write(formatFloat(float64(v), 32))
	case []byte:
		p.write(fmt.Sprintf("#bytes[%d]", len(v)))
	case error:
		p.write("#error " + strconv.Quote(v.Error()))
	case note.Kinded:
		p.print(v.Value, depth)
	case note.Set:
		p.seq("#{", "}", slices.Values(v), depth)
	case []any:
		p.seq("[", "]", slices.Values(v), depth)
	case *note.Map:
		p.orderedMap(v, depth)
	case note.Table:
		p.table(v, depth)
	case iter.Seq[any]:
		p.seq("(", ")", limit(v, MaxSeq), depth)
	case fmt.Stringer:
		p.write(v.String())
	default:
		p.reflectValue(reflect.ValueOf(v), depth)
	}
}

func (p *printer) seq(open, close string, elems iter.Seq[any], depth int) {
	p.write(open)
	i := 0
	for e := range elems {
		if i > 0 {
			p.write(" ")
		}
		p.print(e, depth+1)
		i++
		if p.truncated {
			return
		}
	}
	p.write(close)
}

func (p *printer) orderedMap(m *note.Map, depth int) {
	p.write("{")
	if m != nil {
		i := 0
		for pair := m.Oldest(); pair != nil; pair = pair.Next() {
			if i > 0 {
				p.write(", ")
			}
			p.print(pair.Key, depth+1)
			p.write(" ")
			p.print(pair.Value, depth+1)
			i++
		}
	}
	p.write("}")
}

func (p *printer) table(t note.Table, depth int) {
	p.write("#table{:columns ")
	p.seq("[", "]", slices.Values(t.Columns), depth)
	p.write(fmt.Sprintf(" :rows %d}", len(t.Rows)))
}

func (p *printer) reflectValue(rv reflect.Value, depth int) {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		p.write(strconv.FormatInt(rv.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		p.write(strconv.FormatUint(rv.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		p.write(formatFloat(rv.Float(), rv.Type().Bits()))
	case reflect.String:
		p.write(strconv.Quote(rv.String()))
	case reflect.Bool:
		p.write(strconv.FormatBool(rv.Bool()))
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			p.write("[]")
			return
		}
		p.seq("[", "]", func(yield func(any) bool) {
			for i := range rv.Len() {
				if !yield(rv.Index(i).Interface()) {
					return
				}
			}
		}, depth)
	case reflect.Map:
		p.goMap(rv, depth)
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			p.write("nil")
			return
		}
		p.print(rv.Elem().Interface(), depth+1)
	case reflect.Func:
		p.write("#fn[" + rv.Type().String() + "]")
	case reflect.Struct:
		p.write(fmt.Sprintf("%+v", rv.Interface()))
	default:
		p.write(fmt.Sprintf("%v", rv.Interface()))
	}
}

// goMap prints a Go map with entries sorted by printed key.
func (p *printer) goMap(rv reflect.Value, depth int) {
	type entry struct {
		key string
		val any
	}
	entries := make([]entry, 0, rv.Len())
	it := rv.MapRange()
	for it.Next() {
		entries = append(entries, entry{key: Sprint(it.Key().Interface()), val: it.Value().Interface()})
	}
	slices.SortFunc(entries, func(a, b entry) int { return cmp.Compare(a.key, b.key) })

	p.write("{")
	for i, e := range entries {
		if i > 0 {
			p.write(", ")
		}
		p.write(e.key)
		p.write(" ")
		p.print(e.val, depth+1)
	}
	p.write("}")
}

func formatFloat(f float64, bits int) string {
	s := strconv.FormatFloat(f, 'g', -1, bits)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

func limit(seq iter.Seq[any], n int) iter.Seq[any] {
	return func(yield func(any) bool) {
		i := 0
		for v := range seq {
			if i >= n {
				yield("...")
				return
			}
			if !yield(v) {
				return
			}
			i++
		}
	}
}
