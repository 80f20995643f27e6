// Package notefile decodes declarative notes written as YAML or JSON.
//
//	kind: vega-lite
//	deps: [vega, vega-lite]
//	options:
//	  width: 400
//	value:
//	  mark: bar
//	  data: {values: [{a: 1}, {a: 2}]}
//
// Mappings keep their key order. A mapping with a "$kind" key is a kinded
// value and may carry "value", "options" and "deps". A mapping tagged
// !!set becomes a set of its keys.
package notefile

import (
	"bytes"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/kindview/pkg/errors"
	"github.com/matzehuels/kindview/pkg/note"
)

// KindKey marks a nested mapping as a kinded value.
const KindKey = "$kind"

var topKeys = []string{"kind", "form", "value", "options", "deps"}

// Decode reads one note from r.
func Decode(r io.Reader) (note.Note, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return note.Note{}, errors.New(errors.ErrCodeInvalidInput, "note document is empty")
		}
		return note.Note{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse note")
	}
	return fromDocument(&doc)
}

// Parse decodes one note from data.
func Parse(data []byte) (note.Note, error) {
	return Decode(bytes.NewReader(data))
}

// Load reads the note stored at path.
func Load(path string) (note.Note, error) {
	f, err := os.Open(path)
	if err != nil {
		return note.Note{}, errors.Wrap(errors.ErrCodeNotFound, err, "open note %s", path)
	}
	defer f.Close()
	return Decode(f)
}

func fromDocument(doc *yaml.Node) (note.Note, error) {
	root := doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return note.Note{}, errors.New(errors.ErrCodeInvalidInput, "line %d: a note must be a mapping", root.Line)
	}

	var n note.Note
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		switch key.Value {
		case "kind":
			n.Kind = note.Kind(val.Value)
		case "form":
			n.Form = val.Value
		case "value":
			v, err := toValue(val)
			if err != nil {
				return note.Note{}, err
			}
			n.Value = v
		case "options":
			opts, err := toOptions(val)
			if err != nil {
				return note.Note{}, err
			}
			n.Options = opts
		case "deps":
			deps, err := toDeps(val)
			if err != nil {
				return note.Note{}, err
			}
			n.Deps = deps
		default:
			return note.Note{}, errors.New(errors.ErrCodeInvalidInput, "line %d: unknown note field %q (want one of %v)", key.Line, key.Value, topKeys)
		}
	}
	return n, nil
}

// toValue converts a YAML node to the value shapes the engine understands.
func toValue(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.AliasNode:
		return toValue(node.Alias)
	case yaml.ScalarNode:
		var v any
		if err := node.Decode(&v); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "line %d", node.Line)
		}
		return v, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(node.Content))
		for _, c := range node.Content {
			v, err := toValue(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.MappingNode:
		if node.Tag == "!!set" {
			return toSet(node)
		}
		if hasKey(node, KindKey) {
			return toKinded(node)
		}
		m := note.NewMap()
		for i := 0; i+1 < len(node.Content); i += 2 {
			k, err := toKey(node.Content[i])
			if err != nil {
				return nil, err
			}
			v, err := toValue(node.Content[i+1])
			if err != nil {
				return nil, err
			}
			m.Set(k, v)
		}
		return m, nil
	}
	return nil, errors.New(errors.ErrCodeInvalidInput, "line %d: unsupported YAML node", node.Line)
}

// toKey converts a mapping key. Kinded keys are stored by pointer.
func toKey(node *yaml.Node) (any, error) {
	v, err := toValue(node)
	if err != nil {
		return nil, err
	}
	switch v := v.(type) {
	case note.Kinded:
		return &v, nil
	case []any, *note.Map, note.Set:
		return nil, errors.New(errors.ErrCodeInvalidInput, "line %d: keys must be scalars or kinded values", node.Line)
	}
	return v, nil
}

func toSet(node *yaml.Node) (any, error) {
	items := make([]any, 0, len(node.Content)/2)
	for i := 0; i < len(node.Content); i += 2 {
		v, err := toKey(node.Content[i])
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return note.NewSet(items...), nil
}

func toKinded(node *yaml.Node) (any, error) {
	var k note.Kinded
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		switch key.Value {
		case KindKey:
			k.Kind = note.Kind(val.Value)
		case "value":
			v, err := toValue(val)
			if err != nil {
				return nil, err
			}
			k.Value = v
		case "options":
			opts, err := toOptions(val)
			if err != nil {
				return nil, err
			}
			k.Options = opts
		case "deps":
			deps, err := toDeps(val)
			if err != nil {
				return nil, err
			}
			k.Deps = deps
		default:
			return nil, errors.New(errors.ErrCodeInvalidInput, "line %d: unknown field %q in kinded value", key.Line, key.Value)
		}
	}
	if k.Kind == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "line %d: %s cannot be empty", node.Line, KindKey)
	}
	return k, nil
}

// toOptions decodes an options mapping. Option values keep native Go
// shapes (maps with string keys) so renderers can decode them.
func toOptions(node *yaml.Node) (map[string]any, error) {
	if node.Kind != yaml.MappingNode {
		return nil, errors.New(errors.ErrCodeInvalidInput, "line %d: options must be a mapping", node.Line)
	}
	var opts map[string]any
	if err := node.Decode(&opts); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "line %d: options", node.Line)
	}
	return opts, nil
}

func toDeps(node *yaml.Node) ([]string, error) {
	var deps []string
	if err := node.Decode(&deps); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "line %d: deps must be a list of names", node.Line)
	}
	return deps, nil
}

func hasKey(node *yaml.Node, key string) bool {
	for i := 0; i < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return true
		}
	}
	return false
}
