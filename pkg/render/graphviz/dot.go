package graphviz

import (
	"bytes"
	"fmt"

	"github.com/matzehuels/kindview/pkg/errors"
	"github.com/matzehuels/kindview/pkg/note"
)

// Graph is a node-link description rendered without writing DOT by hand:
//
//	{"nodes": ["a", {"id": "b", "label": "B"}], "edges": [["a", "b"]]}
type Graph struct {
	Nodes []Node
	Edges []Edge
}

// Node is a graph vertex. An empty label shows the id.
type Node struct {
	ID    string
	Label string
}

// Edge is a directed edge between node ids.
type Edge struct {
	From, To string
}

// ToDOT returns the DOT source of g. Edge endpoints missing from Nodes
// are declared implicitly by Graphviz.
func ToDOT(g Graph) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, margin=\"0.2,0.1\"];\n")
	for _, n := range g.Nodes {
		label := n.Label
		if label == "" {
			label = n.ID
		}
		fmt.Fprintf(&buf, "  %q [label=%q];\n", n.ID, label)
	}
	for _, e := range g.Edges {
		fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
	}
	buf.WriteString("}\n")
	return buf.String()
}

// graphFromValue reads a Graph from a mapping with "nodes" and "edges".
func graphFromValue(v any) (Graph, error) {
	fields, ok := stringMap(v)
	if !ok {
		return Graph{}, errors.New(errors.ErrCodeInvalidValue, "graphviz expects DOT source or a graph mapping, got %T", v)
	}
	var g Graph
	for _, item := range items(fields["nodes"]) {
		switch item := item.(type) {
		case string:
			g.Nodes = append(g.Nodes, Node{ID: item})
		default:
			m, ok := stringMap(item)
			id, _ := m["id"].(string)
			if !ok || id == "" {
				return Graph{}, errors.New(errors.ErrCodeInvalidValue, "graph node must be an id or a mapping with an id, got %v", item)
			}
			label, _ := m["label"].(string)
			g.Nodes = append(g.Nodes, Node{ID: id, Label: label})
		}
	}
	for _, item := range items(fields["edges"]) {
		e, err := edgeFromValue(item)
		if err != nil {
			return Graph{}, err
		}
		g.Edges = append(g.Edges, e)
	}
	if len(g.Nodes) == 0 && len(g.Edges) == 0 {
		return Graph{}, errors.New(errors.ErrCodeInvalidValue, "graph has no nodes or edges")
	}
	return g, nil
}

func edgeFromValue(v any) (Edge, error) {
	if pair := items(v); len(pair) == 2 {
		from, ok1 := pair[0].(string)
		to, ok2 := pair[1].(string)
		if ok1 && ok2 {
			return Edge{From: from, To: to}, nil
		}
	}
	if m, ok := stringMap(v); ok {
		from, _ := m["from"].(string)
		to, _ := m["to"].(string)
		if from != "" && to != "" {
			return Edge{From: from, To: to}, nil
		}
	}
	return Edge{}, errors.New(errors.ErrCodeInvalidValue, "graph edge must be a [from, to] pair or a mapping with from and to, got %v", v)
}

// stringMap views string-keyed mappings uniformly.
func stringMap(v any) (map[string]any, bool) {
	switch v := v.(type) {
	case map[string]any:
		return v, true
	case *note.Map:
		out := make(map[string]any, v.Len())
		for pair := v.Oldest(); pair != nil; pair = pair.Next() {
			k, ok := pair.Key.(string)
			if !ok {
				return nil, false
			}
			out[k] = pair.Value
		}
		return out, true
	}
	return nil, false
}

func items(v any) []any {
	switch v := v.(type) {
	case []any:
		return v
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	}
	return nil
}
