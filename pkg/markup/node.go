package markup

import (
	"maps"
	"slices"
	"strings"
)

// NodeType distinguishes the variants of a [Node].
type NodeType int

const (
	// TextNode is a leaf holding plain text.
	TextNode NodeType = iota
	// ElementNode is a tagged container with attributes and children.
	ElementNode
	// RawNode is a leaf holding pre-rendered HTML that is emitted verbatim.
	RawNode
)

// Attrs is the attribute mapping of an element.
type Attrs map[string]any

// Class returns an attribute mapping with only the class set.
func Class(name string) Attrs {
	return Attrs{"class": name}
}

// Node is one node of a markup tree.
type Node struct {
	Type     NodeType
	Tag      string
	Attrs    Attrs
	Children []*Node
	Text     string
}

// Leaf returns a text leaf.
func Leaf(text string) *Node {
	return &Node{Type: TextNode, Text: text}
}

// Raw returns a leaf holding pre-rendered HTML.
func Raw(html string) *Node {
	return &Node{Type: RawNode, Text: html}
}

// El returns an element node. Nil children are dropped.
func El(tag string, attrs Attrs, children ...*Node) *Node {
	n := &Node{Type: ElementNode, Tag: tag, Attrs: attrs}
	for _, c := range children {
		if c != nil {
			n.Children = append(n.Children, c)
		}
	}
	return n
}

// IsLeaf reports whether n has no element structure.
func (n *Node) IsLeaf() bool {
	return n == nil || n.Type != ElementNode
}

// Attr returns the attribute value for key, or nil.
func (n *Node) Attr(key string) any {
	if n == nil || n.Attrs == nil {
		return nil
	}
	return n.Attrs[key]
}

// TextContent returns the concatenated text content of n in document order.
// Raw leaves contribute their markup as-is.
func (n *Node) TextContent() string {
	var b strings.Builder
	n.Walk(func(c *Node) bool {
		if c.Type != ElementNode {
			b.WriteString(c.Text)
		}
		return true
	})
	return b.String()
}

// Walk visits n and its descendants depth-first. Returning false from fn
// skips the children of the visited node.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Find returns all descendants (including n) whose class attribute is class.
func (n *Node) Find(class string) []*Node {
	var out []*Node
	n.Walk(func(c *Node) bool {
		if c.Type == ElementNode && attrString(c.Attr("class")) == class {
			out = append(out, c)
		}
		return true
	})
	return out
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{Type: n.Type, Tag: n.Tag, Text: n.Text}
	if n.Attrs != nil {
		c.Attrs = maps.Clone(n.Attrs)
	}
	if len(n.Children) > 0 {
		c.Children = make([]*Node, len(n.Children))
		for i, ch := range n.Children {
			c.Children[i] = ch.Clone()
		}
	}
	return c
}

// sortedKeys returns the attribute names of a in lexical order.
func (a Attrs) sortedKeys() []string {
	return slices.Sorted(maps.Keys(a))
}
