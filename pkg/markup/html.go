package markup

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// WriteHTML serializes n as HTML to w. Attributes are written in name order.
// A root "html" element is preceded by a doctype.
func (n *Node) WriteHTML(w io.Writer) error {
	if n == nil {
		return nil
	}
	if n.Type == ElementNode && n.Tag == "html" {
		if _, err := io.WriteString(w, "<!DOCTYPE html>\n"); err != nil {
			return err
		}
	}
	return html.Render(w, toHTML(n))
}

// HTML returns the HTML serialization of n.
// Serialization errors (void elements with children) fall back to the
// escaped text content.
func (n *Node) HTML() string {
	var buf bytes.Buffer
	if err := n.WriteHTML(&buf); err != nil {
		return html.EscapeString(n.TextContent())
	}
	return buf.String()
}

func toHTML(n *Node) *html.Node {
	switch n.Type {
	case TextNode:
		return &html.Node{Type: html.TextNode, Data: n.Text}
	case RawNode:
		return &html.Node{Type: html.RawNode, Data: n.Text}
	}

	el := &html.Node{
		Type:     html.ElementNode,
		Data:     n.Tag,
		DataAtom: atom.Lookup([]byte(n.Tag)),
	}
	for _, key := range n.Attrs.sortedKeys() {
		val, ok := attrValue(n.Attrs[key])
		if !ok {
			continue
		}
		el.Attr = append(el.Attr, html.Attribute{Key: key, Val: val})
	}
	for _, c := range n.Children {
		el.AppendChild(toHTML(c))
	}
	return el
}

// attrValue converts an attribute value to its HTML string. False and nil
// values drop the attribute.
func attrValue(v any) (string, bool) {
	switch v := v.(type) {
	case nil:
		return "", false
	case bool:
		return "", v
	case string:
		return v, true
	case []string:
		return strings.Join(v, " "), true
	case map[string]string:
		return styleString(v), true
	case map[string]any:
		m := make(map[string]string, len(v))
		for k, val := range v {
			m[k] = fmt.Sprint(val)
		}
		return styleString(m), true
	default:
		return fmt.Sprint(v), true
	}
}

// styleString renders a style mapping as "k: v; k2: v2" in key order.
func styleString(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + m[k]
	}
	return strings.Join(parts, "; ")
}

func attrString(v any) string {
	s, _ := attrValue(v)
	return s
}

// Document wraps body in a complete HTML page with the given title.
func Document(title string, head []*Node, body ...*Node) *Node {
	headChildren := []*Node{
		El("meta", Attrs{"charset": "utf-8"}),
		El("title", nil, Leaf(title)),
	}
	headChildren = append(headChildren, head...)
	return El("html", nil,
		El("head", nil, headChildren...),
		El("body", nil, body...),
	)
}
