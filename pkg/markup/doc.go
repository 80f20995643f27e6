// Package markup defines the retained tree that renderers compose.
//
// A [Node] is either a text leaf, a raw leaf carrying pre-rendered HTML, or a
// tagged element with an attribute mapping and an ordered list of children.
// The tree is not tied to HTML: tags are plain strings and attributes are
// arbitrary values. [Node.WriteHTML] is one serialization of it, and
// [Node.MarshalJSON] is the stable wire shape consumed by external
// renderers:
//
//	["div", {"class": "kind-vector"},
//	  ["div", {"class": "kind-item"}, ["pre", {}, "1"]],
//	  {"raw": "<svg>...</svg>"}]
//
// # Building Trees
//
//	tree := markup.El("table", markup.Class("kind-table"),
//	    markup.El("tr", nil, markup.El("th", nil, markup.Leaf("name"))),
//	)
//	fmt.Println(tree.HTML())
package markup
