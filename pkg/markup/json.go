package markup

import (
	"bytes"
	"encoding/json"
)

// MarshalJSON encodes n in its wire shape: text leaves as strings, raw
// leaves as {"raw": html}, elements as [tag, attrs, children...]. Strings
// are HTML-escaped the way encoding/json escapes them.
func (n *Node) MarshalJSON() ([]byte, error) {
	if n == nil {
		return []byte("null"), nil
	}
	switch n.Type {
	case TextNode:
		return json.Marshal(n.Text)
	case RawNode:
		return json.Marshal(map[string]string{"raw": n.Text})
	}

	var buf bytes.Buffer
	buf.WriteByte('[')
	tag, err := json.Marshal(n.Tag)
	if err != nil {
		return nil, err
	}
	buf.Write(tag)
	buf.WriteByte(',')

	attrs := n.Attrs
	if attrs == nil {
		attrs = Attrs{}
	}
	// encoding/json sorts map keys, which keeps the encoding stable.
	enc, err := json.Marshal(map[string]any(attrs))
	if err != nil {
		return nil, err
	}
	buf.Write(enc)

	for _, c := range n.Children {
		buf.WriteByte(',')
		cb, err := c.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(cb)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}
