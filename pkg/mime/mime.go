// Package mime defines the platform payload of a rendered artifact and the
// adapter that turns it into a MIME bundle for transport.
//
// A [Payload] is a MIME type plus bytes: plain text, raster image bytes,
// chart-description documents, markdown and TeX source, or a markup tree
// serialized as an HTML document. [Bundle] produces the Jupyter-style
// mapping of MIME type to data that a display transport sends to clients.
package mime

import (
	"encoding/base64"
	"image"
	"strings"

	"github.com/matzehuels/kindview/pkg/markup"
)

// MIME types produced by the built-in renderers.
const (
	TypeText      = "text/plain"
	TypeHTML      = "text/html"
	TypeMarkdown  = "text/markdown"
	TypeLaTeX     = "text/latex"
	TypePNG       = "image/png"
	TypeJPEG      = "image/jpeg"
	TypeSVG       = "image/svg+xml"
	TypeJSON      = "application/json"
	TypeVegaLite  = "application/vnd.vegalite.v5+json"
	TypeVega      = "application/vnd.vega.v5+json"
	TypePlotly    = "application/vnd.plotly.v1+json"
	typeImagePref = "image/"
)

// Payload is a MIME-typed value ready for direct display.
type Payload struct {
	MIME string `json:"mime"`
	Data []byte `json:"data"`
	// Fallback is the plain-text representation shown by text-only clients.
	// Empty means Data itself when MIME is textual.
	Fallback string `json:"fallback,omitempty"`
}

// Text returns a plain-text payload.
func Text(s string) Payload {
	return Payload{MIME: TypeText, Data: []byte(s)}
}

// HTML returns an HTML fragment payload.
func HTML(s string) Payload {
	return Payload{MIME: TypeHTML, Data: []byte(s)}
}

// Markdown returns a markdown source payload.
func Markdown(s string) Payload {
	return Payload{MIME: TypeMarkdown, Data: []byte(s), Fallback: s}
}

// LaTeX returns a typeset-math source payload.
func LaTeX(s string) Payload {
	return Payload{MIME: TypeLaTeX, Data: []byte(s), Fallback: s}
}

// Image returns a raster (or SVG) image payload with the given subtype,
// e.g. "png" or "svg+xml".
func Image(subtype string, data []byte) Payload {
	return Payload{MIME: typeImagePref + subtype, Data: data, Fallback: "<image/" + subtype + ">"}
}

// Chart returns a structured chart-description document payload.
func Chart(mimeType string, doc []byte) Payload {
	return Payload{MIME: mimeType, Data: doc, Fallback: string(doc)}
}

// FromTree returns the markup tree serialized as an HTML document payload.
func FromTree(tree *markup.Node) Payload {
	return Payload{MIME: TypeHTML, Data: []byte(tree.HTML()), Fallback: tree.TextContent()}
}

// IsImage reports whether p carries image bytes.
func (p Payload) IsImage() bool {
	return strings.HasPrefix(p.MIME, typeImagePref)
}

// IsZero reports whether p is the zero payload.
func (p Payload) IsZero() bool {
	return p.MIME == "" && len(p.Data) == 0
}

// String returns the text shown by text-only clients.
func (p Payload) String() string {
	if p.Fallback != "" {
		return p.Fallback
	}
	if isTextual(p.MIME) {
		return string(p.Data)
	}
	return "<" + p.MIME + ">"
}

// Reference is implemented by handle values (e.g. a named binding) that
// the transport displays by themselves.
type Reference interface {
	Reference() string
}

// Displayable reports whether v is already natively displayable and must
// pass through the render engine untouched: a previously produced payload,
// a decoded raster image, or a reference handle.
func Displayable(v any) bool {
	switch v.(type) {
	case Payload, *Payload, image.Image, Reference:
		return true
	}
	return false
}

// Bundle converts p into a MIME bundle. A "text/plain" entry is always
// present; binary data is base64-encoded.
func Bundle(p Payload) map[string]any {
	bundle := map[string]any{TypeText: p.String()}
	if p.MIME == "" || p.MIME == TypeText {
		return bundle
	}
	if isTextual(p.MIME) {
		bundle[p.MIME] = string(p.Data)
		return bundle
	}
	if strings.HasSuffix(p.MIME, "+json") || p.MIME == TypeJSON {
		bundle[p.MIME] = rawJSON(p.Data)
		return bundle
	}
	bundle[p.MIME] = base64.StdEncoding.EncodeToString(p.Data)
	return bundle
}

func isTextual(m string) bool {
	return strings.HasPrefix(m, "text/") || m == TypeSVG
}
