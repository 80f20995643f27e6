// Package text renders the textual kinds: pprint, code, hidden, markdown,
// tex and html.
package text

import (
	"bytes"
	"context"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/matzehuels/kindview/pkg/errors"
	"github.com/matzehuels/kindview/pkg/kind"
	"github.com/matzehuels/kindview/pkg/markup"
	"github.com/matzehuels/kindview/pkg/mime"
	"github.com/matzehuels/kindview/pkg/note"
	"github.com/matzehuels/kindview/pkg/printer"
	"github.com/matzehuels/kindview/pkg/render"
)

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Definitions returns the textual kind definitions.
func Definitions() []render.Definition {
	return []render.Definition{
		{Kind: kind.PPrint, Description: "printed value", Options: render.Schema{}, Nestable: true, Render: PPrint},
		{Kind: kind.Code, Description: "source code block", Options: render.Schema{"language": render.String()}, Nestable: true, Render: Code},
		{Kind: kind.Hidden, Description: "no output", AnyOptions: true, Nestable: true, Render: Hidden},
		{Kind: kind.Markdown, Description: "markdown document", Options: render.Schema{}, Render: Markdown},
		{Kind: kind.TeX, Description: "typeset math", Options: render.Schema{}, Render: TeX},
		{Kind: kind.HTML, Description: "raw HTML", Options: render.Schema{}, Render: HTML},
	}
}

// PPrint renders the printed representation of the value.
func PPrint(_ context.Context, _ *render.Engine, n note.Note, _ render.Scope) (render.Artifact, error) {
	s := printer.Sprint(n.Value)
	return render.Artifact{
		Tree:    markup.El("pre", markup.Class("kind-pprint"), markup.Leaf(s)),
		Payload: mime.Text(s),
	}, nil
}

// Code renders source text in a code block.
func Code(_ context.Context, _ *render.Engine, n note.Note, _ render.Scope) (render.Artifact, error) {
	src, err := source(n)
	if err != nil {
		return render.Artifact{}, err
	}
	var attrs markup.Attrs
	if lang, ok := n.Option("language"); ok && lang != nil {
		attrs = markup.Class("language-" + lang.(string))
	}
	return render.Artifact{
		Tree:    markup.El("pre", markup.Class("kind-code"), markup.El("code", attrs, markup.Leaf(src))),
		Payload: mime.Text(src),
	}, nil
}

// Hidden renders nothing.
func Hidden(context.Context, *render.Engine, note.Note, render.Scope) (render.Artifact, error) {
	return render.Artifact{
		Tree:    markup.El("span", markup.Attrs{"class": "kind-hidden", "hidden": true}),
		Payload: mime.Text(""),
	}, nil
}

// Markdown renders markdown source to HTML for the tree and keeps the
// source as the payload.
func Markdown(_ context.Context, _ *render.Engine, n note.Note, _ render.Scope) (render.Artifact, error) {
	src, err := source(n)
	if err != nil {
		return render.Artifact{}, err
	}
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return render.Artifact{}, errors.Wrap(errors.ErrCodeInvalidValue, err, "markdown conversion failed")
	}
	return render.Artifact{
		Tree:    markup.El("div", markup.Class("kind-markdown"), markup.Raw(buf.String())),
		Payload: mime.Markdown(src),
	}, nil
}

// TeX renders display math.
func TeX(_ context.Context, _ *render.Engine, n note.Note, _ render.Scope) (render.Artifact, error) {
	src, err := source(n)
	if err != nil {
		return render.Artifact{}, err
	}
	src = "$$" + strings.TrimSpace(src) + "$$"
	return render.Artifact{
		Tree:    markup.El("div", markup.Class("kind-tex"), markup.Leaf(src)),
		Payload: mime.LaTeX(src),
	}, nil
}

// HTML embeds raw HTML. A markup tree value is used as is.
func HTML(_ context.Context, _ *render.Engine, n note.Note, _ render.Scope) (render.Artifact, error) {
	if tree, ok := n.Value.(*markup.Node); ok && tree != nil {
		return render.Artifact{Tree: tree, Payload: mime.FromTree(tree)}, nil
	}
	src, err := source(n)
	if err != nil {
		return render.Artifact{}, err
	}
	return render.Artifact{
		Tree:    markup.El("div", markup.Class("kind-html"), markup.Raw(src)),
		Payload: mime.HTML(src),
	}, nil
}

// source returns the note value as text. Slices of strings are joined by
// newlines.
func source(n note.Note) (string, error) {
	switch v := n.Value.(type) {
	case string:
		return v, nil
	case []string:
		return strings.Join(v, "\n"), nil
	case []any:
		lines := make([]string, len(v))
		for i, e := range v {
			lines[i] = printer.Scalar(e)
		}
		return strings.Join(lines, "\n"), nil
	case []byte:
		return string(v), nil
	}
	return "", errors.New(errors.ErrCodeInvalidValue, "%s expects text, got %T", n.Kind, n.Value)
}
