package render

import (
	"github.com/matzehuels/kindview/pkg/errors"
	"github.com/matzehuels/kindview/pkg/markup"
	"github.com/matzehuels/kindview/pkg/mime"
	"github.com/matzehuels/kindview/pkg/note"
)

// Artifact is the result of rendering a note.
type Artifact struct {
	// Tree is the markup used when the note is composed into a larger
	// rendering.
	Tree *markup.Node
	// Payload is shown when the note is displayed on its own.
	Payload mime.Payload
}

// Text returns the textual content of the artifact's tree.
func (a Artifact) Text() string {
	if a.Tree == nil {
		return ""
	}
	return a.Tree.TextContent()
}

// complete fills whichever representation a renderer left empty.
func (a Artifact) complete() Artifact {
	switch {
	case a.Tree == nil && a.Payload.IsZero():
		a.Tree = markup.El("span", markup.Class("kind-empty"))
		a.Payload = mime.Text("")
	case a.Tree == nil:
		a.Tree = markup.Leaf(a.Payload.String())
	case a.Payload.IsZero():
		a.Payload = mime.FromTree(a.Tree)
	}
	return a
}

// Failure returns the diagnostic artifact for a rendering failure of kind
// k. The message is the user-facing text of err.
func Failure(k note.Kind, err error) Artifact {
	msg := errors.UserMessage(err)
	return Artifact{
		Tree: markup.El("div", markup.Attrs{
			"class":     "kind-error",
			"data-kind": string(k),
			"data-code": string(errors.GetCode(err)),
		}, markup.Leaf(msg)),
		Payload: mime.Text(msg),
	}
}

// Scope is the nesting context of one render call. It is threaded through
// recursive calls and never stored on a note.
type Scope struct {
	// Nested is true inside any composite rendering.
	Nested bool
	// Depth counts enclosing composites.
	Depth int
	// Deferrals counts enclosing deferred function calls.
	Deferrals int
}

// Child returns the scope for an element of a composite.
func (s Scope) Child() Scope {
	return Scope{Nested: true, Depth: s.Depth + 1, Deferrals: s.Deferrals}
}

// Deferred returns the scope for rendering the result of a deferred call.
func (s Scope) Deferred() Scope {
	s.Deferrals++
	return s
}
