package render

import (
	"fmt"

	"github.com/matzehuels/kindview/pkg/markup"
	"github.com/matzehuels/kindview/pkg/note"
)

// NestedMessage returns the diagnostic text for rendering kind k inside a
// composite in environment env.
func NestedMessage(k note.Kind, env string) string {
	return fmt.Sprintf("nested rendering of %s not possible in %s", k, env)
}

// Guard renders n with compute. At top level the artifact is returned
// unchanged. Nested, the payload of the computed artifact is kept and its
// tree is replaced by the nesting diagnostic.
func Guard(env string, n note.Note, s Scope, compute func() (Artifact, error)) (Artifact, error) {
	a, err := compute()
	if err != nil || !s.Nested {
		return a, err
	}
	return Artifact{
		Tree: markup.El("div", markup.Attrs{
			"class":     "kind-nested",
			"data-kind": string(n.Kind),
		}, markup.Leaf(NestedMessage(n.Kind, env))),
		Payload: a.complete().Payload,
	}, nil
}
