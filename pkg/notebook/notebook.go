// Package notebook exports a source file as a standalone HTML page: every
// top-level form is evaluated in order and shown with its rendering.
package notebook

import (
	"context"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/kindview/pkg/errors"
	"github.com/matzehuels/kindview/pkg/eval"
	"github.com/matzehuels/kindview/pkg/kernel"
	"github.com/matzehuels/kindview/pkg/markup"
)

// DefaultTitle is the page title when none is set.
const DefaultTitle = "kindview notebook"

const stylesheet = `body { font-family: system-ui, sans-serif; max-width: 60rem; margin: 2rem auto; }
.kind-note { margin-bottom: 1.5rem; }
.kind-source { background: #f6f8fa; padding: .5rem; border-left: 3px solid #d0d7de; }
.kind-error, .kind-eval-error { color: #b42318; }
.kind-nested { color: #6b7280; font-style: italic; }
.kind-table { border-collapse: collapse; }
.kind-table th, .kind-table td { border: 1px solid #d0d7de; padding: .25rem .5rem; }`

// Exporter turns source into notebook pages.
type Exporter struct {
	ev     *eval.Evaluator
	split  kernel.Splitter
	title  string
	logger *log.Logger
}

// Option configures an [Exporter].
type Option func(*Exporter)

// WithTitle sets the page title.
func WithTitle(title string) Option {
	return func(x *Exporter) {
		if title != "" {
			x.title = title
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(x *Exporter) {
		if l != nil {
			x.logger = l
		}
	}
}

// New returns an exporter evaluating with ev and splitting with split.
func New(ev *eval.Evaluator, split kernel.Splitter, opts ...Option) *Exporter {
	x := &Exporter{ev: ev, split: split, title: DefaultTitle, logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Stats counts what an export did.
type Stats struct {
	Forms    int
	Rendered int
	Failed   int
}

// Export evaluates every form of src and returns the page. Evaluation
// errors are shown in the page and do not stop the export; splitting errors
// and cancellation do.
func (x *Exporter) Export(ctx context.Context, src string) (*markup.Node, Stats, error) {
	var stats Stats
	forms, err := x.split.Forms(src)
	if err != nil {
		return nil, stats, err
	}

	sections := make([]*markup.Node, 0, len(forms))
	for i, form := range forms {
		stats.Forms++
		res, err := x.ev.Eval(ctx, form)
		if err != nil {
			if ctx.Err() != nil {
				return nil, stats, ctx.Err()
			}
			stats.Failed++
			x.logger.Warn("form failed", "index", i, "err", err)
			sections = append(sections, section(i, form, errorNode(err)))
			continue
		}
		if res.Passthrough {
			sections = append(sections, section(i, form, nil))
			continue
		}
		stats.Rendered++
		if isHidden(res.Artifact.Tree) {
			sections = append(sections, section(i, form, nil))
			continue
		}
		sections = append(sections, section(i, form, markup.El("div", markup.Class("kind-output"), res.Artifact.Tree)))
	}

	head := []*markup.Node{markup.El("style", nil, markup.Raw(stylesheet))}
	body := append([]*markup.Node{markup.El("h1", nil, markup.Leaf(x.title))}, sections...)
	return markup.Document(x.title, head, body...), stats, nil
}

// Write exports src and writes the page to w.
func (x *Exporter) Write(ctx context.Context, w io.Writer, src string) (Stats, error) {
	page, stats, err := x.Export(ctx, src)
	if err != nil {
		return stats, err
	}
	return stats, page.WriteHTML(w)
}

func section(i int, form string, output *markup.Node) *markup.Node {
	return markup.El("section", markup.Attrs{"class": "kind-note", "data-index": i},
		markup.El("pre", markup.Class("kind-source"), markup.Leaf(form)),
		output,
	)
}

func errorNode(err error) *markup.Node {
	return markup.El("div", markup.Attrs{"class": "kind-eval-error", "data-code": string(errors.GetCode(err))},
		markup.Leaf(errors.UserMessage(err)))
}

func isHidden(tree *markup.Node) bool {
	if tree == nil {
		return true
	}
	class, _ := tree.Attr("class").(string)
	return strings.HasPrefix(class, "kind-hidden")
}
