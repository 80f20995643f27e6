package starlark

import (
	"strings"

	"github.com/matzehuels/kindview/pkg/errors"
	"github.com/matzehuels/kindview/pkg/kernel"
)

// Forms splits src into its top-level statements. Each form spans whole
// source lines; statements sharing a line stay in one form, and comment
// lines are attached to the statement that follows them.
func (k *Kernel) Forms(src string) ([]string, error) {
	f, err := k.opts.Parse("<source>", src, 0)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeKernel, err, "split source")
	}
	lines := strings.Split(src, "\n")

	var forms []string
	from, to := 0, 0 // line range [from, to) of the pending form
	flush := func() {
		if form := strings.TrimSpace(strings.Join(lines[from:to], "\n")); form != "" {
			forms = append(forms, form)
		}
		from = to
	}
	for _, stmt := range f.Stmts {
		start, end := stmt.Span()
		if int(start.Line)-1 >= to && to > from {
			flush()
		}
		to = max(to, int(end.Line))
	}
	if to > from {
		flush()
	}
	return forms, nil
}

var _ kernel.Splitter = (*Kernel)(nil)
