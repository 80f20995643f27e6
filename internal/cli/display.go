package cli

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"github.com/matzehuels/kindview/pkg/eval"
	"github.com/matzehuels/kindview/pkg/mime"
)

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// displayText returns the terminal rendering of res. With styled set,
// markdown payloads are rendered by glamour.
func displayText(res eval.Result, styled bool) string {
	p, ok := res.Display().(mime.Payload)
	if !ok {
		return res.Bundle()[mime.TypeText].(string)
	}
	if styled && p.MIME == mime.TypeMarkdown {
		if out, err := renderMarkdown(string(p.Data)); err == nil {
			return strings.TrimRight(out, "\n")
		}
	}
	return p.String()
}

func renderMarkdown(src string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return "", err
	}
	return r.Render(src)
}

// writeBundle prints the MIME bundle of res as indented JSON.
func writeBundle(w io.Writer, res eval.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res.Bundle())
}
