package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/kindview/internal/notefile"
	"github.com/matzehuels/kindview/pkg/eval"
	"github.com/matzehuels/kindview/pkg/note"
)

func (c *CLI) noteCommand() *cobra.Command {
	var (
		bundle bool
		html   bool
	)
	cmd := &cobra.Command{
		Use:   "note <file.yaml|file.json|->",
		Short: "Render a declarative note",
		Long: `Render a note described in YAML or JSON without evaluating any code.

  kind: markdown
  value: "# Title"

Nested values may carry their own kind with a "$kind" key.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				n   note.Note
				err error
			)
			if args[0] == "-" {
				n, err = notefile.Decode(os.Stdin)
			} else {
				n, err = notefile.Load(args[0])
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			s, err := c.newSession(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			a, err := s.eval.Engine().RenderTop(cmd.Context(), n)
			if err != nil {
				return err
			}
			res := eval.Result{Form: n.Form, Value: n.Value, Artifact: a}
			switch {
			case bundle:
				return writeBundle(out, res)
			case html:
				_, err = fmt.Fprintln(out, a.Tree.HTML())
			default:
				_, err = fmt.Fprintln(out, displayText(res, isTerminal(out)))
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&bundle, "bundle", false, "print the MIME bundle as JSON")
	cmd.Flags().BoolVar(&html, "html", false, "print the HTML tree")
	return cmd
}
