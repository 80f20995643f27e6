package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func (c *CLI) evalCommand() *cobra.Command {
	var (
		bundle bool
		html   bool
	)
	cmd := &cobra.Command{
		Use:   "eval <form|->",
		Short: "Evaluate a form and print its rendering",
		Long: `Evaluate a Starlark form and print the rendered value.

Markdown output is styled when stdout is a terminal. Use --bundle for the
MIME bundle as JSON or --html for the composed HTML tree.`,
		Example: `  kindview eval 'md("# Hello")'
  kindview eval --bundle 'vega_lite({"mark": "bar"})'
  echo '[1, md("*two*")]' | kindview eval --html -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if bundle && html {
				return fmt.Errorf("--bundle and --html are mutually exclusive")
			}
			form := args[0]
			if form == "-" {
				src, err := readSource("-")
				if err != nil {
					return err
				}
				form = strings.TrimSpace(src)
			}

			out := cmd.OutOrStdout()
			s, err := c.newSession(out)
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := s.eval.Eval(cmd.Context(), form)
			if err != nil {
				return err
			}
			switch {
			case bundle:
				return writeBundle(out, res)
			case html:
				if res.Passthrough {
					return fmt.Errorf("%s produced %T, which has no markup", form, res.Value)
				}
				_, err = fmt.Fprintln(out, res.Artifact.Tree.HTML())
				return err
			default:
				_, err = fmt.Fprintln(out, displayText(res, isTerminal(out)))
				return err
			}
		},
	}
	cmd.Flags().BoolVar(&bundle, "bundle", false, "print the MIME bundle as JSON")
	cmd.Flags().BoolVar(&html, "html", false, "print the HTML tree")
	return cmd
}
