package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/kindview/pkg/notebook"
)

func (c *CLI) renderCommand() *cobra.Command {
	var (
		output string
		title  string
	)
	cmd := &cobra.Command{
		Use:   "render <script.star|->",
		Short: "Export a script as an HTML notebook",
		Long: `Evaluate every top-level form of a Starlark script and write an HTML
page showing each form with its rendering.

Forms that fail are shown with their error and the export continues.`,
		Example: `  kindview render analysis.star
  kindview render -o report.html --title "Q3 report" analysis.star
  kindview render -o - analysis.star > out.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readSource(args[0])
			if err != nil {
				return err
			}
			if output == "" {
				output = defaultOutput(args[0])
			}
			if title == "" && args[0] != "-" {
				title = filepath.Base(args[0])
			}

			s, err := c.newSession(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			opts := []notebook.Option{notebook.WithLogger(c.Logger)}
			if title != "" {
				opts = append(opts, notebook.WithTitle(title))
			}
			x := notebook.New(s.eval, s.kernel, opts...)

			if output == "-" {
				_, err := x.Write(cmd.Context(), cmd.OutOrStdout(), src)
				return err
			}

			f, err := os.Create(output)
			if err != nil {
				return err
			}
			prog := newProgress(c.Logger)
			var sp *spinner
			if isTerminal(cmd.ErrOrStderr()) {
				sp = newSpinner(cmd.Context(), cmd.ErrOrStderr(), "Rendering "+args[0])
				sp.Start()
			}
			stats, err := x.Write(cmd.Context(), f, src)
			if sp != nil {
				sp.Stop()
			}
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				os.Remove(output)
				return err
			}
			prog.done("exported notebook", "forms", stats.Forms)

			out := cmd.OutOrStdout()
			if stats.Failed > 0 {
				printWarning(out, "Exported with %d failing form(s)", stats.Failed)
			} else {
				printSuccess(out, "Exported %s", args[0])
			}
			printFile(out, output)
			printStats(out, stats)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, - for stdout (default <script>.html)")
	cmd.Flags().StringVar(&title, "title", "", "page title (default script name)")
	return cmd
}

func defaultOutput(script string) string {
	if script == "-" {
		return "notebook.html"
	}
	return strings.TrimSuffix(script, filepath.Ext(script)) + ".html"
}
