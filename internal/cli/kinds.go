package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/kindview/pkg/render"
)

func (c *CLI) kindsCommand() *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "kinds",
		Short: "List the registered kinds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.newSession(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			defs := s.eval.Engine().Registry().Definitions()
			out := cmd.OutOrStdout()
			if plain || !isTerminal(out) {
				for _, def := range defs {
					fmt.Fprintf(out, "%s\t%s\t%s\n", def.Kind, nestLabel(def), optionList(def))
				}
				return nil
			}
			fmt.Fprintln(out, kindsTable(defs))
			return nil
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "tab-separated output")
	return cmd
}

// kindsTable renders defs as a bordered table.
func kindsTable(defs []render.Definition) string {
	rows := make([][]string, 0, len(defs))
	for _, def := range defs {
		rows = append(rows, []string{string(def.Kind), nestLabel(def), optionList(def), def.Description})
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Kind", "Nests", "Options", "Description").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return styleHeader
			case col == 0:
				return lipgloss.NewStyle().Foreground(colorCyan)
			case col == 1 && rows[row][1] == "no":
				return lipgloss.NewStyle().Foreground(colorYellow)
			default:
				return lipgloss.NewStyle().Foreground(colorGray)
			}
		})
	return t.Render()
}

func nestLabel(def render.Definition) string {
	if def.Nestable {
		return "yes"
	}
	return "no"
}

func optionList(def render.Definition) string {
	if def.AnyOptions {
		return "any"
	}
	keys := def.Options.Keys()
	if len(keys) == 0 {
		return "-"
	}
	return strings.Join(keys, ", ")
}
