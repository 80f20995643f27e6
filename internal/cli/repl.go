package cli

import (
	"bytes"
	"context"
	stderrors "errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/kindview/pkg/errors"
	"github.com/matzehuels/kindview/pkg/eval"
)

const (
	promptMain = ">>> "
	promptCont = "... "
)

func (c *CLI) replCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Evaluate forms interactively",
		Long: `Start an interactive loop. Each entered form is evaluated and its
rendering printed. Lines ending in ":" open a block that ends at an empty
line. Up and down recall earlier forms; ctrl+d quits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var printed bytes.Buffer
			s, err := c.newSession(&printed)
			if err != nil {
				return err
			}
			defer s.Close()

			m := newReplModel(cmd.Context(), s.eval, &printed, isTerminal(cmd.OutOrStdout()))
			p := tea.NewProgram(m,
				tea.WithContext(cmd.Context()),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()),
			)
			_, err = p.Run()
			if stderrors.Is(err, tea.ErrProgramKilled) {
				return nil
			}
			return err
		},
	}
}

// evaluator is the part of [eval.Evaluator] the REPL drives.
type evaluator interface {
	Eval(ctx context.Context, form string) (eval.Result, error)
}

type evalDoneMsg struct {
	form string
	res  eval.Result
	err  error
}

// replModel is the bubbletea model of the REPL. Finished entries are
// printed above the prompt and kept in transcript.
type replModel struct {
	ctx     context.Context
	ev      evaluator
	printed *bytes.Buffer
	styled  bool

	input   textinput.Model
	pending []string
	busy    bool

	history    []string
	historyPos int
	transcript []string
}

func newReplModel(ctx context.Context, ev evaluator, printed *bytes.Buffer, styled bool) replModel {
	ti := textinput.New()
	ti.Prompt = promptMain
	ti.PromptStyle = stylePrompt
	ti.CharLimit = 4096
	ti.Focus()
	return replModel{ctx: ctx, ev: ev, printed: printed, styled: styled, input: ti}
}

func (m replModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m replModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD:
			return m, tea.Quit
		case tea.KeyEnter:
			if m.busy {
				return m, nil
			}
			return m.submit()
		case tea.KeyUp:
			m.recall(-1)
			return m, nil
		case tea.KeyDown:
			m.recall(1)
			return m, nil
		}
	case evalDoneMsg:
		m.busy = false
		m.input.Focus()
		entry := m.format(msg)
		m.transcript = append(m.transcript, entry)
		return m, tea.Println(entry)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit handles a completed input line.
func (m replModel) submit() (tea.Model, tea.Cmd) {
	line := m.input.Value()
	m.input.SetValue("")

	if len(m.pending) > 0 {
		if strings.TrimSpace(line) != "" {
			m.pending = append(m.pending, line)
			return m, nil
		}
		line = strings.Join(m.pending, "\n")
		m.pending = nil
		m.input.Prompt = promptMain
	} else {
		switch strings.TrimSpace(line) {
		case "":
			return m, nil
		case ":quit", ":q":
			return m, tea.Quit
		}
		if strings.HasSuffix(strings.TrimSpace(line), ":") {
			m.pending = []string{line}
			m.input.Prompt = promptCont
			return m, nil
		}
	}

	m.history = append(m.history, line)
	m.historyPos = len(m.history)
	m.busy = true
	m.input.Blur()
	return m, m.evalCmd(line)
}

func (m replModel) evalCmd(form string) tea.Cmd {
	return func() tea.Msg {
		res, err := m.ev.Eval(m.ctx, form)
		return evalDoneMsg{form: form, res: res, err: err}
	}
}

// recall moves through earlier forms. Moving past the newest clears the input.
func (m *replModel) recall(delta int) {
	if len(m.history) == 0 {
		return
	}
	m.historyPos = max(0, min(len(m.history), m.historyPos+delta))
	if m.historyPos == len(m.history) {
		m.input.SetValue("")
		return
	}
	m.input.SetValue(m.history[m.historyPos])
	m.input.CursorEnd()
}

// format renders one finished evaluation for the transcript.
func (m replModel) format(msg evalDoneMsg) string {
	var b strings.Builder
	for i, line := range strings.Split(msg.form, "\n") {
		prompt := promptMain
		if i > 0 {
			prompt = promptCont
		}
		b.WriteString(StyleDim.Render(prompt+line) + "\n")
	}
	if m.printed != nil && m.printed.Len() > 0 {
		b.WriteString(strings.TrimRight(m.printed.String(), "\n") + "\n")
		m.printed.Reset()
	}
	switch {
	case msg.err != nil:
		b.WriteString(StyleError.Render(iconError + " " + errors.UserMessage(msg.err)))
	case msg.res.Passthrough && msg.res.Value == nil:
	default:
		b.WriteString(displayText(msg.res, m.styled))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m replModel) View() string {
	if m.busy {
		return StyleDim.Render("evaluating…")
	}
	return m.input.View()
}
