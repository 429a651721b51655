package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
)

/* ----------------------------------------
	MODEL
---------------------------------------- */

// inputClosedMsg is sent once a non-terminal input is exhausted.
type inputClosedMsg struct{}

// model walks the menu tree. Keys that arrive while an action runs are
// queued and replayed once its outcome is in, so scripted input behaves
// the same as typed input.
type model struct {
	current *Menu
	choice  []rune

	form    *MenuItem
	answers []string
	input   []rune

	busy    bool
	pending []tea.KeyMsg
	closed  bool

	outputs []string
}

func newModel(root *Menu) *model {
	return &model{current: root}
}

func (m *model) Init() tea.Cmd {
	return nil
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		m.pending = append(m.pending, msg)
	case outcomeMsg:
		m.busy = false
		m.report(string(msg))
	case inputClosedMsg:
		m.closed = true
	}
	return m, m.drain()
}

func (m *model) View() string {
	var b strings.Builder

	if n := len(m.outputs); n > 0 {
		b.WriteString(m.outputs[n-1])
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\n%s\n", m.current.Title)
	for i, item := range m.current.Items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, item.Label)
	}
	b.WriteString("\n")

	switch {
	case m.busy:
		b.WriteString("Working...")
	case m.form != nil:
		for i, answer := range m.answers {
			b.WriteString(m.form.Prompts[i] + answer + "\n")
		}
		b.WriteString(m.form.Prompts[len(m.answers)] + string(m.input))
	default:
		b.WriteString("Choose an option: " + string(m.choice))
	}

	return b.String()
}

func (m *model) report(out string) {
	m.outputs = append(m.outputs, out)
}

// drain handles queued keys until one starts an action or quits.
func (m *model) drain() tea.Cmd {
	for !m.busy && len(m.pending) > 0 {
		key := m.pending[0]
		m.pending = m.pending[1:]

		if cmd := m.handleKey(key); cmd != nil {
			return cmd
		}
	}

	if m.closed && !m.busy && len(m.pending) == 0 {
		return tea.Quit
	}
	return nil
}

func (m *model) handleKey(key tea.KeyMsg) tea.Cmd {
	buf := &m.choice
	if m.form != nil {
		buf = &m.input
	}

	switch key.Type {
	case tea.KeyEnter, tea.KeyCtrlJ:
		return m.submit()
	case tea.KeyBackspace, tea.KeyCtrlH:
		if n := len(*buf); n > 0 {
			*buf = (*buf)[:n-1]
		}
	case tea.KeySpace:
		*buf = append(*buf, ' ')
	case tea.KeyRunes:
		*buf = append(*buf, key.Runes...)
	case tea.KeyEsc:
		if m.form != nil {
			m.form, m.answers, m.input = nil, nil, nil
		} else if m.current.Parent != nil {
			m.current, m.choice = m.current.Parent, nil
		}
	}
	return nil
}

func (m *model) submit() tea.Cmd {
	if m.form != nil {
		m.answers = append(m.answers, string(m.input))
		m.input = nil
		if len(m.answers) < len(m.form.Prompts) {
			return nil
		}
		item, answers := m.form, m.answers
		m.form, m.answers = nil, nil
		return m.run(item, answers)
	}

	choice := strings.TrimSpace(string(m.choice))
	m.choice = nil
	if choice == "" {
		return nil
	}

	n, err := strconv.Atoi(choice)
	if err != nil || n < 1 || n > len(m.current.Items) {
		m.report("Invalid option")
		return nil
	}

	item := &m.current.Items[n-1]
	switch {
	case item.Label == quitLabel:
		return tea.Quit
	case item.Submenu != nil:
		m.current = item.Submenu
	case len(item.Prompts) > 0:
		m.form = item
	case item.Action != nil:
		return m.run(item, nil)
	}
	return nil
}

func (m *model) run(item *MenuItem, answers []string) tea.Cmd {
	cmd := item.Action(answers)
	if cmd != nil {
		m.busy = true
	}
	return cmd
}

/* ----------------------------------------
	PROGRAM
---------------------------------------- */

// RunMenu shows the main menu and executes choices until the user quits,
// input ends or ctx is cancelled. Failed operations are reported and the
// menu continues.
func (a *App) RunMenu(ctx context.Context) error {
	_, err := a.runMenu(ctx)
	return err
}

func (a *App) runMenu(ctx context.Context) (*model, error) {
	m := newModel(a.buildMenuTree(ctx))

	in := &closeNotifier{r: a.in}
	var input io.Reader = in
	if f, ok := a.in.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		input = f
	}

	p := tea.NewProgram(m,
		tea.WithContext(ctx),
		tea.WithInput(input),
		tea.WithOutput(a.out),
		tea.WithoutSignalHandler(),
	)
	in.onEOF = func() { p.Send(inputClosedMsg{}) }

	final, err := p.Run()
	if err != nil {
		if ctx.Err() != nil {
			return m, nil
		}
		return m, fmt.Errorf("menu: %w", err)
	}
	return final.(*model), nil
}

// closeNotifier calls onEOF the first time r runs dry. Bytes read together
// with io.EOF are returned first so their keys are delivered before it.
type closeNotifier struct {
	r     io.Reader
	once  sync.Once
	onEOF func()
}

func (c *closeNotifier) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if errors.Is(err, io.EOF) {
		if n > 0 {
			return n, nil
		}
		c.once.Do(c.onEOF)
	}
	return n, err
}
