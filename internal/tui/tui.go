package tui

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Work is the blocking call shown behind the spinner.
type Work func(ctx context.Context) (string, error)

// --- Messages ---
type doneMsg struct {
	text string
	err  error
}

// --- Model ---
type Model struct {
	spinner spinner.Model
	label   string
	work    Work
	ctx     context.Context
	cancel  context.CancelFunc
	state   state
	text    string
	err     error
}

type state int

const (
	stateWorking state = iota
	stateDone
	stateCanceled
)

func New(ctx context.Context, label string, work Work) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	ctx, cancel := context.WithCancel(ctx)
	return Model{
		spinner: s,
		label:   label,
		work:    work,
		ctx:     ctx,
		cancel:  cancel,
		state:   stateWorking,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.run)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "ctrl+c":
			m.cancel()
			m.state = stateCanceled
			m.err = context.Canceled
			return m, tea.Quit
		}

	case doneMsg:
		m.cancel()
		m.state = stateDone
		m.text, m.err = msg.text, msg.err
		return m, tea.Quit

	default:
		var cmd tea.Cmd
		if m.state == stateWorking {
			m.spinner, cmd = m.spinner.Update(msg)
		}
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	if m.state != stateWorking {
		return ""
	}
	return fmt.Sprintf("%s %s", m.spinner.View(), m.label)
}

// Result returns the outcome once the program has quit.
func (m Model) Result() (string, error) {
	return m.text, m.err
}

func (m Model) run() tea.Msg {
	text, err := m.work(m.ctx)
	return doneMsg{text: text, err: err}
}

// Run executes work while a spinner labelled label is drawn on out. With
// animate false the label is printed once and work runs directly. Ctrl+C
// cancels the work and returns context.Canceled.
func Run(ctx context.Context, out io.Writer, label string, animate bool, work Work) (string, error) {
	if !animate {
		fmt.Fprintln(out, label)
		return work(ctx)
	}

	p := tea.NewProgram(New(ctx, label, work), tea.WithOutput(out))
	final, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("spinner failed: %w", err)
	}
	return final.(Model).Result()
}
