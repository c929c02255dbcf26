package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// ErrInterrupted is returned by Wait when the user presses ctrl+c.
var ErrInterrupted = errors.New("interrupted")

type doneMsg struct{ err error }

type waitModel struct {
	spinner     spinner.Model
	label       string
	hint        string
	start       time.Time
	run         tea.Cmd
	done        bool
	interrupted bool
}

func newWaitModel(label, hint string, run tea.Cmd) waitModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle
	return waitModel{spinner: s, label: label, hint: hint, start: time.Now(), run: run}
}

func (m waitModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.run)
}

func (m waitModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.interrupted = true
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m waitModel) View() string {
	if m.done || m.interrupted {
		return ""
	}
	elapsed := time.Since(m.start).Truncate(time.Second)
	line := fmt.Sprintf(" %s %s %s\n", m.spinner.View(), m.label, mutedStyle.Render(elapsed.String()))
	if m.hint != "" {
		line += mutedStyle.Render("   "+m.hint) + "\n"
	}
	return line
}

// Wait runs fn while showing a spinner labelled with label and an optional
// hint line. On a non-terminal writer the label is printed once instead.
// If the user interrupts, fn's context is cancelled and Wait returns
// ErrInterrupted once fn has returned.
func Wait(ctx context.Context, out io.Writer, label, hint string, fn func(context.Context) error) error {
	if out == nil {
		out = os.Stdout
	}
	if !isTerminal(out) {
		_, _ = fmt.Fprintln(out, label)
		if hint != "" {
			_, _ = fmt.Fprintln(out, "  "+hint)
		}
		return fn(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	result := make(chan error, 1)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		result <- fn(ctx)
	}()

	run := func() tea.Msg {
		<-finished
		return doneMsg{}
	}
	final, err := tea.NewProgram(newWaitModel(label, hint, run),
		tea.WithOutput(out), tea.WithContext(ctx)).Run()

	if m, ok := final.(waitModel); ok && m.interrupted {
		cancel()
		<-finished
		return ErrInterrupted
	}
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		cancel()
		<-finished
		return err
	}
	<-finished
	return <-result
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isTTY(f.Fd())
}
