// Package progress shows a live spinner on stderr while the checks run.
package progress

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sznuper/reachable/internal/runner"
)

type startedMsg struct {
	name         string
	index, total int
}

type finishedMsg runner.Result

type doneMsg struct{}

type model struct {
	spinner  spinner.Model
	current  string
	index    int
	total    int
	finished int
	done     bool
}

func newModel() model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return model{spinner: s}
}

func (m model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case startedMsg:
		m.current, m.index, m.total = msg.name, msg.index, msg.total
		return m, nil
	case finishedMsg:
		m.finished++
		return m, tea.Printf("  %s %s", mark(msg.Status), msg.Name)
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) View() string {
	if m.done || m.current == "" {
		return ""
	}
	return fmt.Sprintf("%s [%d/%d] %s\n", m.spinner.View(), m.index+1, m.total, m.current)
}

func mark(s runner.Status) string {
	switch s {
	case runner.StatusPass:
		return "✓"
	case runner.StatusFail:
		return "✗"
	case runner.StatusWarn:
		return "!"
	default:
		return "-"
	}
}

// observer forwards runner events into the program.
type observer struct {
	p *tea.Program
}

func (o observer) Started(step runner.Step, index, total int) {
	o.p.Send(startedMsg{name: step.Name, index: index, total: total})
}

func (o observer) Finished(res runner.Result) {
	o.p.Send(finishedMsg(res))
}

// Run executes work while drawing progress to w. The report work returns is
// passed through unchanged.
func Run(w io.Writer, work func(runner.Observer) *runner.Report) (*runner.Report, error) {
	p := tea.NewProgram(newModel(), tea.WithOutput(w), tea.WithInput(nil))

	result := make(chan *runner.Report, 1)
	go func() {
		report := work(observer{p: p})
		result <- report
		p.Send(doneMsg{})
	}()

	if _, err := p.Run(); err != nil {
		return <-result, fmt.Errorf("progress display: %w", err)
	}
	return <-result, nil
}
