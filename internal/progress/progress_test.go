package progress

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sznuper/reachable/internal/runner"
)

func update(t *testing.T, m tea.Model, msg tea.Msg) (model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	mm, ok := next.(model)
	if !ok {
		t.Fatalf("Update returned %T, want model", next)
	}
	return mm, cmd
}

func TestModel_ShowsCurrentStep(t *testing.T) {
	m := newModel()
	if got := m.View(); got != "" {
		t.Errorf("initial view = %q, want empty", got)
	}

	m, _ = update(t, m, startedMsg{name: "DNS lair.example.net", index: 4, total: 15})
	view := m.View()
	if !strings.Contains(view, "[5/15] DNS lair.example.net") {
		t.Errorf("view = %q, want step counter and name", view)
	}
}

func TestModel_FinishedPrints(t *testing.T) {
	m := newModel()
	m, cmd := update(t, m, finishedMsg(runner.Result{Name: "Port 443 listening", Status: runner.StatusPass}))
	if cmd == nil {
		t.Fatal("expected a print command for a finished step")
	}
	if m.finished != 1 {
		t.Errorf("finished = %d, want 1", m.finished)
	}
}

func TestModel_DoneQuits(t *testing.T) {
	m := newModel()
	m, _ = update(t, m, startedMsg{name: "x", total: 1})
	m, cmd := update(t, m, doneMsg{})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("done did not produce tea.QuitMsg")
	}
	if m.View() != "" {
		t.Errorf("view after done = %q, want empty", m.View())
	}
}

func TestMark(t *testing.T) {
	tests := map[runner.Status]string{
		runner.StatusPass:    "✓",
		runner.StatusFail:    "✗",
		runner.StatusWarn:    "!",
		runner.StatusSkipped: "-",
	}
	for status, want := range tests {
		if got := mark(status); got != want {
			t.Errorf("mark(%s) = %q, want %q", status, got, want)
		}
	}
}
