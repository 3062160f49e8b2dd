package components

import (
	"testing"

	tea "charm.land/bubbletea/v2"
)

type picked string

func TestMenuSkipsDisabledItems(t *testing.T) {
	m := NewMenu([]MenuItem{
		{Label: "Resume", Disabled: true},
		{Label: "New session", Action: func() tea.Cmd { return func() tea.Msg { return picked("new") } }},
		{Label: "Hidden", Disabled: true},
		{Label: "Quit", Action: func() tea.Cmd { return func() tea.Msg { return picked("quit") } }},
	})
	if m.Selected != 1 {
		t.Fatalf("Selected = %d, want first enabled item", m.Selected)
	}

	m, _ = m.Update(tea.KeyPressMsg{Code: tea.KeyUp})
	if m.Selected != 1 {
		t.Errorf("up past a disabled head should stay put, got %d", m.Selected)
	}

	m, _ = m.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	if m.Selected != 3 {
		t.Fatalf("down should skip disabled items, got %d", m.Selected)
	}

	_, cmd := m.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	if cmd == nil || cmd() != picked("quit") {
		t.Error("enter should run the selected action")
	}
}

func TestQuizProgressCounts(t *testing.T) {
	p := QuizProgress{Dots: []StepDot{DotCorrect, DotWrong, DotCurrent}}
	if v := p.View(); v == "" {
		t.Error("expected output")
	}
}
