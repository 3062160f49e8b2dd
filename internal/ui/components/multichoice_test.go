package components

import (
	"testing"

	tea "charm.land/bubbletea/v2"
)

func TestMultiChoiceNavigateAndSubmit(t *testing.T) {
	m := NewMultiChoice("Why add the ones first?", []string{"a", "b", "c", "d"})

	m, _ = m.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	m, _ = m.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	m, cmd := m.Update(tea.KeyPressMsg{Code: tea.KeyEnter})

	if m.Chosen != 2 {
		t.Fatalf("Chosen = %d, want 2", m.Chosen)
	}
	if cmd == nil {
		t.Fatal("expected a ChoiceMsg command")
	}
	if got := cmd().(ChoiceMsg); got.Index != 2 {
		t.Errorf("ChoiceMsg.Index = %d, want 2", got.Index)
	}

	// locked after submission
	m, cmd = m.Update(tea.KeyPressMsg{Code: tea.KeyUp})
	if cmd != nil || m.Selected != 2 {
		t.Error("selector should ignore keys once an option is chosen")
	}
}

func TestMultiChoiceNumberKey(t *testing.T) {
	m := NewMultiChoice("q", []string{"a", "b", "c", "d"})
	m, cmd := m.Update(tea.KeyPressMsg{Code: '4', Text: "4"})
	if m.Chosen != 3 || cmd == nil {
		t.Errorf("Chosen = %d, want 3", m.Chosen)
	}
}

func TestMultiChoiceJudgeAndReveal(t *testing.T) {
	m := NewMultiChoice("q", []string{"a", "b", "c", "d"})
	m, _ = m.Update(tea.KeyPressMsg{Code: '1', Text: "1"})
	m.Judge(false)
	m.Reveal(2)

	if m.Correct == nil || *m.Correct {
		t.Error("expected the choice to be judged wrong")
	}
	if m.Key != 2 {
		t.Errorf("Key = %d, want 2", m.Key)
	}
	if m.View() == "" {
		t.Error("expected a rendered view")
	}
}
