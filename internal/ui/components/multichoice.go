package components

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/socratic/internal/ui/theme"
)

var optionLabels = []string{"A", "B", "C", "D"}

// MultiChoice is a multiple-choice selector. The correct option is unknown
// while the quiz is open; the caller marks the chosen option right or
// wrong, and reveals the key once the quiz is graded.
type MultiChoice struct {
	Question string
	Options  []string
	Selected int

	// Chosen is the submitted option, or -1.
	Chosen int

	// Correct is set once Chosen has been judged.
	Correct *bool

	// Key is the revealed correct option, or -1.
	Key int
}

// NewMultiChoice creates a selector with nothing chosen.
func NewMultiChoice(question string, options []string) MultiChoice {
	return MultiChoice{
		Question: question,
		Options:  options,
		Chosen:   -1,
		Key:      -1,
	}
}

// ChoiceMsg is emitted when the student submits an option.
type ChoiceMsg struct {
	Index int
}

// Update handles keyboard navigation and selection. Number keys 1-4 and
// letters a-d submit directly.
func (m MultiChoice) Update(msg tea.Msg) (MultiChoice, tea.Cmd) {
	if m.Chosen >= 0 {
		return m, nil
	}
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key := kmsg.String(); key {
	case "up", "k":
		if m.Selected > 0 {
			m.Selected--
		}
	case "down", "j":
		if m.Selected < len(m.Options)-1 {
			m.Selected++
		}
	case "enter":
		return m.choose(m.Selected)
	case "1", "2", "3", "4":
		return m.choose(int(key[0] - '1'))
	case "a", "b", "c", "d":
		return m.choose(int(key[0] - 'a'))
	}
	return m, nil
}

func (m MultiChoice) choose(i int) (MultiChoice, tea.Cmd) {
	if i < 0 || i >= len(m.Options) {
		return m, nil
	}
	m.Selected = i
	m.Chosen = i
	return m, func() tea.Msg { return ChoiceMsg{Index: i} }
}

// Judge records whether the chosen option was right.
func (m *MultiChoice) Judge(correct bool) {
	m.Correct = &correct
}

// Reveal marks the correct option.
func (m *MultiChoice) Reveal(key int) {
	m.Key = key
}

// View renders the question and its options.
func (m MultiChoice) View() string {
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Text).Bold(true).Render(m.Question))
	b.WriteString("\n\n")

	for i, opt := range m.Options {
		prefix := "  "
		if i == m.Selected && m.Chosen < 0 {
			prefix = "▸ "
		}
		line := fmt.Sprintf("%s%s)  %s", prefix, optionLabels[i], opt)

		style := theme.Unselected
		switch {
		case i == m.Key:
			style = theme.Correct
		case i == m.Chosen && m.Correct != nil && *m.Correct:
			style = theme.Correct
		case i == m.Chosen && m.Correct != nil:
			style = theme.Incorrect
		case i == m.Chosen:
			style = theme.Selected
		case m.Chosen >= 0:
			style = style.Foreground(theme.TextDim)
		case i == m.Selected:
			style = theme.Selected
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}
	return b.String()
}
