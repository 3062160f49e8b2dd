package summary

import (
	"fmt"
	"slices"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/socratic/internal/router"
	"github.com/abhisek/socratic/internal/screen"
	"github.com/abhisek/socratic/internal/tutor"
	"github.com/abhisek/socratic/internal/ui/layout"
	"github.com/abhisek/socratic/internal/ui/theme"
)

// SummaryScreen displays the per-problem summary of a session.
type SummaryScreen struct {
	summary *tutor.Summary
}

var _ screen.Screen = (*SummaryScreen)(nil)
var _ screen.KeyHintProvider = (*SummaryScreen)(nil)

// New creates a new SummaryScreen.
func New(summary *tutor.Summary) *SummaryScreen {
	return &SummaryScreen{summary: summary}
}

func (s *SummaryScreen) Init() tea.Cmd {
	return nil
}

func (s *SummaryScreen) Title() string {
	return "Session Summary"
}

func (s *SummaryScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "Back"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *SummaryScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if kmsg, ok := msg.(tea.KeyMsg); ok {
		switch kmsg.String() {
		case "enter", "esc":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		}
	}
	return s, nil
}

func (s *SummaryScreen) View(width, height int) string {
	sum := s.summary
	if sum == nil {
		return ""
	}

	center := func(style lipgloss.Style, text string) string {
		return lipgloss.PlaceHorizontal(width, lipgloss.Center, style.Render(text))
	}

	var b strings.Builder
	b.WriteString(center(theme.Title, "Session "+sum.Code))
	b.WriteString("\n\n")

	stats := fmt.Sprintf("Problems: %d        Hints: %d        Streaks: %d",
		len(sum.Problems), sum.TotalHints, sum.StreakCompletions)
	b.WriteString(center(lipgloss.NewStyle().Foreground(theme.Text), stats))
	b.WriteString("\n\n")

	divider := lipgloss.NewStyle().Foreground(theme.Border).Render(
		strings.Repeat("─", max(min(width-8, 60), 0)))
	b.WriteString(center(lipgloss.NewStyle().Foreground(theme.TextDim), "Problems"))
	b.WriteString("\n")
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, divider))
	b.WriteString("\n\n")

	if len(sum.Problems) == 0 {
		b.WriteString(center(theme.Hint, "No problems yet."))
		b.WriteString("\n")
	}
	for _, p := range sum.Problems {
		b.WriteString(center(problemStyle(sum, p), problemLine(p)))
		b.WriteString("\n")
	}
	return b.String()
}

func problemLine(p tutor.ProblemSummary) string {
	text := p.Text
	if r := []rune(text); len(r) > 28 {
		text = string(r[:27]) + "…"
	}
	quiz := "quiz -"
	if p.MCScore != nil {
		quiz = fmt.Sprintf("quiz %.0f%%", *p.MCScore*100)
	}
	return fmt.Sprintf("%-28s  %2d turns  %2d hints  stuck %d  %s",
		text, p.StudentTurns, p.HintsUsed, p.MaxStuckTurns, quiz)
}

func problemStyle(sum *tutor.Summary, p tutor.ProblemSummary) lipgloss.Style {
	style := lipgloss.NewStyle().Foreground(theme.Text)
	switch {
	case slices.Contains(sum.FlaggedProblems, p.ID):
		return style.Foreground(theme.Error)
	case p.Completed:
		return style.Foreground(theme.Success)
	}
	return style
}
