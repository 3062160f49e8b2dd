package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/socratic/internal/ui/theme"
)

// StepDot is the state of one quiz question in a QuizProgress.
type StepDot int

const (
	DotPending StepDot = iota
	DotCurrent
	DotAnswered
	DotCorrect
	DotWrong
)

// QuizProgress renders one dot per question followed by a counter.
type QuizProgress struct {
	Dots []StepDot
}

// View renders the indicator, for example "● ● ◉ ○  2/4".
func (p QuizProgress) View() string {
	parts := make([]string, 0, len(p.Dots))
	done := 0
	for _, d := range p.Dots {
		var glyph string
		style := lipgloss.NewStyle()
		switch d {
		case DotCurrent:
			glyph, style = "◉", style.Foreground(theme.Primary)
		case DotAnswered:
			glyph, style = "●", style.Foreground(theme.Secondary)
			done++
		case DotCorrect:
			glyph, style = "●", style.Foreground(theme.Success)
			done++
		case DotWrong:
			glyph, style = "●", style.Foreground(theme.Error)
			done++
		default:
			glyph, style = "○", style.Foreground(theme.Border)
		}
		parts = append(parts, style.Render(glyph))
	}
	counter := lipgloss.NewStyle().
		Foreground(theme.TextDim).
		Render(fmt.Sprintf("  %d/%d", done, len(p.Dots)))
	return strings.Join(parts, " ") + counter
}
