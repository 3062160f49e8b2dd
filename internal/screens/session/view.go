package session

import (
	"strings"

	"charm.land/lipgloss/v2"

	sess "github.com/abhisek/socratic/internal/session"
	"github.com/abhisek/socratic/internal/ui/theme"
)

func (c *ChatScreen) View(width, height int) string {
	if c.session == nil {
		if c.errMsg != "" {
			return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center,
				theme.Alert.Render(c.errMsg))
		}
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center,
			c.spinner.View()+" Starting your session...")
	}

	bottom := c.renderBottom(width)
	transcriptHeight := max(height-lipgloss.Height(bottom)-1, 0)
	return c.renderTranscript(width, transcriptHeight) + "\n" + bottom
}

// renderTranscript renders the newest transcript entries that fit in
// height lines.
func (c *ChatScreen) renderTranscript(width, height int) string {
	inner := max(width-6, 20)
	var lines []string
	for _, e := range c.session.Transcript {
		lines = append(lines, strings.Split(renderEntry(e, inner), "\n")...)
		lines = append(lines, "")
	}
	if len(lines) > height {
		lines = lines[len(lines)-height:]
	}
	for len(lines) < height {
		lines = append([]string{""}, lines...)
	}
	return strings.Join(lines, "\n")
}

func renderEntry(e sess.TranscriptEntry, width int) string {
	switch e.Speaker {
	case sess.SpeakerStudent:
		label := theme.StudentLabel.Render("You")
		body := theme.Message.Width(width).Render(e.Message)
		return "  " + label + "\n" + indent(body)
	case sess.SpeakerTutor:
		label := theme.TutorLabel.Render("Tutor")
		body := theme.Message.Width(width).Render(e.Message)
		return "  " + label + "\n" + indent(body)
	default:
		return indent(theme.Hint.Width(width).Render(e.Message))
	}
}

func indent(s string) string {
	return "  " + strings.ReplaceAll(s, "\n", "\n  ")
}

func (c *ChatScreen) renderBottom(width int) string {
	var b strings.Builder
	switch {
	case c.celebrate:
		b.WriteString(theme.Celebrate.Render("  ★ Streak complete! Five solid steps in a row without a hint."))
		b.WriteString("\n")
	case c.errMsg != "":
		b.WriteString(theme.Alert.Render("  " + c.errMsg))
		b.WriteString("\n")
	case c.notice != "":
		b.WriteString(theme.Notice.Render("  " + c.notice))
		b.WriteString("\n")
	}

	prompt := "> " + c.input.View()
	if c.busy {
		prompt = c.spinner.View() + " The tutor is thinking..."
	}
	b.WriteString(lipgloss.NewStyle().
		Width(max(width-2, 0)).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Border).
		Render(prompt))
	return b.String()
}
