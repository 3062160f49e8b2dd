// Package theme holds the colors and shared styles of the chat client.
package theme

import (
	"charm.land/lipgloss/v2"
)

var (
	Primary   = lipgloss.Color("#6366F1") // indigo, tutor
	Secondary = lipgloss.Color("#0EA5E9") // sky, student
	Accent    = lipgloss.Color("#F59E0B") // amber, streak
	Success   = lipgloss.Color("#10B981")
	Error     = lipgloss.Color("#EF4444")
	Text      = lipgloss.Color("#F1F5F9")
	TextDim   = lipgloss.Color("#94A3B8")
	BgCard    = lipgloss.Color("#1E293B")
	Border    = lipgloss.Color("#475569")
)

var (
	Title = lipgloss.NewStyle().Bold(true).Foreground(Primary)
	Hint  = lipgloss.NewStyle().Foreground(TextDim).Italic(true)
	Card  = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(1, 2)
)

// Transcript speakers.
var (
	TutorLabel   = lipgloss.NewStyle().Foreground(Primary).Bold(true)
	StudentLabel = lipgloss.NewStyle().Foreground(Secondary).Bold(true)
	Message      = lipgloss.NewStyle().Foreground(Text)
	Notice       = lipgloss.NewStyle().Foreground(TextDim)
	Alert        = lipgloss.NewStyle().Foreground(Error)
	Celebrate    = lipgloss.NewStyle().Foreground(Accent).Bold(true)
)

// Answer states for quiz options.
var (
	Selected   = lipgloss.NewStyle().Foreground(Primary).Bold(true)
	Unselected = lipgloss.NewStyle().Foreground(Text)
	Correct    = lipgloss.NewStyle().Foreground(Success).Bold(true)
	Incorrect  = lipgloss.NewStyle().Foreground(Error).Bold(true)
)
