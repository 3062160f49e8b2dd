package welcome

import (
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/socratic/internal/router"
	"github.com/abhisek/socratic/internal/screen"
	"github.com/abhisek/socratic/internal/ui/components"
	"github.com/abhisek/socratic/internal/ui/layout"
	"github.com/abhisek/socratic/internal/ui/theme"
)

const (
	tickInterval = 100 * time.Millisecond
	menuAfter    = 800 * time.Millisecond
	codeLength   = 6
)

type tickMsg time.Time

// ChatFactory builds the chat screen. An empty code starts a new session.
type ChatFactory func(code string) screen.Screen

// WelcomeScreen shows the banner, then lets the student start a new
// session or resume one by code.
type WelcomeScreen struct {
	chat         ChatFactory
	elapsed      time.Duration
	menu         components.Menu
	code         components.TextInput
	enteringCode bool
	errMsg       string
	transitioned bool
}

var _ screen.Screen = (*WelcomeScreen)(nil)
var _ screen.KeyHintProvider = (*WelcomeScreen)(nil)

// New creates a WelcomeScreen that hands off to the screen built by chat.
func New(chat ChatFactory) *WelcomeScreen {
	w := &WelcomeScreen{chat: chat}
	w.code = components.NewTextInput("ABC234", codeLength)
	w.code.Upper = true
	w.menu = components.NewMenu([]components.MenuItem{
		{Label: "Start a new session", Action: func() tea.Cmd { return w.transition("") }},
		{Label: "Resume with a code", Action: func() tea.Cmd {
			w.enteringCode = true
			return w.code.Init()
		}},
		{Label: "Quit", Action: func() tea.Cmd { return tea.Quit }},
	})
	return w
}

func (w *WelcomeScreen) Title() string {
	return ""
}

func (w *WelcomeScreen) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (w *WelcomeScreen) KeyHints() []layout.KeyHint {
	if w.enteringCode {
		return []layout.KeyHint{
			{Key: "Enter", Description: "Resume"},
			{Key: "Esc", Description: "Back"},
		}
	}
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Select"},
	}
}

func (w *WelcomeScreen) menuVisible() bool {
	return w.elapsed >= menuAfter
}

func (w *WelcomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if w.menuVisible() {
			return w, nil
		}
		w.elapsed += tickInterval
		return w, tick()

	case tea.KeyPressMsg:
		// A keypress during the banner skips straight to the menu.
		if !w.menuVisible() {
			w.elapsed = menuAfter
			return w, nil
		}
		if w.enteringCode {
			return w, w.updateCode(msg)
		}
		var cmd tea.Cmd
		w.menu, cmd = w.menu.Update(msg)
		return w, cmd
	}

	if w.enteringCode {
		var cmd tea.Cmd
		w.code, cmd = w.code.Update(msg)
		return w, cmd
	}
	return w, nil
}

func (w *WelcomeScreen) updateCode(msg tea.KeyPressMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		w.enteringCode = false
		w.errMsg = ""
		w.code.Reset()
		return nil
	case "enter":
		code := w.code.Value()
		if len(code) != codeLength {
			w.errMsg = "Session codes are 6 characters long."
			return nil
		}
		return w.transition(code)
	}
	w.errMsg = ""
	var cmd tea.Cmd
	w.code, cmd = w.code.Update(msg)
	return cmd
}

func (w *WelcomeScreen) transition(code string) tea.Cmd {
	if w.transitioned {
		return nil
	}
	w.transitioned = true
	chat := w.chat(code)
	return func() tea.Msg {
		return router.ReplaceScreenMsg{Screen: chat}
	}
}

func (w *WelcomeScreen) View(width, height int) string {
	sections := []string{
		RenderBanner(width),
		"",
		lipgloss.NewStyle().Foreground(theme.Text).Bold(true).
			Render("Let's think it through together."),
	}

	if w.menuVisible() {
		sections = append(sections, "")
		if w.enteringCode {
			sections = append(sections,
				lipgloss.NewStyle().Foreground(theme.TextDim).Render("Enter your session code"),
				lipgloss.NewStyle().
					Border(lipgloss.RoundedBorder()).
					BorderForeground(theme.Border).
					Padding(0, 1).
					Render(w.code.View()))
		} else {
			sections = append(sections, w.menu.View())
		}
		if w.errMsg != "" {
			sections = append(sections, theme.Incorrect.Render(w.errMsg))
		}
	}

	content := strings.Join(sections, "\n")
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}
