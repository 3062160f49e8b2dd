package app

import (
	"context"
	"fmt"
	"os"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/socratic/internal/router"
	"github.com/abhisek/socratic/internal/screen"
	"github.com/abhisek/socratic/internal/screens/session"
	"github.com/abhisek/socratic/internal/screens/welcome"
	"github.com/abhisek/socratic/internal/ui/layout"
)

// Options configures the terminal client.
type Options struct {
	Service session.Tutor

	// Code resumes an existing session and skips the welcome screen.
	Code string
}

// sessionScreen is implemented by screens that belong to a session and
// feed the header.
type sessionScreen interface {
	Code() string
	Streak() layout.Streak
}

// AppModel is the root Bubble Tea model.
type AppModel struct {
	router *router.Router
	width  int
	height int

	// last session-bound screen seen, for the header
	current sessionScreen
}

// newAppModel creates the root model. Without a code the student lands on
// the welcome screen.
func newAppModel(ctx context.Context, opts Options) AppModel {
	chat := func(code string) screen.Screen {
		return session.New(ctx, opts.Service, code)
	}
	var initial screen.Screen
	if opts.Code != "" {
		initial = chat(opts.Code)
	} else {
		initial = welcome.New(chat)
	}
	return AppModel{router: router.New(initial)}
}

func (m AppModel) Init() tea.Cmd {
	return m.router.Active().Init()
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			if m.router.Depth() > 1 {
				return m, func() tea.Msg { return router.PopScreenMsg{} }
			}
		}
	}

	cmd := m.router.Update(msg)
	if s, ok := m.router.Active().(sessionScreen); ok {
		m.current = s
	}
	return m, cmd
}

func (m AppModel) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true
	if m.width == 0 || m.height == 0 {
		return v
	}
	v.SetContent(m.render())
	return v
}

// render draws the header, the active screen and the footer.
func (m AppModel) render() string {
	if layout.IsTooSmall(m.width, m.height) {
		return layout.RenderMinSizeMessage(m.width, m.height)
	}

	active := m.router.Active()
	title := ""
	if active != nil {
		title = active.Title()
	}

	var (
		code   string
		streak layout.Streak
	)
	if m.current != nil {
		code, streak = m.current.Code(), m.current.Streak()
	}
	header := layout.RenderHeader(title, code, streak, m.width)

	var footerHints []layout.KeyHint
	if p, ok := active.(screen.KeyHintProvider); ok {
		footerHints = p.KeyHints()
	}
	if m.router.Depth() > 1 {
		footerHints = append(footerHints, layout.KeyHint{Key: "Esc", Description: "Back"})
	}
	footer := layout.RenderFooter(footerHints, m.width)

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := max(m.height-headerHeight-footerHeight, 0)

	content := m.router.View(m.width, contentHeight)
	return layout.RenderFrame(header, content, footer, m.width, m.height)
}

// Run starts the Bubble Tea program and blocks until the student quits.
func Run(ctx context.Context, opts Options) error {
	p := tea.NewProgram(newAppModel(ctx, opts), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error running program:", err)
		return err
	}
	return nil
}
