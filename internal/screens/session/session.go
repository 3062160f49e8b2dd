// Package session is the chat screen: the student submits a problem and
// works through it with the tutor one reply at a time.
package session

import (
	"context"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/socratic/internal/router"
	"github.com/abhisek/socratic/internal/screen"
	"github.com/abhisek/socratic/internal/screens/quiz"
	"github.com/abhisek/socratic/internal/screens/summary"
	sess "github.com/abhisek/socratic/internal/session"
	"github.com/abhisek/socratic/internal/tutor"
	"github.com/abhisek/socratic/internal/ui/components"
	"github.com/abhisek/socratic/internal/ui/layout"
)

// Tutor is the part of tutor.Service the chat screen drives.
type Tutor interface {
	quiz.Answerer
	StartSession(ctx context.Context) (*sess.Session, error)
	GetSession(ctx context.Context, code string) (*sess.Session, error)
	SubmitProblem(ctx context.Context, code string, draft sess.Draft) (*sess.Session, *sess.Problem, error)
	Respond(ctx context.Context, code, response string) (*tutor.TurnResult, error)
	CompleteProblem(ctx context.Context, code string, problemID int) (*sess.Session, error)
}

const (
	problemPlaceholder = "Type a math problem to work on..."
	replyPlaceholder   = "Type your answer or your next step..."
)

// ChatScreen implements screen.Screen for one tutoring session.
type ChatScreen struct {
	ctx  context.Context
	svc  Tutor
	code string

	session *sess.Session
	streak  layout.Streak

	// celebrate is set for the turn that completed a streak.
	celebrate bool

	input   components.TextInput
	spinner spinner.Model
	busy    bool
	notice  string
	errMsg  string
}

var _ screen.Screen = (*ChatScreen)(nil)
var _ screen.KeyHintProvider = (*ChatScreen)(nil)

// New creates a chat screen. An empty code starts a new session.
func New(ctx context.Context, svc Tutor, code string) *ChatScreen {
	return &ChatScreen{
		ctx:     ctx,
		svc:     svc,
		code:    code,
		input:   components.NewTextInput(problemPlaceholder, 500),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		busy:    true,
	}
}

func (c *ChatScreen) Init() tea.Cmd {
	return tea.Batch(c.load(), c.input.Init(), c.spinner.Tick)
}

func (c *ChatScreen) Title() string {
	if p := c.activeProblem(); p != nil {
		return p.Normalized
	}
	return "New problem"
}

// Code returns the session code once the session is loaded.
func (c *ChatScreen) Code() string { return c.code }

// Streak returns the meter for the header.
func (c *ChatScreen) Streak() layout.Streak { return c.streak }

func (c *ChatScreen) KeyHints() []layout.KeyHint {
	hints := []layout.KeyHint{{Key: "Enter", Description: "Send"}}
	if c.activeProblem() != nil {
		hints = append(hints, layout.KeyHint{Key: "Ctrl+D", Description: "Done with problem"})
	}
	return append(hints,
		layout.KeyHint{Key: "Ctrl+S", Description: "Summary"},
		layout.KeyHint{Key: "Ctrl+C", Description: "Quit"},
	)
}

func (c *ChatScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		return c.handleLoaded(msg)
	case problemMsg:
		return c.handleProblem(msg)
	case turnMsg:
		return c.handleTurn(msg)
	case completedMsg:
		return c.handleCompleted(msg)
	case quiz.ClosedMsg:
		c.setSession(msg.Session)
		c.notice = "Quiz finished. Type your next problem when you're ready."
		return c, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		c.spinner, cmd = c.spinner.Update(msg)
		return c, cmd
	case tea.KeyMsg:
		if next, cmd, ok := c.handleKey(msg); ok {
			return next, cmd
		}
	}

	if c.busy {
		return c, nil
	}
	var cmd tea.Cmd
	c.input, cmd = c.input.Update(msg)
	return c, cmd
}

func (c *ChatScreen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd, bool) {
	switch msg.String() {
	case "enter":
		if c.busy {
			return c, nil, true
		}
		if cmd := c.resumeQuiz(); cmd != nil {
			return c, cmd, true
		}
		text := c.input.Value()
		if text == "" {
			return c, nil, true
		}
		c.input.Reset()
		c.busy = true
		c.errMsg, c.notice = "", ""
		c.celebrate = false
		if c.activeProblem() == nil {
			return c, c.submit(text), true
		}
		return c, c.respond(text), true

	case "ctrl+d":
		p := c.activeProblem()
		if c.busy || p == nil {
			return c, nil, true
		}
		c.busy = true
		return c, c.complete(p.ID), true

	case "ctrl+s":
		if c.session == nil {
			return c, nil, true
		}
		sum := tutor.Summarize(c.session)
		return c, func() tea.Msg { return router.PushScreenMsg{Screen: summary.New(sum)} }, true
	}
	return c, nil, false
}

func (c *ChatScreen) load() tea.Cmd {
	return func() tea.Msg {
		if c.code == "" {
			s, err := c.svc.StartSession(c.ctx)
			return loadedMsg{Session: s, Err: err}
		}
		s, err := c.svc.GetSession(c.ctx, c.code)
		return loadedMsg{Session: s, Err: err}
	}
}

func (c *ChatScreen) submit(text string) tea.Cmd {
	code := c.code
	return func() tea.Msg {
		s, p, err := c.svc.SubmitProblem(c.ctx, code, sess.Draft{Text: text})
		return problemMsg{Session: s, Problem: p, Err: err}
	}
}

func (c *ChatScreen) respond(text string) tea.Cmd {
	code := c.code
	return func() tea.Msg {
		res, err := c.svc.Respond(c.ctx, code, text)
		return turnMsg{Result: res, Err: err}
	}
}

func (c *ChatScreen) complete(problemID int) tea.Cmd {
	code := c.code
	return func() tea.Msg {
		s, err := c.svc.CompleteProblem(c.ctx, code, problemID)
		return completedMsg{Session: s, Err: err}
	}
}

func (c *ChatScreen) handleLoaded(msg loadedMsg) (screen.Screen, tea.Cmd) {
	c.busy = false
	if msg.Err != nil {
		c.errMsg = friendlyError(msg.Err)
		return c, nil
	}
	c.setSession(msg.Session)
	return c, c.resumeQuiz()
}

func (c *ChatScreen) handleProblem(msg problemMsg) (screen.Screen, tea.Cmd) {
	c.busy = false
	if msg.Err != nil {
		c.errMsg = friendlyError(msg.Err)
		return c, nil
	}
	c.setSession(msg.Session)
	return c, nil
}

func (c *ChatScreen) handleTurn(msg turnMsg) (screen.Screen, tea.Cmd) {
	c.busy = false
	if msg.Err != nil {
		c.errMsg = friendlyError(msg.Err)
		return c, nil
	}
	res := msg.Result
	c.setSession(res.Session)
	c.streak = layout.Streak{Progress: res.Streak.Progress, Completions: res.Streak.Completions}
	c.celebrate = res.Streak.Completed
	if res.Assessment != nil {
		return c, c.openQuiz(res.ProblemID, res.Assessment)
	}
	return c, nil
}

func (c *ChatScreen) handleCompleted(msg completedMsg) (screen.Screen, tea.Cmd) {
	c.busy = false
	if msg.Err != nil {
		c.errMsg = friendlyError(msg.Err)
		return c, nil
	}
	c.setSession(msg.Session)
	c.notice = "Problem closed. Type your next problem when you're ready."
	return c, nil
}

func (c *ChatScreen) setSession(s *sess.Session) {
	c.session = s
	c.code = s.Code
	c.streak = layout.Streak{Progress: s.StreakProgress, Completions: s.StreakCompletions}
	if c.activeProblem() == nil {
		c.input.SetPlaceholder(problemPlaceholder)
	} else {
		c.input.SetPlaceholder(replyPlaceholder)
	}
}

// resumeQuiz reopens a quiz left in progress by an earlier visit.
func (c *ChatScreen) resumeQuiz() tea.Cmd {
	p := c.activeProblem()
	if p == nil || p.LearningAssessment == nil || p.LearningAssessment.Phase != sess.PhaseMCInProgress {
		return nil
	}
	return c.openQuiz(p.ID, p.LearningAssessment)
}

func (c *ChatScreen) openQuiz(problemID int, la *sess.LearningAssessment) tea.Cmd {
	q := quiz.New(c.ctx, c.svc, c.code, problemID, la)
	return func() tea.Msg { return router.PushScreenMsg{Screen: q} }
}

func (c *ChatScreen) activeProblem() *sess.Problem {
	if c.session == nil {
		return nil
	}
	p, err := c.session.ActiveProblem()
	if err != nil {
		return nil
	}
	return p
}

func friendlyError(err error) string {
	switch {
	case sess.IsTimeout(err):
		return "The tutor took too long to answer. Please try again."
	case sess.IsExternal(err):
		return "The tutor is unavailable right now. Please try again."
	case sess.IsNotFound(err):
		return "That session could not be found. It may have expired."
	default:
		return err.Error()
	}
}
