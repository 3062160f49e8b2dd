// Package quiz is the multiple-choice learning check shown after a problem
// is solved.
package quiz

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/socratic/internal/router"
	"github.com/abhisek/socratic/internal/screen"
	sess "github.com/abhisek/socratic/internal/session"
	"github.com/abhisek/socratic/internal/tutor"
	"github.com/abhisek/socratic/internal/ui/components"
	"github.com/abhisek/socratic/internal/ui/layout"
	"github.com/abhisek/socratic/internal/ui/theme"
)

// Answerer records quiz answers.
type Answerer interface {
	AnswerMCQuestion(ctx context.Context, code string, problemID int, questionID string, selected int) (*tutor.AnswerResult, error)
}

// ClosedMsg is delivered to the screen underneath once the quiz is graded.
type ClosedMsg struct {
	Session *sess.Session
	Score   float64
	Passed  bool
}

type answeredMsg struct {
	Result *tutor.AnswerResult
	Err    error
}

// QuizScreen walks the student through the questions one at a time.
type QuizScreen struct {
	ctx       context.Context
	svc       Answerer
	code      string
	problemID int

	ids       []string
	questions []components.MultiChoice
	current   int

	busy   bool
	errMsg string
	graded *tutor.AnswerResult
}

var _ screen.Screen = (*QuizScreen)(nil)
var _ screen.KeyHintProvider = (*QuizScreen)(nil)

// New creates a quiz screen for the open assessment. Questions answered in
// an earlier visit keep their answers.
func New(ctx context.Context, svc Answerer, code string, problemID int, la *sess.LearningAssessment) *QuizScreen {
	q := &QuizScreen{ctx: ctx, svc: svc, code: code, problemID: problemID, current: -1}
	for _, mq := range la.MCQuestions {
		mc := components.NewMultiChoice(mq.Question, mq.Options)
		if mq.StudentAnswerIndex != nil {
			mc.Chosen = *mq.StudentAnswerIndex
			mc.Selected = mc.Chosen
			if mq.Correct != nil {
				mc.Judge(*mq.Correct)
			}
		} else if q.current < 0 {
			q.current = len(q.questions)
		}
		q.ids = append(q.ids, mq.ID)
		q.questions = append(q.questions, mc)
	}
	if q.current < 0 {
		q.current = 0
	}
	return q
}

func (q *QuizScreen) Init() tea.Cmd { return nil }

func (q *QuizScreen) Title() string { return "Quick check" }

func (q *QuizScreen) KeyHints() []layout.KeyHint {
	if q.graded != nil {
		return []layout.KeyHint{{Key: "Enter", Description: "Back to the chat"}}
	}
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Choose"},
		{Key: "1-4", Description: "Answer"},
		{Key: "Enter", Description: "Submit"},
	}
}

func (q *QuizScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case components.ChoiceMsg:
		if q.busy || q.graded != nil || len(q.questions) == 0 {
			return q, nil
		}
		cur := &q.questions[q.current]
		cur.Chosen, cur.Selected = msg.Index, msg.Index
		q.busy = true
		q.errMsg = ""
		return q, q.answer(q.current, msg.Index)

	case answeredMsg:
		return q.handleAnswered(msg)

	case tea.KeyMsg:
		if q.graded != nil && msg.String() == "enter" {
			return q, q.close()
		}
	}

	if q.busy || q.graded != nil || len(q.questions) == 0 {
		return q, nil
	}
	var cmd tea.Cmd
	q.questions[q.current], cmd = q.questions[q.current].Update(msg)
	return q, cmd
}

func (q *QuizScreen) answer(i, selected int) tea.Cmd {
	id := q.ids[i]
	return func() tea.Msg {
		res, err := q.svc.AnswerMCQuestion(q.ctx, q.code, q.problemID, id, selected)
		return answeredMsg{Result: res, Err: err}
	}
}

func (q *QuizScreen) handleAnswered(msg answeredMsg) (screen.Screen, tea.Cmd) {
	q.busy = false
	cur := &q.questions[q.current]
	if msg.Err != nil {
		q.errMsg = msg.Err.Error()
		cur.Chosen = -1
		return q, nil
	}

	if idx := msg.Result.Outcome.Question.StudentAnswerIndex; idx != nil {
		cur.Chosen = *idx
	}
	cur.Judge(msg.Result.Outcome.Correct)
	if msg.Result.Outcome.Graded {
		q.graded = msg.Result
		for i, mq := range msg.Result.Assessment.MCQuestions {
			if i < len(q.questions) {
				q.questions[i].Reveal(mq.CorrectAnswerIndex)
			}
		}
		return q, nil
	}

	for i := range q.questions {
		if q.questions[i].Chosen < 0 {
			q.current = i
			break
		}
	}
	return q, nil
}

func (q *QuizScreen) close() tea.Cmd {
	res := q.graded
	return func() tea.Msg {
		return router.PopScreenMsg{Result: ClosedMsg{
			Session: res.Session,
			Score:   res.Outcome.Score,
			Passed:  res.Outcome.Passed,
		}}
	}
}

func (q *QuizScreen) progress() components.QuizProgress {
	dots := make([]components.StepDot, len(q.questions))
	for i, mc := range q.questions {
		switch {
		case mc.Correct != nil && *mc.Correct:
			dots[i] = components.DotCorrect
		case mc.Correct != nil:
			dots[i] = components.DotWrong
		case mc.Chosen >= 0:
			dots[i] = components.DotAnswered
		case i == q.current && q.graded == nil:
			dots[i] = components.DotCurrent
		}
	}
	return components.QuizProgress{Dots: dots}
}

func (q *QuizScreen) View(width, height int) string {
	var b strings.Builder
	b.WriteString(q.progress().View())
	b.WriteString("\n\n")

	if q.graded != nil {
		b.WriteString(q.renderResult())
	} else if len(q.questions) > 0 {
		b.WriteString(q.questions[q.current].View())
	}

	switch {
	case q.busy:
		b.WriteString("\n" + theme.Hint.Render("Checking..."))
	case q.errMsg != "":
		b.WriteString("\n" + theme.Alert.Render(q.errMsg))
	}

	card := theme.Card.Width(min(width-4, 72)).Render(b.String())
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, card)
}

func (q *QuizScreen) renderResult() string {
	out := q.graded.Outcome
	correct := 0
	for _, mc := range q.questions {
		if mc.Correct != nil && *mc.Correct {
			correct++
		}
	}

	var b strings.Builder
	for _, mc := range q.questions {
		b.WriteString(mc.View())
		b.WriteString("\n")
	}

	headline := fmt.Sprintf("%d of %d correct. Nice work, this problem is done!", correct, len(q.questions))
	style := lipgloss.NewStyle().Foreground(theme.Success).Bold(true)
	if !out.Passed {
		headline = fmt.Sprintf("%d of %d correct. This problem is done; your teacher may go over it with you.", correct, len(q.questions))
		style = style.Foreground(theme.Accent)
	}
	b.WriteString(style.Render(headline))
	return b.String()
}
