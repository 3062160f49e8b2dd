package session

import (
	"context"
	"errors"
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/abhisek/socratic/internal/assessment"
	"github.com/abhisek/socratic/internal/completion"
	"github.com/abhisek/socratic/internal/llm"
	"github.com/abhisek/socratic/internal/lock"
	"github.com/abhisek/socratic/internal/router"
	"github.com/abhisek/socratic/internal/screens/quiz"
	"github.com/abhisek/socratic/internal/screens/summary"
	sess "github.com/abhisek/socratic/internal/session"
	"github.com/abhisek/socratic/internal/store"
	"github.com/abhisek/socratic/internal/streak"
	"github.com/abhisek/socratic/internal/tutor"
)

type fixture struct {
	svc   *tutor.Service
	tutor *llm.MockProvider
	judge *llm.MockProvider
	quiz  *llm.MockProvider
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		tutor: llm.NewMockProvider(),
		judge: llm.NewMockProvider(),
		quiz:  llm.NewMockProvider(),
	}
	cfg := tutor.DefaultConfig()
	svc, err := tutor.New(tutor.Deps{
		Store:     store.NewMemory(),
		Locker:    lock.NewLocal(),
		Generator: tutor.NewGenerator(f.tutor, cfg.Generator),
		Detector:  completion.New(f.judge, cfg.Completion, zap.NewNop()),
		Quiz:      assessment.NewGenerator(f.quiz, cfg.Quiz, zap.NewNop()),
	}, cfg)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func say(text string, hint bool) llm.MockResponse {
	return llm.MockJSON(map[string]any{"message": text, "includes_hint": hint})
}

// run executes cmd and feeds its message back into the screen.
func run(t *testing.T, c *ChatScreen, cmd tea.Cmd) tea.Cmd {
	t.Helper()
	require.NotNil(t, cmd)
	_, next := c.Update(cmd())
	return next
}

// send types text and presses enter, returning the async command.
func send(t *testing.T, c *ChatScreen, text string) tea.Cmd {
	t.Helper()
	c.input.Model.SetValue(text)
	_, cmd := c.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	require.True(t, c.busy)
	return cmd
}

func loaded(t *testing.T, f *fixture, code string) *ChatScreen {
	t.Helper()
	c := New(context.Background(), f.svc, code)
	run(t, c, c.load())
	require.NotNil(t, c.session)
	return c
}

func TestChatStartsNewSession(t *testing.T) {
	f := newFixture(t)
	c := loaded(t, f, "")
	assert.Len(t, c.Code(), 6)
	assert.Equal(t, "New problem", c.Title())
	assert.False(t, c.busy)
	assert.Equal(t, problemPlaceholder, c.input.Model.Placeholder)
}

func TestChatSubmitAndRespond(t *testing.T) {
	f := newFixture(t)
	c := loaded(t, f, "")

	f.tutor.AddResponse(say("What is the problem asking you to find?", false))
	run(t, c, send(t, c, "What is 12 + 7?"))
	require.Empty(t, c.errMsg)
	assert.Equal(t, replyPlaceholder, c.input.Model.Placeholder)
	assert.NotEqual(t, "New problem", c.Title())

	f.tutor.AddResponse(say("Good start. What do you get when you add the ones?", false))
	next := run(t, c, send(t, c, "I add 2 and 7 to get 9 ones"))
	assert.Nil(t, next)
	assert.False(t, c.busy)
	assert.Equal(t, streak.DefaultIncrement, c.Streak().Progress)
	assert.Contains(t, c.View(80, 30), "Tutor")

	view := c.View(80, 30)
	assert.Contains(t, view, "What do you get when you add the ones?")
	assert.Contains(t, view, "You")
}

func TestChatOpensQuizOnCorrectAnswer(t *testing.T) {
	f := newFixture(t)
	c := loaded(t, f, "")
	f.tutor.AddResponse(say("What is the problem asking you to find?", false))
	run(t, c, send(t, c, "What is 12 + 7?"))

	f.tutor.AddResponse(say("Yes, well done!", false))
	f.judge.AddResponse(llm.MockJSON(map[string]any{"completed": true, "correct": true, "reasoning": "12 + 7 = 19"}))
	f.quiz.AddResponse(llm.MockJSON(map[string]any{
		"questions": []map[string]any{
			{"question": "What is 2 + 7?", "options": []string{"8", "9", "10", "11"}, "correct_answer_index": 1},
		},
	}))

	next := run(t, c, send(t, c, "the answer is 19"))
	require.NotNil(t, next)
	push, ok := next().(router.PushScreenMsg)
	require.True(t, ok)
	assert.IsType(t, &quiz.QuizScreen{}, push.Screen)

	// Turns are closed while the quiz is open, so enter reopens it.
	c.input.Model.SetValue("more")
	_, cmd := c.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.IsType(t, router.PushScreenMsg{}, cmd())
}

func TestChatResumesQuizOnLoad(t *testing.T) {
	f := newFixture(t)
	c := loaded(t, f, "")
	f.tutor.AddResponse(say("What is the problem asking you to find?", false))
	run(t, c, send(t, c, "What is 12 + 7?"))
	f.tutor.AddResponse(say("Yes!", false))
	f.judge.AddResponse(llm.MockJSON(map[string]any{"completed": true, "correct": true, "reasoning": "ok"}))
	f.quiz.AddResponse(llm.MockJSON(map[string]any{
		"questions": []map[string]any{
			{"question": "What is 2 + 7?", "options": []string{"8", "9", "10", "11"}, "correct_answer_index": 1},
		},
	}))
	run(t, c, send(t, c, "19"))

	again := New(context.Background(), f.svc, c.Code())
	next := run(t, again, again.load())
	require.NotNil(t, next)
	assert.IsType(t, router.PushScreenMsg{}, next())
}

func TestChatCompleteProblem(t *testing.T) {
	f := newFixture(t)
	c := loaded(t, f, "")
	f.tutor.AddResponse(say("What is the problem asking you to find?", false))
	run(t, c, send(t, c, "What is 12 + 7?"))

	_, cmd := c.Update(tea.KeyPressMsg{Code: 'd', Mod: tea.ModCtrl})
	run(t, c, cmd)
	assert.Nil(t, c.activeProblem())
	assert.Contains(t, c.notice, "Problem closed")
}

func TestChatSummaryPush(t *testing.T) {
	f := newFixture(t)
	c := loaded(t, f, "")
	_, cmd := c.Update(tea.KeyPressMsg{Code: 's', Mod: tea.ModCtrl})
	require.NotNil(t, cmd)
	push := cmd().(router.PushScreenMsg)
	assert.IsType(t, &summary.SummaryScreen{}, push.Screen)
}

func TestChatQuizClosedUpdatesSession(t *testing.T) {
	f := newFixture(t)
	c := loaded(t, f, "")
	s := *c.session
	s.StreakCompletions = 2
	c.Update(quiz.ClosedMsg{Session: &s, Score: 1, Passed: true})
	assert.Equal(t, 2, c.Streak().Completions)
	assert.Contains(t, c.notice, "Quiz finished")
}

func TestChatShowsProviderErrors(t *testing.T) {
	f := newFixture(t)
	c := loaded(t, f, "")
	run(t, c, send(t, c, "What is 12 + 7?"))
	assert.Equal(t, "The tutor is unavailable right now. Please try again.", c.errMsg)
	assert.Nil(t, c.activeProblem())
	assert.Contains(t, c.View(80, 24), c.errMsg)
}

func TestChatUnknownCode(t *testing.T) {
	f := newFixture(t)
	c := New(context.Background(), f.svc, "ZZZZZZ")
	run(t, c, c.load())
	assert.Nil(t, c.session)
	assert.Contains(t, c.View(80, 24), "could not be found")
}

func TestFriendlyError(t *testing.T) {
	assert.Contains(t, friendlyError(&sess.TimeoutError{Op: "turn"}), "too long")
	assert.Equal(t, "boom", friendlyError(errors.New("boom")))
}
