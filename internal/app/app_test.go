package app

import (
	"context"
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/socratic/internal/llm"
	"github.com/abhisek/socratic/internal/lock"
	"github.com/abhisek/socratic/internal/router"
	"github.com/abhisek/socratic/internal/screens/session"
	"github.com/abhisek/socratic/internal/screens/welcome"
	"github.com/abhisek/socratic/internal/store"
	"github.com/abhisek/socratic/internal/tutor"
)

func newService(t *testing.T) *tutor.Service {
	t.Helper()
	cfg := tutor.DefaultConfig()
	svc, err := tutor.New(tutor.Deps{
		Store:     store.NewMemory(),
		Locker:    lock.NewLocal(),
		Generator: tutor.NewGenerator(llm.NewMockProvider(), cfg.Generator),
	}, cfg)
	require.NoError(t, err)
	return svc
}

// runInit executes the active screen's init commands once and feeds their
// messages back into the model.
func runInit(m AppModel) AppModel {
	msg := m.Init()()
	cmds := []tea.Cmd{func() tea.Msg { return msg }}
	if batch, ok := msg.(tea.BatchMsg); ok {
		cmds = batch
	}
	for _, cmd := range cmds {
		if cmd == nil {
			continue
		}
		next, _ := m.Update(cmd())
		m = next.(AppModel)
	}
	return m
}

func TestStartsOnWelcomeWithoutCode(t *testing.T) {
	m := newAppModel(context.Background(), Options{Service: newService(t)})
	assert.IsType(t, &welcome.WelcomeScreen{}, m.router.Active())
	assert.NotNil(t, m.Init())
}

func TestResumesSessionWithCode(t *testing.T) {
	svc := newService(t)
	s, err := svc.StartSession(context.Background())
	require.NoError(t, err)

	m := newAppModel(context.Background(), Options{Service: svc, Code: s.Code})
	assert.IsType(t, &session.ChatScreen{}, m.router.Active())

	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = runInit(next.(AppModel))
	require.NotNil(t, m.current)
	assert.Equal(t, s.Code, m.current.Code())
	assert.Contains(t, m.render(), s.Code)
}

func TestTooSmallTerminal(t *testing.T) {
	m := newAppModel(context.Background(), Options{Service: newService(t)})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 20, Height: 5})
	assert.NotContains(t, next.(AppModel).render(), "Start a new session")
}

func TestCtrlCQuits(t *testing.T) {
	m := newAppModel(context.Background(), Options{Service: newService(t)})
	_, cmd := m.Update(tea.KeyPressMsg{Code: 'c', Mod: tea.ModCtrl})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestEscOnlyPopsAboveRoot(t *testing.T) {
	m := newAppModel(context.Background(), Options{Service: newService(t)})
	_, cmd := m.Update(tea.KeyPressMsg{Code: tea.KeyEscape})
	if cmd != nil {
		assert.NotEqual(t, router.PopScreenMsg{}, cmd())
	}
}
