package streak

import (
	"testing"

	"github.com/abhisek/socratic/internal/session"
)

var (
	progressStep = session.Step{ProgressMade: true}
	hintStep     = session.Step{HintUsed: true}
	waitStep     = session.Step{}
)

func TestUpdate_FiveStepStreak(t *testing.T) {
	m := NewMeter(DefaultIncrement)
	s := &session.Session{Code: "ABC234"}

	want := []int{20, 40, 60, 80, 100}
	completedAt := -1
	for i, w := range want {
		r := m.Update(s, progressStep)
		if r.Progress != w {
			t.Errorf("step %d: progress = %d, want %d", i+1, r.Progress, w)
		}
		if r.Completed {
			if completedAt >= 0 {
				t.Errorf("completed fired twice (steps %d and %d)", completedAt+1, i+1)
			}
			completedAt = i
		}
	}
	if completedAt != 4 {
		t.Errorf("completed at step %d, want 5", completedAt+1)
	}
	if s.StreakCompletions != 1 {
		t.Errorf("completions = %d, want 1", s.StreakCompletions)
	}

	r := m.Update(s, progressStep)
	if r.Progress != 20 || r.Completed {
		t.Errorf("step after completion = %+v, want fresh streak at 20", r)
	}
}

func TestUpdate_ResetAfterCompletionOnWaitStep(t *testing.T) {
	m := NewMeter(DefaultIncrement)
	s := &session.Session{Code: "ABC234", StreakProgress: 80}

	m.Update(s, progressStep)
	r := m.Update(s, waitStep)
	if r.Progress != 0 {
		t.Errorf("progress = %d, want 0", r.Progress)
	}
}

func TestUpdate_HintResets(t *testing.T) {
	m := NewMeter(DefaultIncrement)
	s := &session.Session{Code: "ABC234"}
	m.Update(s, progressStep)
	m.Update(s, progressStep)

	r := m.Update(s, hintStep)
	if r.Progress != 0 {
		t.Errorf("progress after hint = %d, want 0", r.Progress)
	}
	if r.Completions != 0 {
		t.Errorf("completions after hint = %d, want 0", r.Completions)
	}
}

func TestUpdate_HintWithProgressStillResets(t *testing.T) {
	m := NewMeter(DefaultIncrement)
	s := &session.Session{Code: "ABC234", StreakProgress: 60}
	r := m.Update(s, session.Step{HintUsed: true, ProgressMade: true})
	if r.Progress != 0 {
		t.Errorf("progress = %d, want 0", r.Progress)
	}
}

func TestUpdate_WaitStepKeepsProgress(t *testing.T) {
	m := NewMeter(DefaultIncrement)
	s := &session.Session{Code: "ABC234", StreakProgress: 40}
	if r := m.Update(s, waitStep); r.Progress != 40 {
		t.Errorf("progress = %d, want 40", r.Progress)
	}
}

func TestUpdate_CapsAtMax(t *testing.T) {
	m := NewMeter(30)
	s := &session.Session{Code: "ABC234"}
	var r Result
	for i := 0; i < 4; i++ {
		r = m.Update(s, progressStep)
	}
	if r.Progress != Max || !r.Completed {
		t.Errorf("got %+v, want capped completion", r)
	}
}

func TestDeliver_OneShot(t *testing.T) {
	m := NewMeter(DefaultIncrement)
	s := &session.Session{Code: "ABC234", StreakProgress: 80}
	m.Update(s, progressStep)

	if !Deliver(s) {
		t.Fatal("first delivery should report completion")
	}
	if Deliver(s) {
		t.Error("second delivery should be empty")
	}
}

func TestNewMeter_Defaults(t *testing.T) {
	if NewMeter(0).Increment != DefaultIncrement || NewMeter(500).Increment != DefaultIncrement {
		t.Error("invalid increments should fall back to default")
	}
}
