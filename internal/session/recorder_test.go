package session

import "testing"

func strPtr(s string) *string { return &s }

func TestRecordStep_NumbersAndHints(t *testing.T) {
	s := newTestSession(t)
	p := submit(t, s, "3 + 4")
	SeedStep(p, "What does the plus sign ask you to do?", now)

	replies := []struct {
		hint     bool
		progress bool
	}{
		{false, true},
		{true, false},
		{false, false},
		{true, false},
	}
	for _, r := range replies {
		RecordStep(p, Step{TutorPrompt: "next", StudentResponse: strPtr("x"), HintUsed: r.hint, ProgressMade: r.progress}, now)
	}

	for i, st := range p.Steps {
		if st.Number != i+1 {
			t.Errorf("steps[%d].Number = %d", i, st.Number)
		}
	}
	if p.HintsUsedTotal != 2 {
		t.Errorf("hints used = %d, want 2", p.HintsUsedTotal)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestStudentSteps_SkipsSeed(t *testing.T) {
	s := newTestSession(t)
	p := submit(t, s, "3 + 4")
	SeedStep(p, "seed", now)
	RecordStep(p, Step{StudentResponse: strPtr("7")}, now)

	got := StudentSteps(p.Steps)
	if len(got) != 1 || got[0].Number != 2 {
		t.Errorf("StudentSteps = %+v", got)
	}
}
