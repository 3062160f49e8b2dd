package session

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestApply_MergesFields(t *testing.T) {
	s := validSession(t)
	s.AppendTranscript(SpeakerStudent, "3 + 4", now)

	id := 1
	s.Apply(Patch{
		AppendTranscript: []TranscriptEntry{{Speaker: SpeakerTutor, Message: "hi", Timestamp: now}},
		Streak:           &StreakFields{Progress: 40, Completions: 1},
		CurrentProblemID: &ProblemPointer{ID: &id},
	})

	if len(s.Transcript) != 2 {
		t.Errorf("transcript length = %d, want 2", len(s.Transcript))
	}
	if s.StreakProgress != 40 || s.StreakCompletions != 1 {
		t.Errorf("streak = %d/%d", s.StreakProgress, s.StreakCompletions)
	}

	s.Apply(Patch{CurrentProblemID: &ProblemPointer{}})
	if s.CurrentProblemID != nil {
		t.Error("pointer not cleared")
	}
	if len(s.Problems) != 1 {
		t.Error("nil problems in patch must leave problems untouched")
	}
}

func TestPatchFrom_RoundTrip(t *testing.T) {
	orig := validSession(t)
	orig.AppendTranscript(SpeakerStudent, "3 + 4", now)

	mutated := orig.Clone()
	mark := len(mutated.Transcript)
	RecordStep(&mutated.Problems[0], Step{TutorPrompt: "and then?", StudentResponse: strPtr("7")}, now)
	mutated.AppendTranscript(SpeakerStudent, "7", now)
	mutated.StreakProgress = 20

	orig.Apply(PatchFrom(mutated, mark))
	if diff := cmp.Diff(mutated, orig); diff != "" {
		t.Errorf("apply(patch) mismatch (-want +got):\n%s", diff)
	}
}

func TestClone_IsDeep(t *testing.T) {
	s := validSession(t)
	s.Problems[0].LearningAssessment = &LearningAssessment{
		MCQuestions: []MCQuestion{{ID: "q1", Question: "?", Options: []string{"a", "b", "c", "d"}}},
	}
	c := s.Clone()
	c.Problems[0].LearningAssessment.MCQuestions[0].Options[0] = "changed"
	c.Problems[0].Steps[0].TutorPrompt = "changed"

	if s.Problems[0].LearningAssessment.MCQuestions[0].Options[0] != "a" {
		t.Error("clone shares option slice")
	}
	if s.Problems[0].Steps[0].TutorPrompt != "seed" {
		t.Error("clone shares steps")
	}
}
