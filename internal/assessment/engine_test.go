package assessment

import (
	"math"
	"testing"

	"github.com/abhisek/socratic/internal/session"
)

func quiz() []session.MCQuestion {
	mk := func(id string, correct int) session.MCQuestion {
		return session.MCQuestion{
			ID:                 id,
			Question:           "Question " + id,
			Options:            []string{"a", "b", "c", "d"},
			CorrectAnswerIndex: correct,
		}
	}
	return []session.MCQuestion{mk("q1", 0), mk("q2", 1), mk("q3", 2)}
}

func solvedProblem(t *testing.T) *session.Problem {
	t.Helper()
	p := &session.Problem{ID: 1, Category: session.CategoryArithmetic}
	if _, err := Start(p, "added the ones then the tens", quiz()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return p
}

func TestAnswer_TwoOfThreePasses(t *testing.T) {
	p := solvedProblem(t)

	answers := []struct {
		id       string
		selected int
	}{
		{"q1", 0}, // correct
		{"q2", 1}, // correct
		{"q3", 0}, // wrong
	}
	var last Outcome
	for i, a := range answers {
		out, err := Answer(p, a.id, a.selected)
		if err != nil {
			t.Fatalf("Answer(%s): %v", a.id, err)
		}
		if i < 2 && out.Graded {
			t.Fatalf("quiz graded after %d answers", i+1)
		}
		last = out
	}

	la := p.LearningAssessment
	if !last.Graded {
		t.Fatal("expected last answer to grade the quiz")
	}
	if la.MCScore == nil || math.Abs(*la.MCScore-2.0/3.0) > 1e-9 {
		t.Fatalf("mc_score = %v, want 2/3", la.MCScore)
	}
	if math.Round(*la.MCScore*1000)/1000 != 0.667 {
		t.Errorf("mc_score rounds to %v, want 0.667", math.Round(*la.MCScore*1000)/1000)
	}
	if !la.MCQuizPassed || la.MCQuizFailed {
		t.Errorf("passed=%v failed=%v, want passed", la.MCQuizPassed, la.MCQuizFailed)
	}
	if la.Phase != session.PhaseMCGraded || !la.AssessmentCompleted {
		t.Errorf("phase = %s completed=%v", la.Phase, la.AssessmentCompleted)
	}
	if la.LearningConfidence == nil || *la.LearningConfidence != *la.MCScore {
		t.Errorf("confidence without transfer should equal mc_score")
	}

	Close(la)
	if la.Phase != session.PhaseClosed {
		t.Errorf("phase after close = %s", la.Phase)
	}
}

func TestFailedQuizSetsFlag(t *testing.T) {
	p := solvedProblem(t)
	for _, id := range []string{"q1", "q2", "q3"} {
		if _, err := Answer(p, id, 3); err != nil {
			t.Fatalf("Answer: %v", err)
		}
	}
	la := p.LearningAssessment
	if la.MCQuizPassed || !la.MCQuizFailed {
		t.Errorf("passed=%v failed=%v, want failed", la.MCQuizPassed, la.MCQuizFailed)
	}
	if *la.MCScore != 0 {
		t.Errorf("score = %v, want 0", *la.MCScore)
	}
}

func TestAnswerErrors(t *testing.T) {
	p := solvedProblem(t)

	if _, err := Answer(p, "q1", 4); !session.IsValidation(err) {
		t.Errorf("index 4: want validation error, got %v", err)
	}
	if _, err := Answer(p, "nope", 0); !session.IsNotFound(err) {
		t.Errorf("unknown question: want not found, got %v", err)
	}
	if _, err := Answer(&session.Problem{ID: 2}, "q1", 0); !session.IsNotFound(err) {
		t.Errorf("no assessment: want not found, got %v", err)
	}

	for _, id := range []string{"q1", "q2", "q3"} {
		if _, err := Answer(p, id, 0); err != nil {
			t.Fatalf("Answer: %v", err)
		}
	}
	if _, err := Answer(p, "q1", 1); !session.IsConflict(err) {
		t.Errorf("answer after grading: want conflict, got %v", err)
	}
}

func TestReanswerBeforeGrading(t *testing.T) {
	p := solvedProblem(t)
	if _, err := Answer(p, "q1", 3); err != nil {
		t.Fatal(err)
	}
	out, err := Answer(p, "q1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if !out.Correct || *p.LearningAssessment.MCQuestions[0].StudentAnswerIndex != 0 {
		t.Error("re-answer should update the question in place")
	}
}

func TestScoreRoundTrip(t *testing.T) {
	qs := quiz()
	if _, ok := Score(qs); ok {
		t.Fatal("score must be unset until every question is answered")
	}
	for i := range qs {
		sel := qs[i].CorrectAnswerIndex
		if i == 0 {
			sel = (sel + 1) % 4
		}
		qs[i].StudentAnswerIndex = &sel
	}
	score, ok := Score(qs)
	if !ok {
		t.Fatal("expected score")
	}
	correct := 0
	for _, q := range qs {
		if *q.StudentAnswerIndex == q.CorrectAnswerIndex {
			correct++
		}
	}
	if math.Abs(score-float64(correct)/float64(len(qs))) > 1e-9 {
		t.Errorf("score = %v, want %d/%d", score, correct, len(qs))
	}
}

func TestPassed(t *testing.T) {
	tests := []struct {
		score float64
		want  bool
	}{
		{1, true},
		{2.0 / 3.0, true},
		{0.67, true},
		{0.5, false},
		{1.0 / 3.0, false},
		{0.664, false},
	}
	for _, tt := range tests {
		if got := Passed(tt.score); got != tt.want {
			t.Errorf("Passed(%v) = %v, want %v", tt.score, got, tt.want)
		}
	}
}

func TestConfidence(t *testing.T) {
	yes, no := true, false
	tests := []struct {
		name     string
		score    float64
		transfer *bool
		want     float64
	}{
		{"no transfer", 0.5, nil, 0.5},
		{"transfer success", 0.5, &yes, 0.7},
		{"transfer failure", 1, &no, 0.6},
	}
	for _, tt := range tests {
		if got := Confidence(tt.score, tt.transfer); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("%s: Confidence = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestRecordTransfer(t *testing.T) {
	p := solvedProblem(t)
	if _, err := RecordTransfer(p, true); !session.IsConflict(err) {
		t.Fatalf("transfer before grading: want conflict, got %v", err)
	}
	for _, id := range []string{"q1", "q2", "q3"} {
		if _, err := Answer(p, id, 0); err != nil {
			t.Fatal(err)
		}
	}
	la, err := RecordTransfer(p, true)
	if err != nil {
		t.Fatalf("RecordTransfer: %v", err)
	}
	want := 0.6*(1.0/3.0) + 0.4
	if math.Abs(*la.LearningConfidence-want) > 1e-9 {
		t.Errorf("confidence = %v, want %v", *la.LearningConfidence, want)
	}
}

func TestStartRejects(t *testing.T) {
	p := solvedProblem(t)
	if _, err := Start(p, "", quiz()); !session.IsConflict(err) {
		t.Errorf("second start: want conflict, got %v", err)
	}

	bad := quiz()[:1]
	if _, err := Start(&session.Problem{ID: 3}, "", bad); !session.IsValidation(err) {
		t.Errorf("one question: want validation error, got %v", err)
	}
}

func TestShouldStart(t *testing.T) {
	p := &session.Problem{ID: 1}
	if !ShouldStart(p, session.AnswerCheck{Completed: true, Correct: true}) {
		t.Error("correct completion should start the quiz")
	}
	if ShouldStart(p, session.AnswerCheck{Completed: true}) {
		t.Error("incorrect completion must not start the quiz")
	}
	p.LearningAssessment = &session.LearningAssessment{}
	if ShouldStart(p, session.AnswerCheck{Completed: true, Correct: true}) {
		t.Error("existing assessment must not restart")
	}
}

func TestExtractApproach(t *testing.T) {
	s := func(v string) *string { return &v }
	steps := []session.Step{
		{Number: 1, TutorPrompt: "Where do we start?"},
		{Number: 2, StudentResponse: s("idk"), ProgressMade: false},
		{Number: 3, StudentResponse: s("I think we add 12 + 7"), ProgressMade: true},
		{Number: 4, StudentResponse: s("19"), ProgressMade: true},
	}
	if got := ExtractApproach(steps); got != "I think we add 12 + 7" {
		t.Errorf("ExtractApproach = %q", got)
	}
	if got := ExtractApproach(steps[:2]); got == "" {
		t.Error("expected a generic approach when nothing made progress")
	}
}
