package session

import (
	"testing"
	"time"
)

var now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	return New("ABC234", now, 24*time.Hour)
}

func submit(t *testing.T, s *Session, text string) *Problem {
	t.Helper()
	p, err := NewProblem(Draft{Text: text}, now)
	if err != nil {
		t.Fatalf("NewProblem: %v", err)
	}
	stored, err := SubmitProblem(s, p)
	if err != nil {
		t.Fatalf("SubmitProblem: %v", err)
	}
	return stored
}

func TestSubmitProblem_AssignsSequentialIDs(t *testing.T) {
	s := newTestSession(t)

	p1 := submit(t, s, "3 + 4")
	if p1.ID != 1 {
		t.Errorf("first id = %d, want 1", p1.ID)
	}
	if s.CurrentProblemID == nil || *s.CurrentProblemID != 1 {
		t.Fatalf("current problem = %v, want 1", s.CurrentProblemID)
	}

	if err := CompleteProblem(s, 1, now); err != nil {
		t.Fatalf("CompleteProblem: %v", err)
	}
	p2 := submit(t, s, "5 * 6")
	if p2.ID != 2 {
		t.Errorf("second id = %d, want 2", p2.ID)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestSubmitProblem_ConflictWhenActive(t *testing.T) {
	s := newTestSession(t)
	submit(t, s, "3 + 4")

	p, _ := NewProblem(Draft{Text: "9 - 2"}, now)
	_, err := SubmitProblem(s, p)
	if !IsConflict(err) {
		t.Fatalf("got %v, want ConflictError", err)
	}
	if len(s.Problems) != 1 {
		t.Errorf("got %d problems after conflict, want 1", len(s.Problems))
	}
}

func TestCompleteProblem_ClearsPointer(t *testing.T) {
	s := newTestSession(t)
	submit(t, s, "3 + 4")

	if err := CompleteProblem(s, 1, now); err != nil {
		t.Fatalf("CompleteProblem: %v", err)
	}
	if s.CurrentProblemID != nil {
		t.Errorf("current problem = %d, want nil", *s.CurrentProblemID)
	}
	if !s.Problems[0].Completed || s.Problems[0].CompletedAt == nil {
		t.Error("problem not marked completed")
	}
	if err := CompleteProblem(s, 1, now); err != nil {
		t.Errorf("second complete: %v", err)
	}
}

func TestCompleteProblem_NotFound(t *testing.T) {
	s := newTestSession(t)
	if err := CompleteProblem(s, 7, now); !IsNotFound(err) {
		t.Errorf("got %v, want NotFoundError", err)
	}
}

func TestNewProblem_Validation(t *testing.T) {
	tests := []struct {
		name  string
		draft Draft
		field string
	}{
		{"empty", Draft{Text: "   "}, "problem"},
		{"bad category", Draft{Text: "1+1", Category: "calculus"}, "category"},
		{"difficulty high", Draft{Text: "1+1", Difficulty: 9}, "difficulty"},
		{"difficulty negative", Draft{Text: "1+1", Difficulty: -1}, "difficulty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProblem(tt.draft, now)
			ve, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("got %v, want ValidationError", err)
			}
			if ve.Field != tt.field {
				t.Errorf("field = %q, want %q", ve.Field, tt.field)
			}
		})
	}
}

func TestNewProblem_Normalizes(t *testing.T) {
	p, err := NewProblem(Draft{Text: "  12 ×  3 −  4 "}, now)
	if err != nil {
		t.Fatal(err)
	}
	if p.Normalized != "12 * 3 - 4" {
		t.Errorf("normalized = %q", p.Normalized)
	}
	if p.Difficulty != MinDifficulty {
		t.Errorf("difficulty = %d, want %d", p.Difficulty, MinDifficulty)
	}
	if p.Category != CategoryArithmetic {
		t.Errorf("category = %q, want arithmetic", p.Category)
	}
}

func TestClassifyCategory(t *testing.T) {
	tests := []struct {
		text string
		want Category
	}{
		{"7 + 8", CategoryArithmetic},
		{"Solve 2x + 3 = 11", CategoryAlgebra},
		{"Find the area of a circle with radius 3", CategoryGeometry},
		{"Sam has 12 apples and gives 5 of them to his friend Ana", CategoryWord},
		{"Maria buys 3 packs of 6 pens and then gives away 4 pens, how many are left", CategoryMultiStep},
	}
	for _, tt := range tests {
		if got := ClassifyCategory(tt.text); got != tt.want {
			t.Errorf("ClassifyCategory(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestExpired(t *testing.T) {
	s := New("ABC234", now, time.Hour)
	if s.Expired(now.Add(59 * time.Minute)) {
		t.Error("expired too early")
	}
	if !s.Expired(now.Add(time.Hour)) {
		t.Error("not expired at TTL")
	}
}

func TestNewCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := NewCode()
		if err != nil {
			t.Fatal(err)
		}
		if !ValidCode(code) {
			t.Fatalf("NewCode produced invalid code %q", code)
		}
	}
	if ValidCode("ABC10O") {
		t.Error("code with ambiguous characters accepted")
	}
}
