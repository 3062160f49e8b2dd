package completion

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/abhisek/socratic/internal/llm"
	"github.com/abhisek/socratic/internal/session"
)

func testProblem() *session.Problem {
	seed := "What is 3 times 4?"
	reply := "12"
	return &session.Problem{
		ID:         1,
		RawInput:   "What is 3 × 4 + 5?",
		Normalized: "What is 3 * 4 + 5?",
		Category:   session.CategoryArithmetic,
		Steps: []session.Step{
			{Number: 1, TutorPrompt: seed},
			{Number: 2, TutorPrompt: "Good. Now what do you add?", StudentResponse: &reply},
		},
	}
}

func TestDetect_UsesLLMJudgment(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockJSON(map[string]any{
		"completed": true, "correct": true, "reasoning": "17 is the final answer",
	}))
	d := New(mock, DefaultConfig(), zap.NewNop())
	p := testProblem()

	got := d.Detect(context.Background(), "the answer is 17", p, p.Steps)
	want := session.AnswerCheck{Completed: true, Correct: true, Reasoning: "17 is the final answer", Source: SourceLLM}
	if got != want {
		t.Errorf("Detect = %+v, want %+v", got, want)
	}

	req := mock.LastCall()
	if req.Schema != CheckSchema {
		t.Error("expected answer-check schema on request")
	}
	msg := req.Messages[0].Content
	for _, want := range []string{"Problem: What is 3 * 4 + 5?", "Student: 12", "Student's latest reply: the answer is 17"} {
		if !strings.Contains(msg, want) {
			t.Errorf("prompt missing %q:\n%s", want, msg)
		}
	}
}

func TestDetect_CorrectRequiresCompleted(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockJSON(map[string]any{
		"completed": false, "correct": true, "reasoning": "intermediate",
	}))
	d := New(mock, DefaultConfig(), zap.NewNop())

	got := d.Detect(context.Background(), "12", testProblem(), nil)
	if got.Correct {
		t.Error("a non-final reply must never be correct")
	}
}

func TestDetect_FallbackOnProviderError(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Err: &llm.ErrProviderUnavailable{}})
	d := New(mock, DefaultConfig(), zap.NewNop())

	got := d.Detect(context.Background(), "My final answer is 17", testProblem(), nil)
	if got.Source != SourceFallback {
		t.Errorf("source = %q, want %q", got.Source, SourceFallback)
	}
	if !got.Completed {
		t.Error("answer announcement should read as completed")
	}
	if got.Correct {
		t.Error("fallback must never report correct")
	}
}

func TestDetect_FallbackOnBadJSON(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: []byte(`{"completed":`)})
	d := New(mock, DefaultConfig(), zap.NewNop())

	got := d.Detect(context.Background(), "x = 4", testProblem(), nil)
	if got.Source != SourceFallback || !got.Completed || got.Correct {
		t.Errorf("Detect = %+v, want fallback completed/incorrect", got)
	}
}

func TestFallback(t *testing.T) {
	tests := []struct {
		reply     string
		completed bool
	}{
		{"17", true},
		{"-3.5", true},
		{"3/4", true},
		{"The answer is 12", true},
		{"I got 42!", true},
		{"x = 4", true},
		{"so y = -2", true},
		{"I think I need to multiply first", false},
		{"what does that mean?", false},
		{"", false},
	}
	for _, tt := range tests {
		got := Fallback(tt.reply)
		if got.Completed != tt.completed {
			t.Errorf("Fallback(%q).Completed = %v, want %v", tt.reply, got.Completed, tt.completed)
		}
		if got.Correct {
			t.Errorf("Fallback(%q).Correct = true", tt.reply)
		}
	}
}

func TestNilProviderUsesFallback(t *testing.T) {
	d := New(nil, Config{}, nil)
	got := d.Detect(context.Background(), "42", testProblem(), nil)
	if got.Source != SourceFallback || !got.Completed {
		t.Errorf("Detect = %+v", got)
	}
}
