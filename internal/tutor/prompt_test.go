package tutor

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/abhisek/socratic/internal/llm"
	"github.com/abhisek/socratic/internal/session"
)

func history(n int) []session.Step {
	steps := []session.Step{{Number: 1, TutorPrompt: "seed"}}
	for i := 1; i <= n; i++ {
		r := fmt.Sprintf("reply %d", i)
		steps = append(steps, session.Step{Number: i + 1, TutorPrompt: fmt.Sprintf("tutor %d", i), StudentResponse: &r})
	}
	return steps
}

func TestBuildMessagesAlternates(t *testing.T) {
	p := &session.Problem{Normalized: "What is 12 + 7?", Category: session.CategoryArithmetic, Difficulty: 1}
	msgs := buildMessages(p, history(5), "latest", 2)

	// problem, seed, two exchanges, latest reply
	if len(msgs) != 7 {
		t.Fatalf("got %d messages, want 7", len(msgs))
	}
	for i, m := range msgs {
		want := llm.RoleUser
		if i%2 == 1 {
			want = llm.RoleAssistant
		}
		if m.Role != want {
			t.Errorf("message %d role = %s, want %s", i, m.Role, want)
		}
	}
	if msgs[1].Content != "seed" {
		t.Errorf("seed not replayed: %q", msgs[1].Content)
	}
	if msgs[2].Content != "reply 4" || msgs[6].Content != "latest" {
		t.Errorf("unexpected window: %q ... %q", msgs[2].Content, msgs[6].Content)
	}
}

func TestBuildSystem(t *testing.T) {
	plain := buildSystem(TurnRequest{})
	if !strings.Contains(plain, "do not give a hint") {
		t.Error("missing no-hint directive")
	}

	hinted := buildSystem(TurnRequest{
		HintRequested: true,
		StuckTurns:    3,
		Correction:    &session.AnswerCheck{Completed: true, Reasoning: "off by one"},
	})
	for _, want := range []string{"stuck for 3 turns", "Judge's reasoning: off by one"} {
		if !strings.Contains(hinted, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
}

func TestGeneratorRejectsEmptyMessage(t *testing.T) {
	mock := llm.NewMockProvider(say("   ", false))
	g := NewGenerator(mock, DefaultConfig().Generator)

	_, err := g.Turn(context.Background(), TurnRequest{
		Problem:         &session.Problem{Normalized: "1 + 1"},
		History:         history(0),
		StudentResponse: "2",
	})
	if err == nil {
		t.Fatal("expected an error for an empty utterance")
	}
	if mock.LastCall().Schema != UtteranceSchema {
		t.Error("utterance request must carry the utterance schema")
	}
}
