package llm

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/abhisek/socratic/internal/store"
)

type memRecorder struct {
	mu     sync.Mutex
	events []store.LLMRequestEventData
	err    error
}

func (r *memRecorder) AppendLLMRequest(_ context.Context, data store.LLMRequestEventData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, data)
	return r.err
}

func TestLoggingProvider_RecordsEvent(t *testing.T) {
	mock := NewMockProvider(MockResponse{
		Content: json.RawMessage(`{"message":"What is 3 times 4?","includes_hint":false}`),
		Usage:   Usage{InputTokens: 40, OutputTokens: 12, TotalTokens: 52},
	})
	rec := &memRecorder{}
	p := WithLogging(mock, rec, zap.NewNop())

	ctx := WithPurpose(context.Background(), PurposeTutorTurn)
	if _, err := p.Generate(ctx, Request{System: "sys", Messages: []Message{{Role: RoleUser, Content: "12"}}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(rec.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(rec.events))
	}
	ev := rec.events[0]
	if ev.Purpose != PurposeTutorTurn || !ev.Success || ev.InputTokens != 40 || ev.OutputTokens != 12 {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestLoggingProvider_LogsFailures(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	mock := NewMockProvider(MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("down")}})
	rec := &memRecorder{err: errors.New("disk full")}
	p := WithLogging(mock, rec, zap.New(core))

	if _, err := p.Generate(context.Background(), Request{}); err == nil {
		t.Fatal("expected error")
	}

	if rec.events[0].Success || rec.events[0].ErrorMessage == "" {
		t.Fatalf("expected failed event, got %+v", rec.events[0])
	}
	if logs.FilterMessage("llm request failed").Len() != 1 {
		t.Error("expected a warning for the failed request")
	}
	if logs.FilterMessage("failed to record llm request event").Len() != 1 {
		t.Error("expected a warning for the recorder failure")
	}
}

func TestLoggingProvider_NilRecorder(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`{}`)})
	p := WithLogging(mock, nil, nil)
	if _, err := p.Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
