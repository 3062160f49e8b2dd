package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestTurnOutcomes(t *testing.T) {
	m := New()
	m.TurnRecorded(true, false, false, time.Second)
	m.TurnRecorded(false, true, false, time.Second)
	m.TurnRecorded(true, false, true, time.Second)
	m.TurnRecorded(false, false, false, time.Second)

	if got := testutil.ToFloat64(m.turns.WithLabelValues("progress")); got != 2 {
		t.Errorf("progress turns = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.turns.WithLabelValues("hint")); got != 1 {
		t.Errorf("hint turns = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.turns.WithLabelValues("stuck")); got != 1 {
		t.Errorf("stuck turns = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.hintFlips); got != 1 {
		t.Errorf("hint flips = %v, want 1", got)
	}
}

func TestCompletionVerdicts(t *testing.T) {
	m := New()
	m.CompletionChecked("llm", true, true)
	m.CompletionChecked("fallback", true, false)
	m.CompletionChecked("llm", false, false)

	tests := []struct {
		source, verdict string
	}{
		{"llm", "correct"},
		{"fallback", "incorrect"},
		{"llm", "not_final"},
	}
	for _, tt := range tests {
		if got := testutil.ToFloat64(m.completionChecks.WithLabelValues(tt.source, tt.verdict)); got != 1 {
			t.Errorf("%s/%s = %v, want 1", tt.source, tt.verdict, got)
		}
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.TurnRecorded(true, true, true, time.Second)
	m.TurnFailed("timeout")
	m.QuizGraded(true)
	m.ObserveHTTP("GET", "/healthz", 200, time.Millisecond)
	m.RegisterEventCounters(func() float64 { return 0 }, func() float64 { return 0 })
}

func TestHandlerExposesEventCounters(t *testing.T) {
	m := New()
	m.RegisterEventCounters(func() float64 { return 7 }, func() float64 { return 2 })
	m.QuizGraded(false)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		"socratic_events_dropped_total 7",
		"socratic_events_publish_failures_total 2",
		`socratic_quizzes_graded_total{result="failed"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
