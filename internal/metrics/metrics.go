// Package metrics exposes Prometheus collectors for tutoring turns, hints,
// streaks, quizzes and the HTTP surface.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "socratic"

// Metrics holds every collector on its own registry. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	turns            *prometheus.CounterVec
	turnDuration     prometheus.Histogram
	turnFailures     *prometheus.CounterVec
	hintFlips        prometheus.Counter
	problems         *prometheus.CounterVec
	streaks          prometheus.Counter
	completionChecks *prometheus.CounterVec
	quizzesGenerated *prometheus.CounterVec
	quizzesGraded    *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	sessionsStarted  prometheus.Counter
	sessionsPurged   prometheus.Counter
}

// New registers the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		turns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Recorded student turns by outcome.",
		}, []string{"outcome"}), // outcome: progress, hint, stuck
		turnDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "Time spent processing a student turn, model calls included.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
		}),
		turnFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turn_failures_total",
			Help:      "Turns that were not recorded, by error kind.",
		}, []string{"kind"}),
		hintFlips: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hint_flips_total",
			Help:      "Turns where a requested hint was dropped after tutor validation.",
		}),
		problems: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "problems_total",
			Help:      "Problem lifecycle transitions.",
		}, []string{"event"}), // event: submitted, completed
		streaks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "streaks_completed_total",
			Help:      "Streak meters that reached the maximum.",
		}),
		completionChecks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completion_checks_total",
			Help:      "Solution-completion judgments by source and verdict.",
		}, []string{"source", "verdict"}),
		quizzesGenerated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quizzes_generated_total",
			Help:      "Learning-check quizzes by question source.",
		}, []string{"source"}),
		quizzesGraded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quizzes_graded_total",
			Help:      "Graded learning-check quizzes by result.",
		}, []string{"result"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		sessionsStarted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Sessions created.",
		}),
		sessionsPurged: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_purged_total",
			Help:      "Expired sessions removed by a purge.",
		}),
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RegisterEventCounters exposes the telemetry publisher's drop and failure
// counts.
func (m *Metrics) RegisterEventCounters(dropped, failed func() float64) {
	if m == nil {
		return
	}
	m.registry.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "dropped_total",
			Help:      "Telemetry events dropped because the buffer was full.",
		}, dropped),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "publish_failures_total",
			Help:      "Telemetry events the sink failed to publish.",
		}, failed),
	)
}

// TurnRecorded counts a persisted turn.
func (m *Metrics) TurnRecorded(progress, hint, flipped bool, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "stuck"
	switch {
	case hint:
		outcome = "hint"
	case progress:
		outcome = "progress"
	}
	m.turns.WithLabelValues(outcome).Inc()
	if flipped {
		m.hintFlips.Inc()
	}
	m.turnDuration.Observe(d.Seconds())
}

// TurnFailed counts a turn that was discarded.
func (m *Metrics) TurnFailed(kind string) {
	if m == nil {
		return
	}
	m.turnFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.sessionsStarted.Inc()
}

func (m *Metrics) SessionsPurged(n int) {
	if m == nil {
		return
	}
	m.sessionsPurged.Add(float64(n))
}

func (m *Metrics) ProblemSubmitted() {
	if m == nil {
		return
	}
	m.problems.WithLabelValues("submitted").Inc()
}

func (m *Metrics) ProblemCompleted() {
	if m == nil {
		return
	}
	m.problems.WithLabelValues("completed").Inc()
}

func (m *Metrics) StreakCompleted() {
	if m == nil {
		return
	}
	m.streaks.Inc()
}

// CompletionChecked counts a completion judgment.
func (m *Metrics) CompletionChecked(source string, completed, correct bool) {
	if m == nil {
		return
	}
	verdict := "not_final"
	switch {
	case completed && correct:
		verdict = "correct"
	case completed:
		verdict = "incorrect"
	}
	m.completionChecks.WithLabelValues(source, verdict).Inc()
}

func (m *Metrics) QuizGenerated(source string) {
	if m == nil {
		return
	}
	m.quizzesGenerated.WithLabelValues(source).Inc()
}

func (m *Metrics) QuizGraded(passed bool) {
	if m == nil {
		return
	}
	result := "failed"
	if passed {
		result = "passed"
	}
	m.quizzesGraded.WithLabelValues(result).Inc()
}

// ObserveHTTP records one served request. route is the matched route
// pattern, not the raw path.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
