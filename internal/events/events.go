// Package events is the telemetry side channel. Emitting never blocks a
// turn: events go through a bounded buffer and are dropped when it is full.
package events

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Type names an event and doubles as its routing key.
type Type string

const (
	SessionStarted   Type = "session.started"
	ProblemSubmitted Type = "problem.submitted"
	ProblemCompleted Type = "problem.completed"
	TurnRecorded     Type = "turn.recorded"
	HintWithheld     Type = "hint.withheld"
	StreakCompleted  Type = "streak.completed"
	QuizGenerated    Type = "quiz.generated"
	QuizGraded       Type = "quiz.graded"
)

// Event is one telemetry record.
type Event struct {
	ID          string         `json:"id"`
	Type        Type           `json:"type"`
	SessionCode string         `json:"session_code"`
	ProblemID   int            `json:"problem_id,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
	Data        map[string]any `json:"data,omitempty"`
}

// Emitter accepts events without blocking.
type Emitter interface {
	Emit(e Event)
}

// Sink delivers events to their destination.
type Sink interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Sink names accepted in events.sink.
const (
	SinkNone = "none"
	SinkLog  = "log"
	SinkAMQP = "amqp"
)

// Config configures the publisher and its sink.
type Config struct {
	Sink     string `yaml:"sink"`
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
	Buffer   int    `yaml:"buffer"`
}

// DefaultConfig logs events at debug level.
func DefaultConfig() Config {
	return Config{
		Sink:     SinkLog,
		Exchange: "socratic.events",
		Buffer:   256,
	}
}

// NewSink builds the sink named in cfg.
func NewSink(cfg Config, logger *zap.Logger) (Sink, error) {
	switch cfg.Sink {
	case SinkNone, "":
		return Noop{}, nil
	case SinkLog:
		return NewLogSink(logger), nil
	case SinkAMQP:
		return NewAMQPSink(cfg.URL, cfg.Exchange, logger)
	default:
		return nil, fmt.Errorf("unknown events sink %q", cfg.Sink)
	}
}

// Publisher forwards events to a Sink from a single background goroutine.
type Publisher struct {
	sink   Sink
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
	ch     chan Event
	done   chan struct{}

	dropped atomic.Int64
	failed  atomic.Int64
}

// NewPublisher starts the delivery goroutine. buffer <= 0 uses the default.
func NewPublisher(sink Sink, buffer int, logger *zap.Logger) *Publisher {
	if buffer <= 0 {
		buffer = DefaultConfig().Buffer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Publisher{
		sink:   sink,
		logger: logger,
		ch:     make(chan Event, buffer),
		done:   make(chan struct{}),
	}
	go p.run()
	return p
}

// Emit queues e. It fills in ID and Timestamp when unset, and drops the
// event when the buffer is full or the publisher is closed.
func (p *Publisher) Emit(e Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.dropped.Add(1)
		return
	}
	select {
	case p.ch <- e:
	default:
		p.dropped.Add(1)
		p.logger.Debug("event dropped", zap.String("type", string(e.Type)), zap.String("session", e.SessionCode))
	}
}

func (p *Publisher) run() {
	defer close(p.done)
	for e := range p.ch {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := p.sink.Publish(ctx, e); err != nil {
			p.failed.Add(1)
			p.logger.Warn("publish event", zap.String("type", string(e.Type)), zap.Error(err))
		}
		cancel()
	}
}

// Dropped returns how many events were discarded without delivery.
func (p *Publisher) Dropped() int64 { return p.dropped.Load() }

// Failed returns how many deliveries the sink rejected.
func (p *Publisher) Failed() int64 { return p.failed.Load() }

// Close stops accepting events, drains the buffer and closes the sink.
// If ctx ends first the remaining events are abandoned.
func (p *Publisher) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.ch)
	p.mu.Unlock()

	select {
	case <-p.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return p.sink.Close()
}

// Noop discards every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }
func (Noop) Emit(Event)                           {}

// LogSink writes events to the logger at debug level.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger.Named("events")}
}

func (s *LogSink) Publish(_ context.Context, e Event) error {
	s.logger.Debug(string(e.Type),
		zap.String("id", e.ID),
		zap.String("session", e.SessionCode),
		zap.Int("problem", e.ProblemID),
		zap.Any("data", e.Data),
	)
	return nil
}

func (s *LogSink) Close() error { return nil }
