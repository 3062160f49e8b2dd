package store

import (
	"context"
	"time"

	"github.com/abhisek/socratic/internal/session"
)

// SessionStore persists whole sessions keyed by code. Every write runs
// session.Validate first; an invalid session never reaches the backend.
type SessionStore interface {
	// Get returns a copy of the session, or *session.NotFoundError when the
	// code is unknown or the session has expired.
	Get(ctx context.Context, code string) (*session.Session, error)

	// Create stores a new session. It returns *session.ConflictError when
	// the code is already taken.
	Create(ctx context.Context, s *session.Session) error

	// Put replaces the stored session.
	Put(ctx context.Context, s *session.Session) error

	// Update merges p into the stored session and returns the result.
	Update(ctx context.Context, code string, p session.Patch) (*session.Session, error)

	// Delete removes the session and all its problems.
	Delete(ctx context.Context, code string) error

	// PurgeExpired removes sessions whose expiry is at or before now and
	// reports how many were removed.
	PurgeExpired(ctx context.Context, now time.Time) (int, error)

	Close() error
}

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit   int       // max results (0 = unlimited)
	After   int64     // id > After
	Before  int64     // id < Before
	From    time.Time // timestamp >= From
	To      time.Time // timestamp <= To
	Purpose string    // exact purpose match
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string `bson:"provider"`
	Model        string `bson:"model"`
	Purpose      string `bson:"purpose"`
	InputTokens  int    `bson:"input_tokens"`
	OutputTokens int    `bson:"output_tokens"`
	LatencyMs    int64  `bson:"latency_ms"`
	Success      bool   `bson:"success"`
	ErrorMessage string `bson:"error_message"`
	RequestBody  string `bson:"request_body"`
	ResponseBody string `bson:"response_body"`
}

// LLMRequestEvent is a stored LLM request.
type LLMRequestEvent struct {
	ID                  int64     `bson:"_id"`
	Timestamp           time.Time `bson:"timestamp"`
	LLMRequestEventData `bson:",inline"`
}

// PurposeUsage aggregates calls for one purpose.
type PurposeUsage struct {
	Purpose      string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// ModelUsage aggregates calls for one model.
type ModelUsage struct {
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
}

// EventRepo provides append and query access to the LLM request log.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMEvents returns events newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error)

	// GetLLMEvent returns a single event, or *session.NotFoundError.
	GetLLMEvent(ctx context.Context, id int64) (*LLMRequestEvent, error)

	LLMUsageByPurpose(ctx context.Context) ([]PurposeUsage, error)
	LLMUsageByModel(ctx context.Context) ([]ModelUsage, error)
}

// Backend bundles a session store with its event log.
type Backend interface {
	SessionStore
	EventRepo() EventRepo
}

func notFound(code string) error {
	return &session.NotFoundError{Resource: "session", Key: code}
}

func codeTaken(code string) error {
	return &session.ConflictError{Message: "session code " + code + " is already in use"}
}
