// Package tutor orchestrates tutoring turns. It owns the read-modify-write
// cycle on a session: every mutation runs under the session lock, works on
// a private copy and is persisted as a single merge update, so a failed or
// timed-out operation leaves the stored session untouched.
package tutor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/socratic/internal/assessment"
	"github.com/abhisek/socratic/internal/completion"
	"github.com/abhisek/socratic/internal/events"
	"github.com/abhisek/socratic/internal/lock"
	"github.com/abhisek/socratic/internal/metrics"
	"github.com/abhisek/socratic/internal/session"
	"github.com/abhisek/socratic/internal/store"
	"github.com/abhisek/socratic/internal/streak"
)

// maxCodeAttempts bounds retries on session code collisions.
const maxCodeAttempts = 5

// Deps are the collaborators of a Service. Store, Locker and Generator are
// required; the rest fall back to safe defaults.
type Deps struct {
	Store     store.SessionStore
	Locker    lock.Locker
	Generator Generator
	Detector  *completion.Detector
	Quiz      *assessment.Generator
	Events    events.Emitter
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

// Service runs session, problem, turn and quiz operations.
type Service struct {
	store    store.SessionStore
	locker   lock.Locker
	gen      Generator
	detector *completion.Detector
	quiz     *assessment.Generator
	events   events.Emitter
	metrics  *metrics.Metrics
	meter    streak.Meter
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a Service.
func New(deps Deps, cfg Config) (*Service, error) {
	if deps.Store == nil || deps.Locker == nil || deps.Generator == nil {
		return nil, errors.New("tutor: store, locker and generator are required")
	}
	if cfg.TurnTimeout <= 0 {
		cfg.TurnTimeout = DefaultConfig().TurnTimeout
	}
	if cfg.MaxResponseLength <= 0 {
		cfg.MaxResponseLength = DefaultConfig().MaxResponseLength
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:    deps.Store,
		locker:   deps.Locker,
		gen:      deps.Generator,
		detector: deps.Detector,
		quiz:     deps.Quiz,
		events:   deps.Events,
		metrics:  deps.Metrics,
		meter:    streak.NewMeter(cfg.StreakIncrement),
		cfg:      cfg,
		logger:   logger.Named("tutor"),
		now:      time.Now,
	}
	if s.detector == nil {
		s.detector = completion.New(nil, cfg.Completion, logger)
	}
	if s.quiz == nil {
		s.quiz = assessment.NewGenerator(nil, cfg.Quiz, logger)
	}
	if s.events == nil {
		s.events = events.Noop{}
	}
	return s, nil
}

// StartSession creates a session with a fresh code.
func (s *Service) StartSession(ctx context.Context) (*session.Session, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := session.NewCode()
		if err != nil {
			return nil, fmt.Errorf("generate session code: %w", err)
		}
		sess := session.New(code, s.now(), s.cfg.SessionTTL)
		err = s.store.Create(ctx, sess)
		if session.IsConflict(err) {
			s.logger.Debug("session code collision", zap.String("session", code))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create session: %w", err)
		}

		s.logger.Info("session started", zap.String("session", code))
		s.metrics.SessionStarted()
		s.emit(events.SessionStarted, code, 0, nil)
		return sess, nil
	}
	return nil, fmt.Errorf("create session: no free code after %d attempts", maxCodeAttempts)
}

// GetSession returns the stored session.
func (s *Service) GetSession(ctx context.Context, code string) (*session.Session, error) {
	code, err := normalizeCode(code)
	if err != nil {
		return nil, err
	}
	return s.store.Get(ctx, code)
}

// DeleteSession removes a session and all its problems.
func (s *Service) DeleteSession(ctx context.Context, code string) error {
	code, err := normalizeCode(code)
	if err != nil {
		return err
	}
	unlock, err := s.lock(ctx, code)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.store.Delete(ctx, code); err != nil {
		return err
	}
	s.logger.Info("session deleted", zap.String("session", code))
	return nil
}

// PurgeExpired removes expired sessions from the store.
func (s *Service) PurgeExpired(ctx context.Context) (int, error) {
	n, err := s.store.PurgeExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("purge expired sessions: %w", err)
	}
	s.metrics.SessionsPurged(n)
	if n > 0 {
		s.logger.Info("purged expired sessions", zap.Int("count", n))
	}
	return n, nil
}

// SubmitProblem adds a new active problem and stores the tutor's opening
// question as its first step. It fails with a ConflictError while another
// problem is active.
func (s *Service) SubmitProblem(ctx context.Context, code string, draft session.Draft) (*session.Session, *session.Problem, error) {
	code, err := normalizeCode(code)
	if err != nil {
		return nil, nil, err
	}
	now := s.now()
	problem, err := session.NewProblem(draft, now)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.TurnTimeout)
	defer cancel()

	unlock, err := s.lock(ctx, code)
	if err != nil {
		return nil, nil, err
	}
	defer unlock()

	stored, err := s.store.Get(ctx, code)
	if err != nil {
		return nil, nil, err
	}
	if err := stored.CheckCanSubmit(); err != nil {
		return nil, nil, err
	}

	work := stored.Clone()
	from := len(work.Transcript)
	p, err := session.SubmitProblem(work, problem)
	if err != nil {
		return nil, nil, err
	}

	seed, err := s.gen.Seed(ctx, p)
	if err != nil {
		return nil, nil, s.generationError(ctx, "generate opening question", err)
	}
	session.SeedStep(p, seed.Text, s.now())
	work.AppendTranscript(session.SpeakerStudent, p.RawInput, now)
	work.AppendTranscript(session.SpeakerTutor, seed.Text, s.now())

	out, err := s.persist(ctx, "submit problem", code, work, from)
	if err != nil {
		return nil, nil, err
	}
	saved, err := out.Problem(p.ID)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("problem submitted",
		zap.String("session", code),
		zap.Int("problem", saved.ID),
		zap.String("category", string(saved.Category)))
	s.metrics.ProblemSubmitted()
	s.emit(events.ProblemSubmitted, code, saved.ID, map[string]any{
		"category":   saved.Category,
		"difficulty": saved.Difficulty,
	})
	return out, saved, nil
}

// CompleteProblem marks a problem completed and clears the active pointer.
// Completing a completed problem changes nothing.
func (s *Service) CompleteProblem(ctx context.Context, code string, problemID int) (*session.Session, error) {
	code, err := normalizeCode(code)
	if err != nil {
		return nil, err
	}
	unlock, err := s.lock(ctx, code)
	if err != nil {
		return nil, err
	}
	defer unlock()

	stored, err := s.store.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	p, err := stored.Problem(problemID)
	if err != nil {
		return nil, err
	}
	if p.Completed {
		return stored, nil
	}
	if la := p.LearningAssessment; la != nil && la.Phase == session.PhaseMCInProgress {
		return nil, &session.ConflictError{Message: "answer the quiz questions to finish this problem"}
	}

	work := stored.Clone()
	from := len(work.Transcript)
	if err := s.closeProblem(work, problemID, fmt.Sprintf("Problem %d marked complete.", problemID)); err != nil {
		return nil, err
	}
	out, err := s.persist(ctx, "complete problem", code, work, from)
	if err != nil {
		return nil, err
	}
	s.announceCompleted(out, problemID)
	return out, nil
}

// closeProblem completes the problem on work, closes a graded assessment
// and notes it in the transcript.
func (s *Service) closeProblem(work *session.Session, problemID int, note string) error {
	now := s.now()
	if err := session.CompleteProblem(work, problemID, now); err != nil {
		return err
	}
	p, err := work.Problem(problemID)
	if err != nil {
		return err
	}
	assessment.Close(p.LearningAssessment)
	work.AppendTranscript(session.SpeakerSystem, note, now)
	return nil
}

// announceCompleted reports a persisted problem completion.
func (s *Service) announceCompleted(out *session.Session, problemID int) {
	p, err := out.Problem(problemID)
	if err != nil {
		return
	}
	s.logger.Info("problem completed",
		zap.String("session", out.Code),
		zap.Int("problem", problemID),
		zap.Int("hints_used", p.HintsUsedTotal))
	s.metrics.ProblemCompleted()
	s.emit(events.ProblemCompleted, out.Code, problemID, map[string]any{
		"steps":      len(session.StudentSteps(p.Steps)),
		"hints_used": p.HintsUsedTotal,
	})
}

// lock acquires the session lock, reporting a deadline as a TimeoutError.
func (s *Service) lock(ctx context.Context, code string) (func(), error) {
	unlock, err := s.locker.Lock(ctx, code)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &session.TimeoutError{Op: "acquire session lock", Err: err}
		}
		return nil, fmt.Errorf("acquire session lock: %w", err)
	}
	return unlock, nil
}

// persist writes work back as a merge update, unless ctx is already done;
// a late result is discarded rather than half-applied.
func (s *Service) persist(ctx context.Context, op, code string, work *session.Session, transcriptFrom int) (*session.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, &session.TimeoutError{Op: op, Err: err}
	}
	out, err := s.store.Update(ctx, code, session.PatchFrom(work, transcriptFrom))
	if err != nil {
		if ctx.Err() != nil {
			return nil, &session.TimeoutError{Op: op, Err: err}
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// generationError maps a failed utterance call onto the session error
// taxonomy.
func (s *Service) generationError(ctx context.Context, op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || ctx.Err() != nil {
		s.metrics.TurnFailed("timeout")
		return &session.TimeoutError{Op: op, Err: err}
	}
	s.metrics.TurnFailed("generation")
	return &session.ExternalServiceError{Service: "tutor model", Err: err}
}

func (s *Service) emit(typ events.Type, code string, problemID int, data map[string]any) {
	s.events.Emit(events.Event{
		Type:        typ,
		SessionCode: code,
		ProblemID:   problemID,
		Timestamp:   s.now(),
		Data:        data,
	})
}

// normalizeCode upper-cases a code and rejects ones that cannot exist.
func normalizeCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !session.ValidCode(code) {
		return "", &session.NotFoundError{Resource: "session", Key: code}
	}
	return code, nil
}
