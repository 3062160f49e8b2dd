package tutor

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/abhisek/socratic/internal/assessment"
	"github.com/abhisek/socratic/internal/events"
	"github.com/abhisek/socratic/internal/session"
)

// AnswerResult is the outcome of one quiz answer.
type AnswerResult struct {
	Session *session.Session
	Outcome assessment.Outcome

	// Assessment is the stored assessment after the answer.
	Assessment *session.LearningAssessment
}

// AnswerMCQuestion records the student's choice for one quiz question.
// The answer that completes the quiz grades it and closes the problem,
// whether the quiz was passed or failed.
func (s *Service) AnswerMCQuestion(ctx context.Context, code string, problemID int, questionID string, selected int) (*AnswerResult, error) {
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
	work := stored.Clone()
	from := len(work.Transcript)
	p, err := work.Problem(problemID)
	if err != nil {
		return nil, err
	}

	outcome, err := assessment.Answer(p, questionID, selected)
	if err != nil {
		return nil, err
	}
	if outcome.Graded {
		la := p.LearningAssessment
		note := fmt.Sprintf("Quiz graded: %d of %d correct (%s).",
			correctCount(la.MCQuestions), len(la.MCQuestions), passLabel(outcome.Passed))
		if err := s.closeProblem(work, problemID, note); err != nil {
			return nil, err
		}
	}

	out, err := s.persist(ctx, "answer quiz question", code, work, from)
	if err != nil {
		return nil, err
	}
	saved, err := out.Problem(problemID)
	if err != nil {
		return nil, err
	}

	if outcome.Graded {
		s.logger.Info("quiz graded",
			zap.String("session", code),
			zap.Int("problem", problemID),
			zap.Float64("score", outcome.Score),
			zap.Bool("passed", outcome.Passed))
		s.metrics.QuizGraded(outcome.Passed)
		s.emit(events.QuizGraded, code, problemID, map[string]any{
			"score":  outcome.Score,
			"passed": outcome.Passed,
		})
		s.announceCompleted(out, problemID)
	}

	return &AnswerResult{Session: out, Outcome: outcome, Assessment: saved.LearningAssessment}, nil
}

// RecordTransferResult stores the result of a follow-up transfer problem on
// a graded assessment and recomputes learning confidence.
func (s *Service) RecordTransferResult(ctx context.Context, code string, problemID int, success bool) (*session.LearningAssessment, error) {
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
	work := stored.Clone()
	p, err := work.Problem(problemID)
	if err != nil {
		return nil, err
	}
	if _, err := assessment.RecordTransfer(p, success); err != nil {
		return nil, err
	}

	out, err := s.persist(ctx, "record transfer result", code, work, len(work.Transcript))
	if err != nil {
		return nil, err
	}
	saved, err := out.Problem(problemID)
	if err != nil {
		return nil, err
	}
	return saved.LearningAssessment, nil
}

func correctCount(qs []session.MCQuestion) int {
	n := 0
	for _, q := range qs {
		if q.Correct != nil && *q.Correct {
			n++
		}
	}
	return n
}

func passLabel(passed bool) string {
	if passed {
		return "passed"
	}
	return "not passed, flagged for the teacher"
}
