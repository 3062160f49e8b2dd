package tutor

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/abhisek/socratic/internal/assessment"
	"github.com/abhisek/socratic/internal/completion"
	"github.com/abhisek/socratic/internal/events"
	"github.com/abhisek/socratic/internal/hint"
	"github.com/abhisek/socratic/internal/progress"
	"github.com/abhisek/socratic/internal/session"
	"github.com/abhisek/socratic/internal/streak"
)

// TurnResult is everything a caller needs to render one tutor reply.
type TurnResult struct {
	Session   *session.Session
	ProblemID int
	Step      session.Step

	// Analysis is the heuristic reading of the student reply.
	Analysis progress.Analysis

	// Decision carries both phases of the hint decision.
	Decision hint.Decision

	// Regenerated is set when the utterance was regenerated after the
	// requested hint was dropped.
	Regenerated bool

	// Streak reports the meter after this step. Streak.Completed is true
	// on exactly one turn per completed streak.
	Streak streak.Result

	AnswerCheck session.AnswerCheck

	// Assessment is set when this turn opened the learning check.
	Assessment *session.LearningAssessment
	QuizSource string
}

// Respond records one student reply on the active problem and produces
// the tutor's answer.
//
// The turn runs as a fixed pipeline: heuristic analysis, preliminary hint
// decision, utterance generation, tutor-validation reading,
// reconciliation, step recording, streak update, completion judgment and,
// on a correct final answer, quiz generation. Only the utterance call is
// fatal; the completion and quiz calls degrade to local fallbacks. Nothing
// is written unless the whole pipeline finishes inside the turn timeout.
func (s *Service) Respond(ctx context.Context, code, response string) (*TurnResult, error) {
	start := time.Now()

	code, err := normalizeCode(code)
	if err != nil {
		return nil, err
	}
	reply := strings.TrimSpace(response)
	if reply == "" {
		return nil, &session.ValidationError{Field: "response", Message: "student response is empty"}
	}
	if utf8.RuneCountInString(reply) > s.cfg.MaxResponseLength {
		return nil, &session.ValidationError{Field: "response", Message: fmt.Sprintf("longer than %d characters", s.cfg.MaxResponseLength)}
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.TurnTimeout)
	defer cancel()

	unlock, err := s.lock(ctx, code)
	if err != nil {
		return nil, err
	}
	defer unlock()

	stored, err := s.store.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	active, err := stored.ActiveProblem()
	if err != nil {
		return nil, &session.ConflictError{Message: "no active problem: submit a problem first"}
	}
	if la := active.LearningAssessment; la != nil && la.Phase == session.PhaseMCInProgress {
		return nil, &session.ConflictError{Message: "answer the quiz questions to finish this problem"}
	}

	work := stored.Clone()
	from := len(work.Transcript)
	p, err := work.Problem(active.ID)
	if err != nil {
		return nil, err
	}
	prior := p.Steps

	// Phase 1: heuristic reading and preliminary hint decision.
	analysis := progress.Analyze(reply, prior)
	prelim := hint.Preliminary(hint.StuckTurns(prior), analysis.MadeProgress)

	req := TurnRequest{
		Problem:         p,
		History:         prior,
		StudentResponse: reply,
		HintRequested:   prelim.PreliminaryHint,
		StuckTurns:      prelim.StuckTurns,
		Correction:      correctionFor(p),
	}
	utt, err := s.gen.Turn(ctx, req)
	if err != nil {
		s.logger.Warn("tutor utterance failed",
			zap.String("session", code), zap.Int("problem", p.ID), zap.Error(err))
		return nil, s.generationError(ctx, "generate tutor reply", err)
	}

	// Phase 2: the tutor's own words can upgrade the turn to progress.
	decision := hint.Reconcile(prelim, progress.DetectsValidation(utt.Text), utt.HintIncluded)
	regenerated := false
	if decision.Flipped && s.cfg.RegenerateOnHintFlip {
		utt, regenerated = s.regenerate(ctx, req, utt)
	}

	now := s.now()
	step := session.RecordStep(p, session.Step{
		TutorPrompt:     utt.Text,
		StudentResponse: &reply,
		HintUsed:        decision.HintUsed,
		ProgressMade:    decision.ProgressMade,
		StuckTurns:      stuckAfter(decision),
	}, now)
	meter := s.meter.Update(work, step)

	check := s.detector.Detect(ctx, reply, p, prior)
	p.LastAnswerCheck = &check
	s.metrics.CompletionChecked(check.Source, check.Completed, check.Correct)

	work.AppendTranscript(session.SpeakerStudent, reply, now)
	work.AppendTranscript(session.SpeakerTutor, utt.Text, now)

	var quizSource string
	if assessment.ShouldStart(p, check) {
		approach := assessment.ExtractApproach(p.Steps)
		questions, source := s.quiz.Generate(ctx, p, approach)
		if _, err := assessment.Start(p, approach, questions); err != nil {
			s.logger.Warn("could not start learning check",
				zap.String("session", code), zap.Int("problem", p.ID), zap.Error(err))
		} else {
			quizSource = source
			work.AppendTranscript(session.SpeakerSystem,
				fmt.Sprintf("Quick check: answer %d questions about how you solved it.", len(questions)), now)
		}
	}

	meter.Completed = streak.Deliver(work)

	out, err := s.persist(ctx, "record turn", code, work, from)
	if err != nil {
		if session.IsTimeout(err) {
			s.metrics.TurnFailed("timeout")
		}
		return nil, err
	}

	elapsed := time.Since(start)
	s.logger.Info("turn recorded",
		zap.String("session", code),
		zap.Int("problem", p.ID),
		zap.Int("step", step.Number),
		zap.Bool("progress", step.ProgressMade),
		zap.Bool("hint", step.HintUsed),
		zap.Int("stuck_turns", step.StuckTurns),
		zap.String("completion", check.Source),
		zap.Duration("elapsed", elapsed))
	s.metrics.TurnRecorded(step.ProgressMade, step.HintUsed, decision.Flipped, elapsed)
	s.announceTurn(code, p.ID, step, decision, analysis, check)
	if decision.Flipped {
		s.emit(events.HintWithheld, code, p.ID, map[string]any{
			"step":        step.Number,
			"regenerated": regenerated,
		})
	}
	if meter.Completed {
		s.metrics.StreakCompleted()
		s.emit(events.StreakCompleted, code, p.ID, map[string]any{"completions": meter.Completions})
	}

	result := &TurnResult{
		Session:     out,
		ProblemID:   p.ID,
		Step:        step,
		Analysis:    analysis,
		Decision:    decision,
		Regenerated: regenerated,
		Streak:      meter,
		AnswerCheck: check,
	}
	if quizSource != "" {
		saved, err := out.Problem(p.ID)
		if err == nil {
			result.Assessment = saved.LearningAssessment
		}
		result.QuizSource = quizSource
		s.metrics.QuizGenerated(quizSource)
		s.emit(events.QuizGenerated, code, p.ID, map[string]any{
			"source":    quizSource,
			"questions": len(p.LearningAssessment.MCQuestions),
		})
	}
	return result, nil
}

// regenerate asks once more without a hint request. The new text is kept
// only if it still reads as validation, so the recorded progress flag
// keeps matching what the student sees.
func (s *Service) regenerate(ctx context.Context, req TurnRequest, orig Utterance) (Utterance, bool) {
	req.HintRequested = false
	req.Regenerate = true
	utt, err := s.gen.Turn(ctx, req)
	switch {
	case err != nil:
		s.logger.Warn("regeneration after dropped hint failed, keeping original", zap.Error(err))
		return orig, false
	case !progress.DetectsValidation(utt.Text):
		s.logger.Debug("regenerated reply no longer validates, keeping original")
		return orig, false
	}
	return utt, true
}

// correctionFor returns the previous judgment when the model found a final
// but incorrect answer. Fallback judgments never claim correctness, so
// they carry no correction.
func correctionFor(p *session.Problem) *session.AnswerCheck {
	c := p.LastAnswerCheck
	if c == nil || c.Source != completion.SourceLLM || !c.Completed || c.Correct {
		return nil
	}
	cp := *c
	return &cp
}

// stuckAfter is the stuck-turn count ending at the step being recorded.
func stuckAfter(d hint.Decision) int {
	switch {
	case d.ProgressMade:
		return 0
	case d.HintUsed:
		return d.StuckTurns
	}
	return d.StuckTurns + 1
}

func (s *Service) announceTurn(code string, problemID int, st session.Step, d hint.Decision, a progress.Analysis, check session.AnswerCheck) {
	s.emit(events.TurnRecorded, code, problemID, map[string]any{
		"step":               st.Number,
		"progress_made":      st.ProgressMade,
		"hint_used":          st.HintUsed,
		"stuck_turns":        st.StuckTurns,
		"hint_state":         d.State,
		"heuristic_progress": d.HeuristicProgress,
		"tutor_validated":    d.TutorValidated,
		"signals":            a.Signals,
		"completion_source":  check.Source,
		"answer_completed":   check.Completed,
		"answer_correct":     check.Correct,
	})
}
