package tutor

import (
	"context"
	"time"

	"github.com/abhisek/socratic/internal/session"
)

// ProblemSummary is the teacher's view of one problem.
type ProblemSummary struct {
	ID         int              `json:"id"`
	Text       string           `json:"text"`
	Category   session.Category `json:"category"`
	Difficulty int              `json:"difficulty"`
	Completed  bool             `json:"completed"`

	StudentTurns  int `json:"student_turns"`
	ProgressTurns int `json:"progress_turns"`
	HintsUsed     int `json:"hints_used"`

	// MaxStuckTurns is the longest stuck run seen on the problem.
	MaxStuckTurns int `json:"max_stuck_turns"`

	Phase              session.AssessmentPhase `json:"assessment_phase,omitempty"`
	MCScore            *float64                `json:"mc_score,omitempty"`
	MCQuizFailed       bool                    `json:"mc_quiz_failed"`
	TransferSuccess    *bool                   `json:"transfer_success,omitempty"`
	LearningConfidence *float64                `json:"learning_confidence,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Summary is the teacher's view of one session.
type Summary struct {
	Code              string           `json:"code"`
	CreatedAt         time.Time        `json:"created_at"`
	ExpiresAt         *time.Time       `json:"expires_at,omitempty"`
	StreakCompletions int              `json:"streak_completions"`
	TotalHints        int              `json:"total_hints"`
	FlaggedProblems   []int            `json:"flagged_problems"`
	Problems          []ProblemSummary `json:"problems"`
}

// TeacherSummary reports per-problem effort and learning-check results for
// one session. Problems whose quiz was failed are listed as flagged.
func (s *Service) TeacherSummary(ctx context.Context, code string) (*Summary, error) {
	sess, err := s.GetSession(ctx, code)
	if err != nil {
		return nil, err
	}
	return Summarize(sess), nil
}

// Summarize builds the teacher summary of sess.
func Summarize(sess *session.Session) *Summary {
	sum := &Summary{
		Code:              sess.Code,
		CreatedAt:         sess.CreatedAt,
		StreakCompletions: sess.StreakCompletions,
		FlaggedProblems:   []int{},
		Problems:          make([]ProblemSummary, 0, len(sess.Problems)),
	}
	if !sess.ExpiresAt.IsZero() {
		t := sess.ExpiresAt
		sum.ExpiresAt = &t
	}

	for _, p := range sess.Problems {
		ps := ProblemSummary{
			ID:          p.ID,
			Text:        p.Normalized,
			Category:    p.Category,
			Difficulty:  p.Difficulty,
			Completed:   p.Completed,
			HintsUsed:   p.HintsUsedTotal,
			CreatedAt:   p.CreatedAt,
			CompletedAt: p.CompletedAt,
		}
		for _, st := range session.StudentSteps(p.Steps) {
			ps.StudentTurns++
			if st.ProgressMade {
				ps.ProgressTurns++
			}
			ps.MaxStuckTurns = max(ps.MaxStuckTurns, st.StuckTurns)
		}
		if la := p.LearningAssessment; la != nil {
			ps.Phase = la.Phase
			ps.MCScore = la.MCScore
			ps.MCQuizFailed = la.MCQuizFailed
			ps.TransferSuccess = la.TransferSuccess
			ps.LearningConfidence = la.LearningConfidence
			if la.MCQuizFailed {
				sum.FlaggedProblems = append(sum.FlaggedProblems, p.ID)
			}
		}
		sum.TotalHints += p.HintsUsedTotal
		sum.Problems = append(sum.Problems, ps)
	}
	return sum
}
