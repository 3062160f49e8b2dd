package session

import "time"

// Category classifies a submitted problem.
type Category string

const (
	CategoryArithmetic Category = "arithmetic"
	CategoryAlgebra    Category = "algebra"
	CategoryGeometry   Category = "geometry"
	CategoryWord       Category = "word"
	CategoryMultiStep  Category = "multi-step"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryArithmetic, CategoryAlgebra, CategoryGeometry, CategoryWord, CategoryMultiStep:
		return true
	}
	return false
}

// Speaker identifies who produced a transcript entry.
type Speaker string

const (
	SpeakerStudent Speaker = "student"
	SpeakerTutor   Speaker = "tutor"
	SpeakerSystem  Speaker = "system"
)

// Difficulty bounds.
const (
	MinDifficulty = 1
	MaxDifficulty = 5
)

// Session is a single student's tutoring conversation. It is the unit of
// persistence: stores read and write whole sessions.
type Session struct {
	// Code is the short human-shareable key.
	Code string `json:"code" bson:"_id"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	ExpiresAt time.Time `json:"expires_at" bson:"expires_at,omitempty"`

	// Problems is ordered by submission. Problems are never removed.
	Problems []Problem `json:"problems" bson:"problems"`

	// CurrentProblemID points at the single active problem, or is nil.
	CurrentProblemID *int `json:"current_problem_id" bson:"current_problem_id"`

	// Transcript is append-only.
	Transcript []TranscriptEntry `json:"transcript" bson:"transcript"`

	// StreakProgress is the 0-100 meter value.
	StreakProgress int `json:"streak_progress" bson:"streak_progress"`

	// StreakCompletions counts how many times the meter reached 100.
	StreakCompletions int `json:"streak_completions" bson:"streak_completions"`

	// StreakCompleted is the one-shot celebration flag. It is cleared as
	// soon as it has been delivered.
	StreakCompleted bool `json:"streak_completed" bson:"streak_completed"`

	// StreakResetPending is set on the step that completes a streak so the
	// meter restarts from 0 on the following step.
	StreakResetPending bool `json:"streak_reset_pending" bson:"streak_reset_pending"`
}

// Expired reports whether the session's TTL has passed.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// TranscriptEntry is one message in the session transcript.
type TranscriptEntry struct {
	Speaker   Speaker   `json:"speaker" bson:"speaker"`
	Message   string    `json:"message" bson:"message"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// Problem is one math question inside a session.
type Problem struct {
	// ID is monotonic within the session, starting at 1.
	ID int `json:"id" bson:"id"`

	RawInput   string   `json:"raw_input" bson:"raw_input"`
	Normalized string   `json:"normalized" bson:"normalized"`
	Category   Category `json:"category" bson:"category"`
	Difficulty int      `json:"difficulty" bson:"difficulty"`

	Completed      bool `json:"completed" bson:"completed"`
	HintsUsedTotal int  `json:"hints_used_total" bson:"hints_used_total"`

	Steps []Step `json:"steps" bson:"steps"`

	// LastAnswerCheck is the completion judgment for the most recent reply.
	LastAnswerCheck *AnswerCheck `json:"last_answer_check,omitempty" bson:"last_answer_check,omitempty"`

	LearningAssessment *LearningAssessment `json:"learning_assessment,omitempty" bson:"learning_assessment,omitempty"`

	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
}

// Step is one tutor/student exchange. Steps are 1-indexed.
type Step struct {
	Number      int    `json:"step_number" bson:"step_number"`
	TutorPrompt string `json:"tutor_prompt" bson:"tutor_prompt"`

	// StudentResponse is nil only for the seed step.
	StudentResponse *string `json:"student_response" bson:"student_response"`

	HintUsed     bool      `json:"hint_used" bson:"hint_used"`
	ProgressMade bool      `json:"progress_made" bson:"progress_made"`
	StuckTurns   int       `json:"stuck_turns" bson:"stuck_turns"`
	Timestamp    time.Time `json:"timestamp" bson:"timestamp"`
}

// IsSeed reports whether the step is the opening tutor prompt.
func (st Step) IsSeed() bool {
	return st.StudentResponse == nil
}

// AnswerCheck is the solution-completion judgment for a student reply.
type AnswerCheck struct {
	Completed bool   `json:"completed" bson:"completed"`
	Correct   bool   `json:"correct" bson:"correct"`
	Reasoning string `json:"reasoning,omitempty" bson:"reasoning,omitempty"`
	Source    string `json:"source" bson:"source"`
}

// AssessmentPhase is the learning assessment state.
type AssessmentPhase string

const (
	PhaseNotStarted   AssessmentPhase = "not_started"
	PhaseMCInProgress AssessmentPhase = "mc_in_progress"
	PhaseMCGraded     AssessmentPhase = "mc_graded"
	PhaseClosed       AssessmentPhase = "closed"
)

// LearningAssessment is the post-solution quiz attached to a problem.
type LearningAssessment struct {
	Phase             AssessmentPhase `json:"phase" bson:"phase"`
	ApproachExtracted string          `json:"approach_extracted" bson:"approach_extracted"`
	MCQuestions       []MCQuestion    `json:"mc_questions" bson:"mc_questions"`

	// MCScore is set once every question has been answered.
	MCScore *float64 `json:"mc_score" bson:"mc_score"`

	TransferSuccess    *bool    `json:"transfer_success" bson:"transfer_success"`
	LearningConfidence *float64 `json:"learning_confidence" bson:"learning_confidence"`

	AssessmentCompleted bool `json:"assessment_completed" bson:"assessment_completed"`
	MCQuizPassed        bool `json:"mc_quiz_passed" bson:"mc_quiz_passed"`
	MCQuizFailed        bool `json:"mc_quiz_failed" bson:"mc_quiz_failed"`
}

// OptionCount is the fixed number of options on every MC question.
const OptionCount = 4

// MCQuestion is one multiple-choice question.
type MCQuestion struct {
	ID                 string   `json:"id" bson:"id"`
	Question           string   `json:"question" bson:"question"`
	Options            []string `json:"options" bson:"options"`
	CorrectAnswerIndex int      `json:"correct_answer_index" bson:"correct_answer_index"`
	StudentAnswerIndex *int     `json:"student_answer_index" bson:"student_answer_index"`
	Correct            *bool    `json:"correct" bson:"correct"`
}

// Answered reports whether the student has answered q.
func (q MCQuestion) Answered() bool {
	return q.StudentAnswerIndex != nil
}
