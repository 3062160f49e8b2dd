package api

import (
	"time"

	"github.com/abhisek/socratic/internal/session"
	"github.com/abhisek/socratic/internal/streak"
	"github.com/abhisek/socratic/internal/tutor"
)

// Student-facing views. A quiz question's correct_answer_index stays hidden
// until the whole quiz is graded.

type sessionView struct {
	*session.Session
	Problems []problemView `json:"problems"`
}

type problemView struct {
	session.Problem
	LearningAssessment *assessmentView `json:"learning_assessment,omitempty"`
}

type assessmentView struct {
	session.LearningAssessment
	MCQuestions []questionView `json:"mc_questions"`
}

type questionView struct {
	ID                 string   `json:"id"`
	Question           string   `json:"question"`
	Options            []string `json:"options"`
	StudentAnswerIndex *int     `json:"student_answer_index"`
	Correct            *bool    `json:"correct"`
	CorrectAnswerIndex *int     `json:"correct_answer_index,omitempty"`
}

func viewSession(s *session.Session) sessionView {
	v := sessionView{Session: s, Problems: make([]problemView, 0, len(s.Problems))}
	for i := range s.Problems {
		v.Problems = append(v.Problems, viewProblem(&s.Problems[i]))
	}
	return v
}

func viewProblem(p *session.Problem) problemView {
	return problemView{Problem: *p, LearningAssessment: viewAssessment(p.LearningAssessment)}
}

func viewAssessment(la *session.LearningAssessment) *assessmentView {
	if la == nil {
		return nil
	}
	graded := la.MCScore != nil
	v := &assessmentView{LearningAssessment: *la, MCQuestions: make([]questionView, 0, len(la.MCQuestions))}
	for _, q := range la.MCQuestions {
		v.MCQuestions = append(v.MCQuestions, viewQuestion(q, graded))
	}
	return v
}

func viewQuestion(q session.MCQuestion, graded bool) questionView {
	v := questionView{
		ID:                 q.ID,
		Question:           q.Question,
		Options:            q.Options,
		StudentAnswerIndex: q.StudentAnswerIndex,
		Correct:            q.Correct,
	}
	if graded {
		idx := q.CorrectAnswerIndex
		v.CorrectAnswerIndex = &idx
	}
	return v
}

type turnView struct {
	Session      sessionView         `json:"session"`
	ProblemID    int                 `json:"problem_id"`
	Step         session.Step        `json:"step"`
	TutorMessage string              `json:"tutor_message"`
	HintUsed     bool                `json:"hint_used"`
	ProgressMade bool                `json:"progress_made"`
	StuckTurns   int                 `json:"stuck_turns"`
	Streak       streak.Result       `json:"streak"`
	AnswerCheck  session.AnswerCheck `json:"answer_check"`
	Assessment   *assessmentView     `json:"assessment,omitempty"`
}

func viewTurn(r *tutor.TurnResult) turnView {
	return turnView{
		Session:      viewSession(r.Session),
		ProblemID:    r.ProblemID,
		Step:         r.Step,
		TutorMessage: r.Step.TutorPrompt,
		HintUsed:     r.Decision.HintUsed,
		ProgressMade: r.Decision.ProgressMade,
		StuckTurns:   r.Step.StuckTurns,
		Streak:       r.Streak,
		AnswerCheck:  r.AnswerCheck,
		Assessment:   viewAssessment(r.Assessment),
	}
}

type answerView struct {
	QuestionID string          `json:"question_id"`
	Correct    bool            `json:"correct"`
	Graded     bool            `json:"graded"`
	Score      *float64        `json:"score,omitempty"`
	Passed     *bool           `json:"passed,omitempty"`
	Assessment *assessmentView `json:"assessment"`
	Session    sessionView     `json:"session"`
}

func viewAnswer(r *tutor.AnswerResult) answerView {
	v := answerView{
		QuestionID: r.Outcome.Question.ID,
		Correct:    r.Outcome.Correct,
		Graded:     r.Outcome.Graded,
		Assessment: viewAssessment(r.Assessment),
		Session:    viewSession(r.Session),
	}
	if r.Outcome.Graded {
		v.Score = &r.Outcome.Score
		v.Passed = &r.Outcome.Passed
	}
	return v
}

type problemCreatedView struct {
	Problem problemView `json:"problem"`
	Session sessionView `json:"session"`
}

type loginView struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}
