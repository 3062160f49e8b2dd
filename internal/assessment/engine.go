// Package assessment runs the post-solution learning check: a short MC
// quiz over the approach the student used, scored against a pass
// threshold, feeding a confidence metric.
package assessment

import (
	"fmt"
	"math"
	"strings"

	"github.com/abhisek/socratic/internal/lexicon"
	"github.com/abhisek/socratic/internal/session"
)

// Policy constants.
const (
	// PassThreshold is compared against the score rounded to two decimals,
	// so two of three correct passes.
	PassThreshold = 0.67

	mcWeight       = 0.6
	transferWeight = 0.4
)

// ShouldStart reports whether a completion judgment opens the quiz for p.
func ShouldStart(p *session.Problem, check session.AnswerCheck) bool {
	return check.Completed && check.Correct && !p.Completed && p.LearningAssessment == nil
}

// Start attaches a fresh assessment in the mc_in_progress phase.
func Start(p *session.Problem, approach string, questions []session.MCQuestion) (*session.LearningAssessment, error) {
	if p.LearningAssessment != nil {
		return nil, &session.ConflictError{Message: fmt.Sprintf("problem %d already has an assessment", p.ID)}
	}
	if len(questions) < MinQuestions || len(questions) > MaxQuestions {
		return nil, &session.ValidationError{Field: "mc_questions", Message: fmt.Sprintf("%d questions, want %d..%d", len(questions), MinQuestions, MaxQuestions)}
	}
	for _, q := range questions {
		if err := q.Validate(); err != nil {
			return nil, &session.ValidationError{Field: "mc_questions", Message: err.Error()}
		}
	}
	p.LearningAssessment = &session.LearningAssessment{
		Phase:             session.PhaseMCInProgress,
		ApproachExtracted: approach,
		MCQuestions:       questions,
	}
	return p.LearningAssessment, nil
}

// Outcome is the result of answering one question.
type Outcome struct {
	Question session.MCQuestion
	Correct  bool

	// Graded is true when this answer completed the quiz. Score and
	// Passed are only meaningful then.
	Graded bool
	Score  float64
	Passed bool
}

// Answer records the student's choice for a question. Questions may be
// re-answered until the last one is answered; that answer grades the quiz
// and closes the assessment.
func Answer(p *session.Problem, questionID string, selected int) (Outcome, error) {
	la := p.LearningAssessment
	if la == nil {
		return Outcome{}, &session.NotFoundError{Resource: "assessment", Key: fmt.Sprintf("problem %d", p.ID)}
	}
	if la.Phase != session.PhaseMCInProgress {
		return Outcome{}, &session.ConflictError{Message: fmt.Sprintf("quiz for problem %d is already graded", p.ID)}
	}
	if selected < 0 || selected >= session.OptionCount {
		return Outcome{}, &session.ValidationError{Field: "selected_index", Message: fmt.Sprintf("%d out of range 0..%d", selected, session.OptionCount-1)}
	}

	idx := -1
	for i := range la.MCQuestions {
		if la.MCQuestions[i].ID == questionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Outcome{}, &session.NotFoundError{Resource: "question", Key: questionID}
	}

	q := &la.MCQuestions[idx]
	choice := selected
	correct := selected == q.CorrectAnswerIndex
	q.StudentAnswerIndex = &choice
	q.Correct = &correct

	out := Outcome{Question: *q, Correct: correct}
	score, ok := Score(la.MCQuestions)
	if !ok {
		return out, nil
	}

	grade(la, score)
	out.Graded = true
	out.Score = score
	out.Passed = la.MCQuizPassed
	return out, nil
}

func grade(la *session.LearningAssessment, score float64) {
	la.MCScore = &score
	la.MCQuizPassed = Passed(score)
	la.MCQuizFailed = !la.MCQuizPassed
	conf := Confidence(score, la.TransferSuccess)
	la.LearningConfidence = &conf
	la.AssessmentCompleted = true
	la.Phase = session.PhaseMCGraded
}

// Close moves a graded assessment to its terminal phase.
func Close(la *session.LearningAssessment) {
	if la != nil && la.Phase == session.PhaseMCGraded {
		la.Phase = session.PhaseClosed
	}
}

// Score returns correct/total once every question is answered.
func Score(qs []session.MCQuestion) (float64, bool) {
	if len(qs) == 0 {
		return 0, false
	}
	correct := 0
	for _, q := range qs {
		if !q.Answered() {
			return 0, false
		}
		if *q.StudentAnswerIndex == q.CorrectAnswerIndex {
			correct++
		}
	}
	return float64(correct) / float64(len(qs)), true
}

// Passed applies the pass threshold to score rounded to two decimals.
func Passed(score float64) bool {
	return math.Round(score*100)/100 >= PassThreshold
}

// Confidence blends the quiz score with the transfer result when there
// is one.
func Confidence(mcScore float64, transfer *bool) float64 {
	if transfer == nil {
		return mcScore
	}
	t := 0.0
	if *transfer {
		t = 1
	}
	return mcWeight*mcScore + transferWeight*t
}

// RecordTransfer stores a transfer-problem result on a graded assessment
// and recomputes confidence.
func RecordTransfer(p *session.Problem, success bool) (*session.LearningAssessment, error) {
	la := p.LearningAssessment
	if la == nil {
		return nil, &session.NotFoundError{Resource: "assessment", Key: fmt.Sprintf("problem %d", p.ID)}
	}
	if la.MCScore == nil {
		return nil, &session.ConflictError{Message: fmt.Sprintf("quiz for problem %d is not graded yet", p.ID)}
	}
	s := success
	la.TransferSuccess = &s
	conf := Confidence(*la.MCScore, la.TransferSuccess)
	la.LearningConfidence = &conf
	return la, nil
}

// maxApproachSteps bounds how many replies make up the approach summary.
const maxApproachSteps = 3

// ExtractApproach summarizes how the student solved the problem from the
// replies that made progress, preferring ones that show reasoning or work.
func ExtractApproach(steps []session.Step) string {
	var picked []string
	for _, st := range session.StudentSteps(steps) {
		if !st.ProgressMade {
			continue
		}
		text := strings.TrimSpace(*st.StudentResponse)
		norm := lexicon.Normalize(text)
		if lexicon.ReasoningVerb.Match(norm) || lexicon.MathExpression.Match(norm) || lexicon.CausalConnective.Match(norm) {
			picked = append(picked, text)
		}
	}
	if len(picked) == 0 {
		for _, st := range session.StudentSteps(steps) {
			if st.ProgressMade {
				picked = append(picked, strings.TrimSpace(*st.StudentResponse))
			}
		}
	}
	if len(picked) > maxApproachSteps {
		picked = picked[len(picked)-maxApproachSteps:]
	}
	if len(picked) == 0 {
		return "worked through the problem step by step with the tutor"
	}
	return strings.Join(picked, "; ")
}
