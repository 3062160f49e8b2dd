package session

import (
	"strconv"
	"strings"
	"time"

	"github.com/abhisek/socratic/internal/lexicon"
)

// Draft is a problem as submitted by the student.
type Draft struct {
	Text string

	// Category is optional; when empty it is inferred from the text.
	Category Category

	// Difficulty is optional; zero means MinDifficulty.
	Difficulty int
}

// New creates an empty session. A non-positive ttl never expires.
func New(code string, now time.Time, ttl time.Duration) *Session {
	s := &Session{
		Code:       code,
		CreatedAt:  now,
		Problems:   []Problem{},
		Transcript: []TranscriptEntry{},
	}
	if ttl > 0 {
		s.ExpiresAt = now.Add(ttl)
	}
	return s
}

// NewProblem validates and normalizes a draft. The returned problem has
// no ID until it is submitted.
func NewProblem(d Draft, now time.Time) (Problem, error) {
	text := strings.TrimSpace(d.Text)
	if text == "" {
		return Problem{}, &ValidationError{Field: "problem", Message: "problem text is empty"}
	}

	cat := d.Category
	if cat == "" {
		cat = ClassifyCategory(text)
	} else if !cat.Valid() {
		return Problem{}, &ValidationError{Field: "category", Message: "unknown category " + strconv.Quote(string(cat))}
	}

	diff := d.Difficulty
	if diff == 0 {
		diff = MinDifficulty
	}
	if diff < MinDifficulty || diff > MaxDifficulty {
		return Problem{}, &ValidationError{
			Field:   "difficulty",
			Message: "must be between " + strconv.Itoa(MinDifficulty) + " and " + strconv.Itoa(MaxDifficulty),
		}
	}

	return Problem{
		RawInput:   d.Text,
		Normalized: Normalize(text),
		Category:   cat,
		Difficulty: diff,
		Steps:      []Step{},
		CreatedAt:  now,
	}, nil
}

// CheckCanSubmit returns a ConflictError when a problem is active.
func (s *Session) CheckCanSubmit() error {
	for i := range s.Problems {
		if !s.Problems[i].Completed {
			return &ConflictError{Message: ErrProblemActive}
		}
	}
	return nil
}

// SubmitProblem appends p as the new active problem and returns a pointer
// to the stored copy.
func SubmitProblem(s *Session, p Problem) (*Problem, error) {
	if err := s.CheckCanSubmit(); err != nil {
		return nil, err
	}

	p.ID = s.NextProblemID()
	p.Completed = false
	p.CompletedAt = nil
	p.Steps = []Step{}
	p.LearningAssessment = nil
	s.Problems = append(s.Problems, p)

	id := p.ID
	s.CurrentProblemID = &id
	return &s.Problems[len(s.Problems)-1], nil
}

// CompleteProblem marks the problem completed and clears the active
// pointer. Completing an already completed problem is a no-op.
func CompleteProblem(s *Session, problemID int, now time.Time) error {
	p, err := s.Problem(problemID)
	if err != nil {
		return err
	}
	if !p.Completed {
		p.Completed = true
		t := now
		p.CompletedAt = &t
	}
	if s.CurrentProblemID != nil && *s.CurrentProblemID == problemID {
		s.CurrentProblemID = nil
	}
	return nil
}

// NextProblemID returns the next sequential problem id.
func (s *Session) NextProblemID() int {
	next := 1
	for _, p := range s.Problems {
		if p.ID >= next {
			next = p.ID + 1
		}
	}
	return next
}

// Problem looks up a problem by id.
func (s *Session) Problem(id int) (*Problem, error) {
	for i := range s.Problems {
		if s.Problems[i].ID == id {
			return &s.Problems[i], nil
		}
	}
	return nil, &NotFoundError{Resource: "problem", Key: strconv.Itoa(id)}
}

// ActiveProblem returns the problem current_problem_id points at.
func (s *Session) ActiveProblem() (*Problem, error) {
	if s.CurrentProblemID == nil {
		return nil, &NotFoundError{Resource: "active problem", Key: s.Code}
	}
	return s.Problem(*s.CurrentProblemID)
}

// AppendTranscript adds an entry to the transcript.
func (s *Session) AppendTranscript(speaker Speaker, message string, now time.Time) TranscriptEntry {
	e := TranscriptEntry{Speaker: speaker, Message: message, Timestamp: now}
	s.Transcript = append(s.Transcript, e)
	return e
}

var operatorReplacer = strings.NewReplacer(
	"×", "*", "·", "*", "÷", "/", "−", "-", "–", "-", "⁄", "/", "＝", "=",
)

// Normalize collapses whitespace and maps unicode operators to ASCII.
func Normalize(text string) string {
	text = operatorReplacer.Replace(text)
	return strings.Join(strings.Fields(text), " ")
}

// wordProblemMinWords is the word count above which prose is treated as a
// word problem rather than a bare expression.
const wordProblemMinWords = 8

// ClassifyCategory infers a category from problem text.
func ClassifyCategory(text string) Category {
	t := lexicon.Normalize(text)
	words := len(strings.Fields(t))

	switch {
	case lexicon.GeometryTerms.Match(t):
		return CategoryGeometry
	case words < wordProblemMinWords && lexicon.AlgebraicForm.Match(t):
		return CategoryAlgebra
	case words >= wordProblemMinWords && lexicon.MultiStepCue.Match(t):
		return CategoryMultiStep
	case words >= wordProblemMinWords:
		return CategoryWord
	case lexicon.AlgebraicForm.Match(t):
		return CategoryAlgebra
	}
	return CategoryArithmetic
}
