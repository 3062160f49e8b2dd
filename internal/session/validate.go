package session

import "fmt"

// Validate checks the structural invariants of a session. Stores call it
// before every write so an inconsistent record is never persisted.
func (s *Session) Validate() error {
	if s.Code == "" {
		return &ValidationError{Field: "code", Message: "empty session code"}
	}
	if s.StreakProgress < 0 || s.StreakProgress > 100 {
		return &ValidationError{Field: "streak_progress", Message: fmt.Sprintf("%d out of range 0..100", s.StreakProgress)}
	}

	seen := make(map[int]bool, len(s.Problems))
	active := 0
	for i := range s.Problems {
		p := &s.Problems[i]
		if p.ID <= 0 || seen[p.ID] {
			return &ValidationError{Field: "problems", Message: fmt.Sprintf("bad or duplicate problem id %d", p.ID)}
		}
		seen[p.ID] = true
		if !p.Completed {
			active++
		}
		if err := p.validate(); err != nil {
			return err
		}
	}
	if active > 1 {
		return &ValidationError{Field: "problems", Message: fmt.Sprintf("%d active problems", active)}
	}

	if s.CurrentProblemID != nil {
		p, err := s.Problem(*s.CurrentProblemID)
		if err != nil {
			return &ValidationError{Field: "current_problem_id", Message: fmt.Sprintf("points at missing problem %d", *s.CurrentProblemID)}
		}
		if p.Completed {
			return &ValidationError{Field: "current_problem_id", Message: fmt.Sprintf("points at completed problem %d", p.ID)}
		}
	} else if active > 0 {
		return &ValidationError{Field: "current_problem_id", Message: "active problem without current pointer"}
	}
	return nil
}

func (p *Problem) validate() error {
	if !p.Category.Valid() {
		return &ValidationError{Field: "category", Message: fmt.Sprintf("problem %d: unknown category %q", p.ID, p.Category)}
	}
	hints := 0
	for i, st := range p.Steps {
		if st.Number != i+1 {
			return &ValidationError{Field: "steps", Message: fmt.Sprintf("problem %d: step %d numbered %d", p.ID, i+1, st.Number)}
		}
		if st.IsSeed() && i != 0 {
			return &ValidationError{Field: "steps", Message: fmt.Sprintf("problem %d: step %d has no student response", p.ID, st.Number)}
		}
		if st.HintUsed {
			hints++
		}
	}
	if hints != p.HintsUsedTotal {
		return &ValidationError{Field: "hints_used_total", Message: fmt.Sprintf("problem %d: total %d but %d hinted steps", p.ID, p.HintsUsedTotal, hints)}
	}
	if la := p.LearningAssessment; la != nil {
		return la.validate(p.ID)
	}
	return nil
}

func (la *LearningAssessment) validate(problemID int) error {
	for _, q := range la.MCQuestions {
		if err := q.Validate(); err != nil {
			return &ValidationError{Field: "mc_questions", Message: fmt.Sprintf("problem %d: %v", problemID, err)}
		}
	}
	if la.MCScore != nil && (*la.MCScore < 0 || *la.MCScore > 1) {
		return &ValidationError{Field: "mc_score", Message: fmt.Sprintf("problem %d: %f out of range", problemID, *la.MCScore)}
	}
	if la.MCQuizPassed && la.MCQuizFailed {
		return &ValidationError{Field: "mc_quiz_passed", Message: fmt.Sprintf("problem %d: quiz both passed and failed", problemID)}
	}
	return nil
}

// Validate checks that q has exactly OptionCount options and in-range
// answer indexes.
func (q MCQuestion) Validate() error {
	if q.Question == "" {
		return fmt.Errorf("question %s: empty text", q.ID)
	}
	if len(q.Options) != OptionCount {
		return fmt.Errorf("question %s: %d options, want %d", q.ID, len(q.Options), OptionCount)
	}
	if q.CorrectAnswerIndex < 0 || q.CorrectAnswerIndex >= OptionCount {
		return fmt.Errorf("question %s: correct index %d out of range", q.ID, q.CorrectAnswerIndex)
	}
	if q.StudentAnswerIndex != nil && (*q.StudentAnswerIndex < 0 || *q.StudentAnswerIndex >= OptionCount) {
		return fmt.Errorf("question %s: answer index %d out of range", q.ID, *q.StudentAnswerIndex)
	}
	return nil
}
