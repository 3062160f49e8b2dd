package session

// Patch is a partial session update with merge semantics: nil fields are
// left untouched and transcript entries are appended.
type Patch struct {
	Problems         []Problem
	CurrentProblemID *ProblemPointer
	AppendTranscript []TranscriptEntry
	Streak           *StreakFields
}

// ProblemPointer wraps the nullable current problem id so a patch can
// distinguish "clear" from "leave unchanged".
type ProblemPointer struct {
	ID *int
}

// StreakFields are the streak scalars of a session.
type StreakFields struct {
	Progress     int
	Completions  int
	Completed    bool
	ResetPending bool
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Problems == nil && p.CurrentProblemID == nil && len(p.AppendTranscript) == 0 && p.Streak == nil
}

// Apply merges p into s.
func (s *Session) Apply(p Patch) {
	if p.Problems != nil {
		s.Problems = p.Problems
	}
	if p.CurrentProblemID != nil {
		s.CurrentProblemID = p.CurrentProblemID.ID
	}
	if len(p.AppendTranscript) > 0 {
		s.Transcript = append(s.Transcript, p.AppendTranscript...)
	}
	if p.Streak != nil {
		s.StreakProgress = p.Streak.Progress
		s.StreakCompletions = p.Streak.Completions
		s.StreakCompleted = p.Streak.Completed
		s.StreakResetPending = p.Streak.ResetPending
	}
}

// PatchFrom builds the patch that carries s's mutable fields, appending
// the transcript entries from index transcriptFrom onwards.
func PatchFrom(s *Session, transcriptFrom int) Patch {
	var appended []TranscriptEntry
	if transcriptFrom < len(s.Transcript) {
		appended = append(appended, s.Transcript[transcriptFrom:]...)
	}
	return Patch{
		Problems:         s.Problems,
		CurrentProblemID: &ProblemPointer{ID: s.CurrentProblemID},
		AppendTranscript: appended,
		Streak: &StreakFields{
			Progress:     s.StreakProgress,
			Completions:  s.StreakCompletions,
			Completed:    s.StreakCompleted,
			ResetPending: s.StreakResetPending,
		},
	}
}

// Clone returns a deep copy of s, so callers can mutate it without
// touching a stored value.
func (s *Session) Clone() *Session {
	c := *s
	if s.Problems != nil {
		c.Problems = make([]Problem, len(s.Problems))
		for i, p := range s.Problems {
			c.Problems[i] = p.clone()
		}
	}
	c.Transcript = cloneSlice(s.Transcript)
	c.CurrentProblemID = clonePtr(s.CurrentProblemID)
	return &c
}

func (p Problem) clone() Problem {
	c := p
	c.Steps = cloneSlice(p.Steps)
	c.LastAnswerCheck = clonePtr(p.LastAnswerCheck)
	c.CompletedAt = clonePtr(p.CompletedAt)
	if p.LearningAssessment != nil {
		la := *p.LearningAssessment
		la.MCQuestions = make([]MCQuestion, len(p.LearningAssessment.MCQuestions))
		for i, q := range p.LearningAssessment.MCQuestions {
			q.Options = cloneSlice(q.Options)
			q.StudentAnswerIndex = clonePtr(q.StudentAnswerIndex)
			q.Correct = clonePtr(q.Correct)
			la.MCQuestions[i] = q
		}
		la.MCScore = clonePtr(la.MCScore)
		la.TransferSuccess = clonePtr(la.TransferSuccess)
		la.LearningConfidence = clonePtr(la.LearningConfidence)
		c.LearningAssessment = &la
	}
	return c
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append(make([]T, 0, len(s)), s...)
}
