// Package streak tracks consecutive hint-free progress within a session.
package streak

import "github.com/abhisek/socratic/internal/session"

const (
	// DefaultIncrement gives a five-step streak to completion.
	DefaultIncrement = 20

	// Max is the meter value at which a streak completes.
	Max = 100
)

// Meter updates session streak scalars one step at a time.
type Meter struct {
	Increment int
}

// NewMeter returns a meter with the given increment, falling back to
// DefaultIncrement for non-positive values.
func NewMeter(increment int) Meter {
	if increment <= 0 || increment > Max {
		increment = DefaultIncrement
	}
	return Meter{Increment: increment}
}

// Result is the meter state after a step.
type Result struct {
	Progress    int  `json:"progress"`
	Completions int  `json:"completions"`
	Completed   bool `json:"completed"`
}

// Update applies a recorded step to the session streak.
//
// A hinted step resets progress to 0. A hint-free progress step adds one
// increment, capped at Max; reaching Max marks the streak completed and
// schedules a reset for the next step, so the completing step still
// reports Max. A step that is neither leaves progress unchanged.
func (m Meter) Update(s *session.Session, st session.Step) Result {
	// An undelivered celebration does not carry over to a later step.
	s.StreakCompleted = false

	if s.StreakResetPending {
		s.StreakProgress = 0
		s.StreakResetPending = false
	}

	switch {
	case st.HintUsed:
		s.StreakProgress = 0
	case st.ProgressMade:
		s.StreakProgress = min(s.StreakProgress+m.Increment, Max)
		if s.StreakProgress == Max {
			s.StreakCompleted = true
			s.StreakCompletions++
			s.StreakResetPending = true
		}
	}

	return Result{
		Progress:    s.StreakProgress,
		Completions: s.StreakCompletions,
		Completed:   s.StreakCompleted,
	}
}

// Deliver returns the celebration flag and clears it.
func Deliver(s *session.Session) bool {
	completed := s.StreakCompleted
	s.StreakCompleted = false
	return completed
}
