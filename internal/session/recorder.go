package session

import "time"

// RecordStep appends st to the problem. It assigns the step number and
// timestamp and bumps the hint total when the step used a hint. It is the
// write path for every student turn.
func RecordStep(p *Problem, st Step, now time.Time) Step {
	st.Number = len(p.Steps) + 1
	st.Timestamp = now
	p.Steps = append(p.Steps, st)
	if st.HintUsed {
		p.HintsUsedTotal++
	}
	return st
}

// SeedStep stores the opening tutor prompt as step 1 of a freshly
// submitted problem. The seed carries no student response and no flags,
// and is written in the same update that creates the problem.
func SeedStep(p *Problem, prompt string, now time.Time) Step {
	st := Step{Number: 1, TutorPrompt: prompt, Timestamp: now}
	p.Steps = []Step{st}
	return st
}

// StudentSteps returns the steps that carry a student reply.
func StudentSteps(steps []Step) []Step {
	out := make([]Step, 0, len(steps))
	for _, st := range steps {
		if !st.IsSeed() {
			out = append(out, st)
		}
	}
	return out
}
