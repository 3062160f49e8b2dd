// Package hint decides when a tutor turn must carry a concrete hint.
//
// The decision runs in two phases. The preliminary phase uses only the
// heuristic reading of the student reply and feeds the utterance request.
// After the utterance is generated, the tutor-validation reading can
// upgrade the turn to progress, and Reconcile recomputes the hint flag.
package hint

import "github.com/abhisek/socratic/internal/session"

// StuckThreshold is the number of consecutive stuck turns after which a
// hint is warranted.
const StuckThreshold = 2

// State is the per-problem hint state.
type State string

const (
	StateExploring      State = "exploring"
	StateStuckBuilding  State = "stuck_building"
	StateStuckConfirmed State = "stuck_confirmed"
)

// StateFor maps a stuck-turn count to a state.
func StateFor(stuckTurns int) State {
	switch {
	case stuckTurns >= StuckThreshold:
		return StateStuckConfirmed
	case stuckTurns > 0:
		return StateStuckBuilding
	}
	return StateExploring
}

// StuckTurns counts the trailing run of prior student steps without
// progress. Hinted steps are skipped while walking back: they neither
// count as stuck nor end the run. The seed step is not a student turn and
// is ignored.
func StuckTurns(prior []session.Step) int {
	n := 0
	for i := len(prior) - 1; i >= 0; i-- {
		st := prior[i]
		if st.IsSeed() || st.HintUsed {
			continue
		}
		if st.ProgressMade {
			break
		}
		n++
	}
	return n
}

// ShouldHint reports whether the turn must include a hint.
func ShouldHint(stuckTurns int, progressMade bool) bool {
	return stuckTurns >= StuckThreshold && !progressMade
}

// Decision captures both phases of a turn's hint decision.
type Decision struct {
	StuckTurns int
	State      State

	// HeuristicProgress is the progress analyzer's reading.
	HeuristicProgress bool

	// PreliminaryHint is the flag sent with the utterance request.
	PreliminaryHint bool

	// TutorValidated is the tutor-validation detector's reading.
	TutorValidated bool

	// ProgressMade and HintUsed are the values recorded on the step.
	ProgressMade bool
	HintUsed     bool

	// Flipped is set when the hint was requested but reconciliation
	// dropped it.
	Flipped bool
}

// Preliminary computes the pre-generation decision.
func Preliminary(stuckTurns int, heuristicProgress bool) Decision {
	hint := ShouldHint(stuckTurns, heuristicProgress)
	return Decision{
		StuckTurns:        stuckTurns,
		State:             StateFor(stuckTurns),
		HeuristicProgress: heuristicProgress,
		PreliminaryHint:   hint,
		ProgressMade:      heuristicProgress,
		HintUsed:          hint,
	}
}

// Reconcile folds the tutor-validation reading into a preliminary
// decision. Tutor validation overrides the heuristic; the hint flag is
// recomputed from the final progress value and can only be dropped, never
// added, since the utterance has already been generated. hintIncluded is
// the generator's report of whether the text actually carries a hint.
func Reconcile(prelim Decision, tutorValidated, hintIncluded bool) Decision {
	d := prelim
	d.TutorValidated = tutorValidated
	d.ProgressMade = prelim.HeuristicProgress || tutorValidated
	d.HintUsed = prelim.PreliminaryHint && hintIncluded && ShouldHint(prelim.StuckTurns, d.ProgressMade)
	d.Flipped = prelim.PreliminaryHint && !d.HintUsed
	return d
}
