// Package progress classifies a single tutoring turn: whether the student
// moved forward, and whether the tutor's reply validated the student.
package progress

import (
	"github.com/abhisek/socratic/internal/lexicon"
	"github.com/abhisek/socratic/internal/session"
)

// Analysis is the heuristic reading of a student reply.
type Analysis struct {
	MadeProgress  bool
	ProgressScore int
	StuckScore    int

	// Signals lists the names of the pattern sets that matched.
	Signals []string
}

var (
	progressSignals = []*lexicon.PatternSet{
		lexicon.Affirmation,
		lexicon.ReasoningVerb,
		lexicon.BareNumber,
		lexicon.CausalConnective,
		lexicon.MathExpression,
	}
	stuckSignals = []*lexicon.PatternSet{
		lexicon.HelpSeeking,
		lexicon.QuestionOnly,
		lexicon.NearEmpty,
	}
)

// minProgressLength is the reply length (in bytes, after trimming) a
// non-numeric reply must exceed to count as progress.
const minProgressLength = 3

// Analyze scores a student reply against the progress and stuck pattern
// sets. Each matching set adds one point. Only the reply itself is scored:
// repeating an earlier answer is not a stuck signal, since a narrow
// question often has the same short answer as the one before it.
//
// Progress requires more progress than stuck points, and either some
// length or a purely numeric reply, so short numeric answers to narrow
// questions are not penalized for brevity.
func Analyze(studentResponse string, _ []session.Step) Analysis {
	text := lexicon.Normalize(studentResponse)

	var a Analysis
	for _, set := range progressSignals {
		if set.Match(text) {
			a.ProgressScore++
			a.Signals = append(a.Signals, set.Name)
		}
	}
	for _, set := range stuckSignals {
		if set.Match(text) {
			a.StuckScore++
			a.Signals = append(a.Signals, set.Name)
		}
	}

	a.MadeProgress = a.ProgressScore > a.StuckScore &&
		(len(text) > minProgressLength || lexicon.IsDigits(text))
	return a
}
