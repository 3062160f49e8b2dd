package progress

import "github.com/abhisek/socratic/internal/lexicon"

// Strength describes how a tutor utterance was read.
type Strength string

const (
	StrengthNone       Strength = "none"
	StrengthCorrection Strength = "correction"
	StrengthStrong     Strength = "strong"
	StrengthWeak       Strength = "weak"
)

// validationWindow is how many runes from the start of the utterance a
// strong affirmation may appear in.
const validationWindow = 60

// Validation is the detector's reading of a tutor utterance.
type Validation struct {
	Validated bool
	Strength  Strength
}

// ClassifyValidation reads a generated tutor utterance. Any correction
// cue wins outright. Otherwise a strong affirmation near the start of the
// message counts as validation, and general encouragement anywhere is the
// weaker fallback. The detector prefers false negatives: a missed
// validation only delays credit, a false one can suppress a needed hint.
func ClassifyValidation(utterance string) Validation {
	text := lexicon.Normalize(utterance)

	if lexicon.Correction.Match(text) {
		return Validation{Strength: StrengthCorrection}
	}
	if lexicon.StrongValidation.MatchPrefix(text, validationWindow) {
		return Validation{Validated: true, Strength: StrengthStrong}
	}
	if lexicon.WeakValidation.Match(text) {
		return Validation{Validated: true, Strength: StrengthWeak}
	}
	return Validation{Strength: StrengthNone}
}

// DetectsValidation reports whether the tutor utterance positively
// validates the student's last answer.
func DetectsValidation(utterance string) bool {
	return ClassifyValidation(utterance).Validated
}
