// Package lexicon holds the named text-pattern sets shared by the
// heuristic classifiers (progress analysis, tutor validation, completion
// fallback and problem categorization). Keeping them in one place stops
// the call sites from drifting apart.
package lexicon

import (
	"regexp"
	"strings"
	"unicode"
)

// PatternSet is a named group of regular expressions with a single intent.
// A set matches when any of its patterns matches.
type PatternSet struct {
	// Name is a stable identifier used in logs and tests.
	Name string

	// Intent documents what a match means to callers.
	Intent string

	patterns []*regexp.Regexp
}

func newSet(name, intent string, exprs ...string) *PatternSet {
	ps := &PatternSet{Name: name, Intent: intent}
	for _, e := range exprs {
		ps.patterns = append(ps.patterns, regexp.MustCompile(e))
	}
	return ps
}

// Match reports whether any pattern in the set matches text.
// Callers are expected to pass text through Normalize first.
func (ps *PatternSet) Match(text string) bool {
	for _, re := range ps.patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// MatchPrefix reports whether any pattern matches within the first n
// runes of text.
func (ps *PatternSet) MatchPrefix(text string, n int) bool {
	r := []rune(text)
	if len(r) > n {
		text = string(r[:n])
	}
	return ps.Match(text)
}

// Normalize lowercases and trims text and folds typographic apostrophes
// so patterns only need to handle the ASCII form.
func Normalize(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	return strings.NewReplacer("’", "'", "‘", "'").Replace(text)
}

// IsDigits reports whether text is a non-empty run of ASCII digits.
func IsDigits(text string) bool {
	if text == "" {
		return false
	}
	for _, r := range text {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// HasAlphanumeric reports whether text contains a letter or digit.
func HasAlphanumeric(text string) bool {
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
