package progress

import "testing"

func TestClassifyValidation(t *testing.T) {
	tests := []struct {
		utterance string
		want      Strength
	}{
		{"That's correct! Great job.", StrengthStrong},
		{"Exactly. So what comes next?", StrengthStrong},
		{"Great job! Now, what would you do with the 3?", StrengthStrong},
		{"You've got it, 12 is the answer.", StrengthStrong},
		{"Yes! That is the total.", StrengthStrong},
		{"Good thinking. What happens to the other side?", StrengthWeak},
		{"Great job, but check the sign on the 4.", StrengthCorrection},
		{"Not quite. What is 3 times 4?", StrengthCorrection},
		{"Almost there, try again.", StrengthCorrection},
		{"However, we still need the area.", StrengthCorrection},
		{"What operation does the word 'total' suggest?", StrengthNone},
		{"Let's think about what the question is asking. Exactly how many apples does Sam start with?", StrengthNone},
	}
	for _, tt := range tests {
		got := ClassifyValidation(tt.utterance)
		if got.Strength != tt.want {
			t.Errorf("ClassifyValidation(%q) = %q, want %q", tt.utterance, got.Strength, tt.want)
		}
		wantValidated := tt.want == StrengthStrong || tt.want == StrengthWeak
		if got.Validated != wantValidated {
			t.Errorf("ClassifyValidation(%q).Validated = %v, want %v", tt.utterance, got.Validated, wantValidated)
		}
	}
}

func TestDetectsValidation_Idempotent(t *testing.T) {
	for _, u := range []string{"That's correct! Great job.", "Not quite.", "", "Well done!"} {
		if DetectsValidation(u) != DetectsValidation(u) {
			t.Errorf("DetectsValidation(%q) not stable", u)
		}
	}
}

func TestValidationOverridesStuckReply(t *testing.T) {
	a := Analyze("idk", nil)
	if a.MadeProgress {
		t.Fatal("analyzer should read \"idk\" as no progress")
	}
	if !DetectsValidation("That's correct! Great job.") {
		t.Fatal("detector should read the utterance as validation")
	}
}
