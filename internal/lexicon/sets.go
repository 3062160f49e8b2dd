package lexicon

// Student progress signals.
var (
	Affirmation = newSet("affirmation",
		"student agrees with or acknowledges the tutor's last point",
		`\b(yes|yeah|yep|ok|okay|right|sure|got it|i see|makes sense|oh+)\b`,
	)

	ReasoningVerb = newSet("reasoning-verb",
		"student describes their own reasoning or an action they took",
		`\bi (think|thought|know|got|get|found|tried|added|subtracted|multiplied|divided|calculated|counted|used|would|will|can|need|should|guess)\b`,
		`\bwe (can|could|need|should|get|have)\b`,
		`\b(first|next|then) i\b`,
	)

	BareNumber = newSet("bare-number",
		"reply contains a concrete number",
		`\b\d+(\.\d+)?\b`,
	)

	CausalConnective = newSet("causal-connective",
		"reply links steps with a causal or sequencing connective",
		`\b(because|so|since|therefore|thus|which means|that means|then)\b`,
	)

	MathExpression = newSet("math-expression",
		"reply contains an arithmetic expression or equation",
		`\d\s*[-+*/×÷^]\s*\d`,
		`[a-z0-9)]\s*=\s*[-a-z0-9(]`,
	)
)

// Student stuck signals.
var (
	HelpSeeking = newSet("help-seeking",
		"student says they do not know how to continue",
		`\b(i )?(don't|dont|do not) (know|get it|understand)\b`,
		`\b(idk|dunno|no idea|not sure|no clue)\b`,
		`\bi'?m (stuck|lost|confused)\b`,
		`\b(help|confused|stuck)\b`,
		`\b(what|how) do i\b`,
		`\bcan you (help|explain|show|tell)\b`,
	)

	QuestionOnly = newSet("question-only",
		"reply is a single question with no attempt",
		`^[^.!\d=]*\?+$`,
	)

	NearEmpty = newSet("near-empty",
		"reply carries no content",
		`^$`,
		`^[^\pL\pN]+$`,
		`^(h+m+|u+m+|u+h+|e+r+m+|\.\.\.)[.!?]*$`,
	)
)

// Tutor utterance signals.
var (
	Correction = newSet("correction",
		"tutor is correcting or qualifying the student's answer",
		`\bbut\b`,
		`\bhowever\b`,
		`\bnot quite\b`,
		`\balmost\b`,
		`\btry again\b`,
		`\bnot (exactly|correct|right|the answer)\b`,
		`\b(isn't|is not|wasn't|was not) (right|correct)\b`,
		`\bincorrect\b`,
		`\bwrong\b`,
		`\bmistake\b`,
		`\bcareful\b`,
		`\bactually\b`,
		`\blet's (check|look again|re-?check|double-check|revisit)\b`,
		`\bclose\b`,
	)

	StrongValidation = newSet("strong-validation",
		"tutor explicitly confirms the student's answer is correct",
		`^\W*(yes|yep)\b[,!.]`,
		`^\W*(that's|that is|you're|you are) (exactly )?(correct|right)\b`,
		`^\W*(exactly|correct|precisely|perfect|spot on|bingo)\b`,
		`^\W*(great|good|nice|excellent|awesome|fantastic|brilliant|wonderful) (job|work)\b`,
		`\byou('ve| have)? got it\b`,
		`\bwell done\b`,
	)

	WeakValidation = newSet("weak-validation",
		"tutor offers general encouragement about the answer",
		`\b(good|nice|great) (answer|thinking|reasoning|thought)\b`,
		`\bthat works\b`,
		`\byou('re| are) right\b`,
		`\bthat's it\b`,
	)
)

// Final-answer signals for the local completion fallback.
var (
	AnswerAnnouncement = newSet("answer-announcement",
		"student presents a result as their final answer",
		`\b(the|my) (final )?answer (is|=)\b`,
		`\bfinal answer\b`,
		`\bi got\b`,
		`\bit (is|equals|=)\s*-?\d`,
		`\bit's\s*-?\d`,
		`\bthe (solution|result) is\b`,
		`\bso (it'?s|the answer)\b`,
	)

	VariableAssignment = newSet("variable-assignment",
		"student states a value for a single variable",
		`^\s*[a-z]\s*=\s*-?\d+(\.\d+)?(\s*/\s*\d+)?\s*$`,
		`\b(so|then|therefore)\s+[a-z]\s*=\s*-?\d`,
	)

	NumericOnly = newSet("numeric-only",
		"reply is just a number",
		`^\s*-?\d+(\.\d+)?(\s*/\s*\d+)?\s*[.!]?\s*$`,
	)
)

// Problem categorization signals.
var (
	GeometryTerms = newSet("geometry-terms",
		"problem is about shapes or measurement",
		`\b(triangle|circle|square|rectangle|polygon|angle|area|perimeter|radius|diameter|circumference|volume|hypotenuse|parallelogram|trapezoid|cube|cylinder|sphere)s?\b`,
	)

	AlgebraicForm = newSet("algebraic-form",
		"problem has an unknown to solve for",
		`\bsolve for\b`,
		`\b[a-z]\s*[-+*/=]|[-+*/=]\s*[a-z]\b|\d[a-z]\b`,
	)

	MultiStepCue = newSet("multi-step-cue",
		"problem explicitly chains several operations",
		`\b(then|after that|and then|first|finally|remaining|left over|in total)\b`,
	)
)
