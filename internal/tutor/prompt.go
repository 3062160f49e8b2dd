package tutor

import (
	"fmt"
	"strings"

	"github.com/abhisek/socratic/internal/hint"
	"github.com/abhisek/socratic/internal/llm"
	"github.com/abhisek/socratic/internal/session"
)

const systemPrompt = `You are a patient Socratic math tutor working one problem with a student.

Rules:
- Never state the final answer and never solve the problem for the student.
- Guide with one short question at a time, building on what the student just said.
- When the student is right, say so plainly before asking the next question.
- When the student is wrong, do not say "correct"; ask a question that exposes the mistake.
- Use plain ASCII text for all math. No LaTeX, no Unicode symbols.
- Keep every message under 60 words.
- Set includes_hint to true only if your message gives a concrete hint toward the next step.`

// Per-turn directives appended to the system prompt.
const (
	hintDirective = `

This turn: the student has been stuck for %d turns. Include one concrete hint that points to the next step without giving the answer, and set includes_hint to true.`

	noHintDirective = `

This turn: do not give a hint. Ask a guiding question and set includes_hint to false.`

	correctionDirective = `

The student's previous reply looked like a final answer but it was judged incorrect.
Judge's reasoning: %s
Without revealing the correct answer, help the student find the mistake.`

	seedDirective = `

This is the start of the problem. Greet the student briefly and ask an opening question that gets them to say what the problem is asking.`
)

// buildSystem returns the system prompt for a turn.
func buildSystem(req TurnRequest) string {
	var b strings.Builder
	b.WriteString(systemPrompt)
	if req.HintRequested {
		fmt.Fprintf(&b, hintDirective, max(req.StuckTurns, hint.StuckThreshold))
	} else {
		b.WriteString(noHintDirective)
	}
	if req.Correction != nil {
		reason := req.Correction.Reasoning
		if reason == "" {
			reason = "not given"
		}
		fmt.Fprintf(&b, correctionDirective, reason)
	}
	return b.String()
}

// buildProblemMessage describes the problem as the opening user message.
func buildProblemMessage(p *session.Problem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Problem: %s\n", p.Normalized)
	fmt.Fprintf(&b, "Category: %s\n", p.Category)
	fmt.Fprintf(&b, "Difficulty: %d of %d", p.Difficulty, session.MaxDifficulty)
	return b.String()
}

// buildMessages replays the dialogue as alternating user/assistant
// messages: the problem, the seed prompt, the last historyTurns
// exchanges, then the new student reply.
func buildMessages(p *session.Problem, history []session.Step, response string, historyTurns int) []llm.Message {
	msgs := []llm.Message{{Role: llm.RoleUser, Content: buildProblemMessage(p)}}

	var seed *session.Step
	if len(history) > 0 && history[0].IsSeed() {
		seed = &history[0]
	}
	if seed != nil {
		msgs = append(msgs, llm.Message{Role: llm.RoleAssistant, Content: seed.TutorPrompt})
	} else {
		// Keep the roles alternating when there is no seed to replay.
		msgs = append(msgs, llm.Message{Role: llm.RoleAssistant, Content: "Let's work on this together. What is the problem asking?"})
	}

	student := session.StudentSteps(history)
	if historyTurns > 0 && len(student) > historyTurns {
		student = student[len(student)-historyTurns:]
	}
	for _, st := range student {
		msgs = append(msgs,
			llm.Message{Role: llm.RoleUser, Content: *st.StudentResponse},
			llm.Message{Role: llm.RoleAssistant, Content: st.TutorPrompt},
		)
	}

	return append(msgs, llm.Message{Role: llm.RoleUser, Content: response})
}
