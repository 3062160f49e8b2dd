package tutor

import "github.com/abhisek/socratic/internal/llm"

// UtteranceSchema defines the JSON schema for tutor utterances.
var UtteranceSchema = &llm.Schema{
	Name:        "tutor-turn",
	Description: "The tutor's next message to the student in a Socratic math dialogue",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{
				"type":        "string",
				"description": "What the tutor says next. One or two short sentences ending in a guiding question, plain ASCII math",
			},
			"includes_hint": map[string]any{
				"type":        "boolean",
				"description": "True if the message gives the student a concrete hint toward the next step",
			},
		},
		"required":             []any{"message", "includes_hint"},
		"additionalProperties": false,
	},
}
