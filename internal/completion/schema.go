package completion

import "github.com/abhisek/socratic/internal/llm"

// CheckSchema defines the JSON schema for the final-answer judgment.
var CheckSchema = &llm.Schema{
	Name:        "answer-check",
	Description: "Whether a student's reply is a final answer to the problem, and whether it is correct",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"completed": map[string]any{
				"type":        "boolean",
				"description": "True only if the reply states a final answer to the whole problem, not an intermediate step",
			},
			"correct": map[string]any{
				"type":        "boolean",
				"description": "True only if completed is true and the final answer is right",
			},
			"reasoning": map[string]any{
				"type":        "string",
				"description": "One sentence explaining the judgment",
			},
		},
		"required":             []any{"completed", "correct", "reasoning"},
		"additionalProperties": false,
	},
}
