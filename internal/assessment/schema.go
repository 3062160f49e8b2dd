package assessment

import "github.com/abhisek/socratic/internal/llm"

// QuizSchema defines the JSON schema for MC quiz generation responses.
var QuizSchema = &llm.Schema{
	Name:        "approach-quiz",
	Description: "Short multiple-choice quiz checking that the student understood the approach they used",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"questions": map[string]any{
				"type":     "array",
				"minItems": MinQuestions,
				"maxItems": MaxQuestions,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"question": map[string]any{
							"type":        "string",
							"description": "The question text, in plain ASCII",
						},
						"options": map[string]any{
							"type":        "array",
							"minItems":    4,
							"maxItems":    4,
							"items":       map[string]any{"type": "string"},
							"description": "Exactly 4 answer options; distractors should reflect common mistakes",
						},
						"correct_answer_index": map[string]any{
							"type":        "integer",
							"minimum":     0,
							"maximum":     3,
							"description": "Zero-based index of the correct option",
						},
					},
					"required":             []any{"question", "options", "correct_answer_index"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"questions"},
		"additionalProperties": false,
	},
}
