package llm

import (
	"testing"
)

func TestGeminiModelMapping(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"gemini-flash", "gemini-2.0-flash"},
		{"gemini-pro", "gemini-2.0-pro"},
		{"gemini-2.0-flash", "gemini-2.0-flash"}, // Pass-through
	}
	for _, tt := range tests {
		got := resolveModel(tt.input, geminiModels)
		if got != tt.expected {
			t.Errorf("resolveModel(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestBuildGeminiSchema(t *testing.T) {
	def := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"question": map[string]any{"type": "string"},
			"correct_answer_index": map[string]any{
				"type":    "integer",
				"minimum": 0,
				"maximum": 3,
			},
			"kind": map[string]any{"type": "string", "enum": []any{"concept", "procedure", "transfer"}},
			"options": map[string]any{
				"type":     "array",
				"items":    map[string]any{"type": "string"},
				"minItems": 4,
				"maxItems": 4,
			},
		},
		"required": []any{"question", "options"},
	}

	schema := buildGeminiSchema(def)

	if schema.Type != "OBJECT" {
		t.Fatalf("expected OBJECT type, got %s", schema.Type)
	}
	if len(schema.Properties) != 4 {
		t.Fatalf("expected 4 properties, got %d", len(schema.Properties))
	}
	if schema.Properties["question"].Type != "STRING" {
		t.Fatalf("expected STRING for question, got %s", schema.Properties["question"].Type)
	}
	idx := schema.Properties["correct_answer_index"]
	if idx.Type != "INTEGER" {
		t.Fatalf("expected INTEGER for index, got %s", idx.Type)
	}
	if idx.Minimum == nil || *idx.Minimum != 0 || idx.Maximum == nil || *idx.Maximum != 3 {
		t.Fatalf("expected index bounds 0..3, got %v..%v", idx.Minimum, idx.Maximum)
	}
	if len(schema.Properties["kind"].Enum) != 3 {
		t.Fatalf("expected 3 enum values, got %d", len(schema.Properties["kind"].Enum))
	}
	opts := schema.Properties["options"]
	if opts.Type != "ARRAY" || opts.Items.Type != "STRING" {
		t.Fatalf("expected ARRAY of STRING for options, got %s of %s", opts.Type, opts.Items.Type)
	}
	if opts.MinItems == nil || *opts.MinItems != 4 || opts.MaxItems == nil || *opts.MaxItems != 4 {
		t.Fatal("expected options to be fixed at 4 items")
	}
	if len(schema.Required) != 2 {
		t.Fatalf("expected 2 required fields, got %d", len(schema.Required))
	}
}
