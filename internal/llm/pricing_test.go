package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupCost(t *testing.T) {
	tests := []struct {
		model  string
		input  float64
		output float64
	}{
		{"gpt-4o-mini", 0.15, 0.6},
		{"claude-haiku-4-5-20251001", 1, 5},
		{"claude-sonnet-4-20250514", 3, 15},
		{"gpt-4o-2024-08-06", 2.5, 10},
		{"google/gemini-2.0-flash-exp", 0.1, 0.4},
		{"gemini-2.5-flash-preview-09-2025", 0.3, 2.5},
		{"GPT-4.1", 2, 8},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			c := LookupCost(tt.model)
			require.NotNil(t, c)
			assert.Equal(t, tt.input, c.InputPerMTok)
			assert.Equal(t, tt.output, c.OutputPerMTok)
		})
	}
}

func TestLookupCost_Unknown(t *testing.T) {
	assert.Nil(t, LookupCost("mock"))
	assert.Nil(t, LookupCost(""))
}

func TestModelCost_Cost(t *testing.T) {
	c := ModelCost{InputPerMTok: 1, OutputPerMTok: 5}
	assert.InDelta(t, 0.0035, c.Cost(1000, 500), 1e-9)
}
