package tutor

import (
	"context"
	"fmt"
	"strings"

	"github.com/abhisek/socratic/internal/llm"
	"github.com/abhisek/socratic/internal/session"
)

// Utterance is a generated tutor message.
type Utterance struct {
	Text string

	// HintIncluded is the generator's report of whether Text carries a
	// concrete hint.
	HintIncluded bool

	Usage llm.Usage
}

// TurnRequest is the context for one tutor reply.
type TurnRequest struct {
	Problem *session.Problem

	// History is every step recorded before this reply, seed included.
	History []session.Step

	StudentResponse string
	HintRequested   bool
	StuckTurns      int

	// Correction carries the previous completion judgment when it found a
	// final but incorrect answer.
	Correction *session.AnswerCheck

	// Regenerate marks a second attempt after a dropped hint.
	Regenerate bool
}

// Generator produces tutor utterances.
type Generator interface {
	// Seed produces the opening question for a new problem.
	Seed(ctx context.Context, p *session.Problem) (Utterance, error)

	// Turn produces the reply to a student response.
	Turn(ctx context.Context, req TurnRequest) (Utterance, error)
}

// LLMGenerator implements Generator using the LLM provider.
type LLMGenerator struct {
	provider llm.Provider
	config   GeneratorConfig
}

// NewGenerator creates an LLMGenerator with the given provider and config.
func NewGenerator(provider llm.Provider, cfg GeneratorConfig) *LLMGenerator {
	return &LLMGenerator{provider: provider, config: cfg}
}

type utteranceOutput struct {
	Message      string `json:"message"`
	IncludesHint bool   `json:"includes_hint"`
}

// Seed produces the opening question for p.
func (g *LLMGenerator) Seed(ctx context.Context, p *session.Problem) (Utterance, error) {
	ctx = llm.WithPurpose(ctx, llm.PurposeSeedPrompt)
	return g.generate(ctx, llm.Request{
		System:   systemPrompt + seedDirective,
		Messages: []llm.Message{{Role: llm.RoleUser, Content: buildProblemMessage(p)}},
	})
}

// Turn produces the tutor reply for req.
func (g *LLMGenerator) Turn(ctx context.Context, req TurnRequest) (Utterance, error) {
	purpose := llm.PurposeTutorTurn
	if req.Regenerate {
		purpose = llm.PurposeTurnRegenerate
	}
	ctx = llm.WithPurpose(ctx, purpose)

	return g.generate(ctx, llm.Request{
		System:   buildSystem(req),
		Messages: buildMessages(req.Problem, req.History, req.StudentResponse, g.config.HistoryTurns),
	})
}

func (g *LLMGenerator) generate(ctx context.Context, req llm.Request) (Utterance, error) {
	req.Schema = UtteranceSchema
	req.MaxTokens = g.config.MaxTokens
	req.Temperature = g.config.Temperature

	resp, err := g.provider.Generate(ctx, req)
	if err != nil {
		return Utterance{}, fmt.Errorf("LLM generation failed: %w", err)
	}

	var raw utteranceOutput
	if err := resp.Decode(&raw); err != nil {
		return Utterance{}, err
	}
	text := strings.TrimSpace(raw.Message)
	if text == "" {
		return Utterance{}, &llm.ErrInvalidResponse{Content: resp.Content, Err: fmt.Errorf("empty message")}
	}

	return Utterance{Text: text, HintIncluded: raw.IncludesHint, Usage: resp.Usage}, nil
}
