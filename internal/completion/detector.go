// Package completion decides whether a student reply is a final answer.
package completion

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"go.uber.org/zap"

	"github.com/abhisek/socratic/internal/lexicon"
	"github.com/abhisek/socratic/internal/llm"
	"github.com/abhisek/socratic/internal/session"
)

// Judgment sources recorded on session.AnswerCheck.
const (
	SourceLLM      = "llm"
	SourceFallback = "fallback"
)

// Config holds configuration for the completion detector.
type Config struct {
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`

	// HistoryTurns caps how many recent exchanges are sent as context.
	HistoryTurns int `yaml:"history_turns"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxTokens:    256,
		Temperature:  0,
		HistoryTurns: 6,
	}
}

// Detector judges replies with the LLM and falls back to lexical patterns
// when the call fails. The fallback never claims an answer is correct.
type Detector struct {
	provider llm.Provider
	cfg      Config
	logger   *zap.Logger
}

// New creates a Detector. A nil provider uses the fallback only.
func New(provider llm.Provider, cfg Config, logger *zap.Logger) *Detector {
	if cfg.HistoryTurns <= 0 {
		cfg.HistoryTurns = DefaultConfig().HistoryTurns
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{provider: provider, cfg: cfg, logger: logger}
}

type checkOutput struct {
	Completed bool   `json:"completed"`
	Correct   bool   `json:"correct"`
	Reasoning string `json:"reasoning"`
}

// Detect classifies response against the problem. prior are the steps
// recorded before this reply.
func (d *Detector) Detect(ctx context.Context, response string, p *session.Problem, prior []session.Step) session.AnswerCheck {
	if d.provider == nil {
		return Fallback(response)
	}

	check, err := d.judge(ctx, response, p, prior)
	if err != nil {
		d.logger.Warn("completion check failed, using fallback",
			zap.Int("problem", p.ID), zap.Error(err))
		return Fallback(response)
	}
	return check
}

func (d *Detector) judge(ctx context.Context, response string, p *session.Problem, prior []session.Step) (session.AnswerCheck, error) {
	ctx = llm.WithPurpose(ctx, llm.PurposeCompletionCheck)

	userMsg, err := buildCheckMessage(response, p, prior, d.cfg.HistoryTurns)
	if err != nil {
		return session.AnswerCheck{}, fmt.Errorf("build completion prompt: %w", err)
	}

	resp, err := d.provider.Generate(ctx, llm.Request{
		System:      checkSystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: userMsg}},
		Schema:      CheckSchema,
		MaxTokens:   d.cfg.MaxTokens,
		Temperature: d.cfg.Temperature,
	})
	if err != nil {
		return session.AnswerCheck{}, fmt.Errorf("LLM completion check failed: %w", err)
	}

	var raw checkOutput
	if err := resp.Decode(&raw); err != nil {
		return session.AnswerCheck{}, err
	}

	return session.AnswerCheck{
		Completed: raw.Completed,
		// A reply that is not a final answer cannot be a correct one.
		Correct:   raw.Completed && raw.Correct,
		Reasoning: raw.Reasoning,
		Source:    SourceLLM,
	}, nil
}

// Fallback applies the lexical final-answer patterns. Correctness cannot
// be verified locally, so Correct is always false.
func Fallback(response string) session.AnswerCheck {
	text := lexicon.Normalize(response)
	completed := lexicon.AnswerAnnouncement.Match(text) ||
		lexicon.NumericOnly.Match(text) ||
		lexicon.VariableAssignment.Match(text)
	return session.AnswerCheck{
		Completed: completed,
		Correct:   false,
		Source:    SourceFallback,
	}
}

const checkSystemPrompt = `You are checking a student's reply during a step-by-step math tutoring session.

Instructions:
- Decide whether the reply states a final answer to the whole problem. Intermediate results, partial steps and questions are not final answers.
- If it is a final answer, decide whether it is correct for the problem as stated.
- Never mark a reply correct unless it is also a final answer.
- Keep reasoning to one sentence.`

type checkView struct {
	Problem  string
	Category session.Category
	History  []exchange
	Response string
}

type exchange struct {
	Tutor   string
	Student string
}

var checkUserTemplate = template.Must(template.New("check").Parse(`Problem: {{.Problem}}
Category: {{.Category}}

Recent exchanges:
{{range .History}}{{if .Student}}Student: {{.Student}}
{{end}}Tutor: {{.Tutor}}
{{else}}None
{{end}}
Student's latest reply: {{.Response}}`))

func buildCheckMessage(response string, p *session.Problem, prior []session.Step, maxTurns int) (string, error) {
	view := checkView{
		Problem:  p.Normalized,
		Category: p.Category,
		History:  recentExchanges(prior, maxTurns),
		Response: response,
	}
	var buf bytes.Buffer
	if err := checkUserTemplate.Execute(&buf, view); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func recentExchanges(steps []session.Step, max int) []exchange {
	if max > 0 && len(steps) > max {
		steps = steps[len(steps)-max:]
	}
	out := make([]exchange, 0, len(steps))
	for _, st := range steps {
		ex := exchange{Tutor: st.TutorPrompt}
		if st.StudentResponse != nil {
			ex.Student = *st.StudentResponse
		}
		out = append(out, ex)
	}
	return out
}
