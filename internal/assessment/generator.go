package assessment

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abhisek/socratic/internal/llm"
	"github.com/abhisek/socratic/internal/session"
)

// Quiz size bounds.
const (
	MinQuestions = 2
	MaxQuestions = 3
)

// Question sources.
const (
	SourceLLM      = "llm"
	SourceFallback = "fallback"
	SourceMixed    = "mixed"
)

// Config holds configuration for quiz generation.
type Config struct {
	Questions   int     `yaml:"questions"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Questions:   3,
		MaxTokens:   1024,
		Temperature: 0.4,
	}
}

// Generator produces the MC quiz for a solved problem.
type Generator struct {
	provider llm.Provider
	cfg      Config
	logger   *zap.Logger
}

// NewGenerator creates a Generator. A nil provider serves fallback
// questions only.
func NewGenerator(provider llm.Provider, cfg Config, logger *zap.Logger) *Generator {
	if cfg.Questions < MinQuestions || cfg.Questions > MaxQuestions {
		cfg.Questions = DefaultConfig().Questions
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{provider: provider, cfg: cfg, logger: logger}
}

type quizOutput struct {
	Questions []struct {
		Question           string   `json:"question"`
		Options            []string `json:"options"`
		CorrectAnswerIndex int      `json:"correct_answer_index"`
	} `json:"questions"`
}

// Generate returns between MinQuestions and MaxQuestions validated
// questions plus where they came from. Invalid generated questions are
// discarded and the set is padded with generic ones; a failed call
// yields generic questions only.
func (g *Generator) Generate(ctx context.Context, p *session.Problem, approach string) ([]session.MCQuestion, string) {
	var generated []session.MCQuestion
	if g.provider != nil {
		qs, err := g.generate(ctx, p, approach)
		if err != nil {
			g.logger.Warn("quiz generation failed, using fallback questions",
				zap.Int("problem", p.ID), zap.Error(err))
		}
		generated = qs
	}

	kept := Sanitize(generated, g.cfg.Questions)
	dropped := len(generated) - len(kept)
	if dropped > 0 {
		g.logger.Debug("discarded invalid quiz questions", zap.Int("problem", p.ID), zap.Int("dropped", dropped))
	}

	out := Pad(kept)
	switch {
	case len(kept) == 0:
		return out, SourceFallback
	case len(out) > len(kept):
		return out, SourceMixed
	default:
		return out, SourceLLM
	}
}

func (g *Generator) generate(ctx context.Context, p *session.Problem, approach string) ([]session.MCQuestion, error) {
	ctx = llm.WithPurpose(ctx, llm.PurposeQuizGen)

	userMsg, err := buildQuizMessage(p, approach, g.cfg.Questions)
	if err != nil {
		return nil, fmt.Errorf("build quiz prompt: %w", err)
	}

	resp, err := g.provider.Generate(ctx, llm.Request{
		System:      quizSystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: userMsg}},
		Schema:      QuizSchema,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM quiz generation failed: %w", err)
	}

	var raw quizOutput
	if err := resp.Decode(&raw); err != nil {
		return nil, err
	}

	out := make([]session.MCQuestion, 0, len(raw.Questions))
	for _, q := range raw.Questions {
		out = append(out, session.MCQuestion{
			Question:           strings.TrimSpace(q.Question),
			Options:            q.Options,
			CorrectAnswerIndex: q.CorrectAnswerIndex,
		})
	}
	return out, nil
}

// Sanitize keeps at most max questions that pass validation, assigning
// fresh ids and clearing any answer state.
func Sanitize(qs []session.MCQuestion, max int) []session.MCQuestion {
	out := make([]session.MCQuestion, 0, len(qs))
	for _, q := range qs {
		if len(out) == max {
			break
		}
		q.ID = uuid.NewString()
		q.StudentAnswerIndex = nil
		q.Correct = nil
		if err := q.Validate(); err != nil {
			continue
		}
		if !distinctOptions(q.Options) {
			continue
		}
		out = append(out, q)
	}
	return out
}

// distinctOptions reports whether every option is non-empty and unique.
func distinctOptions(opts []string) bool {
	seen := make(map[string]bool, len(opts))
	for _, o := range opts {
		key := strings.ToLower(strings.TrimSpace(o))
		if key == "" || seen[key] {
			return false
		}
		seen[key] = true
	}
	return true
}

// Pad appends generic questions until qs has MinQuestions.
func Pad(qs []session.MCQuestion) []session.MCQuestion {
	for i := 0; len(qs) < MinQuestions && i < len(fallbackQuestions); i++ {
		q := fallbackQuestions[i]
		q.ID = uuid.NewString()
		q.Options = append([]string(nil), q.Options...)
		qs = append(qs, q)
	}
	return qs
}

var fallbackQuestions = []session.MCQuestion{
	{
		Question: "What is the best first step when starting a problem like this one?",
		Options: []string{
			"Guess an answer and move on",
			"Work out what the problem is asking for",
			"Skip straight to the last step",
			"Ignore the numbers that are given",
		},
		CorrectAnswerIndex: 1,
	},
	{
		Question: "After you find an answer, what is a good way to check it?",
		Options: []string{
			"Assume it is right",
			"Change the numbers in the problem",
			"Put it back into the problem or estimate to see if it makes sense",
			"Start a different problem",
		},
		CorrectAnswerIndex: 2,
	},
	{
		Question: "Why does breaking a problem into smaller steps help?",
		Options: []string{
			"Each part is easier to solve and check",
			"It makes the answer bigger",
			"It means you never need to check your work",
			"It lets you skip reading the problem",
		},
		CorrectAnswerIndex: 0,
	},
}

const quizSystemPrompt = `You are writing a short multiple-choice quiz for a student who just solved a math problem with a tutor's guidance.

Rules:
- Ask about the approach the student used and why it works, not about recalling the final number.
- Each question has exactly 4 options with exactly one correct option.
- Distractors should reflect common mistakes, not random values.
- Use plain ASCII text for all math. No LaTeX.
- Vary the position of the correct option.`

type quizView struct {
	Problem  string
	Category session.Category
	Approach string
	Steps    []string
	Count    int
}

var quizUserTemplate = template.Must(template.New("quiz").Parse(`Problem: {{.Problem}}
Category: {{.Category}}
Approach the student used: {{.Approach}}

Student's steps:
{{range .Steps}}- {{.}}
{{else}}None recorded
{{end}}
Write {{.Count}} questions.`))

func buildQuizMessage(p *session.Problem, approach string, count int) (string, error) {
	view := quizView{
		Problem:  p.Normalized,
		Category: p.Category,
		Approach: approach,
		Count:    count,
	}
	for _, st := range session.StudentSteps(p.Steps) {
		view.Steps = append(view.Steps, *st.StudentResponse)
	}
	var buf bytes.Buffer
	if err := quizUserTemplate.Execute(&buf, view); err != nil {
		return "", err
	}
	return buf.String(), nil
}
