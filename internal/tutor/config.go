package tutor

import (
	"fmt"
	"time"

	"github.com/abhisek/socratic/internal/assessment"
	"github.com/abhisek/socratic/internal/completion"
	"github.com/abhisek/socratic/internal/streak"
)

// Config controls the turn orchestrator.
type Config struct {
	// SessionTTL is how long a new session lives. Zero never expires.
	SessionTTL time.Duration `yaml:"session_ttl"`

	// TurnTimeout bounds a whole turn, model calls and store write
	// included. A turn that runs out of time persists nothing.
	TurnTimeout time.Duration `yaml:"turn_timeout"`

	// StreakIncrement is the meter gain per hint-free progress step.
	StreakIncrement int `yaml:"streak_increment"`

	// MaxResponseLength caps a student reply, in characters.
	MaxResponseLength int `yaml:"max_response_length"`

	// RegenerateOnHintFlip regenerates the utterance without a hint
	// request when reconciliation drops the requested hint.
	RegenerateOnHintFlip bool `yaml:"regenerate_on_hint_flip"`

	Generator  GeneratorConfig   `yaml:"generator"`
	Completion completion.Config `yaml:"completion"`
	Quiz       assessment.Config `yaml:"quiz"`
}

// GeneratorConfig controls tutor utterance generation.
type GeneratorConfig struct {
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`

	// HistoryTurns caps how many prior exchanges are replayed. The seed
	// prompt is always sent.
	HistoryTurns int `yaml:"history_turns"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		SessionTTL:        24 * time.Hour,
		TurnTimeout:       90 * time.Second,
		StreakIncrement:   streak.DefaultIncrement,
		MaxResponseLength: 2000,
		Generator: GeneratorConfig{
			MaxTokens:    400,
			Temperature:  0.5,
			HistoryTurns: 12,
		},
		Completion: completion.DefaultConfig(),
		Quiz:       assessment.DefaultConfig(),
	}
}

// Validate checks the orchestrator settings.
func (c Config) Validate() error {
	if c.SessionTTL < 0 {
		return fmt.Errorf("tutor.session_ttl must not be negative")
	}
	if c.TurnTimeout <= 0 {
		return fmt.Errorf("tutor.turn_timeout must be positive")
	}
	if c.StreakIncrement <= 0 || c.StreakIncrement > streak.Max {
		return fmt.Errorf("tutor.streak_increment must be between 1 and %d", streak.Max)
	}
	if c.MaxResponseLength <= 0 {
		return fmt.Errorf("tutor.max_response_length must be positive")
	}
	if c.Quiz.Questions < assessment.MinQuestions || c.Quiz.Questions > assessment.MaxQuestions {
		return fmt.Errorf("tutor.quiz.questions must be between %d and %d", assessment.MinQuestions, assessment.MaxQuestions)
	}
	return nil
}
