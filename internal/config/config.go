// Package config assembles the process configuration. Values are applied
// in order: defaults, the YAML file, a .env file, then environment
// variables. The result is validated once and passed explicitly to every
// constructor.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/abhisek/socratic/internal/api"
	"github.com/abhisek/socratic/internal/auth"
	"github.com/abhisek/socratic/internal/events"
	"github.com/abhisek/socratic/internal/llm"
	"github.com/abhisek/socratic/internal/lock"
	"github.com/abhisek/socratic/internal/logging"
	"github.com/abhisek/socratic/internal/store"
	"github.com/abhisek/socratic/internal/tutor"
)

// Config is the full process configuration.
type Config struct {
	Server  api.Config     `yaml:"server"`
	Store   store.Config   `yaml:"store"`
	Lock    lock.Config    `yaml:"lock"`
	Events  events.Config  `yaml:"events"`
	Tutor   tutor.Config   `yaml:"tutor"`
	Auth    auth.Config    `yaml:"auth"`
	Logging logging.Config `yaml:"logging"`
	LLM     llm.Config     `yaml:"llm"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Server:  api.DefaultConfig(),
		Store:   store.Config{Backend: store.BackendSQLite, Database: "socratic"},
		Lock:    lock.DefaultConfig(),
		Events:  events.DefaultConfig(),
		Tutor:   tutor.DefaultConfig(),
		Auth:    auth.DefaultConfig(),
		Logging: logging.DefaultConfig(),
		LLM:     llm.DefaultConfig(),
	}
}

// DefaultPath resolves the config file path:
// 1. SOCRATIC_CONFIG environment variable
// 2. $XDG_CONFIG_HOME/socratic/config.yaml
// 3. ~/.config/socratic/config.yaml
func DefaultPath() (string, error) {
	if p := os.Getenv("SOCRATIC_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "socratic", "config.yaml"), nil
}

// Load builds the configuration. An empty path uses DefaultPath, where a
// missing file is not an error; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	if err := cfg.loadFile(path, explicit); err != nil {
		return nil, err
	}

	// .env only fills variables that are not already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) loadFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && !required {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// applyEnv applies environment overrides. Provider API keys keep their
// conventional names; everything else is prefixed SOCRATIC_.
func (c *Config) applyEnv() error {
	if p := os.Getenv("SOCRATIC_LLM_PROVIDER"); p != "" {
		c.LLM.Provider = p
	}
	if k := os.Getenv("ANTHROPIC_API_KEY"); k != "" {
		c.LLM.Anthropic.APIKey = k
	}
	if m := os.Getenv("SOCRATIC_ANTHROPIC_MODEL"); m != "" {
		c.LLM.Anthropic.Model = m
	}
	if k := os.Getenv("OPENAI_API_KEY"); k != "" {
		c.LLM.OpenAI.APIKey = k
	}
	if m := os.Getenv("SOCRATIC_OPENAI_MODEL"); m != "" {
		c.LLM.OpenAI.Model = m
	}
	if u := os.Getenv("SOCRATIC_OPENAI_BASE_URL"); u != "" {
		c.LLM.OpenAI.BaseURL = u
	}
	if k := os.Getenv("GEMINI_API_KEY"); k != "" {
		c.LLM.Gemini.APIKey = k
	}
	if m := os.Getenv("SOCRATIC_GEMINI_MODEL"); m != "" {
		c.LLM.Gemini.Model = m
	}
	if k := os.Getenv("OPENROUTER_API_KEY"); k != "" {
		c.LLM.OpenRouter.APIKey = k
	}
	if m := os.Getenv("SOCRATIC_OPENROUTER_MODEL"); m != "" {
		c.LLM.OpenRouter.Model = m
	}
	if os.Getenv("SOCRATIC_LLM_PROVIDER") == "" {
		c.discoverProvider()
	}

	if b := os.Getenv("SOCRATIC_STORE_BACKEND"); b != "" {
		c.Store.Backend = b
	}
	if d := os.Getenv("SOCRATIC_STORE_DSN"); d != "" {
		c.Store.DSN = d
	}
	if d := os.Getenv("SOCRATIC_MONGO_DATABASE"); d != "" {
		c.Store.Database = d
	}

	if b := os.Getenv("SOCRATIC_LOCK_BACKEND"); b != "" {
		c.Lock.Backend = b
	}
	if a := os.Getenv("SOCRATIC_REDIS_ADDR"); a != "" {
		c.Lock.Addr = a
	}
	if p := os.Getenv("SOCRATIC_REDIS_PASSWORD"); p != "" {
		c.Lock.Password = p
	}

	if s := os.Getenv("SOCRATIC_EVENTS_SINK"); s != "" {
		c.Events.Sink = s
	}
	if u := os.Getenv("SOCRATIC_AMQP_URL"); u != "" {
		c.Events.URL = u
	}

	if a := os.Getenv("SOCRATIC_HTTP_ADDR"); a != "" {
		c.Server.Addr = a
	}

	if l := os.Getenv("SOCRATIC_LOG_LEVEL"); l != "" {
		c.Logging.Level = l
	}
	if f := os.Getenv("SOCRATIC_LOG_FORMAT"); f != "" {
		c.Logging.Format = f
	}

	if h := os.Getenv("SOCRATIC_TEACHER_PASSWORD_HASH"); h != "" {
		c.Auth.TeacherPasswordHash = h
	}
	if s := os.Getenv("SOCRATIC_JWT_SECRET"); s != "" {
		c.Auth.JWTSecret = s
	}

	var err error
	if c.Tutor.SessionTTL, err = envDuration("SOCRATIC_SESSION_TTL", c.Tutor.SessionTTL); err != nil {
		return err
	}
	if c.Tutor.TurnTimeout, err = envDuration("SOCRATIC_TURN_TIMEOUT", c.Tutor.TurnTimeout); err != nil {
		return err
	}
	if v := os.Getenv("SOCRATIC_REGENERATE_ON_HINT_FLIP"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SOCRATIC_REGENERATE_ON_HINT_FLIP: %w", err)
		}
		c.Tutor.RegenerateOnHintFlip = b
	}
	return nil
}

// discoverProvider switches to the first provider with a key when the
// configured one has none, probing Gemini, OpenAI, Anthropic, OpenRouter.
func (c *Config) discoverProvider() {
	if c.LLM.Validate() == nil {
		return
	}
	switch {
	case c.LLM.Gemini.APIKey != "":
		c.LLM.Provider = llm.ProviderGemini
	case c.LLM.OpenAI.APIKey != "":
		c.LLM.Provider = llm.ProviderOpenAI
	case c.LLM.Anthropic.APIKey != "":
		c.LLM.Provider = llm.ProviderAnthropic
	case c.LLM.OpenRouter.APIKey != "":
		c.LLM.Provider = llm.ProviderOpenRouter
	}
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

// Validate checks every section except llm, which is checked when a
// provider is built so that commands without a model can still run.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Server.Validate(); err != nil {
		errs = append(errs, err)
	}
	switch c.Store.Backend {
	case store.BackendSQLite, store.BackendMemory:
	case store.BackendPostgres, store.BackendMongo:
		if c.Store.DSN == "" {
			errs = append(errs, fmt.Errorf("store.dsn is required for the %s backend", c.Store.Backend))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store.backend %q", c.Store.Backend))
	}
	switch c.Lock.Backend {
	case lock.BackendLocal:
	case lock.BackendRedis:
		if c.Lock.Addr == "" {
			errs = append(errs, fmt.Errorf("lock.addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown lock.backend %q", c.Lock.Backend))
	}
	switch c.Events.Sink {
	case events.SinkNone, events.SinkLog:
	case events.SinkAMQP:
		if c.Events.URL == "" {
			errs = append(errs, fmt.Errorf("events.url is required for the amqp sink"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown events.sink %q", c.Events.Sink))
	}
	if err := c.Tutor.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Auth.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
