package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

// Config holds HTTP server settings.
type Config struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// CORSOrigins lists browser origins allowed to call the API. Empty
	// disables CORS headers.
	CORSOrigins []string `yaml:"cors_origins"`

	// Mode is the gin mode: debug, release or test.
	Mode string `yaml:"mode"`
}

// DefaultConfig returns sensible defaults. WriteTimeout leaves room for a
// full tutoring turn.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    2 * time.Minute,
		ShutdownTimeout: 15 * time.Second,
		Mode:            gin.ReleaseMode,
	}
}

// Validate checks the server settings.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	switch c.Mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
	default:
		return fmt.Errorf("server.mode must be debug, release or test, got %q", c.Mode)
	}
	if c.WriteTimeout <= 0 || c.ReadTimeout <= 0 {
		return fmt.Errorf("server read and write timeouts must be positive")
	}
	return nil
}
