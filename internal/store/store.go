package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/abhisek/socratic/internal/session"
)

// Backend names accepted in store.backend.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
	BackendMemory   = "memory"
)

// Config selects and addresses a backend.
type Config struct {
	Backend  string `yaml:"backend"`
	DSN      string `yaml:"dsn"`
	Database string `yaml:"database"`
}

// New opens the backend named in cfg.
func New(ctx context.Context, cfg Config) (Backend, error) {
	switch cfg.Backend {
	case BackendSQLite, "":
		dsn := cfg.DSN
		if dsn == "" {
			p, err := DefaultDBPath()
			if err != nil {
				return nil, err
			}
			dsn = p
		}
		return OpenSQL(DriverSQLite, dsn)
	case BackendPostgres:
		return OpenSQL(DriverPostgres, cfg.DSN)
	case BackendMongo:
		return OpenMongo(ctx, cfg.DSN, cfg.Database)
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// DefaultDBPath resolves the database file path in priority order:
// 1. SOCRATIC_DB environment variable
// 2. $XDG_DATA_HOME/socratic/socratic.db
// 3. ~/.local/share/socratic/socratic.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("SOCRATIC_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "socratic", "socratic.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}

// checkWrite validates s before it is handed to a backend.
func checkWrite(s *session.Session) error {
	if s == nil {
		return &session.ValidationError{Field: "session", Message: "is nil"}
	}
	return s.Validate()
}

// live returns s unless it has expired.
func live(s *session.Session, code string, now time.Time) (*session.Session, error) {
	if s.Expired(now) {
		return nil, notFound(code)
	}
	return s, nil
}
