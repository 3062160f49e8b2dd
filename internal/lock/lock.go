// Package lock serializes mutations of a single session. Turns on the same
// session code run one at a time; different codes never contend.
package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Locker acquires a mutual-exclusion lock for key. The returned unlock
// func is safe to call more than once.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// Backend names accepted in lock.backend.
const (
	BackendLocal = "local"
	BackendRedis = "redis"
)

// Config selects the lock implementation.
type Config struct {
	Backend  string        `yaml:"backend"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
	Retry    time.Duration `yaml:"retry"`
}

// DefaultConfig returns an in-process lock.
func DefaultConfig() Config {
	return Config{
		Backend: BackendLocal,
		TTL:     30 * time.Second,
		Retry:   50 * time.Millisecond,
	}
}

// New builds the Locker named in cfg.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (Locker, error) {
	switch cfg.Backend {
	case BackendLocal, "":
		return NewLocal(), nil
	case BackendRedis:
		return NewRedis(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown lock backend %q", cfg.Backend)
	}
}

// Local is an in-process keyed mutex. Entries are reference counted and
// removed once nobody holds or waits for them.
type Local struct {
	mu    sync.Mutex
	locks map[string]*localEntry
}

type localEntry struct {
	sem  chan struct{}
	refs int
}

var (
	_ Locker = (*Local)(nil)
	_ Locker = (*Redis)(nil)
)

// NewLocal returns an empty Local locker.
func NewLocal() *Local {
	return &Local{locks: make(map[string]*localEntry)}
}

func (l *Local) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &localEntry{sem: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			l.release(key, e)
		})
	}, nil
}

func (l *Local) release(key string, e *localEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
}

// held reports how many keys are currently tracked.
func (l *Local) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
