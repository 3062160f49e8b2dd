// Package auth authenticates the teacher: a bcrypt password check that
// issues short-lived HS256 bearer tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// RoleTeacher is the only role a token can carry.
const RoleTeacher = "teacher"

var (
	ErrNotConfigured      = errors.New("teacher access is not configured")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

// Config holds teacher authentication settings. Both secrets are injected
// at construction; nothing is read from the environment here.
type Config struct {
	// TeacherPasswordHash is a bcrypt hash, as printed by
	// `socratic teacher hash-password`.
	TeacherPasswordHash string `yaml:"teacher_password_hash"`

	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
	Issuer    string        `yaml:"issuer"`
}

// DefaultConfig returns settings with teacher access disabled.
func DefaultConfig() Config {
	return Config{TokenTTL: 12 * time.Hour, Issuer: "socratic"}
}

// Enabled reports whether both secrets are set.
func (c Config) Enabled() bool {
	return c.TeacherPasswordHash != "" && c.JWTSecret != ""
}

// Validate checks a config that has teacher access enabled.
func (c Config) Validate() error {
	if c.TeacherPasswordHash == "" && c.JWTSecret == "" {
		return nil
	}
	if !c.Enabled() {
		return fmt.Errorf("auth.teacher_password_hash and auth.jwt_secret must be set together")
	}
	if _, err := bcrypt.Cost([]byte(c.TeacherPasswordHash)); err != nil {
		return fmt.Errorf("auth.teacher_password_hash: %w", err)
	}
	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("auth.jwt_secret must be at least 16 bytes")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive")
	}
	return nil
}

// Claims are the JWT claims of a teacher token.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator checks teacher passwords and tokens.
type Authenticator struct {
	cfg Config
	now func() time.Time
}

// New creates an Authenticator.
func New(cfg Config) *Authenticator {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultConfig().TokenTTL
	}
	return &Authenticator{cfg: cfg, now: time.Now}
}

// HashPassword returns the bcrypt hash to put in the config.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password is empty")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// Login checks password and issues a token with its expiry.
func (a *Authenticator) Login(password string) (string, time.Time, error) {
	if !a.cfg.Enabled() {
		return "", time.Time{}, ErrNotConfigured
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.cfg.TeacherPasswordHash), []byte(password)); err != nil {
		return "", time.Time{}, ErrInvalidCredentials
	}

	now := a.now()
	expires := now.Add(a.cfg.TokenTTL)
	claims := Claims{
		Role: RoleTeacher,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.cfg.Issuer,
			Subject:   RoleTeacher,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(a.cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("error generate token string: %w", err)
	}
	return token, expires, nil
}

// Verify parses a token and checks signature, expiry, issuer and role.
func (a *Authenticator) Verify(token string) (*Claims, error) {
	if !a.cfg.Enabled() {
		return nil, ErrNotConfigured
	}
	if token == "" {
		return nil, ErrInvalidToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	}
	if a.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.cfg.Issuer))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(a.cfg.JWTSecret), nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Role != RoleTeacher {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
