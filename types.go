package presence

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// Users is the durable store for user records, the source of truth the
// cache accelerates.
type Users interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByExternalID(ctx context.Context, externalID string) (*User, error)
	Upsert(ctx context.Context, record *User) (*User, error)
	Delete(ctx context.Context, externalID string) error
}

// Cache is the TTL-based presence accelerator: serialized user snapshots
// plus the active-user set. Implementations return ErrCacheMiss for absent
// snapshot keys.
type Cache interface {
	GetUser(ctx context.Context, id int64) (*User, error)
	SetUser(ctx context.Context, user *User) error
	DeleteUser(ctx context.Context, id int64) error
	AddActive(ctx context.Context, id int64) error
	RemoveActive(ctx context.Context, id int64) error
	IsActive(ctx context.Context, id int64) (bool, error)
}

// Claims is the decoded token payload the middleware needs: which internal
// user the bearer claims to be.
type Claims interface {
	UserID() int64
}

// TokenValidator validates tokens and extracts claims without tying callers
// to a specific signing implementation.
type TokenValidator interface {
	Validate(tokenString string) (Claims, error)
}

// TokenValidatorFunc adapts a function into a TokenValidator.
type TokenValidatorFunc func(tokenString string) (Claims, error)

// Validate satisfies the TokenValidator interface.
func (f TokenValidatorFunc) Validate(tokenString string) (Claims, error) {
	if f == nil {
		return nil, ErrTokenMalformed
	}
	return f(tokenString)
}

// NewDefaultLogger returns the stdout fallback logger. Subpackages use it
// when no logger is injected.
func NewDefaultLogger() Logger {
	return defLogger{}
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] PRESENCE "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] PRESENCE "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] PRESENCE "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
