// Package presencegate gates inbound requests on token validity and
// active-session status. A request is admitted only when its bearer token
// verifies, the claimed user exists in the presence directory, and that
// user is a current member of the active set. Every failure mode yields the
// same uniform 401: callers learn nothing about why they were rejected.
package presencegate

import (
	"context"
	"errors"
	"strings"

	"github.com/goliatone/go-router"

	"github.com/publika/go-presence"
)

// ErrMissingToken is returned when no bearer token could be extracted.
var ErrMissingToken = errors.New("missing or malformed bearer token")

// ErrUnknownUser is returned when the token's user id resolves to nobody.
var ErrUnknownUser = errors.New("unknown user")

// ErrInactiveUser is returned when the user has no active session.
var ErrInactiveUser = errors.New("user has no active session")

// Directory is the presence surface the gate consults.
type Directory interface {
	GetUser(ctx context.Context, id int64) (*presence.User, error)
	IsUserActive(ctx context.Context, id int64) (bool, error)
}

type Config struct {
	// Filter skips the gate entirely when it returns true, e.g. for health
	// endpoints or when auth is disabled in dev.
	Filter         func(router.Context) bool
	SuccessHandler router.HandlerFunc
	ErrorHandler   router.ErrorHandler
	// TokenValidator is required.
	TokenValidator presence.TokenValidator
	// Directory is required.
	Directory Directory
	// ContextKey is where the admitted *presence.User is stored in locals.
	ContextKey string
	AuthScheme string
	HeaderName string

	// RequiredRole specifies an exact role the admitted user must hold.
	RequiredRole presence.UserRole
	// MinimumRole specifies the minimum role level required (uses the role
	// hierarchy client < worker < admin).
	MinimumRole presence.UserRole

	// ContextEnricher is an optional function to propagate the admitted
	// user to the standard Go context, e.g. presence.WithUser.
	ContextEnricher func(ctx context.Context, user *presence.User) context.Context
}

func New(config ...Config) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		cfg := GetDefaultConfig(config...)
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return ctx.Next()
			}

			raw, err := extractBearer(ctx, cfg.HeaderName, cfg.AuthScheme)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			claims, err := cfg.TokenValidator.Validate(raw)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			stdCtx := ctx.Context()
			if stdCtx == nil {
				stdCtx = context.Background()
			}

			user, err := cfg.Directory.GetUser(stdCtx, claims.UserID())
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}
			if user == nil {
				return cfg.ErrorHandler(ctx, ErrUnknownUser)
			}

			active, err := cfg.Directory.IsUserActive(stdCtx, user.ID)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}
			if !active {
				return cfg.ErrorHandler(ctx, ErrInactiveUser)
			}

			if err := checkRole(user, cfg); err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			ctx.Locals(cfg.ContextKey, user)

			if cfg.ContextEnricher != nil {
				ctx.SetContext(cfg.ContextEnricher(stdCtx, user))
			}

			return cfg.SuccessHandler(ctx)
		}
	}
}

// ErrForbiddenRole is returned when the user's role fails the configured
// role checks. The default handler still renders it as a uniform 401.
var ErrForbiddenRole = errors.New("role does not meet requirements")

func checkRole(user *presence.User, cfg Config) error {
	if cfg.RequiredRole != "" && user.Role != cfg.RequiredRole {
		return ErrForbiddenRole
	}
	if cfg.MinimumRole != "" && !user.Role.IsAtLeast(cfg.MinimumRole) {
		return ErrForbiddenRole
	}
	return nil
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.TokenValidator == nil {
		panic("PRESENCE: gate middleware configuration: TokenValidator is required.")
	}

	if cfg.Directory == nil {
		panic("PRESENCE: gate middleware configuration: Directory is required.")
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(ctx router.Context) error {
			return ctx.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		// Uniform rejection: never existed, cache+store miss, and
		// explicitly disconnected all look identical from outside.
		cfg.ErrorHandler = func(c router.Context, err error) error {
			return c.Status(router.StatusUnauthorized).SendString("Unauthorized")
		}
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "user"
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	if cfg.HeaderName == "" {
		cfg.HeaderName = router.HeaderAuthorization
	}

	return cfg
}

func extractBearer(c router.Context, header, authScheme string) (string, error) {
	a := c.GetString(header, "")
	l := len(authScheme)
	if l == 0 {
		return "", ErrMissingToken
	}
	if len(a) > l+1 && strings.EqualFold(a[:l], authScheme) {
		return strings.TrimSpace(a[l:]), nil
	}
	return "", ErrMissingToken
}
