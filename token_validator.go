package presence

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims is the token payload issued by the upstream auth service. The
// user_id claim carries the internal id the rest of the system keys on.
type JWTClaims struct {
	UserIDClaim int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// UserID satisfies the Claims interface.
func (c *JWTClaims) UserID() int64 {
	return c.UserIDClaim
}

// JWTValidator validates HMAC-signed bearer tokens and extracts the
// internal user id from the user_id claim.
type JWTValidator struct {
	signingKey []byte
	logger     Logger
}

var _ TokenValidator = (*JWTValidator)(nil)

type JWTValidatorOption func(*JWTValidator)

// WithValidatorLogger replaces the default stdout logger.
func WithValidatorLogger(logger Logger) JWTValidatorOption {
	return func(v *JWTValidator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// NewJWTValidator creates a validator for tokens signed with the shared key.
func NewJWTValidator(signingKey []byte, opts ...JWTValidatorOption) *JWTValidator {
	v := &JWTValidator{
		signingKey: signingKey,
		logger:     defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

// Validate parses and verifies a token string, returning structured claims.
func (v *JWTValidator) Validate(tokenString string) (Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			v.logger.Error("token validate encountered unexpected signing method: %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}

	v.logger.Error("token validate could not decode claims")
	return nil, ErrTokenMalformed
}
