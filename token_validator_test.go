package presence_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/publika/go-presence"
)

// By default we set an expiration time 1 hour from now
func generateToken(t *testing.T, key []byte, claims jwt.MapClaims) string {
	t.Helper()

	if claims["exp"] == nil {
		claims["exp"] = time.Now().Add(time.Hour).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestJWTValidatorExtractsUserID(t *testing.T) {
	key := []byte("test-secret")
	validator := presence.NewJWTValidator(key)

	token := generateToken(t, key, jwt.MapClaims{"user_id": 42})

	claims, err := validator.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID())
}

func TestJWTValidatorRejectsExpiredToken(t *testing.T) {
	key := []byte("test-secret")
	validator := presence.NewJWTValidator(key)

	token := generateToken(t, key, jwt.MapClaims{
		"user_id": 42,
		"exp":     time.Now().Add(-time.Hour).Unix(),
	})

	_, err := validator.Validate(token)
	assert.ErrorIs(t, err, presence.ErrTokenExpired)
}

func TestJWTValidatorRejectsWrongKey(t *testing.T) {
	validator := presence.NewJWTValidator([]byte("right-key"))

	token := generateToken(t, []byte("wrong-key"), jwt.MapClaims{"user_id": 42})

	_, err := validator.Validate(token)
	assert.ErrorIs(t, err, presence.ErrTokenMalformed)
}

func TestJWTValidatorRejectsGarbage(t *testing.T) {
	validator := presence.NewJWTValidator([]byte("test-secret"))

	_, err := validator.Validate("not-a-token")
	assert.ErrorIs(t, err, presence.ErrTokenMalformed)
}

func TestTokenValidatorFunc(t *testing.T) {
	var fn presence.TokenValidatorFunc
	_, err := fn.Validate("anything")
	assert.ErrorIs(t, err, presence.ErrTokenMalformed)
}
