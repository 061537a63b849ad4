package presence

import (
	"errors"
)

// ErrUserNotFound is the error repositories return for rows that do not
// exist. Directory operations that tolerate absence swallow it.
var ErrUserNotFound = errors.New("user not found")

// ErrCacheMiss is the error caches return for keys that are absent or
// expired. It is a signal, not a failure: callers fall through to the store.
var ErrCacheMiss = errors.New("cache miss")

// ErrTokenMalformed is returned for tokens that cannot be parsed or whose
// signature does not verify
var ErrTokenMalformed = errors.New("token is malformed")

// ErrTokenExpired is returned for structurally valid but expired tokens
var ErrTokenExpired = errors.New("token is expired")

// IsNotFound will check for the repository not-found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

// IsCacheMiss will check for the cache absence signal
func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}
