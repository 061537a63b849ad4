// Package consumer bridges the user-lifecycle topic exchange to the
// presence Directory. Each queue gets its own blocking consume loop with
// explicit per-message acknowledgment: poison messages are dropped without
// requeue, transient failures are redelivered by the broker.
package consumer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/publika/go-presence"
)

// ErrMalformedPayload marks a message body that could not be decoded.
// Unrecoverable by retry.
var ErrMalformedPayload = errors.New("malformed event payload")

// MissingFieldError marks a decodable message missing a required field.
// Unrecoverable by retry.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return "missing required field: " + e.Field
}

// IsValidationError reports whether err is a permanent decode or validation
// failure, i.e. a poison message that must be dropped rather than requeued.
func IsValidationError(err error) bool {
	var missing *MissingFieldError
	return errors.Is(err, ErrMalformedPayload) || errors.As(err, &missing)
}

// StatusKind is the decoded variant of a status-stream event. Decoding is
// exhaustive: anything that is not a known kind becomes StatusUnknown and
// fails closed (logged, acknowledged) instead of mis-dispatching.
type StatusKind int

const (
	StatusUnknown StatusKind = iota
	StatusConnected
	StatusDisconnected
)

const (
	eventConnected    = "connected"
	eventDisconnected = "disconnected"
)

// StatusEvent is a decoded message from the status stream.
type StatusEvent struct {
	UserID   string
	Kind     StatusKind
	RawEvent string
	Attrs    presence.ConnectionAttrs
}

// DeletionEvent is a decoded message from the deletion stream.
type DeletionEvent struct {
	UserID string
}

type statusEnvelope struct {
	UserID   string `json:"user_id"`
	Event    string `json:"event"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

type deletionEnvelope struct {
	UserID string `json:"user_id"`
}

// DecodeStatusEvent parses a status-stream body into its tagged variant.
func DecodeStatusEvent(body []byte) (StatusEvent, error) {
	var env statusEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return StatusEvent{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if strings.TrimSpace(env.UserID) == "" {
		return StatusEvent{}, &MissingFieldError{Field: "user_id"}
	}
	if strings.TrimSpace(env.Event) == "" {
		return StatusEvent{}, &MissingFieldError{Field: "event"}
	}

	event := StatusEvent{
		UserID:   strings.TrimSpace(env.UserID),
		RawEvent: env.Event,
		Attrs: presence.ConnectionAttrs{
			Username: env.Username,
			Email:    env.Email,
			Role:     presence.UserRole(env.Role),
		},
	}

	switch env.Event {
	case eventConnected:
		event.Kind = StatusConnected
	case eventDisconnected:
		event.Kind = StatusDisconnected
	default:
		event.Kind = StatusUnknown
	}

	return event, nil
}

// DecodeDeletionEvent parses a deletion-stream body.
func DecodeDeletionEvent(body []byte) (DeletionEvent, error) {
	var env deletionEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return DeletionEvent{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if strings.TrimSpace(env.UserID) == "" {
		return DeletionEvent{}, &MissingFieldError{Field: "user_id"}
	}
	return DeletionEvent{UserID: strings.TrimSpace(env.UserID)}, nil
}
