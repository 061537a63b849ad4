package consumer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/publika/go-presence"
	"github.com/publika/go-presence/consumer"
)

func TestDecodeStatusEventConnected(t *testing.T) {
	body := []byte(`{"user_id":"ext-1","event":"connected","username":"Alice","email":"alice@example.com","role":"worker"}`)

	event, err := consumer.DecodeStatusEvent(body)
	require.NoError(t, err)

	assert.Equal(t, "ext-1", event.UserID)
	assert.Equal(t, consumer.StatusConnected, event.Kind)
	assert.Equal(t, presence.ConnectionAttrs{
		Username: "Alice",
		Email:    "alice@example.com",
		Role:     presence.RoleWorker,
	}, event.Attrs)
}

func TestDecodeStatusEventDisconnected(t *testing.T) {
	event, err := consumer.DecodeStatusEvent([]byte(`{"user_id":"ext-1","event":"disconnected"}`))
	require.NoError(t, err)

	assert.Equal(t, consumer.StatusDisconnected, event.Kind)
}

func TestDecodeStatusEventUnknownKindFailsClosed(t *testing.T) {
	event, err := consumer.DecodeStatusEvent([]byte(`{"user_id":"ext-1","event":"promoted"}`))
	require.NoError(t, err, "unknown event types decode successfully as Unknown")

	assert.Equal(t, consumer.StatusUnknown, event.Kind)
	assert.Equal(t, "promoted", event.RawEvent)
}

func TestDecodeStatusEventMalformedBody(t *testing.T) {
	_, err := consumer.DecodeStatusEvent([]byte(`{not json`))
	assert.ErrorIs(t, err, consumer.ErrMalformedPayload)
	assert.True(t, consumer.IsValidationError(err))
}

func TestDecodeStatusEventMissingFields(t *testing.T) {
	cases := []struct {
		name  string
		body  string
		field string
	}{
		{"missing user_id", `{"event":"connected"}`, "user_id"},
		{"blank user_id", `{"user_id":"  ","event":"connected"}`, "user_id"},
		{"missing event", `{"user_id":"ext-1"}`, "event"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := consumer.DecodeStatusEvent([]byte(tc.body))
			require.Error(t, err)
			assert.True(t, consumer.IsValidationError(err))
			assert.Contains(t, err.Error(), tc.field)
		})
	}
}

func TestDecodeDeletionEvent(t *testing.T) {
	event, err := consumer.DecodeDeletionEvent([]byte(`{"user_id":"ext-1"}`))
	require.NoError(t, err)
	assert.Equal(t, "ext-1", event.UserID)

	_, err = consumer.DecodeDeletionEvent([]byte(`{}`))
	assert.True(t, consumer.IsValidationError(err))

	_, err = consumer.DecodeDeletionEvent([]byte(`broken`))
	assert.ErrorIs(t, err, consumer.ErrMalformedPayload)
}

func TestIsValidationErrorIgnoresOtherErrors(t *testing.T) {
	assert.False(t, consumer.IsValidationError(assert.AnError))
	assert.False(t, consumer.IsValidationError(nil))
}
