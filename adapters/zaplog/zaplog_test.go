package zaplog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/publika/go-presence/adapters/zaplog"
)

func TestLoggerForwardsToZap(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := zaplog.New(zap.New(core).Sugar())

	logger.Debug("debug %d", 1)
	logger.Info("info %s", "msg")
	logger.Error("error %v", assert.AnError)

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "debug 1", entries[0].Message)
	assert.Equal(t, zap.DebugLevel, entries[0].Level)
	assert.Equal(t, "info msg", entries[1].Message)
	assert.Equal(t, zap.ErrorLevel, entries[2].Level)
}

func TestNilSugarIsSafe(t *testing.T) {
	logger := zaplog.New(nil)
	assert.NotPanics(t, func() {
		logger.Info("still works")
	})
}
