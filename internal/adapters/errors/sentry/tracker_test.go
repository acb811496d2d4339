package sentry

import (
	"context"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"

	"signalengine/pkg/errors"
)

func TestConvertLevel(t *testing.T) {
	tests := []struct {
		in   errors.Level
		want sentry.Level
	}{
		{errors.LevelDebug, sentry.LevelDebug},
		{errors.LevelInfo, sentry.LevelInfo},
		{errors.LevelWarning, sentry.LevelWarning},
		{errors.LevelError, sentry.LevelError},
		{errors.LevelFatal, sentry.LevelFatal},
		{errors.Level("unknown"), sentry.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, convertLevel(tt.in))
		})
	}
}

func TestNewWithEmptyDSN(t *testing.T) {
	// An empty DSN disables transport but still yields a usable hub.
	tracker, err := New("", "test", "dev")
	assert.NoError(t, err)
	assert.NoError(t, tracker.CaptureError(context.Background(), errors.ErrInternal, map[string]string{"symbol": "BTCUSDT"}))
}
