package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransitionTo_ValidTransitions(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
	}{
		{StatusPending, StatusDownloading},
		{StatusDownloading, StatusCompleted},
		{StatusDownloading, StatusFailed},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.True(t, tt.from.CanTransitionTo(tt.to),
				"%s should be able to transition to %s", tt.from, tt.to)
		})
	}
}

func TestCanTransitionTo_InvalidTransitions(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
	}{
		{StatusPending, StatusCompleted},     // skip downloading
		{StatusPending, StatusFailed},        // never attempted
		{StatusDownloading, StatusPending},   // backwards
		{StatusCompleted, StatusPending},     // terminal
		{StatusCompleted, StatusFailed},      // terminal
		{StatusFailed, StatusPending},        // no retry
		{StatusFailed, StatusDownloading},    // no retry
		{Status("bogus"), StatusDownloading}, // unknown
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.False(t, tt.from.CanTransitionTo(tt.to),
				"%s should NOT be able to transition to %s", tt.from, tt.to)
		})
	}
}

func TestIsTerminal(t *testing.T) {
	for _, s := range []Status{StatusCompleted, StatusFailed} {
		assert.True(t, s.IsTerminal(), "%s should be terminal", s)
	}
	for _, s := range []Status{StatusPending, StatusDownloading} {
		assert.False(t, s.IsTerminal(), "%s should NOT be terminal", s)
	}
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("downloading")
	require.NoError(t, err)
	assert.Equal(t, StatusDownloading, s)

	_, err = ParseStatus("queued")
	assert.Error(t, err)
}
