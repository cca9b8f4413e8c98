package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		duration time.Duration
		expected string
	}{
		{name: "zero", duration: 0, expected: "0s"},
		{name: "negative", duration: -time.Minute, expected: "0s"},
		{name: "seconds only", duration: 42 * time.Second, expected: "42s"},
		{name: "whole minutes", duration: 5 * time.Minute, expected: "5m"},
		{name: "minutes and seconds", duration: 90 * time.Second, expected: "1m 30s"},
		{name: "whole hours", duration: 2 * time.Hour, expected: "2h"},
		{name: "hours and minutes", duration: time.Hour + 30*time.Minute, expected: "1h 30m"},
		{name: "sub-second rounds", duration: 500 * time.Millisecond, expected: "1s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, formatDuration(tt.duration))
		})
	}
}

func TestEmbedColors(t *testing.T) {
	t.Parallel()

	success := successEmbed("grabbed a byte")
	assert.Equal(t, colorSuccess, success.Color)
	assert.Equal(t, "Success!", success.Title)

	failure := failureEmbed("on cooldown")
	assert.Equal(t, colorFailure, failure.Color)
	assert.Equal(t, "Uh oh!", failure.Title)
}
