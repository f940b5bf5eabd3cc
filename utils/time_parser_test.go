package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"5m", 5 * time.Minute},
		{"1h30m", 90 * time.Minute},
		{"2d", 48 * time.Hour},
		{" 1W ", 7 * 24 * time.Hour},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"", "0m", "-5m", "xd", "0d", "soon"} {
		_, err := ParseDuration(bad)
		assert.Error(t, err, bad)
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "permanent", FormatDuration(0))
	assert.Equal(t, "5m", FormatDuration(5*time.Minute))
	assert.Equal(t, "1m30s", FormatDuration(90*time.Second))
	assert.Equal(t, "28d", FormatDuration(28*24*time.Hour))
	assert.Equal(t, "1d2h", FormatDuration(26*time.Hour))
	assert.Equal(t, "500ms", FormatDuration(500*time.Millisecond))
}
