package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 15*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 3, cfg.Rounds)
	assert.Equal(t, 60*time.Second, cfg.TurnDuration)
	assert.Equal(t, 3*time.Second, cfg.TurnGap)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("IQ180_HOST", "127.0.0.1")
	t.Setenv("IQ180_PORT", "9090")
	t.Setenv("IQ180_ROUNDS", "5")
	t.Setenv("IQ180_TURN_DURATION", "90s")
	t.Setenv("IQ180_TURN_GAP", "500ms")
	t.Setenv("IQ180_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	server := cfg.Server()
	assert.Equal(t, "127.0.0.1", server.Host)
	assert.Equal(t, 9090, server.Port)

	pacing := cfg.Conductor()
	assert.Equal(t, 5, pacing.Rounds)
	assert.Equal(t, 90*time.Second, pacing.TurnDuration)
	assert.Equal(t, 500*time.Millisecond, pacing.TurnGap)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestLoadParseError(t *testing.T) {
	t.Setenv("IQ180_PORT", "not-a-port")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"zero rounds", "IQ180_ROUNDS", "0"},
		{"zero turn duration", "IQ180_TURN_DURATION", "0s"},
		{"negative gap", "IQ180_TURN_GAP", "-1s"},
		{"port out of range", "IQ180_PORT", "70000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}
