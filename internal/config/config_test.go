package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 10, cfg.Layout.Turbines)
	assert.Equal(t, 1, cfg.Layout.MinTurbines)
	assert.Equal(t, 50, cfg.Layout.MaxTurbines)
	assert.Equal(t, 40.0, cfg.Layout.Radius)
	assert.Equal(t, 0.5, cfg.Layout.WakeCoefficient)
	assert.Equal(t, 1.0, cfg.Layout.Delta)
	assert.Equal(t, 15.0, cfg.Layout.LearningRate)
	assert.Equal(t, 16*time.Millisecond, cfg.Simulation.TickInterval)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("LAYOUT_TURBINES", "20")
	t.Setenv("LAYOUT_WIDTH", "1000")
	t.Setenv("SIM_TICK_INTERVAL", "50ms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 20, cfg.Layout.Turbines)
	assert.Equal(t, 50*time.Millisecond, cfg.Simulation.TickInterval)

	lc := cfg.LayoutConfig(cfg.Layout.Turbines)
	assert.Equal(t, 1000.0, lc.Boundary.Width)
	assert.Equal(t, 800.0, lc.Boundary.Height)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unparsable port", "HTTP_PORT", "eighty"},
		{"turbines above range", "LAYOUT_TURBINES", "51"},
		{"inverted range", "LAYOUT_MIN_TURBINES", "60"},
		{"zero radius", "LAYOUT_RADIUS", "0"},
		{"k of one", "LAYOUT_WAKE_COEFFICIENT", "1"},
		{"negative delta", "LAYOUT_DELTA", "-1"},
		{"zero tick", "SIM_TICK_INTERVAL", "0s"},
		{"no sessions", "SIM_MAX_SESSIONS", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestClampTurbines(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.ClampTurbines(0))
	assert.Equal(t, 50, cfg.ClampTurbines(51))
	assert.Equal(t, 11, cfg.ClampTurbines(11))
}
