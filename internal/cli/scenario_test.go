package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario(t *testing.T) {
	path := writeScenario(t, `
turbines = 12
radius = 25.0
learning_rate = 8.0
seed = 42

[[positions]]
x = -10.0
y = 5.0

[[positions]]
x = 30.0
y = 0.0
`)

	sc, err := loadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, 12, sc.Turbines)
	assert.Equal(t, 25.0, sc.Radius)
	assert.Equal(t, 8.0, sc.LearningRate)
	require.NotNil(t, sc.Seed)
	assert.Equal(t, int64(42), *sc.Seed)
	require.Len(t, sc.Positions, 2)
	assert.Equal(t, -10.0, sc.Positions[0].X)

	// Keys not in the file keep their defaults
	def := defaultScenario()
	assert.Equal(t, def.WakeCoefficient, sc.WakeCoefficient)
	assert.Equal(t, def.Width, sc.Width)
	assert.Equal(t, def.Delta, sc.Delta)
	assert.Equal(t, def.Steps, sc.Steps)

	// Explicit positions decide the turbine count
	assert.Equal(t, 2, sc.turbineCount())
}

func TestLoadScenarioErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown key", "turbine = 3\n"},
		{"wrong type", "turbines = \"three\"\n"},
		{"malformed", "turbines = \n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadScenario(writeScenario(t, tt.content))
			assert.Error(t, err)
		})
	}

	_, err := loadScenario(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestTurbineCountClamps(t *testing.T) {
	tests := []struct {
		turbines int
		want     int
	}{
		{-5, minTurbines},
		{0, minTurbines},
		{1, 1},
		{25, 25},
		{50, 50},
		{51, maxTurbines},
	}

	for _, tt := range tests {
		sc := defaultScenario()
		sc.Turbines = tt.turbines
		assert.Equal(t, tt.want, sc.turbineCount(), "turbines=%d", tt.turbines)
		assert.Equal(t, tt.want, sc.layoutConfig().Turbines)
	}
}

func TestScenarioValidate(t *testing.T) {
	assert.NoError(t, defaultScenario().validate())

	sc := defaultScenario()
	sc.Steps = 0
	assert.Error(t, sc.validate())

	sc = defaultScenario()
	sc.Tolerance = -1
	assert.Error(t, sc.validate())
}

func TestResolveFlagsOverrideScenario(t *testing.T) {
	path := writeScenario(t, `
turbines = 12
radius = 25.0
steps = 40

[[positions]]
x = 0.0
y = 0.0
`)

	f := runFlags{scenario: path, Scenario: defaultScenario()}
	f.Radius = 60
	f.Turbines = 4
	f.Steps = 7 // not marked as changed
	f.seed = 9

	changed := map[string]bool{"radius": true, "turbines": true, "seed": true}
	sc, err := f.resolve(func(name string) bool { return changed[name] })
	require.NoError(t, err)

	assert.Equal(t, 60.0, sc.Radius)
	assert.Equal(t, 4, sc.Turbines)
	assert.Empty(t, sc.Positions, "an explicit turbine count drops scenario positions")
	assert.Equal(t, 40, sc.Steps)
	require.NotNil(t, sc.Seed)
	assert.Equal(t, int64(9), *sc.Seed)
}

func TestResolveWithoutScenario(t *testing.T) {
	f := runFlags{Scenario: defaultScenario()}
	f.Turbines = 3

	sc, err := f.resolve(func(string) bool { return false })
	require.NoError(t, err)
	assert.Equal(t, 3, sc.Turbines)
	assert.Nil(t, sc.Seed)
}
