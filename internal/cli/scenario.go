package cli

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/iForgotThePlusC/Wind-Turbines/internal/geometry"
	"github.com/iForgotThePlusC/Wind-Turbines/internal/optimization"
	"github.com/iForgotThePlusC/Wind-Turbines/internal/optimization/layout"
)

// Turbine count range accepted from flags and scenario files.
const (
	minTurbines = 1
	maxTurbines = 50
)

// Scenario describes one offline optimization run. It is read from a TOML
// file; every field has a flag of the same meaning.
//
//	turbines = 12
//	radius = 40.0
//	wake_coefficient = 0.5
//	width = 800.0
//	height = 800.0
//	delta = 1.0
//	learning_rate = 15.0
//	steps = 200
//	tolerance = 1e-3
//	patience = 5
//	seed = 42
//
//	[[positions]]
//	x = 0.0
//	y = 0.0
type Scenario struct {
	Turbines        int                `toml:"turbines"`
	Radius          float64            `toml:"radius"`
	WakeCoefficient float64            `toml:"wake_coefficient"`
	Width           float64            `toml:"width"`
	Height          float64            `toml:"height"`
	Delta           float64            `toml:"delta"`
	LearningRate    float64            `toml:"learning_rate"`
	Steps           int                `toml:"steps"`
	Tolerance       float64            `toml:"tolerance"`
	Patience        int                `toml:"patience"`
	Seed            *int64             `toml:"seed"`
	Positions       []geometry.Vector2 `toml:"positions"`
}

// defaultScenario returns the interactive defaults: ten turbines of radius 40
// on an 800×800 site.
func defaultScenario() Scenario {
	return Scenario{
		Turbines:        10,
		Radius:          40,
		WakeCoefficient: 0.5,
		Width:           800,
		Height:          800,
		Delta:           1,
		LearningRate:    15,
		Steps:           100,
		Patience:        5,
	}
}

// loadScenario decodes path over the defaults. Unknown keys are an error so
// that typos do not pass silently.
func loadScenario(path string) (Scenario, error) {
	sc := defaultScenario()
	md, err := toml.DecodeFile(path, &sc)
	if err != nil {
		return Scenario{}, fmt.Errorf("decode scenario %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Scenario{}, fmt.Errorf("scenario %s: unknown key %q", path, undecoded[0].String())
	}
	return sc, nil
}

// turbineCount returns the number of turbines the scenario runs with: the
// number of explicit positions if any, otherwise Turbines clamped to the
// accepted range.
func (s Scenario) turbineCount() int {
	if len(s.Positions) > 0 {
		return len(s.Positions)
	}
	switch {
	case s.Turbines < minTurbines:
		return minTurbines
	case s.Turbines > maxTurbines:
		return maxTurbines
	default:
		return s.Turbines
	}
}

// layoutConfig returns the optimizer geometry.
func (s Scenario) layoutConfig() layout.Config {
	return layout.Config{
		Turbines:        s.turbineCount(),
		Radius:          s.Radius,
		WakeCoefficient: s.WakeCoefficient,
		Boundary:        geometry.NewRectangle(s.Width, s.Height),
	}
}

// runConfig returns the loop settings.
func (s Scenario) runConfig() optimization.RunConfig {
	return optimization.RunConfig{
		MaxIterations: s.Steps,
		Tolerance:     s.Tolerance,
		Patience:      s.Patience,
	}
}

// validate checks the fields the optimizer does not.
func (s Scenario) validate() error {
	if len(s.Positions) > maxTurbines {
		return fmt.Errorf("%d positions exceed the maximum of %d turbines", len(s.Positions), maxTurbines)
	}
	if s.Steps < 1 {
		return fmt.Errorf("steps must be at least 1, got %d", s.Steps)
	}
	if s.Tolerance < 0 {
		return fmt.Errorf("tolerance must not be negative, got %v", s.Tolerance)
	}
	return nil
}
