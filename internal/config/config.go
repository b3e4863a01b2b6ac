package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/iForgotThePlusC/Wind-Turbines/internal/geometry"
	"github.com/iForgotThePlusC/Wind-Turbines/internal/logging"
	"github.com/iForgotThePlusC/Wind-Turbines/internal/optimization/layout"
)

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	}
	Logging logging.Config
	// Layout holds the defaults a new session starts from.
	Layout struct {
		Turbines        int     `env:"LAYOUT_TURBINES" envDefault:"10"`
		MinTurbines     int     `env:"LAYOUT_MIN_TURBINES" envDefault:"1"`
		MaxTurbines     int     `env:"LAYOUT_MAX_TURBINES" envDefault:"50"`
		Radius          float64 `env:"LAYOUT_RADIUS" envDefault:"40"`
		WakeCoefficient float64 `env:"LAYOUT_WAKE_COEFFICIENT" envDefault:"0.5"`
		Width           float64 `env:"LAYOUT_WIDTH" envDefault:"800"`
		Height          float64 `env:"LAYOUT_HEIGHT" envDefault:"800"`
		Delta           float64 `env:"LAYOUT_DELTA" envDefault:"1"`
		LearningRate    float64 `env:"LAYOUT_LEARNING_RATE" envDefault:"15"`
	}
	Simulation struct {
		TickInterval       time.Duration `env:"SIM_TICK_INTERVAL" envDefault:"16ms"`
		MaxSessions        int           `env:"SIM_MAX_SESSIONS" envDefault:"64"`
		MaxStepsPerRequest int           `env:"SIM_MAX_STEPS_PER_REQUEST" envDefault:"1000"`
	}
}

func Load() (*Config, error) {
	cfg := &Config{}

	// Parse environment variables
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Set default logging level based on environment
	if cfg.Logging.Level == "" {
		if cfg.Environment == "development" {
			cfg.Logging.Level = "debug"
		} else {
			cfg.Logging.Level = "info"
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cross-field constraints the env tags cannot express.
func (c *Config) Validate() error {
	l := c.Layout
	if l.MinTurbines < 1 || l.MaxTurbines < l.MinTurbines {
		return fmt.Errorf("invalid turbine range [%d, %d]", l.MinTurbines, l.MaxTurbines)
	}
	if l.Turbines < l.MinTurbines || l.Turbines > l.MaxTurbines {
		return fmt.Errorf("LAYOUT_TURBINES=%d outside [%d, %d]", l.Turbines, l.MinTurbines, l.MaxTurbines)
	}
	if err := c.LayoutConfig(l.Turbines).Validate(); err != nil {
		return err
	}
	if !(l.Delta > 0) || !(l.LearningRate > 0) {
		return fmt.Errorf("delta and learning rate must be positive, got %v and %v", l.Delta, l.LearningRate)
	}
	if c.Simulation.TickInterval <= 0 {
		return fmt.Errorf("SIM_TICK_INTERVAL must be positive, got %v", c.Simulation.TickInterval)
	}
	if c.Simulation.MaxSessions < 1 || c.Simulation.MaxStepsPerRequest < 1 {
		return fmt.Errorf("SIM_MAX_SESSIONS and SIM_MAX_STEPS_PER_REQUEST must be at least 1")
	}
	return nil
}

// LayoutConfig returns the optimizer geometry for n turbines.
func (c *Config) LayoutConfig(n int) layout.Config {
	return layout.Config{
		Turbines:        n,
		Radius:          c.Layout.Radius,
		WakeCoefficient: c.Layout.WakeCoefficient,
		Boundary:        geometry.NewRectangle(c.Layout.Width, c.Layout.Height),
	}
}

// ClampTurbines limits n to the configured turbine range.
func (c *Config) ClampTurbines(n int) int {
	if n < c.Layout.MinTurbines {
		return c.Layout.MinTurbines
	}
	if n > c.Layout.MaxTurbines {
		return c.Layout.MaxTurbines
	}
	return n
}
