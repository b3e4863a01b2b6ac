package server

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/iForgotThePlusC/Wind-Turbines/internal/geometry"
	"github.com/iForgotThePlusC/Wind-Turbines/internal/optimization/layout"
)

// Session statuses
const (
	StatusIdle    = "idle"
	StatusRunning = "running"
)

// Session owns one layout optimizer. Every access to the optimizer goes
// through mu, which gives the optimizer the single caller it requires even
// while a background driver is stepping it.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu        sync.Mutex
	optimizer *layout.Optimizer
	status    string
	updatedAt time.Time

	// Background driver, set while running
	cancel context.CancelFunc
	done   chan struct{}
}

// LayoutState is the externally visible snapshot of a session.
type LayoutState struct {
	ID              string             `json:"id"`
	Status          string             `json:"status"`
	Turbines        int                `json:"turbines"`
	Radius          float64            `json:"radius"`
	WakeCoefficient float64            `json:"wake_coefficient"`
	Boundary        geometry.Rectangle `json:"boundary"`
	Positions       []geometry.Vector2 `json:"positions"`
	CurrentPower    float64            `json:"current_power"`
	MaxPower        float64            `json:"max_power"`
	Delta           float64            `json:"delta"`
	LearningRate    float64            `json:"learning_rate"`
	Steps           int                `json:"steps"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// snapshotLocked builds the state view. The caller holds mu.
func (s *Session) snapshotLocked() *LayoutState {
	o := s.optimizer
	return &LayoutState{
		ID:              s.ID,
		Status:          s.status,
		Turbines:        o.Turbines(),
		Radius:          o.Radius(),
		WakeCoefficient: o.WakeCoefficient(),
		Boundary:        o.Boundary(),
		Positions:       o.Positions(),
		CurrentPower:    o.CurrentPower(),
		MaxPower:        o.MaxPower(),
		Delta:           o.Delta(),
		LearningRate:    o.LearningRate(),
		Steps:           o.Steps(),
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.updatedAt,
	}
}

// stepLocked advances the optimizer count times and records metrics. The
// caller holds mu.
func (s *Session) stepLocked(count int, m *metrics) {
	for i := 0; i < count; i++ {
		timer := prometheus.NewTimer(m.stepDuration)
		s.optimizer.Step()
		timer.ObserveDuration()
		m.steps.Inc()
	}
	if count > 0 {
		m.power.WithLabelValues(s.ID).Set(s.optimizer.CurrentPower())
		s.updatedAt = time.Now()
	}
}

// drive steps the session once per tick until ctx is done.
func (s *Session) drive(ctx context.Context, tick time.Duration, m *metrics, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			s.stepLocked(1, m)
			s.mu.Unlock()
		}
	}
}

// stop cancels the background driver, if any, and waits for it to exit.
// It reports whether a driver was running.
func (s *Session) stop() bool {
	s.mu.Lock()
	if s.status != StatusRunning {
		s.mu.Unlock()
		return false
	}
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.status = StatusIdle
	s.updatedAt = time.Now()
	s.mu.Unlock()

	cancel()
	<-done
	return true
}
