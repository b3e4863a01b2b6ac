// Package layout implements the turbine layout optimizer: a wake-shadow power
// model averaged over evenly spaced wind directions, a forward-difference
// gradient of that model and a clamped gradient-ascent step.
//
// An Optimizer is not safe for concurrent use. Drivers call Step and read
// Positions and CurrentPower from one goroutine, or serialize access.
package layout

import (
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/iForgotThePlusC/Wind-Turbines/internal/geometry"
	"github.com/iForgotThePlusC/Wind-Turbines/internal/optimization"
	"github.com/iForgotThePlusC/Wind-Turbines/internal/optimization/wake"
)

const (
	// AngleCount is the number of wind directions the power is averaged over.
	AngleCount = 20

	// DefaultDelta is the finite-difference step used when none is configured.
	DefaultDelta = 3.0
	// DefaultLearningRate scales the gradient when none is configured.
	DefaultLearningRate = 5.0

	component = "layout_optimizer"
)

// Config describes the fixed geometry of a layout.
type Config struct {
	// Number of turbines
	Turbines int `json:"turbines" toml:"turbines"`
	// Footprint radius of every turbine
	Radius float64 `json:"radius" toml:"radius"`
	// Wake-loss coefficient k in (0, 1)
	WakeCoefficient float64 `json:"wake_coefficient" toml:"wake_coefficient"`
	// Region the turbines must stay in
	Boundary geometry.Rectangle `json:"boundary" toml:"boundary"`
}

// Validate checks the configuration and returns an *optimization.Error
// describing the first problem found.
func (c Config) Validate() error {
	const op = "Config.Validate"

	var err *optimization.Error
	switch {
	case c.Turbines < 0:
		err = optimization.InvalidParameter("turbines", c.Turbines, "must not be negative")
	case !(c.Radius > 0) || math.IsInf(c.Radius, 0):
		err = optimization.InvalidParameter("radius", c.Radius, "must be positive and finite")
	case !(c.WakeCoefficient > 0 && c.WakeCoefficient < 1):
		err = optimization.InvalidParameter("wake_coefficient", c.WakeCoefficient, "must be in (0, 1)")
	default:
		if bErr := c.Boundary.Validate(); bErr != nil {
			err = optimization.InvalidParameter("boundary", c.Boundary, bErr.Error())
		}
	}
	if err != nil {
		return err.WithComponent(component).WithOperation(op)
	}
	return nil
}

// Option customizes an Optimizer.
type Option func(*Optimizer)

// WithLogger sets the logger. The optimizer names it "layout_optimizer".
func WithLogger(logger *zap.Logger) Option {
	return func(o *Optimizer) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithSeed seeds the random source used by Randomize.
func WithSeed(seed int64) Option {
	return func(o *Optimizer) {
		o.rng = rand.New(rand.NewSource(seed))
	}
}

// WithRand sets the random source used by Randomize.
func WithRand(rng *rand.Rand) Option {
	return func(o *Optimizer) {
		if rng != nil {
			o.rng = rng
		}
	}
}

// WithDelta sets the initial finite-difference step.
func WithDelta(delta float64) Option {
	return func(o *Optimizer) {
		o.delta = delta
	}
}

// WithLearningRate sets the initial gradient scale.
func WithLearningRate(rate float64) Option {
	return func(o *Optimizer) {
		o.learningRate = rate
	}
}

// WithWakeModel replaces the geometric wake model built from
// Config.WakeCoefficient.
func WithWakeModel(m wake.Model) Option {
	return func(o *Optimizer) {
		if m != nil {
			o.wake = m
		}
	}
}

// Optimizer positions a fixed number of turbines inside a rectangle so as to
// maximize their mean power.
type Optimizer struct {
	// Geometry, fixed for the lifetime of the optimizer
	n        int
	radius   float64
	boundary geometry.Rectangle
	wake     wake.Model

	// One rotation per sampled wind direction
	rotations []geometry.RotationMatrix

	// Layout state
	positions    []geometry.Vector2
	currentPower float64
	steps        int

	// Tuning
	delta        float64
	learningRate float64

	rng    *rand.Rand
	pool   *bufferPool
	logger *zap.Logger

	// Scratch layout for gradient probes
	probe []geometry.Vector2
}

// New creates an optimizer for cfg. All turbines start at the origin; call
// Randomize for a usable starting layout.
func New(cfg Config, opts ...Option) (*Optimizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &Optimizer{
		n:            cfg.Turbines,
		radius:       cfg.Radius,
		boundary:     cfg.Boundary,
		wake:         wake.NewGeometric(cfg.WakeCoefficient),
		rotations:    geometry.Bank(AngleCount),
		positions:    make([]geometry.Vector2, cfg.Turbines),
		delta:        DefaultDelta,
		learningRate: DefaultLearningRate,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		pool:         newBufferPool(),
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.Named(component)

	if err := checkPositive("delta", o.delta); err != nil {
		return nil, err.WithOperation("New")
	}
	if err := checkPositive("learning_rate", o.learningRate); err != nil {
		return nil, err.WithOperation("New")
	}

	o.logger.Debug("Created layout optimizer",
		zap.Int("turbines", o.n),
		zap.Float64("radius", o.radius),
		zap.Float64("k", o.wake.Coefficient()),
		zap.Float64("width", o.boundary.Width),
		zap.Float64("height", o.boundary.Height),
	)

	return o, nil
}

// Randomize places every turbine independently and uniformly at random inside
// the boundary.
func (o *Optimizer) Randomize() {
	b := o.boundary
	for i := range o.positions {
		o.positions[i] = geometry.Vector2{
			X: b.MinX() + o.rng.Float64()*b.Width,
			Y: b.MinY() + o.rng.Float64()*b.Height,
		}
	}
	o.logger.Debug("Randomized layout", zap.Int("turbines", o.n))
}

// SetPositions replaces the layout. It requires exactly Turbines() finite
// points inside the boundary.
func (o *Optimizer) SetPositions(points []geometry.Vector2) error {
	const op = "SetPositions"

	if len(points) != o.n {
		return optimization.InvalidParameter("positions", len(points), "length must equal the turbine count").
			WithComponent(component).WithOperation(op)
	}
	for i, p := range points {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || !o.boundary.Contains(p) {
			return optimization.InvalidParameter("positions", i, "point "+p.String()+" is outside the boundary").
				WithComponent(component).WithOperation(op)
		}
	}
	copy(o.positions, points)
	return nil
}

// SetDelta sets the finite-difference step. Zero, negative and non-finite
// values are rejected and leave the step unchanged.
func (o *Optimizer) SetDelta(delta float64) error {
	if err := checkPositive("delta", delta); err != nil {
		return err.WithOperation("SetDelta")
	}
	o.delta = delta
	return nil
}

// SetLearningRate sets the gradient scale. Zero, negative and non-finite
// values are rejected and leave the rate unchanged.
func (o *Optimizer) SetLearningRate(rate float64) error {
	if err := checkPositive("learning_rate", rate); err != nil {
		return err.WithOperation("SetLearningRate")
	}
	o.learningRate = rate
	return nil
}

// Step performs one gradient-ascent iteration. The mean power of the current
// layout is recorded as CurrentPower, every turbine is moved along its
// learning-rate scaled gradient computed against that same layout, and the
// results are clamped to the boundary.
func (o *Optimizer) Step() {
	f1 := o.MeanPower(o.positions)
	o.currentPower = f1

	grad := o.Gradient(o.positions, f1)

	next := make([]geometry.Vector2, o.n)
	maxMove := 0.0
	for i, p := range o.positions {
		moved := o.boundary.Clamp(p.Add(grad[i].Scale(o.learningRate)))
		maxMove = math.Max(maxMove, math.Hypot(moved.X-p.X, moved.Y-p.Y))
		next[i] = moved
	}
	o.positions = next
	o.steps++

	o.logger.Debug("Gradient step",
		zap.Int("step", o.steps),
		zap.Float64("power", f1),
		zap.Float64("max_move", maxMove),
	)
}

// Positions returns a copy of the current layout.
func (o *Optimizer) Positions() []geometry.Vector2 {
	return append([]geometry.Vector2(nil), o.positions...)
}

// CurrentPower returns the mean power recorded by the last Step, measured on
// the layout before that step moved it. It is zero before the first step.
func (o *Optimizer) CurrentPower() float64 {
	return o.currentPower
}

// Turbines returns the number of turbines.
func (o *Optimizer) Turbines() int { return o.n }

// Radius returns the turbine footprint radius.
func (o *Optimizer) Radius() float64 { return o.radius }

// WakeCoefficient returns k.
func (o *Optimizer) WakeCoefficient() float64 { return o.wake.Coefficient() }

// Boundary returns the region turbines are clamped to.
func (o *Optimizer) Boundary() geometry.Rectangle { return o.boundary }

// Delta returns the finite-difference step.
func (o *Optimizer) Delta() float64 { return o.delta }

// LearningRate returns the gradient scale.
func (o *Optimizer) LearningRate() float64 { return o.learningRate }

// Steps returns the number of steps taken.
func (o *Optimizer) Steps() int { return o.steps }

// MaxPower returns the display upper bound for this layout, see MaxPower.
func (o *Optimizer) MaxPower() float64 {
	return MaxPower(o.radius, o.wake.Coefficient(), o.n)
}

// MaxPower returns 2·radius·k·n, the power of n turbines that never shadow
// each other. It is a display scale only and is not enforced.
func MaxPower(radius, k float64, n int) float64 {
	return 2 * radius * k * float64(n)
}

func checkPositive(name string, v float64) *optimization.Error {
	if !(v > 0) || math.IsInf(v, 0) {
		return optimization.InvalidParameter(name, v, "must be positive and finite").WithComponent(component)
	}
	return nil
}

var _ optimization.Stepper = (*Optimizer)(nil)
