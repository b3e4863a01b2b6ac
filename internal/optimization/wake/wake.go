// Package wake models how overlapping turbine footprints share the wind
// passing through one slice of the projected layout.
package wake

import (
	"fmt"
	"math"
)

// Model maps the number of turbines covering a slice to the fraction of that
// slice's wind that is captured.
type Model interface {
	// Factor returns the captured fraction for cover overlapping turbines.
	Factor(cover int) float64

	// Coefficient returns the single-turbine capture fraction.
	Coefficient() float64

	// SetCoefficient replaces the single-turbine capture fraction.
	SetCoefficient(k float64) error
}

// Geometric captures 1-(1-k)^c of a slice covered by c turbines: every extra
// turbine takes the fraction k of what the ones upwind left over, so the
// factor saturates towards 1 and never exceeds it.
type Geometric struct {
	k float64
	// factors[c] caches 1-(1-k)^c for the cover counts seen so far
	factors []float64
}

// NewGeometric creates a geometric wake model with coefficient k in (0, 1).
func NewGeometric(k float64) *Geometric {
	if err := validate(k); err != nil {
		panic(err.Error())
	}
	return &Geometric{k: k, factors: []float64{0}}
}

// Factor returns 1-(1-k)^cover. Non-positive counts capture nothing.
func (g *Geometric) Factor(cover int) float64 {
	if cover <= 0 {
		return 0
	}
	for len(g.factors) <= cover {
		g.factors = append(g.factors, 1-math.Pow(1-g.k, float64(len(g.factors))))
	}
	return g.factors[cover]
}

// Coefficient returns k.
func (g *Geometric) Coefficient() float64 {
	return g.k
}

// SetCoefficient sets k and drops the cached factors.
func (g *Geometric) SetCoefficient(k float64) error {
	if err := validate(k); err != nil {
		return err
	}
	g.k = k
	g.factors = g.factors[:1]
	return nil
}

func validate(k float64) error {
	if !(k > 0 && k < 1) {
		return fmt.Errorf("wake coefficient must be in (0, 1), got %v", k)
	}
	return nil
}
