package layout

import (
	"gonum.org/v1/gonum/diff/fd"

	"github.com/iForgotThePlusC/Wind-Turbines/internal/geometry"
)

// Gradient estimates the partial derivatives of MeanPower with respect to
// every turbine coordinate by forward differences with step Delta:
//
//	(MeanPower(p with one coordinate + delta) - f1) / delta
//
// f1 must be MeanPower(positions); it is reused for every partial instead of
// being recomputed. Only one coordinate of one turbine is perturbed per
// evaluation, so every partial is taken against the same layout.
func (o *Optimizer) Gradient(positions []geometry.Vector2, f1 float64) []geometry.Vector2 {
	if len(positions) == 0 {
		return nil
	}

	x := geometry.Flatten(nil, positions)
	dst := make([]float64, len(x))

	objective := func(coords []float64) float64 {
		o.probe = geometry.Unflatten(o.probe, coords)
		return o.MeanPower(o.probe)
	}

	fd.Gradient(dst, objective, x, &fd.Settings{
		Formula:     fd.Forward,
		Step:        o.delta,
		OriginKnown: true,
		OriginValue: f1,
	})

	return geometry.Unflatten(nil, dst)
}
