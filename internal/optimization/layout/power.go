package layout

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/iForgotThePlusC/Wind-Turbines/internal/geometry"
)

// Interval is one slice of the projected layout between two consecutive
// footprint endpoints along the wind axis.
type Interval struct {
	Lo     float64 `json:"lo"`
	Hi     float64 `json:"hi"`
	Cover  int     `json:"cover"`
	Factor float64 `json:"factor"`
}

// Width returns Hi - Lo.
func (iv Interval) Width() float64 {
	return iv.Hi - iv.Lo
}

// Power returns the slice's contribution to the directional power.
func (iv Interval) Power() float64 {
	return iv.Width() * iv.Factor
}

// DirectionalPower returns the power of positions for wind from sampled
// direction angle, which must be in [0, AngleCount).
func (o *Optimizer) DirectionalPower(positions []geometry.Vector2, angle int) float64 {
	o.checkAngle(angle)
	if len(positions) == 0 {
		return 0
	}

	buf := o.load(positions)
	defer o.pool.put(buf)

	return o.sweep(buf, angle, nil)
}

// DirectionalPowers returns the power for every sampled direction, indexed by
// angle.
func (o *Optimizer) DirectionalPowers(positions []geometry.Vector2) []float64 {
	powers := make([]float64, len(o.rotations))
	if len(positions) == 0 {
		return powers
	}

	buf := o.load(positions)
	defer o.pool.put(buf)

	for i := range o.rotations {
		powers[i] = o.sweep(buf, i, nil)
	}
	return powers
}

// MeanPower returns the directional power averaged over all sampled
// directions. It is recomputed from scratch on every call.
func (o *Optimizer) MeanPower(positions []geometry.Vector2) float64 {
	return meanOf(o.DirectionalPowers(positions))
}

// Profile returns the slices the directional power for angle is summed
// over, in ascending order along the rotated x axis.
func (o *Optimizer) Profile(positions []geometry.Vector2, angle int) []Interval {
	o.checkAngle(angle)
	if len(positions) == 0 {
		return nil
	}

	buf := o.load(positions)
	defer o.pool.put(buf)

	intervals := make([]Interval, 0, 2*len(positions)-1)
	o.sweep(buf, angle, &intervals)
	return intervals
}

// load copies positions into pooled coordinate buffers.
func (o *Optimizer) load(positions []geometry.Vector2) *buffers {
	buf := o.pool.get(len(positions))
	for i, p := range positions {
		buf.xs[i] = p.X
		buf.ys[i] = p.Y
	}
	return buf
}

// sweep projects the loaded layout onto the wind axis of angle, sorts the
// footprint endpoints and sums width × wake factor over consecutive
// endpoint pairs. When out is non-nil every slice is appended to it.
func (o *Optimizer) sweep(buf *buffers, angle int, out *[]Interval) float64 {
	xs := buf.projected
	o.rotations[angle].ProjectX(xs, buf.xs, buf.ys)

	r := o.radius
	endpoints := buf.endpoints[:0]
	for _, x := range xs {
		endpoints = append(endpoints, x-r, x+r)
	}
	sort.Stable(sort.Float64Slice(endpoints))
	buf.endpoints = endpoints

	power := 0.0
	for i := 0; i+1 < len(endpoints); i++ {
		lo, hi := endpoints[i], endpoints[i+1]
		mid := (lo + hi) / 2

		cover := 0
		for _, x := range xs {
			if math.Abs(mid-x) < r {
				cover++
			}
		}

		factor := o.wake.Factor(cover)
		power += (hi - lo) * factor
		if out != nil {
			*out = append(*out, Interval{Lo: lo, Hi: hi, Cover: cover, Factor: factor})
		}
	}
	return power
}

func (o *Optimizer) checkAngle(angle int) {
	if angle < 0 || angle >= len(o.rotations) {
		panic(fmt.Sprintf("layout: angle index %d out of range [0, %d)", angle, len(o.rotations)))
	}
}

// meanOf averages per-direction powers.
func meanOf(powers []float64) float64 {
	if len(powers) == 0 {
		return 0
	}
	return floats.Sum(powers) / float64(len(powers))
}
