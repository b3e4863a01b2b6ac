package geometry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// RotationMatrix is an immutable counter-clockwise rotation about the origin.
type RotationMatrix struct {
	angle float64
	m     *mat.Dense
}

// NewRotation builds the rotation matrix
//
//	| cos a  -sin a |
//	| sin a   cos a |
func NewRotation(angle float64) RotationMatrix {
	c, s := math.Cos(angle), math.Sin(angle)
	return RotationMatrix{
		angle: angle,
		m:     mat.NewDense(2, 2, []float64{c, -s, s, c}),
	}
}

// Angle returns the rotation angle in radians.
func (r RotationMatrix) Angle() float64 {
	return r.angle
}

// At returns the matrix element at row i, column j.
func (r RotationMatrix) At(i, j int) float64 {
	return r.m.At(i, j)
}

// Apply returns the matrix-vector product r·v.
func (r RotationMatrix) Apply(v Vector2) Vector2 {
	var out mat.VecDense
	out.MulVec(r.m, mat.NewVecDense(2, []float64{v.X, v.Y}))
	return Vector2{X: out.AtVec(0), Y: out.AtVec(1)}
}

// Rotate applies r to every point and returns the rotated copies.
func (r RotationMatrix) Rotate(points []Vector2) []Vector2 {
	out := make([]Vector2, len(points))
	for i, p := range points {
		out[i] = r.Apply(p)
	}
	return out
}

// ProjectX writes the x coordinate of every rotated point into dst, which
// must have the same length as xs and ys.
func (r RotationMatrix) ProjectX(dst, xs, ys []float64) {
	if len(xs) != len(dst) || len(ys) != len(dst) {
		panic(fmt.Sprintf("geometry: projection length mismatch dst=%d xs=%d ys=%d", len(dst), len(xs), len(ys)))
	}
	floats.ScaleTo(dst, r.m.At(0, 0), xs)
	floats.AddScaled(dst, r.m.At(0, 1), ys)
}

// Bank returns count rotations evenly spaced over a full turn, the i-th one
// at angle i/count·2π.
func Bank(count int) []RotationMatrix {
	bank := make([]RotationMatrix, count)
	for i := range bank {
		bank[i] = NewRotation(float64(i) / float64(count) * 2 * math.Pi)
	}
	return bank
}
