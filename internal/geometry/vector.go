// Package geometry provides the planar primitives used by the layout
// optimizer: points, rotations about the origin and origin-centred
// rectangles.
package geometry

import "fmt"

// Vector2 is a point or displacement in the plane.
type Vector2 struct {
	X float64 `json:"x" toml:"x"`
	Y float64 `json:"y" toml:"y"`
}

// Zero is the origin.
var Zero = Vector2{}

// Add returns the componentwise sum of v and w.
func (v Vector2) Add(w Vector2) Vector2 {
	return Vector2{X: v.X + w.X, Y: v.Y + w.Y}
}

// Scale returns v multiplied by s.
func (v Vector2) Scale(s float64) Vector2 {
	return Vector2{X: v.X * s, Y: v.Y * s}
}

// String implements fmt.Stringer.
func (v Vector2) String() string {
	return fmt.Sprintf("(%.3f, %.3f)", v.X, v.Y)
}

// Flatten writes the points into dst as x0, y0, x1, y1, ... and returns it.
// dst is reallocated when it is too short.
func Flatten(dst []float64, points []Vector2) []float64 {
	if cap(dst) < 2*len(points) {
		dst = make([]float64, 2*len(points))
	}
	dst = dst[:2*len(points)]
	for i, p := range points {
		dst[2*i] = p.X
		dst[2*i+1] = p.Y
	}
	return dst
}

// Unflatten is the inverse of Flatten. It panics if len(coords) is odd.
func Unflatten(dst []Vector2, coords []float64) []Vector2 {
	if len(coords)%2 != 0 {
		panic(fmt.Sprintf("geometry: odd coordinate count %d", len(coords)))
	}
	n := len(coords) / 2
	if cap(dst) < n {
		dst = make([]Vector2, n)
	}
	dst = dst[:n]
	for i := range dst {
		dst[i] = Vector2{X: coords[2*i], Y: coords[2*i+1]}
	}
	return dst
}
