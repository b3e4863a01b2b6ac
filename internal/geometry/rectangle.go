package geometry

import (
	"fmt"
	"math"
)

// Rectangle is an axis-aligned region of the given size centred on the
// origin.
type Rectangle struct {
	Width  float64 `json:"width" toml:"width"`
	Height float64 `json:"height" toml:"height"`
}

// NewRectangle returns a width × height rectangle.
func NewRectangle(width, height float64) Rectangle {
	return Rectangle{Width: width, Height: height}
}

func (r Rectangle) MinX() float64 { return r.Width / -2 }
func (r Rectangle) MaxX() float64 { return r.Width / 2 }
func (r Rectangle) MinY() float64 { return r.Height / -2 }
func (r Rectangle) MaxY() float64 { return r.Height / 2 }

// Validate reports an error for a degenerate or non-finite rectangle.
func (r Rectangle) Validate() error {
	if !(r.Width > 0) || math.IsInf(r.Width, 0) {
		return fmt.Errorf("width must be positive and finite, got %v", r.Width)
	}
	if !(r.Height > 0) || math.IsInf(r.Height, 0) {
		return fmt.Errorf("height must be positive and finite, got %v", r.Height)
	}
	return nil
}

// Contains reports whether p lies inside r or on its edge.
func (r Rectangle) Contains(p Vector2) bool {
	return p.X >= r.MinX() && p.X <= r.MaxX() && p.Y >= r.MinY() && p.Y <= r.MaxY()
}

// Clamp moves each coordinate of p independently onto the nearest value
// inside r.
func (r Rectangle) Clamp(p Vector2) Vector2 {
	return Vector2{
		X: clamp(p.X, r.MinX(), r.MaxX()),
		Y: clamp(p.Y, r.MinY(), r.MaxY()),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v > hi {
		return hi
	}
	if v < lo {
		return lo
	}
	return v
}
