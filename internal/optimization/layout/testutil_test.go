package layout

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iForgotThePlusC/Wind-Turbines/internal/geometry"
)

// testConfig mirrors the default scene: 40 unit turbines, k = 0.5, 800x800.
func testConfig(n int) Config {
	return Config{
		Turbines:        n,
		Radius:          40,
		WakeCoefficient: 0.5,
		Boundary:        geometry.NewRectangle(800, 800),
	}
}

// newTestOptimizer creates a seeded optimizer and places the given points.
func newTestOptimizer(t testing.TB, points []geometry.Vector2, opts ...Option) *Optimizer {
	t.Helper()

	opts = append([]Option{WithSeed(42)}, opts...)
	o, err := New(testConfig(len(points)), opts...)
	require.NoError(t, err)
	require.NoError(t, o.SetPositions(points))
	return o
}

// assertInBounds checks that every point lies inside r.
func assertInBounds(t *testing.T, r geometry.Rectangle, points []geometry.Vector2) {
	t.Helper()

	for i, p := range points {
		if !r.Contains(p) {
			t.Fatalf("point %d %v outside [%v, %v] x [%v, %v]", i, p, r.MinX(), r.MaxX(), r.MinY(), r.MaxY())
		}
	}
}

// assertVectorsEqual checks that two layouts are approximately equal.
func assertVectorsEqual(t *testing.T, got, want []geometry.Vector2, tol float64) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range got {
		if math.Abs(got[i].X-want[i].X) > tol || math.Abs(got[i].Y-want[i].Y) > tol {
			t.Fatalf("at index %d: got %v, want %v (tolerance %v)", i, got[i], want[i], tol)
		}
	}
}
