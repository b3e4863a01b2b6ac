// Package normal provides a fast approximation of the standard normal
// quantile function.
package normal

import "math"

// Coefficients of Acklam's rational approximations.
var (
	a = [6]float64{
		-3.969683028665376e+01, 2.209460984245205e+02,
		-2.759285104469687e+02, 1.383577518672690e+02,
		-3.066479806614716e+01, 2.506628277459239e+00,
	}
	b = [5]float64{
		-5.447609879822406e+01, 1.615858368580409e+02,
		-1.556989798598866e+02, 6.680131188771972e+01,
		-1.328068155288572e+01,
	}
	c = [6]float64{
		-7.784894002430293e-03, -3.223964580411365e-01,
		-2.400758277161838e+00, -2.549732539343734e+00,
		4.374664141464968e+00, 2.938163982698783e+00,
	}
	d = [4]float64{
		7.784695709041462e-03, 3.224671290700398e-01,
		2.445134137142996e+00, 3.754408661907416e+00,
	}
)

const (
	pLow  = 0.02425
	pHigh = 1 - pLow
)

// InverseCDF returns x such that Φ(x) ≈ p for the standard normal CDF Φ,
// with relative error below 1.15e-9. It returns -Inf for p == 0, +Inf for
// p == 1 and NaN for p outside [0, 1].
func InverseCDF(p float64) float64 {
	switch {
	case math.IsNaN(p) || p < 0 || p > 1:
		return math.NaN()
	case p == 0:
		return math.Inf(-1)
	case p == 1:
		return math.Inf(1)
	case p < pLow:
		q := math.Sqrt(-2 * math.Log(p))
		return tail(q)
	case p > pHigh:
		q := math.Sqrt(-2 * math.Log(1-p))
		return -tail(q)
	}

	q := p - 0.5
	r := q * q
	num := (((((a[0]*r+a[1])*r+a[2])*r+a[3])*r+a[4])*r + a[5]) * q
	den := ((((b[0]*r+b[1])*r+b[2])*r+b[3])*r+b[4])*r + 1
	return num / den
}

// tail evaluates the lower-tail approximation at q = sqrt(-2 ln p).
func tail(q float64) float64 {
	num := ((((c[0]*q+c[1])*q+c[2])*q+c[3])*q+c[4])*q + c[5]
	den := (((d[0]*q+d[1])*q+d[2])*q+d[3])*q + 1
	return num / den
}
