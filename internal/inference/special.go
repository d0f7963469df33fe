// Package inference implements Gaussian expectation propagation for a single
// latent ability/bias pair observed through a linear-probit likelihood.
package inference

import (
	"errors"
	"math"
)

var (
	ErrDomain       = errors.New("argument outside function domain")
	ErrDegenerate   = errors.New("gaussian division with equal precisions")
	ErrNotConverged = errors.New("expectation propagation did not converge")
)

// Abramowitz & Stegun 7.1.26 coefficients.
const (
	erfA1 = 0.254829592
	erfA2 = -0.284496736
	erfA3 = 1.421413741
	erfA4 = -1.453152027
	erfA5 = 1.061405429
	erfP  = 0.3275911
)

// Winitzki's constant for the inverse error function approximation.
const erfinvA = 0.147

// Erf approximates the error function with absolute error below 1.5e-7.
func Erf(x float64) float64 {
	if x == 0 {
		return 0
	}
	sign := 1.0
	if x < 0 {
		sign = -1
		x = -x
	}
	t := 1.0 / (1.0 + erfP*x)
	y := 1.0 - (((((erfA5*t+erfA4)*t)+erfA3)*t+erfA2)*t+erfA1)*t*math.Exp(-x*x)
	return sign * y
}

func Erfc(x float64) float64 {
	return 1 - Erf(x)
}

// Erfinv approximates the inverse error function (relative error up to
// about 2e-3). It is defined on the open interval (-1, 1).
func Erfinv(x float64) (float64, error) {
	if math.IsNaN(x) || x <= -1 || x >= 1 {
		return 0, ErrDomain
	}
	if x == 0 {
		return 0, nil
	}
	l := math.Log(1 - x*x)
	b := 2/(math.Pi*erfinvA) + l/2
	inner := math.Sqrt(b*b-l/erfinvA) - b
	if inner < 0 {
		inner = 0
	}
	r := math.Sqrt(inner)
	if x < 0 {
		return -r, nil
	}
	return r, nil
}

func Erfcinv(x float64) (float64, error) {
	return Erfinv(1 - x)
}

// NormPDF is the standard normal density.
func NormPDF(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}

// NormCDF is the standard normal cumulative distribution.
func NormCDF(x float64) float64 {
	return Erfc(-x/math.Sqrt2) / 2
}
