package inference

import (
	"fmt"
	"math"
)

// approxTolerance is sqrt(float64 machine epsilon).
const approxTolerance = 1.4901161193847656e-8

// Gaussian is a univariate normal belief. An infinite variance denotes a flat
// belief carrying no information.
type Gaussian struct {
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
}

// Flat returns the zero-information belief.
func Flat() Gaussian {
	return Gaussian{Mean: 0, Variance: math.Inf(1)}
}

func (g Gaussian) IsFlat() bool {
	return math.IsInf(g.Variance, 1)
}

// Precision is 1/variance; zero for a flat belief.
func (g Gaussian) Precision() float64 {
	return 1 / g.Variance
}

// Valid reports whether the belief has a finite mean and a strictly positive
// (possibly infinite) variance.
func (g Gaussian) Valid() bool {
	if math.IsNaN(g.Mean) || math.IsInf(g.Mean, 0) {
		return false
	}
	return !math.IsNaN(g.Variance) && g.Variance > 0
}

func (g Gaussian) PDF(x float64) float64 {
	std := math.Sqrt(g.Variance)
	return NormPDF((x-g.Mean)/std) / std
}

func (g Gaussian) CDF(x float64) float64 {
	std := math.Sqrt(g.Variance)
	return NormCDF((x - g.Mean) / std)
}

// Quantile returns the value below which a fraction p of the mass lies.
func (g Gaussian) Quantile(p float64) (float64, error) {
	e, err := Erfcinv(2 * p)
	if err != nil {
		return 0, fmt.Errorf("quantile %v: %w", p, err)
	}
	return g.Mean - math.Sqrt(g.Variance)*e*math.Sqrt2, nil
}

// IsApprox compares mean and variance with a relative tolerance.
func (g Gaussian) IsApprox(o Gaussian) bool {
	return isApprox(g.Mean, o.Mean) && isApprox(g.Variance, o.Variance)
}

func (g Gaussian) String() string {
	return fmt.Sprintf("N(%g, %g)", g.Mean, g.Variance)
}

func isApprox(x, y float64) bool {
	return x == y || math.Abs(x-y) <= approxTolerance*math.Max(math.Abs(x), math.Abs(y))
}

// Divide removes the information in b from a by subtracting natural
// parameters. Equal precisions leave nothing to represent and yield
// ErrDegenerate.
func Divide(a, b Gaussian) (Gaussian, error) {
	t, u := a.Precision(), b.Precision()
	if t == u {
		return Gaussian{}, fmt.Errorf("divide %v by %v: %w", a, b, ErrDegenerate)
	}
	// A flat divisor contributes nothing; its mean is irrelevant.
	if u == 0 {
		return a, nil
	}
	return Gaussian{
		Mean:     (a.Mean*t - b.Mean*u) / (t - u),
		Variance: 1 / (t - u),
	}, nil
}

// Multiply combines two independent beliefs about the same quantity. It is
// the inverse of Divide.
func Multiply(a, b Gaussian) Gaussian {
	t, u := a.Precision(), b.Precision()
	switch {
	case t == 0:
		return b
	case u == 0:
		return a
	}
	return Gaussian{
		Mean:     (a.Mean*t + b.Mean*u) / (t + u),
		Variance: 1 / (t + u),
	}
}

// HasLowerVariance reports whether a is strictly more informative than b.
// Callers must check it before trusting Divide(a, b).
func HasLowerVariance(a, b Gaussian) bool {
	return a.Variance < b.Variance
}
