package inference

import "math"

// Weight of the uninformative component in the outcome likelihood. A
// response carries a fixed chance of being unrelated to ability.
const (
	guessWeight  = 0.25
	informWeight = 1 - guessWeight
)

// ConditionPositive returns the Gaussian matching the first two moments of w
// truncated to the positive half-line.
func ConditionPositive(w Gaussian) Gaussian {
	mu, sigma := w.Mean, math.Sqrt(w.Variance)
	// Integrals of x*phi(a+bx) and x^2*phi(a+bx) over [0, inf) with
	// a = -mu/sigma and b = 1/sigma.
	a, b := -mu/sigma, 1/sigma
	pa, ca := NormPDF(a), NormCDF(a)
	z := 1 - ca

	ix := (pa - a*(1-ca)) / (b * b)
	ix2 := ((a*a+1)*(1-ca) - a*pa) / (b * b * b)

	ex := ix / sigma / z
	ex2 := ix2 / sigma / z
	return Gaussian{Mean: ex, Variance: ex2 - ex*ex}
}

// ProjectMargin maps beliefs over ability and bias to the belief over the
// margin b - w*x.
func ProjectMargin(w, b Gaussian, x float64) Gaussian {
	return Gaussian{
		Mean:     -w.Mean*x + b.Mean,
		Variance: x*x*w.Variance + b.Variance,
	}
}

// UpdateLikelihood moment-matches the margin belief p after observing a
// binary outcome through a probit link. With mixture set, the probit term is
// blended with an uninformative component before the outcome is applied.
func UpdateLikelihood(p Gaussian, outcome bool, mixture bool) Gaussian {
	mu, s2 := p.Mean, p.Variance
	scale := math.Sqrt(1 + s2)
	z := mu / scale
	norm := NormCDF(z)
	lambda := NormPDF(z) / norm

	ex := mu + s2/scale*lambda
	v := s2 - s2*s2/(1+s2)*lambda*(lambda+z)
	ex2 := v + ex*ex

	if mixture {
		mixed := guessWeight + informWeight*norm
		ex = (guessWeight*mu + informWeight*ex*norm) / mixed
		ex2 = (guessWeight*(mu*mu+s2) + informWeight*ex2*norm) / mixed
		norm = mixed
	}
	if !outcome {
		rest := 1 - norm
		ex = (mu - ex*norm) / rest
		ex2 = (mu*mu + s2 - ex2*norm) / rest
	}
	return Gaussian{Mean: ex, Variance: ex2 - ex*ex}
}

// UpdateJoint conditions independent ability and bias beliefs on a Gaussian
// message about the margin b - w*x.
func UpdateJoint(w, b, delta Gaussian, x float64) (Gaussian, Gaussian) {
	s2, vw, vb := delta.Variance, w.Variance, b.Variance
	d := s2 + vb + x*x*vw

	nw := Gaussian{
		Mean:     (w.Mean*(s2+vb) + x*(b.Mean-delta.Mean)*vw) / d,
		Variance: (s2 + vb) * vw / d,
	}
	nb := Gaussian{
		Mean:     b.Mean + (delta.Mean-b.Mean+x*w.Mean)*vb/d,
		Variance: vb - vb*vb/d,
	}
	return nw, nb
}
