package inference

import (
	"errors"
	"math"
	"testing"
)

func TestErfExactPoints(t *testing.T) {
	if got := Erf(0); got != 0 {
		t.Errorf("Erf(0) = %v, want 0", got)
	}
	if got := NormCDF(0); got != 0.5 {
		t.Errorf("NormCDF(0) = %v, want 0.5", got)
	}
}

func TestErfcIsComplement(t *testing.T) {
	for _, x := range []float64{-5, -1.3, -0.2, 0, 0.01, 0.7, 2, 9} {
		if Erfc(x) != 1-Erf(x) {
			t.Errorf("Erfc(%v) = %v, want %v", x, Erfc(x), 1-Erf(x))
		}
	}
}

func TestErfAccuracy(t *testing.T) {
	for i := -40; i <= 40; i++ {
		x := float64(i) / 10
		if diff := math.Abs(Erf(x) - math.Erf(x)); diff > 1.5e-7 {
			t.Errorf("Erf(%v) off by %v", x, diff)
		}
	}
}

func TestNormCDFSymmetry(t *testing.T) {
	for _, x := range []float64{0.001, 0.5, 1, 2.5, 6, 40, 1e3, 1e9} {
		if sum := NormCDF(x) + NormCDF(-x); math.Abs(sum-1) > 1e-12 {
			t.Errorf("NormCDF(%v)+NormCDF(-%v) = %v", x, x, sum)
		}
	}
}

func TestNormPDF(t *testing.T) {
	want := 1 / math.Sqrt(2*math.Pi)
	if got := NormPDF(0); math.Abs(got-want) > 1e-15 {
		t.Errorf("NormPDF(0) = %v, want %v", got, want)
	}
	if NormPDF(1.7) != NormPDF(-1.7) {
		t.Error("NormPDF should be even")
	}
}

func TestErfinv(t *testing.T) {
	tests := []struct {
		name string
		x    float64
	}{
		{"near -1", -0.99},
		{"negative", -0.5},
		{"small", 0.05},
		{"mid", 0.3},
		{"high", 0.9},
		{"near 1", 0.999},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Erfinv(tt.x)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			want := math.Erfinv(tt.x)
			if rel := math.Abs(got-want) / math.Abs(want); rel > 5e-3 {
				t.Errorf("Erfinv(%v) = %v, want ~%v (rel err %v)", tt.x, got, want, rel)
			}
		})
	}

	t.Run("zero", func(t *testing.T) {
		got, err := Erfinv(0)
		if err != nil || got != 0 {
			t.Errorf("Erfinv(0) = %v, %v; want 0, nil", got, err)
		}
	})
}

func TestErfinvDomain(t *testing.T) {
	for _, x := range []float64{-1, 1, 1.5, -7, math.NaN(), math.Inf(1)} {
		if _, err := Erfinv(x); !errors.Is(err, ErrDomain) {
			t.Errorf("Erfinv(%v) error = %v, want ErrDomain", x, err)
		}
	}
	if _, err := Erfcinv(0); !errors.Is(err, ErrDomain) {
		t.Errorf("Erfcinv(0) error = %v, want ErrDomain", err)
	}
	if _, err := Erfcinv(2); !errors.Is(err, ErrDomain) {
		t.Errorf("Erfcinv(2) error = %v, want ErrDomain", err)
	}
}

func TestErfcinvIsShiftedErfinv(t *testing.T) {
	for _, x := range []float64{0.4, 0.9, 1, 1.2, 1.6} {
		a, err := Erfcinv(x)
		if err != nil {
			t.Fatalf("Erfcinv(%v): %v", x, err)
		}
		b, _ := Erfinv(1 - x)
		if a != b {
			t.Errorf("Erfcinv(%v) = %v, Erfinv(1-x) = %v", x, a, b)
		}
	}
}
