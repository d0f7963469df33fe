package inference

import (
	"fmt"
	"math"

	"go.uber.org/zap"
)

const DefaultMaxIterations = 1000

// Observation is one graded response: the stimulus level presented and
// whether the response was positive.
type Observation struct {
	Stimulus float64 `json:"stimulus"`
	Outcome  bool    `json:"outcome"`
}

// factor keeps an observation together with its site messages so the two can
// never drift out of alignment.
type factor struct {
	obs Observation
	w   Gaussian
	b   Gaussian
}

// Engine owns the posterior over ability (w) and bias (b). Margin for
// observation i is b - w*x_i plus standard normal noise; the outcome is the
// margin's sign. Ability is constrained positive.
//
// An Engine is not safe for concurrent use.
type Engine struct {
	w, b    Gaussian
	f       Gaussian
	factors []factor

	maxIterations int
	logger        *zap.Logger
}

type Option func(*Engine)

func WithMaxIterations(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxIterations = n
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an engine whose posterior starts at the given priors.
func NewEngine(w, b Gaussian, opts ...Option) *Engine {
	e := &Engine{
		w:             w,
		b:             b,
		f:             Flat(),
		maxIterations: DefaultMaxIterations,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Ability() Gaussian { return e.w }
func (e *Engine) Bias() Gaussian    { return e.b }
func (e *Engine) Len() int          { return len(e.factors) }

// Observations returns the recorded observations in arrival order.
func (e *Engine) Observations() []Observation {
	out := make([]Observation, len(e.factors))
	for i, f := range e.factors {
		out[i] = f.obs
	}
	return out
}

// Push records a new observation, folds it into the posterior and then
// re-converges over all evidence.
func (e *Engine) Push(x float64, y bool) error {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return fmt.Errorf("push stimulus %v: %w", x, ErrDomain)
	}
	fac := factor{obs: Observation{Stimulus: x, Outcome: y}, w: Flat(), b: Flat()}
	if err := e.update(&fac); err != nil {
		return fmt.Errorf("push stimulus %v: %w", x, err)
	}
	e.factors = append(e.factors, fac)

	n, err := e.Converge()
	if err != nil {
		return err
	}
	e.logger.Debug("observation absorbed",
		zap.Float64("stimulus", x),
		zap.Bool("outcome", y),
		zap.Int("observations", len(e.factors)),
		zap.Int("iterations", n),
		zap.Stringer("ability", e.w),
		zap.Stringer("bias", e.b))
	return nil
}

// Converge iterates until a full pass leaves the posterior unchanged. It
// returns the number of passes made, or ErrNotConverged once the iteration
// bound is exhausted.
func (e *Engine) Converge() (int, error) {
	for i := 1; i <= e.maxIterations; i++ {
		settled, err := e.Iterate()
		if err != nil {
			return i, err
		}
		if settled {
			return i, nil
		}
	}
	e.logger.Warn("expectation propagation hit iteration bound",
		zap.Int("max_iterations", e.maxIterations),
		zap.Int("observations", len(e.factors)),
		zap.Stringer("ability", e.w),
		zap.Stringer("bias", e.b))
	return e.maxIterations, fmt.Errorf("%w after %d iterations", ErrNotConverged, e.maxIterations)
}

// Iterate makes one pass over the positivity constraint and every stored
// observation, in order. It reports whether the posterior is unchanged
// within tolerance.
func (e *Engine) Iterate() (bool, error) {
	w, b := e.w, e.b
	if err := e.positive(); err != nil {
		return false, err
	}
	for i := range e.factors {
		if err := e.update(&e.factors[i]); err != nil {
			return false, fmt.Errorf("observation %d: %w", i, err)
		}
	}
	return e.w.IsApprox(w) && e.b.IsApprox(b), nil
}

func (e *Engine) positive() error {
	cavity, err := Divide(e.w, e.f)
	if err != nil {
		return fmt.Errorf("positivity cavity: %w", err)
	}
	if !cavity.Valid() {
		e.logger.Debug("positivity update skipped, invalid cavity", zap.Stringer("cavity", cavity))
		return nil
	}

	next := ConditionPositive(cavity)
	if !next.Valid() || !HasLowerVariance(next, cavity) {
		e.w, e.f = cavity, Flat()
		return nil
	}

	site, err := siteMessage(next, cavity)
	if err != nil {
		return fmt.Errorf("positivity site: %w", err)
	}
	e.w, e.f = next, site
	return nil
}

// update refreshes one observation's site messages against the current
// posterior. Corrections that would not tighten the margin belief are
// rejected and leave everything as it was.
func (e *Engine) update(fac *factor) error {
	wc, err := Divide(e.w, fac.w)
	if err != nil {
		return fmt.Errorf("ability cavity: %w", err)
	}
	bc, err := Divide(e.b, fac.b)
	if err != nil {
		return fmt.Errorf("bias cavity: %w", err)
	}
	if !wc.Valid() || !bc.Valid() {
		return nil
	}

	x := fac.obs.Stimulus
	margin := ProjectMargin(wc, bc, x)
	next := UpdateLikelihood(margin, fac.obs.Outcome, true)
	if !next.Valid() || !HasLowerVariance(next, margin) || next.Precision() == margin.Precision() {
		return nil
	}

	delta, err := Divide(next, margin)
	if err != nil {
		return fmt.Errorf("margin message: %w", err)
	}
	w, b := UpdateJoint(wc, bc, delta, x)
	if !w.Valid() || !b.Valid() {
		return nil
	}

	ws, err := siteMessage(w, wc)
	if err != nil {
		return fmt.Errorf("ability site: %w", err)
	}
	bs, err := siteMessage(b, bc)
	if err != nil {
		return fmt.Errorf("bias site: %w", err)
	}

	e.w, e.b = w, b
	fac.w, fac.b = ws, bs
	return nil
}

// siteMessage recovers the message that turned cavity into posterior. A
// posterior with the cavity's precision received nothing, as happens for a
// zero stimulus on the ability axis or a constraint far from binding.
func siteMessage(posterior, cavity Gaussian) (Gaussian, error) {
	if posterior.Precision() == cavity.Precision() {
		return Flat(), nil
	}
	return Divide(posterior, cavity)
}
