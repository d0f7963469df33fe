package service

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/Harshitk-cp/vocabtest/internal/domain"
	"github.com/Harshitk-cp/vocabtest/internal/inference"
)

const (
	// Target success probabilities are drawn from this band.
	minTargetProbability = 0.2
	maxTargetProbability = 0.8

	DefaultMaxStimulus  = 200000
	DefaultLowQuantile  = 0.05
	DefaultHighQuantile = 0.95
	distractorCount     = 3
)

var (
	ErrCatalogExhausted = errors.New("no unseen catalog items remain")
	ErrInvalidBounds    = errors.New("score bounds are not finite")
	ErrNoRank           = errors.New("no stimulus level reaches the target probability")
)

// Selector picks the next item for a session. It is safe for concurrent use;
// per-session state (seen set, random source) is passed in.
type Selector struct {
	catalog []domain.CatalogEntry
	index   *itemIndex
}

func NewSelector(catalog []domain.CatalogEntry) *Selector {
	return &Selector{catalog: catalog, index: newItemIndex(catalog)}
}

func (s *Selector) Catalog() []domain.CatalogEntry { return s.catalog }

// Next returns the catalog position of the next item to present. When the
// ability estimate is negative the ranking formula is unreliable and the
// last unseen item is returned instead.
func (s *Selector) Next(w, b inference.Gaussian, seen map[int]struct{}, rng *rand.Rand) (int, error) {
	if len(seen) >= s.index.Len() {
		return 0, ErrCatalogExhausted
	}
	if w.Mean < 0 {
		i, ok := s.index.LastUnseen(seen)
		if !ok {
			return 0, ErrCatalogExhausted
		}
		return i, nil
	}

	p := minTargetProbability + rng.Float64()*(maxTargetProbability-minTargetProbability)
	target, err := Rank(w, b, p)
	if err != nil {
		return 0, err
	}
	i, ok := s.index.Nearest(target, seen)
	if !ok {
		return 0, ErrCatalogExhausted
	}
	return i, nil
}

// Rank solves for the stimulus at which the predictive probability of a
// positive outcome equals p, integrating over the uncertainty in w and b.
func Rank(w, b inference.Gaussian, p float64) (float64, error) {
	e, err := inference.Erfcinv(2 * p)
	if err != nil {
		return 0, fmt.Errorf("rank at p=%v: %w", p, err)
	}
	sign := 1.0
	if p > 0.5 {
		sign = -1
	}
	e2 := e * e
	disc := e2 * (w.Mean*w.Mean*(1+b.Variance) + b.Mean*b.Mean*w.Variance - 2*(1+b.Variance)*w.Variance*e2)
	den := w.Mean*w.Mean - 2*w.Variance*e2
	if disc < 0 || den == 0 {
		return 0, fmt.Errorf("rank at p=%v: %w", p, ErrNoRank)
	}

	x := (b.Mean*w.Mean + sign*math.Sqrt2*math.Sqrt(disc)) / den
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, fmt.Errorf("rank at p=%v: %w", p, ErrNoRank)
	}
	return x, nil
}

// Distractors returns up to three wrong answers for item i: answers of other
// items in the same category, nearest in difficulty first.
func Distractors(catalog []domain.CatalogEntry, i int) []string {
	item := catalog[i]
	var candidates []domain.CatalogEntry
	for _, c := range catalog {
		if c.Category != item.Category {
			continue
		}
		if c.CorrectAnswer == item.Label || c.CorrectAnswer == item.CorrectAnswer {
			continue
		}
		candidates = append(candidates, c)
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		return math.Abs(candidates[a].Difficulty-item.Difficulty) < math.Abs(candidates[b].Difficulty-item.Difficulty)
	})

	n := min(distractorCount, len(candidates))
	out := make([]string, n)
	for k := range n {
		out[k] = candidates[k].CorrectAnswer
	}
	return out
}

// ExpectedCount estimates how many items up to rank x are known, from the
// antiderivative of the predictive success probability at the posterior
// means.
func ExpectedCount(w, b inference.Gaussian, x float64) float64 {
	m := b.Mean - w.Mean*x
	return (m*inference.NormCDF(m) + inference.NormPDF(m)) / w.Mean
}

// CountQuantile sums, over stimuli 1..maxStimulus, the success probability
// at the p-quantile of the projected margin.
func CountQuantile(w, b inference.Gaussian, p float64, maxStimulus int) (float64, error) {
	e, err := inference.Erfcinv(2 * p)
	if err != nil {
		return 0, fmt.Errorf("count quantile at p=%v: %w", p, err)
	}
	shift := e * math.Sqrt2
	var r float64
	for x := 1; x <= maxStimulus; x++ {
		m := inference.ProjectMargin(w, b, float64(x))
		r += inference.NormCDF(m.Mean - math.Sqrt(m.Variance)*shift)
	}
	return r, nil
}

// ScoreBounds reports [estimate, low quantile, high quantile] of the number
// of known items.
func ScoreBounds(w, b inference.Gaussian, maxStimulus int) ([3]float64, error) {
	var out [3]float64
	out[0] = ExpectedCount(w, b, 1)

	var err error
	if out[1], err = CountQuantile(w, b, DefaultLowQuantile, maxStimulus); err != nil {
		return out, err
	}
	if out[2], err = CountQuantile(w, b, DefaultHighQuantile, maxStimulus); err != nil {
		return out, err
	}
	for _, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return out, fmt.Errorf("%w: %v", ErrInvalidBounds, out)
		}
	}
	return out, nil
}
