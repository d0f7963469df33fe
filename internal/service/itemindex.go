package service

import (
	"cmp"
	"math"
	"slices"
	"sort"

	"github.com/Harshitk-cp/vocabtest/internal/domain"
)

// itemIndex orders catalog positions by difficulty so the unseen item
// closest to a target can be found by walking outward from a binary search
// instead of scanning the whole catalog.
type itemIndex struct {
	difficulty []float64 // by catalog position
	order      []int     // catalog positions sorted by (difficulty, position)
}

func newItemIndex(catalog []domain.CatalogEntry) *itemIndex {
	idx := &itemIndex{
		difficulty: make([]float64, len(catalog)),
		order:      make([]int, len(catalog)),
	}
	for i, c := range catalog {
		idx.difficulty[i] = c.Difficulty
		idx.order[i] = i
	}
	slices.SortFunc(idx.order, func(a, b int) int {
		if c := cmp.Compare(idx.difficulty[a], idx.difficulty[b]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return idx
}

func (idx *itemIndex) Len() int { return len(idx.order) }

// Nearest returns the unseen position whose difficulty is closest to x.
// Ties go to the lower catalog position.
func (idx *itemIndex) Nearest(x float64, seen map[int]struct{}) (int, bool) {
	if math.IsNaN(x) {
		return 0, false
	}
	pos := sort.Search(len(idx.order), func(i int) bool {
		return idx.difficulty[idx.order[i]] >= x
	})

	best, bestDist := -1, math.Inf(1)
	consider := func(i int) {
		d := math.Abs(idx.difficulty[i] - x)
		if best < 0 || d < bestDist || (d == bestDist && i < best) {
			best, bestDist = i, d
		}
	}

	// Right side: the first unseen entry is the closest and, among equal
	// difficulties, the lowest position.
	for r := pos; r < len(idx.order); r++ {
		if _, ok := seen[idx.order[r]]; !ok {
			consider(idx.order[r])
			break
		}
	}

	// Left side: find the closest unseen difficulty, then keep walking
	// through entries of that same difficulty for the lowest position.
	for l := pos - 1; l >= 0; l-- {
		i := idx.order[l]
		if _, ok := seen[i]; ok {
			continue
		}
		d := idx.difficulty[i]
		consider(i)
		for l--; l >= 0 && idx.difficulty[idx.order[l]] == d; l-- {
			if _, ok := seen[idx.order[l]]; !ok {
				consider(idx.order[l])
			}
		}
		break
	}

	return best, best >= 0
}

// LastUnseen returns the highest catalog position not yet seen.
func (idx *itemIndex) LastUnseen(seen map[int]struct{}) (int, bool) {
	for i := len(idx.difficulty) - 1; i >= 0; i-- {
		if _, ok := seen[i]; !ok {
			return i, true
		}
	}
	return 0, false
}
