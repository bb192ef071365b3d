package domain

import "fmt"

// WeightedChoice picks items with probability proportional to their integer weight.
type WeightedChoice[T any] struct {
	items      []T
	cumulative []int
	total      int
}

// NewWeightedChoice builds a chooser. Weights must be non-negative, match items
// in length and sum to a positive total.
func NewWeightedChoice[T any](items []T, weights []int) (WeightedChoice[T], error) {
	if len(items) == 0 || len(items) != len(weights) {
		return WeightedChoice[T]{}, fmt.Errorf("weighted choice: %d items, %d weights", len(items), len(weights))
	}
	cumulative := make([]int, len(weights))
	total := 0
	for i, w := range weights {
		if w < 0 {
			return WeightedChoice[T]{}, fmt.Errorf("weighted choice: negative weight %d at %d", w, i)
		}
		total += w
		cumulative[i] = total
	}
	if total == 0 {
		return WeightedChoice[T]{}, fmt.Errorf("weighted choice: zero total weight")
	}
	return WeightedChoice[T]{items: items, cumulative: cumulative, total: total}, nil
}

// Pick draws one item.
func (w WeightedChoice[T]) Pick(rng RNG) T {
	r := rng.Intn(w.total)
	for i, c := range w.cumulative {
		if r < c {
			return w.items[i]
		}
	}
	return w.items[len(w.items)-1]
}

// Probability returns the share of draws that land on index i.
func (w WeightedChoice[T]) Probability(i int) float64 {
	prev := 0
	if i > 0 {
		prev = w.cumulative[i-1]
	}
	return float64(w.cumulative[i]-prev) / float64(w.total)
}
