// Package randx abstracts the random source used by the scheduler and the
// eligibility policy so tests can supply deterministic sequences.
package randx

import "math/rand/v2"

// Source is the minimal random interface the matching pipeline needs.
type Source interface {
	// IntN returns a uniform int in [0, n). n must be > 0.
	IntN(n int) int

	// Float64 returns a uniform float64 in [0.0, 1.0).
	Float64() float64
}

// New returns a Source backed by math/rand/v2's default generator.
func New() Source {
	return stdSource{}
}

// NewSeeded returns a deterministic Source for a given seed.
func NewSeeded(seed uint64) Source {
	return rand.New(rand.NewPCG(seed, seed))
}

type stdSource struct{}

func (stdSource) IntN(n int) int   { return rand.IntN(n) }
func (stdSource) Float64() float64 { return rand.Float64() }

// Item picks a uniformly random element. The slice must be non-empty.
func Item[T any](r Source, items []T) T {
	return items[r.IntN(len(items))]
}
