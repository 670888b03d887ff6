package arranger

import "math/rand/v2"

// Rand is the random source threaded through melody generation and
// humanization. *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// NewRand returns a seeded source. The same seed always yields the same
// sequence of draws.
func NewRand(seed int64) *rand.Rand {
	s := uint64(seed)
	return rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15))
}

// uniform draws from [-w, w)
func uniform(rng Rand, w float64) float64 {
	return (rng.Float64()*2 - 1) * w
}

// intBetween draws an integer from [-w, w]
func intBetween(rng Rand, w int) int {
	if w <= 0 {
		return 0
	}
	return rng.IntN(2*w+1) - w
}
