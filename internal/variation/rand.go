package variation

import "math/rand/v2"

// Rand is the randomness the engine draws from. *rand.Rand satisfies it, so
// tests can pass a seeded source.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// processRand forwards to the process-wide math/rand/v2 source.
type processRand struct{}

func (processRand) Float64() float64 { return rand.Float64() }
func (processRand) IntN(n int) int   { return rand.IntN(n) }

// NewSeeded returns a deterministic source.
func NewSeeded(seed uint64) Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
