package common

import "time"

// SeededRNG implements a Mulberry32 seeded pseudo-random number generator.
// Shuffle orders built from the same seed are identical, which keeps
// playlists reproducible in tests and across a page reload.
type SeededRNG struct {
	state       uint32
	initialSeed uint32
}

// NewSeededRNG creates a new seeded random number generator.
func NewSeededRNG(seed uint32) *SeededRNG {
	return &SeededRNG{
		state:       seed,
		initialSeed: seed,
	}
}

// NewSessionRNG seeds a generator from the wall clock.
func NewSessionRNG() *SeededRNG {
	return NewSeededRNG(SessionSeed(time.Now()))
}

// Seed returns the seed the generator was created or last reset with.
func (r *SeededRNG) Seed() uint32 {
	return r.initialSeed
}

// SetSeed sets a new seed and resets the generator state.
func (r *SeededRNG) SetSeed(seed uint32) {
	r.state = seed
	r.initialSeed = seed
}

// Reset resets the generator to its initial seed.
func (r *SeededRNG) Reset() {
	r.state = r.initialSeed
}

// Random generates the next random number using Mulberry32 algorithm.
// Returns a float64 between 0 (inclusive) and 1 (exclusive).
func (r *SeededRNG) Random() float64 {
	r.state += 0x6D2B79F5
	t := r.state
	t = (t ^ (t >> 15)) * (t | 1)
	t ^= t + (t^(t>>7))*(t|61)
	return float64(t^(t>>14)) / 4294967296.0
}

// Intn returns a random integer in [0, n). n <= 0 yields 0.
func (r *SeededRNG) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(r.Random() * float64(n))
}

// Perm returns a Fisher-Yates shuffled permutation of [0, n).
func (r *SeededRNG) Perm(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		order[i], order[j] = order[j], order[i]
	}
	return order
}

// SessionSeed mixes a timestamp into a well-distributed 32-bit seed.
func SessionSeed(t time.Time) uint32 {
	n := uint64(t.UnixNano())
	seed := uint32(n) ^ uint32(n>>32)
	seed = (seed ^ (seed >> 16)) * 0x85ebca6b
	seed = (seed ^ (seed >> 13)) * 0xc2b2ae35
	return seed ^ (seed >> 16)
}
