package common

// SeededRNG implements a Mulberry32 seeded pseudo-random number generator.
// The same seed always yields the same sequence, which keeps synthetic
// spectra reproducible.
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
	return float64((t^(t>>14))>>0) / 4294967296.0
}

// RandomInt generates a random integer in the range [lo, hi).
func (r *SeededRNG) RandomInt(lo, hi int) int {
	return int(r.Random()*float64(hi-lo)) + lo
}

// RandomFloat generates a random float in the range [lo, hi).
func (r *SeededRNG) RandomFloat(lo, hi float64) float64 {
	return r.Random()*(hi-lo) + lo
}

// KeySeed derives a deterministic seed for key, such as a media element id,
// from a base seed.
func KeySeed(baseSeed uint32, key string) uint32 {
	seed := baseSeed
	for i := 0; i < len(key); i++ {
		seed = (seed ^ uint32(key[i])) * 2654435761
	}
	seed = (seed ^ (seed >> 16)) * 0x85ebca6b
	seed = (seed ^ (seed >> 13)) * 0xc2b2ae35
	return seed ^ (seed >> 16)
}
