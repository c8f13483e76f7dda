// Package belief implements the pairwise belief transfer between two agents.
// Functions here are pure apart from the random draws: callers own the
// commit of the returned values back into their network.
package belief

import (
	"math"
	"math/rand/v2"
)

// Status is the adoption state of an agent, derived from its belief.
type Status int

const (
	NonAdopter Status = iota
	Adopter
)

// String returns the label used in exports and logs.
func (s Status) String() string {
	if s == Adopter {
		return "Adopter"
	}
	return "NonAdopter"
}

// StatusOf returns Adopter iff belief >= threshold.
func StatusOf(belief, threshold float64) Status {
	if belief >= threshold {
		return Adopter
	}
	return NonAdopter
}

// Clamp limits a belief to [0, 1]. NaN maps to 0.
func Clamp(b float64) float64 {
	if b < 0 || math.IsNaN(b) {
		return 0
	}
	if b > 1 {
		return 1
	}
	return b
}

// Transfer holds the parameters of a single exposure.
type Transfer struct {
	Probability float64 // chance that an exposure transmits
	Dose        float64 // belief increment on a successful exposure
	Threshold   float64 // adoption cutoff
}

// fires draws once and reports whether the exposure transmits.
// A zero probability never transmits, even on a zero draw.
func (t Transfer) fires(rng *rand.Rand) bool {
	r := rng.Float64()
	return t.Probability > 0 && r <= t.Probability
}

// UpdatePair applies one exposure between agents i and j and returns their
// new beliefs. Influence only flows from an adopter to a non-adopter; pairs of
// two adopters or two non-adopters are returned unchanged without drawing.
func UpdatePair(rng *rand.Rand, bi, bj float64, t Transfer, weight float64) (float64, float64) {
	iAdopter := bi >= t.Threshold
	jAdopter := bj >= t.Threshold

	switch {
	case iAdopter && !jAdopter:
		if t.fires(rng) {
			bj += weight * t.Dose
		}
	case !iAdopter && jAdopter:
		if t.fires(rng) {
			bi += weight * t.Dose
		}
	}
	return Clamp(bi), Clamp(bj)
}

// UpdatePairRepeated applies exposures independent exposures in sequence,
// re-deriving adoption status after each one. It models one draw per day of
// a multi-day event.
func UpdatePairRepeated(rng *rand.Rand, bi, bj float64, t Transfer, weight float64, exposures int) (float64, float64) {
	for e := 0; e < exposures; e++ {
		if (bi >= t.Threshold) == (bj >= t.Threshold) {
			break
		}
		bi, bj = UpdatePair(rng, bi, bj, t, weight)
	}
	return bi, bj
}
