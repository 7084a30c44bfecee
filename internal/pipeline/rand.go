package pipeline

import (
	"crypto/md5"
	"encoding/binary"
	"math"
	"math/rand"
)

// MatchSeed derives a stable 32-bit seed from a match id. The same id always
// yields the same seed, which makes every synthesized field reproducible
// across runs and across the direct/chunked paths.
func MatchSeed(matchID string) int64 {
	sum := md5.Sum([]byte(matchID))
	return int64(binary.BigEndian.Uint32(sum[:4]))
}

func newRand(matchID string) *rand.Rand {
	return rand.New(rand.NewSource(MatchSeed(matchID)))
}

// uniform draws from [lo, hi).
func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// poisson draws from a Poisson distribution with the given mean using
// Knuth's product method. Means here stay well under 30, where the method
// is exact and cheap.
func poisson(rng *rand.Rand, mean float64) int {
	if mean <= 0 {
		return 0
	}
	limit := math.Exp(-mean)
	k := 0
	p := 1.0
	for {
		p *= rng.Float64()
		if p <= limit {
			return k
		}
		k++
	}
}
