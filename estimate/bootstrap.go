package estimate

import (
	"math"
	"math/rand/v2"
	"slices"
)

const (
	bootstrapIters = 100

	// bootstrapMinSuccess is the number of usable resamples required
	// before percentile intervals are reported.
	bootstrapMinSuccess = 50
)

// bootstrapInterval resamples the coverage vector with replacement and
// re-runs the λ estimation per resample, returning the 5th and 95th
// percentiles of the adjusted ANI and of λ. The generator is seeded so
// the intervals are reproducible across runs.
func bootstrapInterval(full []uint32, tagLen float64, est Estimator, minCountCorrect float64) (aniLow, aniHigh, lamLow, lamHigh float64, ok bool) {
	if len(full) == 0 {
		return 0, 0, 0, 0, false
	}

	rng := rand.New(rand.NewPCG(7, 7))
	anis := make([]float64, 0, bootstrapIters)
	lams := make([]float64, 0, bootstrapIters)
	resample := make([]uint32, len(full))

	for range bootstrapIters {
		for j := range resample {
			resample[j] = full[rng.IntN(len(full))]
		}
		lam, ok := estimateLambda(est, resample, minCountCorrect)
		if !ok || math.IsNaN(lam) {
			continue
		}
		ani, ok := aniFromLambda(lam, tagLen, resample)
		if !ok || math.IsNaN(ani) {
			continue
		}
		anis = append(anis, ani)
		lams = append(lams, lam)
	}

	if len(anis) < bootstrapMinSuccess {
		return 0, 0, 0, 0, false
	}
	slices.Sort(anis)
	slices.Sort(lams)

	suc := len(anis)
	lo, hi := suc*5/100-1, suc*95/100-1
	return anis[lo], anis[hi], lams[lo], lams[hi], true
}
