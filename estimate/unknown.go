package estimate

import (
	"math"

	"github.com/hupe1980/tagseek/sketch"
)

const (
	// shortReadLength splits short-read from long-read samples for the
	// identity fallback.
	shortReadLength = 400.0

	// lowDepthMedianEst is the running-median floor below which the
	// multiplicity spectrum is too shallow for identity estimation.
	lowDepthMedianEst = 3.0

	// shortReadAccuracy is the assumed per-base accuracy of short
	// reads when the spectrum cannot be used.
	shortReadAccuracy = 0.995
)

// TagIdentity estimates the probability that a sampled tag is error
// free from the sample's multiplicity spectrum: tags seen once are
// dominated by sequencing errors while repeated tags are almost
// always genuine, so the repeated mass over the total mass bounds the
// per-tag identity. Short-read samples whose depth is too shallow for
// the spectrum fall back to an assumed 99.5% base accuracy.
func TagIdentity(s *sketch.SampleSketch) float64 {
	var median int64
	movAvg := 0.0
	n := 1.0
	for _, rec := range s.Records {
		if rec.Count > 1 {
			if int64(rec.Count) > median {
				median++
			} else {
				median--
			}
			movAvg += float64(median)
			n++
		}
	}
	movAvg /= n

	var num1s, numNot1s float64
	for _, rec := range s.Records {
		if rec.Count == 1 {
			num1s++
		} else {
			numNot1s += float64(rec.Count)
		}
	}
	// 0.1 keeps the ratio finite on all-singleton samples.
	eps := numNot1s / (numNot1s + num1s + 0.1)

	if movAvg < lowDepthMedianEst && s.MeanReadLen < shortReadLength {
		return math.Pow(shortReadAccuracy, float64(s.Params.TagLen))
	}
	return math.Min(eps, 1)
}

// IdentityFromPercent converts a read accuracy percentage into the
// per-tag identity used by the unknown-sequence correction.
func IdentityFromPercent(pct float64, tagLen uint8) float64 {
	return math.Pow(pct/100, float64(tagLen))
}

// ApplyTrueCoverage rescales effective coverages by the estimated tag
// identity and the per-read tag yield, turning sketch coverage into
// an estimate of true sequencing coverage.
func ApplyTrueCoverage(rows []*Result, identity, meanReadLen float64, tagLen uint8) {
	if identity <= 0 {
		return
	}
	mult := 1.0
	if meanReadLen > float64(tagLen) {
		mult = meanReadLen / (meanReadLen - float64(tagLen) + 1)
	}
	for _, r := range rows {
		r.EffectiveCov = r.EffectiveCov / identity * mult
	}
}

// CoveredFraction estimates the share of sample bases the retained
// genomes explain, capped at one. The sample's total base count is
// reconstructed from its retained tag mass and the subsample rate.
func CoveredFraction(rows []*Result, s *sketch.SampleSketch, tagLen uint8) float64 {
	var covered float64
	for _, r := range rows {
		covered += float64(r.GenomeLength) * r.EffectiveCov
	}

	mult := 1.0
	if s.MeanReadLen > float64(tagLen) {
		mult = s.MeanReadLen / (s.MeanReadLen - float64(tagLen) + 1)
	}
	rate := float64(s.Params.SubsampleRate)
	if rate < 1 {
		rate = 1
	}
	tentative := rate * float64(s.TotalTags) * mult
	if tentative == 0 {
		return 0
	}
	return math.Min(covered/tentative, 1)
}
