package estimate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/tagseek/sketch"
)

func spectrumSample(meanReadLen float64, counts map[uint64]uint32) *sketch.SampleSketch {
	s := &sketch.SampleSketch{
		Name:        "reads.fq",
		Params:      testParams(),
		Records:     sketch.RecordsFromCounts(counts),
		MeanReadLen: meanReadLen,
	}
	for _, rec := range s.Records {
		s.TotalTags += uint64(rec.Count)
	}
	return s
}

func TestTagIdentitySpectrum(t *testing.T) {
	// Deep sample, no singletons: identity is the repeated mass over
	// the total mass, 250/(250+0.1).
	s := spectrumSample(150, countsAt(nil, hashRange(0, 50), 5))
	assert.InDelta(t, 250.0/250.1, TagIdentity(s), 1e-9)
}

func TestTagIdentityShortReadFallback(t *testing.T) {
	// Mostly singletons on short reads: the spectrum is unusable and
	// the assumed base accuracy takes over.
	counts := countsAt(nil, hashRange(0, 40), 1)
	counts = countsAt(counts, hashRange(100, 5), 2)

	s := spectrumSample(100, counts)
	assert.InDelta(t, math.Pow(0.995, 32), TagIdentity(s), 1e-12)
}

func TestTagIdentityLongReadsUseSpectrum(t *testing.T) {
	// Same shallow spectrum on long reads: no accuracy assumption,
	// the spectrum ratio stands however poor.
	counts := countsAt(nil, hashRange(0, 40), 1)
	counts = countsAt(counts, hashRange(100, 5), 2)

	s := spectrumSample(1000, counts)
	assert.InDelta(t, 10.0/50.1, TagIdentity(s), 1e-9)
}

func TestIdentityFromPercent(t *testing.T) {
	assert.InDelta(t, math.Pow(0.995, 32), IdentityFromPercent(99.5, 32), 1e-12)
	assert.InDelta(t, 1.0, IdentityFromPercent(100, 32), 1e-12)
}

func TestApplyTrueCoverage(t *testing.T) {
	rows := []*Result{{EffectiveCov: 2}}

	ApplyTrueCoverage(rows, 0.5, 100, 32)
	assert.InDelta(t, 2/0.5*(100.0/69), rows[0].EffectiveCov, 1e-9)

	// Reads shorter than a tag carry at most one tag; no yield scaling.
	rows = []*Result{{EffectiveCov: 2}}
	ApplyTrueCoverage(rows, 0.5, 20, 32)
	assert.InDelta(t, 4, rows[0].EffectiveCov, 1e-12)

	// Unknown identity leaves the coverage untouched.
	rows = []*Result{{EffectiveCov: 2}}
	ApplyTrueCoverage(rows, 0, 100, 32)
	assert.InDelta(t, 2, rows[0].EffectiveCov, 1e-12)
}

func TestCoveredFraction(t *testing.T) {
	s := spectrumSample(100, countsAt(nil, hashRange(0, 100), 1))

	// 50 bases explained out of ~145 reconstructed: below one.
	rows := []*Result{{GenomeLength: 50, EffectiveCov: 1}}
	want := 50 / (float64(s.TotalTags) * 100.0 / 69)
	assert.InDelta(t, want, CoveredFraction(rows, s, 32), 1e-9)

	// Deep rows push past the reconstruction; the share caps at one.
	rows = []*Result{{GenomeLength: 1000, EffectiveCov: 2}}
	assert.InDelta(t, 1, CoveredFraction(rows, s, 32), 1e-12)

	assert.Zero(t, CoveredFraction(rows, spectrumSample(100, nil), 32))
}
