// Package profile turns per-genome containment estimates into a
// taxonomic profile. One sample runs through two estimation passes
// with contested tags reassigned between them, near-duplicates are
// dropped, coverages are normalized into relative abundances, and
// genomes aggregate into clade rows gated by a G-score confidence
// heuristic.
package profile

import (
	"context"
	"log/slog"
	"math"

	"github.com/hupe1980/tagseek/estimate"
	"github.com/hupe1980/tagseek/index"
	"github.com/hupe1980/tagseek/reassign"
	"github.com/hupe1980/tagseek/sketch"
)

// DefaultGscoreThreshold gates clade rows on
// √(read support × distinct tag support).
const DefaultGscoreThreshold = 10.0

// Options control profiling one sample.
type Options struct {
	// Estimate configures both estimation passes. An unset MinANI
	// takes the profiling default.
	Estimate estimate.Options

	// RedundantANI is the near-duplicate removal threshold (percent).
	RedundantANI float64

	// EstimateUnknown rescales coverages by the estimated per-tag
	// identity and reports the share of sample bases explained.
	EstimateUnknown bool

	// SeqIdentity overrides the estimated read accuracy (percent).
	// Zero estimates it from the multiplicity spectrum.
	SeqIdentity float64

	// TraceReassign streams contested-tag decisions and ownership
	// flows to the logger.
	TraceReassign bool

	Logger *slog.Logger
}

// DefaultOptions returns the profiling defaults.
func DefaultOptions() Options {
	return Options{
		Estimate:     estimate.ProfileOptions(),
		RedundantANI: reassign.DefaultRedundantANI,
	}
}

func (o Options) withDefaults() Options {
	if o.Estimate.MinANI <= 0 {
		o.Estimate.MinANI = estimate.DefaultProfileMinANI
	}
	if o.RedundantANI <= 0 {
		o.RedundantANI = reassign.DefaultRedundantANI
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	if o.Estimate.Logger == nil {
		o.Estimate.Logger = o.Logger
	}
	return o
}

// GenomeRow is one retained genome with its share of the sample's
// identified mass, in percent.
type GenomeRow struct {
	*estimate.Result

	TaxAbundance float64
	SeqAbundance float64
}

// Report is one sample's finished profile.
type Report struct {
	Sample string
	Rows   []*GenomeRow

	// Identity is the per-tag identity used by the unknown-sequence
	// correction; zero when the correction is off.
	Identity float64

	// BasesExplained estimates the fraction of sample bases the
	// retained genomes account for (one when the correction is off).
	BasesExplained float64
}

// Run profiles one sample against the database: estimate every
// candidate genome, award contested tags to their strongest claimant,
// re-estimate on the thinned evidence, drop redundant near-duplicates,
// and normalize what remains into relative abundances.
func Run(ctx context.Context, db *index.Database, sample *sketch.SampleSketch, opts Options) (*Report, error) {
	opts = opts.withDefaults()
	log := opts.Logger
	tagLen := db.Params().TagLen

	var identity float64
	if opts.EstimateUnknown {
		if opts.SeqIdentity > 0 {
			identity = estimate.IdentityFromPercent(opts.SeqIdentity, tagLen)
		} else {
			identity = estimate.TagIdentity(sample)
		}
		log.Debug("per-tag identity",
			"sample", sample.Name,
			"identity_pct", math.Pow(identity, 1/float64(tagLen))*100)
	}

	pass1, err := estimate.Estimate(ctx, db, sample, opts.Estimate)
	if err != nil {
		return nil, err
	}
	if opts.EstimateUnknown {
		estimate.ApplyTrueCoverage(pass1, identity, sample.MeanReadLen, tagLen)
	}

	log.Info("reassigning contested tags", "sample", sample.Name, "genomes", len(pass1))
	tab := reassign.Build(db, pass1)
	if opts.TraceReassign {
		tab.Trace(log)
		for _, e := range tab.Edges(reassign.DefaultEdgeFloor) {
			log.Info("tag ownership flow",
				"winner", db.Genome(e.Winner).Name,
				"loser", db.Genome(e.Loser).Name,
				"tags", e.Tags)
		}
	}

	ords := make([]int, len(pass1))
	for i, r := range pass1 {
		ords[i] = r.Ordinal
	}
	pass2, err := estimate.Reestimate(ctx, db, sample, ords, tab.Winner, opts.Estimate)
	if err != nil {
		return nil, err
	}

	final := reassign.Dereplicate(pass2, opts.RedundantANI, tagLen, log)
	if opts.EstimateUnknown {
		estimate.ApplyTrueCoverage(final, identity, sample.MeanReadLen, tagLen)
	}
	log.Info("genomes retained", "sample", sample.Name, "genomes", len(final))

	basesExplained := 1.0
	if opts.EstimateUnknown {
		basesExplained = estimate.CoveredFraction(final, sample, tagLen)
		log.Info("sample bases explained by database",
			"sample", sample.Name, "fraction", basesExplained)
	}

	var totalCov, totalWeighted float64
	for _, r := range final {
		totalCov += r.EffectiveCov
		totalWeighted += r.EffectiveCov * float64(r.GenomeLength)
	}

	rows := make([]*GenomeRow, len(final))
	for i, r := range final {
		row := &GenomeRow{Result: r}
		if totalCov > 0 {
			row.TaxAbundance = r.EffectiveCov / totalCov * 100
		}
		if totalWeighted > 0 {
			row.SeqAbundance = r.EffectiveCov * float64(r.GenomeLength) / totalWeighted * 100 * basesExplained
		}
		rows[i] = row
	}
	sortRows(rows)

	return &Report{
		Sample:         sample.Name,
		Rows:           rows,
		Identity:       identity,
		BasesExplained: basesExplained,
	}, nil
}
