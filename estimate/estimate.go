package estimate

import (
	"cmp"
	"context"
	"log/slog"
	"math"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/tagseek/index"
	"github.com/hupe1980/tagseek/sketch"
)

// Tunables of the coverage model.
const (
	// highCoverageMedian is the shared-tag median multiplicity above
	// which zero-truncation loss is negligible and the naive estimate
	// stands.
	highCoverageMedian = 2.0

	// meanEstimateMedianLimit bounds the regime where the nonzero mean
	// is reported as effective coverage instead of the median.
	meanEstimateMedianLimit = 15.0

	// dampingMedianCeiling disables outlier damping for deep samples.
	dampingMedianCeiling = 30.0

	// dampingMassCutoff is the Poisson mass beyond which a
	// multiplicity is treated as a repeat artifact.
	dampingMassCutoff = 0.9999999999
)

// Defaults for Options.
const (
	DefaultMinCountCorrect  = 3.0
	DefaultMinTagsPerGenome = 50
	DefaultQueryMinANI      = 0.90
	DefaultProfileMinANI    = 0.95
	DefaultWorkers          = 3
)

// Options control one estimation run.
type Options struct {
	// MinANI drops rows whose adjusted ANI falls below it (fraction).
	MinANI float64

	// MinCountCorrect is the smallest histogram bin occupancy the
	// ratio estimator accepts as evidence.
	MinCountCorrect float64

	// MinTagsPerGenome excludes genomes sketched with fewer tags.
	MinTagsPerGenome int

	// Estimator selects the λ estimator.
	Estimator Estimator

	// MeanCoverage reports the nonzero mean instead of the median for
	// deep samples without a λ estimate.
	MeanCoverage bool

	// NoAdjust always reports the naive ANI.
	NoAdjust bool

	// NoBootstrap skips the percentile intervals.
	NoBootstrap bool

	// Workers bounds concurrent per-genome estimation.
	Workers int

	Logger *slog.Logger
}

// QueryOptions returns the defaults for exploratory querying.
func QueryOptions() Options {
	return Options{
		MinANI:           DefaultQueryMinANI,
		MinCountCorrect:  DefaultMinCountCorrect,
		MinTagsPerGenome: DefaultMinTagsPerGenome,
		Workers:          DefaultWorkers,
	}
}

// ProfileOptions returns the stricter defaults for profiling, which
// aggregates many genomes and tolerates fewer false positives.
func ProfileOptions() Options {
	o := QueryOptions()
	o.MinANI = DefaultProfileMinANI
	return o
}

func (o Options) withDefaults() Options {
	if o.MinANI <= 0 {
		o.MinANI = DefaultQueryMinANI
	}
	if o.MinCountCorrect <= 0 {
		o.MinCountCorrect = DefaultMinCountCorrect
	}
	if o.MinTagsPerGenome <= 0 {
		o.MinTagsPerGenome = DefaultMinTagsPerGenome
	}
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// WinnerFunc reports the ordinal of the genome owning a tag after
// reassignment. Estimation skips shared tags owned elsewhere and
// tallies them as lost.
type WinnerFunc func(hash uint64) (int, bool)

// Result is one retained (sample, genome) estimate. ANIs are
// fractions; values above one are possible and clamped only when
// printed.
type Result struct {
	Sample string
	Genome string
	Contig string

	Ordinal      int
	GenomeLength uint64

	// GenomeTags is the genome sketch size; SharedTags counts its
	// tags observed in the sample after any reassignment, and
	// SharedReads sums their sample multiplicities.
	GenomeTags  int
	SharedTags  int
	SharedReads uint64

	NaiveANI float64
	ANI      float64

	Status AdjustStatus
	Lambda float64

	EffectiveCov float64
	MedianCov    float64
	MeanCovGeq1  float64

	ANILow, ANIHigh       float64
	LambdaLow, LambdaHigh float64
	HasCI                 bool

	// TagsLost counts shared tags awarded to other genomes during a
	// reassignment pass.
	TagsLost int
}

// Estimate runs the containment estimator for one sample against
// every database genome sharing at least one tag with it. Rows are
// ordered by adjusted ANI descending, then genome name. An empty
// sample yields no rows and no error.
func Estimate(ctx context.Context, db *index.Database, sample *sketch.SampleSketch, opts Options) ([]*Result, error) {
	return estimate(ctx, db, sample, nil, nil, opts)
}

// Reestimate repeats the estimation with tag ownership fixed by a
// reassignment winner table, visiting only the listed genome
// ordinals.
func Reestimate(ctx context.Context, db *index.Database, sample *sketch.SampleSketch, ordinals []int, winner WinnerFunc, opts Options) ([]*Result, error) {
	return estimate(ctx, db, sample, ordinals, winner, opts)
}

func estimate(ctx context.Context, db *index.Database, sample *sketch.SampleSketch, ordinals []int, winner WinnerFunc, opts Options) ([]*Result, error) {
	if err := db.Validate(sample); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	if len(sample.Records) == 0 {
		opts.Logger.Warn("sample sketch holds no tags", "sample", sample.Name)
		return nil, nil
	}

	if ordinals == nil {
		cands := db.Candidates(sample.Records, 1)
		ordinals = make([]int, len(cands))
		for i, c := range cands {
			ordinals[i] = c.Ordinal
		}
		opts.Logger.Debug("candidate genomes screened",
			"sample", sample.Name, "candidates", len(ordinals), "database", db.Len())
	}

	var (
		mu   sync.Mutex
		rows []*Result
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for _, ord := range ordinals {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if res, ok := genomeStats(sample, db.Genome(ord), ord, winner, opts); ok {
				mu.Lock()
				rows = append(rows, res)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.SortFunc(rows, func(a, b *Result) int {
		if c := cmp.Compare(b.ANI, a.ANI); c != 0 {
			return c
		}
		return cmp.Compare(a.Genome, b.Genome)
	})
	return rows, nil
}

// genomeStats computes one genome's coverage-adjusted estimate, or
// reports false when the genome yields no retained row.
func genomeStats(sample *sketch.SampleSketch, gs *sketch.GenomeSketch, ord int, winner WinnerFunc, opts Options) (*Result, bool) {
	if len(gs.Hashes) < opts.MinTagsPerGenome {
		return nil, false
	}

	var covs []uint32
	var reads uint64
	lost := 0
	sketch.IntersectCounts(gs.Hashes, sample.Records, func(h uint64, c uint32) {
		if c == 0 {
			return
		}
		if winner != nil {
			if own, ok := winner(h); ok && own != ord {
				lost++
				return
			}
		}
		covs = append(covs, c)
		reads += uint64(c)
	})
	if len(covs) == 0 {
		return nil, false
	}

	k := float64(gs.Params.TagLen)
	naive := math.Pow(float64(len(covs))/float64(len(gs.Hashes)), 1/k)

	slices.Sort(covs)
	median := float64(covs[len(covs)/2])

	// Repeat damping: walking up from the median, cap multiplicities
	// carrying implausible Poisson mass for the observed median.
	maxCov := math.MaxFloat64
	if median < dampingMedianCeiling {
		for _, c := range covs[len(covs)/2:] {
			if poissonCDF(median, float64(c)) >= dampingMassCutoff {
				break
			}
			maxCov = float64(c)
		}
	}

	full := make([]uint32, len(gs.Hashes)-len(covs), len(gs.Hashes))
	var sum float64
	for _, c := range covs {
		if float64(c) <= maxCov {
			full = append(full, c)
			sum += float64(c)
		}
	}
	meanGeq1 := sum / float64(len(covs))

	status := StatusLow
	var lambda float64
	if median > highCoverageMedian {
		status = StatusHigh
	} else if lam, ok := estimateLambda(opts.Estimator, full, opts.MinCountCorrect); ok {
		status, lambda = StatusLambda, lam
	}

	var effCov float64
	switch {
	case status == StatusLambda:
		effCov = lambda
	case median < meanEstimateMedianLimit || opts.MeanCoverage:
		effCov = meanGeq1
	default:
		effCov = median
	}

	ani := naive
	if status == StatusLambda && !opts.NoAdjust {
		if adj, ok := aniFromLambda(lambda, k, full); ok {
			ani = adj
		}
	}

	if ani < opts.MinANI {
		if winner != nil {
			opts.Logger.Info("genome dropped after tag reassignment",
				"sample", sample.Name,
				"genome", gs.Name,
				"ani", ani*100,
				"min_ani", opts.MinANI*100,
				"tags_lost", lost,
				"tags_contained", len(covs))
		}
		return nil, false
	}

	res := &Result{
		Sample:       sample.Name,
		Genome:       gs.Name,
		Contig:       cmp.Or(gs.FirstContig, gs.Name),
		Ordinal:      ord,
		GenomeLength: gs.GenomeLength,
		GenomeTags:   len(gs.Hashes),
		SharedTags:   len(covs),
		SharedReads:  reads,
		NaiveANI:     naive,
		ANI:          ani,
		Status:       status,
		Lambda:       lambda,
		EffectiveCov: effCov,
		MedianCov:    median,
		MeanCovGeq1:  meanGeq1,
		TagsLost:     lost,
	}

	if status == StatusLambda && !opts.NoBootstrap {
		if lo, hi, llo, lhi, ok := bootstrapInterval(full, k, opts.Estimator, opts.MinCountCorrect); ok {
			res.ANILow, res.ANIHigh = lo, hi
			res.LambdaLow, res.LambdaHigh = llo, lhi
			res.HasCI = true
		}
	}
	return res, true
}
