package tagseek

import (
	"context"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/tagseek/codec"
	"github.com/hupe1980/tagseek/enzyme"
	"github.com/hupe1980/tagseek/estimate"
	"github.com/hupe1980/tagseek/extract"
	"github.com/hupe1980/tagseek/index"
	"github.com/hupe1980/tagseek/manifest"
	"github.com/hupe1980/tagseek/persistence"
	"github.com/hupe1980/tagseek/profile"
	"github.com/hupe1980/tagseek/queue"
	"github.com/hupe1980/tagseek/resource"
	"github.com/hupe1980/tagseek/seqio"
	"github.com/hupe1980/tagseek/sketch"
)

// Version identifies this library build in manifests and CLI output.
const Version = "0.1.0"

// UnitKind distinguishes reference genomes from read sets.
type UnitKind uint8

const (
	// UnitGenome is an assembled reference FASTA sketched as single-copy
	// tag hashes.
	UnitGenome UnitKind = iota

	// UnitReads is a sample read set sketched as tag multiplicities.
	UnitReads
)

func (k UnitKind) String() string {
	if k == UnitReads {
		return "reads"
	}
	return "genome"
}

// Unit names one sketching input: a genome FASTA, a read file, or a
// read pair.
type Unit struct {
	Name  string
	Kind  UnitKind
	Files []string
}

// GenomeUnit describes one reference FASTA.
func GenomeUnit(path string) Unit {
	return Unit{Name: filepath.Base(path), Kind: UnitGenome, Files: []string{path}}
}

// ReadsUnit describes one single-end read file.
func ReadsUnit(path string) Unit {
	return Unit{Name: filepath.Base(path), Kind: UnitReads, Files: []string{path}}
}

// PairedReadsUnit describes a paired-end read set. The unit is named
// after the first mate file.
func PairedReadsUnit(first, second string) Unit {
	return Unit{Name: filepath.Base(first), Kind: UnitReads, Files: []string{first, second}}
}

// SketchConfig bundles the extraction parameters of one Tagseek
// instance. Sketches from different configs are incompatible.
type SketchConfig struct {
	// Enzyme selects the Type IIB profile. Defaults to enzyme.Default.
	Enzyme string

	// MinSpacing drops genome sites closer than this many bases to the
	// previously kept site. Defaults to DefaultMinSpacing; negative
	// disables spacing.
	MinSpacing int

	// SubsampleRate keeps a read tag only when hash%rate == 0.
	// Defaults to DefaultSubsampleRate; 1 keeps every tag.
	SubsampleRate uint32

	// NoDedup keeps exact duplicate reads instead of dropping them.
	NoDedup bool

	// PerRecord sketches every sequence record of a genome unit as its
	// own genome.
	PerRecord bool
}

// Tagseek sketches restriction tags and runs coverage-adjusted
// containment queries against them. Instances are safe for concurrent
// use.
type Tagseek struct {
	extractor *extract.Extractor
	params    sketch.Params
	perRecord bool

	rc          *resource.Controller
	codec       codec.Codec
	metrics     MetricsCollector
	logger      *Logger
	compression Compression

	threads        int
	sampleThreads  int
	profileThreads int
	spillDir       string
	manifests      bool
}

// New creates a Tagseek instance for one extraction configuration.
func New(cfg SketchConfig, optFns ...Option) (*Tagseek, error) {
	opts, err := applyOptions(optFns)
	if err != nil {
		return nil, err
	}

	if cfg.Enzyme == "" {
		cfg.Enzyme = enzyme.Default
	}
	if cfg.MinSpacing == 0 {
		cfg.MinSpacing = DefaultMinSpacing
	}
	if cfg.MinSpacing < 0 {
		cfg.MinSpacing = 0
	}
	if cfg.SubsampleRate == 0 {
		cfg.SubsampleRate = DefaultSubsampleRate
	}

	prof, err := enzyme.Lookup(cfg.Enzyme)
	if err != nil {
		return nil, translateError(err)
	}

	ex := extract.New(prof, extract.Config{
		MinSpacing:    cfg.MinSpacing,
		SubsampleRate: cfg.SubsampleRate,
		Dedup:         !cfg.NoDedup,
	})

	if opts.resources.MaxUnitWorkers == 0 {
		opts.resources.MaxUnitWorkers = int64(opts.threads)
	}
	spillDir := opts.spillDir
	if spillDir == "" {
		spillDir = os.TempDir()
	}

	// Without an explicit sample-thread option, profile concurrency
	// follows the sketching thread count.
	profileThreads := opts.sampleThreads
	if !opts.sampleThreadsSet {
		profileThreads = opts.threads/3 + 1
	}

	return &Tagseek{
		extractor:      ex,
		params:         ex.Params(),
		perRecord:      cfg.PerRecord,
		rc:             resource.NewController(opts.resources),
		codec:          opts.codec,
		metrics:        opts.metricsCollector,
		logger:         opts.logger,
		compression:    opts.compression,
		threads:        opts.threads,
		sampleThreads:  opts.sampleThreads,
		profileThreads: profileThreads,
		spillDir:       spillDir,
		manifests:      opts.manifests,
	}, nil
}

// Params describes the extraction parameters shared by every sketch
// this instance produces.
func (ts *Tagseek) Params() sketch.Params { return ts.params }

// ctxRecords threads cancellation into a record stream.
func ctxRecords(ctx context.Context, records iter.Seq2[*seqio.Record, error]) iter.Seq2[*seqio.Record, error] {
	return func(yield func(*seqio.Record, error) bool) {
		for rec, err := range records {
			if cerr := ctx.Err(); cerr != nil {
				yield(nil, cerr)
				return
			}
			if !yield(rec, err) {
				return
			}
		}
	}
}

func oneRecord(rec *seqio.Record) iter.Seq2[*seqio.Record, error] {
	return func(yield func(*seqio.Record, error) bool) {
		yield(rec, nil)
	}
}

// ExtractGenomes sketches one genome unit. Per-record mode yields one
// sketch per sequence record, otherwise exactly one sketch.
func (ts *Tagseek) ExtractGenomes(ctx context.Context, unit Unit) ([]*sketch.GenomeSketch, error) {
	start := time.Now()
	sketches, err := ts.extractGenomes(ctx, unit)
	err = translateError(err)
	ts.metrics.RecordSketch(time.Since(start), err)
	tags := 0
	for _, g := range sketches {
		tags += len(g.Hashes)
	}
	ts.logger.LogSketch(ctx, unit.Name, tags, err)
	return sketches, err
}

func (ts *Tagseek) extractGenomes(ctx context.Context, unit Unit) ([]*sketch.GenomeSketch, error) {
	if unit.Kind != UnitGenome {
		return nil, &ConfigurationError{Param: "unit", Value: unit.Name, Reason: "not a genome unit"}
	}
	if len(unit.Files) != 1 {
		return nil, &ConfigurationError{Param: "unit", Value: unit.Name, Reason: fmt.Sprintf("genome units take one file, got %d", len(unit.Files))}
	}

	r, err := seqio.Open(unit.Files[0])
	if err != nil {
		return nil, &InputError{Unit: unit.Name, cause: err}
	}
	defer r.Close()

	if !ts.perRecord {
		g, err := ts.extractor.Genome(unit.Name, ctxRecords(ctx, r.Records()))
		if err != nil {
			return nil, err
		}
		return []*sketch.GenomeSketch{g}, nil
	}

	var sketches []*sketch.GenomeSketch
	for rec, err := range ctxRecords(ctx, r.Records()) {
		if err != nil {
			return nil, err
		}
		g, err := ts.extractor.Genome(rec.Name, oneRecord(rec))
		if err != nil {
			return nil, err
		}
		sketches = append(sketches, g)
	}
	return sketches, nil
}

// ExtractSample sketches one read unit, single-end or paired.
func (ts *Tagseek) ExtractSample(ctx context.Context, unit Unit) (*sketch.SampleSketch, error) {
	start := time.Now()
	s, err := ts.extractSample(ctx, unit)
	err = translateError(err)
	ts.metrics.RecordSketch(time.Since(start), err)
	tags := 0
	if s != nil {
		tags = int(s.TotalTags)
	}
	ts.logger.LogSketch(ctx, unit.Name, tags, err)
	return s, err
}

func (ts *Tagseek) extractSample(ctx context.Context, unit Unit) (*sketch.SampleSketch, error) {
	if unit.Kind != UnitReads {
		return nil, &ConfigurationError{Param: "unit", Value: unit.Name, Reason: "not a reads unit"}
	}

	var (
		records iter.Seq2[*seqio.Record, error]
		closeFn func() error
	)
	switch len(unit.Files) {
	case 1:
		r, err := seqio.Open(unit.Files[0])
		if err != nil {
			return nil, &InputError{Unit: unit.Name, cause: err}
		}
		records, closeFn = r.Records(), r.Close
	case 2:
		p, err := seqio.OpenPair(unit.Files[0], unit.Files[1])
		if err != nil {
			return nil, &InputError{Unit: unit.Name, cause: err}
		}
		records, closeFn = p.Records(), p.Close
	default:
		return nil, &ConfigurationError{Param: "unit", Value: unit.Name, Reason: fmt.Sprintf("read units take one or two files, got %d", len(unit.Files))}
	}
	defer closeFn()

	return ts.extractor.Sample(unit.Name, ctxRecords(ctx, records))
}

// unitSize sums the on-disk bytes of a unit for largest-first
// scheduling. Unreadable files weigh nothing and fail later with a
// proper error.
func unitSize(u Unit) int64 {
	var total int64
	for _, f := range u.Files {
		if fi, err := os.Stat(f); err == nil {
			total += fi.Size()
		}
	}
	return total
}

// BuildResult summarizes one database build.
type BuildResult struct {
	// Path of the written database.
	Path string

	// Genomes counts the sketches in the database.
	Genomes int

	// Spilled counts sketches routed through the disk spill segment.
	Spilled int

	// Failed lists units that could not be sketched. The database
	// still holds every unit that succeeded.
	Failed UnitErrors
}

// BuildDatabase sketches the genome units concurrently, largest files
// first, and writes them as one database at path. Unit ordering in the
// database follows the input order regardless of scheduling. Per-unit
// failures are collected in the result; the returned error reports
// only fatal conditions.
func (ts *Tagseek) BuildDatabase(ctx context.Context, units []Unit, path string) (*BuildResult, error) {
	start := time.Now()
	res, err := ts.buildDatabase(ctx, units, path, start)
	err = translateError(err)

	failed, genomes, spilled := 0, 0, 0
	if res != nil {
		failed, genomes, spilled = len(res.Failed), res.Genomes, res.Spilled
		ts.logger.LogSketchBatch(ctx, len(units), failed)
	}
	ts.metrics.RecordSketchBatch(len(units), failed, time.Since(start))
	ts.metrics.RecordPersist(time.Since(start), err)
	ts.logger.LogBuild(ctx, path, genomes, spilled, err)
	return res, err
}

func (ts *Tagseek) buildDatabase(ctx context.Context, units []Unit, path string, start time.Time) (*BuildResult, error) {
	if len(units) == 0 {
		return nil, ErrNoUnits
	}
	for _, u := range units {
		if u.Kind != UnitGenome {
			return nil, &ConfigurationError{Param: "unit", Value: u.Name, Reason: "databases are built from genome units"}
		}
	}

	st := sketch.NewStore(ts.params,
		sketch.WithController(ts.rc),
		sketch.WithSpillDir(ts.spillDir),
		sketch.WithLogger(ts.logger.Logger))
	defer st.Close()

	order := make([]int, len(units))
	for i := range order {
		order[i] = i
	}
	sizes := make([]int64, len(units))
	for i, u := range units {
		sizes[i] = unitSize(u)
	}
	order = queue.Schedule(order, func(i int) int64 { return sizes[i] })

	unitErrs := make([]error, len(units))
	unitTags := make([]uint64, len(units))

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(ts.threads)
	for _, idx := range order {
		eg.Go(func() error {
			sketches, err := ts.extractGenomes(gctx, units[idx])
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				unitErrs[idx] = translateError(err)
				ts.logger.LogSketch(gctx, units[idx].Name, 0, unitErrs[idx])
				return nil
			}
			for j, g := range sketches {
				if err := st.Add(uint64(idx)<<32|uint64(j), g); err != nil {
					return err
				}
				unitTags[idx] += uint64(len(g.Hashes))
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	res := &BuildResult{Path: path}
	for i, err := range unitErrs {
		if err != nil {
			res.Failed = append(res.Failed, &UnitError{Unit: units[i].Name, Err: err})
		}
	}

	res.Spilled = st.Spilled()
	n, err := st.Flush(path, ts.compression.databaseFlags())
	if err != nil {
		return res, err
	}
	res.Genomes = n

	if ts.manifests {
		ts.writeManifest(ctx, path, units, sizes, unitTags, unitErrs, start)
	}
	return res, nil
}

// writeManifest records build provenance beside the database. Failures
// are logged, never fatal.
func (ts *Tagseek) writeManifest(ctx context.Context, dbPath string, units []Unit, sizes []int64, tags []uint64, unitErrs []error, start time.Time) {
	m := &manifest.Manifest{
		Tool:           "tagseek/" + Version,
		Created:        start.UTC(),
		Params:         manifest.ParamsFrom(ts.params),
		Units:          make([]manifest.Unit, len(units)),
		ElapsedSeconds: time.Since(start).Seconds(),
	}
	for i, u := range units {
		mu := manifest.Unit{
			Name:      u.Name,
			Kind:      u.Kind.String(),
			Files:     u.Files,
			SizeBytes: sizes[i],
			Tags:      tags[i],
		}
		if unitErrs[i] != nil {
			mu.Error = unitErrs[i].Error()
		}
		m.Units[i] = mu
	}

	if err := manifest.Save(manifest.PathFor(dbPath), m, ts.codec); err != nil {
		ts.logger.WarnContext(ctx, "manifest write failed",
			"path", manifest.PathFor(dbPath),
			"error", err)
	}
}

// SampleResult summarizes one sample sketching run.
type SampleResult struct {
	// Paths of the written sample sketches, aligned with the input
	// units; empty for failed units.
	Paths []string

	// Failed lists units that could not be sketched.
	Failed UnitErrors
}

// SketchSamples sketches the read units concurrently and writes one
// sample sketch per unit into dir, named after the unit. Per-unit
// failures are collected in the result.
func (ts *Tagseek) SketchSamples(ctx context.Context, units []Unit, dir string) (*SampleResult, error) {
	start := time.Now()
	res, err := ts.sketchSamples(ctx, units, dir)
	err = translateError(err)
	failed := 0
	if res != nil {
		failed = len(res.Failed)
	}
	ts.metrics.RecordSketchBatch(len(units), failed, time.Since(start))
	if res != nil {
		ts.logger.LogSketchBatch(ctx, len(units), failed)
	}
	return res, err
}

func (ts *Tagseek) sketchSamples(ctx context.Context, units []Unit, dir string) (*SampleResult, error) {
	if len(units) == 0 {
		return nil, ErrNoUnits
	}
	for _, u := range units {
		if u.Kind != UnitReads {
			return nil, &ConfigurationError{Param: "unit", Value: u.Name, Reason: "sample sketches are built from read units"}
		}
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	order := make([]int, len(units))
	for i := range order {
		order[i] = i
	}
	order = queue.Schedule(order, func(i int) int64 { return unitSize(units[i]) })

	paths := make([]string, len(units))
	unitErrs := make([]error, len(units))

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(ts.threads)
	for _, idx := range order {
		eg.Go(func() error {
			s, err := ts.extractSample(gctx, units[idx])
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				unitErrs[idx] = translateError(err)
				ts.logger.LogSketch(gctx, units[idx].Name, 0, unitErrs[idx])
				return nil
			}

			out := filepath.Join(dir, units[idx].Name+sketch.SampleExt)
			wstart := time.Now()
			werr := sketch.SaveSample(out, s, ts.compression.sampleFlags())
			ts.metrics.RecordPersist(time.Since(wstart), werr)
			ts.logger.LogPersist(gctx, out, werr)
			if werr != nil {
				unitErrs[idx] = translateError(werr)
				return nil
			}
			paths[idx] = out
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	res := &SampleResult{Paths: paths}
	for i, err := range unitErrs {
		if err != nil {
			res.Failed = append(res.Failed, &UnitError{Unit: units[i].Name, Err: err})
		}
	}
	return res, nil
}

// OpenDatabase opens a genome database for querying. The caller closes
// it when done.
func (ts *Tagseek) OpenDatabase(path string) (*index.Database, error) {
	db, err := index.Open(path, index.WithLogger(ts.logger.Logger))
	return db, translateError(err)
}

// LoadSample reads one sample sketch file.
func (ts *Tagseek) LoadSample(path string) (*sketch.SampleSketch, error) {
	s, err := sketch.LoadSample(path)
	if err != nil {
		return nil, translateError(&InputError{Unit: path, cause: err})
	}
	return s, nil
}

// Query estimates containment ANI for every database genome detected
// in the sample. Options start from estimate.QueryOptions.
func (ts *Tagseek) Query(ctx context.Context, db *index.Database, sample *sketch.SampleSketch, optFns ...func(*estimate.Options)) ([]*estimate.Result, error) {
	start := time.Now()
	opts := estimate.QueryOptions()
	opts.Logger = ts.logger.Logger
	for _, fn := range optFns {
		fn(&opts)
	}

	rows, err := estimate.Estimate(ctx, db, sample, opts)
	err = translateError(err)
	ts.metrics.RecordQuery(time.Since(start), err)
	ts.logger.LogQuery(ctx, sample.Name, len(rows), err)
	return rows, err
}

// QueryMany queries several samples against one database, bounded by
// the sample-thread limit. Rows are flattened in input order.
func (ts *Tagseek) QueryMany(ctx context.Context, db *index.Database, samples []*sketch.SampleSketch, optFns ...func(*estimate.Options)) ([]*estimate.Result, error) {
	slots := make([][]*estimate.Result, len(samples))

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(ts.sampleThreads)
	for i, s := range samples {
		eg.Go(func() error {
			rows, err := ts.Query(gctx, db, s, optFns...)
			if err != nil {
				return err
			}
			slots[i] = rows
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var rows []*estimate.Result
	for _, part := range slots {
		rows = append(rows, part...)
	}
	return rows, nil
}

// Profile runs the full two-pass abundance pipeline for one sample.
// Options start from profile.DefaultOptions.
func (ts *Tagseek) Profile(ctx context.Context, db *index.Database, sample *sketch.SampleSketch, optFns ...func(*profile.Options)) (*profile.Report, error) {
	start := time.Now()
	opts := profile.DefaultOptions()
	opts.Logger = ts.logger.Logger
	for _, fn := range optFns {
		fn(&opts)
	}

	rep, err := profile.Run(ctx, db, sample, opts)
	err = translateError(err)
	ts.metrics.RecordProfile(time.Since(start), err)
	rows := 0
	if rep != nil {
		rows = len(rep.Rows)
	}
	ts.logger.LogProfile(ctx, sample.Name, rows, err)
	return rep, err
}

// ProfileMany profiles several samples against one database, bounded
// by the sample-thread limit. Reports follow the input order.
func (ts *Tagseek) ProfileMany(ctx context.Context, db *index.Database, samples []*sketch.SampleSketch, optFns ...func(*profile.Options)) ([]*profile.Report, error) {
	reports := make([]*profile.Report, len(samples))

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(ts.profileThreads)
	for i, s := range samples {
		eg.Go(func() error {
			rep, err := ts.Profile(gctx, db, s, optFns...)
			if err != nil {
				return err
			}
			reports[i] = rep
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// MarkDatabase flags the tags occurring in exactly one genome of the
// database at path and writes the marked copy to outPath. An empty
// outPath overwrites the input.
func (ts *Tagseek) MarkDatabase(ctx context.Context, path, outPath string) (sketch.MarkStats, error) {
	start := time.Now()
	stats, out, err := ts.markDatabase(ctx, path, outPath)
	err = translateError(err)
	ts.metrics.RecordPersist(time.Since(start), err)
	ts.logger.LogMark(ctx, out, stats.UniqueTags, stats.TotalTags, err)
	return stats, err
}

func (ts *Tagseek) markDatabase(ctx context.Context, path, outPath string) (sketch.MarkStats, string, error) {
	if outPath == "" {
		outPath = path
	}

	info, err := sketch.ReadFileInfo(path)
	if err != nil {
		return sketch.MarkStats{}, outPath, &InputError{Unit: path, cause: err}
	}
	genomes, err := sketch.LoadDatabase(path)
	if err != nil {
		return sketch.MarkStats{}, outPath, &InputError{Unit: path, cause: err}
	}

	stats := sketch.MarkUnique(genomes)
	if err := ctx.Err(); err != nil {
		return stats, outPath, err
	}

	flags := info.Flags | persistence.FlagMarked
	if err := sketch.SaveDatabase(outPath, info.Params, genomes, flags); err != nil {
		return stats, outPath, err
	}
	return stats, outPath, nil
}
