package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/tagseek"
	"github.com/hupe1980/tagseek/estimate"
	"github.com/hupe1980/tagseek/index"
	"github.com/hupe1980/tagseek/sketch"
	"github.com/spf13/pflag"
)

// queryInputs holds the opened databases and loaded samples of a
// query or profile invocation.
type queryInputs struct {
	ts      *tagseek.Tagseek
	dbs     []*index.Database
	samples []*sketch.SampleSketch
}

func (in *queryInputs) close() {
	for _, db := range in.dbs {
		db.Close()
	}
}

// openInputs partitions positional arguments by extension (.syldb
// databases, .sylsp sample sketches, anything else raw reads to
// sketch on the fly), resolves remote URLs, and loads everything.
// The sketching parameters come from the first database header, so
// raw reads are always sketched compatibly; mixing databases with
// different parameters fails at query time.
func openInputs(ctx context.Context, root *rootOptions, args []string, sampleThreads int) (*queryInputs, error) {
	lg, err := root.logger()
	if err != nil {
		return nil, err
	}

	var dbArgs, sampleArgs, rawArgs []string
	for _, arg := range args {
		lower := strings.ToLower(arg)
		switch {
		case strings.HasSuffix(lower, sketch.DatabaseExt):
			dbArgs = append(dbArgs, arg)
		case strings.HasSuffix(lower, sketch.SampleExt):
			sampleArgs = append(sampleArgs, arg)
		default:
			rawArgs = append(rawArgs, arg)
		}
	}
	if len(dbArgs) == 0 {
		return nil, fmt.Errorf("no %s database among the arguments", sketch.DatabaseExt)
	}
	if len(sampleArgs)+len(rawArgs) == 0 {
		return nil, fmt.Errorf("no samples: pass %s sketches or read files", sketch.SampleExt)
	}

	resolve := func(urls []string) ([]string, error) {
		paths := make([]string, len(urls))
		for i, u := range urls {
			p, err := resolveInput(ctx, u)
			if err != nil {
				return nil, err
			}
			paths[i] = p
		}
		return paths, nil
	}

	dbPaths, err := resolve(dbArgs)
	if err != nil {
		return nil, err
	}
	samplePaths, err := resolve(sampleArgs)
	if err != nil {
		return nil, err
	}
	rawPaths, err := resolve(rawArgs)
	if err != nil {
		return nil, err
	}

	info, err := sketch.ReadFileInfo(dbPaths[0])
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dbArgs[0], err)
	}

	optFns := []tagseek.Option{tagseek.WithLogger(lg)}
	if sampleThreads > 0 {
		optFns = append(optFns, tagseek.WithSampleThreads(sampleThreads))
	}
	ts, err := tagseek.New(configFromParams(info.Params), optFns...)
	if err != nil {
		return nil, err
	}

	in := &queryInputs{ts: ts}
	for i, p := range dbPaths {
		db, err := ts.OpenDatabase(p)
		if err != nil {
			in.close()
			return nil, fmt.Errorf("open %s: %w", dbArgs[i], err)
		}
		in.dbs = append(in.dbs, db)
	}

	for i, p := range samplePaths {
		s, err := ts.LoadSample(p)
		if err != nil {
			in.close()
			return nil, fmt.Errorf("load %s: %w", sampleArgs[i], err)
		}
		in.samples = append(in.samples, s)
	}
	for i, p := range rawPaths {
		s, err := ts.ExtractSample(ctx, tagseek.ReadsUnit(p))
		if err != nil {
			in.close()
			return nil, fmt.Errorf("sketch %s: %w", rawArgs[i], err)
		}
		in.samples = append(in.samples, s)
	}

	return in, nil
}

// estimatorOptions are the estimator cutoffs shared by query and
// profile. The minimum ANI default differs between the two, so
// register takes it as a fraction.
type estimatorOptions struct {
	minANI           float64
	minCountCorrect  float64
	minTagsPerGenome int
}

func (o *estimatorOptions) register(fs *pflag.FlagSet, defaultMinANI float64) {
	fs.Float64Var(&o.minANI, "min-ani", 100*defaultMinANI, "minimum adjusted ANI percent to report")
	fs.Float64Var(&o.minCountCorrect, "min-count-correct", estimate.DefaultMinCountCorrect, "coverage correction cutoff")
	fs.IntVar(&o.minTagsPerGenome, "min-number-kmers", estimate.DefaultMinTagsPerGenome, "minimum genome tags for a result row")
}

// configFromParams rebuilds the sketch configuration recorded in a
// database header. A stored spacing of zero means spacing was
// disabled, which the config expresses as a negative value.
func configFromParams(p sketch.Params) tagseek.SketchConfig {
	minSpacing := int(p.MinSpacing)
	if minSpacing == 0 {
		minSpacing = -1
	}
	return tagseek.SketchConfig{
		Enzyme:        p.Enzyme,
		MinSpacing:    minSpacing,
		SubsampleRate: p.SubsampleRate,
	}
}
