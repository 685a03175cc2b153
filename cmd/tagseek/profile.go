package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hupe1980/tagseek/estimate"
	"github.com/hupe1980/tagseek/profile"
	"github.com/hupe1980/tagseek/sketch"
	"github.com/spf13/cobra"
)

type profileOptions struct {
	estimatorOptions
	estimateUnknown bool
	readSeqID       float64
	gscoreThreshold float64
	taxonomyPath    string
	traceReassign   bool
	sampleThreads   int
	output          string
}

func newProfileCommand(root *rootOptions, stdout io.Writer) *cobra.Command {
	opts := &profileOptions{}

	cmd := &cobra.Command{
		Use:   "profile <sketches...>",
		Short: "Profile samples into relative genome abundances",
		Long: `Profile runs the query estimator, removes near-duplicate genomes,
reassigns contested tags to their best genome, and reports taxonomic
and sequence abundances per sample. Arguments mix one .syldb database
with .sylsp sketches or raw read files; remote s3:// and minio://
sketches are downloaded into the local cache first.

Profiling competes genomes against each other, so exactly one
database is allowed per run; sketch references into a single database
to profile against all of them.

With --taxonomy, genome rows additionally aggregate into clade rows
per the genome-to-lineage TSV, written one file per sample next to
the main output.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfile(cmd.Context(), root, opts, args, stdout)
		},
	}

	flags := cmd.Flags()
	opts.register(flags, estimate.DefaultProfileMinANI)
	flags.BoolVar(&opts.estimateUnknown, "estimate-unknown", false, "estimate the unexplained fraction and report true coverage")
	flags.Float64Var(&opts.readSeqID, "read-seq-id", 0, "read sequence identity percent (0 = estimate from the sample)")
	flags.Float64Var(&opts.gscoreThreshold, "gscore-threshold", profile.DefaultGscoreThreshold, "minimum G-score for a clade row")
	flags.StringVar(&opts.taxonomyPath, "taxonomy", "", "genome-to-lineage TSV for clade aggregation")
	flags.BoolVar(&opts.traceReassign, "trace-reassign", false, "log contested-tag reassignment decisions")
	flags.IntVarP(&opts.sampleThreads, "sample-threads", "s", 0, "samples processed in parallel (0 = default)")
	flags.StringVarP(&opts.output, "output", "o", "-", `output TSV path ("-" for stdout)`)

	return cmd
}

func runProfile(ctx context.Context, root *rootOptions, opts *profileOptions, args []string, stdout io.Writer) error {
	if opts.minANI < 0 || opts.minANI > 100 {
		return fmt.Errorf("--min-ani %v outside [0,100]", opts.minANI)
	}
	if opts.readSeqID < 0 || opts.readSeqID > 100 {
		return fmt.Errorf("--read-seq-id %v outside [0,100]", opts.readSeqID)
	}

	var tax profile.Taxonomy
	if opts.taxonomyPath != "" {
		var err error
		tax, err = profile.LoadTaxonomy(opts.taxonomyPath)
		if err != nil {
			return err
		}
	}

	in, err := openInputs(ctx, root, args, opts.sampleThreads)
	if err != nil {
		return err
	}
	defer in.close()

	if len(in.dbs) != 1 {
		return fmt.Errorf("profile takes exactly one %s database, got %d", sketch.DatabaseExt, len(in.dbs))
	}

	optFn := func(o *profile.Options) {
		o.Estimate.MinANI = opts.minANI / 100
		o.Estimate.MinCountCorrect = opts.minCountCorrect
		o.Estimate.MinTagsPerGenome = opts.minTagsPerGenome
		o.EstimateUnknown = opts.estimateUnknown
		o.SeqIdentity = opts.readSeqID
		o.TraceReassign = opts.traceReassign
	}

	reports, err := in.ts.ProfileMany(ctx, in.dbs[0], in.samples, optFn)
	if err != nil {
		return err
	}

	var rows []*profile.GenomeRow
	for _, rep := range reports {
		rows = append(rows, rep.Rows...)
	}

	w, closeOut, err := openOutput(opts.output, stdout)
	if err != nil {
		return err
	}
	if err := profile.WriteProfileTable(w, rows, opts.estimateUnknown); err != nil {
		closeOut()
		return err
	}
	if err := closeOut(); err != nil {
		return err
	}

	if tax == nil {
		return nil
	}

	lg, err := root.logger()
	if err != nil {
		return err
	}
	for _, rep := range reports {
		cladeRows := profile.FilterGscore(profile.Aggregate(rep.Rows, tax), opts.gscoreThreshold)

		out := taxonOutPath(opts.output, rep.Sample)
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		if err := profile.WriteTaxonTable(f, rep.Sample, cladeRows); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		lg.Info("taxonomic profile written", "sample", rep.Sample, "path", out, "clades", len(cladeRows))
	}
	return nil
}

// taxonOutPath places a sample's clade table next to the main output,
// named after the sample.
func taxonOutPath(output, sample string) string {
	dir := "."
	if output != "" && output != "-" {
		dir = filepath.Dir(output)
	}
	base := filepath.Base(strings.TrimSuffix(sample, filepath.Ext(sample)))
	return filepath.Join(dir, base+".taxprof.tsv")
}
