package main

import (
	"context"
	"fmt"
	"io"

	"github.com/hupe1980/tagseek/estimate"
	"github.com/hupe1980/tagseek/profile"
	"github.com/spf13/cobra"
)

type queryOptions struct {
	estimatorOptions
	sampleThreads int
	output        string
}

func newQueryCommand(root *rootOptions, stdout io.Writer) *cobra.Command {
	opts := &queryOptions{}

	cmd := &cobra.Command{
		Use:   "query <sketches...>",
		Short: "Estimate containment ANI of database genomes in samples",
		Long: `Query reports, for every sample and every database genome detected
in it, the coverage-adjusted containment ANI. Arguments mix freely:
.syldb databases, .sylsp sample sketches, and raw read files (sketched
on the fly with the database's parameters). Remote s3:// and minio://
sketches are downloaded into the local cache first.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd.Context(), root, opts, args, stdout)
		},
	}

	flags := cmd.Flags()
	opts.register(flags, estimate.DefaultQueryMinANI)
	flags.IntVarP(&opts.sampleThreads, "sample-threads", "s", 0, "samples processed in parallel (0 = default)")
	flags.StringVarP(&opts.output, "output", "o", "-", `output TSV path ("-" for stdout)`)

	return cmd
}

func runQuery(ctx context.Context, root *rootOptions, opts *queryOptions, args []string, stdout io.Writer) error {
	if opts.minANI < 0 || opts.minANI > 100 {
		return fmt.Errorf("--min-ani %v outside [0,100]", opts.minANI)
	}

	in, err := openInputs(ctx, root, args, opts.sampleThreads)
	if err != nil {
		return err
	}
	defer in.close()

	optFn := func(o *estimate.Options) {
		o.MinANI = opts.minANI / 100
		o.MinCountCorrect = opts.minCountCorrect
		o.MinTagsPerGenome = opts.minTagsPerGenome
	}

	var rows []*estimate.Result
	for _, db := range in.dbs {
		r, err := in.ts.QueryMany(ctx, db, in.samples, optFn)
		if err != nil {
			return err
		}
		rows = append(rows, r...)
	}

	w, closeOut, err := openOutput(opts.output, stdout)
	if err != nil {
		return err
	}
	if err := profile.WriteQueryTable(w, rows); err != nil {
		closeOut()
		return err
	}
	return closeOut()
}
