package main

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/hupe1980/tagseek"
	"github.com/hupe1980/tagseek/sketch"
	"github.com/spf13/cobra"
)

type markOptions struct {
	output string
}

func newMarkCommand(root *rootOptions, stdout io.Writer) *cobra.Command {
	opts := &markOptions{}

	cmd := &cobra.Command{
		Use:   "mark <database.syldb>",
		Short: "Mark the tags unique to a single database genome",
		Long: `Mark finds the tags occurring in exactly one genome of the database,
stores the per-genome uniqueness flags in a rewritten copy, and prints
per-genome totals. Without -o the input database is overwritten.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMark(cmd.Context(), root, opts, args[0], stdout)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "marked database path (default: overwrite the input)")
	return cmd
}

func runMark(ctx context.Context, root *rootOptions, opts *markOptions, arg string, stdout io.Writer) error {
	lg, err := root.logger()
	if err != nil {
		return err
	}

	if isRemote(arg) && opts.output == "" {
		return fmt.Errorf("marking a remote database in place is not supported; pass -o for a local copy")
	}

	path, err := resolveInput(ctx, arg)
	if err != nil {
		return err
	}
	info, err := sketch.ReadFileInfo(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", arg, err)
	}

	ts, err := tagseek.New(configFromParams(info.Params), tagseek.WithLogger(lg))
	if err != nil {
		return err
	}

	stats, err := ts.MarkDatabase(ctx, path, opts.output)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(stdout)
	fmt.Fprintln(bw, "genome\ttotal_tags\tunique_tags\tunique_pct")
	for _, g := range stats.Genomes {
		fmt.Fprintf(bw, "%s\t%d\t%d\t%.1f\n", g.Genome, g.TotalTags, g.UniqueTags, 100*g.UniqueFraction())
	}
	fmt.Fprintf(bw, "total\t%d\t%d\t%.1f\n", stats.TotalTags, stats.UniqueTags, markPct(stats))
	return bw.Flush()
}

func markPct(s sketch.MarkStats) float64 {
	if s.TotalTags == 0 {
		return 0
	}
	return 100 * float64(s.UniqueTags) / float64(s.TotalTags)
}
