package main

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/hupe1980/tagseek/sketch"
	"github.com/spf13/cobra"
)

type viewOptions struct {
	output string
}

func newViewCommand(stdout io.Writer) *cobra.Command {
	opts := &viewOptions{}

	cmd := &cobra.Command{
		Use:   "view <sketches...>",
		Short: "Stream sketch contents as TSV",
		Long: `View dumps every tag of the given sketches, one row per tag:
file, unit name, tag hash (hex), and multiplicity. Database tags are
single copy; marked databases carry a fifth column flagging tags
unique to their genome.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runView(cmd.Context(), opts, args, stdout)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "-", `output TSV path ("-" for stdout)`)
	return cmd
}

func runView(ctx context.Context, opts *viewOptions, args []string, stdout io.Writer) error {
	w, closeOut, err := openOutput(opts.output, stdout)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "file\tunit\ttag\tcount\tunique")

	for _, arg := range args {
		p, err := resolveInput(ctx, arg)
		if err != nil {
			closeOut()
			return err
		}
		if err := viewFile(bw, arg, p); err != nil {
			closeOut()
			return fmt.Errorf("view %s: %w", arg, err)
		}
	}

	if err := bw.Flush(); err != nil {
		closeOut()
		return err
	}
	return closeOut()
}

func viewFile(w io.Writer, display, path string) error {
	info, err := sketch.ReadFileInfo(path)
	if err != nil {
		return err
	}

	if info.Kind == "sample sketch" {
		s, err := sketch.LoadSample(path)
		if err != nil {
			return err
		}
		for _, rec := range s.Records {
			fmt.Fprintf(w, "%s\t%s\t%016x\t%d\t\n", display, s.Name, rec.Hash, rec.Count)
		}
		return nil
	}

	genomes, err := sketch.LoadDatabase(path)
	if err != nil {
		return err
	}
	for _, g := range genomes {
		for i, h := range g.Hashes {
			unique := ""
			if g.Unique != nil {
				unique = "0"
				if g.Unique[i] {
					unique = "1"
				}
			}
			fmt.Fprintf(w, "%s\t%s\t%016x\t1\t%s\n", display, g.Name, h, unique)
		}
	}
	return nil
}
