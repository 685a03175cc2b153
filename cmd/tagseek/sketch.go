package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/hupe1980/tagseek"
	"github.com/hupe1980/tagseek/enzyme"
	"github.com/hupe1980/tagseek/manifest"
	"github.com/hupe1980/tagseek/resource"
	"github.com/hupe1980/tagseek/sketch"
	"github.com/spf13/cobra"
)

type sketchOptions struct {
	genomes     []string
	reads       []string
	firstPairs  []string
	secondPairs []string
	lists       []string

	outPrefix string
	sampleDir string

	enzymeName    string
	minSpacing    int
	subsampleRate uint32
	perRecord     bool
	noDedup       bool

	threads     int
	maxRAMGB    int
	compression string
}

func newSketchCommand(root *rootOptions) *cobra.Command {
	opts := &sketchOptions{}

	cmd := &cobra.Command{
		Use:     "sketch [files...]",
		Aliases: []string{"extract"},
		Short:   "Sketch genomes and read sets into tag sketch files",
		Long: `Sketch extracts restriction tags from the inputs. Genome FASTAs
become one database (<out-prefix>.syldb); read files each become a
sample sketch (<name>.sylsp) in the sample directory.

Positional files are classified by extension: .fa/.fasta/.fna are
genomes, .fq/.fastq are reads, each optionally .gz-compressed. Use
-g or -r to override the classification, -1/-2 for paired-end sets,
and -l for files listing one input path per line.

The database output may be a remote URL (s3:// or minio://); it is
built locally and published together with its manifest.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSketch(cmd.Context(), root, opts, args)
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVarP(&opts.genomes, "genomes", "g", nil, "reference FASTA files (repeatable)")
	flags.StringArrayVarP(&opts.reads, "reads", "r", nil, "single-end read files (repeatable)")
	flags.StringArrayVarP(&opts.firstPairs, "first-pairs", "1", nil, "first mates of paired-end read sets (repeatable)")
	flags.StringArrayVarP(&opts.secondPairs, "second-pairs", "2", nil, "second mates, aligned with --first-pairs")
	flags.StringArrayVarP(&opts.lists, "list", "l", nil, "files listing one input path per line")
	flags.StringVarP(&opts.outPrefix, "out-prefix", "o", "database", "database output path or prefix")
	flags.StringVarP(&opts.sampleDir, "sample-dir", "d", ".", "directory for sample sketches")
	flags.StringVar(&opts.enzymeName, "enzyme", enzyme.Default, "Type IIB enzyme profile")
	flags.IntVar(&opts.minSpacing, "min-spacing", tagseek.DefaultMinSpacing, "minimum bases between kept genome sites (negative disables)")
	flags.Uint32VarP(&opts.subsampleRate, "subsample-rate", "c", tagseek.DefaultSubsampleRate, "keep a read tag only when hash%rate == 0")
	flags.BoolVar(&opts.perRecord, "individual-records", false, "sketch every genome record as its own database entry")
	flags.BoolVar(&opts.noDedup, "no-dedup", false, "keep exact duplicate reads")
	flags.IntVarP(&opts.threads, "threads", "t", tagseek.DefaultThreads, "sketching worker count")
	flags.IntVar(&opts.maxRAMGB, "max-ram", 0, "memory budget in GB before sketches spill to disk (0 = unlimited)")
	flags.StringVar(&opts.compression, "compression", "default", "sketch body compression: default, zstd, lz4, or none")

	return cmd
}

func runSketch(ctx context.Context, root *rootOptions, opts *sketchOptions, args []string) error {
	lg, err := root.logger()
	if err != nil {
		return err
	}

	genomeUnits, readUnits, err := collectUnits(opts, args)
	if err != nil {
		return err
	}
	if len(genomeUnits)+len(readUnits) == 0 {
		return fmt.Errorf("no inputs: pass files as arguments or via -g/-r/-1/-2/-l")
	}

	comp, err := tagseek.ParseCompression(opts.compression)
	if err != nil {
		return err
	}

	optFns := []tagseek.Option{
		tagseek.WithLogger(lg),
		tagseek.WithCompression(comp),
		tagseek.WithThreads(opts.threads),
	}
	if opts.maxRAMGB > 0 {
		optFns = append(optFns, tagseek.WithResources(resource.Config{
			MemoryLimitBytes: int64(opts.maxRAMGB) << 30,
		}))
	}

	ts, err := tagseek.New(tagseek.SketchConfig{
		Enzyme:        opts.enzymeName,
		MinSpacing:    opts.minSpacing,
		SubsampleRate: opts.subsampleRate,
		NoDedup:       opts.noDedup,
		PerRecord:     opts.perRecord,
	}, optFns...)
	if err != nil {
		return err
	}

	var failed tagseek.UnitErrors

	if len(genomeUnits) > 0 {
		out := opts.outPrefix
		if !strings.HasSuffix(out, sketch.DatabaseExt) {
			out += sketch.DatabaseExt
		}

		local := out
		if isRemote(out) {
			tmp, err := os.CreateTemp("", "tagseek-*"+sketch.DatabaseExt)
			if err != nil {
				return err
			}
			tmp.Close()
			local = tmp.Name()
			defer os.Remove(local)
			defer os.Remove(manifest.PathFor(local))
		}

		res, err := ts.BuildDatabase(ctx, genomeUnits, local)
		if err != nil {
			return err
		}
		failed = append(failed, res.Failed...)

		if isRemote(out) {
			if err := publishOutput(ctx, local, out); err != nil {
				return err
			}
			if _, err := os.Stat(manifest.PathFor(local)); err == nil {
				if err := publishOutput(ctx, manifest.PathFor(local), out+manifest.Suffix); err != nil {
					return err
				}
			}
			lg.Info("database published", "url", out, "genomes", res.Genomes)
		}
	}

	if len(readUnits) > 0 {
		dir := opts.sampleDir
		remoteDir := isRemote(dir)
		if remoteDir {
			tmpDir, err := os.MkdirTemp("", "tagseek-samples-")
			if err != nil {
				return err
			}
			defer os.RemoveAll(tmpDir)
			dir = tmpDir
		}

		res, err := ts.SketchSamples(ctx, readUnits, dir)
		if err != nil {
			return err
		}
		failed = append(failed, res.Failed...)

		if remoteDir {
			base := strings.TrimSuffix(opts.sampleDir, "/")
			for _, p := range res.Paths {
				if p == "" {
					continue
				}
				url := base + "/" + path.Base(filepath.ToSlash(p))
				if err := publishOutput(ctx, p, url); err != nil {
					return err
				}
				lg.Info("sample published", "url", url)
			}
		}
	}

	if len(failed) > 0 {
		return failed
	}
	return nil
}

// collectUnits assembles sketch units from the flags and positional
// arguments.
func collectUnits(opts *sketchOptions, args []string) (genomes, reads []tagseek.Unit, err error) {
	for _, p := range opts.genomes {
		genomes = append(genomes, tagseek.GenomeUnit(p))
	}
	for _, p := range opts.reads {
		reads = append(reads, tagseek.ReadsUnit(p))
	}

	if len(opts.firstPairs) != len(opts.secondPairs) {
		return nil, nil, fmt.Errorf("--first-pairs and --second-pairs must align: got %d and %d files",
			len(opts.firstPairs), len(opts.secondPairs))
	}
	for i, first := range opts.firstPairs {
		reads = append(reads, tagseek.PairedReadsUnit(first, opts.secondPairs[i]))
	}

	paths := append([]string(nil), args...)
	for _, list := range opts.lists {
		listed, err := readPathList(list)
		if err != nil {
			return nil, nil, err
		}
		paths = append(paths, listed...)
	}

	for _, p := range paths {
		kind, err := classifyPath(p)
		if err != nil {
			return nil, nil, err
		}
		if kind == tagseek.UnitGenome {
			genomes = append(genomes, tagseek.GenomeUnit(p))
		} else {
			reads = append(reads, tagseek.ReadsUnit(p))
		}
	}
	return genomes, reads, nil
}

// classifyPath maps a sequence file to a unit kind by extension.
func classifyPath(p string) (tagseek.UnitKind, error) {
	name := strings.ToLower(p)
	name = strings.TrimSuffix(name, ".gz")

	switch filepath.Ext(name) {
	case ".fa", ".fasta", ".fna":
		return tagseek.UnitGenome, nil
	case ".fq", ".fastq":
		return tagseek.UnitReads, nil
	default:
		return 0, fmt.Errorf("cannot classify %q by extension; use -g for genomes or -r for reads", p)
	}
}

// readPathList reads one path per line, skipping blanks and #
// comments.
func readPathList(listPath string) ([]string, error) {
	f, err := os.Open(listPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var paths []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		paths = append(paths, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read list %s: %w", listPath, err)
	}
	return paths, nil
}
