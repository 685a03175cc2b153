// Package tagseek profiles metagenomic samples against reference
// genomes using restriction tags.
//
// A Type IIB restriction enzyme cuts on both sides of its recognition
// site, releasing a short fixed-width fragment. Tagseek sketches
// genomes and read sets down to the canonical hashes of those
// fragments, then estimates which genomes a sample contains, how
// abundant they are, and at what nucleotide identity, correcting the
// containment estimate for read coverage with a Poisson model.
//
// # Quick Start
//
// Sketch references into a database and profile a sample:
//
//	ctx := context.Background()
//	ts, err := tagseek.New(tagseek.SketchConfig{Enzyme: "BcgI"})
//	if err != nil {
//	    panic(err)
//	}
//
//	units := []tagseek.Unit{
//	    tagseek.GenomeUnit("refs/e_coli.fasta"),
//	    tagseek.GenomeUnit("refs/b_subtilis.fasta.gz"),
//	}
//	if _, err := ts.BuildDatabase(ctx, units, "refs.syldb"); err != nil {
//	    panic(err)
//	}
//
//	db, err := ts.OpenDatabase("refs.syldb")
//	if err != nil {
//	    panic(err)
//	}
//	defer db.Close()
//
//	sample, err := ts.ExtractSample(ctx, tagseek.PairedReadsUnit("gut_R1.fq.gz", "gut_R2.fq.gz"))
//	if err != nil {
//	    panic(err)
//	}
//
//	report, err := ts.Profile(ctx, db, sample)
//	if err != nil {
//	    panic(err)
//	}
//	profile.WriteProfileTable(os.Stdout, report.Rows, false)
//
// # Querying
//
// Query skips the abundance pipeline and reports coverage-adjusted ANI
// for every genome detected in the sample:
//
//	rows, err := ts.Query(ctx, db, sample, func(o *estimate.Options) {
//	    o.MinANI = 0.93
//	})
//
// # Sketch Compatibility
//
// Every sketch records its extraction parameters (enzyme, tag width,
// spacing, subsample rate). Operations refuse to mix sketches built
// with different parameters; rebuild with one SketchConfig instead of
// mixing.
//
// # Resource Limits
//
// Large builds can bound their memory with a controller budget;
// sketches beyond the budget spill to disk and stream back at flush
// time:
//
//	ts, err := tagseek.New(cfg,
//	    tagseek.WithThreads(8),
//	    tagseek.WithResources(resource.Config{MemoryLimitBytes: 4 << 30}),
//	)
package tagseek
