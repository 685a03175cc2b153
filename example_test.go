package tagseek_test

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/hupe1980/tagseek"
	"github.com/hupe1980/tagseek/estimate"
	"github.com/hupe1980/tagseek/profile"
)

// Example builds a reference database, sketches a metagenomic sample,
// and profiles it.
func Example() {
	ctx := context.Background()

	ts, err := tagseek.New(tagseek.SketchConfig{Enzyme: "BcgI"})
	if err != nil {
		log.Fatal(err)
	}

	units := []tagseek.Unit{
		tagseek.GenomeUnit("refs/ecoli.fa.gz"),
		tagseek.GenomeUnit("refs/salmonella.fa.gz"),
	}
	res, err := ts.BuildDatabase(ctx, units, "refs.syldb")
	if err != nil {
		log.Fatal(err)
	}
	for _, ue := range res.Failed {
		log.Printf("skipped %s: %v", ue.Unit, ue.Err)
	}

	db, err := ts.OpenDatabase("refs.syldb")
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	sample, err := ts.ExtractSample(ctx, tagseek.PairedReadsUnit("gut_R1.fq.gz", "gut_R2.fq.gz"))
	if err != nil {
		log.Fatal(err)
	}

	rep, err := ts.Profile(ctx, db, sample)
	if err != nil {
		log.Fatal(err)
	}
	if err := profile.WriteProfileTable(os.Stdout, rep.Rows, false); err != nil {
		log.Fatal(err)
	}
}

// ExampleTagseek_Query screens a sample against a database with a
// relaxed ANI floor.
func ExampleTagseek_Query() {
	ctx := context.Background()

	ts, err := tagseek.New(tagseek.SketchConfig{})
	if err != nil {
		log.Fatal(err)
	}

	db, err := ts.OpenDatabase("refs.syldb")
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	sample, err := ts.LoadSample("gut.sylsp")
	if err != nil {
		log.Fatal(err)
	}

	rows, err := ts.Query(ctx, db, sample, func(o *estimate.Options) {
		o.MinANI = 0.85
	})
	if err != nil {
		log.Fatal(err)
	}
	for _, r := range rows {
		fmt.Printf("%s\t%.2f\n", r.Genome, 100*r.ANI)
	}
}
