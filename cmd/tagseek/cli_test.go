package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tagseek"
	"github.com/hupe1980/tagseek/manifest"
	"github.com/hupe1980/tagseek/persistence"
	"github.com/hupe1980/tagseek/seqio"
	"github.com/hupe1980/tagseek/sketch"
	"github.com/hupe1980/tagseek/testutil"
)

// runCLI executes one command line against a fresh root command and
// returns what it printed to stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

// cliFixture sketches two planted reference genomes and a read set
// drawn from the first into dir, without subsampling so every tag
// survives.
func cliFixture(t *testing.T, dir string) (dbPath, samplePath, readsPath string) {
	t.Helper()

	rng := testutil.NewRNG(1)
	genomeA := rng.PlantedGenome(60, 40)
	genomeB := rng.PlantedGenome(60, 40)
	refA := filepath.Join(dir, "refA.fa")
	refB := filepath.Join(dir, "refB.fa")
	testutil.WriteFasta(t, refA, &seqio.Record{Name: "contig_1", Seq: genomeA})
	testutil.WriteFasta(t, refB, &seqio.Record{Name: "contig_1", Seq: genomeB})

	reads := testutil.NewRNG(7).Reads(genomeA, 400, 100)
	recs := make([]*seqio.Record, len(reads))
	for i, rd := range reads {
		recs[i] = &seqio.Record{Name: fmt.Sprintf("r%04d", i), Seq: rd}
	}
	readsPath = filepath.Join(dir, "gut.fq")
	testutil.WriteFastq(t, readsPath, recs...)

	_, err := runCLI(t, "sketch", "--quiet", "-c", "1",
		"-o", filepath.Join(dir, "refs"),
		"-d", dir,
		"-g", refA, "-g", refB, "-r", readsPath)
	require.NoError(t, err)

	dbPath = filepath.Join(dir, "refs"+sketch.DatabaseExt)
	samplePath = filepath.Join(dir, "gut.fq"+sketch.SampleExt)
	require.FileExists(t, dbPath)
	require.FileExists(t, samplePath)
	return dbPath, samplePath, readsPath
}

func TestCLIEndToEnd(t *testing.T) {
	dir := t.TempDir()
	dbPath, samplePath, readsPath := cliFixture(t, dir)

	t.Run("manifest", func(t *testing.T) {
		m, err := manifest.LoadFor(dbPath)
		require.NoError(t, err)
		require.Len(t, m.Units, 2)
		assert.Equal(t, "refA.fa", m.Units[0].Name)
		assert.Equal(t, "BcgI", m.Params.Enzyme)
	})

	t.Run("query", func(t *testing.T) {
		out, err := runCLI(t, "query", "--quiet", dbPath, samplePath)
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 2, "only the sampled genome should be detected")
		assert.True(t, strings.HasPrefix(lines[0], "Sample_file\tGenome_file\tAdjusted_ANI"))
		assert.Contains(t, lines[1], "gut.fq")
		assert.Contains(t, lines[1], "refA.fa")
		assert.NotContains(t, out, "refB.fa")
	})

	t.Run("query raw reads", func(t *testing.T) {
		outPath := filepath.Join(dir, "query.tsv")
		_, err := runCLI(t, "query", "--quiet", "-o", outPath, dbPath, readsPath)
		require.NoError(t, err)

		data, err := os.ReadFile(outPath)
		require.NoError(t, err)
		assert.Contains(t, string(data), "refA.fa")
	})

	t.Run("profile with taxonomy", func(t *testing.T) {
		taxPath := filepath.Join(dir, "lineage.tsv")
		require.NoError(t, os.WriteFile(taxPath,
			[]byte("accession\ttaxonomy\nrefA.fa\td__Bacteria;s__Planted_A\n"), 0o644))

		profOut := filepath.Join(dir, "profile.tsv")
		_, err := runCLI(t, "profile", "--quiet", "-o", profOut, "--taxonomy", taxPath, dbPath, samplePath)
		require.NoError(t, err)

		data, err := os.ReadFile(profOut)
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		require.Len(t, lines, 2)
		assert.True(t, strings.HasPrefix(lines[0], "Sample_file\tGenome_file\tTaxonomic_abundance"))
		assert.Contains(t, lines[1], "refA.fa")

		clade, err := os.ReadFile(filepath.Join(dir, "gut.taxprof.tsv"))
		require.NoError(t, err)
		assert.Contains(t, string(clade), "d__Bacteria;s__Planted_A")
	})

	t.Run("profile rejects second database", func(t *testing.T) {
		data, err := os.ReadFile(dbPath)
		require.NoError(t, err)
		db2 := filepath.Join(dir, "refs2"+sketch.DatabaseExt)
		require.NoError(t, os.WriteFile(db2, data, 0o644))

		_, err = runCLI(t, "profile", "--quiet", dbPath, db2, samplePath)
		assert.ErrorContains(t, err, "exactly one")
	})

	t.Run("inspect", func(t *testing.T) {
		out, err := runCLI(t, "inspect", dbPath, samplePath)
		require.NoError(t, err)

		var reports []inspectReport
		require.NoError(t, json.Unmarshal([]byte(out), &reports))
		require.Len(t, reports, 2)

		assert.Equal(t, "genome database", reports[0].Kind)
		assert.Equal(t, uint32(2), reports[0].Units)
		assert.Equal(t, "BcgI", reports[0].Params.Enzyme)
		assert.False(t, reports[0].Marked)
		require.NotNil(t, reports[0].Manifest)
		assert.Len(t, reports[0].Manifest.Units, 2)

		assert.Equal(t, "sample sketch", reports[1].Kind)
		assert.Nil(t, reports[1].Manifest)
	})

	t.Run("view", func(t *testing.T) {
		out, err := runCLI(t, "view", dbPath, samplePath)
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(out), "\n")
		assert.Equal(t, "file\tunit\ttag\tcount\tunique", lines[0])
		require.Greater(t, len(lines), 100, "two genomes of planted tags plus sample records")
		assert.Contains(t, lines[1], "refA.fa")
		assert.Contains(t, out, "gut.fq")
	})

	t.Run("mark", func(t *testing.T) {
		marked := filepath.Join(dir, "marked"+sketch.DatabaseExt)
		out, err := runCLI(t, "mark", "--quiet", "-o", marked, dbPath)
		require.NoError(t, err)

		assert.Contains(t, out, "genome\ttotal_tags\tunique_tags\tunique_pct")
		assert.Contains(t, out, "refA.fa")
		assert.Contains(t, out, "total\t")

		info, err := sketch.ReadFileInfo(marked)
		require.NoError(t, err)
		assert.NotZero(t, info.Flags&persistence.FlagMarked)

		// Disjoint planted genomes share no tags, so every tag is
		// unique to its genome.
		view, err := runCLI(t, "view", marked)
		require.NoError(t, err)
		rows := strings.Split(strings.TrimSpace(view), "\n")[1:]
		for _, row := range rows {
			assert.True(t, strings.HasSuffix(row, "\t1"), row)
		}
	})
}

func TestCLISketchPartialFailure(t *testing.T) {
	dir := t.TempDir()
	rng := testutil.NewRNG(2)
	refA := filepath.Join(dir, "refA.fa")
	testutil.WriteFasta(t, refA, &seqio.Record{Name: "contig_1", Seq: rng.PlantedGenome(10, 40)})

	dbPrefix := filepath.Join(dir, "db")
	_, err := runCLI(t, "sketch", "--quiet", "-c", "1",
		"-o", dbPrefix, "-d", dir,
		"-g", refA, "-r", filepath.Join(dir, "missing.fq"))
	require.Error(t, err)

	var uerrs tagseek.UnitErrors
	require.ErrorAs(t, err, &uerrs)
	require.Len(t, uerrs, 1)
	assert.Equal(t, "missing.fq", uerrs[0].Unit)

	assert.FileExists(t, dbPrefix+sketch.DatabaseExt, "good units still produce output")
}

func TestCLISketchNoInputs(t *testing.T) {
	_, err := runCLI(t, "sketch", "--quiet", "-o", filepath.Join(t.TempDir(), "db"))
	assert.ErrorContains(t, err, "no inputs")
}

func TestCLISketchUnknownExtension(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(p, []byte("not a sequence\n"), 0o644))

	_, err := runCLI(t, "sketch", "--quiet", p)
	assert.ErrorContains(t, err, "cannot classify")
}

func TestCLIQueryArgValidation(t *testing.T) {
	t.Run("no database", func(t *testing.T) {
		_, err := runCLI(t, "query", "--quiet", "sample.sylsp")
		assert.ErrorContains(t, err, "no .syldb database")
	})

	t.Run("no samples", func(t *testing.T) {
		_, err := runCLI(t, "query", "--quiet", "db.syldb")
		assert.ErrorContains(t, err, "no samples")
	})

	t.Run("min-ani out of range", func(t *testing.T) {
		_, err := runCLI(t, "query", "--quiet", "--min-ani", "150", "db.syldb", "sample.sylsp")
		assert.ErrorContains(t, err, "outside [0,100]")
	})
}

func TestCLIVersion(t *testing.T) {
	out, err := runCLI(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, tagseek.Version)
}
