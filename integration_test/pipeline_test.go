package integration_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tagseek"
	"github.com/hupe1980/tagseek/persistence"
	"github.com/hupe1980/tagseek/resource"
	"github.com/hupe1980/tagseek/seqio"
	"github.com/hupe1980/tagseek/sketch"
	"github.com/hupe1980/tagseek/testutil"
)

const (
	fixtureSites   = 60
	fixtureGap     = 40
	fixtureReads   = 400
	fixtureReadLen = 100
)

func writeRef(t *testing.T, rng *testutil.RNG, dir, name string) (string, []byte) {
	t.Helper()
	genome := rng.PlantedGenome(fixtureSites, fixtureGap)
	path := filepath.Join(dir, name)
	testutil.WriteFasta(t, path, &seqio.Record{Name: "contig_1", Seq: genome})
	return path, genome
}

func writeReads(t *testing.T, seed int64, dir, name string, genome []byte) string {
	t.Helper()
	rng := testutil.NewRNG(seed)
	reads := rng.Reads(genome, fixtureReads, fixtureReadLen)
	recs := make([]*seqio.Record, len(reads))
	for i, rd := range reads {
		recs[i] = &seqio.Record{Name: "r", Seq: rd}
	}
	path := filepath.Join(dir, name)
	testutil.WriteFastq(t, path, recs...)
	return path
}

func buildDatabase(t *testing.T, ts *tagseek.Tagseek, dir string, refs ...string) (string, *tagseek.BuildResult) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	units := make([]tagseek.Unit, len(refs))
	for i, ref := range refs {
		units[i] = tagseek.GenomeUnit(ref)
	}
	dbPath := filepath.Join(dir, "refs"+sketch.DatabaseExt)
	res, err := ts.BuildDatabase(context.Background(), units, dbPath)
	require.NoError(t, err)
	require.Empty(t, res.Failed)
	return dbPath, res
}

// TestSpillEquivalence forces every sketch through the disk spill
// segment and verifies the flushed database is indistinguishable from
// an in-memory build.
func TestSpillEquivalence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	rng := testutil.NewRNG(21)

	refA, genomeA := writeRef(t, rng, dir, "refA.fa")
	refB, _ := writeRef(t, rng, dir, "refB.fa")
	refC, _ := writeRef(t, rng, dir, "refC.fa")
	readsPath := writeReads(t, 210, dir, "sample.fq", genomeA)

	resident, err := tagseek.New(tagseek.SketchConfig{SubsampleRate: 1})
	require.NoError(t, err)
	residentDB, _ := buildDatabase(t, resident, filepath.Join(dir, "resident"), refA, refB, refC)

	// A one-byte budget rejects every sketch, so all three spill.
	spilling, err := tagseek.New(tagseek.SketchConfig{SubsampleRate: 1},
		tagseek.WithResources(resource.Config{MemoryLimitBytes: 1}),
		tagseek.WithSpillDir(t.TempDir()))
	require.NoError(t, err)

	spilledDB, res := buildDatabase(t, spilling, filepath.Join(dir, "spilled"), refA, refB, refC)
	assert.Equal(t, 3, res.Spilled)
	assert.Equal(t, 3, res.Genomes)

	want, err := sketch.LoadDatabase(residentDB)
	require.NoError(t, err)
	got, err := sketch.LoadDatabase(spilledDB)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	db, err := spilling.OpenDatabase(spilledDB)
	require.NoError(t, err)
	defer db.Close()

	sample, err := spilling.ExtractSample(ctx, tagseek.ReadsUnit(readsPath))
	require.NoError(t, err)

	rows, err := spilling.Query(ctx, db, sample)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "refA.fa", rows[0].Genome)
}

// TestCompressionVariants builds the same database under every codec
// and verifies queries cannot tell them apart.
func TestCompressionVariants(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	rng := testutil.NewRNG(22)

	refA, genomeA := writeRef(t, rng, dir, "refA.fa")
	readsPath := writeReads(t, 220, dir, "sample.fq", genomeA)

	type variant struct {
		comp tagseek.Compression
		zstd bool
		lz4  bool
	}
	variants := map[string]variant{
		"default": {comp: tagseek.CompressionDefault, zstd: true},
		"zstd":    {comp: tagseek.CompressionZstd, zstd: true},
		"lz4":     {comp: tagseek.CompressionLZ4, lz4: true},
		"none":    {comp: tagseek.CompressionNone},
	}

	var baseline float64
	for name, v := range variants {
		t.Run(name, func(t *testing.T) {
			ts, err := tagseek.New(tagseek.SketchConfig{SubsampleRate: 1},
				tagseek.WithCompression(v.comp))
			require.NoError(t, err)

			dbPath, _ := buildDatabase(t, ts, filepath.Join(dir, name), refA)

			info, err := sketch.ReadFileInfo(dbPath)
			require.NoError(t, err)
			assert.Equal(t, v.zstd, info.Flags&persistence.FlagZstd != 0)
			assert.Equal(t, v.lz4, info.Flags&persistence.FlagLZ4 != 0)

			db, err := ts.OpenDatabase(dbPath)
			require.NoError(t, err)
			defer db.Close()

			sample, err := ts.ExtractSample(ctx, tagseek.ReadsUnit(readsPath))
			require.NoError(t, err)

			rows, err := ts.Query(ctx, db, sample)
			require.NoError(t, err)
			require.Len(t, rows, 1)
			if baseline == 0 {
				baseline = rows[0].ANI
			}
			assert.Equal(t, baseline, rows[0].ANI, "codec must not change results")
		})
	}
}

// TestMarkedDatabaseQuery marks a database in place and verifies the
// query path still sees the same genomes.
func TestMarkedDatabaseQuery(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	rng := testutil.NewRNG(23)

	refA, genomeA := writeRef(t, rng, dir, "refA.fa")
	refB, _ := writeRef(t, rng, dir, "refB.fa")
	readsPath := writeReads(t, 230, dir, "sample.fq", genomeA)

	ts, err := tagseek.New(tagseek.SketchConfig{SubsampleRate: 1})
	require.NoError(t, err)
	dbPath, _ := buildDatabase(t, ts, dir, refA, refB)

	stats, err := ts.MarkDatabase(ctx, dbPath, "")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, stats.UniqueFraction(), 1e-9,
		"independently planted genomes share no tags")

	genomes, err := sketch.LoadDatabase(dbPath)
	require.NoError(t, err)
	for _, g := range genomes {
		require.NotNil(t, g.Unique)
	}

	db, err := ts.OpenDatabase(dbPath)
	require.NoError(t, err)
	defer db.Close()

	sample, err := ts.ExtractSample(ctx, tagseek.ReadsUnit(readsPath))
	require.NoError(t, err)

	rows, err := ts.Query(ctx, db, sample)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "refA.fa", rows[0].Genome)
	assert.Greater(t, rows[0].ANI, 0.95)
}
