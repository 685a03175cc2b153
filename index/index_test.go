package index

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tagseek/persistence"
	"github.com/hupe1980/tagseek/sketch"
)

func testParams() sketch.Params {
	return sketch.Params{Enzyme: "BcgI", TagLen: 32, SubsampleRate: 50}
}

func testGenomes() []*sketch.GenomeSketch {
	p := testParams()
	return []*sketch.GenomeSketch{
		{Name: "ecoli", Params: p, Hashes: []uint64{10, 20, 30, 40}, TotalSites: 4},
		{Name: "bsubtilis", Params: p, Hashes: []uint64{20, 50, 60}, TotalSites: 3},
		{Name: "saureus", Params: p, Hashes: []uint64{70}, TotalSites: 1},
	}
}

func TestNewFreezesAndValidates(t *testing.T) {
	db, err := New(testGenomes())
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, 3, db.Len())
	assert.Equal(t, testParams(), db.Params())
	assert.Equal(t, "ecoli", db.Genome(0).Name)

	var names []string
	for _, g := range db.Genomes() {
		names = append(names, g.Name)
	}
	assert.Equal(t, []string{"ecoli", "bsubtilis", "saureus"}, names)
}

func TestNewRejectsEmptyAndMixed(t *testing.T) {
	_, err := New(nil)
	require.ErrorIs(t, err, ErrEmptyDatabase)

	mixed := testGenomes()
	mixed[2].Params.TagLen = 27
	_, err = New(mixed)
	var incompatible *sketch.ErrIncompatible
	require.ErrorAs(t, err, &incompatible)
}

func TestCandidates(t *testing.T) {
	db, err := New(testGenomes())
	require.NoError(t, err)
	defer db.Close()

	recs := []sketch.TagRecord{
		{Hash: 10, Count: 2},
		{Hash: 20, Count: 1},
		{Hash: 50, Count: 4},
		{Hash: 999, Count: 1}, // in no genome
	}

	t.Run("threshold one", func(t *testing.T) {
		got := db.Candidates(recs, 1)
		assert.Equal(t, []Candidate{
			{Ordinal: 0, Shared: 2}, // hashes 10, 20
			{Ordinal: 1, Shared: 2}, // hashes 20, 50
		}, got)
	})

	t.Run("threshold prunes", func(t *testing.T) {
		got := db.Candidates(recs, 3)
		assert.Empty(t, got)
	})

	t.Run("zero threshold keeps sharers only", func(t *testing.T) {
		got := db.Candidates(recs, 0)
		require.Len(t, got, 2)
	})

	t.Run("no tags", func(t *testing.T) {
		assert.Empty(t, db.Candidates(nil, 1))
	})
}

func TestValidateSample(t *testing.T) {
	db, err := New(testGenomes())
	require.NoError(t, err)
	defer db.Close()

	good := &sketch.SampleSketch{Name: "s", Params: testParams()}
	require.NoError(t, db.Validate(good))

	bad := &sketch.SampleSketch{Name: "s", Params: testParams()}
	bad.Params.SubsampleRate = 1
	err = db.Validate(bad)
	var incompatible *sketch.ErrIncompatible
	require.ErrorAs(t, err, &incompatible)
	assert.Equal(t, "subsample rate", incompatible.Field)
}

func TestOpenMappedAndStreamed(t *testing.T) {
	tests := []struct {
		name  string
		flags uint16
	}{
		{name: "uncompressed uses the mapping", flags: 0},
		{name: "compressed streams", flags: persistence.FlagZstd},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "refs.syldb")
			require.NoError(t, sketch.SaveDatabase(path, testParams(), testGenomes(), tt.flags))

			db, err := Open(path)
			require.NoError(t, err)
			defer db.Close()

			assert.Equal(t, path, db.Path())
			assert.Equal(t, 3, db.Len())
			assert.Equal(t, []uint64{10, 20, 30, 40}, db.Genome(0).Hashes)

			got := db.Candidates([]sketch.TagRecord{{Hash: 70, Count: 1}}, 1)
			assert.Equal(t, []Candidate{{Ordinal: 2, Shared: 1}}, got)

			require.NoError(t, db.Close())
		})
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.syldb"))
	require.Error(t, err)
}

func TestOpenRejectsSampleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.sylsp")
	s := &sketch.SampleSketch{Name: "s", Params: testParams()}
	require.NoError(t, sketch.SaveSample(path, s, 0))

	_, err := Open(path)
	require.ErrorIs(t, err, persistence.ErrInvalidMagic)
}
