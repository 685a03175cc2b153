package manifest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tagseek/codec"
	"github.com/hupe1980/tagseek/sketch"
)

func testManifest() *Manifest {
	return &Manifest{
		Tool:    "tagseek",
		Created: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Params: ParamsFrom(sketch.Params{
			Enzyme:        "BcgI",
			TagLen:        32,
			MinSpacing:    30,
			SubsampleRate: 200,
		}),
		Units: []Unit{
			{Name: "ecoli", Kind: "genome", Files: []string{"ecoli.fa"}, SizeBytes: 4_600_000, Tags: 4102},
			{Name: "gut1", Kind: "sample", Files: []string{"gut1_1.fq.gz", "gut1_2.fq.gz"}, Tags: 88_213},
		},
		ElapsedSeconds: 4.25,
	}
}

func TestSaveLoad(t *testing.T) {
	path := PathFor(filepath.Join(t.TempDir(), "database.syldb"))

	require.NoError(t, Save(path, testManifest(), nil))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, got.Version)
	assert.Equal(t, codec.Default.Name(), got.Codec)
	assert.Equal(t, "BcgI", got.Params.Enzyme)
	assert.Equal(t, uint8(32), got.Params.TagLen)
	require.Len(t, got.Units, 2)
	assert.Equal(t, "gut1", got.Units[1].Name)
	assert.Equal(t, uint64(88_213), got.Units[1].Tags)
	assert.True(t, got.Created.Equal(testManifest().Created))
}

func TestSaveLoadStdlibCodec(t *testing.T) {
	path := PathFor(filepath.Join(t.TempDir(), "database.syldb"))

	require.NoError(t, Save(path, testManifest(), codec.JSON{}))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "json", got.Codec)
	assert.Equal(t, "ecoli", got.Units[0].Name)
}

func TestLoadRejectsFutureVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version": 99}`), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported manifest version")
}

func TestLoadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadForMissing(t *testing.T) {
	m, err := LoadFor(filepath.Join(t.TempDir(), "absent.syldb"))
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestPathFor(t *testing.T) {
	assert.Equal(t, "out/database.syldb.manifest.json", PathFor("out/database.syldb"))
}
