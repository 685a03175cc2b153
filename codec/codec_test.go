package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testUnit struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Tags int    `json:"tags"`
}

type testManifest struct {
	Tool    string     `json:"tool"`
	Enzyme  string     `json:"enzyme"`
	TagLen  int        `json:"tag_len"`
	Units   []testUnit `json:"units"`
	Elapsed float64    `json:"elapsed_seconds"`
}

func sampleManifest() testManifest {
	return testManifest{
		Tool:   "tagseek",
		Enzyme: "BcgI",
		TagLen: 32,
		Units: []testUnit{
			{Name: "ecoli.fa", Size: 4_600_000, Tags: 4102},
			{Name: "bsub.fa.gz", Size: 1_200_000, Tags: 3781},
		},
		Elapsed: 12.75,
	}
}

func TestRoundTrip(t *testing.T) {
	for _, c := range []Codec{JSON{}, GoJSON{}} {
		t.Run(c.Name(), func(t *testing.T) {
			data, err := c.Marshal(sampleManifest())
			require.NoError(t, err)

			var got testManifest
			require.NoError(t, c.Unmarshal(data, &got))
			assert.Equal(t, sampleManifest(), got)
		})
	}
}

func TestCrossCodecCompatible(t *testing.T) {
	// A manifest written by one codec must reopen with the other.
	data, err := GoJSON{}.Marshal(sampleManifest())
	require.NoError(t, err)

	var got testManifest
	require.NoError(t, JSON{}.Unmarshal(data, &got))
	assert.Equal(t, sampleManifest(), got)
}

func TestByName(t *testing.T) {
	for _, name := range []string{"json", "go-json"} {
		c, ok := ByName(name)
		require.True(t, ok)
		assert.Equal(t, name, c.Name())
	}

	_, ok := ByName("bincode")
	assert.False(t, ok)
}

func TestMustMarshalNilUsesDefault(t *testing.T) {
	data := MustMarshal(nil, sampleManifest())
	assert.NotEmpty(t, data)
}

func TestMustMarshalPanics(t *testing.T) {
	assert.Panics(t, func() {
		MustMarshal(JSON{}, make(chan int))
	})
}

func benchmarkCodecMarshal(b *testing.B, c Codec, v any) {
	b.Helper()
	b.ReportAllocs()

	warm, err := c.Marshal(v)
	if err != nil {
		b.Fatal(err)
	}
	b.SetBytes(int64(len(warm)))

	var sink []byte
	b.ResetTimer()
	for b.Loop() {
		out, err := c.Marshal(v)
		if err != nil {
			b.Fatal(err)
		}
		sink = out
	}
	_ = sink
}

func BenchmarkCodec_Marshal_Manifest(b *testing.B) {
	m := sampleManifest()
	b.Run("stdlib", func(b *testing.B) { benchmarkCodecMarshal(b, JSON{}, m) })
	b.Run("go-json", func(b *testing.B) { benchmarkCodecMarshal(b, GoJSON{}, m) })
}
