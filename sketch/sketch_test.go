package sketch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamsValidate(t *testing.T) {
	base := testParams()

	tests := []struct {
		name   string
		mutate func(*Params)
		field  string
	}{
		{name: "enzyme", mutate: func(p *Params) { p.Enzyme = "AlfI" }, field: "enzyme"},
		{name: "tag length", mutate: func(p *Params) { p.TagLen = 27 }, field: "tag length"},
		{name: "anchor offset", mutate: func(p *Params) { p.AnchorOffset = 3 }, field: "anchor offset"},
		{name: "min spacing", mutate: func(p *Params) { p.MinSpacing = 100 }, field: "min spacing"},
		{name: "subsample rate", mutate: func(p *Params) { p.SubsampleRate = 1 }, field: "subsample rate"},
	}

	require.NoError(t, base.Validate(base))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other := base
			tt.mutate(&other)

			err := base.Validate(other)
			var incompatible *ErrIncompatible
			require.ErrorAs(t, err, &incompatible)
			assert.Equal(t, tt.field, incompatible.Field)
		})
	}
}

func TestRecordsFromCounts(t *testing.T) {
	recs := RecordsFromCounts(map[uint64]uint32{90: 2, 5: 1, 40: 7})
	assert.Equal(t, []TagRecord{{5, 1}, {40, 7}, {90, 2}}, recs)

	assert.Empty(t, RecordsFromCounts(nil))
}

func TestSortedHashes(t *testing.T) {
	hashes := SortedHashes(map[uint64]struct{}{9: {}, 1: {}, 5: {}})
	assert.Equal(t, []uint64{1, 5, 9}, hashes)
}

func TestIntersectCounts(t *testing.T) {
	hashes := []uint64{2, 5, 9, 14}
	recs := []TagRecord{{1, 10}, {5, 3}, {9, 1}, {20, 4}}

	var shared []uint64
	var counts []uint32
	IntersectCounts(hashes, recs, func(h uint64, c uint32) {
		shared = append(shared, h)
		counts = append(counts, c)
	})
	assert.Equal(t, []uint64{5, 9}, shared)
	assert.Equal(t, []uint32{3, 1}, counts)

	counts = nil
	IntersectCounts(nil, recs, func(_ uint64, c uint32) { counts = append(counts, c) })
	assert.Empty(t, counts)
}

func TestIntersectHashes(t *testing.T) {
	assert.Equal(t, 2, IntersectHashes([]uint64{1, 3, 7, 9}, []uint64{2, 3, 9}))
	assert.Zero(t, IntersectHashes([]uint64{1, 2}, []uint64{3, 4}))
	assert.Zero(t, IntersectHashes(nil, []uint64{1}))
	assert.Equal(t, 3, IntersectHashes([]uint64{4, 5, 6}, []uint64{4, 5, 6}))
}
