// Package sketch defines the tag-sketch data model and the store that
// materializes sketches on disk.
//
// A sketch is the compact representation of one input unit — a genome
// (or contig) from a reference FASTA, or one sample's full read set. It
// holds the unit's canonical tag hashes with multiplicities, sorted by
// hash so containment between two sketches reduces to a linear merge.
// Sketches are immutable once built; changing any extraction parameter
// means building a new sketch.
package sketch

import (
	"fmt"
	"slices"
)

// FormatVersion is the current on-disk sketch format revision.
const FormatVersion uint16 = 1

// TagRecord pairs a canonical tag hash with its occurrence count within
// one unit.
type TagRecord struct {
	Hash  uint64
	Count uint32
}

// Params captures every knob that shapes tag extraction. Two sketches
// are comparable only when their Params match exactly.
type Params struct {
	Enzyme        string
	TagLen        uint8
	AnchorOffset  uint8
	MinSpacing    uint32
	SubsampleRate uint32
}

// ErrIncompatible reports a parameter mismatch between two sketches.
type ErrIncompatible struct {
	Field string
	Want  string
	Got   string
}

func (e *ErrIncompatible) Error() string {
	return fmt.Sprintf("incompatible sketches: %s is %s, want %s", e.Field, e.Got, e.Want)
}

// Validate checks that o was built the same way as p.
func (p Params) Validate(o Params) error {
	if p.Enzyme != o.Enzyme {
		return &ErrIncompatible{Field: "enzyme", Want: p.Enzyme, Got: o.Enzyme}
	}
	if p.TagLen != o.TagLen {
		return &ErrIncompatible{Field: "tag length", Want: fmt.Sprint(p.TagLen), Got: fmt.Sprint(o.TagLen)}
	}
	if p.AnchorOffset != o.AnchorOffset {
		return &ErrIncompatible{Field: "anchor offset", Want: fmt.Sprint(p.AnchorOffset), Got: fmt.Sprint(o.AnchorOffset)}
	}
	if p.MinSpacing != o.MinSpacing {
		return &ErrIncompatible{Field: "min spacing", Want: fmt.Sprint(p.MinSpacing), Got: fmt.Sprint(o.MinSpacing)}
	}
	if p.SubsampleRate != o.SubsampleRate {
		return &ErrIncompatible{Field: "subsample rate", Want: fmt.Sprint(p.SubsampleRate), Got: fmt.Sprint(o.SubsampleRate)}
	}
	return nil
}

// GenomeSketch is the sketch of one reference genome (or one contig in
// individual-record mode). Retained genome tags are single copy by
// construction, so only the hashes are stored.
type GenomeSketch struct {
	Name   string
	Params Params

	// FirstContig is the name of the unit's first sequence record,
	// carried through to result rows for provenance.
	FirstContig string

	// Hashes holds the retained single-copy tags, sorted ascending.
	Hashes []uint64

	// Unique parallels Hashes after a marking pass: Unique[i] reports
	// that Hashes[i] occurs in exactly one genome of the marked
	// database. Nil when the database has not been marked.
	Unique []bool

	// GenomeLength is the summed length in bases of the unit's
	// sequences. Sequence-abundance estimates weight coverage by it.
	GenomeLength uint64

	// TotalSites counts recognition sites kept after spacing, before
	// the multi-copy exclusion.
	TotalSites uint64

	// MultiCopy counts distinct tags excluded for occurring more than
	// once in the unit.
	MultiCopy uint64
}

// SampleSketch is the sketch of one sample's read set.
type SampleSketch struct {
	Name   string
	Params Params

	// Records holds retained tag multiplicities, sorted by hash.
	Records []TagRecord

	Reads       uint64
	MeanReadLen float64

	// TotalTags is the sum of retained multiplicities.
	TotalTags uint64
}

// sortRecords orders records by hash; counts for equal hashes must have
// been merged by the producer.
func sortRecords(recs []TagRecord) {
	slices.SortFunc(recs, func(a, b TagRecord) int {
		switch {
		case a.Hash < b.Hash:
			return -1
		case a.Hash > b.Hash:
			return 1
		default:
			return 0
		}
	})
}

// RecordsFromCounts flattens a hash→count map into a sorted record
// slice. The map is left untouched.
func RecordsFromCounts(counts map[uint64]uint32) []TagRecord {
	recs := make([]TagRecord, 0, len(counts))
	for h, c := range counts {
		recs = append(recs, TagRecord{Hash: h, Count: c})
	}
	sortRecords(recs)
	return recs
}

// SortedHashes flattens a hash set into a sorted slice.
func SortedHashes(set map[uint64]struct{}) []uint64 {
	hashes := make([]uint64, 0, len(set))
	for h := range set {
		hashes = append(hashes, h)
	}
	slices.Sort(hashes)
	return hashes
}

// IntersectCounts walks a sorted genome hash slice against a sorted
// sample record slice and calls fn with every shared tag and its
// sample multiplicity.
func IntersectCounts(hashes []uint64, recs []TagRecord, fn func(hash uint64, count uint32)) {
	i, j := 0, 0
	for i < len(hashes) && j < len(recs) {
		switch {
		case hashes[i] < recs[j].Hash:
			i++
		case hashes[i] > recs[j].Hash:
			j++
		default:
			fn(hashes[i], recs[j].Count)
			i++
			j++
		}
	}
}

// IntersectHashes counts the tags shared by two sorted hash slices.
func IntersectHashes(a, b []uint64) int {
	i, j, n := 0, 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			n++
			i++
			j++
		}
	}
	return n
}
