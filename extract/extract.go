// Package extract turns sequence records into canonical tag multisets.
//
// Extraction walks each sequence for restriction-site windows (both
// strands), canonicalizes every window to a strand-independent 64-bit
// hash, and applies the unit-kind policies: genomes get a minimum
// spacing filter per contig and lose multi-copy tags, read sets get
// reproducible modular subsampling and optional exact-duplicate
// removal. Genomes are never subsampled.
package extract

import (
	"hash/fnv"
	"iter"

	"github.com/hupe1980/tagseek/enzyme"
	"github.com/hupe1980/tagseek/internal/nuc"
	"github.com/hupe1980/tagseek/seqio"
	"github.com/hupe1980/tagseek/sketch"
)

// Config bundles the extraction knobs shared by all units of a run.
type Config struct {
	// MinSpacing drops genome sites closer than this many bases to the
	// previously kept site on the same contig. Zero keeps every site.
	MinSpacing int

	// SubsampleRate keeps a read tag only when hash%rate == 0. Values
	// below 2 disable subsampling.
	SubsampleRate uint32

	// Dedup drops exact duplicate reads (PCR copies) before counting.
	Dedup bool
}

// Extractor extracts canonical tags for one enzyme profile. It is
// stateless across units and safe for concurrent use.
type Extractor struct {
	profile *enzyme.Profile
	cfg     Config
}

// New returns an Extractor for the given profile.
func New(profile *enzyme.Profile, cfg Config) *Extractor {
	return &Extractor{profile: profile, cfg: cfg}
}

// Params describes the extraction parameters as persisted in sketch
// headers.
func (e *Extractor) Params() sketch.Params {
	return sketch.Params{
		Enzyme:        e.profile.Name,
		TagLen:        uint8(e.profile.TagLen),
		AnchorOffset:  uint8(e.profile.AnchorOffset),
		MinSpacing:    uint32(e.cfg.MinSpacing),
		SubsampleRate: e.cfg.SubsampleRate,
	}
}

// spaceFilter keeps hits at least minSpacing apart, always keeping the
// first. positions must be sorted ascending.
func spaceFilter(positions []int, minSpacing int) []int {
	if minSpacing <= 0 || len(positions) == 0 {
		return positions
	}
	kept := positions[:1]
	last := positions[0]
	for _, pos := range positions[1:] {
		if pos-last >= minSpacing {
			kept = append(kept, pos)
			last = pos
		}
	}
	return kept
}

// Genome extracts one genome unit. Contigs are processed in stream
// order: sites are spacing-filtered per contig, then tags occurring
// more than once anywhere in the unit are excluded and tallied.
func (e *Extractor) Genome(name string, records iter.Seq2[*seqio.Record, error]) (*sketch.GenomeSketch, error) {
	gs := &sketch.GenomeSketch{Name: name, Params: e.Params()}
	counts := make(map[uint64]uint32)

	for rec, err := range records {
		if err != nil {
			return nil, err
		}
		if gs.FirstContig == "" {
			gs.FirstContig = rec.Name
		}
		gs.GenomeLength += uint64(len(rec.Seq))
		hits := spaceFilter(e.profile.Scan(rec.Seq), e.cfg.MinSpacing)
		for _, pos := range hits {
			h, ok := nuc.Canonical(rec.Seq[pos : pos+e.profile.TagLen])
			if !ok {
				continue
			}
			gs.TotalSites++
			counts[h]++
		}
	}

	single := make(map[uint64]struct{}, len(counts))
	for h, c := range counts {
		if c == 1 {
			single[h] = struct{}{}
		} else {
			gs.MultiCopy++
		}
	}
	gs.Hashes = sketch.SortedHashes(single)
	return gs, nil
}

// Sample extracts one sample unit from a read stream, applying modular
// subsampling and, when configured, exact-duplicate removal.
func (e *Extractor) Sample(name string, records iter.Seq2[*seqio.Record, error]) (*sketch.SampleSketch, error) {
	ss := &sketch.SampleSketch{Name: name, Params: e.Params()}
	counts := make(map[uint64]uint32)

	var seen map[uint64]struct{}
	if e.cfg.Dedup {
		seen = make(map[uint64]struct{})
	}

	var totalLen uint64
	rate := e.cfg.SubsampleRate

	for rec, err := range records {
		if err != nil {
			return nil, err
		}
		ss.Reads++
		totalLen += uint64(len(rec.Seq))

		if seen != nil {
			fh := fnv.New64a()
			fh.Write(rec.Seq)
			sum := fh.Sum64()
			if _, dup := seen[sum]; dup {
				continue
			}
			seen[sum] = struct{}{}
		}

		for _, pos := range e.profile.Scan(rec.Seq) {
			h, ok := nuc.Canonical(rec.Seq[pos : pos+e.profile.TagLen])
			if !ok {
				continue
			}
			if rate > 1 && h%uint64(rate) != 0 {
				continue
			}
			counts[h]++
			ss.TotalTags++
		}
	}

	if ss.Reads > 0 {
		ss.MeanReadLen = float64(totalLen) / float64(ss.Reads)
	}
	ss.Records = sketch.RecordsFromCounts(counts)
	return ss, nil
}
