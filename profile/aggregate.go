package profile

import (
	"cmp"
	"math"
	"slices"
)

// TaxonRow is one aggregated clade of a profile.
type TaxonRow struct {
	Label string

	TaxAbundance float64
	SeqAbundance float64

	// ANI is the best adjusted ANI among the clade's genomes;
	// EffectiveCov sums their coverages.
	ANI          float64
	EffectiveCov float64

	// ReadCount sums shared-tag multiplicities, TotalTags the
	// distinct shared tags, and Gscore = √(ReadCount·TotalTags)
	// combines them into a confidence score.
	ReadCount uint64
	TotalTags int
	Gscore    float64

	Genomes int
}

// sortRows orders profile rows by taxonomic abundance descending,
// then genome name.
func sortRows(rows []*GenomeRow) {
	slices.SortFunc(rows, func(a, b *GenomeRow) int {
		if c := cmp.Compare(b.TaxAbundance, a.TaxAbundance); c != 0 {
			return c
		}
		return cmp.Compare(a.Genome, b.Genome)
	})
}

// Aggregate groups profile rows by clade label and returns the
// unfiltered taxon table, ordered by taxonomic abundance descending
// then label. Filtered and unfiltered tables share this ordering so
// they diff cleanly.
func Aggregate(rows []*GenomeRow, tax Taxonomy) []*TaxonRow {
	byLabel := make(map[string]*TaxonRow)
	for _, r := range rows {
		label := tax.Label(r.Genome)
		tr, ok := byLabel[label]
		if !ok {
			tr = &TaxonRow{Label: label}
			byLabel[label] = tr
		}
		tr.TaxAbundance += r.TaxAbundance
		tr.SeqAbundance += r.SeqAbundance
		tr.ANI = max(tr.ANI, r.ANI)
		tr.EffectiveCov += r.EffectiveCov
		tr.ReadCount += r.SharedReads
		tr.TotalTags += r.SharedTags
		tr.Genomes++
	}

	out := make([]*TaxonRow, 0, len(byLabel))
	for _, tr := range byLabel {
		tr.Gscore = math.Sqrt(float64(tr.ReadCount) * float64(tr.TotalTags))
		out = append(out, tr)
	}
	slices.SortFunc(out, func(a, b *TaxonRow) int {
		if c := cmp.Compare(b.TaxAbundance, a.TaxAbundance); c != 0 {
			return c
		}
		return cmp.Compare(a.Label, b.Label)
	})
	return out
}

// FilterGscore keeps the rows whose G-score reaches the threshold,
// preserving order.
func FilterGscore(rows []*TaxonRow, threshold float64) []*TaxonRow {
	out := make([]*TaxonRow, 0, len(rows))
	for _, r := range rows {
		if r.Gscore >= threshold {
			out = append(out, r)
		}
	}
	return out
}
