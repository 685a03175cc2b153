package sketch

import (
	"cmp"
	"slices"
)

// GenomeMarkStats summarizes one genome after a marking pass.
type GenomeMarkStats struct {
	Genome     string
	TotalTags  int
	UniqueTags int
}

// UniqueFraction is the share of the genome's tags found nowhere else
// in the database, or 0 for an empty sketch.
func (s GenomeMarkStats) UniqueFraction() float64 {
	if s.TotalTags == 0 {
		return 0
	}
	return float64(s.UniqueTags) / float64(s.TotalTags)
}

// MarkStats summarizes a marking pass over a whole database.
type MarkStats struct {
	TotalTags  int
	UniqueTags int

	// Genomes is ordered by total tags descending, name ascending on
	// ties.
	Genomes []GenomeMarkStats
}

// MarkUnique flags, for every genome, the tags that occur in exactly
// one genome of the set. It fills each sketch's Unique slice in place
// and reports per-genome counts. Tags shared between genomes stay
// counted in TotalTags but not UniqueTags.
func MarkUnique(genomes []*GenomeSketch) MarkStats {
	occurrences := make(map[uint64]uint32)
	for _, g := range genomes {
		for _, h := range g.Hashes {
			occurrences[h]++
		}
	}

	stats := MarkStats{Genomes: make([]GenomeMarkStats, 0, len(genomes))}
	for _, g := range genomes {
		g.Unique = make([]bool, len(g.Hashes))
		unique := 0
		for i, h := range g.Hashes {
			if occurrences[h] == 1 {
				g.Unique[i] = true
				unique++
			}
		}
		stats.TotalTags += len(g.Hashes)
		stats.UniqueTags += unique
		stats.Genomes = append(stats.Genomes, GenomeMarkStats{
			Genome:     g.Name,
			TotalTags:  len(g.Hashes),
			UniqueTags: unique,
		})
	}

	slices.SortFunc(stats.Genomes, func(a, b GenomeMarkStats) int {
		return cmp.Or(cmp.Compare(b.TotalTags, a.TotalTags), cmp.Compare(a.Genome, b.Genome))
	})
	return stats
}

// UniqueFraction is the database-wide share of tags found in exactly
// one genome.
func (s MarkStats) UniqueFraction() float64 {
	if s.TotalTags == 0 {
		return 0
	}
	return float64(s.UniqueTags) / float64(s.TotalTags)
}
