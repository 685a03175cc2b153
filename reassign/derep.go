package reassign

import (
	"log/slog"
	"math"

	"github.com/hupe1980/tagseek/estimate"
)

// DefaultRedundantANI is the near-duplicate suppression threshold as
// an ANI percentage.
const DefaultRedundantANI = 99.0

// Dereplicate keeps the reassigned rows whose lost-tag count stays
// below (redundantANI/100)^tagLen of their sketch size. A genome
// losing that much of its evidence to better-matching genomes is a
// near-duplicate of one of them and is removed rather than reported
// at a deflated ANI.
func Dereplicate(rows []*estimate.Result, redundantANI float64, tagLen uint8, logger *slog.Logger) []*estimate.Result {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	threshold := math.Pow(redundantANI/100, float64(tagLen))
	kept := make([]*estimate.Result, 0, len(rows))
	for _, r := range rows {
		limit := threshold * float64(r.GenomeTags)
		if float64(r.TagsLost) < limit {
			kept = append(kept, r)
			continue
		}
		logger.Debug("redundant genome removed",
			"genome", r.Genome,
			"tags_reassigned", r.TagsLost,
			"threshold", limit)
	}
	return kept
}
