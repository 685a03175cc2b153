// Package reassign resolves tags claimed by several database genomes
// after a first estimation pass. Every claimed tag is awarded to the
// claimant with the highest first-pass ANI, the estimator re-runs on
// the thinned evidence, and genomes that forfeited most of their
// shared tags are dropped as near-duplicates of stronger matches.
package reassign

import (
	"cmp"
	"log/slog"
	"slices"

	"github.com/hupe1980/tagseek/estimate"
	"github.com/hupe1980/tagseek/index"
)

// DefaultEdgeFloor suppresses ownership flows of this many tags or
// fewer when edges are reported.
const DefaultEdgeFloor = 10

// entry is one tag's current best claim.
type entry struct {
	ani float64
	ord int
}

// Table fixes tag ownership for a reassignment pass. Build it once
// per sample; afterwards it is read-only and safe for concurrent use.
type Table struct {
	db    *index.Database
	rows  []*estimate.Result
	owner map[uint64]entry
}

// Build awards every tag of the retained genomes to the claimant with
// the highest adjusted ANI. Ties go to the smaller ordinal, so the
// table comes out identical however rows are ordered.
func Build(db *index.Database, rows []*estimate.Result) *Table {
	t := &Table{db: db, rows: rows, owner: make(map[uint64]entry)}
	for _, r := range rows {
		for _, h := range db.Genome(r.Ordinal).Hashes {
			e, ok := t.owner[h]
			if !ok || r.ANI > e.ani || (r.ANI == e.ani && r.Ordinal < e.ord) {
				t.owner[h] = entry{ani: r.ANI, ord: r.Ordinal}
			}
		}
	}
	return t
}

// Winner reports the ordinal owning a tag. It satisfies
// estimate.WinnerFunc.
func (t *Table) Winner(hash uint64) (int, bool) {
	e, ok := t.owner[hash]
	return e.ord, ok
}

// Len returns the number of owned tags.
func (t *Table) Len() int { return len(t.owner) }

// Edge aggregates an ownership flow: Tags tags of the loser's sketch
// are owned by the winner.
type Edge struct {
	Winner int
	Loser  int
	Tags   int
}

// Edges lists the flows of more than floor tags, ordered by loser
// then winner ordinal.
func (t *Table) Edges(floor int) []Edge {
	var out []Edge
	for _, r := range t.rows {
		flows := make(map[int]int)
		for _, h := range t.db.Genome(r.Ordinal).Hashes {
			if e, ok := t.owner[h]; ok && e.ord != r.Ordinal {
				flows[e.ord]++
			}
		}
		for w, n := range flows {
			if n > floor {
				out = append(out, Edge{Winner: w, Loser: r.Ordinal, Tags: n})
			}
		}
	}
	slices.SortFunc(out, func(a, b Edge) int {
		if c := cmp.Compare(a.Loser, b.Loser); c != 0 {
			return c
		}
		return cmp.Compare(a.Winner, b.Winner)
	})
	return out
}

// Trace streams every contested-tag decision to the logger as debug
// records: the tag, its winner and winning ANI, and the claimants
// that lost it. Tracing reads the finished table and never changes
// the awards.
func (t *Table) Trace(logger *slog.Logger) {
	claims := make(map[uint64][]int)
	for _, r := range t.rows {
		for _, h := range t.db.Genome(r.Ordinal).Hashes {
			claims[h] = append(claims[h], r.Ordinal)
		}
	}

	contested := make([]uint64, 0, len(claims))
	for h, ords := range claims {
		if len(ords) > 1 {
			contested = append(contested, h)
		}
	}
	slices.Sort(contested)

	for _, h := range contested {
		win := t.owner[h]
		losers := make([]string, 0, len(claims[h])-1)
		for _, ord := range claims[h] {
			if ord != win.ord {
				losers = append(losers, t.db.Genome(ord).Name)
			}
		}
		slices.Sort(losers)
		logger.Debug("contested tag awarded",
			"tag", h,
			"winner", t.db.Genome(win.ord).Name,
			"winner_ani", win.ani,
			"losers", losers)
	}
}
