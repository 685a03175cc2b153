// Package index opens genome databases for querying. An opened
// Database is immutable: the sketches are decoded (or mapped) once,
// the inverted tag index is built once, and everything afterwards is
// read-only and safe for concurrent use.
package index

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/tagseek/persistence"
	"github.com/hupe1980/tagseek/sketch"
)

// ErrEmptyDatabase is returned when a database file holds no sketches.
var ErrEmptyDatabase = errors.New("database holds no genome sketches")

// Database is an opened genome database plus the inverted tag index
// used to pre-screen query candidates.
type Database struct {
	path    string
	params  sketch.Params
	genomes []*sketch.GenomeSketch

	// postings maps a tag hash to the set of genome ordinals that
	// contain it.
	postings map[uint64]*roaring.Bitmap

	mapping closer // non-nil when the file is memory mapped
	logger  *slog.Logger
}

type closer interface{ Close() error }

// Option configures database opening.
type Option func(*Database)

// WithLogger sets the database logger.
func WithLogger(l *slog.Logger) Option {
	return func(db *Database) { db.logger = l }
}

// Open reads the database at path and builds the inverted index.
// Uncompressed databases are memory mapped so the tag arrays alias the
// page cache instead of being copied; compressed ones are streamed.
func Open(path string, opts ...Option) (*Database, error) {
	db := &Database{path: path}
	for _, opt := range opts {
		opt(db)
	}
	if db.logger == nil {
		db.logger = slog.New(slog.DiscardHandler)
	}

	info, err := sketch.ReadFileInfo(path)
	if err != nil {
		return nil, err
	}

	mapped := false
	if info.Flags == 0 {
		if m, err := persistence.MapFile(path); err == nil {
			genomes, err := sketch.DecodeDatabaseBytes(m.Bytes())
			if err != nil {
				m.Close()
				return nil, err
			}
			db.genomes = genomes
			db.mapping = m
			mapped = true
		}
	}
	if !mapped {
		if db.genomes, err = sketch.LoadDatabase(path); err != nil {
			return nil, err
		}
	}

	if err := db.freeze(); err != nil {
		db.Close()
		return nil, err
	}

	db.logger.Info("database opened",
		"path", path,
		"genomes", len(db.genomes),
		"tags", len(db.postings),
		"mapped", mapped)
	return db, nil
}

// New builds a database from in-memory sketches. Every sketch must
// share the same params.
func New(genomes []*sketch.GenomeSketch, opts ...Option) (*Database, error) {
	db := &Database{genomes: genomes}
	for _, opt := range opts {
		opt(db)
	}
	if db.logger == nil {
		db.logger = slog.New(slog.DiscardHandler)
	}
	if err := db.freeze(); err != nil {
		return nil, err
	}
	return db, nil
}

// freeze validates the sketches and builds the inverted index. After
// freeze the database never changes.
func (db *Database) freeze() error {
	if len(db.genomes) == 0 {
		return ErrEmptyDatabase
	}

	db.params = db.genomes[0].Params
	for _, g := range db.genomes[1:] {
		if err := db.params.Validate(g.Params); err != nil {
			return fmt.Errorf("sketch %q: %w", g.Name, err)
		}
	}

	db.postings = make(map[uint64]*roaring.Bitmap)
	for ord, g := range db.genomes {
		for _, h := range g.Hashes {
			bm, ok := db.postings[h]
			if !ok {
				bm = roaring.New()
				db.postings[h] = bm
			}
			bm.Add(uint32(ord))
		}
	}
	return nil
}

// Close releases the backing mapping, if any. The database must not be
// used afterwards when it was opened from an uncompressed file.
func (db *Database) Close() error {
	if db.mapping != nil {
		err := db.mapping.Close()
		db.mapping = nil
		return err
	}
	return nil
}

// Path returns the file the database was opened from, if any.
func (db *Database) Path() string { return db.path }

// Params returns the extraction parameters shared by all sketches.
func (db *Database) Params() sketch.Params { return db.params }

// Len returns the number of genome sketches.
func (db *Database) Len() int { return len(db.genomes) }

// Genome returns the sketch at ordinal ord.
func (db *Database) Genome(ord int) *sketch.GenomeSketch { return db.genomes[ord] }

// Genomes yields the sketches in stored order.
func (db *Database) Genomes() iter.Seq2[int, *sketch.GenomeSketch] {
	return func(yield func(int, *sketch.GenomeSketch) bool) {
		for ord, g := range db.genomes {
			if !yield(ord, g) {
				return
			}
		}
	}
}

// Validate checks that a sample sketch was built with the database's
// extraction parameters.
func (db *Database) Validate(s *sketch.SampleSketch) error {
	if err := db.params.Validate(s.Params); err != nil {
		return fmt.Errorf("sample %q: %w", s.Name, err)
	}
	return nil
}

// Candidate is a genome that shares tags with a query sample.
type Candidate struct {
	Ordinal int
	Shared  int
}

// Candidates screens the sample against the inverted index and
// returns, in ordinal order, every genome sharing at least minShared
// distinct tags with it. Exact per-tag multiplicities are left to the
// containment estimator; this pass only prunes the genome set.
func (db *Database) Candidates(recs []sketch.TagRecord, minShared int) []Candidate {
	if minShared < 1 {
		minShared = 1
	}

	shared := make([]int, len(db.genomes))
	for _, rec := range recs {
		bm, ok := db.postings[rec.Hash]
		if !ok {
			continue
		}
		it := bm.Iterator()
		for it.HasNext() {
			shared[it.Next()]++
		}
	}

	var out []Candidate
	for ord, n := range shared {
		if n >= minShared {
			out = append(out, Candidate{Ordinal: ord, Shared: n})
		}
	}
	return out
}
