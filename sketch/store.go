package sketch

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"slices"
	"sync"

	"github.com/hupe1980/tagseek/persistence"
	"github.com/hupe1980/tagseek/resource"
)

// ErrStoreClosed is returned when adding to a flushed or closed store.
var ErrStoreClosed = errors.New("sketch store is closed")

// Store accumulates finished genome sketches for one database build.
// Workers add sketches concurrently under their input ordinal; Flush
// writes them out in ordinal order, so the database is identical no
// matter how the workers were scheduled.
//
// Sketches are held in memory up to the controller's budget. Beyond
// it, new sketches go to a disk spill segment and are streamed back at
// flush time, one at a time.
type Store struct {
	mu     sync.Mutex
	params Params
	rc     *resource.Controller
	logger *slog.Logger

	spillDir string
	spill    *spillWriter

	resident []storedSketch
	spilled  int
	closed   bool
}

type storedSketch struct {
	ord  uint64
	g    *GenomeSketch
	cost int64
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithController sets the resource controller whose memory budget the
// store honors.
func WithController(rc *resource.Controller) StoreOption {
	return func(s *Store) { s.rc = rc }
}

// WithSpillDir enables spilling to segments created in dir. Without a
// spill dir, adds beyond the memory budget fail.
func WithSpillDir(dir string) StoreOption {
	return func(s *Store) { s.spillDir = dir }
}

// WithLogger sets the store's logger.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// NewStore creates a store for sketches built with params.
func NewStore(params Params, opts ...StoreOption) *Store {
	s := &Store{params: params}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s
}

// sketchCost estimates the resident bytes of a sketch for budgeting.
func sketchCost(g *GenomeSketch) int64 {
	return int64(len(g.Hashes))*8 + int64(len(g.Name)) + 96
}

// Add stores one finished sketch under its input ordinal. Ordinals
// order the flushed database; callers sketching several records per
// unit build them as unit<<32|record. Safe for concurrent use.
func (s *Store) Add(ord uint64, g *GenomeSketch) error {
	if err := s.params.Validate(g.Params); err != nil {
		return fmt.Errorf("sketch %q: %w", g.Name, err)
	}

	cost := sketchCost(g)
	if err := s.rc.AcquireMemory(cost); err != nil {
		return s.addSpilled(ord, g, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.rc.ReleaseMemory(cost)
		return ErrStoreClosed
	}
	s.resident = append(s.resident, storedSketch{ord: ord, g: g, cost: cost})
	return nil
}

// addSpilled routes a sketch to the spill segment when the memory
// budget is exhausted.
func (s *Store) addSpilled(ord uint64, g *GenomeSketch, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	if s.spillDir == "" {
		return fmt.Errorf("sketch %q does not fit the memory budget and spilling is disabled: %w", g.Name, cause)
	}

	if s.spill == nil {
		sw, err := newSpillWriter(s.spillDir)
		if err != nil {
			return fmt.Errorf("open spill segment: %w", err)
		}
		s.spill = sw
		s.logger.Info("sketch memory budget reached, spilling to disk",
			"segment", sw.f.Name(),
			"budget_bytes", s.rc.MemoryLimit())
	}

	if err := s.spill.add(ord, g); err != nil {
		return fmt.Errorf("spill sketch %q: %w", g.Name, err)
	}
	s.spilled++
	s.logger.Debug("spilled sketch", "name", g.Name, "tags", len(g.Hashes))
	return nil
}

// Len returns the number of stored sketches.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.resident) + s.spilled
}

// Spilled returns how many sketches went to the spill segment.
func (s *Store) Spilled() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spilled
}

// Flush writes all stored sketches to path in ordinal order and closes
// the store. The write is atomic; on error nothing replaces an
// existing file at path.
func (s *Store) Flush(path string, flags uint16) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrStoreClosed
	}
	defer s.closeLocked()

	var refs []spillFrameRef
	if s.spill != nil {
		if err := s.spill.finish(); err != nil {
			return 0, err
		}
		var err error
		if refs, err = scanSpill(s.spill.f); err != nil {
			return 0, err
		}
	}

	count := len(s.resident) + len(refs)
	if count == 0 {
		return 0, ErrNoSketches
	}

	slices.SortFunc(s.resident, func(a, b storedSketch) int {
		return cmp.Compare(a.ord, b.ord)
	})
	slices.SortFunc(refs, func(a, b spillFrameRef) int {
		return cmp.Compare(a.ord, b.ord)
	})

	err := persistence.SaveToFile(path, func(w io.Writer) error {
		return EncodeDatabaseSeq(w, s.params, uint32(count), s.merged(refs), flags)
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("database written",
		"path", path,
		"sketches", count,
		"spilled", len(refs))
	return count, nil
}

// merged yields resident and spilled sketches interleaved by ordinal.
func (s *Store) merged(refs []spillFrameRef) iter.Seq2[*GenomeSketch, error] {
	return func(yield func(*GenomeSketch, error) bool) {
		i, j := 0, 0
		for i < len(s.resident) || j < len(refs) {
			if j >= len(refs) || (i < len(s.resident) && s.resident[i].ord <= refs[j].ord) {
				if !yield(s.resident[i].g, nil) {
					return
				}
				i++
				continue
			}
			g, err := readSpillFrame(s.spill.f, refs[j], s.params)
			if !yield(g, err) || err != nil {
				return
			}
			j++
		}
	}
}

// Close releases the store's memory reservations and removes any spill
// segment. Calling Close after Flush is a no-op.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

func (s *Store) closeLocked() {
	if s.closed {
		return
	}
	s.closed = true
	for _, st := range s.resident {
		s.rc.ReleaseMemory(st.cost)
	}
	s.resident = nil
	if s.spill != nil {
		s.spill.close()
		s.spill = nil
	}
}
