package testutil

import (
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/hupe1980/tagseek/seqio"
)

// TagWindowLen is the span of one BcgI restriction window: two 10 bp
// flanks around the CGA(6)TGC recognition cores.
const TagWindowLen = 32

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Uint64 returns a pseudo-random uint64.
func (r *RNG) Uint64() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint64()
}

// Filler returns n bases drawn from {A,T} only. The BcgI recognition
// cores all contain C or G, so filler can abut planted windows without
// ever forming a new site.
func (r *RNG) Filler(n int) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fillerLocked(n)
}

func (r *RNG) fillerLocked(n int) []byte {
	const bases = "AT"
	out := make([]byte, n)
	for i := range out {
		out[i] = bases[r.rand.Intn(2)]
	}
	return out
}

// TagWindow builds one 32 bp BcgI window with random {A,T} flanks.
func (r *RNG) TagWindow() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tagWindowLocked()
}

func (r *RNG) tagWindowLocked() []byte {
	out := make([]byte, 0, TagWindowLen)
	out = append(out, r.fillerLocked(10)...)
	out = append(out, "CGA"...)
	out = append(out, r.fillerLocked(6)...)
	out = append(out, "TGC"...)
	out = append(out, r.fillerLocked(10)...)
	return out
}

// PlantedGenome builds a synthetic genome of the given number of tag
// windows, each separated (and the whole flanked) by gap bases of
// filler. Every window carries distinct random flanks, so with high
// probability all planted tags hash differently.
func (r *RNG) PlantedGenome(sites, gap int) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]byte, 0, gap+sites*(TagWindowLen+gap))
	out = append(out, r.fillerLocked(gap)...)
	for range sites {
		out = append(out, r.tagWindowLocked()...)
		out = append(out, r.fillerLocked(gap)...)
	}
	return out
}

// Reads draws n substrings of the given length from uniformly random
// genome positions, simulating error-free shotgun reads.
func (r *RNG) Reads(genome []byte, n, length int) [][]byte {
	if length > len(genome) {
		length = len(genome)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	reads := make([][]byte, n)
	for i := range reads {
		start := r.rand.Intn(len(genome) - length + 1)
		reads[i] = genome[start : start+length]
	}
	return reads
}

// Mutate returns a copy of seq with each base substituted at the given
// per-base rate. Substitutions always change the base.
func (r *RNG) Mutate(seq []byte, rate float64) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	const bases = "ACGT"
	out := make([]byte, len(seq))
	copy(out, seq)
	for i := range out {
		if r.rand.Float64() >= rate {
			continue
		}
		b := bases[r.rand.Intn(4)]
		for b == out[i] {
			b = bases[r.rand.Intn(4)]
		}
		out[i] = b
	}
	return out
}

// WriteFasta writes records to path in FASTA layout, 60 bases per
// line, gzip-compressing when the name ends in .gz.
func WriteFasta(tb testing.TB, path string, recs ...*seqio.Record) {
	tb.Helper()

	var sb strings.Builder
	for _, rec := range recs {
		sb.WriteByte('>')
		sb.WriteString(rec.Name)
		sb.WriteByte('\n')
		for seq := rec.Seq; len(seq) > 0; {
			n := min(60, len(seq))
			sb.Write(seq[:n])
			sb.WriteByte('\n')
			seq = seq[n:]
		}
	}
	writeSeqFile(tb, path, sb.String())
}

// WriteFastq writes records to path in four-line FASTQ layout with a
// constant quality string, gzip-compressing when the name ends in .gz.
func WriteFastq(tb testing.TB, path string, recs ...*seqio.Record) {
	tb.Helper()

	var sb strings.Builder
	for _, rec := range recs {
		sb.WriteByte('@')
		sb.WriteString(rec.Name)
		sb.WriteByte('\n')
		sb.Write(rec.Seq)
		sb.WriteString("\n+\n")
		sb.WriteString(strings.Repeat("I", len(rec.Seq)))
		sb.WriteByte('\n')
	}
	writeSeqFile(tb, path, sb.String())
}

func writeSeqFile(tb testing.TB, path, data string) {
	tb.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		tb.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		tb.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		gz := gzip.NewWriter(f)
		if _, err := gz.Write([]byte(data)); err != nil {
			tb.Fatalf("write %s: %v", path, err)
		}
		if err := gz.Close(); err != nil {
			tb.Fatalf("close %s: %v", path, err)
		}
		return
	}
	if _, err := f.WriteString(data); err != nil {
		tb.Fatalf("write %s: %v", path, err)
	}
}
