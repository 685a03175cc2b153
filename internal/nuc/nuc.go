// Package nuc provides 2-bit nucleotide packing and canonical tag hashing.
//
// Tags are fixed-width ACGT windows up to 64 bases, packed two bits per
// base into a 128-bit word pair. Packing preserves lexicographic order
// (A<C<G<T), so comparing packed words compares sequences. The canonical
// hash of a window is the mixed 64-bit digest of the smaller of the
// window and its reverse complement, making hashes strand independent.
package nuc

// 2-bit codes. 0xFF marks bytes outside ACGT/acgt; such windows carry no
// usable tag and are skipped by callers.
var codes = func() [256]uint8 {
	var t [256]uint8
	for i := range t {
		t[i] = 0xFF
	}
	t['A'], t['a'] = 0, 0
	t['C'], t['c'] = 1, 1
	t['G'], t['g'] = 2, 2
	t['T'], t['t'] = 3, 3
	return t
}()

var complements = func() [256]byte {
	var t [256]byte
	for i := range t {
		t[i] = 'N'
	}
	t['A'], t['a'] = 'T', 'T'
	t['C'], t['c'] = 'G', 'G'
	t['G'], t['g'] = 'C', 'C'
	t['T'], t['t'] = 'A', 'A'
	return t
}()

// Word is a 2-bit packed window of up to 64 bases. Earlier bases occupy
// more significant bits, so numeric order equals sequence order.
type Word struct {
	Hi, Lo uint64
}

// Less reports whether w orders before o.
func (w Word) Less(o Word) bool {
	if w.Hi != o.Hi {
		return w.Hi < o.Hi
	}
	return w.Lo < o.Lo
}

func (w Word) push(code uint64) Word {
	w.Hi = w.Hi<<2 | w.Lo>>62
	w.Lo = w.Lo<<2 | code
	return w
}

// Pack packs seq into a Word. ok is false when seq exceeds 64 bases or
// contains a byte outside ACGT (either case).
func Pack(seq []byte) (Word, bool) {
	if len(seq) > 64 {
		return Word{}, false
	}
	var w Word
	for _, b := range seq {
		c := codes[b]
		if c == 0xFF {
			return Word{}, false
		}
		w = w.push(uint64(c))
	}
	return w, true
}

// PackRevComp packs the reverse complement of seq without materializing it.
func PackRevComp(seq []byte) (Word, bool) {
	if len(seq) > 64 {
		return Word{}, false
	}
	var w Word
	for i := len(seq) - 1; i >= 0; i-- {
		c := codes[seq[i]]
		if c == 0xFF {
			return Word{}, false
		}
		w = w.push(uint64(3 - c))
	}
	return w, true
}

// Mix64 is an invertible 64-bit finalizer (Wang mix). It spreads packed
// tag words over the hash space so modular subsampling is unbiased.
func Mix64(key uint64) uint64 {
	key = (^key) + (key << 21)
	key ^= key >> 24
	key = (key + (key << 3)) + (key << 8)
	key ^= key >> 14
	key = (key + (key << 2)) + (key << 4)
	key ^= key >> 28
	key += key << 31
	return key
}

func (w Word) hash() uint64 {
	if w.Hi == 0 {
		return Mix64(w.Lo)
	}
	return Mix64(Mix64(w.Hi) ^ w.Lo)
}

// Canonical returns the strand-independent hash of window: the digest of
// the lexicographically smaller of {window, revcomp(window)}. ok is false
// when the window contains a non-ACGT byte or exceeds 64 bases.
func Canonical(window []byte) (uint64, bool) {
	fwd, ok := Pack(window)
	if !ok {
		return 0, false
	}
	rev, ok := PackRevComp(window)
	if !ok {
		return 0, false
	}
	if rev.Less(fwd) {
		return rev.hash(), true
	}
	return fwd.hash(), true
}

// Complement returns the Watson-Crick complement of b, or 'N' for
// anything outside ACGT.
func Complement(b byte) byte { return complements[b] }

// RevComp returns the reverse complement of seq as a new slice.
func RevComp(seq []byte) []byte {
	out := make([]byte, len(seq))
	for i, b := range seq {
		out[len(seq)-1-i] = complements[b]
	}
	return out
}
