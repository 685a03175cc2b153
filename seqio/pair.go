package seqio

import (
	"fmt"
	"iter"
)

// ErrPairMismatch reports paired files whose record counts differ.
type ErrPairMismatch struct {
	First  string
	Second string
}

func (e *ErrPairMismatch) Error() string {
	return fmt.Sprintf("paired files %s and %s have different record counts", e.First, e.Second)
}

// PairReader zips two mate files into one record stream, alternating
// R1, R2 per fragment. Both files must hold the same number of records.
type PairReader struct {
	r1, r2 *Reader
}

// OpenPair opens both mate files.
func OpenPair(first, second string) (*PairReader, error) {
	r1, err := Open(first)
	if err != nil {
		return nil, err
	}
	r2, err := Open(second)
	if err != nil {
		r1.Close()
		return nil, err
	}
	return &PairReader{r1: r1, r2: r2}, nil
}

// Name identifies the pair as one unit.
func (p *PairReader) Name() string {
	return fmt.Sprintf("%s_&_%s", p.r1.Path(), p.r2.Path())
}

// Close releases both underlying readers.
func (p *PairReader) Close() error {
	err1 := p.r1.Close()
	err2 := p.r2.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// Records yields mate records alternately (R1 then R2 per fragment).
// A parse error in either file, or unequal record counts, ends the
// stream with that error.
func (p *PairReader) Records() iter.Seq2[*Record, error] {
	return func(yield func(*Record, error) bool) {
		next1, stop1 := iter.Pull2(p.r1.Records())
		defer stop1()
		next2, stop2 := iter.Pull2(p.r2.Records())
		defer stop2()

		for {
			rec1, err1, ok1 := next1()
			rec2, err2, ok2 := next2()
			if err1 != nil {
				yield(nil, err1)
				return
			}
			if err2 != nil {
				yield(nil, err2)
				return
			}
			if ok1 != ok2 {
				yield(nil, &ErrPairMismatch{First: p.r1.Path(), Second: p.r2.Path()})
				return
			}
			if !ok1 {
				return
			}
			if !yield(rec1, nil) {
				return
			}
			if !yield(rec2, nil) {
				return
			}
		}
	}
}
