// Package seqio streams named sequence records out of FASTA and FASTQ
// files, transparently decompressing gzip. It is the boundary between
// on-disk sequencing formats and the extraction core: everything above
// it sees only units of records.
package seqio

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Format identifies the record layout of an input.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatFASTA
	FormatFASTQ
)

func (f Format) String() string {
	switch f {
	case FormatFASTA:
		return "fasta"
	case FormatFASTQ:
		return "fastq"
	default:
		return "unknown"
	}
}

// Record is one sequence record. Seq is owned by the caller once
// yielded; the reader never reuses it.
type Record struct {
	Name string
	Seq  []byte
}

// ErrMalformedRecord reports a record that does not follow its format.
type ErrMalformedRecord struct {
	Path   string
	Line   int
	Reason string
}

func (e *ErrMalformedRecord) Error() string {
	return fmt.Sprintf("%s:%d: malformed record: %s", e.Path, e.Line, e.Reason)
}

var fastaExts = map[string]bool{
	".fa": true, ".fasta": true, ".fna": true,
	".ffn": true, ".faa": true, ".frn": true,
}

// LooksLikeFASTA guesses from the file name whether path holds FASTA
// data, ignoring a trailing .gz.
func LooksLikeFASTA(path string) bool {
	name := strings.ToLower(path)
	name = strings.TrimSuffix(name, ".gz")
	return fastaExts[filepath.Ext(name)]
}

// Reader streams records from one sequence file.
type Reader struct {
	path   string
	format Format
	file   *os.File
	gz     *gzip.Reader
	br     *bufio.Reader
	line   int
}

// Open opens path, unwrapping gzip when the name ends in .gz, and
// detects the format from the first byte ('>' FASTA, '@' FASTQ).
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := &Reader{path: path, file: f}

	var src io.Reader = f
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		r.gz = gz
		src = gz
	}
	r.br = bufio.NewReaderSize(src, 1<<20)

	first, err := r.br.Peek(1)
	if err == io.EOF {
		r.format = FormatFASTA // empty file, zero records
		return r, nil
	}
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	switch first[0] {
	case '>':
		r.format = FormatFASTA
	case '@':
		r.format = FormatFASTQ
	default:
		r.Close()
		return nil, &ErrMalformedRecord{Path: path, Line: 1, Reason: fmt.Sprintf("unrecognized leading byte %q", first[0])}
	}
	return r, nil
}

// Format returns the detected record layout.
func (r *Reader) Format() Format { return r.format }

// Path returns the opened file path.
func (r *Reader) Path() string { return r.path }

// Close releases the underlying file handles.
func (r *Reader) Close() error {
	if r.gz != nil {
		if err := r.gz.Close(); err != nil {
			r.file.Close()
			return err
		}
	}
	return r.file.Close()
}

// Records yields records in file order. On a parse error the iterator
// yields (nil, err) once and stops; the reader is not usable afterwards.
func (r *Reader) Records() iter.Seq2[*Record, error] {
	if r.format == FormatFASTQ {
		return r.fastqRecords()
	}
	return r.fastaRecords()
}

// readLine reads one full line without the trailing newline, growing
// past bufio's internal buffer for long contig lines.
func (r *Reader) readLine() ([]byte, error) {
	var full []byte
	for {
		chunk, err := r.br.ReadSlice('\n')
		if err == nil || err == io.EOF {
			if full == nil && err == nil {
				r.line++
				return bytes.TrimRight(chunk, "\r\n"), nil
			}
			full = append(full, chunk...)
			if err == io.EOF && len(full) == 0 {
				return nil, io.EOF
			}
			r.line++
			return bytes.TrimRight(full, "\r\n"), nil
		}
		if err == bufio.ErrBufferFull {
			full = append(full, chunk...)
			continue
		}
		return nil, err
	}
}

func (r *Reader) fastaRecords() iter.Seq2[*Record, error] {
	return func(yield func(*Record, error) bool) {
		var cur *Record
		for {
			line, err := r.readLine()
			if err == io.EOF {
				if cur != nil {
					yield(cur, nil)
				}
				return
			}
			if err != nil {
				yield(nil, fmt.Errorf("read %s: %w", r.path, err))
				return
			}
			if len(line) == 0 {
				continue
			}
			if line[0] == '>' {
				if cur != nil && !yield(cur, nil) {
					return
				}
				var name string
				if fields := bytes.Fields(line[1:]); len(fields) > 0 {
					name = string(fields[0])
				}
				cur = &Record{Name: name}
				continue
			}
			if cur == nil {
				yield(nil, &ErrMalformedRecord{Path: r.path, Line: r.line, Reason: "sequence before first header"})
				return
			}
			cur.Seq = append(cur.Seq, line...)
		}
	}
}

func (r *Reader) fastqRecords() iter.Seq2[*Record, error] {
	return func(yield func(*Record, error) bool) {
		for {
			header, err := r.readLine()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(nil, fmt.Errorf("read %s: %w", r.path, err))
				return
			}
			if len(header) == 0 {
				continue
			}
			if header[0] != '@' {
				yield(nil, &ErrMalformedRecord{Path: r.path, Line: r.line, Reason: "record does not start with @"})
				return
			}
			// header and seq alias the read buffer; copy before the
			// next readLine can overwrite them.
			var name string
			if fields := bytes.Fields(header[1:]); len(fields) > 0 {
				name = string(fields[0])
			}
			seqLine, err := r.readLine()
			if err != nil {
				yield(nil, &ErrMalformedRecord{Path: r.path, Line: r.line, Reason: "truncated record: missing sequence"})
				return
			}
			seq := append([]byte(nil), seqLine...)
			plus, err := r.readLine()
			if err != nil || len(plus) == 0 || plus[0] != '+' {
				yield(nil, &ErrMalformedRecord{Path: r.path, Line: r.line, Reason: "truncated record: missing + separator"})
				return
			}
			qual, err := r.readLine()
			if err != nil {
				yield(nil, &ErrMalformedRecord{Path: r.path, Line: r.line, Reason: "truncated record: missing quality"})
				return
			}
			if len(qual) != len(seq) {
				yield(nil, &ErrMalformedRecord{Path: r.path, Line: r.line, Reason: "quality length differs from sequence length"})
				return
			}
			rec := &Record{Name: name, Seq: seq}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// ReadFileList reads one path per line, skipping blanks and #-comments.
func ReadFileList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var paths []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		paths = append(paths, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return paths, nil
}
