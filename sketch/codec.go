package sketch

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"time"

	"github.com/hupe1980/tagseek/persistence"
)

// ErrNoSketches is returned when encoding a database with no genomes.
var ErrNoSketches = errors.New("no sketches to encode")

// Conventional file extensions.
const (
	DatabaseExt = ".syldb"
	SampleExt   = ".sylsp"
)

// paramsHeader builds the file header carrying the extraction
// parameters.
func paramsHeader(magic uint32, p Params, units uint32, flags uint16) *persistence.FileHeader {
	h := &persistence.FileHeader{
		Magic:         magic,
		Flags:         flags,
		Created:       time.Now().UnixNano(),
		TagLen:        p.TagLen,
		AnchorOffset:  p.AnchorOffset,
		MinSpacing:    p.MinSpacing,
		SubsampleRate: p.SubsampleRate,
		UnitCount:     units,
	}
	h.SetEnzymeName(p.Enzyme)
	return h
}

// headerParams recovers the extraction parameters from a file header.
func headerParams(h *persistence.FileHeader) Params {
	return Params{
		Enzyme:        h.EnzymeName(),
		TagLen:        h.TagLen,
		AnchorOffset:  h.AnchorOffset,
		MinSpacing:    h.MinSpacing,
		SubsampleRate: h.SubsampleRate,
	}
}

// encodeFile writes header, compressed body and CRC32C trailer. The
// body is buffered first so the header can carry its compressed
// length, which lets readers stop the decompressor exactly at the
// trailer.
func encodeFile(w io.Writer, h *persistence.FileHeader, body func(*persistence.Writer) error) error {
	var buf bytes.Buffer
	bw, err := persistence.NewBodyWriter(&buf, h.Flags)
	if err != nil {
		return err
	}
	if err := body(persistence.NewWriter(bw)); err != nil {
		return err
	}
	if err := bw.Close(); err != nil {
		return err
	}
	h.BodyLen = uint64(buf.Len())

	cw := persistence.NewChecksumWriter(w)
	if err := persistence.NewWriter(cw).WriteHeader(h); err != nil {
		return err
	}
	if _, err := cw.Write(buf.Bytes()); err != nil {
		return err
	}
	return persistence.NewWriter(w).WriteUint32(cw.Sum())
}

// decodeFile reads header and body from a stream and verifies the
// trailer against everything read.
func decodeFile(r io.Reader, wantMagic uint32, body func(*persistence.Reader, *persistence.FileHeader) error) error {
	cr := persistence.NewChecksumReader(r)

	h, err := persistence.NewReader(cr).ReadHeader()
	if err != nil {
		return err
	}
	if h.Magic != wantMagic {
		return fmt.Errorf("%w: found %s, want %s", persistence.ErrInvalidMagic, kindName(h.Magic), kindName(wantMagic))
	}

	lr := io.LimitReader(cr, int64(h.BodyLen))
	br, err := persistence.NewBodyReader(lr, h.Flags)
	if err != nil {
		return err
	}
	if err := body(persistence.NewReader(br), h); err != nil {
		return err
	}
	if err := br.Close(); err != nil {
		return err
	}
	// The decompressor may not have drained its source; the trailer
	// covers every body byte.
	if _, err := io.Copy(io.Discard, lr); err != nil {
		return err
	}

	trailer, err := persistence.NewReader(r).ReadUint32()
	if err != nil {
		return err
	}
	return cr.Verify(trailer)
}

// decodeBytes decodes a whole in-memory (typically mapped) file. The
// checksum is verified up front; with an uncompressed body, decoded
// hash slices alias data.
func decodeBytes(data []byte, wantMagic uint32, body func(*persistence.Reader, *persistence.FileHeader) error) error {
	if len(data) < 68 {
		return fmt.Errorf("%w: file of %d bytes is shorter than header and trailer", persistence.ErrInvalidMagic, len(data))
	}
	payload := data[:len(data)-4]
	trailer := uint32(data[len(data)-4]) | uint32(data[len(data)-3])<<8 |
		uint32(data[len(data)-2])<<16 | uint32(data[len(data)-1])<<24
	if sum := persistence.Checksum(payload); sum != trailer {
		return &persistence.ChecksumMismatchError{Expected: trailer, Actual: sum}
	}

	v := persistence.NewViewReader(payload)
	h, err := persistence.NewReader(v).ReadHeader()
	if err != nil {
		return err
	}
	if h.Magic != wantMagic {
		return fmt.Errorf("%w: found %s, want %s", persistence.ErrInvalidMagic, kindName(h.Magic), kindName(wantMagic))
	}

	if h.Flags == 0 {
		return body(persistence.NewReader(v), h)
	}
	br, err := persistence.NewBodyReader(io.LimitReader(v, int64(h.BodyLen)), h.Flags)
	if err != nil {
		return err
	}
	if err := body(persistence.NewReader(br), h); err != nil {
		return err
	}
	return br.Close()
}

func kindName(magic uint32) string {
	switch magic {
	case persistence.MagicDatabase:
		return "genome database"
	case persistence.MagicSample:
		return "sample sketch"
	default:
		return fmt.Sprintf("unknown kind 0x%08x", magic)
	}
}

// packBits packs n flags into 64-bit words, little-endian within each
// word. A nil slice packs as all-false.
func packBits(bits []bool, n int) []uint64 {
	words := make([]uint64, (n+63)/64)
	for i, set := range bits {
		if set {
			words[i/64] |= 1 << (i % 64)
		}
	}
	return words
}

func unpackBits(words []uint64, n int) ([]bool, error) {
	if len(words) != (n+63)/64 {
		return nil, fmt.Errorf("unique-tag bitset holds %d words, want %d", len(words), (n+63)/64)
	}
	bits := make([]bool, n)
	for i := range bits {
		bits[i] = words[i/64]&(1<<(i%64)) != 0
	}
	return bits, nil
}

// writeGenomeBody emits one genome entry of a database body.
func writeGenomeBody(bw *persistence.Writer, g *GenomeSketch, marked bool) error {
	if err := bw.WriteString(g.Name); err != nil {
		return err
	}
	if err := bw.WriteString(g.FirstContig); err != nil {
		return err
	}
	if err := bw.WriteUint64(g.GenomeLength); err != nil {
		return err
	}
	if err := bw.WriteUint64(g.TotalSites); err != nil {
		return err
	}
	if err := bw.WriteUint64(g.MultiCopy); err != nil {
		return err
	}
	if err := bw.WriteUint64Slice(g.Hashes); err != nil {
		return err
	}
	if marked {
		return bw.WriteUint64Slice(packBits(g.Unique, len(g.Hashes)))
	}
	return nil
}

// readGenomeBody reads one genome entry of a database body.
func readGenomeBody(br *persistence.Reader, params Params, marked bool) (*GenomeSketch, error) {
	g := &GenomeSketch{Params: params}
	var err error
	if g.Name, err = br.ReadString(); err != nil {
		return nil, err
	}
	if g.FirstContig, err = br.ReadString(); err != nil {
		return nil, err
	}
	if g.GenomeLength, err = br.ReadUint64(); err != nil {
		return nil, err
	}
	if g.TotalSites, err = br.ReadUint64(); err != nil {
		return nil, err
	}
	if g.MultiCopy, err = br.ReadUint64(); err != nil {
		return nil, err
	}
	if g.Hashes, err = br.ReadUint64Slice(); err != nil {
		return nil, err
	}
	if marked {
		words, err := br.ReadUint64Slice()
		if err != nil {
			return nil, err
		}
		if g.Unique, err = unpackBits(words, len(g.Hashes)); err != nil {
			return nil, fmt.Errorf("genome %q: %w", g.Name, err)
		}
	}
	return g, nil
}

// EncodeDatabaseSeq writes a genome database file from a sketch
// stream, holding only one sketch at a time. count must match the
// number of sketches the stream yields.
func EncodeDatabaseSeq(w io.Writer, params Params, count uint32, genomes iter.Seq2[*GenomeSketch, error], flags uint16) error {
	if count == 0 {
		return ErrNoSketches
	}

	h := paramsHeader(persistence.MagicDatabase, params, count, flags)
	marked := flags&persistence.FlagMarked != 0
	var written uint32
	err := encodeFile(w, h, func(bw *persistence.Writer) error {
		for g, err := range genomes {
			if err != nil {
				return err
			}
			if err := params.Validate(g.Params); err != nil {
				return fmt.Errorf("sketch %q: %w", g.Name, err)
			}
			if err := writeGenomeBody(bw, g, marked); err != nil {
				return err
			}
			written++
		}
		return nil
	})
	if err != nil {
		return err
	}
	if written != count {
		return fmt.Errorf("sketch stream yielded %d units, header says %d", written, count)
	}
	return nil
}

// EncodeDatabase writes a genome database file. Every sketch must share
// params.
func EncodeDatabase(w io.Writer, params Params, genomes []*GenomeSketch, flags uint16) error {
	seq := func(yield func(*GenomeSketch, error) bool) {
		for _, g := range genomes {
			if !yield(g, nil) {
				return
			}
		}
	}
	return EncodeDatabaseSeq(w, params, uint32(len(genomes)), seq, flags)
}

func readGenomes(br *persistence.Reader, h *persistence.FileHeader) ([]*GenomeSketch, error) {
	params := headerParams(h)
	marked := h.Flags&persistence.FlagMarked != 0
	genomes := make([]*GenomeSketch, 0, h.UnitCount)
	for i := uint32(0); i < h.UnitCount; i++ {
		g, err := readGenomeBody(br, params, marked)
		if err != nil {
			return nil, err
		}
		genomes = append(genomes, g)
	}
	return genomes, nil
}

// DecodeDatabase reads a genome database file from a stream.
func DecodeDatabase(r io.Reader) ([]*GenomeSketch, error) {
	var genomes []*GenomeSketch
	err := decodeFile(r, persistence.MagicDatabase, func(br *persistence.Reader, h *persistence.FileHeader) error {
		var err error
		genomes, err = readGenomes(br, h)
		return err
	})
	if err != nil {
		return nil, err
	}
	return genomes, nil
}

// DecodeDatabaseBytes decodes a database held in memory. When the file
// was written without compression the returned hash slices alias data,
// so a backing mapping must stay open while the sketches are in use.
func DecodeDatabaseBytes(data []byte) ([]*GenomeSketch, error) {
	var genomes []*GenomeSketch
	err := decodeBytes(data, persistence.MagicDatabase, func(br *persistence.Reader, h *persistence.FileHeader) error {
		var err error
		genomes, err = readGenomes(br, h)
		return err
	})
	if err != nil {
		return nil, err
	}
	return genomes, nil
}

// EncodeSample writes a sample sketch file holding one sample.
func EncodeSample(w io.Writer, s *SampleSketch, flags uint16) error {
	h := paramsHeader(persistence.MagicSample, s.Params, 1, flags)
	return encodeFile(w, h, func(bw *persistence.Writer) error {
		if err := bw.WriteString(s.Name); err != nil {
			return err
		}
		if err := bw.WriteUint64(s.Reads); err != nil {
			return err
		}
		if err := bw.WriteFloat64(s.MeanReadLen); err != nil {
			return err
		}
		if err := bw.WriteUint64(s.TotalTags); err != nil {
			return err
		}
		hashes := make([]uint64, len(s.Records))
		counts := make([]uint32, len(s.Records))
		for i, rec := range s.Records {
			hashes[i] = rec.Hash
			counts[i] = rec.Count
		}
		if err := bw.WriteUint64Slice(hashes); err != nil {
			return err
		}
		return bw.WriteUint32Slice(counts)
	})
}

// DecodeSample reads a sample sketch file from a stream.
func DecodeSample(r io.Reader) (*SampleSketch, error) {
	var sample *SampleSketch
	err := decodeFile(r, persistence.MagicSample, func(br *persistence.Reader, h *persistence.FileHeader) error {
		if h.UnitCount != 1 {
			return fmt.Errorf("sample sketch holds %d units, want 1", h.UnitCount)
		}
		s := &SampleSketch{Params: headerParams(h)}
		var err error
		if s.Name, err = br.ReadString(); err != nil {
			return err
		}
		if s.Reads, err = br.ReadUint64(); err != nil {
			return err
		}
		if s.MeanReadLen, err = br.ReadFloat64(); err != nil {
			return err
		}
		if s.TotalTags, err = br.ReadUint64(); err != nil {
			return err
		}
		hashes, err := br.ReadUint64Slice()
		if err != nil {
			return err
		}
		counts, err := br.ReadUint32Slice()
		if err != nil {
			return err
		}
		if len(hashes) != len(counts) {
			return fmt.Errorf("sample sketch has %d hashes but %d counts", len(hashes), len(counts))
		}
		s.Records = make([]TagRecord, len(hashes))
		for i := range hashes {
			s.Records[i] = TagRecord{Hash: hashes[i], Count: counts[i]}
		}
		sample = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sample, nil
}

// SaveDatabase writes a database file atomically.
func SaveDatabase(path string, params Params, genomes []*GenomeSketch, flags uint16) error {
	return persistence.SaveToFile(path, func(w io.Writer) error {
		return EncodeDatabase(w, params, genomes, flags)
	})
}

// LoadDatabase reads a database file.
func LoadDatabase(path string) ([]*GenomeSketch, error) {
	var genomes []*GenomeSketch
	err := persistence.LoadFromFile(path, func(r io.Reader) error {
		var err error
		genomes, err = DecodeDatabase(r)
		return err
	})
	if err != nil {
		return nil, err
	}
	return genomes, nil
}

// SaveSample writes a sample sketch file atomically.
func SaveSample(path string, s *SampleSketch, flags uint16) error {
	return persistence.SaveToFile(path, func(w io.Writer) error {
		return EncodeSample(w, s, flags)
	})
}

// LoadSample reads a sample sketch file.
func LoadSample(path string) (*SampleSketch, error) {
	var sample *SampleSketch
	err := persistence.LoadFromFile(path, func(r io.Reader) error {
		var err error
		sample, err = DecodeSample(r)
		return err
	})
	if err != nil {
		return nil, err
	}
	return sample, nil
}

// FileInfo summarizes a sketch file without decoding its body.
type FileInfo struct {
	Kind      string
	Params    Params
	UnitCount uint32
	Created   time.Time
	Flags     uint16
	BodyLen   uint64
}

// ReadFileInfo reads only the header of a sketch file.
func ReadFileInfo(path string) (*FileInfo, error) {
	var info *FileInfo
	err := persistence.LoadFromFile(path, func(r io.Reader) error {
		h, err := persistence.NewReader(r).ReadHeader()
		if err != nil {
			return err
		}
		info = &FileInfo{
			Kind:      kindName(h.Magic),
			Params:    headerParams(h),
			UnitCount: h.UnitCount,
			Created:   time.Unix(0, h.Created),
			Flags:     h.Flags,
			BodyLen:   h.BodyLen,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}
