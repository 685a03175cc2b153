package sketch

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/tagseek/persistence"
)

// Spill segments hold finished genome sketches that did not fit the
// memory budget. The segment is a temp file of independent frames:
//
//	[ord:8][rawLen:4][compLen:4][payload:compLen][crc:4]
//
// after a 16-byte header. Payloads are lz4 block compressed; a frame
// whose compLen equals rawLen is stored raw. Each frame carries its
// own CRC32C so a damaged segment fails replay instead of producing a
// silently wrong database.

var spillMagic = [4]byte{'T', 'S', 'S', '0'}

const (
	spillHeaderLen   = 16
	spillVersion     = uint16(1)
	spillFrameFixed  = 16 // ord + rawLen + compLen
	spillFrameMaxRaw = 1 << 30
)

// spillWriter appends sketch frames to a segment file.
type spillWriter struct {
	f      *os.File
	w      *bufio.Writer
	off    int64
	frames int

	enc  bytes.Buffer
	comp []byte
}

func newSpillWriter(dir string) (*spillWriter, error) {
	f, err := os.CreateTemp(dir, "tagseek-spill-*.seg")
	if err != nil {
		return nil, err
	}

	sw := &spillWriter{f: f, w: bufio.NewWriterSize(f, 256*1024)}

	var hdr [spillHeaderLen]byte
	copy(hdr[:4], spillMagic[:])
	binary.LittleEndian.PutUint16(hdr[4:6], spillVersion)
	// hdr[6:16] reserved
	if _, err := sw.w.Write(hdr[:]); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, err
	}
	sw.off = spillHeaderLen
	return sw, nil
}

// add appends one sketch under its input ordinal.
func (sw *spillWriter) add(ord uint64, g *GenomeSketch) error {
	sw.enc.Reset()
	if err := writeGenomeBody(persistence.NewWriter(&sw.enc), g, false); err != nil {
		return err
	}
	raw := sw.enc.Bytes()
	if len(raw) > spillFrameMaxRaw {
		return fmt.Errorf("sketch %q encodes to %d bytes, too large to spill", g.Name, len(raw))
	}

	if bound := lz4.CompressBlockBound(len(raw)); cap(sw.comp) < bound {
		sw.comp = make([]byte, bound)
	}
	n, err := lz4.CompressBlock(raw, sw.comp[:cap(sw.comp)], nil)
	if err != nil {
		return err
	}

	payload := sw.comp[:n]
	if n == 0 || n >= len(raw) {
		// Incompressible; store raw. compLen == rawLen marks it.
		payload = raw
	}

	var fixed [spillFrameFixed]byte
	binary.LittleEndian.PutUint64(fixed[0:8], ord)
	binary.LittleEndian.PutUint32(fixed[8:12], uint32(len(raw)))
	binary.LittleEndian.PutUint32(fixed[12:16], uint32(len(payload)))
	if _, err := sw.w.Write(fixed[:]); err != nil {
		return err
	}
	if _, err := sw.w.Write(payload); err != nil {
		return err
	}
	var crc [4]byte
	binary.LittleEndian.PutUint32(crc[:], persistence.Checksum(payload))
	if _, err := sw.w.Write(crc[:]); err != nil {
		return err
	}

	sw.off += int64(spillFrameFixed + len(payload) + 4)
	sw.frames++
	return nil
}

// finish flushes buffered frames so the segment can be replayed.
func (sw *spillWriter) finish() error {
	return sw.w.Flush()
}

// close removes the segment.
func (sw *spillWriter) close() {
	if sw.f != nil {
		name := sw.f.Name()
		sw.f.Close()
		os.Remove(name)
		sw.f = nil
	}
}

// spillFrameRef locates one frame inside a segment.
type spillFrameRef struct {
	ord     uint64
	off     int64 // payload offset
	rawLen  uint32
	compLen uint32
}

// scanSpill walks the segment once and indexes every frame without
// reading payloads.
func scanSpill(f *os.File) ([]spillFrameRef, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	r := bufio.NewReaderSize(f, 64*1024)

	var hdr [spillHeaderLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("spill segment header: %w", err)
	}
	if [4]byte(hdr[:4]) != spillMagic {
		return nil, fmt.Errorf("spill segment has invalid magic")
	}
	if v := binary.LittleEndian.Uint16(hdr[4:6]); v != spillVersion {
		return nil, fmt.Errorf("spill segment version %d not supported", v)
	}

	var refs []spillFrameRef
	off := int64(spillHeaderLen)
	for {
		var fixed [spillFrameFixed]byte
		if _, err := io.ReadFull(r, fixed[:]); err != nil {
			if err == io.EOF {
				return refs, nil
			}
			return nil, fmt.Errorf("spill segment truncated at frame %d: %w", len(refs), err)
		}
		ref := spillFrameRef{
			ord:     binary.LittleEndian.Uint64(fixed[0:8]),
			off:     off + spillFrameFixed,
			rawLen:  binary.LittleEndian.Uint32(fixed[8:12]),
			compLen: binary.LittleEndian.Uint32(fixed[12:16]),
		}
		if ref.rawLen > spillFrameMaxRaw || ref.compLen > ref.rawLen {
			return nil, fmt.Errorf("spill segment frame %d has implausible lengths", len(refs))
		}
		if _, err := r.Discard(int(ref.compLen) + 4); err != nil {
			return nil, fmt.Errorf("spill segment truncated at frame %d: %w", len(refs), err)
		}
		off = ref.off + int64(ref.compLen) + 4
		refs = append(refs, ref)
	}
}

// readSpillFrame decodes the sketch a frame points at.
func readSpillFrame(f *os.File, ref spillFrameRef, params Params) (*GenomeSketch, error) {
	buf := make([]byte, ref.compLen+4)
	if _, err := f.ReadAt(buf, ref.off); err != nil {
		return nil, err
	}
	payload := buf[:ref.compLen]
	crc := binary.LittleEndian.Uint32(buf[ref.compLen:])
	if sum := persistence.Checksum(payload); sum != crc {
		return nil, &persistence.ChecksumMismatchError{Expected: crc, Actual: sum}
	}

	raw := payload
	if ref.compLen != ref.rawLen {
		raw = make([]byte, ref.rawLen)
		n, err := lz4.UncompressBlock(payload, raw)
		if err != nil {
			return nil, err
		}
		if uint32(n) != ref.rawLen {
			return nil, fmt.Errorf("spill frame decompressed to %d bytes, want %d", n, ref.rawLen)
		}
	}
	return readGenomeBody(persistence.NewReader(bytes.NewReader(raw)), params, false)
}
