// Package persistence provides the binary file layer shared by all
// sketch formats: fixed header, little-endian primitives, raw slice
// blocks, body compression, checksummed trailers, and atomic
// write-to-temp-then-rename saves.
package persistence

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unsafe"
)

// Raw slice blocks are written as native memory, which is only valid on
// little-endian hosts. Refuse to start anywhere else.
func init() {
	var probe uint16 = 0x0001
	if *(*byte)(unsafe.Pointer(&probe)) != 1 {
		panic("tagseek/persistence: big-endian hosts are not supported")
	}
}

const (
	// maxNameLen bounds unit-name strings read back from files.
	maxNameLen = 1 << 16
	// maxSliceLen bounds record-slice counts read back from files.
	maxSliceLen = 1 << 31
)

// Writer emits the sketch binary format onto an io.Writer.
type Writer struct {
	w     io.Writer
	order binary.ByteOrder
}

// NewWriter creates a new binary writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, order: binary.LittleEndian}
}

// WriteHeader stamps the format version and writes the 64-byte header.
// The magic must already identify the file kind.
func (bw *Writer) WriteHeader(h *FileHeader) error {
	if h.Magic != MagicDatabase && h.Magic != MagicSample {
		return fmt.Errorf("%w: 0x%08x", ErrInvalidMagic, h.Magic)
	}
	if _, _, err := h.Compression(); err != nil {
		return err
	}
	h.Version = Version
	return binary.Write(bw.w, bw.order, h)
}

// WriteUint32 writes one little-endian uint32.
func (bw *Writer) WriteUint32(v uint32) error {
	return binary.Write(bw.w, bw.order, v)
}

// WriteUint64 writes one little-endian uint64.
func (bw *Writer) WriteUint64(v uint64) error {
	return binary.Write(bw.w, bw.order, v)
}

// WriteFloat64 writes one little-endian float64.
func (bw *Writer) WriteFloat64(v float64) error {
	return binary.Write(bw.w, bw.order, v)
}

// WriteString writes a length-prefixed UTF-8 string.
func (bw *Writer) WriteString(s string) error {
	if len(s) > maxNameLen {
		return fmt.Errorf("string of %d bytes exceeds format limit", len(s))
	}
	if err := bw.WriteUint32(uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(bw.w, s)
	return err
}

// WriteUint64Slice writes a count-prefixed uint64 slice as raw memory.
func (bw *Writer) WriteUint64Slice(s []uint64) error {
	if err := bw.WriteUint32(uint32(len(s))); err != nil {
		return err
	}
	if len(s) == 0 {
		return nil
	}
	raw := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*8)
	_, err := bw.w.Write(raw)
	return err
}

// WriteUint32Slice writes a count-prefixed uint32 slice as raw memory.
func (bw *Writer) WriteUint32Slice(s []uint32) error {
	if err := bw.WriteUint32(uint32(len(s))); err != nil {
		return err
	}
	if len(s) == 0 {
		return nil
	}
	raw := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4)
	_, err := bw.w.Write(raw)
	return err
}

// Reader consumes the sketch binary format from an io.Reader.
type Reader struct {
	r     io.Reader
	order binary.ByteOrder
}

// NewReader creates a new binary reader.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r, order: binary.LittleEndian}
}

// ReadHeader reads and validates the 64-byte header.
func (br *Reader) ReadHeader() (*FileHeader, error) {
	var h FileHeader
	if err := binary.Read(br.r, br.order, &h); err != nil {
		return nil, err
	}
	if h.Magic != MagicDatabase && h.Magic != MagicSample {
		return nil, fmt.Errorf("%w: got 0x%08x", ErrInvalidMagic, h.Magic)
	}
	if h.Version > Version {
		return nil, fmt.Errorf("%w: got 0x%04x", ErrInvalidVersion, h.Version)
	}
	if _, _, err := h.Compression(); err != nil {
		return nil, err
	}
	return &h, nil
}

// ReadUint32 reads one little-endian uint32.
func (br *Reader) ReadUint32() (uint32, error) {
	var v uint32
	err := binary.Read(br.r, br.order, &v)
	return v, err
}

// ReadUint64 reads one little-endian uint64.
func (br *Reader) ReadUint64() (uint64, error) {
	var v uint64
	err := binary.Read(br.r, br.order, &v)
	return v, err
}

// ReadFloat64 reads one little-endian float64.
func (br *Reader) ReadFloat64() (float64, error) {
	var v float64
	err := binary.Read(br.r, br.order, &v)
	return v, err
}

// ReadString reads a length-prefixed string.
func (br *Reader) ReadString() (string, error) {
	n, err := br.ReadUint32()
	if err != nil {
		return "", err
	}
	if n > maxNameLen {
		return "", fmt.Errorf("string length %d exceeds format limit", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(br.r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// ReadUint64Slice reads a count-prefixed uint64 slice. When the reader
// is backed by a ViewReader over an aligned mapped region, the result
// aliases the mapping instead of copying.
func (br *Reader) ReadUint64Slice() ([]uint64, error) {
	n, err := br.ReadUint32()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	if uint64(n) > maxSliceLen {
		return nil, fmt.Errorf("slice length %d exceeds format limit", n)
	}
	if v, ok := br.r.(*ViewReader); ok {
		return viewUint64s(v, int(n))
	}
	s := make([]uint64, n)
	raw := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), int(n)*8)
	if _, err := io.ReadFull(br.r, raw); err != nil {
		return nil, err
	}
	return s, nil
}

// ReadUint32Slice reads a count-prefixed uint32 slice, aliasing the
// mapping on the ViewReader fast path.
func (br *Reader) ReadUint32Slice() ([]uint32, error) {
	n, err := br.ReadUint32()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	if uint64(n) > maxSliceLen {
		return nil, fmt.Errorf("slice length %d exceeds format limit", n)
	}
	if v, ok := br.r.(*ViewReader); ok {
		return viewUint32s(v, int(n))
	}
	s := make([]uint32, n)
	raw := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), int(n)*4)
	if _, err := io.ReadFull(br.r, raw); err != nil {
		return nil, err
	}
	return s, nil
}

// SaveToFile writes a file atomically: the content goes to a temp file
// in the destination directory, is fsynced, then renamed over the
// target, and the directory entry is synced best-effort. A crash never
// leaves a partially written file under the final name.
func SaveToFile(filename string, writeFunc func(io.Writer) error) error {
	dir := filepath.Dir(filename)
	base := filepath.Base(filename)

	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	_ = tmp.Chmod(0o644)

	buf := bufio.NewWriterSize(tmp, 256*1024)
	if err := writeFunc(buf); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpName, filename); err != nil {
		return err
	}

	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}

	tmpName = ""
	return nil
}

// LoadFromFile opens filename and hands a buffered reader to readFunc.
func LoadFromFile(filename string, readFunc func(io.Reader) error) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	return readFunc(bufio.NewReaderSize(f, 256*1024))
}
