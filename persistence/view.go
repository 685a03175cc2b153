package persistence

import (
	"io"
	"unsafe"
)

// ViewReader is an io.Reader over a memory-mapped region that can hand
// out zero-copy subslices of the backing data. The region must outlive
// every slice returned through it.
type ViewReader struct {
	data []byte
	off  int
}

// NewViewReader creates a ViewReader over data.
func NewViewReader(data []byte) *ViewReader {
	return &ViewReader{data: data}
}

// Read implements io.Reader.
func (v *ViewReader) Read(p []byte) (int, error) {
	if v.off >= len(v.data) {
		return 0, io.EOF
	}
	n := copy(p, v.data[v.off:])
	v.off += n
	return n, nil
}

// Len returns the number of unread bytes.
func (v *ViewReader) Len() int {
	if v.off >= len(v.data) {
		return 0
	}
	return len(v.data) - v.off
}

// window advances past n bytes and returns them without copying.
func (v *ViewReader) window(n int) ([]byte, error) {
	if v.Len() < n {
		return nil, io.ErrUnexpectedEOF
	}
	b := v.data[v.off : v.off+n : v.off+n]
	v.off += n
	return b, nil
}

// aligned reports whether the next unread byte sits on an n-byte
// boundary of the backing region.
func (v *ViewReader) aligned(n int) bool {
	if v.Len() == 0 {
		return false
	}
	return uintptr(unsafe.Pointer(&v.data[v.off]))%uintptr(n) == 0
}

func viewUint64s(v *ViewReader, count int) ([]uint64, error) {
	if count == 0 {
		return nil, nil
	}
	if !v.aligned(8) {
		s := make([]uint64, count)
		raw := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), count*8)
		if _, err := io.ReadFull(v, raw); err != nil {
			return nil, err
		}
		return s, nil
	}
	b, err := v.window(count * 8)
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*uint64)(unsafe.Pointer(&b[0])), count), nil
}

func viewUint32s(v *ViewReader, count int) ([]uint32, error) {
	if count == 0 {
		return nil, nil
	}
	if !v.aligned(4) {
		s := make([]uint32, count)
		raw := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), count*4)
		if _, err := io.ReadFull(v, raw); err != nil {
			return nil, err
		}
		return s, nil
	}
	b, err := v.window(count * 4)
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&b[0])), count), nil
}
