package persistence

import "errors"

const (
	// MagicDatabase identifies genome database files (ASCII: "SYLD").
	MagicDatabase = 0x53594C44
	// MagicSample identifies sample sketch files (ASCII: "SYLS").
	MagicSample = 0x53594C53

	// Version is the current sketch file format version.
	Version = 0x0001
)

// Header flag bits. Exactly one compression bit may be set; none means
// the body is stored raw. FlagMarked says each genome entry carries a
// unique-tag bitset after its hashes.
const (
	FlagZstd   uint16 = 1 << 0
	FlagLZ4    uint16 = 1 << 1
	FlagMarked uint16 = 1 << 2
)

var (
	ErrInvalidMagic   = errors.New("invalid magic number")
	ErrInvalidVersion = errors.New("unsupported format version")
	ErrInvalidFlags   = errors.New("invalid header flags")
)

// enzymeNameLen is the fixed space reserved for the enzyme name in the
// header. Names are NUL padded.
const enzymeNameLen = 12

// FileHeader is the 64-byte header at the start of every sketch file.
// The extraction parameters live here so readers can refuse
// incompatible cross-sketch operations before touching the body.
type FileHeader struct {
	Magic         uint32
	Version       uint16
	Flags         uint16
	Created       int64 // unix nanoseconds
	Enzyme        [enzymeNameLen]byte
	TagLen        uint8
	AnchorOffset  uint8
	Padding1      [2]byte
	MinSpacing    uint32
	SubsampleRate uint32
	UnitCount     uint32
	Padding2      [4]byte
	BodyLen       uint64 // compressed body bytes between header and trailer
	Reserved      [8]byte
}

// EnzymeName returns the NUL-trimmed enzyme name.
func (h *FileHeader) EnzymeName() string {
	for i, b := range h.Enzyme {
		if b == 0 {
			return string(h.Enzyme[:i])
		}
	}
	return string(h.Enzyme[:])
}

// SetEnzymeName stores name, truncating to the reserved space.
func (h *FileHeader) SetEnzymeName(name string) {
	h.Enzyme = [enzymeNameLen]byte{}
	copy(h.Enzyme[:], name)
}

// Compression validates the flag bits and reports which compression the
// body uses.
func (h *FileHeader) Compression() (zstd, lz4 bool, err error) {
	zstd = h.Flags&FlagZstd != 0
	lz4 = h.Flags&FlagLZ4 != 0
	if zstd && lz4 {
		return false, false, ErrInvalidFlags
	}
	return zstd, lz4, nil
}
