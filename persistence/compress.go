package persistence

import (
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// NewBodyWriter wraps w with the compressor selected by the header
// flags. The caller must Close the returned writer to flush compressed
// frames before writing the checksum trailer.
func NewBodyWriter(w io.Writer, flags uint16) (io.WriteCloser, error) {
	switch {
	case flags&FlagZstd != 0:
		return zstd.NewWriter(w)
	case flags&FlagLZ4 != 0:
		return lz4.NewWriter(w), nil
	default:
		return nopWriteCloser{w}, nil
	}
}

// NewBodyReader wraps r with the decompressor matching the header
// flags.
func NewBodyReader(r io.Reader, flags uint16) (io.ReadCloser, error) {
	switch {
	case flags&FlagZstd != 0:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	case flags&FlagLZ4 != 0:
		return io.NopCloser(lz4.NewReader(r)), nil
	default:
		return io.NopCloser(r), nil
	}
}
