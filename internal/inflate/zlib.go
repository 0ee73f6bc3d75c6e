// Package inflate validates the zlib container wrapped around PNG image
// data and decompresses the DEFLATE stream inside it. Stored (uncompressed)
// DEFLATE blocks are handled in-process since they need no entropy decoding;
// everything else is delegated whole to an external inflate engine through a
// narrow function contract.
package inflate

import (
	"errors"
	"fmt"
)

var (
	ErrZlibHeader = errors.New("inflate: invalid zlib header")
	ErrDictionary = errors.New("inflate: preset dictionary not supported")
)

const (
	// deflateMethod is the only compression method defined by zlib.
	deflateMethod = 8
	// maxWindowInfo is the largest CINFO nibble (32K window).
	maxWindowInfo = 7
)

// Zlib validates the two-byte zlib header of src and inflates the DEFLATE
// stream that follows into dst. It returns the number of bytes produced.
// The trailing Adler-32 checksum is framing only and is not verified.
func Zlib(dst, src []byte) (int, error) {
	if len(src) < 2 {
		return 0, fmt.Errorf("%w: %d bytes", ErrZlibHeader, len(src))
	}
	cmf, flg := src[0], src[1]
	// The header bytes, read as a big-endian 16-bit value, must be a
	// multiple of 31 (the FCHECK relationship).
	if (uint32(cmf)*256+uint32(flg))%31 != 0 {
		return 0, fmt.Errorf("%w: FCHECK failed (cmf=%#02x flg=%#02x)", ErrZlibHeader, cmf, flg)
	}
	if cmf&0x0f != deflateMethod || cmf>>4 > maxWindowInfo {
		return 0, fmt.Errorf("%w: compression method %#02x", ErrZlibHeader, cmf)
	}
	if flg&0x20 != 0 {
		return 0, ErrDictionary
	}
	return Raw(dst, src[2:])
}
