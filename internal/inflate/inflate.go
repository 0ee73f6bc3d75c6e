package inflate

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"

	"github.com/deepteams/apng/internal/bitio"
)

var (
	ErrBlockType    = errors.New("inflate: invalid DEFLATE block type")
	ErrStoredLength = errors.New("inflate: stored block length check failed")
	ErrOverflow     = errors.New("inflate: output exceeds buffer capacity")
	ErrCorrupt      = errors.New("inflate: corrupt DEFLATE stream")
)

// EngineFunc is the contract for the external inflate engine. It decodes a
// complete DEFLATE stream from src into dst in a single call and returns the
// number of bytes produced. dst is never grown; producing more than len(dst)
// bytes is an error.
type EngineFunc func(dst, src []byte) (int, error)

// Engine is the external inflate engine used for Huffman-coded blocks.
// Tests may substitute it; the stored-block path never calls it.
var Engine EngineFunc = flateEngine

// DEFLATE block types.
const (
	blockStored  = 0
	blockFixed   = 1
	blockDynamic = 2
)

// Raw inflates a raw DEFLATE stream (no zlib wrapper) from src into dst and
// returns the number of bytes produced.
//
// Block headers are read LSB-first. Stored blocks are byte-aligned and
// copied directly. On the first Huffman-coded block the entire remaining
// stream, which is byte-aligned at every block boundary this reader can
// reach, is handed to Engine in one call; the engine consumes through the
// final block. Back-references from an engine-decoded block into bytes
// produced by a preceding stored block are not resolvable under this
// contract and surface as a corrupt-stream error.
func Raw(dst, src []byte) (int, error) {
	br := bitio.NewReader(src, bitio.LSBFirst)
	out := 0
	for {
		blockStart := br.BytePos()
		bfinal, err := br.ReadBits(1)
		if err != nil {
			return out, fmt.Errorf("%w: missing block header", ErrCorrupt)
		}
		btype, err := br.ReadBits(2)
		if err != nil {
			return out, fmt.Errorf("%w: missing block header", ErrCorrupt)
		}

		switch btype {
		case blockStored:
			br.AlignByte()
			pos := br.BytePos()
			if pos+4 > len(src) {
				return out, fmt.Errorf("%w: truncated stored block header", ErrCorrupt)
			}
			// LEN and NLEN, little-endian; NLEN is the one's complement.
			length := int(src[pos]) | int(src[pos+1])<<8
			nlength := int(src[pos+2]) | int(src[pos+3])<<8
			if length+nlength != 0xffff {
				return out, ErrStoredLength
			}
			pos += 4
			if pos+length > len(src) {
				return out, fmt.Errorf("%w: stored block needs %d input bytes", ErrCorrupt, length)
			}
			if out+length > len(dst) {
				return out, ErrOverflow
			}
			copy(dst[out:], src[pos:pos+length])
			out += length
			br.SkipBits((4 + length) * 8)
			if bfinal == 1 {
				return out, nil
			}

		case blockFixed, blockDynamic:
			n, err := Engine(dst[out:], src[blockStart:])
			if err != nil {
				return out + n, fmt.Errorf("%w: %v", ErrCorrupt, err)
			}
			return out + n, nil

		default:
			return out, ErrBlockType
		}
	}
}

// flateEngine is the default external engine, backed by
// klauspost/compress/flate.
func flateEngine(dst, src []byte) (int, error) {
	fr := flate.NewReader(bytes.NewReader(src))
	defer fr.Close()

	n, err := io.ReadFull(fr, dst)
	switch {
	case err == io.EOF || err == io.ErrUnexpectedEOF:
		// Stream ended before filling dst; the caller decides whether the
		// count is acceptable.
		return n, nil
	case err != nil:
		return n, err
	}
	// dst is full. Any further output would overflow the caller's buffer.
	var probe [1]byte
	if m, _ := fr.Read(probe[:]); m > 0 {
		return n, ErrOverflow
	}
	return n, nil
}
