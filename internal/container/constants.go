// Package container defines constants and parsing primitives for the PNG
// chunk container format and its APNG animation extension: chunk type tags,
// the file signature, fixed chunk layouts, and the bounds-checked chunk
// cursor used by the decoder.
package container

import "encoding/binary"

// Tag creates a chunk type tag from four ASCII bytes. PNG type tags are
// read as big-endian 32-bit words.
func Tag(a, b, c, d byte) uint32 {
	return uint32(a)<<24 | uint32(b)<<16 | uint32(c)<<8 | uint32(d)
}

// Chunk type tags.
var (
	TagIHDR = Tag('I', 'H', 'D', 'R')
	TagPLTE = Tag('P', 'L', 'T', 'E')
	TagTRNS = Tag('t', 'R', 'N', 'S')
	TagIDAT = Tag('I', 'D', 'A', 'T')
	TagIEND = Tag('I', 'E', 'N', 'D')
	TagACTL = Tag('a', 'c', 'T', 'L')
	TagFCTL = Tag('f', 'c', 'T', 'L')
	TagFDAT = Tag('f', 'd', 'A', 'T')
)

// Signature is the fixed 8-byte PNG file signature.
var Signature = [8]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// ancillaryBit is bit 5 of the first tag byte. When set, the chunk is
// ancillary (safe to skip); when clear, the chunk is critical and a decoder
// that does not recognize it must fail.
const ancillaryBit = uint32(0x20) << 24

// Container structure sizes and offsets.
const (
	LengthSize    = 4                              // chunk payload length field
	TagSize       = 4                              // chunk type tag
	CRCSize       = 4                              // chunk CRC field (framing only, never verified)
	ChunkOverhead = LengthSize + TagSize + CRCSize // fixed per-chunk overhead

	SignatureSize = 8
	IHDRSize      = 13 // IHDR payload
	ACTLSize      = 8  // acTL payload
	FCTLSize      = 26 // fcTL payload
	FDATPrefix    = 4  // fdAT sequence number preceding frame data

	// HeaderMinSize is the smallest buffer that can hold the signature plus
	// the IHDR chunk header and payload. All IHDR fields sit at fixed
	// offsets below this bound.
	HeaderMinSize = SignatureSize + LengthSize + TagSize + IHDRSize
)

// IHDR field offsets, relative to the start of the file.
const (
	offWidth     = 16
	offHeight    = 20
	offBitDepth  = 24
	offColorType = 25
	offCompress  = 26
	offFilter    = 27
	offInterlace = 28
)

// ReadBE16 reads a big-endian uint16 from data.
func ReadBE16(data []byte) uint16 {
	return binary.BigEndian.Uint16(data)
}

// ReadBE32 reads a big-endian uint32 from data.
func ReadBE32(data []byte) uint32 {
	return binary.BigEndian.Uint32(data)
}

// PutBE16 writes a big-endian uint16 to data.
func PutBE16(data []byte, v uint16) {
	binary.BigEndian.PutUint16(data, v)
}

// PutBE32 writes a big-endian uint32 to data.
func PutBE32(data []byte, v uint32) {
	binary.BigEndian.PutUint32(data, v)
}
