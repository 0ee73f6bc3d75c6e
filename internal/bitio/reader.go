// Package bitio provides the bit-level cursor shared by the decoder's
// byte-stream algorithms. The same Reader serves two consumers with opposite
// bit orders: the DEFLATE stored-block reader (LSB-first within each byte)
// and the scanline padding-bit remover (MSB-first within each byte).
package bitio

import "errors"

// Mode selects the bit order within each byte.
type Mode int

const (
	// MSBFirst reads the most significant bit of each byte first,
	// as PNG packs sub-byte pixels.
	MSBFirst Mode = iota
	// LSBFirst reads the least significant bit of each byte first,
	// as DEFLATE packs its block headers and fields.
	LSBFirst
)

// ErrUnderflow is returned when a read would pass the end of the buffer.
var ErrUnderflow = errors.New("bitio: read past end of buffer")

// maxReadBits is the largest single ReadBits request.
const maxReadBits = 32

// Reader reads individual bits from a byte slice. The cursor is a plain bit
// index; it never advances past len(data)*8.
type Reader struct {
	data []byte
	mode Mode
	pos  int // bit position
}

// NewReader creates a Reader over data using the given bit order.
func NewReader(data []byte, mode Mode) *Reader {
	return &Reader{data: data, mode: mode}
}

// ReadBit reads a single bit.
func (r *Reader) ReadBit() (uint32, error) {
	if r.pos >= len(r.data)*8 {
		return 0, ErrUnderflow
	}
	var bit uint32
	if r.mode == LSBFirst {
		bit = uint32(r.data[r.pos>>3]>>(r.pos&7)) & 1
	} else {
		bit = uint32(r.data[r.pos>>3]>>(7-r.pos&7)) & 1
	}
	r.pos++
	return bit, nil
}

// ReadBits reads n bits (0..32) and returns them as an unsigned value.
// In LSBFirst mode the first bit read is the least significant bit of the
// result; in MSBFirst mode it is the most significant.
func (r *Reader) ReadBits(n int) (uint32, error) {
	if n < 0 || n > maxReadBits {
		return 0, ErrUnderflow
	}
	if r.pos+n > len(r.data)*8 {
		return 0, ErrUnderflow
	}
	var v uint32
	if r.mode == LSBFirst {
		for i := 0; i < n; i++ {
			bit := uint32(r.data[r.pos>>3]>>(r.pos&7)) & 1
			v |= bit << uint(i)
			r.pos++
		}
	} else {
		for i := 0; i < n; i++ {
			bit := uint32(r.data[r.pos>>3]>>(7-r.pos&7)) & 1
			v = v<<1 | bit
			r.pos++
		}
	}
	return v, nil
}

// AlignByte advances the cursor to the next byte boundary. A cursor already
// on a boundary does not move.
func (r *Reader) AlignByte() {
	r.pos = (r.pos + 7) &^ 7
}

// SkipBits advances the cursor by n bits without reading, clamping at the
// end of the buffer.
func (r *Reader) SkipBits(n int) {
	r.pos += n
	if limit := len(r.data) * 8; r.pos > limit {
		r.pos = limit
	}
}

// BitPos returns the current bit position.
func (r *Reader) BitPos() int {
	return r.pos
}

// BytePos returns the byte offset of the cursor. The cursor must be
// byte-aligned; callers use AlignByte first.
func (r *Reader) BytePos() int {
	return r.pos >> 3
}

// Remaining returns the number of unread bits.
func (r *Reader) Remaining() int {
	return len(r.data)*8 - r.pos
}
