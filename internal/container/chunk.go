package container

import (
	"errors"
	"fmt"
)

// Chunk is an ephemeral, non-owning view of a single chunk: its declared
// payload length, type tag, and payload slice. Data is a sub-slice of the
// source buffer (zero-copy) and must not outlive it.
type Chunk struct {
	Tag    uint32
	Length uint32
	Data   []byte
}

var (
	ErrShortChunk = errors.New("container: truncated chunk header")
	ErrTruncated  = errors.New("container: chunk payload exceeds buffer")
)

// Ancillary reports whether the chunk's type tag has the ancillary bit set.
// Critical chunks (bit clear) must be understood by the decoder.
func (c Chunk) Ancillary() bool {
	return c.Tag&ancillaryBit != 0
}

// TagString returns the chunk's type tag as a four-character string.
func (c Chunk) TagString() string {
	return TagString(c.Tag)
}

// TagString returns a human-readable string for a chunk type tag.
func TagString(tag uint32) string {
	return string([]byte{
		byte(tag >> 24),
		byte(tag >> 16),
		byte(tag >> 8),
		byte(tag),
	})
}

// Cursor walks a byte buffer as a sequence of chunks. It validates every
// chunk's declared payload length against the buffer bounds before exposing
// a view, and can never advance past the end of the buffer.
type Cursor struct {
	buf []byte
	pos int
}

// NewCursor creates a cursor over buf starting at byte offset pos.
func NewCursor(buf []byte, pos int) *Cursor {
	return &Cursor{buf: buf, pos: pos}
}

// Offset returns the cursor's current byte offset within the buffer.
func (c *Cursor) Offset() int {
	return c.pos
}

// More reports whether at least one full chunk header remains.
func (c *Cursor) More() bool {
	return c.pos+LengthSize+TagSize <= len(c.buf)
}

// Peek reads the chunk at the cursor without advancing. It fails when the
// header is truncated or the declared payload plus chunk overhead would
// extend past the end of the buffer.
func (c *Cursor) Peek() (Chunk, error) {
	if !c.More() {
		return Chunk{}, fmt.Errorf("%w: offset %d, have %d bytes", ErrShortChunk, c.pos, len(c.buf)-c.pos)
	}
	length := ReadBE32(c.buf[c.pos:])
	tag := ReadBE32(c.buf[c.pos+LengthSize:])
	end := c.pos + ChunkOverhead + int(length)
	if int(length) < 0 || end < c.pos || end > len(c.buf) {
		return Chunk{}, fmt.Errorf("%w: chunk %s at offset %d declares %d payload bytes",
			ErrTruncated, TagString(tag), c.pos, length)
	}
	dataStart := c.pos + LengthSize + TagSize
	return Chunk{
		Tag:    tag,
		Length: length,
		Data:   c.buf[dataStart : dataStart+int(length)],
	}, nil
}

// Advance moves the cursor past ch (payload plus fixed chunk overhead).
// ch must be the chunk most recently returned by Peek.
func (c *Cursor) Advance(ch Chunk) {
	c.pos += ChunkOverhead + int(ch.Length)
}
