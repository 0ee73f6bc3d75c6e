package bitio

// Writer writes individual bits into a byte slice, MSB-first within each
// byte. Bits are set or cleared explicitly, so the destination does not need
// to be zeroed first and may alias a Reader's buffer as long as the write
// position never passes the read position.
type Writer struct {
	data []byte
	pos  int // bit position
}

// NewWriter creates a Writer over buf.
func NewWriter(buf []byte) *Writer {
	return &Writer{data: buf}
}

// WriteBit writes the low bit of bit at the current position.
func (w *Writer) WriteBit(bit uint32) {
	mask := byte(1) << (7 - w.pos&7)
	if bit&1 != 0 {
		w.data[w.pos>>3] |= mask
	} else {
		w.data[w.pos>>3] &^= mask
	}
	w.pos++
}

// BitPos returns the current bit position.
func (w *Writer) BitPos() int {
	return w.pos
}
