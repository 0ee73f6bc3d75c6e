package dsp

import "github.com/deepteams/apng/internal/bitio"

// RemovePaddingBits repacks scanlines whose bit width is not a multiple of
// eight, dropping the padding bits PNG inserts at the end of each row.
//
// For each of height rows, exactly olineBits bits are copied from in to out,
// MSB-first, and ilineBits-olineBits padding bits are skipped in the input.
// out may be the same slice as in (the in-place call the decoder uses):
// olineBits <= ilineBits guarantees the read cursor never falls behind the
// write cursor.
func RemovePaddingBits(out, in []byte, olineBits, ilineBits, height int) {
	diff := ilineBits - olineBits
	r := bitio.NewReader(in, bitio.MSBFirst)
	w := bitio.NewWriter(out)
	for y := 0; y < height; y++ {
		for x := 0; x < olineBits; x++ {
			bit, _ := r.ReadBit()
			w.WriteBit(bit)
		}
		r.SkipBits(diff)
	}
}
