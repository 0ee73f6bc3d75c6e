// Package dsp implements the PNG scanline reconstruction (defiltering)
// algorithms and sub-byte pixel repacking.
//
// All filter functions use slices with explicit base offsets rather than
// pointer arithmetic. Reconstruction deliberately aliases its input and
// output buffers: each output row is written at a lower offset than the
// corresponding input row (the per-row filter-type bytes are squeezed out),
// so in-place operation is safe as long as rows are processed top to bottom.
package dsp

import (
	"errors"
	"fmt"
)

// PNG scanline filter types.
const (
	FilterNone    = 0
	FilterSub     = 1
	FilterUp      = 2
	FilterAverage = 3
	FilterPaeth   = 4
)

var ErrFilterType = errors.New("dsp: unrecognized scanline filter type")

// Paeth returns whichever of a (left), b (above), c (upper-left) is closest
// to a+b-c. Ties prefer a over b and b over c; this exact order is part of
// the PNG specification and must not change.
func Paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa := abs(p - int(a))
	pb := abs(p - int(b))
	pc := abs(p - int(c))
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// ReconstructRow reverses one scanline filter.
//
// recon receives the reconstructed row. scan is the filtered row and may be
// the same slice as recon (in-place). precon is the previous reconstructed
// row, or nil for the first row; it must hold already-reconstructed bytes,
// never raw filtered ones. bytewidth is the whole-byte width of one pixel
// (1 for sub-byte depths). All additions wrap modulo 256.
func ReconstructRow(recon, scan, precon []byte, bytewidth int, filterType byte) error {
	n := len(scan)
	switch filterType {
	case FilterNone:
		copy(recon, scan)

	case FilterSub:
		for i := 0; i < bytewidth && i < n; i++ {
			recon[i] = scan[i]
		}
		for i := bytewidth; i < n; i++ {
			recon[i] = scan[i] + recon[i-bytewidth]
		}

	case FilterUp:
		if precon != nil {
			for i := 0; i < n; i++ {
				recon[i] = scan[i] + precon[i]
			}
		} else {
			copy(recon, scan)
		}

	case FilterAverage:
		if precon != nil {
			for i := 0; i < bytewidth && i < n; i++ {
				recon[i] = scan[i] + precon[i]/2
			}
			for i := bytewidth; i < n; i++ {
				recon[i] = scan[i] + byte((int(recon[i-bytewidth])+int(precon[i]))/2)
			}
		} else {
			for i := 0; i < bytewidth && i < n; i++ {
				recon[i] = scan[i]
			}
			for i := bytewidth; i < n; i++ {
				recon[i] = scan[i] + recon[i-bytewidth]/2
			}
		}

	case FilterPaeth:
		if precon != nil {
			for i := 0; i < bytewidth && i < n; i++ {
				recon[i] = scan[i] + Paeth(0, precon[i], 0)
			}
			for i := bytewidth; i < n; i++ {
				recon[i] = scan[i] + Paeth(recon[i-bytewidth], precon[i], precon[i-bytewidth])
			}
		} else {
			for i := 0; i < bytewidth && i < n; i++ {
				recon[i] = scan[i]
			}
			for i := bytewidth; i < n; i++ {
				recon[i] = scan[i] + Paeth(recon[i-bytewidth], 0, 0)
			}
		}

	default:
		return fmt.Errorf("%w: %d", ErrFilterType, filterType)
	}
	return nil
}

// Reconstruct defilters height scanlines in place.
//
// buf holds the inflated image data: for each row, one filter-type byte
// followed by rowBytes filtered bytes. On success the first height*rowBytes
// bytes of buf hold the reconstructed pixel rows, with the filter-type bytes
// squeezed out. bpp is bits per pixel. An unrecognized filter type aborts
// the remaining rows.
func Reconstruct(buf []byte, height, rowBytes, bpp int) error {
	if need := height * (rowBytes + 1); len(buf) < need {
		return fmt.Errorf("dsp: reconstruct needs %d bytes, have %d", need, len(buf))
	}
	bytewidth := (bpp + 7) / 8

	var precon []byte
	for y := 0; y < height; y++ {
		inStart := y * (rowBytes + 1)
		outStart := y * rowBytes
		filterType := buf[inStart]
		recon := buf[outStart : outStart+rowBytes]
		scan := buf[inStart+1 : inStart+1+rowBytes]
		if err := ReconstructRow(recon, scan, precon, bytewidth, filterType); err != nil {
			return fmt.Errorf("row %d: %w", y, err)
		}
		precon = recon
	}
	return nil
}
