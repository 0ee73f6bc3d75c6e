package apng

import (
	"fmt"
	"image"
	"image/color"

	"github.com/deepteams/apng/internal/bitio"
)

// Image exposes the most recent decoded frame as a standard library image.
// The returned image holds its own pixel storage; it stays valid after
// Close. The dimensions are the decoded frame's (the fcTL sub-frame size
// for APNG frames past the canvas).
func (d *Decoder) Image() (image.Image, error) {
	if d.err != nil && d.err != ErrDone {
		return nil, d.err
	}
	if d.buffer == nil {
		return nil, fmt.Errorf("%w: no decoded frame", ErrInvalidParameter)
	}

	w, h := d.bufWidth, d.bufHeight
	switch d.format {
	case FormatRGBA8:
		img := image.NewNRGBA(image.Rect(0, 0, w, h))
		copy(img.Pix, d.buffer)
		return img, nil

	case FormatRGB8:
		img := image.NewNRGBA(image.Rect(0, 0, w, h))
		si := 0
		for di := 0; di < len(img.Pix); di += 4 {
			img.Pix[di+0] = d.buffer[si+0]
			img.Pix[di+1] = d.buffer[si+1]
			img.Pix[di+2] = d.buffer[si+2]
			img.Pix[di+3] = 0xff
			si += 3
		}
		return img, nil

	case FormatRGBA16:
		// NRGBA64 stores big-endian samples, matching the wire layout.
		img := image.NewNRGBA64(image.Rect(0, 0, w, h))
		copy(img.Pix, d.buffer)
		return img, nil

	case FormatRGB16:
		img := image.NewNRGBA64(image.Rect(0, 0, w, h))
		si := 0
		for di := 0; di < len(img.Pix); di += 8 {
			copy(img.Pix[di:di+6], d.buffer[si:si+6])
			img.Pix[di+6] = 0xff
			img.Pix[di+7] = 0xff
			si += 6
		}
		return img, nil

	case FormatLuminance8:
		img := image.NewGray(image.Rect(0, 0, w, h))
		copy(img.Pix, d.buffer)
		return img, nil

	case FormatLuminance1, FormatLuminance2, FormatLuminance4:
		img := image.NewGray(image.Rect(0, 0, w, h))
		// Scale d-bit samples to the full 8-bit range.
		scale := uint32(255 / (1<<uint(d.bitDepth) - 1))
		r := bitio.NewReader(d.buffer, bitio.MSBFirst)
		for i := range img.Pix {
			v, err := r.ReadBits(d.bitDepth)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
			}
			img.Pix[i] = byte(v * scale)
		}
		return img, nil

	case FormatLuminanceAlpha8:
		img := image.NewNRGBA(image.Rect(0, 0, w, h))
		si := 0
		for di := 0; di < len(img.Pix); di += 4 {
			lum := d.buffer[si]
			img.Pix[di+0] = lum
			img.Pix[di+1] = lum
			img.Pix[di+2] = lum
			img.Pix[di+3] = d.buffer[si+1]
			si += 2
		}
		return img, nil

	case FormatIndexed1, FormatIndexed2, FormatIndexed4, FormatIndexed8:
		pal := d.colorPalette()
		if pal == nil {
			return nil, fmt.Errorf("%w: indexed image without palette", ErrMalformed)
		}
		img := image.NewPaletted(image.Rect(0, 0, w, h), pal)
		r := bitio.NewReader(d.buffer, bitio.MSBFirst)
		for i := range img.Pix {
			v, err := r.ReadBits(d.bitDepth)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
			}
			if int(v) >= len(pal) {
				return nil, fmt.Errorf("%w: palette index %d of %d entries", ErrMalformed, v, len(pal))
			}
			img.Pix[i] = byte(v)
		}
		return img, nil

	default:
		// Remaining formats (sub-byte luminance-alpha) cannot arise from a
		// conforming stream.
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, d.format)
	}
}

// colorPalette builds a color.Palette from the PLTE entries, applying tRNS
// alpha where present. Returns nil if no palette chunk was seen.
func (d *Decoder) colorPalette() color.Palette {
	entries := len(d.palette) / 3
	if entries == 0 {
		return nil
	}
	pal := make(color.Palette, entries)
	for i := 0; i < entries; i++ {
		a := byte(0xff)
		if i < len(d.alphaPalette) {
			a = d.alphaPalette[i]
		}
		pal[i] = color.NRGBA{
			R: d.palette[3*i+0],
			G: d.palette[3*i+1],
			B: d.palette[3*i+2],
			A: a,
		}
	}
	return pal
}

// colorModel returns the color model the decoder's pixel format maps to.
func (d *Decoder) colorModel() color.Model {
	switch d.format {
	case FormatRGBA16, FormatRGB16:
		return color.NRGBA64Model
	case FormatLuminance1, FormatLuminance2, FormatLuminance4, FormatLuminance8:
		return color.GrayModel
	case FormatIndexed1, FormatIndexed2, FormatIndexed4, FormatIndexed8:
		if pal := d.colorPalette(); pal != nil {
			return pal
		}
		return color.NRGBAModel
	default:
		return color.NRGBAModel
	}
}
