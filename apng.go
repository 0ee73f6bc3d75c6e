package apng

import (
	"fmt"
	"image"
	"io"
)

func init() {
	image.RegisterFormat("apng", "\x89PNG\r\n\x1a\n", Decode, DecodeConfig)
}

// Features describes a PNG/APNG file's properties without pixel data.
type Features struct {
	Width        int
	Height       int
	BitDepth     int
	Format       PixelFormat
	HasPalette   bool
	HasAnimation bool
	FrameCount   int // 1 for still images
	PlayCount    int // 0 = infinite (APNG only)
}

// readAll reads all data from r. If r implements Len() int (e.g.
// *bytes.Reader), a single exact-sized allocation is used instead of
// the repeated doublings that io.ReadAll performs.
func readAll(r io.Reader) ([]byte, error) {
	if lr, ok := r.(interface{ Len() int }); ok {
		n := lr.Len()
		if n > 0 {
			data := make([]byte, n)
			_, err := io.ReadFull(r, data)
			return data, err
		}
	}
	return io.ReadAll(r)
}

// Decode reads a PNG or APNG image from r and returns its first frame.
// The returned type depends on the pixel format: *image.NRGBA for truecolor
// and luminance-alpha, *image.NRGBA64 for 16-bit depths, *image.Gray for
// luminance, *image.Paletted for indexed images.
func Decode(r io.Reader) (image.Image, error) {
	data, err := readAll(r)
	if err != nil {
		return nil, fmt.Errorf("apng: reading data: %w", err)
	}
	d := NewDecoder(data)
	defer d.Close(true)
	if err := d.DecodeFrame(); err != nil {
		return nil, err
	}
	return d.Image()
}

// DecodeConfig returns the color model and dimensions of a PNG/APNG image
// without decoding pixel data.
func DecodeConfig(r io.Reader) (image.Config, error) {
	data, err := readAll(r)
	if err != nil {
		return image.Config{}, fmt.Errorf("apng: reading data: %w", err)
	}
	d := NewDecoder(data)
	defer d.Close(true)
	// Metadata is needed for the palette-backed color model.
	if err := d.DecodeMetadata(); err != nil {
		return image.Config{}, err
	}
	return image.Config{
		ColorModel: d.colorModel(),
		Width:      d.Width(),
		Height:     d.Height(),
	}, nil
}

// GetFeatures reads PNG/APNG features without decoding pixel data.
func GetFeatures(r io.Reader) (*Features, error) {
	data, err := readAll(r)
	if err != nil {
		return nil, fmt.Errorf("apng: reading data: %w", err)
	}
	d := NewDecoder(data)
	defer d.Close(true)
	if err := d.DecodeMetadata(); err != nil {
		return nil, err
	}
	_, paletteCount := d.Palette()
	return &Features{
		Width:        d.Width(),
		Height:       d.Height(),
		BitDepth:     d.BitDepth(),
		Format:       d.Format(),
		HasPalette:   paletteCount > 0,
		HasAnimation: d.IsAPNG(),
		FrameCount:   int(d.NumFrames()),
		PlayCount:    int(d.NumPlays()),
	}, nil
}
