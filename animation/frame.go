// Package animation provides types and canvas logic for animated PNG
// images. It defines Frame/Animation structs and canvas reconstruction
// (blending, disposal) per the APNG frame-control semantics. Chunk parsing
// and pixel decoding are handled by the apng package; this package deals
// with frame-sequence composition only.
package animation

import (
	"image"
	"time"
)

// DisposeMethod controls how the frame region is treated after rendering,
// before the next frame is composited.
type DisposeMethod int

const (
	// DisposeNone leaves the canvas as-is after this frame is rendered.
	DisposeNone DisposeMethod = 0
	// DisposeBackground clears the frame region to fully transparent black
	// after this frame is rendered.
	DisposeBackground DisposeMethod = 1
	// DisposePrevious reverts the frame region to its content before this
	// frame was rendered.
	DisposePrevious DisposeMethod = 2
)

// BlendMethod controls how a frame is composited onto the canvas.
type BlendMethod int

const (
	// BlendSource overwrites the frame region, including alpha.
	BlendSource BlendMethod = 0
	// BlendOver alpha-composites the frame onto the existing canvas.
	BlendOver BlendMethod = 1
)

// Frame holds a decoded animation frame and its rendering parameters.
type Frame struct {
	// Image is the decoded image for this frame. Its bounds are the frame
	// region's size, not the canvas size.
	Image image.Image

	// Duration is the display duration for this frame.
	Duration time.Duration

	// OffsetX is the horizontal offset of this frame on the canvas.
	OffsetX int

	// OffsetY is the vertical offset of this frame on the canvas.
	OffsetY int

	// Dispose specifies canvas cleanup after this frame is displayed.
	Dispose DisposeMethod

	// Blend specifies how this frame is composited onto the canvas.
	Blend BlendMethod
}

// Bounds returns the frame's rectangle on the canvas.
func (f *Frame) Bounds() image.Rectangle {
	var w, h int
	if f.Image != nil {
		b := f.Image.Bounds()
		w = b.Dx()
		h = b.Dy()
	}
	return image.Rect(f.OffsetX, f.OffsetY, f.OffsetX+w, f.OffsetY+h)
}

// toNRGBA converts any image.Image to *image.NRGBA.
func toNRGBA(src image.Image) *image.NRGBA {
	if nrgba, ok := src.(*image.NRGBA); ok {
		return nrgba
	}
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.Set(x-b.Min.X, y-b.Min.Y, src.At(x, y))
		}
	}
	return dst
}
