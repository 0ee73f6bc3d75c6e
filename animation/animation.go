package animation

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"time"

	"github.com/deepteams/apng"
)

// Animation holds all frames and parameters of an animated PNG image.
type Animation struct {
	// Frames holds the ordered animation frames.
	Frames []Frame

	// LoopCount is the number of times to loop the animation.
	// 0 means infinite looping.
	LoopCount int

	// CanvasWidth is the canvas width in pixels.
	CanvasWidth int

	// CanvasHeight is the canvas height in pixels.
	CanvasHeight int
}

var (
	ErrNoFrames = errors.New("animation: no frames")
	ErrNilImage = errors.New("animation: frame image is nil")
)

// defaultDelayDen is the fcTL delay denominator substituted when the field
// is zero, per the APNG specification.
const defaultDelayDen = 100

// Decode parses an animated PNG from r, decoding every frame's pixels.
// A plain PNG yields a single-frame animation.
func Decode(r io.Reader) (*Animation, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return DecodeBytes(data)
}

// DecodeBytes parses an animated PNG from raw bytes.
func DecodeBytes(data []byte) (*Animation, error) {
	d := apng.NewDecoder(data)
	defer d.Close(true)

	if err := d.DecodeMetadata(); err != nil {
		return nil, err
	}

	anim := &Animation{
		CanvasWidth:  d.Width(),
		CanvasHeight: d.Height(),
	}
	if d.IsAPNG() {
		anim.LoopCount = int(d.NumPlays())
	}

	n := int(d.NumFrames())
	for len(anim.Frames) < n {
		if err := d.DecodeFrame(); err != nil {
			if errors.Is(err, apng.ErrDone) {
				break
			}
			return nil, fmt.Errorf("animation: frame %d: %w", len(anim.Frames), err)
		}

		var fc apng.FrameControl
		hasControl := d.NextFrameControl(&fc) == nil
		if d.IsAPNG() && !hasControl {
			// A default image decoded before the first fcTL is not part of
			// the animation; its IDAT does not consume a frame slot.
			continue
		}

		img, err := d.Image()
		if err != nil {
			return nil, fmt.Errorf("animation: frame %d: %w", len(anim.Frames), err)
		}

		frame := Frame{Image: img}
		if hasControl {
			frame.OffsetX = int(fc.XOffset)
			frame.OffsetY = int(fc.YOffset)
			frame.Dispose = DisposeMethod(fc.DisposeOp)
			frame.Blend = BlendMethod(fc.BlendOp)
			frame.Duration = frameDelay(fc.DelayNum, fc.DelayDen)
		}
		anim.Frames = append(anim.Frames, frame)
	}

	if len(anim.Frames) == 0 {
		return nil, ErrNoFrames
	}
	return anim, nil
}

// frameDelay converts an fcTL delay fraction to a duration. A zero
// denominator means hundredths of a second.
func frameDelay(num, den uint16) time.Duration {
	if den == 0 {
		den = defaultDelayDen
	}
	return time.Duration(num) * time.Second / time.Duration(den)
}

// TotalDuration returns the sum of all frame durations.
func (a *Animation) TotalDuration() time.Duration {
	var total time.Duration
	for i := range a.Frames {
		total += a.Frames[i].Duration
	}
	return total
}

// --- AnimDecoder: canvas reconstruction ---

// AnimDecoder provides frame-by-frame canvas reconstruction for animated
// PNG. It maintains the running canvas and applies each frame's blend op on
// entry and dispose op on exit, per the APNG rendering model.
type AnimDecoder struct {
	anim   *Animation
	canvas *image.NRGBA
	pos    int

	// prevRegion holds the canvas content under the previous frame's
	// rectangle, saved when its dispose op is DisposePrevious.
	prevRegion  []uint8
	prevBounds  image.Rectangle
	prevDispose DisposeMethod
}

// NewAnimDecoder creates an AnimDecoder from an Animation. The canvas is
// initialized to fully transparent black.
func NewAnimDecoder(anim *Animation) *AnimDecoder {
	return &AnimDecoder{
		anim:   anim,
		canvas: image.NewNRGBA(image.Rect(0, 0, anim.CanvasWidth, anim.CanvasHeight)),
	}
}

// HasNext reports whether more frames are available.
func (d *AnimDecoder) HasNext() bool {
	return d.pos < len(d.anim.Frames)
}

// NextFrame applies the next frame to the canvas and returns a snapshot.
// The caller receives a copy of the canvas; subsequent calls do not mutate
// it.
func (d *AnimDecoder) NextFrame() (*image.NRGBA, time.Duration, error) {
	if !d.HasNext() {
		return nil, 0, ErrNoFrames
	}
	f := &d.anim.Frames[d.pos]
	if f.Image == nil {
		return nil, 0, ErrNilImage
	}

	// Apply the previous frame's dispose op first: its effect is the state
	// the next frame composites over.
	switch d.prevDispose {
	case DisposeBackground:
		clearCanvasRect(d.canvas, d.prevBounds)
	case DisposePrevious:
		restoreCanvasRect(d.canvas, d.prevBounds, d.prevRegion)
	}

	dispose := f.Dispose
	if d.pos == 0 && dispose == DisposePrevious {
		// The first frame has no previous content to revert to.
		dispose = DisposeBackground
	}
	if dispose == DisposePrevious {
		d.prevRegion = saveCanvasRect(d.canvas, f.Bounds())
	} else {
		d.prevRegion = nil
	}
	d.prevBounds = f.Bounds()
	d.prevDispose = dispose

	d.compositeFrame(f)

	snap := image.NewNRGBA(d.canvas.Bounds())
	copy(snap.Pix, d.canvas.Pix)

	d.pos++
	return snap, f.Duration, nil
}

// Reset rewinds the decoder to the first frame and clears the canvas.
func (d *AnimDecoder) Reset() {
	d.pos = 0
	clearCanvasRect(d.canvas, d.canvas.Bounds())
	d.prevRegion = nil
	d.prevBounds = image.Rectangle{}
	d.prevDispose = DisposeNone
}

// Canvas returns the current canvas state (not a copy).
func (d *AnimDecoder) Canvas() *image.NRGBA {
	return d.canvas
}

// compositeFrame blends the frame onto the current canvas. Frame bounds are
// clamped to the canvas dimensions to prevent out-of-bounds access.
func (d *AnimDecoder) compositeFrame(f *Frame) {
	src := toNRGBA(f.Image)
	rect := f.Bounds().Intersect(d.canvas.Bounds())
	if rect.Empty() {
		return
	}
	srcBounds := src.Bounds()

	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		sy := y - f.OffsetY
		if sy < 0 || sy >= srcBounds.Dy() {
			continue
		}
		for x := rect.Min.X; x < rect.Max.X; x++ {
			sx := x - f.OffsetX
			if sx < 0 || sx >= srcBounds.Dx() {
				continue
			}
			srcPx := src.NRGBAAt(sx, sy)

			if f.Blend == BlendSource {
				d.canvas.SetNRGBA(x, y, srcPx)
			} else {
				dstPx := d.canvas.NRGBAAt(x, y)
				d.canvas.SetNRGBA(x, y, alphaBlendNRGBA(srcPx, dstPx))
			}
		}
	}
}

// alphaBlendNRGBA composites src over dst using non-premultiplied alpha.
func alphaBlendNRGBA(src, dst color.NRGBA) color.NRGBA {
	if src.A == 0xff || dst.A == 0 {
		return src
	}
	if src.A == 0 {
		return dst
	}
	sa := uint32(src.A)
	da := uint32(dst.A) * (255 - sa) / 255
	outA := sa + da
	blend := func(s, d uint8) uint8 {
		return uint8((uint32(s)*sa + uint32(d)*da) / outA)
	}
	return color.NRGBA{
		R: blend(src.R, dst.R),
		G: blend(src.G, dst.G),
		B: blend(src.B, dst.B),
		A: uint8(outA),
	}
}

// saveCanvasRect copies pixel data from the given rect of the canvas.
func saveCanvasRect(canvas *image.NRGBA, r image.Rectangle) []uint8 {
	r = r.Intersect(canvas.Bounds())
	if r.Empty() {
		return nil
	}
	w := r.Dx() * 4
	saved := make([]uint8, r.Dy()*w)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		srcOff := canvas.PixOffset(r.Min.X, y)
		dstOff := (y - r.Min.Y) * w
		copy(saved[dstOff:dstOff+w], canvas.Pix[srcOff:srcOff+w])
	}
	return saved
}

// restoreCanvasRect pastes previously saved pixel data back into the canvas rect.
func restoreCanvasRect(canvas *image.NRGBA, r image.Rectangle, saved []uint8) {
	r = r.Intersect(canvas.Bounds())
	if r.Empty() || saved == nil {
		return
	}
	w := r.Dx() * 4
	for y := r.Min.Y; y < r.Max.Y; y++ {
		dstOff := canvas.PixOffset(r.Min.X, y)
		srcOff := (y - r.Min.Y) * w
		copy(canvas.Pix[dstOff:dstOff+w], saved[srcOff:srcOff+w])
	}
}

// clearCanvasRect fills the given rect of the canvas with transparent black.
func clearCanvasRect(canvas *image.NRGBA, r image.Rectangle) {
	r = r.Intersect(canvas.Bounds())
	if r.Empty() {
		return
	}
	w := r.Dx() * 4
	for y := r.Min.Y; y < r.Max.Y; y++ {
		off := canvas.PixOffset(r.Min.X, y)
		clear(canvas.Pix[off : off+w])
	}
}
