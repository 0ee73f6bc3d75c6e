package apng

import (
	"errors"
	"fmt"

	"github.com/deepteams/apng/internal/container"
	"github.com/deepteams/apng/internal/dsp"
	"github.com/deepteams/apng/internal/inflate"
	"github.com/deepteams/apng/internal/pool"
)

// State is the decoder's lifecycle stage. Error is terminal: once entered,
// every decode entry point returns the latched error.
type State int

const (
	StateNew     State = iota // created, nothing validated
	StateHeader               // signature and IHDR validated
	StateLoaded               // global chunks scanned up to the first image data
	StateDecoded              // a full frame's pixel buffer has been produced
	StateError                // terminal failure (or end of stream)
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateHeader:
		return "header"
	case StateLoaded:
		return "loaded"
	case StateDecoded:
		return "decoded"
	case StateError:
		return "error"
	default:
		return "invalid"
	}
}

// Errors latched by the decoder. Mutually exclusive per instance: the first
// failure wins and sticks.
var (
	ErrNotPNG               = errors.New("apng: not a PNG file")
	ErrMalformed            = errors.New("apng: malformed image data")
	ErrUnsupportedChunk     = errors.New("apng: unsupported critical chunk")
	ErrUnsupportedInterlace = errors.New("apng: interlaced images are not supported")
	ErrUnsupportedFormat    = errors.New("apng: unsupported color type / bit depth combination")
	ErrInvalidParameter     = errors.New("apng: invalid parameter")
	ErrNotFound             = errors.New("apng: resource not found")

	// ErrDone reports that the end of the image stream was reached with no
	// further frames. The stream is not corrupt, but the decoder blocks
	// further decode calls once latched.
	ErrDone = errors.New("apng: no more frames")
)

// maxImageArea bounds width*height to keep buffer size arithmetic sane on
// hostile inputs.
const maxImageArea = uint64(1) << 32

// maxInflateRatio is DEFLATE's maximum expansion: one compressed byte can
// produce at most 1032 output bytes.
const maxInflateRatio = 1032

// FrameControl describes the placement, timing, and compositing of the next
// frame, from the APNG fcTL chunk.
type FrameControl = container.FrameControl

// fcTL dispose operations: how the frame region is treated after rendering.
const (
	DisposeOpNone       = 0
	DisposeOpBackground = 1
	DisposeOpPrevious   = 2
)

// fcTL blend operations: how the frame is composited onto the canvas.
const (
	BlendOpSource = 0
	BlendOpOver   = 1
)

// ResourceLoader supplies source bytes by range, typically backed by a
// read-only resource store.
type ResourceLoader interface {
	Load(offset, length int) ([]byte, error)
}

// Decoder decodes a PNG or APNG byte stream in stages. It is not safe for
// concurrent use; decode operations run to completion on the calling
// goroutine with no internal locking.
type Decoder struct {
	src     []byte
	ownsSrc bool // src is a private copy, released on Close

	width     int
	height    int
	colorType ColorType
	bitDepth  int
	format    PixelFormat

	// Decoded pixel buffer for the most recent frame, with the dimensions
	// it was decoded at (frame dimensions for APNG sub-frames).
	buffer    []byte
	bufWidth  int
	bufHeight int

	palette      []byte // 3 bytes per entry
	alphaPalette []byte // 1 byte per entry

	apng      bool
	numFrames uint32
	numPlays  uint32
	frame     *FrameControl // single slot, overwritten per fcTL

	cursor *container.Cursor
	state  State
	err    error
}

// NewDecoder creates a decoder borrowing data. The caller retains ownership
// of the slice and must keep it alive and unmodified for the decoder's
// lifetime.
func NewDecoder(data []byte) *Decoder {
	return &Decoder{src: data}
}

// NewDecoderCopy creates a decoder that owns a private copy of data.
func NewDecoderCopy(data []byte) *Decoder {
	src := make([]byte, len(data))
	copy(src, data)
	return &Decoder{src: src, ownsSrc: true}
}

// NewDecoderFromLoader reads length bytes at offset from a resource loader
// and creates a decoder owning the result.
func NewDecoderFromLoader(l ResourceLoader, offset, length int) (*Decoder, error) {
	if l == nil || offset < 0 || length < 0 {
		return nil, ErrInvalidParameter
	}
	data, err := l.Load(offset, length)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return &Decoder{src: data, ownsSrc: true}, nil
}

// fail latches err as the decoder's terminal outcome. All decode entry
// points short-circuit on it afterwards; state transitions happen only here
// and at the end of each successful stage.
func (d *Decoder) fail(err error) error {
	d.state = StateError
	d.err = err
	return err
}

// ParseHeader validates the PNG signature and the mandatory IHDR chunk and
// resolves the pixel format. It is a no-op if the header was already parsed.
func (d *Decoder) ParseHeader() error {
	if d.err != nil {
		return d.err
	}
	if d.state != StateNew {
		return nil
	}

	hdr, err := container.ParseImageHeader(d.src)
	if err != nil {
		return d.fail(fmt.Errorf("%w: %v", ErrNotPNG, err))
	}

	// The format check runs before any other header field is trusted.
	format := ResolveFormat(ColorType(hdr.ColorType), int(hdr.BitDepth))
	if format == FormatBad {
		return d.fail(fmt.Errorf("%w: color type %d, bit depth %d",
			ErrUnsupportedFormat, hdr.ColorType, hdr.BitDepth))
	}
	if hdr.Width == 0 || hdr.Height == 0 ||
		uint64(hdr.Width)*uint64(hdr.Height) >= maxImageArea {
		return d.fail(fmt.Errorf("%w: image dimensions %dx%d", ErrMalformed, hdr.Width, hdr.Height))
	}
	if hdr.Compression != 0 {
		return d.fail(fmt.Errorf("%w: compression method %d", ErrMalformed, hdr.Compression))
	}
	if hdr.Filter != 0 {
		return d.fail(fmt.Errorf("%w: filter method %d", ErrMalformed, hdr.Filter))
	}
	if hdr.Interlace != 0 {
		return d.fail(ErrUnsupportedInterlace)
	}

	d.width = int(hdr.Width)
	d.height = int(hdr.Height)
	d.colorType = ColorType(hdr.ColorType)
	d.bitDepth = int(hdr.BitDepth)
	d.format = format
	d.cursor = container.NewCursor(d.src, container.HeaderMinSize+container.CRCSize)
	d.state = StateHeader
	return nil
}

// DecodeMetadata scans the non-image global chunks (palette, transparency,
// animation control, first frame control) up to the first image-data chunk,
// which is left unconsumed for the frame decode stage. Calling it on an
// already-loaded decoder is a no-op.
func (d *Decoder) DecodeMetadata() error {
	if d.err != nil {
		return d.err
	}
	switch d.state {
	case StateLoaded, StateDecoded:
		return nil
	case StateNew:
		if err := d.ParseHeader(); err != nil {
			return err
		}
	}

	for {
		ch, err := d.cursor.Peek()
		if err != nil {
			return d.fail(fmt.Errorf("%w: %v", ErrMalformed, err))
		}

		switch ch.Tag {
		case container.TagPLTE:
			d.palette = append([]byte(nil), ch.Data...)

		case container.TagTRNS:
			// Some tools emit empty optional chunks; tolerate them.
			d.alphaPalette = nil
			if len(ch.Data) > 0 {
				d.alphaPalette = append([]byte(nil), ch.Data...)
			}

		case container.TagFCTL:
			fc, err := container.ParseFrameControl(ch.Data)
			if err != nil {
				return d.fail(fmt.Errorf("%w: %v", ErrMalformed, err))
			}
			if d.frame == nil {
				d.frame = new(FrameControl)
			}
			*d.frame = fc

		case container.TagACTL:
			ac, err := container.ParseAnimationControl(ch.Data)
			if err != nil {
				return d.fail(fmt.Errorf("%w: %v", ErrMalformed, err))
			}
			d.apng = true
			d.numFrames = ac.NumFrames
			d.numPlays = ac.NumPlays

		case container.TagIDAT:
			// Leave the cursor pointing at the image data.
			d.state = StateLoaded
			return nil

		case container.TagIEND:
			return d.fail(fmt.Errorf("%w: IEND before image data", ErrMalformed))

		default:
			if !ch.Ancillary() {
				return d.fail(fmt.Errorf("%w: %s", ErrUnsupportedChunk, ch.TagString()))
			}
		}
		d.cursor.Advance(ch)
	}
}

// DecodeFrame decodes the next frame's image data into a fresh pixel
// buffer, releasing the previous frame's buffer. For APNG streams,
// successive calls consume the frame-control/data pairs in file order,
// updating the frame-control slot before each frame's pixels are produced.
// When the end chunk is reached instead of frame data, ErrDone is latched.
//
// Exactly one IDAT or fdAT chunk is consumed per call; consecutive data
// chunks belonging to one frame are not merged.
func (d *Decoder) DecodeFrame() error {
	if d.err != nil {
		return d.err
	}
	if d.state != StateLoaded && d.state != StateDecoded {
		if err := d.DecodeMetadata(); err != nil {
			return err
		}
	}
	if d.buffer != nil {
		pool.Put(d.buffer)
		d.buffer = nil
	}

	var data []byte
scan:
	for {
		ch, err := d.cursor.Peek()
		if err != nil {
			return d.fail(fmt.Errorf("%w: %v", ErrMalformed, err))
		}

		switch ch.Tag {
		case container.TagFCTL:
			fc, err := container.ParseFrameControl(ch.Data)
			if err != nil {
				return d.fail(fmt.Errorf("%w: %v", ErrMalformed, err))
			}
			if d.frame == nil {
				d.frame = new(FrameControl)
			}
			*d.frame = fc

		case container.TagFDAT:
			if ch.Length < container.FDATPrefix {
				return d.fail(fmt.Errorf("%w: fdAT payload of %d bytes", ErrMalformed, ch.Length))
			}
			data = ch.Data[container.FDATPrefix:]
			d.cursor.Advance(ch)
			break scan

		case container.TagIDAT:
			data = ch.Data
			d.cursor.Advance(ch)
			break scan

		case container.TagIEND:
			return d.fail(ErrDone)

		default:
			if !ch.Ancillary() {
				return d.fail(fmt.Errorf("%w: %s", ErrUnsupportedChunk, ch.TagString()))
			}
		}
		d.cursor.Advance(ch)
	}

	w, h := d.width, d.height
	if d.apng && d.frame != nil {
		w, h = int(d.frame.Width), int(d.frame.Height)
	}
	if w <= 0 || h <= 0 || uint64(w)*uint64(h) >= maxImageArea {
		return d.fail(fmt.Errorf("%w: frame dimensions %dx%d", ErrMalformed, w, h))
	}

	bpp := d.BitsPerPixel()
	rowBytes := (w*bpp + 7) / 8
	// One extra byte per row for the filter-type byte preceding each
	// scanline in the inflated stream.
	need := (uint64(rowBytes) + 1) * uint64(h)

	// The inflated stream must fill the buffer exactly, and DEFLATE expands
	// at most maxInflateRatio to one; a buffer beyond that bound can never be
	// produced by this chunk, so it is rejected before allocation.
	if need > uint64(len(data))*maxInflateRatio {
		return d.fail(fmt.Errorf("%w: %d scanline bytes declared for %d compressed bytes",
			ErrMalformed, need, len(data)))
	}
	bufSize := int(need)

	buf := pool.Get(bufSize)
	n, err := inflate.Zlib(buf, data)
	if err != nil {
		pool.Put(buf)
		return d.fail(fmt.Errorf("%w: %v", ErrMalformed, err))
	}
	if n != bufSize {
		pool.Put(buf)
		return d.fail(fmt.Errorf("%w: inflated %d bytes, expected %d", ErrMalformed, n, bufSize))
	}
	if err := dsp.Reconstruct(buf, h, rowBytes, bpp); err != nil {
		pool.Put(buf)
		return d.fail(fmt.Errorf("%w: %v", ErrMalformed, err))
	}

	size := rowBytes * h
	if bpp < 8 && w*bpp != rowBytes*8 {
		dsp.RemovePaddingBits(buf, buf, w*bpp, rowBytes*8, h)
		size = (h*w*bpp + 7) / 8
	}

	d.buffer = buf[:size]
	d.bufWidth = w
	d.bufHeight = h
	d.state = StateDecoded
	return nil
}

// Close releases the decoder's internal buffers: palette, alpha palette,
// frame control, and the source buffer if owned. When freeImage is true the
// decoded pixel buffer is released too; when false, a previously returned
// Buffer slice stays valid and is left to the caller. The decoder must not
// be used after Close.
func (d *Decoder) Close(freeImage bool) {
	if freeImage && d.buffer != nil {
		pool.Put(d.buffer)
	}
	d.buffer = nil
	d.palette = nil
	d.alphaPalette = nil
	d.frame = nil
	d.cursor = nil
	if d.ownsSrc {
		d.src = nil
	}
}

// State returns the decoder's lifecycle state.
func (d *Decoder) State() State { return d.state }

// Err returns the latched error, or nil.
func (d *Decoder) Err() error { return d.err }

// Width returns the image width in pixels. Valid after ParseHeader.
func (d *Decoder) Width() int { return d.width }

// Height returns the image height in pixels. Valid after ParseHeader.
func (d *Decoder) Height() int { return d.height }

// BitDepth returns bits per sample.
func (d *Decoder) BitDepth() int { return d.bitDepth }

// Components returns samples per pixel for the image's color type.
func (d *Decoder) Components() int { return d.colorType.Components() }

// BitsPerPixel returns bit depth times components.
func (d *Decoder) BitsPerPixel() int { return d.bitDepth * d.Components() }

// PixelSize returns the whole-byte size of one pixel, rounding sub-byte
// formats up to one byte.
func (d *Decoder) PixelSize() int { return (d.BitsPerPixel() + 7) / 8 }

// Format returns the resolved pixel format.
func (d *Decoder) Format() PixelFormat { return d.format }

// Buffer returns the decoded pixel buffer for the most recent frame, or nil
// before a successful DecodeFrame. The slice is owned by the decoder until
// Close.
func (d *Decoder) Buffer() []byte { return d.buffer }

// BufferSize returns the decoded pixel buffer size in bytes.
func (d *Decoder) BufferSize() int { return len(d.buffer) }

// Palette returns the palette bytes (3 per entry) and the entry count.
func (d *Decoder) Palette() ([]byte, int) { return d.palette, len(d.palette) / 3 }

// AlphaPalette returns the transparency bytes (1 per entry) and the count.
func (d *Decoder) AlphaPalette() ([]byte, int) { return d.alphaPalette, len(d.alphaPalette) }

// IsAPNG reports whether an animation-control chunk was seen.
func (d *Decoder) IsAPNG() bool { return d.apng }

// NumFrames returns the APNG frame count, or 1 for a plain PNG.
func (d *Decoder) NumFrames() uint32 {
	if !d.apng {
		return 1
	}
	return d.numFrames
}

// NumPlays returns the APNG play count (0 = infinite), or 1 for a plain PNG.
func (d *Decoder) NumPlays() uint32 {
	if !d.apng {
		return 1
	}
	return d.numPlays
}

// NextFrameControl copies the current frame-control record into dst. It
// fails with ErrInvalidParameter when dst is nil or no fcTL chunk has been
// seen yet.
func (d *Decoder) NextFrameControl(dst *FrameControl) error {
	if dst == nil {
		return ErrInvalidParameter
	}
	if d.frame == nil {
		return fmt.Errorf("%w: no frame control record", ErrInvalidParameter)
	}
	*dst = *d.frame
	return nil
}
