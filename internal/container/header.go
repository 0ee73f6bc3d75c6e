package container

import (
	"bytes"
	"errors"
)

var (
	ErrSignature = errors.New("container: bad PNG signature")
	ErrNoIHDR    = errors.New("container: first chunk is not IHDR")
	ErrShortACTL = errors.New("container: acTL payload too short")
	ErrShortFCTL = errors.New("container: fcTL payload too short")
)

// ImageHeader holds the fields of the mandatory IHDR chunk.
type ImageHeader struct {
	Width       uint32
	Height      uint32
	BitDepth    byte
	ColorType   byte
	Compression byte
	Filter      byte
	Interlace   byte
}

// AnimationControl holds the fields of the APNG acTL chunk.
// NumPlays of 0 means the animation loops forever.
type AnimationControl struct {
	NumFrames uint32
	NumPlays  uint32
}

// FrameControl holds the fields of the APNG fcTL chunk, describing where and
// for how long the next frame is rendered on the canvas.
type FrameControl struct {
	Sequence  uint32
	Width     uint32
	Height    uint32
	XOffset   uint32
	YOffset   uint32
	DelayNum  uint16
	DelayDen  uint16
	DisposeOp byte
	BlendOp   byte
}

// CheckSignature reports whether data starts with the PNG file signature.
func CheckSignature(data []byte) bool {
	return len(data) >= SignatureSize && bytes.Equal(data[:SignatureSize], Signature[:])
}

// ParseImageHeader validates the signature and the mandatory first IHDR
// chunk, reading all header fields from their fixed file offsets.
// data must be at least HeaderMinSize bytes.
func ParseImageHeader(data []byte) (ImageHeader, error) {
	if len(data) < HeaderMinSize || !CheckSignature(data) {
		return ImageHeader{}, ErrSignature
	}
	if ReadBE32(data[SignatureSize+LengthSize:]) != TagIHDR {
		return ImageHeader{}, ErrNoIHDR
	}
	return ImageHeader{
		Width:       ReadBE32(data[offWidth:]),
		Height:      ReadBE32(data[offHeight:]),
		BitDepth:    data[offBitDepth],
		ColorType:   data[offColorType],
		Compression: data[offCompress],
		Filter:      data[offFilter],
		Interlace:   data[offInterlace],
	}, nil
}

// ParseAnimationControl reads the two big-endian fields of an acTL payload.
func ParseAnimationControl(payload []byte) (AnimationControl, error) {
	if len(payload) < ACTLSize {
		return AnimationControl{}, ErrShortACTL
	}
	return AnimationControl{
		NumFrames: ReadBE32(payload[0:]),
		NumPlays:  ReadBE32(payload[4:]),
	}, nil
}

// ParseFrameControl reads the fixed 26-byte fcTL payload.
func ParseFrameControl(payload []byte) (FrameControl, error) {
	if len(payload) < FCTLSize {
		return FrameControl{}, ErrShortFCTL
	}
	return FrameControl{
		Sequence:  ReadBE32(payload[0:]),
		Width:     ReadBE32(payload[4:]),
		Height:    ReadBE32(payload[8:]),
		XOffset:   ReadBE32(payload[12:]),
		YOffset:   ReadBE32(payload[16:]),
		DelayNum:  ReadBE16(payload[20:]),
		DelayDen:  ReadBE16(payload[22:]),
		DisposeOp: payload[24],
		BlendOp:   payload[25],
	}, nil
}
