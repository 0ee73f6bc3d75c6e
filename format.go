package apng

// ColorType is the PNG color type field from the IHDR chunk.
type ColorType byte

const (
	ColorLuminance      ColorType = 0
	ColorRGB            ColorType = 2
	ColorPalette        ColorType = 3
	ColorLuminanceAlpha ColorType = 4
	ColorRGBA           ColorType = 6
)

// Components returns the number of samples per pixel for the color type.
func (ct ColorType) Components() int {
	switch ct {
	case ColorLuminance, ColorPalette:
		return 1
	case ColorLuminanceAlpha:
		return 2
	case ColorRGB:
		return 3
	case ColorRGBA:
		return 4
	default:
		return 0
	}
}

// PixelFormat is a concrete (color type, bit depth) combination the decoder
// knows how to expose to callers.
type PixelFormat int

const (
	// FormatBad marks a (color type, bit depth) pair with no defined
	// pixel format.
	FormatBad PixelFormat = iota

	FormatLuminance1
	FormatLuminance2
	FormatLuminance4
	FormatLuminance8

	FormatLuminanceAlpha1
	FormatLuminanceAlpha2
	FormatLuminanceAlpha4
	FormatLuminanceAlpha8

	FormatRGB8
	FormatRGB16

	FormatRGBA8
	FormatRGBA16

	FormatIndexed1
	FormatIndexed2
	FormatIndexed4
	FormatIndexed8
)

var formatNames = map[PixelFormat]string{
	FormatBad:             "bad",
	FormatLuminance1:      "luminance1",
	FormatLuminance2:      "luminance2",
	FormatLuminance4:      "luminance4",
	FormatLuminance8:      "luminance8",
	FormatLuminanceAlpha1: "luminance-alpha1",
	FormatLuminanceAlpha2: "luminance-alpha2",
	FormatLuminanceAlpha4: "luminance-alpha4",
	FormatLuminanceAlpha8: "luminance-alpha8",
	FormatRGB8:            "rgb8",
	FormatRGB16:           "rgb16",
	FormatRGBA8:           "rgba8",
	FormatRGBA16:          "rgba16",
	FormatIndexed1:        "indexed1",
	FormatIndexed2:        "indexed2",
	FormatIndexed4:        "indexed4",
	FormatIndexed8:        "indexed8",
}

func (f PixelFormat) String() string {
	if s, ok := formatNames[f]; ok {
		return s
	}
	return "unknown"
}

// ResolveFormat maps a (color type, bit depth) pair to a pixel format.
// Pairs with no defined format resolve to FormatBad, which callers treat as
// an unsupported-format error before any pixel data is touched.
func ResolveFormat(ct ColorType, bitDepth int) PixelFormat {
	switch ct {
	case ColorLuminance:
		switch bitDepth {
		case 1:
			return FormatLuminance1
		case 2:
			return FormatLuminance2
		case 4:
			return FormatLuminance4
		case 8:
			return FormatLuminance8
		}
	case ColorLuminanceAlpha:
		switch bitDepth {
		case 1:
			return FormatLuminanceAlpha1
		case 2:
			return FormatLuminanceAlpha2
		case 4:
			return FormatLuminanceAlpha4
		case 8:
			return FormatLuminanceAlpha8
		}
	case ColorRGB:
		switch bitDepth {
		case 8:
			return FormatRGB8
		case 16:
			return FormatRGB16
		}
	case ColorRGBA:
		switch bitDepth {
		case 8:
			return FormatRGBA8
		case 16:
			return FormatRGBA16
		}
	case ColorPalette:
		switch bitDepth {
		case 1:
			return FormatIndexed1
		case 2:
			return FormatIndexed2
		case 4:
			return FormatIndexed4
		case 8:
			return FormatIndexed8
		}
	}
	return FormatBad
}
