package png

import "fmt"

// BitDepth is the number of bits per sample, as per the PNG spec.
type BitDepth uint8

const (
	BitDepthOne     BitDepth = 1
	BitDepthTwo     BitDepth = 2
	BitDepthFour    BitDepth = 4
	BitDepthEight   BitDepth = 8
	BitDepthSixteen BitDepth = 16
)

func parseBitDepth(b byte) (BitDepth, error) {
	switch b {
	case 1, 2, 4, 8, 16:
		return BitDepth(b), nil
	}
	return 0, formatErrorf("invalid bit depth %d", b)
}

// RGBA8 is one palette entry.
type RGBA8 struct {
	R, G, B, A uint8
}

// RGB16 is a 48-bit transparent color for truecolor images.
type RGB16 struct {
	R, G, B uint16
}

// ColorType is the color model of the image: one of Grayscale, RGB, Indexed,
// GrayscaleAlpha, or RGBA. The set is closed; every use site switches over
// all five.
type ColorType interface {
	// PNGHeaderCode is the color type byte stored in IHDR.
	PNGHeaderCode() byte
	// ChannelsPerPixel is the sample count per pixel.
	ChannelsPerPixel() int
	// HasAlpha reports whether the type carries an alpha channel.
	HasAlpha() bool
	// IsGray reports whether the type is grayscale, with or without alpha.
	IsGray() bool
	fmt.Stringer
}

// Grayscale is color type 0, optionally with a tRNS transparent shade.
type Grayscale struct {
	TransparentShade uint16
	HasShade         bool
}

func (Grayscale) PNGHeaderCode() byte   { return 0 }
func (Grayscale) ChannelsPerPixel() int { return 1 }
func (Grayscale) HasAlpha() bool        { return false }
func (Grayscale) IsGray() bool          { return true }
func (Grayscale) String() string        { return "Grayscale" }

// RGB is color type 2, optionally with a tRNS transparent color.
type RGB struct {
	TransparentColor RGB16
	HasColor         bool
}

func (RGB) PNGHeaderCode() byte   { return 2 }
func (RGB) ChannelsPerPixel() int { return 3 }
func (RGB) HasAlpha() bool        { return false }
func (RGB) IsGray() bool          { return false }
func (RGB) String() string        { return "RGB" }

// Indexed is color type 3. A valid indexed image always has a non-empty
// palette of at most 256 entries.
type Indexed struct {
	Palette []RGBA8
}

func (Indexed) PNGHeaderCode() byte   { return 3 }
func (Indexed) ChannelsPerPixel() int { return 1 }
func (Indexed) HasAlpha() bool        { return false }
func (Indexed) IsGray() bool          { return false }
func (Indexed) String() string        { return "Indexed" }

// GrayscaleAlpha is color type 4.
type GrayscaleAlpha struct{}

func (GrayscaleAlpha) PNGHeaderCode() byte   { return 4 }
func (GrayscaleAlpha) ChannelsPerPixel() int { return 2 }
func (GrayscaleAlpha) HasAlpha() bool        { return true }
func (GrayscaleAlpha) IsGray() bool          { return true }
func (GrayscaleAlpha) String() string        { return "GrayscaleAlpha" }

// RGBA is color type 6.
type RGBA struct{}

func (RGBA) PNGHeaderCode() byte   { return 6 }
func (RGBA) ChannelsPerPixel() int { return 4 }
func (RGBA) HasAlpha() bool        { return true }
func (RGBA) IsGray() bool          { return false }
func (RGBA) String() string        { return "RGBA" }

// validDepth reports whether the color type permits the bit depth,
// per the PNG spec's allowed combinations.
func validDepth(ct ColorType, bd BitDepth) bool {
	switch ct.(type) {
	case Grayscale:
		return true
	case Indexed:
		return bd <= BitDepthEight
	default:
		// RGB, GrayscaleAlpha, RGBA only permit 8 or 16
		return bd == BitDepthEight || bd == BitDepthSixteen
	}
}
