package png

import "encoding/binary"

// Interlacing is the interlace method stored in IHDR.
type Interlacing uint8

const (
	InterlaceNone  Interlacing = 0
	InterlaceAdam7 Interlacing = 1
)

func parseInterlacing(b byte) (Interlacing, error) {
	switch b {
	case 0, 1:
		return Interlacing(b), nil
	}
	return 0, formatErrorf("invalid interlace method %d", b)
}

// HeaderInfo is the decoded IHDR chunk plus the palette and transparency
// data folded into the color type.
type HeaderInfo struct {
	Width      uint32
	Height     uint32
	ColorType  ColorType
	BitDepth   BitDepth
	Interlaced Interlacing
}

// BitsPerPixel is bit depth times channel count.
func (h *HeaderInfo) BitsPerPixel() int {
	return int(h.BitDepth) * h.ColorType.ChannelsPerPixel()
}

// BytesPerChannel is the storage width of one sample, rounded up to a byte.
func (h *HeaderInfo) BytesPerChannel() int {
	if h.BitDepth == BitDepthSixteen {
		return 2
	}
	return 1
}

// adam7 holds the origin and stride of each of the seven interlacing passes.
var adam7 = [7]struct{ xs, ys, dx, dy int }{
	{0, 0, 8, 8},
	{4, 0, 8, 8},
	{0, 4, 4, 8},
	{2, 0, 4, 4},
	{0, 2, 2, 4},
	{1, 0, 2, 2},
	{0, 1, 1, 2},
}

// adam7PassDims returns the pixel dimensions of one interlacing pass
// (1-based). Either dimension may be zero, in which case the pass stores no
// scanlines at all.
func adam7PassDims(pass int, w, h uint32) (int, int) {
	p := adam7[pass-1]
	pw, ph := 0, 0
	if int(w) > p.xs {
		pw = (int(w) - p.xs + p.dx - 1) / p.dx
	}
	if int(h) > p.ys {
		ph = (int(h) - p.ys + p.dy - 1) / p.dy
	}
	return pw, ph
}

// RawDataSize is the exact byte length the IDAT stream must decompress to
// for this header: every stored scanline byte-aligned, plus one filter byte
// per scanline, summed over the seven passes when interlaced.
func (h *HeaderInfo) RawDataSize() int {
	bpp := h.BitsPerPixel()
	bitmap := func(w, rows int) int {
		if w == 0 || rows == 0 {
			return 0
		}
		return ((w*bpp+7)/8 + 1) * rows
	}
	if h.Interlaced == InterlaceNone {
		return bitmap(int(h.Width), int(h.Height))
	}
	size := 0
	for pass := 1; pass <= 7; pass++ {
		pw, ph := adam7PassDims(pass, h.Width, h.Height)
		size += bitmap(pw, ph)
	}
	return size
}

// parseIHDR builds a HeaderInfo from the raw IHDR payload plus any PLTE and
// tRNS payloads captured during the chunk scan.
func parseIHDR(data, palette, trns []byte) (*HeaderInfo, error) {
	if len(data) < 13 {
		return nil, ErrTruncatedData
	}
	width := binary.BigEndian.Uint32(data[0:4])
	height := binary.BigEndian.Uint32(data[4:8])
	if width == 0 || height == 0 {
		return nil, formatErrorf("zero image dimension %dx%d", width, height)
	}
	bitDepth, err := parseBitDepth(data[8])
	if err != nil {
		return nil, err
	}
	var colorType ColorType
	switch data[9] {
	case 0:
		gray := Grayscale{}
		if len(trns) >= 2 {
			gray.TransparentShade = binary.BigEndian.Uint16(trns[0:2])
			gray.HasShade = true
		}
		colorType = gray
	case 2:
		rgb := RGB{}
		if len(trns) >= 6 {
			rgb.TransparentColor = RGB16{
				R: binary.BigEndian.Uint16(trns[0:2]),
				G: binary.BigEndian.Uint16(trns[2:4]),
				B: binary.BigEndian.Uint16(trns[4:6]),
			}
			rgb.HasColor = true
		}
		colorType = rgb
	case 3:
		entries, err := paletteToRGBA(palette, trns)
		if err != nil {
			return nil, err
		}
		colorType = Indexed{Palette: entries}
	case 4:
		colorType = GrayscaleAlpha{}
	case 6:
		colorType = RGBA{}
	default:
		return nil, formatErrorf("unexpected color type %d in header", data[9])
	}
	if !validDepth(colorType, bitDepth) {
		return nil, formatErrorf("invalid bit depth %d for color type %s", bitDepth, colorType)
	}
	interlaced, err := parseInterlacing(data[12])
	if err != nil {
		return nil, err
	}
	return &HeaderInfo{
		Width:      width,
		Height:     height,
		ColorType:  colorType,
		BitDepth:   bitDepth,
		Interlaced: interlaced,
	}, nil
}

// paletteToRGBA combines the raw PLTE triples with per-entry tRNS alpha.
func paletteToRGBA(palette, trns []byte) ([]RGBA8, error) {
	if len(palette) == 0 {
		return nil, formatErrorf("no palette in indexed image")
	}
	n := len(palette) / 3
	entries := make([]RGBA8, 0, n)
	for i := 0; i < n; i++ {
		entries = append(entries, RGBA8{
			R: palette[i*3],
			G: palette[i*3+1],
			B: palette[i*3+2],
			A: 255,
		})
	}
	for i := 0; i < len(trns) && i < len(entries); i++ {
		entries[i].A = trns[i]
	}
	return entries, nil
}
