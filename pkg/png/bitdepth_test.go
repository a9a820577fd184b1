package png

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func grayImage(w, h uint32, depth BitDepth, data []byte) *Image {
	return &Image{
		Header: HeaderInfo{Width: w, Height: h, ColorType: Grayscale{}, BitDepth: depth},
		Data:   data,
	}
}

func TestReducedBitDepth16To8(t *testing.T) {
	// Every sample has equal high and low bytes, so the reduction is exact.
	img := &Image{
		Header: HeaderInfo{Width: 2, Height: 1, ColorType: RGB{}, BitDepth: BitDepthSixteen},
		Data: []byte{
			0x00, 0x00, 0x7F, 0x7F, 0xFF, 0xFF,
			0x11, 0x11, 0x22, 0x22, 0x33, 0x33,
		},
	}
	out := ReducedBitDepth16To8(img, false)
	require.NotNil(t, out)
	assert.Equal(t, BitDepthEight, out.Header.BitDepth)
	assert.Equal(t, []byte{0x00, 0x7F, 0xFF, 0x11, 0x22, 0x33}, out.Data)

	// One asymmetric sample blocks the lossless path.
	img.Data[1] = 0x01
	assert.Nil(t, ReducedBitDepth16To8(img, false))

	// Not applicable below 16 bits.
	assert.Nil(t, ReducedBitDepth16To8(out, false))
}

func TestScaledBitDepth16To8(t *testing.T) {
	img := grayImage(4, 1, BitDepthSixteen, []byte{
		0x00, 0x00, // 0 stays 0
		0x00, 0xFF, // 255/65535 rounds to 1, not 0
		0x80, 0x00, // mid-range scales to 128
		0xFF, 0xFF, // full scale stays 255
	})
	out := ReducedBitDepth16To8(img, true)
	require.NotNil(t, out)
	assert.Equal(t, []byte{0, 1, 128, 255}, out.Data)
}

func TestReducedBitDepth8OrLessGrayscale(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want BitDepth
	}{
		{"black and white", []byte{0, 255, 255, 0}, BitDepthOne},
		{"four shades", []byte{0x00, 0x55, 0xAA, 0xFF}, BitDepthTwo},
		{"sixteen shades", []byte{0x00, 0x11, 0x77, 0xFF}, BitDepthFour},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := grayImage(uint32(len(tt.data)), 1, BitDepthEight, tt.data)
			out := ReducedBitDepth8OrLess(img)
			require.NotNil(t, out)
			assert.Equal(t, tt.want, out.Header.BitDepth)

			// Expansion inverts the reduction exactly.
			back := ExpandedBitDepthTo8(out)
			require.NotNil(t, back)
			assert.Equal(t, tt.data, back.Data)
		})
	}

	// A sample that is not a bit replication of any narrower field keeps
	// the image at 8 bits.
	img := grayImage(2, 1, BitDepthEight, []byte{0x00, 0x12})
	assert.Nil(t, ReducedBitDepth8OrLess(img))
}

func TestReducedBitDepth8OrLessPacking(t *testing.T) {
	// A 5-pixel row at 2 bits packs MSB-first with padding in the last byte,
	// and the second row starts on a fresh byte.
	palette := make([]RGBA8, 4)
	img := &Image{
		Header: HeaderInfo{Width: 5, Height: 2,
			ColorType: Indexed{Palette: palette}, BitDepth: BitDepthEight},
		Data: []byte{
			0, 1, 2, 1, 0,
			3, 3, 3, 3, 3,
		},
	}
	out := ReducedBitDepth8OrLess(img)
	require.NotNil(t, out)
	assert.Equal(t, BitDepthTwo, out.Header.BitDepth)
	assert.Equal(t, []byte{0b00011001, 0b00000000, 0b11111111, 0b11000000}, out.Data)
}

func TestReducedBitDepth8OrLessPaletteSize(t *testing.T) {
	indexed := func(n int) *Image {
		return &Image{
			Header: HeaderInfo{Width: 1, Height: 1,
				ColorType: Indexed{Palette: make([]RGBA8, n)}, BitDepth: BitDepthEight},
			Data: []byte{0},
		}
	}
	tests := []struct {
		entries int
		want    BitDepth
	}{
		{2, BitDepthOne},
		{4, BitDepthTwo},
		{5, BitDepthFour},
		{16, BitDepthFour},
	}
	for _, tt := range tests {
		out := ReducedBitDepth8OrLess(indexed(tt.entries))
		require.NotNil(t, out, "%d entries", tt.entries)
		assert.Equal(t, tt.want, out.Header.BitDepth, "%d entries", tt.entries)
	}
	assert.Nil(t, ReducedBitDepth8OrLess(indexed(17)))
}

func TestReducedBitDepth8OrLessTransparentShade(t *testing.T) {
	// Shade 255 survives the round trip to 1 bit as shade 1.
	img := &Image{
		Header: HeaderInfo{Width: 2, Height: 1,
			ColorType: Grayscale{TransparentShade: 255, HasShade: true},
			BitDepth:  BitDepthEight},
		Data: []byte{0, 0},
	}
	out := ReducedBitDepth8OrLess(img)
	require.NotNil(t, out)
	gray := out.Header.ColorType.(Grayscale)
	assert.True(t, gray.HasShade)
	assert.Equal(t, uint16(1), gray.TransparentShade)

	// A shade the reduced depth cannot reproduce is dropped.
	img.Header.ColorType = Grayscale{TransparentShade: 0x12, HasShade: true}
	out = ReducedBitDepth8OrLess(img)
	require.NotNil(t, out)
	gray = out.Header.ColorType.(Grayscale)
	assert.False(t, gray.HasShade)
}

func TestExpandedBitDepthTo8(t *testing.T) {
	// 1-bit gray expands with bit replication: 1 becomes 255.
	img := grayImage(3, 2, BitDepthOne, []byte{0b10100000, 0b01000000})
	out := ExpandedBitDepthTo8(img)
	require.NotNil(t, out)
	assert.Equal(t, BitDepthEight, out.Header.BitDepth)
	assert.Equal(t, []byte{255, 0, 255, 0, 255, 0}, out.Data)

	// Indexed samples expand without replication.
	palette := make([]RGBA8, 3)
	idx := &Image{
		Header: HeaderInfo{Width: 3, Height: 1,
			ColorType: Indexed{Palette: palette}, BitDepth: BitDepthTwo},
		Data: []byte{0b00011000},
	}
	out = ExpandedBitDepthTo8(idx)
	require.NotNil(t, out)
	assert.Equal(t, []byte{0, 1, 2}, out.Data)

	// 8-bit input is already expanded.
	assert.Nil(t, ExpandedBitDepthTo8(out))
}
