package png

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadWritePixel(t *testing.T) {
	// Byte-aligned: 3-byte pixels.
	row := make([]byte, 6)
	writePixel(row, 0, 24, 0x112233)
	writePixel(row, 1, 24, 0xAABBCC)
	assert.Equal(t, []byte{0x11, 0x22, 0x33, 0xAA, 0xBB, 0xCC}, row)
	assert.Equal(t, uint64(0x112233), readPixel(row, 0, 24))
	assert.Equal(t, uint64(0xAABBCC), readPixel(row, 1, 24))

	// Sub-byte: 2-bit pixels pack MSB-first.
	row = make([]byte, 1)
	for i, v := range []uint64{0, 1, 2, 3} {
		writePixel(row, i, 2, v)
	}
	assert.Equal(t, []byte{0b00011011}, row)
	for i, want := range []uint64{0, 1, 2, 3} {
		assert.Equal(t, want, readPixel(row, i, 2))
	}
}

func TestChangeInterlacingRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		w, h  uint32
		ct    ColorType
		depth BitDepth
	}{
		{"8-bit gray 8x8", 8, 8, Grayscale{}, BitDepthEight},
		{"8-bit gray 5x7", 5, 7, Grayscale{}, BitDepthEight},
		{"1-bit gray 9x3", 9, 3, Grayscale{}, BitDepthOne},
		{"8-bit rgba 4x4", 4, 4, RGBA{}, BitDepthEight},
		{"16-bit rgb 3x5", 3, 5, RGB{}, BitDepthSixteen},
		{"tiny 1x1", 1, 1, Grayscale{}, BitDepthEight},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := HeaderInfo{Width: tt.w, Height: tt.h, ColorType: tt.ct, BitDepth: tt.depth}
			bpp := header.BitsPerPixel()
			rowBytes := (int(tt.w)*bpp + 7) / 8
			// Distinct pixel values, written pixel-wise so sub-byte row
			// padding stays zero.
			data := make([]byte, rowBytes*int(tt.h))
			for y := 0; y < int(tt.h); y++ {
				row := data[y*rowBytes : (y+1)*rowBytes]
				for x := 0; x < int(tt.w); x++ {
					writePixel(row, x, bpp, uint64(y*31+x*7+3)&(1<<bpp-1))
				}
			}
			img := &Image{Header: header, Data: data}

			interlaced := img.ChangeInterlacing(InterlaceAdam7)
			require.NotNil(t, interlaced)
			assert.Equal(t, InterlaceAdam7, interlaced.Header.Interlaced)

			back := interlaced.ChangeInterlacing(InterlaceNone)
			require.NotNil(t, back)
			assert.Equal(t, data, back.Data, "deinterlacing inverts interlacing")

			// Same mode is a no-op.
			assert.Nil(t, img.ChangeInterlacing(InterlaceNone))
			assert.Nil(t, interlaced.ChangeInterlacing(InterlaceAdam7))
		})
	}
}

func TestInterlacedBufferSize(t *testing.T) {
	header := HeaderInfo{Width: 8, Height: 8, ColorType: Grayscale{}, BitDepth: BitDepthEight}
	img := &Image{Header: header, Data: make([]byte, 64)}
	interlaced := img.ChangeInterlacing(InterlaceAdam7)
	require.NotNil(t, interlaced)

	// Stored size equals RawDataSize minus one filter byte per scanline.
	lines := 0
	for pass := 1; pass <= 7; pass++ {
		_, ph := adam7PassDims(pass, 8, 8)
		lines += ph
	}
	assert.Len(t, interlaced.Data, interlaced.Header.RawDataSize()-lines)
}
