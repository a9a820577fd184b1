package optimize

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpfielding/pngs.go/pkg/compress/deflate"
	"github.com/jpfielding/pngs.go/pkg/png"
)

// encodePNG serializes an image with an unoptimized low-effort IDAT so the
// optimizer has room to improve it.
func encodePNG(t *testing.T, img *png.Image, aux ...png.Chunk) []byte {
	t.Helper()
	idat, err := deflate.Zlib{Level: 1}.Deflate(img.FilterImage(png.FilterNone, false), 0)
	require.NoError(t, err)
	doc := &png.Document{Raw: img, IDAT: idat, AuxChunks: aux}
	return doc.Output()
}

// decodePixels parses a PNG and normalizes its pixels to 8-bit progressive
// RGBA-ish bytes for comparison across format changes.
func decodePixels(t *testing.T, data []byte) *png.Image {
	t.Helper()
	doc, err := png.FromBytes(data, nil, false)
	require.NoError(t, err)
	img := doc.Raw
	if out := img.ChangeInterlacing(png.InterlaceNone); out != nil {
		img = out
	}
	if out := png.ExpandedBitDepthTo8(img); out != nil {
		img = out
	}
	return img
}

// gradientRGBA is compressible but not trivially reducible: its rows are
// smooth gradients with distinct channels and full opacity only off the
// diagonal.
func gradientRGBA(w, h int) *png.Image {
	data := make([]byte, 0, w*h*4)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			a := byte(255)
			if x == y {
				a = 254
			}
			data = append(data, byte(x*8), byte(y*8), byte(x+y), a)
		}
	}
	return &png.Image{
		Header: png.HeaderInfo{
			Width: uint32(w), Height: uint32(h),
			ColorType: png.RGBA{}, BitDepth: png.BitDepthEight,
		},
		Data: data,
	}
}

func TestOptimizeShrinksAndPreservesPixels(t *testing.T) {
	input := encodePNG(t, gradientRGBA(32, 32))

	out, err := Optimize(context.Background(), input, Default())
	require.NoError(t, err)
	assert.LessOrEqual(t, len(out), len(input))

	// The output is a valid PNG with identical pixels.
	assert.Equal(t, decodePixels(t, input).Data, decodePixels(t, out).Data)
}

// An all-opaque RGBA image should come back with its alpha channel gone and
// likely indexed, but pixel values intact.
func TestOptimizeReducesOpaqueRGBA(t *testing.T) {
	w, h := 16, 16
	data := make([]byte, 0, w*h*4)
	for i := 0; i < w*h; i++ {
		v := byte(i % 4 * 80)
		data = append(data, v, v, v, 255)
	}
	img := &png.Image{
		Header: png.HeaderInfo{
			Width: uint32(w), Height: uint32(h),
			ColorType: png.RGBA{}, BitDepth: png.BitDepthEight,
		},
		Data: data,
	}
	input := encodePNG(t, img)

	out, err := Optimize(context.Background(), input, Default())
	require.NoError(t, err)
	require.Less(t, len(out), len(input))

	doc, err := png.FromBytes(out, nil, false)
	require.NoError(t, err)
	assert.False(t, doc.Raw.Header.ColorType.HasAlpha())

	// Every original pixel is gray, so one 8-bit sample per pixel suffices
	// whatever color type won.
	decoded := decodePixels(t, out)
	expect := make([]byte, 0, w*h)
	for i := 0; i < len(data); i += 4 {
		expect = append(expect, data[i])
	}
	switch ct := decoded.Header.ColorType.(type) {
	case png.Grayscale:
		assert.Equal(t, expect, decoded.Data)
	case png.Indexed:
		resolved := make([]byte, 0, len(decoded.Data))
		for _, idx := range decoded.Data {
			resolved = append(resolved, ct.Palette[idx].R)
		}
		assert.Equal(t, expect, resolved)
	default:
		t.Fatalf("unexpected color type %s", ct)
	}
}

func TestOptimizeReturnsInputWhenNoImprovement(t *testing.T) {
	// A tiny image already at maximum compression cannot be beaten.
	img := &png.Image{
		Header: png.HeaderInfo{Width: 1, Height: 1, ColorType: png.Grayscale{}, BitDepth: png.BitDepthEight},
		Data:   []byte{42},
	}
	idat, err := deflate.Zlib{Level: 12}.Deflate(img.FilterImage(png.FilterNone, false), 0)
	require.NoError(t, err)
	input := (&png.Document{Raw: img, IDAT: idat}).Output()

	out, err := Optimize(context.Background(), input, Default())
	require.NoError(t, err)
	assert.Equal(t, input, out)
}

func TestOptimizeForce(t *testing.T) {
	input := encodePNG(t, gradientRGBA(8, 8))
	opts := Default()
	opts.Force = true

	out, err := Optimize(context.Background(), input, opts)
	require.NoError(t, err)
	// Force always yields a re-encoded stream, improvement or not.
	_, err = png.FromBytes(out, nil, false)
	require.NoError(t, err)
}

func TestOptimizeTimeoutKeepsBestSoFar(t *testing.T) {
	input := encodePNG(t, gradientRGBA(16, 16))
	opts := Default()
	opts.Timeout = time.Nanosecond

	// An expired deadline stops exploration; the input is still returned
	// intact rather than failing the run.
	out, err := Optimize(context.Background(), input, opts)
	require.NoError(t, err)
	_, err = png.FromBytes(out, nil, false)
	require.NoError(t, err)
}

func TestOptimizeCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	input := encodePNG(t, gradientRGBA(8, 8))
	_, err := Optimize(ctx, input, Default())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOptimizeRejectsGarbage(t *testing.T) {
	_, err := Optimize(context.Background(), []byte("not a png"), nil)
	assert.ErrorIs(t, err, png.ErrNotPNG)
}

func TestPerformReductions16To8(t *testing.T) {
	data := make([]byte, 0, 8)
	for _, v := range []byte{0, 0x55, 0xAA, 0xFF} {
		data = append(data, v, v)
	}
	img := &png.Image{
		Header: png.HeaderInfo{Width: 4, Height: 1, ColorType: png.Grayscale{}, BitDepth: png.BitDepthSixteen},
		Data:   data,
	}
	out, changed := performReductions(img, Default())
	assert.True(t, changed)
	// 16 to 8 losslessly, then the four replicated shades fit in 2 bits.
	assert.Equal(t, png.BitDepthTwo, out.Header.BitDepth)
}

func TestPerformReductionsNoChange(t *testing.T) {
	// Over 256 distinct non-gray colors: no reduction applies.
	w, h := 17, 16
	data := make([]byte, 0, w*h*3)
	for i := 0; i < w*h; i++ {
		data = append(data, byte(i), byte(i/2+1), byte(i/3+2))
	}
	img := &png.Image{
		Header: png.HeaderInfo{Width: uint32(w), Height: uint32(h), ColorType: png.RGB{}, BitDepth: png.BitDepthEight},
		Data:   data,
	}
	out, changed := performReductions(img, Default())
	assert.False(t, changed)
	assert.Equal(t, img.Data, out.Data)
}
