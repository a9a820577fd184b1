package png

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaethPredictor(t *testing.T) {
	tests := []struct {
		a, b, c uint8 // left, above, upper-left
		want    uint8
	}{
		{0, 0, 0, 0},
		{10, 20, 10, 20},   // vertical gradient predicts above
		{20, 10, 10, 20},   // horizontal gradient predicts left
		{100, 100, 0, 100}, // ties break toward left
		{50, 60, 200, 50},
		{255, 255, 255, 255},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, paeth(tt.a, tt.b, tt.c), "paeth(%d, %d, %d)", tt.a, tt.b, tt.c)
	}
}

func TestParseRowFilter(t *testing.T) {
	for b := byte(0); b <= 4; b++ {
		f, err := parseRowFilter(b)
		require.NoError(t, err)
		assert.Equal(t, RowFilter(b), f)
	}
	_, err := parseRowFilter(5)
	require.Error(t, err)
	var formatErr *FormatError
	assert.ErrorAs(t, err, &formatErr)
}

// Every fixed filter must invert exactly, at every pixel stride.
func TestFilterLineRoundTrip(t *testing.T) {
	line := []byte{0, 1, 255, 128, 7, 130, 64, 64, 3, 250, 17, 90}
	prev := []byte{9, 0, 254, 127, 8, 131, 63, 65, 4, 249, 18, 89}

	for _, bpp := range []int{1, 2, 3, 4, 6, 8} {
		for _, f := range standardFilters {
			filtered := f.filterLine(bpp, line, prev, nil)
			require.Len(t, filtered, len(line)+1)
			assert.Equal(t, byte(f), filtered[0])

			out, err := f.unfilterLine(bpp, filtered[1:], prev, nil)
			require.NoError(t, err)
			assert.Equal(t, line, out, "filter %s bpp %d", f, bpp)
		}
	}
}

func TestUnfilterLineRejectsBadTag(t *testing.T) {
	_, err := RowFilter(7).unfilterLine(1, []byte{1, 2}, []byte{0, 0}, nil)
	require.Error(t, err)
}

func TestFilterSubUsesPixelStride(t *testing.T) {
	// Two 3-byte pixels; Sub subtracts the byte bpp positions back.
	line := []byte{10, 20, 30, 15, 25, 35}
	filtered := FilterSub.filterLine(3, line, make([]byte, len(line)), nil)
	assert.Equal(t, []byte{1, 10, 20, 30, 5, 5, 5}, filtered)
}

func TestRowFilterString(t *testing.T) {
	names := map[RowFilter]string{
		FilterNone:    "None",
		FilterSub:     "Sub",
		FilterUp:      "Up",
		FilterAverage: "Average",
		FilterPaeth:   "Paeth",
		FilterMinSum:  "MinSum",
		FilterEntropy: "Entropy",
		FilterBigrams: "Bigrams",
		FilterBigEnt:  "BigEnt",
		FilterBrute:   "Brute",
	}
	for f, want := range names {
		assert.Equal(t, want, f.String())
	}
	assert.Equal(t, "Unknown", RowFilter(42).String())
}

func TestIlog2i(t *testing.T) {
	tests := []struct {
		in   uint32
		want uint32
	}{
		{0, 0},
		{1, 0},
		{2, 2},      // 2*1 + 0
		{3, 5},      // 3*1 + 2
		{4, 8},      // 4*2 + 0
		{5, 12},     // 5*2 + 2
		{8, 24},     // 8*3 + 0
		{255, 2039}, // 255*7 + 127*2
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ilog2i(tt.in), "ilog2i(%d)", tt.in)
	}
}
