package png

import "math/bits"

// RowFilter is either one of the five fixed PNG scanline filters or a
// heuristic strategy that picks a fixed filter per row.
type RowFilter uint8

const (
	FilterNone RowFilter = iota
	FilterSub
	FilterUp
	FilterAverage
	FilterPaeth
	// Heuristic strategies; these never appear in a stored filter tag.
	FilterMinSum
	FilterEntropy
	FilterBigrams
	FilterBigEnt
	FilterBrute
)

// standardFilters are the candidates tried when the row has a previous row
// within its interlacing pass.
var standardFilters = []RowFilter{FilterNone, FilterSub, FilterUp, FilterAverage, FilterPaeth}

// singleLineFilters are the candidates safe for the first row of a pass,
// where the vertical predictors have no previous line.
var singleLineFilters = []RowFilter{FilterNone, FilterSub}

func (f RowFilter) String() string {
	switch f {
	case FilterNone:
		return "None"
	case FilterSub:
		return "Sub"
	case FilterUp:
		return "Up"
	case FilterAverage:
		return "Average"
	case FilterPaeth:
		return "Paeth"
	case FilterMinSum:
		return "MinSum"
	case FilterEntropy:
		return "Entropy"
	case FilterBigrams:
		return "Bigrams"
	case FilterBigEnt:
		return "BigEnt"
	case FilterBrute:
		return "Brute"
	}
	return "Unknown"
}

// parseRowFilter validates a stored filter tag. Only the five fixed filters
// are legal on the wire.
func parseRowFilter(b byte) (RowFilter, error) {
	if b > byte(FilterPaeth) {
		return 0, formatErrorf("invalid filter tag %d", b)
	}
	return RowFilter(b), nil
}

// paeth is the standard PNG Paeth predictor over left, above and upper-left.
func paeth(a, b, c uint8) uint8 {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := p-int(a), p-int(b), p-int(c)
	if pa < 0 {
		pa = -pa
	}
	if pb < 0 {
		pb = -pb
	}
	if pc < 0 {
		pc = -pc
	}
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

// filterLine applies a fixed filter to one row, returning the stored form:
// the filter tag followed by the residuals. bpp is the pixel stride in whole
// bytes (never less than 1, even at sub-byte bit depths). prev must be a
// zero-filled row of equal length when the row opens an interlacing pass.
// The out slice is reused when it has capacity.
func (f RowFilter) filterLine(bpp int, line, prev, out []byte) []byte {
	out = append(out[:0], byte(f))
	switch f {
	case FilterNone:
		out = append(out, line...)
	case FilterSub:
		for i, b := range line {
			var left byte
			if i >= bpp {
				left = line[i-bpp]
			}
			out = append(out, b-left)
		}
	case FilterUp:
		for i, b := range line {
			out = append(out, b-prev[i])
		}
	case FilterAverage:
		for i, b := range line {
			var left int
			if i >= bpp {
				left = int(line[i-bpp])
			}
			out = append(out, b-byte((left+int(prev[i]))/2))
		}
	case FilterPaeth:
		for i, b := range line {
			var left, upLeft byte
			if i >= bpp {
				left = line[i-bpp]
				upLeft = prev[i-bpp]
			}
			out = append(out, b-paeth(left, prev[i], upLeft))
		}
	}
	return out
}

// unfilterLine reverses a fixed filter in place semantics: line holds the
// residuals (no tag) and the result is appended to out.
func (f RowFilter) unfilterLine(bpp int, line, prev, out []byte) ([]byte, error) {
	out = out[:0]
	switch f {
	case FilterNone:
		out = append(out, line...)
	case FilterSub:
		for i, b := range line {
			var left byte
			if i >= bpp {
				left = out[i-bpp]
			}
			out = append(out, b+left)
		}
	case FilterUp:
		for i, b := range line {
			out = append(out, b+prev[i])
		}
	case FilterAverage:
		for i, b := range line {
			var left int
			if i >= bpp {
				left = int(out[i-bpp])
			}
			out = append(out, b+byte((left+int(prev[i]))/2))
		}
	case FilterPaeth:
		for i, b := range line {
			var left, upLeft byte
			if i >= bpp {
				left = out[i-bpp]
				upLeft = prev[i-bpp]
			}
			out = append(out, b+paeth(left, prev[i], upLeft))
		}
	default:
		return nil, formatErrorf("invalid filter tag %d", byte(f))
	}
	return out, nil
}

// ilog2i is an integer approximation of i*log2(i), fast enough to score
// every candidate row without float math.
func ilog2i(i uint32) uint32 {
	if i == 0 {
		return 0
	}
	log := uint32(31 - bits.LeadingZeros32(i))
	return i*log + ((i - (1 << log)) << 1)
}
