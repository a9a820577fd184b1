package png

import (
	"math"

	"github.com/jpfielding/pngs.go/pkg/compress/deflate"
)

// Compression settings for the Brute filter strategy: a fast low-effort pass
// over the candidate row plus a bounded window of preceding rows stands in
// for full-image recompression.
const (
	bruteLevel = 1
	bruteLines = 4
)

// Image is a fully unfiltered pixel buffer plus its header. Images are
// immutable once constructed and safe to share across concurrent candidate
// evaluations; every transform allocates and returns a fresh Image.
type Image struct {
	Header HeaderInfo
	// Data holds the scanline bytes in store order with filter tags removed.
	Data []byte
}

// NewImage inflates an IDAT payload against the header's expected size and
// reverses the per-row filters. Both truncated and overlong pixel data are
// rejected; this catches dimension and format mismatches early.
func NewImage(header *HeaderInfo, compressed []byte) (*Image, error) {
	expected := header.RawDataSize()
	raw, err := deflate.Inflate(compressed, expected)
	if err != nil {
		return nil, err
	}
	if len(raw) != expected {
		return nil, ErrTruncatedData
	}
	img := &Image{Header: *header, Data: raw}
	unfiltered, err := img.unfilterImage()
	if err != nil {
		return nil, err
	}
	img.Data = unfiltered
	return img, nil
}

// ChannelsPerPixel is the sample count per pixel.
func (img *Image) ChannelsPerPixel() int {
	return img.Header.ColorType.ChannelsPerPixel()
}

// BytesPerChannel is the storage width of one sample, rounded up to a byte.
func (img *Image) BytesPerChannel() int {
	return img.Header.BytesPerChannel()
}

// filterBPP is the byte distance used by the filter predictors: pixel-sized
// strides, never fractional, minimum one byte at sub-byte bit depths.
func (img *Image) filterBPP() int {
	return img.BytesPerChannel() * img.ChannelsPerPixel()
}

// KeyChunksSize is the serialized size of the PLTE and tRNS chunks this
// image will emit, including their 12-byte chunk framing.
func (img *Image) KeyChunksSize() int {
	switch ct := img.Header.ColorType.(type) {
	case Indexed:
		size := 12 + len(ct.Palette)*3
		if last, ok := lastNonOpaque(ct.Palette); ok {
			size += 12 + last + 1
		}
		return size
	case Grayscale:
		if ct.HasShade {
			return 12 + 2
		}
	case RGB:
		if ct.HasColor {
			return 12 + 6
		}
	}
	return 0
}

// EstimatedOutputSize helps compare candidates on very small images where
// the palette chunks dominate the IDAT payload.
func (img *Image) EstimatedOutputSize(idat []byte) int {
	return len(idat) + img.KeyChunksSize()
}

func lastNonOpaque(palette []RGBA8) (int, bool) {
	for i := len(palette) - 1; i >= 0; i-- {
		if palette[i].A != 255 {
			return i, true
		}
	}
	return 0, false
}

// unfilterImage reverses all row filters, resetting the previous-line
// context at every interlacing pass boundary.
func (img *Image) unfilterImage() ([]byte, error) {
	unfiltered := make([]byte, 0, len(img.Data))
	bpp := img.filterBPP()
	var lastLine, buf []byte
	lastPass := -1
	for _, line := range img.scanLines(true) {
		if lastPass != line.Pass {
			lastLine = nil
			lastPass = line.Pass
		}
		if len(lastLine) < len(line.Data) {
			lastLine = append(lastLine, make([]byte, len(line.Data)-len(lastLine))...)
		}
		filter, err := parseRowFilter(line.Filter)
		if err != nil {
			return nil, err
		}
		buf, err = filter.unfilterLine(bpp, line.Data, lastLine, buf)
		if err != nil {
			return nil, err
		}
		unfiltered = append(unfiltered, buf...)
		lastLine, buf = buf, lastLine
	}
	return unfiltered, nil
}

// FilterImage applies a filter selection to every row and returns the stored
// form of the pixel data, ready for compression. Fixed filters are applied
// directly, falling back to None on rows where the vertical predictors have
// no previous line within the pass. Heuristic strategies score a candidate
// subset of fixed filters per row and keep the best. When optimizeAlpha is
// set, the trailing alpha bytes of each pixel are excluded from the scoring
// metrics so transparent-pixel bytes are don't-care for compression.
func (img *Image) FilterImage(filter RowFilter, optimizeAlpha bool) []byte {
	filtered := make([]byte, 0, len(img.Data)+int(img.Header.Height))
	bpp := img.filterBPP()
	alphaBytes := 0
	if optimizeAlpha && img.Header.ColorType.HasAlpha() {
		alphaBytes = img.BytesPerChannel()
	}

	var prevLine, fBuf, bestLine []byte
	prevPass := -1
	for _, line := range img.scanLines(false) {
		if prevPass != line.Pass || len(line.Data) != len(prevLine) {
			prevLine = make([]byte, len(line.Data))
		}
		samePass := prevPass == line.Pass
		prevPass = line.Pass

		if filter <= FilterPaeth {
			f := filter
			if !samePass && f > FilterSub {
				f = FilterNone
			}
			fBuf = f.filterLine(bpp, line.Data, prevLine, fBuf)
			filtered = append(filtered, fBuf...)
			prevLine = append(prevLine[:0], line.Data...)
			continue
		}

		if allZero(line.Data) {
			// None is guaranteed optimal for an all-zero row.
			fBuf = FilterNone.filterLine(bpp, line.Data, prevLine, fBuf)
			filtered = append(filtered, fBuf...)
			prevLine = append(prevLine[:0], line.Data...)
			continue
		}

		candidates := standardFilters
		if !samePass {
			candidates = singleLineFilters
		}
		bestLine = bestLine[:0]
		switch filter {
		case FilterMinSum:
			best := math.MaxInt
			for _, f := range candidates {
				fBuf = f.filterLine(bpp, line.Data, prevLine, fBuf)
				if score := sumAbsScore(fBuf, bpp, alphaBytes); score < best {
					best = score
					bestLine, fBuf = fBuf, bestLine
				}
			}
		case FilterEntropy:
			best := -1
			for _, f := range candidates {
				fBuf = f.filterLine(bpp, line.Data, prevLine, fBuf)
				if score := entropyScore(fBuf, bpp, alphaBytes); score > best {
					best = score
					bestLine, fBuf = fBuf, bestLine
				}
			}
		case FilterBigrams:
			best := math.MaxInt
			for _, f := range candidates {
				fBuf = f.filterLine(bpp, line.Data, prevLine, fBuf)
				if score := bigramCount(fBuf, bpp, alphaBytes); score < best {
					best = score
					bestLine, fBuf = fBuf, bestLine
				}
			}
		case FilterBigEnt:
			best := -1
			counts := make(map[uint16]uint32)
			for _, f := range candidates {
				fBuf = f.filterLine(bpp, line.Data, prevLine, fBuf)
				if score := bigramEntropy(fBuf, bpp, alphaBytes, counts); score > best {
					best = score
					bestLine, fBuf = fBuf, bestLine
				}
			}
		case FilterBrute:
			best := math.MaxInt
			limit := len(filtered) + len(line.Data) + 1
			if max := (len(line.Data) + 1) * bruteLines; limit > max {
				limit = max
			}
			window := make([]byte, 0, limit)
			for _, f := range candidates {
				fBuf = f.filterLine(bpp, line.Data, prevLine, fBuf)
				window = append(window[:0], filtered[len(filtered)+len(fBuf)-limit:]...)
				window = append(window, fBuf...)
				if score := bruteSize(window); score < best {
					best = score
					bestLine, fBuf = fBuf, bestLine
				}
			}
		}
		filtered = append(filtered, bestLine...)
		prevLine = append(prevLine[:0], line.Data...)
	}
	return filtered
}

func allZero(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}

// excluded reports whether residual index i falls within the trailing
// alphaBytes of its pixel. Index 0 is the filter tag and is always scored.
func excluded(i, bpp, alphaBytes int) bool {
	if alphaBytes == 0 || i == 0 {
		return false
	}
	return (i-1)%bpp >= bpp-alphaBytes
}

// sumAbsScore is the MSAD heuristic: the sum of absolute signed residuals.
func sumAbsScore(row []byte, bpp, alphaBytes int) int {
	sum := 0
	for i, b := range row {
		if excluded(i, bpp, alphaBytes) {
			continue
		}
		if b < 128 {
			sum += int(b)
		} else {
			sum += 256 - int(b)
		}
	}
	return sum
}

// entropyScore approximates the Shannon entropy of the residual histogram.
// Higher is better.
func entropyScore(row []byte, bpp, alphaBytes int) int {
	var counts [256]uint32
	for i, b := range row {
		if excluded(i, bpp, alphaBytes) {
			continue
		}
		counts[b]++
	}
	score := uint32(0)
	for _, c := range counts {
		score += ilog2i(c)
	}
	return int(score)
}

// bigramCount is the number of distinct adjacent byte pairs in the row.
func bigramCount(row []byte, bpp, alphaBytes int) int {
	var set [1024]uint64
	count := 0
	for i := 0; i+1 < len(row); i++ {
		if excluded(i, bpp, alphaBytes) || excluded(i+1, bpp, alphaBytes) {
			continue
		}
		bigram := uint32(row[i])<<8 | uint32(row[i+1])
		word, bit := bigram/64, bigram%64
		if set[word]&(1<<bit) == 0 {
			set[word] |= 1 << bit
			count++
		}
	}
	return count
}

// bigramEntropy combines the bigram alphabet with entropy scoring. The
// counts map is cleared and reused across candidates.
func bigramEntropy(row []byte, bpp, alphaBytes int, counts map[uint16]uint32) int {
	clear(counts)
	for i := 0; i+1 < len(row); i++ {
		if excluded(i, bpp, alphaBytes) || excluded(i+1, bpp, alphaBytes) {
			continue
		}
		counts[uint16(row[i])<<8|uint16(row[i+1])]++
	}
	score := uint32(0)
	for _, c := range counts {
		score += ilog2i(c)
	}
	return int(score)
}

// bruteSize is the compressed size of the candidate window under a fast
// low-effort pass.
func bruteSize(window []byte) int {
	out, err := deflate.Zlib{Level: bruteLevel}.Deflate(window, 0)
	if err != nil {
		return math.MaxInt
	}
	return len(out)
}
