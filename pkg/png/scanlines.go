package png

// scanLine describes one stored row of the image buffer.
type scanLine struct {
	// Data is the row's pixel bytes, excluding any filter tag.
	Data []byte
	// Filter is the row's filter tag; only meaningful when the buffer was
	// iterated with hasFilter set.
	Filter byte
	// Pass is the Adam7 pass this row belongs to (1-7), or 0 when the image
	// is not interlaced. Vertical filter predictors never cross a pass.
	Pass int
	// NumPixels is the pixel count of the row; the final byte of a sub-8-bit
	// row may carry padding bits beyond it.
	NumPixels int
}

// scanLines slices the image buffer into rows in store order. When hasFilter
// is set, each stored row is expected to carry a leading filter tag (the
// layout of freshly inflated IDAT data); otherwise rows are bare pixel bytes
// (the layout of an unfiltered Image).
func (img *Image) scanLines(hasFilter bool) []scanLine {
	h := &img.Header
	bpp := h.BitsPerPixel()
	var lines []scanLine
	offset := 0
	row := func(pass, width int) {
		lineBytes := (width*bpp + 7) / 8
		var filter byte
		if hasFilter {
			filter = img.Data[offset]
			offset++
		}
		lines = append(lines, scanLine{
			Data:      img.Data[offset : offset+lineBytes],
			Filter:    filter,
			Pass:      pass,
			NumPixels: width,
		})
		offset += lineBytes
	}
	if h.Interlaced == InterlaceNone {
		for y := 0; y < int(h.Height); y++ {
			row(0, int(h.Width))
		}
		return lines
	}
	for pass := 1; pass <= 7; pass++ {
		pw, ph := adam7PassDims(pass, h.Width, h.Height)
		if pw == 0 || ph == 0 {
			continue
		}
		for y := 0; y < ph; y++ {
			row(pass, pw)
		}
	}
	return lines
}
