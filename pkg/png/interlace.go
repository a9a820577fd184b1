package png

// Adam7 pass reshuffling. Pixels are moved bit-exactly between the
// progressive layout and the seven-pass interlaced layout; every scanline in
// both layouts is independently byte-aligned.

// readPixel extracts pixel i of a row as an up-to-64-bit value.
func readPixel(row []byte, i, bppBits int) uint64 {
	if bppBits%8 == 0 {
		n := bppBits / 8
		var v uint64
		for _, b := range row[i*n : i*n+n] {
			v = v<<8 | uint64(b)
		}
		return v
	}
	bitOff := i * bppBits
	byteOff := bitOff / 8
	shift := 8 - bitOff%8 - bppBits
	return uint64(row[byteOff]>>shift) & ((1 << bppBits) - 1)
}

// writePixel stores pixel i of a row. Rows must be zero-initialized since
// sub-byte writes are OR-ed in.
func writePixel(row []byte, i, bppBits int, v uint64) {
	if bppBits%8 == 0 {
		n := bppBits / 8
		for j := n - 1; j >= 0; j-- {
			row[i*n+j] = byte(v)
			v >>= 8
		}
		return
	}
	bitOff := i * bppBits
	byteOff := bitOff / 8
	shift := 8 - bitOff%8 - bppBits
	row[byteOff] |= byte(v) << shift
}

// deinterlaceImage converts an Adam7-interlaced image to progressive order.
func deinterlaceImage(img *Image) *Image {
	h := img.Header
	bpp := h.BitsPerPixel()
	rowBytes := (int(h.Width)*bpp + 7) / 8
	out := make([]byte, rowBytes*int(h.Height))

	passRow := 0
	lastPass := 0
	for _, line := range img.scanLines(false) {
		if line.Pass != lastPass {
			passRow = 0
			lastPass = line.Pass
		}
		geo := adam7[line.Pass-1]
		y := geo.ys + passRow*geo.dy
		row := out[y*rowBytes : (y+1)*rowBytes]
		for i := 0; i < line.NumPixels; i++ {
			x := geo.xs + i*geo.dx
			writePixel(row, x, bpp, readPixel(line.Data, i, bpp))
		}
		passRow++
	}

	header := h
	header.Interlaced = InterlaceNone
	return &Image{Header: header, Data: out}
}

// interlaceImage converts a progressive image to Adam7 pass order.
func interlaceImage(img *Image) *Image {
	h := img.Header
	bpp := h.BitsPerPixel()
	rowBytes := (int(h.Width)*bpp + 7) / 8

	header := h
	header.Interlaced = InterlaceAdam7
	// RawDataSize counts one filter byte per stored row; subtract them to
	// size the bare pixel buffer.
	lines := 0
	for pass := 1; pass <= 7; pass++ {
		pw, ph := adam7PassDims(pass, h.Width, h.Height)
		if pw > 0 && ph > 0 {
			lines += ph
		}
	}
	out := make([]byte, header.RawDataSize()-lines)

	offset := 0
	for pass := 1; pass <= 7; pass++ {
		pw, ph := adam7PassDims(pass, h.Width, h.Height)
		if pw == 0 || ph == 0 {
			continue
		}
		geo := adam7[pass-1]
		passRowBytes := (pw*bpp + 7) / 8
		for py := 0; py < ph; py++ {
			y := geo.ys + py*geo.dy
			srcRow := img.Data[y*rowBytes : (y+1)*rowBytes]
			dstRow := out[offset : offset+passRowBytes]
			for i := 0; i < pw; i++ {
				x := geo.xs + i*geo.dx
				writePixel(dstRow, i, bpp, readPixel(srcRow, x, bpp))
			}
			offset += passRowBytes
		}
	}
	return &Image{Header: header, Data: out}
}

// ChangeInterlacing converts the image to the given interlacing mode,
// returning nil when the mode already matches.
func (img *Image) ChangeInterlacing(mode Interlacing) *Image {
	if mode == img.Header.Interlaced {
		return nil
	}
	if mode == InterlaceAdam7 {
		return interlaceImage(img)
	}
	return deinterlaceImage(img)
}
