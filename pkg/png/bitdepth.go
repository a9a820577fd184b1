package png

import "math/bits"

// Pixel-format reductions are probe-and-transform pairs: each returns a
// smaller Image when the transform applies, or nil when it does not.
// Reductions never error and never mutate their input.

// ReducedBitDepth16To8 reduces a 16-bit image to 8-bit. The lossless path
// succeeds only when every big-endian sample has equal high and low bytes;
// forceScale rescales every sample instead and always succeeds on 16-bit
// input.
func ReducedBitDepth16To8(img *Image, forceScale bool) *Image {
	if img.Header.BitDepth != BitDepthSixteen {
		return nil
	}
	if forceScale {
		return ScaledBitDepth16To8(img)
	}
	for i := 0; i < len(img.Data); i += 2 {
		if img.Data[i] != img.Data[i+1] {
			return nil
		}
	}
	data := make([]byte, 0, len(img.Data)/2)
	for i := 0; i < len(img.Data); i += 2 {
		data = append(data, img.Data[i])
	}
	header := img.Header
	header.BitDepth = BitDepthEight
	return &Image{Header: header, Data: data}
}

// ScaledBitDepth16To8 forcibly reduces a 16-bit image to 8-bit, rescaling
// samples that are not exactly representable. Rounding (rather than
// truncating) keeps values like 0x00FF at 0x01 instead of 0x00.
func ScaledBitDepth16To8(img *Image) *Image {
	if img.Header.BitDepth != BitDepthSixteen {
		return nil
	}
	data := make([]byte, 0, len(img.Data)/2)
	for i := 0; i < len(img.Data); i += 2 {
		hi, lo := img.Data[i], img.Data[i+1]
		if hi == lo {
			data = append(data, hi)
			continue
		}
		val := float32(uint16(hi)<<8 | uint16(lo))
		data = append(data, uint8(val*(255.0/65535.0)+0.5))
	}
	header := img.Header
	header.BitDepth = BitDepthEight
	return &Image{Header: header, Data: data}
}

// ReducedBitDepth8OrLess reduces a single-channel 8-bit image to the
// smallest bit depth that reproduces it exactly. Indexed depth follows
// directly from the palette size; grayscale depth is discovered by testing
// whether every sample is a bit-replication of a narrower field.
func ReducedBitDepth8OrLess(img *Image) *Image {
	if img.Header.BitDepth != BitDepthEight || img.ChannelsPerPixel() != 1 {
		return nil
	}

	minimumBits := 1
	if indexed, ok := img.Header.ColorType.(Indexed); ok {
		switch n := len(indexed.Palette); {
		case n <= 2:
			minimumBits = 1
		case n <= 4:
			minimumBits = 2
		case n <= 16:
			minimumBits = 4
		default:
			return nil
		}
	} else {
		mask := byte(1)
		for _, b := range img.Data {
			if b == 0 || b == 255 {
				// Depth-invariant values hold at any bit depth.
				continue
			}
		tryDepth:
			for {
				// Align the first division of the sample with the mask; every
				// division must be identical for the depth to reproduce it.
				v := bits.RotateLeft8(b, minimumBits)
				compare := v & mask
				for i := 1; i < 8/minimumBits; i++ {
					v = bits.RotateLeft8(v, minimumBits)
					if v&mask != compare {
						minimumBits <<= 1
						if minimumBits == 8 {
							return nil
						}
						mask = byte(1<<minimumBits) - 1
						continue tryDepth
					}
				}
				break
			}
		}
	}

	// Pack samples most-significant-bits-first, one scanline at a time so
	// row padding never leaks into the next row.
	reduced := make([]byte, 0, len(img.Data)*minimumBits/8+int(img.Header.Height))
	mask := byte(1<<minimumBits) - 1
	perByte := 8 / minimumBits
	for _, line := range img.scanLines(false) {
		for start := 0; start < len(line.Data); start += perByte {
			end := start + perByte
			if end > len(line.Data) {
				end = len(line.Data)
			}
			var packed byte
			shift := 8
			for _, b := range line.Data[start:end] {
				shift -= minimumBits
				packed |= (b & mask) << shift
			}
			reduced = append(reduced, packed)
		}
	}

	header := img.Header
	header.BitDepth = BitDepth(minimumBits)
	if gray, ok := header.ColorType.(Grayscale); ok && gray.HasShade {
		// The transparent shade must survive its own round trip through the
		// new depth, else it referenced a value the image cannot hold.
		reducedShade := (gray.TransparentShade & 0xFF) >> (8 - minimumBits)
		check := reducedShade
		for b := minimumBits; b < 8; b <<= 1 {
			check = check<<b | check
		}
		if check == gray.TransparentShade {
			header.ColorType = Grayscale{TransparentShade: reducedShade, HasShade: true}
		} else {
			header.ColorType = Grayscale{}
		}
	}
	return &Image{Header: header, Data: reduced}
}

// ExpandedBitDepthTo8 expands a 1/2/4-bit image to 8-bit, the inverse of
// ReducedBitDepth8OrLess. Grayscale samples are bit-replicated to preserve
// visual intensity; padding bits past each row's pixel count are discarded.
func ExpandedBitDepthTo8(img *Image) *Image {
	depth := int(img.Header.BitDepth)
	if depth >= 8 {
		return nil
	}
	_, isGray := img.Header.ColorType.(Grayscale)

	expanded := make([]byte, 0, int(img.Header.Width)*int(img.Header.Height))
	mask := byte(1<<depth) - 1
	perByte := 8 / depth
	length := 0
	for _, line := range img.scanLines(false) {
		for _, b := range line.Data {
			for i := 0; i < perByte; i++ {
				b = bits.RotateLeft8(b, depth)
				val := b & mask
				if isGray {
					for bitsSoFar := depth; bitsSoFar < 8; bitsSoFar <<= 1 {
						val = val<<bitsSoFar | val
					}
				}
				expanded = append(expanded, val)
			}
		}
		length += line.NumPixels
		expanded = expanded[:length]
	}

	header := img.Header
	header.BitDepth = BitDepthEight
	if gray, ok := header.ColorType.(Grayscale); ok && gray.HasShade {
		shade := gray.TransparentShade
		for b := depth; b < 8; b <<= 1 {
			shade = shade<<b | shade
		}
		header.ColorType = Grayscale{TransparentShade: shade, HasShade: true}
	}
	return &Image{Header: header, Data: expanded}
}
