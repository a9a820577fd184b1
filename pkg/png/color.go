package png

// Color type reductions. Like the bit depth reductions, each is a pure
// probe-and-transform returning nil when not applicable. All of them require
// byte-aligned samples (8- or 16-bit depth); the orchestrator expands
// sub-8-bit images first and re-reduces depth afterwards.

// ReducedAlphaChannel strips the alpha channel from RGBA or GrayscaleAlpha
// images whose every alpha sample is fully opaque.
func ReducedAlphaChannel(img *Image) *Image {
	ct := img.Header.ColorType
	if !ct.HasAlpha() || img.Header.BitDepth < BitDepthEight {
		return nil
	}
	bpc := img.BytesPerChannel()
	pixel := bpc * ct.ChannelsPerPixel()
	colorBytes := pixel - bpc
	for i := colorBytes; i < len(img.Data); i += pixel {
		for j := 0; j < bpc; j++ {
			if img.Data[i+j] != 0xFF {
				return nil
			}
		}
	}

	data := make([]byte, 0, len(img.Data)/pixel*colorBytes)
	for i := 0; i < len(img.Data); i += pixel {
		data = append(data, img.Data[i:i+colorBytes]...)
	}
	header := img.Header
	switch ct.(type) {
	case RGBA:
		header.ColorType = RGB{}
	case GrayscaleAlpha:
		header.ColorType = Grayscale{}
	}
	return &Image{Header: header, Data: data}
}

// ReducedRGBToGrayscale converts RGB or RGBA images whose every pixel has
// equal red, green and blue samples into the grayscale equivalent.
func ReducedRGBToGrayscale(img *Image) *Image {
	ct := img.Header.ColorType
	switch ct.(type) {
	case RGB, RGBA:
	default:
		return nil
	}
	bpc := img.BytesPerChannel()
	pixel := bpc * ct.ChannelsPerPixel()
	for i := 0; i < len(img.Data); i += pixel {
		for j := 0; j < bpc; j++ {
			if img.Data[i+j] != img.Data[i+bpc+j] || img.Data[i+j] != img.Data[i+2*bpc+j] {
				return nil
			}
		}
	}

	keep := pixel - 2*bpc // one color channel plus any alpha
	data := make([]byte, 0, len(img.Data)/pixel*keep)
	for i := 0; i < len(img.Data); i += pixel {
		data = append(data, img.Data[i:i+bpc]...)
		data = append(data, img.Data[i+3*bpc:i+pixel]...)
	}
	header := img.Header
	switch c := ct.(type) {
	case RGB:
		gray := Grayscale{}
		if c.HasColor {
			t := c.TransparentColor
			if t.R != t.G || t.R != t.B {
				// The transparent color cannot be expressed in grayscale;
				// dropping it would change pixel appearance, so don't reduce.
				return nil
			}
			gray.TransparentShade = t.R
			gray.HasShade = true
		}
		header.ColorType = gray
	case RGBA:
		header.ColorType = GrayscaleAlpha{}
	}
	return &Image{Header: header, Data: data}
}

// ReducedToIndexed converts an 8-bit image with at most 256 distinct pixel
// values into indexed color, building the palette in first-seen order.
// Images carrying tRNS transparency are left alone; folding a transparent
// shade or color into palette alpha is handled by the palette reduction
// after this one applies.
func ReducedToIndexed(img *Image) *Image {
	if img.Header.BitDepth != BitDepthEight {
		return nil
	}
	var rgba func(i int) RGBA8
	pixel := img.ChannelsPerPixel()
	switch ct := img.Header.ColorType.(type) {
	case Grayscale:
		if ct.HasShade {
			return nil
		}
		rgba = func(i int) RGBA8 {
			v := img.Data[i]
			return RGBA8{R: v, G: v, B: v, A: 255}
		}
	case GrayscaleAlpha:
		rgba = func(i int) RGBA8 {
			v := img.Data[i]
			return RGBA8{R: v, G: v, B: v, A: img.Data[i+1]}
		}
	case RGB:
		if ct.HasColor {
			return nil
		}
		rgba = func(i int) RGBA8 {
			return RGBA8{R: img.Data[i], G: img.Data[i+1], B: img.Data[i+2], A: 255}
		}
	case RGBA:
		rgba = func(i int) RGBA8 {
			return RGBA8{R: img.Data[i], G: img.Data[i+1], B: img.Data[i+2], A: img.Data[i+3]}
		}
	default:
		return nil
	}

	indices := make(map[RGBA8]byte)
	var palette []RGBA8
	data := make([]byte, 0, len(img.Data)/pixel)
	for i := 0; i < len(img.Data); i += pixel {
		px := rgba(i)
		idx, ok := indices[px]
		if !ok {
			if len(palette) == 256 {
				return nil
			}
			idx = byte(len(palette))
			indices[px] = idx
			palette = append(palette, px)
		}
		data = append(data, idx)
	}

	header := img.Header
	header.ColorType = Indexed{Palette: palette}
	return &Image{Header: header, Data: data}
}
