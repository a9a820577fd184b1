package png

// ReducedPalette shrinks an 8-bit indexed image's palette: unused entries
// are dropped, duplicate entries are merged, and entries with transparency
// move to the front so the tRNS chunk can truncate at the last non-opaque
// entry. Returns nil when the palette is already minimal.
func ReducedPalette(img *Image) *Image {
	indexed, ok := img.Header.ColorType.(Indexed)
	if !ok || img.Header.BitDepth != BitDepthEight {
		return nil
	}

	var used [256]bool
	for _, b := range img.Data {
		used[b] = true
	}

	// Collect the surviving entries, transparent ones first, merging
	// duplicates as they are assigned new indices.
	var palette []RGBA8
	seen := make(map[RGBA8]byte)
	var remap [256]byte
	assign := func(oldIdx int, entry RGBA8) {
		if idx, ok := seen[entry]; ok {
			remap[oldIdx] = idx
			return
		}
		idx := byte(len(palette))
		seen[entry] = idx
		palette = append(palette, entry)
		remap[oldIdx] = idx
	}
	for pass := 0; pass < 2; pass++ {
		for i, entry := range indexed.Palette {
			if !used[i] {
				continue
			}
			transparent := entry.A != 255
			if (pass == 0) == transparent {
				assign(i, entry)
			}
		}
	}

	if len(palette) == len(indexed.Palette) {
		identity := true
		for i := range palette {
			if palette[i] != indexed.Palette[i] {
				identity = false
				break
			}
		}
		if identity {
			return nil
		}
	}

	data := make([]byte, len(img.Data))
	for i, b := range img.Data {
		data[i] = remap[b]
	}
	header := img.Header
	header.ColorType = Indexed{Palette: palette}
	return &Image{Header: header, Data: data}
}
