package optimize

import (
	"log/slog"

	"github.com/jpfielding/pngs.go/pkg/png"
)

func hasChunk(aux []png.Chunk, name string) bool {
	return chunkIndex(aux, name) >= 0
}

func chunkIndex(aux []png.Chunk, name string) int {
	var n [4]byte
	copy(n[:], name)
	for i := range aux {
		if aux[i].Name == n {
			return i
		}
	}
	return -1
}

// preprocessChunks inspects the retained ancillary chunks and adjusts the
// run's options before optimizing: grayscale conversion is unsafe outside
// sRGB, an sRGB-equivalent iCCP chunk can be replaced wholesale, other iCCP
// chunks are worth a recompression attempt, and a detected animation
// container abandons all structural reductions since their effect on
// secondary frames is unverified.
func preprocessChunks(doc *png.Document, opts *Options) {
	hasSRGB := hasChunk(doc.AuxChunks, "sRGB")
	_, defaultStrip := opts.Strip.(png.StripNone)

	// An sRGB profile would need to be stripped on grayscale conversion, so
	// disallow the conversion when stripping is disabled.
	allowGrayscale := !hasSRGB || !defaultStrip

	if idx := chunkIndex(doc.AuxChunks, "iCCP"); idx >= 0 {
		allowGrayscale = false
		mayReplace := !defaultStrip && opts.Strip.Keep([4]byte{'s', 'R', 'G', 'B'})
		switch {
		case mayReplace && hasSRGB:
			// Files are not supposed to carry both; honor the sRGB chunk.
			doc.AuxChunks = append(doc.AuxChunks[:idx], doc.AuxChunks[idx+1:]...)
			allowGrayscale = true
		default:
			if icc := png.ExtractICC(&doc.AuxChunks[idx]); icc != nil {
				if intent, ok := srgbIntent(icc, mayReplace); ok {
					slog.Debug("replacing iCCP chunk with equivalent sRGB chunk")
					doc.AuxChunks[idx] = png.Chunk{
						Name: [4]byte{'s', 'R', 'G', 'B'},
						Data: []byte{intent},
					}
					allowGrayscale = true
				} else if opts.IDATRecoding {
					curLen := len(doc.AuxChunks[idx].Data)
					if iccp, err := png.MakeICCP(icc, opts.Deflater, curLen-1); err == nil {
						slog.Debug("recompressed iCCP chunk",
							"bytes", len(iccp.Data), "saved", curLen-len(iccp.Data))
						doc.AuxChunks[idx] = *iccp
					}
				}
			}
		}
	}

	if !allowGrayscale && opts.GrayscaleReduction {
		slog.Debug("disabling grayscale reduction due to sRGB or iCCP chunk")
		opts.GrayscaleReduction = false
	}

	if hasChunk(doc.AuxChunks, "acTL") {
		slog.Warn("APNG detected, disabling all reductions")
		opts.Interlace = nil
		opts.BitDepthReduction = false
		opts.ColorTypeReduction = false
		opts.PaletteReduction = false
		opts.GrayscaleReduction = false
	}
}

func srgbIntent(icc []byte, mayReplace bool) (byte, bool) {
	if !mayReplace {
		return 0, false
	}
	return png.SRGBRenderingIntent(icc)
}

// postprocessChunks removes ancillary chunks invalidated by the transforms
// that were actually applied: depth or color type changes invalidate
// bKGD/sBIT/hIST, and grayscale conversion either way invalidates color
// profile chunks.
func postprocessChunks(doc *png.Document, orig *png.HeaderInfo) {
	final := &doc.Raw.Header
	formatChanged := orig.BitDepth != final.BitDepth ||
		orig.ColorType.PNGHeaderCode() != final.ColorType.PNGHeaderCode()
	grayChanged := orig.ColorType.IsGray() != final.ColorType.IsGray()
	if !formatChanged && !grayChanged {
		return
	}

	kept := doc.AuxChunks[:0]
	for _, c := range doc.AuxChunks {
		name := string(c.Name[:])
		drop := false
		if formatChanged && (name == "bKGD" || name == "sBIT" || name == "hIST") {
			drop = true
		}
		if grayChanged && (name == "sRGB" || name == "iCCP") {
			drop = true
		}
		if drop {
			slog.Warn("removing chunk that no longer matches the image data", "chunk", name)
			continue
		}
		kept = append(kept, c)
	}
	doc.AuxChunks = kept
}
