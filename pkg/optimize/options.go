package optimize

import (
	"time"

	"github.com/jpfielding/pngs.go/pkg/compress/deflate"
	"github.com/jpfielding/pngs.go/pkg/png"
)

// Options controls a single optimization run.
type Options struct {
	// FixErrors downgrades CRC mismatches to warnings while decoding.
	FixErrors bool
	// Force writes the recoded result even when it is not smaller.
	Force bool
	// Filters are the row filter strategies to try. Empty means recompress
	// with the None filter only.
	Filters []png.RowFilter
	// Interlace converts the image to the given mode before recoding; nil
	// keeps the current mode.
	Interlace *png.Interlacing
	// OptimizeAlpha lets transparent pixels' trailing bytes be ignored by
	// the filter scoring metrics.
	OptimizeAlpha bool
	// Reduction toggles.
	BitDepthReduction  bool
	ColorTypeReduction bool
	PaletteReduction   bool
	GrayscaleReduction bool
	// IDATRecoding recompresses IDAT even when no reduction applied. Any
	// successful reduction forces recoding regardless of this flag.
	IDATRecoding bool
	// Scale16 forcibly reduces 16-bit images to 8-bit by scaling. This is
	// the one transform that may change pixel appearance, and only by
	// explicit request.
	Scale16 bool
	// Strip selects which ancillary chunks survive parsing.
	Strip png.StripPolicy
	// Deflater is the compression backend for IDAT and recompressed chunks.
	Deflater deflate.Deflater
	// FastEvaluation ranks the filter strategies with a cheap compression
	// pass and runs the configured backend only on the winner, instead of
	// compressing every strategy at full effort.
	FastEvaluation bool
	// Timeout bounds the whole run; exploration stops at the deadline and
	// the best result found so far wins. Checked cooperatively between
	// candidate evaluations, never mid-compression.
	Timeout time.Duration
}

// Default mirrors preset 2.
func Default() *Options {
	return &Options{
		Filters: []png.RowFilter{
			png.FilterNone, png.FilterSub, png.FilterEntropy, png.FilterBigrams,
		},
		Interlace:          interlacePtr(png.InterlaceNone),
		BitDepthReduction:  true,
		ColorTypeReduction: true,
		PaletteReduction:   true,
		GrayscaleReduction: true,
		IDATRecoding:       true,
		Strip:              png.StripNone{},
		Deflater:           deflate.Zlib{Level: 11},
		FastEvaluation:     true,
	}
}

// FromPreset builds Options from the numbered preset table. Levels above 6
// behave like 6.
func FromPreset(level uint8) *Options {
	o := Default()
	switch level {
	case 0:
		o.Filters = nil
		o.Deflater = deflate.Zlib{Level: 5}
	case 1:
		o.Filters = nil
		o.Deflater = deflate.Zlib{Level: 10}
	case 2:
		// the default
	case 3:
		o.applyPreset3()
	case 4:
		o.Deflater = deflate.Zlib{Level: 12}
		o.applyPreset3()
	case 5:
		o.applyPreset5()
	default:
		o.addFilters(png.FilterAverage, png.FilterPaeth)
		o.applyPreset5()
	}
	return o
}

// MaxCompression is the most aggressive preset.
func MaxCompression() *Options {
	return FromPreset(6)
}

func (o *Options) applyPreset3() {
	o.FastEvaluation = false
	o.Filters = []png.RowFilter{
		png.FilterNone, png.FilterBigrams, png.FilterBigEnt, png.FilterBrute,
	}
}

func (o *Options) applyPreset5() {
	o.FastEvaluation = false
	o.addFilters(png.FilterUp, png.FilterMinSum, png.FilterBigEnt, png.FilterBrute)
	o.Deflater = deflate.Zlib{Level: 12}
}

func (o *Options) addFilters(filters ...png.RowFilter) {
	for _, f := range filters {
		found := false
		for _, have := range o.Filters {
			if have == f {
				found = true
				break
			}
		}
		if !found {
			o.Filters = append(o.Filters, f)
		}
	}
}

func interlacePtr(i png.Interlacing) *png.Interlacing {
	return &i
}
