// Package optimize drives the PNG re-encoding pipeline: pixel-format
// reductions, per-row filter selection, and IDAT recompression across a set
// of candidate configurations, keeping the smallest valid result.
package optimize

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jpfielding/pngs.go/pkg/compress/deflate"
	"github.com/jpfielding/pngs.go/pkg/logging"
	"github.com/jpfielding/pngs.go/pkg/png"
)

// fastEvalLevel is the cheap compression pass used to rank filter
// candidates under fast evaluation before the real backend runs once.
const fastEvalLevel = 2

// Optimize re-encodes a PNG byte stream. It returns the smallest valid
// rendition observed; when nothing beats the input, the input itself is
// returned unchanged unless opts.Force is set. A timeout aborts further
// exploration, not the run.
func Optimize(ctx context.Context, input []byte, opts *Options) ([]byte, error) {
	if opts == nil {
		opts = Default()
	}
	run := *opts // preprocessing may adjust flags for this run only
	ctx = logging.AppendCtx(ctx, slog.String("run", uuid.NewString()))

	var deadline time.Time
	if run.Timeout > 0 {
		deadline = time.Now().Add(run.Timeout)
	}

	doc, err := png.FromBytes(input, run.Strip, run.FixErrors)
	if err != nil {
		return nil, err
	}
	origHeader := doc.Raw.Header
	slog.DebugContext(ctx, "parsed input",
		"bytes", len(input),
		"color", origHeader.ColorType.String(),
		"depth", origHeader.BitDepth,
		"pixels", origHeader.Width*origHeader.Height)

	preprocessChunks(doc, &run)

	img, reduced := performReductions(doc.Raw, &run)
	if run.Interlace != nil {
		if changed := img.ChangeInterlacing(*run.Interlace); changed != nil {
			img = changed
			reduced = true
		}
	}

	if run.IDATRecoding || reduced || run.Force {
		idat, err := evaluate(ctx, img, &run, deadline)
		if err != nil {
			return nil, err
		}
		if idat != nil {
			candidate := &png.Document{
				Raw:       img,
				IDAT:      idat,
				AuxChunks: doc.AuxChunks,
				Frames:    doc.Frames,
			}
			postprocessChunks(candidate, &origHeader)
			out := candidate.Output()
			if len(out) < len(input) || run.Force {
				slog.InfoContext(ctx, "optimized",
					"in", len(input), "out", len(out),
					"color", img.Header.ColorType.String(),
					"depth", img.Header.BitDepth)
				return out, nil
			}
		}
	}

	slog.InfoContext(ctx, "no improvement found", "bytes", len(input))
	return input, nil
}

// performReductions runs the enabled pixel-format reductions. Sub-byte
// images are expanded to 8-bit first so the color and palette probes can
// operate on whole samples, then depth is re-minimized at the end. The
// boolean reports whether the result differs from the input image.
func performReductions(orig *png.Image, opts *Options) (*png.Image, bool) {
	img := orig
	apply := func(next *png.Image) {
		if next != nil {
			img = next
		}
	}

	if opts.BitDepthReduction || opts.Scale16 {
		apply(png.ReducedBitDepth16To8(img, opts.Scale16))
	}

	if opts.ColorTypeReduction || opts.PaletteReduction || opts.GrayscaleReduction {
		// Working in 8-bit samples is a size regression only until the
		// final depth reduction claws it back.
		if opts.BitDepthReduction {
			apply(png.ExpandedBitDepthTo8(img))
		}
		if opts.ColorTypeReduction {
			apply(png.ReducedAlphaChannel(img))
			if opts.GrayscaleReduction {
				apply(png.ReducedRGBToGrayscale(img))
			}
			apply(png.ReducedToIndexed(img))
		}
		if opts.PaletteReduction {
			apply(png.ReducedPalette(img))
		}
	}

	if opts.BitDepthReduction {
		apply(png.ReducedBitDepth8OrLess(img))
	}
	return img, !sameImage(orig, img)
}

// sameImage reports whether two images would serialize identically.
func sameImage(a, b *png.Image) bool {
	if a == b {
		return true
	}
	if a.Header.BitDepth != b.Header.BitDepth ||
		a.Header.Interlaced != b.Header.Interlaced ||
		a.Header.ColorType.PNGHeaderCode() != b.Header.ColorType.PNGHeaderCode() {
		return false
	}
	if pa, ok := a.Header.ColorType.(png.Indexed); ok {
		pb := b.Header.ColorType.(png.Indexed)
		if len(pa.Palette) != len(pb.Palette) {
			return false
		}
		for i := range pa.Palette {
			if pa.Palette[i] != pb.Palette[i] {
				return false
			}
		}
	}
	return bytes.Equal(a.Data, b.Data)
}

// evaluate tries every configured filter strategy against the shared
// read-only image and keeps the smallest compressed result. Candidates run
// concurrently over the immutable image; the merge is a single mutex. Under
// fast evaluation, candidates are ranked with a cheap compression pass and
// only the winner goes through the configured backend. The deadline and
// context are checked cooperatively between candidates, never mid-flight.
func evaluate(ctx context.Context, img *png.Image, opts *Options, deadline time.Time) ([]byte, error) {
	filters := opts.Filters
	if len(filters) == 0 {
		filters = []png.RowFilter{png.FilterNone}
	}

	expired := func() bool {
		if ctx.Err() != nil {
			return true
		}
		return !deadline.IsZero() && time.Now().After(deadline)
	}

	deflater := opts.Deflater
	if opts.FastEvaluation && len(filters) > 1 {
		winner, ok := rankFilters(ctx, img, filters, opts, expired)
		if !ok {
			return nil, ctx.Err()
		}
		filters = []png.RowFilter{winner}
	}

	var (
		mu   sync.Mutex
		best []byte
		wg   sync.WaitGroup
	)
	for _, filter := range filters {
		if expired() {
			slog.WarnContext(ctx, "timed out, keeping best result so far")
			break
		}
		wg.Add(1)
		go func(f png.RowFilter) {
			defer wg.Done()
			filtered := img.FilterImage(f, opts.OptimizeAlpha)
			idat, err := deflater.Deflate(filtered, 0)
			if err != nil {
				// A failed candidate is discarded, never fatal.
				slog.DebugContext(ctx, "candidate failed", "filter", f.String(), "error", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if best == nil || img.EstimatedOutputSize(idat) < img.EstimatedOutputSize(best) {
				slog.DebugContext(ctx, "new best candidate",
					"filter", f.String(), "deflater", deflater.String(), "bytes", len(idat))
				best = idat
			}
		}(filter)
	}
	wg.Wait()

	if best == nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return best, nil
}

// rankFilters scores every filter strategy with a fast low-effort
// compression pass and returns the one producing the smallest proxy size.
func rankFilters(ctx context.Context, img *png.Image, filters []png.RowFilter, opts *Options, expired func() bool) (png.RowFilter, bool) {
	var (
		mu     sync.Mutex
		winner png.RowFilter
		size   = -1
		wg     sync.WaitGroup
	)
	proxy := deflate.Zlib{Level: fastEvalLevel}
	for _, filter := range filters {
		if expired() {
			break
		}
		wg.Add(1)
		go func(f png.RowFilter) {
			defer wg.Done()
			filtered := img.FilterImage(f, opts.OptimizeAlpha)
			out, err := proxy.Deflate(filtered, 0)
			if err != nil {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if size < 0 || len(out) < size {
				winner, size = f, len(out)
			}
		}(filter)
	}
	wg.Wait()
	if size < 0 {
		slog.DebugContext(ctx, "fast evaluation found no viable filter, falling back", "filter", filters[0].String())
		if ctx.Err() != nil {
			return 0, false
		}
		return filters[0], true
	}
	slog.DebugContext(ctx, "fast evaluation selected filter", "filter", winner.String())
	return winner, true
}
