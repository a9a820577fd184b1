// Package deflate provides the zlib compression backends used for PNG IDAT
// and compressed ancillary chunk payloads. Two interchangeable strategies sit
// behind one contract: a fast deterministic compressor parameterized by a
// level, and a slower iterative compressor that trades CPU for ratio.
package deflate

import (
	"bytes"
	"fmt"
	"io"

	"github.com/foobaz/go-zopfli/zopfli"
	"github.com/klauspost/compress/zlib"
)

// SizeError reports a compression or decompression result that violated the
// caller's size budget.
type SizeError struct {
	Max int
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("deflate: result exceeds maximum size of %d bytes", e.Max)
}

// Deflater compresses a payload into a zlib stream. A maxSize of zero or less
// means unbounded; otherwise a result larger than maxSize is an error, never
// truncated data.
type Deflater interface {
	Deflate(data []byte, maxSize int) ([]byte, error)
	String() string
}

// Zlib is the fast deterministic backend. Level ranges 0-12; levels above the
// codec's native maximum clamp to its best setting.
type Zlib struct {
	Level int
}

func (z Zlib) Deflate(data []byte, maxSize int) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlibLevel(z.Level))
	if err != nil {
		return nil, fmt.Errorf("deflate: %w", err)
	}
	if _, err := zw.Write(data); err != nil {
		zw.Close()
		return nil, fmt.Errorf("deflate: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("deflate: %w", err)
	}
	if maxSize > 0 && buf.Len() > maxSize {
		return nil, &SizeError{Max: maxSize}
	}
	return buf.Bytes(), nil
}

func (z Zlib) String() string {
	return fmt.Sprintf("zc = %d", z.Level)
}

// zlibLevel maps the 0-12 option surface onto the codec's 0-9 range.
func zlibLevel(level int) int {
	switch {
	case level < 0:
		return 0
	case level > zlib.BestCompression:
		return zlib.BestCompression
	default:
		return level
	}
}

// Zopfli is the iterative optimizing backend. More iterations compress
// better and slower; 15 is reasonable for small files.
type Zopfli struct {
	Iterations int
}

func (z Zopfli) Deflate(data []byte, maxSize int) ([]byte, error) {
	opts := zopfli.DefaultOptions()
	if z.Iterations > 0 {
		opts.NumIterations = z.Iterations
	}
	var buf bytes.Buffer
	if err := zopfli.ZlibCompress(&opts, data, &buf); err != nil {
		return nil, fmt.Errorf("deflate: zopfli: %w", err)
	}
	if maxSize > 0 && buf.Len() > maxSize {
		return nil, &SizeError{Max: maxSize}
	}
	return buf.Bytes(), nil
}

func (z Zopfli) String() string {
	return fmt.Sprintf("zopfli, zi = %d", z.Iterations)
}

// Inflate decompresses a zlib stream. The stream may decode to fewer bytes
// than expectedSize, but decoding more is a hard error; the caller supplies
// the size it computed from the image header so dimension and format
// mismatches surface here instead of corrupting downstream buffers.
func Inflate(data []byte, expectedSize int) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("inflate: %w", err)
	}
	defer zr.Close()
	out, err := io.ReadAll(io.LimitReader(zr, int64(expectedSize)+1))
	if err != nil {
		return nil, fmt.Errorf("inflate: %w", err)
	}
	if len(out) > expectedSize {
		return nil, &SizeError{Max: expectedSize}
	}
	return out, nil
}
