package png

import (
	"errors"
	"fmt"
)

var (
	// ErrNotPNG means the 8-byte file signature was wrong or absent.
	ErrNotPNG = errors.New("png: invalid file signature")
	// ErrTruncatedData means a declared length ran past the end of the input
	// or the decompressed pixel data did not match the header geometry.
	ErrTruncatedData = errors.New("png: truncated data")
	// ErrSequenceOutOfOrder means an fcTL/fdAT sequence number was not the
	// next expected value.
	ErrSequenceOutOfOrder = errors.New("png: animation chunk sequence out of order")
	// ErrProvenancePreventsChanges means a C2PA content-provenance chunk is
	// present under an explicit strip policy; transforming the image would
	// invalidate the signature it carries.
	ErrProvenancePreventsChanges = errors.New("png: C2PA provenance metadata prevents optimization")
)

// CRCError is a chunk checksum mismatch, naming the offending chunk.
type CRCError struct {
	Chunk string
}

func (e *CRCError) Error() string {
	return fmt.Sprintf("png: CRC mismatch in %s chunk; may be recoverable with error-tolerant parsing", e.Chunk)
}

// FormatError is any structural violation of the PNG format that is not a
// truncation or checksum problem.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return "png: " + e.Reason
}

func formatErrorf(format string, args ...any) error {
	return &FormatError{Reason: fmt.Sprintf(format, args...)}
}

// MissingChunkError reports a required chunk that never appeared.
type MissingChunkError struct {
	Chunk string
}

func (e *MissingChunkError) Error() string {
	return fmt.Sprintf("png: missing required %s chunk", e.Chunk)
}
