package png

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"log/slog"
)

// Signature is the fixed 8-byte PNG file header.
const Signature = "\x89PNG\r\n\x1a\n"

// Chunk is an owned ancillary chunk: a 4-byte type tag and its payload.
type Chunk struct {
	Name [4]byte
	Data []byte
}

// RawChunk is a borrowed view into the parse buffer, valid only while the
// input slice is alive.
type RawChunk struct {
	Name [4]byte
	Data []byte
}

func chunkName(s string) [4]byte {
	var n [4]byte
	copy(n[:], s)
	return n
}

// crc is CRC32 (IEEE) over chunk type + data, the PNG chunk checksum.
func crc(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// parseNextChunk reads one chunk record at *offset, advancing the offset
// past it. It returns nil at IEND. Unless fixErrors is set, a checksum
// mismatch is fatal and names the chunk.
func parseNextChunk(data []byte, offset *int, fixErrors bool) (*RawChunk, error) {
	if *offset+4 > len(data) {
		return nil, ErrTruncatedData
	}
	length := int(binary.BigEndian.Uint32(data[*offset:]))
	if len(data) < *offset+12+length {
		return nil, ErrTruncatedData
	}
	*offset += 4

	chunkStart := *offset
	var name [4]byte
	copy(name[:], data[chunkStart:chunkStart+4])
	if name == chunkName("IEND") {
		return nil, nil
	}
	*offset += 4

	payload := data[*offset : *offset+length]
	*offset += length
	sum := binary.BigEndian.Uint32(data[*offset:])
	*offset += 4

	if crc(data[chunkStart:chunkStart+4+length]) != sum {
		if !fixErrors {
			return nil, &CRCError{Chunk: string(name[:])}
		}
		slog.Warn("CRC mismatch, continuing error-tolerant parse", "chunk", string(name[:]))
	}
	return &RawChunk{Name: name, Data: payload}, nil
}

// isC2PA reports whether the chunk is a caBX box carrying C2PA/CAI JUMBF
// content-provenance metadata.
func (c *RawChunk) isC2PA() bool {
	if c.Name != chunkName("caBX") {
		return false
	}
	if name, data, ok := parseJUMBFBox(c.Data); ok && bytes.Equal(name, []byte("jumb")) {
		if name, data, ok := parseJUMBFBox(data); ok && bytes.Equal(name, []byte("jumd")) {
			return len(data) >= 4 && bytes.Equal(data[:4], []byte("c2pa"))
		}
	}
	return false
}

func parseJUMBFBox(data []byte) (name, content []byte, ok bool) {
	if len(data) < 8 {
		return nil, nil, false
	}
	length := int(binary.BigEndian.Uint32(data[0:4]))
	if length < 8 || length > len(data) {
		return nil, nil, false
	}
	return data[4:8], data[8:length], true
}

// writeChunk appends one complete chunk record, recomputing its CRC.
func writeChunk(out *bytes.Buffer, name string, data []byte) {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))
	out.Write(lenBuf[:])
	start := out.Len()
	out.WriteString(name)
	out.Write(data)
	var crcBuf [4]byte
	binary.BigEndian.PutUint32(crcBuf[:], crc(out.Bytes()[start:]))
	out.Write(crcBuf[:])
}

// StripPolicy decides which ancillary chunks survive parsing. It is one of
// StripNone, StripNamed, KeepNamed, StripSafe, or StripAll.
type StripPolicy interface {
	// Keep reports whether a chunk with the given name should be retained.
	Keep(name [4]byte) bool
}

// StripNone keeps every ancillary chunk. This is the default policy; under
// it a C2PA provenance chunk is silently dropped, because any content change
// would invalidate the signature it carries.
type StripNone struct{}

func (StripNone) Keep([4]byte) bool { return true }

// StripNamed removes the named chunks and keeps everything else.
type StripNamed struct {
	Names map[[4]byte]struct{}
}

func (p StripNamed) Keep(name [4]byte) bool {
	_, strip := p.Names[name]
	return !strip
}

// KeepNamed keeps only the named chunks.
type KeepNamed struct {
	Names map[[4]byte]struct{}
}

func (p KeepNamed) Keep(name [4]byte) bool {
	_, keep := p.Names[name]
	return keep
}

// StripSafe removes every chunk that cannot affect how the image displays.
type StripSafe struct{}

func (StripSafe) Keep(name [4]byte) bool {
	_, ok := displayChunks[name]
	return ok
}

// StripAll removes every ancillary chunk.
type StripAll struct{}

func (StripAll) Keep([4]byte) bool { return false }

// NameSet builds the chunk-name set consumed by StripNamed and KeepNamed.
func NameSet(names ...string) map[[4]byte]struct{} {
	set := make(map[[4]byte]struct{}, len(names))
	for _, n := range names {
		set[chunkName(n)] = struct{}{}
	}
	return set
}

// displayChunks are the ancillary chunks that affect image display and are
// therefore retained by StripSafe.
var displayChunks = NameSet(
	"cICP", "iCCP", "sRGB", "gAMA", "cHRM",
	"sBIT", "bKGD", "pHYs",
	"acTL", "fcTL", "fdAT",
)
