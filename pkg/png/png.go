// Package png models the PNG container at the chunk level and the pixel
// data at the scanline level: parse, validate, transform, and re-serialize
// a byte-exact, decoder-compatible stream.
package png

import (
	"bytes"
	"encoding/binary"
	"io"
	"log/slog"
)

// Document is one parsed PNG: the shared read-only Image, the compressed
// IDAT payload, the retained ancillary chunks in encounter order, and any
// APNG frames that followed the IDAT.
type Document struct {
	// Raw is never mutated after construction; candidate evaluation workers
	// share it read-only.
	Raw *Image
	// IDAT is the current compressed pixel payload.
	IDAT []byte
	// AuxChunks preserves the ancillary chunks in original order. An empty
	// chunk named IDAT marks where the first IDAT chunk sat, so serialization
	// can restore relative ordering around it.
	AuxChunks []Chunk
	// Frames are the APNG frames encountered after the first IDAT.
	Frames []*Frame
}

// Parse reads a complete PNG stream.
func Parse(r io.Reader, strip StripPolicy, fixErrors bool) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return FromBytes(data, strip, fixErrors)
}

// FromBytes parses a PNG byte stream into a Document. The strip policy is
// evaluated once per ancillary chunk; fixErrors downgrades CRC mismatches to
// warnings.
func FromBytes(data []byte, strip StripPolicy, fixErrors bool) (*Document, error) {
	if len(data) < len(Signature) || string(data[:len(Signature)]) != Signature {
		return nil, ErrNotPNG
	}
	if strip == nil {
		strip = StripNone{}
	}
	_, defaultPolicy := strip.(StripNone)

	offset := len(Signature)
	var idat []byte
	keyChunks := make(map[[4]byte][]byte)
	var aux []Chunk
	var frames []*Frame
	var sequence uint32

	for {
		chunk, err := parseNextChunk(data, &offset, fixErrors)
		if err != nil {
			return nil, err
		}
		if chunk == nil {
			break
		}
		switch string(chunk.Name[:]) {
		case "IDAT":
			if len(idat) == 0 {
				// Placeholder records where the first IDAT sat relative to
				// the other chunks.
				aux = append(aux, Chunk{Name: chunk.Name})
			}
			idat = append(idat, chunk.Data...)
		case "IHDR", "PLTE", "tRNS":
			keyChunks[chunk.Name] = append([]byte(nil), chunk.Data...)
		default:
			if !strip.Keep(chunk.Name) {
				if chunk.Name == chunkName("acTL") {
					slog.Warn("stripping animation control from APNG, image becomes a standard PNG")
				}
				continue
			}
			if chunk.isC2PA() {
				if defaultPolicy {
					// The provenance signature is invalidated by any change
					// to the file, so keeping it while optimizing by default
					// would be a lie; drop it silently.
					continue
				}
				return nil, ErrProvenancePreventsChanges
			}
			if chunk.Name == chunkName("fcTL") || chunk.Name == chunkName("fdAT") {
				if len(chunk.Data) < 4 || binary.BigEndian.Uint32(chunk.Data[0:4]) != sequence {
					return nil, ErrSequenceOutOfOrder
				}
				sequence++
				if chunk.Name == chunkName("fcTL") && len(idat) > 0 {
					frame, err := frameFromFctl(chunk.Data)
					if err != nil {
						return nil, err
					}
					frames = append(frames, frame)
					continue
				}
				if chunk.Name == chunkName("fdAT") {
					if len(frames) == 0 {
						return nil, ErrSequenceOutOfOrder
					}
					last := frames[len(frames)-1]
					last.Data = append(last.Data, chunk.Data[4:]...)
					continue
				}
				// An fcTL before the first IDAT describes the default image;
				// keep it position-correct as a plain ancillary chunk.
			}
			aux = append(aux, Chunk{Name: chunk.Name, Data: append([]byte(nil), chunk.Data...)})
		}
	}

	if len(idat) == 0 {
		return nil, &MissingChunkError{Chunk: "IDAT"}
	}
	ihdr, ok := keyChunks[chunkName("IHDR")]
	if !ok {
		return nil, &MissingChunkError{Chunk: "IHDR"}
	}
	header, err := parseIHDR(ihdr, keyChunks[chunkName("PLTE")], keyChunks[chunkName("tRNS")])
	if err != nil {
		return nil, err
	}
	raw, err := NewImage(header, idat)
	if err != nil {
		return nil, err
	}
	return &Document{
		Raw:       raw,
		IDAT:      idat,
		AuxChunks: aux,
		Frames:    frames,
	}, nil
}

// lateChunks must follow PLTE; not strictly required by the PNG spec but
// expected by common decoders.
var lateChunks = NameSet("bKGD", "hIST", "tRNS", "fcTL")

func isLate(name [4]byte) bool {
	_, ok := lateChunks[name]
	return ok
}

// Output serializes the document to a valid PNG bytestream. Chunk order is
// fixed: signature, IHDR, early pre-IDAT ancillary chunks, PLTE/tRNS derived
// from the color type, the late pre-IDAT set in original relative order,
// IDAT, APNG frame pairs with continued sequence numbers, post-IDAT
// ancillary chunks, IEND. Every chunk's CRC is recomputed.
func (d *Document) Output() []byte {
	var out bytes.Buffer
	out.Grow(len(d.IDAT) + 1024)
	out.WriteString(Signature)

	h := &d.Raw.Header
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], h.Width)
	binary.BigEndian.PutUint32(ihdr[4:8], h.Height)
	ihdr[8] = byte(h.BitDepth)
	ihdr[9] = h.ColorType.PNGHeaderCode()
	ihdr[10] = 0 // compression: deflate
	ihdr[11] = 0 // filter method: 5-way adaptive
	ihdr[12] = byte(h.Interlaced)
	writeChunk(&out, "IHDR", ihdr)

	pre, post := d.splitAux()
	for _, c := range pre {
		if !isLate(c.Name) {
			writeChunk(&out, string(c.Name[:]), c.Data)
		}
	}

	switch ct := h.ColorType.(type) {
	case Indexed:
		plte := make([]byte, 0, len(ct.Palette)*3)
		for _, px := range ct.Palette {
			plte = append(plte, px.R, px.G, px.B)
		}
		writeChunk(&out, "PLTE", plte)
		if last, ok := lastNonOpaque(ct.Palette); ok {
			trns := make([]byte, 0, last+1)
			for _, px := range ct.Palette[:last+1] {
				trns = append(trns, px.A)
			}
			writeChunk(&out, "tRNS", trns)
		}
	case Grayscale:
		if ct.HasShade {
			trns := make([]byte, 2)
			binary.BigEndian.PutUint16(trns, ct.TransparentShade)
			writeChunk(&out, "tRNS", trns)
		}
	case RGB:
		if ct.HasColor {
			trns := make([]byte, 6)
			binary.BigEndian.PutUint16(trns[0:2], ct.TransparentColor.R)
			binary.BigEndian.PutUint16(trns[2:4], ct.TransparentColor.G)
			binary.BigEndian.PutUint16(trns[4:6], ct.TransparentColor.B)
			writeChunk(&out, "tRNS", trns)
		}
	}

	var sequence uint32
	for _, c := range pre {
		if isLate(c.Name) {
			writeChunk(&out, string(c.Name[:]), c.Data)
			if c.Name == chunkName("fcTL") {
				sequence++
			}
		}
	}

	writeChunk(&out, "IDAT", d.IDAT)

	for _, frame := range d.Frames {
		writeChunk(&out, "fcTL", frame.fctlData(sequence))
		writeChunk(&out, "fdAT", frame.fdatData(sequence+1))
		sequence += 2
	}

	for _, c := range post {
		writeChunk(&out, string(c.Name[:]), c.Data)
	}

	writeChunk(&out, "IEND", nil)
	return out.Bytes()
}

// splitAux divides the retained ancillary chunks around the first-IDAT
// placeholder. A document built by hand without a placeholder serializes all
// of its chunks before the IDAT.
func (d *Document) splitAux() (pre, post []Chunk) {
	for i, c := range d.AuxChunks {
		if c.Name == chunkName("IDAT") {
			return d.AuxChunks[:i], d.AuxChunks[i+1:]
		}
	}
	return d.AuxChunks, nil
}
