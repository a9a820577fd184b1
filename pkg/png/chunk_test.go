package png

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	writeChunk(&buf, "tEXt", []byte("Comment\x00hello"))
	writeChunk(&buf, "IEND", nil)
	data := buf.Bytes()

	offset := 0
	chunk, err := parseNextChunk(data, &offset, false)
	require.NoError(t, err)
	require.NotNil(t, chunk)
	assert.Equal(t, chunkName("tEXt"), chunk.Name)
	assert.Equal(t, []byte("Comment\x00hello"), chunk.Data)

	// IEND terminates the scan with a nil chunk.
	chunk, err = parseNextChunk(data, &offset, false)
	require.NoError(t, err)
	assert.Nil(t, chunk)
}

func TestParseNextChunkCRC(t *testing.T) {
	var buf bytes.Buffer
	writeChunk(&buf, "gAMA", []byte{0, 0, 0xB1, 0x8F})
	data := buf.Bytes()
	data[len(data)-1] ^= 0xFF // corrupt the checksum

	offset := 0
	_, err := parseNextChunk(data, &offset, false)
	var crcErr *CRCError
	require.ErrorAs(t, err, &crcErr)
	assert.Equal(t, "gAMA", crcErr.Chunk)

	// Error-tolerant parsing downgrades the mismatch to a warning.
	offset = 0
	chunk, err := parseNextChunk(data, &offset, true)
	require.NoError(t, err)
	require.NotNil(t, chunk)
	assert.Equal(t, chunkName("gAMA"), chunk.Name)
}

func TestParseNextChunkTruncated(t *testing.T) {
	var buf bytes.Buffer
	writeChunk(&buf, "pHYs", make([]byte, 9))
	data := buf.Bytes()

	for cut := 1; cut < len(data); cut++ {
		offset := 0
		_, err := parseNextChunk(data[:cut], &offset, false)
		assert.ErrorIs(t, err, ErrTruncatedData, "cut at %d", cut)
	}
}

// A caBX chunk is C2PA only when its JUMBF superbox declares a c2pa
// description box.
func TestIsC2PA(t *testing.T) {
	box := func(name string, content []byte) []byte {
		out := make([]byte, 8+len(content))
		binary.BigEndian.PutUint32(out[0:4], uint32(8+len(content)))
		copy(out[4:8], name)
		copy(out[8:], content)
		return out
	}
	c2pa := RawChunk{
		Name: chunkName("caBX"),
		Data: box("jumb", box("jumd", []byte("c2paXXXX"))),
	}
	assert.True(t, c2pa.isC2PA())

	otherBox := RawChunk{
		Name: chunkName("caBX"),
		Data: box("jumb", box("jumd", []byte("jpegXXXX"))),
	}
	assert.False(t, otherBox.isC2PA())

	wrongName := RawChunk{Name: chunkName("tEXt"), Data: c2pa.Data}
	assert.False(t, wrongName.isC2PA())

	garbage := RawChunk{Name: chunkName("caBX"), Data: []byte{1, 2, 3}}
	assert.False(t, garbage.isC2PA())
}

func TestStripPolicies(t *testing.T) {
	text := chunkName("tEXt")
	gama := chunkName("gAMA")
	actl := chunkName("acTL")

	assert.True(t, StripNone{}.Keep(text))
	assert.False(t, StripAll{}.Keep(gama))

	// Safe stripping keeps only chunks that affect display.
	assert.True(t, StripSafe{}.Keep(gama))
	assert.True(t, StripSafe{}.Keep(actl))
	assert.False(t, StripSafe{}.Keep(text))

	named := StripNamed{Names: NameSet("tEXt", "zTXt")}
	assert.False(t, named.Keep(text))
	assert.True(t, named.Keep(gama))

	keep := KeepNamed{Names: NameSet("gAMA")}
	assert.True(t, keep.Keep(gama))
	assert.False(t, keep.Keep(text))
}
