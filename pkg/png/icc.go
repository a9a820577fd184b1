package png

import (
	"bytes"
	"log/slog"

	"github.com/jpfielding/pngs.go/pkg/compress/deflate"
)

// ExtractICC decompresses the ICC profile carried by an iCCP chunk,
// returning nil when the chunk is malformed or uses an unknown compression
// method.
func ExtractICC(iccp *Chunk) []byte {
	// Skip the profile name up to its null terminator.
	data := iccp.Data
	for {
		if len(data) == 0 {
			return nil
		}
		n := data[0]
		data = data[1:]
		if n == 0 {
			break
		}
	}
	if len(data) == 0 || data[0] != 0 {
		return nil // profile must use zlib compression (method 0)
	}
	compressed := data[1:]
	// The decompressed size is unknown; guess a generous budget.
	maxSize := len(compressed)*2 + 1000
	icc, err := deflate.Inflate(compressed, maxSize)
	if err != nil {
		slog.Warn("failed to decompress ICC profile", "error", err)
		return nil
	}
	return icc
}

// MakeICCP recompresses an ICC profile into an iCCP chunk under a strict
// size budget, so a recompression attempt can never regress the chunk size.
func MakeICCP(icc []byte, d deflate.Deflater, maxSize int) (*Chunk, error) {
	compressed, err := d.Deflate(icc, maxSize)
	if err != nil {
		return nil, err
	}
	data := make([]byte, 0, len(compressed)+5)
	data = append(data, []byte("icc")...) // profile name, generally unused
	data = append(data, 0, 0)             // null separator, zlib method
	data = append(data, compressed...)
	return &Chunk{Name: chunkName("iCCP"), Data: data}, nil
}

// knownSRGBProfileIDs are the MD5 profile IDs libpng treats as sRGB.
var knownSRGBProfileIDs = [][]byte{
	{0x29, 0xf8, 0x3d, 0xde, 0xaf, 0xf2, 0x55, 0xae, 0x78, 0x42, 0xfa, 0xe4, 0xca, 0x83, 0x39, 0x0d},
	{0xc9, 0x5b, 0xd6, 0x37, 0xe9, 0x5d, 0x8a, 0x3b, 0x0d, 0xf3, 0x8f, 0x99, 0xc1, 0x32, 0x03, 0x89},
	{0xfc, 0x66, 0x33, 0x78, 0x37, 0xe2, 0x88, 0x6b, 0xfd, 0x72, 0xe9, 0x83, 0x82, 0x28, 0xf1, 0xb8},
	{0x34, 0x56, 0x2a, 0xbf, 0x99, 0x4c, 0xcd, 0x06, 0x6d, 0x2c, 0x57, 0x21, 0xd0, 0xd6, 0x8c, 0x5d},
}

// SRGBRenderingIntent reports the rendering intent of an ICC profile that is
// known to be equivalent to sRGB, identified by its embedded MD5 profile ID
// or, for known-bad profiles with a zeroed ID, by checksum and length.
func SRGBRenderingIntent(icc []byte) (byte, bool) {
	if len(icc) < 100 {
		return 0, false
	}
	intent := icc[67]
	id := icc[84:100]
	for _, known := range knownSRGBProfileIDs {
		if bytes.Equal(id, known) {
			return intent, true
		}
	}
	if !allZero(id) {
		return 0, false
	}
	switch sum, n := crc(icc), len(icc); {
	case sum == 0x5d5129ce && n == 3024,
		sum == 0x182ea552 && n == 3144,
		sum == 0xf29e526d && n == 3144:
		return intent, true
	}
	return 0, false
}
