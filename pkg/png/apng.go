package png

import "encoding/binary"

// fcTL payload length: sequence number plus frame geometry and timing.
const fctlSize = 26

// Frame is one APNG frame: the fcTL control fields plus the concatenated
// payloads of its fdAT chunks. Frame data is carried at the byte level only;
// compositing semantics live with the decoder.
type Frame struct {
	Width     uint32
	Height    uint32
	XOffset   uint32
	YOffset   uint32
	DelayNum  uint16
	DelayDen  uint16
	DisposeOp uint8
	BlendOp   uint8
	// Data is the concatenated fdAT payloads, still compressed.
	Data []byte
}

// frameFromFctl decodes the fcTL payload, skipping its sequence number.
func frameFromFctl(data []byte) (*Frame, error) {
	if len(data) < fctlSize {
		return nil, ErrTruncatedData
	}
	return &Frame{
		Width:     binary.BigEndian.Uint32(data[4:8]),
		Height:    binary.BigEndian.Uint32(data[8:12]),
		XOffset:   binary.BigEndian.Uint32(data[12:16]),
		YOffset:   binary.BigEndian.Uint32(data[16:20]),
		DelayNum:  binary.BigEndian.Uint16(data[20:22]),
		DelayDen:  binary.BigEndian.Uint16(data[22:24]),
		DisposeOp: data[24],
		BlendOp:   data[25],
	}, nil
}

// fctlData serializes the frame control payload with the given sequence
// number.
func (f *Frame) fctlData(sequence uint32) []byte {
	data := make([]byte, fctlSize)
	binary.BigEndian.PutUint32(data[0:4], sequence)
	binary.BigEndian.PutUint32(data[4:8], f.Width)
	binary.BigEndian.PutUint32(data[8:12], f.Height)
	binary.BigEndian.PutUint32(data[12:16], f.XOffset)
	binary.BigEndian.PutUint32(data[16:20], f.YOffset)
	binary.BigEndian.PutUint16(data[20:22], f.DelayNum)
	binary.BigEndian.PutUint16(data[22:24], f.DelayDen)
	data[24] = f.DisposeOp
	data[25] = f.BlendOp
	return data
}

// fdatData serializes the frame data payload with the given sequence number.
func (f *Frame) fdatData(sequence uint32) []byte {
	data := make([]byte, 4+len(f.Data))
	binary.BigEndian.PutUint32(data[0:4], sequence)
	copy(data[4:], f.Data)
	return data
}
