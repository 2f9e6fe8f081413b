package section

import (
	"unsafe"

	"github.com/gpmaplab/epistat/errs"
)

// Header represents the fixed-size header section at the start of a sample chunk.
type Header struct {
	// StartStep is the absolute chain step index of the first sample in the chunk.
	StartStep int64 // byte offset 4-11
	// WalkerCount is the number of ensemble walkers per recorded step, max to 65535.
	WalkerCount uint16 // byte offset 12-13
	// DatasetCount is the number of datasets stored in the chunk, max to 65535.
	DatasetCount uint16 // byte offset 14-15
	// IndexOffset is the byte offset to the start of the dataset index section.
	IndexOffset uint32 // byte offset 16-19
	// StepPayloadOffset is the byte offset to the start of the step index payload section.
	// It records the offset after the index section.
	StepPayloadOffset uint32 // byte offset 20-23
	// ValuePayloadOffset is the byte offset to the start of the value payload section.
	// It records the offset after the encoded and compressed (if any) step payload section.
	ValuePayloadOffset uint32 // byte offset 24-27
	// NamePayloadOffset is the byte offset to the start of the dataset names payload section.
	// It records the offset after the encoded and compressed (if any) value payload section.
	// When the names payload is absent it still records the end of the value payload.
	NamePayloadOffset uint32 // byte offset 28-31

	// Flag is a packed field for various flags and magic number.
	Flag Flag // byte offset 0-3
}

// NewHeader creates a new Header with the given start step.
// The walker count, dataset count and payload offsets will be set when the
// encoder finishes.
func NewHeader(startStep int64) *Header {
	return &Header{
		StartStep:         startStep,
		Flag:              NewFlag(),
		IndexOffset:       IndexOffsetOffset,
		StepPayloadOffset: 0, // Will be calculated in Finish()
		DatasetCount:      0, // Will be set in Finish()
	}
}

// Parse parses the header from a byte slice.
//
// Parameters:
//   - data: Byte slice containing header (must be exactly 32 bytes)
//
// Returns:
//   - error: ErrInvalidHeaderSize if data is not 32 bytes, or flag validation errors
func (h *Header) Parse(data []byte) error {
	if len(data) != HeaderSize {
		return errs.ErrInvalidHeaderSize
	}

	// Parse options first to determine endianness (always little-endian for Options field itself)
	h.Flag.Options = uint16(data[0]) | (uint16(data[1]) << 8)
	h.Flag.EncodingType = data[2]
	h.Flag.CompressionType = data[3]

	engine := h.Flag.GetEndianEngine()

	// Use unsafe pointer conversion to interpret bytes as signed int64
	startStepUint := engine.Uint64(data[4:12])
	h.StartStep = *(*int64)(unsafe.Pointer(&startStepUint))

	h.WalkerCount = engine.Uint16(data[12:14])
	h.DatasetCount = engine.Uint16(data[14:16])
	h.IndexOffset = engine.Uint32(data[16:20])
	h.StepPayloadOffset = engine.Uint32(data[20:24])
	h.ValuePayloadOffset = engine.Uint32(data[24:28])
	h.NamePayloadOffset = engine.Uint32(data[28:32])

	return h.Flag.Validate()
}

// Bytes serializes the Header into a byte slice.
func (h *Header) Bytes() []byte {
	b := make([]byte, HeaderSize)

	engine := h.Flag.GetEndianEngine()

	// The Options word is always little-endian: it carries the endianness
	// bit, so it must be readable before an engine can be chosen.
	b[0] = byte(h.Flag.Options)
	b[1] = byte(h.Flag.Options >> 8)
	b[2] = h.Flag.EncodingType
	b[3] = h.Flag.CompressionType
	// Use bitwise conversion to avoid overflow warning - step indices are stored as-is in binary
	engine.PutUint64(b[4:12], *(*uint64)(unsafe.Pointer(&h.StartStep)))
	engine.PutUint16(b[12:14], h.WalkerCount)
	engine.PutUint16(b[14:16], h.DatasetCount)
	engine.PutUint32(b[16:20], h.IndexOffset)
	engine.PutUint32(b[20:24], h.StepPayloadOffset)
	engine.PutUint32(b[24:28], h.ValuePayloadOffset)
	engine.PutUint32(b[28:32], h.NamePayloadOffset)

	return b
}

// ParseHeader parses a Header from a byte slice.
//
// Parameters:
//   - data: Byte slice containing header (must be at least 32 bytes)
//
// Returns:
//   - Header: Parsed header struct
//   - error: ErrInvalidHeaderSize or flag validation errors
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, errs.ErrInvalidHeaderSize
	}

	h := Header{}
	if err := h.Parse(data[:HeaderSize]); err != nil {
		return Header{}, err
	}

	return h, nil
}
