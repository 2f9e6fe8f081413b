package encoding

import (
	"fmt"
	"iter"
	"unsafe"

	"github.com/gpmaplab/epistat/endian"
	"github.com/gpmaplab/epistat/internal/pool"
)

// StepRawEncoder encodes chain step indices as fixed-width 64-bit integers.
//
// Raw encoding stores each step index as a fixed 8-byte integer. This provides:
//   - Fixed 8 bytes per step index storage
//   - Fast encoding/decoding with no computational overhead
//   - Random access to any step index without decoding others
//   - Predictable memory usage (8 × count bytes)
//
// This encoding is optimal when:
//   - Recorded steps are not arithmetic (delta encoding wouldn't help)
//   - Random access to step indices is required
//   - Encoding/decoding speed is more important than storage size
//
// For thinned sampler chains, which are nearly arithmetic, StepDeltaEncoder
// produces far smaller payloads and is the default.
type StepRawEncoder struct {
	buf    *pool.ByteBuffer
	count  int
	engine endian.EndianEngine
}

var _ ColumnarEncoder[int64] = (*StepRawEncoder)(nil)

// NewStepRawEncoder creates a new raw step index encoder using the specified endian engine.
//
// The encoder uses the specified endian engine for byte order consistency across
// the chunk binary format. Typically used with little-endian format.
//
// Parameters:
//   - engine: Endian engine for byte order (typically little-endian)
//
// Returns:
//   - *StepRawEncoder: A new encoder instance ready for step index encoding
//
// Example:
//
//	encoder := NewStepRawEncoder(endian.GetLittleEndianEngine())
//	encoder.Write(0)                       // Single step index
//	encoder.WriteSlice([]int64{10, 20})    // Bulk step indices
//	data := encoder.Bytes()                // 8 bytes × (1 + 2) = 24 bytes
func NewStepRawEncoder(engine endian.EndianEngine) *StepRawEncoder {
	return &StepRawEncoder{
		engine: engine,
		buf:    pool.GetChunkBuffer(),
	}
}

// Write encodes a single step index as a fixed 8-byte integer.
//
// The buffer is pre-grown when near capacity, giving amortized O(1) growth for
// repeated calls. For encoding multiple step indices at once, use WriteSlice
// for optimal performance.
//
// The encoded bytes are appended to the internal buffer and can be retrieved
// using the Bytes method.
func (e *StepRawEncoder) Write(step int64) {
	e.count++

	// Amortized growth: pre-grow buffer if near capacity
	// This prevents frequent reallocations when Write is called repeatedly
	e.buf.Grow(8)

	e.writeInt64(step)
}

// WriteSlice encodes a slice of step indices as fixed 8-byte integers.
//
// The method pre-grows the internal buffer once for the whole slice (8 bytes ×
// len(steps)) so bulk writes perform a single allocation at most.
//
// The encoded bytes are appended to the internal buffer and can be retrieved
// using the Bytes method.
//
// Parameters:
//   - steps: Slice of chain step indices
func (e *StepRawEncoder) WriteSlice(steps []int64) {
	stepLen := len(steps)
	e.count += stepLen

	if stepLen == 0 {
		return
	}

	// Pre-allocate space for all step indices (8 bytes each)
	e.buf.Grow(stepLen * 8)

	// Extend buffer length once for all step indices
	startIdx := e.buf.Len()
	e.buf.ExtendOrGrow(stepLen * 8)
	buf := e.buf.Bytes()

	// Write each step index directly using PutUint64 on the buffer slice
	for i, step := range steps {
		offset := startIdx + i*8
		e.engine.PutUint64(buf[offset:offset+8], uint64(step)) //nolint:gosec
	}
}

// Bytes returns the encoded byte slice containing all written step indices.
//
// Each step index occupies exactly 8 bytes in the output, encoded in the byte
// order specified by the endian engine during construction.
//
// The returned slice is valid until the next call to Write, WriteSlice, or Reset.
// The caller must not modify the returned slice as it references the internal buffer.
//
// Returns:
//   - []byte: Encoded byte slice (empty if no step indices written)
func (e *StepRawEncoder) Bytes() []byte {
	return e.buf.Bytes()
}

// Len returns the number of encoded step indices.
//
// Returns:
//   - int: Number of step indices written since last Finish
func (e *StepRawEncoder) Len() int {
	return e.count
}

// Size returns the size in bytes of encoded step indices.
//
// It represents the number of bytes that were written to the internal buffer.
//
// Returns:
//   - int: Total bytes written to internal buffer since last Finish
func (e *StepRawEncoder) Size() int {
	return e.buf.Len()
}

// Reset clears the encoder state, allowing it to be reused for a new sequence
// of step indices.
//
// Due to the raw encoding strategy, Reset is implemented as a no-op to retain
// the accumulated data in the internal buffer. This allows the encoder to be
// reused for additional datasets without losing previously encoded data.
//
// The length and size remain unchanged after calling Reset.
func (e *StepRawEncoder) Reset() {
	// No-Op: Keep existing data in buffer
}

// Finish finalizes the encoding process.
//
// This method returns the internal buffer to the pool and takes a fresh one,
// resetting the encoder state. After calling Finish, the encoder behaves as if
// it was newly created.
//
// The Len(), Size() and Bytes() will return zero values after calling Finish.
func (e *StepRawEncoder) Finish() {
	pool.PutChunkBuffer(e.buf)
	e.buf = pool.GetChunkBuffer()
	e.count = 0
}

// writeInt64 encodes a single int64 step index into the buffer.
//
// The method assumes the buffer has sufficient capacity (caller must ensure this).
func (e *StepRawEncoder) writeInt64(step int64) {
	bufLen := e.buf.Len()
	bs := e.buf.Bytes()[bufLen : bufLen+8]
	e.engine.PutUint64(bs, uint64(step)) //nolint:gosec
	e.buf.SetLength(bufLen + 8)
}

// StepRawDecoder decodes fixed-width 64-bit step indices.
type StepRawDecoder struct {
	engine endian.EndianEngine
}

var _ ColumnarDecoder[int64] = StepRawDecoder{}

// NewStepRawDecoder creates a new raw step index decoder using the specified endian engine.
//
// The decoder is stateless and can be reused across multiple decoding operations.
// Each call to All() operates independently on the provided data.
//
// Parameters:
//   - engine: Endian engine for byte order (must match encoder's engine)
//
// Returns:
//   - StepRawDecoder: A new decoder instance (stateless, can be reused)
func NewStepRawDecoder(engine endian.EndianEngine) StepRawDecoder {
	return StepRawDecoder{engine: engine}
}

// All returns an iterator that yields all decoded step indices from the provided data.
//
// The data should be the byte slice payload produced by a StepRawEncoder.
// The count parameter specifies the expected number of step indices to decode.
//
// If the data is malformed or does not contain enough step indices, the iterator
// may yield fewer values. The caller should handle this case appropriately.
//
// Parameters:
//   - data: Encoded byte slice from StepRawEncoder.Bytes()
//   - count: Expected number of step indices to decode
//
// Returns:
//   - iter.Seq[int64]: Iterator yielding decoded chain step indices
func (d StepRawDecoder) All(data []byte, count int) iter.Seq[int64] {
	return func(yield func(int64) bool) {
		if len(data) == 0 || count == 0 {
			return
		}

		dataLen := len(data)
		if dataLen%8 != 0 {
			return
		}

		for i := range count {
			start := i * 8
			if start+8 > dataLen {
				break
			}

			step := int64(d.engine.Uint64(data[start : start+8])) //nolint: gosec

			if !yield(step) {
				break
			}
		}
	}
}

// At retrieves the step index at the specified index from the encoded data.
//
// Parameters:
//   - data: Encoded byte slice from StepRawEncoder.Bytes()
//   - index: Zero-based position of the step index to retrieve
//   - count: Total number of step indices in the encoded data
//
// Returns:
//   - int64: The chain step index at the specified position
//   - bool: true if the index exists and was successfully decoded, false otherwise
func (d StepRawDecoder) At(data []byte, index int, count int) (int64, bool) {
	if len(data) == 0 || index < 0 || index >= count {
		return 0, false
	}

	start := index * 8
	if start+8 > len(data) {
		return 0, false
	}

	step := int64(d.engine.Uint64(data[start : start+8])) //nolint: gosec

	return step, true
}

// StepRawUnsafeDecoder is an optimized decoder for raw step indices using unsafe
// memory operations.
//
// This decoder maps the input byte slice directly to an int64 slice, avoiding
// intermediate allocations and copies. It is significantly faster than the safe
// decoder but only valid when the encoded byte order matches the native byte
// order of the machine.
//
// Caution: The caller must ensure that the input length is a multiple of 8
// bytes, as each int64 value occupies exactly 8 bytes. Using this decoder with
// improperly sized data may lead to undefined behavior.
type StepRawUnsafeDecoder struct{}

var _ ColumnarDecoder[int64] = StepRawUnsafeDecoder{}

// NewStepRawUnsafeDecoder creates a new unsafe raw step index decoder.
//
// The decoder is stateless and can be reused across multiple decoding operations.
//
// Parameters:
//   - engine: Endian engine (currently unused but kept for interface compatibility)
//
// Returns:
//   - StepRawUnsafeDecoder: A new unsafe decoder instance (stateless, can be reused)
func NewStepRawUnsafeDecoder(engine endian.EndianEngine) StepRawUnsafeDecoder {
	return StepRawUnsafeDecoder{}
}

// All decodes all step indices from the given byte slice using unsafe memory operations.
//
// The data must be a multiple of 8 bytes, as each int64 step index occupies
// exactly 8 bytes.
//
// Parameters:
//   - data: Encoded byte slice from StepRawEncoder.Bytes() (must be multiple of 8 bytes)
//   - count: Expected number of step indices to decode
//
// Returns:
//   - iter.Seq[int64]: Iterator yielding decoded chain step indices
func (d StepRawUnsafeDecoder) All(data []byte, count int) iter.Seq[int64] {
	return func(yield func(int64) bool) {
		if len(data) < count*8 || count == 0 {
			return
		}

		steps, err := unsafeDecodeInt64Slice(data)
		if err != nil {
			return
		}

		for i, step := range steps {
			if i >= count {
				break
			}

			if !yield(step) {
				break
			}
		}
	}
}

// At retrieves the step index at the specified position from the encoded data.
//
// Parameters:
//   - data: Encoded byte slice from StepRawEncoder.Bytes() (must be multiple of 8 bytes)
//   - index: Zero-based position of the step index to retrieve
//   - count: Total number of step indices in the encoded data
//
// Returns:
//   - int64: The chain step index at the specified position
//   - bool: true if the index exists and was successfully decoded, false otherwise
func (d StepRawUnsafeDecoder) At(data []byte, index int, count int) (int64, bool) {
	if len(data) == 0 || index < 0 || index >= count {
		return 0, false
	}

	steps, err := unsafeDecodeInt64Slice(data)
	if err != nil {
		return 0, false
	}

	if index >= len(steps) {
		return 0, false
	}

	return steps[index], true
}

func unsafeDecodeInt64Slice(data []byte) ([]int64, error) {
	if len(data)%8 != 0 {
		return nil, fmt.Errorf("byte slice length (%d) is not a multiple of 8", len(data))
	}

	// Zero-copy conversion using unsafe.Slice
	// Cast the byte slice pointer to *int64 and create a slice from it
	ptr := (*int64)(unsafe.Pointer(&data[0]))

	return unsafe.Slice(ptr, len(data)/8), nil
}
