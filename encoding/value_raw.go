package encoding

import (
	"fmt"
	"iter"
	"math"
	"unsafe"

	"github.com/gpmaplab/epistat/endian"
	"github.com/gpmaplab/epistat/internal/pool"
)

// ValueRawEncoder is a raw encoder for 64-bit float sample values using direct
// memory operations.
//
// It encodes float64 values in their native binary representation (IEEE 754)
// using the specified endianness with an amortized buffer growth strategy.
// This encoder is suitable when no compression or special encoding is needed,
// providing fast and predictable storage of raw sample values with O(1) random
// access on the decode side.
type ValueRawEncoder struct {
	buf    *pool.ByteBuffer
	engine endian.EndianEngine
	count  int
}

var _ ColumnarEncoder[float64] = (*ValueRawEncoder)(nil)

// NewValueRawEncoder creates a new raw sample value encoder using the specified
// endian engine.
//
// The encoder uses a native []byte buffer with amortized growth strategy:
//   - Write: Amortized O(1) buffer growth with direct encoding
//   - WriteSlice: Pre-allocated buffer for bulk operations
//
// Parameters:
//   - engine: Endian engine for byte order (typically little-endian)
//
// Returns:
//   - *ValueRawEncoder: A new encoder instance ready for float64 encoding
func NewValueRawEncoder(engine endian.EndianEngine) *ValueRawEncoder {
	return &ValueRawEncoder{
		engine: engine,
		buf:    pool.GetChunkBuffer(),
	}
}

// Write encodes a single 64-bit float value with amortized buffer growth.
//
// For encoding multiple values, use WriteSlice for better performance.
//
// The encoded bytes are appended to the internal buffer and can be retrieved
// using the Bytes method.
//
// Panics if Finish() has been called (nil buffer).
//
// Parameters:
//   - val: The float64 value to encode
func (e *ValueRawEncoder) Write(val float64) {
	if e.buf == nil {
		panic("encoder already finished - cannot write after Finish()")
	}

	e.count++

	// Amortized growth: pre-grow buffer if near capacity
	// This prevents frequent reallocations when Write is called repeatedly
	e.buf.Grow(8)
	e.writeFloat64(val)
}

// WriteSlice encodes a slice of 64-bit float values with buffer pre-allocation.
//
// This method pre-allocates buffer space for all values (8 bytes × len(values))
// to minimize allocations during bulk encoding. Each value is encoded directly
// into the pre-allocated buffer without temporary allocations.
//
// The encoded bytes are appended to the internal buffer and can be retrieved
// using the Bytes method.
//
// Panics if Finish() has been called (nil buffer).
//
// Parameters:
//   - values: Slice of float64 values to encode
func (e *ValueRawEncoder) WriteSlice(values []float64) {
	if e.buf == nil {
		panic("encoder already finished - cannot write after Finish()")
	}

	valLen := len(values)
	e.count += valLen

	if valLen == 0 {
		return
	}

	// Pre-allocate space for all values (8 bytes each)
	e.buf.Grow(valLen * 8)

	// Extend buffer length once for all values
	startIdx := e.buf.Len()
	e.buf.ExtendOrGrow(valLen * 8)

	// Write each value directly using PutUint64 on the buffer slice
	for i, v := range values {
		offset := startIdx + i*8
		e.engine.PutUint64(e.buf.Slice(offset, offset+8), math.Float64bits(v))
	}
}

// Bytes returns the encoded byte slice containing all written float values.
//
// The returned slice is valid until the next call to Write, WriteSlice, or Reset.
// The caller must not modify the returned slice as it references the internal buffer.
//
// Each float64 value occupies exactly 8 bytes in the output, encoded in the
// byte order specified by the endian engine during construction.
//
// Panics if Finish() has been called (nil buffer).
//
// Returns:
//   - []byte: Encoded byte slice (empty if no values written)
func (e *ValueRawEncoder) Bytes() []byte {
	if e.buf == nil {
		panic("encoder already finished - cannot access bytes after Finish()")
	}

	return e.buf.Bytes()
}

// Len returns the number of encoded float values.
//
// Returns:
//   - int: Number of float64 values written since last Finish
func (e *ValueRawEncoder) Len() int {
	return e.count
}

// Size returns the size in bytes of the encoded float values.
//
// Panics if Finish() has been called (nil buffer).
//
// Returns:
//   - int: Total bytes written to internal buffer since last Finish
func (e *ValueRawEncoder) Size() int {
	if e.buf == nil {
		panic("encoder already finished - cannot access size after Finish()")
	}

	return e.buf.Len()
}

// Reset clears the encoder state, allowing it to be reused for a new sequence
// of values.
//
// Due to the raw encoding strategy, Reset is implemented as a no-op to retain
// the accumulated data in the internal buffer. This allows the encoder to be
// reused for additional datasets without losing previously encoded data.
//
// The length and size remain unchanged after calling Reset.
func (e *ValueRawEncoder) Reset() {
	// No-op to retain the accumulated data in the internal buffer.
}

// Finish finalizes the encoding process and returns buffer resources to the pool.
//
// After calling Finish(), the encoder is no longer usable. Any subsequent calls
// to Write(), WriteSlice(), Bytes(), or Size() will panic due to nil buffer.
//
// To encode more data, create a new encoder instance.
func (e *ValueRawEncoder) Finish() {
	if e.buf != nil {
		pool.PutChunkBuffer(e.buf)
		e.buf = nil
	}
	e.count = 0
}

// writeFloat64 encodes a single float64 value into the buffer.
//
// The method assumes the buffer has sufficient capacity (caller must ensure this).
func (e *ValueRawEncoder) writeFloat64(value float64) {
	bufLen := e.buf.Len()
	bs := e.buf.Slice(bufLen, bufLen+8)
	e.engine.PutUint64(bs, math.Float64bits(value))
	e.buf.SetLength(bufLen + 8)
}

// ValueRawDecoder is a decoder for raw float64 values using direct memory operations.
//
// It is designed to decode byte slices produced by ValueRawEncoder.
type ValueRawDecoder struct {
	engine endian.EndianEngine
}

var _ ColumnarDecoder[float64] = ValueRawDecoder{}

// NewValueRawDecoder creates a new raw value decoder using the specified endian engine.
//
// This function returns the decoder by value (not pointer): the struct is
// stateless and small enough to live in registers, avoiding heap allocations.
//
// Parameters:
//   - engine: Endian engine for byte order (must match encoder's engine)
//
// Returns:
//   - ValueRawDecoder: A new decoder instance (stateless, can be reused)
func NewValueRawDecoder(engine endian.EndianEngine) ValueRawDecoder {
	return ValueRawDecoder{engine: engine}
}

// All decodes all float64 values from the given byte slice.
//
// The data must be a multiple of 8 bytes, as each float64 value occupies
// exactly 8 bytes.
//
// Parameters:
//   - data: Encoded byte slice from ValueRawEncoder.Bytes()
//   - count: Expected number of float64 values to decode
//
// Returns:
//   - iter.Seq[float64]: Iterator yielding decoded float64 values
func (d ValueRawDecoder) All(data []byte, count int) iter.Seq[float64] {
	return func(yield func(float64) bool) {
		if len(data) < count*8 || count == 0 {
			return
		}

		for i := range count {
			start := i * 8
			bits := d.engine.Uint64(data[start : start+8])
			val := math.Float64frombits(bits)
			if !yield(val) {
				return
			}
		}
	}
}

// At retrieves the float64 value at the specified index from the encoded data.
//
// Parameters:
//   - data: Encoded byte slice from ValueRawEncoder.Bytes()
//   - index: Zero-based index of the float64 value to retrieve
//   - count: Total number of float64 values in the encoded data
//
// Returns:
//   - float64: The value at the specified index
//   - bool: true if the index exists and was successfully decoded, false otherwise
func (d ValueRawDecoder) At(data []byte, index int, count int) (float64, bool) {
	if len(data) == 0 || index < 0 || index >= count {
		return 0, false
	}

	start := index * 8
	if start+8 > len(data) {
		return 0, false
	}

	bits := d.engine.Uint64(data[start : start+8])
	val := math.Float64frombits(bits)

	return val, true
}

// ValueRawUnsafeDecoder is an optimized decoder for raw float64 values using
// unsafe memory operations.
//
// This decoder maps the input byte slice directly to a float64 slice, avoiding
// intermediate allocations and copies. It is significantly faster than the safe
// decoder but only valid when the encoded byte order matches the native byte
// order of the machine.
//
// Caution: The caller must ensure that the input length is a multiple of 8
// bytes, as each float64 value occupies exactly 8 bytes. Using this decoder
// with improperly sized data may lead to undefined behavior.
type ValueRawUnsafeDecoder struct {
	engine endian.EndianEngine
}

var _ ColumnarDecoder[float64] = ValueRawUnsafeDecoder{}

// NewValueRawUnsafeDecoder creates a new raw value decoder using unsafe
// operations for optimal performance.
//
// Parameters:
//   - engine: Endian engine (currently unused but kept for interface compatibility)
//
// Returns:
//   - ValueRawUnsafeDecoder: A new unsafe decoder instance (stateless, can be reused)
func NewValueRawUnsafeDecoder(engine endian.EndianEngine) ValueRawUnsafeDecoder {
	return ValueRawUnsafeDecoder{engine: engine}
}

// All decodes all float64 values from the given byte slice using unsafe memory
// operations.
//
// If the input length is not a multiple of 8, the returned sequence will be empty.
//
// Parameters:
//   - data: Encoded byte slice from ValueRawEncoder.Bytes() (must be multiple of 8 bytes)
//   - count: Expected number of float64 values to decode
//
// Returns:
//   - iter.Seq[float64]: Iterator yielding decoded float64 values
func (d ValueRawUnsafeDecoder) All(data []byte, count int) iter.Seq[float64] {
	return func(yield func(float64) bool) {
		if len(data) < count*8 || count == 0 {
			return
		}

		floatSlice, err := unsafeDecodeFloat64Slice(data[:count*8])
		if floatSlice == nil || err != nil {
			return
		}

		for _, val := range floatSlice {
			if !yield(val) {
				return
			}
		}
	}
}

// At retrieves the float64 value at the specified index from the encoded data
// using unsafe memory operations.
//
// Parameters:
//   - data: Encoded byte slice from ValueRawEncoder.Bytes() (must be multiple of 8 bytes)
//   - index: Zero-based index of the float64 value to retrieve
//   - count: Total number of float64 values in the encoded data
//
// Returns:
//   - float64: The value at the specified index
//   - bool: true if the index exists and was successfully decoded, false otherwise
func (d ValueRawUnsafeDecoder) At(data []byte, index int, count int) (float64, bool) {
	if len(data) == 0 || index < 0 || index >= count {
		return 0, false
	}

	floatSlice, err := unsafeDecodeFloat64Slice(data)
	if floatSlice == nil || err != nil {
		return 0, false
	}

	if index >= len(floatSlice) {
		return 0, false
	}

	return floatSlice[index], true
}

// unsafeDecodeFloat64Slice decodes a byte slice into a float64 slice using
// unsafe memory operations.
func unsafeDecodeFloat64Slice(data []byte) ([]float64, error) {
	if len(data)%8 != 0 {
		return nil, fmt.Errorf("byte slice length (%d) is not a multiple of 8", len(data))
	}

	// Zero-copy conversion using unsafe.Slice
	// Cast the byte slice pointer to *float64 and create a slice from it
	ptr := (*float64)(unsafe.Pointer(&data[0]))

	return unsafe.Slice(ptr, len(data)/8), nil
}
