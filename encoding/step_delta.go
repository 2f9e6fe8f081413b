package encoding

import (
	"encoding/binary"
	"iter"

	"github.com/gpmaplab/epistat/internal/pool"
)

// StepDeltaEncoder encodes chain step indices using delta-of-delta encoding
// with zigzag and varint compression.
//
// This encoder provides exceptional space savings for recorded chains by:
//   - Storing the first step index as a full varint-encoded value
//   - Storing the second step index as a delta from the first
//   - Storing subsequent step indices as delta-of-delta (difference between consecutive deltas)
//   - Using zigzag encoding to efficiently handle negative values
//   - Using varint encoding to minimize bytes for small values
//
// Thinned sampler chains record every thin-th step, so consecutive deltas are
// constant (delta-of-delta = 0) and each recorded step after the second costs a
// single byte. Adaptive thinning perturbs the deltas mildly, which still fits
// in 1-2 bytes per step.
//
// Typical compression characteristics:
//   - First step index: 1-9 bytes (varint-encoded)
//   - Second step delta: 1-5 bytes (typical thin interval)
//   - Regular thinning: 1 byte per step (delta-of-delta = 0)
//   - Irregular thinning: 1-3 bytes per step (small delta-of-deltas)
//
// Internal state:
//   - prevStep: Previous step index for delta calculation
//   - prevDelta: Previous delta for delta-of-delta calculation
//   - seq: Position within the current dataset's step sequence (zeroed by Reset)
//   - temp: Reusable buffer for varint encoding (avoids allocations)
//   - buf: Output buffer accumulating encoded data
//   - count: Total number of step indices encoded since last Finish
//
// The seq counter, not the previous-value state, decides whether a write starts
// a new sequence. Step index 0 is a legal first value, so a zero prevStep
// cannot be used as the start-of-sequence marker.
type StepDeltaEncoder struct {
	prevStep  int64
	prevDelta int64
	seq       int
	temp      [binary.MaxVarintLen64]byte
	buf       *pool.ByteBuffer
	count     int
}

var _ ColumnarEncoder[int64] = (*StepDeltaEncoder)(nil)

// NewStepDeltaEncoder creates a new delta-of-delta compressed step index encoder.
//
// Encoding algorithm details:
//   - Delta-of-delta: current_delta - previous_delta
//   - Zigzag encoding: Maps signed values to unsigned efficiently
//     (positive value v -> 2*v, negative value v -> 2*|v|-1)
//   - Varint encoding: Uses 1-9 bytes based on magnitude
//     (values 0-127: 1 byte, typical for regular thinning)
//
// Returns:
//   - *StepDeltaEncoder: A new encoder instance ready for step index encoding
//
// Example:
//
//	encoder := NewStepDeltaEncoder()
//	// Chain thinned every 10 steps
//	encoder.WriteSlice([]int64{0, 10, 20, 30})
//	data := encoder.Bytes() // ~4 bytes total vs 32 bytes raw
func NewStepDeltaEncoder() *StepDeltaEncoder {
	return &StepDeltaEncoder{
		buf: pool.GetChunkBuffer(),
	}
}

// Write encodes a single step index using delta-of-delta compression with
// zigzag and varint format.
//
// Encoding strategy based on position in the current sequence:
//   - First step index: Full varint-encoded value (1-9 bytes)
//   - Second step index: Delta from first, zigzag + varint encoded (1-9 bytes)
//   - Subsequent step indices: Delta-of-delta, zigzag + varint encoded (1-9 bytes)
//
// Parameters:
//   - step: Chain step index to encode
func (e *StepDeltaEncoder) Write(step int64) {
	e.count++
	e.seq++
	e.buf.Grow(binary.MaxVarintLen64)

	if e.seq == 1 {
		// First step of the sequence: write full value (no zigzag, just varint)
		n := binary.PutUvarint(e.temp[:], uint64(step)) //nolint:gosec
		e.buf.MustWrite(e.temp[:n])
		e.prevStep = step

		return
	}

	// Calculate delta for all subsequent step indices
	delta := step - e.prevStep

	var valToEncode int64
	if e.seq == 2 {
		// Second step: encode delta
		valToEncode = delta
	} else {
		// Third+ step: encode delta-of-delta
		valToEncode = delta - e.prevDelta
	}
	e.prevDelta = delta

	// Zigzag encode (efficient signed-to-unsigned mapping)
	zigzag := (valToEncode << 1) ^ (valToEncode >> 63)

	// Write varint
	n := binary.PutUvarint(e.temp[:], uint64(zigzag)) //nolint:gosec
	e.buf.MustWrite(e.temp[:n])

	e.prevStep = step
}

// WriteSlice encodes a slice of step indices using optimized delta-of-delta
// compression.
//
// Encoding process:
//  1. Pre-grows the buffer once with a conservative size estimate
//  2. First step of the sequence: Full varint encoding (establishes baseline)
//  3. Second step: Delta + zigzag + varint encoding
//  4. Remaining steps: Delta-of-delta + zigzag + varint encoding
//
// The encoded bytes are appended to the internal buffer and can be retrieved
// using the Bytes method.
//
// Parameters:
//   - steps: Slice of chain step indices to encode
func (e *StepDeltaEncoder) WriteSlice(steps []int64) {
	stepLen := len(steps)
	if stepLen == 0 {
		return
	}

	e.count += stepLen

	// Conservative estimate of 2 bytes per step after the first
	estimatedSize := 6 + (stepLen-1)*2
	e.buf.Grow(estimatedSize)

	prevStep := e.prevStep
	prevDelta := e.prevDelta
	seq := e.seq
	startIdx := 0

	// Handle first step if this sequence has not started yet
	if seq == 0 && startIdx < stepLen {
		step := steps[0]
		n := binary.PutUvarint(e.temp[:], uint64(step)) //nolint:gosec
		e.buf.MustWrite(e.temp[:n])
		prevStep = step
		seq++
		startIdx++
	}

	// Handle second step (first delta) if we have it
	if seq == 1 && startIdx < stepLen {
		step := steps[startIdx]
		delta := step - prevStep
		zigzag := (delta << 1) ^ (delta >> 63)
		n := binary.PutUvarint(e.temp[:], uint64(zigzag)) //nolint:gosec
		e.buf.MustWrite(e.temp[:n])
		prevStep = step
		prevDelta = delta
		seq++
		startIdx++
	}

	// Encode remaining steps as delta-of-deltas
	for _, step := range steps[startIdx:] {
		delta := step - prevStep
		deltaOfDelta := delta - prevDelta
		// Zigzag encoding
		zigzag := (deltaOfDelta << 1) ^ (deltaOfDelta >> 63)
		// Varint encoding
		n := binary.PutUvarint(e.temp[:], uint64(zigzag)) //nolint:gosec
		e.buf.MustWrite(e.temp[:n])
		prevStep = step
		prevDelta = delta
	}

	// Update encoder state
	e.prevStep = prevStep
	e.prevDelta = prevDelta
	e.seq = seq + (stepLen - startIdx)
}

// Bytes returns the delta-of-delta compressed byte slice containing all written
// step indices.
//
// Output format (sequential binary data, per sequence):
//  1. First step index: Varint-encoded value (1-9 bytes)
//  2. Second step index: Zigzag + varint encoded delta (1-9 bytes)
//  3. Subsequent step indices: Zigzag + varint encoded delta-of-deltas (1-9 bytes each)
//
// The returned slice is valid until the next call to Write, WriteSlice, or Reset.
// The caller must not modify the returned slice as it references the internal buffer.
//
// Decoding requirements:
//   - Must decode sequentially from start to maintain delta-of-delta chain
//   - Cannot randomly access individual step indices without scanning
//
// Returns:
//   - []byte: Encoded byte slice (empty if no step indices written)
func (e *StepDeltaEncoder) Bytes() []byte {
	return e.buf.Bytes()
}

// Len returns the number of encoded step indices.
//
// Returns:
//   - int: Number of step indices written since last Finish
func (e *StepDeltaEncoder) Len() int {
	return e.count
}

// Size returns the size in bytes of encoded step indices.
//
// It represents the number of bytes that were written to the internal buffer.
//
// Returns:
//   - int: Total bytes written to internal buffer since last Finish
func (e *StepDeltaEncoder) Size() int {
	return e.buf.Len()
}

// Reset clears the delta-of-delta encoder state, starting a new independent
// sequence while keeping the accumulated data in the internal buffer.
//
// The encoder is reset between datasets so each dataset's byte range can be
// decoded on its own. The length and size remain unchanged after calling Reset.
func (e *StepDeltaEncoder) Reset() {
	e.prevStep = 0
	e.prevDelta = 0
	e.seq = 0
}

// Finish finalizes the encoding process.
//
// This method returns the internal buffer to the pool and takes a fresh one,
// resetting the encoder state. After calling Finish, the encoder behaves as if
// it was newly created.
//
// The Len(), Size() and Bytes() will return zero values after calling Finish.
func (e *StepDeltaEncoder) Finish() {
	pool.PutChunkBuffer(e.buf)
	e.buf = pool.GetChunkBuffer()
	e.prevStep = 0
	e.prevDelta = 0
	e.seq = 0
	e.count = 0
}

// StepDeltaDecoder provides high-performance decoding of delta-of-delta
// compressed step indices.
//
// This decoder efficiently processes step indices encoded by StepDeltaEncoder
// using direct byte slice access, optimized binary.Uvarint operations and the
// iterator pattern for memory-efficient processing.
//
// The decoder expects data in the format produced by StepDeltaEncoder:
//  1. First step index: Varint-encoded value
//  2. Second step index: Zigzag + varint encoded delta
//  3. Subsequent step indices: Zigzag + varint encoded delta-of-deltas
type StepDeltaDecoder struct{}

var _ ColumnarDecoder[int64] = StepDeltaDecoder{}

// NewStepDeltaDecoder creates a new delta-of-delta step index decoder.
//
// The decoder is stateless and can be reused across multiple decoding operations.
// Each call to All() operates independently on the provided data.
//
// Returns:
//   - StepDeltaDecoder: A new decoder instance (stateless, can be reused)
func NewStepDeltaDecoder() StepDeltaDecoder {
	return StepDeltaDecoder{}
}

// All returns an iterator that yields all step indices from the delta-of-delta
// encoded data.
//
// Decoding algorithm:
//  1. Decode first step index as full varint value
//  2. Decode second step index as delta (zigzag + varint)
//  3. For remaining step indices:
//     - Decode zigzag + varint encoded delta-of-delta
//     - Reconstruct delta: current_delta = previous_delta + delta_of_delta
//     - Add delta to previous step index
//
// Error handling:
//   - Invalid varint encoding: Iterator stops early
//   - Insufficient data: Iterator stops at actual data end
//
// Parameters:
//   - data: Delta-of-delta encoded byte slice from StepDeltaEncoder.Bytes()
//   - count: Expected number of step indices to decode
//
// Returns:
//   - iter.Seq[int64]: Iterator yielding decoded chain step indices
//
// Example:
//
//	decoder := NewStepDeltaDecoder()
//	for step := range decoder.All(encodedData, expectedCount) {
//	    fmt.Printf("Step: %d\n", step)
//	}
func (d StepDeltaDecoder) All(data []byte, count int) iter.Seq[int64] {
	return func(yield func(int64) bool) {
		if len(data) == 0 || count <= 0 {
			return
		}

		offset := 0
		yielded := 0

		// Decode first step index (full varint)
		firstStep, n := binary.Uvarint(data[offset:])
		if n <= 0 {
			return
		}
		offset += n
		yielded++

		curStep := int64(firstStep) //nolint:gosec
		if !yield(curStep) {
			return
		}

		if yielded >= count {
			return
		}

		// Decode second step index (first delta)
		zigzag, n := binary.Uvarint(data[offset:])
		if n <= 0 {
			return
		}
		offset += n

		delta := int64(zigzag>>1) ^ -(int64(zigzag & 1)) //nolint:gosec
		curStep += delta
		yielded++

		if !yield(curStep) {
			return
		}

		prevDelta := delta

		// Decode remaining step indices as delta-of-deltas
		for yielded < count && offset < len(data) {
			zigzag, n := binary.Uvarint(data[offset:])
			if n <= 0 {
				return
			}
			offset += n

			// Decode delta-of-delta
			deltaOfDelta := int64(zigzag>>1) ^ -(int64(zigzag & 1)) //nolint:gosec
			delta = prevDelta + deltaOfDelta
			curStep += delta
			yielded++

			if !yield(curStep) {
				return
			}

			prevDelta = delta
		}
	}
}

// At returns the step index at the specified position in the delta-of-delta
// encoded data.
//
// This method decodes sequentially up to the target position; there is no
// random access into delta-of-delta data. For sequential access of multiple
// step indices, use the All() iterator, which is more efficient than repeated
// At() calls.
//
// Parameters:
//   - data: Delta-of-delta encoded byte slice from StepDeltaEncoder.Bytes()
//   - index: Zero-based position of the step index to retrieve
//   - count: Total number of step indices in the encoded data
//
// Returns:
//   - int64: The chain step index at the specified position
//   - bool: true if the position exists and was successfully decoded, false otherwise
func (d StepDeltaDecoder) At(data []byte, index int, count int) (int64, bool) {
	if index < 0 || index >= count || len(data) == 0 {
		return 0, false
	}

	offset := 0
	curIdx := 0

	// Decode first step index (full varint)
	firstStep, n := binary.Uvarint(data[offset:])
	if n <= 0 {
		return 0, false
	}
	offset += n

	curStep := int64(firstStep) //nolint:gosec

	if index == 0 {
		return curStep, true
	}

	curIdx++

	// Decode second step index (first delta)
	if offset >= len(data) {
		return 0, false
	}

	zigzag, n := binary.Uvarint(data[offset:])
	if n <= 0 {
		return 0, false
	}
	offset += n

	delta := int64(zigzag>>1) ^ -(int64(zigzag & 1)) //nolint:gosec
	curStep += delta

	if index == 1 {
		return curStep, true
	}

	curIdx++
	prevDelta := delta

	// Decode remaining step indices as delta-of-deltas
	for curIdx <= index && offset < len(data) {
		zigzag, n := binary.Uvarint(data[offset:])
		if n <= 0 {
			return 0, false
		}
		offset += n

		deltaOfDelta := int64(zigzag>>1) ^ -(int64(zigzag & 1)) //nolint:gosec
		delta = prevDelta + deltaOfDelta
		curStep += delta

		if curIdx == index {
			return curStep, true
		}

		curIdx++
		prevDelta = delta
	}

	return 0, false
}
