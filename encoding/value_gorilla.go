package encoding

import (
	"encoding/binary"
	"iter"
	"math"
	"math/bits"

	"github.com/gpmaplab/epistat/internal/pool"
)

// ValueGorillaEncoder compresses float64 sample values with the Gorilla
// XOR algorithm.
//
// The algorithm stores the first value uncompressed (64 bits) and encodes
// every subsequent value as the XOR against its predecessor:
//   - XOR == 0 (value unchanged): a single 0 bit
//   - XOR != 0: a 1 bit, then either a 0 bit reusing the previous
//     leading/trailing window plus the meaningful bits, or a 1 bit followed
//     by 5 bits of leading-zero count, 6 bits of block size, and the
//     meaningful bits
//
// Sampler chains are a close to ideal input: a rejected Metropolis proposal
// repeats the previous coefficient exactly, costing one bit, and an accepted
// proposal moves the walker by a small perturbation whose XOR has many
// leading and trailing zeros.
//
// See https://www.vldb.org/pvldb/vol8/p1816-teller.pdf for algorithm details.
type ValueGorillaEncoder struct {
	// Hot path fields, kept together for cache locality.
	bitBuf        uint64 // bit accumulator, flushed to buf when full
	prevValue     uint64 // previous value as raw IEEE 754 bits
	bitCount      int    // number of valid bits in bitBuf
	count         int    // number of values encoded
	prevLeading   int    // leading zeros of the previous XOR
	prevTrailing  int    // trailing zeros of the previous XOR
	prevBlockSize int    // cached 64 - prevLeading - prevTrailing
	firstValue    bool   // true until the first value of a sequence is written

	buf *pool.ByteBuffer
}

var _ ColumnarEncoder[float64] = (*ValueGorillaEncoder)(nil)

// NewValueGorillaEncoder creates a new Gorilla encoder for float64 sample
// values.
//
// Space cost per value:
//   - First value of a sequence: 64 bits
//   - Unchanged value (rejected proposal): 1 bit
//   - Same bit window as the previous change: 2 bits + meaningful bits
//   - New bit window: 2 + 5 + 6 bits + meaningful bits
//
// Returns:
//   - *ValueGorillaEncoder: A new encoder instance ready for value encoding
func NewValueGorillaEncoder() *ValueGorillaEncoder {
	return &ValueGorillaEncoder{
		buf:        pool.GetChunkBuffer(),
		firstValue: true,
	}
}

// Write encodes a single float64 sample value using Gorilla compression.
//
// The compressed bits accumulate in an internal 64-bit buffer and are
// flushed to the byte buffer as it fills.
//
// Parameters:
//   - val: The float64 value to encode
func (e *ValueGorillaEncoder) Write(val float64) {
	if e.buf == nil {
		panic("encoder already finished - cannot write values after Finish()")
	}

	e.count++
	valBits := math.Float64bits(val)

	if e.firstValue {
		e.firstValue = false
		e.prevValue = valBits
		e.writeBits(valBits, 64)

		return
	}

	e.writeValue(valBits)
}

// WriteSlice encodes a slice of float64 sample values.
//
// Runs of identical values, the common case when a walker rejects several
// proposals in a row, are detected and written as batched zero bits.
//
// Parameters:
//   - values: Slice of float64 values to encode
func (e *ValueGorillaEncoder) WriteSlice(values []float64) {
	if e.buf == nil {
		panic("encoder already finished - cannot write values after Finish()")
	}

	if len(values) == 0 {
		return
	}

	if e.firstValue {
		e.count++
		valBits := math.Float64bits(values[0])
		e.firstValue = false
		e.prevValue = valBits
		e.writeBits(valBits, 64)
		values = values[1:]
	}

	i := 0
	for i < len(values) {
		valBits := math.Float64bits(values[i])

		// Look ahead for a run of identical values
		j := i + 1
		for j < len(values) && math.Float64bits(values[j]) == valBits {
			j++
		}

		runLength := j - i
		if runLength > 1 && valBits == e.prevValue {
			e.writeZeroBits(runLength)
			e.count += runLength
			i = j
		} else {
			e.count++
			e.writeValue(valBits)
			i++
		}
	}
}

func (e *ValueGorillaEncoder) writeZeroBits(count int) {
	for count > 0 {
		n := count
		if n > 64 {
			n = 64
		}
		e.writeBits(0, n)
		count -= n
	}
}

// Bytes returns the encoded byte slice containing all compressed values.
//
// The returned slice is valid until the next call to Write, WriteSlice,
// Reset, or Finish. The caller must not modify the returned slice as it
// references the internal buffer.
//
// This method flushes any pending bits so the returned data is complete;
// repeated calls without new writes do not flush again.
//
// Returns:
//   - []byte: Gorilla-compressed byte slice (empty if no values written)
func (e *ValueGorillaEncoder) Bytes() []byte {
	if e.buf == nil {
		panic("encoder already finished - cannot access bytes after Finish()")
	}

	if e.bitCount > 0 {
		e.flushBits()
	}

	return e.buf.Bytes()
}

// Len returns the number of encoded float64 values.
//
// Returns:
//   - int: Number of values written since last Finish
func (e *ValueGorillaEncoder) Len() int {
	return e.count
}

// Size returns the size in bytes of the data flushed to the byte buffer.
//
// Pending bits in the bit buffer are not included. Call Bytes() first to
// flush them before checking the final size.
//
// Returns:
//   - int: Total bytes written to internal buffer since last Finish
func (e *ValueGorillaEncoder) Size() int {
	if e.buf == nil {
		panic("encoder already finished - cannot access size after Finish()")
	}

	return e.buf.Len()
}

// Reset starts a new independent value sequence while retaining the
// accumulated data in the internal buffer.
//
// The encoder is reset between datasets so each dataset's byte range can be
// decoded on its own.
func (e *ValueGorillaEncoder) Reset() {
	if e.buf != nil && e.bitCount > 0 {
		e.flushBits()
	}
	e.bitBuf = 0
	e.bitCount = 0
	e.prevValue = 0
	e.prevLeading = 0
	e.prevTrailing = 0
	e.prevBlockSize = 0
	e.firstValue = true
}

// Finish finalizes the encoding process and returns the buffer to the pool.
//
// IMPORTANT: The encoder becomes single-use after calling Finish. Any
// subsequent call to Write, WriteSlice, Bytes, or Size panics. Retrieve the
// encoded data with Bytes() BEFORE calling Finish.
func (e *ValueGorillaEncoder) Finish() {
	if e.buf == nil {
		return // already finished
	}

	pool.PutChunkBuffer(e.buf)
	e.buf = nil
}

// writeValue encodes one value as an XOR against its predecessor.
func (e *ValueGorillaEncoder) writeValue(valBits uint64) {
	xor := valBits ^ e.prevValue
	e.prevValue = valBits

	if xor == 0 {
		// Unchanged value, a single 0 bit. Inlined because this is the
		// dominant case for chains with low acceptance rates.
		e.bitBuf = (e.bitBuf << 1)
		e.bitCount++
		if e.bitCount == 64 {
			e.flushBits()
		}

		return
	}

	e.writeBit(1)

	leading := bits.LeadingZeros64(xor)
	trailing := bits.TrailingZeros64(xor)

	// The leading-zero field is 5 bits wide (0-31); clamp and give the
	// excess to the meaningful block.
	if leading > 31 {
		adjustment := leading - 31
		leading = 31
		trailing -= adjustment
		if trailing < 0 {
			trailing = 0
		}
	}

	// The previous window is reusable only from the third value on: the
	// second value produces the first XOR, so there is no window yet.
	if e.count > 2 && e.prevBlockSize > 0 && leading >= e.prevLeading && trailing >= e.prevTrailing {
		e.writeBit(0)
		e.writeBits(xor>>e.prevTrailing, e.prevBlockSize)
	} else {
		blockSize := 64 - leading - trailing
		e.writeBit(1)

		// 5 bits of leading zeros (0-31)
		e.writeNarrowBits(uint64(leading), 5) //nolint:gosec
		// 6 bits of block size (1-64 encoded as 0-63)
		e.writeNarrowBits(uint64(blockSize-1), 6) //nolint:gosec
		e.writeBits(xor>>trailing, blockSize)

		e.prevLeading = leading
		e.prevTrailing = trailing
		e.prevBlockSize = blockSize
	}
}

// writeBit appends a single bit to the bit buffer, flushing when full.
func (e *ValueGorillaEncoder) writeBit(bit uint64) {
	e.bitBuf = (e.bitBuf << 1) | bit
	e.bitCount++

	if e.bitCount == 64 {
		e.flushBits()
	}
}

// writeNarrowBits writes a field of at most 6 bits, handling buffer
// boundary splits without the general writeBits loop.
func (e *ValueGorillaEncoder) writeNarrowBits(value uint64, numBits int) {
	value &= (1 << numBits) - 1
	available := 64 - e.bitCount
	if available >= numBits {
		e.bitBuf = (e.bitBuf << numBits) | value
		e.bitCount += numBits
		if e.bitCount >= 64 {
			e.flushBits()
		}

		return
	}

	highBits := numBits - available
	e.bitBuf = (e.bitBuf << available) | (value >> highBits)
	e.bitCount = 64
	e.flushBits()

	e.bitBuf = value & ((1 << highBits) - 1)
	e.bitCount = highBits
}

// writeBits writes 1-64 bits, flushing across the buffer boundary as
// needed.
//
// Parameters:
//   - value: the bits to write (only the least significant numBits are used)
//   - numBits: number of bits to write (1-64)
func (e *ValueGorillaEncoder) writeBits(value uint64, numBits int) {
	if numBits == 0 {
		return
	}

	if numBits < 64 {
		value &= (1 << numBits) - 1
	}

	available := 64 - e.bitCount

	if numBits <= available {
		e.bitBuf = (e.bitBuf << numBits) | value
		e.bitCount += numBits

		if e.bitCount == 64 {
			e.flushBits()
		}
	} else {
		// Split across the buffer boundary
		highBits := numBits - available
		e.bitBuf = (e.bitBuf << available) | (value >> highBits)
		e.bitCount = 64
		e.flushBits()

		e.bitBuf = value & ((1 << highBits) - 1)
		e.bitCount = highBits
	}
}

// flushBits appends the accumulated bits to the byte buffer, big-endian
// (most significant bits first).
func (e *ValueGorillaEncoder) flushBits() {
	if e.bitCount == 0 {
		return
	}

	numBytes := (e.bitCount + 7) / 8

	// Left-align the bits to the byte boundary
	alignedBits := e.bitBuf << (64 - e.bitCount)

	startLen := e.buf.Len()
	e.buf.ExtendOrGrow(numBytes)

	bs := e.buf.Slice(startLen, startLen+numBytes)

	if numBytes == 8 {
		binary.BigEndian.PutUint64(bs, alignedBits)
	} else {
		for i := range numBytes {
			shift := 56 - (i * 8)
			bs[i] = byte(alignedBits >> shift)
		}
	}

	e.bitBuf = 0
	e.bitCount = 0
}

// ValueGorillaDecoder decodes float64 sample values compressed with the
// Gorilla XOR algorithm.
//
// The decoder is stateless and can be used concurrently for different data
// streams.
type ValueGorillaDecoder struct{}

var _ ColumnarDecoder[float64] = ValueGorillaDecoder{}

// NewValueGorillaDecoder creates a new Gorilla decoder for float64 sample
// values.
//
// The decoder is stateless and returned by value: no heap allocation, and
// one instance can serve multiple datasets.
//
// Returns:
//   - ValueGorillaDecoder: A new decoder instance (stateless, can be reused)
func NewValueGorillaDecoder() ValueGorillaDecoder {
	return ValueGorillaDecoder{}
}

// gorillaWindow caches the meaningful-bit window of the previous changed
// value, so a change that reuses the window does not repeat the 5+6 bit
// header.
type gorillaWindow struct {
	trailing  int
	blockSize int
	valid     bool
}

// next reads the window metadata for a changed value, updating the cached
// window when the stream defines a new one.
func (w *gorillaWindow) next(br *bitReader) (trailing int, blockSize int, ok bool) {
	windowBit, ok := br.readBit()
	if !ok {
		return 0, 0, false
	}

	if windowBit == 0 {
		if !w.valid {
			return 0, 0, false
		}

		return w.trailing, w.blockSize, true
	}

	leading, ok := br.readNarrowBits(5)
	if !ok {
		return 0, 0, false
	}

	blockSize, ok = br.readNarrowBits(6)
	if !ok {
		return 0, 0, false
	}
	blockSize++
	if blockSize < 1 || blockSize > 64 {
		return 0, 0, false
	}

	trailing = 64 - leading - blockSize
	if trailing < 0 || trailing > 64 {
		return 0, 0, false
	}

	w.trailing = trailing
	w.blockSize = blockSize
	w.valid = true

	return trailing, blockSize, true
}

// All returns an iterator over all float64 values in the compressed data.
//
// Parameters:
//   - data: byte slice containing Gorilla-compressed float64 values
//   - count: expected number of values to decode
//
// Returns:
//   - iter.Seq[float64]: Iterator yielding decoded float64 values
//
// Malformed or truncated data makes the iterator stop early.
func (d ValueGorillaDecoder) All(data []byte, count int) iter.Seq[float64] {
	return func(yield func(float64) bool) {
		if len(data) == 0 || count <= 0 {
			return
		}

		br := newBitReader(data)

		firstBits, ok := br.readBits(64)
		if !ok {
			return
		}
		prevValue := firstBits
		prevFloat := math.Float64frombits(prevValue)
		if !yield(prevFloat) {
			return
		}

		window := gorillaWindow{}
		produced := 1

		for produced < count {
			controlBit, ok := br.readBit()
			if !ok {
				return
			}

			if controlBit == 0 {
				// Unchanged value
				if !yield(prevFloat) {
					return
				}
				produced++

				continue
			}

			trailing, blockSize, ok := window.next(br)
			if !ok {
				return
			}

			meaningful, ok := br.readBits(blockSize)
			if !ok {
				return
			}

			shift := uint64(trailing) // #nosec G115 -- trailing validated by gorillaWindow
			prevValue ^= meaningful << shift
			prevFloat = math.Float64frombits(prevValue)
			if !yield(prevFloat) {
				return
			}
			produced++
		}
	}
}

// At returns the float64 value at the specified position.
//
// Gorilla data has no random access; this method decodes sequentially up to
// the requested position. For sequential access of multiple values, use the
// All() iterator instead.
//
// Parameters:
//   - data: byte slice containing Gorilla-compressed float64 values
//   - index: zero-based position of the value to retrieve
//   - count: total number of values encoded in the data
//
// Returns:
//   - float64: The decoded value at the position
//   - bool: true if the position exists and was successfully decoded
func (d ValueGorillaDecoder) At(data []byte, index int, count int) (float64, bool) {
	if len(data) == 0 || index < 0 || index >= count {
		return 0, false
	}

	var result float64
	found := false
	i := 0
	for v := range d.All(data, index+1) {
		if i == index {
			result = v
			found = true
		}
		i++
	}

	return result, found
}

// ByteLength returns the number of bytes consumed by count Gorilla-encoded
// values.
//
// Multiple datasets share one value payload, so the encoder flushes to a
// byte boundary between datasets; this function recovers the boundary of a
// dataset's values when only its value count is known.
//
// Parameters:
//   - data: byte slice containing Gorilla-compressed float64 values
//   - count: number of values to scan
//
// Returns:
//   - int: Number of bytes consumed by count values, or 0 on malformed data
func (d ValueGorillaDecoder) ByteLength(data []byte, count int) int {
	if len(data) == 0 || count <= 0 {
		return 0
	}

	br := newBitReader(data)

	if _, ok := br.readBits(64); !ok {
		return 0
	}

	if count == 1 {
		return 8
	}

	window := gorillaWindow{}

	for i := 1; i < count; i++ {
		controlBit, ok := br.readBit()
		if !ok {
			return 0
		}

		if controlBit == 0 {
			continue
		}

		_, blockSize, ok := window.next(br)
		if !ok {
			return 0
		}

		if _, ok := br.readBits(blockSize); !ok {
			return 0
		}
	}

	totalBits := br.bytePos*8 - br.bitCount
	totalBytes := (totalBits + 7) / 8

	return totalBytes
}

// bitReader provides bit-level reading from a byte slice for the Gorilla
// decoder.
type bitReader struct {
	data     []byte
	bytePos  int
	bitBuf   uint64
	bitCount int
}

func newBitReader(data []byte) *bitReader {
	return &bitReader{
		data: data,
	}
}

// readBit reads a single bit from the stream.
//
// Returns:
//   - uint64: The bit value (0 or 1)
//   - bool: true if a bit was available
func (br *bitReader) readBit() (uint64, bool) {
	if br.bitCount == 0 {
		if !br.fillBuffer() {
			return 0, false
		}
	}

	bit := br.bitBuf >> 63
	br.bitBuf <<= 1
	br.bitCount--

	return bit, true
}

// readNarrowBits reads a field of at most 6 bits with a fast path for a
// filled buffer, avoiding the generic readBits loop for the window header
// fields.
//
// Returns:
//   - int: The field value
//   - bool: true if enough bits were available
func (br *bitReader) readNarrowBits(numBits int) (int, bool) {
	if br.bitCount >= numBits {
		br.bitCount -= numBits
		val := int(br.bitBuf >> (64 - numBits)) //nolint: gosec
		br.bitBuf <<= numBits

		return val, true
	}

	val, ok := br.readBits(numBits)

	return int(val), ok //nolint: gosec
}

// readBits reads 1-64 bits from the stream, right-aligned.
//
// Returns:
//   - uint64: The bits read
//   - bool: true if enough bits were available
func (br *bitReader) readBits(numBits int) (uint64, bool) {
	if numBits == 0 {
		return 0, true
	}

	if numBits <= br.bitCount {
		shift := 64 - numBits
		result := br.bitBuf >> shift
		br.bitBuf <<= numBits
		br.bitCount -= numBits

		return result, true
	}

	var result uint64
	firstRead := true

	for numBits > 0 {
		if br.bitCount == 0 {
			if !br.fillBuffer() {
				return 0, false
			}
		}

		bitsToRead := numBits
		if bitsToRead > br.bitCount {
			bitsToRead = br.bitCount
		}

		shift := 64 - bitsToRead
		shiftedBits := br.bitBuf >> shift

		if firstRead {
			result = shiftedBits
			firstRead = false
		} else {
			result = (result << bitsToRead) | shiftedBits
		}

		br.bitBuf <<= bitsToRead
		br.bitCount -= bitsToRead
		numBits -= bitsToRead
	}

	return result, true
}

// fillBuffer refills the bit buffer with up to 8 bytes, left-aligned so
// extraction always starts at the most significant bit.
func (br *bitReader) fillBuffer() bool {
	if br.bytePos >= len(br.data) {
		return false
	}

	bytesAvailable := len(br.data) - br.bytePos
	bytesToRead := 8
	if bytesToRead > bytesAvailable {
		bytesToRead = bytesAvailable
	}

	if bytesToRead == 8 {
		br.bitBuf = binary.BigEndian.Uint64(br.data[br.bytePos : br.bytePos+8])
		br.bytePos += 8
		br.bitCount = 64

		return true
	}

	br.bitBuf = 0
	for i := 0; i < bytesToRead; i++ {
		br.bitBuf = (br.bitBuf << 8) | uint64(br.data[br.bytePos])
		br.bytePos++
	}

	br.bitBuf <<= (8 - bytesToRead) * 8
	br.bitCount = bytesToRead * 8

	return true
}
