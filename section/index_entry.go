package section

import (
	"bytes"

	"github.com/gpmaplab/epistat/endian"
	"github.com/gpmaplab/epistat/errs"
)

// IndexEntry records information about a single dataset in the chunk index
// section. It is a fixed size of 16 bytes and uses delta offset encoding for
// space efficiency.
//
// Delta Offset Encoding:
//   - First dataset: Stores absolute offsets from payload starts (typically 0)
//   - Subsequent datasets: Stores delta = (current_offset - previous_offset)
//   - Benefits: Smaller delta values fit better in uint16 range
//   - Decoding: Absolute offsets reconstructed by accumulating deltas
//
// Example with 3 datasets (raw encoding, 8 bytes per step index and value,
// 4 walkers, width 1):
//
//	Dataset 1: 5 steps → StepOffset=0, ValueOffset=0
//	Dataset 2: 3 steps → StepOffset=40 (delta: 5×8), ValueOffset=160 (delta: 5×4×8)
//	Dataset 3: 7 steps → StepOffset=24 (delta: 3×8), ValueOffset=96 (delta: 3×4×8)
//	Decoded absolute offsets: Steps=[0,40,64], Values=[0,160,256]
type IndexEntry struct {
	// DatasetID is the unsigned 64-bit dataset id, the xxHash64 hash of the
	// dataset name string unless supplied directly by the caller.
	//
	// Offset: 0, Size: 8 bytes
	DatasetID uint64

	// StepCount is the number of recorded chain steps for this dataset.
	//
	// Offset: 8, Size: 2 bytes (store as uint16 on disk)
	//
	// NOTE: On disk, this field is stored as uint16 (2 bytes) to save space.
	// In memory, we use int to avoid frequent type conversions during processing.
	// The maximum step count per dataset is limited by the uint16 range (65535 steps).
	StepCount int

	// Width is the number of values recorded per walker per step.
	// A posterior sample dataset has width len(theta); a log-probability
	// dataset has width 1. Each recorded step carries WalkerCount×Width values.
	//
	// Offset: 10, Size: 2 bytes (store as uint16 on disk)
	Width int

	// StepOffset stores the delta offset (in bytes) from the previous dataset's
	// step payload offset.
	// First dataset: absolute offset from step payload start (typically 0)
	// Subsequent datasets: delta = (current_offset - previous_offset)
	// Decoder reconstructs: absolute_offset[i] = absolute_offset[i-1] + delta[i]
	//
	// Offset: 12, Size: 2 bytes (store as uint16 on disk)
	//
	// NOTE: After decoding, this field contains the ABSOLUTE offset (not delta).
	// The absolute offset can exceed 65535 bytes, so we use int (not uint16) in memory.
	// On disk, deltas are stored as uint16 (2 bytes) to save space.
	StepOffset int

	// StepLength is the total byte length of the encoded step indices for this dataset.
	//
	// This field is not stored on disk and is only used in memory for slicing and dicing.
	StepLength int

	// ValueOffset stores the delta offset (in bytes) from the previous dataset's
	// value payload offset.
	// First dataset: absolute offset from value payload start (typically 0)
	// Subsequent datasets: delta = (current_offset - previous_offset)
	// Decoder reconstructs: absolute_offset[i] = absolute_offset[i-1] + delta[i]
	//
	// Offset: 14, Size: 2 bytes (store as uint16 on disk)
	//
	// NOTE: After decoding, this field contains the ABSOLUTE offset (not delta).
	// The absolute offset can exceed 65535 bytes, so we use int (not uint16) in memory.
	// On disk, deltas are stored as uint16 (2 bytes) to save space.
	ValueOffset int

	// ValueLength is the total byte length of the encoded values for this dataset.
	//
	// This field is not stored on disk and is only used in memory for slicing and dicing.
	ValueLength int
}

// Bytes returns the index entry as a byte slice using the specified endian engine.
//
// This method uses stack allocation for better performance. It can only be used
// during encoding when offsets fit in uint16 range. After decoding, offsets may
// exceed uint16 range and should not be written back using this method.
//
// Parameters:
//   - engine: Endian engine for byte order
//
// Returns:
//   - []byte: 16-byte index entry with all fields encoded
func (e *IndexEntry) Bytes(engine endian.EndianEngine) []byte {
	var b [IndexEntrySize]byte // stack allocation, it's faster than heap allocation
	engine.PutUint64(b[0:8], e.DatasetID)
	engine.PutUint16(b[8:10], uint16(e.StepCount))   //nolint: gosec
	engine.PutUint16(b[10:12], uint16(e.Width))      //nolint: gosec
	engine.PutUint16(b[12:14], uint16(e.StepOffset)) //nolint: gosec
	engine.PutUint16(b[14:16], uint16(e.ValueOffset)) //nolint: gosec

	return b[:]
}

// WriteTo writes the index entry to a buffer using the specified endian engine.
//
// Parameters:
//   - buf: Buffer to write to (will grow if needed)
//   - engine: Endian engine for byte order
func (e *IndexEntry) WriteTo(buf *bytes.Buffer, engine endian.EndianEngine) {
	buf.Grow(IndexEntrySize)

	start := buf.Len()
	var b [IndexEntrySize]byte
	buf.Write(b[:])

	// Write directly to the allocated space
	data := buf.Bytes()[start : start+IndexEntrySize]
	engine.PutUint64(data[0:8], e.DatasetID)
	engine.PutUint16(data[8:10], uint16(e.StepCount))   //nolint: gosec
	engine.PutUint16(data[10:12], uint16(e.Width))      //nolint: gosec
	engine.PutUint16(data[12:14], uint16(e.StepOffset)) //nolint: gosec
	engine.PutUint16(data[14:16], uint16(e.ValueOffset)) //nolint: gosec
}

// WriteToSlice writes to a pre-allocated slice and returns the next position.
//
// This is the most efficient method when writing multiple entries sequentially.
//
// Parameters:
//   - data: Pre-allocated byte slice (must have space for 16 bytes at offset)
//   - offset: Starting position in data slice
//   - engine: Endian engine for byte order
//
// Returns:
//   - int: Next write position (offset + 16)
func (e *IndexEntry) WriteToSlice(data []byte, offset int, engine endian.EndianEngine) int {
	engine.PutUint64(data[offset:offset+8], e.DatasetID)
	engine.PutUint16(data[offset+8:offset+10], uint16(e.StepCount))    //nolint: gosec
	engine.PutUint16(data[offset+10:offset+12], uint16(e.Width))      //nolint: gosec
	engine.PutUint16(data[offset+12:offset+14], uint16(e.StepOffset)) //nolint: gosec
	engine.PutUint16(data[offset+14:offset+16], uint16(e.ValueOffset)) //nolint: gosec

	return offset + IndexEntrySize
}

// NewIndexEntry creates a new IndexEntry with the specified dataset ID, step
// count and width.
//
// Offsets are initialized to zero and should be set by the encoder.
//
// Parameters:
//   - datasetID: Unique 64-bit dataset identifier
//   - stepCount: Number of recorded steps for this dataset (1-65535)
//   - width: Values per walker per step (1-65535)
//
// Returns:
//   - IndexEntry: New index entry with zero offsets
func NewIndexEntry(datasetID uint64, stepCount, width uint16) IndexEntry {
	return IndexEntry{
		DatasetID:   datasetID,
		StepCount:   int(stepCount),
		Width:       int(width),
		StepOffset:  0,
		ValueOffset: 0,
	}
}

// ParseIndexEntry parses an IndexEntry from a byte slice.
//
// Parameters:
//   - data: Byte slice containing index entry (must be at least 16 bytes)
//   - engine: Endian engine for byte order
//
// Returns:
//   - IndexEntry: Parsed index entry
//   - error: ErrInvalidIndexEntrySize if data is too short
func ParseIndexEntry(data []byte, engine endian.EndianEngine) (IndexEntry, error) {
	if len(data) < IndexEntrySize {
		return IndexEntry{}, errs.ErrInvalidIndexEntrySize
	}

	return IndexEntry{
		DatasetID:   engine.Uint64(data[0:8]),
		StepCount:   int(engine.Uint16(data[8:10])),
		Width:       int(engine.Uint16(data[10:12])),
		StepOffset:  int(engine.Uint16(data[12:14])),
		ValueOffset: int(engine.Uint16(data[14:16])),
	}, nil
}
