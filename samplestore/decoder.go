package samplestore

import (
	"fmt"

	"github.com/gpmaplab/epistat/compress"
	"github.com/gpmaplab/epistat/encoding"
	"github.com/gpmaplab/epistat/endian"
	"github.com/gpmaplab/epistat/errs"
	"github.com/gpmaplab/epistat/format"
	ienc "github.com/gpmaplab/epistat/internal/encoding"
	"github.com/gpmaplab/epistat/internal/hash"
	"github.com/gpmaplab/epistat/section"
)

// Decoder decodes an encoded sample chunk and reconstructs a Chunk.
//
// Note: The Decoder is NOT thread-safe. Each decoder instance should be used
// by a single goroutine at a time.
//
// Note: The Decoder is NOT reusable. After calling Decode, a new decoder must
// be created for further decoding.
type Decoder struct {
	data         []byte
	datasetCount int
	engine       endian.EndianEngine
	header       *section.Header
}

// NewDecoder creates a new Decoder for the given encoded chunk data.
//
// The decoder validates the header and prepares for decoding but does not
// decompress payloads until Decode() is called.
//
// Parameters:
//   - data: Encoded chunk byte slice (must contain a valid header)
//
// Returns:
//   - *Decoder: New decoder instance ready for decoding
//   - error: Header parsing error or invalid data format
func NewDecoder(data []byte) (*Decoder, error) {
	decoder := &Decoder{
		data: data,
	}

	if err := decoder.parseHeader(); err != nil {
		return nil, err
	}

	return decoder, nil
}

// Decode decodes the encoded data into a Chunk.
//
// This method decompresses both payloads, parses index entries, and
// reconstructs the chunk structure. If dataset names are present, it verifies
// the name hashes against the index entry IDs.
//
// Returns:
//   - Chunk: Decoded chunk with step/value payloads and the dataset index
//   - error: Payload offset validation errors, decompression errors, index
//     parsing errors, or dataset name verification failures
func (d *Decoder) Decode() (Chunk, error) {
	chunk := Chunk{
		startStep:   d.header.StartStep,
		walkerCount: int(d.header.WalkerCount),
	}

	if d.datasetCount == 0 {
		return chunk, errs.ErrInvalidDatasetCount
	}
	if d.header.WalkerCount == 0 {
		return chunk, errs.ErrInvalidWalkerCountField
	}

	// Validate payload offsets
	stepOffset := int(d.header.StepPayloadOffset)
	if len(d.data) < stepOffset {
		return chunk, errs.ErrInvalidStepPayloadOffset
	}

	valOffset := int(d.header.ValuePayloadOffset)
	if len(d.data) < valOffset || valOffset < stepOffset {
		return chunk, errs.ErrInvalidValuePayloadOffset
	}

	nameOffset := int(d.header.NamePayloadOffset)
	if len(d.data) < nameOffset || nameOffset < valOffset {
		return chunk, errs.ErrInvalidNamePayloadOffset
	}

	// Step 1: Decompress payloads (before parsing index entries so the
	// decompressed sizes can back the last entry's lengths)
	stepPayload, valPayload, err := d.decompressPayloads(stepOffset, valOffset, nameOffset)
	if err != nil {
		return chunk, err
	}

	chunk.stepPayload = stepPayload
	chunk.valPayload = valPayload

	// Step 2: Parse index entries
	entries, datasetIDs, err := d.parseIndexEntries(len(stepPayload), len(valPayload))
	if err != nil {
		return chunk, err
	}

	chunk.entries = entries
	chunk.byID = make(map[uint64]section.IndexEntry, d.datasetCount)
	for _, entry := range entries {
		chunk.byID[entry.DatasetID] = entry
	}

	// Step 3: Parse and verify the dataset names payload (if present)
	if d.header.Flag.HasDatasetNames() {
		names, _, err := ienc.DecodeDatasetNames(d.data[nameOffset:], d.engine)
		if err != nil {
			return chunk, fmt.Errorf("failed to decode dataset names: %w", err)
		}

		if len(names) != d.datasetCount {
			return chunk, fmt.Errorf("%w: expected %d names, got %d",
				errs.ErrInvalidDatasetNamesCount, d.datasetCount, len(names))
		}

		if err := ienc.VerifyDatasetNameHashes(names, datasetIDs, hash.ID); err != nil {
			return chunk, fmt.Errorf("dataset name verification failed: %w", err)
		}

		chunk.names = names
	}

	// Step 4: Pick decoders based on the header encodings
	if err := d.setDecoders(&chunk); err != nil {
		return chunk, err
	}

	return chunk, nil
}

// parseHeader parses the header section of the encoded data.
func (d *Decoder) parseHeader() error {
	header, err := section.ParseHeader(d.data)
	if err != nil {
		return err
	}

	d.engine = header.Flag.GetEndianEngine()
	d.datasetCount = int(header.DatasetCount)
	d.header = &header

	return nil
}

// parseIndexEntries parses the index section, converting delta offsets into
// absolute offsets and deriving per-dataset payload lengths from the next
// entry's offset (or the decompressed payload size for the last entry).
func (d *Decoder) parseIndexEntries(stepPayloadSize, valPayloadSize int) ([]section.IndexEntry, []uint64, error) {
	indexOffset := int(d.header.IndexOffset)
	indexSize := section.IndexEntrySize * d.datasetCount
	if len(d.data) < indexOffset+indexSize {
		return nil, nil, errs.ErrInvalidIndexEntrySize
	}

	indexData := d.data[indexOffset : indexOffset+indexSize]

	// Accumulate in int to prevent uint16 overflow: index entries store
	// deltas as uint16, but absolute offsets can exceed 65535
	var lastStepOffset int
	var lastValOffset int

	entries := make([]section.IndexEntry, d.datasetCount)
	datasetIDs := make([]uint64, d.datasetCount)

	var err error
	for i := 0; i < d.datasetCount; i++ {
		start := i * section.IndexEntrySize
		end := start + section.IndexEntrySize

		entries[i], err = section.ParseIndexEntry(indexData[start:end], d.engine)
		if err != nil {
			return nil, nil, err
		}

		curEntry := &entries[i]

		// Convert delta offsets to absolute offsets
		lastStepOffset += curEntry.StepOffset
		lastValOffset += curEntry.ValueOffset

		curEntry.StepOffset = lastStepOffset
		curEntry.ValueOffset = lastValOffset

		datasetIDs[i] = curEntry.DatasetID

		if i > 0 {
			prevEntry := &entries[i-1]

			// Validate offsets are non-decreasing
			if lastStepOffset < prevEntry.StepOffset || lastValOffset < prevEntry.ValueOffset {
				return nil, nil, errs.ErrInvalidIndexOffsets
			}

			prevEntry.StepLength = lastStepOffset - prevEntry.StepOffset
			prevEntry.ValueLength = lastValOffset - prevEntry.ValueOffset
		}
	}

	// The last entry's lengths come from the decompressed payload sizes
	lastEntry := &entries[d.datasetCount-1]
	lastEntry.StepLength = stepPayloadSize - lastEntry.StepOffset
	lastEntry.ValueLength = valPayloadSize - lastEntry.ValueOffset

	if lastEntry.StepLength < 0 || lastEntry.ValueLength < 0 {
		return nil, nil, errs.ErrInvalidIndexOffsets
	}

	return entries, datasetIDs, nil
}

// decompressPayloads decompresses the step and value payloads.
func (d *Decoder) decompressPayloads(stepOffset, valOffset, nameOffset int) ([]byte, []byte, error) {
	stepCodec, err := compress.GetCodec(d.header.Flag.StepCompression())
	if err != nil {
		return nil, nil, fmt.Errorf("unsupported step compression: %w", err)
	}

	valCodec, err := compress.GetCodec(d.header.Flag.ValueCompression())
	if err != nil {
		return nil, nil, fmt.Errorf("unsupported value compression: %w", err)
	}

	stepPayload, err := stepCodec.Decompress(d.data[stepOffset:valOffset])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decompress step payload: %w", err)
	}

	valPayload, err := valCodec.Decompress(d.data[valOffset:nameOffset])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decompress value payload: %w", err)
	}

	return stepPayload, valPayload, nil
}

// setDecoders selects the columnar decoders matching the header encodings.
// Raw payloads use the unsafe decoders when the chunk byte order matches the
// native byte order.
func (d *Decoder) setDecoders(chunk *Chunk) error {
	sameByteOrder := endian.CompareNativeEndian(d.engine)

	switch d.header.Flag.StepEncoding() { //nolint: exhaustive
	case format.TypeRaw:
		if sameByteOrder {
			chunk.stepDec = encoding.NewStepRawUnsafeDecoder(d.engine)
		} else {
			chunk.stepDec = encoding.NewStepRawDecoder(d.engine)
		}
	case format.TypeDelta:
		chunk.stepDec = encoding.NewStepDeltaDecoder()
	default:
		return errs.ErrInvalidHeaderFlags
	}

	switch d.header.Flag.ValueEncoding() { //nolint: exhaustive
	case format.TypeRaw:
		if sameByteOrder {
			chunk.valDec = encoding.NewValueRawUnsafeDecoder(d.engine)
		} else {
			chunk.valDec = encoding.NewValueRawDecoder(d.engine)
		}
	case format.TypeGorilla:
		chunk.valDec = encoding.NewValueGorillaDecoder()
	default:
		return errs.ErrInvalidHeaderFlags
	}

	return nil
}
