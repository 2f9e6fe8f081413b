package samplestore

import (
	"fmt"
	"math"

	"github.com/gpmaplab/epistat/encoding"
	"github.com/gpmaplab/epistat/errs"
	"github.com/gpmaplab/epistat/format"
	"github.com/gpmaplab/epistat/internal/collision"
	ienc "github.com/gpmaplab/epistat/internal/encoding"
	"github.com/gpmaplab/epistat/internal/hash"
	"github.com/gpmaplab/epistat/internal/options"
	"github.com/gpmaplab/epistat/section"
)

// datasetIdentifierMode defines how datasets are identified in the encoder.
// Once the first dataset is added, the mode is locked for the entire encoder lifecycle.
type datasetIdentifierMode uint8

const (
	// modeUndefined indicates no datasets have been added yet, mode not determined.
	modeUndefined datasetIdentifierMode = iota

	// modeUserID indicates the caller provides dataset IDs via StartDatasetID().
	// In this mode:
	// - The caller is responsible for providing unique IDs
	// - No collision handling (duplicate IDs return errors)
	// - No dataset names tracking
	// - No dataset names payload in the chunk
	modeUserID

	// modeNameManaged indicates dataset IDs are derived from names via StartDataset().
	// In this mode:
	// - Dataset names are hashed to IDs automatically
	// - Collision detection and handling enabled
	// - Dataset names payload included if a collision is detected or forced on
	// - Full collision tracker allocated
	modeNameManaged
)

// Encoder encodes sampler output into the binary chunk format.
//
// One encoder produces one chunk: a set of named datasets, each carrying the
// recorded chain step indices and the step-major sample values for every
// walker at every recorded step.
//
// Note: The Encoder is NOT thread-safe. Each encoder instance should be used
// by a single goroutine at a time.
//
// Note: The Encoder is NOT reusable. After calling Finish, a new encoder must
// be created for further encoding.
type Encoder struct {
	*EncoderConfig

	stepEncoder encoding.ColumnarEncoder[int64]
	valEncoder  encoding.ColumnarEncoder[float64]

	walkerCount  int
	curDatasetID uint64 // current dataset ID being encoded
	curWidth     int    // values per walker per step for the current dataset
	claimed      int    // number of steps claimed for the current dataset

	// Encoder state tracking: each encoderState keeps related fields together
	// (lastOffset, offset, length) so EndDataset loads them in one cache line.
	step encoderState // step index encoder state
	val  encoderState // value encoder state

	// Collision detection - mode-specific:
	// - ID mode (modeUserID): only usedIDs is allocated for duplicate detection
	// - Name mode (modeNameManaged): only collisionTracker is allocated
	collisionTracker *collision.Tracker  // Tracks dataset names (Name mode only)
	usedIDs          map[uint64]struct{} // Tracks IDs for duplicates (ID mode only)

	// Mode tracking - locked after the first StartDataset call
	identifierMode datasetIdentifierMode

	// Header immutability - pending changes are applied to a cloned header in Finish()
	hasCollision bool
}

// encoderState tracks offset and length state for a single columnar encoder.
type encoderState struct {
	lastOffset int // offset of last dataset end (for delta calculation in index entries)
	offset     int // byte position where the current dataset starts
	length     int // total count of items encoded so far (accumulated across all datasets)
}

// delta returns the offset delta from the last dataset.
func (s *encoderState) delta() int {
	return s.offset - s.lastOffset
}

// updateLast updates lastOffset to current offset after ending a dataset.
func (s *encoderState) updateLast() {
	s.lastOffset = s.offset
}

// update updates the state with new offset and length values.
func (s *encoderState) update(offset int, length int) {
	s.offset = offset
	s.length = length
}

// cloneHeader creates a shallow copy of the encoder's header so Finish() can
// compute final header fields without mutating the original.
func (e *Encoder) cloneHeader() *section.Header {
	cloned := *e.header
	return &cloned
}

// NewEncoder creates a new chunk Encoder with the given start step and walker count.
//
// The encoder grows dynamically as datasets are added, up to MaxDatasetCount.
// Every dataset in the chunk shares the same walker count: each recorded step
// carries walkerCount×width values.
//
// Parameters:
//   - startStep: Absolute chain step index of the first sample in the chunk
//   - walkerCount: Number of ensemble walkers (1-65535)
//   - opts: Optional encoding configuration (endianness, compression, encoding types, etc.)
//
// Returns:
//   - *Encoder: New encoder instance ready for dataset encoding
//   - error: Configuration error if invalid options provided
func NewEncoder(startStep int64, walkerCount int, opts ...EncoderOption) (*Encoder, error) {
	if walkerCount <= 0 || walkerCount > section.MaxWalkerCount {
		return nil, fmt.Errorf("%w: %d (max %d)", errs.ErrInvalidWalkerCount, walkerCount, section.MaxWalkerCount)
	}

	config := NewEncoderConfig(startStep)

	encoder := &Encoder{
		EncoderConfig:    config,
		walkerCount:      walkerCount,
		identifierMode:   modeUndefined,
		collisionTracker: nil, // lazy creation
		usedIDs:          nil, // lazy creation
	}

	if err := options.Apply(config, opts...); err != nil {
		return nil, err
	}

	enc := encoder.header.Flag.ValueEncoding()
	switch enc { //nolint: exhaustive
	case format.TypeRaw:
		encoder.valEncoder = encoding.NewValueRawEncoder(encoder.engine)
	case format.TypeGorilla:
		encoder.valEncoder = encoding.NewValueGorillaEncoder()
	default:
		return nil, fmt.Errorf("invalid value encoding: %s", enc.String())
	}

	enc = encoder.header.Flag.StepEncoding()
	switch enc { //nolint: exhaustive
	case format.TypeRaw:
		encoder.stepEncoder = encoding.NewStepRawEncoder(encoder.engine)
	case format.TypeDelta:
		encoder.stepEncoder = encoding.NewStepDeltaEncoder()
	default:
		return nil, fmt.Errorf("invalid step encoding: %s", enc.String())
	}

	if err := encoder.setCodecs(*encoder.header); err != nil {
		return nil, err
	}

	encoder.header.WalkerCount = uint16(walkerCount) //nolint: gosec

	return encoder, nil
}

// StartDatasetID begins encoding a new dataset with the specified unique
// identifier, claimed step count and width.
//
// The datasetID should be a unique unsigned 64-bit integer. If the application
// does not have a predefined dataset ID, it can use the hash.ID function to
// hash the dataset name string.
//
// This method is exclusive with StartDataset. Once StartDatasetID is called,
// all subsequent datasets must also use StartDatasetID. Attempting to mix with
// StartDataset returns ErrMixedIdentifierMode.
//
// Parameters:
//   - datasetID: Unique 64-bit dataset identifier (must be non-zero)
//   - stepCount: Expected number of recorded steps (1-65535)
//   - width: Values per walker per step (1-65535)
//
// Returns:
//   - error: ErrDatasetAlreadyStarted, ErrMixedIdentifierMode, ErrInvalidDatasetID,
//     ErrTooManySteps, ErrDatasetCountExceeded, or ErrHashCollision on duplicate ID
func (e *Encoder) StartDatasetID(datasetID uint64, stepCount, width int) error {
	if e.curDatasetID != 0 {
		return fmt.Errorf("%w: dataset ID %d is already started", errs.ErrDatasetAlreadyStarted, e.curDatasetID)
	}

	// Check mode exclusivity - cannot mix ID mode with Name mode
	if e.identifierMode == modeNameManaged {
		return fmt.Errorf("%w: cannot use StartDatasetID after StartDataset", errs.ErrMixedIdentifierMode)
	}

	if e.identifierMode == modeUndefined {
		e.identifierMode = modeUserID
	}

	if datasetID == 0 {
		return errs.ErrInvalidDatasetID
	}

	if err := e.validateShape(stepCount, width); err != nil {
		return err
	}

	// In ID mode, a simple map for duplicate detection is much lighter than
	// the collision tracker
	if e.usedIDs == nil {
		e.usedIDs = make(map[uint64]struct{})
	}

	if _, exists := e.usedIDs[datasetID]; exists {
		return fmt.Errorf("%w: dataset ID 0x%016x already used", errs.ErrHashCollision, datasetID)
	}
	e.usedIDs[datasetID] = struct{}{}

	return e.startDataset(datasetID, stepCount, width)
}

// StartDataset begins encoding a new dataset with the specified name, claimed
// step count and width.
//
// The dataset name string is hashed to an unsigned 64-bit integer using
// xxHash64. This method performs collision detection by tracking all dataset
// names added to the chunk. If a hash collision is detected (different name,
// same hash), it automatically enables the dataset names payload to handle
// the collision. This is NOT an error - the decoder can disambiguate when
// the names are available.
//
// This method is exclusive with StartDatasetID. Mixing the two returns
// ErrMixedIdentifierMode.
//
// Parameters:
//   - name: Dataset name string (must be non-empty)
//   - stepCount: Expected number of recorded steps (1-65535)
//   - width: Values per walker per step (1-65535)
//
// Returns:
//   - error: ErrDatasetAlreadyStarted, ErrMixedIdentifierMode, ErrInvalidDatasetName,
//     ErrTooManySteps, or ErrDatasetCountExceeded
func (e *Encoder) StartDataset(name string, stepCount, width int) error {
	if e.curDatasetID != 0 {
		return fmt.Errorf("%w: dataset ID %d is already started", errs.ErrDatasetAlreadyStarted, e.curDatasetID)
	}

	// Check mode exclusivity - cannot mix Name mode with ID mode
	if e.identifierMode == modeUserID {
		return fmt.Errorf("%w: cannot use StartDataset after StartDatasetID", errs.ErrMixedIdentifierMode)
	}

	// Set mode on first use and create collision tracker (LAZY)
	if e.identifierMode == modeUndefined {
		e.identifierMode = modeNameManaged
		e.collisionTracker = collision.NewTracker()
	}

	if err := e.validateShape(stepCount, width); err != nil {
		return err
	}

	datasetID := hash.ID(name)

	// Track dataset and detect collisions; only duplicates and invalid names
	// are errors, collisions are handled automatically
	if err := e.collisionTracker.TrackDataset(name, datasetID); err != nil {
		return err
	}

	// If a collision was detected, mark the flag for later application in
	// Finish(); this keeps the original header immutable
	if e.collisionTracker.HasCollision() {
		e.hasCollision = true
	}

	return e.startDataset(datasetID, stepCount, width)
}

// validateShape checks the claimed step count, width and dataset count limits.
func (e *Encoder) validateShape(stepCount, width int) error {
	if stepCount <= 0 || stepCount > section.MaxStepCount {
		return fmt.Errorf("%w: claimed %d steps (max %d)", errs.ErrTooManySteps, stepCount, section.MaxStepCount)
	}

	if width <= 0 || width > math.MaxUint16 {
		return fmt.Errorf("%w: width %d", errs.ErrDatasetWidthMismatch, width)
	}

	if len(e.indexEntries) >= MaxDatasetCount {
		return fmt.Errorf("%w: max %d", errs.ErrDatasetCountExceeded, MaxDatasetCount)
	}

	return nil
}

// startDataset is the internal method that actually starts a dataset.
// It does NOT do collision checking - the caller is responsible for that.
func (e *Encoder) startDataset(datasetID uint64, stepCount, width int) error {
	// Capture current encoder state
	e.step.update(e.stepEncoder.Size(), e.stepEncoder.Len())
	e.val.update(e.valEncoder.Size(), e.valEncoder.Len())

	// Set current dataset state
	e.curDatasetID = datasetID
	e.curWidth = width
	e.claimed = stepCount

	return nil
}

// AddStep adds a single recorded step to the current started dataset.
//
// The values slice holds the walker-major row for this step: walkerCount×width
// float64 values, walker 0's width values first.
//
// Parameters:
//   - step: Absolute chain step index
//   - values: Sample values for this step (must be walkerCount×width long)
//
// Returns:
//   - error: ErrNoDatasetStarted, ErrValueCountMismatch, or ErrTooManySteps if
//     adding would exceed the claimed step count
func (e *Encoder) AddStep(step int64, values []float64) error {
	if e.curDatasetID == 0 {
		return errs.ErrNoDatasetStarted
	}

	rowLen := e.walkerCount * e.curWidth
	if len(values) != rowLen {
		return fmt.Errorf("%w: got %d values, want %d (%d walkers × width %d)",
			errs.ErrValueCountMismatch, len(values), rowLen, e.walkerCount, e.curWidth)
	}

	if e.stepEncoder.Len()-e.step.length >= e.claimed {
		return errs.ErrTooManySteps
	}

	e.stepEncoder.Write(step)
	e.valEncoder.WriteSlice(values)

	return nil
}

// AddSteps adds multiple recorded steps to the current started dataset.
//
// This method is more efficient than calling AddStep repeatedly. Each row of
// values must be walkerCount×width long.
//
// Parameters:
//   - steps: Slice of absolute chain step indices
//   - values: One row of sample values per step (must match steps length)
//
// Returns:
//   - error: ErrNoDatasetStarted, length mismatch errors, ErrValueCountMismatch,
//     or ErrTooManySteps if adding would exceed the claimed step count
func (e *Encoder) AddSteps(steps []int64, values [][]float64) error {
	if e.curDatasetID == 0 {
		return errs.ErrNoDatasetStarted
	}

	if len(steps) == 0 {
		return nil // No-op for empty input
	}
	if len(steps) != len(values) {
		return fmt.Errorf("mismatched lengths: %d steps, %d value rows", len(steps), len(values))
	}

	curCount := e.stepEncoder.Len() - e.step.length
	if curCount+len(steps) > e.claimed {
		return errs.ErrTooManySteps
	}

	rowLen := e.walkerCount * e.curWidth
	for i, row := range values {
		if len(row) != rowLen {
			return fmt.Errorf("%w: row %d has %d values, want %d",
				errs.ErrValueCountMismatch, i, len(row), rowLen)
		}
	}

	e.stepEncoder.WriteSlice(steps)
	for _, row := range values {
		e.valEncoder.WriteSlice(row)
	}

	return nil
}

// EndDataset completes the encoding of the current dataset and prepares the
// encoder for the next one.
//
// This method should be called after all steps have been added via AddStep or
// AddSteps. It validates step counts, creates the index entry, and resets
// encoder state for the next dataset.
//
// Returns:
//   - error: ErrNoDatasetStarted, ErrNoStepsAdded, ErrStepCountMismatch,
//     ErrValueCountMismatch, or ErrOffsetOutOfRange if offset deltas exceed
//     the uint16 range
func (e *Encoder) EndDataset() error {
	if e.curDatasetID == 0 {
		return errs.ErrNoDatasetStarted
	}

	// For Gorilla encoding, flush any pending bits BEFORE calculating lengths
	// so the byte size includes all flushed data. For other encodings this is
	// a no-op as Bytes() just returns the buffer.
	if e.header.Flag.ValueEncoding() == format.TypeGorilla {
		_ = e.valEncoder.Bytes()
	}

	stepEncLen := e.stepEncoder.Len()
	stepEncSize := e.stepEncoder.Size()
	valEncLen := e.valEncoder.Len()
	valEncSize := e.valEncoder.Size()

	// Counts added since the dataset was started
	curStepLen := stepEncLen - e.step.length
	curValLen := valEncLen - e.val.length

	if err := e.validateDatasetData(curStepLen, curValLen); err != nil {
		return err
	}

	// Calculate offset deltas from the last dataset
	stepOffsetDelta := e.step.delta()
	valOffsetDelta := e.val.delta()

	// Validate offset deltas are within uint16 range BEFORE creating the entry
	if stepOffsetDelta > section.MaxOffsetDelta || valOffsetDelta > section.MaxOffsetDelta {
		return fmt.Errorf("%w: step_delta=%d, value_delta=%d (max=%d)",
			errs.ErrOffsetOutOfRange, stepOffsetDelta, valOffsetDelta, section.MaxOffsetDelta)
	}

	entry := section.NewIndexEntry(e.curDatasetID, uint16(curStepLen), uint16(e.curWidth)) //nolint: gosec
	entry.StepOffset = stepOffsetDelta
	entry.ValueOffset = valOffsetDelta
	e.addIndexEntry(entry)

	// Update last offsets for the next dataset
	e.step.updateLast()
	e.val.updateLast()

	// Update accumulated state for the next dataset
	e.step.update(stepEncSize, stepEncLen)
	e.val.update(valEncSize, valEncLen)

	// Reset encoder internal states for the next dataset
	e.stepEncoder.Reset()
	e.valEncoder.Reset()

	// Reset current dataset state
	e.curDatasetID = 0
	e.curWidth = 0
	e.claimed = 0

	return nil
}

func (e *Encoder) validateDatasetData(curStepLen int, curValLen int) error {
	if curStepLen == 0 {
		return errs.ErrNoStepsAdded
	}

	// Every recorded step carries walkerCount×width values
	expectedValues := curStepLen * e.walkerCount * e.curWidth
	if curValLen != expectedValues {
		return fmt.Errorf("%w: %d steps × %d walkers × width %d = %d values, got %d",
			errs.ErrValueCountMismatch, curStepLen, e.walkerCount, e.curWidth, expectedValues, curValLen)
	}

	// Validate that exactly the claimed number of steps were added
	if curStepLen != e.claimed {
		return fmt.Errorf("%w: claimed %d, got %d", errs.ErrStepCountMismatch, e.claimed, curStepLen)
	}

	return nil
}

// Finish finalizes the encoding process and returns the complete chunk bytes.
//
// This method compresses both payloads, builds the header with final offsets,
// assembles the index entries, and produces the complete binary chunk. After
// calling Finish, the encoder cannot be reused.
//
// Returns:
//   - []byte: Complete encoded chunk with header, index entries, and compressed payloads
//   - error: ErrDatasetNotEnded if a dataset was started but not ended,
//     ErrNoDatasetsAdded if no datasets were added, or compression errors
func (e *Encoder) Finish() ([]byte, error) {
	// Finish encoders regardless of error to release pooled buffers
	defer e.stepEncoder.Finish()
	defer e.valEncoder.Finish()

	if e.curDatasetID != 0 {
		return nil, errs.ErrDatasetNotEnded
	}

	if len(e.indexEntries) == 0 {
		return nil, errs.ErrNoDatasetsAdded
	}

	// Clone header to keep the original immutable; all computed fields go on
	// the clone
	finalHeader := e.cloneHeader()

	includeNames := e.collisionTracker != nil && (e.hasCollision || e.forceNames)
	finalHeader.Flag.SetHasDatasetNames(includeNames)

	finalHeader.DatasetCount = uint16(len(e.indexEntries)) //nolint: gosec

	// Compress step and value payloads
	stepPayload, err := e.stepCodec.Compress(e.stepEncoder.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to compress step payload: %w", err)
	}
	valPayload, err := e.valCodec.Compress(e.valEncoder.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to compress value payload: %w", err)
	}

	// Encode the dataset names payload if a collision was detected or names
	// are forced on. In ID mode, collisionTracker is nil and this is skipped.
	var namesPayload []byte
	if includeNames {
		namesPayload, err = ienc.EncodeDatasetNames(e.collisionTracker.GetDatasetNames(), e.engine)
		if err != nil {
			return nil, fmt.Errorf("failed to encode dataset names: %w", err)
		}
	}

	// Section layout: header | index | step payload | value payload | names payload
	indexSize := section.IndexEntrySize * len(e.indexEntries)
	finalHeader.IndexOffset = section.IndexOffsetOffset
	finalHeader.StepPayloadOffset = finalHeader.IndexOffset + uint32(indexSize)            //nolint: gosec
	finalHeader.ValuePayloadOffset = finalHeader.StepPayloadOffset + uint32(len(stepPayload)) //nolint: gosec
	finalHeader.NamePayloadOffset = finalHeader.ValuePayloadOffset + uint32(len(valPayload))  //nolint: gosec

	chunkSize := int(finalHeader.NamePayloadOffset) + len(namesPayload)

	// Allocate an exact-size buffer for the final chunk; no pooled buffer
	// since this is returned directly to the caller
	chunk := make([]byte, chunkSize)
	offset := 0

	offset += copy(chunk[offset:], finalHeader.Bytes())

	for i := range e.indexEntries {
		offset = e.indexEntries[i].WriteToSlice(chunk, offset, e.engine)
	}

	offset += copy(chunk[offset:], stepPayload)
	offset += copy(chunk[offset:], valPayload)
	copy(chunk[offset:], namesPayload)

	return chunk, nil
}
