// Package errs defines the sentinel errors shared across the epistat
// packages. Callers match them with errors.Is; producing code wraps them
// with fmt.Errorf("%w: ...") to attach context.
package errs

import "errors"

// Genotype-phenotype map and model errors.
var (
	// ErrNoGenotypes indicates an empty genotype set was provided.
	ErrNoGenotypes = errors.New("no genotypes provided")

	// ErrGenotypeLengthMismatch indicates a genotype whose length differs
	// from the wildtype reference.
	ErrGenotypeLengthMismatch = errors.New("genotype length mismatch")

	// ErrDimensionMismatch indicates paired slices (genotypes/phenotypes,
	// phenotypes/errors, rows/labels) of different lengths.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrNonPositivePhenotype indicates a phenotype that cannot be
	// log-transformed because it is zero or negative.
	ErrNonPositivePhenotype = errors.New("non-positive phenotype for log transform")

	// ErrOrderOutOfRange indicates an interaction order outside [1, length]
	// or above the configured model order.
	ErrOrderOutOfRange = errors.New("interaction order out of range")

	// ErrInvalidLabel indicates a malformed interaction label.
	ErrInvalidLabel = errors.New("invalid interaction label")

	// ErrLabelCountMismatch indicates a value or error slice whose length
	// differs from the number of interaction labels.
	ErrLabelCountMismatch = errors.New("label count mismatch")

	// ErrNotSquare indicates a design matrix that must be square but is not.
	ErrNotSquare = errors.New("design matrix is not square")

	// ErrSingularMatrix indicates a design matrix that cannot be inverted.
	ErrSingularMatrix = errors.New("singular design matrix")

	// ErrIncompleteGenotypeSet indicates a Hadamard decomposition over a
	// genotype set that does not cover all 2^L binary genotypes.
	ErrIncompleteGenotypeSet = errors.New("incomplete genotype set")

	// ErrInvalidSource indicates an unrecognized X or y source selector.
	ErrInvalidSource = errors.New("invalid source selector")

	// ErrSourceMismatch indicates X and y source selectors that do not agree.
	ErrSourceMismatch = errors.New("mismatched X/y sources")

	// ErrNotFitted indicates a model operation that requires a prior
	// successful Fit call.
	ErrNotFitted = errors.New("model is not fitted")

	// ErrInvalidThetas indicates a coefficient vector of the wrong length.
	ErrInvalidThetas = errors.New("invalid theta vector")

	// ErrDidNotConverge indicates an iterative solver that exhausted its
	// iteration budget without reaching tolerance.
	ErrDidNotConverge = errors.New("solver did not converge")

	// ErrNoPhenotypeErrors indicates a likelihood evaluation that needs
	// measurement errors on a map that carries none.
	ErrNoPhenotypeErrors = errors.New("map has no phenotype errors")
)

// Sampler errors.
var (
	// ErrInvalidWalkerCount indicates a walker count outside the valid range.
	ErrInvalidWalkerCount = errors.New("invalid walker count")

	// ErrInvalidStart indicates a starting ensemble whose shape does not
	// match the configured walker count or parameter dimension.
	ErrInvalidStart = errors.New("invalid starting ensemble")

	// ErrEmptyChain indicates an operation on a chain with no recorded steps.
	ErrEmptyChain = errors.New("empty chain")
)

// Chunk encoding state errors.
var (
	// ErrDatasetAlreadyStarted indicates StartDataset was called while a
	// previous dataset is still open, or the same dataset was started twice.
	ErrDatasetAlreadyStarted = errors.New("dataset already started")

	// ErrNoDatasetStarted indicates AddStep/EndDataset without StartDataset.
	ErrNoDatasetStarted = errors.New("no dataset started")

	// ErrDatasetNotEnded indicates Finish was called with an open dataset.
	ErrDatasetNotEnded = errors.New("dataset not ended")

	// ErrNoStepsAdded indicates EndDataset with no recorded steps.
	ErrNoStepsAdded = errors.New("no steps added")

	// ErrNoDatasetsAdded indicates Finish on an encoder with no datasets.
	ErrNoDatasetsAdded = errors.New("no datasets added")

	// ErrStepCountMismatch indicates the number of added steps differs from
	// the count claimed at StartDataset.
	ErrStepCountMismatch = errors.New("step count mismatch")

	// ErrValueCountMismatch indicates a value row whose length differs from
	// walkers * width.
	ErrValueCountMismatch = errors.New("value count mismatch")

	// ErrTooManySteps indicates a dataset exceeding the per-chunk step limit.
	ErrTooManySteps = errors.New("too many steps")

	// ErrDatasetCountExceeded indicates a chunk exceeding the dataset limit.
	ErrDatasetCountExceeded = errors.New("dataset count exceeded")

	// ErrMixedIdentifierMode indicates mixing StartDataset (by name) and
	// StartDatasetID (by hash) within one encoder.
	ErrMixedIdentifierMode = errors.New("mixed dataset identifier modes")

	// ErrHashCollision indicates two different dataset names hashing to the
	// same 64-bit ID in a context that cannot store names.
	ErrHashCollision = errors.New("dataset hash collision")

	// ErrHashMismatch indicates a dataset names payload whose hashes do not
	// match the index entries.
	ErrHashMismatch = errors.New("dataset hash mismatch")

	// ErrOffsetOutOfRange indicates a payload section too large for the
	// delta-encoded uint16 offsets in index entries.
	ErrOffsetOutOfRange = errors.New("payload offset out of range")
)

// Chunk decoding and format errors.
var (
	// ErrInvalidHeaderSize indicates a header blob smaller than HeaderSize.
	ErrInvalidHeaderSize = errors.New("invalid header size")

	// ErrInvalidHeaderFlags indicates unparsable or unsupported flag bits.
	ErrInvalidHeaderFlags = errors.New("invalid header flags")

	// ErrInvalidMagicNumber indicates a flag word without the chunk magic.
	ErrInvalidMagicNumber = errors.New("invalid magic number")

	// ErrInvalidDatasetCount indicates a dataset count of zero or beyond the
	// per-chunk limit.
	ErrInvalidDatasetCount = errors.New("invalid dataset count")

	// ErrInvalidWalkerCountField indicates a zero walker count in the header.
	ErrInvalidWalkerCountField = errors.New("invalid walker count field")

	// ErrInvalidIndexEntrySize indicates an index section whose size is not a
	// multiple of the entry size.
	ErrInvalidIndexEntrySize = errors.New("invalid index entry size")

	// ErrInvalidIndexOffsets indicates index offsets that fall outside the
	// chunk or overlap preceding sections.
	ErrInvalidIndexOffsets = errors.New("invalid index offsets")

	// ErrInvalidStepPayloadOffset indicates a step payload offset outside the
	// chunk bounds.
	ErrInvalidStepPayloadOffset = errors.New("invalid step payload offset")

	// ErrInvalidValuePayloadOffset indicates a value payload offset outside
	// the chunk bounds.
	ErrInvalidValuePayloadOffset = errors.New("invalid value payload offset")

	// ErrInvalidNamePayloadOffset indicates a names payload offset outside
	// the chunk bounds.
	ErrInvalidNamePayloadOffset = errors.New("invalid name payload offset")

	// ErrInvalidDatasetID indicates a zero dataset ID in an index entry.
	ErrInvalidDatasetID = errors.New("invalid dataset ID")

	// ErrInvalidDatasetName indicates an empty or oversized dataset name.
	ErrInvalidDatasetName = errors.New("invalid dataset name")

	// ErrInvalidDatasetNamesCount indicates a names payload whose count does
	// not fit uint16 or disagrees with the index.
	ErrInvalidDatasetNamesCount = errors.New("invalid dataset names count")

	// ErrInvalidDatasetNamesPayload indicates a truncated or malformed
	// dataset names payload.
	ErrInvalidDatasetNamesPayload = errors.New("invalid dataset names payload")
)

// Store errors.
var (
	// ErrDatasetAlreadyExists indicates CreateDataset with a name already
	// registered in the store.
	ErrDatasetAlreadyExists = errors.New("dataset already exists")

	// ErrDatasetNotFound indicates a read of an unregistered dataset.
	ErrDatasetNotFound = errors.New("dataset not found")

	// ErrDatasetWidthMismatch indicates appended values whose width differs
	// from the width declared at CreateDataset.
	ErrDatasetWidthMismatch = errors.New("dataset width mismatch")

	// ErrWalkerCountMismatch indicates appended values whose walker count
	// differs from the store's configured walker count.
	ErrWalkerCountMismatch = errors.New("walker count mismatch")

	// ErrStoreClosed indicates an operation on a closed store.
	ErrStoreClosed = errors.New("store is closed")

	// ErrEmptyStore indicates a query on a store with no appended chunks.
	ErrEmptyStore = errors.New("store has no samples")
)
