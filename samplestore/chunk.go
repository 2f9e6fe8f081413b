package samplestore

import (
	"iter"

	"github.com/gpmaplab/epistat/encoding"
	"github.com/gpmaplab/epistat/internal/hash"
	"github.com/gpmaplab/epistat/section"
)

// Chunk represents a decoded sample chunk: a set of datasets, each carrying
// recorded chain step indices and step-major sample values for every walker.
//
// A Chunk is immutable and safe for concurrent reads.
type Chunk struct {
	startStep   int64
	walkerCount int

	stepDec encoding.ColumnarDecoder[int64]
	valDec  encoding.ColumnarDecoder[float64]

	entries []section.IndexEntry         // in chunk index order
	byID    map[uint64]section.IndexEntry
	names   []string // parallel to entries, nil when the chunk has no names payload

	stepPayload []byte
	valPayload  []byte
}

// Dataset is a fully materialized dataset: all recorded steps and their
// step-major value rows decoded into memory.
type Dataset struct {
	// ID is the 64-bit dataset identifier (xxHash64 of the name in name mode).
	ID uint64
	// Name is the dataset name, empty when the chunk carries no names payload.
	Name string
	// Width is the number of values per walker per step.
	Width int
	// Steps holds the absolute chain step indices, in recording order.
	Steps []int64
	// Values holds one row per recorded step; each row is WalkerCount×Width
	// values, walker 0's values first.
	Values [][]float64
}

// StartStep returns the absolute chain step index of the first sample in the chunk.
func (c Chunk) StartStep() int64 {
	return c.startStep
}

// WalkerCount returns the number of ensemble walkers per recorded step.
func (c Chunk) WalkerCount() int {
	return c.walkerCount
}

// DatasetCount returns the number of datasets in the chunk.
func (c Chunk) DatasetCount() int {
	return len(c.entries)
}

// DatasetIDs returns the dataset IDs in chunk index order.
func (c Chunk) DatasetIDs() []uint64 {
	ids := make([]uint64, len(c.entries))
	for i, entry := range c.entries {
		ids[i] = entry.DatasetID
	}

	return ids
}

// DatasetNames returns the dataset names in chunk index order.
// Returns nil if the chunk does not carry a names payload.
func (c Chunk) DatasetNames() []string {
	return c.names
}

// HasDataset checks if the chunk contains the given dataset ID.
func (c Chunk) HasDataset(datasetID uint64) bool {
	_, ok := c.byID[datasetID]
	return ok
}

// HasDatasetName checks if the chunk contains a dataset with the given name.
// When no names payload is present, the name is hashed and looked up by ID.
func (c Chunk) HasDatasetName(name string) bool {
	if c.names == nil {
		return c.HasDataset(hash.ID(name))
	}

	for _, n := range c.names {
		if n == name {
			return true
		}
	}

	return false
}

// Len returns the number of recorded steps for the given dataset ID.
// If the dataset does not exist, it returns 0.
func (c Chunk) Len(datasetID uint64) int {
	entry, ok := c.byID[datasetID]
	if !ok {
		return 0
	}

	return entry.StepCount
}

// Width returns the number of values per walker per step for the given
// dataset ID, or 0 if the dataset does not exist.
func (c Chunk) Width(datasetID uint64) int {
	entry, ok := c.byID[datasetID]
	if !ok {
		return 0
	}

	return entry.Width
}

// Steps returns an iterator over the recorded chain step indices for the
// given dataset ID. The iterator yields nothing if the dataset does not exist.
func (c Chunk) Steps(datasetID uint64) iter.Seq[int64] {
	entry, ok := c.byID[datasetID]
	if !ok {
		return func(yield func(int64) bool) {}
	}

	data := c.stepPayload[entry.StepOffset : entry.StepOffset+entry.StepLength]

	return c.stepDec.All(data, entry.StepCount)
}

// Values returns an iterator over the per-step value rows for the given
// dataset ID. Each yielded row is a fresh WalkerCount×Width slice the caller
// may keep. The iterator yields nothing if the dataset does not exist.
func (c Chunk) Values(datasetID uint64) iter.Seq[[]float64] {
	entry, ok := c.byID[datasetID]
	if !ok {
		return func(yield func([]float64) bool) {}
	}

	data := c.valPayload[entry.ValueOffset : entry.ValueOffset+entry.ValueLength]
	rowLen := c.walkerCount * entry.Width
	total := entry.StepCount * rowLen

	return func(yield func([]float64) bool) {
		row := make([]float64, 0, rowLen)
		for v := range c.valDec.All(data, total) {
			row = append(row, v)
			if len(row) == rowLen {
				if !yield(row) {
					return
				}
				row = make([]float64, 0, rowLen)
			}
		}
	}
}

// StepAt returns the recorded chain step index at the given position for the
// given dataset ID. Returns false if the dataset does not exist or the index
// is out of range.
func (c Chunk) StepAt(datasetID uint64, index int) (int64, bool) {
	entry, ok := c.byID[datasetID]
	if !ok {
		return 0, false
	}

	data := c.stepPayload[entry.StepOffset : entry.StepOffset+entry.StepLength]

	return c.stepDec.At(data, index, entry.StepCount)
}

// ValuesAt returns the value row at the given step position for the given
// dataset ID. The returned row is a fresh WalkerCount×Width slice. Returns
// false if the dataset does not exist or the index is out of range.
func (c Chunk) ValuesAt(datasetID uint64, index int) ([]float64, bool) {
	entry, ok := c.byID[datasetID]
	if !ok {
		return nil, false
	}

	if index < 0 || index >= entry.StepCount {
		return nil, false
	}

	data := c.valPayload[entry.ValueOffset : entry.ValueOffset+entry.ValueLength]
	rowLen := c.walkerCount * entry.Width
	total := entry.StepCount * rowLen

	row := make([]float64, 0, rowLen)
	pos := 0
	start := index * rowLen
	for v := range c.valDec.All(data, total) {
		if pos >= start {
			row = append(row, v)
			if len(row) == rowLen {
				return row, true
			}
		}
		pos++
	}

	return nil, false
}

// Materialize decodes every dataset in the chunk into memory.
// Datasets are returned in chunk index order with names populated when the
// chunk carries a names payload.
func (c Chunk) Materialize() []Dataset {
	datasets := make([]Dataset, len(c.entries))
	for i, entry := range c.entries {
		ds := Dataset{
			ID:     entry.DatasetID,
			Width:  entry.Width,
			Steps:  make([]int64, 0, entry.StepCount),
			Values: make([][]float64, 0, entry.StepCount),
		}
		if c.names != nil {
			ds.Name = c.names[i]
		}

		for step := range c.Steps(entry.DatasetID) {
			ds.Steps = append(ds.Steps, step)
		}
		for row := range c.Values(entry.DatasetID) {
			ds.Values = append(ds.Values, row)
		}

		datasets[i] = ds
	}

	return datasets
}
