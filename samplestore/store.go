package samplestore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sync"

	"github.com/gpmaplab/epistat/errs"
	"github.com/gpmaplab/epistat/internal/collision"
	"github.com/gpmaplab/epistat/internal/hash"
	"github.com/gpmaplab/epistat/internal/options"
	"github.com/gpmaplab/epistat/internal/pool"
	"github.com/gpmaplab/epistat/section"
)

// Standard dataset names used by the sampler integration.
const (
	// DatasetSamples holds the posterior coefficient samples; its width is the
	// number of model coefficients.
	DatasetSamples = "samples"

	// DatasetProbabilities holds the per-walker log-probabilities; width 1.
	DatasetProbabilities = "probabilities"
)

// Store file framing constants.
const (
	// storeMagic identifies a sample store file ("EPST").
	storeMagic = uint32(0x54535045)

	// storeVersion is the current store file format version.
	storeVersion = uint16(1)

	// storeHeaderSize is the fixed size of the store file header:
	// magic (4B), version (2B), walker count (2B), 8 reserved bytes.
	storeHeaderSize = 16

	// chunkFrameSize is the uint32 length prefix in front of each chunk.
	chunkFrameSize = 4
)

// StoreConfig holds the chunk encoding configuration a Store applies to every
// appended chunk.
type StoreConfig struct {
	encoderOpts []EncoderOption
}

// StoreOption represents a functional option for configuring a Store.
type StoreOption = options.Option[*StoreConfig]

// WithChunkOptions sets the encoder options applied to every chunk the store
// appends (encodings, compressions, endianness).
func WithChunkOptions(opts ...EncoderOption) StoreOption {
	return options.NoError(func(c *StoreConfig) {
		c.encoderOpts = append(c.encoderOpts, opts...)
	})
}

// datasetMeta records a registered dataset.
type datasetMeta struct {
	name  string
	id    uint64
	width int
}

// chunkRef locates one framed chunk inside the store file.
type chunkRef struct {
	offset int64
	length int
}

// Store is an append-only, chunked, file-backed store for named sample
// datasets.
//
// A store is created with a fixed walker count; every appended batch carries
// one value row per recorded step per dataset, each row WalkerCount×Width
// values. Appends grow the file by one self-describing chunk at a time, so
// the store grows without bound along the step axis and never rewrites
// existing data.
//
// The Store must be closed explicitly with Close; Flush forces buffered
// appends to disk without closing.
//
// The Store is safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	file   *os.File
	path   string
	config StoreConfig

	walkerCount int
	closed      bool

	tracker  *collision.Tracker
	datasets map[string]*datasetMeta
	order    []string

	chunks []chunkRef
}

// Batch holds one append's worth of recorded steps and the per-dataset value
// rows for those steps.
type Batch struct {
	// Steps holds the absolute chain step indices, shared by all datasets in
	// the batch.
	Steps []int64

	// Values maps dataset name to one value row per step; each row must be
	// WalkerCount×Width values for that dataset.
	Values map[string][][]float64
}

// Create creates a new sample store file at the given path.
//
// An existing file at the path is truncated.
//
// Parameters:
//   - path: Store file path
//   - nwalkers: Number of ensemble walkers, fixed for the store's lifetime (1-65535)
//   - opts: Optional chunk encoding configuration
//
// Returns:
//   - *Store: Open store ready for CreateDataset and Append
//   - error: ErrInvalidWalkerCount or file creation errors
func Create(path string, nwalkers int, opts ...StoreOption) (*Store, error) {
	if nwalkers <= 0 || nwalkers > section.MaxWalkerCount {
		return nil, fmt.Errorf("%w: %d (max %d)", errs.ErrInvalidWalkerCount, nwalkers, section.MaxWalkerCount)
	}

	var config StoreConfig
	if err := options.Apply(&config, opts...); err != nil {
		return nil, err
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create store file: %w", err)
	}

	var header [storeHeaderSize]byte
	binary.LittleEndian.PutUint32(header[0:4], storeMagic)
	binary.LittleEndian.PutUint16(header[4:6], storeVersion)
	binary.LittleEndian.PutUint16(header[6:8], uint16(nwalkers)) //nolint: gosec

	if _, err := file.Write(header[:]); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write store header: %w", err)
	}

	return &Store{
		file:        file,
		path:        path,
		config:      config,
		walkerCount: nwalkers,
		tracker:     collision.NewTracker(),
		datasets:    make(map[string]*datasetMeta),
	}, nil
}

// Open opens an existing sample store file for reading and appending.
//
// The dataset registry is rebuilt from the dataset names carried by each
// chunk, so a store reopened after Create/Append/Close sees the same
// datasets and widths.
//
// Returns:
//   - *Store: Open store
//   - error: ErrInvalidMagicNumber, ErrInvalidWalkerCountField, chunk decode
//     errors, or file errors
func Open(path string, opts ...StoreOption) (*Store, error) {
	var config StoreConfig
	if err := options.Apply(&config, opts...); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open store file: %w", err)
	}

	store := &Store{
		file:     file,
		path:     path,
		config:   config,
		tracker:  collision.NewTracker(),
		datasets: make(map[string]*datasetMeta),
	}

	if err := store.load(); err != nil {
		file.Close()
		return nil, err
	}

	return store, nil
}

// load reads the store header and scans the chunk frames, rebuilding the
// dataset registry from each chunk's names payload.
func (s *Store) load() error {
	var header [storeHeaderSize]byte
	if _, err := io.ReadFull(s.file, header[:]); err != nil {
		return fmt.Errorf("failed to read store header: %w", err)
	}

	if binary.LittleEndian.Uint32(header[0:4]) != storeMagic {
		return fmt.Errorf("%w: not a sample store file", errs.ErrInvalidMagicNumber)
	}

	walkerCount := int(binary.LittleEndian.Uint16(header[6:8]))
	if walkerCount == 0 {
		return errs.ErrInvalidWalkerCountField
	}
	s.walkerCount = walkerCount

	offset := int64(storeHeaderSize)
	var frame [chunkFrameSize]byte

	buf := pool.GetStoreBuffer()
	defer pool.PutStoreBuffer(buf)

	for {
		if _, err := io.ReadFull(s.file, frame[:]); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return fmt.Errorf("failed to read chunk frame at offset %d: %w", offset, err)
		}

		length := int(binary.LittleEndian.Uint32(frame[:]))
		buf.Reset()
		buf.ExtendOrGrow(length)
		data := buf.Bytes()
		if _, err := io.ReadFull(s.file, data); err != nil {
			return fmt.Errorf("failed to read chunk at offset %d: %w", offset, err)
		}

		if err := s.registerChunk(data); err != nil {
			return err
		}

		s.chunks = append(s.chunks, chunkRef{offset: offset + chunkFrameSize, length: length})
		offset += chunkFrameSize + int64(length)
	}

	return nil
}

// registerChunk decodes a chunk and merges its datasets into the registry.
func (s *Store) registerChunk(data []byte) error {
	decoder, err := NewDecoder(data)
	if err != nil {
		return err
	}

	chunk, err := decoder.Decode()
	if err != nil {
		return err
	}

	if chunk.WalkerCount() != s.walkerCount {
		return fmt.Errorf("%w: chunk has %d walkers, store has %d",
			errs.ErrWalkerCountMismatch, chunk.WalkerCount(), s.walkerCount)
	}

	names := chunk.DatasetNames()
	if names == nil {
		return fmt.Errorf("%w: store chunk has no dataset names", errs.ErrInvalidDatasetNamesPayload)
	}

	for i, entry := range chunk.entries {
		name := names[i]
		meta, exists := s.datasets[name]
		if !exists {
			if err := s.registerDataset(name, entry.Width); err != nil {
				return err
			}

			continue
		}

		if meta.width != entry.Width {
			return fmt.Errorf("%w: dataset %q has width %d, chunk has %d",
				errs.ErrDatasetWidthMismatch, name, meta.width, entry.Width)
		}
	}

	return nil
}

// registerDataset adds a dataset to the in-memory registry.
func (s *Store) registerDataset(name string, width int) error {
	id := hash.ID(name)
	if err := s.tracker.TrackDataset(name, id); err != nil {
		return err
	}

	s.datasets[name] = &datasetMeta{name: name, id: id, width: width}
	s.order = append(s.order, name)

	return nil
}

// CreateDataset registers a new named dataset with the given width.
//
// The width is the number of values per walker per step and is fixed for the
// dataset's lifetime. Datasets must be registered before they appear in an
// appended Batch.
//
// Returns:
//   - error: ErrStoreClosed, ErrDatasetAlreadyExists, ErrInvalidDatasetName,
//     or ErrDatasetWidthMismatch for a non-positive width
func (s *Store) CreateDataset(name string, width int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errs.ErrStoreClosed
	}

	if width <= 0 || width > math.MaxUint16 {
		return fmt.Errorf("%w: width %d", errs.ErrDatasetWidthMismatch, width)
	}

	if _, exists := s.datasets[name]; exists {
		return fmt.Errorf("%w: %q", errs.ErrDatasetAlreadyExists, name)
	}

	return s.registerDataset(name, width)
}

// Datasets returns the registered dataset names in registration order.
func (s *Store) Datasets() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.order))
	copy(out, s.order)

	return out
}

// WalkerCount returns the store's fixed walker count.
func (s *Store) WalkerCount() int {
	return s.walkerCount
}

// Append encodes the batch as one chunk and appends it to the store file.
//
// Every dataset named in the batch must be registered via CreateDataset, and
// every value row must be WalkerCount×Width values for its dataset. Each
// append grows the file by one chunk; existing chunks are never rewritten.
//
// Returns:
//   - error: ErrStoreClosed, ErrNoStepsAdded for an empty batch,
//     ErrDatasetNotFound for an unregistered dataset, ErrStepCountMismatch,
//     ErrValueCountMismatch, or encoding errors
func (s *Store) Append(batch Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errs.ErrStoreClosed
	}

	if len(batch.Steps) == 0 {
		return errs.ErrNoStepsAdded
	}

	if len(batch.Values) == 0 {
		return errs.ErrNoDatasetsAdded
	}

	for name := range batch.Values {
		if _, exists := s.datasets[name]; !exists {
			return fmt.Errorf("%w: %q", errs.ErrDatasetNotFound, name)
		}
	}

	// Always carry dataset names so Open can rebuild the registry
	opts := make([]EncoderOption, 0, len(s.config.encoderOpts)+1)
	opts = append(opts, s.config.encoderOpts...)
	opts = append(opts, WithDatasetNames(true))

	encoder, err := NewEncoder(batch.Steps[0], s.walkerCount, opts...)
	if err != nil {
		return err
	}

	// Encode in registration order for a stable chunk layout
	for _, name := range s.order {
		rows, ok := batch.Values[name]
		if !ok {
			continue
		}

		meta := s.datasets[name]
		if len(rows) != len(batch.Steps) {
			return fmt.Errorf("%w: dataset %q has %d rows for %d steps",
				errs.ErrStepCountMismatch, name, len(rows), len(batch.Steps))
		}

		if err := encoder.StartDataset(name, len(batch.Steps), meta.width); err != nil {
			return err
		}
		if err := encoder.AddSteps(batch.Steps, rows); err != nil {
			return err
		}
		if err := encoder.EndDataset(); err != nil {
			return err
		}
	}

	data, err := encoder.Finish()
	if err != nil {
		return err
	}

	return s.appendChunk(data)
}

// appendChunk writes one framed chunk at the end of the store file.
func (s *Store) appendChunk(data []byte) error {
	end, err := s.file.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("failed to seek store file: %w", err)
	}

	var frame [chunkFrameSize]byte
	binary.LittleEndian.PutUint32(frame[:], uint32(len(data))) //nolint: gosec

	if _, err := s.file.Write(frame[:]); err != nil {
		return fmt.Errorf("failed to write chunk frame: %w", err)
	}
	if _, err := s.file.Write(data); err != nil {
		return fmt.Errorf("failed to write chunk: %w", err)
	}

	s.chunks = append(s.chunks, chunkRef{offset: end + chunkFrameSize, length: len(data)})

	return nil
}

// readChunk reads and decodes the chunk at the given reference into buf.
// The returned Chunk references buf's memory and must not outlive it.
func (s *Store) readChunk(ref chunkRef, buf *pool.ByteBuffer) (Chunk, error) {
	buf.Reset()
	buf.ExtendOrGrow(ref.length)
	data := buf.Bytes()
	if _, err := s.file.ReadAt(data, ref.offset); err != nil {
		return Chunk{}, fmt.Errorf("failed to read chunk at offset %d: %w", ref.offset, err)
	}

	decoder, err := NewDecoder(data)
	if err != nil {
		return Chunk{}, err
	}

	return decoder.Decode()
}

// Read materializes the named dataset across all appended chunks.
//
// Steps and value rows are concatenated in append order; chunks that do not
// carry the dataset are skipped.
//
// Returns:
//   - *Dataset: All recorded steps and value rows for the dataset
//   - error: ErrStoreClosed, ErrDatasetNotFound, ErrEmptyStore, or chunk
//     decode errors
func (s *Store) Read(name string) (*Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.read(name)
}

// read is the lock-free implementation of Read, shared with MostProbable.
func (s *Store) read(name string) (*Dataset, error) {
	if s.closed {
		return nil, errs.ErrStoreClosed
	}

	meta, exists := s.datasets[name]
	if !exists {
		return nil, fmt.Errorf("%w: %q", errs.ErrDatasetNotFound, name)
	}

	if len(s.chunks) == 0 {
		return nil, errs.ErrEmptyStore
	}

	result := &Dataset{
		ID:    meta.id,
		Name:  name,
		Width: meta.width,
	}

	buf := pool.GetStoreBuffer()
	defer pool.PutStoreBuffer(buf)

	for _, ref := range s.chunks {
		chunk, err := s.readChunk(ref, buf)
		if err != nil {
			return nil, err
		}

		// Match by name: chunk names disambiguate xxhash collisions
		names := chunk.DatasetNames()
		for i, entry := range chunk.entries {
			if names[i] != name {
				continue
			}

			for step := range chunk.Steps(entry.DatasetID) {
				result.Steps = append(result.Steps, step)
			}
			for row := range chunk.Values(entry.DatasetID) {
				result.Values = append(result.Values, row)
			}

			break
		}
	}

	if len(result.Steps) == 0 {
		return nil, errs.ErrEmptyStore
	}

	return result, nil
}

// MostProbable returns the recorded chain step, walker index and coefficient
// vector of the sample with the highest log-probability.
//
// It scans the "probabilities" dataset for the maximum entry and joins it
// with the "samples" dataset at the same recorded step.
//
// Returns:
//   - step: Absolute chain step index of the most probable sample
//   - walker: Walker index of the most probable sample
//   - theta: Coefficient vector of that walker at that step
//   - err: ErrStoreClosed, ErrEmptyStore, ErrDatasetNotFound if the standard
//     datasets are missing, or ErrStepCountMismatch if the datasets disagree
func (s *Store) MostProbable() (step int64, walker int, theta []float64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	probs, err := s.read(DatasetProbabilities)
	if err != nil {
		return 0, 0, nil, err
	}

	samples, err := s.read(DatasetSamples)
	if err != nil {
		return 0, 0, nil, err
	}

	if len(probs.Steps) != len(samples.Steps) {
		return 0, 0, nil, fmt.Errorf("%w: %d probability steps, %d sample steps",
			errs.ErrStepCountMismatch, len(probs.Steps), len(samples.Steps))
	}

	bestRow, bestWalker := 0, 0
	bestProb := math.Inf(-1)
	for row, values := range probs.Values {
		for w := 0; w < s.walkerCount; w++ {
			if values[w*probs.Width] > bestProb {
				bestProb = values[w*probs.Width]
				bestRow = row
				bestWalker = w
			}
		}
	}

	width := samples.Width
	row := samples.Values[bestRow]
	theta = make([]float64, width)
	copy(theta, row[bestWalker*width:(bestWalker+1)*width])

	return probs.Steps[bestRow], bestWalker, theta, nil
}

// Flush forces buffered appends to stable storage.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errs.ErrStoreClosed
	}

	return s.file.Sync()
}

// Close flushes and closes the store file. Further operations return
// ErrStoreClosed. Closing an already closed store is a no-op.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true

	if err := s.file.Sync(); err != nil {
		s.file.Close()
		return err
	}

	return s.file.Close()
}
