package collision

import (
	"github.com/gpmaplab/epistat/errs"
)

// Tracker tracks dataset names and detects hash collisions during encoding.
// It maintains a map of hash-to-name mappings and an ordered list of names
// for payload encoding when collisions are detected.
type Tracker struct {
	datasetNames     map[uint64]string // Hash → name mapping for collision detection
	datasetNamesList []string          // Ordered list for payload encoding
	hasCollision     bool              // Whether a collision has been detected
}

// NewTracker creates a new collision tracker.
func NewTracker() *Tracker {
	return &Tracker{
		datasetNames:     make(map[uint64]string),
		datasetNamesList: make([]string, 0),
		hasCollision:     false,
	}
}

// TrackDatasetID tracks a dataset ID and checks for collisions.
// This is used when the caller provides the hash directly (StartDatasetID).
// Returns error if the hash was already used - this indicates a collision
// that CANNOT be handled automatically since we don't have dataset names.
func (t *Tracker) TrackDatasetID(hash uint64) error {
	// Check if this hash was already used
	if _, exists := t.datasetNames[hash]; exists {
		// Collision detected - cannot handle without dataset name
		return errs.ErrHashCollision
	}

	// Track the hash with empty name (we don't have the name)
	t.datasetNames[hash] = ""

	return nil
}

// TrackDataset tracks a dataset name with its hash.
// This is used when the caller provides the name (StartDataset).
// Returns error if:
// - The dataset name is empty (ErrInvalidDatasetName)
// - The same dataset name is added twice (ErrDatasetAlreadyStarted)
//
// Note: Hash collisions (different names, same hash) are NOT errors here.
// Instead, the collision flag is set and dataset names will be stored in the chunk.
func (t *Tracker) TrackDataset(name string, hash uint64) error {
	if name == "" {
		return errs.ErrInvalidDatasetName
	}

	// Check for collision: different name, same hash
	if existingName, exists := t.datasetNames[hash]; exists {
		if existingName != name {
			// Hash collision detected - set flag but don't return error
			// We can handle this by storing dataset names in the chunk
			t.hasCollision = true
		}
		if existingName == name {
			// Same name, same hash - duplicate dataset
			return errs.ErrDatasetAlreadyStarted
		}
	}

	// Track the dataset
	t.datasetNames[hash] = name
	t.datasetNamesList = append(t.datasetNamesList, name)

	return nil
}

// HasCollision returns true if a collision has been detected.
func (t *Tracker) HasCollision() bool {
	return t.hasCollision
}

// GetDatasetNames returns the ordered list of dataset names.
// The order matches the order in which TrackDataset was called.
func (t *Tracker) GetDatasetNames() []string {
	return t.datasetNamesList
}

// Count returns the number of tracked datasets.
func (t *Tracker) Count() int {
	return len(t.datasetNamesList)
}

// Reset clears all tracked datasets and collision state.
// This allows reusing the tracker for encoding a new chunk.
func (t *Tracker) Reset() {
	// Clear maps but preserve capacity to avoid allocations
	for k := range t.datasetNames {
		delete(t.datasetNames, k)
	}
	t.datasetNamesList = t.datasetNamesList[:0]
	t.hasCollision = false
}
