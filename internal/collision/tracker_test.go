package collision

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gpmaplab/epistat/errs"
	"github.com/gpmaplab/epistat/internal/hash"
)

func TestTracker_TrackDatasetID(t *testing.T) {
	tracker := NewTracker()

	id := hash.ID("samples")
	require.NoError(t, tracker.TrackDatasetID(id))

	// Same ID again is a collision that cannot be resolved without names.
	err := tracker.TrackDatasetID(id)
	require.ErrorIs(t, err, errs.ErrHashCollision)

	// IDs are tracked without names, so the ordered name list stays empty.
	require.Empty(t, tracker.GetDatasetNames())
	require.False(t, tracker.HasCollision())
}

func TestTracker_TrackDataset(t *testing.T) {
	tracker := NewTracker()

	require.NoError(t, tracker.TrackDataset("samples", hash.ID("samples")))
	require.NoError(t, tracker.TrackDataset("probabilities", hash.ID("probabilities")))

	require.Equal(t, 2, tracker.Count())
	require.Equal(t, []string{"samples", "probabilities"}, tracker.GetDatasetNames())
	require.False(t, tracker.HasCollision())
}

func TestTracker_TrackDataset_EmptyName(t *testing.T) {
	tracker := NewTracker()

	err := tracker.TrackDataset("", hash.ID(""))
	require.ErrorIs(t, err, errs.ErrInvalidDatasetName)
	require.Equal(t, 0, tracker.Count())
}

func TestTracker_TrackDataset_Duplicate(t *testing.T) {
	tracker := NewTracker()

	require.NoError(t, tracker.TrackDataset("samples", hash.ID("samples")))

	err := tracker.TrackDataset("samples", hash.ID("samples"))
	require.ErrorIs(t, err, errs.ErrDatasetAlreadyStarted)
	require.Equal(t, 1, tracker.Count())
}

func TestTracker_TrackDataset_Collision(t *testing.T) {
	tracker := NewTracker()

	// Different names forced onto the same hash: not an error, but the
	// collision flag must be set so the encoder stores the names payload.
	require.NoError(t, tracker.TrackDataset("samples", 42))
	require.NoError(t, tracker.TrackDataset("probabilities", 42))

	require.True(t, tracker.HasCollision())
	require.Equal(t, []string{"samples", "probabilities"}, tracker.GetDatasetNames())
}

func TestTracker_Reset(t *testing.T) {
	tracker := NewTracker()

	require.NoError(t, tracker.TrackDataset("samples", 42))
	require.NoError(t, tracker.TrackDataset("probabilities", 42))
	require.True(t, tracker.HasCollision())

	tracker.Reset()

	require.Equal(t, 0, tracker.Count())
	require.False(t, tracker.HasCollision())
	require.Empty(t, tracker.GetDatasetNames())

	// Names freed by Reset can be tracked again without errors.
	require.NoError(t, tracker.TrackDataset("samples", hash.ID("samples")))
	require.Equal(t, 1, tracker.Count())
}
