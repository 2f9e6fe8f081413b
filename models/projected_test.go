package models

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gpmaplab/epistat/errs"
	"github.com/gpmaplab/epistat/gpmap"
)

func TestFitProjectedFullOrder(t *testing.T) {
	m := completePairMap(t, []float64{1, 2, 3, 5})

	model, err := FitProjected(m, 2)
	require.NoError(t, err)

	// At full order the projection is the exact decomposition.
	require.InDeltaSlice(t, []float64{1, 1, 2, 1}, model.Coefficients(), 1e-10)
	require.InDelta(t, 1.0, model.Score(), 1e-10)
	require.InDeltaSlice(t, m.Phenotypes(), model.Predict(), 1e-10)
}

func TestFitProjectedTruncated(t *testing.T) {
	t.Run("additive map fits exactly at order one", func(t *testing.T) {
		m := completePairMap(t, []float64{0, 1, 2, 3})

		model, err := FitProjected(m, 1)
		require.NoError(t, err)
		require.Len(t, model.Coefficients(), 3)
		require.Equal(t, 1, model.Order())
		require.InDeltaSlice(t, []float64{0, 1, 2}, model.Coefficients(), 1e-10)
		require.InDelta(t, 1.0, model.Score(), 1e-10)
	})

	t.Run("epistatic map loses fit quality at order one", func(t *testing.T) {
		m := completePairMap(t, []float64{1, 2, 3, 9})

		model, err := FitProjected(m, 1)
		require.NoError(t, err)
		require.Less(t, model.Score(), 1.0)
	})
}

func TestFitProjectedOrderOutOfRange(t *testing.T) {
	m := completePairMap(t, []float64{1, 2, 3, 5})

	_, err := FitProjected(m, 3)
	require.ErrorIs(t, err, errs.ErrOrderOutOfRange)
}

func TestFitProjectedErrorPropagation(t *testing.T) {
	m := completePairMap(t, []float64{0, 1, 2, 3},
		gpmap.WithErrors([]float64{0.1, 0.1, 0.1, 0.1}))

	model, err := FitProjected(m, 1)
	require.NoError(t, err)

	upper, lower, ok := model.Map().Errors()
	require.True(t, ok)
	require.Len(t, upper, 3)
	for i := range upper {
		require.Greater(t, upper[i], 0.0)
		require.InDelta(t, upper[i], lower[i], 1e-12)
	}
}
