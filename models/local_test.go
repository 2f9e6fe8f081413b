package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gpmaplab/epistat/errs"
	"github.com/gpmaplab/epistat/gpmap"
)

func completePairMap(t *testing.T, phenotypes []float64, opts ...gpmap.Option) *gpmap.Map {
	t.Helper()

	m, err := gpmap.New("AA",
		[]string{"AA", "BA", "AB", "BB"},
		phenotypes, opts...)
	require.NoError(t, err)

	return m
}

func TestFitLocal(t *testing.T) {
	m := completePairMap(t, []float64{1, 2, 3, 5})

	model, err := FitLocal(m)
	require.NoError(t, err)

	t.Run("coefficients from mutant cycles", func(t *testing.T) {
		// beta0 = y00, beta1 = y10-y00, beta2 = y01-y00,
		// beta12 = y11-y10-y01+y00.
		require.InDeltaSlice(t, []float64{1, 1, 2, 1}, model.Coefficients(), 1e-12)
	})

	t.Run("labels cover every order", func(t *testing.T) {
		require.Len(t, model.Labels(), 4)
		require.Equal(t, 2, model.Order())
	})

	t.Run("reconstruction is exact", func(t *testing.T) {
		require.InDeltaSlice(t, m.Phenotypes(), model.Predict(), 1e-12)
	})

	t.Run("map lookup by key", func(t *testing.T) {
		v, ok := model.Map().GetKey("1,2")
		require.True(t, ok)
		require.InDelta(t, 1.0, v, 1e-12)
	})
}

func TestFitLocalErrorPropagation(t *testing.T) {
	m := completePairMap(t, []float64{1, 2, 3, 5},
		gpmap.WithErrors([]float64{0.1, 0.1, 0.1, 0.1}))

	model, err := FitLocal(m)
	require.NoError(t, err)

	upper, _, err := model.Map().GetOrderErrors(2)
	require.NoError(t, err)
	require.InDelta(t, 0.2, upper["1,2"], 1e-12)

	upper, _, err = model.Map().GetOrderErrors(1)
	require.NoError(t, err)
	require.InDelta(t, 0.1*math.Sqrt2, upper["1"], 1e-12)
	require.InDelta(t, 0.1*math.Sqrt2, upper["2"], 1e-12)
}

func TestFitLocalNotSquare(t *testing.T) {
	m, err := gpmap.New("AA",
		[]string{"AA", "BA", "AB"},
		[]float64{1, 2, 3})
	require.NoError(t, err)

	_, err = FitLocal(m)
	require.ErrorIs(t, err, errs.ErrNotSquare)
}

func TestFitLocalSingular(t *testing.T) {
	// Duplicate genotypes make the square design singular.
	m, err := gpmap.New("A",
		[]string{"A", "A"},
		[]float64{1, 1})
	require.NoError(t, err)

	_, err = FitLocal(m)
	require.ErrorIs(t, err, errs.ErrSingularMatrix)
}
