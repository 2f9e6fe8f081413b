package models

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gpmaplab/epistat/errs"
	"github.com/gpmaplab/epistat/gpmap"
)

func TestFitGlobal(t *testing.T) {
	m := completePairMap(t, []float64{1, 2, 3, 5})

	model, err := FitGlobal(m)
	require.NoError(t, err)

	t.Run("background-averaged coefficients", func(t *testing.T) {
		// beta1 and beta2 average each site's effect over both
		// backgrounds; beta12 matches the double-mutant cycle.
		require.InDeltaSlice(t, []float64{2.75, 1.5, 2.5, 1}, model.Coefficients(), 1e-12)
	})

	t.Run("pairwise term agrees with local", func(t *testing.T) {
		local, err := FitLocal(m)
		require.NoError(t, err)
		require.InDelta(t, local.Coefficients()[3], model.Coefficients()[3], 1e-12)
	})
}

func TestFitGlobalSingleSite(t *testing.T) {
	m, err := gpmap.New("A", []string{"A", "B"}, []float64{1, 3})
	require.NoError(t, err)

	model, err := FitGlobal(m)
	require.NoError(t, err)
	require.InDeltaSlice(t, []float64{2, 2}, model.Coefficients(), 1e-12)
}

func TestFitGlobalConstantPhenotypes(t *testing.T) {
	m := completePairMap(t, []float64{7, 7, 7, 7})

	model, err := FitGlobal(m)
	require.NoError(t, err)

	coef := model.Coefficients()
	require.InDelta(t, 7.0, coef[0], 1e-12)
	for _, c := range coef[1:] {
		require.InDelta(t, 0.0, c, 1e-12)
	}
}

func TestFitGlobalShuffledGenotypeOrder(t *testing.T) {
	ordered := completePairMap(t, []float64{1, 2, 3, 5})
	shuffled, err := gpmap.New("AA",
		[]string{"BB", "AB", "AA", "BA"},
		[]float64{5, 3, 1, 2})
	require.NoError(t, err)

	want, err := FitGlobal(ordered)
	require.NoError(t, err)
	got, err := FitGlobal(shuffled)
	require.NoError(t, err)

	require.InDeltaSlice(t, want.Coefficients(), got.Coefficients(), 1e-12)
}

func TestFitGlobalIncompleteSet(t *testing.T) {
	t.Run("missing genotype", func(t *testing.T) {
		m, err := gpmap.New("AA",
			[]string{"AA", "BA", "AB"},
			[]float64{1, 2, 3})
		require.NoError(t, err)

		_, err = FitGlobal(m)
		require.ErrorIs(t, err, errs.ErrIncompleteGenotypeSet)
	})

	t.Run("duplicate genotype", func(t *testing.T) {
		m, err := gpmap.New("AA",
			[]string{"AA", "BA", "AB", "AB"},
			[]float64{1, 2, 3, 3})
		require.NoError(t, err)

		_, err = FitGlobal(m)
		require.ErrorIs(t, err, errs.ErrIncompleteGenotypeSet)
	})
}

func TestFitGlobalErrorPropagation(t *testing.T) {
	m := completePairMap(t, []float64{1, 2, 3, 5},
		gpmap.WithErrors([]float64{0.1, 0.1, 0.1, 0.1}))

	model, err := FitGlobal(m)
	require.NoError(t, err)

	// Every row of W*H has four entries of magnitude |w|, so each
	// coefficient error is 2*|w|*0.1.
	upper, lower, ok := model.Map().Errors()
	require.True(t, ok)
	require.InDeltaSlice(t, []float64{0.05, 0.1, 0.1, 0.2}, upper, 1e-12)
	require.InDeltaSlice(t, upper, lower, 1e-12)
}
