package gpmap

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gpmaplab/epistat/errs"
)

func TestNew(t *testing.T) {
	m, err := New("AV",
		[]string{"AV", "TV", "AC", "TC"},
		[]float64{1.0, 1.2, 0.9, 1.8},
	)
	require.NoError(t, err)

	require.Equal(t, 4, m.Len())
	require.Equal(t, 2, m.Length())
	require.Equal(t, "AV", m.Wildtype())
	require.Equal(t, []string{"00", "10", "01", "11"}, m.Binary())
	require.Equal(t, []float64{1.0, 1.2, 0.9, 1.8}, m.Phenotypes())
	require.False(t, m.LogTransformed())

	_, _, ok := m.Errors()
	require.False(t, ok)
}

func TestNew_Validation(t *testing.T) {
	t.Run("no genotypes", func(t *testing.T) {
		_, err := New("AV", nil, nil)
		require.ErrorIs(t, err, errs.ErrNoGenotypes)
	})

	t.Run("genotype length mismatch", func(t *testing.T) {
		_, err := New("AV", []string{"AVT"}, []float64{1.0})
		require.ErrorIs(t, err, errs.ErrGenotypeLengthMismatch)
	})

	t.Run("phenotype count mismatch", func(t *testing.T) {
		_, err := New("AV", []string{"AV", "TV"}, []float64{1.0})
		require.ErrorIs(t, err, errs.ErrDimensionMismatch)
	})

	t.Run("error count mismatch", func(t *testing.T) {
		_, err := New("AV", []string{"AV", "TV"}, []float64{1.0, 1.2},
			WithErrors([]float64{0.1}))
		require.ErrorIs(t, err, errs.ErrDimensionMismatch)
	})
}

func TestNew_SymmetricErrors(t *testing.T) {
	m, err := New("AV",
		[]string{"AV", "TV"},
		[]float64{1.0, 1.2},
		WithErrors([]float64{0.1, 0.2}),
	)
	require.NoError(t, err)

	upper, lower, ok := m.Errors()
	require.True(t, ok)
	require.Equal(t, []float64{0.1, 0.2}, upper)
	require.Equal(t, []float64{0.1, 0.2}, lower)
}

func TestNew_AsymmetricErrors(t *testing.T) {
	m, err := New("AV",
		[]string{"AV", "TV"},
		[]float64{1.0, 1.2},
		WithAsymmetricErrors([]float64{0.3, 0.4}, []float64{0.1, 0.2}),
	)
	require.NoError(t, err)

	upper, lower, ok := m.Errors()
	require.True(t, ok)
	require.Equal(t, []float64{0.3, 0.4}, upper)
	require.Equal(t, []float64{0.1, 0.2}, lower)
}

func TestNew_LogTransform(t *testing.T) {
	m, err := New("AV",
		[]string{"AV", "TV"},
		[]float64{1.0, 100.0},
		WithErrors([]float64{0.1, 10.0}),
		WithLogTransform(10),
	)
	require.NoError(t, err)
	require.True(t, m.LogTransformed())
	require.Equal(t, 10.0, m.LogBase())

	phenotypes := m.Phenotypes()
	require.InDelta(t, 0.0, phenotypes[0], 1e-12)
	require.InDelta(t, 2.0, phenotypes[1], 1e-12)

	// Each bound propagates independently: upper = log(y+e) - log(y),
	// lower = log(y) - log(y-e).
	upper, lower, ok := m.Errors()
	require.True(t, ok)
	require.InDelta(t, math.Log10(1.1), upper[0], 1e-12)
	require.InDelta(t, -math.Log10(0.9), lower[0], 1e-12)
	require.InDelta(t, math.Log10(110)-2.0, upper[1], 1e-12)
	require.InDelta(t, 2.0-math.Log10(90), lower[1], 1e-12)
}

func TestNew_LogTransform_NonPositive(t *testing.T) {
	_, err := New("AV", []string{"AV", "TV"}, []float64{1.0, 0.0},
		WithLogTransform(10))
	require.ErrorIs(t, err, errs.ErrNonPositivePhenotype)
}

func TestNew_LogTransform_LowerBoundAtZero(t *testing.T) {
	// A lower bound reaching zero has no finite log-scale image.
	m, err := New("AV", []string{"AV"}, []float64{1.0},
		WithErrors([]float64{1.0}),
		WithLogTransform(10),
	)
	require.NoError(t, err)

	_, lower, ok := m.Errors()
	require.True(t, ok)
	require.True(t, math.IsInf(lower[0], 1))
}

func TestNew_LogTransform_InvalidBase(t *testing.T) {
	_, err := New("AV", []string{"AV"}, []float64{1.0}, WithLogTransform(1))
	require.Error(t, err)
}

func TestNew_ClonesInputs(t *testing.T) {
	genotypes := []string{"AV", "TV"}
	phenotypes := []float64{1.0, 1.2}

	m, err := New("AV", genotypes, phenotypes)
	require.NoError(t, err)

	phenotypes[0] = 99.0
	genotypes[0] = "XX"
	require.Equal(t, []float64{1.0, 1.2}, m.Phenotypes())
	require.Equal(t, []string{"AV", "TV"}, m.Genotypes())
}
