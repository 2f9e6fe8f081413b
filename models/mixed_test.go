package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/gpmaplab/epistat/errs"
	"github.com/gpmaplab/epistat/gpmap"
)

// deadAliveMap has two genotypes below the 0.1 viability threshold,
// separated from the living ones by the second site.
func deadAliveMap(t *testing.T, opts ...gpmap.Option) *gpmap.Map {
	t.Helper()

	m, err := gpmap.New("AA",
		[]string{"AA", "BA", "AB", "BB"},
		[]float64{0.01, 0.02, 1.0, 1.5}, opts...)
	require.NoError(t, err)

	return m
}

func fitDeadAlive(t *testing.T, opts ...gpmap.Option) *Mixed {
	t.Helper()

	mixed, err := NewMixed(2, 0.1, WithModelType("local"), WithLinearModel())
	require.NoError(t, err)
	require.NoError(t, mixed.AttachMap(deadAliveMap(t, opts...)))
	require.NoError(t, mixed.Fit(Observed(), Observed(), WithRidge(0.1)))

	return mixed
}

func TestMixedFit(t *testing.T) {
	mixed := fitDeadAlive(t)

	t.Run("classifier separates dead from alive", func(t *testing.T) {
		require.Equal(t, []float64{0, 0, 1, 1}, mixed.Classes())
	})

	t.Run("quantitative model sees only living rows", func(t *testing.T) {
		xfit, ok := mixed.Designs().Get("fit")
		require.True(t, ok)
		rows, cols := xfit.Dims()
		require.Equal(t, 2, rows)
		require.Equal(t, 4, cols)
	})

	t.Run("theta layout is classifier first", func(t *testing.T) {
		thetas := mixed.Thetas()
		nclf := len(mixed.Classifier().Coef())
		require.Len(t, thetas, nclf+len(mixed.Model().Thetas()))
		require.Equal(t, mixed.Classifier().Coef(), thetas[:nclf])
	})
}

func TestMixedPredict(t *testing.T) {
	mixed := fitDeadAlive(t)

	t.Run("dead rows forced to zero", func(t *testing.T) {
		got, err := mixed.Predict(Observed())
		require.NoError(t, err)
		require.InDeltaSlice(t, []float64{0, 0, 1.0, 1.5}, got, 1e-10)
	})

	t.Run("predict design is cached", func(t *testing.T) {
		_, err := mixed.Predict(Observed())
		require.NoError(t, err)
		_, ok := mixed.Designs().Get("predict")
		require.True(t, ok)
	})

	t.Run("unfitted controller refuses", func(t *testing.T) {
		fresh, err := NewMixed(2, 0.1, WithLinearModel())
		require.NoError(t, err)
		_, err = fresh.Predict(Observed())
		require.ErrorIs(t, err, errs.ErrNotFitted)
	})
}

func TestMixedHypothesis(t *testing.T) {
	mixed := fitDeadAlive(t)

	t.Run("fitted thetas reproduce predict", func(t *testing.T) {
		want, err := mixed.Predict(Observed())
		require.NoError(t, err)
		got, err := mixed.Hypothesis(Observed(), mixed.Thetas())
		require.NoError(t, err)
		require.InDeltaSlice(t, want, got, 1e-12)
	})

	t.Run("too few parameters", func(t *testing.T) {
		_, err := mixed.Hypothesis(Observed(), []float64{1, 2, 3})
		require.ErrorIs(t, err, errs.ErrInvalidThetas)
	})
}

func TestMixedSourceAgreement(t *testing.T) {
	mixed, err := NewMixed(2, 0.1, WithModelType("local"), WithLinearModel())
	require.NoError(t, err)
	require.NoError(t, mixed.AttachMap(deadAliveMap(t)))

	t.Run("named selectors must match", func(t *testing.T) {
		err := mixed.Fit(Observed(), Complete())
		require.ErrorIs(t, err, errs.ErrSourceMismatch)
	})

	t.Run("named and literal cannot mix", func(t *testing.T) {
		err := mixed.Fit(Matrix(mat.NewDense(4, 4, nil)), Observed())
		require.ErrorIs(t, err, errs.ErrSourceMismatch)
	})

	t.Run("literal shapes must match", func(t *testing.T) {
		err := mixed.Fit(Matrix(mat.NewDense(4, 4, nil)), Vector([]float64{1, 2}))
		require.ErrorIs(t, err, errs.ErrSourceMismatch)
	})

	t.Run("vector cannot serve as a design", func(t *testing.T) {
		err := mixed.Fit(Vector([]float64{1, 2}), Matrix(mat.NewDense(2, 2, nil)))
		require.ErrorIs(t, err, errs.ErrInvalidSource)
	})
}

func TestMixedLiteralFit(t *testing.T) {
	mixed, err := NewMixed(2, 0.1, WithModelType("local"), WithLinearModel())
	require.NoError(t, err)
	require.NoError(t, mixed.AttachMap(deadAliveMap(t)))

	x := mat.NewDense(4, 4, []float64{
		1, 0, 0, 0,
		1, 1, 0, 0,
		1, 0, 1, 0,
		1, 1, 1, 1,
	})
	y := []float64{0.01, 0.02, 1.0, 1.5}

	require.NoError(t, mixed.Fit(Matrix(x), Vector(y), WithRidge(0.1)))
	require.Equal(t, []float64{0, 0, 1, 1}, mixed.Classes())

	got, err := mixed.Predict(Matrix(x))
	require.NoError(t, err)
	require.InDeltaSlice(t, []float64{0, 0, 1.0, 1.5}, got, 1e-10)
}

func TestMixedCompleteSelector(t *testing.T) {
	t.Run("complete map", func(t *testing.T) {
		mixed, err := NewMixed(2, 0.1, WithModelType("local"), WithLinearModel())
		require.NoError(t, err)
		require.NoError(t, mixed.AttachMap(deadAliveMap(t)))

		require.NoError(t, mixed.Fit(Complete(), Complete(), WithRidge(0.1)))
		got, err := mixed.Predict(Complete())
		require.NoError(t, err)
		require.InDeltaSlice(t, []float64{0, 0, 1.0, 1.5}, got, 1e-10)
	})

	t.Run("incomplete map", func(t *testing.T) {
		m, err := gpmap.New("AA",
			[]string{"AA", "BA", "AB"},
			[]float64{0.01, 1.0, 1.5})
		require.NoError(t, err)

		mixed, err := NewMixed(2, 0.1, WithModelType("local"), WithLinearModel())
		require.NoError(t, err)
		require.NoError(t, mixed.AttachMap(m))

		err = mixed.Fit(Complete(), Complete())
		require.ErrorIs(t, err, errs.ErrIncompleteGenotypeSet)
	})
}

func TestMixedFitRequiresMap(t *testing.T) {
	mixed, err := NewMixed(2, 0.1, WithLinearModel())
	require.NoError(t, err)

	err = mixed.Fit(Observed(), Observed())
	require.ErrorIs(t, err, errs.ErrNotFitted)
}

func TestMixedLnLikelihood(t *testing.T) {
	mixed := fitDeadAlive(t, gpmap.WithErrors([]float64{0.1, 0.1, 0.1, 0.1}))

	t.Run("finite at the fitted parameters", func(t *testing.T) {
		ll, err := mixed.LnLikelihood(Observed(), nil, nil, mixed.Thetas())
		require.NoError(t, err)
		require.False(t, math.IsNaN(ll))
		require.False(t, math.IsInf(ll, 0))
	})

	t.Run("non-finite values clamp to negative infinity", func(t *testing.T) {
		thetas := append([]float64(nil), mixed.Thetas()...)
		thetas[len(thetas)-1] = math.NaN()

		ll, err := mixed.LnLikelihood(Observed(), nil, nil, thetas)
		require.NoError(t, err)
		require.True(t, math.IsInf(ll, -1))
	})

	t.Run("explicit data and errors", func(t *testing.T) {
		y := []float64{0.01, 0.02, 1.0, 1.5}
		yerr := []float64{0.2, 0.2, 0.2, 0.2}
		ll, err := mixed.LnLikelihood(Observed(), y, yerr, mixed.Thetas())
		require.NoError(t, err)
		require.False(t, math.IsNaN(ll))
	})

	t.Run("mismatched error length", func(t *testing.T) {
		_, err := mixed.LnLikelihood(Observed(), []float64{1, 2, 3, 4}, []float64{0.1}, mixed.Thetas())
		require.ErrorIs(t, err, errs.ErrDimensionMismatch)
	})

	t.Run("map without errors", func(t *testing.T) {
		bare := fitDeadAlive(t)
		_, err := bare.LnLikelihood(Observed(), nil, nil, bare.Thetas())
		require.ErrorIs(t, err, errs.ErrNoPhenotypeErrors)
	})
}

func TestMixedDefaultPowerModel(t *testing.T) {
	m, err := gpmap.New("AA",
		[]string{"AA", "BA", "AB", "BB"},
		[]float64{0.5, 1.0, 1.5, 2.0})
	require.NoError(t, err)

	mixed, err := NewMixed(1, 0.2)
	require.NoError(t, err)
	require.NoError(t, mixed.AttachMap(m))
	require.NoError(t, mixed.Fit(Observed(), Observed(), WithRidge(0.1)))

	t.Run("every genotype alive", func(t *testing.T) {
		require.Equal(t, []float64{1, 1, 1, 1}, mixed.Classes())
	})

	t.Run("theta layout includes transform parameters", func(t *testing.T) {
		// 3 classifier coefficients + 3 transform parameters + 3
		// model coefficients.
		require.Len(t, mixed.Thetas(), 9)
	})

	t.Run("predictions track the phenotypes", func(t *testing.T) {
		got, err := mixed.Predict(Observed())
		require.NoError(t, err)
		require.InDeltaSlice(t, m.Phenotypes(), got, 0.05)
	})
}

func TestNewMixedValidation(t *testing.T) {
	_, err := NewMixed(0, 0.1)
	require.ErrorIs(t, err, errs.ErrOrderOutOfRange)

	_, err = NewMixed(2, 0.1, WithModelType("sideways"))
	require.Error(t, err)
}
