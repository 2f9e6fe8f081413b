package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gpmaplab/epistat/errs"
)

func TestPowerTransform(t *testing.T) {
	t.Run("log limit at lambda zero", func(t *testing.T) {
		e := math.E
		out, err := PowerTransform([]float64{1, e, e * e}, 0, 0, 0)
		require.NoError(t, err)
		// gmean = exp((0+1+2)/3) = e, so out = e*ln(x).
		require.InDeltaSlice(t, []float64{0, e, 2 * e}, out, 1e-12)
	})

	t.Run("general form", func(t *testing.T) {
		out, err := PowerTransform([]float64{1, 2}, 2, 0, 1)
		require.NoError(t, err)
		// gmean = sqrt(2): out = (x^2-1)/(2*sqrt(2)) + 1.
		require.InDeltaSlice(t, []float64{1, 3/(2*math.Sqrt2) + 1}, out, 1e-12)
	})

	t.Run("rejects non-positive shifted input", func(t *testing.T) {
		_, err := PowerTransform([]float64{1, -1}, 1, 0, 0)
		require.ErrorIs(t, err, errs.ErrNonPositivePhenotype)
	})

	t.Run("shift moves input into range", func(t *testing.T) {
		_, err := PowerTransform([]float64{1, -1}, 1, 1.5, 0)
		require.NoError(t, err)
	})
}

func TestPowerFit(t *testing.T) {
	x := classDesignPair()
	y := []float64{0.5, 1.0, 1.5, 2.0}

	p, err := NewPower()
	require.NoError(t, err)
	require.NoError(t, p.Fit(x, y))

	t.Run("predictions recover the training data", func(t *testing.T) {
		got, err := p.Predict(x)
		require.NoError(t, err)
		require.InDeltaSlice(t, y, got, 0.02)
	})

	t.Run("transform round trip", func(t *testing.T) {
		lin, err := p.TransformInverse(y)
		require.NoError(t, err)
		back, err := p.Transform(lin)
		require.NoError(t, err)
		require.InDeltaSlice(t, y, back, 1e-8)
	})

	t.Run("theta layout", func(t *testing.T) {
		thetas := p.Thetas()
		require.Len(t, thetas, 3+len(p.Coefficients()))
		require.Equal(t, p.Lambda(), thetas[0])
		require.Equal(t, p.Shift(), thetas[1])
		require.Equal(t, p.Offset(), thetas[2])
		require.InDeltaSlice(t, p.Coefficients(), thetas[3:], 0)
	})

	t.Run("hypothesis with fitted thetas matches predict", func(t *testing.T) {
		want, err := p.Predict(x)
		require.NoError(t, err)
		got, err := p.Hypothesis(x, p.Thetas())
		require.NoError(t, err)
		require.InDeltaSlice(t, want, got, 1e-12)
	})

	t.Run("hypothesis rejects wrong parameter count", func(t *testing.T) {
		_, err := p.Hypothesis(x, []float64{1, 0, 0})
		require.ErrorIs(t, err, errs.ErrInvalidThetas)
	})
}

func TestPowerUnfitted(t *testing.T) {
	p, err := NewPower()
	require.NoError(t, err)

	_, err = p.Predict(classDesignPair())
	require.ErrorIs(t, err, errs.ErrNotFitted)

	_, err = p.Transform([]float64{1})
	require.ErrorIs(t, err, errs.ErrNotFitted)

	require.Nil(t, p.Thetas())
}

func TestPowerInitialGuess(t *testing.T) {
	t.Run("accepts known names", func(t *testing.T) {
		_, err := NewPower(
			WithInitialGuess("lmbda", 2),
			WithInitialGuess("A", 0.5),
			WithInitialGuess("B", -1))
		require.NoError(t, err)
	})

	t.Run("rejects unknown names", func(t *testing.T) {
		_, err := NewPower(WithInitialGuess("gamma", 1))
		require.Error(t, err)
	})
}

func TestFitPowerFromMap(t *testing.T) {
	m := completePairMap(t, []float64{0.5, 1.0, 1.5, 2.0})

	p, err := FitPower(m, 1)
	require.NoError(t, err)
	require.Len(t, p.Labels(), 3)
	require.NotNil(t, p.Map())
	require.Len(t, p.Map().Values(), 3)
}
