package design

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/gpmaplab/epistat/errs"
	"github.com/gpmaplab/epistat/sites"
)

func TestParseEncoding(t *testing.T) {
	enc, err := ParseEncoding("local")
	require.NoError(t, err)
	require.Equal(t, EncodingLocal, enc)

	enc, err = ParseEncoding("global")
	require.NoError(t, err)
	require.Equal(t, EncodingGlobal, enc)

	_, err = ParseEncoding("additive")
	require.Error(t, err)
}

func TestEncoding_String(t *testing.T) {
	require.Equal(t, "local", EncodingLocal.String())
	require.Equal(t, "global", EncodingGlobal.String())
}

func TestBuild_Local(t *testing.T) {
	labels, err := sites.Enumerate(2, 2)
	require.NoError(t, err)

	x, err := Build([]string{"00", "01", "10", "11"}, labels, EncodingLocal)
	require.NoError(t, err)

	expected := mat.NewDense(4, 4, []float64{
		1, 0, 0, 0,
		1, 0, 1, 0,
		1, 1, 0, 0,
		1, 1, 1, 1,
	})
	require.True(t, mat.Equal(expected, x), "got %v", mat.Formatted(x))
}

func TestBuild_Global(t *testing.T) {
	labels, err := sites.Enumerate(2, 2)
	require.NoError(t, err)

	x, err := Build([]string{"00", "01", "10", "11"}, labels, EncodingGlobal)
	require.NoError(t, err)

	expected := mat.NewDense(4, 4, []float64{
		1, 1, 1, 1,
		1, 1, -1, -1,
		1, -1, 1, -1,
		1, -1, -1, 1,
	})
	require.True(t, mat.Equal(expected, x), "got %v", mat.Formatted(x))
}

func TestBuild_Errors(t *testing.T) {
	labels, err := sites.Enumerate(2, 1)
	require.NoError(t, err)

	t.Run("no genotypes", func(t *testing.T) {
		_, err := Build(nil, labels, EncodingLocal)
		require.ErrorIs(t, err, errs.ErrNoGenotypes)
	})

	t.Run("ragged genotypes", func(t *testing.T) {
		_, err := Build([]string{"00", "011"}, labels, EncodingLocal)
		require.ErrorIs(t, err, errs.ErrGenotypeLengthMismatch)
	})

	t.Run("label site out of range", func(t *testing.T) {
		_, err := Build([]string{"00"}, []sites.Label{{0}, {3}}, EncodingLocal)
		require.ErrorIs(t, err, errs.ErrInvalidLabel)
	})

	t.Run("no labels", func(t *testing.T) {
		_, err := Build([]string{"00"}, nil, EncodingLocal)
		require.ErrorIs(t, err, errs.ErrInvalidLabel)
	})

	t.Run("unknown encoding", func(t *testing.T) {
		_, err := Build([]string{"00"}, labels, Encoding(9))
		require.Error(t, err)
	})
}

func TestHadamard(t *testing.T) {
	h := Hadamard(4)

	expected := mat.NewDense(4, 4, []float64{
		1, 1, 1, 1,
		1, -1, 1, -1,
		1, 1, -1, -1,
		1, -1, -1, 1,
	})
	require.True(t, mat.Equal(expected, h), "got %v", mat.Formatted(h))
}

func TestHadamard_Orthogonal(t *testing.T) {
	// H * H^T = n * I for any Sylvester Hadamard matrix.
	for _, n := range []int{1, 2, 8} {
		h := Hadamard(n)

		var prod mat.Dense
		prod.Mul(h, h.T())

		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				want := 0.0
				if i == j {
					want = float64(n)
				}
				require.Equal(t, want, prod.At(i, j), "n=%d at (%d,%d)", n, i, j)
			}
		}
	}
}

func TestHadamard_InvalidDimension(t *testing.T) {
	require.Panics(t, func() { Hadamard(3) })
	require.Panics(t, func() { Hadamard(0) })
}

func TestHadamardWeights(t *testing.T) {
	w := HadamardWeights([]string{"00", "01", "10", "11"})

	// (-1)^k / 2^(L-k) for k mutations over L=2 sites.
	require.Equal(t, 0.25, w.At(0, 0))
	require.Equal(t, -0.5, w.At(1, 1))
	require.Equal(t, -0.5, w.At(2, 2))
	require.Equal(t, 1.0, w.At(3, 3))
}

func TestIndex(t *testing.T) {
	require.Equal(t, 0, Index("000"))
	require.Equal(t, 1, Index("001"))
	require.Equal(t, 4, Index("100"))
	require.Equal(t, 7, Index("111"))
}

func TestLabelMask(t *testing.T) {
	// Site 1 is the most significant bit.
	require.Equal(t, 0, LabelMask(sites.Label{0}, 3))
	require.Equal(t, 4, LabelMask(sites.Label{1}, 3))
	require.Equal(t, 1, LabelMask(sites.Label{3}, 3))
	require.Equal(t, 6, LabelMask(sites.Label{1, 2}, 3))
	require.Equal(t, 7, LabelMask(sites.Label{1, 2, 3}, 3))
}

func TestLabelMask_MatchesIndex(t *testing.T) {
	// A label's mask equals the index of the genotype mutated at
	// exactly the label's sites.
	require.Equal(t, Index("101"), LabelMask(sites.Label{1, 3}, 3))
	require.Equal(t, Index("010"), LabelMask(sites.Label{2}, 3))
}

func TestCache(t *testing.T) {
	c := NewCache()
	require.Equal(t, 0, c.Len())

	_, ok := c.Get("obs")
	require.False(t, ok)

	x := mat.NewDense(1, 1, []float64{1})
	c.Put("obs", x)

	got, ok := c.Get("obs")
	require.True(t, ok)
	require.Same(t, x, got)
	require.Equal(t, 1, c.Len())

	c.Reset()
	require.Equal(t, 0, c.Len())
	_, ok = c.Get("obs")
	require.False(t, ok)
}
