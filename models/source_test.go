package models

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/gpmaplab/epistat/errs"
)

func TestParseSource(t *testing.T) {
	tests := []struct {
		tag  string
		kind SourceKind
	}{
		{"obs", SourceObserved},
		{"complete", SourceComplete},
		{"fit", SourceFitted},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			src, err := ParseSource(tt.tag)
			require.NoError(t, err)
			require.Equal(t, tt.kind, src.Kind())
			require.True(t, src.Named())
			require.Equal(t, tt.tag, src.Name())
		})
	}

	t.Run("unknown tag", func(t *testing.T) {
		_, err := ParseSource("everything")
		require.ErrorIs(t, err, errs.ErrInvalidSource)
	})
}

func TestSourceLiterals(t *testing.T) {
	t.Run("matrix", func(t *testing.T) {
		src := Matrix(mat.NewDense(2, 2, nil))
		require.False(t, src.Named())
		require.Equal(t, SourceMatrix, src.Kind())
		require.Equal(t, "matrix", src.String())
	})

	t.Run("vector", func(t *testing.T) {
		src := Vector([]float64{1, 2})
		require.False(t, src.Named())
		require.Equal(t, SourceVector, src.Kind())
	})

	t.Run("zero value", func(t *testing.T) {
		var src Source
		require.Equal(t, "invalid", src.String())
		require.False(t, src.Named())
	})
}
