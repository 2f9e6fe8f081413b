package models

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/gpmaplab/epistat/design"
	"github.com/gpmaplab/epistat/epimap"
	"github.com/gpmaplab/epistat/errs"
	"github.com/gpmaplab/epistat/gpmap"
	"github.com/gpmaplab/epistat/sites"
)

// Local is the exact mutant-cycle decomposition: coefficients for every
// interaction order up to the full genotype length, recovered by
// inverting the 0/1 design matrix once.
type Local struct {
	gpm    *gpmap.Map
	labels []sites.Label
	x      *mat.Dense
	xinv   *mat.Dense
	coef   []float64
	emap   *epimap.Map
}

// FitLocal decomposes the map's phenotypes into local epistatic
// coefficients of every order: beta = X^-1 * y over the full label
// enumeration. The design must be square, which requires exactly 2^L
// observed genotypes, and invertible, which rules out duplicates.
//
// When the map carries measurement errors, coefficient errors are
// propagated through the inverse: the variance of coefficient j is
// the sum over genotypes of (X^-1)[j][i]^2 * sigma[i]^2, with upper
// and lower bounds propagated independently.
//
// Returns:
//   - *Local: the fitted model
//   - error: errs.ErrNotSquare when the genotype count differs from
//     the label count, errs.ErrSingularMatrix when the design cannot
//     be inverted
func FitLocal(m *gpmap.Map) (*Local, error) {
	length := m.Length()
	labels, err := sites.Enumerate(length, length)
	if err != nil {
		return nil, err
	}

	x, err := design.Build(m.Binary(), labels, design.EncodingLocal)
	if err != nil {
		return nil, err
	}
	rows, cols := x.Dims()
	if rows != cols {
		return nil, fmt.Errorf("%w: %d genotypes, %d interaction labels",
			errs.ErrNotSquare, rows, cols)
	}

	var xinv mat.Dense
	if err := xinv.Inverse(x); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrSingularMatrix, err)
	}

	var beta mat.VecDense
	beta.MulVec(&xinv, mat.NewVecDense(rows, m.Phenotypes()))
	coef := make([]float64, cols)
	copy(coef, beta.RawVector().Data)

	emap := epimap.New(labels)
	if err := emap.SetValues(coef); err != nil {
		return nil, err
	}
	if upper, lower, ok := m.Errors(); ok {
		if err := emap.SetAsymmetricErrors(propagate(&xinv, upper), propagate(&xinv, lower)); err != nil {
			return nil, err
		}
	}

	return &Local{
		gpm:    m,
		labels: labels,
		x:      x,
		xinv:   &xinv,
		coef:   coef,
		emap:   emap,
	}, nil
}

// propagate pushes per-phenotype error bounds through a linear
// transform: out[j] = sqrt(sum_i t[j][i]^2 * bound[i]^2).
func propagate(t mat.Matrix, bounds []float64) []float64 {
	rows, cols := t.Dims()
	out := make([]float64, rows)
	for j := 0; j < rows; j++ {
		var v float64
		for i := 0; i < cols; i++ {
			e := t.At(j, i) * bounds[i]
			v += e * e
		}
		out[j] = math.Sqrt(v)
	}

	return out
}

// Coefficients returns the local epistatic coefficients in canonical
// label order.
func (l *Local) Coefficients() []float64 { return l.coef }

// Map returns the labeled coefficient map.
func (l *Local) Map() *epimap.Map { return l.emap }

// Labels returns the interaction labels in canonical order.
func (l *Local) Labels() []sites.Label { return l.labels }

// Order returns the model order, which for the local decomposition is
// always the genotype length.
func (l *Local) Order() int { return l.gpm.Length() }

// Predict reconstructs the phenotypes from the coefficients. The
// decomposition is exact, so the result matches the input phenotypes
// up to floating-point rounding.
func (l *Local) Predict() []float64 {
	n, _ := l.x.Dims()
	var y mat.VecDense
	y.MulVec(l.x, mat.NewVecDense(len(l.coef), l.coef))

	out := make([]float64, n)
	copy(out, y.RawVector().Data)

	return out
}
