package models

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/gpmaplab/epistat/design"
	"github.com/gpmaplab/epistat/epimap"
	"github.com/gpmaplab/epistat/errs"
	"github.com/gpmaplab/epistat/gpmap"
	"github.com/gpmaplab/epistat/sites"
)

// Projected is the truncated least-squares decomposition: phenotypes
// are projected onto the interaction basis up to a configured order
// below the full genotype length, so the design is rectangular and the
// fit is approximate.
type Projected struct {
	gpm    *gpmap.Map
	order  int
	labels []sites.Label
	x      *mat.Dense
	coef   []float64
	score  float64
	emap   *epimap.Map
}

// FitProjected projects the map's phenotypes onto interactions up to
// the given order by ordinary least squares. The intercept is column
// zero of the design, not a separately fitted term.
//
// When the map carries measurement errors, coefficient errors are
// propagated through the pseudoinverse (X^T X)^-1 X^T with upper and
// lower bounds handled independently.
//
// Returns:
//   - *Projected: the fitted model
//   - error: errs.ErrOrderOutOfRange when order is not in [0, length],
//     errs.ErrSingularMatrix when the normal equations cannot be
//     solved
func FitProjected(m *gpmap.Map, order int) (*Projected, error) {
	labels, err := sites.Enumerate(m.Length(), order)
	if err != nil {
		return nil, err
	}

	x, err := design.Build(m.Binary(), labels, design.EncodingLocal)
	if err != nil {
		return nil, err
	}

	coef, err := leastSquares(x, m.Phenotypes())
	if err != nil {
		return nil, err
	}

	emap := epimap.New(labels)
	if err := emap.SetValues(coef); err != nil {
		return nil, err
	}
	if upper, lower, ok := m.Errors(); ok {
		pinv, err := pseudoInverse(x)
		if err != nil {
			return nil, err
		}
		if err := emap.SetAsymmetricErrors(propagate(pinv, upper), propagate(pinv, lower)); err != nil {
			return nil, err
		}
	}

	p := &Projected{
		gpm:    m,
		order:  order,
		labels: labels,
		x:      x,
		coef:   coef,
		emap:   emap,
	}
	p.score = stat.RSquaredFrom(p.Predict(), m.Phenotypes(), nil)

	return p, nil
}

// leastSquares solves min ||X*beta - y|| via QR.
func leastSquares(x *mat.Dense, y []float64) ([]float64, error) {
	rows, cols := x.Dims()
	var beta mat.VecDense
	if err := beta.SolveVec(x, mat.NewVecDense(rows, y)); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrSingularMatrix, err)
	}

	coef := make([]float64, cols)
	copy(coef, beta.RawVector().Data)

	return coef, nil
}

// pseudoInverse computes (X^T X)^-1 X^T for a full-column-rank design.
func pseudoInverse(x *mat.Dense) (*mat.Dense, error) {
	var xtx mat.Dense
	xtx.Mul(x.T(), x)

	var inv mat.Dense
	if err := inv.Inverse(&xtx); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrSingularMatrix, err)
	}

	var pinv mat.Dense
	pinv.Mul(&inv, x.T())

	return &pinv, nil
}

// Coefficients returns the projected coefficients in canonical label
// order.
func (p *Projected) Coefficients() []float64 { return p.coef }

// Map returns the labeled coefficient map.
func (p *Projected) Map() *epimap.Map { return p.emap }

// Labels returns the interaction labels in canonical order.
func (p *Projected) Labels() []sites.Label { return p.labels }

// Order returns the truncation order of the projection.
func (p *Projected) Order() int { return p.order }

// Score returns the coefficient of determination of the fit.
func (p *Projected) Score() float64 { return p.score }

// Predict reconstructs phenotype estimates from the projected
// coefficients.
func (p *Projected) Predict() []float64 {
	n, _ := p.x.Dims()
	var y mat.VecDense
	y.MulVec(p.x, mat.NewVecDense(len(p.coef), p.coef))

	out := make([]float64, n)
	copy(out, y.RawVector().Data)

	return out
}
