package models

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/gpmaplab/epistat/errs"
)

// Regressor is the quantitative stage of the mixed pipeline: a model
// that fits coefficients against a design matrix and predicts
// phenotypes either from its own fitted state or from an externally
// supplied parameter vector.
type Regressor interface {
	// Fit estimates coefficients from the design matrix and phenotypes.
	Fit(x *mat.Dense, y []float64) error

	// Predict evaluates the fitted model on a design matrix.
	Predict(x *mat.Dense) ([]float64, error)

	// Hypothesis evaluates the model under an externally supplied
	// parameter vector without touching fitted state.
	Hypothesis(x mat.Matrix, thetas []float64) ([]float64, error)

	// Coefficients returns the fitted linear coefficients.
	Coefficients() []float64

	// Thetas returns the full parameter vector, linear coefficients
	// plus any nonlinear parameters the model carries.
	Thetas() []float64
}

// Linear is an ordinary least-squares regressor with no nonlinear
// stage. Its parameter vector is exactly its coefficient vector.
type Linear struct {
	coef []float64
}

// NewLinear creates an unfitted least-squares regressor.
func NewLinear() *Linear { return &Linear{} }

// Fit solves min ||X*beta - y|| by QR decomposition.
//
// Returns:
//   - error: errs.ErrDimensionMismatch when len(y) differs from the
//     design's row count, errs.ErrSingularMatrix when the design is
//     rank deficient
func (l *Linear) Fit(x *mat.Dense, y []float64) error {
	rows, _ := x.Dims()
	if len(y) != rows {
		return fmt.Errorf("%w: %d phenotypes for %d design rows",
			errs.ErrDimensionMismatch, len(y), rows)
	}

	coef, err := leastSquares(x, y)
	if err != nil {
		return err
	}
	l.coef = coef

	return nil
}

// Predict evaluates X*beta for the fitted coefficients.
//
// Returns:
//   - []float64: one estimate per design row
//   - error: errs.ErrNotFitted before Fit, errs.ErrDimensionMismatch
//     when the design width differs from the coefficient count
func (l *Linear) Predict(x *mat.Dense) ([]float64, error) {
	if l.coef == nil {
		return nil, fmt.Errorf("%w: linear model", errs.ErrNotFitted)
	}

	return l.Hypothesis(x, l.coef)
}

// Hypothesis evaluates X*thetas for an arbitrary parameter vector.
//
// Returns:
//   - []float64: one estimate per design row
//   - error: errs.ErrInvalidThetas when len(thetas) differs from the
//     design width
func (l *Linear) Hypothesis(x mat.Matrix, thetas []float64) ([]float64, error) {
	rows, cols := x.Dims()
	if len(thetas) != cols {
		return nil, fmt.Errorf("%w: %d parameters for %d design columns",
			errs.ErrInvalidThetas, len(thetas), cols)
	}

	var y mat.VecDense
	y.MulVec(x, mat.NewVecDense(cols, thetas))

	out := make([]float64, rows)
	copy(out, y.RawVector().Data)

	return out, nil
}

// Coefficients returns the fitted coefficients, nil before Fit.
func (l *Linear) Coefficients() []float64 { return l.coef }

// Thetas returns the full parameter vector, which for a linear model
// is the coefficient vector itself.
func (l *Linear) Thetas() []float64 { return l.coef }
