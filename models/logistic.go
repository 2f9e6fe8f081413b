package models

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/gpmaplab/epistat/errs"
	"github.com/gpmaplab/epistat/internal/options"
)

const (
	defaultRidge         = 1e-3
	defaultMaxIterations = 100
	defaultTolerance     = 1e-8
)

// Binarize maps phenotypes to class labels: 1 when the phenotype
// exceeds the threshold, 0 otherwise.
func Binarize(y []float64, threshold float64) []float64 {
	out := make([]float64, len(y))
	for i, v := range y {
		if v > threshold {
			out[i] = 1
		}
	}

	return out
}

// Classifier is a ridge-regularized logistic model separating viable
// from dead genotypes. The intercept is column zero of the design, so
// Coef includes it.
type Classifier struct {
	coef    []float64
	ridge   float64
	maxIter int
	tol     float64
}

// LogisticOption configures classifier fitting.
type LogisticOption = options.Option[*Classifier]

// WithRidge sets the L2 penalty applied during fitting. The penalty
// keeps the optimum finite on completely separable data.
func WithRidge(lambda float64) LogisticOption {
	return options.New(func(c *Classifier) error {
		if lambda < 0 {
			return fmt.Errorf("invalid ridge penalty: %g, must not be negative", lambda)
		}
		c.ridge = lambda
		return nil
	})
}

// WithMaxIterations caps the number of reweighted least-squares
// iterations.
func WithMaxIterations(n int) LogisticOption {
	return options.New(func(c *Classifier) error {
		if n <= 0 {
			return fmt.Errorf("invalid iteration cap: %d, must be positive", n)
		}
		c.maxIter = n
		return nil
	})
}

// WithTolerance sets the coefficient-change threshold at which the
// iteration stops.
func WithTolerance(tol float64) LogisticOption {
	return options.New(func(c *Classifier) error {
		if tol <= 0 {
			return fmt.Errorf("invalid tolerance: %g, must be positive", tol)
		}
		c.tol = tol
		return nil
	})
}

// FitLogistic fits the classifier by iteratively reweighted least
// squares: each Newton step solves (X^T W X + lambda*I) d = X^T(y - p)
// - lambda*beta with W = diag(p(1-p)).
//
// Parameters:
//   - x: design matrix, intercept in column zero
//   - ybin: class labels, each 0 or 1
//
// Returns:
//   - *Classifier: the fitted classifier
//   - error: errs.ErrDimensionMismatch on label/row mismatch,
//     errs.ErrSingularMatrix when a Newton system cannot be solved,
//     errs.ErrDidNotConverge when the iteration cap is reached
func FitLogistic(x *mat.Dense, ybin []float64, opts ...LogisticOption) (*Classifier, error) {
	c := &Classifier{
		ridge:   defaultRidge,
		maxIter: defaultMaxIterations,
		tol:     defaultTolerance,
	}
	if err := options.Apply(c, opts...); err != nil {
		return nil, err
	}

	rows, cols := x.Dims()
	if len(ybin) != rows {
		return nil, fmt.Errorf("%w: %d labels for %d design rows",
			errs.ErrDimensionMismatch, len(ybin), rows)
	}

	beta := make([]float64, cols)
	grad := mat.NewVecDense(cols, nil)
	hess := mat.NewDense(cols, cols, nil)
	w := mat.NewDiagDense(rows, nil)

	for iter := 0; iter < c.maxIter; iter++ {
		p := probabilities(x, beta)

		// Gradient X^T(y-p) - lambda*beta.
		resid := make([]float64, rows)
		for i := range resid {
			resid[i] = ybin[i] - p[i]
		}
		grad.MulVec(x.T(), mat.NewVecDense(rows, resid))
		for j := 0; j < cols; j++ {
			grad.SetVec(j, grad.AtVec(j)-c.ridge*beta[j])
		}

		// Hessian X^T W X + lambda*I.
		for i := 0; i < rows; i++ {
			w.SetDiag(i, p[i]*(1-p[i]))
		}
		hess.Product(x.T(), w, x)
		for j := 0; j < cols; j++ {
			hess.Set(j, j, hess.At(j, j)+c.ridge)
		}

		var step mat.VecDense
		if err := step.SolveVec(hess, grad); err != nil {
			return nil, fmt.Errorf("%w: %v", errs.ErrSingularMatrix, err)
		}

		next := make([]float64, cols)
		for j := range next {
			next[j] = beta[j] + step.AtVec(j)
		}
		delta := floats.Distance(next, beta, 2)
		beta = next
		if delta < c.tol {
			c.coef = beta
			return c, nil
		}
	}

	return nil, fmt.Errorf("%w: logistic fit after %d iterations",
		errs.ErrDidNotConverge, c.maxIter)
}

// probabilities evaluates the logistic curve at X*beta.
func probabilities(x mat.Matrix, beta []float64) []float64 {
	rows, cols := x.Dims()
	var z mat.VecDense
	z.MulVec(x, mat.NewVecDense(cols, beta))

	p := make([]float64, rows)
	for i := range p {
		p[i] = 1 / (1 + math.Exp(-z.AtVec(i)))
	}

	return p
}

// Coef returns the fitted coefficients including the intercept.
func (c *Classifier) Coef() []float64 { return c.coef }

// Thetas returns the classifier's parameter vector. It is identical to
// Coef and exists so the classifier composes with the mixed
// controller's concatenated parameter layout.
func (c *Classifier) Thetas() []float64 { return c.coef }

// PredictProba returns the viability probability for each design row.
//
// Returns:
//   - []float64: probabilities in [0, 1]
//   - error: errs.ErrNotFitted before FitLogistic,
//     errs.ErrInvalidThetas on design width mismatch
func (c *Classifier) PredictProba(x mat.Matrix) ([]float64, error) {
	if c.coef == nil {
		return nil, fmt.Errorf("%w: classifier", errs.ErrNotFitted)
	}

	return c.Hypothesis(x, c.coef)
}

// Predict returns hard class labels: 1 where the viability probability
// reaches 0.5, 0 elsewhere.
//
// Returns:
//   - []float64: labels, each 0 or 1
//   - error: errs.ErrNotFitted before FitLogistic,
//     errs.ErrInvalidThetas on design width mismatch
func (c *Classifier) Predict(x mat.Matrix) ([]float64, error) {
	p, err := c.PredictProba(x)
	if err != nil {
		return nil, err
	}

	return Classes(p), nil
}

// Hypothesis returns viability probabilities under an externally
// supplied parameter vector without touching fitted state.
//
// Returns:
//   - []float64: probabilities in [0, 1]
//   - error: errs.ErrInvalidThetas when len(thetas) differs from the
//     design width
func (c *Classifier) Hypothesis(x mat.Matrix, thetas []float64) ([]float64, error) {
	_, cols := x.Dims()
	if len(thetas) != cols {
		return nil, fmt.Errorf("%w: %d parameters for %d design columns",
			errs.ErrInvalidThetas, len(thetas), cols)
	}

	return probabilities(x, thetas), nil
}

// Classes converts probabilities to hard labels at the 0.5 boundary.
func Classes(proba []float64) []float64 {
	out := make([]float64, len(proba))
	for i, p := range proba {
		if p >= 0.5 {
			out[i] = 1
		}
	}

	return out
}
