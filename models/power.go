package models

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/gpmaplab/epistat/design"
	"github.com/gpmaplab/epistat/epimap"
	"github.com/gpmaplab/epistat/errs"
	"github.com/gpmaplab/epistat/gpmap"
	"github.com/gpmaplab/epistat/internal/options"
	"github.com/gpmaplab/epistat/sites"
)

// autoShiftEpsilon keeps the shifted additive scale strictly positive
// when the default shift is derived from the data.
const autoShiftEpsilon = 1e-6

// powerTransform evaluates the scaled Box-Cox curve at a single point.
// The lambda == 0 branch is the log limit of the general form.
func powerTransform(x, lmbda, a, b, gmean float64) float64 {
	if lmbda == 0 {
		return gmean*math.Log(x+a) + b
	}

	return (math.Pow(x+a, lmbda)-1)/(lmbda*math.Pow(gmean, lmbda-1)) + b
}

// PowerTransform applies the scaled Box-Cox transform to a vector with
// the geometric mean taken over the shifted input itself.
//
// Returns:
//   - []float64: transformed values
//   - error: errs.ErrNonPositivePhenotype when any shifted input is
//     not strictly positive
func PowerTransform(x []float64, lmbda, a, b float64) ([]float64, error) {
	shifted := make([]float64, len(x))
	for i, v := range x {
		s := v + a
		if s <= 0 {
			return nil, fmt.Errorf("%w: value %g with shift %g", errs.ErrNonPositivePhenotype, v, a)
		}
		shifted[i] = s
	}
	gmean := geomMean(shifted)

	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = powerTransform(v, lmbda, a, b, gmean)
	}

	return out, nil
}

// geomMean computes the geometric mean in the log domain. Inputs must
// be strictly positive; callers validate.
func geomMean(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += math.Log(x)
	}

	return math.Exp(sum / float64(len(v)))
}

// Power is a regressor composing a linear interaction model with a
// scaled Box-Cox output transform: y = f(X*beta; lambda, A, B). The
// nonlinear parameters are fitted by Nelder-Mead, the coefficients by
// least squares on the linearized phenotypes.
type Power struct {
	lmbda float64
	a     float64
	b     float64
	gmean float64
	coef  []float64

	guesses map[string]float64
	fitted  bool

	labels []sites.Label
	emap   *epimap.Map
}

// PowerOption configures the power-transform fit.
type PowerOption = options.Option[*Power]

// WithInitialGuess seeds the Nelder-Mead search for one nonlinear
// parameter. Accepted names are "lmbda" (alias "lambda"), "A" and "B".
func WithInitialGuess(name string, value float64) PowerOption {
	return options.New(func(p *Power) error {
		switch name {
		case "lmbda", "lambda":
			p.guesses["lmbda"] = value
		case "A", "a":
			p.guesses["A"] = value
		case "B", "b":
			p.guesses["B"] = value
		default:
			return fmt.Errorf("invalid parameter name: %q, must be lmbda, A or B", name)
		}
		return nil
	})
}

// NewPower creates an unfitted power-transform regressor.
func NewPower(opts ...PowerOption) (*Power, error) {
	p := &Power{guesses: make(map[string]float64)}
	if err := options.Apply(p, opts...); err != nil {
		return nil, err
	}

	return p, nil
}

// FitPower fits a power-transform model directly against a map:
// interactions are enumerated up to the given order and the design
// uses the 0/1 encoding.
//
// Returns:
//   - *Power: the fitted model
//   - error: errs.ErrOrderOutOfRange for a bad order, plus any Fit
//     error
func FitPower(m *gpmap.Map, order int, opts ...PowerOption) (*Power, error) {
	labels, err := sites.Enumerate(m.Length(), order)
	if err != nil {
		return nil, err
	}

	x, err := design.Build(m.Binary(), labels, design.EncodingLocal)
	if err != nil {
		return nil, err
	}

	p, err := NewPower(opts...)
	if err != nil {
		return nil, err
	}
	p.labels = labels
	if err := p.Fit(x, m.Phenotypes()); err != nil {
		return nil, err
	}

	emap := epimap.New(labels)
	if err := emap.SetValues(p.coef); err != nil {
		return nil, err
	}
	p.emap = emap

	return p, nil
}

// Fit estimates the model in three passes: a least-squares fit for the
// additive scale, a Nelder-Mead search for (lambda, A, B) minimizing
// the squared reconstruction error, and a final least-squares fit on
// the linearized phenotypes.
//
// Returns:
//   - error: errs.ErrDimensionMismatch on row mismatch,
//     errs.ErrSingularMatrix from the linear solves,
//     errs.ErrDidNotConverge when the parameter search fails or the
//     linearization is not finite
func (p *Power) Fit(x *mat.Dense, y []float64) error {
	rows, _ := x.Dims()
	if len(y) != rows {
		return fmt.Errorf("%w: %d phenotypes for %d design rows",
			errs.ErrDimensionMismatch, len(y), rows)
	}

	beta, err := leastSquares(x, y)
	if err != nil {
		return err
	}
	padd := mulVec(x, beta)

	init := p.initialGuess(padd)
	problem := optimize.Problem{
		Func: func(params []float64) float64 {
			return reconstructionSSE(padd, y, params[0], params[1], params[2])
		},
	}
	result, err := optimize.Minimize(problem, init, nil, &optimize.NelderMead{})
	if err != nil {
		return fmt.Errorf("%w: power parameter search: %v", errs.ErrDidNotConverge, err)
	}

	p.lmbda = result.X[0]
	p.a = result.X[1]
	p.b = result.X[2]

	shifted := make([]float64, len(padd))
	for i, v := range padd {
		shifted[i] = v + p.a
	}
	p.gmean = geomMean(shifted)

	// Refit the coefficients against the linearized phenotypes.
	ylin := make([]float64, len(y))
	for i, v := range y {
		ylin[i] = p.transformInverse(v)
		if !isFinite(ylin[i]) {
			return fmt.Errorf("%w: non-finite linearized phenotype at row %d",
				errs.ErrDidNotConverge, i)
		}
	}
	coef, err := leastSquares(x, ylin)
	if err != nil {
		return err
	}

	p.coef = coef
	p.fitted = true

	return nil
}

// initialGuess assembles the Nelder-Mead start point, auto-shifting A
// when the additive scale is not strictly positive.
func (p *Power) initialGuess(padd []float64) []float64 {
	lmbda, ok := p.guesses["lmbda"]
	if !ok {
		lmbda = 1
	}
	a, ok := p.guesses["A"]
	if !ok {
		if min := floats.Min(padd); min <= 0 {
			a = autoShiftEpsilon - min
		}
	}
	b := p.guesses["B"]

	return []float64{lmbda, a, b}
}

// reconstructionSSE scores one candidate parameter set. Candidates
// that push the shifted scale out of the transform's domain score
// +Inf so the simplex retreats from them.
func reconstructionSSE(padd, y []float64, lmbda, a, b float64) float64 {
	shifted := make([]float64, len(padd))
	for i, v := range padd {
		s := v + a
		if s <= 0 {
			return math.Inf(1)
		}
		shifted[i] = s
	}
	gmean := geomMean(shifted)

	var sse float64
	for i, v := range padd {
		r := y[i] - powerTransform(v, lmbda, a, b, gmean)
		sse += r * r
	}
	if !isFinite(sse) {
		return math.Inf(1)
	}

	return sse
}

// transformInverse maps one observed phenotype back to the additive
// scale using the pinned training geometric mean.
func (p *Power) transformInverse(y float64) float64 {
	if p.lmbda == 0 {
		return math.Exp((y-p.b)/p.gmean) - p.a
	}

	return math.Pow(p.lmbda*math.Pow(p.gmean, p.lmbda-1)*(y-p.b)+1, 1/p.lmbda) - p.a
}

// Transform applies the fitted forward transform with the pinned
// training geometric mean. It is the inverse of TransformInverse.
//
// Returns:
//   - []float64: transformed values
//   - error: errs.ErrNotFitted before Fit
func (p *Power) Transform(x []float64) ([]float64, error) {
	if !p.fitted {
		return nil, fmt.Errorf("%w: power model", errs.ErrNotFitted)
	}

	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = powerTransform(v, p.lmbda, p.a, p.b, p.gmean)
	}

	return out, nil
}

// TransformInverse maps observed phenotypes back to the additive scale
// of the fitted model.
//
// Returns:
//   - []float64: linearized values
//   - error: errs.ErrNotFitted before Fit
func (p *Power) TransformInverse(y []float64) ([]float64, error) {
	if !p.fitted {
		return nil, fmt.Errorf("%w: power model", errs.ErrNotFitted)
	}

	out := make([]float64, len(y))
	for i, v := range y {
		out[i] = p.transformInverse(v)
	}

	return out, nil
}

// Predict evaluates the fitted model: the linear part X*beta pushed
// through the forward transform, with the geometric mean taken over
// the predicted additive scale.
//
// Returns:
//   - []float64: one estimate per design row
//   - error: errs.ErrNotFitted before Fit, errs.ErrInvalidThetas on
//     design width mismatch
func (p *Power) Predict(x *mat.Dense) ([]float64, error) {
	if !p.fitted {
		return nil, fmt.Errorf("%w: power model", errs.ErrNotFitted)
	}

	return p.Hypothesis(x, p.Thetas())
}

// Hypothesis evaluates the model under an externally supplied
// parameter vector laid out as [lambda, A, B, coefficients...].
// Out-of-domain parameter sets yield NaN estimates rather than an
// error; likelihood evaluation clamps them downstream.
//
// Returns:
//   - []float64: one estimate per design row
//   - error: errs.ErrInvalidThetas when len(thetas) differs from the
//     design width plus three
func (p *Power) Hypothesis(x mat.Matrix, thetas []float64) ([]float64, error) {
	_, cols := x.Dims()
	if len(thetas) != cols+3 {
		return nil, fmt.Errorf("%w: %d parameters for %d design columns plus 3 transform parameters",
			errs.ErrInvalidThetas, len(thetas), cols)
	}
	lmbda, a, b := thetas[0], thetas[1], thetas[2]

	padd := mulVec(x, thetas[3:])
	shifted := make([]float64, len(padd))
	for i, v := range padd {
		shifted[i] = v + a
	}
	gmean := geomMean(shifted)

	out := make([]float64, len(padd))
	for i, v := range padd {
		out[i] = powerTransform(v, lmbda, a, b, gmean)
	}

	return out, nil
}

// Coefficients returns the fitted linear coefficients, nil before Fit.
func (p *Power) Coefficients() []float64 { return p.coef }

// Thetas returns the full parameter vector [lambda, A, B,
// coefficients...], nil before Fit.
func (p *Power) Thetas() []float64 {
	if !p.fitted {
		return nil
	}

	out := make([]float64, 0, len(p.coef)+3)
	out = append(out, p.lmbda, p.a, p.b)
	out = append(out, p.coef...)

	return out
}

// Lambda returns the fitted exponent.
func (p *Power) Lambda() float64 { return p.lmbda }

// Shift returns the fitted input shift A.
func (p *Power) Shift() float64 { return p.a }

// Offset returns the fitted output offset B.
func (p *Power) Offset() float64 { return p.b }

// GMean returns the geometric mean pinned at fit time.
func (p *Power) GMean() float64 { return p.gmean }

// Map returns the labeled coefficient map when the model was fitted
// through FitPower, nil otherwise.
func (p *Power) Map() *epimap.Map { return p.emap }

// Labels returns the interaction labels when the model was fitted
// through FitPower, nil otherwise.
func (p *Power) Labels() []sites.Label { return p.labels }

// mulVec computes X*v as a plain slice.
func mulVec(x mat.Matrix, v []float64) []float64 {
	rows, cols := x.Dims()
	var y mat.VecDense
	y.MulVec(x, mat.NewVecDense(cols, v))

	out := make([]float64, rows)
	copy(out, y.RawVector().Data)

	return out
}

// isFinite reports whether v is neither NaN nor infinite.
func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
