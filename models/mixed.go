package models

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/gpmaplab/epistat/design"
	"github.com/gpmaplab/epistat/errs"
	"github.com/gpmaplab/epistat/gpmap"
	"github.com/gpmaplab/epistat/internal/options"
	"github.com/gpmaplab/epistat/sites"
)

// Design cache keys used by the mixed controller.
const (
	designObserved = "obs"
	designClass    = "class"
	designFit      = "fit"
	designComplete = "complete"
	designPredict  = "predict"
)

// Mixed orchestrates the two-stage decomposition of maps with dead
// genotypes: a logistic classifier separates viable from dead rows,
// then a quantitative model is fitted on the viable rows only. The
// classifier always works at interaction order one; the quantitative
// model order and encoding are configurable.
type Mixed struct {
	order     int
	threshold float64
	encoding  design.Encoding
	model     Regressor
	modelOpts []PowerOption

	gpm       *gpmap.Map
	labels    []sites.Label
	clfLabels []sites.Label
	cache     *design.Cache

	clf     *Classifier
	classes []float64
	yfit    []float64
}

// MixedOption configures the mixed controller.
type MixedOption = options.Option[*Mixed]

// WithModelType selects the design encoding for both stages, "local"
// or "global".
func WithModelType(tag string) MixedOption {
	return options.New(func(m *Mixed) error {
		enc, err := design.ParseEncoding(tag)
		if err != nil {
			return err
		}
		m.encoding = enc
		return nil
	})
}

// WithLinearModel replaces the default power-transform stage with a
// plain least-squares model.
func WithLinearModel() MixedOption {
	return options.NoError(func(m *Mixed) {
		m.model = NewLinear()
	})
}

// WithModelOptions forwards options to the default power-transform
// stage, typically initial guesses for the nonlinear parameters. It
// has no effect when WithLinearModel is also given.
func WithModelOptions(opts ...PowerOption) MixedOption {
	return options.NoError(func(m *Mixed) {
		m.modelOpts = append(m.modelOpts, opts...)
	})
}

// NewMixed creates a mixed controller for the given quantitative model
// order and viability threshold. The default quantitative stage is the
// power-transform model over the global encoding.
//
// Returns:
//   - *Mixed: the controller, with no map attached yet
//   - error: invalid order, or an option error
func NewMixed(order int, threshold float64, opts ...MixedOption) (*Mixed, error) {
	if order < 1 {
		return nil, fmt.Errorf("%w: model order %d, must be at least 1",
			errs.ErrOrderOutOfRange, order)
	}

	m := &Mixed{
		order:     order,
		threshold: threshold,
		encoding:  design.EncodingGlobal,
		cache:     design.NewCache(),
	}
	if err := options.Apply(m, opts...); err != nil {
		return nil, err
	}
	if m.model == nil {
		model, err := NewPower(m.modelOpts...)
		if err != nil {
			return nil, err
		}
		m.model = model
	}

	return m, nil
}

// AttachMap attaches a genotype-phenotype map and eagerly builds the
// observed and classifier design matrices.
//
// Returns:
//   - error: errs.ErrOrderOutOfRange when the model order exceeds the
//     genotype length, plus any design construction error
func (m *Mixed) AttachMap(gpm *gpmap.Map) error {
	labels, err := sites.Enumerate(gpm.Length(), m.order)
	if err != nil {
		return err
	}
	clfLabels, err := sites.Enumerate(gpm.Length(), 1)
	if err != nil {
		return err
	}

	xobs, err := design.Build(gpm.Binary(), labels, m.encoding)
	if err != nil {
		return err
	}

	m.gpm = gpm
	m.labels = labels
	m.clfLabels = clfLabels
	m.cache.Reset()
	m.cache.Put(designObserved, xobs)
	m.cache.Put(designClass, truncateColumns(xobs, len(clfLabels)))
	m.clf = nil
	m.classes = nil
	m.yfit = nil

	return nil
}

// Fit runs the two-stage pipeline: binarize phenotypes at the
// threshold, fit the classifier on the order-one design, predict
// viability for every row, then fit the quantitative model on the
// rows classified alive. Options are forwarded to the classifier fit.
//
// The X and y selectors must agree: both named with the same name, or
// both literal with matching row counts.
//
// Returns:
//   - error: errs.ErrSourceMismatch on disagreeing selectors before
//     any computation, errs.ErrInvalidSource for selectors that cannot
//     provide the requested side, plus any classifier or model fit
//     error
func (m *Mixed) Fit(xsrc, ysrc Source, opts ...LogisticOption) error {
	if err := checkAgreement(xsrc, ysrc); err != nil {
		return err
	}
	if m.gpm == nil {
		return fmt.Errorf("%w: no map attached", errs.ErrNotFitted)
	}

	y, err := m.resolveY(ysrc)
	if err != nil {
		return err
	}
	x, err := m.resolveX(xsrc)
	if err != nil {
		return err
	}
	rows, _ := x.Dims()
	if len(y) != rows {
		return fmt.Errorf("%w: %d phenotypes for %d design rows",
			errs.ErrDimensionMismatch, len(y), rows)
	}

	xclass, err := m.classDesign(x)
	if err != nil {
		return err
	}
	m.cache.Put(designClass, xclass)

	clf, err := FitLogistic(xclass, Binarize(y, m.threshold), opts...)
	if err != nil {
		return err
	}
	classes, err := clf.Predict(xclass)
	if err != nil {
		return err
	}

	if floats.Sum(classes) == 0 {
		return fmt.Errorf("no genotypes classified alive at threshold %g", m.threshold)
	}
	xfit, yfit := filterAlive(x, y, classes)
	if err := m.model.Fit(xfit, yfit); err != nil {
		return err
	}

	m.clf = clf
	m.classes = classes
	m.yfit = yfit
	m.cache.Put(designFit, xfit)

	return nil
}

// Predict evaluates the pipeline on the selected design: quantitative
// prediction for every row, then viability classification, with rows
// classified dead forced to zero.
//
// Returns:
//   - []float64: one phenotype estimate per design row
//   - error: errs.ErrNotFitted before Fit, plus source resolution
//     errors
func (m *Mixed) Predict(xsrc Source) ([]float64, error) {
	if m.clf == nil {
		return nil, fmt.Errorf("%w: mixed model", errs.ErrNotFitted)
	}

	x, err := m.resolveX(xsrc)
	if err != nil {
		return nil, err
	}
	m.cache.Put(designPredict, x)

	ypred, err := m.model.Predict(x)
	if err != nil {
		return nil, err
	}

	xclass, err := m.classDesign(x)
	if err != nil {
		return nil, err
	}
	classes, err := m.clf.Predict(xclass)
	if err != nil {
		return nil, err
	}
	zeroDead(ypred, classes)

	return ypred, nil
}

// Hypothesis evaluates the pipeline under an externally supplied
// parameter vector: the leading classifier coefficients decide
// viability, the remainder parameterize the quantitative model, and
// rows classified dead are zeroed.
//
// Returns:
//   - []float64: one phenotype estimate per design row
//   - error: errs.ErrNotFitted before Fit, errs.ErrInvalidThetas on a
//     bad split or parameter count
func (m *Mixed) Hypothesis(xsrc Source, thetas []float64) ([]float64, error) {
	y, _, err := m.hypothesize(xsrc, thetas)
	return y, err
}

// hypothesize runs the split evaluation shared by Hypothesis and
// LnLikelihood, returning the zeroed estimates and the class
// probabilities.
func (m *Mixed) hypothesize(xsrc Source, thetas []float64) ([]float64, []float64, error) {
	if m.clf == nil {
		return nil, nil, fmt.Errorf("%w: mixed model", errs.ErrNotFitted)
	}
	nclf := len(m.clf.Coef())
	if len(thetas) <= nclf {
		return nil, nil, fmt.Errorf("%w: %d parameters, need more than the %d classifier coefficients",
			errs.ErrInvalidThetas, len(thetas), nclf)
	}

	x, err := m.resolveX(xsrc)
	if err != nil {
		return nil, nil, err
	}
	xclass, err := m.classDesign(x)
	if err != nil {
		return nil, nil, err
	}

	proba, err := m.clf.Hypothesis(xclass, thetas[:nclf])
	if err != nil {
		return nil, nil, err
	}
	classes := Classes(proba)

	y, err := m.model.Hypothesis(x, thetas[nclf:])
	if err != nil {
		return nil, nil, err
	}
	zeroDead(y, classes)

	return y, proba, nil
}

// LnLikelihood evaluates the mixed log-likelihood of phenotypes under
// a parameter vector: a Bernoulli term for every row plus a Gaussian
// term, weighted by inverse variance, for rows classified alive. A
// nil y falls back to the attached map's phenotypes and upper errors.
//
// Returns:
//   - float64: the log-likelihood; negative infinity when the
//     combined value is not finite
//   - error: errs.ErrNoPhenotypeErrors when no uncertainty is
//     available, errs.ErrDimensionMismatch on length mismatches, plus
//     hypothesis errors
func (m *Mixed) LnLikelihood(xsrc Source, y, yerr []float64, thetas []float64) (float64, error) {
	if y == nil {
		if m.gpm == nil {
			return 0, fmt.Errorf("%w: no y given and no map attached", errs.ErrNotFitted)
		}
		y = m.gpm.Phenotypes()
	}
	if yerr == nil {
		if m.gpm == nil {
			return 0, fmt.Errorf("%w: no yerr given and no map attached", errs.ErrNotFitted)
		}
		upper, _, ok := m.gpm.Errors()
		if !ok {
			return 0, errs.ErrNoPhenotypeErrors
		}
		yerr = upper
	}
	if len(yerr) != len(y) {
		return 0, fmt.Errorf("%w: %d errors for %d phenotypes",
			errs.ErrDimensionMismatch, len(yerr), len(y))
	}

	ymodel, proba, err := m.hypothesize(xsrc, thetas)
	if err != nil {
		return 0, err
	}
	if len(ymodel) != len(y) {
		return 0, fmt.Errorf("%w: %d estimates for %d phenotypes",
			errs.ErrDimensionMismatch, len(ymodel), len(y))
	}

	ybin := Binarize(y, m.threshold)
	var sum float64
	for i := range y {
		ll := ybin[i]*math.Log(proba[i]) + (1-ybin[i])*math.Log(1-proba[i])
		if proba[i] >= 0.5 {
			invs := 1 / (yerr[i] * yerr[i])
			r := y[i] - ymodel[i]
			ll += r*r*invs - math.Log(invs)
		}
		sum += ll
	}

	ln := -0.5 * sum
	if !isFinite(ln) {
		return math.Inf(-1), nil
	}

	return ln, nil
}

// Thetas returns the combined parameter vector, classifier
// coefficients first, then the quantitative model parameters. Nil
// before Fit.
func (m *Mixed) Thetas() []float64 {
	if m.clf == nil {
		return nil
	}

	clf := m.clf.Thetas()
	model := m.model.Thetas()
	out := make([]float64, 0, len(clf)+len(model))
	out = append(out, clf...)
	out = append(out, model...)

	return out
}

// Classifier returns the fitted viability classifier, nil before Fit.
func (m *Mixed) Classifier() *Classifier { return m.clf }

// Model returns the quantitative stage.
func (m *Mixed) Model() Regressor { return m.model }

// Labels returns the quantitative model's interaction labels, nil
// before AttachMap.
func (m *Mixed) Labels() []sites.Label { return m.labels }

// Classes returns the viability labels predicted during Fit, nil
// before Fit.
func (m *Mixed) Classes() []float64 { return m.classes }

// Order returns the quantitative model order.
func (m *Mixed) Order() int { return m.order }

// Threshold returns the viability threshold.
func (m *Mixed) Threshold() float64 { return m.threshold }

// Designs returns the controller's design matrix cache. Keys are
// "obs", "class", "fit", "complete" and "predict".
func (m *Mixed) Designs() *design.Cache { return m.cache }

// classDesign truncates a design to the classifier's order-one
// columns. Labels are enumerated by ascending order, so the order-one
// design is always a prefix of the full design.
func (m *Mixed) classDesign(x *mat.Dense) (*mat.Dense, error) {
	_, cols := x.Dims()
	nclf := len(m.clfLabels)
	if cols < nclf {
		return nil, fmt.Errorf("%w: design has %d columns, classifier needs %d",
			errs.ErrDimensionMismatch, cols, nclf)
	}

	return truncateColumns(x, nclf), nil
}

// checkAgreement enforces the selector contract before any data is
// touched.
func checkAgreement(xsrc, ysrc Source) error {
	if xsrc.Named() != ysrc.Named() {
		return fmt.Errorf("%w: X is %s, y is %s", errs.ErrSourceMismatch, xsrc, ysrc)
	}
	if xsrc.Named() {
		if xsrc.Name() != ysrc.Name() {
			return fmt.Errorf("%w: X is %q, y is %q", errs.ErrSourceMismatch, xsrc.Name(), ysrc.Name())
		}
		return nil
	}

	x, errX := xsrc.matrix()
	y, errY := ysrc.vector()
	if errX != nil || errY != nil {
		// Side errors surface during resolution.
		return nil
	}
	rows, _ := x.Dims()
	if rows != len(y) {
		return fmt.Errorf("%w: X has %d rows, y has %d values", errs.ErrSourceMismatch, rows, len(y))
	}

	return nil
}

// resolveX produces the design matrix for a selector.
func (m *Mixed) resolveX(src Source) (*mat.Dense, error) {
	switch src.Kind() {
	case SourceMatrix:
		return src.matrix()
	case SourceVector:
		return nil, fmt.Errorf("%w: vector source cannot provide a design matrix", errs.ErrInvalidSource)
	}

	if m.gpm == nil {
		return nil, fmt.Errorf("%w: no map attached for source %q", errs.ErrNotFitted, src.Name())
	}

	switch src.Kind() {
	case SourceObserved:
		x, _ := m.cache.Get(designObserved)
		return x, nil
	case SourceFitted:
		x, ok := m.cache.Get(designFit)
		if !ok {
			return nil, fmt.Errorf("%w: no fitted design cached", errs.ErrNotFitted)
		}
		return x, nil
	case SourceComplete:
		return m.completeDesign()
	default:
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidSource, src)
	}
}

// resolveY produces the phenotype vector for a selector.
func (m *Mixed) resolveY(src Source) ([]float64, error) {
	switch src.Kind() {
	case SourceVector:
		return src.vector()
	case SourceMatrix:
		return nil, fmt.Errorf("%w: matrix source cannot provide phenotypes", errs.ErrInvalidSource)
	}

	if m.gpm == nil {
		return nil, fmt.Errorf("%w: no map attached for source %q", errs.ErrNotFitted, src.Name())
	}

	switch src.Kind() {
	case SourceObserved, SourceComplete:
		return m.gpm.Phenotypes(), nil
	case SourceFitted:
		if m.yfit == nil {
			return nil, fmt.Errorf("%w: no fitted phenotypes cached", errs.ErrNotFitted)
		}
		return m.yfit, nil
	default:
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidSource, src)
	}
}

// completeDesign resolves the "complete" selector: the observed design
// once the map has been verified to cover every possible genotype.
// Rows stay in map order so they line up with the map's phenotypes.
func (m *Mixed) completeDesign() (*mat.Dense, error) {
	if x, ok := m.cache.Get(designComplete); ok {
		return x, nil
	}

	binary := m.gpm.Binary()
	n := 1 << uint(m.gpm.Length())
	if len(binary) != n {
		return nil, fmt.Errorf("%w: need %d genotypes, have %d",
			errs.ErrIncompleteGenotypeSet, n, len(binary))
	}
	seen := make([]bool, n)
	for _, b := range binary {
		idx := design.Index(b)
		if seen[idx] {
			return nil, fmt.Errorf("%w: duplicate genotype %q",
				errs.ErrIncompleteGenotypeSet, b)
		}
		seen[idx] = true
	}

	x, ok := m.cache.Get(designObserved)
	if !ok {
		return nil, fmt.Errorf("%w: no observed design cached", errs.ErrNotFitted)
	}
	m.cache.Put(designComplete, x)

	return x, nil
}

// truncateColumns copies the leading columns of a design.
func truncateColumns(x *mat.Dense, cols int) *mat.Dense {
	rows, _ := x.Dims()
	out := mat.NewDense(rows, cols, nil)
	out.Copy(x.Slice(0, rows, 0, cols))

	return out
}

// filterAlive keeps the design rows and phenotypes classified alive.
func filterAlive(x *mat.Dense, y, classes []float64) (*mat.Dense, []float64) {
	rows, cols := x.Dims()
	var keep []int
	for i := 0; i < rows; i++ {
		if classes[i] == 1 {
			keep = append(keep, i)
		}
	}

	xfit := mat.NewDense(len(keep), cols, nil)
	yfit := make([]float64, len(keep))
	for dst, src := range keep {
		xfit.SetRow(dst, mat.Row(nil, src, x))
		yfit[dst] = y[src]
	}

	return xfit, yfit
}

// zeroDead forces estimates for rows classified dead to zero.
func zeroDead(y, classes []float64) {
	for i, c := range classes {
		if c == 0 {
			y[i] = 0
		}
	}
}
