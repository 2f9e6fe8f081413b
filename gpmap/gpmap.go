package gpmap

import (
	"fmt"
	"math"
	"slices"

	"github.com/gpmaplab/epistat/errs"
	"github.com/gpmaplab/epistat/internal/options"
	"github.com/gpmaplab/epistat/sites"
)

// Map is an immutable genotype-phenotype map: observed genotypes with
// their binary encoding relative to a wildtype reference, paired with
// phenotype measurements and optional error bounds.
//
// Accessors return the Map's internal slices to avoid copying on every
// fit; callers must not modify them.
type Map struct {
	wildtype   string
	genotypes  []string
	binary     []string
	phenotypes []float64

	upper     []float64
	lower     []float64
	hasErrors bool

	// logBase is 0 when phenotypes are on their original scale.
	logBase float64
}

// New builds a genotype-phenotype map from a wildtype reference,
// observed genotypes, and their phenotypes.
//
// Parameters:
//   - wildtype: reference genotype; defines the site count
//   - genotypes: observed genotypes, each the same length as wildtype
//   - phenotypes: one measurement per genotype
//   - opts: WithErrors, WithAsymmetricErrors, WithLogTransform
//
// Returns:
//   - *Map: the constructed map
//   - error: errs.ErrNoGenotypes, errs.ErrGenotypeLengthMismatch,
//     errs.ErrDimensionMismatch, or errs.ErrNonPositivePhenotype when
//     a log transform meets a phenotype <= 0
//
// Example:
//
//	m, err := gpmap.New("AV",
//	    []string{"AV", "TV", "AC", "TC"},
//	    []float64{1.0, 1.2, 0.9, 1.8},
//	    gpmap.WithErrors([]float64{0.1, 0.1, 0.1, 0.1}),
//	)
func New(wildtype string, genotypes []string, phenotypes []float64, opts ...Option) (*Map, error) {
	binary, err := sites.Encode(wildtype, genotypes)
	if err != nil {
		return nil, err
	}
	if len(phenotypes) != len(genotypes) {
		return nil, fmt.Errorf("%w: %d genotypes, %d phenotypes",
			errs.ErrDimensionMismatch, len(genotypes), len(phenotypes))
	}

	m := &Map{
		wildtype:   wildtype,
		genotypes:  slices.Clone(genotypes),
		binary:     binary,
		phenotypes: slices.Clone(phenotypes),
	}
	if err := options.Apply(m, opts...); err != nil {
		return nil, err
	}

	if m.hasErrors {
		if len(m.upper) != len(m.phenotypes) || len(m.lower) != len(m.phenotypes) {
			return nil, fmt.Errorf("%w: %d phenotypes, %d upper errors, %d lower errors",
				errs.ErrDimensionMismatch, len(m.phenotypes), len(m.upper), len(m.lower))
		}
	}

	if m.logBase != 0 {
		if err := m.applyLogTransform(); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// applyLogTransform rewrites phenotypes as log_base(y) and propagates
// each error bound independently: upper' = log(y+e) - log(y) and
// lower' = log(y) - log(y-e). A lower bound that reaches zero or below
// becomes +Inf on the log scale.
func (m *Map) applyLogTransform() error {
	ln := math.Log(m.logBase)

	transformed := make([]float64, len(m.phenotypes))
	for i, y := range m.phenotypes {
		if y <= 0 {
			return fmt.Errorf("%w: phenotype %g at index %d", errs.ErrNonPositivePhenotype, y, i)
		}
		transformed[i] = math.Log(y) / ln
	}

	if m.hasErrors {
		upper := make([]float64, len(m.phenotypes))
		lower := make([]float64, len(m.phenotypes))
		for i, y := range m.phenotypes {
			upper[i] = math.Log(y+m.upper[i])/ln - transformed[i]
			if rem := y - m.lower[i]; rem > 0 {
				lower[i] = transformed[i] - math.Log(rem)/ln
			} else {
				lower[i] = math.Inf(1)
			}
		}
		m.upper = upper
		m.lower = lower
	}

	m.phenotypes = transformed

	return nil
}

// Len returns the number of observed genotypes.
func (m *Map) Len() int { return len(m.genotypes) }

// Length returns the number of mutated sites (the wildtype length).
func (m *Map) Length() int { return len(m.wildtype) }

// Wildtype returns the reference genotype.
func (m *Map) Wildtype() string { return m.wildtype }

// Genotypes returns the observed genotypes as given at construction.
func (m *Map) Genotypes() []string { return m.genotypes }

// Binary returns the binary encoding of each genotype relative to the
// wildtype, index-aligned with Genotypes.
func (m *Map) Binary() []string { return m.binary }

// Phenotypes returns the phenotype measurements, log-transformed when
// the map was built with WithLogTransform.
func (m *Map) Phenotypes() []float64 { return m.phenotypes }

// Errors returns the upper and lower error bounds per phenotype. The
// ok result is false when the map carries no measurement errors.
func (m *Map) Errors() (upper, lower []float64, ok bool) {
	if !m.hasErrors {
		return nil, nil, false
	}

	return m.upper, m.lower, true
}

// LogTransformed reports whether phenotypes are on a log scale.
func (m *Map) LogTransformed() bool { return m.logBase != 0 }

// LogBase returns the log-transform base, or 0 when phenotypes are on
// their original scale.
func (m *Map) LogBase() float64 { return m.logBase }
