package gpmap

import (
	"fmt"
	"slices"

	"github.com/gpmaplab/epistat/internal/options"
)

// Option configures a Map during construction.
type Option = options.Option[*Map]

// WithErrors attaches symmetric measurement errors: the same bound is
// used above and below each phenotype. Length must match the phenotype
// count.
func WithErrors(stdErrs []float64) Option {
	return options.NoError(func(m *Map) {
		m.upper = slices.Clone(stdErrs)
		m.lower = slices.Clone(stdErrs)
		m.hasErrors = true
	})
}

// WithAsymmetricErrors attaches separate upper and lower measurement
// error bounds per phenotype. Both lengths must match the phenotype
// count.
func WithAsymmetricErrors(upper, lower []float64) Option {
	return options.NoError(func(m *Map) {
		m.upper = slices.Clone(upper)
		m.lower = slices.Clone(lower)
		m.hasErrors = true
	})
}

// WithLogTransform converts phenotypes to log base during
// construction and propagates error bounds independently onto the log
// scale. The base must be greater than 1 (use 10 for the conventional
// decade scale).
func WithLogTransform(base float64) Option {
	return options.New(func(m *Map) error {
		if base <= 1 {
			return fmt.Errorf("invalid log base: %g, must be greater than 1", base)
		}
		m.logBase = base

		return nil
	})
}
