package epimap

import (
	"fmt"
	"slices"

	"github.com/gpmaplab/epistat/errs"
	"github.com/gpmaplab/epistat/sites"
)

// Map is an ordered mapping from interaction labels to coefficient
// values and error bounds.
//
// Invariants: the label order never changes after construction, and
// the value and error slices always have exactly one entry per label.
type Map struct {
	labels []sites.Label
	values []float64

	upper     []float64
	lower     []float64
	hasErrors bool

	// index maps label keys to their position in labels.
	index map[string]int

	// order is the highest label order present.
	order int
}

// New builds a coefficient map over the given labels with all values
// zero. The labels slice is aliased, not copied; callers must not
// modify it afterwards.
func New(labels []sites.Label) *Map {
	m := &Map{
		labels: labels,
		values: make([]float64, len(labels)),
		index:  make(map[string]int, len(labels)),
	}
	for i, label := range labels {
		m.index[label.Key()] = i
		if o := label.Order(); o > m.order {
			m.order = o
		}
	}

	return m
}

// Len returns the number of labels.
func (m *Map) Len() int { return len(m.labels) }

// Order returns the highest interaction order present in the map.
func (m *Map) Order() int { return m.order }

// Labels returns the labels in their fixed enumeration order.
func (m *Map) Labels() []sites.Label { return m.labels }

// Values returns the coefficient values, index-aligned with Labels.
func (m *Map) Values() []float64 { return m.values }

// Errors returns the upper and lower coefficient error bounds. The ok
// result is false when no errors have been set.
func (m *Map) Errors() (upper, lower []float64, ok bool) {
	if !m.hasErrors {
		return nil, nil, false
	}

	return m.upper, m.lower, true
}

// Get returns the coefficient value for the given label. The ok result
// is false when the label is not part of the map.
func (m *Map) Get(label sites.Label) (float64, bool) {
	i, ok := m.index[label.Key()]
	if !ok {
		return 0, false
	}

	return m.values[i], true
}

// GetKey returns the coefficient value for a label in its canonical
// key form (for example "1,2").
func (m *Map) GetKey(key string) (float64, bool) {
	i, ok := m.index[key]
	if !ok {
		return 0, false
	}

	return m.values[i], true
}

// SetValues replaces all coefficient values. The slice is copied.
//
// Returns errs.ErrLabelCountMismatch when the length differs from the
// label count.
func (m *Map) SetValues(values []float64) error {
	if len(values) != len(m.labels) {
		return fmt.Errorf("%w: %d values for %d labels",
			errs.ErrLabelCountMismatch, len(values), len(m.labels))
	}
	m.values = slices.Clone(values)

	return nil
}

// SetErrors attaches symmetric coefficient errors: the same bound is
// used above and below each value.
//
// Returns errs.ErrLabelCountMismatch when the length differs from the
// label count.
func (m *Map) SetErrors(stdErrs []float64) error {
	if len(stdErrs) != len(m.labels) {
		return fmt.Errorf("%w: %d errors for %d labels",
			errs.ErrLabelCountMismatch, len(stdErrs), len(m.labels))
	}
	m.upper = slices.Clone(stdErrs)
	m.lower = slices.Clone(stdErrs)
	m.hasErrors = true

	return nil
}

// SetAsymmetricErrors attaches separate upper and lower coefficient
// error bounds.
//
// Returns errs.ErrLabelCountMismatch when either length differs from
// the label count.
func (m *Map) SetAsymmetricErrors(upper, lower []float64) error {
	if len(upper) != len(m.labels) || len(lower) != len(m.labels) {
		return fmt.Errorf("%w: %d upper / %d lower errors for %d labels",
			errs.ErrLabelCountMismatch, len(upper), len(lower), len(m.labels))
	}
	m.upper = slices.Clone(upper)
	m.lower = slices.Clone(lower)
	m.hasErrors = true

	return nil
}

// GetOrder returns the coefficients of exactly the given interaction
// order, keyed by canonical label key.
//
// Returns errs.ErrOrderOutOfRange when the order is negative or above
// the map's highest order.
func (m *Map) GetOrder(order int) (map[string]float64, error) {
	if order < 0 || order > m.order {
		return nil, fmt.Errorf("%w: order %d not in [0, %d]", errs.ErrOrderOutOfRange, order, m.order)
	}

	out := make(map[string]float64)
	for i, label := range m.labels {
		if label.Order() == order {
			out[label.Key()] = m.values[i]
		}
	}

	return out, nil
}

// GetOrderErrors returns the upper and lower error bounds of exactly
// the given interaction order, keyed by canonical label key. Both maps
// are nil when no errors have been set.
//
// Returns errs.ErrOrderOutOfRange when the order is negative or above
// the map's highest order.
func (m *Map) GetOrderErrors(order int) (upper, lower map[string]float64, err error) {
	if order < 0 || order > m.order {
		return nil, nil, fmt.Errorf("%w: order %d not in [0, %d]", errs.ErrOrderOutOfRange, order, m.order)
	}
	if !m.hasErrors {
		return nil, nil, nil
	}

	upper = make(map[string]float64)
	lower = make(map[string]float64)
	for i, label := range m.labels {
		if label.Order() == order {
			upper[label.Key()] = m.upper[i]
			lower[label.Key()] = m.lower[i]
		}
	}

	return upper, lower, nil
}
