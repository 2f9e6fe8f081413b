package models

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/gpmaplab/epistat/design"
	"github.com/gpmaplab/epistat/epimap"
	"github.com/gpmaplab/epistat/errs"
	"github.com/gpmaplab/epistat/gpmap"
	"github.com/gpmaplab/epistat/sites"
)

// Global is the background-averaged decomposition: coefficients are
// recovered by a weighted Walsh-Hadamard transform of the phenotype
// vector, so each coefficient reflects the average effect of an
// interaction across all genetic backgrounds.
type Global struct {
	gpm    *gpmap.Map
	labels []sites.Label
	coef   []float64
	emap   *epimap.Map
}

// FitGlobal decomposes the map's phenotypes into background-averaged
// epistatic coefficients via the transform beta = W * H * y, where H
// is the Sylvester-ordered Hadamard matrix and W the diagonal weight
// matrix derived from each genotype's mutation count. The map must
// hold the complete genotype set: every binary genotype of the map's
// length exactly once.
//
// When the map carries measurement errors, coefficient errors are
// propagated through W * H with upper and lower bounds handled
// independently.
//
// Returns:
//   - *Global: the fitted model
//   - error: errs.ErrIncompleteGenotypeSet when genotypes are missing
//     or duplicated
func FitGlobal(m *gpmap.Map) (*Global, error) {
	length := m.Length()
	binary := m.Binary()
	n := 1 << uint(length)
	if len(binary) != n {
		return nil, fmt.Errorf("%w: need %d genotypes of length %d, have %d",
			errs.ErrIncompleteGenotypeSet, n, length, len(binary))
	}

	// Phenotypes and errors reordered to Hadamard (binary index) order.
	perm := make([]int, n)
	seen := make([]bool, n)
	for i, b := range binary {
		idx := design.Index(b)
		if seen[idx] {
			return nil, fmt.Errorf("%w: duplicate genotype %q",
				errs.ErrIncompleteGenotypeSet, b)
		}
		seen[idx] = true
		perm[i] = idx
	}

	y := make([]float64, n)
	for i, p := range m.Phenotypes() {
		y[perm[i]] = p
	}

	h := design.Hadamard(n)
	w := design.HadamardWeights(sortedBinary(length))

	var t mat.Dense
	t.Mul(w, h)

	var beta mat.VecDense
	beta.MulVec(&t, mat.NewVecDense(n, y))

	labels, err := sites.Enumerate(length, length)
	if err != nil {
		return nil, err
	}

	// The transform emits coefficients in genotype-mask order; map
	// each enumeration label back to its mask position.
	coef := make([]float64, n)
	for i, label := range labels {
		coef[i] = beta.AtVec(design.LabelMask(label, length))
	}

	emap := epimap.New(labels)
	if err := emap.SetValues(coef); err != nil {
		return nil, err
	}
	if upper, lower, ok := m.Errors(); ok {
		up := reorderBounds(propagate(&t, reorder(upper, perm)), labels, length)
		lo := reorderBounds(propagate(&t, reorder(lower, perm)), labels, length)
		if err := emap.SetAsymmetricErrors(up, lo); err != nil {
			return nil, err
		}
	}

	return &Global{
		gpm:    m,
		labels: labels,
		coef:   coef,
		emap:   emap,
	}, nil
}

// sortedBinary lists every binary genotype of the given length in
// ascending binary-index order.
func sortedBinary(length int) []string {
	complete, _ := sites.Complete(length)
	return complete
}

// reorder scatters values into binary-index positions.
func reorder(values []float64, perm []int) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[perm[i]] = v
	}

	return out
}

// reorderBounds gathers mask-ordered propagated bounds back into
// enumeration label order.
func reorderBounds(bounds []float64, labels []sites.Label, length int) []float64 {
	out := make([]float64, len(labels))
	for i, label := range labels {
		out[i] = bounds[design.LabelMask(label, length)]
	}

	return out
}

// Coefficients returns the background-averaged coefficients in
// canonical label order.
func (g *Global) Coefficients() []float64 { return g.coef }

// Map returns the labeled coefficient map.
func (g *Global) Map() *epimap.Map { return g.emap }

// Labels returns the interaction labels in canonical order.
func (g *Global) Labels() []sites.Label { return g.labels }

// Order returns the model order, which for the global decomposition is
// always the genotype length.
func (g *Global) Order() int { return g.gpm.Length() }
