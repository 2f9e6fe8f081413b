package design

import (
	"gonum.org/v1/gonum/mat"

	"github.com/gpmaplab/epistat/sites"
)

// Hadamard returns the n x n Sylvester Hadamard matrix. The entry at
// (i, j) is (-1) raised to popcount(i AND j), so transforming a
// phenotype vector indexed by genotype bit pattern yields Walsh
// coefficients indexed by interaction bit pattern.
//
// n must be a positive power of two; Hadamard panics otherwise, in
// line with the mat package's treatment of impossible dimensions.
func Hadamard(n int) *mat.Dense {
	if n < 1 || n&(n-1) != 0 {
		panic("design: hadamard dimension must be a positive power of two")
	}

	h := mat.NewDense(n, n, nil)
	h.Set(0, 0, 1)
	for size := 1; size < n; size *= 2 {
		for i := 0; i < size; i++ {
			for j := 0; j < size; j++ {
				v := h.At(i, j)
				h.Set(i, j+size, v)
				h.Set(i+size, j, v)
				h.Set(i+size, j+size, -v)
			}
		}
	}

	return h
}

// HadamardWeights returns the diagonal weight matrix of the global
// decomposition over the given binary genotypes: for a genotype with k
// mutations out of L sites, the weight is (-1)^k / 2^(L-k).
//
// The genotype order defines the diagonal order, so callers pass the
// canonical complete enumeration when composing with Hadamard. The
// binary slice must not be empty.
func HadamardWeights(binary []string) *mat.DiagDense {
	length := len(binary[0])
	w := mat.NewDiagDense(len(binary), nil)
	for g, b := range binary {
		k := sites.MutationCount(b)
		sign := 1.0
		if k%2 == 1 {
			sign = -1.0
		}
		w.SetDiag(g, sign/float64(int(1)<<(length-k)))
	}

	return w
}

// Index returns the position of a binary genotype within the canonical
// complete ordering: the string read as a base-2 integer with the
// first site as the most significant bit ("000" = 0, "001" = 1, ...).
func Index(binary string) int {
	idx := 0
	for i := 0; i < len(binary); i++ {
		idx <<= 1
		if binary[i] == '1' {
			idx |= 1
		}
	}

	return idx
}

// LabelMask returns the Hadamard row index of an interaction label for
// genotypes of the given length: bit (length - s) is set for every
// site s the label spans, and the intercept maps to 0.
//
// The Walsh coefficient at this index is the global coefficient of the
// label, which is how mask-ordered Hadamard output is realigned to the
// canonical label enumeration.
func LabelMask(label sites.Label, length int) int {
	if label.Order() == 0 {
		return 0
	}

	mask := 0
	for _, s := range label {
		mask |= 1 << (length - s)
	}

	return mask
}
