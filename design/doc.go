// Package design builds the model matrices that connect genotypes to
// interaction terms, plus the Hadamard machinery behind the global
// decomposition.
//
// Two encodings are supported. EncodingLocal produces 0/1 dummy
// coding: a genotype's row carries 1 in a label's column when the
// genotype is mutated at every site the label spans. EncodingGlobal
// produces the ±1 Walsh coding used by Hadamard-basis models. Both
// place the intercept in column 0 and order the remaining columns by
// the canonical label enumeration.
//
// The package also provides the Sylvester Hadamard matrix, the
// per-genotype diagonal weight matrix of the global decomposition, and
// a small cache for reusing built matrices across fit and predict
// calls on the same data.
package design
