// Package epimap provides the labeled coefficient map produced by the
// epistasis models.
//
// A Map pairs an ordered list of interaction labels with coefficient
// values and optional error bounds. Label order is fixed at
// construction and matches the canonical enumeration order used for
// design-matrix columns, so a model can assign its solution vector to
// the map without reordering.
package epimap
