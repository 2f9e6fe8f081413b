// Package gpmap provides the genotype-phenotype map container consumed
// by the epistasis models.
//
// A Map binds a wildtype reference, a set of observed genotypes, their
// binary encoding, and the measured phenotypes together with optional
// measurement errors. Errors may be symmetric (one bound) or asymmetric
// (separate upper and lower bounds); a base-b log transform converts
// phenotypes in place and propagates each error bound independently
// onto the log scale.
//
// The container is immutable after construction: models read from it
// but never write back, so one Map can safely back several fits.
package gpmap
