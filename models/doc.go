// Package models implements the epistasis decomposition models.
//
// Three basis models recover interaction coefficients from a
// genotype-phenotype map: Local inverts the full 0/1 design exactly,
// Global applies the weighted Hadamard transform over the complete
// genotype set, and Projected least-squares fits a truncated label
// basis and reports a goodness-of-fit score. Each returns a labeled
// coefficient map with propagated error bounds.
//
// On top of the basis models sit the nonlinear power-transform stage,
// a ridge-IRLS logistic viability classifier, and the Mixed
// controller, which chains classification and regression: genotypes
// classified dead are removed before the quantitative fit and forced
// to zero in every prediction. The controller exposes a combined
// coefficient vector (classifier first) and a mixed
// Bernoulli-plus-Gaussian log-likelihood for posterior sampling.
package models
