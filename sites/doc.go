// Package sites defines interaction labels and the binary genotype
// encoding shared by the epistasis models.
//
// A label identifies one additive or epistatic term as the subset of
// mutated sites it spans: Label{0} is the zeroth-order intercept,
// Label{3} the additive effect of site 3, and Label{1, 2} the pairwise
// interaction between sites 1 and 2. Site indices are 1-based.
//
// Labels are enumerated in a fixed canonical order (by order, then
// lexicographically within each order) so that coefficient vectors,
// design-matrix columns, and epistasis maps all agree on term
// positions without carrying explicit label metadata between them.
package sites
