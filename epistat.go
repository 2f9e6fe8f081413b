// Package epistat decomposes genotype-phenotype maps into epistatic
// interaction coefficients and fits nonlinear models on top of the
// decomposition.
//
// A genotype-phenotype map assigns a measured phenotype to each genotype in
// a combinatorially complete (or partially sampled) set of sequence
// variants. Epistat expresses such a map as a weighted sum of interaction
// terms: a zeroth-order intercept, first-order (additive) site effects,
// second-order pairwise interactions, and so on up to the full sequence
// length.
//
// # Core Features
//
//   - Exact local (biochemical) and global (statistical/Hadamard)
//     decompositions of complete maps
//   - Least-squares projection onto truncated interaction orders for
//     incomplete or noisy maps
//   - Mixed classifier/regression models that gate dead genotypes through a
//     logistic classifier before regressing the survivors
//   - Box-Cox style power transforms for nonlinear phenotype scales
//   - Metropolis-Hastings ensemble sampling of coefficient posteriors
//   - Columnar binary chunk format with optional compression for persisting
//     long sampling chains
//
// # Basic Usage
//
// Fitting an exact local decomposition of a two-site map:
//
//	import "github.com/gpmaplab/epistat"
//
//	wildtype := "AA"
//	genotypes := []string{"AA", "AT", "TA", "TT"}
//	phenotypes := []float64{0.1, 0.4, 0.3, 1.2}
//
//	local, _ := epistat.FitLocal(wildtype, genotypes, phenotypes)
//
//	pairwise, _ := local.Map().GetOrder(2)
//	for key, value := range pairwise {
//	    fmt.Printf("%s: %f\n", key, value)
//	}
//
// Fitting a mixed model that classifies dead genotypes before regressing:
//
//	model, _ := epistat.NewMixed(2, 0.05)
//	gpm, _ := gpmap.New(wildtype, genotypes, phenotypes)
//	_ = model.AttachMap(gpm)
//
//	xsrc, _ := epistat.ParseSource("obs")
//	ysrc, _ := epistat.ParseSource("obs")
//	_ = model.Fit(xsrc, ysrc)
//
//	predicted, _ := model.Predict(xsrc)
//
// # Choosing a Model
//
// Use FitLocal when the map is complete and phenotypes should be read as
// effects of mutations away from a chosen wildtype. Use FitGlobal when
// coefficients should be averages over all genetic backgrounds (the
// Hadamard/statistical formulation). Use FitProjected when the map is
// incomplete or noisy and only interactions up to a fixed order are wanted.
// Use a Mixed model when some genotypes are nonfunctional and would
// otherwise distort the regression.
//
// # Persistence Quick Start
//
// Sampling chains stream into an append-only chunked store:
//
//	store, _ := samplestore.Create("chain.epst", 16)
//	defer store.Close()
//
//	mh, _ := sampler.New(16, lnprob, sampler.WithThin(10))
//	_ = mh.RunStore(ctx, start, 100000, store)
//
//	step, walker, theta, _ := store.MostProbable()
//
// # Package Structure
//
// This package provides convenient top-level wrappers around the gpmap and
// models packages, simplifying the most common use cases. For fine-grained
// control use the subpackages directly: gpmap (map construction), sites
// (interaction labels), design (model matrices), epimap (coefficient maps),
// models (decompositions and mixed models), sampler (posterior sampling)
// and samplestore (chain persistence).
package epistat

import (
	"github.com/gpmaplab/epistat/gpmap"
	"github.com/gpmaplab/epistat/internal/hash"
	"github.com/gpmaplab/epistat/models"
)

// FitLocal builds a genotype-phenotype map and fits the exact local
// (biochemical) decomposition, in which each coefficient measures the
// effect of its mutations in the wildtype background.
//
// The map must be combinatorially complete: all 2^L genotype combinations
// of the wildtype and mutant states must be present.
//
// Parameters:
//   - wildtype: Reference sequence the coefficients are anchored to
//   - genotypes: Observed sequences, all the same length as the wildtype
//   - phenotypes: One measured phenotype per genotype
//   - opts: Optional map configuration (measurement errors, log transform)
//
// Returns:
//   - *models.Local: Fitted decomposition with coefficients for every
//     interaction order
//   - error: Map construction or completeness errors
//
// Example:
//
//	local, err := epistat.FitLocal("AA",
//	    []string{"AA", "AT", "TA", "TT"},
//	    []float64{0.1, 0.4, 0.3, 1.2})
//	if err != nil {
//	    return err
//	}
//	coefs := local.Coefficients()
func FitLocal(wildtype string, genotypes []string, phenotypes []float64, opts ...gpmap.Option) (*models.Local, error) {
	m, err := gpmap.New(wildtype, genotypes, phenotypes, opts...)
	if err != nil {
		return nil, err
	}

	return models.FitLocal(m)
}

// FitGlobal builds a genotype-phenotype map and fits the exact global
// (statistical) decomposition, in which each coefficient is the Hadamard
// average of its interaction over all genetic backgrounds.
//
// The map must be combinatorially complete, like FitLocal. Global
// coefficients are background-averaged and therefore invariant under the
// choice of wildtype.
//
// Parameters:
//   - wildtype: Reference sequence defining the site states
//   - genotypes: Observed sequences, all the same length as the wildtype
//   - phenotypes: One measured phenotype per genotype
//   - opts: Optional map configuration (measurement errors, log transform)
//
// Returns:
//   - *models.Global: Fitted decomposition with coefficients for every
//     interaction order
//   - error: Map construction or completeness errors
func FitGlobal(wildtype string, genotypes []string, phenotypes []float64, opts ...gpmap.Option) (*models.Global, error) {
	m, err := gpmap.New(wildtype, genotypes, phenotypes, opts...)
	if err != nil {
		return nil, err
	}

	return models.FitGlobal(m)
}

// FitProjected builds a genotype-phenotype map and least-squares projects
// it onto interactions up to the given order.
//
// Unlike the exact decompositions, projection tolerates incomplete maps:
// only the observed genotypes enter the regression. The fit quality is
// available as Score() on the result.
//
// Parameters:
//   - wildtype: Reference sequence the labels are anchored to
//   - genotypes: Observed sequences, all the same length as the wildtype
//   - phenotypes: One measured phenotype per genotype
//   - order: Highest interaction order to keep, in [0, len(wildtype)]
//   - opts: Optional map configuration (measurement errors, log transform)
//
// Returns:
//   - *models.Projected: Truncated decomposition with an R² fit score
//   - error: Map construction errors or an out-of-range order
//
// Example:
//
//	// Keep additive and pairwise terms only
//	proj, err := epistat.FitProjected(wildtype, genotypes, phenotypes, 2)
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("R² = %f\n", proj.Score())
func FitProjected(wildtype string, genotypes []string, phenotypes []float64, order int, opts ...gpmap.Option) (*models.Projected, error) {
	m, err := gpmap.New(wildtype, genotypes, phenotypes, opts...)
	if err != nil {
		return nil, err
	}

	return models.FitProjected(m, order)
}

// NewMixed creates a mixed classifier/regression model: a logistic
// classifier separates genotypes below the phenotype threshold ("dead")
// from those above it, and the regression stage fits only the survivors.
//
// The regression stage defaults to a power-transform model; use
// models.WithLinearModel for plain least squares, and models.WithModelType
// to switch the design encoding between "local" and "global". Attach a map
// with AttachMap before fitting.
//
// Parameters:
//   - order: Highest interaction order in the model matrix
//   - threshold: Phenotype value separating dead from functional genotypes
//   - opts: Optional model configuration
//
// Returns:
//   - *models.Mixed: Unfitted mixed model
//   - error: Invalid order or option errors
func NewMixed(order int, threshold float64, opts ...models.MixedOption) (*models.Mixed, error) {
	return models.NewMixed(order, threshold, opts...)
}

// ParseSource parses a data-source selector for Mixed model fit and
// predict calls: "obs" selects the attached map's observed genotypes,
// "complete" the full genotype enumeration, and "fit" the matrix retained
// by the previous Fit call.
//
// Returns errs.ErrInvalidSource for any other string.
//
// Example:
//
//	xsrc, _ := epistat.ParseSource("obs")
//	ysrc, _ := epistat.ParseSource("obs")
//	err := model.Fit(xsrc, ysrc)
func ParseSource(tag string) (models.Source, error) {
	return models.ParseSource(tag)
}

// DatasetID converts a dataset name to its 64-bit identifier using xxHash64.
//
// Sample chunks address datasets by these IDs; the encoder computes them
// internally when datasets are started by name. Use this function to
// pre-compute IDs for ID-addressed chunk building or lookups:
//
//	samplesID := epistat.DatasetID("samples")
//	for row := range chunk.Values(samplesID) {
//	    // ...
//	}
func DatasetID(name string) uint64 {
	return hash.ID(name)
}
