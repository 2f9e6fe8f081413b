// Package sampler provides a Metropolis-Hastings ensemble sampler for
// posterior exploration of fitted model coefficients.
//
// The sampler runs independent Gaussian random-walk walkers over a
// log-probability function, typically a mixed model's likelihood closed over
// observed data:
//
//	mh, _ := sampler.New(16, func(theta []float64) float64 {
//		lnp, err := model.LnLikelihood(genotypes, phenotypes, theta)
//		if err != nil {
//			return math.Inf(-1)
//		}
//		return lnp
//	}, sampler.WithStepScale(0.05), sampler.WithSeed(42), sampler.WithThin(10))
//
//	chain, err := mh.Run(ctx, start, 10000)
//	summaries, _ := sampler.Summarize(chain, 0.95)
//
// Run collects recorded steps in memory; RunStore streams them into a
// samplestore.Store in batches, which keeps long runs bounded in memory and
// makes the chain durable across process restarts. Both honor context
// cancellation between steps and hand back the samples recorded so far.
package sampler
