package sampler

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"github.com/gpmaplab/epistat/errs"
)

// Chain holds the recorded output of a sampler run.
type Chain struct {
	// Steps holds the absolute step index of each recorded ensemble state.
	Steps []int64

	// Samples holds the recorded coefficient vectors, indexed
	// [recorded step][walker][coefficient].
	Samples [][][]float64

	// LogProbs holds the log-probability of each walker at each recorded
	// step, indexed [recorded step][walker].
	LogProbs [][]float64

	accepted int64
	proposed int64
}

// CoefSummary summarizes the marginal posterior of a single coefficient
// across all recorded steps and walkers.
type CoefSummary struct {
	// Mean is the posterior mean.
	Mean float64
	// Median is the posterior median.
	Median float64
	// Lower and Upper bound the central credible interval requested from
	// Summarize.
	Lower float64
	Upper float64
}

// Len returns the number of recorded ensemble states.
func (c *Chain) Len() int {
	return len(c.Steps)
}

// AcceptanceRate returns the fraction of proposals accepted across all
// walkers and steps. Returns 0 for a chain with no proposals.
func (c *Chain) AcceptanceRate() float64 {
	if c.proposed == 0 {
		return 0
	}

	return float64(c.accepted) / float64(c.proposed)
}

// Summarize computes per-coefficient marginal summaries over all recorded
// steps and walkers.
//
// The q parameter selects the central credible interval: q=0.95 yields the
// [2.5%, 97.5%] interval.
//
// Parameters:
//   - chain: A chain with at least one recorded step
//   - q: Credible interval mass, in (0, 1)
//
// Returns:
//   - []CoefSummary: One summary per coefficient
//   - error: ErrEmptyChain or an invalid q
func Summarize(chain *Chain, q float64) ([]CoefSummary, error) {
	if chain == nil || chain.Len() == 0 {
		return nil, errs.ErrEmptyChain
	}

	if q <= 0 || q >= 1 || math.IsNaN(q) {
		return nil, fmt.Errorf("credible interval mass must be in (0, 1), got %v", q)
	}

	ncoef := len(chain.Samples[0][0])
	nwalkers := len(chain.Samples[0])
	flat := make([]float64, 0, chain.Len()*nwalkers)

	lowerPct := 100 * (1 - q) / 2
	upperPct := 100 - lowerPct

	summaries := make([]CoefSummary, ncoef)
	for coef := 0; coef < ncoef; coef++ {
		flat = flat[:0]
		for _, ensemble := range chain.Samples {
			for _, theta := range ensemble {
				flat = append(flat, theta[coef])
			}
		}

		mean, err := stats.Mean(flat)
		if err != nil {
			return nil, fmt.Errorf("failed to summarize coefficient %d: %w", coef, err)
		}

		median, err := stats.Median(flat)
		if err != nil {
			return nil, fmt.Errorf("failed to summarize coefficient %d: %w", coef, err)
		}

		lower, err := stats.Percentile(flat, lowerPct)
		if err != nil {
			return nil, fmt.Errorf("failed to summarize coefficient %d: %w", coef, err)
		}

		upper, err := stats.Percentile(flat, upperPct)
		if err != nil {
			return nil, fmt.Errorf("failed to summarize coefficient %d: %w", coef, err)
		}

		summaries[coef] = CoefSummary{
			Mean:   mean,
			Median: median,
			Lower:  lower,
			Upper:  upper,
		}
	}

	return summaries, nil
}

// MostProbable returns the recorded step, walker index and coefficient
// vector of the sample with the highest log-probability in the chain.
//
// Returns:
//   - step: Absolute chain step index of the most probable sample
//   - walker: Walker index of the most probable sample
//   - theta: A copy of that walker's coefficient vector at that step
//   - err: ErrEmptyChain for a chain with no recorded steps
func MostProbable(chain *Chain) (step int64, walker int, theta []float64, err error) {
	if chain == nil || chain.Len() == 0 {
		return 0, 0, nil, errs.ErrEmptyChain
	}

	bestRow, bestWalker := 0, 0
	bestLnp := math.Inf(-1)
	for row, lnps := range chain.LogProbs {
		for w, lnp := range lnps {
			if lnp > bestLnp {
				bestLnp = lnp
				bestRow = row
				bestWalker = w
			}
		}
	}

	src := chain.Samples[bestRow][bestWalker]
	theta = make([]float64, len(src))
	copy(theta, src)

	return chain.Steps[bestRow], bestWalker, theta, nil
}
