package sampler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/gpmaplab/epistat/errs"
	"github.com/gpmaplab/epistat/internal/options"
	"github.com/gpmaplab/epistat/internal/pool"
	"github.com/gpmaplab/epistat/samplestore"
)

// LogProb is a log-probability function over a coefficient vector.
// It must return math.Inf(-1) (not an error) for zero-probability regions;
// the sampler never moves a walker into such a region.
type LogProb func(theta []float64) float64

// storeBatchSize is the number of recorded steps RunStore buffers before
// appending a chunk to the store.
const storeBatchSize = 256

// Sampler runs an ensemble of independent Gaussian random-walk
// Metropolis-Hastings walkers over a log-probability function.
//
// Each walker proposes theta' = theta + scale·N(0, I) and accepts with
// probability min(1, exp(lnprob(theta') - lnprob(theta))). Walkers share
// nothing but the target function, so a multimodal posterior keeps separate
// walkers in separate modes rather than collapsing them.
type Sampler struct {
	nwalkers  int
	lnprob    LogProb
	stepScale float64
	seed      uint64
	thin      int
	burnIn    int
}

// Option represents a functional option for configuring a Sampler.
type Option = options.Option[*Sampler]

// WithStepScale sets the standard deviation of the Gaussian proposal.
// The scale trades acceptance rate against mixing speed; the default is 0.1.
func WithStepScale(scale float64) Option {
	return options.New(func(s *Sampler) error {
		if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
			return fmt.Errorf("step scale must be positive, got %v", scale)
		}
		s.stepScale = scale

		return nil
	})
}

// WithSeed sets the random number generator seed, making the run
// reproducible. The default seed is 0.
func WithSeed(seed uint64) Option {
	return options.NoError(func(s *Sampler) {
		s.seed = seed
	})
}

// WithThin records only every n-th step after burn-in. The default is 1
// (record every step).
func WithThin(n int) Option {
	return options.New(func(s *Sampler) error {
		if n < 1 {
			return fmt.Errorf("thinning interval must be at least 1, got %d", n)
		}
		s.thin = n

		return nil
	})
}

// WithBurnIn discards the first n steps of the run before recording.
// The default is 0.
func WithBurnIn(n int) Option {
	return options.New(func(s *Sampler) error {
		if n < 0 {
			return fmt.Errorf("burn-in must be non-negative, got %d", n)
		}
		s.burnIn = n

		return nil
	})
}

// New creates a Sampler with the given walker count and log-probability
// function.
//
// Parameters:
//   - nwalkers: Number of independent walkers (at least 1)
//   - lnprob: Target log-probability function
//   - opts: Optional configuration (step scale, seed, thinning, burn-in)
//
// Returns:
//   - *Sampler: Configured sampler
//   - error: ErrInvalidWalkerCount, nil lnprob, or option errors
func New(nwalkers int, lnprob LogProb, opts ...Option) (*Sampler, error) {
	if nwalkers < 1 {
		return nil, fmt.Errorf("%w: %d", errs.ErrInvalidWalkerCount, nwalkers)
	}
	if lnprob == nil {
		return nil, fmt.Errorf("log-probability function must not be nil")
	}

	s := &Sampler{
		nwalkers:  nwalkers,
		lnprob:    lnprob,
		stepScale: 0.1,
		thin:      1,
	}

	if err := options.Apply(s, opts...); err != nil {
		return nil, err
	}

	return s, nil
}

// WalkerCount returns the number of walkers in the ensemble.
func (s *Sampler) WalkerCount() int {
	return s.nwalkers
}

// walker holds the per-walker Markov chain state and proposal distributions.
type walker struct {
	theta  []float64
	lnp    float64
	normal distuv.Normal
	unif   distuv.Uniform
}

// validateStart checks the starting ensemble shape and returns the
// coefficient count.
func (s *Sampler) validateStart(start [][]float64) (int, error) {
	if len(start) != s.nwalkers {
		return 0, fmt.Errorf("%w: got %d walkers, want %d", errs.ErrInvalidStart, len(start), s.nwalkers)
	}

	ncoef := len(start[0])
	if ncoef == 0 {
		return 0, fmt.Errorf("%w: empty coefficient vector", errs.ErrInvalidStart)
	}

	for w, theta := range start {
		if len(theta) != ncoef {
			return 0, fmt.Errorf("%w: walker %d has %d coefficients, walker 0 has %d",
				errs.ErrInvalidStart, w, len(theta), ncoef)
		}
	}

	return ncoef, nil
}

// initWalkers sets up per-walker state with independent PCG sources derived
// from the sampler seed.
func (s *Sampler) initWalkers(start [][]float64) []walker {
	walkers := make([]walker, s.nwalkers)
	for w := range walkers {
		src := rand.NewPCG(s.seed, uint64(w)) //nolint: gosec
		theta := make([]float64, len(start[w]))
		copy(theta, start[w])

		walkers[w] = walker{
			theta:  theta,
			lnp:    s.lnprob(theta),
			normal: distuv.Normal{Mu: 0, Sigma: s.stepScale, Src: src},
			unif:   distuv.Uniform{Min: 0, Max: 1, Src: src},
		}
	}

	return walkers
}

// recordFunc receives one recorded step: the absolute step index, the
// per-walker coefficient vectors and the per-walker log-probabilities.
// The slices are only valid for the duration of the call.
type recordFunc func(step int64, thetas [][]float64, lnps []float64) error

// run drives the MH loop, invoking record for every kept step.
// Returns the number of accepted proposals and the total proposal count.
func (s *Sampler) run(ctx context.Context, start [][]float64, steps int, record recordFunc) (accepted, proposed int64, err error) {
	ncoef, err := s.validateStart(start)
	if err != nil {
		return 0, 0, err
	}

	walkers := s.initWalkers(start)

	proposal := make([]float64, ncoef)
	thetas := make([][]float64, s.nwalkers)
	lnps := make([]float64, s.nwalkers)

	for step := 0; step < steps; step++ {
		// Honor cancellation between steps; lnprob calls can be expensive
		select {
		case <-ctx.Done():
			return accepted, proposed, ctx.Err()
		default:
		}

		for w := range walkers {
			wk := &walkers[w]

			for i, v := range wk.theta {
				proposal[i] = v + wk.normal.Rand()
			}

			lnpNew := s.lnprob(proposal)
			proposed++

			// Accept with probability exp(lnpNew - lnp); -Inf proposals are
			// always rejected
			if lnpNew-wk.lnp > math.Log(wk.unif.Rand()) {
				copy(wk.theta, proposal)
				wk.lnp = lnpNew
				accepted++
			}
		}

		if step < s.burnIn || (step-s.burnIn)%s.thin != 0 {
			continue
		}

		for w := range walkers {
			thetas[w] = walkers[w].theta
			lnps[w] = walkers[w].lnp
		}

		if err := record(int64(step), thetas, lnps); err != nil {
			return accepted, proposed, err
		}
	}

	return accepted, proposed, nil
}

// Run samples the target for the given number of steps and collects the
// recorded ensemble states into a Chain.
//
// The starting ensemble must have one coefficient vector per walker, all of
// the same length. The run honors ctx cancellation between steps: a
// cancelled run returns the partial chain recorded so far together with
// ctx.Err().
//
// Parameters:
//   - ctx: Context for cancellation
//   - start: Starting coefficient vector per walker (nwalkers × ncoef)
//   - steps: Number of MH steps to take
//
// Returns:
//   - *Chain: Recorded steps, samples and log-probabilities (partial on
//     cancellation)
//   - error: ErrInvalidStart or ctx.Err()
func (s *Sampler) Run(ctx context.Context, start [][]float64, steps int) (*Chain, error) {
	recorded := 0
	if steps > s.burnIn {
		recorded = (steps - s.burnIn + s.thin - 1) / s.thin
	}

	chain := &Chain{
		Steps:    make([]int64, 0, recorded),
		Samples:  make([][][]float64, 0, recorded),
		LogProbs: make([][]float64, 0, recorded),
	}

	accepted, proposed, err := s.run(ctx, start, steps, func(step int64, thetas [][]float64, lnps []float64) error {
		snapshot := make([][]float64, len(thetas))
		for w, theta := range thetas {
			row := make([]float64, len(theta))
			copy(row, theta)
			snapshot[w] = row
		}

		lnpRow := make([]float64, len(lnps))
		copy(lnpRow, lnps)

		chain.Steps = append(chain.Steps, step)
		chain.Samples = append(chain.Samples, snapshot)
		chain.LogProbs = append(chain.LogProbs, lnpRow)

		return nil
	})

	chain.accepted = accepted
	chain.proposed = proposed

	return chain, err
}

// RunStore samples the target for the given number of steps, streaming the
// recorded ensemble states into the store's "samples" and "probabilities"
// datasets in batches.
//
// The standard datasets are registered on first use; the store's walker
// count must match the sampler's. Recorded steps buffered at cancellation
// time are flushed before returning ctx.Err().
//
// Parameters:
//   - ctx: Context for cancellation
//   - start: Starting coefficient vector per walker (nwalkers × ncoef)
//   - steps: Number of MH steps to take
//   - store: Destination sample store
//
// Returns:
//   - error: ErrInvalidStart, ErrWalkerCountMismatch, store append errors,
//     or ctx.Err()
func (s *Sampler) RunStore(ctx context.Context, start [][]float64, steps int, store *samplestore.Store) error {
	ncoef, err := s.validateStart(start)
	if err != nil {
		return err
	}

	if store.WalkerCount() != s.nwalkers {
		return fmt.Errorf("%w: store has %d walkers, sampler has %d",
			errs.ErrWalkerCountMismatch, store.WalkerCount(), s.nwalkers)
	}

	if err := ensureDataset(store, samplestore.DatasetSamples, ncoef); err != nil {
		return err
	}
	if err := ensureDataset(store, samplestore.DatasetProbabilities, 1); err != nil {
		return err
	}

	stepBuf, putSteps := pool.GetInt64Slice(storeBatchSize)
	defer putSteps()

	batch := samplestore.Batch{
		Steps: stepBuf[:0],
		Values: map[string][][]float64{
			samplestore.DatasetSamples:       make([][]float64, 0, storeBatchSize),
			samplestore.DatasetProbabilities: make([][]float64, 0, storeBatchSize),
		},
	}

	// Value rows are pooled and released after the batch they belong to is
	// appended; Append copies them into the chunk encoders.
	cleanups := make([]func(), 0, 2*storeBatchSize)

	flush := func() error {
		if len(batch.Steps) == 0 {
			return nil
		}

		if err := store.Append(batch); err != nil {
			return err
		}

		for _, cleanup := range cleanups {
			cleanup()
		}
		cleanups = cleanups[:0]

		batch.Steps = batch.Steps[:0]
		batch.Values[samplestore.DatasetSamples] = batch.Values[samplestore.DatasetSamples][:0]
		batch.Values[samplestore.DatasetProbabilities] = batch.Values[samplestore.DatasetProbabilities][:0]

		return nil
	}

	_, _, runErr := s.run(ctx, start, steps, func(step int64, thetas [][]float64, lnps []float64) error {
		// Flatten walker-major: walker 0's coefficients first
		sampleRow, putRow := pool.GetFloat64Slice(s.nwalkers * ncoef)
		sampleRow = sampleRow[:0]
		for _, theta := range thetas {
			sampleRow = append(sampleRow, theta...)
		}

		lnpRow, putLnp := pool.GetFloat64Slice(len(lnps))
		copy(lnpRow, lnps)

		cleanups = append(cleanups, putRow, putLnp)

		batch.Steps = append(batch.Steps, step)
		batch.Values[samplestore.DatasetSamples] = append(batch.Values[samplestore.DatasetSamples], sampleRow)
		batch.Values[samplestore.DatasetProbabilities] = append(batch.Values[samplestore.DatasetProbabilities], lnpRow)

		if len(batch.Steps) >= storeBatchSize {
			return flush()
		}

		return nil
	})

	// Flush whatever was buffered, even on cancellation
	if err := flush(); err != nil {
		return err
	}

	return runErr
}

// ensureDataset registers a standard dataset, tolerating one that already
// exists from a previous run against the same store.
func ensureDataset(store *samplestore.Store, name string, width int) error {
	err := store.CreateDataset(name, width)
	if err == nil {
		return nil
	}
	if errors.Is(err, errs.ErrDatasetAlreadyExists) {
		return nil
	}

	return err
}
