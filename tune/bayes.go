package tune

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/scitune/scitune/core/parallel"
	"github.com/scitune/scitune/cv"
	"github.com/scitune/scitune/param"
	"github.com/scitune/scitune/pkg/errors"
	"github.com/scitune/scitune/pkg/log"
	"github.com/scitune/scitune/surrogate"
)

// Sampling selects the space-filling strategy for the initial trial set.
type Sampling int

const (
	// LatinHypercubeSampling stratifies each parameter's range.
	LatinHypercubeSampling Sampling = iota
	// RandomSampling draws uniform configurations.
	RandomSampling
)

// relTieEps bounds the relative acquisition gap within which two candidates
// count as tied and the distance tie-break applies.
const relTieEps = 1e-9

// BayesOptions configures a sequential model-based search run.
type BayesOptions struct {
	// Space is the parameter space searched.
	Space param.Space

	// Folds is the fold set shared by every trial of the run.
	Folds cv.FoldSet

	// Evaluator scores proposed configurations.
	Evaluator Evaluator

	// Direction states whether the metric minimizes or maximizes.
	Direction Direction

	// Initial optionally seeds the run with a prior result store, e.g. from
	// a grid run. When set, no initial sampling happens and new trials are
	// appended to it.
	Initial *ResultStore

	// InitialSamples is the size of the space-filling initial draw when no
	// prior store is supplied. Defaults to 8.
	InitialSamples int

	// InitSampling selects the initial sampling strategy.
	InitSampling Sampling

	// Iterations is the number of propose-acquire-evaluate rounds. Must be
	// positive.
	Iterations int

	// NumCandidates is the number of sampled candidates scored by the
	// acquisition function per round. Defaults to 64.
	NumCandidates int

	// Patience stops the run early after this many rounds without
	// improvement of the best aggregate metric. Zero disables early
	// stopping and the full budget runs.
	Patience int

	// Seed drives all sampling in the run.
	Seed int64

	// Acquisition scores candidates; defaults to expected improvement.
	Acquisition surrogate.Acquisition

	// AcqParams tunes the acquisition function. BestSoFar is managed by the
	// driver. A zero value gets the usual defaults (Beta 2, Xi 0.01).
	AcqParams surrogate.AcqParams

	// Workers bounds parallelism of the initial sampling evaluations. The
	// round loop itself is sequential; each round evaluates one
	// configuration.
	Workers int
}

// RunBayes runs sequential model-based search: an initial trial set, then
// Iterations rounds of surrogate refit, acquisition-guided proposal and
// evaluation.
//
// A round whose surrogate cannot be fit falls back to a random draw from the
// space and raises a SurrogateFallbackWarning; only structural
// misconfiguration aborts the run before it starts. The returned store
// always reflects every recorded trial, including failures.
func RunBayes(ctx context.Context, opts BayesOptions) (*ResultStore, error) {
	if err := opts.Space.Validate(); err != nil {
		return nil, err
	}
	if opts.Evaluator == nil {
		return nil, errors.NewInvalidArgumentError("RunBayes", "evaluator", "evaluator is nil", nil)
	}
	if len(opts.Folds) == 0 {
		return nil, errors.NewInvalidArgumentError("RunBayes", "folds", "fold set is empty", len(opts.Folds))
	}
	if opts.Iterations <= 0 {
		return nil, errors.NewInvalidArgumentError("RunBayes", "iterations", "must be positive", opts.Iterations)
	}
	if opts.Initial == nil && opts.InitialSamples == 0 {
		opts.InitialSamples = 8
	}
	if opts.Initial == nil && opts.InitialSamples < 0 {
		return nil, errors.NewInvalidArgumentError("RunBayes", "initialSamples", "must be positive", opts.InitialSamples)
	}
	if opts.NumCandidates <= 0 {
		opts.NumCandidates = 64
	}
	if opts.Acquisition == nil {
		opts.Acquisition = surrogate.ExpectedImprovement
	}
	if opts.AcqParams.Beta == 0 {
		opts.AcqParams.Beta = 2.0
	}
	if opts.AcqParams.Xi == 0 {
		opts.AcqParams.Xi = 0.01
	}

	rng := param.NewRand(opts.Seed)
	if opts.AcqParams.Rand == nil {
		opts.AcqParams.Rand = rng
	}

	// Init: reuse the prior store or evaluate a space-filling draw.
	store := opts.Initial
	if store == nil {
		store = NewResultStore()

		var initial []param.Configuration
		switch opts.InitSampling {
		case RandomSampling:
			initial = make([]param.Configuration, 0, opts.InitialSamples)
			for i := 0; i < opts.InitialSamples; i++ {
				initial = append(initial, opts.Space.Sample(rng))
			}
		default:
			initial = opts.Space.LatinHypercube(opts.InitialSamples, rng)
		}

		slog.Debug("bayes init sampling", "samples", len(initial), "strategy", opts.InitSampling)
		parallel.ForEach(ctx, len(initial), opts.Workers, func(i int) {
			evaluateInto(ctx, store, opts.Evaluator, initial[i], opts.Folds)
		})
		if err := ctx.Err(); err != nil {
			return store, errors.Wrapf(errors.ErrRunCancelled, "bayes init: %v", err)
		}
	}

	best, haveBest := bestScore(store, opts.Direction)
	sinceImprove := 0

	for round := 1; round <= opts.Iterations; round++ {
		if err := ctx.Err(); err != nil {
			return store, errors.Wrapf(errors.ErrRunCancelled, "bayes round %d: %v", round, err)
		}

		next, proposed := proposeNext(store, rng, round, opts, best, haveBest)
		if !proposed {
			next = opts.Space.Sample(rng)
		}

		trial, err := opts.Evaluator.Evaluate(ctx, next, opts.Folds)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return store, errors.Wrapf(errors.ErrRunCancelled, "bayes round %d: %v", round, err)
			}

			var evalErr *errors.EvaluationError
			if !errors.As(err, &evalErr) {
				err = errors.NewEvaluationError(next.Key(), err)
			}
			slog.Warn("configuration evaluation failed", "round", round, log.ErrAttr(err))
			store.Add(NewFailedTrial(next, err))
		} else {
			store.Add(trial)
		}

		improved := false
		if trial != nil && !trial.Failed() {
			score := internalScore(trial.Metric, opts.Direction)
			if !haveBest || score < best {
				best = score
				haveBest = true
				improved = true
			}
		}

		slog.Debug("bayes round complete",
			"round", round,
			"trials", store.Len(),
			"improved", improved,
		)

		if opts.Patience > 0 {
			if improved {
				sinceImprove = 0
			} else {
				sinceImprove++
				if sinceImprove >= opts.Patience {
					w := errors.NewEarlyStopWarning(round, opts.Patience, externalMetric(best, opts.Direction))
					errors.Warn(w)
					slog.Info("bayes search stopped early", "round", round, "patience", opts.Patience)
					break
				}
			}
		}
	}

	return store, nil
}

// proposeNext fits the surrogate on the successful trials observed so far
// and picks the candidate maximizing the acquisition. Candidates not yet
// evaluated are preferred; near-tied acquisition scores break toward the
// candidate farthest in encoded space from all evaluated points. A failed
// surrogate fit raises a SurrogateFallbackWarning and reports no proposal,
// making the round fall back to a random draw.
func proposeNext(store *ResultStore, rng *rand.Rand, round int, opts BayesOptions, best float64, haveBest bool) (param.Configuration, bool) {
	var (
		design    [][]float64
		targets   []float64
		evaluated = make(map[string]bool)
	)
	var evaluatedVecs [][]float64

	for _, t := range store.All() {
		evaluated[t.Config.Key()] = true
		vec, err := opts.Space.Encode(t.Config)
		if err != nil {
			// Prior stores may hold configurations outside the current
			// space; those inform dedup but not the surrogate.
			slog.Debug("skipping unencodable trial", "config", t.Config.Key())
			continue
		}
		evaluatedVecs = append(evaluatedVecs, vec)
		if t.Failed() {
			continue
		}
		design = append(design, vec)
		targets = append(targets, internalScore(t.Metric, opts.Direction))
	}

	gp := surrogate.NewGP()
	if err := gp.Fit(design, targets); err != nil {
		w := errors.NewSurrogateFallbackWarning(round, err)
		errors.Warn(w)
		slog.Warn("surrogate fit failed, using random proposal", "round", round, log.ErrAttr(err))
		return param.Configuration{}, false
	}

	acqParams := opts.AcqParams
	if haveBest {
		acqParams.BestSoFar = best
	} else {
		acqParams.BestSoFar = math.MaxFloat64
	}

	type scored struct {
		config param.Configuration
		vec    []float64
		acq    float64
		seen   bool
	}

	candidates := make([]scored, 0, opts.NumCandidates)
	for i := 0; i < opts.NumCandidates; i++ {
		c := opts.Space.Sample(rng)
		vec, err := opts.Space.Encode(c)
		if err != nil {
			continue
		}
		mean, variance, err := gp.Predict(vec)
		if err != nil {
			continue
		}
		candidates = append(candidates, scored{
			config: c,
			vec:    vec,
			acq:    opts.Acquisition(mean, variance, acqParams),
			seen:   evaluated[c.Key()],
		})
	}
	if len(candidates) == 0 {
		return param.Configuration{}, false
	}

	// Unevaluated candidates take precedence; re-evaluation only happens
	// when sampling produced nothing new.
	pool := candidates[:0:0]
	for _, c := range candidates {
		if !c.seen {
			pool = append(pool, c)
		}
	}
	if len(pool) == 0 {
		pool = candidates
	}

	bestIdx := 0
	bestDist := minDistance(pool[0].vec, evaluatedVecs)
	for i := 1; i < len(pool); i++ {
		gap := math.Abs(pool[i].acq - pool[bestIdx].acq)
		tied := gap <= relTieEps*(1+math.Abs(pool[bestIdx].acq))
		switch {
		case tied:
			d := minDistance(pool[i].vec, evaluatedVecs)
			if d > bestDist {
				bestIdx = i
				bestDist = d
			}
		case pool[i].acq < pool[bestIdx].acq:
			bestIdx = i
			bestDist = minDistance(pool[i].vec, evaluatedVecs)
		}
	}

	return pool[bestIdx].config, true
}

// minDistance returns the smallest encoded distance from vec to any point in
// points, or +Inf when points is empty.
func minDistance(vec []float64, points [][]float64) float64 {
	min := math.Inf(1)
	for _, p := range points {
		if d := param.Distance(vec, p); d < min {
			min = d
		}
	}
	return min
}

// internalScore maps a metric into minimization terms.
func internalScore(metric float64, dir Direction) float64 {
	if dir == Maximize {
		return -metric
	}
	return metric
}

// externalMetric undoes internalScore.
func externalMetric(score float64, dir Direction) float64 {
	if dir == Maximize {
		return -score
	}
	return score
}

// bestScore returns the best internal score among successful trials.
func bestScore(store *ResultStore, dir Direction) (float64, bool) {
	t, ok := store.Best(dir)
	if !ok {
		return 0, false
	}
	return internalScore(t.Metric, dir), true
}
