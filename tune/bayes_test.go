package tune

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scitune/scitune/cv"
	"github.com/scitune/scitune/param"
	scierrors "github.com/scitune/scitune/pkg/errors"
)

func intSpace() param.Space {
	return param.Space{param.Range("x", 1, 5)}
}

func TestRunBayesTrialCount(t *testing.T) {
	folds := testFolds(t)

	store, err := RunBayes(context.Background(), BayesOptions{
		Space:          intSpace(),
		Folds:          folds,
		Evaluator:      parabolaEvaluator(),
		InitialSamples: 4,
		Iterations:     6,
		Seed:           9,
	})
	require.NoError(t, err)

	assert.Equal(t, 4+6, store.Len(), "trials must equal initial count plus iterations")
}

func TestRunBayesConvergesOnParabola(t *testing.T) {
	folds := testFolds(t)

	store, err := RunBayes(context.Background(), BayesOptions{
		Space:          intSpace(),
		Folds:          folds,
		Evaluator:      parabolaEvaluator(),
		InitialSamples: 2,
		InitSampling:   RandomSampling,
		Iterations:     5,
		Seed:           3,
	})
	require.NoError(t, err)

	assert.Equal(t, 7, store.Len())

	best, ok := store.Best(Minimize)
	require.True(t, ok)
	x, _ := best.Config.Int("x")
	assert.Equal(t, int64(3), x)
	assert.Equal(t, 0.0, best.Metric)
}

func TestRunBayesReusesPriorStore(t *testing.T) {
	folds := testFolds(t)

	prior, err := RunGrid(context.Background(), intConfigs(1, 5), folds, parabolaEvaluator(), GridOptions{})
	require.NoError(t, err)
	require.Equal(t, 2, prior.Len())

	store, err := RunBayes(context.Background(), BayesOptions{
		Space:      intSpace(),
		Folds:      folds,
		Evaluator:  parabolaEvaluator(),
		Initial:    prior,
		Iterations: 5,
		Seed:       21,
	})
	require.NoError(t, err)

	assert.Same(t, prior, store, "prior store is extended in place")
	assert.Equal(t, 2+5, store.Len())
}

func TestRunBayesRecordsFailures(t *testing.T) {
	folds := testFolds(t)

	evaluator := EvaluatorFunc(func(_ context.Context, c param.Configuration, fs cv.FoldSet) (*Trial, error) {
		x, _ := c.Int("x")
		if x == 2 {
			return nil, scierrors.NewEvaluationError(c.Key(), scierrors.New("invalid parameter combination"))
		}
		return parabolaEvaluator().Evaluate(context.Background(), c, fs)
	})

	store, err := RunBayes(context.Background(), BayesOptions{
		Space:          intSpace(),
		Folds:          folds,
		Evaluator:      evaluator,
		InitialSamples: 3,
		Iterations:     7,
		Seed:           17,
	})
	require.NoError(t, err)

	assert.Equal(t, 10, store.Len(), "failed trials still count toward the budget")
	for _, failed := range store.Failures() {
		x, _ := failed.Config.Int("x")
		assert.Equal(t, int64(2), x)
	}

	if best, ok := store.Best(Minimize); ok {
		x, _ := best.Config.Int("x")
		assert.NotEqual(t, int64(2), x, "failed configuration must not rank")
	}
}

func TestRunBayesSurrogateFallback(t *testing.T) {
	folds := testFolds(t)

	// One-point space: every encoded configuration is identical, so the
	// surrogate can never be fit and every round falls back to random.
	space := param.Space{param.Levels("kernel", "rbf")}

	var warnings []error
	scierrors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	defer scierrors.SetWarningHandler(nil)

	evaluator := EvaluatorFunc(func(_ context.Context, c param.Configuration, fs cv.FoldSet) (*Trial, error) {
		foldMetrics := make([]float64, len(fs))
		for i := range fs {
			foldMetrics[i] = 1.0
		}
		return NewTrial(c, foldMetrics, nil), nil
	})

	store, err := RunBayes(context.Background(), BayesOptions{
		Space:          space,
		Folds:          folds,
		Evaluator:      evaluator,
		InitialSamples: 2,
		Iterations:     3,
		Seed:           5,
	})
	require.NoError(t, err)

	assert.Equal(t, 5, store.Len(), "fallback rounds still evaluate")

	var sawFallback bool
	for _, w := range warnings {
		var fallback *scierrors.SurrogateFallbackWarning
		if scierrors.As(w, &fallback) {
			sawFallback = true
		}
	}
	assert.True(t, sawFallback, "surrogate fallback must be surfaced as a warning")
}

func TestRunBayesPatience(t *testing.T) {
	folds := testFolds(t)

	// Constant metric: nothing ever improves after the initial set.
	evaluator := EvaluatorFunc(func(_ context.Context, c param.Configuration, fs cv.FoldSet) (*Trial, error) {
		foldMetrics := make([]float64, len(fs))
		for i := range fs {
			foldMetrics[i] = 2.5
		}
		return NewTrial(c, foldMetrics, nil), nil
	})

	var warnings []error
	scierrors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	defer scierrors.SetWarningHandler(nil)

	store, err := RunBayes(context.Background(), BayesOptions{
		Space:          intSpace(),
		Folds:          folds,
		Evaluator:      evaluator,
		InitialSamples: 3,
		Iterations:     20,
		Patience:       2,
		Seed:           13,
	})
	require.NoError(t, err)

	assert.Equal(t, 3+2, store.Len(), "run must stop after the patience window")

	var sawEarlyStop bool
	for _, w := range warnings {
		var earlyStop *scierrors.EarlyStopWarning
		if scierrors.As(w, &earlyStop) {
			sawEarlyStop = true
		}
	}
	assert.True(t, sawEarlyStop)
}

func TestRunBayesMaximize(t *testing.T) {
	folds := testFolds(t)

	// Metric peaks at x=3; maximize must chase the peak.
	evaluator := EvaluatorFunc(func(_ context.Context, c param.Configuration, fs cv.FoldSet) (*Trial, error) {
		x, _ := c.Float("x")
		foldMetrics := make([]float64, len(fs))
		for i := range fs {
			foldMetrics[i] = 10 - (x-3)*(x-3)
		}
		return NewTrial(c, foldMetrics, nil), nil
	})

	store, err := RunBayes(context.Background(), BayesOptions{
		Space:          intSpace(),
		Folds:          folds,
		Evaluator:      evaluator,
		Direction:      Maximize,
		InitialSamples: 3,
		Iterations:     8,
		Seed:           29,
	})
	require.NoError(t, err)

	best, ok := store.Best(Maximize)
	require.True(t, ok)
	x, _ := best.Config.Int("x")
	assert.Equal(t, int64(3), x)
	assert.Equal(t, 10.0, best.Metric)
}

func TestRunBayesInvalidArguments(t *testing.T) {
	folds := testFolds(t)

	tests := []struct {
		name string
		opts BayesOptions
	}{
		{
			name: "empty space",
			opts: BayesOptions{Folds: folds, Evaluator: parabolaEvaluator(), InitialSamples: 2, Iterations: 5},
		},
		{
			name: "nil evaluator",
			opts: BayesOptions{Space: intSpace(), Folds: folds, InitialSamples: 2, Iterations: 5},
		},
		{
			name: "empty fold set",
			opts: BayesOptions{Space: intSpace(), Evaluator: parabolaEvaluator(), InitialSamples: 2, Iterations: 5},
		},
		{
			name: "zero iterations",
			opts: BayesOptions{Space: intSpace(), Folds: folds, Evaluator: parabolaEvaluator(), InitialSamples: 2},
		},
		{
			name: "negative initial samples",
			opts: BayesOptions{Space: intSpace(), Folds: folds, Evaluator: parabolaEvaluator(), InitialSamples: -1, Iterations: 5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RunBayes(context.Background(), tt.opts)
			require.Error(t, err)

			var invalid *scierrors.InvalidArgumentError
			assert.True(t, scierrors.As(err, &invalid))
		})
	}
}

func TestRunBayesCancellation(t *testing.T) {
	folds := testFolds(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store, err := RunBayes(ctx, BayesOptions{
		Space:          intSpace(),
		Folds:          folds,
		Evaluator:      parabolaEvaluator(),
		InitialSamples: 2,
		Iterations:     5,
		Seed:           1,
	})
	require.Error(t, err)
	assert.True(t, scierrors.Is(err, scierrors.ErrRunCancelled))
	require.NotNil(t, store)
	assert.Equal(t, 0, store.Len())
}
