package tune

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"github.com/scitune/scitune/core/parallel"
	"github.com/scitune/scitune/cv"
	"github.com/scitune/scitune/param"
	"github.com/scitune/scitune/pkg/errors"
)

// Evaluator scores one configuration against a fold set. Implementations
// must evaluate each fold independently and must not leak validation rows
// into training. Aside from randomness controlled by the reserved "seed"
// configuration key, evaluation must be a pure function of its inputs.
//
// A scoring failure for the given configuration is reported by returning an
// error (the drivers record it as a failed trial and continue); returning a
// trial with Failure set is equivalent.
type Evaluator interface {
	Evaluate(ctx context.Context, config param.Configuration, folds cv.FoldSet) (*Trial, error)
}

// EvaluatorFunc adapts a function to the Evaluator interface.
type EvaluatorFunc func(ctx context.Context, config param.Configuration, folds cv.FoldSet) (*Trial, error)

// Evaluate implements Evaluator.
func (f EvaluatorFunc) Evaluate(ctx context.Context, config param.Configuration, folds cv.FoldSet) (*Trial, error) {
	return f(ctx, config, folds)
}

// Learner is the model-family contract plugged into CVEvaluator. A fresh
// learner is created per fold, fit on the training rows only and asked to
// predict the validation rows. Learners read their hyperparameters, and the
// reserved "seed" key if they are stochastic, from the configuration.
type Learner interface {
	Fit(config param.Configuration, x mat.Matrix, y *mat.VecDense) error
	Predict(x mat.Matrix) (*mat.VecDense, error)
}

// LearnerFactory creates one learner instance. CVEvaluator calls it once per
// fold so no fitted state crosses fold boundaries.
type LearnerFactory func() Learner

// MetricFunc scores predictions against true targets, e.g. metrics.RMSE.
type MetricFunc func(yTrue, yPred *mat.VecDense) (float64, error)

// CVEvaluator scores configurations by k-fold cross-validation of a
// pluggable learner over an in-memory dataset.
type CVEvaluator struct {
	// X and Y are the preprocessed predictors and outcome column.
	X mat.Matrix
	Y *mat.VecDense

	// New creates the learner evaluated on each fold.
	New LearnerFactory

	// Metric scores each fold's validation predictions.
	Metric MetricFunc

	// ParallelFolds runs the folds of one configuration concurrently. This
	// is configuration-level parallelism, independent of any driver-level
	// worker pool.
	ParallelFolds bool

	// KeepPredictions records per-fold validation predictions on the trial.
	KeepPredictions bool
}

// Evaluate implements Evaluator. Any fold failure fails the whole trial; the
// returned error carries the offending configuration and cause.
func (e *CVEvaluator) Evaluate(ctx context.Context, config param.Configuration, folds cv.FoldSet) (*Trial, error) {
	if len(folds) == 0 {
		return nil, errors.NewInvalidArgumentError("CVEvaluator.Evaluate", "folds", "fold set is empty", len(folds))
	}

	rows, _ := e.X.Dims()
	if e.Y.Len() != rows {
		return nil, errors.NewDimensionError("CVEvaluator.Evaluate", rows, e.Y.Len(), 0)
	}
	if n := folds.NumSamples(); n != rows {
		return nil, errors.NewInvalidArgumentError("CVEvaluator.Evaluate", "folds", "fold partition does not cover the dataset rows", n)
	}

	foldMetrics := make([]float64, len(folds))
	var predictions [][]float64
	if e.KeepPredictions {
		predictions = make([][]float64, len(folds))
	}
	foldErrs := make([]error, len(folds))

	runFold := func(i int) {
		if err := ctx.Err(); err != nil {
			foldErrs[i] = err
			return
		}

		fold := folds[i]
		trainX, trainY := subset(e.X, e.Y, fold.TrainIndices)
		valX, valY := subset(e.X, e.Y, fold.ValIndices)

		learner := e.New()
		if err := learner.Fit(config, trainX, trainY); err != nil {
			foldErrs[i] = errors.Wrapf(err, "fold %d fit", i)
			return
		}

		pred, err := learner.Predict(valX)
		if err != nil {
			foldErrs[i] = errors.Wrapf(err, "fold %d predict", i)
			return
		}

		score, err := e.Metric(valY, pred)
		if err != nil {
			foldErrs[i] = errors.Wrapf(err, "fold %d metric", i)
			return
		}
		foldMetrics[i] = score

		if e.KeepPredictions {
			out := make([]float64, pred.Len())
			for j := 0; j < pred.Len(); j++ {
				out[j] = pred.AtVec(j)
			}
			predictions[i] = out
		}
	}

	if e.ParallelFolds {
		parallel.ForEach(ctx, len(folds), 0, runFold)
	} else {
		for i := range folds {
			runFold(i)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, err := range foldErrs {
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			return nil, errors.NewEvaluationError(config.Key(), err)
		}
	}

	return NewTrial(config, foldMetrics, predictions), nil
}

// subsetParallelThreshold is the row count above which subset extraction is
// chunked across CPU cores.
const subsetParallelThreshold = 256

// subset extracts the rows of x and y named by indices, preserving index
// order.
func subset(x mat.Matrix, y *mat.VecDense, indices []int) (mat.Matrix, *mat.VecDense) {
	_, cols := x.Dims()
	xs := mat.NewDense(len(indices), cols, nil)
	ys := mat.NewVecDense(len(indices), nil)

	parallel.ParallelizeWithThreshold(len(indices), subsetParallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			idx := indices[i]
			for j := 0; j < cols; j++ {
				xs.Set(i, j, x.At(idx, j))
			}
			ys.SetVec(i, y.AtVec(idx))
		}
	})
	return xs, ys
}
