package tune

import (
	"context"
	"log/slog"

	"github.com/scitune/scitune/core/parallel"
	"github.com/scitune/scitune/cv"
	"github.com/scitune/scitune/param"
	"github.com/scitune/scitune/pkg/errors"
	"github.com/scitune/scitune/pkg/log"
)

// GridOptions configures a grid search run. Worker count and scheduling are
// explicit here rather than read from process-wide state.
type GridOptions struct {
	// Workers bounds the number of configurations evaluated concurrently.
	// Zero or negative means one worker per CPU core.
	Workers int
}

// RunGrid evaluates every distinct configuration of the candidate set
// exactly once and returns the populated result store.
//
// Structurally identical configurations are deduplicated before evaluation.
// Failed evaluations are recorded as failed trials and do not halt the run.
// Trials land in the store in completion order, not submission order.
//
// Cancelling ctx stops submission of new work; in-flight evaluations finish
// or are abandoned without recording a partial trial, and the store
// accumulated so far is returned together with ErrRunCancelled.
func RunGrid(ctx context.Context, configs []param.Configuration, folds cv.FoldSet, evaluator Evaluator, opts GridOptions) (*ResultStore, error) {
	if len(configs) == 0 {
		return nil, errors.NewInvalidArgumentError("RunGrid", "configs", "candidate set is empty", len(configs))
	}
	if evaluator == nil {
		return nil, errors.NewInvalidArgumentError("RunGrid", "evaluator", "evaluator is nil", nil)
	}
	if len(folds) == 0 {
		return nil, errors.NewInvalidArgumentError("RunGrid", "folds", "fold set is empty", len(folds))
	}

	deduped := dedupeConfigs(configs)
	slog.Debug("starting grid search",
		"candidates", len(configs),
		"distinct", len(deduped),
		"folds", len(folds),
		"workers", opts.Workers,
	)

	store := NewResultStore()
	parallel.ForEach(ctx, len(deduped), opts.Workers, func(i int) {
		evaluateInto(ctx, store, evaluator, deduped[i], folds)
	})

	if err := ctx.Err(); err != nil {
		return store, errors.Wrapf(errors.ErrRunCancelled, "grid search: %v", err)
	}

	slog.Debug("grid search finished", "trials", store.Len(), "failed", store.FailedCount())
	return store, nil
}

// dedupeConfigs drops structural duplicates, keeping first occurrences in
// order.
func dedupeConfigs(configs []param.Configuration) []param.Configuration {
	seen := make(map[string]bool, len(configs))
	out := make([]param.Configuration, 0, len(configs))
	for _, c := range configs {
		if seen[c.Key()] {
			continue
		}
		seen[c.Key()] = true
		out = append(out, c)
	}
	return out
}

// evaluateInto runs one evaluation and records the outcome. Abandoned
// evaluations (context cancelled mid-flight) record nothing; scoring
// failures record a failed trial.
func evaluateInto(ctx context.Context, store *ResultStore, evaluator Evaluator, config param.Configuration, folds cv.FoldSet) {
	trial, err := evaluator.Evaluate(ctx, config, folds)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}

		var evalErr *errors.EvaluationError
		if !errors.As(err, &evalErr) {
			err = errors.NewEvaluationError(config.Key(), err)
		}
		slog.Warn("configuration evaluation failed", log.ErrAttr(err))
		store.Add(NewFailedTrial(config, err))
		return
	}
	store.Add(trial)
}
