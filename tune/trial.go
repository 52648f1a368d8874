// Package tune implements the hyperparameter search drivers: grid search
// over a fixed candidate set and sequential model-based (Bayesian) search
// over a parameter space, both scored by cross-validated evaluation.
package tune

import (
	"gonum.org/v1/gonum/stat"

	"github.com/scitune/scitune/param"
)

// Direction states whether lower or higher aggregate metrics are better.
// Error metrics such as RMSE minimize; scores such as R2 maximize.
type Direction int

const (
	Minimize Direction = iota
	Maximize
)

func (d Direction) String() string {
	if d == Maximize {
		return "maximize"
	}
	return "minimize"
}

// Better reports whether metric a beats metric b under the direction.
func (d Direction) Better(a, b float64) bool {
	if d == Maximize {
		return a > b
	}
	return a < b
}

// Trial is the recorded outcome of evaluating one configuration. Trials are
// immutable once created; the store assigns the insertion sequence.
type Trial struct {
	// Config is the evaluated configuration.
	Config param.Configuration `json:"config"`

	// FoldMetrics holds the per-fold metric values. Empty for failed trials.
	FoldMetrics []float64 `json:"fold_metrics,omitempty"`

	// Metric is the aggregate metric, the mean across folds. Zero and
	// meaningless for failed trials.
	Metric float64 `json:"metric"`

	// Predictions optionally holds per-fold validation predictions, in fold
	// order.
	Predictions [][]float64 `json:"predictions,omitempty"`

	// Failure holds the failure cause for trials that could not be scored.
	// Empty for successful trials.
	Failure string `json:"failure,omitempty"`

	// Seq is the insertion sequence number assigned by the result store,
	// starting at 1. It breaks metric ties in favor of earlier trials.
	Seq uint64 `json:"seq"`
}

// NewTrial builds a successful trial, aggregating the per-fold metrics.
func NewTrial(config param.Configuration, foldMetrics []float64, predictions [][]float64) *Trial {
	return &Trial{
		Config:      config,
		FoldMetrics: foldMetrics,
		Metric:      stat.Mean(foldMetrics, nil),
		Predictions: predictions,
	}
}

// NewFailedTrial builds a failed trial carrying its cause.
func NewFailedTrial(config param.Configuration, cause error) *Trial {
	return &Trial{
		Config:  config,
		Failure: cause.Error(),
	}
}

// Failed reports whether the trial's configuration could not be scored.
func (t *Trial) Failed() bool {
	return t.Failure != ""
}
