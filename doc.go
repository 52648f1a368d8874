// Package scitune provides cross-validated hyperparameter search for Go:
// grid search over a fixed candidate set and sequential model-based
// (Bayesian) search over a typed parameter space, with pluggable evaluators
// per model family.
//
// # Quick Start
//
// Tune an integer parameter against a custom evaluator:
//
//	package main
//
//	import (
//	    "context"
//	    "fmt"
//	    "log"
//
//	    "github.com/scitune/scitune/cv"
//	    "github.com/scitune/scitune/param"
//	    "github.com/scitune/scitune/tune"
//	)
//
//	func main() {
//	    folds, err := cv.MakeFolds(100, 5, 42)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    space := param.Space{param.Range("x", 1, 5)}
//
//	    store, err := tune.RunBayes(context.Background(), tune.BayesOptions{
//	        Space:          space,
//	        Folds:          folds,
//	        Evaluator:      myEvaluator,
//	        InitialSamples: 4,
//	        Iterations:     10,
//	        Seed:           1,
//	    })
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    best, _ := store.Best(tune.Minimize)
//	    fmt.Println("best:", best.Config, best.Metric)
//	}
//
// # Packages
//
//   - param: parameter spaces, configurations, sampling and encoding
//   - cv: cross-validation fold partitioning
//   - tune: search drivers, evaluators and the result store
//   - surrogate: Gaussian-process surrogate and acquisition functions
//   - metrics: regression metrics for cross-validation scoring
//   - persist: JSON and SQLite persistence of search runs
package scitune
