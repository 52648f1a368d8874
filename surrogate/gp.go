// Package surrogate provides the probabilistic model and acquisition
// functions that guide sequential model-based search. The surrogate predicts
// the aggregate metric of an encoded configuration together with an
// uncertainty estimate.
package surrogate

import (
	"math"
	"sync"

	"github.com/scitune/scitune/pkg/errors"
)

// GP is a radial-basis-function Gaussian process regressor over encoded
// configurations. Predictions are kernel-weighted means over the observed
// points with a variance term that shrinks near observations.
//
// All methods are safe for concurrent use.
type GP struct {
	mu sync.RWMutex

	x [][]float64
	y []float64

	// yMean and yStd standardize observations before weighting so the
	// kernel-weighted mean pulls toward the observed average, not zero.
	yMean float64
	yStd  float64

	// sigma is the kernel width. Inputs are unit-scaled, so the default
	// width works for most spaces.
	sigma float64
}

// NewGP returns a GP with the default kernel width.
func NewGP() *GP {
	return &GP{sigma: 0.3, yStd: 1}
}

// SetSigma updates the kernel width. Larger widths smooth more.
func (gp *GP) SetSigma(sigma float64) {
	gp.mu.Lock()
	defer gp.mu.Unlock()
	gp.sigma = sigma
}

// Sigma returns the current kernel width.
func (gp *GP) Sigma() float64 {
	gp.mu.RLock()
	defer gp.mu.RUnlock()
	return gp.sigma
}

// NumObservations returns the number of fitted observations.
func (gp *GP) NumObservations() int {
	gp.mu.RLock()
	defer gp.mu.RUnlock()
	return len(gp.x)
}

// Fit replaces the model's observations. It returns a SurrogateFitError when
// the design is unusable: fewer than two observations, inconsistent or empty
// encodings, non-finite values, or a fully degenerate design in which every
// encoded row is identical.
func (gp *GP) Fit(x [][]float64, y []float64) error {
	if len(x) != len(y) {
		return errors.NewSurrogateFitError(len(x), "inputs and targets have different lengths")
	}
	if len(x) < 2 {
		return errors.NewSurrogateFitError(len(x), "need at least two observations")
	}

	dim := len(x[0])
	if dim == 0 {
		return errors.NewSurrogateFitError(len(x), "encoded configurations are empty")
	}
	for i, row := range x {
		if len(row) != dim {
			return errors.NewSurrogateFitError(len(x), "inconsistent encoding dimensions")
		}
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return errors.NewSurrogateFitError(len(x), "non-finite encoded value")
			}
		}
		if math.IsNaN(y[i]) || math.IsInf(y[i], 0) {
			return errors.NewSurrogateFitError(len(x), "non-finite target value")
		}
	}

	degenerate := true
	for i := 1; i < len(x); i++ {
		if !equalRows(x[0], x[i]) {
			degenerate = false
			break
		}
	}
	if degenerate {
		return errors.NewSurrogateFitError(len(x), "all encoded configurations are identical")
	}

	// Copy inputs so later trial appends cannot alias model state.
	cx := make([][]float64, len(x))
	for i, row := range x {
		cr := make([]float64, dim)
		copy(cr, row)
		cx[i] = cr
	}
	cy := make([]float64, len(y))
	copy(cy, y)

	mean, std := standardize(cy)

	gp.mu.Lock()
	defer gp.mu.Unlock()
	gp.x = cx
	gp.y = cy
	gp.yMean = mean
	gp.yStd = std
	return nil
}

// Predict estimates the metric and its variance at an encoded point.
func (gp *GP) Predict(x []float64) (mean, variance float64, err error) {
	gp.mu.RLock()
	defer gp.mu.RUnlock()

	if len(gp.x) == 0 {
		return 0, 0, errors.NewNotFittedError("GP", "Predict")
	}

	n := len(gp.x)
	k := make([]float64, n)
	for i := range gp.x {
		k[i] = rbfKernel(x, gp.x[i], gp.sigma)
	}

	// Kernel-weighted mean in standardized space.
	var sum float64
	for i := range gp.x {
		sum += k[i] * (gp.y[i] - gp.yMean) / gp.yStd
	}
	stdMean := sum / float64(n)

	// Variance starts at the prior and shrinks with kernel mass.
	stdVar := 1.0
	for i := range gp.x {
		for j := range gp.x {
			stdVar -= k[i] * k[j] / float64(n)
		}
	}
	if stdVar < 1e-12 {
		stdVar = 1e-12
	}

	mean = stdMean*gp.yStd + gp.yMean
	variance = stdVar * gp.yStd * gp.yStd
	return mean, variance, nil
}

// rbfKernel is the radial basis function kernel:
//
//	k(x1, x2) = exp(-sum((x1 - x2)^2) / (2 * sigma^2))
func rbfKernel(x1, x2 []float64, sigma float64) float64 {
	var sum float64
	for i := range x1 {
		diff := x1[i] - x2[i]
		sum += diff * diff
	}
	return math.Exp(-sum / (2 * sigma * sigma))
}

func equalRows(a, b []float64) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func standardize(y []float64) (mean, std float64) {
	for _, v := range y {
		mean += v
	}
	mean /= float64(len(y))

	for _, v := range y {
		d := v - mean
		std += d * d
	}
	std = math.Sqrt(std / float64(len(y)))
	if std == 0 {
		std = 1
	}
	return mean, std
}
