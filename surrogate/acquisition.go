package surrogate

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Acquisition scores a candidate from its predicted mean and variance.
// Lower values mark more promising candidates; the drivers work internally
// in minimization terms and flip the metric sign for maximization runs.
type Acquisition func(mean, variance float64, p AcqParams) float64

// AcqParams carries the tunables shared by the acquisition functions.
type AcqParams struct {
	// Beta weights the uncertainty term of UCB. Higher values explore more.
	Beta float64

	// Xi is the minimum-improvement margin of PI and EI.
	Xi float64

	// BestSoFar is the best (lowest) aggregate metric observed so far. The
	// driver refreshes it before every proposal round.
	BestSoFar float64

	// Rand drives ThompsonSampling. Must be non-nil when that acquisition
	// is selected.
	Rand *rand.Rand
}

var unitNormal = distuv.UnitNormal

// UCB is the lower confidence bound: predicted mean minus a Beta-weighted
// uncertainty term.
func UCB(mean, variance float64, p AcqParams) float64 {
	return mean - p.Beta*math.Sqrt(variance)
}

// ProbabilityOfImprovement scores by how likely the candidate is to beat the
// best observed value by at least Xi. Returned negated so that lower stays
// better.
func ProbabilityOfImprovement(mean, variance float64, p AcqParams) float64 {
	sigma := math.Sqrt(variance)
	if sigma == 0 {
		if mean < p.BestSoFar-p.Xi {
			return -1
		}
		return 0
	}
	z := (p.BestSoFar - p.Xi - mean) / sigma
	return -unitNormal.CDF(z)
}

// ExpectedImprovement scores by the expected magnitude of improvement over
// the best observed value. Returned negated so that lower stays better.
func ExpectedImprovement(mean, variance float64, p AcqParams) float64 {
	sigma := math.Sqrt(variance)
	improvement := p.BestSoFar - p.Xi - mean
	if sigma == 0 {
		if improvement > 0 {
			return -improvement
		}
		return 0
	}
	z := improvement / sigma
	ei := improvement*unitNormal.CDF(z) + sigma*unitNormal.Prob(z)
	return -ei
}

// ThompsonSampling draws one sample from the predictive distribution and
// uses it directly as the score.
func ThompsonSampling(mean, variance float64, p AcqParams) float64 {
	return mean + math.Sqrt(variance)*p.Rand.NormFloat64()
}
