package surrogate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scierrors "github.com/scitune/scitune/pkg/errors"
)

func TestGPFitErrors(t *testing.T) {
	tests := []struct {
		name string
		x    [][]float64
		y    []float64
	}{
		{name: "no observations", x: nil, y: nil},
		{name: "single observation", x: [][]float64{{0.5}}, y: []float64{1}},
		{name: "length mismatch", x: [][]float64{{0.1}, {0.9}}, y: []float64{1}},
		{name: "empty encoding", x: [][]float64{{}, {}}, y: []float64{1, 2}},
		{name: "inconsistent dims", x: [][]float64{{0.1}, {0.1, 0.2}}, y: []float64{1, 2}},
		{name: "nan input", x: [][]float64{{math.NaN()}, {0.5}}, y: []float64{1, 2}},
		{name: "inf target", x: [][]float64{{0.1}, {0.9}}, y: []float64{1, math.Inf(1)}},
		{name: "degenerate design", x: [][]float64{{0.5}, {0.5}, {0.5}}, y: []float64{1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewGP().Fit(tt.x, tt.y)
			require.Error(t, err)

			var fitErr *scierrors.SurrogateFitError
			assert.True(t, scierrors.As(err, &fitErr))
		})
	}
}

func TestGPPredict(t *testing.T) {
	t.Run("unfitted model", func(t *testing.T) {
		_, _, err := NewGP().Predict([]float64{0.5})
		require.Error(t, err)

		var notFitted *scierrors.NotFittedError
		assert.True(t, scierrors.As(err, &notFitted))
	})

	t.Run("uncertainty grows with distance", func(t *testing.T) {
		gp := NewGP()
		require.NoError(t, gp.Fit(
			[][]float64{{0.1}, {0.3}, {0.5}},
			[]float64{4, 1, 4},
		))

		_, varNear, err := gp.Predict([]float64{0.3})
		require.NoError(t, err)
		_, varFar, err := gp.Predict([]float64{0.95})
		require.NoError(t, err)

		assert.Greater(t, varFar, varNear)
	})

	t.Run("prediction pulls toward low observations nearby", func(t *testing.T) {
		gp := NewGP()
		require.NoError(t, gp.Fit(
			[][]float64{{0.0}, {0.5}, {1.0}},
			[]float64{10, 0, 10},
		))

		meanLow, _, err := gp.Predict([]float64{0.5})
		require.NoError(t, err)
		meanHigh, _, err := gp.Predict([]float64{0.0})
		require.NoError(t, err)

		assert.Less(t, meanLow, meanHigh)
	})

	t.Run("fit copies inputs", func(t *testing.T) {
		x := [][]float64{{0.1}, {0.9}}
		gp := NewGP()
		require.NoError(t, gp.Fit(x, []float64{1, 2}))

		before, _, err := gp.Predict([]float64{0.1})
		require.NoError(t, err)

		x[0][0] = 0.9 // must not alias model state
		after, _, err := gp.Predict([]float64{0.1})
		require.NoError(t, err)

		assert.Equal(t, before, after)
	})
}

func TestGPSigma(t *testing.T) {
	gp := NewGP()
	gp.SetSigma(1.5)
	assert.Equal(t, 1.5, gp.Sigma())
}

func TestAcquisitionFunctions(t *testing.T) {
	p := AcqParams{Beta: 2.0, Xi: 0.01, BestSoFar: 1.0}

	t.Run("UCB favors low mean and high uncertainty", func(t *testing.T) {
		assert.Less(t, UCB(0.5, 0.1, p), UCB(1.0, 0.1, p))
		assert.Less(t, UCB(0.5, 0.5, p), UCB(0.5, 0.1, p))
	})

	t.Run("EI negative when improvement is likely", func(t *testing.T) {
		promising := ExpectedImprovement(0.2, 0.1, p)
		unpromising := ExpectedImprovement(5.0, 0.01, p)
		assert.Less(t, promising, unpromising)
		assert.Negative(t, promising)
	})

	t.Run("EI with zero variance", func(t *testing.T) {
		assert.Equal(t, 0.0, ExpectedImprovement(2.0, 0, p))
		assert.Negative(t, ExpectedImprovement(0.5, 0, p))
	})

	t.Run("PI bounded and monotone in mean", func(t *testing.T) {
		better := ProbabilityOfImprovement(0.2, 0.1, p)
		worse := ProbabilityOfImprovement(2.0, 0.1, p)
		assert.Less(t, better, worse)
		assert.GreaterOrEqual(t, better, -1.0)
		assert.LessOrEqual(t, worse, 0.0)
	})
}
