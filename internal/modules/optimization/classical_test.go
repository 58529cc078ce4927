package optimization

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSolver() *ClassicalSolver {
	return NewClassicalSolver(DefaultRiskFreeRate, zerolog.Nop())
}

func assertValidWeights(t *testing.T, weights []float64, n int) {
	t.Helper()
	require.Len(t, weights, n)
	sum := 0.0
	for _, w := range weights {
		sum += w
		assert.GreaterOrEqual(t, w, 0.0, "weights should be non-negative")
		assert.LessOrEqual(t, w, 1.0, "weights should be <= 1")
	}
	assert.InDelta(t, 1.0, sum, 1e-6, "weights should sum to 1")
}

func TestClassicalSolver_Analytic(t *testing.T) {
	mu := []float64{0.08, 0.12, 0.05}
	cov := [][]float64{
		{0.04, 0.0, 0.0},
		{0.0, 0.09, 0.0},
		{0.0, 0.0, 0.01},
	}

	result, err := testSolver().Solve(mu, cov, 0.5, nil)
	require.NoError(t, err)
	assert.Equal(t, MethodClassical, result.Method)
	assert.Empty(t, result.Warnings)
	assertValidWeights(t, result.Weights, 3)

	// With diagonal covariance the analytic raw weights are μᵢ/(λσᵢ²) with
	// λ = 2/0.5 = 4: {0.5, 1/3, 1.25}, normalizing to {0.24, 0.16, 0.60}.
	// The low-variance asset dominates.
	assert.InDelta(t, 0.24, result.Weights[0], 1e-9)
	assert.InDelta(t, 0.16, result.Weights[1], 1e-9)
	assert.InDelta(t, 0.60, result.Weights[2], 1e-9)
	assert.Greater(t, result.Weights[2], result.Weights[1], "highest-return asset still trails the low-risk one")
}

func TestClassicalSolver_AnalyticDirection(t *testing.T) {
	// When no clamping occurs, λ·Σ·w points in the μ direction: the ratio
	// (Σw)ᵢ/μᵢ is the same constant for every asset.
	mu := []float64{0.07, 0.11}
	cov := [][]float64{
		{0.05, 0.01},
		{0.01, 0.08},
	}

	result, err := testSolver().Solve(mu, cov, 0.5, nil)
	require.NoError(t, err)

	sigmaW := make([]float64, 2)
	for i := range sigmaW {
		for j := range cov[i] {
			sigmaW[i] += cov[i][j] * result.Weights[j]
		}
	}
	assert.InDelta(t, sigmaW[0]/mu[0], sigmaW[1]/mu[1], 1e-9)
}

func TestClassicalSolver_SingleAsset(t *testing.T) {
	result, err := testSolver().Solve([]float64{0.1}, [][]float64{{0.04}}, 0.5, nil)
	require.NoError(t, err)
	require.Len(t, result.Weights, 1)
	assert.InDelta(t, 1.0, result.Weights[0], 1e-9)
}

func TestClassicalSolver_ZeroRiskFactor(t *testing.T) {
	// Risk factor 0 falls back to unit risk aversion instead of dividing by zero.
	mu := []float64{0.08, 0.12}
	cov := [][]float64{
		{0.04, 0.01},
		{0.01, 0.09},
	}

	result, err := testSolver().Solve(mu, cov, 0.0, nil)
	require.NoError(t, err)
	assertValidWeights(t, result.Weights, 2)
}

func TestClassicalSolver_SingularCovariance(t *testing.T) {
	// Two perfectly correlated identical assets: Σ is rank 1.
	mu := []float64{0.08, 0.08}
	cov := [][]float64{
		{0.04, 0.04},
		{0.04, 0.04},
	}

	_, err := testSolver().Solve(mu, cov, 0.5, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSingularCovariance)
}

func TestClassicalSolver_DimensionMismatch(t *testing.T) {
	_, err := testSolver().Solve([]float64{0.1, 0.2}, [][]float64{{0.04}}, 0.5, nil)
	require.Error(t, err)

	_, err = testSolver().Solve(nil, nil, 0.5, nil)
	require.Error(t, err)
}

func TestClassicalSolver_ConstrainedRespectsBounds(t *testing.T) {
	mu := []float64{0.06, 0.12}
	cov := [][]float64{
		{0.02, 0.005},
		{0.005, 0.08},
	}
	cons := &Constraints{
		Min: []float64{0.5, 0.0},
		Max: []float64{1.0, 1.0},
	}

	result, err := testSolver().Solve(mu, cov, 0.5, cons)
	require.NoError(t, err)
	assertValidWeights(t, result.Weights, 2)

	// The floor on the first asset must hold even though the second asset
	// has the better Sharpe contribution.
	assert.GreaterOrEqual(t, result.Weights[0], 0.5-1e-9)
}

func TestClassicalSolver_ConstrainedInfeasible(t *testing.T) {
	cons := &Constraints{
		Min: []float64{0.8, 0.8},
		Max: []float64{1.0, 1.0},
	}
	_, err := testSolver().Solve([]float64{0.1, 0.1}, [][]float64{{0.04, 0.0}, {0.0, 0.04}}, 0.5, cons)
	require.Error(t, err)
}

func TestClassicalSolver_ConstrainedTightBounds(t *testing.T) {
	// Bounds pin the solution to exactly 0.3/0.7 regardless of statistics.
	mu := []float64{0.08, 0.12}
	cov := [][]float64{
		{0.04, 0.0},
		{0.0, 0.09},
	}
	cons := &Constraints{
		Min: []float64{0.3, 0.7},
		Max: []float64{0.3, 0.7},
	}

	result, err := testSolver().Solve(mu, cov, 0.5, cons)
	require.NoError(t, err)
	assert.InDelta(t, 0.3, result.Weights[0], 1e-6)
	assert.InDelta(t, 0.7, result.Weights[1], 1e-6)
}

func TestConstraints_Validate(t *testing.T) {
	valid := &Constraints{Min: []float64{0.0, 0.2}, Max: []float64{0.8, 1.0}}
	require.NoError(t, valid.Validate(2))

	swapped := &Constraints{Min: []float64{0.9}, Max: []float64{0.1}}
	require.Error(t, swapped.Validate(1))

	negative := &Constraints{Min: []float64{-0.1}, Max: []float64{1.0}}
	require.Error(t, negative.Validate(1))

	capped := &Constraints{Min: []float64{0.0, 0.0}, Max: []float64{0.4, 0.4}}
	require.Error(t, capped.Validate(2), "maximums summing below 1 leave no feasible portfolio")
}

func TestEqualWeights(t *testing.T) {
	w := EqualWeights(4)
	require.Len(t, w, 4)
	for _, v := range w {
		assert.InDelta(t, 0.25, v, 1e-12)
	}
}

func TestProjectToFeasible(t *testing.T) {
	min := []float64{0.0, 0.0, 0.2}
	max := []float64{0.5, 1.0, 1.0}

	w := projectToFeasible([]float64{0.9, 0.05, 0.05}, min, max)

	sum := 0.0
	for i := range w {
		sum += w[i]
		assert.GreaterOrEqual(t, w[i], min[i]-1e-9)
		assert.LessOrEqual(t, w[i], max[i]+1e-9)
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
}
