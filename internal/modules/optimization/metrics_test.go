package optimization

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeMetrics(t *testing.T) {
	mu := []float64{0.10, 0.06}
	cov := [][]float64{
		{0.04, 0.01},
		{0.01, 0.02},
	}
	weights := []float64{0.6, 0.4}

	m := ComputeMetrics(weights, mu, cov, DefaultRiskFreeRate)

	assert.InDelta(t, 0.084, m.ExpectedReturn, 1e-9)

	// w'Σw = 0.36*0.04 + 2*0.24*0.01 + 0.16*0.02 = 0.0224
	assert.InDelta(t, 0.14966629, m.ExpectedRisk, 1e-6)
	assert.InDelta(t, (0.084-0.02)/0.14966629, m.SharpeRatio, 1e-6)
}

func TestComputeMetrics_ZeroRisk(t *testing.T) {
	mu := []float64{0.10}
	cov := [][]float64{{0.0}}

	m := ComputeMetrics([]float64{1.0}, mu, cov, DefaultRiskFreeRate)

	assert.Equal(t, 0.0, m.ExpectedRisk)
	assert.Equal(t, 0.0, m.SharpeRatio, "zero-risk portfolios are Sharpe-neutral")
}

func TestComputeMetrics_NegativeVarianceClamped(t *testing.T) {
	// Floating-point drift around a near-singular Σ can push w'Σw slightly
	// negative; the risk must clamp to zero instead of going NaN.
	mu := []float64{0.05, 0.05}
	cov := [][]float64{
		{1e-18, -1e-17},
		{-1e-17, 1e-18},
	}

	m := ComputeMetrics([]float64{0.5, 0.5}, mu, cov, DefaultRiskFreeRate)

	assert.Equal(t, 0.0, m.ExpectedRisk)
	assert.Equal(t, 0.0, m.SharpeRatio)
}
