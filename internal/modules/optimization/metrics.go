package optimization

import "math"

// DefaultRiskFreeRate is the annual risk-free rate used in Sharpe calculations.
const DefaultRiskFreeRate = 0.02

// Metrics holds derived risk/return figures for a weight vector. All values
// are annualized decimals (0.10 = 10%).
type Metrics struct {
	ExpectedReturn float64
	ExpectedRisk   float64
	SharpeRatio    float64
}

// ComputeMetrics scores a weight vector against expected returns and the
// covariance matrix.
//
// The variance w'Σw is clamped to zero before the square root to absorb
// floating-point drift from near-singular covariance. A zero-risk portfolio
// is Sharpe-neutral (0), never NaN or Inf.
func ComputeMetrics(weights, mu []float64, cov [][]float64, riskFreeRate float64) Metrics {
	n := len(weights)

	var ret float64
	for i := 0; i < n; i++ {
		ret += weights[i] * mu[i]
	}

	var variance float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			variance += weights[i] * weights[j] * cov[i][j]
		}
	}
	risk := math.Sqrt(math.Max(variance, 0))

	sharpe := 0.0
	if risk > 0 {
		sharpe = (ret - riskFreeRate) / risk
	}

	return Metrics{
		ExpectedReturn: ret,
		ExpectedRisk:   risk,
		SharpeRatio:    sharpe,
	}
}
