package optimization

import (
	"math/rand"
	"sort"
)

// FrontierSeed is the fixed seed used for frontier sampling so repeated
// requests over the same statistics produce identical frontiers.
const FrontierSeed = 42

// FrontierPoint is one non-dominated sampled portfolio.
type FrontierPoint struct {
	Risk   float64
	Return float64
	Sharpe float64
}

// SampleFrontier Monte-Carlo samples numPortfolios random long-only weight
// vectors using the provided generator, scores each, and returns the
// non-dominated set ordered by ascending risk with strictly increasing return.
//
// The generator must be a private instance (not the shared global source) so
// concurrent requests cannot interfere with each other's sequences.
func SampleFrontier(mu []float64, cov [][]float64, numPortfolios int, riskFreeRate float64, rng *rand.Rand) []FrontierPoint {
	n := len(mu)
	if n == 0 || numPortfolios <= 0 {
		return nil
	}

	points := make([]FrontierPoint, 0, numPortfolios)
	weights := make([]float64, n)
	for p := 0; p < numPortfolios; p++ {
		sum := 0.0
		for i := 0; i < n; i++ {
			weights[i] = rng.Float64()
			sum += weights[i]
		}
		if sum == 0 {
			continue
		}
		for i := range weights {
			weights[i] /= sum
		}

		m := ComputeMetrics(weights, mu, cov, riskFreeRate)
		points = append(points, FrontierPoint{
			Risk:   m.ExpectedRisk,
			Return: m.ExpectedReturn,
			Sharpe: m.SharpeRatio,
		})
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Risk < points[j].Risk })

	// Sweep in risk order keeping only portfolios that improve on the best
	// return seen so far. No retained point is both riskier and lower-return
	// than an earlier one.
	frontier := make([]FrontierPoint, 0, len(points))
	maxReturn := 0.0
	first := true
	for _, pt := range points {
		if first || pt.Return > maxReturn {
			maxReturn = pt.Return
			frontier = append(frontier, pt)
			first = false
		}
	}
	return frontier
}
