// Package optimization provides portfolio optimization functionality:
// mean-variance solvers, portfolio metrics and the efficient frontier sampler.
package optimization

import (
	"errors"
	"fmt"
	"math"
)

// Method identifies which optimization strategy produced a weight vector.
type Method string

const (
	// MethodClassical is mean-variance optimization (analytic or constrained numerical).
	MethodClassical Method = "MPT"
	// MethodQAOA is the discretized-weight variational encoding.
	MethodQAOA Method = "QAOA"
	// MethodVQE is the asset-selection variational encoding.
	MethodVQE Method = "VQE"
)

// DisplayName returns the human-readable method name reported in responses.
func (m Method) DisplayName() string {
	switch m {
	case MethodQAOA:
		return "QAOA (Quantum Approximate Optimization Algorithm)"
	case MethodVQE:
		return "VQE (Variational Quantum Eigensolver)"
	default:
		return "Modern Portfolio Theory (MPT)"
	}
}

// Warning marks a degraded-but-recovered condition during a solve.
type Warning string

const (
	// WarnNonConverged means the constrained optimizer did not converge and the
	// feasible initial guess was used instead.
	WarnNonConverged Warning = "optimization_non_converged"
	// WarnOptimizationFailed means the solve failed outright and equal weights
	// were used instead.
	WarnOptimizationFailed Warning = "optimization_failed"
)

// ErrSingularCovariance indicates the covariance matrix cannot be inverted in
// the analytic path.
var ErrSingularCovariance = errors.New("covariance matrix is singular")

// Result is the outcome of a solve; Method names the strategy that actually
// produced the weights, which may differ from the requested one after fallback.
type Result struct {
	Weights  []float64
	Method   Method
	Warnings []Warning
}

// Constraints holds optional per-asset weight bounds, index-aligned to the
// asset list.
type Constraints struct {
	Min []float64
	Max []float64
}

// Validate checks bound sanity and feasibility against the unit simplex.
func (c *Constraints) Validate(n int) error {
	if len(c.Min) != n || len(c.Max) != n {
		return fmt.Errorf("constraint bounds size mismatch: min=%d max=%d assets=%d", len(c.Min), len(c.Max), n)
	}
	var sumMin, sumMax float64
	for i := 0; i < n; i++ {
		if c.Min[i] < 0 || c.Max[i] > 1 || c.Min[i] > c.Max[i] {
			return fmt.Errorf("invalid bounds for asset %d: min=%.4f max=%.4f", i, c.Min[i], c.Max[i])
		}
		sumMin += c.Min[i]
		sumMax += c.Max[i]
	}
	if sumMin > 1.0+1e-9 {
		return fmt.Errorf("infeasible constraints: minimum weights sum to %.4f > 1", sumMin)
	}
	if sumMax < 1.0-1e-9 {
		return fmt.Errorf("infeasible constraints: maximum weights sum to %.4f < 1", sumMax)
	}
	return nil
}

// InitialGuess returns midpoint-of-bounds weights normalized to sum 1.
func (c *Constraints) InitialGuess() []float64 {
	n := len(c.Min)
	guess := make([]float64, n)
	sum := 0.0
	for i := 0; i < n; i++ {
		guess[i] = (c.Min[i] + c.Max[i]) / 2.0
		sum += guess[i]
	}
	if sum <= 0 {
		return EqualWeights(n)
	}
	for i := range guess {
		guess[i] /= sum
	}
	return projectToFeasible(guess, c.Min, c.Max)
}

// EqualWeights returns the 1/n portfolio.
func EqualWeights(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1.0 / float64(n)
	}
	return w
}

// normalizeLongOnly normalizes to sum 1 (equal weights when the sum is not
// positive), then clamps negatives to zero and renormalizes. The two-step
// projection guarantees a hard zero floor.
func normalizeLongOnly(w []float64) []float64 {
	n := len(w)
	out := make([]float64, n)
	copy(out, w)

	sum := 0.0
	for _, v := range out {
		sum += v
	}
	if sum > 0 {
		for i := range out {
			out[i] /= sum
		}
	} else {
		return EqualWeights(n)
	}

	sum = 0.0
	for i := range out {
		out[i] = math.Max(out[i], 0)
		sum += out[i]
	}
	if sum <= 0 {
		return EqualWeights(n)
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// projectToFeasible projects weights onto the intersection of the unit-sum
// simplex and the box [min, max] by clamping and redistributing the residual
// across assets with remaining slack. Assumes the bounds are feasible.
func projectToFeasible(w, min, max []float64) []float64 {
	n := len(w)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = math.Max(min[i], math.Min(max[i], w[i]))
	}

	for iter := 0; iter < 64; iter++ {
		sum := 0.0
		for _, v := range out {
			sum += v
		}
		residual := 1.0 - sum
		if math.Abs(residual) < 1e-12 {
			break
		}

		slack := 0.0
		for i := 0; i < n; i++ {
			if residual > 0 {
				slack += max[i] - out[i]
			} else {
				slack += out[i] - min[i]
			}
		}
		if slack <= 0 {
			break
		}
		for i := 0; i < n; i++ {
			if residual > 0 {
				out[i] += residual * (max[i] - out[i]) / slack
			} else {
				out[i] += residual * (out[i] - min[i]) / slack
			}
			out[i] = math.Max(min[i], math.Min(max[i], out[i]))
		}
	}
	return out
}
