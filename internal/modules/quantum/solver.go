package quantum

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/quantfolio/internal/modules/optimization"
)

// Solver dispatches portfolio problems to a variational backend, decoding
// binary solutions into weight vectors. It always produces a valid weight
// vector: backend unavailability or any solve failure routes to the classical
// solver, and the result names the method that actually ran.
type Solver struct {
	backend   Backend // nil when the startup probe found no backend
	bits      int
	classical *optimization.ClassicalSolver
	log       zerolog.Logger
}

// NewSolver creates a variational solver. backend may be nil (probe failed),
// in which case every solve routes directly to classical.
func NewSolver(backend Backend, bitsPerAsset int, classical *optimization.ClassicalSolver, log zerolog.Logger) *Solver {
	return &Solver{
		backend:   backend,
		bits:      bitsPerAsset,
		classical: classical,
		log:       log.With().Str("component", "quantum_solver").Logger(),
	}
}

// Available reports whether a variational backend made it through the probe.
func (s *Solver) Available() bool {
	return s.backend != nil
}

// SolveDiscretized optimizes with the discretized-weight encoding (QAOA-style,
// b bits per asset).
func (s *Solver) SolveDiscretized(ctx context.Context, mu []float64, cov [][]float64, riskFactor float64) (optimization.Result, error) {
	if s.backend == nil {
		s.log.Info().Msg("No variational backend available, falling back to classical solver")
		return s.classical.Solve(mu, cov, riskFactor, nil)
	}

	enc := NewDiscretizedEncoding(s.bits)
	start := time.Now()
	bits, err := s.backend.Solve(ctx, enc.Build(mu, cov, riskFactor))
	if err != nil {
		s.log.Warn().Err(err).Str("backend", s.backend.Name()).
			Msg("Discretized variational solve failed, falling back to classical solver")
		return s.classical.Solve(mu, cov, riskFactor, nil)
	}

	weights := normalizeOrEqual(enc.Decode(bits, len(mu)))

	s.log.Info().
		Str("backend", s.backend.Name()).
		Int("bits_per_asset", enc.BitsPerAsset).
		Dur("elapsed", time.Since(start)).
		Msg("Discretized variational solve complete")

	return optimization.Result{Weights: weights, Method: optimization.MethodQAOA}, nil
}

// SolveSelection optimizes with the one-bit-per-asset selection encoding
// (VQE-style), equal-splitting weight among the selected assets.
func (s *Solver) SolveSelection(ctx context.Context, mu []float64, cov [][]float64, riskFactor float64) (optimization.Result, error) {
	if s.backend == nil {
		s.log.Info().Msg("No variational backend available, falling back to classical solver")
		return s.classical.Solve(mu, cov, riskFactor, nil)
	}

	var enc SelectionEncoding
	start := time.Now()
	bits, err := s.backend.Solve(ctx, enc.Build(mu, cov, riskFactor))
	if err != nil {
		s.log.Warn().Err(err).Str("backend", s.backend.Name()).
			Msg("Selection variational solve failed, falling back to classical solver")
		return s.classical.Solve(mu, cov, riskFactor, nil)
	}

	weights := normalizeOrEqual(enc.Decode(bits, len(mu)))

	s.log.Info().
		Str("backend", s.backend.Name()).
		Dur("elapsed", time.Since(start)).
		Msg("Selection variational solve complete")

	return optimization.Result{Weights: weights, Method: optimization.MethodVQE}, nil
}

// normalizeOrEqual normalizes decoded weights to sum 1, falling back to equal
// weights when the decoded vector sums to zero.
func normalizeOrEqual(w []float64) []float64 {
	sum := 0.0
	for _, v := range w {
		sum += v
	}
	if sum <= 0 {
		return optimization.EqualWeights(len(w))
	}
	out := make([]float64, len(w))
	for i, v := range w {
		out[i] = v / sum
	}
	return out
}
