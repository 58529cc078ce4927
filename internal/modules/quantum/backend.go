package quantum

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/rs/zerolog"
)

// Backend solves a QUBO problem and returns the best assignment found.
// Implementations are synchronous and blocking; no deadline is enforced
// beyond cooperative context checks between restarts.
type Backend interface {
	Name() string
	Solve(ctx context.Context, q *QUBO) ([]bool, error)
}

// ErrBackendUnavailable indicates no variational backend is configured; the
// caller routes to the classical solver.
var ErrBackendUnavailable = fmt.Errorf("quantum backend unavailable")

// ProbeBackend performs the one-time capability probe at process start and
// returns the configured backend, or nil when the variational path is
// disabled or the name is unknown.
func ProbeBackend(name string, log zerolog.Logger) Backend {
	switch strings.ToLower(name) {
	case "anneal":
		return NewAnnealBackend(log)
	case "", "none":
		log.Info().Msg("Variational backend disabled, quantum solves will route to classical")
		return nil
	default:
		log.Warn().Str("backend", name).Msg("Unknown variational backend, quantum solves will route to classical")
		return nil
	}
}

// AnnealBackend minimizes QUBO energy with restarted simulated annealing over
// single-bit flips. The temperature schedule plays the role of the mixing
// operator in an alternating-operator search: hot sweeps explore, cold sweeps
// exploit. Deterministic for a fixed seed and problem.
type AnnealBackend struct {
	restarts int
	sweeps   int
	seed     int64
	log      zerolog.Logger
}

// NewAnnealBackend creates an annealing backend with default tuning.
func NewAnnealBackend(log zerolog.Logger) *AnnealBackend {
	return &AnnealBackend{
		restarts: 8,
		sweeps:   400,
		seed:     1,
		log:      log.With().Str("component", "anneal_backend").Logger(),
	}
}

// Name returns the backend identifier.
func (b *AnnealBackend) Name() string {
	return "anneal"
}

// Solve runs the annealing schedule and returns the lowest-energy assignment
// seen across all restarts.
func (b *AnnealBackend) Solve(ctx context.Context, q *QUBO) ([]bool, error) {
	numVars := q.NumVars()
	if numVars == 0 {
		return nil, fmt.Errorf("empty problem: no binary variables")
	}

	rng := rand.New(rand.NewSource(b.seed))

	// Temperature scale from the largest coefficient magnitude so acceptance
	// probabilities are problem-size independent.
	tStart := 0.0
	for i := 0; i < numVars; i++ {
		tStart = math.Max(tStart, math.Abs(q.Linear[i]))
		for j := 0; j < numVars; j++ {
			tStart = math.Max(tStart, math.Abs(q.Quadratic[i][j]))
		}
	}
	if tStart == 0 {
		tStart = 1.0
	}
	tEnd := tStart * 1e-3

	var best []bool
	bestEnergy := math.Inf(1)

	for restart := 0; restart < b.restarts; restart++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		state := make([]bool, numVars)
		for i := range state {
			state[i] = rng.Intn(2) == 1
		}
		energy := q.Energy(state)

		temp := tStart
		cooling := math.Pow(tEnd/tStart, 1.0/float64(b.sweeps))
		for sweep := 0; sweep < b.sweeps; sweep++ {
			for move := 0; move < numVars; move++ {
				k := rng.Intn(numVars)
				delta := q.FlipDelta(state, k)
				if delta <= 0 || rng.Float64() < math.Exp(-delta/temp) {
					state[k] = !state[k]
					energy += delta
				}
			}
			temp *= cooling
		}

		// Greedy descent polishes the annealed state to a local minimum.
		improved := true
		for improved {
			improved = false
			for k := 0; k < numVars; k++ {
				if delta := q.FlipDelta(state, k); delta < 0 {
					state[k] = !state[k]
					energy += delta
					improved = true
				}
			}
		}

		if energy < bestEnergy {
			bestEnergy = energy
			best = append([]bool(nil), state...)
		}
	}

	b.log.Debug().
		Int("num_vars", numVars).
		Float64("best_energy", bestEnergy).
		Msg("Annealing solve complete")

	return best, nil
}
