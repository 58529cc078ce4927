package quantum

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbeBackend(t *testing.T) {
	log := zerolog.Nop()

	assert.NotNil(t, ProbeBackend("anneal", log))
	assert.NotNil(t, ProbeBackend("ANNEAL", log))
	assert.Nil(t, ProbeBackend("", log))
	assert.Nil(t, ProbeBackend("none", log))
	assert.Nil(t, ProbeBackend("ibmq", log))
}

func TestAnnealBackend_FindsExactMinimum(t *testing.T) {
	// Small enough to brute-force: the annealer must find the global minimum.
	q := &QUBO{
		Linear: []float64{-1.0, 2.0, -0.5, 0.3},
		Quadratic: [][]float64{
			{0.0, 0.4, -0.2, 0.1},
			{0.4, 0.0, 0.3, -0.1},
			{-0.2, 0.3, 0.0, 0.2},
			{0.1, -0.1, 0.2, 0.0},
		},
	}

	bestEnergy := bruteForceMinimum(q)

	backend := NewAnnealBackend(zerolog.Nop())
	bits, err := backend.Solve(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, bits, 4)

	assert.InDelta(t, bestEnergy, q.Energy(bits), 1e-12)
}

func TestAnnealBackend_Deterministic(t *testing.T) {
	enc := NewDiscretizedEncoding(4)
	q := enc.Build(
		[]float64{0.08, 0.12, 0.05},
		[][]float64{
			{0.04, 0.01, 0.0},
			{0.01, 0.09, 0.01},
			{0.0, 0.01, 0.01},
		},
		0.5,
	)

	a, err := NewAnnealBackend(zerolog.Nop()).Solve(context.Background(), q)
	require.NoError(t, err)
	b, err := NewAnnealBackend(zerolog.Nop()).Solve(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, a, b, "fixed seed must reproduce the same assignment")
}

func TestAnnealBackend_EmptyProblem(t *testing.T) {
	backend := NewAnnealBackend(zerolog.Nop())
	_, err := backend.Solve(context.Background(), &QUBO{})
	require.Error(t, err)
}

func TestAnnealBackend_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	backend := NewAnnealBackend(zerolog.Nop())
	_, err := backend.Solve(ctx, &QUBO{Linear: []float64{1}, Quadratic: [][]float64{{0}}})
	require.ErrorIs(t, err, context.Canceled)
}

func bruteForceMinimum(q *QUBO) float64 {
	n := q.NumVars()
	best := q.Energy(make([]bool, n))
	for mask := 1; mask < 1<<n; mask++ {
		bits := make([]bool, n)
		for i := 0; i < n; i++ {
			bits[i] = mask&(1<<i) != 0
		}
		if e := q.Energy(bits); e < best {
			best = e
		}
	}
	return best
}
