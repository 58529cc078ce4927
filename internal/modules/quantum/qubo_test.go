package quantum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQUBO_EnergyAndFlipDelta(t *testing.T) {
	q := &QUBO{
		Linear: []float64{1.0, -2.0, 0.5},
		Quadratic: [][]float64{
			{0.0, 0.3, -0.1},
			{0.3, 0.0, 0.2},
			{-0.1, 0.2, 0.0},
		},
	}

	bits := []bool{true, true, false}
	// E = 1 - 2 + (Q[0][1] + Q[1][0]) = -1 + 0.6
	assert.InDelta(t, -0.4, q.Energy(bits), 1e-12)

	// FlipDelta must agree with recomputing the energy after the flip.
	for k := 0; k < q.NumVars(); k++ {
		delta := q.FlipDelta(bits, k)
		flipped := append([]bool(nil), bits...)
		flipped[k] = !flipped[k]
		assert.InDelta(t, q.Energy(flipped)-q.Energy(bits), delta, 1e-12, "variable %d", k)
	}
}

func TestDiscretizedEncoding_EnergyMatchesContinuousObjective(t *testing.T) {
	mu := []float64{0.08, 0.12}
	cov := [][]float64{
		{0.04, 0.01},
		{0.01, 0.09},
	}
	riskFactor := 0.5
	enc := NewDiscretizedEncoding(4)
	q := enc.Build(mu, cov, riskFactor)

	require.Equal(t, 8, q.NumVars())

	// Pick an assignment, decode it, and check the QUBO energy equals
	// -μ·w + 2·riskFactor·w'Σw for the decoded raw weights.
	bits := []bool{true, false, true, false, false, true, false, true}
	w := enc.Decode(bits, 2)

	var ret, risk float64
	for i := 0; i < 2; i++ {
		ret += mu[i] * w[i]
		for j := 0; j < 2; j++ {
			risk += w[i] * w[j] * cov[i][j]
		}
	}
	expected := -ret + 2.0*riskFactor*risk

	assert.InDelta(t, expected, q.Energy(bits), 1e-12)
}

func TestDiscretizedEncoding_DecodeBounds(t *testing.T) {
	enc := NewDiscretizedEncoding(4)

	all := make([]bool, 8)
	for i := range all {
		all[i] = true
	}
	w := enc.Decode(all, 2)
	assert.InDelta(t, 1.0, w[0], 1e-12, "all bits set decodes to full weight")
	assert.InDelta(t, 1.0, w[1], 1e-12)

	none := make([]bool, 8)
	w = enc.Decode(none, 2)
	assert.Equal(t, []float64{0, 0}, w)
}

func TestNewDiscretizedEncoding_DefaultsBits(t *testing.T) {
	assert.Equal(t, 4, NewDiscretizedEncoding(0).BitsPerAsset)
	assert.Equal(t, 4, NewDiscretizedEncoding(9).BitsPerAsset)
	assert.Equal(t, 2, NewDiscretizedEncoding(2).BitsPerAsset)
}

func TestSelectionEncoding(t *testing.T) {
	mu := []float64{0.08, 0.12, 0.05}
	cov := [][]float64{
		{0.04, 0.01, 0.0},
		{0.01, 0.09, 0.0},
		{0.0, 0.0, 0.01},
	}
	var enc SelectionEncoding
	q := enc.Build(mu, cov, 0.5)

	require.Equal(t, 3, q.NumVars())
	assert.InDelta(t, -0.12, q.Linear[1], 1e-12)
	assert.InDelta(t, 1.0*0.09, q.Quadratic[1][1], 1e-12)

	w := enc.Decode([]bool{true, false, true}, 3)
	assert.Equal(t, []float64{0.5, 0.0, 0.5}, w)

	w = enc.Decode([]bool{false, false, false}, 3)
	assert.Equal(t, []float64{0.0, 0.0, 0.0}, w, "empty selection decodes to zeros for the solver fallback")
}
