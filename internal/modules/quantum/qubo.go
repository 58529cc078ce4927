// Package quantum provides quantum-inspired combinatorial portfolio
// optimization: QUBO encodings of the mean-variance objective, variational
// solver backends, and an automatic fallback to the classical solver.
package quantum

// QUBO is a quadratic unconstrained binary optimization problem. The energy
// of an assignment x is
//
//	E(x) = Σᵢ Linear[i]·xᵢ + Σᵢ Σⱼ Quadratic[i][j]·xᵢ·xⱼ
//
// with the double sum running over all ordered pairs, so a symmetric
// Quadratic reproduces the full w'Σw form. Backends minimize E.
type QUBO struct {
	Linear    []float64
	Quadratic [][]float64
}

// NumVars returns the number of binary variables.
func (q *QUBO) NumVars() int {
	return len(q.Linear)
}

// Energy evaluates the objective for a full assignment.
func (q *QUBO) Energy(bits []bool) float64 {
	e := 0.0
	for i, set := range bits {
		if !set {
			continue
		}
		e += q.Linear[i]
		for j, other := range bits {
			if other {
				e += q.Quadratic[i][j]
			}
		}
	}
	return e
}

// FlipDelta returns the energy change from flipping variable k in the given
// assignment. Used by backends for incremental moves.
func (q *QUBO) FlipDelta(bits []bool, k int) float64 {
	// Contribution of x_k when set: Linear[k] + Q[k][k] plus cross terms
	// (Q[k][j] + Q[j][k]) for every other set variable.
	contrib := q.Linear[k] + q.Quadratic[k][k]
	for j, set := range bits {
		if set && j != k {
			contrib += q.Quadratic[k][j] + q.Quadratic[j][k]
		}
	}
	if bits[k] {
		return -contrib
	}
	return contrib
}

// DiscretizedEncoding represents each asset's continuous weight with
// BitsPerAsset binary variables, giving 2^b discrete levels scaled to [0, 1]
// by level/(2^b - 1).
type DiscretizedEncoding struct {
	BitsPerAsset int
}

// NewDiscretizedEncoding creates the encoding; bits outside [1, 8] fall back
// to the 4-bit default.
func NewDiscretizedEncoding(bits int) DiscretizedEncoding {
	if bits < 1 || bits > 8 {
		bits = 4
	}
	return DiscretizedEncoding{BitsPerAsset: bits}
}

// Build encodes the continuous objective μ·w − riskFactor·w'Σw as a binary
// polynomial. Linear terms carry −μᵢ·bitValue (the backend minimizes);
// quadratic terms carry riskPenalty·Σᵢⱼ·bitValueᵢ·bitValueⱼ with
// riskPenalty = 2·riskFactor.
func (e DiscretizedEncoding) Build(mu []float64, cov [][]float64, riskFactor float64) *QUBO {
	n := len(mu)
	b := e.BitsPerAsset
	numVars := n * b
	maxLevel := float64(int(1)<<b - 1)
	riskPenalty := 2.0 * riskFactor

	bitValue := func(bit int) float64 {
		return float64(int(1)<<bit) / maxLevel
	}

	q := &QUBO{
		Linear:    make([]float64, numVars),
		Quadratic: make([][]float64, numVars),
	}
	for v := range q.Quadratic {
		q.Quadratic[v] = make([]float64, numVars)
	}

	for i := 0; i < n; i++ {
		for bit := 0; bit < b; bit++ {
			q.Linear[i*b+bit] = -mu[i] * bitValue(bit)
		}
	}
	// The ordered-pair energy sum mirrors the ordered double sum in w'Σw, so
	// the coefficients carry the full covariance entries.
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			for bi := 0; bi < b; bi++ {
				for bj := 0; bj < b; bj++ {
					q.Quadratic[i*b+bi][j*b+bj] = riskPenalty * cov[i][j] * bitValue(bi) * bitValue(bj)
				}
			}
		}
	}
	return q
}

// Decode sums the set bit values per asset into raw (unnormalized) weights.
func (e DiscretizedEncoding) Decode(bits []bool, n int) []float64 {
	b := e.BitsPerAsset
	maxLevel := float64(int(1)<<b - 1)
	weights := make([]float64, n)
	for i := 0; i < n; i++ {
		for bit := 0; bit < b; bit++ {
			if bits[i*b+bit] {
				weights[i] += float64(int(1)<<bit) / maxLevel
			}
		}
	}
	return weights
}

// SelectionEncoding uses one binary variable per asset: include or exclude,
// with no discretized magnitude.
type SelectionEncoding struct{}

// Build encodes asset selection: linear −μᵢ, quadratic riskPenalty·Σᵢⱼ.
func (SelectionEncoding) Build(mu []float64, cov [][]float64, riskFactor float64) *QUBO {
	n := len(mu)
	riskPenalty := 2.0 * riskFactor

	q := &QUBO{
		Linear:    make([]float64, n),
		Quadratic: make([][]float64, n),
	}
	for i := 0; i < n; i++ {
		q.Linear[i] = -mu[i]
		q.Quadratic[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			q.Quadratic[i][j] = riskPenalty * cov[i][j]
		}
	}
	return q
}

// Decode equal-splits the total weight among selected assets. Returns raw
// indicator weights; the solver handles the none-selected fallback.
func (SelectionEncoding) Decode(bits []bool, n int) []float64 {
	selected := 0
	for i := 0; i < n; i++ {
		if bits[i] {
			selected++
		}
	}
	weights := make([]float64, n)
	if selected == 0 {
		return weights
	}
	for i := 0; i < n; i++ {
		if bits[i] {
			weights[i] = 1.0 / float64(selected)
		}
	}
	return weights
}
