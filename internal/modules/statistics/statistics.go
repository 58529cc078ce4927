// Package statistics converts price history into the annualized return vector
// and covariance matrix consumed by the optimizers.
package statistics

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear is the default annualization factor for daily closes.
const TradingDaysPerYear = 252.0

// ErrInsufficientData indicates the price table has too few observations to
// compute returns. Callers are expected to fall back to a synthetic generator.
var ErrInsufficientData = errors.New("insufficient price history")

// Compute calculates annualized expected returns and the annualized covariance
// matrix from an observation-major price table (rows are dates in ascending
// order, columns are assets).
//
// Returns are simple percentage changes between consecutive rows; the first
// row produces no return and is dropped, as are rows whose returns are not
// finite (zero or missing prior close).
func Compute(prices [][]float64, periodsPerYear float64) ([]float64, [][]float64, error) {
	if len(prices) < 2 {
		return nil, nil, fmt.Errorf("%w: got %d observations, need at least 2", ErrInsufficientData, len(prices))
	}
	n := len(prices[0])
	if n == 0 {
		return nil, nil, fmt.Errorf("%w: price table has no assets", ErrInsufficientData)
	}
	for i, row := range prices {
		if len(row) != n {
			return nil, nil, fmt.Errorf("price table row %d has %d columns, expected %d", i, len(row), n)
		}
	}
	if periodsPerYear <= 0 {
		periodsPerYear = TradingDaysPerYear
	}

	returns := dailyReturns(prices)
	if len(returns) == 0 {
		return nil, nil, fmt.Errorf("%w: no usable return observations", ErrInsufficientData)
	}

	mu := make([]float64, n)
	col := make([]float64, len(returns))
	for i := 0; i < n; i++ {
		for t := range returns {
			col[t] = returns[t][i]
		}
		mu[i] = stat.Mean(col, nil) * periodsPerYear
	}

	cov := covariance(returns, n, periodsPerYear)
	return mu, cov, nil
}

// dailyReturns computes simple returns between consecutive rows, skipping
// rows where any return is undefined.
func dailyReturns(prices [][]float64) [][]float64 {
	n := len(prices[0])
	returns := make([][]float64, 0, len(prices)-1)
	for t := 1; t < len(prices); t++ {
		row := make([]float64, n)
		ok := true
		for i := 0; i < n; i++ {
			prev := prices[t-1][i]
			if prev == 0 {
				ok = false
				break
			}
			r := prices[t][i]/prev - 1.0
			if math.IsNaN(r) || math.IsInf(r, 0) {
				ok = false
				break
			}
			row[i] = r
		}
		if ok {
			returns = append(returns, row)
		}
	}
	return returns
}

// covariance computes the annualized sample covariance matrix of the return
// rows. A single return row cannot support a sample estimate; the covariance
// degenerates to the zero matrix rather than NaN so downstream metrics stay
// finite.
func covariance(returns [][]float64, n int, periodsPerYear float64) [][]float64 {
	cov := make([][]float64, n)
	for i := range cov {
		cov[i] = make([]float64, n)
	}
	if len(returns) < 2 {
		return cov
	}

	flat := make([]float64, 0, len(returns)*n)
	for _, row := range returns {
		flat = append(flat, row...)
	}
	data := mat.NewDense(len(returns), n, flat)

	var sym mat.SymDense
	stat.CovarianceMatrix(&sym, data, nil)

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			cov[i][j] = sym.At(i, j) * periodsPerYear
		}
	}
	return cov
}
