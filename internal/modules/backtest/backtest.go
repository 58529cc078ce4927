package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/quantfolio/internal/modules/marketdata"
	"github.com/aristath/quantfolio/internal/modules/optimization"
	"github.com/aristath/quantfolio/internal/modules/statistics"
)

// Record holds the outcome of one historical evaluation window.
type Record struct {
	Period         string               `json:"period"`
	LookbackDate   string               `json:"lookbackDate"`
	Predicted      optimization.Metrics `json:"predicted"`
	Actual         optimization.Metrics `json:"actual"`
	Baseline       optimization.Metrics `json:"baseline"`
	Outperformance float64              `json:"outperformance"`
}

// ParsePeriod converts a lookback label into a month count.
func ParsePeriod(period string) (int, error) {
	switch period {
	case "3mo":
		return 3, nil
	case "6mo":
		return 6, nil
	case "1y":
		return 12, nil
	default:
		return 0, fmt.Errorf("unknown backtest period %q", period)
	}
}

// Harness replays the optimizer on historical windows and compares the frozen
// allocation against an equal-weight baseline over the period that followed.
type Harness struct {
	provider     marketdata.Provider
	solver       *optimization.ClassicalSolver
	riskFreeRate float64
	now          func() time.Time
	log          zerolog.Logger
}

// NewHarness creates a backtest harness. now is injectable for tests.
func NewHarness(provider marketdata.Provider, solver *optimization.ClassicalSolver, riskFreeRate float64, now func() time.Time, log zerolog.Logger) *Harness {
	if now == nil {
		now = time.Now
	}
	return &Harness{
		provider:     provider,
		solver:       solver,
		riskFreeRate: riskFreeRate,
		now:          now,
		log:          log.With().Str("component", "backtest").Logger(),
	}
}

// Run evaluates every requested period. Periods run concurrently but results
// keep the caller's order. Periods without usable data are skipped rather
// than failing the whole run.
func (h *Harness) Run(ctx context.Context, symbols []string, periods []string, riskFactor float64) []Record {
	slots := make([]*Record, len(periods))

	g, gctx := errgroup.WithContext(ctx)
	for i, period := range periods {
		i, period := i, period
		g.Go(func() error {
			record, err := h.runPeriod(gctx, symbols, period, riskFactor)
			if err != nil {
				h.log.Warn().Err(err).Str("period", period).Msg("Skipping backtest period")
				return nil
			}
			slots[i] = record
			return nil
		})
	}
	_ = g.Wait()

	records := make([]Record, 0, len(periods))
	for _, slot := range slots {
		if slot != nil {
			records = append(records, *slot)
		}
	}
	return records
}

func (h *Harness) runPeriod(ctx context.Context, symbols []string, period string, riskFactor float64) (*Record, error) {
	months, err := ParsePeriod(period)
	if err != nil {
		return nil, err
	}

	now := h.now()
	lookback := now.AddDate(0, -months, 0)
	trainStart := lookback.AddDate(-1, 0, 0)

	train, err := h.provider.Fetch(ctx, symbols, trainStart, lookback)
	if err != nil {
		return nil, fmt.Errorf("training data fetch failed: %w", err)
	}
	if train.Empty() {
		return nil, fmt.Errorf("no training data in [%s, %s)",
			trainStart.Format("2006-01-02"), lookback.Format("2006-01-02"))
	}

	test, err := h.provider.Fetch(ctx, symbols, lookback, now)
	if err != nil {
		return nil, fmt.Errorf("evaluation data fetch failed: %w", err)
	}
	if test.Empty() {
		return nil, fmt.Errorf("no evaluation data in [%s, %s]",
			lookback.Format("2006-01-02"), now.Format("2006-01-02"))
	}

	trainMu, trainCov, err := statistics.Compute(train.Closes, statistics.TradingDaysPerYear)
	if err != nil {
		return nil, fmt.Errorf("training statistics failed: %w", err)
	}
	testMu, testCov, err := statistics.Compute(test.Closes, statistics.TradingDaysPerYear)
	if err != nil {
		return nil, fmt.Errorf("evaluation statistics failed: %w", err)
	}

	// Weights are frozen at the lookback date; the evaluation window never
	// leaks into the optimization inputs.
	result, err := h.solver.Solve(trainMu, trainCov, riskFactor, nil)
	if err != nil {
		return nil, fmt.Errorf("historical optimization failed: %w", err)
	}

	equal := optimization.EqualWeights(len(symbols))

	record := &Record{
		Period:         period,
		LookbackDate:   lookback.Format("2006-01-02"),
		Predicted:      optimization.ComputeMetrics(result.Weights, trainMu, trainCov, h.riskFreeRate),
		Actual:         optimization.ComputeMetrics(result.Weights, testMu, testCov, h.riskFreeRate),
		Baseline:       optimization.ComputeMetrics(equal, testMu, testCov, h.riskFreeRate),
		Outperformance: 0,
	}
	record.Outperformance = record.Actual.ExpectedReturn - record.Baseline.ExpectedReturn

	h.log.Debug().
		Str("period", period).
		Float64("actual_return", record.Actual.ExpectedReturn).
		Float64("baseline_return", record.Baseline.ExpectedReturn).
		Msg("Backtest period complete")

	return record, nil
}
