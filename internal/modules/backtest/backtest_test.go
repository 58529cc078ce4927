package backtest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/quantfolio/internal/modules/marketdata"
	"github.com/aristath/quantfolio/internal/modules/optimization"
)

// scriptedProvider serves a deterministic walk for every requested window,
// optionally returning empty data for whole windows.
type scriptedProvider struct {
	emptyBefore time.Time // windows ending before this date get no data
	fail        bool
}

func (p *scriptedProvider) Fetch(ctx context.Context, symbols []string, start, end time.Time) (*marketdata.PriceHistory, error) {
	if p.fail {
		return nil, errors.New("provider down")
	}
	if end.Before(p.emptyBefore) {
		return &marketdata.PriceHistory{}, nil
	}

	history := &marketdata.PriceHistory{Symbols: symbols}
	base := 100.0
	for day := 0; day < 60; day++ {
		row := make([]float64, len(symbols))
		for i := range symbols {
			// Distinct drift per asset keeps the covariance non-singular.
			row[i] = base * (1.0 + float64(day)*0.001*float64(i+1)) * (1.0 + 0.0001*float64(day%7))
		}
		history.Dates = append(history.Dates, start.AddDate(0, 0, day))
		history.Closes = append(history.Closes, row)
	}
	return history, nil
}

func testHarness(provider marketdata.Provider) *Harness {
	now := func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	solver := optimization.NewClassicalSolver(optimization.DefaultRiskFreeRate, zerolog.Nop())
	return NewHarness(provider, solver, optimization.DefaultRiskFreeRate, now, zerolog.Nop())
}

func TestParsePeriod(t *testing.T) {
	for period, months := range map[string]int{"3mo": 3, "6mo": 6, "1y": 12} {
		got, err := ParsePeriod(period)
		require.NoError(t, err)
		assert.Equal(t, months, got)
	}

	_, err := ParsePeriod("2w")
	require.Error(t, err)
}

func TestHarness_RunAllPeriods(t *testing.T) {
	harness := testHarness(&scriptedProvider{})
	symbols := []string{"AAA", "BBB"}

	records := harness.Run(context.Background(), symbols, []string{"3mo", "6mo", "1y"}, 0.5)

	require.Len(t, records, 3)

	// Results keep the caller's period order despite concurrent evaluation.
	assert.Equal(t, "3mo", records[0].Period)
	assert.Equal(t, "6mo", records[1].Period)
	assert.Equal(t, "1y", records[2].Period)

	for _, record := range records {
		assert.NotEmpty(t, record.LookbackDate)
		assert.InDelta(t, record.Actual.ExpectedReturn-record.Baseline.ExpectedReturn, record.Outperformance, 1e-12)
	}

	// Lookback dates are now minus the period length.
	assert.Equal(t, "2024-03-01", records[0].LookbackDate)
	assert.Equal(t, "2023-12-01", records[1].LookbackDate)
	assert.Equal(t, "2023-06-01", records[2].LookbackDate)
}

func TestHarness_SkipsPeriodsWithoutData(t *testing.T) {
	// Training windows for 1y reach back to mid-2022; cut data off before
	// 2024 so only the short periods survive.
	provider := &scriptedProvider{emptyBefore: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	harness := testHarness(provider)

	records := harness.Run(context.Background(), []string{"AAA", "BBB"}, []string{"3mo", "1y"}, 0.5)

	require.Len(t, records, 1)
	assert.Equal(t, "3mo", records[0].Period)
}

func TestHarness_ProviderDownReturnsEmpty(t *testing.T) {
	harness := testHarness(&scriptedProvider{fail: true})

	records := harness.Run(context.Background(), []string{"AAA"}, []string{"3mo", "6mo"}, 0.5)

	assert.Empty(t, records)
}

func TestHarness_UnknownPeriodSkipped(t *testing.T) {
	harness := testHarness(&scriptedProvider{})

	records := harness.Run(context.Background(), []string{"AAA", "BBB"}, []string{"2w", "3mo"}, 0.5)

	require.Len(t, records, 1)
	assert.Equal(t, "3mo", records[0].Period)
}
