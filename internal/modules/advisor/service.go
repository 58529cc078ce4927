package advisor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/quantfolio/internal/modules/backtest"
	"github.com/aristath/quantfolio/internal/modules/marketdata"
	"github.com/aristath/quantfolio/internal/modules/optimization"
	"github.com/aristath/quantfolio/internal/modules/quantum"
	"github.com/aristath/quantfolio/internal/modules/statistics"
)

const (
	defaultTargetRiskLevel = 5
	historyYears           = 1
)

var defaultBacktestPeriods = []string{"3mo", "6mo", "1y"}

// Service orchestrates data sourcing, optimization and reporting for the
// portfolio endpoints.
type Service struct {
	provider        marketdata.Provider
	synthetic       *marketdata.SyntheticGenerator
	classical       *optimization.ClassicalSolver
	quantum         *quantum.Solver
	harness         *backtest.Harness
	riskFreeRate    float64
	frontierSamples int
	log             zerolog.Logger
}

// NewService wires the advisor together.
func NewService(
	provider marketdata.Provider,
	synthetic *marketdata.SyntheticGenerator,
	classical *optimization.ClassicalSolver,
	quantumSolver *quantum.Solver,
	harness *backtest.Harness,
	riskFreeRate float64,
	frontierSamples int,
	log zerolog.Logger,
) *Service {
	return &Service{
		provider:        provider,
		synthetic:       synthetic,
		classical:       classical,
		quantum:         quantumSolver,
		harness:         harness,
		riskFreeRate:    riskFreeRate,
		frontierSamples: frontierSamples,
		log:             log.With().Str("component", "advisor").Logger(),
	}
}

// Optimize runs the full pipeline for one request. Failures return an
// envelope with Error set and every numeric field zeroed; partial results
// are never emitted.
func (s *Service) Optimize(ctx context.Context, req OptimizeRequest) OptimizeResponse {
	requestID := uuid.New().String()
	log := s.log.With().Str("request_id", requestID).Logger()

	metrics := AdditionalMetrics{
		NumberOfStocks:  len(req.Stocks),
		TotalInvestment: req.TotalInvestment,
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		RequestID:       requestID,
	}

	if err := validateStocks(req.Stocks); err != nil {
		return errorResponse(metrics, err)
	}

	riskFactor := resolveRiskFactor(req.TargetRiskLevel)
	method := resolveMethod(req.Method)
	metrics.OptimizationMethod = method.DisplayName()

	symbols := make([]string, len(req.Stocks))
	for i, stock := range req.Stocks {
		symbols[i] = stock.Symbol
	}

	mu, cov, usedRealData := s.assembleStatistics(ctx, req, log)

	cons, err := buildConstraints(req.Stocks, req.Constraints)
	if err != nil {
		return errorResponse(metrics, err)
	}

	result, err := s.dispatch(ctx, method, mu, cov, riskFactor, cons)
	if err != nil {
		return errorResponse(metrics, err)
	}
	metrics.OptimizationMethod = result.Method.DisplayName()

	optimized := optimization.ComputeMetrics(result.Weights, mu, cov, s.riskFreeRate)

	optimizedSummary := toSummary(optimized)
	resp := OptimizeResponse{
		Allocation:         make(map[string]float64, len(symbols)),
		ExpectedReturn:     optimizedSummary.ExpectedReturn,
		ExpectedRisk:       optimizedSummary.ExpectedRisk,
		SharpeRatio:        optimizedSummary.SharpeRatio,
		OptimizedPortfolio: &optimizedSummary,
		AdditionalMetrics:  metrics,
	}
	for _, warning := range result.Warnings {
		resp.Warnings = append(resp.Warnings, string(warning))
	}
	for i, symbol := range symbols {
		resp.Allocation[symbol] = roundTo(result.Weights[i]*100, 2)
	}

	current := currentWeights(req.Stocks)
	currentSummary := toSummary(optimization.ComputeMetrics(current, mu, cov, s.riskFreeRate))
	resp.CurrentPortfolio = &currentSummary

	rng := rand.New(rand.NewSource(optimization.FrontierSeed))
	for _, point := range optimization.SampleFrontier(mu, cov, s.frontierSamples, s.riskFreeRate, rng) {
		resp.EfficientFrontier = append(resp.EfficientFrontier, FrontierPoint{
			Risk:        roundTo(point.Risk*100, 2),
			Return:      roundTo(point.Return*100, 2),
			SharpeRatio: roundTo(point.Sharpe, 3),
		})
	}

	// Backtests only make sense against real history.
	if usedRealData {
		records := s.harness.Run(ctx, symbols, defaultBacktestPeriods, riskFactor)
		resp.BacktestResults = toBacktestEntries(records)
	}

	log.Info().
		Str("method", string(result.Method)).
		Bool("real_data", usedRealData).
		Float64("sharpe", resp.SharpeRatio).
		Msg("Optimization complete")

	return resp
}

// Backtest runs the standalone backtest endpoint.
func (s *Service) Backtest(ctx context.Context, req BacktestRequest) BacktestResponse {
	requestID := uuid.New().String()
	metrics := AdditionalMetrics{
		NumberOfStocks: len(req.Stocks),
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		RequestID:      requestID,
	}

	if err := validateStocks(req.Stocks); err != nil {
		return BacktestResponse{AdditionalMetrics: metrics, Error: err.Error()}
	}

	periods := req.Periods
	if len(periods) == 0 {
		periods = defaultBacktestPeriods
	}
	for _, period := range periods {
		if _, err := backtest.ParsePeriod(period); err != nil {
			return BacktestResponse{AdditionalMetrics: metrics, Error: err.Error()}
		}
	}

	symbols := make([]string, len(req.Stocks))
	for i, stock := range req.Stocks {
		symbols[i] = stock.Symbol
	}
	riskFactor := resolveRiskFactor(req.TargetRiskLevel)

	records := s.harness.Run(ctx, symbols, periods, riskFactor)
	return BacktestResponse{
		Results:           toBacktestEntries(records),
		AdditionalMetrics: metrics,
	}
}

// assembleStatistics produces annualized returns and covariance, preferring
// real history and falling back to the synthetic generator when the provider
// has nothing usable.
func (s *Service) assembleStatistics(ctx context.Context, req OptimizeRequest, log zerolog.Logger) (mu []float64, cov [][]float64, usedRealData bool) {
	if req.UseRealData {
		symbols := make([]string, len(req.Stocks))
		for i, stock := range req.Stocks {
			symbols[i] = stock.Symbol
		}
		end := time.Now()
		start := end.AddDate(-historyYears, 0, 0)

		history, err := s.provider.Fetch(ctx, symbols, start, end)
		if err != nil {
			log.Warn().Err(err).Msg("Market data fetch failed, using synthetic statistics")
		} else if history.Empty() {
			log.Warn().Msg("No market data in window, using synthetic statistics")
		} else {
			mu, cov, err = statistics.Compute(history.Closes, statistics.TradingDaysPerYear)
			if err != nil {
				if errors.Is(err, statistics.ErrInsufficientData) {
					log.Warn().Err(err).Msg("Insufficient history, using synthetic statistics")
				} else {
					log.Warn().Err(err).Msg("Statistics failed, using synthetic statistics")
				}
			} else {
				return mu, cov, true
			}
		}
	}

	profiles := make([]marketdata.AssetProfile, len(req.Stocks))
	for i, stock := range req.Stocks {
		profiles[i] = marketdata.AssetProfile{Symbol: stock.Symbol, RiskLevel: float64(stock.RiskLevel)}
	}
	mu, cov = s.synthetic.Generate(profiles)
	return mu, cov, false
}

// dispatch routes the request to the chosen solver. Quantum methods carry
// their own classical fallback.
func (s *Service) dispatch(ctx context.Context, method optimization.Method, mu []float64, cov [][]float64, riskFactor float64, cons *optimization.Constraints) (optimization.Result, error) {
	switch method {
	case optimization.MethodQAOA:
		return s.quantum.SolveDiscretized(ctx, mu, cov, riskFactor)
	case optimization.MethodVQE:
		return s.quantum.SolveSelection(ctx, mu, cov, riskFactor)
	default:
		return s.classical.Solve(mu, cov, riskFactor, cons)
	}
}

func validateStocks(stocks []Stock) error {
	if len(stocks) == 0 {
		return errors.New("at least one stock is required")
	}
	seen := make(map[string]bool, len(stocks))
	for _, stock := range stocks {
		if stock.Symbol == "" {
			return errors.New("every stock needs a symbol")
		}
		if seen[stock.Symbol] {
			return fmt.Errorf("duplicate symbol %q", stock.Symbol)
		}
		seen[stock.Symbol] = true
		if stock.RiskLevel < 0 || stock.RiskLevel > 10 {
			return fmt.Errorf("risk level for %q must be in [0, 10]", stock.Symbol)
		}
	}
	return nil
}

// resolveRiskFactor maps the 0-10 target risk level onto the solver's risk
// factor scale.
func resolveRiskFactor(target *int) float64 {
	level := defaultTargetRiskLevel
	if target != nil {
		level = *target
		if level < 0 {
			level = 0
		}
		if level > 10 {
			level = 10
		}
	}
	return float64(level) / 10.0
}

func resolveMethod(raw string) optimization.Method {
	switch optimization.Method(raw) {
	case optimization.MethodQAOA:
		return optimization.MethodQAOA
	case optimization.MethodVQE:
		return optimization.MethodVQE
	default:
		return optimization.MethodClassical
	}
}

// buildConstraints turns the per-symbol bounds map into index-aligned arrays.
// Symbols without explicit bounds default to [0, 1]; bounds naming unknown
// symbols are rejected.
func buildConstraints(stocks []Stock, bounds map[string]WeightBounds) (*optimization.Constraints, error) {
	if len(bounds) == 0 {
		return nil, nil
	}
	index := make(map[string]int, len(stocks))
	for i, stock := range stocks {
		index[stock.Symbol] = i
	}
	for symbol := range bounds {
		if _, ok := index[symbol]; !ok {
			return nil, fmt.Errorf("constraint references unknown symbol %q", symbol)
		}
	}

	cons := &optimization.Constraints{
		Min: make([]float64, len(stocks)),
		Max: make([]float64, len(stocks)),
	}
	for i := range stocks {
		cons.Max[i] = 1.0
	}
	for symbol, b := range bounds {
		i := index[symbol]
		cons.Min[i] = b.Min
		cons.Max[i] = b.Max
	}
	if err := cons.Validate(len(stocks)); err != nil {
		return nil, err
	}
	return cons, nil
}

// currentWeights derives the caller's existing allocation from holdings.
// Values come from quantity times price when both are present, otherwise
// from the invested amount. A zero total degrades to equal weights.
func currentWeights(stocks []Stock) []float64 {
	values := make([]float64, len(stocks))
	total := 0.0
	for i, stock := range stocks {
		switch {
		case stock.Quantity != nil && stock.CurrentPrice != nil:
			values[i] = *stock.Quantity * *stock.CurrentPrice
		case stock.InvestmentAmount != nil:
			values[i] = *stock.InvestmentAmount
		}
		total += values[i]
	}
	if total <= 0 {
		return optimization.EqualWeights(len(stocks))
	}
	for i := range values {
		values[i] /= total
	}
	return values
}

func toBacktestEntries(records []backtest.Record) []BacktestEntry {
	entries := make([]BacktestEntry, 0, len(records))
	for _, record := range records {
		entries = append(entries, BacktestEntry{
			Period:         record.Period,
			LookbackDate:   record.LookbackDate,
			Predicted:      toSummary(record.Predicted),
			Actual:         toSummary(record.Actual),
			Baseline:       toSummary(record.Baseline),
			Outperformance: roundTo(record.Outperformance*100, 2),
		})
	}
	return entries
}

// toSummary percent-scales a metrics triple for the response envelope.
func toSummary(m optimization.Metrics) PortfolioSummary {
	return PortfolioSummary{
		ExpectedReturn: roundTo(m.ExpectedReturn*100, 2),
		ExpectedRisk:   roundTo(m.ExpectedRisk*100, 2),
		SharpeRatio:    roundTo(m.SharpeRatio, 3),
	}
}

func errorResponse(metrics AdditionalMetrics, err error) OptimizeResponse {
	return OptimizeResponse{
		Allocation:        map[string]float64{},
		AdditionalMetrics: metrics,
		Error:             err.Error(),
	}
}

func roundTo(value float64, decimals int) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	factor := math.Pow(10, float64(decimals))
	return math.Round(value*factor) / factor
}
