package advisor

// Stock describes one asset in the optimization request. Quantity and
// CurrentPrice describe an existing holding; InvestmentAmount is the
// alternative when the caller only knows the invested value.
type Stock struct {
	Symbol           string   `json:"symbol"`
	Name             string   `json:"name,omitempty"`
	RiskLevel        int      `json:"riskLevel"`
	Quantity         *float64 `json:"quantity,omitempty"`
	CurrentPrice     *float64 `json:"currentPrice,omitempty"`
	InvestmentAmount *float64 `json:"investmentAmount,omitempty"`
}

// WeightBounds caps one symbol's allocation weight.
type WeightBounds struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// OptimizeRequest is the POST /api/portfolio/optimize payload.
type OptimizeRequest struct {
	Stocks          []Stock                 `json:"stocks"`
	TotalInvestment float64                 `json:"totalInvestment"`
	TargetRiskLevel *int                    `json:"targetRiskLevel,omitempty"`
	UseRealData     bool                    `json:"useRealData"`
	Method          string                  `json:"optimizationMethod,omitempty"`
	Constraints     map[string]WeightBounds `json:"constraints,omitempty"`
}

// BacktestRequest is the POST /api/portfolio/backtest payload.
type BacktestRequest struct {
	Stocks          []Stock  `json:"stocks"`
	TargetRiskLevel *int     `json:"targetRiskLevel,omitempty"`
	Periods         []string `json:"periods,omitempty"`
}

// PortfolioSummary reports percent-scaled portfolio metrics.
type PortfolioSummary struct {
	ExpectedReturn float64 `json:"expectedReturn"`
	ExpectedRisk   float64 `json:"expectedRisk"`
	SharpeRatio    float64 `json:"sharpeRatio"`
}

// FrontierPoint is one sampled efficient-frontier portfolio, percent scaled.
type FrontierPoint struct {
	Risk        float64 `json:"risk"`
	Return      float64 `json:"return"`
	SharpeRatio float64 `json:"sharpeRatio"`
}

// BacktestEntry is one evaluated lookback window, percent scaled. Predicted
// carries the training-window metrics for the frozen weights; Actual re-scores
// the same weights on the evaluation window; Baseline is the equal-weight
// portfolio on the evaluation window.
type BacktestEntry struct {
	Period         string           `json:"period"`
	LookbackDate   string           `json:"lookbackDate"`
	Predicted      PortfolioSummary `json:"predicted"`
	Actual         PortfolioSummary `json:"actual"`
	Baseline       PortfolioSummary `json:"baseline"`
	Outperformance float64          `json:"outperformance"`
}

// AdditionalMetrics carries request bookkeeping alongside the results.
type AdditionalMetrics struct {
	OptimizationMethod string  `json:"optimizationMethod"`
	NumberOfStocks     int     `json:"numberOfStocks"`
	TotalInvestment    float64 `json:"totalInvestment"`
	Timestamp          string  `json:"timestamp"`
	RequestID          string  `json:"requestId"`
}

// OptimizeResponse is the full optimization envelope. On failure Error is set
// and every numeric field is zeroed so clients never act on partial results.
type OptimizeResponse struct {
	Allocation         map[string]float64 `json:"allocation"`
	ExpectedReturn     float64            `json:"expectedReturn"`
	ExpectedRisk       float64            `json:"expectedRisk"`
	SharpeRatio        float64            `json:"sharpeRatio"`
	EfficientFrontier  []FrontierPoint    `json:"efficientFrontier,omitempty"`
	CurrentPortfolio   *PortfolioSummary  `json:"currentPortfolio,omitempty"`
	OptimizedPortfolio *PortfolioSummary  `json:"optimizedPortfolio,omitempty"`
	BacktestResults    []BacktestEntry    `json:"backtestResults,omitempty"`
	AdditionalMetrics  AdditionalMetrics  `json:"additionalMetrics"`
	Warnings           []string           `json:"warnings,omitempty"`
	Error              string             `json:"error,omitempty"`
}

// BacktestResponse is the standalone backtest envelope.
type BacktestResponse struct {
	Results           []BacktestEntry   `json:"backtestResults"`
	AdditionalMetrics AdditionalMetrics `json:"additionalMetrics"`
	Error             string            `json:"error,omitempty"`
}
