package optimization

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// ClassicalSolver performs mean-variance portfolio optimization.
//
// Without constraints it uses the analytic solution w = Σ⁻¹μ/λ with risk
// aversion λ = 2/riskFactor. With per-asset bounds it maximizes the Sharpe
// ratio numerically subject to Σw = 1 and min ≤ w ≤ max.
type ClassicalSolver struct {
	riskFreeRate float64
	log          zerolog.Logger
}

// NewClassicalSolver creates a new mean-variance solver.
func NewClassicalSolver(riskFreeRate float64, log zerolog.Logger) *ClassicalSolver {
	return &ClassicalSolver{
		riskFreeRate: riskFreeRate,
		log:          log.With().Str("component", "classical_solver").Logger(),
	}
}

// Solve computes optimal long-only weights. cons may be nil for the
// unconstrained analytic path.
func (s *ClassicalSolver) Solve(mu []float64, cov [][]float64, riskFactor float64, cons *Constraints) (Result, error) {
	n := len(mu)
	if n == 0 {
		return Result{}, fmt.Errorf("no assets provided")
	}
	if len(cov) != n {
		return Result{}, fmt.Errorf("covariance matrix size %d doesn't match asset count %d", len(cov), n)
	}
	for i := range cov {
		if len(cov[i]) != n {
			return Result{}, fmt.Errorf("covariance matrix row %d has size %d, expected %d", i, len(cov[i]), n)
		}
	}

	if cons == nil {
		return s.solveAnalytic(mu, cov, riskFactor)
	}
	if err := cons.Validate(n); err != nil {
		return Result{}, err
	}
	return s.solveConstrained(mu, cov, cons), nil
}

// solveAnalytic computes w = Σ⁻¹μ/λ, normalizes, then projects long-only.
func (s *ClassicalSolver) solveAnalytic(mu []float64, cov [][]float64, riskFactor float64) (Result, error) {
	n := len(mu)

	flat := make([]float64, 0, n*n)
	for _, row := range cov {
		flat = append(flat, row...)
	}
	sigma := mat.NewDense(n, n, flat)

	var inv mat.Dense
	if err := inv.Inverse(sigma); err != nil {
		// A finite mat.Condition signals an ill-conditioned but still usable
		// inverse; an infinite one (or any other error) means the matrix is
		// genuinely singular.
		cond, ill := err.(mat.Condition)
		if !ill || math.IsInf(float64(cond), 0) {
			return Result{}, fmt.Errorf("%w: %v", ErrSingularCovariance, err)
		}
		s.log.Warn().Err(err).Msg("Covariance matrix is ill-conditioned, proceeding with computed inverse")
	}

	riskAversion := 1.0
	if riskFactor > 0 {
		riskAversion = 2.0 / riskFactor
	}

	muVec := mat.NewVecDense(n, append([]float64(nil), mu...))
	var raw mat.VecDense
	raw.MulVec(&inv, muVec)

	weights := make([]float64, n)
	for i := 0; i < n; i++ {
		weights[i] = raw.AtVec(i) / riskAversion
	}

	final := normalizeLongOnly(weights)

	s.log.Debug().
		Int("num_assets", n).
		Float64("risk_aversion", riskAversion).
		Msg("Solved analytic mean-variance weights")

	return Result{Weights: final, Method: MethodClassical}, nil
}

// solveConstrained maximizes (μ'w - r_f) / sqrt(w'Σw) subject to Σw = 1 and
// per-asset bounds, using a penalty on the sum constraint and projection to
// the bounds. BFGS is tried first, Nelder-Mead on failure.
func (s *ClassicalSolver) solveConstrained(mu []float64, cov [][]float64, cons *Constraints) (res Result) {
	n := len(mu)
	initial := cons.InitialGuess()

	// A panic inside the optimizer (degenerate inputs) must not abort the
	// request; recover to the equal-weight fallback.
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Msg("Constrained optimization panicked, falling back to equal weights")
			res = Result{
				Weights:  projectToFeasible(EqualWeights(n), cons.Min, cons.Max),
				Method:   MethodClassical,
				Warnings: []Warning{WarnOptimizationFailed},
			}
		}
	}()

	const penaltyWeight = 1000.0

	project := func(x []float64) []float64 {
		proj := make([]float64, n)
		for i := range x {
			proj[i] = math.Max(cons.Min[i], math.Min(cons.Max[i], x[i]))
		}
		return proj
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			xProj := project(x)

			var ret, variance float64
			for i := 0; i < n; i++ {
				ret += mu[i] * xProj[i]
				for j := 0; j < n; j++ {
					variance += xProj[i] * xProj[j] * cov[i][j]
				}
			}
			stdDev := math.Sqrt(math.Max(variance, 0))

			// Zero-risk points contribute no Sharpe term; only the sum
			// penalty steers the search there.
			obj := 0.0
			if stdDev > 0 {
				obj = -(ret - s.riskFreeRate) / stdDev
			}

			sum := 0.0
			for i := 0; i < n; i++ {
				sum += xProj[i]
			}
			obj += penaltyWeight * (sum - 1.0) * (sum - 1.0)

			return obj
		},
		Grad: func(grad, x []float64) {
			xProj := project(x)

			var ret, variance float64
			for i := 0; i < n; i++ {
				ret += mu[i] * xProj[i]
				for j := 0; j < n; j++ {
					variance += xProj[i] * xProj[j] * cov[i][j]
				}
			}
			stdDev := math.Sqrt(math.Max(variance, 1e-10))
			excess := ret - s.riskFreeRate

			for i := 0; i < n; i++ {
				var dVariance float64
				for j := 0; j < n; j++ {
					dVariance += 2 * cov[i][j] * xProj[j]
				}
				grad[i] = -mu[i]/stdDev + excess*dVariance/(2*stdDev*stdDev*stdDev)
			}

			sum := 0.0
			for i := 0; i < n; i++ {
				sum += xProj[i]
			}
			for i := 0; i < n; i++ {
				grad[i] += 2 * penaltyWeight * (sum - 1.0)
			}
		},
	}

	successStatuses := map[optimize.Status]bool{
		optimize.Success:             true,
		optimize.GradientThreshold:   true,
		optimize.FunctionConvergence: true,
	}

	start := append([]float64(nil), initial...)
	result, err := optimize.Minimize(problem, start, &optimize.Settings{}, &optimize.BFGS{})
	if err != nil || !successStatuses[result.Status] {
		result, err = optimize.Minimize(problem, start, &optimize.Settings{}, &optimize.NelderMead{})
	}

	if err != nil || !successStatuses[result.Status] {
		status := "error"
		if err == nil {
			status = result.Status.String()
		}
		s.log.Warn().
			Err(err).
			Str("status", status).
			Msg("Constrained optimization did not converge, using feasible initial guess")
		return Result{
			Weights:  initial,
			Method:   MethodClassical,
			Warnings: []Warning{WarnNonConverged},
		}
	}

	final := projectToFeasible(result.X, cons.Min, cons.Max)

	s.log.Debug().
		Int("num_assets", n).
		Str("status", result.Status.String()).
		Msg("Solved constrained max-Sharpe weights")

	return Result{Weights: final, Method: MethodClassical}
}
