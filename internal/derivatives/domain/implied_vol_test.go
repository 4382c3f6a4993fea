package domain

import (
	"errors"
	"math"
	"testing"
)

func TestIVSolverRoundTrip(t *testing.T) {
	// 用已知波动率定价，再从该价格反解，应还原输入波动率
	trueVol := 0.25
	c := benchmarkContract(OptionTypeCall).WithSigma(trueVol)
	priced, err := PriceBlackScholes(c)
	if err != nil {
		t.Fatal(err)
	}

	result, err := NewIVSolver().Solve(priced.Price, c)
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}
	if !result.Converged {
		t.Fatal("solver did not converge on a clean round trip")
	}
	if !almostEqual(result.ImpliedVolatility, trueVol, 1e-4) {
		t.Errorf("implied vol = %v, want %v +- 1e-4", result.ImpliedVolatility, trueVol)
	}
	if result.NumIterations > 10 {
		t.Errorf("took %d iterations, Newton-Raphson should converge fast near ATM", result.NumIterations)
	}
	if len(result.Iterations) != result.NumIterations {
		t.Errorf("iteration history length %d != NumIterations %d", len(result.Iterations), result.NumIterations)
	}
}

func TestIVSolverRoundTripAcrossStrikes(t *testing.T) {
	solver := NewIVSolver()
	for _, strike := range []float64{80, 90, 100, 110, 120} {
		c := benchmarkContract(OptionTypeCall).WithSigma(0.3)
		c.K = strike
		priced, err := PriceBlackScholes(c)
		if err != nil {
			t.Fatal(err)
		}
		result, err := solver.Solve(priced.Price, c)
		if err != nil {
			t.Fatalf("strike %v: solve failed: %v", strike, err)
		}
		if !result.Converged || !almostEqual(result.ImpliedVolatility, 0.3, 1e-3) {
			t.Errorf("strike %v: implied vol = %v (converged=%v), want 0.3",
				strike, result.ImpliedVolatility, result.Converged)
		}
	}
}

func TestIVSolverRejectsSubIntrinsicPrice(t *testing.T) {
	// 市场价低于内在价值不存在正波动率解
	c := OptionContract{
		S: 100, K: 80, T: 0.5, R: 0.05,
		Type: OptionTypeCall, Exercise: ExerciseEuropean,
	}
	_, err := NewIVSolver().Solve(15, c) // 内在价值 20
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestIVSolverRejectsNonPositiveInputs(t *testing.T) {
	solver := NewIVSolver()
	base := OptionContract{
		S: 100, K: 100, T: 1, R: 0.05,
		Type: OptionTypeCall, Exercise: ExerciseEuropean,
	}

	if _, err := solver.Solve(0, base); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("zero price: err = %v, want ErrInvalidInput", err)
	}
	expired := base
	expired.T = 0
	if _, err := solver.Solve(5, expired); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("zero maturity: err = %v, want ErrInvalidInput", err)
	}
}

func TestIVSolverVegaTooSmall(t *testing.T) {
	// 深度虚值 + 超短期限使 vega 数值上为零，Newton 迭代无法推进
	c := OptionContract{
		S: 100, K: 300, T: 0.01, R: 0.05,
		Type: OptionTypeCall, Exercise: ExerciseEuropean,
	}
	_, err := NewIVSolver().Solve(0.005, c)
	if !errors.Is(err, ErrVegaTooSmall) {
		t.Errorf("err = %v, want ErrVegaTooSmall", err)
	}
}

func TestIVSolverExhaustionIsNotAnError(t *testing.T) {
	// Tol=0 使收敛条件永假，迭代耗尽应返回 Converged=false 而非 error
	solver := &IVSolver{SigmaInit: DefaultSigmaInit, Tol: 0, MaxIter: 5}
	c := benchmarkContract(OptionTypeCall)
	priced, err := PriceBlackScholes(c)
	if err != nil {
		t.Fatal(err)
	}

	result, err := solver.Solve(priced.Price, c)
	if err != nil {
		t.Fatalf("exhaustion returned error: %v", err)
	}
	if result.Converged {
		t.Error("Converged = true, want false with zero tolerance")
	}
	if result.NumIterations != 5 || len(result.Iterations) != 5 {
		t.Errorf("got %d iterations (history %d), want 5", result.NumIterations, len(result.Iterations))
	}
	if result.ImpliedVolatility <= 0 || result.ImpliedVolatility > 5 {
		t.Errorf("sigma %v escaped clamp range (0, 5]", result.ImpliedVolatility)
	}
}

func TestIVSolverIterationHistoryOrdered(t *testing.T) {
	c := benchmarkContract(OptionTypeCall).WithSigma(0.4)
	priced, err := PriceBlackScholes(c)
	if err != nil {
		t.Fatal(err)
	}
	result, err := NewIVSolver().Solve(priced.Price, c)
	if err != nil {
		t.Fatal(err)
	}
	for i, it := range result.Iterations {
		if it.Iteration != i+1 {
			t.Errorf("iteration %d numbered %d", i, it.Iteration)
		}
		if it.AbsDifference != math.Abs(it.Difference) {
			t.Errorf("iteration %d: abs diff %v != |%v|", i, it.AbsDifference, it.Difference)
		}
	}
	last := result.Iterations[len(result.Iterations)-1]
	if last.AbsDifference >= DefaultTolerance {
		t.Errorf("final abs diff %v, want < %v", last.AbsDifference, DefaultTolerance)
	}
}

func TestSolveSurfacePointsSkipsBadQuotes(t *testing.T) {
	spot, r := 100.0, 0.05
	goodPrice := func(strike, maturity float64) float64 {
		c := OptionContract{
			S: spot, K: strike, T: maturity, R: r, Sigma: 0.25,
			Type: OptionTypeCall, Exercise: ExerciseEuropean,
		}
		priced, err := PriceBlackScholes(c)
		if err != nil {
			t.Fatal(err)
		}
		return priced.Price
	}

	quotes := []QuoteInput{
		{Strike: 95, Price: goodPrice(95, 0.5), Maturity: 0.5, Type: OptionTypeCall},
		{Strike: 105, Price: goodPrice(105, 0.5), Maturity: 0.5, Type: OptionTypeCall},
		{Strike: 100, Price: 0, Maturity: 0.5, Type: OptionTypeCall},      // 无效价格
		{Strike: 300, Price: 0.005, Maturity: 0.01, Type: OptionTypeCall}, // vega 过小
	}

	points := NewIVSolver().SolveSurfacePoints(quotes, spot, r)
	if len(points) != 2 {
		t.Fatalf("got %d points, want 2 (bad quotes skipped, not fatal)", len(points))
	}
	for _, p := range points {
		if !almostEqual(p.ImpliedVolatility, 0.25, 1e-3) {
			t.Errorf("strike %v: implied vol = %v, want 0.25", p.Strike, p.ImpliedVolatility)
		}
		if !almostEqual(p.Moneyness, math.Log(p.Strike/spot), 1e-12) {
			t.Errorf("strike %v: moneyness = %v", p.Strike, p.Moneyness)
		}
	}
}

func TestIVSolverValidate(t *testing.T) {
	c := benchmarkContract(OptionTypeCall).WithSigma(0.25)
	priced, err := PriceBlackScholes(c)
	if err != nil {
		t.Fatal(err)
	}
	solver := NewIVSolver()
	result, err := solver.Solve(priced.Price, c)
	if err != nil {
		t.Fatal(err)
	}

	validation := solver.Validate(result.ImpliedVolatility, priced.Price, c)
	if !validation.IsValid {
		t.Errorf("round-trip validation failed: pct error %v", validation.PercentageError)
	}

	// 明显错误的波动率应判为无效
	bad := solver.Validate(1.5, priced.Price, c)
	if bad.IsValid {
		t.Error("validation passed for grossly wrong volatility")
	}
}
