package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestSimulateVaR(t *testing.T) {
	input := MonteCarloInput{
		S:          100,
		Mu:         0.05,
		Sigma:      0.2,
		T:          1,
		Iterations: 20000,
		Steps:      50,
		Seed:       1,
	}
	result, err := SimulateVaR(input)
	if err != nil {
		t.Fatalf("SimulateVaR: %v", err)
	}

	// 对数正态解析值: VaR95≈25.8, VaR99≈35.3, E[S_T]≈105.13, P(loss)≈44%
	var95 := result.VaR95.InexactFloat64()
	var99 := result.VaR99.InexactFloat64()
	if var95 < 20 || var95 > 32 {
		t.Errorf("VaR95 = %.2f, want in (20, 32)", var95)
	}
	if var99 < 29 || var99 > 42 {
		t.Errorf("VaR99 = %.2f, want in (29, 42)", var99)
	}
	if var99 < var95 {
		t.Errorf("VaR99 %.2f should not be below VaR95 %.2f", var99, var95)
	}
	if result.ES95.LessThan(result.VaR95) {
		t.Errorf("ES95 %s should be at least VaR95 %s", result.ES95, result.VaR95)
	}
	if result.ES99.LessThan(result.VaR99) {
		t.Errorf("ES99 %s should be at least VaR99 %s", result.ES99, result.VaR99)
	}

	expected := result.Scenario.ExpectedPrice.InexactFloat64()
	if expected < 100 || expected > 110 {
		t.Errorf("expected price = %.2f, want in (100, 110)", expected)
	}
	if result.Scenario.ProbabilityOfLoss < 35 || result.Scenario.ProbabilityOfLoss > 55 {
		t.Errorf("probability of loss = %.1f%%, want in (35, 55)", result.Scenario.ProbabilityOfLoss)
	}
	if !result.Scenario.BestCase.GreaterThan(result.Scenario.WorstCase) {
		t.Errorf("best case %s should exceed worst case %s", result.Scenario.BestCase, result.Scenario.WorstCase)
	}
}

func TestSimulateVaRDeterministicWithSeed(t *testing.T) {
	input := MonteCarloInput{S: 100, Mu: 0.05, Sigma: 0.2, T: 0.5, Iterations: 1000, Steps: 20, Seed: 42}
	first, err := SimulateVaR(input)
	if err != nil {
		t.Fatalf("SimulateVaR: %v", err)
	}
	second, err := SimulateVaR(input)
	if err != nil {
		t.Fatalf("SimulateVaR: %v", err)
	}
	if !first.VaR95.Equal(second.VaR95) || !first.Scenario.ExpectedPrice.Equal(second.Scenario.ExpectedPrice) {
		t.Errorf("same seed should reproduce results: %s vs %s", first.VaR95, second.VaR95)
	}
}

func TestSimulateVaRInvalidInput(t *testing.T) {
	valid := MonteCarloInput{S: 100, Mu: 0.05, Sigma: 0.2, T: 1, Iterations: 1000, Steps: 50}

	tests := []struct {
		name   string
		mutate func(*MonteCarloInput)
	}{
		{"非正现价", func(in *MonteCarloInput) { in.S = 0 }},
		{"负波动率", func(in *MonteCarloInput) { in.Sigma = -0.1 }},
		{"非正期限", func(in *MonteCarloInput) { in.T = 0 }},
		{"模拟次数过少", func(in *MonteCarloInput) { in.Iterations = 99 }},
		{"非正步数", func(in *MonteCarloInput) { in.Steps = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := valid
			tt.mutate(&input)
			if _, err := SimulateVaR(input); !errors.Is(err, ErrInsufficientData) {
				t.Errorf("err = %v, want ErrInsufficientData", err)
			}
		})
	}
}

func twoAssetPortfolio(rho float64, seed uint64) PortfolioRiskInput {
	return PortfolioRiskInput{
		Assets: []PortfolioAsset{
			{Symbol: "AAA", Position: decimal.NewFromInt(10), CurrentPrice: decimal.NewFromInt(50), Volatility: 0.3, ExpectedReturn: 0.05},
			{Symbol: "BBB", Position: decimal.NewFromInt(10), CurrentPrice: decimal.NewFromInt(50), Volatility: 0.3, ExpectedReturn: 0.05},
		},
		CorrelationMatrix: [][]float64{{1, rho}, {rho, 1}},
		TimeHorizon:       0.25,
		Simulations:       20000,
		ConfidenceLevel:   0.95,
		Seed:              seed,
	}
}

func TestCalculatePortfolioRisk(t *testing.T) {
	result, err := CalculatePortfolioRisk(twoAssetPortfolio(0.95, 7))
	if err != nil {
		t.Fatalf("CalculatePortfolioRisk: %v", err)
	}

	if !result.TotalValue.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("total value = %s, want 1000", result.TotalValue)
	}
	if !result.VaR.IsPositive() {
		t.Errorf("VaR = %s, want positive", result.VaR)
	}
	if result.ES.LessThan(result.VaR) {
		t.Errorf("ES %s should be at least VaR %s", result.ES, result.VaR)
	}

	// Euler 分解各分量之和应等于组合 VaR
	sum := decimal.Zero
	for _, c := range result.ComponentVaR {
		sum = sum.Add(c)
	}
	if diff := sum.Sub(result.VaR).Abs().InexactFloat64(); diff > 1e-6 {
		t.Errorf("component VaR sum %s differs from VaR %s by %.2e", sum, result.VaR, diff)
	}
	if len(result.ComponentVaR) != 2 {
		t.Errorf("component VaR entries = %d, want 2", len(result.ComponentVaR))
	}
	if result.Diversification.IsNegative() {
		t.Errorf("diversification = %s, want non-negative", result.Diversification)
	}
}

func TestCalculatePortfolioRiskCorrelationEffect(t *testing.T) {
	correlated, err := CalculatePortfolioRisk(twoAssetPortfolio(0.95, 7))
	if err != nil {
		t.Fatalf("correlated: %v", err)
	}
	independent, err := CalculatePortfolioRisk(twoAssetPortfolio(0, 7))
	if err != nil {
		t.Fatalf("independent: %v", err)
	}

	// 高相关组合几乎没有分散效应，VaR 明显更大
	if !correlated.VaR.GreaterThan(independent.VaR) {
		t.Errorf("VaR(rho=0.95) %s should exceed VaR(rho=0) %s", correlated.VaR, independent.VaR)
	}
	if !independent.Diversification.GreaterThan(correlated.Diversification) {
		t.Errorf("diversification(rho=0) %s should exceed diversification(rho=0.95) %s",
			independent.Diversification, correlated.Diversification)
	}
}

func TestCalculatePortfolioRiskInvalidInput(t *testing.T) {
	t.Run("空资产列表", func(t *testing.T) {
		input := twoAssetPortfolio(0, 1)
		input.Assets = nil
		if _, err := CalculatePortfolioRisk(input); err == nil {
			t.Error("expected error for empty assets")
		}
	})

	t.Run("相关矩阵维度不符", func(t *testing.T) {
		input := twoAssetPortfolio(0, 1)
		input.CorrelationMatrix = [][]float64{{1}}
		if _, err := CalculatePortfolioRisk(input); !errors.Is(err, ErrSeriesMismatch) {
			t.Errorf("err = %v, want ErrSeriesMismatch", err)
		}
	})

	t.Run("非法置信水平", func(t *testing.T) {
		input := twoAssetPortfolio(0, 1)
		input.ConfidenceLevel = 1.5
		if _, err := CalculatePortfolioRisk(input); err == nil {
			t.Error("expected error for confidence level out of range")
		}
	})

	t.Run("非正定相关矩阵", func(t *testing.T) {
		input := twoAssetPortfolio(2, 1)
		_, err := CalculatePortfolioRisk(input)
		if err == nil || !strings.Contains(err.Error(), "positive definite") {
			t.Errorf("err = %v, want cholesky positive-definite failure", err)
		}
	})
}
