package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"testing"
)

type fakePriceProvider struct {
	prices map[string][]float64
	calls  int
}

func (f *fakePriceProvider) ClosingPrices(_ context.Context, ticker string, _ int) ([]float64, error) {
	f.calls++
	prices, ok := f.prices[ticker]
	if !ok {
		return nil, fmt.Errorf("ticker %s not found", ticker)
	}
	return prices, nil
}

type fakeReportCache struct {
	entries map[string][]byte
	setErr  error
}

func newFakeReportCache() *fakeReportCache {
	return &fakeReportCache{entries: make(map[string][]byte)}
}

func (f *fakeReportCache) Get(_ context.Context, key string, dst any) (bool, error) {
	raw, ok := f.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (f *fakeReportCache) Set(_ context.Context, key string, report any) error {
	if f.setErr != nil {
		return f.setErr
	}
	raw, err := json.Marshal(report)
	if err != nil {
		return err
	}
	f.entries[key] = raw
	return nil
}

// pricesFromReturns 用简单收益率序列重建价格路径
func pricesFromReturns(start float64, returns []float64) []float64 {
	prices := make([]float64, 0, len(returns)+1)
	prices = append(prices, start)
	for _, r := range returns {
		prices = append(prices, prices[len(prices)-1]*(1+r))
	}
	return prices
}

func testProvider() *fakePriceProvider {
	benchReturns := []float64{0.010, -0.005, 0.002, 0.007, -0.001, 0.004, -0.008, 0.006, 0.003, -0.002}
	leveraged := make([]float64, len(benchReturns))
	inverse := make([]float64, len(benchReturns))
	for i, r := range benchReturns {
		leveraged[i] = 1.5 * r
		inverse[i] = -r
	}
	return &fakePriceProvider{prices: map[string][]float64{
		"SPY":  pricesFromReturns(400, benchReturns),
		"AAPL": pricesFromReturns(180, leveraged),
		"SH":   pricesFromReturns(30, inverse),
	}}
}

func TestRegressionReport(t *testing.T) {
	svc := NewAnalyticsService(testProvider(), nil)

	report, err := svc.Regression(context.Background(), RegressionCommand{
		Tickers: []string{"aapl", "MISSING"},
	})
	if err != nil {
		t.Fatalf("Regression: %v", err)
	}
	if report.Benchmark != "SPY" {
		t.Errorf("benchmark = %s, want default SPY", report.Benchmark)
	}
	if len(report.Results) != 1 {
		t.Fatalf("results = %d, want 1", len(report.Results))
	}
	res := report.Results[0]
	if res.Ticker != "AAPL" {
		t.Errorf("ticker = %s, want AAPL", res.Ticker)
	}
	if math.Abs(res.Beta-1.5) > 1e-6 {
		t.Errorf("beta = %v, want ~1.5", res.Beta)
	}
	if report.Failed["MISSING"] == "" {
		t.Errorf("failed map = %v, want entry for MISSING", report.Failed)
	}
}

func TestRegressionAllFailed(t *testing.T) {
	svc := NewAnalyticsService(testProvider(), nil)
	if _, err := svc.Regression(context.Background(), RegressionCommand{Tickers: []string{"NOPE"}}); !errors.Is(err, ErrNoPriceData) {
		t.Errorf("err = %v, want ErrNoPriceData", err)
	}
}

func TestCorrelationThroughService(t *testing.T) {
	svc := NewAnalyticsService(testProvider(), nil)
	res, err := svc.Correlation(context.Background(), CorrelationCommand{Tickers: []string{"AAPL", "SH", "SPY"}})
	if err != nil {
		t.Fatalf("Correlation: %v", err)
	}
	if len(res.Tickers) != 3 {
		t.Fatalf("tickers = %v, want 3", res.Tickers)
	}
	// AAPL 与 SH 的收益率完全反向
	idxA, idxS := -1, -1
	for i, ticker := range res.Tickers {
		switch ticker {
		case "AAPL":
			idxA = i
		case "SH":
			idxS = i
		}
	}
	if got := res.Matrix[idxA][idxS]; math.Abs(got+1) > 1e-6 {
		t.Errorf("corr(AAPL, SH) = %v, want -1", got)
	}
}

func TestPCAThroughService(t *testing.T) {
	svc := NewAnalyticsService(testProvider(), nil)
	res, err := svc.PCA(context.Background(), CorrelationCommand{Tickers: []string{"AAPL", "SPY"}})
	if err != nil {
		t.Fatalf("PCA: %v", err)
	}
	// 杠杆关系使两列标准化后一致，第一主成分解释全部方差
	if res.ComponentsFor90Pct != 1 {
		t.Errorf("components for 90%% = %d, want 1", res.ComponentsFor90Pct)
	}
}

func TestAssetVaR(t *testing.T) {
	svc := NewAnalyticsService(testProvider(), nil)
	report, err := svc.AssetVaR(context.Background(), AssetVaRCommand{
		Ticker:      "AAPL",
		HorizonDays: 10,
		Simulations: 2000,
		Seed:        42,
	})
	if err != nil {
		t.Fatalf("AssetVaR: %v", err)
	}
	if report.AnnualizedVolatility <= 0 {
		t.Errorf("annualized volatility = %v, want > 0", report.AnnualizedVolatility)
	}
	var95 := report.Result.VaR95.InexactFloat64()
	es95 := report.Result.ES95.InexactFloat64()
	if var95 <= 0 {
		t.Errorf("VaR95 = %v, want > 0", var95)
	}
	if es95 < var95 {
		t.Errorf("ES95 (%v) should be at least VaR95 (%v)", es95, var95)
	}

	// 相同种子结果可复现
	again, err := svc.AssetVaR(context.Background(), AssetVaRCommand{
		Ticker: "AAPL", HorizonDays: 10, Simulations: 2000, Seed: 42,
	})
	if err != nil {
		t.Fatalf("AssetVaR (again): %v", err)
	}
	if !report.Result.VaR95.Equal(again.Result.VaR95) {
		t.Errorf("same seed should reproduce VaR95: %v vs %v", report.Result.VaR95, again.Result.VaR95)
	}
}

func TestPortfolioVaR(t *testing.T) {
	svc := NewAnalyticsService(testProvider(), nil)
	report, err := svc.PortfolioVaR(context.Background(), PortfolioVaRCommand{
		Tickers:     []string{"AAPL", "SPY"},
		HorizonDays: 10,
		Simulations: 2000,
		Seed:        7,
	})
	if err != nil {
		t.Fatalf("PortfolioVaR: %v", err)
	}
	if w := report.Weights["AAPL"]; math.Abs(w-0.5) > 1e-12 {
		t.Errorf("default weight = %v, want 0.5", w)
	}
	total := report.Result.TotalValue.InexactFloat64()
	if math.Abs(total-defaultInitialInvestment) > 1 {
		t.Errorf("total value = %v, want ~%v", total, defaultInitialInvestment)
	}
	if len(report.Result.ComponentVaR) != 2 {
		t.Errorf("component VaR = %v, want 2 entries", report.Result.ComponentVaR)
	}
	if report.Result.VaR.IsNegative() {
		t.Errorf("VaR = %v, want >= 0", report.Result.VaR)
	}
}

func TestComprehensiveCaching(t *testing.T) {
	provider := testProvider()
	cache := newFakeReportCache()
	svc := NewAnalyticsService(provider, cache)

	cmd := ComprehensiveCommand{Tickers: []string{"AAPL", "SH", "SPY"}, Simulations: 500}
	report, err := svc.Comprehensive(context.Background(), cmd)
	if err != nil {
		t.Fatalf("Comprehensive: %v", err)
	}
	if report.Regression == nil || report.Correlation == nil || report.PCA == nil || report.VaR == nil {
		t.Fatalf("all four sections should be present: %+v", report)
	}
	if len(cache.entries) != 1 {
		t.Fatalf("cache entries = %d, want 1", len(cache.entries))
	}

	callsAfterFirst := provider.calls
	cached, err := svc.Comprehensive(context.Background(), cmd)
	if err != nil {
		t.Fatalf("Comprehensive (cached): %v", err)
	}
	if provider.calls != callsAfterFirst {
		t.Errorf("cached run should not refetch prices: calls %d -> %d", callsAfterFirst, provider.calls)
	}
	if !cached.GeneratedAt.Equal(report.GeneratedAt) {
		t.Errorf("cached report should be the original one")
	}
}

func TestComprehensiveAllFailed(t *testing.T) {
	svc := NewAnalyticsService(&fakePriceProvider{prices: map[string][]float64{}}, nil)
	if _, err := svc.Comprehensive(context.Background(), ComprehensiveCommand{Tickers: []string{"A", "B"}}); !errors.Is(err, ErrNoPriceData) {
		t.Errorf("err = %v, want ErrNoPriceData", err)
	}
}
