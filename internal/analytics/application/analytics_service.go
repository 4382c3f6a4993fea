package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/logging"
	"gonum.org/v1/gonum/stat"

	"github.com/wyfcoding/quantanalytics/internal/analytics/domain"
)

// ErrNoPriceData 所有标的都没有足够的历史价格
var ErrNoPriceData = errors.New("no price history available for requested tickers")

const (
	defaultDays              = 252
	defaultBenchmark         = "SPY"
	defaultSimulations       = 10000
	defaultHorizonDays       = 252
	defaultConfidence        = 0.95
	defaultInitialInvestment = 100000
)

// AnalyticsService 组合分析应用服务
// 从行情存储读取历史价格，编排回归/相关性/PCA/蒙特卡洛四类分析
type AnalyticsService struct {
	prices domain.PriceHistoryProvider
	cache  domain.ReportCache
}

// NewAnalyticsService 创建分析应用服务，cache 可为 nil
func NewAnalyticsService(prices domain.PriceHistoryProvider, cache domain.ReportCache) *AnalyticsService {
	return &AnalyticsService{prices: prices, cache: cache}
}

// RegressionCommand 回归分析命令
type RegressionCommand struct {
	Tickers   []string `json:"tickers"`
	Benchmark string   `json:"benchmark"`
	Days      int      `json:"days"`
	Method    string   `json:"method"` // simple (默认) 或 log
}

// CorrelationCommand 相关性/PCA 分析命令
type CorrelationCommand struct {
	Tickers []string `json:"tickers"`
	Days    int      `json:"days"`
	Method  string   `json:"method"`
}

// AssetVaRCommand 单资产蒙特卡洛命令
type AssetVaRCommand struct {
	Ticker      string `json:"ticker"`
	Days        int    `json:"days"` // 参数估计用的历史窗口
	HorizonDays int    `json:"horizon_days"`
	Simulations int    `json:"simulations"`
	Seed        uint64 `json:"seed,omitempty"`
}

// PortfolioVaRCommand 组合蒙特卡洛命令
type PortfolioVaRCommand struct {
	Tickers           []string           `json:"tickers"`
	Weights           map[string]float64 `json:"weights,omitempty"` // 空时等权
	Days              int                `json:"days"`
	HorizonDays       int                `json:"horizon_days"`
	Simulations       int                `json:"simulations"`
	ConfidenceLevel   float64            `json:"confidence_level"`
	InitialInvestment float64            `json:"initial_investment"`
	Seed              uint64             `json:"seed,omitempty"`
}

// ComprehensiveCommand 综合分析命令
type ComprehensiveCommand struct {
	Tickers           []string           `json:"tickers"`
	Benchmark         string             `json:"benchmark"`
	Days              int                `json:"days"`
	Weights           map[string]float64 `json:"weights,omitempty"`
	Simulations       int                `json:"simulations"`
	InitialInvestment float64            `json:"initial_investment"`
}

// Regression 对每个标的做对基准的单因子回归
func (s *AnalyticsService) Regression(ctx context.Context, cmd RegressionCommand) (*RegressionReport, error) {
	benchmark := strings.ToUpper(strings.TrimSpace(cmd.Benchmark))
	if benchmark == "" {
		benchmark = defaultBenchmark
	}
	days := normalizeDays(cmd.Days)
	method := normalizeMethod(cmd.Method)

	tickers := normalizeTickers(cmd.Tickers)
	if len(tickers) == 0 {
		return nil, fmt.Errorf("%w: no tickers given", ErrNoPriceData)
	}

	matrix, err := s.loadReturns(ctx, append([]string{benchmark}, tickers...), method, days)
	if err != nil {
		return nil, err
	}
	bench := matrix.Series(benchmark)
	if bench == nil {
		return nil, fmt.Errorf("%w: benchmark %s has no price history", ErrNoPriceData, benchmark)
	}

	report := &RegressionReport{
		Benchmark:   benchmark,
		Days:        days,
		Method:      string(method),
		Failed:      make(map[string]string),
		GeneratedAt: time.Now(),
	}
	for _, ticker := range tickers {
		asset := matrix.Series(ticker)
		if asset == nil {
			report.Failed[ticker] = "no price history"
			continue
		}
		res, err := domain.RunRegression(ticker, benchmark, asset, bench)
		if err != nil {
			logging.Warn(ctx, "regression failed", "ticker", ticker, "error", err)
			report.Failed[ticker] = err.Error()
			continue
		}
		report.Results = append(report.Results, *res)
	}
	if len(report.Results) == 0 {
		return nil, fmt.Errorf("%w: regression failed for every ticker", ErrNoPriceData)
	}
	if len(report.Failed) == 0 {
		report.Failed = nil
	}
	return report, nil
}

// Correlation 计算收益率相关系数矩阵
func (s *AnalyticsService) Correlation(ctx context.Context, cmd CorrelationCommand) (*domain.CorrelationResult, error) {
	matrix, err := s.loadReturns(ctx, normalizeTickers(cmd.Tickers), normalizeMethod(cmd.Method), normalizeDays(cmd.Days))
	if err != nil {
		return nil, err
	}
	return domain.AnalyzeCorrelation(matrix)
}

// PCA 对收益率矩阵做主成分分析
func (s *AnalyticsService) PCA(ctx context.Context, cmd CorrelationCommand) (*domain.PCAResult, error) {
	matrix, err := s.loadReturns(ctx, normalizeTickers(cmd.Tickers), normalizeMethod(cmd.Method), normalizeDays(cmd.Days))
	if err != nil {
		return nil, err
	}
	return domain.RunPCA(matrix)
}

// AssetVaR 从历史收益率估计 GBM 参数并模拟单资产 VaR/ES
func (s *AnalyticsService) AssetVaR(ctx context.Context, cmd AssetVaRCommand) (*AssetVaRReport, error) {
	ticker := strings.ToUpper(strings.TrimSpace(cmd.Ticker))
	if ticker == "" {
		return nil, fmt.Errorf("%w: ticker is required", ErrNoPriceData)
	}
	days := normalizeDays(cmd.Days)

	prices, err := s.prices.ClosingPrices(ctx, ticker, days+1)
	if err != nil {
		return nil, fmt.Errorf("fetch price history for %s: %w", ticker, err)
	}
	returns, err := domain.ComputeReturns(prices, domain.ReturnLog, days)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNoPriceData, ticker, err)
	}

	mu := stat.Mean(returns, nil) * 252
	sigma := stat.StdDev(returns, nil) * sqrt252
	horizonDays := cmd.HorizonDays
	if horizonDays <= 0 {
		horizonDays = defaultHorizonDays
	}
	simulations := cmd.Simulations
	if simulations <= 0 {
		simulations = defaultSimulations
	}

	spot := prices[len(prices)-1]
	result, err := domain.SimulateVaR(domain.MonteCarloInput{
		S:          spot,
		Mu:         mu,
		Sigma:      sigma,
		T:          float64(horizonDays) / 252,
		Iterations: simulations,
		Steps:      horizonDays,
		Seed:       cmd.Seed,
	})
	if err != nil {
		return nil, err
	}

	return &AssetVaRReport{
		Ticker:               ticker,
		Spot:                 decimal.NewFromFloat(spot),
		AnnualizedReturn:     mu,
		AnnualizedVolatility: sigma,
		HorizonDays:          horizonDays,
		Simulations:          simulations,
		Result:               *result,
		GeneratedAt:          time.Now(),
	}, nil
}

// PortfolioVaR 从历史数据估计参数后做关联蒙特卡洛组合风险模拟
// 权重缺省为等权，显式权重会被归一化到和为 1
func (s *AnalyticsService) PortfolioVaR(ctx context.Context, cmd PortfolioVaRCommand) (*PortfolioVaRReport, error) {
	tickers := normalizeTickers(cmd.Tickers)
	if len(tickers) == 0 {
		return nil, fmt.Errorf("%w: no tickers given", ErrNoPriceData)
	}
	days := normalizeDays(cmd.Days)

	// 参数估计需要收益率矩阵和每个标的的最新价格
	series := make([]domain.PriceSeries, 0, len(tickers))
	lastPrices := make(map[string]float64, len(tickers))
	for _, ticker := range tickers {
		prices, err := s.prices.ClosingPrices(ctx, ticker, days+1)
		if err != nil || len(prices) == 0 || prices[len(prices)-1] <= 0 {
			logging.Warn(ctx, "skipping ticker without usable price history", "ticker", ticker, "error", err)
			continue
		}
		series = append(series, domain.PriceSeries{Ticker: ticker, Prices: prices})
		lastPrices[ticker] = prices[len(prices)-1]
	}
	matrix, err := domain.BuildReturnMatrix(series, domain.ReturnLog, days)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoPriceData, err)
	}

	weights := normalizeWeights(matrix.Tickers, cmd.Weights)
	investment := cmd.InitialInvestment
	if investment <= 0 {
		investment = defaultInitialInvestment
	}
	confidence := cmd.ConfidenceLevel
	if confidence <= 0 || confidence >= 1 {
		confidence = defaultConfidence
	}
	horizonDays := cmd.HorizonDays
	if horizonDays <= 0 {
		horizonDays = defaultHorizonDays
	}
	simulations := cmd.Simulations
	if simulations <= 0 {
		simulations = defaultSimulations
	}

	// 逐标的估计年化参数，组合相关性直接取自收益率矩阵
	n := len(matrix.Tickers)
	assets := make([]domain.PortfolioAsset, n)
	stats := make([]AssetStat, n)
	for i, ticker := range matrix.Tickers {
		returns := matrix.Data[i]
		mu := stat.Mean(returns, nil) * 252
		sigma := stat.StdDev(returns, nil) * sqrt252
		price := lastPrices[ticker]
		value := investment * weights[ticker]
		assets[i] = domain.PortfolioAsset{
			Symbol:         ticker,
			Position:       decimal.NewFromFloat(value / price),
			CurrentPrice:   decimal.NewFromFloat(price),
			Volatility:     sigma,
			ExpectedReturn: mu,
		}
		stats[i] = AssetStat{
			Ticker:               ticker,
			LastPrice:            decimal.NewFromFloat(price),
			AnnualizedReturn:     mu,
			AnnualizedVolatility: sigma,
		}
	}

	corrMatrix := make([][]float64, n)
	for i := range corrMatrix {
		corrMatrix[i] = make([]float64, n)
		corrMatrix[i][i] = 1
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			c := stat.Correlation(matrix.Data[i], matrix.Data[j], nil)
			corrMatrix[i][j] = c
			corrMatrix[j][i] = c
		}
	}

	result, err := domain.CalculatePortfolioRisk(domain.PortfolioRiskInput{
		Assets:            assets,
		CorrelationMatrix: corrMatrix,
		TimeHorizon:       float64(horizonDays) / 252,
		Simulations:       simulations,
		ConfidenceLevel:   confidence,
		Seed:              cmd.Seed,
	})
	if err != nil {
		return nil, err
	}

	return &PortfolioVaRReport{
		Tickers:           matrix.Tickers,
		Weights:           weights,
		InitialInvestment: decimal.NewFromFloat(investment),
		ConfidenceLevel:   confidence,
		HorizonDays:       horizonDays,
		Simulations:       simulations,
		Result:            *result,
		AssetStats:        stats,
		GeneratedAt:       time.Now(),
	}, nil
}

// Comprehensive 一次执行四项分析并汇总
// 单项失败降级为报告内的错误标注；结果按标的集合缓存
func (s *AnalyticsService) Comprehensive(ctx context.Context, cmd ComprehensiveCommand) (*ComprehensiveReport, error) {
	tickers := normalizeTickers(cmd.Tickers)
	if len(tickers) == 0 {
		return nil, fmt.Errorf("%w: no tickers given", ErrNoPriceData)
	}
	benchmark := strings.ToUpper(strings.TrimSpace(cmd.Benchmark))
	if benchmark == "" {
		benchmark = defaultBenchmark
	}
	days := normalizeDays(cmd.Days)

	cacheKey := comprehensiveCacheKey(tickers, benchmark, days)
	if s.cache != nil {
		var cached ComprehensiveReport
		if ok, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
			logging.Warn(ctx, "report cache read failed", "key", cacheKey, "error", err)
		} else if ok {
			return &cached, nil
		}
	}

	report := &ComprehensiveReport{
		Tickers:     tickers,
		Benchmark:   benchmark,
		Days:        days,
		Errors:      make(map[string]string),
		GeneratedAt: time.Now(),
	}

	if reg, err := s.Regression(ctx, RegressionCommand{Tickers: tickers, Benchmark: benchmark, Days: days}); err != nil {
		report.Errors["regression"] = err.Error()
	} else {
		report.Regression = reg
	}
	if corr, err := s.Correlation(ctx, CorrelationCommand{Tickers: tickers, Days: days}); err != nil {
		report.Errors["correlation"] = err.Error()
	} else {
		report.Correlation = corr
	}
	if pca, err := s.PCA(ctx, CorrelationCommand{Tickers: tickers, Days: days}); err != nil {
		report.Errors["pca"] = err.Error()
	} else {
		report.PCA = pca
	}
	if vr, err := s.PortfolioVaR(ctx, PortfolioVaRCommand{
		Tickers:           tickers,
		Weights:           cmd.Weights,
		Days:              days,
		Simulations:       cmd.Simulations,
		InitialInvestment: cmd.InitialInvestment,
	}); err != nil {
		report.Errors["var"] = err.Error()
	} else {
		report.VaR = vr
	}

	if len(report.Errors) == len(reportSections) {
		return nil, fmt.Errorf("%w: every analysis failed", ErrNoPriceData)
	}
	if len(report.Errors) == 0 {
		report.Errors = nil
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, report); err != nil {
			logging.Warn(ctx, "report cache write failed", "key", cacheKey, "error", err)
		}
	}
	return report, nil
}

var reportSections = []string{"regression", "correlation", "pca", "var"}

const sqrt252 = 15.874507866387544 // sqrt(252)

// loadReturns 拉取历史价格并构建对齐的收益率矩阵
func (s *AnalyticsService) loadReturns(ctx context.Context, tickers []string, method domain.ReturnMethod, days int) (*domain.ReturnMatrix, error) {
	if len(tickers) == 0 {
		return nil, fmt.Errorf("%w: no tickers given", ErrNoPriceData)
	}
	series := make([]domain.PriceSeries, 0, len(tickers))
	for _, ticker := range tickers {
		prices, err := s.prices.ClosingPrices(ctx, ticker, days+1)
		if err != nil {
			logging.Warn(ctx, "skipping ticker without price history", "ticker", ticker, "error", err)
			continue
		}
		series = append(series, domain.PriceSeries{Ticker: ticker, Prices: prices})
	}
	matrix, err := domain.BuildReturnMatrix(series, method, days)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoPriceData, err)
	}
	return matrix, nil
}

func normalizeTickers(tickers []string) []string {
	out := make([]string, 0, len(tickers))
	seen := make(map[string]bool, len(tickers))
	for _, t := range tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func normalizeDays(days int) int {
	if days <= 0 {
		return defaultDays
	}
	return days
}

func normalizeMethod(method string) domain.ReturnMethod {
	if strings.EqualFold(method, string(domain.ReturnLog)) {
		return domain.ReturnLog
	}
	return domain.ReturnSimple
}

// normalizeWeights 归一化权重到和为 1；全零或缺省时退回等权
func normalizeWeights(tickers []string, weights map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(tickers))
	var total float64
	for _, t := range tickers {
		w := weights[t]
		if w < 0 {
			w = 0
		}
		out[t] = w
		total += w
	}
	if total <= 0 {
		equal := 1.0 / float64(len(tickers))
		for _, t := range tickers {
			out[t] = equal
		}
		return out
	}
	for t := range out {
		out[t] /= total
	}
	return out
}

func comprehensiveCacheKey(tickers []string, benchmark string, days int) string {
	sorted := append([]string(nil), tickers...)
	sort.Strings(sorted)
	return fmt.Sprintf("comprehensive:%s:%s:%d", strings.Join(sorted, ","), benchmark, days)
}
