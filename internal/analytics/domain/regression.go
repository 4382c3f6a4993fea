package domain

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// 年化系数：252 个交易日
const tradingDaysPerYear = 252

// RegressionResult 单因子 OLS 回归结果 (资产日收益率对基准日收益率)
type RegressionResult struct {
	Ticker           string  `json:"ticker"`
	Benchmark        string  `json:"benchmark"`
	Beta             float64 `json:"beta"`
	Alpha            float64 `json:"alpha"`            // 日度截距
	AlphaAnnualized  float64 `json:"alpha_annualized"` // Alpha * 252
	RSquared         float64 `json:"r_squared"`
	Correlation      float64 `json:"correlation"`
	ResidualStdDev   float64 `json:"residual_std_dev"`
	TrackingError    float64 `json:"tracking_error"`    // std(超额收益) * sqrt(252)
	InformationRatio float64 `json:"information_ratio"` // 年化超额收益 / 跟踪误差
	Observations     int     `json:"observations"`
	Interpretation   string  `json:"interpretation"`
}

// RunRegression 对资产收益率序列与基准收益率序列做 OLS 回归
// 两条序列必须等长且逐点对齐 (同一交易日)
func RunRegression(ticker, benchmark string, asset, bench []float64) (*RegressionResult, error) {
	if len(asset) != len(bench) {
		return nil, fmt.Errorf("%w: asset %d vs benchmark %d", ErrSeriesMismatch, len(asset), len(bench))
	}
	if len(asset) < 3 {
		return nil, fmt.Errorf("%w: regression needs at least 3 aligned observations", ErrInsufficientData)
	}

	alpha, beta := stat.LinearRegression(bench, asset, nil, false)
	rsq := stat.RSquared(bench, asset, nil, alpha, beta)
	if math.IsNaN(rsq) {
		// 基准零方差时 SS_tot = 0，回归没有解释力
		rsq = 0
	}
	corr := stat.Correlation(bench, asset, nil)
	if math.IsNaN(corr) {
		corr = 0
	}

	residuals := make([]float64, len(asset))
	excess := make([]float64, len(asset))
	for i := range asset {
		residuals[i] = asset[i] - (alpha + beta*bench[i])
		excess[i] = asset[i] - bench[i]
	}
	residualStd := stat.StdDev(residuals, nil)

	trackingError := stat.StdDev(excess, nil) * math.Sqrt(tradingDaysPerYear)
	if trackingError < 1e-12 {
		// 超额收益零方差，信息比率无定义
		trackingError = 0
	}
	infoRatio := 0.0
	if trackingError != 0 {
		infoRatio = stat.Mean(excess, nil) * tradingDaysPerYear / trackingError
	}

	result := &RegressionResult{
		Ticker:           ticker,
		Benchmark:        benchmark,
		Beta:             beta,
		Alpha:            alpha,
		AlphaAnnualized:  alpha * tradingDaysPerYear,
		RSquared:         rsq,
		Correlation:      corr,
		ResidualStdDev:   residualStd,
		TrackingError:    trackingError,
		InformationRatio: infoRatio,
		Observations:     len(asset),
	}
	result.Interpretation = interpretRegression(beta, result.AlphaAnnualized, rsq)
	return result, nil
}

// interpretRegression 把 beta/alpha/R² 翻译成面向报告的结论
func interpretRegression(beta, alphaAnnualized, rSquared float64) string {
	var betaDesc string
	switch {
	case beta > 1.2:
		betaDesc = "High volatility - amplifies market movements"
	case beta > 1.0:
		betaDesc = "Moderate volatility - slightly amplifies market"
	case beta > 0.8:
		betaDesc = "Moderate volatility - tracks market closely"
	case beta > 0.5:
		betaDesc = "Low volatility - dampens market movements"
	case beta > 0:
		betaDesc = "Very low volatility - weak market correlation"
	default:
		betaDesc = "Negative correlation - inverse market relationship"
	}

	var alphaDesc string
	switch {
	case alphaAnnualized > 0.05:
		alphaDesc = "Strong outperformance"
	case alphaAnnualized > 0.02:
		alphaDesc = "Moderate outperformance"
	case alphaAnnualized > -0.02:
		alphaDesc = "Market-level performance"
	case alphaAnnualized > -0.05:
		alphaDesc = "Moderate underperformance"
	default:
		alphaDesc = "Significant underperformance"
	}

	var fitDesc string
	switch {
	case rSquared > 0.7:
		fitDesc = "Strong explanatory power"
	case rSquared > 0.4:
		fitDesc = "Moderate explanatory power"
	default:
		fitDesc = "Weak explanatory power"
	}

	return fmt.Sprintf("%s; %s; %s", betaDesc, alphaDesc, fitDesc)
}
