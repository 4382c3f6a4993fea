package application

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/quantanalytics/internal/analytics/domain"
)

// RegressionReport 多标的单因子回归报告
type RegressionReport struct {
	Benchmark   string                    `json:"benchmark"`
	Days        int                       `json:"days"`
	Method      string                    `json:"method"`
	Results     []domain.RegressionResult `json:"results"`
	Failed      map[string]string         `json:"failed,omitempty"` // 标的 → 失败原因
	GeneratedAt time.Time                 `json:"generated_at"`
}

// AssetVaRReport 单资产蒙特卡洛 VaR 报告
type AssetVaRReport struct {
	Ticker               string                  `json:"ticker"`
	Spot                 decimal.Decimal         `json:"spot"`
	AnnualizedReturn     float64                 `json:"annualized_return"`
	AnnualizedVolatility float64                 `json:"annualized_volatility"`
	HorizonDays          int                     `json:"horizon_days"`
	Simulations          int                     `json:"simulations"`
	Result               domain.MonteCarloResult `json:"result"`
	GeneratedAt          time.Time               `json:"generated_at"`
}

// PortfolioVaRReport 组合蒙特卡洛 VaR 报告
type PortfolioVaRReport struct {
	Tickers           []string                   `json:"tickers"`
	Weights           map[string]float64         `json:"weights"`
	InitialInvestment decimal.Decimal            `json:"initial_investment"`
	ConfidenceLevel   float64                    `json:"confidence_level"`
	HorizonDays       int                        `json:"horizon_days"`
	Simulations       int                        `json:"simulations"`
	Result            domain.PortfolioRiskResult `json:"result"`
	AssetStats        []AssetStat                `json:"asset_stats"`
	GeneratedAt       time.Time                  `json:"generated_at"`
}

// AssetStat 从历史收益率估计出的单资产参数
type AssetStat struct {
	Ticker               string          `json:"ticker"`
	LastPrice            decimal.Decimal `json:"last_price"`
	AnnualizedReturn     float64         `json:"annualized_return"`
	AnnualizedVolatility float64         `json:"annualized_volatility"`
}

// ComprehensiveReport 四项分析的汇总报告
// 单项失败不阻断整体，失败原因记录在 Errors 中
type ComprehensiveReport struct {
	Tickers     []string                  `json:"tickers"`
	Benchmark   string                    `json:"benchmark"`
	Days        int                       `json:"days"`
	Regression  *RegressionReport         `json:"regression,omitempty"`
	Correlation *domain.CorrelationResult `json:"correlation,omitempty"`
	PCA         *domain.PCAResult         `json:"pca,omitempty"`
	VaR         *PortfolioVaRReport       `json:"var,omitempty"`
	Errors      map[string]string         `json:"errors,omitempty"` // 分析项 → 失败原因
	GeneratedAt time.Time                 `json:"generated_at"`
}
