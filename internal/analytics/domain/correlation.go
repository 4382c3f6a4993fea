package domain

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// CorrelatedPair 一对标的及其相关系数
type CorrelatedPair struct {
	Pair           string  `json:"pair"`
	Correlation    float64 `json:"correlation"`
	Interpretation string  `json:"interpretation"`
}

// CorrelationResult 相关性分析结果
type CorrelationResult struct {
	Tickers              []string         `json:"tickers"`
	Matrix               [][]float64      `json:"matrix"` // Matrix[i][j] = corr(Tickers[i], Tickers[j])
	AvgCorrelation       float64          `json:"avg_correlation"`
	DiversificationScore float64          `json:"diversification_score"` // 1 - |平均相关系数|
	Observations         int              `json:"observations"`
	HighCorrPairs        []CorrelatedPair `json:"high_corr_pairs"`
	NegativeCorrPairs    []CorrelatedPair `json:"negative_corr_pairs"`
	LowCorrPairs         []CorrelatedPair `json:"low_corr_pairs"`
	Interpretation       string           `json:"interpretation"`
}

// 配对分类阈值与截断
const (
	highCorrThreshold     = 0.7
	negativeCorrThreshold = -0.5
	lowCorrThreshold      = 0.3
	maxReportedPairs      = 10
)

// AnalyzeCorrelation 计算收益率矩阵的 Pearson 相关系数矩阵并给出分散化评估
func AnalyzeCorrelation(m *ReturnMatrix) (*CorrelationResult, error) {
	n := len(m.Tickers)
	if n < 2 {
		return nil, fmt.Errorf("%w: correlation needs at least 2 tickers, got %d", ErrNeedTwoAssets, n)
	}

	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
		matrix[i][i] = 1
	}

	result := &CorrelationResult{
		Tickers:      m.Tickers,
		Matrix:       matrix,
		Observations: m.Observations(),
	}

	// 只遍历上三角，同时累计平均相关系数并分类显著配对
	var sum float64
	var count int
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			corr := stat.Correlation(m.Data[i], m.Data[j], nil)
			if math.IsNaN(corr) {
				corr = 0
			}
			matrix[i][j] = corr
			matrix[j][i] = corr
			sum += corr
			count++

			pair := CorrelatedPair{
				Pair:        m.Tickers[i] + "-" + m.Tickers[j],
				Correlation: corr,
			}
			switch {
			case corr > highCorrThreshold:
				pair.Interpretation = "Strong positive correlation"
				if len(result.HighCorrPairs) < maxReportedPairs {
					result.HighCorrPairs = append(result.HighCorrPairs, pair)
				}
			case corr < negativeCorrThreshold:
				pair.Interpretation = "Strong negative correlation"
				if len(result.NegativeCorrPairs) < maxReportedPairs {
					result.NegativeCorrPairs = append(result.NegativeCorrPairs, pair)
				}
			case math.Abs(corr) < lowCorrThreshold:
				pair.Interpretation = "Low correlation"
				if len(result.LowCorrPairs) < maxReportedPairs {
					result.LowCorrPairs = append(result.LowCorrPairs, pair)
				}
			}
		}
	}

	result.AvgCorrelation = sum / float64(count)
	result.DiversificationScore = 1 - math.Abs(result.AvgCorrelation)
	result.Interpretation = interpretCorrelation(
		result.AvgCorrelation, len(result.HighCorrPairs), len(result.NegativeCorrPairs))
	return result, nil
}

func interpretCorrelation(avgCorr float64, highCount, negativeCount int) string {
	var diversification string
	switch {
	case avgCorr > 0.6:
		diversification = "Poor diversification - assets move together"
	case avgCorr > 0.4:
		diversification = "Moderate diversification"
	case avgCorr > 0.2:
		diversification = "Good diversification"
	default:
		diversification = "Excellent diversification - assets move independently"
	}

	concern := "Correlation levels are acceptable"
	if highCount > 5 {
		concern = "Many highly correlated pairs - consider portfolio rebalancing"
	}

	hedge := "No significant negative correlations found"
	if negativeCount > 0 {
		hedge = fmt.Sprintf("Found %d negative correlations - natural hedging opportunities", negativeCount)
	}

	return fmt.Sprintf("%s. %s. %s", diversification, concern, hedge)
}
