package domain

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ErrSVDFailed 标准化收益率矩阵的奇异值分解未收敛
var ErrSVDFailed = errors.New("svd factorization failed")

// PCAComponent 单个主成分
type PCAComponent struct {
	Name                   string             `json:"name"` // PC1, PC2, ...
	Eigenvalue             float64            `json:"eigenvalue"`
	ExplainedVarianceRatio float64            `json:"explained_variance_ratio"`
	CumulativeVariance     float64            `json:"cumulative_variance"`
	Loadings               map[string]float64 `json:"loadings"` // 各标的在该主成分上的载荷
	Interpretation         string             `json:"interpretation"`
}

// PCAResult 主成分分析结果
type PCAResult struct {
	Tickers                []string           `json:"tickers"`
	Observations           int                `json:"observations"`
	Means                  map[string]float64 `json:"means"`    // 标准化前的日收益率均值
	StdDevs                map[string]float64 `json:"std_devs"` // 标准化前的日收益率标准差
	Components             []PCAComponent     `json:"components"`
	TotalVarianceExplained float64            `json:"total_variance_explained"`
	ComponentsFor90Pct     int                `json:"components_for_90_pct"`
	ComponentsFor95Pct     int                `json:"components_for_95_pct"`
}

// RunPCA 对标准化后的收益率矩阵做主成分分析
// 每列先变换到零均值单位方差，再经 SVD 提取按解释方差降序排列的主成分
func RunPCA(m *ReturnMatrix) (*PCAResult, error) {
	nAssets := len(m.Tickers)
	nObs := m.Observations()
	if nAssets < 2 {
		return nil, fmt.Errorf("%w: pca needs at least 2 tickers, got %d", ErrNeedTwoAssets, nAssets)
	}
	if nObs < 3 {
		return nil, fmt.Errorf("%w: pca needs at least 3 observations, got %d", ErrInsufficientData, nObs)
	}

	result := &PCAResult{
		Tickers:      m.Tickers,
		Observations: nObs,
		Means:        make(map[string]float64, nAssets),
		StdDevs:      make(map[string]float64, nAssets),
	}

	// 标准化：观测为行，标的为列
	x := mat.NewDense(nObs, nAssets, nil)
	for j, ticker := range m.Tickers {
		mean := stat.Mean(m.Data[j], nil)
		std := stat.StdDev(m.Data[j], nil)
		result.Means[ticker] = mean
		result.StdDevs[ticker] = std
		if std == 0 {
			// 常数列没有信息量，居中后整列为零
			std = 1
		}
		for i, v := range m.Data[j] {
			x.Set(i, j, (v-mean)/std)
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(x, mat.SVDThin); !ok {
		return nil, ErrSVDFailed
	}
	singular := svd.Values(nil)
	var v mat.Dense
	svd.VTo(&v)

	// 特征值 lambda_k = s_k^2 / (n-1)，即各主成分解释的方差
	nComponents := len(singular)
	eigenvalues := make([]float64, nComponents)
	var totalVariance float64
	for k, s := range singular {
		eigenvalues[k] = s * s / float64(nObs-1)
		totalVariance += eigenvalues[k]
	}

	cumulative := 0.0
	for k := 0; k < nComponents; k++ {
		ratio := 0.0
		if totalVariance > 0 {
			ratio = eigenvalues[k] / totalVariance
		}
		cumulative += ratio

		loadings := make(map[string]float64, nAssets)
		raw := make([]float64, nAssets)
		for j, ticker := range m.Tickers {
			raw[j] = v.At(j, k)
			loadings[ticker] = raw[j]
		}

		result.Components = append(result.Components, PCAComponent{
			Name:                   fmt.Sprintf("PC%d", k+1),
			Eigenvalue:             eigenvalues[k],
			ExplainedVarianceRatio: ratio,
			CumulativeVariance:     cumulative,
			Loadings:               loadings,
			Interpretation:         interpretComponent(raw, m.Tickers, ratio),
		})
	}

	result.TotalVarianceExplained = cumulative
	result.ComponentsFor90Pct = componentsForThreshold(result.Components, 0.90)
	result.ComponentsFor95Pct = componentsForThreshold(result.Components, 0.95)
	return result, nil
}

// componentsForThreshold 累计解释方差首次达到阈值所需的主成分个数
func componentsForThreshold(components []PCAComponent, threshold float64) int {
	for k, c := range components {
		if c.CumulativeVariance >= threshold {
			return k + 1
		}
	}
	return len(components)
}

// interpretComponent 报告主成分解释的方差占比与载荷绝对值最大的三个标的
func interpretComponent(loadings []float64, tickers []string, varianceRatio float64) string {
	idx := make([]int, len(loadings))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		return math.Abs(loadings[idx[a]]) > math.Abs(loadings[idx[b]])
	})

	top := len(idx)
	if top > 3 {
		top = 3
	}
	contributors := make([]string, 0, top)
	for _, i := range idx[:top] {
		direction := "positive"
		if loadings[i] < 0 {
			direction = "negative"
		}
		contributors = append(contributors,
			fmt.Sprintf("%s (%s, %.3f)", tickers[i], direction, math.Abs(loadings[i])))
	}

	return fmt.Sprintf("Explains %.2f%% of variance. Top contributors: %s",
		varianceRatio*100, strings.Join(contributors, ", "))
}
