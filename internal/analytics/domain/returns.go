// Package domain 包含组合分析服务的领域模型：
// 收益率序列、单因子回归、相关性分析、主成分分析与蒙特卡洛风险度量。
package domain

import (
	"errors"
	"fmt"
	"math"
)

// ReturnMethod 收益率计算方式
type ReturnMethod string

const (
	// ReturnSimple 简单收益率: r_t = P_t / P_{t-1} - 1
	ReturnSimple ReturnMethod = "simple"
	// ReturnLog 对数收益率: r_t = ln(P_t / P_{t-1})
	ReturnLog ReturnMethod = "log"
)

var (
	// ErrInsufficientData 价格点不足以计算收益率 (至少需要两个价格)
	ErrInsufficientData = errors.New("insufficient price data")
	// ErrNeedTwoAssets 多资产分析 (相关性/PCA) 至少需要两个有效标的
	ErrNeedTwoAssets = errors.New("need at least two assets with data")
	// ErrSeriesMismatch 两条序列长度不一致，无法逐点对齐
	ErrSeriesMismatch = errors.New("return series length mismatch")
)

// PriceSeries 单一标的按时间升序排列的收盘价序列
type PriceSeries struct {
	Ticker string
	Prices []float64
}

// ReturnMatrix 多标的对齐后的收益率矩阵
// Data[i] 为 Tickers[i] 的收益率序列，所有行等长且尾部对齐
type ReturnMatrix struct {
	Tickers []string
	Data    [][]float64
}

// Observations 每个标的的收益率观测数
func (m *ReturnMatrix) Observations() int {
	if len(m.Data) == 0 {
		return 0
	}
	return len(m.Data[0])
}

// Series 按标的名取出收益率序列，不存在时返回 nil
func (m *ReturnMatrix) Series(ticker string) []float64 {
	for i, t := range m.Tickers {
		if t == ticker {
			return m.Data[i]
		}
	}
	return nil
}

// ComputeReturns 从价格序列计算收益率
// 首个价格没有前值，产出长度为 len(prices)-1；tail > 0 时只保留最近 tail 个观测
func ComputeReturns(prices []float64, method ReturnMethod, tail int) ([]float64, error) {
	if len(prices) < 2 {
		return nil, fmt.Errorf("%w: got %d prices, need at least 2", ErrInsufficientData, len(prices))
	}
	ret := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		prev, cur := prices[i-1], prices[i]
		if prev <= 0 || cur <= 0 {
			return nil, fmt.Errorf("%w: non-positive price at index %d", ErrInsufficientData, i)
		}
		switch method {
		case ReturnLog:
			ret = append(ret, math.Log(cur/prev))
		default:
			ret = append(ret, cur/prev-1)
		}
	}
	if tail > 0 && len(ret) > tail {
		ret = ret[len(ret)-tail:]
	}
	return ret, nil
}

// BuildReturnMatrix 为多个标的构建尾部对齐的收益率矩阵
// 价格不足的标的被剔除 (行为等同于按列丢弃缺失数据)；
// 剩余序列统一截断到最短长度，保证逐点可比
func BuildReturnMatrix(series []PriceSeries, method ReturnMethod, tail int) (*ReturnMatrix, error) {
	matrix := &ReturnMatrix{}
	minLen := math.MaxInt
	for _, s := range series {
		ret, err := ComputeReturns(s.Prices, method, tail)
		if err != nil {
			continue
		}
		matrix.Tickers = append(matrix.Tickers, s.Ticker)
		matrix.Data = append(matrix.Data, ret)
		if len(ret) < minLen {
			minLen = len(ret)
		}
	}
	if len(matrix.Tickers) == 0 {
		return nil, fmt.Errorf("%w: no ticker has enough price history", ErrInsufficientData)
	}
	for i, ret := range matrix.Data {
		if len(ret) > minLen {
			matrix.Data[i] = ret[len(ret)-minLen:]
		}
	}
	return matrix, nil
}
