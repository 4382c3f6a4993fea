// Package domain 衍生品定价服务的领域模型：期权合约、定价模型、隐含波动率与波动率曲面
package domain

import (
	"fmt"
	"math"
)

// OptionType 期权类型
type OptionType string

const (
	OptionTypeCall OptionType = "CALL" // 看涨期权
	OptionTypePut  OptionType = "PUT"  // 看跌期权
)

// ExerciseType 行权方式
type ExerciseType string

const (
	ExerciseEuropean ExerciseType = "EUROPEAN" // 欧式，仅到期日可行权
	ExerciseAmerican ExerciseType = "AMERICAN" // 美式，存续期内任意时点可行权
)

// OptionContract 期权定价合约参数
// 单次定价调用内不可变；隐含波动率问题中 Sigma 为待求解未知量
type OptionContract struct {
	S        float64      // 标的现价
	K        float64      // 行权价
	T        float64      // 剩余期限 (年)
	R        float64      // 无风险利率 (年化)
	Sigma    float64      // 波动率 (年化)
	Type     OptionType   // CALL/PUT
	Exercise ExerciseType // EUROPEAN/AMERICAN
}

// Validate 校验定价输入
// 非法输入属于调用方错误，立即失败且不重试
func (c OptionContract) Validate() error {
	if c.T <= 0 {
		return fmt.Errorf("%w: time to maturity must be positive, got %v", ErrInvalidInput, c.T)
	}
	if c.Sigma <= 0 {
		return fmt.Errorf("%w: volatility must be positive, got %v", ErrInvalidInput, c.Sigma)
	}
	if c.S <= 0 || c.K <= 0 {
		return fmt.Errorf("%w: spot and strike must be positive, got S=%v K=%v", ErrInvalidInput, c.S, c.K)
	}
	if c.Type != OptionTypeCall && c.Type != OptionTypePut {
		return fmt.Errorf("%w: unknown option type %q", ErrInvalidInput, c.Type)
	}
	return nil
}

// Intrinsic 基于当前现价的内在价值
func (c OptionContract) Intrinsic() float64 {
	return c.Payoff(c.S)
}

// Payoff 给定标的价格下的行权收益
func (c OptionContract) Payoff(price float64) float64 {
	if c.Type == OptionTypeCall {
		return math.Max(price-c.K, 0)
	}
	return math.Max(c.K-price, 0)
}

// Moneyness 在值程度 ln(K/S)；0 为平值，看涨期权负值为实值
func (c OptionContract) Moneyness() float64 {
	return math.Log(c.K / c.S)
}

// WithSigma 返回替换波动率后的合约副本
func (c OptionContract) WithSigma(sigma float64) OptionContract {
	c.Sigma = sigma
	return c
}
