package domain

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

var stdNormal = distuv.Normal{Mu: 0, Sigma: 1}

// PricingResult Black-Scholes 闭式解输出
// Theta 为每日历日衰减 (年化值 / 365)，Vega 对应波动率每变动 1 个百分点，
// Rho 对应利率每变动 1 个百分点；下游依赖这些单位，不可改动
type PricingResult struct {
	Price float64 `json:"price"`
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
	Rho   float64 `json:"rho"`
	D1    float64 `json:"d1"`
	D2    float64 `json:"d2"`
}

// PriceBlackScholes 计算 Black-Scholes 价格与希腊字母
// 纯函数，无副作用；输入合法时必然成功
func PriceBlackScholes(c OptionContract) (*PricingResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	sqrtT := math.Sqrt(c.T)
	d1 := (math.Log(c.S/c.K) + (c.R+0.5*c.Sigma*c.Sigma)*c.T) / (c.Sigma * sqrtT)
	d2 := d1 - c.Sigma*sqrtT
	discK := c.K * math.Exp(-c.R*c.T)

	var price, delta, theta, rho float64
	if c.Type == OptionTypeCall {
		price = c.S*stdNormal.CDF(d1) - discK*stdNormal.CDF(d2)
		delta = stdNormal.CDF(d1)
		theta = -(c.S*stdNormal.Prob(d1)*c.Sigma)/(2*sqrtT) - c.R*discK*stdNormal.CDF(d2)
		rho = c.K * c.T * math.Exp(-c.R*c.T) * stdNormal.CDF(d2)
	} else {
		price = discK*stdNormal.CDF(-d2) - c.S*stdNormal.CDF(-d1)
		delta = -stdNormal.CDF(-d1)
		theta = -(c.S*stdNormal.Prob(d1)*c.Sigma)/(2*sqrtT) + c.R*discK*stdNormal.CDF(-d2)
		rho = -c.K * c.T * math.Exp(-c.R*c.T) * stdNormal.CDF(-d2)
	}

	// gamma 与 vega 对 call/put 相同
	gamma := stdNormal.Prob(d1) / (c.S * c.Sigma * sqrtT)
	vega := c.S * sqrtT * stdNormal.Prob(d1)

	return &PricingResult{
		Price: price,
		Delta: delta,
		Gamma: gamma,
		Theta: theta / 365, // 转换为每日历日
		Vega:  vega / 100,  // 转换为每 1% 波动率
		Rho:   rho / 100,   // 转换为每 1% 利率
		D1:    d1,
		D2:    d2,
	}, nil
}

// blackScholesPrice 仅计算价格，供隐含波动率迭代内部复用
func blackScholesPrice(c OptionContract, sigma float64) float64 {
	sqrtT := math.Sqrt(c.T)
	d1 := (math.Log(c.S/c.K) + (c.R+0.5*sigma*sigma)*c.T) / (sigma * sqrtT)
	d2 := d1 - sigma*sqrtT

	if c.Type == OptionTypeCall {
		return c.S*stdNormal.CDF(d1) - c.K*math.Exp(-c.R*c.T)*stdNormal.CDF(d2)
	}
	return c.K*math.Exp(-c.R*c.T)*stdNormal.CDF(-d2) - c.S*stdNormal.CDF(-d1)
}

// blackScholesVega 未缩放的 vega = S * sqrt(T) * phi(d1)
// Newton-Raphson 的导数项使用原始量纲，而非对外报告的 1% 口径
func blackScholesVega(c OptionContract, sigma float64) float64 {
	sqrtT := math.Sqrt(c.T)
	d1 := (math.Log(c.S/c.K) + (c.R+0.5*sigma*sigma)*c.T) / (sigma * sqrtT)
	return c.S * sqrtT * stdNormal.Prob(d1)
}
