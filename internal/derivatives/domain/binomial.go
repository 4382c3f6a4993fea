package domain

import (
	"fmt"
	"math"
)

// BinomialResult CRR 二叉树定价输出及树参数
type BinomialResult struct {
	Price    float64 `json:"price"`
	Steps    int     `json:"steps"`
	Up       float64 `json:"up"`
	Down     float64 `json:"down"`
	PUp      float64 `json:"p_up"`
	Dt       float64 `json:"dt"`
	Discount float64 `json:"discount_factor"`
}

// PriceBinomial Cox-Ross-Rubinstein 二叉树定价
// u = exp(sigma*sqrt(dt))，d = 1/u，p = (exp(r*dt)-d)/(u-d)；
// p 越界返回 ErrInvalidProbability 而非静默给出错误价格
func PriceBinomial(c OptionContract, steps int) (*BinomialResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if steps <= 0 {
		return nil, fmt.Errorf("%w: steps must be positive, got %d", ErrInvalidInput, steps)
	}

	dt := c.T / float64(steps)
	u := math.Exp(c.Sigma * math.Sqrt(dt))
	d := 1 / u
	p := (math.Exp(c.R*dt) - d) / (u - d)

	if p < 0 || p > 1 {
		return nil, fmt.Errorf("%w: p=%v (sigma=%v r=%v dt=%v)", ErrInvalidProbability, p, c.Sigma, c.R, dt)
	}

	discount := math.Exp(-c.R * dt)

	// 到期日 N+1 个叶节点的收益
	values := make([]float64, steps+1)
	for i := 0; i <= steps; i++ {
		price := c.S * math.Pow(u, float64(steps-i)) * math.Pow(d, float64(i))
		values[i] = c.Payoff(price)
	}

	// 逐层折现期望回推；美式期权在每个内部节点用立即行权价值做下界
	for j := steps - 1; j >= 0; j-- {
		for i := 0; i <= j; i++ {
			values[i] = discount * (p*values[i] + (1-p)*values[i+1])
			if c.Exercise == ExerciseAmerican {
				price := c.S * math.Pow(u, float64(j-i)) * math.Pow(d, float64(i))
				values[i] = math.Max(values[i], c.Payoff(price))
			}
		}
	}

	return &BinomialResult{
		Price:    values[0],
		Steps:    steps,
		Up:       u,
		Down:     d,
		PUp:      p,
		Dt:       dt,
		Discount: discount,
	}, nil
}
