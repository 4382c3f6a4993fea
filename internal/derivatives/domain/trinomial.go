package domain

import (
	"fmt"
	"math"
)

// TrinomialResult 三叉树定价输出及树参数
type TrinomialResult struct {
	Price    float64 `json:"price"`
	Steps    int     `json:"steps"`
	Up       float64 `json:"up"`
	Down     float64 `json:"down"`
	PUp      float64 `json:"p_up"`
	PMid     float64 `json:"p_mid"`
	PDown    float64 `json:"p_down"`
	Dt       float64 `json:"dt"`
	Discount float64 `json:"discount_factor"`
}

// PriceTrinomial Boyle 三叉树定价，up 因子取默认 exp(sigma*sqrt(2h))
func PriceTrinomial(c OptionContract, steps int) (*TrinomialResult, error) {
	return PriceTrinomialWithUp(c, steps, 0)
}

// PriceTrinomialWithUp 使用外部指定的 up 因子定价；up<=0 时按默认公式推导
// 重组树条件 down = 1/up < up 恒成立，违反视为致命参数错误
func PriceTrinomialWithUp(c OptionContract, steps int, up float64) (*TrinomialResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if steps <= 0 {
		return nil, fmt.Errorf("%w: steps must be positive, got %d", ErrInvalidInput, steps)
	}

	h := c.T / float64(steps)
	discount := math.Exp(-c.R * h)

	if up <= 0 {
		up = math.Exp(c.Sigma * math.Sqrt(2*h))
	}
	down := 1 / up
	if down >= up {
		return nil, fmt.Errorf("%w: up=%v implies down=%v >= up", ErrInvalidTreeParameter, up, down)
	}

	// Boyle 概率
	sqrtHalfH := math.Sqrt(h / 2)
	expUp := math.Exp(c.Sigma * sqrtHalfH)
	expDown := math.Exp(-c.Sigma * sqrtHalfH)
	expR := math.Exp(c.R * h / 2)

	pu := math.Pow((expR-expDown)/(expUp-expDown), 2)
	pd := math.Pow((expUp-expR)/(expUp-expDown), 2)
	pm := 1 - pu - pd

	if pu < 0 || pu > 1 || pd < 0 || pd > 1 || pm < 0 || pm > 1 {
		return nil, fmt.Errorf("%w: pu=%v pm=%v pd=%v (sigma=%v r=%v h=%v)", ErrInvalidProbability, pu, pm, pd, c.Sigma, c.R, h)
	}

	// 到期日 2N+1 个节点的收益
	stock := trinomialStockVec(c.S, steps, up, down)
	values := make([]float64, len(stock))
	for i, price := range stock {
		values[i] = c.Payoff(price)
	}

	// 回推：每层节点数减二
	for i := 1; i <= steps; i++ {
		stock = trinomialStockVec(c.S, steps-i, up, down)
		next := make([]float64, len(stock))
		for j := range next {
			next[j] = discount * (values[j]*pd + values[j+1]*pm + values[j+2]*pu)
			if c.Exercise == ExerciseAmerican {
				next[j] = math.Max(next[j], c.Payoff(stock[j]))
			}
		}
		values = next
	}

	return &TrinomialResult{
		Price:    values[0],
		Steps:    steps,
		Up:       up,
		Down:     down,
		PUp:      pu,
		PMid:     pm,
		PDown:    pd,
		Dt:       h,
		Discount: discount,
	}, nil
}

// trinomialStockVec 第 nb 层的标的价格向量，自最低价到最高价共 2*nb+1 个节点
func trinomialStockVec(s0 float64, nb int, up, down float64) []float64 {
	vec := make([]float64, 2*nb+1)
	vec[nb] = s0
	for i := 1; i <= nb; i++ {
		vec[nb+i] = vec[nb+i-1] * up
		vec[nb-i] = vec[nb-i+1] * down
	}
	return vec
}

// ConvergencePoint 单一步数下的收敛诊断
type ConvergencePoint struct {
	Steps         int     `json:"steps"`
	Price         float64 `json:"price"`
	PriceChange   float64 `json:"price_change"`
	PercentChange float64 `json:"percent_change"`
}

// AnalyzeConvergence 在一组步数上重复定价并报告相邻价差
// 仅作诊断用途，验证树价格逼近闭式解极限，不构成正确性保证
func AnalyzeConvergence(c OptionContract, stepCounts []int) []ConvergencePoint {
	points := make([]ConvergencePoint, 0, len(stepCounts))
	for _, steps := range stepCounts {
		result, err := PriceTrinomial(c, steps)
		if err != nil {
			continue
		}
		points = append(points, ConvergencePoint{Steps: steps, Price: result.Price})
	}

	for i := 1; i < len(points); i++ {
		prev := points[i-1].Price
		points[i].PriceChange = math.Abs(points[i].Price - prev)
		if prev > 0 {
			points[i].PercentChange = points[i].PriceChange / prev * 100
		}
	}
	return points
}

// ModelComparison 各模型价格对照
type ModelComparison struct {
	BlackScholes        float64 `json:"black_scholes"`
	Binomial            float64 `json:"binomial"`
	Trinomial           float64 `json:"trinomial"`
	Steps               int     `json:"steps"`
	BinomialVsBS        float64 `json:"binomial_vs_bs"`
	TrinomialVsBS       float64 `json:"trinomial_vs_bs"`
	BinomialVsTrinomial float64 `json:"binomial_vs_trinomial"`
}

// CompareModels 用同一合约对比闭式解与两种树模型 (欧式口径)
func CompareModels(c OptionContract, steps int) (*ModelComparison, error) {
	european := c
	european.Exercise = ExerciseEuropean

	bs, err := PriceBlackScholes(european)
	if err != nil {
		return nil, err
	}
	bin, err := PriceBinomial(european, steps)
	if err != nil {
		return nil, err
	}
	tri, err := PriceTrinomial(european, steps)
	if err != nil {
		return nil, err
	}

	return &ModelComparison{
		BlackScholes:        bs.Price,
		Binomial:            bin.Price,
		Trinomial:           tri.Price,
		Steps:               steps,
		BinomialVsBS:        math.Abs(bin.Price - bs.Price),
		TrinomialVsBS:       math.Abs(tri.Price - bs.Price),
		BinomialVsTrinomial: math.Abs(bin.Price - tri.Price),
	}, nil
}
