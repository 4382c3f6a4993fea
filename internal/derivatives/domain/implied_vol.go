package domain

import (
	"fmt"
	"log/slog"
	"math"
)

// Newton-Raphson 求解器的默认参数
const (
	DefaultSigmaInit = 0.3
	DefaultTolerance = 1e-4
	DefaultMaxIter   = 100

	minVega  = 1e-10 // vega 低于该阈值时迭代无法继续
	sigmaMin = 0.01  // 迭代过冲时的波动率下界
	sigmaMax = 5.0   // 迭代过冲时的波动率上界
)

// IVIteration 单步迭代诊断记录，按序追加，求解结束后随结果一并返回
type IVIteration struct {
	Iteration     int     `json:"iteration"`
	Sigma         float64 `json:"sigma"`
	Price         float64 `json:"price"`
	Difference    float64 `json:"difference"`
	AbsDifference float64 `json:"abs_diff"`
}

// IVResult 隐含波动率求解结果
// Converged=false 表示迭代耗尽仍未收敛，属于正常的"无解"结果而非错误
type IVResult struct {
	ImpliedVolatility float64       `json:"implied_volatility"`
	Converged         bool          `json:"converged"`
	FinalDifference   float64       `json:"final_difference"`
	NumIterations     int           `json:"num_iterations"`
	Iterations        []IVIteration `json:"iterations"`
}

// IVSolver Newton-Raphson 隐含波动率求解器
// f(sigma) = BS_price(sigma) - market_price，以 vega 为导数
type IVSolver struct {
	SigmaInit float64 // 初始波动率猜测
	Tol       float64 // 收敛容差
	MaxIter   int     // 最大迭代次数
}

// NewIVSolver 创建使用默认参数的求解器
func NewIVSolver() *IVSolver {
	return &IVSolver{
		SigmaInit: DefaultSigmaInit,
		Tol:       DefaultTolerance,
		MaxIter:   DefaultMaxIter,
	}
}

// Solve 对单一市场价格求解隐含波动率
// 合约中的 Sigma 字段被忽略，其余字段参与校验；
// 市场价低于内在价值时直接失败：BS 价格随 sigma 单调递增且下确界为内在价值，
// 不存在能解释低于内在价值报价的正波动率
func (s *IVSolver) Solve(marketPrice float64, c OptionContract) (*IVResult, error) {
	if marketPrice <= 0 {
		return nil, fmt.Errorf("%w: market price must be positive, got %v", ErrInvalidInput, marketPrice)
	}
	if c.T <= 0 {
		return nil, fmt.Errorf("%w: time to maturity must be positive, got %v", ErrInvalidInput, c.T)
	}
	if c.S <= 0 || c.K <= 0 {
		return nil, fmt.Errorf("%w: spot and strike must be positive, got S=%v K=%v", ErrInvalidInput, c.S, c.K)
	}
	if intrinsic := c.Intrinsic(); marketPrice < intrinsic {
		return nil, fmt.Errorf("%w: market price %v below intrinsic value %v", ErrInvalidInput, marketPrice, intrinsic)
	}

	sigma := s.SigmaInit
	iterations := make([]IVIteration, 0, s.MaxIter)

	var diff float64
	for i := 0; i < s.MaxIter; i++ {
		price := blackScholesPrice(c, sigma)
		diff = price - marketPrice

		iterations = append(iterations, IVIteration{
			Iteration:     i + 1,
			Sigma:         sigma,
			Price:         price,
			Difference:    diff,
			AbsDifference: math.Abs(diff),
		})

		// 收敛即返回当前 sigma，不再多走一步 Newton 更新
		if math.Abs(diff) < s.Tol {
			return &IVResult{
				ImpliedVolatility: sigma,
				Converged:         true,
				FinalDifference:   diff,
				NumIterations:     i + 1,
				Iterations:        iterations,
			}, nil
		}

		vega := blackScholesVega(c, sigma)
		if math.Abs(vega) < minVega {
			return nil, fmt.Errorf("%w: vega=%v at sigma=%v (deep ITM/OTM option)", ErrVegaTooSmall, vega, sigma)
		}

		// Newton-Raphson 更新并夹在物理上合理的波动率区间内
		sigma -= diff / vega
		if sigma <= 0 {
			sigma = sigmaMin
		}
		if sigma > sigmaMax {
			sigma = sigmaMax
		}
	}

	// 迭代耗尽：返回最后的 sigma 与完整迭代历史，由调用方过滤
	return &IVResult{
		ImpliedVolatility: sigma,
		Converged:         false,
		FinalDifference:   diff,
		NumIterations:     s.MaxIter,
		Iterations:        iterations,
	}, nil
}

// QuoteInput 批量求解的单条报价输入
type QuoteInput struct {
	Strike   float64
	Price    float64
	Maturity float64
	Type     OptionType
}

// SolveSurfacePoints 对一组报价逐条求解隐含波动率
// 单条报价失败只记录并跳过，绝不中断整个批次；仅保留收敛结果
func (s *IVSolver) SolveSurfacePoints(quotes []QuoteInput, spot, riskFreeRate float64) []SurfacePoint {
	points := make([]SurfacePoint, 0, len(quotes))

	for _, q := range quotes {
		if q.Price <= 0 || q.Maturity <= 0 || q.Strike <= 0 {
			continue
		}

		contract := OptionContract{
			S:        spot,
			K:        q.Strike,
			T:        q.Maturity,
			R:        riskFreeRate,
			Type:     q.Type,
			Exercise: ExerciseEuropean,
		}
		result, err := s.Solve(q.Price, contract)
		if err != nil {
			slog.Debug("implied volatility solve failed",
				"strike", q.Strike,
				"maturity", q.Maturity,
				"error", err,
			)
			continue
		}
		if !result.Converged {
			continue
		}

		points = append(points, SurfacePoint{
			Strike:            q.Strike,
			Moneyness:         math.Log(q.Strike / spot),
			TimeToMaturity:    q.Maturity,
			ImpliedVolatility: result.ImpliedVolatility,
			MarketPrice:       q.Price,
			NumIterations:     result.NumIterations,
		})
	}
	return points
}

// IVValidation 求解结果的重定价自检
type IVValidation struct {
	RecalculatedPrice  float64 `json:"recalculated_price"`
	MarketPrice        float64 `json:"market_price"`
	AbsoluteDifference float64 `json:"absolute_difference"`
	PercentageError    float64 `json:"percentage_error"`
	IsValid            bool    `json:"is_valid"`
}

// Validate 用解出的波动率重新定价并与市场价比对
// 仅作自检，不反馈修正求解行为；误差小于 0.1% 视为有效
func (s *IVSolver) Validate(impliedVol, marketPrice float64, c OptionContract) *IVValidation {
	price := blackScholesPrice(c, impliedVol)
	diff := math.Abs(price - marketPrice)

	var pctErr float64
	if marketPrice > 0 {
		pctErr = diff / marketPrice * 100
	}

	return &IVValidation{
		RecalculatedPrice:  price,
		MarketPrice:        marketPrice,
		AbsoluteDifference: diff,
		PercentageError:    pctErr,
		IsValid:            pctErr < 0.1,
	}
}
