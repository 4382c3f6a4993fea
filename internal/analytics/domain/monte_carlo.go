package domain

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// MonteCarloInput 单资产蒙特卡洛模拟输入
type MonteCarloInput struct {
	S          float64 `json:"spot"`           // 当前价格
	Mu         float64 `json:"mu"`             // 预期年化收益率
	Sigma      float64 `json:"sigma"`          // 年化波动率
	T          float64 `json:"horizon"`        // 时间跨度 (年)
	Iterations int     `json:"iterations"`     // 模拟次数 (例如 10000)
	Steps      int     `json:"steps"`          // 每条路径的时间步数 (例如 252)
	Seed       uint64  `json:"seed,omitempty"` // 0 时使用时间种子
}

// ScenarioStats 模拟终值的情景统计
type ScenarioStats struct {
	ExpectedPrice     decimal.Decimal `json:"expected_price"`
	MedianPrice       decimal.Decimal `json:"median_price"`
	BestCase          decimal.Decimal `json:"best_case"`
	WorstCase         decimal.Decimal `json:"worst_case"`
	ProbabilityOfLoss float64         `json:"probability_of_loss"` // 终值低于初值的比例 (%)
}

// MonteCarloResult 单资产 VaR/ES 模拟结果
type MonteCarloResult struct {
	VaR95    decimal.Decimal `json:"var_95"`
	VaR99    decimal.Decimal `json:"var_99"`
	ES95     decimal.Decimal `json:"es_95"`
	ES99     decimal.Decimal `json:"es_99"`
	Scenario ScenarioStats   `json:"scenario"`
}

// SimulateVaR 用几何布朗运动路径模拟单资产的 VaR 与 ES
// S(t+dt) = S(t) * exp((mu - 0.5*sigma^2)*dt + sigma*sqrt(dt)*Z)
func SimulateVaR(input MonteCarloInput) (*MonteCarloResult, error) {
	if input.S <= 0 || input.Sigma < 0 || input.T <= 0 {
		return nil, fmt.Errorf("%w: spot/sigma/horizon must be positive", ErrInsufficientData)
	}
	if input.Iterations < 100 || input.Steps <= 0 {
		return nil, fmt.Errorf("%w: need at least 100 iterations and a positive step count", ErrInsufficientData)
	}

	r := newRand(input.Seed)
	dt := input.T / float64(input.Steps)
	drift := (input.Mu - 0.5*input.Sigma*input.Sigma) * dt
	diffusion := input.Sigma * math.Sqrt(dt)

	finalPrices := make([]float64, input.Iterations)
	pnl := make([]float64, input.Iterations)
	losses := 0
	for i := range finalPrices {
		price := input.S
		for j := 0; j < input.Steps; j++ {
			price *= math.Exp(drift + diffusion*r.NormFloat64())
		}
		finalPrices[i] = price
		pnl[i] = price - input.S
		if price < input.S {
			losses++
		}
	}

	slices.Sort(pnl)
	slices.Sort(finalPrices)

	// 分位数下标：损失分布的左尾
	idx95 := int(float64(input.Iterations) * 0.05)
	idx99 := int(float64(input.Iterations) * 0.01)

	return &MonteCarloResult{
		VaR95: decimal.NewFromFloat(-pnl[idx95]),
		VaR99: decimal.NewFromFloat(-pnl[idx99]),
		ES95:  decimal.NewFromFloat(-tailMean(pnl, idx95)),
		ES99:  decimal.NewFromFloat(-tailMean(pnl, idx99)),
		Scenario: ScenarioStats{
			ExpectedPrice:     decimal.NewFromFloat(stat.Mean(finalPrices, nil)),
			MedianPrice:       decimal.NewFromFloat(finalPrices[len(finalPrices)/2]),
			BestCase:          decimal.NewFromFloat(finalPrices[len(finalPrices)-1]),
			WorstCase:         decimal.NewFromFloat(finalPrices[0]),
			ProbabilityOfLoss: float64(losses) / float64(input.Iterations) * 100,
		},
	}, nil
}

// PortfolioAsset 组合中的单项资产
type PortfolioAsset struct {
	Symbol         string          `json:"symbol"`
	Position       decimal.Decimal `json:"position"`        // 持仓数量 (+为多, -为空)
	CurrentPrice   decimal.Decimal `json:"current_price"`   // 当前单价
	Volatility     float64         `json:"volatility"`      // 年化波动率 (sigma)
	ExpectedReturn float64         `json:"expected_return"` // 预期年化收益率 (mu)
}

// PortfolioRiskInput 多资产组合风险计算输入
type PortfolioRiskInput struct {
	Assets            []PortfolioAsset `json:"assets"`
	CorrelationMatrix [][]float64      `json:"correlation_matrix"`
	TimeHorizon       float64          `json:"time_horizon"`     // 时间跨度 (年), 1 日取 1/252
	Simulations       int              `json:"simulations"`      // 模拟次数
	ConfidenceLevel   float64          `json:"confidence_level"` // 例如 0.95 或 0.99
	Seed              uint64           `json:"seed,omitempty"`
}

// PortfolioRiskResult 多资产组合风险计算结果
type PortfolioRiskResult struct {
	TotalValue      decimal.Decimal            `json:"total_value"`
	VaR             decimal.Decimal            `json:"var"`
	ES              decimal.Decimal            `json:"es"`
	ComponentVaR    map[string]decimal.Decimal `json:"component_var"`   // Euler 分解，各项之和等于组合 VaR
	Diversification decimal.Decimal            `json:"diversification"` // 各资产独立 VaR 之和与组合 VaR 的差
}

// CalculatePortfolioRisk 执行多资产关联蒙特卡洛模拟
// 协方差 Cov(i,j) = Rho(i,j) * Sigma(i) * Sigma(j) * T，经 Cholesky 分解
// 后用 L*z 生成关联正态随机数，再按 GBM 终值公式估计组合损益分布
func CalculatePortfolioRisk(input PortfolioRiskInput) (*PortfolioRiskResult, error) {
	nAssets := len(input.Assets)
	if nAssets == 0 {
		return nil, fmt.Errorf("%w: no assets in portfolio", ErrInsufficientData)
	}
	if len(input.CorrelationMatrix) != nAssets {
		return nil, fmt.Errorf("%w: correlation matrix is %dx, want %dx%d",
			ErrSeriesMismatch, len(input.CorrelationMatrix), nAssets, nAssets)
	}
	for i, row := range input.CorrelationMatrix {
		if len(row) != nAssets {
			return nil, fmt.Errorf("%w: correlation matrix row %d has %d entries, want %d",
				ErrSeriesMismatch, i, len(row), nAssets)
		}
	}
	if input.TimeHorizon <= 0 || input.Simulations < 100 {
		return nil, fmt.Errorf("%w: horizon must be positive and simulations at least 100", ErrInsufficientData)
	}
	if input.ConfidenceLevel <= 0 || input.ConfidenceLevel >= 1 {
		return nil, fmt.Errorf("%w: confidence level must be in (0,1)", ErrInsufficientData)
	}

	// 协方差已含时间因子 T，分解出的 L 自带 sqrt(T) 尺度
	cov := mat.NewSymDense(nAssets, nil)
	for i := 0; i < nAssets; i++ {
		for j := i; j < nAssets; j++ {
			covValue := input.CorrelationMatrix[i][j] *
				input.Assets[i].Volatility * input.Assets[j].Volatility * input.TimeHorizon
			cov.SetSym(i, j, covValue)
		}
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(cov); !ok {
		return nil, fmt.Errorf("cholesky decomposition failed: covariance matrix is not positive definite")
	}
	var l mat.TriDense
	chol.LTo(&l)

	var initialTotalValue decimal.Decimal
	assetValues := make([]float64, nAssets)
	drifts := make([]float64, nAssets)
	for i, asset := range input.Assets {
		val := asset.Position.Mul(asset.CurrentPrice)
		initialTotalValue = initialTotalValue.Add(val)
		assetValues[i] = val.InexactFloat64()
		sigma := asset.Volatility
		drifts[i] = (asset.ExpectedReturn - 0.5*sigma*sigma) * input.TimeHorizon
	}

	r := newRand(input.Seed)
	portfolioPnLs := make([]float64, input.Simulations)
	assetPnLs := make([][]float64, nAssets)
	for i := range assetPnLs {
		assetPnLs[i] = make([]float64, input.Simulations)
	}

	z := mat.NewVecDense(nAssets, nil)
	x := mat.NewVecDense(nAssets, nil)
	for s := 0; s < input.Simulations; s++ {
		for i := 0; i < nAssets; i++ {
			z.SetVec(i, r.NormFloat64())
		}
		x.MulVec(&l, z)

		var simPnL float64
		for i := 0; i < nAssets; i++ {
			pnl := assetValues[i]*math.Exp(drifts[i]+x.AtVec(i)) - assetValues[i]
			assetPnLs[i][s] = pnl
			simPnL += pnl
		}
		portfolioPnLs[s] = simPnL
	}

	sorted := slices.Clone(portfolioPnLs)
	slices.Sort(sorted)
	idx := varIndex(input.Simulations, input.ConfidenceLevel)
	varValue := math.Max(0, -sorted[idx])
	esValue := math.Max(0, -tailMean(sorted, idx+1))

	// Euler 分解: Component_i = VaR * Cov(pnl_i, pnl_p) / Var(pnl_p)
	componentVaR := make(map[string]decimal.Decimal, nAssets)
	portfolioVariance := stat.Variance(portfolioPnLs, nil)
	for i, asset := range input.Assets {
		share := 0.0
		if portfolioVariance > 0 {
			share = stat.Covariance(assetPnLs[i], portfolioPnLs, nil) / portfolioVariance
		}
		componentVaR[asset.Symbol] = decimal.NewFromFloat(varValue * share)
	}

	// 未分散 VaR：各资产独立分位数损失之和
	var undiversified float64
	for i := range assetPnLs {
		standalone := slices.Clone(assetPnLs[i])
		slices.Sort(standalone)
		undiversified += math.Max(0, -standalone[idx])
	}

	return &PortfolioRiskResult{
		TotalValue:      initialTotalValue,
		VaR:             decimal.NewFromFloat(varValue),
		ES:              decimal.NewFromFloat(esValue),
		ComponentVaR:    componentVaR,
		Diversification: decimal.NewFromFloat(math.Max(0, undiversified-varValue)),
	}, nil
}

// varIndex 左尾分位数下标，限制在有效范围内
func varIndex(simulations int, confidence float64) int {
	idx := int(math.Floor(float64(simulations) * (1 - confidence)))
	if idx < 0 {
		idx = 0
	}
	if idx >= simulations {
		idx = simulations - 1
	}
	return idx
}

// tailMean 已排序损益序列前 n 个观测的均值
func tailMean(sorted []float64, n int) float64 {
	if n <= 0 {
		n = 1
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += sorted[i]
	}
	return sum / float64(n)
}

func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, 0))
}
