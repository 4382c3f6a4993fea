package domain

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"
)

// 报价清洗的固定策略参数
const (
	moneynessRatioMin = 0.7 // 深度实值/虚值报价 vega 过低，按策略整体排除
	moneynessRatioMax = 1.3
	minMidPrice       = 0.01 // 低于 1 美分的报价视为噪声
	intrinsicBand     = 0.95 // 套利/陈旧报价容忍带：mid 低于内在价值 95% 即跳过
	ivAcceptMin       = 0.01 // 收敛解的可信区间下界
	ivAcceptMax       = 3.0  // 收敛解的可信区间上界
	minMaturityYears  = 1.0 / 365
)

// SurfaceParams 曲面构建参数
type SurfaceParams struct {
	RiskFreeRate float64    // 无风险利率
	OptionType   OptionType // 只取链中单边 (CALL 或 PUT)
	MinVolume    int64      // 成交量下限
	MaxSpreadPct float64    // 买卖价差占中间价的上限
	AsOf         time.Time  // 期限计算基准时刻，零值取当前时间
}

// SurfaceBuilder 波动率曲面构建器
// 多级过滤管道逐级收窄候选报价集，每级记录保留数量；
// 各级均为对不可变报价切片的纯变换，便于单独审计与测试
type SurfaceBuilder struct {
	solver *IVSolver
}

// NewSurfaceBuilder 创建曲面构建器
func NewSurfaceBuilder(solver *IVSolver) *SurfaceBuilder {
	if solver == nil {
		solver = NewIVSolver()
	}
	return &SurfaceBuilder{solver: solver}
}

// Build 从期权链快照构建隐含波动率曲面
// 构建级错误 (无可用报价、全部过滤、全部不收敛) 终止整次构建并携带
// 可操作的补救建议；单条报价的求解失败只跳过，绝不中断批次
func (b *SurfaceBuilder) Build(chain *OptionChain, params SurfaceParams) (*Surface, error) {
	if chain == nil || len(chain.Quotes) == 0 {
		return nil, fmt.Errorf("%w: ticker %s has no listed options", ErrNoOptionsData, tickerOf(chain))
	}
	if chain.Spot <= 0 {
		return nil, fmt.Errorf("%w: ticker %s reported non-positive spot price %v",
			ErrInvalidInput, chain.Ticker, chain.Spot)
	}
	if params.OptionType == "" {
		params.OptionType = OptionTypeCall
	}
	asOf := params.AsOf
	if asOf.IsZero() {
		asOf = time.Now()
	}
	spot := chain.Spot

	// 第一级：期权类型 + 在值区间 [0.7, 1.3]
	quotes := filterQuotes(chain.Quotes, func(q MarketQuote) bool {
		ratio := q.Strike / spot
		return q.Type == params.OptionType && ratio >= moneynessRatioMin && ratio <= moneynessRatioMax
	})
	slog.Info("moneyness filter applied", "ticker", chain.Ticker, "retained", len(quotes))

	// 第二级：双边有效报价；全军覆没时回退到 lastPrice (休市场景)
	live := filterQuotes(quotes, func(q MarketQuote) bool {
		return q.Bid > 0 && q.Ask > 0
	})
	slog.Info("bid/ask filter applied", "ticker", chain.Ticker, "retained", len(live))

	usingHistorical := false
	if len(live) == 0 {
		slog.Warn("no live two-sided quotes, falling back to last traded price",
			"ticker", chain.Ticker,
		)
		live = filterQuotes(quotes, func(q MarketQuote) bool { return q.LastPrice > 0 })
		if len(live) == 0 {
			return nil, fmt.Errorf(
				"%w: ticker %s has no quotes with valid bid/ask or last price; "+
					"the market is likely closed, retry during market hours (9:30-16:00 ET) "+
					"or use a liquid ticker such as SPY, QQQ, AAPL",
				ErrNoMarketData, chain.Ticker,
			)
		}
		usingHistorical = true
		slog.Info("using historical last prices", "ticker", chain.Ticker, "retained", len(live))
	}

	// 第三级：中间价下限
	quotes = filterQuotes(live, func(q MarketQuote) bool {
		return midPrice(q, usingHistorical) >= minMidPrice
	})
	slog.Info("mid price filter applied", "ticker", chain.Ticker, "retained", len(quotes))

	// 第四级：成交量下限
	if params.MinVolume > 0 {
		quotes = filterQuotes(quotes, func(q MarketQuote) bool {
			return q.Volume >= params.MinVolume
		})
		slog.Info("volume filter applied", "ticker", chain.Ticker, "min_volume", params.MinVolume, "retained", len(quotes))
	}

	// 第五级：价差上限；回退模式下价差无真实含义，整级跳过
	if !usingHistorical && params.MaxSpreadPct > 0 {
		quotes = filterQuotes(quotes, func(q MarketQuote) bool {
			mid := midPrice(q, false)
			return (q.Ask-q.Bid)/mid <= params.MaxSpreadPct
		})
		slog.Info("spread filter applied", "ticker", chain.Ticker, "max_spread_pct", params.MaxSpreadPct, "retained", len(quotes))
	} else if usingHistorical {
		slog.Info("skipping spread filter in historical mode", "ticker", chain.Ticker)
	}

	if len(quotes) == 0 {
		return nil, fmt.Errorf(
			"%w: every quote for %s was eliminated by filtering; "+
				"try relaxing thresholds, e.g. min_volume=0 and max_spread_pct=0.5",
			ErrNoQuotesRemaining, chain.Ticker,
		)
	}

	// 逐条求解隐含波动率
	points := make([]SurfacePoint, 0, len(quotes))
	failed, skipped := 0, 0
	for _, q := range quotes {
		mid := midPrice(q, usingHistorical)
		maturity := yearsToMaturity(q.Expiration, asOf)

		contract := OptionContract{
			S:        spot,
			K:        q.Strike,
			T:        maturity,
			R:        params.RiskFreeRate,
			Type:     params.OptionType,
			Exercise: ExerciseEuropean,
		}

		// 套利/陈旧报价容忍带
		if mid < contract.Intrinsic()*intrinsicBand {
			skipped++
			slog.Debug("skipping sub-intrinsic quote",
				"ticker", chain.Ticker, "strike", q.Strike, "mid", mid, "intrinsic", contract.Intrinsic(),
			)
			continue
		}

		result, err := b.solver.Solve(mid, contract)
		if err != nil {
			failed++
			slog.Debug("iv solve failed", "ticker", chain.Ticker, "strike", q.Strike, "error", err)
			continue
		}
		// Newton-Raphson 报告收敛也要过可信区间，区间外视为失败
		if !result.Converged || result.ImpliedVolatility < ivAcceptMin || result.ImpliedVolatility > ivAcceptMax {
			failed++
			continue
		}

		points = append(points, SurfacePoint{
			Strike:            q.Strike,
			Expiration:        q.Expiration,
			Moneyness:         math.Log(q.Strike / spot),
			TimeToMaturity:    maturity,
			ImpliedVolatility: result.ImpliedVolatility,
			MarketPrice:       mid,
			Volume:            q.Volume,
			OpenInterest:      q.OpenInterest,
			NumIterations:     result.NumIterations,
		})
	}

	slog.Info("iv extraction complete",
		"ticker", chain.Ticker,
		"succeeded", len(points),
		"failed", failed,
		"skipped", skipped,
		"total", len(quotes),
	)

	if len(points) == 0 {
		return nil, fmt.Errorf(
			"%w: processed %d quotes for %s (%d failed convergence, %d skipped as sub-intrinsic); "+
				"try a more liquid ticker, market hours, min_volume=0 or max_spread_pct=0.5",
			ErrNoConvergedIV, len(quotes), chain.Ticker, failed, skipped,
		)
	}

	return &Surface{
		Ticker:              chain.Ticker,
		Spot:                spot,
		OptionType:          params.OptionType,
		RiskFreeRate:        params.RiskFreeRate,
		DataPoints:          len(points),
		UsingHistoricalData: usingHistorical,
		Points:              points,
		Grid:                InterpolateGrid(points, spot),
		Metadata:            ComputeMetadata(points),
		BuiltAt:             asOf,
	}, nil
}

// ATMPoint 平值波动率期限结构中的单点
type ATMPoint struct {
	Expiration        time.Time `json:"expiration"`
	TimeToMaturity    float64   `json:"time_to_maturity"`
	Strike            float64   `json:"strike"`
	ImpliedVolatility float64   `json:"implied_volatility"`
}

// ATMTermStructure 提取平值波动率期限结构
// 每个到期日取行权价最接近现价的散点，按期限升序；
// 展示期限结构形态 (升水或贴水)，不重复推导 IV
func ATMTermStructure(points []SurfacePoint, spot float64) []ATMPoint {
	nearest := make(map[time.Time]SurfacePoint)
	for _, p := range points {
		best, ok := nearest[p.Expiration]
		if !ok || math.Abs(p.Strike-spot) < math.Abs(best.Strike-spot) {
			nearest[p.Expiration] = p
		}
	}

	result := make([]ATMPoint, 0, len(nearest))
	for _, p := range nearest {
		result = append(result, ATMPoint{
			Expiration:        p.Expiration,
			TimeToMaturity:    p.TimeToMaturity,
			Strike:            p.Strike,
			ImpliedVolatility: p.ImpliedVolatility,
		})
	}
	sort.Slice(result, func(a, b int) bool {
		return result[a].TimeToMaturity < result[b].TimeToMaturity
	})
	return result
}

// midPrice 中间价；回退模式下直接使用最后成交价
func midPrice(q MarketQuote, usingHistorical bool) float64 {
	if usingHistorical {
		return q.LastPrice
	}
	return (q.Bid + q.Ask) / 2
}

// yearsToMaturity 剩余期限 (年)，下限一天
func yearsToMaturity(expiration, asOf time.Time) float64 {
	days := expiration.Sub(asOf).Hours() / 24
	return math.Max(days/365, minMaturityYears)
}

func filterQuotes(quotes []MarketQuote, keep func(MarketQuote) bool) []MarketQuote {
	result := make([]MarketQuote, 0, len(quotes))
	for _, q := range quotes {
		if keep(q) {
			result = append(result, q)
		}
	}
	return result
}

func tickerOf(chain *OptionChain) string {
	if chain == nil {
		return ""
	}
	return chain.Ticker
}
