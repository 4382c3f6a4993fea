package domain

import (
	"encoding/json"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/interp"
)

// 插值网格尺寸：30 个行权价 x 20 个期限
const (
	gridStrikes    = 30
	gridMaturities = 20
)

// SurfacePoint 一次成功的隐含波动率提取结果
// 同一 (标的, 快照) 下的全部 SurfacePoint 构成散点，再插值为 SurfaceGrid
type SurfacePoint struct {
	Strike            float64   `json:"strike"`
	Expiration        time.Time `json:"expiration"`
	Moneyness         float64   `json:"moneyness"`
	TimeToMaturity    float64   `json:"time_to_maturity"`
	ImpliedVolatility float64   `json:"implied_volatility"`
	MarketPrice       float64   `json:"market_price"`
	Volume            int64     `json:"volume"`
	OpenInterest      int64     `json:"open_interest"`
	NumIterations     int       `json:"num_iterations"`
}

// SurfaceGrid 规则网格上的波动率曲面
// 每次构建整体重建的只读派生产物；覆盖范围之外的格点为 NaN，不做外推。
// IVs[i][j] 对应 (Maturities[i], Strikes[j])
type SurfaceGrid struct {
	Strikes    []float64   `json:"strikes"`
	Maturities []float64   `json:"maturities"`
	Moneyness  []float64   `json:"moneyness"`
	IVs        [][]float64 `json:"implied_volatilities"`
}

// surfaceGridJSON NaN 不是合法 JSON 数值，序列化时映射为 null
type surfaceGridJSON struct {
	Strikes    []float64    `json:"strikes"`
	Maturities []float64    `json:"maturities"`
	Moneyness  []float64    `json:"moneyness"`
	IVs        [][]*float64 `json:"implied_volatilities"`
}

func (g SurfaceGrid) MarshalJSON() ([]byte, error) {
	out := surfaceGridJSON{
		Strikes:    g.Strikes,
		Maturities: g.Maturities,
		Moneyness:  g.Moneyness,
		IVs:        make([][]*float64, len(g.IVs)),
	}
	for i, row := range g.IVs {
		out.IVs[i] = make([]*float64, len(row))
		for j := range row {
			if !math.IsNaN(row[j]) {
				v := row[j]
				out.IVs[i][j] = &v
			}
		}
	}
	return json.Marshal(out)
}

func (g *SurfaceGrid) UnmarshalJSON(data []byte) error {
	var in surfaceGridJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	g.Strikes = in.Strikes
	g.Maturities = in.Maturities
	g.Moneyness = in.Moneyness
	g.IVs = make([][]float64, len(in.IVs))
	for i, row := range in.IVs {
		g.IVs[i] = make([]float64, len(row))
		for j, v := range row {
			if v == nil {
				g.IVs[i][j] = math.NaN()
			} else {
				g.IVs[i][j] = *v
			}
		}
	}
	return nil
}

// SurfaceMetadata 曲面散点的统计摘要
type SurfaceMetadata struct {
	MinStrike   float64 `json:"min_strike"`
	MaxStrike   float64 `json:"max_strike"`
	MinMaturity float64 `json:"min_maturity"`
	MaxMaturity float64 `json:"max_maturity"`
	MinIV       float64 `json:"min_iv"`
	MaxIV       float64 `json:"max_iv"`
	AvgIV       float64 `json:"avg_iv"`
}

// Surface 一次曲面构建的完整结果
type Surface struct {
	Ticker              string          `json:"ticker"`
	Spot                float64         `json:"current_price"`
	OptionType          OptionType      `json:"option_type"`
	RiskFreeRate        float64         `json:"risk_free_rate"`
	DataPoints          int             `json:"data_points"`
	UsingHistoricalData bool            `json:"using_historical_data"`
	Points              []SurfacePoint  `json:"raw_data"`
	Grid                *SurfaceGrid    `json:"surface_grid"`
	Metadata            SurfaceMetadata `json:"metadata"`
	BuiltAt             time.Time       `json:"built_at"`
}

// InterpolateGrid 将散点 (strike, maturity) -> IV 插值到规则网格
// 行情天然按到期日分层：先在每个到期日内沿行权价做三次样条，
// 再沿期限方向对每个网格行权价做三次样条；两次覆盖范围之外的格点保持 NaN。
// 插值曲面仅用于展示，只有散点本身有报价背书
func InterpolateGrid(points []SurfacePoint, spot float64) *SurfaceGrid {
	if len(points) == 0 {
		return nil
	}

	minStrike, maxStrike := points[0].Strike, points[0].Strike
	minT, maxT := points[0].TimeToMaturity, points[0].TimeToMaturity
	for _, p := range points[1:] {
		minStrike = math.Min(minStrike, p.Strike)
		maxStrike = math.Max(maxStrike, p.Strike)
		minT = math.Min(minT, p.TimeToMaturity)
		maxT = math.Max(maxT, p.TimeToMaturity)
	}

	strikes := linspace(minStrike, maxStrike, gridStrikes)
	maturities := linspace(minT, maxT, gridMaturities)

	moneyness := make([]float64, len(strikes))
	for j, k := range strikes {
		moneyness[j] = math.Log(k / spot)
	}

	// 按期限分组，组内按行权价插值到网格行权价
	groups := groupByMaturity(points)
	groupTs := make([]float64, 0, len(groups))
	for t := range groups {
		groupTs = append(groupTs, t)
	}
	sort.Float64s(groupTs)

	// ivByGroup[g][j]：第 g 个到期日在网格行权价 j 处的 IV
	ivByGroup := make([][]float64, len(groupTs))
	for g, t := range groupTs {
		ivByGroup[g] = interpolateRow(groups[t], strikes)
	}

	// 沿期限方向插值到网格期限
	ivs := make([][]float64, len(maturities))
	for i := range ivs {
		ivs[i] = make([]float64, len(strikes))
		for j := range ivs[i] {
			ivs[i][j] = math.NaN()
		}
	}
	for j := range strikes {
		xs := make([]float64, 0, len(groupTs))
		ys := make([]float64, 0, len(groupTs))
		for g, t := range groupTs {
			if !math.IsNaN(ivByGroup[g][j]) {
				xs = append(xs, t)
				ys = append(ys, ivByGroup[g][j])
			}
		}
		if len(xs) < 2 {
			continue
		}

		var spline interp.NaturalCubic
		if err := spline.Fit(xs, ys); err != nil {
			continue
		}
		for i, t := range maturities {
			if t >= xs[0] && t <= xs[len(xs)-1] {
				ivs[i][j] = spline.Predict(t)
			}
		}
	}

	return &SurfaceGrid{
		Strikes:    strikes,
		Maturities: maturities,
		Moneyness:  moneyness,
		IVs:        ivs,
	}
}

// interpolateRow 单一到期日内沿行权价的样条插值；组内覆盖之外返回 NaN
func interpolateRow(group []SurfacePoint, strikes []float64) []float64 {
	row := make([]float64, len(strikes))
	for j := range row {
		row[j] = math.NaN()
	}

	// 升序去重：同一行权价多条报价取 IV 均值
	sort.Slice(group, func(a, b int) bool { return group[a].Strike < group[b].Strike })
	xs := make([]float64, 0, len(group))
	ys := make([]float64, 0, len(group))
	for _, p := range group {
		if n := len(xs); n > 0 && p.Strike == xs[n-1] {
			ys[n-1] = (ys[n-1] + p.ImpliedVolatility) / 2
			continue
		}
		xs = append(xs, p.Strike)
		ys = append(ys, p.ImpliedVolatility)
	}
	if len(xs) < 2 {
		return row
	}

	var spline interp.NaturalCubic
	if err := spline.Fit(xs, ys); err != nil {
		return row
	}
	for j, k := range strikes {
		if k >= xs[0] && k <= xs[len(xs)-1] {
			row[j] = spline.Predict(k)
		}
	}
	return row
}

func groupByMaturity(points []SurfacePoint) map[float64][]SurfacePoint {
	groups := make(map[float64][]SurfacePoint)
	for _, p := range points {
		groups[p.TimeToMaturity] = append(groups[p.TimeToMaturity], p)
	}
	return groups
}

func linspace(min, max float64, n int) []float64 {
	result := make([]float64, n)
	if n == 1 || min == max {
		for i := range result {
			result[i] = min
		}
		return result
	}
	step := (max - min) / float64(n-1)
	for i := range result {
		result[i] = min + float64(i)*step
	}
	// 端点取精确值，避免浮点累积误差把边界格点挤出覆盖范围
	result[n-1] = max
	return result
}

// ComputeMetadata 汇总散点的取值范围与均值
func ComputeMetadata(points []SurfacePoint) SurfaceMetadata {
	if len(points) == 0 {
		return SurfaceMetadata{}
	}

	meta := SurfaceMetadata{
		MinStrike:   points[0].Strike,
		MaxStrike:   points[0].Strike,
		MinMaturity: points[0].TimeToMaturity,
		MaxMaturity: points[0].TimeToMaturity,
		MinIV:       points[0].ImpliedVolatility,
		MaxIV:       points[0].ImpliedVolatility,
	}
	var sum float64
	for _, p := range points {
		meta.MinStrike = math.Min(meta.MinStrike, p.Strike)
		meta.MaxStrike = math.Max(meta.MaxStrike, p.Strike)
		meta.MinMaturity = math.Min(meta.MinMaturity, p.TimeToMaturity)
		meta.MaxMaturity = math.Max(meta.MaxMaturity, p.TimeToMaturity)
		meta.MinIV = math.Min(meta.MinIV, p.ImpliedVolatility)
		meta.MaxIV = math.Max(meta.MaxIV, p.ImpliedVolatility)
		sum += p.ImpliedVolatility
	}
	meta.AvgIV = sum / float64(len(points))
	return meta
}
