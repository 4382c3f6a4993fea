package application

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/quantanalytics/internal/derivatives/domain"
)

// PriceDTO 定价结果传输对象
// 价格字段用 decimal 序列化，希腊字母保持 float64 精度口径
type PriceDTO struct {
	Price        decimal.Decimal `json:"price"`
	Delta        float64         `json:"delta"`
	Gamma        float64         `json:"gamma"`
	Theta        float64         `json:"theta"`
	Vega         float64         `json:"vega"`
	Rho          float64         `json:"rho"`
	D1           float64         `json:"d1,omitempty"`
	D2           float64         `json:"d2,omitempty"`
	Model        string          `json:"model"`
	Steps        int             `json:"steps,omitempty"`
	Exercise     string          `json:"exercise_type"`
	CalculatedAt time.Time       `json:"calculated_at"`
}

// IVDTO 隐含波动率求解结果传输对象
type IVDTO struct {
	ImpliedVolatility float64              `json:"implied_volatility"`
	Converged         bool                 `json:"converged"`
	NumIterations     int                  `json:"num_iterations"`
	FinalDifference   float64              `json:"final_difference"`
	Iterations        []domain.IVIteration `json:"iterations,omitempty"`
	Validation        *domain.IVValidation `json:"validation,omitempty"`
}

// SurfaceDTO 波动率曲面传输对象
type SurfaceDTO struct {
	Ticker              string                 `json:"ticker"`
	Spot                decimal.Decimal        `json:"current_price"`
	OptionType          string                 `json:"option_type"`
	RiskFreeRate        float64                `json:"risk_free_rate"`
	DataPoints          int                    `json:"data_points"`
	UsingHistoricalData bool                   `json:"using_historical_data"`
	Points              []domain.SurfacePoint  `json:"raw_data"`
	Grid                *domain.SurfaceGrid    `json:"surface_grid,omitempty"`
	Metadata            domain.SurfaceMetadata `json:"metadata"`
	TermStructure       []domain.ATMPoint      `json:"term_structure,omitempty"`
	BuiltAt             time.Time              `json:"built_at"`
}

func toSurfaceDTO(s *domain.Surface, includeGrid bool) *SurfaceDTO {
	dto := &SurfaceDTO{
		Ticker:              s.Ticker,
		Spot:                decimal.NewFromFloat(s.Spot),
		OptionType:          string(s.OptionType),
		RiskFreeRate:        s.RiskFreeRate,
		DataPoints:          s.DataPoints,
		UsingHistoricalData: s.UsingHistoricalData,
		Points:              s.Points,
		Metadata:            s.Metadata,
		TermStructure:       domain.ATMTermStructure(s.Points, s.Spot),
		BuiltAt:             s.BuiltAt,
	}
	if includeGrid {
		dto.Grid = s.Grid
	}
	return dto
}
