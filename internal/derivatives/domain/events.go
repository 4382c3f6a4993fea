package domain

import (
	"context"
	"time"
)

const (
	OptionPricedEventType = "OptionPriced"
	SurfaceBuiltEventType = "SurfaceBuilt"
)

// OptionPricedEvent 期权定价完成事件
type OptionPricedEvent struct {
	Ticker       string     `json:"ticker"`
	OptionType   OptionType `json:"option_type"`
	Strike       float64    `json:"strike"`
	Maturity     float64    `json:"maturity"`
	Price        float64    `json:"price"`
	Model        string     `json:"model"`
	Volatility   float64    `json:"volatility"`
	RiskFreeRate float64    `json:"risk_free_rate"`
	OccurredOn   time.Time  `json:"occurred_on"`
}

// SurfaceBuiltEvent 波动率曲面构建完成事件
type SurfaceBuiltEvent struct {
	Ticker              string     `json:"ticker"`
	OptionType          OptionType `json:"option_type"`
	Spot                float64    `json:"spot"`
	DataPoints          int        `json:"data_points"`
	UsingHistoricalData bool       `json:"using_historical_data"`
	AvgIV               float64    `json:"avg_iv"`
	OccurredOn          time.Time  `json:"occurred_on"`
}

// EventPublisher 事件发布者接口
type EventPublisher interface {
	PublishOptionPriced(ctx context.Context, event OptionPricedEvent) error
	PublishSurfaceBuilt(ctx context.Context, event SurfaceBuiltEvent) error
}
