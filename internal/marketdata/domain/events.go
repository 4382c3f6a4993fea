package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	BarsIngestedEventType      = "BarsIngested"
	SnapshotRefreshedEventType = "SnapshotRefreshed"
)

// BarsIngestedEvent 日线入库完成事件
type BarsIngestedEvent struct {
	Ticker     string    `json:"ticker"`
	Bars       int       `json:"bars"`
	From       time.Time `json:"from"`
	To         time.Time `json:"to"`
	OccurredOn time.Time `json:"occurred_on"`
}

// SnapshotRefreshedEvent 快照刷新事件
type SnapshotRefreshedEvent struct {
	Ticker     string          `json:"ticker"`
	LastPrice  decimal.Decimal `json:"last_price"`
	OccurredOn time.Time       `json:"occurred_on"`
}
