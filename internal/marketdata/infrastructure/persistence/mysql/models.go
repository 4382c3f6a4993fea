package mysql

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/quantanalytics/internal/marketdata/domain"
)

// PriceBarModel MySQL 日线表映射
// (ticker, bar_date) 唯一，重复摄取按最新数据覆盖
type PriceBarModel struct {
	ID        uint            `gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time       `gorm:"column:created_at"`
	UpdatedAt time.Time       `gorm:"column:updated_at"`
	Ticker    string          `gorm:"column:ticker;type:varchar(16);uniqueIndex:uk_ticker_date;not null"`
	BarDate   time.Time       `gorm:"column:bar_date;uniqueIndex:uk_ticker_date;index;not null"`
	Open      decimal.Decimal `gorm:"column:open;type:decimal(32,18);not null"`
	High      decimal.Decimal `gorm:"column:high;type:decimal(32,18);not null"`
	Low       decimal.Decimal `gorm:"column:low;type:decimal(32,18);not null"`
	Close     decimal.Decimal `gorm:"column:close;type:decimal(32,18);not null"`
	Volume    decimal.Decimal `gorm:"column:volume;type:decimal(32,18);not null"`
}

func (PriceBarModel) TableName() string { return "price_bars" }

// FromDomain 从领域对象填充
func (m *PriceBarModel) FromDomain(bar domain.PriceBar) {
	m.Ticker = bar.Ticker
	m.BarDate = bar.BarDate
	m.Open = bar.Open
	m.High = bar.High
	m.Low = bar.Low
	m.Close = bar.Close
	m.Volume = bar.Volume
}

// ToDomain 转换为领域对象
func (m *PriceBarModel) ToDomain() domain.PriceBar {
	return domain.PriceBar{
		Ticker:  m.Ticker,
		BarDate: m.BarDate,
		Open:    m.Open,
		High:    m.High,
		Low:     m.Low,
		Close:   m.Close,
		Volume:  m.Volume,
	}
}
