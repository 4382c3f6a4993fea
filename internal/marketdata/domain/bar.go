// Package domain 包含行情服务的领域模型：日线、快照与期权链
package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidBar 日线字段非法 (标的为空、价格非正、高低价倒挂)
	ErrInvalidBar = errors.New("invalid price bar")
	// ErrTickerNotFound 上游没有该标的的行情
	ErrTickerNotFound = errors.New("ticker not found")
	// ErrNoBars 存储中没有满足条件的日线
	ErrNoBars = errors.New("no price bars available")
)

// PriceBar 单一标的的一根日线
type PriceBar struct {
	Ticker  string          `json:"ticker"`
	BarDate time.Time       `json:"bar_date"`
	Open    decimal.Decimal `json:"open"`
	High    decimal.Decimal `json:"high"`
	Low     decimal.Decimal `json:"low"`
	Close   decimal.Decimal `json:"close"`
	Volume  decimal.Decimal `json:"volume"`
}

// NewPriceBar 构造并校验一根日线
func NewPriceBar(ticker string, barDate time.Time, open, high, low, closePrice, volume decimal.Decimal) (*PriceBar, error) {
	bar := &PriceBar{
		Ticker:  ticker,
		BarDate: barDate.Truncate(24 * time.Hour),
		Open:    open,
		High:    high,
		Low:     low,
		Close:   closePrice,
		Volume:  volume,
	}
	if err := bar.Validate(); err != nil {
		return nil, err
	}
	return bar, nil
}

// Validate 校验日线自洽性
func (b *PriceBar) Validate() error {
	if b.Ticker == "" {
		return fmt.Errorf("%w: ticker is empty", ErrInvalidBar)
	}
	if b.BarDate.IsZero() {
		return fmt.Errorf("%w: bar date is zero", ErrInvalidBar)
	}
	if !b.Open.IsPositive() || !b.High.IsPositive() || !b.Low.IsPositive() || !b.Close.IsPositive() {
		return fmt.Errorf("%w: prices must be positive", ErrInvalidBar)
	}
	if b.High.LessThan(b.Low) {
		return fmt.Errorf("%w: high %s below low %s", ErrInvalidBar, b.High, b.Low)
	}
	if b.High.LessThan(b.Open) || b.High.LessThan(b.Close) ||
		b.Low.GreaterThan(b.Open) || b.Low.GreaterThan(b.Close) {
		return fmt.Errorf("%w: open/close outside high-low range", ErrInvalidBar)
	}
	if b.Volume.IsNegative() {
		return fmt.Errorf("%w: volume is negative", ErrInvalidBar)
	}
	return nil
}

// TickerSnapshot 单一标的的最新行情快照
type TickerSnapshot struct {
	Ticker    string          `json:"ticker"`
	LastPrice decimal.Decimal `json:"last_price"`
	Bid       decimal.Decimal `json:"bid"`
	Ask       decimal.Decimal `json:"ask"`
	Volume    decimal.Decimal `json:"volume"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Mid 买卖中间价，单边缺失时退回最新成交价
func (s *TickerSnapshot) Mid() decimal.Decimal {
	if s.Bid.IsPositive() && s.Ask.IsPositive() {
		return s.Bid.Add(s.Ask).Div(decimal.NewFromInt(2))
	}
	return s.LastPrice
}
