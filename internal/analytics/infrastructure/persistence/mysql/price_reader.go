package mysql

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/wyfcoding/quantanalytics/internal/analytics/domain"
)

// priceBarRow 行情服务落库的日线表的只读投影，分析侧只关心收盘价
type priceBarRow struct {
	Ticker  string          `gorm:"column:ticker"`
	BarDate time.Time       `gorm:"column:bar_date"`
	Close   decimal.Decimal `gorm:"column:close;type:decimal(32,18)"`
}

func (priceBarRow) TableName() string {
	return "price_bars"
}

type priceReader struct {
	db *gorm.DB
}

// NewPriceReader 基于行情日线表创建历史价格读取器
func NewPriceReader(db *gorm.DB) domain.PriceHistoryProvider {
	return &priceReader{db: db}
}

// ClosingPrices 返回最近 days 个交易日的收盘价，按日期升序
func (r *priceReader) ClosingPrices(ctx context.Context, ticker string, days int) ([]float64, error) {
	var rows []priceBarRow
	err := r.db.WithContext(ctx).
		Select("ticker", "bar_date", "close").
		Where("ticker = ?", ticker).
		Order("bar_date desc").
		Limit(days).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query price bars for %s: %w", ticker, err)
	}

	// 查询按日期倒序取最近 N 条，翻转回升序
	prices := make([]float64, len(rows))
	for i, row := range rows {
		prices[len(rows)-1-i] = row.Close.InexactFloat64()
	}
	return prices, nil
}
