package mysql

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wyfcoding/quantanalytics/internal/marketdata/domain"
)

type barRepository struct {
	db *gorm.DB
}

// NewBarRepository 创建日线仓储
func NewBarRepository(db *gorm.DB) domain.BarRepository {
	return &barRepository{db: db}
}

// SaveBars 批量写入日线，(ticker, bar_date) 冲突时覆盖
func (r *barRepository) SaveBars(ctx context.Context, bars []domain.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}
	models := make([]PriceBarModel, len(bars))
	for i, bar := range bars {
		models[i].FromDomain(bar)
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ticker"}, {Name: "bar_date"}},
		DoUpdates: clause.AssignmentColumns([]string{"open", "high", "low", "close", "volume", "updated_at"}),
	}).Create(&models).Error
	if err != nil {
		return fmt.Errorf("save %d price bars for %s: %w", len(bars), bars[0].Ticker, err)
	}
	return nil
}

// ListBars 返回最近 days 个交易日的日线，按日期升序
func (r *barRepository) ListBars(ctx context.Context, ticker string, days int) ([]domain.PriceBar, error) {
	var models []PriceBarModel
	err := r.db.WithContext(ctx).
		Where("ticker = ?", ticker).
		Order("bar_date desc").
		Limit(days).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("list price bars for %s: %w", ticker, err)
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("%w: ticker %s, ingest it first", domain.ErrNoBars, ticker)
	}

	bars := make([]domain.PriceBar, len(models))
	for i, m := range models {
		bars[len(models)-1-i] = m.ToDomain()
	}
	return bars, nil
}
