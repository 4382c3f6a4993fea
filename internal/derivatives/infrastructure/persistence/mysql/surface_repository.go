package mysql

import (
	"context"

	"github.com/wyfcoding/quantanalytics/internal/derivatives/domain"
	"gorm.io/gorm"
)

type surfaceRepository struct {
	db *gorm.DB
}

// NewSurfaceRepository 创建曲面快照仓储
func NewSurfaceRepository(db *gorm.DB) domain.SurfaceRepository {
	return &surfaceRepository{db: db}
}

func (r *surfaceRepository) SaveSnapshot(ctx context.Context, surface *domain.Surface) error {
	var model SurfaceSnapshotModel
	if err := model.FromDomain(surface); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *surfaceRepository) ListSnapshots(ctx context.Context, ticker string, limit int) ([]domain.SurfaceSnapshotSummary, error) {
	var models []SurfaceSnapshotModel
	err := r.db.WithContext(ctx).
		Select("ticker", "option_type", "spot", "risk_free_rate", "data_points",
			"using_historical_data", "avg_iv", "built_at").
		Where("ticker = ?", ticker).
		Order("built_at desc").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	summaries := make([]domain.SurfaceSnapshotSummary, len(models))
	for i, m := range models {
		summaries[i] = m.ToSummary()
	}
	return summaries, nil
}
