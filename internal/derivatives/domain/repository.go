package domain

import (
	"context"
	"time"
)

// SurfaceRepository 波动率曲面快照仓储接口
type SurfaceRepository interface {
	// SaveSnapshot 持久化一次构建的全部散点及元数据
	SaveSnapshot(ctx context.Context, surface *Surface) error
	// ListSnapshots 按标的倒序返回最近的快照摘要
	ListSnapshots(ctx context.Context, ticker string, limit int) ([]SurfaceSnapshotSummary, error)
}

// SurfaceSnapshotSummary 历史快照摘要
type SurfaceSnapshotSummary struct {
	Ticker              string     `json:"ticker"`
	OptionType          OptionType `json:"option_type"`
	Spot                float64    `json:"spot"`
	DataPoints          int        `json:"data_points"`
	UsingHistoricalData bool       `json:"using_historical_data"`
	AvgIV               float64    `json:"avg_iv"`
	BuiltAt             time.Time  `json:"built_at"`
}

// SurfaceCache 最新曲面的读模型缓存接口
type SurfaceCache interface {
	Set(ctx context.Context, surface *Surface) error
	Get(ctx context.Context, ticker string, optionType OptionType) (*Surface, error)
}
