package domain

import "context"

// MarketProvider 上游行情数据源
type MarketProvider interface {
	FetchSnapshot(ctx context.Context, ticker string) (*TickerSnapshot, error)
	FetchDailyBars(ctx context.Context, ticker string, days int) ([]PriceBar, error)
	FetchOptionChain(ctx context.Context, ticker string) (*OptionChain, error)
}

// BarRepository 日线仓储
// SaveBars 以 (ticker, bar_date) 为冲突键做幂等写入
type BarRepository interface {
	SaveBars(ctx context.Context, bars []PriceBar) error
	ListBars(ctx context.Context, ticker string, days int) ([]PriceBar, error)
}

// SnapshotCache 最新快照缓存
// Get 在缓存未命中时返回 (nil, nil)
type SnapshotCache interface {
	Set(ctx context.Context, snapshot *TickerSnapshot) error
	Get(ctx context.Context, ticker string) (*TickerSnapshot, error)
}

// EventPublisher 行情事件发布
type EventPublisher interface {
	PublishBarsIngested(ctx context.Context, event BarsIngestedEvent) error
	PublishSnapshotRefreshed(ctx context.Context, event SnapshotRefreshedEvent) error
}
