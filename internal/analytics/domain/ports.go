package domain

import "context"

// PriceHistoryProvider 提供按交易日升序排列的收盘价序列
// days 为希望覆盖的最近交易日数，实现可以返回更少的数据
type PriceHistoryProvider interface {
	ClosingPrices(ctx context.Context, ticker string, days int) ([]float64, error)
}

// ReportCache 分析报告缓存
// Get 在缓存未命中时返回 (false, nil)
type ReportCache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, report any) error
}
