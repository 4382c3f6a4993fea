package application

import "github.com/wyfcoding/quantanalytics/internal/marketdata/domain"

// MarketDataService 行情服务门面
type MarketDataService struct {
	Ingest *IngestService
	Query  *QueryService
}

// NewMarketDataService 组装行情应用服务
func NewMarketDataService(
	provider domain.MarketProvider,
	bars domain.BarRepository,
	cache domain.SnapshotCache,
	publisher domain.EventPublisher,
) *MarketDataService {
	ingest := NewIngestService(provider, bars, cache, publisher)
	return &MarketDataService{
		Ingest: ingest,
		Query:  NewQueryService(provider, bars, cache, ingest),
	}
}
