package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/quantanalytics/internal/marketdata/domain"
)

const defaultHistoryDays = 252

// QueryService 行情查询应用服务
// 快照走缓存优先，未命中时回源并由摄取服务回填
type QueryService struct {
	provider domain.MarketProvider
	bars     domain.BarRepository
	cache    domain.SnapshotCache
	ingest   *IngestService
}

// NewQueryService 创建查询应用服务
func NewQueryService(
	provider domain.MarketProvider,
	bars domain.BarRepository,
	cache domain.SnapshotCache,
	ingest *IngestService,
) *QueryService {
	return &QueryService{provider: provider, bars: bars, cache: cache, ingest: ingest}
}

// History 查询已落库的历史日线
func (s *QueryService) History(ctx context.Context, ticker string, days int) (*HistoryDTO, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, fmt.Errorf("%w: ticker is required", domain.ErrInvalidBar)
	}
	if days <= 0 {
		days = defaultHistoryDays
	}
	bars, err := s.bars.ListBars(ctx, ticker, days)
	if err != nil {
		return nil, err
	}
	return toHistoryDTO(ticker, bars), nil
}

// Snapshot 查询最新快照，缓存未命中时回源刷新
func (s *QueryService) Snapshot(ctx context.Context, ticker string) (*domain.TickerSnapshot, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, fmt.Errorf("%w: ticker is required", domain.ErrInvalidBar)
	}

	if s.cache != nil {
		snapshot, err := s.cache.Get(ctx, ticker)
		if err != nil {
			logging.Warn(ctx, "snapshot cache read failed", "ticker", ticker, "error", err)
		} else if snapshot != nil {
			return snapshot, nil
		}
	}
	return s.ingest.RefreshSnapshot(ctx, ticker)
}

// OptionChain 透传上游期权链快照
func (s *QueryService) OptionChain(ctx context.Context, ticker string) (*ChainDTO, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, fmt.Errorf("%w: ticker is required", domain.ErrInvalidBar)
	}
	chain, err := s.provider.FetchOptionChain(ctx, ticker)
	if err != nil {
		return nil, err
	}
	if len(chain.Quotes) == 0 {
		return nil, fmt.Errorf("%w: %s has no listed options", domain.ErrTickerNotFound, ticker)
	}
	return toChainDTO(chain), nil
}
