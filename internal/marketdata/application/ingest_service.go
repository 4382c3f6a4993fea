package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/quantanalytics/internal/marketdata/domain"
)

const defaultIngestDays = 252

// IngestCommand 日线摄取命令
type IngestCommand struct {
	Ticker string `json:"ticker" binding:"required"`
	Days   int    `json:"days"`
}

// IngestService 行情摄取应用服务
// 入库成功即成功，事件发布失败降级为日志
type IngestService struct {
	provider  domain.MarketProvider
	bars      domain.BarRepository
	cache     domain.SnapshotCache
	publisher domain.EventPublisher
}

// NewIngestService 创建摄取应用服务
func NewIngestService(
	provider domain.MarketProvider,
	bars domain.BarRepository,
	cache domain.SnapshotCache,
	publisher domain.EventPublisher,
) *IngestService {
	return &IngestService{provider: provider, bars: bars, cache: cache, publisher: publisher}
}

// IngestDaily 拉取并幂等落库最近 N 个交易日的日线
func (s *IngestService) IngestDaily(ctx context.Context, cmd IngestCommand) (*IngestResultDTO, error) {
	ticker := strings.ToUpper(strings.TrimSpace(cmd.Ticker))
	if ticker == "" {
		return nil, fmt.Errorf("%w: ticker is required", domain.ErrInvalidBar)
	}
	days := cmd.Days
	if days <= 0 {
		days = defaultIngestDays
	}

	bars, err := s.provider.FetchDailyBars(ctx, ticker, days)
	if err != nil {
		return nil, err
	}
	if err := s.bars.SaveBars(ctx, bars); err != nil {
		return nil, err
	}

	from, to := bars[0].BarDate, bars[len(bars)-1].BarDate
	logging.Info(ctx, "daily bars ingested", "ticker", ticker, "bars", len(bars),
		"from", from.Format("2006-01-02"), "to", to.Format("2006-01-02"))

	if s.publisher != nil {
		event := domain.BarsIngestedEvent{
			Ticker:     ticker,
			Bars:       len(bars),
			From:       from,
			To:         to,
			OccurredOn: time.Now(),
		}
		if err := s.publisher.PublishBarsIngested(ctx, event); err != nil {
			logging.Warn(ctx, "failed to publish bars ingested event", "ticker", ticker, "error", err)
		}
	}

	return &IngestResultDTO{
		Ticker: ticker,
		Bars:   len(bars),
		From:   from.Format("2006-01-02"),
		To:     to.Format("2006-01-02"),
		RunAt:  time.Now(),
	}, nil
}

// RefreshSnapshot 拉取最新快照并回写缓存
func (s *IngestService) RefreshSnapshot(ctx context.Context, ticker string) (*domain.TickerSnapshot, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, fmt.Errorf("%w: ticker is required", domain.ErrInvalidBar)
	}

	snapshot, err := s.provider.FetchSnapshot(ctx, ticker)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, snapshot); err != nil {
			logging.Warn(ctx, "failed to cache snapshot", "ticker", ticker, "error", err)
		}
	}
	if s.publisher != nil {
		event := domain.SnapshotRefreshedEvent{
			Ticker:     ticker,
			LastPrice:  snapshot.LastPrice,
			OccurredOn: time.Now(),
		}
		if err := s.publisher.PublishSnapshotRefreshed(ctx, event); err != nil {
			logging.Warn(ctx, "failed to publish snapshot event", "ticker", ticker, "error", err)
		}
	}
	return snapshot, nil
}
