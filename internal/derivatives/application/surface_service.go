package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/quantanalytics/internal/derivatives/domain"
)

// ErrSurfaceNotFound 缓存与存储中均无可用曲面
var ErrSurfaceNotFound = errors.New("surface not found, build it first")

// BuildSurfaceCommand 曲面构建命令
type BuildSurfaceCommand struct {
	Ticker       string  `json:"ticker"`
	OptionType   string  `json:"option_type"`
	RiskFreeRate float64 `json:"risk_free_rate"`
	MinVolume    int64   `json:"min_volume"`
	MaxSpreadPct float64 `json:"max_spread_pct"`
	IncludeGrid  bool    `json:"include_grid"`
}

// SurfaceService 波动率曲面应用服务
// 编排行情拉取、曲面构建、缓存回写、快照持久化与事件发布；
// 构建本身失败即整体失败，缓存/持久化/事件失败降级为日志
type SurfaceService struct {
	chains    domain.ChainProvider
	builder   *domain.SurfaceBuilder
	repo      domain.SurfaceRepository
	cache     domain.SurfaceCache
	publisher domain.EventPublisher
}

// NewSurfaceService 创建曲面应用服务
func NewSurfaceService(
	chains domain.ChainProvider,
	repo domain.SurfaceRepository,
	cache domain.SurfaceCache,
	publisher domain.EventPublisher,
) *SurfaceService {
	return &SurfaceService{
		chains:    chains,
		builder:   domain.NewSurfaceBuilder(nil),
		repo:      repo,
		cache:     cache,
		publisher: publisher,
	}
}

// BuildSurface 拉取期权链并构建隐含波动率曲面
func (s *SurfaceService) BuildSurface(ctx context.Context, cmd BuildSurfaceCommand) (*SurfaceDTO, error) {
	ticker := strings.ToUpper(strings.TrimSpace(cmd.Ticker))
	if ticker == "" {
		return nil, fmt.Errorf("%w: ticker is required", domain.ErrInvalidInput)
	}

	chain, err := s.chains.FetchChain(ctx, ticker)
	if err != nil {
		return nil, err
	}

	params := domain.SurfaceParams{
		RiskFreeRate: cmd.RiskFreeRate,
		OptionType:   domain.OptionType(strings.ToUpper(cmd.OptionType)),
		MinVolume:    cmd.MinVolume,
		MaxSpreadPct: cmd.MaxSpreadPct,
	}
	surface, err := s.builder.Build(chain, params)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, surface); err != nil {
			logging.Warn(ctx, "failed to cache surface", "ticker", ticker, "error", err)
		}
	}
	if s.repo != nil {
		if err := s.repo.SaveSnapshot(ctx, surface); err != nil {
			logging.Warn(ctx, "failed to persist surface snapshot", "ticker", ticker, "error", err)
		}
	}
	s.publishBuilt(ctx, surface)

	return toSurfaceDTO(surface, cmd.IncludeGrid), nil
}

// GetSurface 读取最近一次构建的曲面 (缓存读模型)
func (s *SurfaceService) GetSurface(ctx context.Context, ticker, optionType string, includeGrid bool) (*SurfaceDTO, error) {
	surface, err := s.lookup(ctx, ticker, optionType)
	if err != nil {
		return nil, err
	}
	return toSurfaceDTO(surface, includeGrid), nil
}

// GetTermStructure 重新拉取期权链并完整构建后提取平值期限结构
// 期限结构对报价时效敏感，不走缓存读模型；构建出的新曲面回写缓存
func (s *SurfaceService) GetTermStructure(ctx context.Context, ticker, optionType string, riskFreeRate float64) ([]domain.ATMPoint, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, fmt.Errorf("%w: ticker is required", domain.ErrInvalidInput)
	}

	chain, err := s.chains.FetchChain(ctx, ticker)
	if err != nil {
		return nil, err
	}
	surface, err := s.builder.Build(chain, domain.SurfaceParams{
		RiskFreeRate: riskFreeRate,
		OptionType:   domain.OptionType(strings.ToUpper(optionType)),
	})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, surface); err != nil {
			logging.Warn(ctx, "failed to cache surface", "ticker", ticker, "error", err)
		}
	}
	return domain.ATMTermStructure(surface.Points, surface.Spot), nil
}

// ListSnapshots 返回最近的历史快照摘要
func (s *SurfaceService) ListSnapshots(ctx context.Context, ticker string, limit int) ([]domain.SurfaceSnapshotSummary, error) {
	if s.repo == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListSnapshots(ctx, strings.ToUpper(strings.TrimSpace(ticker)), limit)
}

func (s *SurfaceService) lookup(ctx context.Context, ticker, optionType string) (*domain.Surface, error) {
	if s.cache == nil {
		return nil, ErrSurfaceNotFound
	}
	ot := domain.OptionType(strings.ToUpper(optionType))
	if ot == "" {
		ot = domain.OptionTypeCall
	}
	surface, err := s.cache.Get(ctx, strings.ToUpper(strings.TrimSpace(ticker)), ot)
	if err != nil {
		return nil, err
	}
	if surface == nil {
		return nil, ErrSurfaceNotFound
	}
	return surface, nil
}

func (s *SurfaceService) publishBuilt(ctx context.Context, surface *domain.Surface) {
	if s.publisher == nil {
		return
	}
	event := domain.SurfaceBuiltEvent{
		Ticker:              surface.Ticker,
		OptionType:          surface.OptionType,
		Spot:                surface.Spot,
		DataPoints:          surface.DataPoints,
		UsingHistoricalData: surface.UsingHistoricalData,
		AvgIV:               surface.Metadata.AvgIV,
		OccurredOn:          time.Now(),
	}
	if err := s.publisher.PublishSurfaceBuilt(ctx, event); err != nil {
		logging.Warn(ctx, "failed to publish surface built event", "ticker", surface.Ticker, "error", err)
	}
}
