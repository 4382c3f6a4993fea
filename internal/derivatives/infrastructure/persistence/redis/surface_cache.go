package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wyfcoding/quantanalytics/internal/derivatives/domain"
)

// SurfaceCache 最新曲面的 Redis 读模型
// 每个 (标的, 期权类型) 只保留最近一次构建结果，过期后由下一次构建回填
type SurfaceCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewSurfaceCache 创建曲面缓存
func NewSurfaceCache(client redis.UniversalClient) *SurfaceCache {
	return &SurfaceCache{
		client: client,
		prefix: "surface:",
		ttl:    15 * time.Minute,
	}
}

func (c *SurfaceCache) Set(ctx context.Context, surface *domain.Surface) error {
	if surface == nil {
		return nil
	}
	data, err := json.Marshal(surface)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(surface.Ticker, surface.OptionType), data, c.ttl).Err()
}

func (c *SurfaceCache) Get(ctx context.Context, ticker string, optionType domain.OptionType) (*domain.Surface, error) {
	data, err := c.client.Get(ctx, c.key(ticker, optionType)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var surface domain.Surface
	if err := json.Unmarshal(data, &surface); err != nil {
		return nil, err
	}
	return &surface, nil
}

func (c *SurfaceCache) key(ticker string, optionType domain.OptionType) string {
	return fmt.Sprintf("%s%s:%s", c.prefix, ticker, optionType)
}
