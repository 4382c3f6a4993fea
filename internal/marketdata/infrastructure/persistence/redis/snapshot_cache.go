package redis

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wyfcoding/quantanalytics/internal/marketdata/domain"
)

// SnapshotCache 最新行情快照的 Redis 读模型
type SnapshotCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewSnapshotCache 创建快照缓存
func NewSnapshotCache(client redis.UniversalClient) *SnapshotCache {
	return &SnapshotCache{
		client: client,
		prefix: "snapshot:",
		ttl:    time.Minute,
	}
}

func (c *SnapshotCache) Set(ctx context.Context, snapshot *domain.TickerSnapshot) error {
	if snapshot == nil {
		return nil
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(snapshot.Ticker), data, c.ttl).Err()
}

func (c *SnapshotCache) Get(ctx context.Context, ticker string) (*domain.TickerSnapshot, error) {
	data, err := c.client.Get(ctx, c.key(ticker)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snapshot domain.TickerSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (c *SnapshotCache) key(ticker string) string {
	return c.prefix + strings.ToUpper(ticker)
}
