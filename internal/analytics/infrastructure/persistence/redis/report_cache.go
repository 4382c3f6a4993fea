package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// ReportCache 分析报告的 Redis 缓存
// 综合分析聚合了四类重计算，短 TTL 内直接复用上一次结果
type ReportCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewReportCache 创建报告缓存
func NewReportCache(client redis.UniversalClient) *ReportCache {
	return &ReportCache{
		client: client,
		prefix: "analytics:",
		ttl:    10 * time.Minute,
	}
}

func (c *ReportCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (c *ReportCache) Set(ctx context.Context, key string, report any) error {
	data, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.prefix+key, data, c.ttl).Err()
}
