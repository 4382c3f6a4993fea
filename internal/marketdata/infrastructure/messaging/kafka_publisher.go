package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/wyfcoding/pkg/messagequeue/kafka"
	"github.com/wyfcoding/quantanalytics/internal/marketdata/domain"
)

// eventEnvelope 统一事件信封
type eventEnvelope struct {
	EventType  string          `json:"event_type"`
	Payload    json.RawMessage `json:"payload"`
	OccurredOn time.Time       `json:"occurred_on"`
}

// KafkaEventPublisher 实现 domain.EventPublisher，将行情事件发往 Kafka
type KafkaEventPublisher struct {
	producer *kafka.Producer
}

// NewKafkaEventPublisher 创建 Kafka 事件发布者
func NewKafkaEventPublisher(producer *kafka.Producer) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer}
}

// PublishBarsIngested 发布日线入库完成事件
func (p *KafkaEventPublisher) PublishBarsIngested(ctx context.Context, event domain.BarsIngestedEvent) error {
	return p.publish(ctx, domain.BarsIngestedEventType, event.Ticker, event)
}

// PublishSnapshotRefreshed 发布快照刷新事件
func (p *KafkaEventPublisher) PublishSnapshotRefreshed(ctx context.Context, event domain.SnapshotRefreshedEvent) error {
	return p.publish(ctx, domain.SnapshotRefreshedEventType, event.Ticker, event)
}

func (p *KafkaEventPublisher) publish(ctx context.Context, eventType, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	envelope, err := json.Marshal(eventEnvelope{
		EventType:  eventType,
		Payload:    payload,
		OccurredOn: time.Now(),
	})
	if err != nil {
		return err
	}
	return p.producer.Publish(ctx, []byte(key), envelope)
}
