package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/wyfcoding/pkg/messagequeue/kafka"
	"github.com/wyfcoding/quantanalytics/internal/derivatives/domain"
)

// eventEnvelope 统一事件信封
type eventEnvelope struct {
	EventType  string          `json:"event_type"`
	Payload    json.RawMessage `json:"payload"`
	OccurredOn time.Time       `json:"occurred_on"`
}

// KafkaEventPublisher 实现 domain.EventPublisher，将领域事件发往 Kafka
type KafkaEventPublisher struct {
	producer *kafka.Producer
}

// NewKafkaEventPublisher 创建 Kafka 事件发布者
func NewKafkaEventPublisher(producer *kafka.Producer) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer}
}

// PublishOptionPriced 发布期权定价完成事件
func (p *KafkaEventPublisher) PublishOptionPriced(ctx context.Context, event domain.OptionPricedEvent) error {
	return p.publish(ctx, domain.OptionPricedEventType, event.Ticker, event)
}

// PublishSurfaceBuilt 发布波动率曲面构建完成事件
func (p *KafkaEventPublisher) PublishSurfaceBuilt(ctx context.Context, event domain.SurfaceBuiltEvent) error {
	return p.publish(ctx, domain.SurfaceBuiltEventType, event.Ticker, event)
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
