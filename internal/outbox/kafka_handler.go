package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/tarpmill/erp-api/internal/models"
	"github.com/tarpmill/erp-api/pkg/circuitbreaker"
	"github.com/tarpmill/erp-api/pkg/kafka"
	"github.com/tarpmill/erp-api/pkg/logger"
)

// KafkaHandler publishes outbox messages to Kafka. The circuit breaker
// rejects publishing while the brokers are down.
type KafkaHandler struct {
	logger   logger.Logger
	producer *kafka.Producer
	topic    string
	breaker  *circuitbreaker.CircuitBreaker
}

// NewKafkaHandler creates a new KafkaHandler
func NewKafkaHandler(producer *kafka.Producer, topic string, logger logger.Logger) *KafkaHandler {
	return &KafkaHandler{
		producer: producer,
		topic:    topic,
		logger:   logger,
		breaker: circuitbreaker.New(circuitbreaker.Config{
			FailureThreshold: 5,
			ResetTimeout:     20 * time.Second,
			HalfOpenMaxCalls: 2,
		}),
	}
}

// HandleMessage handles an outbox message by publishing it to Kafka, keyed
// by aggregate ID so events for one aggregate stay ordered
func (h *KafkaHandler) HandleMessage(ctx context.Context, message *models.OutboxMessage) error {
	if !h.breaker.Allow() {
		return fmt.Errorf("kafka publishing circuit open")
	}

	key := message.AggregateID

	err := h.producer.SendMessage(ctx, h.topic, key, message.Payload)

	if err != nil {
		h.breaker.Failure()
		h.logger.Error("Failed to publish message to Kafka",
			"error", err,
			"messageID", message.ID,
			"aggregateID", message.AggregateID)
		return fmt.Errorf("failed to publish message to Kafka: %w", err)
	}

	h.breaker.Success()
	h.logger.Debug("Published message to Kafka",
		"topic", h.topic,
		"messageID", message.ID,
		"aggregateID", message.AggregateID,
		"eventType", message.EventType)

	return nil
}

// GetBreakerMetrics exposes the breaker state for the admin endpoint
func (h *KafkaHandler) GetBreakerMetrics() map[string]interface{} {
	return h.breaker.GetMetrics()
}
