// Package handlers holds the Kafka consumer-side message handlers.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Shopify/sarama"
	"github.com/tarpmill/erp-api/internal/models"
	"github.com/tarpmill/erp-api/pkg/logger"
)

// maxRecentAlerts bounds the in-memory alert ring
const maxRecentAlerts = 100

// InventoryAlert is one stock observation kept for the alerts endpoint
type InventoryAlert struct {
	EventType   string      `json:"event_type"`
	AggregateID string      `json:"aggregate_id"`
	OccurredAt  string      `json:"occurred_at"`
	Data        interface{} `json:"data"`
}

// InventoryEventsHandler consumes stock events from the inventory topic. It
// logs every event and keeps a bounded ring of the latest drift and low
// stock alerts so operators can inspect them without trawling logs.
type InventoryEventsHandler struct {
	logger logger.Logger
	mu     sync.RWMutex
	alerts []InventoryAlert
}

// NewInventoryEventsHandler creates a new InventoryEventsHandler
func NewInventoryEventsHandler(logger logger.Logger) *InventoryEventsHandler {
	return &InventoryEventsHandler{
		logger: logger,
	}
}

// HandleMessage handles one consumed Kafka message
func (h *InventoryEventsHandler) HandleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var event models.OutboxMessageEvent

	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal inventory event: %w", err)
	}

	switch event.EventType {
	case models.EventStockDrift:
		h.logger.Warn("Stock drift reported",
			"aggregateID", event.AggregateID,
			"eventID", event.EventID,
			"occurredAt", event.OccurredAt)
		h.record(event)
	case models.EventLowStock:
		h.logger.Warn("Low stock reported",
			"aggregateID", event.AggregateID,
			"eventID", event.EventID,
			"occurredAt", event.OccurredAt)
		h.record(event)
	default:
		h.logger.Debug("Inventory event consumed",
			"eventType", event.EventType,
			"aggregateID", event.AggregateID)
	}

	return nil
}

func (h *InventoryEventsHandler) record(event models.OutboxMessageEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.alerts = append(h.alerts, InventoryAlert{
		EventType:   event.EventType,
		AggregateID: event.AggregateID,
		OccurredAt:  event.OccurredAt.Format("2006-01-02T15:04:05Z07:00"),
		Data:        event.Data,
	})

	if len(h.alerts) > maxRecentAlerts {
		h.alerts = h.alerts[len(h.alerts)-maxRecentAlerts:]
	}
}

// RecentAlerts returns a copy of the retained alerts, newest last
func (h *InventoryEventsHandler) RecentAlerts() []InventoryAlert {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]InventoryAlert, len(h.alerts))
	copy(out, h.alerts)
	return out
}
