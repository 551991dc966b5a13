package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrderCreatedEvent(t *testing.T) {
	order := NewOrder("ORD001", "cus-1", "BlueDart", "road", "", nil)

	msg, err := NewOrderCreatedEvent(order)
	require.NoError(t, err)

	assert.Equal(t, "order", msg.AggregateType)
	assert.Equal(t, order.ID, msg.AggregateID)
	assert.Equal(t, EventOrderCreated, msg.EventType)
	assert.Equal(t, OutboxStatusPending, msg.Status)

	var event OutboxMessageEvent
	require.NoError(t, json.Unmarshal(msg.Payload, &event))
	assert.Equal(t, EventOrderCreated, event.EventType)
	assert.Equal(t, order.ID, event.AggregateID)
	assert.NotEmpty(t, event.EventID)
}

func TestNewStockDriftEventPayload(t *testing.T) {
	msg, err := NewStockDriftEvent(StockDriftData{
		DispatchID:  "DIS003",
		ProductID:   "prd-9",
		ProductName: "HDPE Tarpaulin",
		Requested:   20,
		Applied:     12,
		Reason:      "insufficient stock",
	})
	require.NoError(t, err)

	assert.Equal(t, EventStockDrift, msg.EventType)
	assert.Equal(t, "product", msg.AggregateType)
	assert.Equal(t, "prd-9", msg.AggregateID)

	var event struct {
		Data StockDriftData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(msg.Payload, &event))
	assert.Equal(t, 20, event.Data.Requested)
	assert.Equal(t, 12, event.Data.Applied)
	assert.Equal(t, "insufficient stock", event.Data.Reason)
}

func TestNewStockDriftEventUnresolvedProduct(t *testing.T) {
	// A failed product lookup leaves ProductID empty; the event then hangs
	// off the dispatch that observed the drift.
	msg, err := NewStockDriftEvent(StockDriftData{
		DispatchID:  "DIS004",
		ProductName: "Unknown Sheet",
		Requested:   5,
		Applied:     0,
		Reason:      "no matching product",
	})
	require.NoError(t, err)

	assert.Equal(t, "DIS004", msg.AggregateID)
}

func TestNewLowStockEvent(t *testing.T) {
	msg, err := NewLowStockEvent("prd-2", "Silpaulin Sheet", 3, 10, StockStatusLowStock)
	require.NoError(t, err)

	assert.Equal(t, EventLowStock, msg.EventType)
	assert.Equal(t, "prd-2", msg.AggregateID)
}
