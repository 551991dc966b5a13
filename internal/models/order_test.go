package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewOrder(t *testing.T) {
	product := &Product{ID: "p1", Name: "Blue Tarp", Price: 25.0}
	items := []*OrderItem{
		NewOrderItem(product, 10, "pieces", "blue", "silver", 12, 18),
		NewOrderItem(product, 4, "pieces", "", "", 0, 0),
	}

	order := NewOrder("ORD001", "cus-1", "FastFreight", "road", "rush", items)

	assert.Equal(t, "ORD001", order.OrderID)
	assert.Equal(t, OrderStatusPending, order.Status)
	assert.Equal(t, 350.0, order.Total, "total is the sum of line totals")
	assert.Len(t, order.Items, 2)
	for _, item := range order.Items {
		assert.Equal(t, order.ID, item.OrderID)
	}
}

func TestNewOrderItem(t *testing.T) {
	product := &Product{ID: "p1", Price: 12.5}

	item := NewOrderItem(product, 8, "", "blue", "", 12, 0)

	assert.Equal(t, "p1", item.ProductID)
	assert.Equal(t, 8, item.Quantity)
	assert.Equal(t, "units", item.Unit, "unit defaults when not supplied")
	assert.Equal(t, 12.5, item.UnitPrice, "price is captured from the product")
	assert.Equal(t, 100.0, item.LineTotal)
}

func TestIsUpdatableOrderStatus(t *testing.T) {
	assert.True(t, IsUpdatableOrderStatus(OrderStatusPending))
	assert.True(t, IsUpdatableOrderStatus(OrderStatusProcessing))
	assert.True(t, IsUpdatableOrderStatus(OrderStatusInProduction))
	assert.True(t, IsUpdatableOrderStatus(OrderStatusCompleted))
	assert.True(t, IsUpdatableOrderStatus(OrderStatusCancelled))
	assert.True(t, IsUpdatableOrderStatus(OrderStatusDelayed))

	// dispatch-owned transitions are never settable directly
	assert.False(t, IsUpdatableOrderStatus(OrderStatusShipped))
	assert.False(t, IsUpdatableOrderStatus(OrderStatusDelivered))
	assert.False(t, IsUpdatableOrderStatus(OrderStatus("BOGUS")))
}

func TestIsTerminalOrderStatus(t *testing.T) {
	assert.True(t, IsTerminalOrderStatus(OrderStatusDelivered))
	assert.True(t, IsTerminalOrderStatus(OrderStatusCancelled))
	assert.False(t, IsTerminalOrderStatus(OrderStatusShipped))
	assert.False(t, IsTerminalOrderStatus(OrderStatusPending))
}

func TestAccumulateDispatchValue(t *testing.T) {
	assert.Equal(t, 1500.0, AccumulateDispatchValue(1000.0, 500.0))
	assert.Equal(t, 500.0, AccumulateDispatchValue(0, 500.0))
}
