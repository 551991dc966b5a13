package models

// Event types emitted through the outbox
const (
	EventOrderCreated          = "order_created"
	EventOrderStatusChanged    = "order_status_changed"
	EventDispatchCreated       = "dispatch_created"
	EventDispatchStatusChanged = "dispatch_status_changed"
	EventStockDrift            = "stock_drift"
	EventLowStock              = "low_stock"
)

// NewOrderCreatedEvent records a new order
func NewOrderCreatedEvent(order *Order) (*OutboxMessage, error) {
	return newOutboxMessage("order", order.ID, EventOrderCreated, order)
}

// NewOrderStatusChangedEvent records an order status transition
func NewOrderStatusChangedEvent(order *Order, oldStatus OrderStatus) (*OutboxMessage, error) {
	return newOutboxMessage("order", order.ID, EventOrderStatusChanged, map[string]interface{}{
		"order_id":    order.OrderID,
		"customer_id": order.CustomerID,
		"old_status":  oldStatus,
		"new_status":  order.Status,
	})
}

// NewDispatchCreatedEvent records a dispatch leaving the factory
func NewDispatchCreatedEvent(dispatch *Dispatch) (*OutboxMessage, error) {
	return newOutboxMessage("dispatch", dispatch.ID, EventDispatchCreated, dispatch)
}

// NewDispatchStatusChangedEvent records a dispatch status transition
func NewDispatchStatusChangedEvent(dispatch *Dispatch, oldStatus DispatchStatus) (*OutboxMessage, error) {
	return newOutboxMessage("dispatch", dispatch.ID, EventDispatchStatusChanged, map[string]interface{}{
		"dispatch_id": dispatch.DispatchID,
		"order_id":    dispatch.OrderID,
		"old_status":  oldStatus,
		"new_status":  dispatch.Status,
	})
}

// StockDriftData describes a discrepancy between the quantity a dispatch
// requested and what the stock ledger could actually decrement. Shortfalls
// never block the dispatch path; they are published so drift is observable
// instead of silent.
type StockDriftData struct {
	DispatchID  string `json:"dispatch_id"`
	ProductID   string `json:"product_id,omitempty"`
	ProductName string `json:"product_name"`
	Requested   int    `json:"requested"`
	Applied     int    `json:"applied"`
	Reason      string `json:"reason"`
}

// NewStockDriftEvent records a stock bookkeeping shortfall
func NewStockDriftEvent(data StockDriftData) (*OutboxMessage, error) {
	aggregateID := data.ProductID
	if aggregateID == "" {
		aggregateID = data.DispatchID
	}
	return newOutboxMessage("product", aggregateID, EventStockDrift, data)
}

// NewLowStockEvent records an entity dropping to or below its reorder level
func NewLowStockEvent(entityID, name string, stock, reorderLevel int, status StockStatus) (*OutboxMessage, error) {
	return newOutboxMessage("product", entityID, EventLowStock, map[string]interface{}{
		"entity_id":     entityID,
		"name":          name,
		"stock":         stock,
		"reorder_level": reorderLevel,
		"status":        status,
	})
}
