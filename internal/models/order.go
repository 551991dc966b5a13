package models

import (
	"time"
)

// OrderStatus represents the status of an order
type OrderStatus string

const (
	OrderStatusPending      OrderStatus = "PENDING"
	OrderStatusProcessing   OrderStatus = "PROCESSING"
	OrderStatusInProduction OrderStatus = "IN_PRODUCTION"
	OrderStatusCompleted    OrderStatus = "COMPLETED"
	OrderStatusShipped      OrderStatus = "SHIPPED"
	OrderStatusDelivered    OrderStatus = "DELIVERED"
	OrderStatusCancelled    OrderStatus = "CANCELLED"
	OrderStatusDelayed      OrderStatus = "DELAYED"
)

// Order represents a customer order
type Order struct {
	ID             string       `db:"id" json:"id"`
	OrderID        string       `db:"order_id" json:"order_id"`
	CustomerID     string       `db:"customer_id" json:"customer_id"`
	Status         OrderStatus  `db:"status" json:"status"`
	Total          float64      `db:"total" json:"total"`
	Carrier        string       `db:"carrier" json:"carrier,omitempty"`
	DeliveryMethod string       `db:"delivery_method" json:"delivery_method,omitempty"`
	Remarks        string       `db:"remarks" json:"remarks,omitempty"`
	OrderedAt      time.Time    `db:"ordered_at" json:"ordered_at"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time    `db:"updated_at" json:"updated_at"`
	Items          []*OrderItem `db:"-" json:"items,omitempty"`
}

// OrderItem represents a line item owned by an order. Quantity is the
// outstanding (not yet dispatched) quantity; it is decremented as deliveries
// occur and the row is never deleted on partial delivery.
type OrderItem struct {
	ID          string    `db:"id" json:"id"`
	OrderID     string    `db:"order_id" json:"order_id"`
	ProductID   string    `db:"product_id" json:"product_id"`
	Quantity    int       `db:"quantity" json:"quantity"`
	Unit        string    `db:"unit" json:"unit"`
	UnitPrice   float64   `db:"unit_price" json:"unit_price"`
	LineTotal   float64   `db:"line_total" json:"line_total"`
	ColorTop    string    `db:"color_top" json:"color_top,omitempty"`
	ColorBottom string    `db:"color_bottom" json:"color_bottom,omitempty"`
	Width       float64   `db:"width" json:"width,omitempty"`
	Length      float64   `db:"length" json:"length,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// NewOrder creates a new pending order. The total is the sum of the item
// line totals at creation time.
func NewOrder(orderID, customerID, carrier, deliveryMethod, remarks string, items []*OrderItem) *Order {
	now := GetCurrentTime()

	order := &Order{
		ID:             GenerateID("ord"),
		OrderID:        orderID,
		CustomerID:     customerID,
		Status:         OrderStatusPending,
		Carrier:        carrier,
		DeliveryMethod: deliveryMethod,
		Remarks:        remarks,
		OrderedAt:      now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	for _, item := range items {
		item.OrderID = order.ID
		order.Total += item.LineTotal
	}
	order.Items = items

	return order
}

// NewOrderItem creates a line item priced from the product's current price
func NewOrderItem(product *Product, quantity int, unit, colorTop, colorBottom string, width, length float64) *OrderItem {
	now := GetCurrentTime()

	if unit == "" {
		unit = "units"
	}

	return &OrderItem{
		ID:          GenerateID("itm"),
		ProductID:   product.ID,
		Quantity:    quantity,
		Unit:        unit,
		UnitPrice:   product.Price,
		LineTotal:   product.Price * float64(quantity),
		ColorTop:    colorTop,
		ColorBottom: colorBottom,
		Width:       width,
		Length:      length,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// updatableOrderStatuses are the statuses accepted by the explicit
// status-update endpoint. SHIPPED and DELIVERED are excluded: those
// transitions belong to the dispatch workflow, so an order can never reach
// SHIPPED without a dispatch existing.
var updatableOrderStatuses = map[OrderStatus]bool{
	OrderStatusPending:      true,
	OrderStatusProcessing:   true,
	OrderStatusInProduction: true,
	OrderStatusCompleted:    true,
	OrderStatusCancelled:    true,
	OrderStatusDelayed:      true,
}

// IsUpdatableOrderStatus reports whether a status may be set by a direct
// status-update call rather than by the dispatch workflow.
func IsUpdatableOrderStatus(status OrderStatus) bool {
	return updatableOrderStatuses[status]
}

// IsTerminalOrderStatus reports whether no further transitions are allowed
func IsTerminalOrderStatus(status OrderStatus) bool {
	return status == OrderStatusDelivered || status == OrderStatusCancelled
}

// AccumulateDispatchValue is the order-total policy applied when a dispatch
// fully delivers an order: the dispatch value is added on top of the
// existing order total. Switching to assignment is a product decision
// localized to this function.
func AccumulateDispatchValue(orderTotal, dispatchAmount float64) float64 {
	return orderTotal + dispatchAmount
}
