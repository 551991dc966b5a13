package models

import (
	"fmt"
	"time"
)

// DispatchStatus represents the status of a dispatch
type DispatchStatus string

const (
	DispatchStatusReadyForPickup DispatchStatus = "READY_FOR_PICKUP"
	DispatchStatusInTransit      DispatchStatus = "IN_TRANSIT"
	DispatchStatusDelivered      DispatchStatus = "DELIVERED"
	DispatchStatusDelayed        DispatchStatus = "DELAYED"
)

// Dispatch represents a shipment for an order. Snapshot fields are a
// denormalized copy taken at dispatch time so later product or line-item
// mutation never changes what was shipped and billed.
type Dispatch struct {
	ID              string          `db:"id" json:"id"`
	DispatchID      string          `db:"dispatch_id" json:"dispatch_id"`
	OrderID         string          `db:"order_id" json:"order_id"`
	Customer        string          `db:"customer" json:"customer"`
	Status          DispatchStatus  `db:"status" json:"status"`
	LoadingDate     *time.Time      `db:"loading_date" json:"loading_date,omitempty"`
	DriverName      string          `db:"driver_name" json:"driver_name,omitempty"`
	DriverNumber    string          `db:"driver_number" json:"driver_number,omitempty"`
	CarNumber       string          `db:"car_number" json:"car_number,omitempty"`
	Carrier         string          `db:"carrier" json:"carrier,omitempty"`
	Transportation  string          `db:"transportation" json:"transportation,omitempty"`
	TrackingID      string          `db:"tracking_id" json:"tracking_id,omitempty"`
	ShippingAddress string          `db:"shipping_address" json:"shipping_address"`
	PackageDetails  string          `db:"package_details" json:"package_details,omitempty"`
	Remarks         string          `db:"remarks" json:"remarks,omitempty"`
	TotalAmount     float64         `db:"total_amount" json:"total_amount"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
	Items           []*DispatchItem `db:"-" json:"items,omitempty"`
}

// DispatchItem is the itemized snapshot of one manifest entry
type DispatchItem struct {
	ID                string  `db:"id" json:"id"`
	DispatchID        string  `db:"dispatch_id" json:"dispatch_id"`
	OrderItemID       string  `db:"order_item_id" json:"order_item_id"`
	ProductName       string  `db:"product_name" json:"product_name"`
	ColorTop          string  `db:"color_top" json:"color_top,omitempty"`
	ColorBottom       string  `db:"color_bottom" json:"color_bottom,omitempty"`
	Width             float64 `db:"width" json:"width,omitempty"`
	Length            float64 `db:"length" json:"length,omitempty"`
	DeliveredQuantity int     `db:"delivered_quantity" json:"delivered_quantity"`
	Rate              float64 `db:"rate" json:"rate"`
	MetricValue       float64 `db:"metric_value" json:"metric_value"`
	Amount            float64 `db:"amount" json:"amount"`
}

// ManifestEntry is one line of the delivery manifest submitted when creating
// a dispatch. The descriptive attributes identify the product for the
// stock-decrement step; there is no direct product foreign key on this path.
type ManifestEntry struct {
	OrderItemID       string  `json:"order_item_id"`
	DeliveredQuantity int     `json:"delivered_quantity"`
	Rate              float64 `json:"rate"`
	MetricValue       float64 `json:"metric_value"`
	ProductName       string  `json:"product_name"`
	ColorTop          string  `json:"color_top,omitempty"`
	ColorBottom       string  `json:"color_bottom,omitempty"`
	Width             float64 `json:"width,omitempty"`
	Length            float64 `json:"length,omitempty"`
}

// ShipmentMeta carries the shipment description supplied by the caller
type ShipmentMeta struct {
	Customer        string     `json:"customer"`
	LoadingDate     *time.Time `json:"loading_date,omitempty"`
	DriverName      string     `json:"driver_name,omitempty"`
	DriverNumber    string     `json:"driver_number,omitempty"`
	CarNumber       string     `json:"car_number,omitempty"`
	Carrier         string     `json:"carrier,omitempty"`
	Transportation  string     `json:"transportation,omitempty"`
	ShippingAddress string     `json:"shipping_address"`
	Remarks         string     `json:"remarks,omitempty"`
}

// ManifestError describes why a manifest was rejected
type ManifestError struct {
	Reason string
}

func (e *ManifestError) Error() string {
	return "invalid manifest: " + e.Reason
}

// ValidateManifest checks a manifest against the order it targets: it must
// be non-empty, every entry must carry a positive delivered quantity and a
// non-negative rate, and every entry must reference a line item of this
// order (rejecting cross-order tampering).
func ValidateManifest(order *Order, manifest []ManifestEntry) error {
	if len(manifest) == 0 {
		return &ManifestError{Reason: "manifest is empty"}
	}

	itemIDs := make(map[string]bool, len(order.Items))
	for _, item := range order.Items {
		itemIDs[item.ID] = true
	}

	for i, entry := range manifest {
		if entry.OrderItemID == "" {
			return &ManifestError{Reason: fmt.Sprintf("entry %d is missing order_item_id", i)}
		}
		if !itemIDs[entry.OrderItemID] {
			return &ManifestError{Reason: fmt.Sprintf("line item %s does not belong to order %s", entry.OrderItemID, order.OrderID)}
		}
		if entry.DeliveredQuantity <= 0 {
			return &ManifestError{Reason: fmt.Sprintf("entry %d has non-positive delivered quantity", i)}
		}
		if entry.Rate < 0 || entry.MetricValue < 0 {
			return &ManifestError{Reason: fmt.Sprintf("entry %d has a negative rate or metric value", i)}
		}
	}

	return nil
}

// ManifestTotal computes the dispatch value over the manifest
func ManifestTotal(manifest []ManifestEntry) float64 {
	var total float64
	for _, entry := range manifest {
		total += entry.Rate * entry.MetricValue * float64(entry.DeliveredQuantity)
	}
	return total
}

// BuildPackageDetails renders the human-readable package summary stored on
// the dispatch, e.g. "2 packages, 120 units total".
func BuildPackageDetails(manifest []ManifestEntry) string {
	var units int
	for _, entry := range manifest {
		units += entry.DeliveredQuantity
	}

	noun := "packages"
	if len(manifest) == 1 {
		noun = "package"
	}

	return fmt.Sprintf("%d %s, %d units total", len(manifest), noun, units)
}

// ApplyDeliveries computes the post-dispatch outstanding quantity for every
// manifested line item, clamping at zero on over-delivery, and reports
// whether the whole order is fully delivered afterwards, meaning every item
// of the order (manifested or not) has zero outstanding quantity.
func ApplyDeliveries(items []*OrderItem, manifest []ManifestEntry) (newQuantities map[string]int, fullyDelivered bool) {
	delivered := make(map[string]int, len(manifest))
	for _, entry := range manifest {
		delivered[entry.OrderItemID] += entry.DeliveredQuantity
	}

	newQuantities = make(map[string]int, len(delivered))
	fullyDelivered = true

	for _, item := range items {
		remaining := item.Quantity

		if qty, ok := delivered[item.ID]; ok {
			remaining, _ = ClampStockDecrement(item.Quantity, qty)
			newQuantities[item.ID] = remaining
		}

		if remaining > 0 {
			fullyDelivered = false
		}
	}

	return newQuantities, fullyDelivered
}

// NewDispatch creates a dispatch snapshot for an order from a validated
// manifest. The caller supplies the allocated human-readable dispatch ID.
func NewDispatch(dispatchID string, order *Order, manifest []ManifestEntry, meta ShipmentMeta) *Dispatch {
	now := GetCurrentTime()

	dispatch := &Dispatch{
		ID:              GenerateID("dsp"),
		DispatchID:      dispatchID,
		OrderID:         order.ID,
		Customer:        meta.Customer,
		Status:          DispatchStatusReadyForPickup,
		LoadingDate:     meta.LoadingDate,
		DriverName:      meta.DriverName,
		DriverNumber:    meta.DriverNumber,
		CarNumber:       meta.CarNumber,
		Carrier:         meta.Carrier,
		Transportation:  meta.Transportation,
		ShippingAddress: meta.ShippingAddress,
		PackageDetails:  BuildPackageDetails(manifest),
		Remarks:         meta.Remarks,
		TotalAmount:     ManifestTotal(manifest),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	for _, entry := range manifest {
		dispatch.Items = append(dispatch.Items, &DispatchItem{
			ID:                GenerateID("dsi"),
			DispatchID:        dispatch.ID,
			OrderItemID:       entry.OrderItemID,
			ProductName:       entry.ProductName,
			ColorTop:          entry.ColorTop,
			ColorBottom:       entry.ColorBottom,
			Width:             entry.Width,
			Length:            entry.Length,
			DeliveredQuantity: entry.DeliveredQuantity,
			Rate:              entry.Rate,
			MetricValue:       entry.MetricValue,
			Amount:            entry.Rate * entry.MetricValue * float64(entry.DeliveredQuantity),
		})
	}

	return dispatch
}

// dispatchTransitions encodes the forward-only dispatch state machine.
// DELIVERED is terminal; DELAYED can resume.
var dispatchTransitions = map[DispatchStatus][]DispatchStatus{
	DispatchStatusReadyForPickup: {DispatchStatusInTransit, DispatchStatusDelayed},
	DispatchStatusInTransit:      {DispatchStatusDelivered, DispatchStatusDelayed},
	DispatchStatusDelayed:        {DispatchStatusInTransit, DispatchStatusDelivered},
	DispatchStatusDelivered:      {},
}

// IsValidDispatchStatus reports whether the value is a known status
func IsValidDispatchStatus(status DispatchStatus) bool {
	_, ok := dispatchTransitions[status]
	return ok
}

// CanTransitionDispatch reports whether a dispatch may move between the two statuses
func CanTransitionDispatch(from, to DispatchStatus) bool {
	for _, allowed := range dispatchTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
