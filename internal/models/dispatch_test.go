package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOrder() *Order {
	return &Order{
		ID:      "ord-1",
		OrderID: "ORD001",
		Status:  OrderStatusProcessing,
		Items: []*OrderItem{
			{ID: "itm-1", OrderID: "ord-1", Quantity: 10},
			{ID: "itm-2", OrderID: "ord-1", Quantity: 5},
		},
	}
}

func TestValidateManifest(t *testing.T) {
	order := testOrder()

	t.Run("accepts a well-formed manifest", func(t *testing.T) {
		manifest := []ManifestEntry{
			{OrderItemID: "itm-1", DeliveredQuantity: 10, Rate: 50, MetricValue: 10},
			{OrderItemID: "itm-2", DeliveredQuantity: 5, Rate: 20, MetricValue: 1},
		}
		assert.NoError(t, ValidateManifest(order, manifest))
	})

	t.Run("rejects an empty manifest", func(t *testing.T) {
		err := ValidateManifest(order, nil)
		require.Error(t, err)
		var mErr *ManifestError
		assert.ErrorAs(t, err, &mErr)
	})

	t.Run("rejects entries missing an order item id", func(t *testing.T) {
		manifest := []ManifestEntry{{DeliveredQuantity: 1, Rate: 1, MetricValue: 1}}
		assert.Error(t, ValidateManifest(order, manifest))
	})

	t.Run("rejects line items from another order", func(t *testing.T) {
		manifest := []ManifestEntry{{OrderItemID: "itm-other", DeliveredQuantity: 1, Rate: 1, MetricValue: 1}}
		assert.Error(t, ValidateManifest(order, manifest))
	})

	t.Run("rejects non-positive delivered quantity", func(t *testing.T) {
		manifest := []ManifestEntry{{OrderItemID: "itm-1", DeliveredQuantity: 0, Rate: 1, MetricValue: 1}}
		assert.Error(t, ValidateManifest(order, manifest))
	})

	t.Run("rejects negative rate", func(t *testing.T) {
		manifest := []ManifestEntry{{OrderItemID: "itm-1", DeliveredQuantity: 1, Rate: -1, MetricValue: 1}}
		assert.Error(t, ValidateManifest(order, manifest))
	})
}

func TestManifestTotal(t *testing.T) {
	manifest := []ManifestEntry{
		{OrderItemID: "itm-1", DeliveredQuantity: 1, Rate: 50, MetricValue: 10},
		{OrderItemID: "itm-2", DeliveredQuantity: 2, Rate: 10, MetricValue: 2.5},
	}

	// 50*10*1 + 10*2.5*2
	assert.Equal(t, 550.0, ManifestTotal(manifest))
	assert.Equal(t, 0.0, ManifestTotal(nil))
}

func TestApplyDeliveries(t *testing.T) {
	t.Run("partial delivery leaves the order open", func(t *testing.T) {
		order := testOrder()
		manifest := []ManifestEntry{{OrderItemID: "itm-1", DeliveredQuantity: 4}}

		quantities, fullyDelivered := ApplyDeliveries(order.Items, manifest)

		assert.Equal(t, map[string]int{"itm-1": 6}, quantities)
		assert.False(t, fullyDelivered, "itm-2 still has outstanding quantity")
	})

	t.Run("over-delivery clamps at zero", func(t *testing.T) {
		order := testOrder()
		manifest := []ManifestEntry{{OrderItemID: "itm-1", DeliveredQuantity: 25}}

		quantities, fullyDelivered := ApplyDeliveries(order.Items, manifest)

		assert.Equal(t, 0, quantities["itm-1"])
		assert.False(t, fullyDelivered)
	})

	t.Run("all items delivered marks the order fully delivered", func(t *testing.T) {
		order := testOrder()
		manifest := []ManifestEntry{
			{OrderItemID: "itm-1", DeliveredQuantity: 10},
			{OrderItemID: "itm-2", DeliveredQuantity: 5},
		}

		quantities, fullyDelivered := ApplyDeliveries(order.Items, manifest)

		assert.Equal(t, map[string]int{"itm-1": 0, "itm-2": 0}, quantities)
		assert.True(t, fullyDelivered)
	})

	t.Run("repeated entries for one item accumulate", func(t *testing.T) {
		order := testOrder()
		manifest := []ManifestEntry{
			{OrderItemID: "itm-1", DeliveredQuantity: 6},
			{OrderItemID: "itm-1", DeliveredQuantity: 4},
		}

		quantities, _ := ApplyDeliveries(order.Items, manifest)
		assert.Equal(t, 0, quantities["itm-1"])
	})

	t.Run("unmanifested zero-quantity items count as delivered", func(t *testing.T) {
		order := testOrder()
		order.Items[1].Quantity = 0
		manifest := []ManifestEntry{{OrderItemID: "itm-1", DeliveredQuantity: 10}}

		quantities, fullyDelivered := ApplyDeliveries(order.Items, manifest)

		assert.True(t, fullyDelivered)
		_, touched := quantities["itm-2"]
		assert.False(t, touched, "unmanifested items are not rewritten")
	})
}

func TestBuildPackageDetails(t *testing.T) {
	manifest := []ManifestEntry{
		{OrderItemID: "itm-1", DeliveredQuantity: 100},
		{OrderItemID: "itm-2", DeliveredQuantity: 20},
	}
	assert.Equal(t, "2 packages, 120 units total", BuildPackageDetails(manifest))

	single := manifest[:1]
	assert.Equal(t, "1 package, 100 units total", BuildPackageDetails(single))
}

func TestNewDispatch(t *testing.T) {
	order := testOrder()
	manifest := []ManifestEntry{
		{OrderItemID: "itm-1", DeliveredQuantity: 1, Rate: 50, MetricValue: 10, ProductName: "Blue Tarp", ColorTop: "blue", Width: 12, Length: 18},
	}
	meta := ShipmentMeta{
		Customer:        "Acme Traders",
		DriverName:      "R. Singh",
		CarNumber:       "MH12AB1234",
		ShippingAddress: "14 Market Rd",
	}

	dispatch := NewDispatch("DIS001", order, manifest, meta)

	assert.Equal(t, "DIS001", dispatch.DispatchID)
	assert.Equal(t, order.ID, dispatch.OrderID)
	assert.Equal(t, DispatchStatusReadyForPickup, dispatch.Status)
	assert.Equal(t, "Acme Traders", dispatch.Customer)
	assert.Equal(t, 500.0, dispatch.TotalAmount)
	assert.Equal(t, "1 package, 1 units total", dispatch.PackageDetails)

	require.Len(t, dispatch.Items, 1)
	item := dispatch.Items[0]
	assert.Equal(t, dispatch.ID, item.DispatchID)
	assert.Equal(t, "itm-1", item.OrderItemID)
	assert.Equal(t, "Blue Tarp", item.ProductName)
	assert.Equal(t, 500.0, item.Amount)
}

func TestDispatchTransitions(t *testing.T) {
	assert.True(t, CanTransitionDispatch(DispatchStatusReadyForPickup, DispatchStatusInTransit))
	assert.True(t, CanTransitionDispatch(DispatchStatusReadyForPickup, DispatchStatusDelayed))
	assert.True(t, CanTransitionDispatch(DispatchStatusInTransit, DispatchStatusDelivered))
	assert.True(t, CanTransitionDispatch(DispatchStatusDelayed, DispatchStatusInTransit))
	assert.True(t, CanTransitionDispatch(DispatchStatusDelayed, DispatchStatusDelivered))

	assert.False(t, CanTransitionDispatch(DispatchStatusReadyForPickup, DispatchStatusDelivered), "no skipping transit")
	assert.False(t, CanTransitionDispatch(DispatchStatusDelivered, DispatchStatusInTransit), "delivered is terminal")
	assert.False(t, CanTransitionDispatch(DispatchStatusInTransit, DispatchStatusReadyForPickup), "no moving backwards")
}

func TestIsValidDispatchStatus(t *testing.T) {
	assert.True(t, IsValidDispatchStatus(DispatchStatusReadyForPickup))
	assert.True(t, IsValidDispatchStatus(DispatchStatusDelivered))
	assert.False(t, IsValidDispatchStatus(DispatchStatus("LOST")))
}
