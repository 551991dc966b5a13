package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStockStatusFor(t *testing.T) {
	tests := []struct {
		name         string
		stock        int
		reorderLevel int
		want         StockStatus
	}{
		{"zero stock is out of stock", 0, 10, StockStatusOutOfStock},
		{"negative stock is out of stock", -5, 10, StockStatusOutOfStock},
		{"stock at reorder level is low", 10, 10, StockStatusLowStock},
		{"stock below reorder level is low", 3, 10, StockStatusLowStock},
		{"stock above reorder level is in stock", 11, 10, StockStatusInStock},
		{"zero reorder level never reports low", 1, 0, StockStatusInStock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StockStatusFor(tt.stock, tt.reorderLevel))
		})
	}
}

func TestClampStockDecrement(t *testing.T) {
	newStock, applied := ClampStockDecrement(10, 4)
	assert.Equal(t, 6, newStock)
	assert.Equal(t, 4, applied)

	newStock, applied = ClampStockDecrement(3, 8)
	assert.Equal(t, 0, newStock)
	assert.Equal(t, 3, applied, "only the available quantity is applied")

	newStock, applied = ClampStockDecrement(0, 5)
	assert.Equal(t, 0, newStock)
	assert.Equal(t, 0, applied)
}

func TestMatchProduct(t *testing.T) {
	products := []*Product{
		{ID: "p1", Name: "Blue Tarp", ColorTop: "blue", ColorBottom: "silver", Width: 12, Length: 18},
		{ID: "p2", Name: "Blue Tarp", ColorTop: "blue", ColorBottom: "silver", Width: 12, Length: 24},
		{ID: "p3", Name: "Blue Tarp", ColorTop: "green", ColorBottom: "black", Width: 12, Length: 18},
		{ID: "p4", Name: "Heavy Roll", ColorTop: "black", ColorBottom: "black", Width: 6, Length: 100},
	}

	t.Run("full attribute tuple yields a single match", func(t *testing.T) {
		matched := MatchProduct(products, "Blue Tarp", "blue", "silver", 12, 18)
		assert.Len(t, matched, 1)
		assert.Equal(t, "p1", matched[0].ID)
	})

	t.Run("unset attributes act as wildcards", func(t *testing.T) {
		matched := MatchProduct(products, "Blue Tarp", "blue", "", 0, 0)
		assert.Len(t, matched, 2)
	})

	t.Run("name alone may be ambiguous", func(t *testing.T) {
		matched := MatchProduct(products, "Blue Tarp", "", "", 0, 0)
		assert.Len(t, matched, 3)
	})

	t.Run("no candidate matches", func(t *testing.T) {
		matched := MatchProduct(products, "Blue Tarp", "red", "", 0, 0)
		assert.Empty(t, matched)
	})

	t.Run("unknown name matches nothing", func(t *testing.T) {
		matched := MatchProduct(products, "Missing", "", "", 0, 0)
		assert.Empty(t, matched)
	})
}
