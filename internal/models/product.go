package models

import (
	"time"
)

// StockStatus classifies a stock-keeping entity by its quantity on hand
type StockStatus string

const (
	StockStatusInStock    StockStatus = "IN_STOCK"
	StockStatusLowStock   StockStatus = "LOW_STOCK"
	StockStatusOutOfStock StockStatus = "OUT_OF_STOCK"
)

// ProductType distinguishes the two finished-good forms
type ProductType string

const (
	ProductTypeRoll   ProductType = "ROLL"
	ProductTypeBundle ProductType = "BUNDLE"
)

// Product represents a finished good in inventory
type Product struct {
	ID              string      `db:"id" json:"id"`
	ItemID          string      `db:"item_id" json:"item_id"`
	Name            string      `db:"name" json:"name"`
	Type            ProductType `db:"type" json:"type"`
	Category        string      `db:"category" json:"category"`
	GSM             int         `db:"gsm" json:"gsm"`
	ColorTop        string      `db:"color_top" json:"color_top,omitempty"`
	ColorBottom     string      `db:"color_bottom" json:"color_bottom,omitempty"`
	Width           float64     `db:"width" json:"width,omitempty"`
	Length          float64     `db:"length" json:"length,omitempty"`
	Weight          float64     `db:"weight" json:"weight,omitempty"`
	RollType        string      `db:"roll_type" json:"roll_type,omitempty"`
	PiecesPerBundle int         `db:"pieces_per_bundle" json:"pieces_per_bundle,omitempty"`
	Unit            string      `db:"unit" json:"unit"`
	Price           float64     `db:"price" json:"price"`
	Stock           int         `db:"stock" json:"stock"`
	ReorderLevel    int         `db:"reorder_level" json:"reorder_level"`
	UnitsSold       int         `db:"units_sold" json:"units_sold"`
	Status          StockStatus `db:"status" json:"status"`
	Remarks         string      `db:"remarks" json:"remarks,omitempty"`
	CreatedAt       time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at" json:"updated_at"`
}

// RawMaterial represents an input material in inventory
type RawMaterial struct {
	ID           string      `db:"id" json:"id"`
	ItemID       string      `db:"item_id" json:"item_id"`
	Name         string      `db:"name" json:"name"`
	Supplier     string      `db:"supplier" json:"supplier,omitempty"`
	Category     string      `db:"category" json:"category"`
	Stock        int         `db:"stock" json:"stock"`
	Unit         string      `db:"unit" json:"unit"`
	Price        float64     `db:"price" json:"price"`
	ReorderLevel int         `db:"reorder_level" json:"reorder_level"`
	Status       StockStatus `db:"status" json:"status"`
	Remarks      string      `db:"remarks" json:"remarks,omitempty"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updated_at"`
}

// StockStatusFor derives the status classification from a quantity and its
// reorder threshold. Status is always a function of these two values and is
// recomputed on every stock write, never set on its own.
func StockStatusFor(stock, reorderLevel int) StockStatus {
	switch {
	case stock <= 0:
		return StockStatusOutOfStock
	case reorderLevel > 0 && stock <= reorderLevel:
		return StockStatusLowStock
	default:
		return StockStatusInStock
	}
}

// ClampStockDecrement applies a decrement that floors at zero. It returns the
// new stock level and the quantity actually applied; the difference between
// amount and applied is the shortfall callers may want to report.
func ClampStockDecrement(stock, amount int) (newStock, applied int) {
	newStock = stock - amount
	if newStock < 0 {
		newStock = 0
	}
	return newStock, stock - newStock
}

// MatchProduct resolves a product from a list by its descriptive attribute
// tuple: name plus any of the dimensional/color attributes that are set on
// the query. Zero values on the query act as wildcards. Exactly one candidate
// must remain; otherwise ErrNoMatch or ErrAmbiguousMatch is signalled by the
// caller through the returned count.
func MatchProduct(products []*Product, name, colorTop, colorBottom string, width, length float64) []*Product {
	var matched []*Product

	for _, p := range products {
		if p.Name != name {
			continue
		}
		if colorTop != "" && p.ColorTop != colorTop {
			continue
		}
		if colorBottom != "" && p.ColorBottom != colorBottom {
			continue
		}
		if width > 0 && p.Width != width {
			continue
		}
		if length > 0 && p.Length != length {
			continue
		}
		matched = append(matched, p)
	}

	return matched
}
