package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductionStatus represents the status of a production batch
type ProductionStatus string

const (
	ProductionStatusPending    ProductionStatus = "PENDING"
	ProductionStatusInProgress ProductionStatus = "IN_PROGRESS"
	ProductionStatusCompleted  ProductionStatus = "COMPLETED"
	ProductionStatusDelayed    ProductionStatus = "DELAYED"
)

// ProductionBatch represents a manufacturing run for a product
type ProductionBatch struct {
	ID        string           `db:"id" json:"id"`
	BatchID   string           `db:"batch_id" json:"batch_id"`
	ProductID string           `db:"product_id" json:"product_id"`
	OrderID   *string          `db:"order_id" json:"order_id,omitempty"`
	Quantity  int              `db:"quantity" json:"quantity"`
	Status    ProductionStatus `db:"status" json:"status"`
	StartDate *time.Time       `db:"start_date" json:"start_date,omitempty"`
	EndDate   *time.Time       `db:"end_date" json:"end_date,omitempty"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
	Materials []*BatchMaterial `db:"-" json:"materials,omitempty"`
}

// BatchMaterial is one raw material consumed by a production batch
type BatchMaterial struct {
	ID            string `db:"id" json:"id"`
	BatchID       string `db:"batch_id" json:"batch_id"`
	RawMaterialID string `db:"raw_material_id" json:"raw_material_id"`
	Quantity      int    `db:"quantity" json:"quantity"`
}

// NewProductionBatch creates a pending batch for a product, optionally tied
// to the order that triggered it. Materials list what the run will consume.
func NewProductionBatch(productID string, orderID *string, quantity int, materials []*BatchMaterial) *ProductionBatch {
	now := GetCurrentTime()

	batch := &ProductionBatch{
		ID:        GenerateID("prd"),
		BatchID:   uuid.New().String(),
		ProductID: productID,
		OrderID:   orderID,
		Quantity:  quantity,
		Status:    ProductionStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	for _, m := range materials {
		m.ID = GenerateID("bmt")
		m.BatchID = batch.ID
	}
	batch.Materials = materials

	return batch
}

// IsValidProductionStatus reports whether the value is a known status
func IsValidProductionStatus(status ProductionStatus) bool {
	switch status {
	case ProductionStatusPending, ProductionStatusInProgress,
		ProductionStatusCompleted, ProductionStatusDelayed:
		return true
	}
	return false
}
