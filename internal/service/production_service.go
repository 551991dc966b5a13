package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/tarpmill/erp-api/internal/models"
	"github.com/tarpmill/erp-api/internal/repository"
	apperrors "github.com/tarpmill/erp-api/pkg/errors"
	"github.com/tarpmill/erp-api/pkg/logger"
)

// BatchMaterialRequest names one raw material a production run will consume
type BatchMaterialRequest struct {
	RawMaterialID string `json:"raw_material_id"`
	Quantity      int    `json:"quantity"`
}

// CreateBatchRequest carries the fields accepted when scheduling production
type CreateBatchRequest struct {
	ProductID string                 `json:"product_id"`
	OrderID   string                 `json:"order_id,omitempty"`
	Quantity  int                    `json:"quantity"`
	Materials []BatchMaterialRequest `json:"materials"`
}

// ProductionService schedules and completes manufacturing runs
type ProductionService struct {
	productionRepo *repository.ProductionRepository
	productRepo    *repository.ProductRepository
	materialRepo   *repository.RawMaterialRepository
	orderRepo      *repository.OrderRepository
	inventory      *InventoryService
	logger         logger.Logger
}

// NewProductionService creates a new ProductionService
func NewProductionService(
	productionRepo *repository.ProductionRepository,
	productRepo *repository.ProductRepository,
	materialRepo *repository.RawMaterialRepository,
	orderRepo *repository.OrderRepository,
	inventory *InventoryService,
	logger logger.Logger,
) *ProductionService {
	return &ProductionService{
		productionRepo: productionRepo,
		productRepo:    productRepo,
		materialRepo:   materialRepo,
		orderRepo:      orderRepo,
		inventory:      inventory,
		logger:         logger,
	}
}

// CreateBatch schedules a production run after verifying the product exists
// and every listed raw material has enough stock to cover the run
func (s *ProductionService) CreateBatch(ctx context.Context, req *CreateBatchRequest) (*models.ProductionBatch, error) {
	if req.Quantity <= 0 {
		return nil, apperrors.NewInvalidInputError("quantity must be positive")
	}

	if _, err := s.productRepo.GetByID(ctx, req.ProductID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("product %s not found", req.ProductID))
		}
		return nil, apperrors.NewInternalError("failed to load product")
	}

	var orderID *string
	if req.OrderID != "" {
		order, err := s.orderRepo.GetByID(ctx, req.OrderID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperrors.NewNotFoundError(fmt.Sprintf("order %s not found", req.OrderID))
			}
			return nil, apperrors.NewInternalError("failed to load order")
		}
		orderID = &order.ID
	}

	var materials []*models.BatchMaterial
	for i, matReq := range req.Materials {
		if matReq.Quantity <= 0 {
			return nil, apperrors.NewInvalidInputError(fmt.Sprintf("material %d has non-positive quantity", i))
		}

		material, err := s.materialRepo.GetByID(ctx, matReq.RawMaterialID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperrors.NewNotFoundError(fmt.Sprintf("raw material %s not found", matReq.RawMaterialID))
			}
			return nil, apperrors.NewInternalError("failed to load raw material")
		}

		if material.Stock < matReq.Quantity {
			return nil, apperrors.NewInvalidInputError(fmt.Sprintf(
				"raw material %s has %d in stock, %d required", material.ItemID, material.Stock, matReq.Quantity))
		}

		materials = append(materials, &models.BatchMaterial{
			RawMaterialID: matReq.RawMaterialID,
			Quantity:      matReq.Quantity,
		})
	}

	batch := models.NewProductionBatch(req.ProductID, orderID, req.Quantity, materials)

	if err := s.productionRepo.Create(ctx, batch); err != nil {
		return nil, apperrors.NewInternalError("failed to create production batch")
	}

	s.logger.Info("Production batch created",
		"batch_id", batch.BatchID, "product_id", batch.ProductID, "quantity", batch.Quantity)
	return batch, nil
}

// GetBatch retrieves a production batch by its row ID
func (s *ProductionService) GetBatch(ctx context.Context, id string) (*models.ProductionBatch, error) {
	batch, err := s.productionRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("production batch %s not found", id))
		}
		return nil, apperrors.NewInternalError("failed to load production batch")
	}
	return batch, nil
}

// GetSchedule lists production batches with an optional status filter
func (s *ProductionService) GetSchedule(ctx context.Context, status models.ProductionStatus, limit, offset int) ([]*models.ProductionBatch, error) {
	if status != "" && !models.IsValidProductionStatus(status) {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("unknown production status %s", status))
	}

	batches, err := s.productionRepo.GetAll(ctx, status, limit, offset)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list production batches")
	}
	return batches, nil
}

// UpdateBatchStatus moves a batch along its lifecycle. Completing a batch
// increments the product's stock and consumes the batch's raw materials
// through the ledger.
func (s *ProductionService) UpdateBatchStatus(ctx context.Context, id string, newStatus models.ProductionStatus) (*models.ProductionBatch, error) {
	if !models.IsValidProductionStatus(newStatus) {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("unknown production status %s", newStatus))
	}

	batch, err := s.GetBatch(ctx, id)
	if err != nil {
		return nil, err
	}

	if batch.Status == newStatus {
		return batch, nil
	}

	if batch.Status == models.ProductionStatusCompleted {
		return nil, apperrors.NewConflictError(fmt.Sprintf("batch %s is already completed", batch.BatchID))
	}

	now := models.GetCurrentTime()
	oldStatus := batch.Status
	batch.Status = newStatus

	if newStatus == models.ProductionStatusInProgress && batch.StartDate == nil {
		batch.StartDate = &now
	}
	if newStatus == models.ProductionStatusCompleted {
		batch.EndDate = &now
	}

	if err := s.productionRepo.Update(ctx, batch); err != nil {
		return nil, apperrors.NewInternalError("failed to update production batch")
	}

	if newStatus == models.ProductionStatusCompleted {
		if _, err := s.inventory.AdjustProductStock(ctx, batch.ProductID, batch.Quantity); err != nil {
			s.logger.Error("Failed to add produced stock",
				"batch_id", batch.BatchID, "product_id", batch.ProductID, "error", err)
		}

		for _, m := range batch.Materials {
			if _, err := s.inventory.AdjustMaterialStock(ctx, m.RawMaterialID, -m.Quantity); err != nil {
				s.logger.Error("Failed to consume raw material",
					"batch_id", batch.BatchID, "raw_material_id", m.RawMaterialID, "error", err)
			}
		}
	}

	s.logger.Info("Production batch status updated",
		"batch_id", batch.BatchID, "old_status", oldStatus, "new_status", newStatus)
	return batch, nil
}
