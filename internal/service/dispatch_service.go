package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tarpmill/erp-api/internal/clients"
	"github.com/tarpmill/erp-api/internal/models"
	"github.com/tarpmill/erp-api/internal/repository"
	"github.com/tarpmill/erp-api/internal/sequence"
	apperrors "github.com/tarpmill/erp-api/pkg/errors"
	"github.com/tarpmill/erp-api/pkg/logger"
	"github.com/tarpmill/erp-api/pkg/retry"
)

// dispatchIDPrefix is the numbering space for human-readable dispatch IDs,
// independent of the order numbering
const dispatchIDPrefix = "DIS"

// dispatchTxTimeout bounds the reconciliation transaction. Everything inside
// it holds row locks on the order's items.
const dispatchTxTimeout = 10 * time.Second

// DispatchService runs the order-to-dispatch workflow
type DispatchService struct {
	dispatchRepo *repository.DispatchRepository
	orderRepo    *repository.OrderRepository
	productRepo  *repository.ProductRepository
	outboxRepo   *repository.OutboxRepository
	carrier      *clients.CarrierClient
	allocator    *sequence.Allocator
	logger       logger.Logger
}

// NewDispatchService creates a new DispatchService
func NewDispatchService(
	dispatchRepo *repository.DispatchRepository,
	orderRepo *repository.OrderRepository,
	productRepo *repository.ProductRepository,
	outboxRepo *repository.OutboxRepository,
	carrier *clients.CarrierClient,
	logger logger.Logger,
) *DispatchService {
	return &DispatchService{
		dispatchRepo: dispatchRepo,
		orderRepo:    orderRepo,
		productRepo:  productRepo,
		outboxRepo:   outboxRepo,
		carrier:      carrier,
		allocator:    sequence.New(dispatchRepo.LastDispatchID),
		logger:       logger,
	}
}

// CreateDispatch records a shipment for an order. Phase 1 is atomic: the
// dispatch snapshot, the order item decrements and the order's possible move
// to SHIPPED commit or roll back together. Phase 2, the finished-goods stock
// bookkeeping, runs after commit per manifest entry; its failures are logged
// and published as stock_drift events but never fail the call.
func (s *DispatchService) CreateDispatch(ctx context.Context, orderID string, manifest []models.ManifestEntry, meta models.ShipmentMeta) (*models.Dispatch, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) {
		order, err = s.orderRepo.GetByOrderID(ctx, orderID)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("order %s not found", orderID))
		}
		return nil, apperrors.NewInternalError("failed to load order")
	}

	if models.IsTerminalOrderStatus(order.Status) {
		return nil, apperrors.NewConflictError(fmt.Sprintf("order %s is %s and cannot be dispatched", order.OrderID, order.Status))
	}

	if _, err := s.dispatchRepo.GetByOrderID(ctx, order.ID); err == nil {
		return nil, apperrors.NewConflictError(fmt.Sprintf("order %s already has a dispatch", order.OrderID))
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewInternalError("failed to check existing dispatch")
	}

	if err := models.ValidateManifest(order, manifest); err != nil {
		return nil, apperrors.NewInvalidInputError(err.Error())
	}

	if meta.Customer == "" {
		meta.Customer = order.CustomerID
	}
	if meta.Carrier == "" {
		meta.Carrier = order.Carrier
	}

	var dispatch *models.Dispatch

	createOnce := func() error {
		txCtx, cancel := context.WithTimeout(ctx, dispatchTxTimeout)
		defer cancel()

		dispatchID, err := s.allocator.Next(txCtx, dispatchIDPrefix)
		if err != nil {
			return apperrors.NewInternalError("failed to allocate dispatch id")
		}

		dispatch = models.NewDispatch(dispatchID, order, manifest, meta)

		tx, err := s.orderRepo.BeginTx(txCtx)
		if err != nil {
			return apperrors.NewInternalError("failed to begin transaction")
		}
		defer tx.Rollback()

		if err := s.dispatchRepo.CreateInTx(tx, dispatch); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperrors.NewDuplicateIDError(fmt.Sprintf("dispatch id %s already taken", dispatchID))
			}
			return apperrors.NewInternalError("failed to create dispatch")
		}

		items, err := s.orderRepo.GetItemsForUpdateInTx(tx, order.ID)
		if err != nil {
			return apperrors.NewInternalError("failed to lock order items")
		}

		newQuantities, fullyDelivered := models.ApplyDeliveries(items, manifest)

		for itemID, quantity := range newQuantities {
			if err := s.orderRepo.UpdateItemQuantityInTx(tx, itemID, quantity); err != nil {
				return apperrors.NewInternalError("failed to update order item quantity")
			}
		}

		outboxMsg, err := models.NewDispatchCreatedEvent(dispatch)
		if err != nil {
			return apperrors.NewInternalError("failed to encode dispatch event")
		}
		if err := s.outboxRepo.CreateInTx(tx, outboxMsg); err != nil {
			return apperrors.NewInternalError("failed to queue dispatch event")
		}

		if fullyDelivered {
			oldStatus := order.Status
			order.Status = models.OrderStatusShipped
			order.Total = models.AccumulateDispatchValue(order.Total, dispatch.TotalAmount)

			if err := s.orderRepo.UpdateStatusAndTotalInTx(tx, order.ID, order.Status, order.Total); err != nil {
				order.Status, order.Total = oldStatus, order.Total-dispatch.TotalAmount
				return apperrors.NewInternalError("failed to update order")
			}

			statusMsg, err := models.NewOrderStatusChangedEvent(order, oldStatus)
			if err != nil {
				return apperrors.NewInternalError("failed to encode status event")
			}
			if err := s.outboxRepo.CreateInTx(tx, statusMsg); err != nil {
				return apperrors.NewInternalError("failed to queue status event")
			}
		}

		if err := tx.Commit(); err != nil {
			s.logger.Error("Failed to commit dispatch transaction", "error", err, "dispatch_id", dispatchID)
			return apperrors.NewInternalError("failed to commit dispatch")
		}

		return nil
	}

	err = retry.Retry(ctx, createOnce, &retry.RetryConfig{
		MaxAttempts:     allocationAttempts,
		BackoffStrategy: &retry.ConstantBackoff{Interval: 0},
		Logger:          s.logger,
		RetryableErrors: []error{apperrors.ErrDuplicateID},
	})

	if err != nil {
		return nil, err
	}

	s.logger.Info("Dispatch created",
		"dispatch_id", dispatch.DispatchID,
		"order_id", order.OrderID,
		"total_amount", dispatch.TotalAmount,
		"order_status", order.Status)

	s.reconcileStock(ctx, dispatch)

	return dispatch, nil
}

// reconcileStock is phase two: per dispatch item, resolve the product by its
// attribute tuple and decrement finished-goods stock by what was delivered.
// Every failure mode is recorded as a stock_drift event.
func (s *DispatchService) reconcileStock(ctx context.Context, dispatch *models.Dispatch) {
	for _, item := range dispatch.Items {
		product, err := s.resolveProduct(ctx, item)

		if err != nil {
			s.logger.Warn("Stock reconciliation skipped for dispatch item",
				"dispatch_id", dispatch.DispatchID,
				"product_name", item.ProductName,
				"error", err)
			s.recordDrift(ctx, models.StockDriftData{
				DispatchID:  dispatch.DispatchID,
				ProductName: item.ProductName,
				Requested:   item.DeliveredQuantity,
				Applied:     0,
				Reason:      err.Error(),
			})
			continue
		}

		adjustment, err := s.productRepo.AdjustStock(ctx, product.ID, -item.DeliveredQuantity, true)

		if err != nil {
			s.logger.Error("Stock decrement failed for dispatch item",
				"dispatch_id", dispatch.DispatchID,
				"product_id", product.ID,
				"error", err)
			s.recordDrift(ctx, models.StockDriftData{
				DispatchID:  dispatch.DispatchID,
				ProductID:   product.ID,
				ProductName: item.ProductName,
				Requested:   item.DeliveredQuantity,
				Applied:     0,
				Reason:      "stock update failed",
			})
			continue
		}

		if adjustment.Shortage > 0 {
			s.logger.Warn("Stock shortfall during dispatch reconciliation",
				"dispatch_id", dispatch.DispatchID,
				"product_id", product.ID,
				"requested", item.DeliveredQuantity,
				"shortage", adjustment.Shortage)
			s.recordDrift(ctx, models.StockDriftData{
				DispatchID:  dispatch.DispatchID,
				ProductID:   product.ID,
				ProductName: item.ProductName,
				Requested:   item.DeliveredQuantity,
				Applied:     item.DeliveredQuantity - adjustment.Shortage,
				Reason:      "insufficient stock",
			})
		}

		if adjustment.Product.Status != models.StockStatusInStock {
			s.recordLowStock(ctx, adjustment.Product)
		}
	}
}

func (s *DispatchService) resolveProduct(ctx context.Context, item *models.DispatchItem) (*models.Product, error) {
	candidates, err := s.productRepo.GetCandidatesByName(ctx, item.ProductName)
	if err != nil {
		return nil, err
	}

	matched := models.MatchProduct(candidates, item.ProductName, item.ColorTop, item.ColorBottom, item.Width, item.Length)

	switch len(matched) {
	case 0:
		return nil, fmt.Errorf("%w: no product matches %q", apperrors.ErrNoMatch, item.ProductName)
	case 1:
		return matched[0], nil
	default:
		return nil, fmt.Errorf("%w: %d products match %q", apperrors.ErrAmbiguousMatch, len(matched), item.ProductName)
	}
}

func (s *DispatchService) recordDrift(ctx context.Context, data models.StockDriftData) {
	msg, err := models.NewStockDriftEvent(data)
	if err != nil {
		s.logger.Error("Failed to encode stock drift event", "error", err)
		return
	}

	if err := s.outboxRepo.Create(ctx, msg); err != nil {
		s.logger.Error("Failed to record stock drift event", "error", err)
	}
}

func (s *DispatchService) recordLowStock(ctx context.Context, product *models.Product) {
	msg, err := models.NewLowStockEvent(product.ID, product.Name, product.Stock, product.ReorderLevel, product.Status)
	if err != nil {
		s.logger.Error("Failed to encode low stock event", "error", err)
		return
	}

	if err := s.outboxRepo.Create(ctx, msg); err != nil {
		s.logger.Error("Failed to record low stock event", "error", err)
	}
}

// GetDispatch retrieves a dispatch by row ID or human ID
func (s *DispatchService) GetDispatch(ctx context.Context, id string) (*models.Dispatch, error) {
	dispatch, err := s.dispatchRepo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		dispatch, err = s.dispatchRepo.GetByDispatchID(ctx, id)
	}

	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("dispatch %s not found", id))
		}
		return nil, apperrors.NewInternalError("failed to load dispatch")
	}

	return dispatch, nil
}

// ListDispatches retrieves dispatches with an optional status filter
func (s *DispatchService) ListDispatches(ctx context.Context, status models.DispatchStatus, limit, offset int) ([]*models.Dispatch, error) {
	if status != "" && !models.IsValidDispatchStatus(status) {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("unknown dispatch status %s", status))
	}

	dispatches, err := s.dispatchRepo.GetAll(ctx, status, limit, offset)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list dispatches")
	}

	return dispatches, nil
}

// TodaySummary aggregates today's dispatch count and value plus the most
// recent dispatches
func (s *DispatchService) TodaySummary(ctx context.Context, recent int) (*repository.DailySummary, []*models.Dispatch, error) {
	summary, err := s.dispatchRepo.SummaryForDay(ctx, models.GetCurrentTime())
	if err != nil {
		return nil, nil, apperrors.NewInternalError("failed to summarize dispatches")
	}

	dispatches, err := s.dispatchRepo.GetAll(ctx, "", recent, 0)
	if err != nil {
		return nil, nil, apperrors.NewInternalError("failed to list recent dispatches")
	}

	return summary, dispatches, nil
}

// UpdateDispatchStatus moves a dispatch along its state machine. Reaching
// DELIVERED forces the linked order to DELIVERED in the same transaction.
func (s *DispatchService) UpdateDispatchStatus(ctx context.Context, id string, newStatus models.DispatchStatus, trackingID, remarks string) (*models.Dispatch, error) {
	if !models.IsValidDispatchStatus(newStatus) {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("unknown dispatch status %s", newStatus))
	}

	dispatch, err := s.GetDispatch(ctx, id)
	if err != nil {
		return nil, err
	}

	if dispatch.Status == newStatus {
		return dispatch, nil
	}

	if !models.CanTransitionDispatch(dispatch.Status, newStatus) {
		return nil, apperrors.NewConflictError(fmt.Sprintf("dispatch %s cannot move from %s to %s", dispatch.DispatchID, dispatch.Status, newStatus))
	}

	oldStatus := dispatch.Status
	dispatch.Status = newStatus
	if trackingID != "" {
		dispatch.TrackingID = trackingID
	}
	if remarks != "" {
		dispatch.Remarks = remarks
	}

	outboxMsg, err := models.NewDispatchStatusChangedEvent(dispatch, oldStatus)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to encode dispatch status event")
	}

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to begin transaction")
	}
	defer tx.Rollback()

	if err := s.dispatchRepo.UpdateStatusInTx(tx, dispatch.ID, newStatus, trackingID, remarks); err != nil {
		return nil, apperrors.NewInternalError("failed to update dispatch status")
	}

	if err := s.outboxRepo.CreateInTx(tx, outboxMsg); err != nil {
		return nil, apperrors.NewInternalError("failed to queue dispatch status event")
	}

	if newStatus == models.DispatchStatusDelivered {
		order, err := s.orderRepo.GetByID(ctx, dispatch.OrderID)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to load order for delivery cascade")
		}

		if order.Status != models.OrderStatusDelivered {
			oldOrderStatus := order.Status
			order.Status = models.OrderStatusDelivered

			if err := s.orderRepo.UpdateStatusAndTotalInTx(tx, order.ID, order.Status, order.Total); err != nil {
				return nil, apperrors.NewInternalError("failed to cascade delivery to order")
			}

			statusMsg, err := models.NewOrderStatusChangedEvent(order, oldOrderStatus)
			if err != nil {
				return nil, apperrors.NewInternalError("failed to encode order status event")
			}
			if err := s.outboxRepo.CreateInTx(tx, statusMsg); err != nil {
				return nil, apperrors.NewInternalError("failed to queue order status event")
			}
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("Failed to commit dispatch status transaction", "error", err, "dispatch_id", dispatch.DispatchID)
		return nil, apperrors.NewInternalError("failed to commit dispatch status")
	}

	s.logger.Info("Dispatch status updated",
		"dispatch_id", dispatch.DispatchID,
		"old_status", oldStatus,
		"new_status", newStatus)

	return dispatch, nil
}

// SyncDispatch refreshes a dispatch from the carrier's tracking feed and
// applies any status change through the normal transition rules
func (s *DispatchService) SyncDispatch(ctx context.Context, id string) (*models.Dispatch, error) {
	dispatch, err := s.GetDispatch(ctx, id)
	if err != nil {
		return nil, err
	}

	if dispatch.TrackingID == "" {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("dispatch %s has no tracking id", dispatch.DispatchID))
	}

	tracking, err := s.carrier.GetTrackingStatus(ctx, dispatch.TrackingID)
	if err != nil {
		return nil, err
	}

	mapped, ok := mapCarrierStatus(tracking.Status)
	if !ok {
		s.logger.Warn("Unknown carrier status ignored",
			"dispatch_id", dispatch.DispatchID,
			"carrier_status", tracking.Status)
		return dispatch, nil
	}

	if mapped == dispatch.Status {
		return dispatch, nil
	}

	return s.UpdateDispatchStatus(ctx, dispatch.ID, mapped, "", "")
}

func mapCarrierStatus(status string) (models.DispatchStatus, bool) {
	switch status {
	case clients.CarrierStatusPickedUp, clients.CarrierStatusInTransit:
		return models.DispatchStatusInTransit, true
	case clients.CarrierStatusDelivered:
		return models.DispatchStatusDelivered, true
	case clients.CarrierStatusDelayed:
		return models.DispatchStatusDelayed, true
	default:
		return "", false
	}
}
