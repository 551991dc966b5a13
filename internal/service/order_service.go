package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/tarpmill/erp-api/internal/models"
	"github.com/tarpmill/erp-api/internal/repository"
	"github.com/tarpmill/erp-api/internal/sequence"
	apperrors "github.com/tarpmill/erp-api/pkg/errors"
	"github.com/tarpmill/erp-api/pkg/logger"
	"github.com/tarpmill/erp-api/pkg/retry"
)

// orderIDPrefix is the numbering space for human-readable order IDs
const orderIDPrefix = "ORD"

// allocationAttempts bounds the insert-retry loop that resolves ID races
const allocationAttempts = 3

// OrderItemRequest is one requested line of a new order
type OrderItemRequest struct {
	ProductID   string  `json:"product_id"`
	Quantity    int     `json:"quantity"`
	Unit        string  `json:"unit,omitempty"`
	ColorTop    string  `json:"color_top,omitempty"`
	ColorBottom string  `json:"color_bottom,omitempty"`
	Width       float64 `json:"width,omitempty"`
	Length      float64 `json:"length,omitempty"`
}

// CreateOrderRequest carries the fields accepted when placing an order
type CreateOrderRequest struct {
	CustomerID     string             `json:"customer_id"`
	Carrier        string             `json:"carrier,omitempty"`
	DeliveryMethod string             `json:"delivery_method,omitempty"`
	Remarks        string             `json:"remarks,omitempty"`
	Items          []OrderItemRequest `json:"items"`
}

// OrderService handles order-related operations
type OrderService struct {
	orderRepo    *repository.OrderRepository
	customerRepo *repository.CustomerRepository
	productRepo  *repository.ProductRepository
	dispatchRepo *repository.DispatchRepository
	outboxRepo   *repository.OutboxRepository
	allocator    *sequence.Allocator
	logger       logger.Logger
}

// NewOrderService creates a new OrderService
func NewOrderService(
	orderRepo *repository.OrderRepository,
	customerRepo *repository.CustomerRepository,
	productRepo *repository.ProductRepository,
	dispatchRepo *repository.DispatchRepository,
	outboxRepo *repository.OutboxRepository,
	logger logger.Logger,
) *OrderService {
	return &OrderService{
		orderRepo:    orderRepo,
		customerRepo: customerRepo,
		productRepo:  productRepo,
		dispatchRepo: dispatchRepo,
		outboxRepo:   outboxRepo,
		allocator:    sequence.New(orderRepo.LastOrderID),
		logger:       logger,
	}
}

// CreateOrder validates the request, prices the items from the current
// product prices and inserts the order with a freshly allocated ORD id.
// Losing the id race surfaces as a unique violation; the whole build is
// retried with a re-derived candidate.
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*models.Order, error) {
	if req.CustomerID == "" {
		return nil, apperrors.NewInvalidInputError("customer_id is required")
	}
	if len(req.Items) == 0 {
		return nil, apperrors.NewInvalidInputError("order must have at least one item")
	}

	if _, err := s.customerRepo.GetByID(ctx, req.CustomerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("customer %s not found", req.CustomerID))
		}
		return nil, apperrors.NewInternalError("failed to load customer")
	}

	var items []*models.OrderItem
	for i, itemReq := range req.Items {
		if itemReq.Quantity <= 0 {
			return nil, apperrors.NewInvalidInputError(fmt.Sprintf("item %d has non-positive quantity", i))
		}

		product, err := s.productRepo.GetByID(ctx, itemReq.ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperrors.NewNotFoundError(fmt.Sprintf("product %s not found", itemReq.ProductID))
			}
			return nil, apperrors.NewInternalError("failed to load product")
		}

		items = append(items, models.NewOrderItem(
			product, itemReq.Quantity, itemReq.Unit,
			itemReq.ColorTop, itemReq.ColorBottom, itemReq.Width, itemReq.Length,
		))
	}

	var order *models.Order

	createOnce := func() error {
		orderID, err := s.allocator.Next(ctx, orderIDPrefix)
		if err != nil {
			return apperrors.NewInternalError("failed to allocate order id")
		}

		order = models.NewOrder(orderID, req.CustomerID, req.Carrier, req.DeliveryMethod, req.Remarks, items)

		outboxMsg, err := models.NewOrderCreatedEvent(order)
		if err != nil {
			s.logger.Error("Failed to create outbox message", "error", err)
			return apperrors.NewInternalError("failed to encode order event")
		}

		tx, err := s.orderRepo.BeginTx(ctx)
		if err != nil {
			return apperrors.NewInternalError("failed to begin transaction")
		}
		defer tx.Rollback()

		if err := s.orderRepo.CreateInTx(tx, order); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperrors.NewDuplicateIDError(fmt.Sprintf("order id %s already taken", orderID))
			}
			return apperrors.NewInternalError("failed to create order")
		}

		if err := s.outboxRepo.CreateInTx(tx, outboxMsg); err != nil {
			return apperrors.NewInternalError("failed to queue order event")
		}

		if err := tx.Commit(); err != nil {
			s.logger.Error("Failed to commit order transaction", "error", err)
			return apperrors.NewInternalError("failed to commit order")
		}

		return nil
	}

	err := retry.Retry(ctx, createOnce, &retry.RetryConfig{
		MaxAttempts:     allocationAttempts,
		BackoffStrategy: &retry.ConstantBackoff{Interval: 0},
		Logger:          s.logger,
		RetryableErrors: []error{apperrors.ErrDuplicateID},
	})

	if err != nil {
		return nil, err
	}

	s.logger.Info("Order created", "order_id", order.OrderID, "customer_id", order.CustomerID, "total", order.Total)
	return order, nil
}

// GetOrder retrieves an order with its line items by row ID or human ID
func (s *OrderService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		order, err = s.orderRepo.GetByOrderID(ctx, id)
	}

	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("order %s not found", id))
		}
		return nil, apperrors.NewInternalError("failed to load order")
	}

	return order, nil
}

// GetOrderDetails returns an order together with its dispatch, if one exists
func (s *OrderService) GetOrderDetails(ctx context.Context, id string) (*models.Order, *models.Dispatch, error) {
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	dispatch, err := s.dispatchRepo.GetByOrderID(ctx, order.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return order, nil, nil
		}
		return nil, nil, apperrors.NewInternalError("failed to load dispatch")
	}

	return order, dispatch, nil
}

// ListOrders retrieves orders with optional status, customer and date filters
func (s *OrderService) ListOrders(ctx context.Context, filter repository.OrderFilter, limit, offset int) ([]*models.Order, error) {
	if filter.Status != "" && !models.IsUpdatableOrderStatus(filter.Status) &&
		filter.Status != models.OrderStatusShipped && filter.Status != models.OrderStatusDelivered {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("unknown order status %s", filter.Status))
	}

	orders, err := s.orderRepo.GetAll(ctx, filter, limit, offset)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list orders")
	}

	return orders, nil
}

// UpdateOrderStatus applies a direct status change. SHIPPED and DELIVERED are
// rejected here; only a dispatch can move an order into those states.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id string, newStatus models.OrderStatus) (*models.Order, error) {
	if !models.IsUpdatableOrderStatus(newStatus) {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("status %s cannot be set directly", newStatus))
	}

	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	if order.Status == newStatus {
		return order, nil
	}

	if models.IsTerminalOrderStatus(order.Status) {
		return nil, apperrors.NewConflictError(fmt.Sprintf("order %s is %s and cannot change status", order.OrderID, order.Status))
	}

	oldStatus := order.Status
	order.Status = newStatus

	outboxMsg, err := models.NewOrderStatusChangedEvent(order, oldStatus)
	if err != nil {
		s.logger.Error("Failed to create outbox message", "error", err)
		return nil, apperrors.NewInternalError("failed to encode status event")
	}

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to begin transaction")
	}
	defer tx.Rollback()

	if err := s.orderRepo.UpdateStatusAndTotalInTx(tx, order.ID, newStatus, order.Total); err != nil {
		return nil, apperrors.NewInternalError("failed to update order status")
	}

	if err := s.outboxRepo.CreateInTx(tx, outboxMsg); err != nil {
		return nil, apperrors.NewInternalError("failed to queue status event")
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("Failed to commit status transaction", "error", err)
		return nil, apperrors.NewInternalError("failed to commit status change")
	}

	s.logger.Info("Order status updated", "order_id", order.OrderID, "old_status", oldStatus, "new_status", newStatus)
	return order, nil
}

// DeleteOrder removes an order that has not been dispatched
func (s *OrderService) DeleteOrder(ctx context.Context, id string) error {
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return err
	}

	if _, err := s.dispatchRepo.GetByOrderID(ctx, order.ID); err == nil {
		return apperrors.NewConflictError(fmt.Sprintf("order %s has a dispatch and cannot be deleted", order.OrderID))
	} else if !errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewInternalError("failed to check dispatch")
	}

	if err := s.orderRepo.Delete(ctx, order.ID); err != nil {
		return apperrors.NewInternalError("failed to delete order")
	}

	s.logger.Info("Order deleted", "order_id", order.OrderID)
	return nil
}
