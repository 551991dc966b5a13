package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/tarpmill/erp-api/internal/database"
	"github.com/tarpmill/erp-api/internal/models"
	"github.com/tarpmill/erp-api/pkg/logger"
)

// OrderRepository handles database operations for orders and their line items
type OrderRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewOrderRepository creates a new OrderRepository
func NewOrderRepository(db *database.Database, logger logger.Logger) *OrderRepository {
	return &OrderRepository{
		db:     db,
		logger: logger,
	}
}

// BeginTx starts a transaction for multi-step order workflows
func (r *OrderRepository) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	tx, err := r.db.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	return tx, nil
}

const orderColumns = `id, order_id, customer_id, status, total, carrier, delivery_method,
	remarks, ordered_at, created_at, updated_at`

const orderItemColumns = `id, order_id, product_id, quantity, unit, unit_price, line_total,
	color_top, color_bottom, width, length, created_at, updated_at`

// Create inserts an order with its line items in one transaction. A unique
// violation on order_id is surfaced as ErrDuplicate so the caller can
// re-derive the sequential ID and retry.
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	tx, err := r.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := r.CreateInTx(tx, order); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// CreateInTx inserts an order and its items inside an existing transaction
func (r *OrderRepository) CreateInTx(tx *sqlx.Tx, order *models.Order) error {
	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES (:id, :order_id, :customer_id, :status, :total, :carrier, :delivery_method,
			:remarks, :ordered_at, :created_at, :updated_at)
	`

	_, err := tx.NamedExec(query, order)

	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: order_id %s", ErrDuplicate, order.OrderID)
		}
		r.logger.Error("Failed to create order", "error", err, "orderID", order.ID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	for _, item := range order.Items {
		itemQuery := `
			INSERT INTO order_items (` + orderItemColumns + `)
			VALUES (:id, :order_id, :product_id, :quantity, :unit, :unit_price, :line_total,
				:color_top, :color_bottom, :width, :length, :created_at, :updated_at)
		`

		if _, err := tx.NamedExec(itemQuery, item); err != nil {
			r.logger.Error("Failed to create order item", "error", err, "orderID", order.ID, "itemID", item.ID)
			return fmt.Errorf("%w: %v", ErrDatabase, err)
		}
	}

	return nil
}

// GetByID retrieves an order with its line items by row ID
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	var order models.Order
	err := r.db.DB.GetContext(ctx, &order, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get order by ID", "error", err, "orderID", id)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if err := r.loadItems(ctx, &order); err != nil {
		return nil, err
	}

	return &order, nil
}

// GetByOrderID retrieves an order with its line items by its human-readable ID
func (r *OrderRepository) GetByOrderID(ctx context.Context, orderID string) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_id = $1`

	var order models.Order
	err := r.db.DB.GetContext(ctx, &order, query, orderID)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get order by order ID", "error", err, "orderID", orderID)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if err := r.loadItems(ctx, &order); err != nil {
		return nil, err
	}

	return &order, nil
}

func (r *OrderRepository) loadItems(ctx context.Context, order *models.Order) error {
	query := `SELECT ` + orderItemColumns + ` FROM order_items WHERE order_id = $1 ORDER BY created_at`

	err := r.db.DB.SelectContext(ctx, &order.Items, query, order.ID)

	if err != nil {
		r.logger.Error("Failed to load order items", "error", err, "orderID", order.ID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// OrderFilter narrows an order listing
type OrderFilter struct {
	Status     models.OrderStatus
	CustomerID string
	From       time.Time
	To         time.Time
}

// GetAll retrieves orders, optionally filtered by status, customer and
// order date window
func (r *OrderRepository) GetAll(ctx context.Context, filter OrderFilter, limit, offset int) ([]*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE 1=1`
	args := []interface{}{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.CustomerID != "" {
		args = append(args, filter.CustomerID)
		query += fmt.Sprintf(" AND customer_id = $%d", len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		query += fmt.Sprintf(" AND ordered_at >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		query += fmt.Sprintf(" AND ordered_at < $%d", len(args))
	}

	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY ordered_at DESC LIMIT $%d", len(args))
	args = append(args, offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	var orders []*models.Order
	err := r.db.DB.SelectContext(ctx, &orders, query, args...)

	if err != nil {
		r.logger.Error("Failed to get orders", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return orders, nil
}

// UpdateStatus sets an order's status
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) error {
	query := `UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3`

	result, err := r.db.DB.ExecContext(ctx, query, status, models.GetCurrentTime(), id)

	if err != nil {
		r.logger.Error("Failed to update order status", "error", err, "orderID", id)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	rowsAffected, err := result.RowsAffected()

	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// UpdateStatusAndTotalInTx sets an order's status and total inside a transaction
func (r *OrderRepository) UpdateStatusAndTotalInTx(tx *sqlx.Tx, id string, status models.OrderStatus, total float64) error {
	query := `UPDATE orders SET status = $1, total = $2, updated_at = $3 WHERE id = $4`

	result, err := tx.Exec(query, status, total, models.GetCurrentTime(), id)

	if err != nil {
		r.logger.Error("Failed to update order status and total", "error", err, "orderID", id)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	rowsAffected, err := result.RowsAffected()

	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// GetItemsForUpdateInTx loads an order's line items under row locks, in a
// stable order so concurrent dispatches cannot deadlock on lock ordering
func (r *OrderRepository) GetItemsForUpdateInTx(tx *sqlx.Tx, orderID string) ([]*models.OrderItem, error) {
	query := `SELECT ` + orderItemColumns + ` FROM order_items WHERE order_id = $1 ORDER BY id FOR UPDATE`

	var items []*models.OrderItem
	err := tx.Select(&items, query, orderID)

	if err != nil {
		r.logger.Error("Failed to lock order items", "error", err, "orderID", orderID)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return items, nil
}

// UpdateItemQuantityInTx sets a line item's outstanding quantity inside a transaction
func (r *OrderRepository) UpdateItemQuantityInTx(tx *sqlx.Tx, itemID string, quantity int) error {
	query := `UPDATE order_items SET quantity = $1, updated_at = $2 WHERE id = $3`

	result, err := tx.Exec(query, quantity, models.GetCurrentTime(), itemID)

	if err != nil {
		r.logger.Error("Failed to update order item quantity", "error", err, "itemID", itemID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	rowsAffected, err := result.RowsAffected()

	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete deletes an order by row ID; line items cascade
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM orders WHERE id = $1`

	result, err := r.db.DB.ExecContext(ctx, query, id)

	if err != nil {
		r.logger.Error("Failed to delete order", "error", err, "orderID", id)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	rowsAffected, err := result.RowsAffected()

	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// LastOrderID returns the lexicographically largest order_id carrying the
// prefix, or empty when none exists
func (r *OrderRepository) LastOrderID(ctx context.Context, prefix string) (string, error) {
	query := `SELECT COALESCE(MAX(order_id), '') FROM orders WHERE order_id LIKE $1`

	var last string
	err := r.db.DB.GetContext(ctx, &last, query, prefix+"%")

	if err != nil {
		r.logger.Error("Failed to get last order ID", "error", err, "prefix", prefix)
		return "", fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return last, nil
}

// Count counts orders, optionally filtered by status
func (r *OrderRepository) Count(ctx context.Context, status models.OrderStatus) (int, error) {
	var count int
	var err error

	if status != "" {
		err = r.db.DB.GetContext(ctx, &count, `SELECT COUNT(*) FROM orders WHERE status = $1`, status)
	} else {
		err = r.db.DB.GetContext(ctx, &count, `SELECT COUNT(*) FROM orders`)
	}

	if err != nil {
		r.logger.Error("Failed to count orders", "error", err)
		return 0, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return count, nil
}
