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

// DispatchRepository handles database operations for dispatches
type DispatchRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewDispatchRepository creates a new DispatchRepository
func NewDispatchRepository(db *database.Database, logger logger.Logger) *DispatchRepository {
	return &DispatchRepository{
		db:     db,
		logger: logger,
	}
}

const dispatchColumns = `id, dispatch_id, order_id, customer, status, loading_date,
	driver_name, driver_number, car_number, carrier, transportation, tracking_id,
	shipping_address, package_details, remarks, total_amount, created_at, updated_at`

const dispatchItemColumns = `id, dispatch_id, order_item_id, product_name, color_top,
	color_bottom, width, length, delivered_quantity, rate, metric_value, amount`

// CreateInTx inserts a dispatch with its item snapshots inside an existing
// transaction. Unique violations cover two races: a concurrent dispatch that
// won the same dispatch_id (retryable with a fresh ID) and a concurrent
// dispatch for the same order (not retryable; one dispatch per order).
func (r *DispatchRepository) CreateInTx(tx *sqlx.Tx, dispatch *models.Dispatch) error {
	query := `
		INSERT INTO dispatches (` + dispatchColumns + `)
		VALUES (:id, :dispatch_id, :order_id, :customer, :status, :loading_date,
			:driver_name, :driver_number, :car_number, :carrier, :transportation, :tracking_id,
			:shipping_address, :package_details, :remarks, :total_amount, :created_at, :updated_at)
	`

	_, err := tx.NamedExec(query, dispatch)

	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: dispatch for %s", ErrDuplicate, dispatch.DispatchID)
		}
		r.logger.Error("Failed to create dispatch", "error", err, "dispatchID", dispatch.ID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	for _, item := range dispatch.Items {
		itemQuery := `
			INSERT INTO dispatch_items (` + dispatchItemColumns + `)
			VALUES (:id, :dispatch_id, :order_item_id, :product_name, :color_top,
				:color_bottom, :width, :length, :delivered_quantity, :rate, :metric_value, :amount)
		`

		if _, err := tx.NamedExec(itemQuery, item); err != nil {
			r.logger.Error("Failed to create dispatch item", "error", err, "dispatchID", dispatch.ID)
			return fmt.Errorf("%w: %v", ErrDatabase, err)
		}
	}

	return nil
}

// GetByID retrieves a dispatch with its items by row ID
func (r *DispatchRepository) GetByID(ctx context.Context, id string) (*models.Dispatch, error) {
	query := `SELECT ` + dispatchColumns + ` FROM dispatches WHERE id = $1`

	var dispatch models.Dispatch
	err := r.db.DB.GetContext(ctx, &dispatch, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get dispatch by ID", "error", err, "dispatchID", id)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if err := r.loadItems(ctx, &dispatch); err != nil {
		return nil, err
	}

	return &dispatch, nil
}

// GetByDispatchID retrieves a dispatch with its items by its human-readable ID
func (r *DispatchRepository) GetByDispatchID(ctx context.Context, dispatchID string) (*models.Dispatch, error) {
	query := `SELECT ` + dispatchColumns + ` FROM dispatches WHERE dispatch_id = $1`

	var dispatch models.Dispatch
	err := r.db.DB.GetContext(ctx, &dispatch, query, dispatchID)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get dispatch by dispatch ID", "error", err, "dispatchID", dispatchID)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if err := r.loadItems(ctx, &dispatch); err != nil {
		return nil, err
	}

	return &dispatch, nil
}

// GetByOrderID retrieves the dispatch for an order, if any
func (r *DispatchRepository) GetByOrderID(ctx context.Context, orderID string) (*models.Dispatch, error) {
	query := `SELECT ` + dispatchColumns + ` FROM dispatches WHERE order_id = $1`

	var dispatch models.Dispatch
	err := r.db.DB.GetContext(ctx, &dispatch, query, orderID)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get dispatch by order ID", "error", err, "orderID", orderID)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if err := r.loadItems(ctx, &dispatch); err != nil {
		return nil, err
	}

	return &dispatch, nil
}

func (r *DispatchRepository) loadItems(ctx context.Context, dispatch *models.Dispatch) error {
	query := `SELECT ` + dispatchItemColumns + ` FROM dispatch_items WHERE dispatch_id = $1 ORDER BY id`

	err := r.db.DB.SelectContext(ctx, &dispatch.Items, query, dispatch.ID)

	if err != nil {
		r.logger.Error("Failed to load dispatch items", "error", err, "dispatchID", dispatch.ID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// GetAll retrieves dispatches, optionally filtered by status
func (r *DispatchRepository) GetAll(ctx context.Context, status models.DispatchStatus, limit, offset int) ([]*models.Dispatch, error) {
	var dispatches []*models.Dispatch
	var err error

	if status != "" {
		query := `SELECT ` + dispatchColumns + ` FROM dispatches WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		err = r.db.DB.SelectContext(ctx, &dispatches, query, status, limit, offset)
	} else {
		query := `SELECT ` + dispatchColumns + ` FROM dispatches ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		err = r.db.DB.SelectContext(ctx, &dispatches, query, limit, offset)
	}

	if err != nil {
		r.logger.Error("Failed to get dispatches", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return dispatches, nil
}

// UpdateStatus sets a dispatch's status
func (r *DispatchRepository) UpdateStatus(ctx context.Context, id string, status models.DispatchStatus) error {
	query := `UPDATE dispatches SET status = $1, updated_at = $2 WHERE id = $3`

	result, err := r.db.DB.ExecContext(ctx, query, status, models.GetCurrentTime(), id)

	if err != nil {
		r.logger.Error("Failed to update dispatch status", "error", err, "dispatchID", id)
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

// UpdateStatusInTx sets a dispatch's status, and optionally its tracking ID
// and remarks, inside an existing transaction
func (r *DispatchRepository) UpdateStatusInTx(tx *sqlx.Tx, id string, status models.DispatchStatus, trackingID, remarks string) error {
	query := `
		UPDATE dispatches
		SET status = $1,
			tracking_id = COALESCE(NULLIF($2, ''), tracking_id),
			remarks = COALESCE(NULLIF($3, ''), remarks),
			updated_at = $4
		WHERE id = $5
	`

	result, err := tx.Exec(query, status, trackingID, remarks, models.GetCurrentTime(), id)

	if err != nil {
		r.logger.Error("Failed to update dispatch status in tx", "error", err, "dispatchID", id)
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

// UpdateTrackingID sets the carrier tracking reference on a dispatch
func (r *DispatchRepository) UpdateTrackingID(ctx context.Context, id, trackingID string) error {
	query := `UPDATE dispatches SET tracking_id = $1, updated_at = $2 WHERE id = $3`

	result, err := r.db.DB.ExecContext(ctx, query, trackingID, models.GetCurrentTime(), id)

	if err != nil {
		r.logger.Error("Failed to update dispatch tracking ID", "error", err, "dispatchID", id)
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

// LastDispatchID returns the lexicographically largest dispatch_id carrying
// the prefix, or empty when none exists
func (r *DispatchRepository) LastDispatchID(ctx context.Context, prefix string) (string, error) {
	query := `SELECT COALESCE(MAX(dispatch_id), '') FROM dispatches WHERE dispatch_id LIKE $1`

	var last string
	err := r.db.DB.GetContext(ctx, &last, query, prefix+"%")

	if err != nil {
		r.logger.Error("Failed to get last dispatch ID", "error", err, "prefix", prefix)
		return "", fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return last, nil
}

// DailySummary aggregates the dispatches created on one calendar day
type DailySummary struct {
	Count       int     `db:"count"`
	TotalAmount float64 `db:"total_amount"`
}

// SummaryForDay aggregates dispatch count and value for a calendar day
func (r *DispatchRepository) SummaryForDay(ctx context.Context, day time.Time) (*DailySummary, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	query := `
		SELECT COUNT(*) AS count, COALESCE(SUM(total_amount), 0) AS total_amount
		FROM dispatches
		WHERE created_at >= $1 AND created_at < $2
	`

	var summary DailySummary
	err := r.db.DB.GetContext(ctx, &summary, query, start, end)

	if err != nil {
		r.logger.Error("Failed to get dispatch summary", "error", err, "day", start)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &summary, nil
}
