package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tarpmill/erp-api/internal/database"
	"github.com/tarpmill/erp-api/internal/models"
	"github.com/tarpmill/erp-api/pkg/logger"
)

// ProductionRepository handles database operations for production batches
type ProductionRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewProductionRepository creates a new ProductionRepository
func NewProductionRepository(db *database.Database, logger logger.Logger) *ProductionRepository {
	return &ProductionRepository{
		db:     db,
		logger: logger,
	}
}

const batchColumns = `id, batch_id, product_id, order_id, quantity, status,
	start_date, end_date, created_at, updated_at`

// Create inserts a new production batch with its material requirements in
// one transaction
func (r *ProductionRepository) Create(ctx context.Context, batch *models.ProductionBatch) error {
	tx, err := r.db.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO production_batches (` + batchColumns + `)
		VALUES (:id, :batch_id, :product_id, :order_id, :quantity, :status,
			:start_date, :end_date, :created_at, :updated_at)
	`

	if _, err := tx.NamedExec(query, batch); err != nil {
		r.logger.Error("Failed to create production batch", "error", err, "batchID", batch.ID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	for _, m := range batch.Materials {
		materialQuery := `
			INSERT INTO batch_materials (id, batch_id, raw_material_id, quantity)
			VALUES (:id, :batch_id, :raw_material_id, :quantity)
		`

		if _, err := tx.NamedExec(materialQuery, m); err != nil {
			r.logger.Error("Failed to create batch material", "error", err, "batchID", batch.ID)
			return fmt.Errorf("%w: %v", ErrDatabase, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// GetByID retrieves a production batch by its row ID
func (r *ProductionRepository) GetByID(ctx context.Context, id string) (*models.ProductionBatch, error) {
	query := `SELECT ` + batchColumns + ` FROM production_batches WHERE id = $1`

	var batch models.ProductionBatch
	err := r.db.DB.GetContext(ctx, &batch, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get production batch by ID", "error", err, "batchID", id)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if err := r.loadMaterials(ctx, &batch); err != nil {
		return nil, err
	}

	return &batch, nil
}

func (r *ProductionRepository) loadMaterials(ctx context.Context, batch *models.ProductionBatch) error {
	query := `SELECT id, batch_id, raw_material_id, quantity FROM batch_materials WHERE batch_id = $1 ORDER BY id`

	err := r.db.DB.SelectContext(ctx, &batch.Materials, query, batch.ID)

	if err != nil {
		r.logger.Error("Failed to load batch materials", "error", err, "batchID", batch.ID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// GetAll retrieves production batches, optionally filtered by status
func (r *ProductionRepository) GetAll(ctx context.Context, status models.ProductionStatus, limit, offset int) ([]*models.ProductionBatch, error) {
	var batches []*models.ProductionBatch
	var err error

	if status != "" {
		query := `SELECT ` + batchColumns + ` FROM production_batches WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		err = r.db.DB.SelectContext(ctx, &batches, query, status, limit, offset)
	} else {
		query := `SELECT ` + batchColumns + ` FROM production_batches ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		err = r.db.DB.SelectContext(ctx, &batches, query, limit, offset)
	}

	if err != nil {
		r.logger.Error("Failed to get production batches", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return batches, nil
}

// Update rewrites a batch's mutable fields
func (r *ProductionRepository) Update(ctx context.Context, batch *models.ProductionBatch) error {
	query := `
		UPDATE production_batches
		SET quantity = :quantity, status = :status, start_date = :start_date,
			end_date = :end_date, updated_at = :updated_at
		WHERE id = :id
	`

	batch.UpdatedAt = models.GetCurrentTime()

	result, err := r.db.DB.NamedExecContext(ctx, query, batch)

	if err != nil {
		r.logger.Error("Failed to update production batch", "error", err, "batchID", batch.ID)
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

// Delete deletes a production batch by its row ID
func (r *ProductionRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM production_batches WHERE id = $1`

	result, err := r.db.DB.ExecContext(ctx, query, id)

	if err != nil {
		r.logger.Error("Failed to delete production batch", "error", err, "batchID", id)
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
