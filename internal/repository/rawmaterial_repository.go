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

// RawMaterialRepository handles database operations for raw materials
type RawMaterialRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewRawMaterialRepository creates a new RawMaterialRepository
func NewRawMaterialRepository(db *database.Database, logger logger.Logger) *RawMaterialRepository {
	return &RawMaterialRepository{
		db:     db,
		logger: logger,
	}
}

const rawMaterialColumns = `id, item_id, name, supplier, category, stock, unit, price,
	reorder_level, status, remarks, created_at, updated_at`

// Create inserts a new raw material. A unique violation on item_id is
// surfaced as ErrDuplicate for the allocation retry loop.
func (r *RawMaterialRepository) Create(ctx context.Context, material *models.RawMaterial) error {
	query := `
		INSERT INTO raw_materials (` + rawMaterialColumns + `)
		VALUES (:id, :item_id, :name, :supplier, :category, :stock, :unit, :price,
			:reorder_level, :status, :remarks, :created_at, :updated_at)
	`

	_, err := r.db.DB.NamedExecContext(ctx, query, material)

	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: item_id %s", ErrDuplicate, material.ItemID)
		}
		r.logger.Error("Failed to create raw material", "error", err, "materialID", material.ID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// GetByID retrieves a raw material by its ID
func (r *RawMaterialRepository) GetByID(ctx context.Context, id string) (*models.RawMaterial, error) {
	query := `SELECT ` + rawMaterialColumns + ` FROM raw_materials WHERE id = $1`

	var material models.RawMaterial
	err := r.db.DB.GetContext(ctx, &material, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get raw material by ID", "error", err, "materialID", id)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &material, nil
}

// GetAll retrieves raw materials, optionally filtered by status
func (r *RawMaterialRepository) GetAll(ctx context.Context, status models.StockStatus, limit, offset int) ([]*models.RawMaterial, error) {
	var materials []*models.RawMaterial
	var err error

	if status != "" {
		query := `SELECT ` + rawMaterialColumns + ` FROM raw_materials WHERE status = $1 ORDER BY item_id LIMIT $2 OFFSET $3`
		err = r.db.DB.SelectContext(ctx, &materials, query, status, limit, offset)
	} else {
		query := `SELECT ` + rawMaterialColumns + ` FROM raw_materials ORDER BY item_id LIMIT $1 OFFSET $2`
		err = r.db.DB.SelectContext(ctx, &materials, query, limit, offset)
	}

	if err != nil {
		r.logger.Error("Failed to get raw materials", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return materials, nil
}

// Update updates an existing raw material's descriptive fields
func (r *RawMaterialRepository) Update(ctx context.Context, material *models.RawMaterial) error {
	query := `
		UPDATE raw_materials
		SET name = :name, supplier = :supplier, category = :category, unit = :unit,
			price = :price, reorder_level = :reorder_level, status = :status,
			remarks = :remarks, updated_at = :updated_at
		WHERE id = :id
	`

	material.UpdatedAt = models.GetCurrentTime()
	material.Status = models.StockStatusFor(material.Stock, material.ReorderLevel)

	result, err := r.db.DB.NamedExecContext(ctx, query, material)

	if err != nil {
		r.logger.Error("Failed to update raw material", "error", err, "materialID", material.ID)
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

// AdjustStock moves a raw material's stock by delta under a row lock,
// clamping decrements at zero and recomputing the status
func (r *RawMaterialRepository) AdjustStock(ctx context.Context, id string, delta int) (*models.RawMaterial, int, error) {
	tx, err := r.db.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	defer tx.Rollback()

	var material models.RawMaterial
	err = tx.GetContext(ctx, &material,
		`SELECT `+rawMaterialColumns+` FROM raw_materials WHERE id = $1 FOR UPDATE`, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, ErrNotFound
		}
		r.logger.Error("Failed to lock raw material for stock adjustment", "error", err, "materialID", id)
		return nil, 0, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	var newStock, applied int
	if delta < 0 {
		newStock, applied = models.ClampStockDecrement(material.Stock, -delta)
		applied = -applied
	} else {
		newStock = material.Stock + delta
		applied = delta
	}

	newStatus := models.StockStatusFor(newStock, material.ReorderLevel)

	_, err = tx.ExecContext(ctx,
		`UPDATE raw_materials SET stock = $1, status = $2, updated_at = $3 WHERE id = $4`,
		newStock, newStatus, models.GetCurrentTime(), id)

	if err != nil {
		r.logger.Error("Failed to adjust raw material stock", "error", err, "materialID", id)
		return nil, 0, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	material.Stock = newStock
	material.Status = newStatus

	return &material, applied, nil
}

// Delete deletes a raw material by its ID
func (r *RawMaterialRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM raw_materials WHERE id = $1`

	result, err := r.db.DB.ExecContext(ctx, query, id)

	if err != nil {
		r.logger.Error("Failed to delete raw material", "error", err, "materialID", id)
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

// LastItemID returns the lexicographically largest item_id carrying the
// prefix, or empty when none exists
func (r *RawMaterialRepository) LastItemID(ctx context.Context, prefix string) (string, error) {
	query := `SELECT COALESCE(MAX(item_id), '') FROM raw_materials WHERE item_id LIKE $1`

	var last string
	err := r.db.DB.GetContext(ctx, &last, query, prefix+"%")

	if err != nil {
		r.logger.Error("Failed to get last raw material item ID", "error", err, "prefix", prefix)
		return "", fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return last, nil
}
