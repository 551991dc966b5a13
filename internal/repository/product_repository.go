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

// ProductRepository handles database operations for products
type ProductRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewProductRepository creates a new ProductRepository
func NewProductRepository(db *database.Database, logger logger.Logger) *ProductRepository {
	return &ProductRepository{
		db:     db,
		logger: logger,
	}
}

const productColumns = `id, item_id, name, type, category, gsm, color_top, color_bottom,
	width, length, weight, roll_type, pieces_per_bundle, unit, price, stock,
	reorder_level, units_sold, status, remarks, created_at, updated_at`

// Create inserts a new product. A unique violation on item_id is surfaced as
// ErrDuplicate so the caller can re-derive the sequential ID and retry.
func (r *ProductRepository) Create(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES (:id, :item_id, :name, :type, :category, :gsm, :color_top, :color_bottom,
			:width, :length, :weight, :roll_type, :pieces_per_bundle, :unit, :price, :stock,
			:reorder_level, :units_sold, :status, :remarks, :created_at, :updated_at)
	`

	_, err := r.db.DB.NamedExecContext(ctx, query, product)

	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: item_id %s", ErrDuplicate, product.ItemID)
		}
		r.logger.Error("Failed to create product", "error", err, "productID", product.ID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// GetByID retrieves a product by its ID
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	var product models.Product
	err := r.db.DB.GetContext(ctx, &product, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get product by ID", "error", err, "productID", id)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &product, nil
}

// GetByItemID retrieves a product by its human-readable item ID
func (r *ProductRepository) GetByItemID(ctx context.Context, itemID string) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE item_id = $1`

	var product models.Product
	err := r.db.DB.GetContext(ctx, &product, query, itemID)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get product by item ID", "error", err, "itemID", itemID)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &product, nil
}

// GetAll retrieves products, optionally filtered by status
func (r *ProductRepository) GetAll(ctx context.Context, status models.StockStatus, limit, offset int) ([]*models.Product, error) {
	var products []*models.Product
	var err error

	if status != "" {
		query := `SELECT ` + productColumns + ` FROM products WHERE status = $1 ORDER BY item_id LIMIT $2 OFFSET $3`
		err = r.db.DB.SelectContext(ctx, &products, query, status, limit, offset)
	} else {
		query := `SELECT ` + productColumns + ` FROM products ORDER BY item_id LIMIT $1 OFFSET $2`
		err = r.db.DB.SelectContext(ctx, &products, query, limit, offset)
	}

	if err != nil {
		r.logger.Error("Failed to get products", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return products, nil
}

// GetCandidatesByName retrieves all products sharing a name. Attribute
// matching over the candidates happens in memory.
func (r *ProductRepository) GetCandidatesByName(ctx context.Context, name string) ([]*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE name = $1`

	var products []*models.Product
	err := r.db.DB.SelectContext(ctx, &products, query, name)

	if err != nil {
		r.logger.Error("Failed to get products by name", "error", err, "name", name)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return products, nil
}

// Update updates an existing product's descriptive fields. Stock moves go
// through AdjustStock so the status stays consistent.
func (r *ProductRepository) Update(ctx context.Context, product *models.Product) error {
	query := `
		UPDATE products
		SET name = :name, type = :type, category = :category, gsm = :gsm,
			color_top = :color_top, color_bottom = :color_bottom, width = :width,
			length = :length, weight = :weight, roll_type = :roll_type,
			pieces_per_bundle = :pieces_per_bundle, unit = :unit, price = :price,
			reorder_level = :reorder_level, status = :status, remarks = :remarks,
			updated_at = :updated_at
		WHERE id = :id
	`

	product.UpdatedAt = models.GetCurrentTime()
	product.Status = models.StockStatusFor(product.Stock, product.ReorderLevel)

	result, err := r.db.DB.NamedExecContext(ctx, query, product)

	if err != nil {
		r.logger.Error("Failed to update product", "error", err, "productID", product.ID)
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

// StockAdjustment is the outcome of an AdjustStock call
type StockAdjustment struct {
	Product  *models.Product
	Applied  int
	Shortage int
}

// AdjustStock moves a product's stock by delta inside its own transaction,
// locking the row, clamping decrements at zero and recomputing the status.
// Negative deltas report how much of the decrement could actually be
// applied; the shortage is the caller's drift signal.
func (r *ProductRepository) AdjustStock(ctx context.Context, id string, delta int, trackSold bool) (*StockAdjustment, error) {
	tx, err := r.db.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	defer tx.Rollback()

	var product models.Product
	err = tx.GetContext(ctx, &product,
		`SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to lock product for stock adjustment", "error", err, "productID", id)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	var newStock, applied int
	if delta < 0 {
		newStock, applied = models.ClampStockDecrement(product.Stock, -delta)
		applied = -applied
	} else {
		newStock = product.Stock + delta
		applied = delta
	}

	newStatus := models.StockStatusFor(newStock, product.ReorderLevel)

	unitsSold := product.UnitsSold
	if trackSold && applied < 0 {
		unitsSold += -applied
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE products SET stock = $1, status = $2, units_sold = $3, updated_at = $4 WHERE id = $5`,
		newStock, newStatus, unitsSold, models.GetCurrentTime(), id)

	if err != nil {
		r.logger.Error("Failed to adjust product stock", "error", err, "productID", id)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	shortage := 0
	if delta < 0 {
		shortage = -delta - (-applied)
	}

	product.Stock = newStock
	product.Status = newStatus
	product.UnitsSold = unitsSold

	return &StockAdjustment{Product: &product, Applied: applied, Shortage: shortage}, nil
}

// Delete deletes a product by its ID
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM products WHERE id = $1`

	result, err := r.db.DB.ExecContext(ctx, query, id)

	if err != nil {
		r.logger.Error("Failed to delete product", "error", err, "productID", id)
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
func (r *ProductRepository) LastItemID(ctx context.Context, prefix string) (string, error) {
	query := `SELECT COALESCE(MAX(item_id), '') FROM products WHERE item_id LIKE $1`

	var last string
	err := r.db.DB.GetContext(ctx, &last, query, prefix+"%")

	if err != nil {
		r.logger.Error("Failed to get last product item ID", "error", err, "prefix", prefix)
		return "", fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return last, nil
}

// Count counts the total number of products
func (r *ProductRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.DB.GetContext(ctx, &count, `SELECT COUNT(*) FROM products`)

	if err != nil {
		r.logger.Error("Failed to count products", "error", err)
		return 0, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return count, nil
}
