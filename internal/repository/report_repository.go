package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/tarpmill/erp-api/internal/database"
	"github.com/tarpmill/erp-api/pkg/logger"
)

// ReportRepository runs the read-only aggregation queries behind reports
type ReportRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewReportRepository creates a new ReportRepository
func NewReportRepository(db *database.Database, logger logger.Logger) *ReportRepository {
	return &ReportRepository{
		db:     db,
		logger: logger,
	}
}

// SalesSummary aggregates order activity over a period
type SalesSummary struct {
	OrderCount      int     `db:"order_count" json:"order_count"`
	TotalValue      float64 `db:"total_value" json:"total_value"`
	DeliveredCount  int     `db:"delivered_count" json:"delivered_count"`
	CancelledCount  int     `db:"cancelled_count" json:"cancelled_count"`
	AverageOrderVal float64 `db:"average_order_value" json:"average_order_value"`
}

// GetSalesSummary aggregates orders placed inside the window
func (r *ReportRepository) GetSalesSummary(ctx context.Context, from, to time.Time) (*SalesSummary, error) {
	query := `
		SELECT
			COUNT(*) AS order_count,
			COALESCE(SUM(total), 0) AS total_value,
			COUNT(*) FILTER (WHERE status = 'DELIVERED') AS delivered_count,
			COUNT(*) FILTER (WHERE status = 'CANCELLED') AS cancelled_count,
			COALESCE(AVG(total), 0) AS average_order_value
		FROM orders
		WHERE ordered_at >= $1 AND ordered_at < $2
	`

	var summary SalesSummary
	err := r.db.DB.GetContext(ctx, &summary, query, from, to)

	if err != nil {
		r.logger.Error("Failed to get sales summary", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &summary, nil
}

// TopProduct is one row of the best-sellers report
type TopProduct struct {
	ProductID string  `db:"product_id" json:"product_id"`
	Name      string  `db:"name" json:"name"`
	ItemID    string  `db:"item_id" json:"item_id"`
	UnitsSold int     `db:"units_sold" json:"units_sold"`
	Revenue   float64 `db:"revenue" json:"revenue"`
}

// GetTopProducts ranks products by quantity ordered inside the window
func (r *ReportRepository) GetTopProducts(ctx context.Context, from, to time.Time, limit int) ([]*TopProduct, error) {
	query := `
		SELECT
			p.id AS product_id,
			p.name,
			p.item_id,
			COALESCE(SUM(oi.quantity), 0) AS units_sold,
			COALESCE(SUM(oi.line_total), 0) AS revenue
		FROM products p
		JOIN order_items oi ON oi.product_id = p.id
		JOIN orders o ON o.id = oi.order_id
		WHERE o.ordered_at >= $1 AND o.ordered_at < $2
		GROUP BY p.id, p.name, p.item_id
		ORDER BY revenue DESC
		LIMIT $3
	`

	var products []*TopProduct
	err := r.db.DB.SelectContext(ctx, &products, query, from, to, limit)

	if err != nil {
		r.logger.Error("Failed to get top products", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return products, nil
}

// GetTopSellers ranks products by lifetime units sold
func (r *ReportRepository) GetTopSellers(ctx context.Context, limit int) ([]*TopProduct, error) {
	query := `
		SELECT
			id AS product_id,
			name,
			item_id,
			units_sold,
			units_sold * price AS revenue
		FROM products
		WHERE units_sold > 0
		ORDER BY units_sold DESC
		LIMIT $1
	`

	var products []*TopProduct
	err := r.db.DB.SelectContext(ctx, &products, query, limit)

	if err != nil {
		r.logger.Error("Failed to get top sellers", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return products, nil
}

// CustomerActivity is one row of the customer order report
type CustomerActivity struct {
	CustomerID string  `db:"customer_id" json:"customer_id"`
	Name       string  `db:"name" json:"name"`
	Company    string  `db:"company" json:"company,omitempty"`
	OrderCount int     `db:"order_count" json:"order_count"`
	TotalValue float64 `db:"total_value" json:"total_value"`
}

// GetCustomerActivity ranks customers by order value inside the window
func (r *ReportRepository) GetCustomerActivity(ctx context.Context, from, to time.Time, limit int) ([]*CustomerActivity, error) {
	query := `
		SELECT
			c.id AS customer_id,
			c.name,
			COALESCE(c.company, '') AS company,
			COUNT(o.id) AS order_count,
			COALESCE(SUM(o.total), 0) AS total_value
		FROM customers c
		JOIN orders o ON o.customer_id = c.id
		WHERE o.ordered_at >= $1 AND o.ordered_at < $2
		GROUP BY c.id, c.name, c.company
		ORDER BY total_value DESC
		LIMIT $3
	`

	var customers []*CustomerActivity
	err := r.db.DB.SelectContext(ctx, &customers, query, from, to, limit)

	if err != nil {
		r.logger.Error("Failed to get customer activity", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return customers, nil
}

// OrderBook captures the day-to-day order pipeline counts
type OrderBook struct {
	NewToday     int `db:"new_today" json:"new_today"`
	InProduction int `db:"in_production" json:"in_production"`
	Completed    int `db:"completed" json:"completed"`
	Shipped      int `db:"shipped" json:"shipped"`
}

// GetOrderBook counts orders by pipeline stage; "new today" is relative to
// the supplied day in UTC
func (r *ReportRepository) GetOrderBook(ctx context.Context, day time.Time) (*OrderBook, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	query := `
		SELECT
			COUNT(*) FILTER (WHERE ordered_at >= $1 AND ordered_at < $2) AS new_today,
			COUNT(*) FILTER (WHERE status = 'IN_PRODUCTION') AS in_production,
			COUNT(*) FILTER (WHERE status = 'COMPLETED') AS completed,
			COUNT(*) FILTER (WHERE status = 'SHIPPED') AS shipped
		FROM orders
	`

	var book OrderBook
	err := r.db.DB.GetContext(ctx, &book, query, start, end)

	if err != nil {
		r.logger.Error("Failed to get order book", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &book, nil
}

// GetDeliveredRevenue sums the totals of delivered orders inside the window
func (r *ReportRepository) GetDeliveredRevenue(ctx context.Context, from, to time.Time) (float64, error) {
	query := `
		SELECT COALESCE(SUM(total), 0)
		FROM orders
		WHERE status = 'DELIVERED' AND ordered_at >= $1 AND ordered_at < $2
	`

	var revenue float64
	err := r.db.DB.GetContext(ctx, &revenue, query, from, to)

	if err != nil {
		r.logger.Error("Failed to get delivered revenue", "error", err)
		return 0, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return revenue, nil
}

// GetProductionUnits sums quantities of completed production batches inside
// the window
func (r *ReportRepository) GetProductionUnits(ctx context.Context, from, to time.Time) (int, error) {
	query := `
		SELECT COALESCE(SUM(quantity), 0)
		FROM production_batches
		WHERE status = 'COMPLETED' AND updated_at >= $1 AND updated_at < $2
	`

	var units int
	err := r.db.DB.GetContext(ctx, &units, query, from, to)

	if err != nil {
		r.logger.Error("Failed to get production units", "error", err)
		return 0, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return units, nil
}

// GetActiveCustomers counts customers with at least one order in the window
func (r *ReportRepository) GetActiveCustomers(ctx context.Context, from, to time.Time) (int, error) {
	query := `
		SELECT COUNT(DISTINCT customer_id)
		FROM orders
		WHERE ordered_at >= $1 AND ordered_at < $2
	`

	var count int
	err := r.db.DB.GetContext(ctx, &count, query, from, to)

	if err != nil {
		r.logger.Error("Failed to count active customers", "error", err)
		return 0, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return count, nil
}

// InventorySnapshot summarizes current stock health across both inventories
type InventorySnapshot struct {
	ProductCount       int     `db:"product_count" json:"product_count"`
	ProductsLowStock   int     `db:"products_low_stock" json:"products_low_stock"`
	ProductsOutOfStock int     `db:"products_out_of_stock" json:"products_out_of_stock"`
	StockValue         float64 `db:"stock_value" json:"stock_value"`
	MaterialCount      int     `db:"material_count" json:"material_count"`
	MaterialsLowStock  int     `db:"materials_low_stock" json:"materials_low_stock"`
	MaterialsOutStock  int     `db:"materials_out_of_stock" json:"materials_out_of_stock"`
}

// GetInventorySnapshot summarizes stock levels and value right now
func (r *ReportRepository) GetInventorySnapshot(ctx context.Context) (*InventorySnapshot, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM products) AS product_count,
			(SELECT COUNT(*) FROM products WHERE status = 'LOW_STOCK') AS products_low_stock,
			(SELECT COUNT(*) FROM products WHERE status = 'OUT_OF_STOCK') AS products_out_of_stock,
			(SELECT COALESCE(SUM(price * stock), 0) FROM products) AS stock_value,
			(SELECT COUNT(*) FROM raw_materials) AS material_count,
			(SELECT COUNT(*) FROM raw_materials WHERE status = 'LOW_STOCK') AS materials_low_stock,
			(SELECT COUNT(*) FROM raw_materials WHERE status = 'OUT_OF_STOCK') AS materials_out_of_stock
	`

	var snapshot InventorySnapshot
	err := r.db.DB.GetContext(ctx, &snapshot, query)

	if err != nil {
		r.logger.Error("Failed to get inventory snapshot", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &snapshot, nil
}
