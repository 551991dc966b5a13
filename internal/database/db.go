package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/tarpmill/erp-api/internal/config"
	"github.com/tarpmill/erp-api/pkg/logger"
)

// Database represents a database connection
type Database struct {
	DB     *sqlx.DB
	logger logger.Logger
}

// New creates a new database connection
func New(cfg *config.Config, logger logger.Logger) (*Database, error) {
	db, err := sqlx.Connect("postgres", cfg.GetDBConnString())

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	logger.Info("Connected to database", "host", cfg.DB.Host, "database", cfg.DB.Name)

	return &Database{
		DB:     db,
		logger: logger,
	}, nil
}

// Ping checks the database connection
func (d *Database) Ping(ctx context.Context) error {
	return d.DB.PingContext(ctx)
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.DB.Close()
}

// RunMigrations creates the schema. Tables are created directly; a real
// deployment would use a migration tool.
func (d *Database) RunMigrations() error {
	schema := `
	CREATE TABLE IF NOT EXISTS customers (
		id VARCHAR(50) PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		email VARCHAR(100),
		phone VARCHAR(30),
		address TEXT,
		company VARCHAR(100),
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS products (
		id VARCHAR(50) PRIMARY KEY,
		item_id VARCHAR(20) NOT NULL UNIQUE,
		name VARCHAR(100) NOT NULL,
		type VARCHAR(10) NOT NULL,
		category VARCHAR(50) NOT NULL DEFAULT 'Tarpaulin',
		gsm INT NOT NULL DEFAULT 0,
		color_top VARCHAR(30),
		color_bottom VARCHAR(30),
		width DECIMAL(10, 2),
		length DECIMAL(10, 2),
		weight DECIMAL(10, 2),
		roll_type VARCHAR(30),
		pieces_per_bundle INT,
		unit VARCHAR(20) NOT NULL DEFAULT 'units',
		price DECIMAL(10, 2) NOT NULL DEFAULT 0,
		stock INT NOT NULL DEFAULT 0,
		reorder_level INT NOT NULL DEFAULT 0,
		units_sold INT NOT NULL DEFAULT 0,
		status VARCHAR(20) NOT NULL,
		remarks TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_products_status ON products(status);
	CREATE INDEX IF NOT EXISTS idx_products_name ON products(name);

	CREATE TABLE IF NOT EXISTS raw_materials (
		id VARCHAR(50) PRIMARY KEY,
		item_id VARCHAR(20) NOT NULL UNIQUE,
		name VARCHAR(100) NOT NULL,
		supplier VARCHAR(100),
		category VARCHAR(50) NOT NULL DEFAULT 'Raw Material',
		stock INT NOT NULL DEFAULT 0,
		unit VARCHAR(20) NOT NULL,
		price DECIMAL(10, 2) NOT NULL DEFAULT 0,
		reorder_level INT NOT NULL DEFAULT 0,
		status VARCHAR(20) NOT NULL,
		remarks TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_raw_materials_status ON raw_materials(status);

	CREATE TABLE IF NOT EXISTS orders (
		id VARCHAR(50) PRIMARY KEY,
		order_id VARCHAR(20) NOT NULL UNIQUE,
		customer_id VARCHAR(50) NOT NULL REFERENCES customers(id),
		status VARCHAR(20) NOT NULL,
		total DECIMAL(12, 2) NOT NULL DEFAULT 0,
		carrier VARCHAR(100),
		delivery_method VARCHAR(50),
		remarks TEXT,
		ordered_at TIMESTAMP NOT NULL DEFAULT NOW(),
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_orders_customer_id ON orders(customer_id);
	CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);

	CREATE TABLE IF NOT EXISTS order_items (
		id VARCHAR(50) PRIMARY KEY,
		order_id VARCHAR(50) NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		product_id VARCHAR(50) NOT NULL REFERENCES products(id),
		quantity INT NOT NULL CHECK (quantity >= 0),
		unit VARCHAR(20) NOT NULL DEFAULT 'units',
		unit_price DECIMAL(10, 2) NOT NULL,
		line_total DECIMAL(12, 2) NOT NULL,
		color_top VARCHAR(30),
		color_bottom VARCHAR(30),
		width DECIMAL(10, 2),
		length DECIMAL(10, 2),
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id);

	CREATE TABLE IF NOT EXISTS dispatches (
		id VARCHAR(50) PRIMARY KEY,
		dispatch_id VARCHAR(20) NOT NULL UNIQUE,
		order_id VARCHAR(50) NOT NULL UNIQUE REFERENCES orders(id),
		customer VARCHAR(100) NOT NULL,
		status VARCHAR(20) NOT NULL,
		loading_date TIMESTAMP,
		driver_name VARCHAR(100),
		driver_number VARCHAR(30),
		car_number VARCHAR(30),
		carrier VARCHAR(100),
		transportation VARCHAR(100),
		tracking_id VARCHAR(100),
		shipping_address TEXT NOT NULL,
		package_details TEXT,
		remarks TEXT,
		total_amount DECIMAL(12, 2) NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_dispatches_status ON dispatches(status);

	CREATE TABLE IF NOT EXISTS dispatch_items (
		id VARCHAR(50) PRIMARY KEY,
		dispatch_id VARCHAR(50) NOT NULL REFERENCES dispatches(id) ON DELETE CASCADE,
		order_item_id VARCHAR(50) NOT NULL,
		product_name VARCHAR(100) NOT NULL,
		color_top VARCHAR(30),
		color_bottom VARCHAR(30),
		width DECIMAL(10, 2),
		length DECIMAL(10, 2),
		delivered_quantity INT NOT NULL,
		rate DECIMAL(10, 2) NOT NULL,
		metric_value DECIMAL(10, 2) NOT NULL,
		amount DECIMAL(12, 2) NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_dispatch_items_dispatch_id ON dispatch_items(dispatch_id);

	CREATE TABLE IF NOT EXISTS production_batches (
		id VARCHAR(50) PRIMARY KEY,
		batch_id VARCHAR(50) NOT NULL UNIQUE,
		product_id VARCHAR(50) NOT NULL REFERENCES products(id),
		order_id VARCHAR(50) REFERENCES orders(id),
		quantity INT NOT NULL,
		status VARCHAR(20) NOT NULL,
		start_date TIMESTAMP,
		end_date TIMESTAMP,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_production_batches_status ON production_batches(status);

	CREATE TABLE IF NOT EXISTS batch_materials (
		id VARCHAR(50) PRIMARY KEY,
		batch_id VARCHAR(50) NOT NULL REFERENCES production_batches(id) ON DELETE CASCADE,
		raw_material_id VARCHAR(50) NOT NULL REFERENCES raw_materials(id),
		quantity INT NOT NULL CHECK (quantity > 0)
	);

	CREATE INDEX IF NOT EXISTS idx_batch_materials_batch_id ON batch_materials(batch_id);

	-- Outbox table for event publishing
	CREATE TABLE IF NOT EXISTS outbox_messages (
		id SERIAL PRIMARY KEY,
		aggregate_type VARCHAR(50) NOT NULL,
		aggregate_id VARCHAR(50) NOT NULL,
		event_type VARCHAR(50) NOT NULL,
		payload JSONB NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		processed_at TIMESTAMP,
		processing_attempts INT NOT NULL DEFAULT 0,
		last_error TEXT,
		status VARCHAR(20) NOT NULL DEFAULT 'pending'
	);

	CREATE INDEX IF NOT EXISTS idx_outbox_status ON outbox_messages(status);
	CREATE INDEX IF NOT EXISTS idx_outbox_aggregate ON outbox_messages(aggregate_type, aggregate_id);

	-- Parking table for events that exhausted publishing retries
	CREATE TABLE IF NOT EXISTS dead_letter_messages (
		id SERIAL PRIMARY KEY,
		original_message_id BIGINT NOT NULL,
		aggregate_type VARCHAR(50) NOT NULL,
		aggregate_id VARCHAR(50) NOT NULL,
		event_type VARCHAR(50) NOT NULL,
		payload JSONB NOT NULL,
		error_message TEXT NOT NULL,
		failure_reason TEXT NOT NULL,
		retry_count INT NOT NULL DEFAULT 0,
		last_retry_at TIMESTAMP,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		resolved_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_dead_letter_status ON dead_letter_messages(status);
	`

	_, err := d.DB.Exec(schema)

	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.logger.Info("Database migrations completed successfully")
	return nil
}
