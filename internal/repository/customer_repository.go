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

// CustomerRepository handles database operations for customers
type CustomerRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewCustomerRepository creates a new CustomerRepository
func NewCustomerRepository(db *database.Database, logger logger.Logger) *CustomerRepository {
	return &CustomerRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new customer into the database
func (r *CustomerRepository) Create(ctx context.Context, customer *models.Customer) error {
	query := `
		INSERT INTO customers (id, name, email, phone, address, company, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.DB.ExecContext(
		ctx,
		query,
		customer.ID,
		customer.Name,
		customer.Email,
		customer.Phone,
		customer.Address,
		customer.Company,
		customer.CreatedAt,
		customer.UpdatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create customer", "error", err, "customerID", customer.ID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// GetByID retrieves a customer by its ID
func (r *CustomerRepository) GetByID(ctx context.Context, id string) (*models.Customer, error) {
	query := `
		SELECT id, name, email, phone, address, company, created_at, updated_at
		FROM customers
		WHERE id = $1
	`

	var customer models.Customer
	err := r.db.DB.GetContext(ctx, &customer, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get customer by ID", "error", err, "customerID", id)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &customer, nil
}

// GetAll retrieves all customers with optional limit and offset
func (r *CustomerRepository) GetAll(ctx context.Context, limit, offset int) ([]*models.Customer, error) {
	query := `
		SELECT id, name, email, phone, address, company, created_at, updated_at
		FROM customers
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	var customers []*models.Customer
	err := r.db.DB.SelectContext(ctx, &customers, query, limit, offset)

	if err != nil {
		r.logger.Error("Failed to get all customers", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return customers, nil
}

// Update updates an existing customer
func (r *CustomerRepository) Update(ctx context.Context, customer *models.Customer) error {
	query := `
		UPDATE customers
		SET name = $1, email = $2, phone = $3, address = $4, company = $5, updated_at = $6
		WHERE id = $7
	`

	result, err := r.db.DB.ExecContext(
		ctx,
		query,
		customer.Name,
		customer.Email,
		customer.Phone,
		customer.Address,
		customer.Company,
		models.GetCurrentTime(),
		customer.ID,
	)

	if err != nil {
		r.logger.Error("Failed to update customer", "error", err, "customerID", customer.ID)
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

// Delete deletes a customer by its ID
func (r *CustomerRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM customers WHERE id = $1`

	result, err := r.db.DB.ExecContext(ctx, query, id)

	if err != nil {
		r.logger.Error("Failed to delete customer", "error", err, "customerID", id)
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

// Count counts the total number of customers
func (r *CustomerRepository) Count(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM customers`

	err := r.db.DB.GetContext(ctx, &count, query)

	if err != nil {
		r.logger.Error("Failed to count customers", "error", err)
		return 0, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return count, nil
}
