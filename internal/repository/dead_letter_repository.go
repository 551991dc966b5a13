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

// DeadLetterRepository handles database operations for dead letter messages
type DeadLetterRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewDeadLetterRepository creates a new DeadLetterRepository
func NewDeadLetterRepository(db *database.Database, logger logger.Logger) *DeadLetterRepository {
	return &DeadLetterRepository{
		db:     db,
		logger: logger,
	}
}

const deadLetterColumns = `id, original_message_id, aggregate_type, aggregate_id, event_type,
	payload, error_message, failure_reason, retry_count, last_retry_at, status,
	created_at, resolved_at`

// Create inserts a new dead letter message
func (r *DeadLetterRepository) Create(ctx context.Context, message *models.DeadLetterMessage) error {
	query := `
		INSERT INTO dead_letter_messages (
			original_message_id, aggregate_type, aggregate_id, event_type,
			payload, error_message, failure_reason, retry_count, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	var id int64

	err := r.db.DB.QueryRowContext(
		ctx,
		query,
		message.OriginalMessageID,
		message.AggregateType,
		message.AggregateID,
		message.EventType,
		message.Payload,
		message.ErrorMessage,
		message.FailureReason,
		message.RetryCount,
		message.Status,
		message.CreatedAt,
	).Scan(&id)

	if err != nil {
		r.logger.Error("Failed to create dead letter message", "error", err)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	message.ID = id
	return nil
}

// GetByID retrieves a dead letter message by its ID
func (r *DeadLetterRepository) GetByID(ctx context.Context, id int64) (*models.DeadLetterMessage, error) {
	query := `SELECT ` + deadLetterColumns + ` FROM dead_letter_messages WHERE id = $1`

	var message models.DeadLetterMessage
	err := r.db.DB.GetContext(ctx, &message, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get dead letter message", "error", err, "message_id", id)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &message, nil
}

// GetMessages retrieves dead letter messages, optionally filtered by status
func (r *DeadLetterRepository) GetMessages(ctx context.Context, status models.DeadLetterStatus, limit, offset int) ([]*models.DeadLetterMessage, error) {
	var messages []*models.DeadLetterMessage
	var err error

	if status != "" {
		query := `SELECT ` + deadLetterColumns + ` FROM dead_letter_messages WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		err = r.db.DB.SelectContext(ctx, &messages, query, status, limit, offset)
	} else {
		query := `SELECT ` + deadLetterColumns + ` FROM dead_letter_messages ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		err = r.db.DB.SelectContext(ctx, &messages, query, limit, offset)
	}

	if err != nil {
		r.logger.Error("Failed to get dead letter messages", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return messages, nil
}

// MarkRetrying records a retry attempt on a dead letter message
func (r *DeadLetterRepository) MarkRetrying(ctx context.Context, id int64) error {
	query := `
		UPDATE dead_letter_messages
		SET status = $1, retry_count = retry_count + 1, last_retry_at = $2
		WHERE id = $3
	`

	_, err := r.db.DB.ExecContext(ctx, query, models.DeadLetterStatusRetrying, models.GetCurrentTime(), id)

	if err != nil {
		r.logger.Error("Failed to mark dead letter message as retrying", "error", err, "message_id", id)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// MarkResolved marks a dead letter message as successfully replayed
func (r *DeadLetterRepository) MarkResolved(ctx context.Context, id int64) error {
	query := `
		UPDATE dead_letter_messages
		SET status = $1, resolved_at = $2
		WHERE id = $3
	`

	_, err := r.db.DB.ExecContext(ctx, query, models.DeadLetterStatusResolved, models.GetCurrentTime(), id)

	if err != nil {
		r.logger.Error("Failed to mark dead letter message as resolved", "error", err, "message_id", id)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// MarkDiscarded marks a dead letter message as abandoned after operator review
func (r *DeadLetterRepository) MarkDiscarded(ctx context.Context, id int64) error {
	query := `
		UPDATE dead_letter_messages
		SET status = $1, resolved_at = $2
		WHERE id = $3
	`

	_, err := r.db.DB.ExecContext(ctx, query, models.DeadLetterStatusDiscarded, models.GetCurrentTime(), id)

	if err != nil {
		r.logger.Error("Failed to mark dead letter message as discarded", "error", err, "message_id", id)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// MarkFailedRetry returns a message to pending after an unsuccessful replay
func (r *DeadLetterRepository) MarkFailedRetry(ctx context.Context, id int64, errorMessage string) error {
	query := `
		UPDATE dead_letter_messages
		SET status = $1, error_message = $2
		WHERE id = $3
	`

	_, err := r.db.DB.ExecContext(ctx, query, models.DeadLetterStatusPending, errorMessage, id)

	if err != nil {
		r.logger.Error("Failed to record dead letter retry failure", "error", err, "message_id", id)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// Count counts dead letter messages by status
func (r *DeadLetterRepository) Count(ctx context.Context, status models.DeadLetterStatus) (int, error) {
	var count int
	var err error

	if status != "" {
		err = r.db.DB.GetContext(ctx, &count, `SELECT COUNT(*) FROM dead_letter_messages WHERE status = $1`, status)
	} else {
		err = r.db.DB.GetContext(ctx, &count, `SELECT COUNT(*) FROM dead_letter_messages`)
	}

	if err != nil {
		r.logger.Error("Failed to count dead letter messages", "error", err)
		return 0, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return count, nil
}
