package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/DanielPopoola/pesapal-gateway/internal/application"
	"github.com/DanielPopoola/pesapal-gateway/internal/domain"
	"github.com/jackc/pgx/v5"
)

const notificationColumns = `
	id, order_tracking_id, merchant_reference, notification_type, raw_query,
	status, attempts, last_error, next_attempt_at, received_at, processed_at`

type NotificationRepository struct {
	db *DB
}

func NewNotificationRepository(db *DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

var _ application.NotificationLog = (*NotificationRepository)(nil)

func (r *NotificationRepository) Record(ctx context.Context, n *domain.Notification) error {
	query := `
		INSERT INTO ipn_events (` + notificationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	m := toNotificationModel(n)
	_, err := r.db.Pool.Exec(ctx, query,
		m.ID,
		m.OrderTrackingID,
		m.MerchantReference,
		m.NotificationType,
		m.RawQuery,
		m.Status,
		m.Attempts,
		m.LastError,
		m.NextAttemptAt,
		m.ReceivedAt,
		m.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record notification: %w", err)
	}
	return nil
}

func (r *NotificationRepository) Save(ctx context.Context, n *domain.Notification) error {
	query := `
		UPDATE ipn_events
		SET status = $1, attempts = $2, last_error = $3, next_attempt_at = $4, processed_at = $5
		WHERE id = $6
	`

	m := toNotificationModel(n)
	tag, err := r.db.Pool.Exec(ctx, query,
		m.Status,
		m.Attempts,
		m.LastError,
		m.NextAttemptAt,
		m.ProcessedAt,
		m.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("notification %s not found", n.ID)
	}
	return nil
}

// FindRetryable returns FAILED deliveries that are due and still under maxAttempts.
func (r *NotificationRepository) FindRetryable(ctx context.Context, now time.Time, maxAttempts, limit int) ([]*domain.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM ipn_events
		WHERE status = 'FAILED'
		  AND attempts < $2
		  AND (next_attempt_at IS NULL OR next_attempt_at <= $1)
		ORDER BY received_at ASC
		LIMIT $3
	`

	rows, err := r.db.Pool.Query(ctx, query, now, maxAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("query retryable notifications: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Notification, error) {
		var m NotificationModel
		err := row.Scan(
			&m.ID, &m.OrderTrackingID, &m.MerchantReference, &m.NotificationType, &m.RawQuery,
			&m.Status, &m.Attempts, &m.LastError, &m.NextAttemptAt, &m.ReceivedAt, &m.ProcessedAt,
		)
		return toDomainNotification(m), err
	})
	if err != nil {
		return nil, fmt.Errorf("scan retryable notifications: %w", err)
	}
	return results, nil
}
