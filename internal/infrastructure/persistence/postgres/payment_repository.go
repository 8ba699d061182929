package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/DanielPopoola/pesapal-gateway/internal/application"
	"github.com/DanielPopoola/pesapal-gateway/internal/domain"
	"github.com/jackc/pgx/v5"
)

const paymentColumns = `
	reference, booking_ref, amount_minor, currency, description, callback_url,
	notification_id, billing_email, billing_phone, billing_first_name, billing_last_name,
	status, action, ip_address, order_tracking_id, redirect_url, error_detail,
	created_at, updated_at, reconcile_attempts, next_reconcile_at, last_error_category`

type PaymentRepository struct {
	db *DB
}

func NewPaymentRepository(db *DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

var _ application.Ledger = (*PaymentRepository)(nil)

// Create inserts a new row. A reused reference yields domain.ErrDuplicateReference.
func (r *PaymentRepository) Create(ctx context.Context, order *domain.PaymentOrder) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`

	p := toPaymentModel(order)
	_, err := r.db.Pool.Exec(ctx, query,
		p.Reference,
		p.BookingRef,
		p.AmountMinor,
		p.Currency,
		p.Description,
		p.CallbackURL,
		p.NotificationID,
		p.BillingEmail,
		p.BillingPhone,
		p.BillingFirstName,
		p.BillingLastName,
		p.Status,
		p.Action,
		p.IPAddress,
		p.OrderTrackingID,
		p.RedirectURL,
		p.ErrorDetail,
		p.CreatedAt,
		p.UpdatedAt,
		p.ReconcileAttempts,
		p.NextReconcileAt,
		p.LastErrorCategory,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return domain.NewDuplicateReferenceError(order.Reference)
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (r *PaymentRepository) FindByReference(ctx context.Context, reference string) (*domain.PaymentOrder, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE reference = $1`
	return scanPayment(r.db.Pool.QueryRow(ctx, query, reference))
}

func (r *PaymentRepository) FindByTrackingID(ctx context.Context, orderTrackingID string) (*domain.PaymentOrder, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE order_tracking_id = $1`
	return scanPayment(r.db.Pool.QueryRow(ctx, query, orderTrackingID))
}

// Update locks the row, lets mutate change it and writes it back if dirty.
// Anything mutate does through tx commits or rolls back with the row.
func (r *PaymentRepository) Update(ctx context.Context, reference string, mutate application.MutateFunc) (*domain.PaymentOrder, error) {
	var updated *domain.PaymentOrder
	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		query := `SELECT ` + paymentColumns + ` FROM payments WHERE reference = $1 FOR UPDATE`
		order, err := scanPayment(tx.QueryRow(ctx, query, reference))
		if err != nil {
			return err
		}

		dirty, err := mutate(ctx, &ledgerTx{tx: tx}, order)
		if err != nil {
			return err
		}
		if dirty {
			if err := r.write(ctx, tx, order); err != nil {
				return err
			}
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// FindReconcilable returns PENDING rows and recent INVALID rows that the
// gateway has accepted and whose backoff has elapsed, oldest first.
func (r *PaymentRepository) FindReconcilable(ctx context.Context, filter application.ReconcileFilter) ([]*domain.PaymentOrder, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE order_tracking_id IS NOT NULL
		  AND (status = 'PENDING' OR (status = 'INVALID' AND created_at >= $3))
		  AND created_at < $2
		  AND (next_reconcile_at IS NULL OR next_reconcile_at <= $1)
		  AND reconcile_attempts < $4
		ORDER BY created_at ASC
		LIMIT $5
	`

	rows, err := r.db.Pool.Query(ctx, query,
		filter.Now,
		filter.OlderThan,
		filter.InvalidSince,
		filter.MaxAttempts,
		filter.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query reconcilable payments: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.PaymentOrder, error) {
		return scanPayment(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan reconcilable payments: %w", err)
	}
	return results, nil
}

func (r *PaymentRepository) write(ctx context.Context, q Executor, order *domain.PaymentOrder) error {
	query := `
		UPDATE payments
		SET status = $1, action = $2, notification_id = $3,
			order_tracking_id = $4, redirect_url = $5, error_detail = $6,
			updated_at = $7, reconcile_attempts = $8, next_reconcile_at = $9, last_error_category = $10
		WHERE reference = $11
	`

	p := toPaymentModel(order)
	tag, err := q.Exec(ctx, query,
		p.Status,
		p.Action,
		p.NotificationID,
		p.OrderTrackingID,
		p.RedirectURL,
		p.ErrorDetail,
		p.UpdatedAt,
		p.ReconcileAttempts,
		p.NextReconcileAt,
		p.LastErrorCategory,
		p.Reference,
	)
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewPaymentNotFoundError(order.Reference)
	}
	return nil
}

// scanPayment converts a row into a domain order.
// Returns domain.ErrPaymentNotFound if the row doesn't exist.
func scanPayment(row pgx.Row) (*domain.PaymentOrder, error) {
	var m PaymentModel
	err := row.Scan(
		&m.Reference, &m.BookingRef, &m.AmountMinor, &m.Currency, &m.Description, &m.CallbackURL,
		&m.NotificationID, &m.BillingEmail, &m.BillingPhone, &m.BillingFirstName, &m.BillingLastName,
		&m.Status, &m.Action, &m.IPAddress, &m.OrderTrackingID, &m.RedirectURL, &m.ErrorDetail,
		&m.CreatedAt, &m.UpdatedAt, &m.ReconcileAttempts, &m.NextReconcileAt, &m.LastErrorCategory,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to scan payment: %w", err)
	}
	return toDomainOrder(m)
}
