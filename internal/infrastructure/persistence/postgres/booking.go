package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/DanielPopoola/pesapal-gateway/internal/domain"
	"github.com/jackc/pgx/v5"
)

// ledgerTx exposes the booking table to a ledger mutation so the cascade
// commits or rolls back together with the payment row.
type ledgerTx struct {
	tx pgx.Tx
}

// ConfirmBooking writes confirmedStatus into the booking unless it already holds it.
func (l *ledgerTx) ConfirmBooking(ctx context.Context, bookingRef string, confirmedStatus int16) (domain.CascadeOutcome, error) {
	tag, err := l.tx.Exec(ctx, `
		UPDATE bookings
		SET status = $2, updated_at = NOW()
		WHERE booking_ref = $1 AND status IS DISTINCT FROM $2
	`, bookingRef, confirmedStatus)
	if err != nil {
		return "", fmt.Errorf("failed to confirm booking: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return domain.CascadeApplied, nil
	}

	var exists bool
	err = l.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE booking_ref = $1)`, bookingRef).Scan(&exists)
	if err != nil {
		return "", fmt.Errorf("failed to look up booking: %w", err)
	}
	if !exists {
		return domain.CascadeSkippedNotInStore, nil
	}
	return domain.CascadeAlreadyConfirmed, nil
}

type BookingRepository struct {
	db *DB
}

func NewBookingRepository(db *DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// FindByRef reads a booking. A missing booking returns nil without error.
func (r *BookingRepository) FindByRef(ctx context.Context, bookingRef string) (*domain.BookingRecord, error) {
	var b domain.BookingRecord
	err := r.db.Pool.QueryRow(ctx,
		`SELECT booking_ref, status FROM bookings WHERE booking_ref = $1`, bookingRef,
	).Scan(&b.BookingRef, &b.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read booking: %w", err)
	}
	return &b, nil
}
