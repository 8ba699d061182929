package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/DanielPopoola/pesapal-gateway/internal/application"
	"github.com/DanielPopoola/pesapal-gateway/internal/domain"
)

type ReconcileResult struct {
	Reference       string
	OrderTrackingID string
	Status          domain.PaymentStatus
	GatewayStatus   domain.PaymentStatus
	Changed         bool
	Cascade         domain.CascadeOutcome
}

// Reconciler applies the gateway's authoritative status to the ledger.
type Reconciler interface {
	Reconcile(ctx context.Context, orderTrackingID, merchantReference string) (*ReconcileResult, error)
}

// ReconcileService never trusts a notification's payload: it always re-reads
// the status from the gateway before touching the ledger.
type ReconcileService struct {
	ledger          application.Ledger
	gateway         application.Gateway
	creds           application.CredentialSource
	confirmedStatus int16
	logger          *slog.Logger
}

func NewReconcileService(
	ledger application.Ledger,
	gateway application.Gateway,
	creds application.CredentialSource,
	confirmedStatus int16,
	logger *slog.Logger,
) *ReconcileService {
	return &ReconcileService{
		ledger:          ledger,
		gateway:         gateway,
		creds:           creds,
		confirmedStatus: confirmedStatus,
		logger:          logger,
	}
}

func (s *ReconcileService) Reconcile(ctx context.Context, orderTrackingID, merchantReference string) (*ReconcileResult, error) {
	if orderTrackingID == "" {
		return nil, application.NewValidationError("OrderTrackingId is required", domain.NewMissingRequiredFieldError("OrderTrackingId"))
	}

	// A status read from the gateway must reach the ledger even if the caller leaves.
	ctx = context.WithoutCancel(ctx)

	status, err := s.FetchStatus(ctx, orderTrackingID)
	if err != nil {
		return nil, err
	}
	return s.Apply(ctx, orderTrackingID, merchantReference, status)
}

// FetchStatus reads the authoritative status without touching the ledger.
func (s *ReconcileService) FetchStatus(ctx context.Context, orderTrackingID string) (*application.TransactionStatus, error) {
	status, err := withCredential(ctx, s.creds, func(token string) (*application.TransactionStatus, error) {
		return s.gateway.GetTransactionStatus(ctx, token, orderTrackingID)
	})
	if err != nil {
		if _, ok := application.IsServiceError(err); ok {
			return nil, err
		}
		return nil, application.NewGatewayFailure("Could not fetch transaction status", err)
	}

	if status.Status() == domain.StatusPending && status.Description != "" {
		s.logger.Warn("unrecognised gateway status",
			"order_tracking_id", orderTrackingID,
			"status_code", status.StatusCode,
			"description", status.Description)
	}
	return status, nil
}

// Apply writes an already fetched gateway status through the ledger's single
// update path. Only a transition into COMPLETED confirms the linked booking.
func (s *ReconcileService) Apply(ctx context.Context, orderTrackingID, merchantReference string, status *application.TransactionStatus) (*ReconcileResult, error) {
	target := status.Status()
	result := &ReconcileResult{
		OrderTrackingID: orderTrackingID,
		Status:          target,
		GatewayStatus:   target,
		Cascade:         domain.CascadeNotTriggered,
	}

	reference, err := s.resolveReference(ctx, orderTrackingID, merchantReference, status)
	if err != nil {
		return nil, application.NewReconciliationError(orderTrackingID, err)
	}
	result.Reference = reference
	logger := s.logger.With("reference", reference, "order_tracking_id", orderTrackingID)

	if reference == "" {
		result.Cascade = domain.CascadeSkippedNoPayment
		logger.Warn("no ledger row for gateway order", "gateway_status", target)
		return result, nil
	}

	action := status.Action()
	order, err := s.ledger.Update(ctx, reference, func(ctx context.Context, tx application.LedgerTx, order *domain.PaymentOrder) (bool, error) {
		if order.OrderTrackingID != nil && *order.OrderTrackingID != orderTrackingID {
			logger.Warn("tracking id does not match ledger row",
				"ledger_tracking_id", *order.OrderTrackingID)
			return false, nil
		}

		backfilled := order.SetTrackingID(orderTrackingID)
		transition := order.ApplyGatewayStatus(target, action)
		result.Changed = transition.StatusChanged

		if transition.Ignored(target) {
			logger.Warn("TERMINAL_STATUS_CONFLICT",
				"ledger_status", order.Status,
				"gateway_status", target,
				"action", "MANUAL_REVIEW_REQUIRED")
		}

		if transition.IntoCompleted() {
			outcome, err := s.confirmBooking(ctx, tx, order)
			if err != nil {
				return false, err
			}
			result.Cascade = outcome
		}

		dirty := backfilled || transition.Dirty()
		if dirty {
			order.ClearReconcileSchedule()
		}
		return dirty, nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrPaymentNotFound) {
			result.Cascade = domain.CascadeSkippedNoPayment
			logger.Warn("no ledger row for gateway order", "gateway_status", target)
			return result, nil
		}
		logger.Error("reconciliation failed", "gateway_status", target, "error", err)
		return nil, application.NewReconciliationError(reference, err)
	}

	result.Status = order.Status
	if result.Cascade.Skipped() {
		logger.Warn("booking cascade skipped", "cascade", result.Cascade)
	}
	logger.Info("payment reconciled",
		"status", result.Status,
		"gateway_status", target,
		"changed", result.Changed,
		"cascade", result.Cascade)
	return result, nil
}

func (s *ReconcileService) confirmBooking(ctx context.Context, tx application.LedgerTx, order *domain.PaymentOrder) (domain.CascadeOutcome, error) {
	if !order.HasBooking() {
		return domain.CascadeSkippedNoBooking, nil
	}
	return tx.ConfirmBooking(ctx, *order.BookingRef, s.confirmedStatus)
}

// resolveReference prefers the gateway's merchant reference over the one in
// the notification, and falls back to a lookup by tracking id.
func (s *ReconcileService) resolveReference(ctx context.Context, orderTrackingID, merchantReference string, status *application.TransactionStatus) (string, error) {
	if status.MerchantReference != "" {
		if merchantReference != "" && merchantReference != status.MerchantReference {
			s.logger.Warn("notification reference differs from gateway",
				"order_tracking_id", orderTrackingID,
				"notification_reference", merchantReference,
				"gateway_reference", status.MerchantReference)
		}
		return status.MerchantReference, nil
	}
	if merchantReference != "" {
		return merchantReference, nil
	}

	order, err := s.ledger.FindByTrackingID(ctx, orderTrackingID)
	if err != nil {
		if errors.Is(err, domain.ErrPaymentNotFound) {
			return "", nil
		}
		return "", err
	}
	return order.Reference, nil
}
