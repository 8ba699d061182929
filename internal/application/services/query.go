package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/DanielPopoola/pesapal-gateway/internal/application"
	"github.com/DanielPopoola/pesapal-gateway/internal/domain"
)

type StatusResult struct {
	Reference        string
	OrderTrackingID  string
	Status           domain.PaymentStatus
	Description      string
	StatusCode       *int
	PaymentMethod    string
	ConfirmationCode string
	Amount           float64
	Currency         string
}

// QueryService answers client polls from the gateway and reconciles the
// ledger in the background.
type QueryService struct {
	ledger     application.Ledger
	reconciler *ReconcileService
	logger     *slog.Logger
	inflight   sync.WaitGroup
}

func NewQueryService(ledger application.Ledger, reconciler *ReconcileService, logger *slog.Logger) *QueryService {
	return &QueryService{
		ledger:     ledger,
		reconciler: reconciler,
		logger:     logger,
	}
}

// Query returns the gateway's status as soon as it is read. Applying it to the
// ledger and booking happens on a detached goroutine.
func (s *QueryService) Query(ctx context.Context, orderTrackingID, reference string) (*StatusResult, error) {
	if orderTrackingID == "" {
		return nil, application.NewValidationError("OrderTrackingId is required", domain.NewMissingRequiredFieldError("OrderTrackingId"))
	}

	status, err := s.reconciler.FetchStatus(ctx, orderTrackingID)
	if err != nil {
		return nil, err
	}

	result := &StatusResult{
		Reference:        firstNonEmpty(status.MerchantReference, reference),
		OrderTrackingID:  orderTrackingID,
		Status:           status.Status(),
		Description:      status.Description,
		StatusCode:       status.StatusCode,
		PaymentMethod:    status.PaymentMethod,
		ConfirmationCode: status.ConfirmationCode,
		Amount:           status.Amount,
		Currency:         status.Currency,
	}

	bg := context.WithoutCancel(ctx)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		if _, err := s.reconciler.Apply(bg, orderTrackingID, reference, status); err != nil {
			s.logger.Error("RECONCILIATION_DEFERRED",
				"order_tracking_id", orderTrackingID,
				"reference", reference,
				"error", err,
				"action", "SWEEP_WILL_RETRY")
		}
	}()

	return result, nil
}

// FindByReference reads the local ledger row without calling the gateway.
func (s *QueryService) FindByReference(ctx context.Context, reference string) (*domain.PaymentOrder, error) {
	order, err := s.ledger.FindByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, domain.ErrPaymentNotFound) {
			return nil, application.NewNotFoundError("payment "+reference, err)
		}
		return nil, application.NewInternalError(err)
	}
	return order, nil
}

// Wait blocks until background reconciliations started by Query have finished.
func (s *QueryService) Wait() {
	s.inflight.Wait()
}
