package services

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/DanielPopoola/pesapal-gateway/internal/application"
	"github.com/DanielPopoola/pesapal-gateway/internal/config"
	"github.com/DanielPopoola/pesapal-gateway/internal/domain"
)

type IPNCommand struct {
	OrderTrackingID   string
	MerchantReference string
	NotificationType  string
	RawQuery          string
}

// IPNAck is the body the gateway expects back from a notification delivery.
type IPNAck struct {
	OrderNotificationType  string
	OrderTrackingID        string
	OrderMerchantReference string
	Status                 int
}

// NotificationService records IPN deliveries and reconciles them. A delivery
// that cannot be reconciled stays in the log as FAILED for the sweep to retry.
type NotificationService struct {
	log        application.NotificationLog
	reconciler Reconciler
	baseDelay  time.Duration
	maxDelay   time.Duration
	logger     *slog.Logger
}

func NewNotificationService(log application.NotificationLog, reconciler Reconciler, retry config.RetryConfig, worker config.WorkerConfig, logger *slog.Logger) *NotificationService {
	return &NotificationService{
		log:        log,
		reconciler: reconciler,
		baseDelay:  worker.MinAge,
		maxDelay:   maxDuration(retry.MaxDelay, worker.MinAge<<6),
		logger:     logger,
	}
}

// Receive always acknowledges the delivery. Failures are handed to the
// durable retry path instead of being reported back to the gateway.
func (s *NotificationService) Receive(ctx context.Context, cmd IPNCommand) IPNAck {
	ack := IPNAck{
		OrderNotificationType:  cmd.NotificationType,
		OrderTrackingID:        cmd.OrderTrackingID,
		OrderMerchantReference: cmd.MerchantReference,
		Status:                 http.StatusOK,
	}
	ctx = context.WithoutCancel(ctx)
	logger := s.logger.With("order_tracking_id", cmd.OrderTrackingID, "reference", cmd.MerchantReference)

	n, err := domain.NewNotification(cmd.OrderTrackingID, cmd.MerchantReference, cmd.NotificationType, cmd.RawQuery)
	if err != nil {
		logger.Warn("ignoring IPN without tracking id", "query", cmd.RawQuery)
		return ack
	}

	recorded := true
	if err := s.log.Record(ctx, n); err != nil {
		recorded = false
		logger.Error("IPN_NOT_RECORDED", "error", err)
	}

	_, err = s.reconciler.Reconcile(ctx, cmd.OrderTrackingID, cmd.MerchantReference)
	if !recorded {
		if err != nil {
			logger.Error("RECONCILIATION_DEFERRED",
				"error", err,
				"action", "SWEEP_WILL_RETRY_FROM_LEDGER")
		}
		return ack
	}
	s.settle(ctx, n, err)
	return ack
}

// Redrive retries one FAILED delivery from the log.
func (s *NotificationService) Redrive(ctx context.Context, n *domain.Notification) error {
	_, err := s.reconciler.Reconcile(ctx, n.OrderTrackingID, n.MerchantReference)
	s.settle(ctx, n, err)
	return err
}

func (s *NotificationService) settle(ctx context.Context, n *domain.Notification, reconcileErr error) {
	if reconcileErr == nil {
		n.MarkProcessed()
	} else {
		n.MarkFailed(reconcileErr.Error(), s.backoff(n.Attempts))
		s.logger.Warn("RECONCILIATION_DEFERRED",
			"notification_id", n.ID,
			"order_tracking_id", n.OrderTrackingID,
			"attempts", n.Attempts,
			"category", application.CategorizeError(reconcileErr),
			"next_attempt_at", n.NextAttemptAt,
			"error", reconcileErr)
	}

	if err := s.log.Save(ctx, n); err != nil {
		s.logger.Error("could not update IPN log", "notification_id", n.ID, "error", err)
	}
}

func (s *NotificationService) backoff(attempts int) time.Duration {
	return exponentialDelay(s.baseDelay, s.maxDelay, attempts)
}

// exponentialDelay doubles base per attempt already made, capped at max.
func exponentialDelay(base, max time.Duration, attempts int) time.Duration {
	if attempts > 16 {
		attempts = 16
	}
	d := base * time.Duration(1<<attempts)
	if d > max || d <= 0 {
		return max
	}
	return d
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}
