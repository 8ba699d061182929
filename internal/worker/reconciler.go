package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/DanielPopoola/pesapal-gateway/internal/application"
	"github.com/DanielPopoola/pesapal-gateway/internal/application/services"
	"github.com/DanielPopoola/pesapal-gateway/internal/config"
	"github.com/DanielPopoola/pesapal-gateway/internal/domain"
)

// pendingAtGateway marks a row re-polled without error whose gateway status
// is still not terminal.
const pendingAtGateway = "PENDING_AT_GATEWAY"

type NotificationRedriver interface {
	Redrive(ctx context.Context, n *domain.Notification) error
}

// Reconciler is the durable half of reconciliation. On every tick it re-polls
// non-terminal ledger rows and redrives IPN deliveries that failed to apply.
type Reconciler struct {
	ledger        application.Ledger
	notifications application.NotificationLog
	redriver      NotificationRedriver
	reconciler    services.Reconciler
	cfg           config.WorkerConfig
	baseDelay     time.Duration
	maxDelay      time.Duration
	cron          *cron.Cron
	logger        *slog.Logger
	now           func() time.Time
	mu            sync.Mutex
}

func NewReconciler(
	ledger application.Ledger,
	notifications application.NotificationLog,
	redriver NotificationRedriver,
	reconciler services.Reconciler,
	cfg config.WorkerConfig,
	retry config.RetryConfig,
	logger *slog.Logger,
) *Reconciler {
	logger = logger.With("component", "reconciler")
	return &Reconciler{
		ledger:        ledger,
		notifications: notifications,
		redriver:      redriver,
		reconciler:    reconciler,
		cfg:           cfg,
		baseDelay:     cfg.MinAge,
		maxDelay:      max(retry.MaxDelay, cfg.MinAge<<6),
		cron:          cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger}))),
		logger:        logger,
		now:           time.Now,
	}
}

// Start schedules the sweep and returns once the scheduler is running. The
// sweep stops when ctx is cancelled or Stop is called.
func (r *Reconciler) Start(ctx context.Context) error {
	_, err := r.cron.AddFunc(r.cfg.Schedule, func() { r.RunOnce(ctx) })
	if err != nil {
		return err
	}

	r.logger.Info("starting background reconciler", "schedule", r.cfg.Schedule, "batch_size", r.cfg.BatchSize)
	r.cron.Start()

	go func() {
		<-ctx.Done()
		r.Stop()
	}()
	return nil
}

// Stop halts scheduling and waits for a running sweep to finish.
func (r *Reconciler) Stop() {
	<-r.cron.Stop().Done()
}

// RunOnce executes a single reconciliation cycle.
func (r *Reconciler) RunOnce(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ctx.Err() != nil {
		return
	}
	r.reconcileStalePayments(ctx)
	r.redriveNotifications(ctx)
}

func (r *Reconciler) reconcileStalePayments(ctx context.Context) {
	now := r.now().UTC()
	orders, err := r.ledger.FindReconcilable(ctx, application.ReconcileFilter{
		Now:          now,
		OlderThan:    now.Add(-r.cfg.MinAge),
		InvalidSince: now.Add(-r.cfg.InvalidRequeryWindow),
		MaxAttempts:  r.cfg.MaxAttempts,
		Limit:        r.cfg.BatchSize,
	})
	if err != nil {
		r.logger.Error("failed to fetch reconcilable payments", "error", err)
		return
	}
	if len(orders) == 0 {
		return
	}

	r.logger.Info("reconciling stale payments", "count", len(orders))

	for _, order := range orders {
		if ctx.Err() != nil {
			return
		}
		r.reconcileOrder(ctx, order)
	}
}

func (r *Reconciler) reconcileOrder(ctx context.Context, order *domain.PaymentOrder) {
	logger := r.logger.With("reference", order.Reference, "order_tracking_id", *order.OrderTrackingID)

	result, err := r.reconciler.Reconcile(ctx, *order.OrderTrackingID, order.Reference)
	if err != nil {
		category := string(application.CategorizeError(err))
		r.schedule(ctx, order, category)
		logger.Error("reconciliation failed for payment",
			"attempts", order.ReconcileAttempts+1,
			"category", category,
			"error", err)
		return
	}

	if !result.Status.IsTerminal() {
		r.schedule(ctx, order, pendingAtGateway)
	}
}

// schedule backs the row off so the next sweep skips it until it is due. The
// first retry waits twice the minimum age.
func (r *Reconciler) schedule(ctx context.Context, order *domain.PaymentOrder, category string) {
	_, err := r.ledger.Update(ctx, order.Reference, func(_ context.Context, _ application.LedgerTx, o *domain.PaymentOrder) (bool, error) {
		if o.Status.IsTerminal() {
			return false, nil
		}
		o.ScheduleReconcile(backoff(r.baseDelay, r.maxDelay, o.ReconcileAttempts+1), category)
		return true, nil
	})
	if err != nil {
		r.logger.Error("could not schedule next reconciliation", "reference", order.Reference, "error", err)
	}
}

func (r *Reconciler) redriveNotifications(ctx context.Context) {
	pending, err := r.notifications.FindRetryable(ctx, r.now().UTC(), r.cfg.MaxAttempts, r.cfg.BatchSize)
	if err != nil {
		r.logger.Error("failed to fetch retryable notifications", "error", err)
		return
	}

	var redriven int
	for _, n := range pending {
		if ctx.Err() != nil {
			return
		}
		if err := r.redriver.Redrive(ctx, n); err != nil {
			continue
		}
		redriven++
	}

	if len(pending) > 0 {
		r.logger.Info("redrove notifications", "count", len(pending), "applied", redriven)
	}
}

// backoff doubles base per attempt already made, capped at max.
func backoff(base, max time.Duration, attempts int) time.Duration {
	if attempts > 16 {
		attempts = 16
	}
	d := base * time.Duration(1<<attempts)
	if d > max || d <= 0 {
		return max
	}
	return d
}

type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
