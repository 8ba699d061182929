package pesapal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/DanielPopoola/pesapal-gateway/internal/application"
	"github.com/DanielPopoola/pesapal-gateway/internal/config"
)

// RetryGateway retries transient gateway failures with bounded exponential backoff.
type RetryGateway struct {
	inner      application.Gateway
	baseDelay  time.Duration
	maxDelay   time.Duration
	maxRetries int
	logger     *slog.Logger
}

func NewRetryGateway(inner application.Gateway, cfg config.RetryConfig, logger *slog.Logger) *RetryGateway {
	return &RetryGateway{
		inner:      inner,
		baseDelay:  cfg.BaseDelay,
		maxDelay:   cfg.MaxDelay,
		maxRetries: cfg.MaxRetries,
		logger:     logger,
	}
}

func (r *RetryGateway) RequestToken(ctx context.Context, req application.TokenRequest) (*application.TokenResponse, error) {
	return retry(r, ctx, opRequestToken, func(ctx context.Context) (*application.TokenResponse, error) {
		return r.inner.RequestToken(ctx, req)
	})
}

func (r *RetryGateway) RegisterIPN(ctx context.Context, token string, req application.RegisterIPNRequest) (*application.RegisterIPNResponse, error) {
	return retry(r, ctx, opRegisterIPN, func(ctx context.Context) (*application.RegisterIPNResponse, error) {
		return r.inner.RegisterIPN(ctx, token, req)
	})
}

func (r *RetryGateway) ListIPNs(ctx context.Context, token string) ([]application.IPNRegistration, error) {
	return retry(r, ctx, opListIPNs, func(ctx context.Context) ([]application.IPNRegistration, error) {
		return r.inner.ListIPNs(ctx, token)
	})
}

func (r *RetryGateway) SubmitOrder(ctx context.Context, token string, req application.SubmitOrderRequest) (*application.SubmitOrderResponse, error) {
	return retry(r, ctx, opSubmitOrder, func(ctx context.Context) (*application.SubmitOrderResponse, error) {
		return r.inner.SubmitOrder(ctx, token, req)
	})
}

func (r *RetryGateway) GetTransactionStatus(ctx context.Context, token, orderTrackingID string) (*application.TransactionStatus, error) {
	return retry(r, ctx, opStatus, func(ctx context.Context) (*application.TransactionStatus, error) {
		return r.inner.GetTransactionStatus(ctx, token, orderTrackingID)
	})
}

// Generic retry helper
func retry[T any](r *RetryGateway, ctx context.Context, op string, operation func(ctx context.Context) (T, error)) (T, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = r.baseDelay
	policy.MaxInterval = r.maxDelay
	policy.MaxElapsedTime = 0

	maxRetries := r.maxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(maxRetries)), ctx)

	attempts := 0
	result, err := backoff.RetryNotifyWithData(func() (T, error) {
		attempts++
		resp, err := operation(ctx)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil || !isRetryable(err) {
			return resp, backoff.Permanent(err)
		}
		return resp, err
	}, b, func(err error, wait time.Duration) {
		r.logger.Warn("retrying gateway call",
			"operation", op,
			"attempt", attempts,
			"wait", wait,
			"error", err)
	})
	if err == nil {
		return result, nil
	}

	if netErr, ok := application.IsNetworkError(err); ok {
		return result, &application.GatewayError{
			Operation: op,
			Code:      "network_error",
			Message:   fmt.Sprintf("gateway unreachable after %d attempts", attempts),
			Err:       netErr,
		}
	}
	return result, err
}

// Helper: to check retryable errors
func isRetryable(err error) bool {
	if gwErr, ok := application.IsGatewayError(err); ok {
		return gwErr.IsRetryable()
	}
	if _, ok := application.IsNetworkError(err); ok {
		return true
	}
	return false
}
