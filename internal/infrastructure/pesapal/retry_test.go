package pesapal_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DanielPopoola/pesapal-gateway/internal/application"
	"github.com/DanielPopoola/pesapal-gateway/internal/config"
	"github.com/DanielPopoola/pesapal-gateway/internal/infrastructure/pesapal"
	"github.com/DanielPopoola/pesapal-gateway/internal/infrastructure/pesapal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newRetryGateway(t *testing.T, inner application.Gateway, maxRetries int) *pesapal.RetryGateway {
	t.Helper()
	return pesapal.NewRetryGateway(inner, config.RetryConfig{
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
		MaxRetries: maxRetries,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRetryGateway_GetTransactionStatus_Success(t *testing.T) {
	mockGateway := mocks.NewMockGateway(t)
	retryGateway := newRetryGateway(t, mockGateway, 3)

	code := 1
	expected := &application.TransactionStatus{OrderTrackingID: "track-1", StatusCode: &code, Description: "Completed"}

	mockGateway.EXPECT().
		GetTransactionStatus(mock.Anything, "tok", "track-1").
		Return(expected, nil).
		Once()

	resp, err := retryGateway.GetTransactionStatus(context.Background(), "tok", "track-1")

	require.NoError(t, err)
	assert.Equal(t, expected, resp)
}

func TestRetryGateway_RetriesOn5xx(t *testing.T) {
	mockGateway := mocks.NewMockGateway(t)
	retryGateway := newRetryGateway(t, mockGateway, 3)

	mockGateway.EXPECT().
		GetTransactionStatus(mock.Anything, "tok", "track-1").
		Return(nil, &application.GatewayError{Operation: "status", Code: "internal_error", StatusCode: 500}).
		Twice()

	mockGateway.EXPECT().
		GetTransactionStatus(mock.Anything, "tok", "track-1").
		Return(&application.TransactionStatus{OrderTrackingID: "track-1"}, nil).
		Once()

	resp, err := retryGateway.GetTransactionStatus(context.Background(), "tok", "track-1")

	require.NoError(t, err)
	assert.Equal(t, "track-1", resp.OrderTrackingID)
}

func TestRetryGateway_DoesNotRetry4xx(t *testing.T) {
	mockGateway := mocks.NewMockGateway(t)
	retryGateway := newRetryGateway(t, mockGateway, 3)

	req := application.SubmitOrderRequest{Reference: "TXN-1", Currency: "KES", Amount: 10}
	gwErr := &application.GatewayError{Operation: "submit", Code: "invalid_currency", StatusCode: 400}

	mockGateway.EXPECT().
		SubmitOrder(mock.Anything, "tok", req).
		Return(nil, gwErr).
		Once()

	_, err := retryGateway.SubmitOrder(context.Background(), "tok", req)

	require.Error(t, err)
	assert.ErrorIs(t, err, gwErr)
}

func TestRetryGateway_DoesNotRetryUnauthorized(t *testing.T) {
	mockGateway := mocks.NewMockGateway(t)
	retryGateway := newRetryGateway(t, mockGateway, 3)

	mockGateway.EXPECT().
		ListIPNs(mock.Anything, "stale").
		Return(nil, &application.GatewayError{Code: "invalid_token", StatusCode: 401}).
		Once()

	_, err := retryGateway.ListIPNs(context.Background(), "stale")

	assert.True(t, application.IsUnauthorized(err))
}

func TestRetryGateway_NetworkErrorExhausted_BecomesGatewayError(t *testing.T) {
	mockGateway := mocks.NewMockGateway(t)
	retryGateway := newRetryGateway(t, mockGateway, 2)

	req := application.TokenRequest{ConsumerKey: "k", ConsumerSecret: "s"}
	netErr := &application.NetworkError{Operation: "token", Err: context.DeadlineExceeded}

	mockGateway.EXPECT().
		RequestToken(mock.Anything, req).
		Return(nil, netErr).
		Times(3)

	_, err := retryGateway.RequestToken(context.Background(), req)

	require.Error(t, err)
	gwErr, ok := application.IsGatewayError(err)
	require.True(t, ok)
	assert.Equal(t, "network_error", gwErr.Code)
	assert.Contains(t, gwErr.Message, "3 attempts")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, application.ErrCodeGateway, application.ToErrorCode(err))
	assert.True(t, application.IsRetryable(err))
}

func TestRetryGateway_StopsOnCancelledContext(t *testing.T) {
	mockGateway := mocks.NewMockGateway(t)
	retryGateway := newRetryGateway(t, mockGateway, 5)

	ctx, cancel := context.WithCancel(context.Background())

	mockGateway.EXPECT().
		RegisterIPN(mock.Anything, "tok", mock.Anything).
		Run(func(context.Context, string, application.RegisterIPNRequest) { cancel() }).
		Return(nil, &application.NetworkError{Operation: "register", Err: errors.New("connection reset")}).
		Once()

	_, err := retryGateway.RegisterIPN(ctx, "tok", application.RegisterIPNRequest{URL: "https://example.com/ipn", NotificationType: "GET"})

	require.Error(t, err)
}
