package application_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/DanielPopoola/pesapal-gateway/internal/application"
	"github.com/DanielPopoola/pesapal-gateway/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestCategorizeError(t *testing.T) {
	netErr := &application.NetworkError{Operation: "Auth/RequestToken", Err: errors.New("connection reset")}

	tests := []struct {
		name string
		err  error
		want application.ErrorCategory
	}{
		{"nil", nil, ""},
		{"deadline", fmt.Errorf("submit: %w", context.DeadlineExceeded), application.CategoryTransient},
		{"network", netErr, application.CategoryTransient},
		{"gateway 503", &application.GatewayError{StatusCode: http.StatusServiceUnavailable}, application.CategoryTransient},
		{"gateway 429", &application.GatewayError{StatusCode: http.StatusTooManyRequests}, application.CategoryTransient},
		{"gateway 400", &application.GatewayError{StatusCode: http.StatusBadRequest}, application.CategoryPermanent},
		{"validation", application.NewValidationError("bad", nil), application.CategoryClientError},
		{"auth", application.NewAuthError(errors.New("denied")), application.CategoryPermanent},
		{"reconciliation", application.NewReconciliationError("TXN-1", errors.New("db down")), application.CategoryInfrastructure},
		{"wrapped network", application.NewGatewayFailure("down", netErr), application.CategoryTransient},
		{"invalid transition", domain.NewInvalidTransitionError(domain.StatusCompleted, domain.StatusPending), application.CategoryBusinessRule},
		{"duplicate reference", domain.NewDuplicateReferenceError("TXN-1"), application.CategoryClientError},
		{"unknown", errors.New("boom"), application.CategoryTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, application.CategorizeError(tt.err))
		})
	}
}

func TestToHTTPStatus(t *testing.T) {
	netErr := &application.NetworkError{Operation: "Transactions/SubmitOrderRequest", Err: context.DeadlineExceeded}
	exhausted := &application.GatewayError{Code: "network_error", StatusCode: 0, Err: netErr}

	assert.Equal(t, http.StatusOK, application.ToHTTPStatus(nil))
	assert.Equal(t, http.StatusBadRequest, application.ToHTTPStatus(application.NewValidationError("bad", nil)))
	assert.Equal(t, http.StatusNotFound, application.ToHTTPStatus(domain.NewPaymentNotFoundError("TXN-1")))
	assert.Equal(t, http.StatusConflict, application.ToHTTPStatus(domain.NewDuplicateReferenceError("TXN-1")))
	assert.Equal(t, http.StatusBadGateway, application.ToHTTPStatus(&application.GatewayError{StatusCode: http.StatusBadRequest}))
	assert.Equal(t, http.StatusGatewayTimeout, application.ToHTTPStatus(exhausted))
	assert.Equal(t, http.StatusGatewayTimeout, application.ToHTTPStatus(application.NewGatewayFailure("timeout", exhausted)))
}

func TestToErrorCode(t *testing.T) {
	netErr := &application.NetworkError{Operation: "Transactions/SubmitOrderRequest", Err: context.DeadlineExceeded}

	assert.Equal(t, application.ErrCodeGateway, application.ToErrorCode(&application.GatewayError{Err: netErr}))
	assert.Equal(t, application.ErrCodeNetwork, application.ToErrorCode(netErr))
	assert.Equal(t, application.ErrCodeValidation, application.ToErrorCode(domain.NewMissingRequiredFieldError("currency")))
	assert.Equal(t, application.ErrCodeNotFound, application.ToErrorCode(domain.ErrPaymentNotFound))
	assert.Equal(t, application.ErrCodeInternal, application.ToErrorCode(errors.New("boom")))
}

func TestGatewayError_IsUnauthorized(t *testing.T) {
	assert.True(t, (&application.GatewayError{StatusCode: http.StatusUnauthorized}).IsUnauthorized())
	assert.True(t, (&application.GatewayError{StatusCode: http.StatusBadRequest, Code: "invalid_access_token"}).IsUnauthorized())
	assert.False(t, (&application.GatewayError{StatusCode: http.StatusBadRequest, Code: "invalid_currency"}).IsUnauthorized())
	assert.True(t, application.IsUnauthorized(fmt.Errorf("submit: %w", &application.GatewayError{StatusCode: http.StatusUnauthorized})))
}
