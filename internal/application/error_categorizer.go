package application

import (
	"context"
	"errors"
	"net/http"

	"github.com/DanielPopoola/pesapal-gateway/internal/domain"
)

// ErrorCategory represents the nature of an error for retry logic
type ErrorCategory string

const (
	CategoryTransient      ErrorCategory = "TRANSIENT"
	CategoryPermanent      ErrorCategory = "PERMANENT"
	CategoryBusinessRule   ErrorCategory = "BUSINESS_RULE"
	CategoryClientError    ErrorCategory = "CLIENT_ERROR"
	CategoryInfrastructure ErrorCategory = "INFRASTRUCTURE"
)

// CategorizeError determines error category for retry and logging purposes
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return CategoryTransient
	}

	if svcErr, ok := IsServiceError(err); ok {
		switch svcErr.Code {
		case ErrCodeValidation, ErrCodeNotFound:
			return CategoryClientError
		case ErrCodeAuth:
			return CategoryPermanent
		case ErrCodeReconciliation, ErrCodeInternal:
			return CategoryInfrastructure
		case ErrCodeGateway, ErrCodeRegistration, ErrCodeNetwork:
			if svcErr.Err != nil {
				return CategorizeError(svcErr.Err)
			}
			return CategoryPermanent
		}
	}

	if errors.Is(err, domain.ErrInvalidTransition) ||
		errors.Is(err, domain.ErrAlreadySubmitted) {
		return CategoryBusinessRule
	}

	if errors.Is(err, domain.ErrInvalidAmount) ||
		errors.Is(err, domain.ErrMissingRequiredField) ||
		errors.Is(err, domain.ErrDuplicateReference) ||
		errors.Is(err, domain.ErrPaymentNotFound) {
		return CategoryClientError
	}

	if _, ok := IsNetworkError(err); ok {
		return CategoryTransient
	}

	if gwErr, ok := IsGatewayError(err); ok {
		if gwErr.IsRetryable() {
			return CategoryTransient
		}
		return CategoryPermanent
	}

	// Default: Transient (safe fallback)
	return CategoryTransient
}

// IsRetryable returns true if the error category suggests retry
func IsRetryable(err error) bool {
	category := CategorizeError(err)
	return category == CategoryTransient || category == CategoryInfrastructure
}

// ToHTTPStatus maps error to appropriate HTTP status code
func ToHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.HTTPStatus
	}

	switch {
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrMissingRequiredField):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrDuplicateReference),
		errors.Is(err, domain.ErrAlreadySubmitted):
		return http.StatusConflict
	case errors.Is(err, domain.ErrPaymentNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	}

	if _, ok := IsGatewayError(err); ok {
		if _, isNet := IsNetworkError(err); isNet {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	}
	if _, ok := IsNetworkError(err); ok {
		return http.StatusGatewayTimeout
	}

	// Default to 500
	return http.StatusInternalServerError
}

// ToErrorCode clear error code for API responses
func ToErrorCode(err error) string {
	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.Code
	}

	switch {
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrMissingRequiredField),
		errors.Is(err, domain.ErrDuplicateReference):
		return ErrCodeValidation
	case errors.Is(err, domain.ErrPaymentNotFound):
		return ErrCodeNotFound
	case errors.Is(err, domain.ErrInvalidTransition):
		return domain.ErrCodeInvalidTransition
	}

	// Exhausted network retries surface as gateway errors.
	if _, ok := IsGatewayError(err); ok {
		return ErrCodeGateway
	}
	if _, ok := IsNetworkError(err); ok {
		return ErrCodeNetwork
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrCodeNetwork
	}

	return ErrCodeInternal
}
