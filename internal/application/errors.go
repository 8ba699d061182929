package application

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APPLICATION-LEVEL ERRORS (Orchestration)

// ServiceError is the error kind surfaced by the services. Code is one of the
// ErrCode constants below.
type ServiceError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeAuth           = "AUTH_ERROR"
	ErrCodeRegistration   = "REGISTRATION_ERROR"
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeGateway        = "GATEWAY_ERROR"
	ErrCodeNetwork        = "NETWORK_ERROR"
	ErrCodeReconciliation = "RECONCILIATION_ERROR"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeInternal       = "INTERNAL_ERROR"
)

func NewAuthError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeAuth,
		Message:    "Payment gateway rejected the merchant credentials",
		HTTPStatus: http.StatusBadGateway,
		Details:    gatewayDetails(err),
		Err:        err,
	}
}

func NewRegistrationError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeRegistration,
		Message:    "Could not register the payment notification URL",
		HTTPStatus: http.StatusBadGateway,
		Details:    gatewayDetails(err),
		Err:        err,
	}
}

func NewValidationError(message string, err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
	}
}

// NewGatewayFailure wraps a non-success gateway response or an exhausted
// network retry.
func NewGatewayFailure(message string, err error) *ServiceError {
	status := http.StatusBadGateway
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		status = http.StatusGatewayTimeout
	}
	return &ServiceError{
		Code:       ErrCodeGateway,
		Message:    message,
		HTTPStatus: status,
		Details:    gatewayDetails(err),
		Err:        err,
	}
}

func NewReconciliationError(reference string, err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeReconciliation,
		Message:    fmt.Sprintf("Could not apply gateway status to %s", reference),
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewNotFoundError(what string, err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeNotFound,
		Message:    fmt.Sprintf("%s not found", what),
		HTTPStatus: http.StatusNotFound,
		Err:        err,
	}
}

func NewInternalError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInternal,
		Message:    "An internal error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func IsServiceError(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	ok := errors.As(err, &svcErr)
	return svcErr, ok
}

// GATEWAY TRANSPORT ERRORS

// GatewayError is a non-success answer from the gateway, either an HTTP error
// status or an error object inside a 200 body.
type GatewayError struct {
	Operation  string
	Code       string
	ErrorType  string
	Message    string
	StatusCode int
	Err        error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway error [%s] on %s: %s (status: %d)", e.Code, e.Operation, e.Message, e.StatusCode)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// IsRetryable is true for server side failures and rate limiting.
func (e *GatewayError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// IsUnauthorized reports a rejected or expired bearer token.
func (e *GatewayError) IsUnauthorized() bool {
	if e.StatusCode == http.StatusUnauthorized {
		return true
	}
	code := strings.ToLower(e.Code)
	return strings.Contains(code, "token") || strings.Contains(code, "unauthori")
}

func IsGatewayError(err error) (*GatewayError, bool) {
	var gwErr *GatewayError
	ok := errors.As(err, &gwErr)
	return gwErr, ok
}

// NetworkError is a timeout or connection failure reaching the gateway.
type NetworkError struct {
	Operation string
	Err       error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error on %s: %v", e.Operation, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func IsNetworkError(err error) (*NetworkError, bool) {
	var netErr *NetworkError
	ok := errors.As(err, &netErr)
	return netErr, ok
}

// IsUnauthorized reports whether err carries a gateway 401.
func IsUnauthorized(err error) bool {
	gwErr, ok := IsGatewayError(err)
	return ok && gwErr.IsUnauthorized()
}

func gatewayDetails(err error) map[string]any {
	gwErr, ok := IsGatewayError(err)
	if !ok {
		return nil
	}
	details := map[string]any{
		"operation":   gwErr.Operation,
		"status_code": gwErr.StatusCode,
	}
	if gwErr.Code != "" {
		details["gateway_code"] = gwErr.Code
	}
	if gwErr.ErrorType != "" {
		details["gateway_error_type"] = gwErr.ErrorType
	}
	if gwErr.Message != "" {
		details["gateway_message"] = gwErr.Message
	}
	return details
}
