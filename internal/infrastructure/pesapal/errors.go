package pesapal

import (
	"encoding/json"
	"net/http"

	"github.com/DanielPopoola/pesapal-gateway/internal/application"
)

// envelope is embedded in every object response. A populated Error means the
// call failed even when the HTTP status was 200.
type envelope struct {
	Error   *apiError `json:"error"`
	Status  flexInt   `json:"status"`
	Message string    `json:"message"`
}

func (e *envelope) failure() *apiError {
	if e.Error == nil || e.Error.empty() {
		return nil
	}
	return e.Error
}

func (e *envelope) statusCode() int {
	return int(e.Status)
}

type apiError struct {
	ErrorType string `json:"error_type"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

func (e *apiError) empty() bool {
	return e.ErrorType == "" && e.Code == "" && e.Message == ""
}

// UnmarshalJSON tolerates the error field being a bare string.
func (e *apiError) UnmarshalJSON(b []byte) error {
	var text string
	if err := json.Unmarshal(b, &text); err == nil {
		e.Message = text
		return nil
	}
	type plain apiError
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*e = apiError(p)
	return nil
}

type enveloped interface {
	failure() *apiError
	statusCode() int
}

func toGatewayError(op string, httpStatus int, apiErr *apiError, envelopeStatus int, fallback string) *application.GatewayError {
	status := httpStatus
	if status >= 200 && status < 300 {
		// Errors inside a 200 body are rejections of the request itself, even
		// when the envelope claims "500"; they must not be retried.
		status = http.StatusBadRequest
		if envelopeStatus >= 400 && envelopeStatus < 500 {
			status = envelopeStatus
		}
	}

	gwErr := &application.GatewayError{
		Operation:  op,
		StatusCode: status,
		Message:    fallback,
	}
	if apiErr != nil {
		gwErr.Code = apiErr.Code
		gwErr.ErrorType = apiErr.ErrorType
		if apiErr.Message != "" {
			gwErr.Message = apiErr.Message
		}
	}
	if gwErr.Code == "" {
		gwErr.Code = http.StatusText(status)
	}
	return gwErr
}
