package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/DanielPopoola/pesapal-gateway/internal/api"
	"github.com/DanielPopoola/pesapal-gateway/internal/application"
)

// WriteError maps application errors to HTTP responses
func WriteError(w http.ResponseWriter, err error, logger *slog.Logger) {
	statusCode := application.ToHTTPStatus(err)
	errorCode := application.ToErrorCode(err)

	body := api.ErrorBody{
		Code:    errorCode,
		Message: err.Error(),
	}
	if svcErr, ok := application.IsServiceError(err); ok {
		body.Message = svcErr.Message
		body.Details = svcErr.Details
	}

	if statusCode >= http.StatusInternalServerError {
		logger.Error("request failed", "code", errorCode, "status", statusCode, "error", err)
	}

	WriteJSON(w, statusCode, api.ErrorResponse{Success: false, Error: body})
}

func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
