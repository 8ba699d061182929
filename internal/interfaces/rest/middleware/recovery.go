package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/DanielPopoola/pesapal-gateway/internal/api"
	"github.com/DanielPopoola/pesapal-gateway/internal/application"
	"github.com/DanielPopoola/pesapal-gateway/internal/interfaces/rest"
)

// Recovery turns a handler panic into a 500. Requests on ackPaths are
// gateway deliveries and get a 200 acknowledgement instead.
func Recovery(logger *slog.Logger, ackPaths ...string) func(http.Handler) http.Handler {
	acks := make(map[string]bool, len(ackPaths))
	for _, p := range ackPaths {
		acks[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}

				logger.Error("panic recovered",
					"panic", rec,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)

				if acks[r.URL.Path] {
					logger.Error("IPN_NOT_RECORDED", "raw_query", r.URL.RawQuery)
					query := r.URL.Query()
					rest.WriteJSON(w, http.StatusOK, api.IPNAck{
						OrderNotificationType:  query.Get("OrderNotificationType"),
						OrderTrackingID:        query.Get("OrderTrackingId"),
						OrderMerchantReference: query.Get("OrderMerchantReference"),
						Status:                 http.StatusOK,
					})
					return
				}

				rest.WriteError(w, application.NewInternalError(fmt.Errorf("panic: %v", rec)), logger)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
