package handlers

import (
	"net/http"

	"github.com/DanielPopoola/pesapal-gateway/internal/api"
	"github.com/DanielPopoola/pesapal-gateway/internal/interfaces/rest"
)

// PaymentCallback is where the gateway sends the customer after checkout.
// It answers with the live gateway status.
func (h *Handlers) PaymentCallback(w http.ResponseWriter, r *http.Request, params api.StatusParams) {
	h.writeStatus(w, r, params)
}

func (h *Handlers) GetTransactionStatus(w http.ResponseWriter, r *http.Request, params api.StatusParams) {
	h.writeStatus(w, r, params)
}

func (h *Handlers) writeStatus(w http.ResponseWriter, r *http.Request, params api.StatusParams) {
	var reference string
	if params.OrderMerchantReference != nil {
		reference = *params.OrderMerchantReference
	}

	result, err := h.querier.Query(r.Context(), params.OrderTrackingId, reference)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, api.StatusResponse{Success: true, Data: rest.ToAPIStatus(result)})
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		h.logger.Error("health check failed", "error", err)
		rest.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	rest.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
