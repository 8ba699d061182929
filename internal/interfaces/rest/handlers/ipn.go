package handlers

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/DanielPopoola/pesapal-gateway/internal/api"
	"github.com/DanielPopoola/pesapal-gateway/internal/application/services"
	"github.com/DanielPopoola/pesapal-gateway/internal/interfaces/rest"
)

const maxIPNBody = 64 << 10

// ReceiveIPN acknowledges every delivery with 200. Reconciliation failures
// go to the retry queue instead of back to the gateway.
func (h *Handlers) ReceiveIPN(w http.ResponseWriter, r *http.Request, params api.NotificationParams) {
	h.receive(w, r, commandFromParams(params, r.URL.RawQuery))
}

func (h *Handlers) ReceiveIPNPost(w http.ResponseWriter, r *http.Request, params api.NotificationParams) {
	cmd := commandFromParams(params, r.URL.RawQuery)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxIPNBody))
	if err != nil {
		h.logger.Warn("could not read IPN body", "error", err)
	}
	if len(body) > 0 {
		mergeBody(&cmd, r.Header.Get("Content-Type"), body)
		if cmd.RawQuery == "" {
			cmd.RawQuery = string(body)
		}
	}

	h.receive(w, r, cmd)
}

func (h *Handlers) receive(w http.ResponseWriter, r *http.Request, cmd services.IPNCommand) {
	ack := h.notifications.Receive(r.Context(), cmd)
	rest.WriteJSON(w, http.StatusOK, rest.ToAPIAck(ack))
}

func commandFromParams(params api.NotificationParams, rawQuery string) services.IPNCommand {
	cmd := services.IPNCommand{RawQuery: rawQuery}
	if params.OrderTrackingId != nil {
		cmd.OrderTrackingID = *params.OrderTrackingId
	}
	if params.OrderMerchantReference != nil {
		cmd.MerchantReference = *params.OrderMerchantReference
	}
	if params.OrderNotificationType != nil {
		cmd.NotificationType = *params.OrderNotificationType
	}
	return cmd
}

// mergeBody fills fields the query string left empty.
func mergeBody(cmd *services.IPNCommand, contentType string, body []byte) {
	var n api.IPNNotification

	mediaType, _, _ := mime.ParseMediaType(contentType)
	switch mediaType {
	case "application/x-www-form-urlencoded":
		form, err := url.ParseQuery(string(body))
		if err != nil {
			return
		}
		n.OrderTrackingID = form.Get("OrderTrackingId")
		n.OrderMerchantReference = form.Get("OrderMerchantReference")
		n.OrderNotificationType = form.Get("OrderNotificationType")
	default:
		if err := json.Unmarshal(body, &n); err != nil {
			return
		}
	}

	if cmd.OrderTrackingID == "" {
		cmd.OrderTrackingID = n.OrderTrackingID
	}
	if cmd.MerchantReference == "" {
		cmd.MerchantReference = n.OrderMerchantReference
	}
	if cmd.NotificationType == "" {
		cmd.NotificationType = n.OrderNotificationType
	}
}
