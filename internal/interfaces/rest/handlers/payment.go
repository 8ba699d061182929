package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"reflect"
	"strings"

	"github.com/DanielPopoola/pesapal-gateway/internal/api"
	"github.com/DanielPopoola/pesapal-gateway/internal/application"
	"github.com/DanielPopoola/pesapal-gateway/internal/application/services"
	"github.com/DanielPopoola/pesapal-gateway/internal/interfaces/rest"
)

func (h *Handlers) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	var req api.SubmitPaymentRequest
	var decodeErr error
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// A mistyped field still leaves the rest of the order bound, so the
		// attempt is recorded. Anything else is not an order at all.
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			rest.WriteError(w, application.NewValidationError("Request body must be a JSON order", err), h.logger)
			return
		}
		decodeErr = fieldTypeError(typeErr)
	}

	result, err := h.submitter.Submit(r.Context(), services.SubmitOrderCommand{
		Reference:   req.Reference,
		BookingRef:  req.BookingRef,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Description: req.Description,
		CallbackURL: req.CallbackURL,
		Email:       req.Email,
		Phone:       req.Phone,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		IPAddress:   clientIP(r),
		DecodeErr:   decodeErr,
	})
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusCreated, api.SubmitPaymentResponse{
		Success: true,
		Data: api.SubmitPaymentData{
			Reference:       result.Reference,
			OrderTrackingID: result.OrderTrackingID,
			RedirectURL:     result.RedirectURL,
		},
	})
}

func (h *Handlers) GetPayment(w http.ResponseWriter, r *http.Request, reference string) {
	order, err := h.querier.FindByReference(r.Context(), reference)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	payment := rest.ToAPIPayment(order, nil)
	if order.BookingRef != nil {
		booking, err := h.bookings.FindByRef(r.Context(), *order.BookingRef)
		if err != nil {
			h.logger.Warn("could not read booking", "booking_ref", *order.BookingRef, "error", err)
		}
		payment = rest.ToAPIPayment(order, booking)
	}

	rest.WriteJSON(w, http.StatusOK, api.PaymentResponse{Success: true, Data: payment})
}

func fieldTypeError(err *json.UnmarshalTypeError) error {
	if err.Field == "" {
		return fmt.Errorf("order must be a JSON object, got %s", err.Value)
	}
	return fmt.Errorf("%s must be %s, got %s", err.Field, jsonKind(err.Type), err.Value)
}

func jsonKind(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Float32, reflect.Float64, reflect.Int, reflect.Int64:
		return "number"
	case reflect.String:
		return "string"
	}
	return t.String()
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
