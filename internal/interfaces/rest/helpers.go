package rest

import (
	"github.com/DanielPopoola/pesapal-gateway/internal/api"
	"github.com/DanielPopoola/pesapal-gateway/internal/application/services"
	"github.com/DanielPopoola/pesapal-gateway/internal/domain"
)

// ToAPIPayment renders a ledger row. booking is nil when the order has no
// booking or the booking store does not know it.
func ToAPIPayment(p *domain.PaymentOrder, booking *domain.BookingRecord) api.Payment {
	apiPayment := api.Payment{
		Reference:   p.Reference,
		Amount:      p.Money().Major(),
		Currency:    p.Currency,
		Description: p.Description,
		Status:      api.PaymentStatus(p.Status),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}

	if p.BookingRef != nil {
		apiPayment.BookingRef = *p.BookingRef
	}
	if booking != nil {
		status := booking.Status
		apiPayment.BookingStatus = &status
	}
	if p.Action != nil {
		apiPayment.Action = *p.Action
	}
	if p.OrderTrackingID != nil {
		apiPayment.OrderTrackingID = *p.OrderTrackingID
	}
	if p.RedirectURL != nil {
		apiPayment.RedirectURL = *p.RedirectURL
	}
	if p.ErrorDetail != nil {
		apiPayment.ErrorDetail = *p.ErrorDetail
	}

	return apiPayment
}

func ToAPIStatus(r *services.StatusResult) api.StatusData {
	return api.StatusData{
		Reference:        r.Reference,
		OrderTrackingID:  r.OrderTrackingID,
		Status:           api.PaymentStatus(r.Status),
		StatusCode:       r.StatusCode,
		Description:      r.Description,
		PaymentMethod:    r.PaymentMethod,
		ConfirmationCode: r.ConfirmationCode,
		Amount:           r.Amount,
		Currency:         r.Currency,
	}
}

func ToAPIAck(a services.IPNAck) api.IPNAck {
	return api.IPNAck{
		OrderNotificationType:  a.OrderNotificationType,
		OrderTrackingID:        a.OrderTrackingID,
		OrderMerchantReference: a.OrderMerchantReference,
		Status:                 a.Status,
	}
}
