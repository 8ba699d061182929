package postgres

import (
	"fmt"

	"github.com/DanielPopoola/pesapal-gateway/internal/domain"
)

func toDomainOrder(m PaymentModel) (*domain.PaymentOrder, error) {
	status := domain.PaymentStatus(m.Status)
	if !status.IsValid() {
		return nil, fmt.Errorf("payment %s has unknown status %q", m.Reference, m.Status)
	}
	return &domain.PaymentOrder{
		Reference:      m.Reference,
		BookingRef:     m.BookingRef,
		AmountMinor:    m.AmountMinor,
		Currency:       m.Currency,
		Description:    m.Description,
		CallbackURL:    m.CallbackURL,
		NotificationID: m.NotificationID,
		Billing: domain.Billing{
			Email:     m.BillingEmail,
			Phone:     m.BillingPhone,
			FirstName: m.BillingFirstName,
			LastName:  m.BillingLastName,
		},
		Status:            status,
		Action:            m.Action,
		IPAddress:         m.IPAddress,
		OrderTrackingID:   m.OrderTrackingID,
		RedirectURL:       m.RedirectURL,
		ErrorDetail:       m.ErrorDetail,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
		ReconcileAttempts: m.ReconcileAttempts,
		NextReconcileAt:   m.NextReconcileAt,
		LastErrorCategory: m.LastErrorCategory,
	}, nil
}

func toPaymentModel(p *domain.PaymentOrder) *PaymentModel {
	return &PaymentModel{
		Reference:         p.Reference,
		BookingRef:        p.BookingRef,
		AmountMinor:       p.AmountMinor,
		Currency:          p.Currency,
		Description:       p.Description,
		CallbackURL:       p.CallbackURL,
		NotificationID:    p.NotificationID,
		BillingEmail:      p.Billing.Email,
		BillingPhone:      p.Billing.Phone,
		BillingFirstName:  p.Billing.FirstName,
		BillingLastName:   p.Billing.LastName,
		Status:            string(p.Status),
		Action:            p.Action,
		IPAddress:         p.IPAddress,
		OrderTrackingID:   p.OrderTrackingID,
		RedirectURL:       p.RedirectURL,
		ErrorDetail:       p.ErrorDetail,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
		ReconcileAttempts: p.ReconcileAttempts,
		NextReconcileAt:   p.NextReconcileAt,
		LastErrorCategory: p.LastErrorCategory,
	}
}

func toDomainNotification(m NotificationModel) *domain.Notification {
	return &domain.Notification{
		ID:                m.ID,
		OrderTrackingID:   m.OrderTrackingID,
		MerchantReference: m.MerchantReference,
		NotificationType:  m.NotificationType,
		RawQuery:          m.RawQuery,
		Status:            domain.NotificationStatus(m.Status),
		Attempts:          m.Attempts,
		LastError:         m.LastError,
		NextAttemptAt:     m.NextAttemptAt,
		ReceivedAt:        m.ReceivedAt,
		ProcessedAt:       m.ProcessedAt,
	}
}

func toNotificationModel(n *domain.Notification) *NotificationModel {
	return &NotificationModel{
		ID:                n.ID,
		OrderTrackingID:   n.OrderTrackingID,
		MerchantReference: n.MerchantReference,
		NotificationType:  n.NotificationType,
		RawQuery:          n.RawQuery,
		Status:            string(n.Status),
		Attempts:          n.Attempts,
		LastError:         n.LastError,
		NextAttemptAt:     n.NextAttemptAt,
		ReceivedAt:        n.ReceivedAt,
		ProcessedAt:       n.ProcessedAt,
	}
}
