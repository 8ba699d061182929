package domain

import (
	"time"

	"github.com/google/uuid"
)

type NotificationStatus string

const (
	NotificationReceived  NotificationStatus = "RECEIVED"
	NotificationProcessed NotificationStatus = "PROCESSED"
	NotificationFailed    NotificationStatus = "FAILED"
)

// Notification is one IPN delivery. FAILED rows are re-driven by the sweep.
type Notification struct {
	ID                uuid.UUID
	OrderTrackingID   string
	MerchantReference string
	NotificationType  string
	RawQuery          string
	Status            NotificationStatus
	Attempts          int
	LastError         *string
	NextAttemptAt     *time.Time
	ReceivedAt        time.Time
	ProcessedAt       *time.Time
}

func NewNotification(trackingID, merchantReference, notificationType, rawQuery string) (*Notification, error) {
	if trackingID == "" {
		return nil, NewMissingRequiredFieldError("OrderTrackingId")
	}
	return &Notification{
		ID:                uuid.New(),
		OrderTrackingID:   trackingID,
		MerchantReference: merchantReference,
		NotificationType:  notificationType,
		RawQuery:          rawQuery,
		Status:            NotificationReceived,
		ReceivedAt:        time.Now().UTC(),
	}, nil
}

func (n *Notification) MarkProcessed() {
	now := time.Now().UTC()
	n.Status = NotificationProcessed
	n.ProcessedAt = &now
	n.NextAttemptAt = nil
	n.LastError = nil
}

// MarkFailed counts the attempt and schedules the next one after backoff.
func (n *Notification) MarkFailed(reason string, backoff time.Duration) {
	n.Attempts++
	next := time.Now().UTC().Add(backoff)
	n.Status = NotificationFailed
	n.LastError = &reason
	n.NextAttemptAt = &next
}
