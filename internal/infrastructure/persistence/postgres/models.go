package postgres

import (
	"time"

	"github.com/google/uuid"
)

// PaymentModel mirrors one row of the payments table.
type PaymentModel struct {
	Reference         string
	BookingRef        *string
	AmountMinor       int64
	Currency          string
	Description       string
	CallbackURL       string
	NotificationID    *string
	BillingEmail      string
	BillingPhone      string
	BillingFirstName  string
	BillingLastName   string
	Status            string
	Action            *string
	IPAddress         string
	OrderTrackingID   *string
	RedirectURL       *string
	ErrorDetail       *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	ReconcileAttempts int
	NextReconcileAt   *time.Time
	LastErrorCategory *string
}

type NotificationModel struct {
	ID                uuid.UUID
	OrderTrackingID   string
	MerchantReference string
	NotificationType  string
	RawQuery          string
	Status            string
	Attempts          int
	LastError         *string
	NextAttemptAt     *time.Time
	ReceivedAt        time.Time
	ProcessedAt       *time.Time
}
