package application

import (
	"context"
	"time"

	"github.com/DanielPopoola/pesapal-gateway/internal/domain"
)

// Gateway is the port for the external payment gateway. Every call except
// RequestToken carries a bearer token obtained from RequestToken.
type Gateway interface {
	RequestToken(ctx context.Context, req TokenRequest) (*TokenResponse, error)
	RegisterIPN(ctx context.Context, token string, req RegisterIPNRequest) (*RegisterIPNResponse, error)
	ListIPNs(ctx context.Context, token string) ([]IPNRegistration, error)
	SubmitOrder(ctx context.Context, token string, req SubmitOrderRequest) (*SubmitOrderResponse, error)
	GetTransactionStatus(ctx context.Context, token, orderTrackingID string) (*TransactionStatus, error)
}

type TokenRequest struct {
	ConsumerKey    string
	ConsumerSecret string
}

type TokenResponse struct {
	Token     string
	ExpiresAt time.Time
}

type RegisterIPNRequest struct {
	URL              string
	NotificationType string
}

type RegisterIPNResponse struct {
	IPNID string
	URL   string
}

type IPNRegistration struct {
	IPNID            string
	URL              string
	NotificationType string
}

type SubmitOrderRequest struct {
	Reference      string
	Currency       string
	Amount         float64
	Description    string
	CallbackURL    string
	NotificationID string
	Billing        domain.Billing
}

type SubmitOrderResponse struct {
	OrderTrackingID   string
	MerchantReference string
	RedirectURL       string
}

// TransactionStatus is the gateway's authoritative view of an order.
type TransactionStatus struct {
	OrderTrackingID   string
	MerchantReference string
	Description       string
	StatusCode        *int
	Amount            float64
	Currency          string
	ConfirmationCode  string
	PaymentMethod     string
}

// Status maps the gateway vocabulary onto the ledger enum.
func (s *TransactionStatus) Status() domain.PaymentStatus {
	return domain.MapGatewayStatus(s.StatusCode, s.Description)
}

// Action is the raw status kept on the ledger row.
func (s *TransactionStatus) Action() string {
	return domain.GatewayAction(s.StatusCode, s.Description)
}

// CredentialSource hands out the shared gateway bearer credential.
type CredentialSource interface {
	Acquire(ctx context.Context) (domain.Credential, error)
	Invalidate(token string)
}

// WebhookSource resolves the gateway notification id for a callback URL.
type WebhookSource interface {
	EnsureRegistered(ctx context.Context, callbackURL string) (string, error)
}

// LedgerTx is the booking store as seen from inside a ledger transaction.
type LedgerTx interface {
	ConfirmBooking(ctx context.Context, bookingRef string, confirmedStatus int16) (domain.CascadeOutcome, error)
}

// MutateFunc changes order in place and reports whether it must be written back.
type MutateFunc func(ctx context.Context, tx LedgerTx, order *domain.PaymentOrder) (bool, error)

// Ledger is the port for the payments table. Every change to an existing row
// goes through Update, which holds the row lock for the duration of mutate.
type Ledger interface {
	Create(ctx context.Context, order *domain.PaymentOrder) error
	FindByReference(ctx context.Context, reference string) (*domain.PaymentOrder, error)
	FindByTrackingID(ctx context.Context, orderTrackingID string) (*domain.PaymentOrder, error)
	Update(ctx context.Context, reference string, mutate MutateFunc) (*domain.PaymentOrder, error)
	FindReconcilable(ctx context.Context, filter ReconcileFilter) ([]*domain.PaymentOrder, error)
}

// ReconcileFilter selects rows the sweep should re-poll.
type ReconcileFilter struct {
	Now          time.Time
	OlderThan    time.Time
	InvalidSince time.Time
	MaxAttempts  int
	Limit        int
}

// NotificationLog persists IPN deliveries; FAILED rows form the retry queue.
type NotificationLog interface {
	Record(ctx context.Context, n *domain.Notification) error
	Save(ctx context.Context, n *domain.Notification) error
	FindRetryable(ctx context.Context, now time.Time, maxAttempts, limit int) ([]*domain.Notification, error)
}
