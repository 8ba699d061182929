package testhelpers

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/DanielPopoola/pesapal-gateway/internal/application"
	"github.com/DanielPopoola/pesapal-gateway/internal/application/services"
	"github.com/DanielPopoola/pesapal-gateway/internal/config"
	"github.com/DanielPopoola/pesapal-gateway/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const (
	TestToken       = "token-abc"
	TestIPNURL      = "https://shop.example.com/api/pesapal/ipn"
	TestCallbackURL = "https://shop.example.com/payment/complete"
	TestIPNID       = "ipn-0001"
	ConfirmedStatus = int16(2)
)

func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func PesapalConfig() config.PesapalConfig {
	return config.PesapalConfig{
		BaseURL:             "https://cybqa.pesapal.com/pesapalv3",
		ConsumerKey:         "key",
		ConsumerSecret:      "secret",
		Timeout:             5 * time.Second,
		TokenTTL:            4 * time.Minute,
		TokenExpirySkew:     30 * time.Second,
		IPNURL:              TestIPNURL,
		IPNNotificationType: "GET",
		CallbackURL:         TestCallbackURL,
	}
}

func OrdersConfig() config.OrdersConfig {
	return config.OrdersConfig{
		AllowedCurrencies:  []string{"KES", "USD"},
		MaxAmount:          1_000_000,
		ReferencePrefix:    "TXN",
		DefaultDescription: "Payment description goes here",
		DefaultBilling: config.BillingConfig{
			Email:     "user@example.com",
			Phone:     "254727632051",
			FirstName: "James",
			LastName:  "Doe",
		},
		SubmitDeadline: 2 * time.Second,
	}
}

// DefaultSubmitCommand returns a valid order for booking bookingRef.
func DefaultSubmitCommand(bookingRef string) services.SubmitOrderCommand {
	return services.SubmitOrderCommand{
		BookingRef:  bookingRef,
		Amount:      1500,
		Currency:    "KES",
		Description: "Room 12, two nights",
	}
}

// SeedBooking inserts a booking owned by the booking subsystem.
func SeedBooking(t *testing.T, td *TestDatabase, status int16) string {
	ref := "BK-" + uuid.NewString()[:8]
	_, err := td.DB.Pool.Exec(context.Background(),
		`INSERT INTO bookings (booking_ref, status) VALUES ($1, $2)`, ref, status)
	require.NoError(t, err)
	return ref
}

func BookingStatus(t *testing.T, td *TestDatabase, bookingRef string) int16 {
	var status int16
	err := td.DB.Pool.QueryRow(context.Background(),
		`SELECT status FROM bookings WHERE booking_ref = $1`, bookingRef).Scan(&status)
	require.NoError(t, err)
	return status
}

// CreateSubmittedOrder stores a PENDING order the gateway has already accepted.
func CreateSubmittedOrder(t *testing.T, ledger application.Ledger, bookingRef string) *domain.PaymentOrder {
	ctx := context.Background()
	money, err := domain.NewMoney(150000, "KES")
	require.NoError(t, err)

	details := domain.OrderDetails{Description: "Room 12, two nights", CallbackURL: TestCallbackURL}
	if bookingRef != "" {
		details.BookingRef = &bookingRef
	}
	order, err := domain.NewPaymentOrder(domain.NewReference("TXN", time.Now()), money, details)
	require.NoError(t, err)
	require.NoError(t, ledger.Create(ctx, order))

	trackingID := uuid.NewString()
	order, err = ledger.Update(ctx, order.Reference, func(_ context.Context, _ application.LedgerTx, o *domain.PaymentOrder) (bool, error) {
		return true, o.MarkSubmitted(trackingID, "https://pay.example.com/"+trackingID, TestIPNID)
	})
	require.NoError(t, err)
	return order
}

// GatewayStatus builds a status response for code with the matching description.
func GatewayStatus(order *domain.PaymentOrder, code int) *application.TransactionStatus {
	descriptions := map[int]string{
		domain.GatewayCodeInvalid:   "INVALID",
		domain.GatewayCodeCompleted: "COMPLETED",
		domain.GatewayCodeFailed:    "FAILED",
		domain.GatewayCodeReversed:  "REVERSED",
	}
	return &application.TransactionStatus{
		OrderTrackingID:   *order.OrderTrackingID,
		MerchantReference: order.Reference,
		Description:       descriptions[code],
		StatusCode:        &code,
		Amount:            order.Money().Major(),
		Currency:          order.Currency,
		PaymentMethod:     "MpesaKE",
	}
}

// StaticCredentials hands out a fixed token and counts invalidations.
type StaticCredentials struct {
	mu          sync.Mutex
	Tokens      []string
	Invalidated []string
}

func NewStaticCredentials(tokens ...string) *StaticCredentials {
	if len(tokens) == 0 {
		tokens = []string{TestToken}
	}
	return &StaticCredentials{Tokens: tokens}
}

func (s *StaticCredentials) Acquire(context.Context) (domain.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.Credential{Token: s.Tokens[0], ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (s *StaticCredentials) Invalidate(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Invalidated = append(s.Invalidated, token)
	if len(s.Tokens) > 1 && s.Tokens[0] == token {
		s.Tokens = s.Tokens[1:]
	}
}

// StaticWebhooks always resolves to TestIPNID.
type StaticWebhooks struct{}

func (StaticWebhooks) EnsureRegistered(context.Context, string) (string, error) {
	return TestIPNID, nil
}
