package domain_test

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/DanielPopoola/pesapal-gateway/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPaymentOrder(t *testing.T) {
	t.Run("creates pending order", func(t *testing.T) {
		money, err := domain.NewMoney(1000, "kes")
		require.NoError(t, err)
		booking := "  BK-1 "

		order, err := domain.NewPaymentOrder("TXN-1", money, domain.OrderDetails{
			BookingRef:  &booking,
			Description: "Payment description goes here",
			CallbackURL: "https://example.com/callback",
		})

		require.NoError(t, err)
		assert.Equal(t, "TXN-1", order.Reference)
		assert.Equal(t, int64(1000), order.AmountMinor)
		assert.Equal(t, "KES", order.Currency)
		assert.Equal(t, domain.StatusPending, order.Status)
		require.NotNil(t, order.BookingRef)
		assert.Equal(t, "BK-1", *order.BookingRef)
		assert.Nil(t, order.OrderTrackingID)
		assert.NotZero(t, order.CreatedAt)
	})

	t.Run("blank booking ref is dropped", func(t *testing.T) {
		money, _ := domain.NewMoney(1000, "KES")
		blank := "   "

		order, err := domain.NewPaymentOrder("TXN-1", money, domain.OrderDetails{BookingRef: &blank})

		require.NoError(t, err)
		assert.False(t, order.HasBooking())
	})

	t.Run("rejects empty reference", func(t *testing.T) {
		money, _ := domain.NewMoney(1000, "KES")

		_, err := domain.NewPaymentOrder("", money, domain.OrderDetails{})

		assert.ErrorIs(t, err, domain.ErrMissingRequiredField)
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeMissingRequiredField))
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		_, err := domain.NewPaymentOrder("TXN-1", domain.Money{Amount: 0, Currency: "KES"}, domain.OrderDetails{})

		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	})
}

func TestNewMoney(t *testing.T) {
	t.Run("rejects zero amount", func(t *testing.T) {
		_, err := domain.NewMoney(0, "KES")

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "amount must be positive")
	})

	t.Run("rejects empty currency", func(t *testing.T) {
		_, err := domain.NewMoney(5000, "")

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "currency is required")
	})

	t.Run("minor unit conversion", func(t *testing.T) {
		assert.Equal(t, int64(1000), domain.ToMinorUnits(10))
		assert.Equal(t, int64(1999), domain.ToMinorUnits(19.99))
		assert.InDelta(t, 19.99, domain.Money{Amount: 1999, Currency: "KES"}.Major(), 0.0001)
	})

	t.Run("unrepresentable amounts convert to zero", func(t *testing.T) {
		assert.Equal(t, int64(0), domain.ToMinorUnits(1e300))
		assert.Equal(t, int64(0), domain.ToMinorUnits(-1e300))
		assert.Equal(t, int64(0), domain.ToMinorUnits(math.NaN()))
	})
}

func TestNewRejectedOrder(t *testing.T) {
	t.Run("keeps caller values that fit", func(t *testing.T) {
		order := domain.NewRejectedOrder("TXN-2", -5, "XXX", domain.OrderDetails{}, "amount must be positive")

		assert.Equal(t, domain.StatusFailed, order.Status)
		require.NotNil(t, order.ErrorDetail)
		assert.Equal(t, "amount must be positive", *order.ErrorDetail)
		assert.Equal(t, int64(-500), order.AmountMinor)
		assert.Equal(t, "XXX", order.Currency)
	})

	t.Run("cuts oversized values to their columns", func(t *testing.T) {
		booking := strings.Repeat("b", 150)
		details := domain.OrderDetails{
			BookingRef:  &booking,
			Description: "bad\x00byte",
			IPAddress:   strings.Repeat("1", 80),
		}

		order := domain.NewRejectedOrder("TXN-3", 10, strings.Repeat("C", 21), details, "Invalid order")

		assert.Len(t, order.Currency, domain.CurrencyMaxLen)
		assert.Len(t, *order.BookingRef, domain.BookingRefMaxLen)
		assert.Len(t, order.IPAddress, domain.IPAddressMaxLen)
		assert.Equal(t, "badbyte", order.Description)
		require.NotNil(t, order.ErrorDetail)
		assert.True(t, strings.HasPrefix(*order.ErrorDetail, "Invalid order (submitted "))
		assert.Contains(t, *order.ErrorDetail, `currency="CCCCCCCCCCCCCCCCCCCCC"`)
		assert.Contains(t, *order.ErrorDetail, `description="bad\x00byte"`)
		assert.True(t, domain.Storable(*order.ErrorDetail))
	})

	t.Run("quotes an amount it cannot store", func(t *testing.T) {
		order := domain.NewRejectedOrder("TXN-4", 1e300, "KES", domain.OrderDetails{}, "too large")

		assert.Equal(t, int64(0), order.AmountMinor)
		assert.Equal(t, "too large (submitted amount=1e+300)", *order.ErrorDetail)
	})
}

func TestPaymentOrder_Submission(t *testing.T) {
	t.Run("records gateway acceptance and stays pending", func(t *testing.T) {
		order := createTestOrder(t)

		err := order.MarkSubmitted("track-1", "https://pay.example/redirect", "ipn-1")

		require.NoError(t, err)
		assert.Equal(t, domain.StatusPending, order.Status)
		assert.Equal(t, "track-1", *order.OrderTrackingID)
		assert.Equal(t, "https://pay.example/redirect", *order.RedirectURL)
		assert.Equal(t, "ipn-1", *order.NotificationID)
	})

	t.Run("cannot be submitted twice", func(t *testing.T) {
		order := createTestOrder(t)
		require.NoError(t, order.MarkSubmitted("track-1", "u", "ipn-1"))

		err := order.MarkSubmitted("track-2", "u", "ipn-2")

		assert.ErrorIs(t, err, domain.ErrAlreadySubmitted)
		assert.Equal(t, "ipn-1", *order.NotificationID)
	})

	t.Run("submission failure closes a never-submitted order", func(t *testing.T) {
		order := createTestOrder(t)

		err := order.MarkSubmissionFailed("gateway timeout")

		require.NoError(t, err)
		assert.Equal(t, domain.StatusFailed, order.Status)
		assert.Equal(t, "gateway timeout", *order.ErrorDetail)
	})

	t.Run("submission failure is refused once the gateway holds the order", func(t *testing.T) {
		order := createTestOrder(t)
		require.NoError(t, order.MarkSubmitted("track-1", "u", "ipn-1"))

		err := order.MarkSubmissionFailed("late error")

		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
		assert.Equal(t, domain.StatusPending, order.Status)
	})
}

func TestPaymentOrder_ApplyGatewayStatus(t *testing.T) {
	t.Run("PENDING -> COMPLETED", func(t *testing.T) {
		order := createTestOrder(t)

		tr := order.ApplyGatewayStatus(domain.StatusCompleted, "1:COMPLETED")

		assert.True(t, tr.StatusChanged)
		assert.True(t, tr.IntoCompleted())
		assert.Equal(t, domain.StatusCompleted, order.Status)
		assert.Equal(t, "1:COMPLETED", *order.Action)
	})

	t.Run("PENDING -> INVALID -> COMPLETED", func(t *testing.T) {
		order := createTestOrder(t)

		first := order.ApplyGatewayStatus(domain.StatusInvalid, "0:INVALID")
		second := order.ApplyGatewayStatus(domain.StatusCompleted, "1:COMPLETED")

		assert.True(t, first.StatusChanged)
		assert.False(t, first.IntoCompleted())
		assert.True(t, second.IntoCompleted())
		assert.Equal(t, domain.StatusInvalid, second.From)
	})

	t.Run("reapplying the same terminal status is a no-op", func(t *testing.T) {
		order := createTestOrder(t)
		order.ApplyGatewayStatus(domain.StatusCompleted, "1:COMPLETED")
		updatedAt := order.UpdatedAt

		tr := order.ApplyGatewayStatus(domain.StatusCompleted, "1:COMPLETED")

		assert.False(t, tr.Dirty())
		assert.False(t, tr.IntoCompleted())
		assert.Equal(t, updatedAt, order.UpdatedAt)
	})

	t.Run("terminal status never regresses", func(t *testing.T) {
		order := createTestOrder(t)
		order.ApplyGatewayStatus(domain.StatusFailed, "2:FAILED")

		for _, target := range []domain.PaymentStatus{domain.StatusPending, domain.StatusInvalid, domain.StatusCompleted} {
			tr := order.ApplyGatewayStatus(target, "x")
			assert.False(t, tr.Dirty())
			assert.True(t, tr.Ignored(target))
		}
		assert.Equal(t, domain.StatusFailed, order.Status)
		assert.Equal(t, "2:FAILED", *order.Action)
	})

	t.Run("never moves back to PENDING", func(t *testing.T) {
		order := createTestOrder(t)
		order.ApplyGatewayStatus(domain.StatusInvalid, "0:INVALID")

		tr := order.ApplyGatewayStatus(domain.StatusPending, "PENDING")

		assert.False(t, tr.StatusChanged)
		assert.True(t, tr.ActionChanged)
		assert.Equal(t, domain.StatusInvalid, order.Status)
	})
}

func TestPaymentOrder_ScheduleReconcile(t *testing.T) {
	order := createTestOrder(t)

	order.ScheduleReconcile(2*time.Minute, "TRANSIENT")
	order.ScheduleReconcile(4*time.Minute, "TRANSIENT")

	assert.Equal(t, 2, order.ReconcileAttempts)
	require.NotNil(t, order.NextReconcileAt)
	assert.True(t, order.NextReconcileAt.After(time.Now().Add(3*time.Minute)))

	order.ClearReconcileSchedule()
	assert.Nil(t, order.NextReconcileAt)
	assert.Nil(t, order.LastErrorCategory)
}

func TestPaymentStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status   domain.PaymentStatus
		terminal bool
	}{
		{domain.StatusPending, false},
		{domain.StatusInvalid, false},
		{domain.StatusCompleted, true},
		{domain.StatusFailed, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.terminal, tt.status.IsTerminal())
		})
	}
}

func TestMapGatewayStatus(t *testing.T) {
	code := func(c int) *int { return &c }

	tests := []struct {
		name        string
		code        *int
		description string
		want        domain.PaymentStatus
	}{
		{"code completed", code(1), "", domain.StatusCompleted},
		{"code failed", code(2), "FAILED", domain.StatusFailed},
		{"code reversed", code(3), "REVERSED", domain.StatusFailed},
		{"code invalid", code(0), "INVALID", domain.StatusInvalid},
		{"code wins over description", code(1), "FAILED", domain.StatusCompleted},
		{"unknown code falls back to description", code(9), "completed", domain.StatusCompleted},
		{"lowercase description", nil, " failed ", domain.StatusFailed},
		{"empty", nil, "", domain.StatusPending},
		{"unrecognised description", nil, "PROCESSING", domain.StatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.MapGatewayStatus(tt.code, tt.description))
		})
	}
}

func TestGatewayAction(t *testing.T) {
	one := 1
	assert.Equal(t, "1:COMPLETED", domain.GatewayAction(&one, "Completed"))
	assert.Equal(t, "1", domain.GatewayAction(&one, ""))
	assert.Equal(t, "FAILED", domain.GatewayAction(nil, "failed"))
}

func TestNewReference(t *testing.T) {
	now := time.UnixMilli(1700000000000)

	a := domain.NewReference("TXN", now)
	b := domain.NewReference("TXN", now)

	assert.Regexp(t, `^TXN-1700000000000-[0-9a-f]{8}$`, a)
	assert.NotEqual(t, a, b)
}

func TestNotification(t *testing.T) {
	t.Run("requires tracking id", func(t *testing.T) {
		_, err := domain.NewNotification("", "TXN-1", "IPNCHANGE", "")
		assert.ErrorIs(t, err, domain.ErrMissingRequiredField)
	})

	t.Run("failed then processed", func(t *testing.T) {
		n, err := domain.NewNotification("track-1", "TXN-1", "IPNCHANGE", "OrderTrackingId=track-1")
		require.NoError(t, err)

		n.MarkFailed("db down", time.Minute)
		assert.Equal(t, domain.NotificationFailed, n.Status)
		assert.Equal(t, 1, n.Attempts)
		require.NotNil(t, n.NextAttemptAt)

		n.MarkProcessed()
		assert.Equal(t, domain.NotificationProcessed, n.Status)
		assert.Nil(t, n.NextAttemptAt)
		assert.NotNil(t, n.ProcessedAt)
	})
}

func TestCredential_Usable(t *testing.T) {
	now := time.Now()

	assert.False(t, domain.Credential{}.Usable(now, time.Minute))
	assert.True(t, domain.Credential{Token: "t"}.Usable(now, time.Minute))
	assert.True(t, domain.Credential{Token: "t", ExpiresAt: now.Add(5 * time.Minute)}.Usable(now, time.Minute))
	assert.False(t, domain.Credential{Token: "t", ExpiresAt: now.Add(30 * time.Second)}.Usable(now, time.Minute))
}

func createTestOrder(t *testing.T) *domain.PaymentOrder {
	t.Helper()
	money, err := domain.NewMoney(1000, "KES")
	require.NoError(t, err)
	order, err := domain.NewPaymentOrder("TXN-1", money, domain.OrderDetails{})
	require.NoError(t, err)
	return order
}
