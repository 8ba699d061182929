package domain

// BookingRecord is owned by the booking subsystem. The ledger only ever writes
// the configured "payment confirmed" status code into it.
type BookingRecord struct {
	BookingRef string
	Status     int16
}

// CascadeOutcome reports what reconciliation did to the linked booking.
type CascadeOutcome string

const (
	CascadeNotTriggered      CascadeOutcome = "NOT_TRIGGERED"
	CascadeApplied           CascadeOutcome = "APPLIED"
	CascadeAlreadyConfirmed  CascadeOutcome = "ALREADY_CONFIRMED"
	CascadeSkippedNoBooking  CascadeOutcome = "SKIPPED_NO_BOOKING_REF"
	CascadeSkippedNoPayment  CascadeOutcome = "SKIPPED_NO_PAYMENT"
	CascadeSkippedNotInStore CascadeOutcome = "SKIPPED_BOOKING_NOT_FOUND"
)

func (c CascadeOutcome) Skipped() bool {
	switch c {
	case CascadeSkippedNoBooking, CascadeSkippedNoPayment, CascadeSkippedNotInStore:
		return true
	}
	return false
}
