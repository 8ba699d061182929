// Package domain encodes a payment order ledger entry and its lifecycle
package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"
)

// PaymentStatus represents the current state of a payment order in the ledger
type PaymentStatus string

const (
	StatusPending   PaymentStatus = "PENDING"
	StatusCompleted PaymentStatus = "COMPLETED"
	StatusFailed    PaymentStatus = "FAILED"
	StatusInvalid   PaymentStatus = "INVALID"
)

// IsTerminal reports whether no further transition is permitted from s.
// INVALID is not terminal: the gateway reports it for orders the customer has
// not paid yet, so such rows stay eligible for re-query.
func (s PaymentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

func (s PaymentStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed, StatusInvalid:
		return true
	}
	return false
}

type Billing struct {
	Email     string
	Phone     string
	FirstName string
	LastName  string
}

// OrderDetails carries the descriptive, non-monetary parts of an order.
type OrderDetails struct {
	BookingRef  *string
	Description string
	CallbackURL string
	IPAddress   string
	Billing     Billing
}

// PaymentOrder is one ledger row. Reference is immutable and never reused.
type PaymentOrder struct {
	Reference      string
	BookingRef     *string
	AmountMinor    int64
	Currency       string
	Description    string
	CallbackURL    string
	NotificationID *string
	Billing        Billing
	Status         PaymentStatus
	Action         *string
	IPAddress      string

	OrderTrackingID *string
	RedirectURL     *string
	ErrorDetail     *string

	CreatedAt time.Time
	UpdatedAt time.Time

	ReconcileAttempts int
	NextReconcileAt   *time.Time
	LastErrorCategory *string
}

// NewPaymentOrder creates a PENDING order reserved under reference.
func NewPaymentOrder(reference string, amount Money, details OrderDetails) (*PaymentOrder, error) {
	if strings.TrimSpace(reference) == "" {
		return nil, NewMissingRequiredFieldError("reference")
	}
	if amount.Amount <= 0 {
		return nil, NewInvalidAmountError(amount.Amount)
	}
	if amount.Currency == "" {
		return nil, NewMissingRequiredFieldError("currency")
	}

	// The client address comes from a header and is not caller validated.
	ip, _ := storable(details.IPAddress, IPAddressMaxLen)

	now := time.Now().UTC()
	return &PaymentOrder{
		Reference:   reference,
		BookingRef:  normalizeBookingRef(details.BookingRef),
		AmountMinor: amount.Amount,
		Currency:    amount.Currency,
		Description: details.Description,
		CallbackURL: details.CallbackURL,
		Billing:     details.Billing,
		Status:      StatusPending,
		IPAddress:   ip,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// NewRejectedOrder records a submission attempt that never reached the gateway.
// No validation is applied. Values that do not fit their column are cut to
// size and the submitted value is quoted in ErrorDetail.
func NewRejectedOrder(reference string, amountMajor float64, currency string, details OrderDetails, reason string) *PaymentOrder {
	a := auditor{}
	bookingRef := normalizeBookingRef(details.BookingRef)
	if bookingRef != nil {
		ref := a.fit("booking_ref", *bookingRef, BookingRefMaxLen)
		bookingRef = &ref
	}
	amountMinor := ToMinorUnits(amountMajor)
	if amountMinor == 0 && amountMajor != 0 {
		a.notes = append(a.notes, fmt.Sprintf("amount=%g", amountMajor))
	}

	order := &PaymentOrder{
		Reference:   a.fit("reference", reference, ReferenceMaxLen),
		BookingRef:  bookingRef,
		AmountMinor: amountMinor,
		Currency:    a.fit("currency", currency, CurrencyMaxLen),
		Description: a.fit("description", details.Description, 0),
		CallbackURL: a.fit("callback_url", details.CallbackURL, 0),
		Billing: Billing{
			Email:     a.fit("email", details.Billing.Email, 0),
			Phone:     a.fit("phone", details.Billing.Phone, 0),
			FirstName: a.fit("first_name", details.Billing.FirstName, 0),
			LastName:  a.fit("last_name", details.Billing.LastName, 0),
		},
		Status:    StatusFailed,
		IPAddress: a.fit("ip_address", details.IPAddress, IPAddressMaxLen),
	}

	detail, _ := storable(reason, 0)
	if len(a.notes) > 0 {
		detail += " (submitted " + strings.Join(a.notes, ", ") + ")"
	}
	order.ErrorDetail = &detail
	order.CreatedAt = time.Now().UTC()
	order.UpdatedAt = order.CreatedAt
	return order
}

// MarkSubmitted records the gateway's acceptance of the order. The row stays PENDING.
func (p *PaymentOrder) MarkSubmitted(trackingID, redirectURL, notificationID string) error {
	if p.Status != StatusPending {
		return NewInvalidTransitionError(p.Status, StatusPending)
	}
	if p.OrderTrackingID != nil {
		return ErrAlreadySubmitted
	}
	if trackingID == "" {
		return NewMissingRequiredFieldError("order_tracking_id")
	}
	p.OrderTrackingID = &trackingID
	p.RedirectURL = &redirectURL
	p.NotificationID = &notificationID
	p.touch()
	return nil
}

// MarkSubmissionFailed closes a reserved row whose submission never produced a
// gateway order.
func (p *PaymentOrder) MarkSubmissionFailed(reason string) error {
	if p.Status != StatusPending || p.OrderTrackingID != nil {
		return NewInvalidTransitionError(p.Status, StatusFailed)
	}
	p.Status = StatusFailed
	p.ErrorDetail = &reason
	p.touch()
	return nil
}

// Transition describes the effect of applying a gateway status to an order.
type Transition struct {
	From          PaymentStatus
	To            PaymentStatus
	StatusChanged bool
	ActionChanged bool
}

// Dirty reports whether the order has anything to persist.
func (t Transition) Dirty() bool {
	return t.StatusChanged || t.ActionChanged
}

// IntoCompleted is true only for the single transition that confirms a booking.
func (t Transition) IntoCompleted() bool {
	return t.StatusChanged && t.To == StatusCompleted
}

// Ignored reports a gateway status that conflicts with a terminal local status.
func (t Transition) Ignored(target PaymentStatus) bool {
	return t.From.IsTerminal() && target != t.From
}

// ApplyGatewayStatus moves the order toward the authoritative gateway status.
// Terminal orders never change and no order is ever moved back to PENDING.
func (p *PaymentOrder) ApplyGatewayStatus(target PaymentStatus, action string) Transition {
	t := Transition{From: p.Status, To: p.Status}
	if p.Status.IsTerminal() {
		return t
	}

	if err := p.canTransitionTo(target); err == nil {
		p.Status = target
		t.To = target
		t.StatusChanged = true
	}

	if action != "" && (p.Action == nil || *p.Action != action) {
		p.Action = &action
		t.ActionChanged = true
	}

	if t.Dirty() {
		p.touch()
	}
	return t
}

// SetTrackingID backfills the tracking id when the submit response was lost.
func (p *PaymentOrder) SetTrackingID(trackingID string) bool {
	if trackingID == "" || p.OrderTrackingID != nil {
		return false
	}
	p.OrderTrackingID = &trackingID
	p.touch()
	return true
}

func (p *PaymentOrder) canTransitionTo(target PaymentStatus) error {
	switch p.Status {
	case StatusPending:
		return p.allow(target, StatusCompleted, StatusFailed, StatusInvalid)
	case StatusInvalid:
		return p.allow(target, StatusCompleted, StatusFailed)
	}
	return ErrInvalidTransition
}

func (p *PaymentOrder) allow(target PaymentStatus, allowed ...PaymentStatus) error {
	if slices.Contains(allowed, target) {
		return nil
	}
	return ErrInvalidTransition
}

// ScheduleReconcile pushes the next sweep attempt out by backoff.
func (p *PaymentOrder) ScheduleReconcile(backoff time.Duration, errorCategory string) {
	p.ReconcileAttempts++
	next := time.Now().UTC().Add(backoff)
	p.NextReconcileAt = &next
	p.LastErrorCategory = &errorCategory
	p.touch()
}

func (p *PaymentOrder) ClearReconcileSchedule() {
	p.NextReconcileAt = nil
	p.LastErrorCategory = nil
}

func (p *PaymentOrder) Money() Money {
	return Money{Amount: p.AmountMinor, Currency: p.Currency}
}

func (p *PaymentOrder) HasBooking() bool {
	return p.BookingRef != nil && *p.BookingRef != ""
}

func (p *PaymentOrder) touch() {
	p.UpdatedAt = time.Now().UTC()
}

func normalizeBookingRef(ref *string) *string {
	if ref == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*ref)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// Column widths of the payments table, in characters.
const (
	ReferenceMaxLen  = 50
	BookingRefMaxLen = 100
	CurrencyMaxLen   = 16
	IPAddressMaxLen  = 64
)

// auditQuoteLen caps how much of an oversized value is quoted in ErrorDetail.
const auditQuoteLen = 200

// Storable reports whether s can be written to a text column as is.
func Storable(s string) bool {
	return utf8.ValidString(s) && !strings.ContainsRune(s, 0)
}

// storable strips what Postgres text columns reject (NUL bytes, invalid
// UTF-8) and cuts s to max characters when max > 0.
func storable(s string, max int) (string, bool) {
	clean := strings.ReplaceAll(strings.ToValidUTF8(s, "\uFFFD"), "\x00", "")
	if max > 0 && utf8.RuneCountInString(clean) > max {
		return string([]rune(clean)[:max]), true
	}
	return clean, clean != s
}

type auditor struct {
	notes []string
}

func (a *auditor) fit(field, value string, max int) string {
	out, altered := storable(value, max)
	if altered {
		quoted := value
		if len(quoted) > auditQuoteLen {
			quoted = quoted[:auditQuoteLen] + "..."
		}
		a.notes = append(a.notes, fmt.Sprintf("%s=%q", field, quoted))
	}
	return out
}
