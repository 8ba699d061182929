package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Money holds an amount in minor units (cents) of Currency.
type Money struct {
	Amount   int64
	Currency string
}

func NewMoney(amount int64, currency string) (Money, error) {
	if amount <= 0 {
		return Money{}, errors.New("amount must be positive")
	}
	if currency == "" {
		return Money{}, errors.New("currency is required")
	}
	return Money{Amount: amount, Currency: strings.ToUpper(currency)}, nil
}

// maxMinorUnits keeps amounts exactly representable as float64 major units.
const maxMinorUnits = 1 << 53

// ToMinorUnits converts a decimal major-unit amount to minor units, rounding
// half away from zero. Amounts that cannot be represented convert to 0.
func ToMinorUnits(major float64) int64 {
	minor := math.Round(major * 100)
	if math.IsNaN(minor) || math.Abs(minor) > maxMinorUnits {
		return 0
	}
	return int64(minor)
}

// Major returns the amount in major units as the gateway expects it.
func (m Money) Major() float64 {
	return float64(m.Amount) / 100
}

// NewReference builds a merchant reference of the form PREFIX-<unix millis>-<8 hex>.
// The random suffix keeps references unique when many orders share a millisecond.
func NewReference(prefix string, now time.Time) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("%s-%d-%s", prefix, now.UnixMilli(), suffix)
}
