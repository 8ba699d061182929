package domain

import (
	"strconv"
	"strings"
)

// Pesapal status_code values returned by GetTransactionStatus.
const (
	GatewayCodeInvalid   = 0
	GatewayCodeCompleted = 1
	GatewayCodeFailed    = 2
	GatewayCodeReversed  = 3
)

// MapGatewayStatus translates the gateway vocabulary into a ledger status.
// The numeric code wins when present and known; the description is the fallback.
// Anything unrecognised maps to PENDING, which never moves an order.
func MapGatewayStatus(code *int, description string) PaymentStatus {
	if code != nil {
		switch *code {
		case GatewayCodeInvalid:
			return StatusInvalid
		case GatewayCodeCompleted:
			return StatusCompleted
		case GatewayCodeFailed, GatewayCodeReversed:
			return StatusFailed
		}
	}

	switch strings.ToUpper(strings.TrimSpace(description)) {
	case "COMPLETED":
		return StatusCompleted
	case "FAILED", "REVERSED":
		return StatusFailed
	case "INVALID":
		return StatusInvalid
	case "PENDING", "":
		return StatusPending
	default:
		return StatusPending
	}
}

// GatewayAction renders the raw gateway status kept in PaymentOrder.Action.
func GatewayAction(code *int, description string) string {
	desc := strings.ToUpper(strings.TrimSpace(description))
	if code == nil {
		return desc
	}
	if desc == "" {
		return strconv.Itoa(*code)
	}
	return strconv.Itoa(*code) + ":" + desc
}
