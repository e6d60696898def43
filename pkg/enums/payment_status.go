package enums

import "fmt"

// PaymentStatus tracks the lifecycle of a checkout payment.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusCompleted,
	PaymentStatusFailed,
}

// paymentStatusRank orders statuses so transitions only move forward.
var paymentStatusRank = map[PaymentStatus]int{
	PaymentStatusPending:   0,
	PaymentStatusCompleted: 1,
	PaymentStatusFailed:    1,
}

// String implements fmt.Stringer.
func (p PaymentStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentStatus.
func (p PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
func (p PaymentStatus) IsTerminal() bool {
	return p == PaymentStatusCompleted || p == PaymentStatusFailed
}

// CanTransitionTo reports whether moving to next respects the forward-only order.
func (p PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	if !p.IsValid() || !next.IsValid() {
		return false
	}
	return paymentStatusRank[next] > paymentStatusRank[p]
}

// ParsePaymentStatus converts raw input into a PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	for _, candidate := range validPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}
