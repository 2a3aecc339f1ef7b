package lifecycle

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kusinahub/kusina-api/models"
)

// Canonical order statuses. These exact strings are what the store persists
// and what the UI renders; anything else is treated as unknown.
const (
	StatusPendingConfirmation = "Pending Confirmation"
	StatusAccepted            = "Accepted"
	StatusDeclined            = "Declined"
	StatusPreparing           = "Preparing"
	StatusReady               = "Ready"
	StatusCompleted           = "Completed"
)

var (
	ErrInvalidTransition    = errors.New("invalid order status transition")
	ErrReasonRequired       = errors.New("a decline reason is required")
	ErrUnknownPaymentMethod = errors.New("unknown payment method")
)

// allowedTransitions maps each status to the statuses reachable from it in
// one staff action. Completed and Declined are terminal and have no entry.
var allowedTransitions = map[string][]string{
	StatusPendingConfirmation: {StatusAccepted, StatusDeclined},
	StatusAccepted:            {StatusPreparing},
	StatusPreparing:           {StatusReady},
	StatusReady:               {StatusCompleted},
}

// InitialStatus picks the entry point of the machine from the payment method.
// Pay-at-store orders wait for staff confirmation; proof-backed GCash orders
// are treated as paid and go straight to preparation.
func InitialStatus(paymentMethod string) (string, error) {
	switch paymentMethod {
	case models.PaymentPayAtStore:
		return StatusPendingConfirmation, nil
	case models.PaymentGCash:
		return StatusPreparing, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPaymentMethod, paymentMethod)
}

// Validate reports whether moving from current to next is a legal single
// step. Illegal moves, including anything out of a terminal status, fail
// with ErrInvalidTransition.
func Validate(current, next string) error {
	for _, allowed := range allowedTransitions[current] {
		if allowed == next {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, next)
}

// Transition validates the move and its preconditions. Declining an order
// requires a non-blank reason.
func Transition(current, next, declineReason string) error {
	if err := Validate(current, next); err != nil {
		return err
	}
	if next == StatusDeclined && strings.TrimSpace(declineReason) == "" {
		return ErrReasonRequired
	}
	return nil
}

func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusDeclined
}

// Known reports whether status is one of the six canonical values. Unknown
// strings should get a default pending rendering, never an error page.
func Known(status string) bool {
	switch status {
	case StatusPendingConfirmation, StatusAccepted, StatusDeclined,
		StatusPreparing, StatusReady, StatusCompleted:
		return true
	}
	return false
}
