package enum

import (
	"database/sql/driver"
	"fmt"
)

// PaymentMode is how an order is settled
type PaymentMode string

const (
	PaymentModePending PaymentMode = "PENDING"
	PaymentModeUPI     PaymentMode = "UPI"
	PaymentModeCash    PaymentMode = "CASH"
	PaymentModeFree    PaymentMode = "FREE"
	PaymentModeGuest   PaymentMode = "GUEST"
)

// PrintTiming says when tickets are printed relative to the payment commit
type PrintTiming int

const (
	// PrintNever skips printing entirely.
	PrintNever PrintTiming = iota
	// PrintAfterCommit prints synchronously once PAID is durable, before responding.
	PrintAfterCommit
	// PrintAfterResponse prints in the background after the response is sent.
	PrintAfterResponse
)

func (m PaymentMode) String() string {
	return string(m)
}

// IsValid reports whether m is one of the known modes, PENDING included
func (m PaymentMode) IsValid() bool {
	switch m {
	case PaymentModePending, PaymentModeUPI, PaymentModeCash, PaymentModeFree, PaymentModeGuest:
		return true
	}
	return false
}

// IsSettlement reports whether m is a final mode (anything but PENDING)
func (m PaymentMode) IsSettlement() bool {
	return m.IsValid() && m != PaymentModePending
}

// Label is the text printed on tickets for the mode
func (m PaymentMode) Label() string {
	switch m {
	case PaymentModeUPI:
		return "UPI Payment"
	case PaymentModeCash:
		return "Paid by Cash"
	case PaymentModeFree:
		return "Free Meals"
	case PaymentModeGuest:
		return "Guest"
	case PaymentModePending:
		return "Pending"
	}
	return string(m)
}

// PrintTiming returns when tickets are printed for orders settled in this mode
func (m PaymentMode) PrintTiming() PrintTiming {
	switch m {
	case PaymentModeCash, PaymentModeFree:
		return PrintAfterCommit
	case PaymentModeUPI:
		return PrintAfterResponse
	}
	return PrintNever
}

// ParsePaymentMode parses a mode, rejecting unknown values
func ParsePaymentMode(s string) (PaymentMode, error) {
	m := PaymentMode(s)
	if !m.IsValid() {
		return "", fmt.Errorf("invalid payment mode %q", s)
	}
	return m, nil
}

func (m PaymentMode) Value() (driver.Value, error) {
	return string(m), nil
}

func (m *PaymentMode) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*m = PaymentModePending
	case string:
		*m = PaymentMode(v)
	case []byte:
		*m = PaymentMode(v)
	default:
		return fmt.Errorf("cannot scan %T into PaymentMode", value)
	}
	return nil
}
