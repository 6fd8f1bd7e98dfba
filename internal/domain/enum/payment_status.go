package enum

import (
	"database/sql/driver"
	"fmt"
)

// PaymentStatus is where an order stands in its payment lifecycle
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

func (s PaymentStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further payment transition is allowed
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusPaid || s == PaymentStatusFailed
}

// settlements lists the statuses each mode may settle into from PENDING
var settlements = map[PaymentMode][]PaymentStatus{
	PaymentModeUPI:   {PaymentStatusPaid, PaymentStatusFailed},
	PaymentModeCash:  {PaymentStatusPaid},
	PaymentModeFree:  {PaymentStatusPaid},
	PaymentModeGuest: {PaymentStatusPaid},
}

// InitialStatus is the status an order is created with in mode m.
// Guest orders are paid by construction.
func InitialStatus(m PaymentMode) PaymentStatus {
	if m == PaymentModeGuest {
		return PaymentStatusPaid
	}
	return PaymentStatusPending
}

// ValidateSettlement checks that an order currently at (fromMode, fromStatus)
// may move to (toMode, toStatus). The mode may only be chosen while the order
// is still PENDING in mode PENDING or already in toMode.
func ValidateSettlement(fromMode PaymentMode, fromStatus PaymentStatus, toMode PaymentMode, toStatus PaymentStatus) error {
	if fromStatus.IsTerminal() {
		return fmt.Errorf("order is already %s", fromStatus)
	}
	if fromMode != PaymentModePending && fromMode != toMode {
		return fmt.Errorf("order is in mode %s, cannot settle as %s", fromMode, toMode)
	}
	for _, allowed := range settlements[toMode] {
		if allowed == toStatus {
			return nil
		}
	}
	return fmt.Errorf("mode %s cannot settle to %s", toMode, toStatus)
}

func (s PaymentStatus) Value() (driver.Value, error) {
	return string(s), nil
}

func (s *PaymentStatus) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*s = PaymentStatusPending
	case string:
		*s = PaymentStatus(v)
	case []byte:
		*s = PaymentStatus(v)
	default:
		return fmt.Errorf("cannot scan %T into PaymentStatus", value)
	}
	return nil
}
