package payment

import "context"

// Gateway creates remote charges and verifies checkout callbacks
type Gateway interface {
	CreateCharge(ctx context.Context, amountMinor int64, currency, receipt string) (*Charge, error)
	VerifySignature(chargeOrderID, paymentID, signature string) bool
}

var _ Gateway = (*RazorpayGateway)(nil)
