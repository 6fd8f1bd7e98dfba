package payment

import (
	"context"
	"errors"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"
	"go.uber.org/zap"
)

// ErrNotConfigured is returned when gateway credentials are missing
var ErrNotConfigured = errors.New("payment gateway credentials not configured")

// Charge is a remote order created on the gateway
type Charge struct {
	ID       string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"key"`
}

// RazorpayGateway creates Razorpay orders and verifies checkout signatures
type RazorpayGateway struct {
	client    *razorpay.Client
	keyID     string
	keySecret string
	logger    *zap.Logger
}

// NewRazorpayGateway creates a gateway. With empty credentials every call
// fails with ErrNotConfigured.
func NewRazorpayGateway(keyID, keySecret string, logger *zap.Logger) *RazorpayGateway {
	g := &RazorpayGateway{keyID: keyID, keySecret: keySecret, logger: logger}
	if keyID != "" && keySecret != "" {
		g.client = razorpay.NewClient(keyID, keySecret)
	}
	return g
}

// CreateCharge creates a gateway order for amountMinor paise
func (g *RazorpayGateway) CreateCharge(ctx context.Context, amountMinor int64, currency, receipt string) (*Charge, error) {
	if g.client == nil {
		return nil, ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	body, err := g.client.Order.Create(map[string]interface{}{
		"amount":   amountMinor,
		"currency": currency,
		"receipt":  receipt,
	}, nil)
	if err != nil {
		g.logger.Error("razorpay order creation failed", zap.String("receipt", receipt), zap.Error(err))
		return nil, fmt.Errorf("create razorpay order: %w", err)
	}

	id, _ := body["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("create razorpay order: response has no id")
	}
	charge := &Charge{ID: id, Amount: amountMinor, Currency: currency, KeyID: g.keyID}
	if amount, ok := body["amount"].(float64); ok {
		charge.Amount = int64(amount)
	}
	if cur, ok := body["currency"].(string); ok && cur != "" {
		charge.Currency = cur
	}
	return charge, nil
}

// VerifySignature checks the HMAC the checkout returned for orderID and paymentID
func (g *RazorpayGateway) VerifySignature(orderID, paymentID, signature string) bool {
	if g.keySecret == "" {
		return false
	}
	return utils.VerifyPaymentSignature(map[string]interface{}{
		"razorpay_order_id":   orderID,
		"razorpay_payment_id": paymentID,
	}, signature, g.keySecret)
}
