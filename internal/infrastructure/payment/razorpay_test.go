package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"

	"go.uber.org/zap"
)

func sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	g := NewRazorpayGateway("rzp_test_key", "s3cret", zap.NewNop())

	good := sign("s3cret", "order_abc", "pay_123")
	if !g.VerifySignature("order_abc", "pay_123", good) {
		t.Fatal("valid signature rejected")
	}
	if g.VerifySignature("order_abc", "pay_124", good) {
		t.Fatal("signature for a different payment accepted")
	}
	if g.VerifySignature("order_abc", "pay_123", sign("other", "order_abc", "pay_123")) {
		t.Fatal("signature with wrong secret accepted")
	}
}

func TestUnconfiguredGateway(t *testing.T) {
	g := NewRazorpayGateway("", "", zap.NewNop())

	if _, err := g.CreateCharge(context.Background(), 1000, "INR", "order_x"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("CreateCharge err = %v, want ErrNotConfigured", err)
	}
	if g.VerifySignature("order_abc", "pay_123", "anything") {
		t.Fatal("unconfigured gateway verified a signature")
	}
}
