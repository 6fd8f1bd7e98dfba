package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	m := NewJWTManager("secret", time.Hour, "canteen-kiosk")
	userID := uuid.New()
	unitID := uuid.New()

	token, err := m.GenerateAccessToken(userID, RoleUser, &unitID)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}
	claims, err := m.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("ValidateAccessToken() error = %v", err)
	}
	if claims.UserID != userID || claims.Role != RoleUser || claims.UnitID == nil || *claims.UnitID != unitID {
		t.Fatalf("claims = %+v", claims)
	}
	if claims.Issuer != "canteen-kiosk" {
		t.Fatalf("issuer = %q", claims.Issuer)
	}
}

func TestValidateAccessTokenRejects(t *testing.T) {
	m := NewJWTManager("secret", time.Hour, "canteen-kiosk")

	expired, _ := NewJWTManager("secret", -time.Minute, "canteen-kiosk").GenerateAccessToken(uuid.New(), RoleUser, nil)
	foreign, _ := NewJWTManager("other", time.Hour, "canteen-kiosk").GenerateAccessToken(uuid.New(), RoleAdmin, nil)
	anonymous, _ := m.GenerateAccessToken(uuid.Nil, RoleUser, nil)
	otherIssuer, _ := NewJWTManager("secret", time.Hour, "pos-terminal").GenerateAccessToken(uuid.New(), RoleUser, nil)

	for name, token := range map[string]string{
		"expired":      expired,
		"foreign":      foreign,
		"nil user":     anonymous,
		"other issuer": otherIssuer,
		"garbage":      "not.a.token",
	} {
		if _, err := m.ValidateAccessToken(token); err == nil {
			t.Errorf("%s token accepted", name)
		}
	}
	if _, err := m.ValidateAccessToken(anonymous); !errors.Is(err, ErrMissingSubject) {
		t.Errorf("nil user error = %v, want ErrMissingSubject", err)
	}
}

func TestShortIDAndReceipt(t *testing.T) {
	id := uuid.MustParse("1b4e28ba-2fa1-11d2-883f-0016d3cca427")
	if got := ShortID(id); got != "1B4E28BA" {
		t.Errorf("ShortID() = %q", got)
	}
	if got := GenerateReceiptNo("order", id); got != "order_1b4e28ba2fa111d2883f0016d3cca427" {
		t.Errorf("GenerateReceiptNo() = %q", got)
	}
	if _, err := ParseUUID("  " + id.String() + " "); err != nil {
		t.Errorf("ParseUUID() error = %v", err)
	}
}
