package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Roles carried in access tokens.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// ErrMissingSubject is returned for a signed token without a user ID
var ErrMissingSubject = errors.New("token has no user id")

// JWTClaims are the access token claims. UnitID is set for operators bound
// to one canteen unit.
type JWTClaims struct {
	UserID uuid.UUID  `json:"user_id"`
	Role   string     `json:"role"`
	UnitID *uuid.UUID `json:"unit_id,omitempty"`
	jwt.RegisteredClaims
}

// JWTManager validates access tokens issued by the kiosk login service
type JWTManager struct {
	secret []byte
	ttl    time.Duration
	issuer string
	parser *jwt.Parser
}

// NewJWTManager creates a new JWT manager. An empty issuer disables the
// issuer check.
func NewJWTManager(secret string, ttl time.Duration, issuer string) *JWTManager {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	return &JWTManager{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: issuer,
		parser: jwt.NewParser(opts...),
	}
}

// GenerateAccessToken signs a token for userID. End-user login lives in a
// separate service; this serves operator tooling.
func (m *JWTManager) GenerateAccessToken(userID uuid.UUID, role string, unitID *uuid.UUID) (string, error) {
	now := time.Now()
	claims := &JWTClaims{
		UserID: userID,
		Role:   role,
		UnitID: unitID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// ValidateAccessToken checks the signature, expiry and issuer of a token
func (m *JWTManager) ValidateAccessToken(raw string) (*JWTClaims, error) {
	claims := &JWTClaims{}
	if _, err := m.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	}); err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}
	if claims.UserID == uuid.Nil {
		return nil, ErrMissingSubject
	}
	return claims, nil
}
