package identity

import (
	"crypto/ed25519"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Signer mints short-lived identity tokens for trusted internal callers such
// as the MCP bridge and local tooling.
type Signer struct {
	issuer   string
	audience string
	key      ed25519.PrivateKey
	now      func() time.Time
}

// NewSigner decodes a base64 Ed25519 private key. ok is false when the key
// is blank.
func NewSigner(issuer, audience, privateKey string, now func() time.Time) (signer *Signer, ok bool, err error) {
	privateKey = strings.TrimSpace(privateKey)
	if privateKey == "" {
		return nil, false, nil
	}
	issuer = strings.TrimSpace(issuer)
	audience = strings.TrimSpace(audience)
	if issuer == "" || audience == "" {
		return nil, false, fmt.Errorf("identity issuer and audience are required when a private key is set")
	}
	keyBytes, err := decodeBase64(privateKey)
	if err != nil {
		return nil, false, fmt.Errorf("decode identity private key: %w", err)
	}
	if len(keyBytes) != ed25519.PrivateKeySize {
		return nil, false, fmt.Errorf("identity private key must be %d bytes", ed25519.PrivateKeySize)
	}
	if now == nil {
		now = time.Now
	}
	return &Signer{issuer: issuer, audience: audience, key: ed25519.PrivateKey(keyBytes), now: now}, true, nil
}

// Sign returns a token for userID valid for ttl.
func (s *Signer) Sign(userID string, ttl time.Duration) (string, error) {
	if s == nil {
		return "", fmt.Errorf("identity signer is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", fmt.Errorf("user id is required")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("ttl must be positive")
	}
	issuedAt := s.now().UTC()
	token, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Audience:  jwt.ClaimStrings{s.audience},
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
	}).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign identity token: %w", err)
	}
	return token, nil
}
