// Package identity verifies caller identity tokens issued by the auth service.
package identity

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/powderhound/powderhound/internal/platform/errors"
)

// Config defines how bearer tokens are verified.
type Config struct {
	Issuer   string
	Audience string
	Key      ed25519.PublicKey
	Now      func() time.Time
}

// Claims captures the validated identity claims.
type Claims struct {
	UserID    string
	Issuer    string
	ExpiresAt time.Time
}

// Verifier checks EdDSA-signed bearer tokens.
type Verifier struct {
	cfg Config
}

// NewConfig builds a Config from raw settings. ok is false when no key is
// configured, in which case callers fall back to trusted headers.
func NewConfig(issuer, audience, publicKey string, now func() time.Time) (cfg Config, ok bool, err error) {
	issuer = strings.TrimSpace(issuer)
	audience = strings.TrimSpace(audience)
	publicKey = strings.TrimSpace(publicKey)
	if publicKey == "" {
		return Config{}, false, nil
	}
	if issuer == "" {
		return Config{}, false, fmt.Errorf("identity issuer is required when a public key is set")
	}
	if audience == "" {
		return Config{}, false, fmt.Errorf("identity audience is required when a public key is set")
	}
	keyBytes, err := decodeBase64(publicKey)
	if err != nil {
		return Config{}, false, fmt.Errorf("decode identity public key: %w", err)
	}
	if len(keyBytes) != ed25519.PublicKeySize {
		return Config{}, false, fmt.Errorf("identity public key must be %d bytes", ed25519.PublicKeySize)
	}
	if now == nil {
		now = time.Now
	}
	return Config{
		Issuer:   issuer,
		Audience: audience,
		Key:      ed25519.PublicKey(keyBytes),
		Now:      now,
	}, true, nil
}

// NewVerifier validates cfg and returns a verifier.
func NewVerifier(cfg Config) (*Verifier, error) {
	if cfg.Issuer == "" || cfg.Audience == "" || len(cfg.Key) != ed25519.PublicKeySize {
		return nil, errors.New("identity verifier is not configured")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Verifier{cfg: cfg}, nil
}

// Verify checks the token signature, issuer, audience, and validity window.
func (v *Verifier) Verify(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, apperrors.New(apperrors.CodeUnauthorized, "identity token is required")
	}
	if v == nil {
		return Claims{}, errors.New("identity verifier is not configured")
	}

	var parsed jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return v.cfg.Key, nil
	},
		jwt.WithValidMethods([]string{"EdDSA"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return Claims{}, mapJWTError(err)
	}

	if parsed.Issuer != v.cfg.Issuer {
		return Claims{}, unauthorized("identity token issuer mismatch", "issuer")
	}
	if !slices.Contains([]string(parsed.Audience), v.cfg.Audience) {
		return Claims{}, unauthorized("identity token audience mismatch", "audience")
	}
	if strings.TrimSpace(parsed.Subject) == "" {
		return Claims{}, unauthorized("identity token subject is required", "sub")
	}
	if parsed.ExpiresAt == nil {
		return Claims{}, unauthorized("identity token exp is required", "exp")
	}

	now := v.cfg.Now().UTC()
	exp := parsed.ExpiresAt.Time.UTC()
	if !exp.After(now) {
		return Claims{}, unauthorized("identity token is expired", "exp")
	}
	if parsed.NotBefore != nil && now.Before(parsed.NotBefore.Time.UTC()) {
		return Claims{}, unauthorized("identity token not active yet", "nbf")
	}

	return Claims{
		UserID:    strings.TrimSpace(parsed.Subject),
		Issuer:    parsed.Issuer,
		ExpiresAt: exp,
	}, nil
}

// BearerToken extracts the token from an authorization header value.
func BearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(message, field string) error {
	return apperrors.WithMetadata(apperrors.CodeUnauthorized, message, map[string]string{
		"Field":  field,
		"Reason": message,
	})
}

func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) || errors.Is(err, jwt.ErrEd25519Verification) {
		return apperrors.New(apperrors.CodeUnauthorized, "identity token signature is invalid")
	}
	if errors.Is(err, jwt.ErrTokenUnverifiable) {
		return apperrors.New(apperrors.CodeUnauthorized, "identity token alg is invalid")
	}
	return apperrors.New(apperrors.CodeUnauthorized, "identity token is invalid")
}

func decodeBase64(value string) ([]byte, error) {
	decoded, err := base64.RawStdEncoding.DecodeString(value)
	if err == nil {
		return decoded, nil
	}
	return base64.StdEncoding.DecodeString(value)
}
