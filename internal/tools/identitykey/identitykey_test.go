package identitykey

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/powderhound/powderhound/internal/services/events/identity"
)

func TestRunRequiresOutput(t *testing.T) {
	if err := Run(nil, bytes.NewReader([]byte{1}), Options{}); err == nil {
		t.Fatal("expected error when output is nil")
	}
}

func parseExports(t *testing.T, output string) map[string]string {
	t.Helper()
	values := map[string]string{}
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		rest, ok := strings.CutPrefix(line, "export ")
		if !ok {
			t.Fatalf("unexpected line %q", line)
		}
		key, value, ok := strings.Cut(rest, "=")
		if !ok {
			t.Fatalf("unexpected line %q", line)
		}
		values[key] = value
	}
	return values
}

func TestRunWritesKeys(t *testing.T) {
	buf := &bytes.Buffer{}
	reader := bytes.NewReader(bytes.Repeat([]byte{1}, 64))
	if err := Run(buf, reader, Options{}); err != nil {
		t.Fatalf("run: %v", err)
	}
	values := parseExports(t, buf.String())
	if len(values) != 6 {
		t.Fatalf("expected 6 exports, got %d", len(values))
	}
	if values["POWDERHOUND_EVENTS_IDENTITY_JWT_ISSUER"] != DefaultIssuer {
		t.Fatalf("issuer = %q", values["POWDERHOUND_EVENTS_IDENTITY_JWT_ISSUER"])
	}
	if values["POWDERHOUND_MCP_IDENTITY_JWT_AUDIENCE"] != DefaultAudience {
		t.Fatalf("audience = %q", values["POWDERHOUND_MCP_IDENTITY_JWT_AUDIENCE"])
	}

	privateBytes, err := base64.RawStdEncoding.DecodeString(values["POWDERHOUND_MCP_IDENTITY_JWT_PRIVATE_KEY"])
	if err != nil {
		t.Fatalf("decode private key: %v", err)
	}
	publicBytes, err := base64.RawStdEncoding.DecodeString(values["POWDERHOUND_EVENTS_IDENTITY_JWT_PUBLIC_KEY"])
	if err != nil {
		t.Fatalf("decode public key: %v", err)
	}
	if len(privateBytes) != 64 {
		t.Fatalf("expected private key length 64, got %d", len(privateBytes))
	}
	if len(publicBytes) != 32 {
		t.Fatalf("expected public key length 32, got %d", len(publicBytes))
	}
}

func TestRunKeysMintVerifiableTokens(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := Run(buf, nil, Options{Issuer: "test-iss", Audience: "test-aud"}); err != nil {
		t.Fatalf("run: %v", err)
	}
	values := parseExports(t, buf.String())
	now := func() time.Time { return time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC) }

	signer, ok, err := identity.NewSigner(values["POWDERHOUND_MCP_IDENTITY_JWT_ISSUER"], values["POWDERHOUND_MCP_IDENTITY_JWT_AUDIENCE"], values["POWDERHOUND_MCP_IDENTITY_JWT_PRIVATE_KEY"], now)
	if err != nil || !ok {
		t.Fatalf("new signer ok = %v err = %v", ok, err)
	}
	cfg, ok, err := identity.NewConfig(values["POWDERHOUND_EVENTS_IDENTITY_JWT_ISSUER"], values["POWDERHOUND_EVENTS_IDENTITY_JWT_AUDIENCE"], values["POWDERHOUND_EVENTS_IDENTITY_JWT_PUBLIC_KEY"], now)
	if err != nil || !ok {
		t.Fatalf("new config ok = %v err = %v", ok, err)
	}
	verifier, err := identity.NewVerifier(cfg)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	token, err := signer.Sign("rider-1", time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims, err := verifier.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != "rider-1" || claims.Issuer != "test-iss" {
		t.Fatalf("claims = %+v", claims)
	}
}
