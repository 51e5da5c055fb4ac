// Package identitykey generates the Ed25519 key pair shared by token minters
// and the events service verifier.
package identitykey

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	DefaultIssuer   = "powderhound-auth"
	DefaultAudience = "powderhound-events"
)

// Options names the issuer and audience written alongside the keys.
type Options struct {
	Issuer   string
	Audience string
}

// Run generates an identity key pair and writes shell exports for the
// events service and the MCP bridge.
func Run(out io.Writer, reader io.Reader, opts Options) error {
	if out == nil {
		return errors.New("output is required")
	}
	if reader == nil {
		reader = rand.Reader
	}
	issuer := strings.TrimSpace(opts.Issuer)
	if issuer == "" {
		issuer = DefaultIssuer
	}
	audience := strings.TrimSpace(opts.Audience)
	if audience == "" {
		audience = DefaultAudience
	}
	publicKey, privateKey, err := ed25519.GenerateKey(reader)
	if err != nil {
		return fmt.Errorf("generate identity key: %w", err)
	}
	lines := []string{
		"POWDERHOUND_EVENTS_IDENTITY_JWT_ISSUER=" + issuer,
		"POWDERHOUND_EVENTS_IDENTITY_JWT_AUDIENCE=" + audience,
		"POWDERHOUND_EVENTS_IDENTITY_JWT_PUBLIC_KEY=" + base64.RawStdEncoding.EncodeToString(publicKey),
		"POWDERHOUND_MCP_IDENTITY_JWT_ISSUER=" + issuer,
		"POWDERHOUND_MCP_IDENTITY_JWT_AUDIENCE=" + audience,
		"POWDERHOUND_MCP_IDENTITY_JWT_PRIVATE_KEY=" + base64.RawStdEncoding.EncodeToString(privateKey),
	}
	for _, line := range lines {
		if _, err := fmt.Fprintf(out, "export %s\n", line); err != nil {
			return err
		}
	}
	return nil
}
