// Package main generates the identity token key pair.
package main

import (
	"flag"
	"os"

	"github.com/powderhound/powderhound/internal/platform/config"
	"github.com/powderhound/powderhound/internal/tools/identitykey"
)

func main() {
	issuer := flag.String("issuer", identitykey.DefaultIssuer, "identity token issuer")
	audience := flag.String("audience", identitykey.DefaultAudience, "identity token audience")
	flag.Parse()
	if err := identitykey.Run(os.Stdout, nil, identitykey.Options{Issuer: *issuer, Audience: *audience}); err != nil {
		config.Exitf("generate identity key: %v", err)
	}
}
