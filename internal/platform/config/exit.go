package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Exitf prints "<program>: message" to stderr and exits with status 1.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s: %s\n", filepath.Base(os.Args[0]), fmt.Sprintf(format, args...))
	os.Exit(1)
}
