package id

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func decodeUUID(t *testing.T, value string) uuid.UUID {
	t.Helper()
	raw, err := encoding.DecodeString(strings.ToUpper(value))
	if err != nil {
		t.Fatalf("decode %q: %v", value, err)
	}
	u, err := uuid.FromBytes(raw)
	if err != nil {
		t.Fatalf("uuid from bytes: %v", err)
	}
	return u
}

func TestNewIDEncodesRandomUUID(t *testing.T) {
	value, err := NewID()
	if err != nil {
		t.Fatalf("new id: %v", err)
	}
	if len(value) != 26 || strings.ContainsAny(value, "=ABCDEFGHIJKLMNOPQRSTUVWXYZ01") {
		t.Fatalf("id %q is not 26 lowercase unpadded base32 characters", value)
	}
	u := decodeUUID(t, value)
	if u.Version() != 4 {
		t.Fatalf("version = %d, want 4", u.Version())
	}
	if u.Variant() != uuid.RFC4122 {
		t.Fatalf("variant = %v, want RFC4122", u.Variant())
	}
}

func TestNewIDDoesNotRepeat(t *testing.T) {
	seen := map[string]bool{}
	for range 64 {
		value, err := NewID()
		if err != nil {
			t.Fatalf("new id: %v", err)
		}
		if seen[value] {
			t.Fatalf("duplicate id %q", value)
		}
		seen[value] = true
	}
}
