package crypto

import (
	"bytes"
	"testing"
)

func TestAddressRoundTrip(t *testing.T) {
	payload := make([]byte, 20)
	for i := range payload {
		payload[i] = byte(i + 1)
	}
	addr := NewAddress(AccountPrefix, payload)

	decoded, err := DecodeAddress(addr.String())
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded.Prefix() != AccountPrefix {
		t.Fatalf("expected prefix %q, got %q", AccountPrefix, decoded.Prefix())
	}
	if !bytes.Equal(decoded.Bytes(), payload) {
		t.Fatalf("payload mismatch: %x", decoded.Bytes())
	}

	unit := NewAddress(UnitPrefix, payload)
	decoded, err = DecodeAddress(unit.String())
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded.Prefix() != UnitPrefix {
		t.Fatalf("expected prefix %q, got %q", UnitPrefix, decoded.Prefix())
	}
}

func TestDecodeAddressRejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "mln1", "not-bech32", "mln1qqqq"} {
		if _, err := DecodeAddress(input); err == nil {
			t.Fatalf("expected decode of %q to fail", input)
		}
	}
}

func TestAddressIsZero(t *testing.T) {
	if !(Address{}).IsZero() {
		t.Fatalf("empty address must be zero")
	}
	if !NewAddress(AccountPrefix, make([]byte, 20)).IsZero() {
		t.Fatalf("all-zero payload must be zero")
	}
	payload := make([]byte, 20)
	payload[19] = 1
	if NewAddress(AccountPrefix, payload).IsZero() {
		t.Fatalf("non-zero payload must not be zero")
	}
}

func TestAddressEqualIgnoresPrefix(t *testing.T) {
	payload := make([]byte, 20)
	payload[0] = 0xAB
	account := NewAddress(AccountPrefix, payload)
	unit := NewAddress(UnitPrefix, payload)
	if !account.Equal(unit) {
		t.Fatalf("addresses with identical payloads must compare equal")
	}
	other := make([]byte, 20)
	if account.Equal(NewAddress(AccountPrefix, other)) {
		t.Fatalf("different payloads must not compare equal")
	}
}

func TestGeneratedKeyDerivesAccountAddress(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	addr := key.PubKey().Address()
	if addr.Prefix() != AccountPrefix {
		t.Fatalf("expected account prefix, got %q", addr.Prefix())
	}
	if len(addr.Bytes()) != 20 {
		t.Fatalf("expected 20-byte address, got %d", len(addr.Bytes()))
	}

	restored, err := PrivateKeyFromBytes(key.Bytes())
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if !restored.PubKey().Address().Equal(addr) {
		t.Fatalf("restored key must derive the same address")
	}
}
