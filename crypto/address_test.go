package crypto

import (
	"strings"
	"testing"

	"github.com/btcsuite/btcutil/bech32"
)

func TestAddressRoundTrip(t *testing.T) {
	var raw [20]byte
	for i := range raw {
		raw[i] = byte(i + 1)
	}
	addr := NewAddress(raw)
	encoded := addr.String()
	if !strings.HasPrefix(encoded, AddressPrefix+"1") {
		t.Fatalf("encoded address %q missing %q prefix", encoded, AddressPrefix)
	}
	decoded, err := DecodeAddress(encoded)
	if err != nil {
		t.Fatalf("decode address: %v", err)
	}
	if decoded.Bytes20() != raw {
		t.Fatalf("round trip mismatch: got %x want %x", decoded.Bytes20(), raw)
	}
}

func TestDecodeAddressRejectsForeignPrefix(t *testing.T) {
	raw := make([]byte, AddressLength)
	raw[0] = 0xAA
	conv, err := bech32.ConvertBits(raw, 8, 5, true)
	if err != nil {
		t.Fatalf("convert bits: %v", err)
	}
	foreign, err := bech32.Encode("cosmos", conv)
	if err != nil {
		t.Fatalf("encode foreign address: %v", err)
	}
	if _, err := DecodeAddress(foreign); err == nil {
		t.Fatal("expected error for foreign prefix")
	}
}

func TestDecodeAddressRejectsGarbage(t *testing.T) {
	if _, err := DecodeAddress("fnd1notbech32!!!"); err == nil {
		t.Fatal("expected error for malformed input")
	}
}

func TestAddressFromBytesLength(t *testing.T) {
	if _, err := AddressFromBytes(make([]byte, 19)); err == nil {
		t.Fatal("expected error for short input")
	}
	addr, err := AddressFromBytes(make([]byte, 20))
	if err != nil {
		t.Fatalf("address from bytes: %v", err)
	}
	if !addr.IsZero() {
		t.Fatal("zero bytes should produce the null identity")
	}
}
