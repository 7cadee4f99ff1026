package wallet

import "testing"

func testKeyPair(t *testing.T) *KeyPair {
	t.Helper()
	seed := Seed{}
	copy(seed.Entropy[:], []byte("deterministic test seed material"))
	return DeriveKeys(seed)
}

func TestAddressEncodeDecodeRoundTrip(t *testing.T) {
	kp := testKeyPair(t)

	tests := []struct {
		name    string
		network Network
	}{
		{"mainnet", Mainnet},
		{"testnet", Testnet},
		{"stagenet", Stagenet},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr := kp.PrimaryAddress(tt.network)
			encoded, err := addr.Encode()
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}

			decoded, err := DecodeAddress(encoded)
			if err != nil {
				t.Fatalf("DecodeAddress failed: %v", err)
			}
			if decoded.Network != tt.network {
				t.Errorf("network = %v, want %v", decoded.Network, tt.network)
			}
			if decoded.Type != AddressLegacy {
				t.Errorf("type = %v, want AddressLegacy", decoded.Type)
			}
			if PointBytes(decoded.Spend) != PointBytes(addr.Spend) {
				t.Errorf("decoded spend key mismatch")
			}
			if PointBytes(decoded.View) != PointBytes(addr.View) {
				t.Errorf("decoded view key mismatch")
			}
		})
	}
}

func TestSubaddressEncodeDecodeRoundTrip(t *testing.T) {
	kp := testKeyPair(t)

	addr, err := kp.Subaddress(SubaddressIndex{Account: 0, Address: 1}, Mainnet)
	if err != nil {
		t.Fatalf("Subaddress failed: %v", err)
	}
	if addr.Type != AddressSubaddress {
		t.Fatalf("expected AddressSubaddress, got %v", addr.Type)
	}

	encoded, err := addr.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	decoded, err := DecodeAddress(encoded)
	if err != nil {
		t.Fatalf("DecodeAddress failed: %v", err)
	}
	if decoded.Type != AddressSubaddress {
		t.Errorf("decoded type = %v, want AddressSubaddress", decoded.Type)
	}
	if PointBytes(decoded.Spend) != PointBytes(addr.Spend) {
		t.Errorf("decoded subaddress spend key mismatch")
	}
}

func TestIntegratedAddressRequiresPaymentID(t *testing.T) {
	kp := testKeyPair(t)
	addr := &MoneroAddress{
		Network: Mainnet,
		Type:    AddressIntegrated,
		Spend:   kp.SpendPublic,
		View:    kp.ViewPublic,
	}
	if _, err := addr.Encode(); err == nil {
		t.Errorf("expected error encoding an integrated address with no payment id")
	}

	var pid [8]byte
	copy(pid[:], []byte("paymtid!"))
	addr.PaymentID = &pid

	encoded, err := addr.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	decoded, err := DecodeAddress(encoded)
	if err != nil {
		t.Fatalf("DecodeAddress failed: %v", err)
	}
	if decoded.PaymentID == nil || *decoded.PaymentID != pid {
		t.Errorf("decoded payment id mismatch")
	}
}

func TestDecodeAddressRejectsTamperedChecksum(t *testing.T) {
	kp := testKeyPair(t)
	addr := kp.PrimaryAddress(Mainnet)
	encoded, err := addr.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	tampered := []rune(encoded)
	if tampered[0] == 'a' {
		tampered[0] = 'b'
	} else {
		tampered[0] = 'a'
	}

	if _, err := DecodeAddress(string(tampered)); err == nil {
		t.Errorf("expected error decoding a tampered address")
	}
}

func TestDecodeAddressRejectsGarbage(t *testing.T) {
	if _, err := DecodeAddress("not a valid base58 address at all"); err == nil {
		t.Errorf("expected error decoding garbage input")
	}
	if _, err := DecodeAddress(""); err == nil {
		t.Errorf("expected error decoding empty input")
	}
}
