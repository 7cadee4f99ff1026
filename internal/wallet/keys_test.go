package wallet

import "testing"

func TestDeriveKeysIsDeterministic(t *testing.T) {
	var seed Seed
	copy(seed.Entropy[:], []byte("deterministic key derivation!!!"))

	kp1 := DeriveKeys(seed)
	kp2 := DeriveKeys(seed)

	if !scalarEqual(kp1.SpendSecret, kp2.SpendSecret) {
		t.Errorf("spend secret not deterministic across derivations")
	}
	if !scalarEqual(kp1.ViewSecret, kp2.ViewSecret) {
		t.Errorf("view secret not deterministic across derivations")
	}
	if PointBytes(kp1.SpendPublic) != PointBytes(kp2.SpendPublic) {
		t.Errorf("spend public key not deterministic across derivations")
	}
}

func TestDeriveKeysDifferentSeedsDiffer(t *testing.T) {
	var seedA, seedB Seed
	copy(seedA.Entropy[:], []byte("seed A material for derivation!"))
	copy(seedB.Entropy[:], []byte("seed B material for derivation!"))

	kpA := DeriveKeys(seedA)
	kpB := DeriveKeys(seedB)

	if PointBytes(kpA.SpendPublic) == PointBytes(kpB.SpendPublic) {
		t.Errorf("different seeds produced the same spend public key")
	}
}

func TestKeyPairIsViewOnly(t *testing.T) {
	full := testKeyPair(t)
	if full.IsViewOnly() {
		t.Errorf("a fully derived keypair should not be view-only")
	}

	viewOnly := NewViewOnlyKeyPair(full.SpendPublic, full.ViewSecret)
	if !viewOnly.IsViewOnly() {
		t.Errorf("NewViewOnlyKeyPair should produce a view-only keypair")
	}
	if PointBytes(viewOnly.ViewPublic) != PointBytes(full.ViewPublic) {
		t.Errorf("view-only keypair's derived view public key should match the full keypair's")
	}
}

func TestKeyPairChecksum(t *testing.T) {
	kp1 := testKeyPair(t)
	kp2 := testKeyPair(t)
	if kp1.Checksum() != kp2.Checksum() {
		t.Errorf("identical keypairs should have identical checksums")
	}

	var otherSeed Seed
	copy(otherSeed.Entropy[:], []byte("a totally different seed value!"))
	other := DeriveKeys(otherSeed)
	if kp1.Checksum() == other.Checksum() {
		t.Errorf("different keypairs should have different checksums")
	}
}

func TestSubaddressPrimaryIndexMatchesPrimaryAddress(t *testing.T) {
	kp := testKeyPair(t)
	primaryViaSubaddress, err := kp.Subaddress(SubaddressIndex{0, 0}, Mainnet)
	if err != nil {
		t.Fatalf("Subaddress(0,0) failed: %v", err)
	}
	primary := kp.PrimaryAddress(Mainnet)

	if primaryViaSubaddress.Type != AddressLegacy {
		t.Errorf("Subaddress(0,0) should return the legacy address type")
	}
	if PointBytes(primaryViaSubaddress.Spend) != PointBytes(primary.Spend) {
		t.Errorf("Subaddress(0,0) spend key should match PrimaryAddress")
	}
}

func TestSubaddressesAreDistinctAndDeterministic(t *testing.T) {
	kp := testKeyPair(t)

	a1, err := kp.Subaddress(SubaddressIndex{Account: 0, Address: 1}, Mainnet)
	if err != nil {
		t.Fatalf("Subaddress failed: %v", err)
	}
	a2, err := kp.Subaddress(SubaddressIndex{Account: 0, Address: 1}, Mainnet)
	if err != nil {
		t.Fatalf("Subaddress failed: %v", err)
	}
	if PointBytes(a1.Spend) != PointBytes(a2.Spend) {
		t.Errorf("subaddress derivation is not deterministic")
	}

	a3, err := kp.Subaddress(SubaddressIndex{Account: 0, Address: 2}, Mainnet)
	if err != nil {
		t.Fatalf("Subaddress failed: %v", err)
	}
	if PointBytes(a1.Spend) == PointBytes(a3.Spend) {
		t.Errorf("different subaddress indices should produce different spend keys")
	}

	a4, err := kp.Subaddress(SubaddressIndex{Account: 1, Address: 1}, Mainnet)
	if err != nil {
		t.Fatalf("Subaddress failed: %v", err)
	}
	if PointBytes(a1.Spend) == PointBytes(a4.Spend) {
		t.Errorf("different accounts should produce different spend keys even with the same address index")
	}
}
