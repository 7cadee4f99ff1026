package wallet

import "testing"

func ownedOutputWithValidKeyImage(kp *KeyPair, seed byte, amount, height uint64) *Output {
	keyOffset := ScalarFromBytesModOrder(Keccak256([]byte("offset"), []byte{seed}))
	effectiveSpend := addScalars(kp.SpendSecret, keyOffset)
	outputPublic := BasepointMul(effectiveSpend)
	keyImage := GenerateKeyImage(effectiveSpend, outputPublic)

	return &Output{
		TxHash:          Keccak256([]byte{seed, 'h'}),
		Amount:          amount,
		Height:          height,
		KeyOffset:       keyOffset,
		OutputPublicKey: outputPublic,
		KeyImage:        PointBytes(keyImage),
		Mask:            ScalarFromBytesModOrder(Keccak256([]byte("mask"), []byte{seed})),
	}
}

func TestExportImportKeyImagesRoundTrip(t *testing.T) {
	kp := testKeyPair(t)
	ledger := NewLedger()
	o := ownedOutputWithValidKeyImage(kp, 1, 1000, 100)
	if err := ledger.Insert(o); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	data, err := ExportKeyImages(kp, ledger)
	if err != nil {
		t.Fatalf("ExportKeyImages failed: %v", err)
	}

	result, err := ImportKeyImages(kp, ledger, data)
	if err != nil {
		t.Fatalf("ImportKeyImages failed: %v", err)
	}
	if result.NewlySpent != 1 {
		t.Errorf("NewlySpent = %d, want 1", result.NewlySpent)
	}
	if !ledger.IsSpent(o.KeyImage) {
		t.Errorf("expected the exported output's key image to be marked spent after import")
	}
}

func TestImportKeyImagesReportsAlreadySpent(t *testing.T) {
	kp := testKeyPair(t)
	ledger := NewLedger()
	o := ownedOutputWithValidKeyImage(kp, 1, 1000, 100)
	if err := ledger.Insert(o); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	data, err := ExportKeyImages(kp, ledger)
	if err != nil {
		t.Fatalf("ExportKeyImages failed: %v", err)
	}
	if _, err := ImportKeyImages(kp, ledger, data); err != nil {
		t.Fatalf("first import failed: %v", err)
	}

	result, err := ImportKeyImages(kp, ledger, data)
	if err != nil {
		t.Fatalf("second import failed: %v", err)
	}
	if result.AlreadySpent != 1 || result.NewlySpent != 0 {
		t.Errorf("second import = %+v, want AlreadySpent=1, NewlySpent=0", result)
	}
}

func TestExportKeyImagesRejectsViewOnly(t *testing.T) {
	full := testKeyPair(t)
	viewOnly := NewViewOnlyKeyPair(full.SpendPublic, full.ViewSecret)
	ledger := NewLedger()

	if _, err := ExportKeyImages(viewOnly, ledger); err != ErrViewOnlyCannotSign {
		t.Errorf("expected ErrViewOnlyCannotSign, got %v", err)
	}
}

func TestImportKeyImagesRejectsBadMagic(t *testing.T) {
	kp := testKeyPair(t)
	ledger := NewLedger()
	if _, err := ImportKeyImages(kp, ledger, []byte("not a real export file")); err == nil {
		t.Errorf("expected an error for a file with bad magic")
	}
}

func TestImportKeyImagesRejectsWrongWallet(t *testing.T) {
	kp := testKeyPair(t)
	ledger := NewLedger()
	o := ownedOutputWithValidKeyImage(kp, 1, 1000, 100)
	if err := ledger.Insert(o); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	data, err := ExportKeyImages(kp, ledger)
	if err != nil {
		t.Fatalf("ExportKeyImages failed: %v", err)
	}

	var otherSeed Seed
	copy(otherSeed.Entropy[:], []byte("a completely different wallet!!"))
	other := DeriveKeys(otherSeed)
	otherLedger := NewLedger()

	if _, err := ImportKeyImages(other, otherLedger, data); err == nil {
		t.Errorf("expected an error importing an export encrypted for a different wallet")
	}
}

func TestSignVerifyKeyImageSignature(t *testing.T) {
	secret := ScalarFromBytesModOrder(Keccak256([]byte("spend")))
	public := BasepointMul(secret)
	keyImage := GenerateKeyImage(secret, public)

	sig, err := signKeyImage(secret, public, keyImage)
	if err != nil {
		t.Fatalf("signKeyImage failed: %v", err)
	}
	if !verifyKeyImageSignature(sig, public, keyImage) {
		t.Errorf("verifyKeyImageSignature rejected a validly constructed signature")
	}

	sig[0] ^= 0xff
	if verifyKeyImageSignature(sig, public, keyImage) {
		t.Errorf("verifyKeyImageSignature accepted a tampered signature")
	}
}
