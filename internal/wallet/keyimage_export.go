package wallet

import (
	"bytes"
	"crypto/rand"
	"fmt"
)

// exportMagic is the reference wallet's v3 key-image export file
// magic: the ASCII string plus a trailing version byte, kept
// byte-identical so exports interchange with the reference client
// (spec.md §4.I).
var exportMagic = append([]byte("Monero key image export"), 0x03)

const exportIVSize = 8

// ExportedKeyImage pairs a key image with its Schnorr-style proof of
// correct formation.
type ExportedKeyImage struct {
	KeyImage  [32]byte
	Signature [64]byte // (c, r), 32 bytes each
}

// signKeyImage produces the single-element ring signature proving I
// was formed from secret and publicKey: pick random k, L=kG,
// R=k·Hp(P), c=H(I‖L‖R), r=k-c·secret (spec.md §4.I).
func signKeyImage(secret *Scalar, publicKey, keyImage *Point) ([64]byte, error) {
	k, err := RandomScalar()
	if err != nil {
		return [64]byte{}, err
	}
	l := BasepointMul(k)
	hp := HashToPoint(PointBytes(publicKey)[:])
	r := edwardsScalarMul(k, hp)

	kib := PointBytes(keyImage)
	lb := PointBytes(l)
	rb := PointBytes(r)
	c := ScalarFromBytesModOrder(Keccak256(kib[:], lb[:], rb[:]))
	s := edwardsScalarSub(k, scalarMul(c, secret))

	var sig [64]byte
	copy(sig[:32], c.Bytes())
	copy(sig[32:], s.Bytes())
	return sig, nil
}

// verifyKeyImageSignature reverses signKeyImage: recompute L=sG+cP,
// R=s·Hp(P)+cI, c'=H(I‖L‖R), check c'=c.
func verifyKeyImageSignature(sig [64]byte, publicKey, keyImage *Point) bool {
	var cBytes, sBytes [32]byte
	copy(cBytes[:], sig[:32])
	copy(sBytes[:], sig[32:])

	c, err := ScalarFromCanonicalBytes(cBytes)
	if err != nil {
		return false
	}
	s, err := ScalarFromCanonicalBytes(sBytes)
	if err != nil {
		return false
	}

	l := edwardsAdd(BasepointMul(s), edwardsScalarMul(c, publicKey))
	hp := HashToPoint(PointBytes(publicKey)[:])
	r := edwardsAdd(edwardsScalarMul(s, hp), edwardsScalarMul(c, keyImage))

	kib := PointBytes(keyImage)
	lb := PointBytes(l)
	rb := PointBytes(r)
	expected := ScalarFromBytesModOrder(Keccak256(kib[:], lb[:], rb[:]))
	return scalarEqual(expected, c)
}

// ExportKeyImages serializes every owned output's key image and
// formation proof, encrypted under a key derived from the wallet's
// view secret (spec.md §4.I "Export"). Pure; does not suspend.
func ExportKeyImages(kp *KeyPair, ledger *Ledger) ([]byte, error) {
	if kp.IsViewOnly() {
		return nil, ErrViewOnlyCannotSign
	}

	var body bytes.Buffer
	body.Write(leUint32(0)) // offset, always 0 for a full export
	spendBytes := PointBytes(kp.SpendPublic)
	viewBytes := PointBytes(kp.ViewPublic)
	body.Write(spendBytes[:])
	body.Write(viewBytes[:])

	ledger.mu.RLock()
	outputs := make([]*Output, 0, len(ledger.outputs))
	for _, o := range ledger.outputs {
		outputs = append(outputs, o)
	}
	ledger.mu.RUnlock()

	for _, o := range outputs {
		effectiveSpend := addScalars(kp.SpendSecret, o.KeyOffset)
		sig, err := signKeyImage(effectiveSpend, o.OutputPublicKey, mustPoint(o.KeyImage))
		if err != nil {
			return nil, err
		}
		body.Write(o.KeyImage[:])
		body.Write(sig[:])
	}

	key := deriveChaChaKey(kp.ViewSecret)
	var iv [exportIVSize]byte
	if _, err := rand.Read(iv[:]); err != nil {
		return nil, err
	}
	ciphertext, err := chacha20LegacyCrypt(body.Bytes(), key, iv)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	out.Write(exportMagic)
	out.Write(iv[:])
	out.Write(ciphertext)
	return out.Bytes(), nil
}

// ImportResult reports how many exported key images were newly
// applied versus already known as spent.
type ImportResult struct {
	NewlySpent   int
	AlreadySpent int
}

// ImportKeyImages reverses ExportKeyImages: validates the magic,
// decrypts with this wallet's view secret, checks the embedded public
// keys match, verifies every signature, and marks matching owned
// outputs spent (spec.md §4.I "Import"). Unknown key images are
// ignored; invalid signatures abort the whole import.
func ImportKeyImages(kp *KeyPair, ledger *Ledger, data []byte) (*ImportResult, error) {
	if len(data) < len(exportMagic)+exportIVSize {
		return nil, &CorruptedFileError{Reason: "key image export file too short"}
	}
	if !bytes.Equal(data[:len(exportMagic)], exportMagic) {
		return nil, &CorruptedFileError{Reason: "bad key image export magic"}
	}
	offset := len(exportMagic)
	var iv [exportIVSize]byte
	copy(iv[:], data[offset:offset+exportIVSize])
	offset += exportIVSize

	key := deriveChaChaKey(kp.ViewSecret)
	plaintext, err := chacha20LegacyCrypt(data[offset:], key, iv)
	if err != nil {
		return nil, err
	}
	if len(plaintext) < 4+32+32 {
		return nil, &CorruptedFileError{Reason: "key image export body too short"}
	}

	body := plaintext[4:] // skip the offset field
	var spendBytes, viewBytes [32]byte
	copy(spendBytes[:], body[:32])
	copy(viewBytes[:], body[32:64])
	body = body[64:]

	if !bytes.Equal(spendBytes[:], PointBytes(kp.SpendPublic)[:]) || !bytes.Equal(viewBytes[:], PointBytes(kp.ViewPublic)[:]) {
		return nil, fmt.Errorf("%w: key image export does not match this wallet", ErrInvalidData)
	}

	result := &ImportResult{}
	const entrySize = 32 + 64
	var verified [][32]byte
	for len(body) >= entrySize {
		var ki [32]byte
		copy(ki[:], body[:32])
		var sig [64]byte
		copy(sig[:], body[32:96])
		body = body[entrySize:]

		owned, ok := ledger.Output(ki)
		if !ok {
			continue
		}
		if !verifyKeyImageSignature(sig, owned.OutputPublicKey, mustPoint(ki)) {
			return nil, fmt.Errorf("%w: invalid key image signature for %x", ErrInvalidData, ki)
		}
		verified = append(verified, ki)
	}

	for _, ki := range verified {
		if ledger.IsSpent(ki) {
			result.AlreadySpent++
			continue
		}
		ledger.MarkSpent(ki)
		result.NewlySpent++
	}

	return result, nil
}

func mustPoint(b [32]byte) *Point {
	p, err := PointFromBytes(b)
	if err != nil {
		// Key images are always produced by this package's own scalar
		// multiplications and are therefore always valid curve points.
		panic(fmt.Sprintf("monlite: invalid key image encoding: %v", err))
	}
	return p
}
