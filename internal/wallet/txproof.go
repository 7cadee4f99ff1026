package wallet

import (
	"fmt"
)

// OutProof is a non-interactive proof that the holder of a
// transaction's secret key r sent a given amount to recipient,
// without revealing r (spec.md §4.I "Payment proof", "OutProofV2").
type OutProof struct {
	Derivation *Point // D = r*A, the ECDH derivation tied to the proof
	Challenge  *Scalar
	Response   *Scalar
}

// GenerateOutProof builds an OutProofV2-style payment proof binding
// txID, an optional message, and the transaction's public key R=r*G
// to the recipient's address. The prover demonstrates knowledge of r
// via a Schnorr signature over (D, X=k*G, Y=k*A, R, A, B).
func GenerateOutProof(txID [32]byte, txSecret *Scalar, recipient *MoneroAddress, message string) (*OutProof, error) {
	if recipient.View == nil || recipient.Spend == nil {
		return nil, fmt.Errorf("%w: recipient address missing keys", ErrInvalidAddress)
	}

	r := txSecret
	rPoint := BasepointMul(r)
	aPoint := recipient.View
	bPoint := recipient.Spend
	dPoint := edwardsScalarMul(r, aPoint)

	k, err := RandomScalar()
	if err != nil {
		return nil, err
	}
	xPoint := BasepointMul(k)
	yPoint := edwardsScalarMul(k, aPoint)

	challenge := outProofChallenge(txID, message, dPoint, xPoint, yPoint, rPoint, aPoint, bPoint)
	response := edwardsScalarSub(k, scalarMul(challenge, r))

	return &OutProof{Derivation: dPoint, Challenge: challenge, Response: response}, nil
}

// VerifyOutProof reverses GenerateOutProof. txPublicKey is the R value
// published in the transaction's extra field, obtained independently
// of the proof (the proof does not carry R, matching the format it is
// grounded on).
func VerifyOutProof(txID [32]byte, txPublicKey *Point, recipient *MoneroAddress, message string, proof *OutProof) bool {
	if recipient.View == nil || recipient.Spend == nil {
		return false
	}

	aPoint := recipient.View
	bPoint := recipient.Spend

	xPoint := edwardsAdd(BasepointMul(proof.Response), edwardsScalarMul(proof.Challenge, txPublicKey))
	yPoint := edwardsAdd(edwardsScalarMul(proof.Response, aPoint), edwardsScalarMul(proof.Challenge, proof.Derivation))

	expected := outProofChallenge(txID, message, proof.Derivation, xPoint, yPoint, txPublicKey, aPoint, bPoint)
	return scalarEqual(expected, proof.Challenge)
}

func outProofChallenge(txID [32]byte, message string, d, x, y, r, a, b *Point) *Scalar {
	msgHash := txID[:]
	if message != "" {
		h := Keccak256(txID[:], []byte(message))
		msgHash = h[:]
	}

	db := PointBytes(d)
	xb := PointBytes(x)
	yb := PointBytes(y)
	rb := PointBytes(r)
	ab := PointBytes(a)
	bb := PointBytes(b)

	return ScalarFromBytesModOrder(Keccak256(msgHash, db[:], xb[:], yb[:], rb[:], ab[:], bb[:], domainTxProof))
}

// EncodeOutProof renders a proof as base58(D‖c‖s), matching the wire
// layout of the reference "OutProofV2" signature string (without its
// prefix, which callers can prepend at display time).
func EncodeOutProof(p *OutProof) string {
	d := PointBytes(p.Derivation)
	c := [32]byte(p.Challenge.Bytes())
	s := [32]byte(p.Response.Bytes())
	payload := append(append(append([]byte{}, d[:]...), c[:]...), s[:]...)
	return Base58Encode(payload)
}

// DecodeOutProof reverses EncodeOutProof.
func DecodeOutProof(encoded string) (*OutProof, error) {
	raw, err := Base58Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if len(raw) != 96 {
		return nil, fmt.Errorf("%w: expected 96-byte out proof, got %d", ErrInvalidData, len(raw))
	}

	var dBytes, cBytes, sBytes [32]byte
	copy(dBytes[:], raw[0:32])
	copy(cBytes[:], raw[32:64])
	copy(sBytes[:], raw[64:96])

	d, err := PointFromBytes(dBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid derivation point", ErrInvalidData)
	}
	c, err := ScalarFromCanonicalBytes(cBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid challenge scalar", ErrInvalidData)
	}
	s, err := ScalarFromCanonicalBytes(sBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid response scalar", ErrInvalidData)
	}

	return &OutProof{Derivation: d, Challenge: c, Response: s}, nil
}
