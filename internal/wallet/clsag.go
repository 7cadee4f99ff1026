package wallet

import "fmt"

// ClsagSignature is a ring signature over a CryptoNote transaction
// input: a starting ring position, its challenge scalar, one response
// scalar per ring member, and the key image it ties to (spec.md §4.A,
// "Invariant: key_image = ...").
type ClsagSignature struct {
	StartIndex int
	C1         *Scalar
	Responses  []*Scalar
	KeyImage   *Point
}

// ClsagSigningParameters is everything SignClsag needs for one input.
type ClsagSigningParameters struct {
	SpendKey         *Scalar  // effective one-time spend scalar for the real ring member
	RealOutputIndex  int
	RingMembers      []*Point // one-time keys, ring-ordered
	RingCommitments  []*Point // per-member amount commitments, same order as RingMembers
	PseudoCommitment *Point   // this input's balancing pseudo-output commitment
	Message          []byte
}

// GenerateKeyImage returns I = x·Hp(P), the deterministic key image
// tying a spend to its one-time output key.
func GenerateKeyImage(secret *Scalar, publicKey *Point) *Point {
	hp := HashToPoint(PointBytes(publicKey)[:])
	return edwardsScalarMul(secret, hp)
}

// clsagHashPrefix folds the message, every ring member's one-time key
// and amount commitment, the key image, and the pseudo-output
// commitment into the bytes each per-round challenge is hashed from.
// Binding every ring member's commitment into the prefix (not just the
// real/pseudo pair) is what ties the signature to the exact decoy set
// the daemon returned: substituting any ring member's reported
// commitment changes the prefix and invalidates the signature.
func clsagHashPrefix(message []byte, ring []*Point, ringCommitments []*Point, keyImage, pseudoCommitment *Point) []byte {
	prefix := append([]byte{}, message...)
	for i, p := range ring {
		b := PointBytes(p)
		prefix = append(prefix, b[:]...)
		if i < len(ringCommitments) && ringCommitments[i] != nil {
			cb := PointBytes(ringCommitments[i])
			prefix = append(prefix, cb[:]...)
		}
	}
	kib := PointBytes(keyImage)
	prefix = append(prefix, kib[:]...)
	if pseudoCommitment != nil {
		pb := PointBytes(pseudoCommitment)
		prefix = append(prefix, pb[:]...)
	}
	return prefix
}

func clsagRound(hashPrefix []byte, l, r *Point) *Scalar {
	lb := PointBytes(l)
	rb := PointBytes(r)
	return ScalarFromBytesModOrder(Keccak256(hashPrefix, lb[:], rb[:]))
}

// SignClsag produces a CLSAG ring signature over message, proving
// knowledge of the spend scalar for RingMembers[RealOutputIndex]
// without revealing which index it is (spec.md §4.A, §4.H).
func SignClsag(params ClsagSigningParameters) (*ClsagSignature, error) {
	ringSize := len(params.RingMembers)
	if ringSize < 2 {
		return nil, fmt.Errorf("%w: clsag ring size must be at least 2", ErrInvalidData)
	}
	if params.RealOutputIndex < 0 || params.RealOutputIndex >= ringSize {
		return nil, fmt.Errorf("%w: real output index %d out of bounds for ring size %d",
			ErrInvalidData, params.RealOutputIndex, ringSize)
	}

	realIdx := params.RealOutputIndex
	realPubkey := params.RingMembers[realIdx]

	keyImage := GenerateKeyImage(params.SpendKey, realPubkey)
	hp := HashToPoint(PointBytes(realPubkey)[:])

	alpha, err := RandomScalar()
	if err != nil {
		return nil, err
	}

	l0 := BasepointMul(alpha)
	r0 := edwardsScalarMul(alpha, hp)

	responses := make([]*Scalar, ringSize)
	for i := 0; i < ringSize; i++ {
		if i == realIdx {
			continue
		}
		r, err := RandomScalar()
		if err != nil {
			return nil, err
		}
		responses[i] = r
	}

	hashPrefix := clsagHashPrefix(params.Message, params.RingMembers, params.RingCommitments, keyImage, params.PseudoCommitment)

	startIdx := (realIdx + 1) % ringSize
	currentC := clsagRound(hashPrefix, l0, r0)

	cValues := make([]*Scalar, ringSize)
	for offset := 0; offset < ringSize; offset++ {
		idx := (startIdx + offset) % ringSize
		if idx == realIdx {
			cValues[realIdx] = currentC
			break
		}
		cValues[idx] = currentC

		pubkey := params.RingMembers[idx]
		hpIdx := HashToPoint(PointBytes(pubkey)[:])

		li := edwardsAdd(BasepointMul(responses[idx]), edwardsScalarMul(currentC, pubkey))
		ri := edwardsAdd(edwardsScalarMul(responses[idx], hpIdx), edwardsScalarMul(currentC, keyImage))

		currentC = clsagRound(hashPrefix, li, ri)
	}

	responses[realIdx] = edwardsScalarSub(alpha, scalarMul(cValues[realIdx], params.SpendKey))

	return &ClsagSignature{
		StartIndex: startIdx,
		C1:         cValues[startIdx],
		Responses:  responses,
		KeyImage:   keyImage,
	}, nil
}

// VerifyClsag checks a CLSAG signature against its ring, the ring's
// per-member amount commitments, message, and pseudo-output commitment
// without learning which ring position is real.
func VerifyClsag(sig *ClsagSignature, ring []*Point, ringCommitments []*Point, message []byte, pseudoCommitment *Point) bool {
	ringSize := len(ring)
	if len(sig.Responses) != ringSize || ringSize < 2 {
		return false
	}
	if sig.StartIndex < 0 || sig.StartIndex >= ringSize {
		return false
	}

	hashPrefix := clsagHashPrefix(message, ring, ringCommitments, sig.KeyImage, pseudoCommitment)
	currentC := sig.C1

	for offset := 0; offset < ringSize; offset++ {
		idx := (sig.StartIndex + offset) % ringSize
		pubkey := ring[idx]
		hpIdx := HashToPoint(PointBytes(pubkey)[:])

		li := edwardsAdd(BasepointMul(sig.Responses[idx]), edwardsScalarMul(currentC, pubkey))
		ri := edwardsAdd(edwardsScalarMul(sig.Responses[idx], hpIdx), edwardsScalarMul(currentC, sig.KeyImage))

		currentC = clsagRound(hashPrefix, li, ri)
	}

	return scalarEqual(currentC, sig.C1)
}
