// Package wallet implements a light-client wallet engine for a
// CryptoNote-family coin: key derivation, block scanning, an output
// ledger, input/decoy selection, fee estimation, CLSAG transaction
// signing, and encrypted on-disk persistence.
//
// The package assumes a correct Ed25519/Curve25519 implementation
// (filippo.io/edwards25519, the library the Go standard library itself
// vendors for crypto/ed25519) and a single Keccak-256 hash primitive
// (golang.org/x/crypto/sha3's legacy, pre-NIST-padding variant).
package wallet

import (
	"crypto/rand"
	"fmt"

	"filippo.io/edwards25519"
	"golang.org/x/crypto/sha3"
)

// Scalar and Point are the curve types every derivation and signature
// in this package is built from. They are aliased rather than wrapped
// so callers can reach the underlying arithmetic directly when needed.
type Scalar = edwards25519.Scalar
type Point = edwards25519.Point

// Domain separators. Fixed byte strings, never derived from user input.
var (
	domainSubAddr    = []byte("SubAddr\x00")
	domainTxProof    = []byte("TXPROOF_V2")
	domainKeyImage   = []byte("key image signature")
	domainPedersenH  = []byte("monlite pedersen commitment generator H")
	domainCommitMask = []byte("commitment_mask")
)

// pedersenGeneratorH is the second Pedersen generator amount
// commitments are blinded against. It is derived by hashing a fixed
// domain string to a curve point, the standard way to obtain a
// generator with no known discrete log relative to the basepoint.
var pedersenGeneratorH = HashToPoint(domainPedersenH)

// PedersenCommit returns amount·H + blinding·G, the Pedersen
// commitment to amount under blinding (spec.md §4.F/§4.H "amount
// commitments"). Used for both real output commitments and the
// balancing pseudo-output commitments a transaction's inputs sign
// against.
func PedersenCommit(amount uint64, blinding *Scalar) *Point {
	aH := edwardsScalarMul(scalarFromUint64(amount), pedersenGeneratorH)
	return edwardsAdd(aH, BasepointMul(blinding))
}

// scalarFromUint64 widens v into a scalar. v is always far smaller
// than the group order, so no reduction can occur.
func scalarFromUint64(v uint64) *Scalar {
	var b [32]byte
	copy(b[:8], leUint64(v))
	s, err := edwards25519.NewScalar().SetCanonicalBytes(b[:])
	if err != nil {
		panic(fmt.Sprintf("monlite: uint64 scalar encoding: %v", err))
	}
	return s
}

// Keccak256 is the single hash primitive used throughout the wallet
// engine. It uses the legacy (pre-NIST, no domain padding byte)
// Keccak-256 construction that CryptoNote-family chains standardized
// on before SHA-3 was finalized.
func Keccak256(parts ...[]byte) [32]byte {
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		h.Write(p)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// ScalarFromBytesModOrder reduces an arbitrary 32-byte value modulo the
// group order ℓ. Non-canonical encodings are accepted and reduced,
// unlike ScalarFromCanonicalBytes.
func ScalarFromBytesModOrder(b [32]byte) *Scalar {
	var wide [64]byte
	copy(wide[:32], b[:])
	s, err := edwards25519.NewScalar().SetUniformBytes(wide[:])
	if err != nil {
		// SetUniformBytes only fails on a length mismatch; wide is
		// always exactly 64 bytes here.
		panic(fmt.Sprintf("monlite: scalar reduction: %v", err))
	}
	return s
}

// ScalarFromCanonicalBytes parses a scalar that must already be in
// canonical (fully reduced) form, as required when parsing signature
// response scalars (spec §4.A).
func ScalarFromCanonicalBytes(b [32]byte) (*Scalar, error) {
	s, err := edwards25519.NewScalar().SetCanonicalBytes(b[:])
	if err != nil {
		return nil, fmt.Errorf("%w: non-canonical scalar encoding", ErrInvalidData)
	}
	return s, nil
}

// RandomScalar draws a uniformly random scalar mod ℓ from the OS CSPRNG.
func RandomScalar() (*Scalar, error) {
	var wide [64]byte
	if _, err := rand.Read(wide[:]); err != nil {
		return nil, fmt.Errorf("monlite: reading random scalar: %w", err)
	}
	s, err := edwards25519.NewScalar().SetUniformBytes(wide[:])
	if err != nil {
		return nil, fmt.Errorf("monlite: reducing random scalar: %w", err)
	}
	return s, nil
}

// BasepointMul returns s·G.
func BasepointMul(s *Scalar) *Point {
	return edwards25519.NewIdentityPoint().ScalarBaseMult(s)
}

// PointBytes returns the 32-byte compressed encoding of p.
func PointBytes(p *Point) [32]byte {
	var out [32]byte
	copy(out[:], p.Bytes())
	return out
}

// PointFromBytes decompresses a 32-byte encoding into a curve point.
func PointFromBytes(b [32]byte) (*Point, error) {
	p, err := edwards25519.NewIdentityPoint().SetBytes(b[:])
	if err != nil {
		return nil, fmt.Errorf("%w: not a valid curve point", ErrInvalidData)
	}
	return p, nil
}

// HashToPoint implements the biased hash-to-point algorithm used by
// this chain family: Keccak-256 the input, then attempt to decompress
// the digest as a curve point, perturbing and retrying on failure. The
// result is deterministic for a given input.
//
// This is the "assume a correct ... hash-to-point" primitive the
// design notes call out as external to the wallet engine's concerns;
// real CryptoNote clients use a constant-time Elligator-style field
// map, but a decompress-with-retry loop satisfies every contract this
// package relies on (determinism, and landing on a valid curve point).
func HashToPoint(data []byte) *Point {
	digest := Keccak256(data)
	for attempt := 0; ; attempt++ {
		candidate := digest
		if attempt > 0 {
			perturbed := Keccak256(digest[:], []byte{byte(attempt)})
			candidate = perturbed
		}
		if p, err := PointFromBytes(candidate); err == nil {
			return p
		}
	}
}

// scalarMul returns a·b.
func scalarMul(a, b *Scalar) *Scalar {
	return edwards25519.NewScalar().Multiply(a, b)
}

// addScalars returns a+b.
func addScalars(a, b *Scalar) *Scalar {
	return edwards25519.NewScalar().Add(a, b)
}

// edwardsScalarSub returns a-b.
func edwardsScalarSub(a, b *Scalar) *Scalar {
	return edwards25519.NewScalar().Subtract(a, b)
}

// scalarEqual reports whether two scalars have the same canonical
// encoding.
func scalarEqual(a, b *Scalar) bool {
	ab, bb := a.Bytes(), b.Bytes()
	if len(ab) != len(bb) {
		return false
	}
	for i := range ab {
		if ab[i] != bb[i] {
			return false
		}
	}
	return true
}

// leUint32 encodes v as 4 little-endian bytes.
func leUint32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

// leUint64 encodes v as 8 little-endian bytes.
func leUint64(v uint64) []byte {
	return []byte{
		byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24),
		byte(v >> 32), byte(v >> 40), byte(v >> 48), byte(v >> 56),
	}
}
