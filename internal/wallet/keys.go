package wallet

import (
	"fmt"

	"filippo.io/edwards25519"
)

// SubaddressIndex identifies a (account, address) pair within a
// wallet's subaddress tree. (0,0) is the primary legacy address.
type SubaddressIndex struct {
	Account uint32
	Address uint32
}

// IsPrimary reports whether idx names the primary legacy address.
func (idx SubaddressIndex) IsPrimary() bool {
	return idx.Account == 0 && idx.Address == 0
}

// KeyPair holds a wallet's spend and view key material. A full keypair
// carries the private spend scalar x; a view-only keypair has it
// cleared and cannot sign (spec.md §3 "KeyPair").
type KeyPair struct {
	SpendSecret *Scalar // nil for view-only keypairs
	SpendPublic *Point
	ViewSecret  *Scalar
	ViewPublic  *Point
}

// IsViewOnly reports whether this keypair lacks the private spend key.
func (kp *KeyPair) IsViewOnly() bool {
	return kp.SpendSecret == nil
}

// Checksum is Keccak-256(X‖A). The wallet file does not store it, and
// LoadWallet does not compare it against the loaded keys.
func (kp *KeyPair) Checksum() [32]byte {
	return Keccak256(PointBytes(kp.SpendPublic)[:], PointBytes(kp.ViewPublic)[:])
}

// DeriveKeys builds a full keypair from seed entropy: the spend secret
// is the entropy itself reduced mod the group order, and the view
// secret is the scalar reduction of Keccak-256 of the spend secret
// (spec.md §3 "KeyPair").
func DeriveKeys(seed Seed) *KeyPair {
	spendSecret := ScalarFromBytesModOrder(seed.Entropy)
	spendSecretBytes := [32]byte(spendSecret.Bytes())
	viewSecret := ScalarFromBytesModOrder(Keccak256(spendSecretBytes[:]))

	return &KeyPair{
		SpendSecret: spendSecret,
		SpendPublic: BasepointMul(spendSecret),
		ViewSecret:  viewSecret,
		ViewPublic:  BasepointMul(viewSecret),
	}
}

// NewViewOnlyKeyPair builds a keypair that can scan and recognize
// outputs but cannot sign, from a known public spend key and private
// view key (as exported by a full wallet for watch-only use).
func NewViewOnlyKeyPair(spendPublic *Point, viewSecret *Scalar) *KeyPair {
	return &KeyPair{
		SpendSecret: nil,
		SpendPublic: spendPublic,
		ViewSecret:  viewSecret,
		ViewPublic:  BasepointMul(viewSecret),
	}
}

// subaddressOffset computes m = H("SubAddr\0" ‖ a ‖ account ‖ address)
// reduced to a scalar, per spec.md §3.
func subaddressOffset(viewSecret *Scalar, idx SubaddressIndex) *Scalar {
	viewBytes := [32]byte(viewSecret.Bytes())
	data := append(append([]byte{}, domainSubAddr...), viewBytes[:]...)
	data = append(data, leUint32(idx.Account)...)
	data = append(data, leUint32(idx.Address)...)
	return ScalarFromBytesModOrder(Keccak256(data))
}

// subaddressSpendPublic returns the subaddress spend point X + mG for
// a non-primary index, or X unchanged for the primary index.
func subaddressSpendPublic(kp *KeyPair, idx SubaddressIndex) (*Point, *Scalar) {
	if idx.IsPrimary() {
		return kp.SpendPublic, nil
	}
	m := subaddressOffset(kp.ViewSecret, idx)
	mG := BasepointMul(m)
	spend := edwardsAdd(kp.SpendPublic, mG)
	return spend, m
}

// edwardsAdd adds two curve points.
func edwardsAdd(a, b *Point) *Point {
	return edwards25519.NewIdentityPoint().Add(a, b)
}

// PrimaryAddress returns the wallet's primary (account 0, address 0)
// legacy address.
func (kp *KeyPair) PrimaryAddress(network Network) *MoneroAddress {
	return &MoneroAddress{
		Network: network,
		Type:    AddressLegacy,
		Spend:   kp.SpendPublic,
		View:    kp.ViewPublic,
	}
}

// Subaddress derives the address for (account, address). The primary
// index (0,0) returns the legacy address instead of a Subaddress-typed
// one, matching the canonical CryptoNote convention.
func (kp *KeyPair) Subaddress(idx SubaddressIndex, network Network) (*MoneroAddress, error) {
	if idx.IsPrimary() {
		return kp.PrimaryAddress(network), nil
	}
	spend, m := subaddressSpendPublic(kp, idx)
	if m == nil {
		return nil, fmt.Errorf("%w: subaddress offset missing for non-primary index", ErrInvalidSubaddressIndex)
	}
	view := edwardsScalarMul(kp.ViewSecret, spend)
	return &MoneroAddress{
		Network: network,
		Type:    AddressSubaddress,
		Spend:   spend,
		View:    view,
	}, nil
}

// edwardsScalarMul returns s·p.
func edwardsScalarMul(s *Scalar, p *Point) *Point {
	return edwards25519.NewIdentityPoint().ScalarMult(s, p)
}
