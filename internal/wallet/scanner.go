package wallet

import (
	"fmt"

	"filippo.io/edwards25519"
)

var (
	domainAmountMask  = []byte("amount")
	domainPaymentMask = []byte("payment_id")
)

// TxExtra carries the fields of a transaction's extra blob the scanner
// needs: the main tx public key, and one additional public key per
// output for transactions using per-output derivations.
type TxExtra struct {
	TxPublicKey          *Point
	AdditionalPublicKeys []*Point
}

// RawOutput is a single output of a transaction as seen on the wire,
// before ownership has been determined.
type RawOutput struct {
	OutputPublicKey    *Point
	MaskedAmount       [8]byte
	EncryptedPaymentID *[8]byte // present only on the 0th output of txs carrying one
}

// RawTransaction is the scanner's unit of work: one transaction's
// extra data and its outputs.
type RawTransaction struct {
	TxHash  [32]byte
	Outputs []RawOutput
}

// RawBlock groups a miner transaction and N ordinary transactions at a
// given height, the scanner's contract unit (spec.md §4.C).
type RawBlock struct {
	Height   uint64
	MinerTx  RawTransaction
	Txs      []RawTransaction
}

// registeredSpendKey is one entry of a Scanner's subaddress table: the
// subaddress spend point and, for non-primary indices, the offset m
// used to recover the full key_offset.
type registeredSpendKey struct {
	index  SubaddressIndex
	offset *Scalar // nil for the primary index
}

// Scanner performs pure per-block output recognition against a
// wallet's view pair and a registered set of subaddress spend keys.
// It holds no chain state; reorg handling belongs to the ledger.
type Scanner struct {
	keys      *KeyPair
	registry  map[[32]byte]registeredSpendKey
}

// NewScanner builds a scanner for kp, implicitly registering the
// primary (0,0) index.
func NewScanner(kp *KeyPair) *Scanner {
	s := &Scanner{
		keys:     kp,
		registry: make(map[[32]byte]registeredSpendKey),
	}
	s.RegisterSubaddress(SubaddressIndex{0, 0})
	return s
}

// RegisterSubaddress adds idx to the set of spend keys this scanner
// recognizes as belonging to the wallet.
func (s *Scanner) RegisterSubaddress(idx SubaddressIndex) {
	spend, offset := subaddressSpendPublic(s.keys, idx)
	s.registry[PointBytes(spend)] = registeredSpendKey{index: idx, offset: offset}
}

// RegisterSubaddressRange registers account, 0..=n inclusive — the
// lookahead policy callers use to recognize not-yet-seen subaddresses
// (spec.md §4.C "Subaddress lookahead").
func (s *Scanner) RegisterSubaddressRange(account uint32, n uint32) {
	for addr := uint32(0); addr <= n; addr++ {
		s.RegisterSubaddress(SubaddressIndex{Account: account, Address: addr})
	}
}

// ecdhDerivation computes D = 8·(a·R), the shared secret used to mask
// amounts, derive one-time key offsets, and encrypt payment ids.
func ecdhDerivation(viewSecret *Scalar, r *Point) *Point {
	aR := edwards25519.NewIdentityPoint().ScalarMult(viewSecret, r)
	eight := edwards25519.NewScalar()
	// SetCanonicalBytes never fails for a value this small.
	_, _ = eight.SetCanonicalBytes([32]byte{8}[:])
	return edwards25519.NewIdentityPoint().ScalarMult(eight, aR)
}

func outputOffsetScalar(d *Point, index int) *Scalar {
	return ScalarFromBytesModOrder(Keccak256(PointBytes(d)[:], leUint64(uint64(index))))
}

// outputMaskScalar recovers the Pedersen commitment blinding factor the
// sender derived for this output, the same way decodeAmount recovers
// the masked amount: hashing the ECDH shared secret under a distinct
// domain separator.
func outputMaskScalar(d *Point, index int) *Scalar {
	return ScalarFromBytesModOrder(Keccak256(domainCommitMask, PointBytes(d)[:], leUint64(uint64(index))))
}

func decodeAmount(d *Point, index int, masked [8]byte) uint64 {
	keystream := Keccak256(domainAmountMask, PointBytes(d)[:], leUint64(uint64(index)))
	var amountBytes [8]byte
	for i := 0; i < 8; i++ {
		amountBytes[i] = masked[i] ^ keystream[i]
	}
	var amount uint64
	for i := 0; i < 8; i++ {
		amount |= uint64(amountBytes[i]) << (8 * uint(i))
	}
	return amount
}

func decryptPaymentID(d *Point, enc [8]byte) [8]byte {
	keystream := Keccak256(domainPaymentMask, PointBytes(d)[:])
	var out [8]byte
	for i := 0; i < 8; i++ {
		out[i] = enc[i] ^ keystream[i]
	}
	return out
}

// viewOnlyKeyImagePlaceholder returns the deterministic placeholder
// used in place of a real key image when the wallet cannot sign
// (spec.md §4.C step 8).
func viewOnlyKeyImagePlaceholder(txHash [32]byte, outputIndex int) [32]byte {
	return Keccak256(txHash[:], leUint32(uint32(outputIndex)))
}

// ScanTransaction recognizes every output of tx that belongs to the
// wallet, given the tx's extra key material. It is pure: it mutates no
// shared state and performs no I/O.
func (s *Scanner) ScanTransaction(tx RawTransaction, extra TxExtra, height uint64) ([]*Output, error) {
	var owned []*Output

	for i, raw := range tx.Outputs {
		r := extra.TxPublicKey
		if i < len(extra.AdditionalPublicKeys) && extra.AdditionalPublicKeys[i] != nil {
			r = extra.AdditionalPublicKeys[i]
		}
		if r == nil {
			continue
		}

		d := ecdhDerivation(s.keys.ViewSecret, r)
		k := outputOffsetScalar(d, i)

		kG := BasepointMul(k)
		candidateSpend := edwards25519.NewIdentityPoint().Subtract(raw.OutputPublicKey, kG)

		entry, ok := s.registry[PointBytes(candidateSpend)]
		if !ok {
			continue
		}

		keyOffset := k
		if entry.offset != nil {
			keyOffset = edwards25519.NewScalar().Add(k, entry.offset)
		}

		amount := decodeAmount(d, i, raw.MaskedAmount)

		var paymentID *[8]byte
		if raw.EncryptedPaymentID != nil {
			pid := decryptPaymentID(d, *raw.EncryptedPaymentID)
			paymentID = &pid
		}

		var keyImage [32]byte
		if s.keys.IsViewOnly() {
			keyImage = viewOnlyKeyImagePlaceholder(tx.TxHash, i)
		} else {
			effectiveSpend := edwards25519.NewScalar().Add(s.keys.SpendSecret, keyOffset)
			hp := HashToPoint(PointBytes(raw.OutputPublicKey)[:])
			keyImage = PointBytes(edwards25519.NewIdentityPoint().ScalarMult(effectiveSpend, hp))
		}

		out := &Output{
			TxHash:          tx.TxHash,
			OutputIndex:     uint64(i),
			Amount:          amount,
			KeyImage:        keyImage,
			Subaddress:      entry.index,
			Height:          height,
			KeyOffset:       keyOffset,
			OutputPublicKey: raw.OutputPublicKey,
			PaymentID:       paymentID,
			Mask:            outputMaskScalar(d, i),
		}
		owned = append(owned, out)
	}

	return owned, nil
}

// ScanBlock scans the miner transaction and every ordinary transaction
// of a block, returning owned outputs keyed by their originating
// transaction hash. All-or-nothing: an error aborts without returning
// partial results (spec.md §4.C "State machine").
func (s *Scanner) ScanBlock(block RawBlock, extras map[[32]byte]TxExtra) (map[[32]byte][]*Output, error) {
	result := make(map[[32]byte][]*Output)

	all := append([]RawTransaction{block.MinerTx}, block.Txs...)
	for _, tx := range all {
		extra, ok := extras[tx.TxHash]
		if !ok {
			return nil, fmt.Errorf("%w: missing tx_extra for %x", ErrInvalidData, tx.TxHash)
		}
		owned, err := s.ScanTransaction(tx, extra, block.Height)
		if err != nil {
			return nil, err
		}
		if len(owned) > 0 {
			result[tx.TxHash] = owned
		}
	}
	return result, nil
}
