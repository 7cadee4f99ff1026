package wallet

// RingSize is fixed by consensus: every CLSAG signature ties a real
// input to exactly 16 members (15 decoys).
const RingSize = 16

// LockBlocks is the confirmation depth an output must clear before it
// is spendable (spec.md §4.E/§8).
const LockBlocks = 10

// Output is a single owned transaction output, as recovered by the
// scanner and tracked by the ledger (spec.md §3 "Output").
type Output struct {
	TxHash           [32]byte
	OutputIndex      uint64
	Amount           uint64
	KeyImage         [32]byte
	Subaddress       SubaddressIndex
	Height           uint64
	KeyOffset        *Scalar
	OutputPublicKey  *Point
	PaymentID        *[8]byte
	Mask             *Scalar // amount commitment blinding factor, derived from the ECDH shared secret at scan time

	Unlocked bool
	Spent    bool
	Frozen   bool
}

// Commitment returns the Pedersen amount commitment the sender of o
// would have published on-chain, reconstructed from o's amount and the
// blinding factor recovered at scan time.
func (o *Output) Commitment() *Point {
	return PedersenCommit(o.Amount, o.Mask)
}

// IsAvailable reports whether o may be selected as a spend input.
func (o *Output) IsAvailable(daemonHeight uint64) bool {
	return !o.Spent && !o.Frozen && o.IsUnlocked(daemonHeight)
}

// IsUnlocked reports whether o has cleared LockBlocks confirmations at
// the given daemon height.
func (o *Output) IsUnlocked(daemonHeight uint64) bool {
	return daemonHeight >= o.Height+LockBlocks
}

// TxKey holds the per-transaction ephemeral private scalars retained
// for later payment-proof generation (spec.md §3 "TxKey"). Zeroed on
// Clear.
type TxKey struct {
	TxSecret    *Scalar
	AuxSecrets  []*Scalar
}

// Clear overwrites the held scalars so they do not linger in memory
// past their useful life.
func (k *TxKey) Clear() {
	zeroScalar(k.TxSecret)
	for _, s := range k.AuxSecrets {
		zeroScalar(s)
	}
	k.TxSecret = nil
	k.AuxSecrets = nil
}

// Destination is one output of a transaction under construction:
// amount and recipient address.
type Destination struct {
	Address *MoneroAddress
	Amount  uint64
}

// TransactionPriority selects the per-byte fee multiplier a built
// transaction targets (spec.md §4.G, §6).
type TransactionPriority int

const (
	PriorityDefault TransactionPriority = iota
	PriorityLow
	PriorityMedium
	PriorityHigh
	PriorityUnimportant
)

// FeePriority is the coarser, daemon-facing tier a TransactionPriority
// collapses to: the reference daemon only distinguishes three fee
// classes, not five.
type FeePriority int

const (
	FeePriorityUnimportant FeePriority = iota
	FeePriorityNormal
	FeePriorityElevated
)

// ToFeePriority collapses the five wallet-facing priorities onto the
// daemon's three fee tiers: Low/Default/Medium all ask for the normal
// rate, Unimportant and High are the floor and ceiling.
func (p TransactionPriority) ToFeePriority() FeePriority {
	switch p {
	case PriorityUnimportant:
		return FeePriorityUnimportant
	case PriorityHigh:
		return FeePriorityElevated
	default:
		return FeePriorityNormal
	}
}

// TxRecord is a wallet-relevant transaction kept for history/display
// purposes, distinct from the per-output ledger entries it is built
// from. CommitTx records outgoing ones at broadcast time, before they
// are confirmed, with Height left at 0.
type TxRecord struct {
	TxHash      [32]byte
	Height      uint64
	Incoming    bool
	Amount      uint64
	Fee         uint64
	Destinations []Destination
	PaymentID   *[8]byte
}

// PendingTransaction is the output of the transaction-build pipeline:
// signed but not yet submitted or marked spent (spec.md §4.H).
type PendingTransaction struct {
	TxHash          [32]byte
	SerializedTx    []byte
	TxKey           *TxKey
	Fee             uint64
	Amount          uint64
	Destinations    []Destination
	SelectedInputs  []*Output
}
