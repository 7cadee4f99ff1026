package wallet

import (
	"fmt"
	"sync"
)

// outputKey identifies a specific output independent of its key
// image, used to detect duplicate inserts under a colliding key image.
type outputKey struct {
	txHash      [32]byte
	outputIndex uint64
}

// Ledger tracks every output the wallet owns: the outputs themselves,
// which key images have been spent, and which have been manually
// frozen. It is the sole owner of reorg handling (spec.md §4.D).
type Ledger struct {
	mu sync.RWMutex

	outputs map[[32]byte]*Output
	spent   map[[32]byte]bool
	frozen  map[[32]byte]bool

	transactions         map[[32]byte]*TxRecord
	currentScannedHeight uint64
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		outputs:      make(map[[32]byte]*Output),
		spent:        make(map[[32]byte]bool),
		frozen:       make(map[[32]byte]bool),
		transactions: make(map[[32]byte]*TxRecord),
	}
}

// Insert records a newly scanned output. Re-inserting the same
// (tx_hash, output_index) under the same key image is a no-op.
// Insert fails with KeyImageCollision if the key image already names
// a different output tuple — this must never be silently overwritten.
func (l *Ledger) Insert(o *Output) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if existing, ok := l.outputs[o.KeyImage]; ok {
		if existing.TxHash == o.TxHash && existing.OutputIndex == o.OutputIndex {
			return nil
		}
		return fmt.Errorf("%w: key image %x already owned by tx %x:%d", ErrKeyImageCollision,
			o.KeyImage, existing.TxHash, existing.OutputIndex)
	}

	cp := *o
	l.outputs[o.KeyImage] = &cp
	return nil
}

// Balance is the sum of every owned output not marked spent.
func (l *Ledger) Balance() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var total uint64
	for ki, o := range l.outputs {
		if l.spent[ki] {
			continue
		}
		total += o.Amount
	}
	return total
}

// UnlockedBalance is the sum of owned outputs that are not spent, not
// frozen, and have cleared LockBlocks confirmations at daemonHeight.
func (l *Ledger) UnlockedBalance(daemonHeight uint64) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var total uint64
	for ki, o := range l.outputs {
		if l.spent[ki] || l.frozen[ki] {
			continue
		}
		if daemonHeight >= o.Height+LockBlocks {
			total += o.Amount
		}
	}
	return total
}

// Freeze manually excludes a key image from being selected as a
// spend input, without affecting Balance.
func (l *Ledger) Freeze(ki [32]byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.frozen[ki] = true
}

// Thaw reverses Freeze.
func (l *Ledger) Thaw(ki [32]byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.frozen, ki)
}

// MarkSpent records ki as spent.
func (l *Ledger) MarkSpent(ki [32]byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.spent[ki] = true
}

// MarkUnspent reverses MarkSpent, used when importing exported key
// images that the daemon reports as unspent.
func (l *Ledger) MarkUnspent(ki [32]byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.spent, ki)
}

// IsSpent reports whether ki is marked spent.
func (l *Ledger) IsSpent(ki [32]byte) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.spent[ki]
}

// IsFrozen reports whether ki is manually frozen.
func (l *Ledger) IsFrozen(ki [32]byte) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.frozen[ki]
}

// Output looks up an owned output by key image.
func (l *Ledger) Output(ki [32]byte) (*Output, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	o, ok := l.outputs[ki]
	return o, ok
}

// AvailableOutputs returns every owned output eligible for spending at
// daemonHeight: not spent, not frozen, unlocked.
func (l *Ledger) AvailableOutputs(daemonHeight uint64) []*Output {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []*Output
	for ki, o := range l.outputs {
		if l.spent[ki] || l.frozen[ki] {
			continue
		}
		if o.IsAvailable(daemonHeight) {
			out = append(out, o)
		}
	}
	return out
}

// RecordTransaction stores a transaction history entry.
func (l *Ledger) RecordTransaction(tx *TxRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := *tx
	l.transactions[tx.TxHash] = &cp
}

// CurrentScannedHeight is the last block height the ledger has
// committed outputs for.
func (l *Ledger) CurrentScannedHeight() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.currentScannedHeight
}

// SetCurrentScannedHeight advances the ledger's scan cursor.
func (l *Ledger) SetCurrentScannedHeight(h uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.currentScannedHeight = h
}

// HandleReorganization removes every output, spent/frozen entry, and
// transaction at or past forkHeight, and rewinds the scan cursor to
// forkHeight-1. Returns the number of outputs removed (spec.md §4.D).
func (l *Ledger) HandleReorganization(forkHeight uint64) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	var removed []([32]byte)
	for ki, o := range l.outputs {
		if o.Height >= forkHeight {
			removed = append(removed, ki)
		}
	}
	for _, ki := range removed {
		delete(l.outputs, ki)
		delete(l.spent, ki)
		delete(l.frozen, ki)
	}

	for hash, tx := range l.transactions {
		if tx.Height >= forkHeight {
			delete(l.transactions, hash)
		}
	}

	if forkHeight == 0 {
		l.currentScannedHeight = 0
	} else {
		l.currentScannedHeight = forkHeight - 1
	}

	return len(removed)
}

// DetectReorganization compares the ledger's scan cursor against a
// freshly observed daemon height, returning the fork height to rewind
// to (daemonHeight - LockBlocks) when the daemon has gone backwards.
func (l *Ledger) DetectReorganization(daemonHeight uint64) (forkHeight uint64, detected bool) {
	l.mu.RLock()
	current := l.currentScannedHeight
	l.mu.RUnlock()

	if daemonHeight < current {
		if daemonHeight < LockBlocks {
			return 0, true
		}
		return daemonHeight - LockBlocks, true
	}
	return 0, false
}
