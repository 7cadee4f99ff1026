package wallet

import (
	"crypto/rand"
	"math/big"
)

// secureShuffle performs an in-place Fisher-Yates shuffle using the OS
// CSPRNG, matching the "shuffle for privacy" step of input selection
// without relying on math/rand's non-cryptographic default source.
func secureShuffle(outputs []*Output) {
	for i := len(outputs) - 1; i > 0; i-- {
		jBig, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			continue
		}
		j := int(jBig.Int64())
		outputs[i], outputs[j] = outputs[j], outputs[i]
	}
}

// InputSelectionConfig parameterizes SelectInputs (spec.md §4.E).
type InputSelectionConfig struct {
	TargetAmount     uint64
	PreferredInputs  []([32]byte)
	SweepAll         bool
}

// SelectedInputs is the result of a successful selection.
type SelectedInputs struct {
	Inputs      []*Output
	TotalAmount uint64
}

// SelectInputs chooses which owned outputs to spend against a target
// amount: preferred inputs first, then either a full sweep or a
// privacy-motivated random accumulation over the remaining available
// outputs until the target is met (spec.md §4.E).
func SelectInputs(ledger *Ledger, daemonHeight uint64, cfg InputSelectionConfig) (*SelectedInputs, error) {
	ledger.mu.RLock()
	if len(ledger.outputs) == 0 {
		ledger.mu.RUnlock()
		return nil, ErrNoOutputsAvailable
	}
	ledger.mu.RUnlock()

	var selected []*Output
	selectedKeys := make(map[[32]byte]bool)
	var total uint64

	for _, ki := range cfg.PreferredInputs {
		o, ok := ledger.Output(ki)
		if !ok {
			return nil, &PreferredInputError{Kind: PreferredInputNotFound, KeyImage: ki}
		}
		if ledger.IsSpent(ki) {
			return nil, &PreferredInputError{Kind: PreferredInputSpent, KeyImage: ki}
		}
		if ledger.IsFrozen(ki) {
			return nil, &PreferredInputError{Kind: PreferredInputFrozen, KeyImage: ki}
		}
		if !o.IsUnlocked(daemonHeight) {
			return nil, &PreferredInputError{Kind: PreferredInputLocked, KeyImage: ki}
		}
		selected = append(selected, o)
		selectedKeys[ki] = true
		total += o.Amount
	}

	if cfg.SweepAll {
		for _, o := range ledger.AvailableOutputs(daemonHeight) {
			if selectedKeys[o.KeyImage] {
				continue
			}
			selected = append(selected, o)
			total += o.Amount
		}
		if len(selected) == 0 {
			return nil, ErrNoOutputsAvailable
		}
		return &SelectedInputs{Inputs: selected, TotalAmount: total}, nil
	}

	if total >= cfg.TargetAmount {
		return &SelectedInputs{Inputs: selected, TotalAmount: total}, nil
	}

	available := ledger.AvailableOutputs(daemonHeight)
	var remaining []*Output
	for _, o := range available {
		if !selectedKeys[o.KeyImage] {
			remaining = append(remaining, o)
		}
	}

	if len(remaining) == 0 && len(selected) == 0 {
		allFrozen := true
		allLocked := true
		ledger.mu.RLock()
		for ki, o := range ledger.outputs {
			if !ledger.frozen[ki] {
				allFrozen = false
			}
			if o.IsUnlocked(daemonHeight) {
				allLocked = false
			}
		}
		ledger.mu.RUnlock()

		switch {
		case allFrozen:
			return nil, ErrAllOutputsFrozen
		case allLocked:
			return nil, ErrAllOutputsLocked
		default:
			return nil, &InsufficientFundsError{Available: total, Required: cfg.TargetAmount}
		}
	}

	secureShuffle(remaining)

	for _, o := range remaining {
		selected = append(selected, o)
		total += o.Amount
		if total >= cfg.TargetAmount {
			return &SelectedInputs{Inputs: selected, TotalAmount: total}, nil
		}
	}

	return nil, &InsufficientFundsError{Available: total, Required: cfg.TargetAmount}
}
