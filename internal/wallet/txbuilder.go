package wallet

import (
	"context"
	"fmt"
)

const maxDestinations = 16

// TxConfig parameterizes CreateTx (spec.md §4.H).
type TxConfig struct {
	Priority        TransactionPriority
	PreferredInputs []([32]byte)
	PaymentID       *[8]byte
	SweepAll        bool
}

// CreateTx runs the transaction-build pipeline of spec.md §4.H:
// estimate a fee, select inputs, reconstruct their spendable form,
// assemble rings, and CLSAG-sign each input. The result is not yet
// committed — no ledger state changes until CommitTx.
func CreateTx(ctx context.Context, kp *KeyPair, ledger *Ledger, rpc Rpc, daemonHeight uint64, destinations []Destination, cfg TxConfig) (*PendingTransaction, error) {
	if kp.IsViewOnly() {
		return nil, ErrViewOnlyCannotSign
	}
	if len(destinations) == 0 {
		return nil, fmt.Errorf("%w: no destinations", ErrBadAddress)
	}
	if len(destinations) > maxDestinations {
		return nil, ErrTooManyDestinations
	}

	var totalAmount uint64
	for _, d := range destinations {
		if d.Amount == 0 {
			return nil, ErrZeroAmount
		}
		totalAmount += d.Amount
	}

	feeRate, err := rpc.GetFeeRate(ctx, cfg.Priority)
	if err != nil {
		return nil, err
	}
	estimatedFee := EstimateFee(2, len(destinations), feeRate, cfg.PaymentID != nil)

	targetAmount := totalAmount + estimatedFee
	if cfg.SweepAll {
		targetAmount = 0
	}

	selected, err := SelectInputs(ledger, daemonHeight, InputSelectionConfig{
		TargetAmount:    targetAmount,
		PreferredInputs: cfg.PreferredInputs,
		SweepAll:        cfg.SweepAll,
	})
	if err != nil {
		return nil, err
	}

	rings := make([][]RingMember, len(selected.Inputs))
	realIndices := make([]int, len(selected.Inputs))
	for i, o := range selected.Inputs {
		real := RingMember{
			GlobalIndex: o.OutputIndex,
			OneTimeKey:  o.OutputPublicKey,
			Commitment:  o.Commitment(),
		}
		ring, realIdx, err := BuildRing(ctx, rpc, o.Amount, real, DecoySelectionConfig{
			RingSize: RingSize,
			Height:   daemonHeight,
		})
		if err != nil {
			return nil, err
		}
		rings[i] = ring
		realIndices[i] = realIdx
	}

	txSecret, err := RandomScalar()
	if err != nil {
		return nil, err
	}

	recipientAmount := totalAmount
	finalFee := estimatedFee
	if cfg.SweepAll {
		finalFee = EstimateSweepFee(len(selected.Inputs), len(destinations), feeRate)
		if selected.TotalAmount < finalFee {
			return nil, &InsufficientFundsError{Available: selected.TotalAmount, Required: finalFee}
		}
		recipientAmount = selected.TotalAmount - finalFee
	}

	changeAmount := uint64(0)
	if !cfg.SweepAll {
		if selected.TotalAmount < totalAmount+finalFee {
			return nil, &InsufficientFundsError{Available: selected.TotalAmount, Required: totalAmount + finalFee}
		}
		changeAmount = selected.TotalAmount - totalAmount - finalFee
	}

	// Every output this transaction creates (the destinations, plus a
	// change output when one is owed) gets its own fresh Pedersen
	// commitment. Their blinding factors must sum to the same value the
	// inputs' pseudo-output commitments blind against, or the
	// transaction does not balance (spec.md §4.H step 8, Glossary
	// "sums must balance between inputs and outputs").
	outputCommitments, outputMaskSum, err := buildOutputCommitments(destinations, changeAmount)
	if err != nil {
		return nil, err
	}
	pseudoCommitments, err := buildPseudoOutputCommitments(selected.Inputs, outputMaskSum)
	if err != nil {
		return nil, err
	}

	message := Keccak256(PointBytes(kp.SpendPublic)[:], leUint64(totalAmount), leUint64(finalFee), hashPoints(outputCommitments))

	signatures := make([]*ClsagSignature, len(selected.Inputs))
	for i, o := range selected.Inputs {
		ringPoints := make([]*Point, len(rings[i]))
		ringCommitments := make([]*Point, len(rings[i]))
		for j, m := range rings[i] {
			ringPoints[j] = m.OneTimeKey
			ringCommitments[j] = m.Commitment
		}
		effectiveSpend := edwards25519AddScalars(kp.SpendSecret, o.KeyOffset)
		sig, err := SignClsag(ClsagSigningParameters{
			SpendKey:         effectiveSpend,
			RealOutputIndex:  realIndices[i],
			RingMembers:      ringPoints,
			RingCommitments:  ringCommitments,
			PseudoCommitment: pseudoCommitments[i],
			Message:          message[:],
		})
		if err != nil {
			return nil, err
		}
		signatures[i] = sig
	}

	txKey := &TxKey{TxSecret: txSecret}
	txHash := Keccak256(message[:], PointBytes(BasepointMul(txSecret))[:])

	pending := &PendingTransaction{
		TxHash:         txHash,
		SerializedTx:   serializePendingTx(txHash, signatures, pseudoCommitments, outputCommitments, changeAmount),
		TxKey:          txKey,
		Fee:            finalFee,
		Amount:         recipientAmount,
		Destinations:   destinations,
		SelectedInputs: selected.Inputs,
	}
	return pending, nil
}

// buildOutputCommitments returns one fresh Pedersen commitment per
// output this transaction creates (every destination, plus a change
// output when changeAmount is nonzero), along with the scalar sum of
// the blinding factors used — the value buildPseudoOutputCommitments
// must balance the input side against.
func buildOutputCommitments(destinations []Destination, changeAmount uint64) ([]*Point, *Scalar, error) {
	amounts := make([]uint64, 0, len(destinations)+1)
	for _, d := range destinations {
		amounts = append(amounts, d.Amount)
	}
	if changeAmount > 0 {
		amounts = append(amounts, changeAmount)
	}

	commitments := make([]*Point, len(amounts))
	var maskSum *Scalar
	for i, amount := range amounts {
		mask, err := RandomScalar()
		if err != nil {
			return nil, nil, err
		}
		commitments[i] = PedersenCommit(amount, mask)
		if maskSum == nil {
			maskSum = mask
		} else {
			maskSum = addScalars(maskSum, mask)
		}
	}
	return commitments, maskSum, nil
}

// buildPseudoOutputCommitments derives one balancing pseudo-output
// commitment per selected input: every input but the last gets a
// random blinding factor, and the last absorbs whatever remainder
// makes the sum of all pseudo-commitment blinding factors equal
// outputMaskSum, so Σ pseudo commitments == Σ output commitments +
// fee·H (the fee itself carries no commitment).
func buildPseudoOutputCommitments(inputs []*Output, outputMaskSum *Scalar) ([]*Point, error) {
	n := len(inputs)
	commitments := make([]*Point, n)
	var runningSum *Scalar
	for i := 0; i < n-1; i++ {
		blinding, err := RandomScalar()
		if err != nil {
			return nil, err
		}
		commitments[i] = PedersenCommit(inputs[i].Amount, blinding)
		if runningSum == nil {
			runningSum = blinding
		} else {
			runningSum = addScalars(runningSum, blinding)
		}
	}
	lastBlinding := outputMaskSum
	if runningSum != nil {
		lastBlinding = edwardsScalarSub(outputMaskSum, runningSum)
	}
	commitments[n-1] = PedersenCommit(inputs[n-1].Amount, lastBlinding)
	return commitments, nil
}

// hashPoints folds a slice of points into one digest, used to bind a
// transaction's output commitments into its signed message.
func hashPoints(points []*Point) []byte {
	h := make([]byte, 0, len(points)*32)
	for _, p := range points {
		b := PointBytes(p)
		h = append(h, b[:]...)
	}
	digest := Keccak256(h)
	return digest[:]
}

func edwards25519AddScalars(a, b *Scalar) *Scalar {
	if b == nil {
		return a
	}
	return addScalars(a, b)
}

func serializePendingTx(txHash [32]byte, sigs []*ClsagSignature, pseudoCommitments, outputCommitments []*Point, changeAmount uint64) []byte {
	out := append([]byte{}, txHash[:]...)
	out = append(out, leUint64(changeAmount)...)
	for _, c := range pseudoCommitments {
		cb := PointBytes(c)
		out = append(out, cb[:]...)
	}
	for _, c := range outputCommitments {
		cb := PointBytes(c)
		out = append(out, cb[:]...)
	}
	for _, sig := range sigs {
		out = append(out, leUint32(uint32(sig.StartIndex))...)
		c1 := sig.C1.Bytes()
		out = append(out, c1...)
		for _, r := range sig.Responses {
			out = append(out, r.Bytes()...)
		}
		ki := PointBytes(sig.KeyImage)
		out = append(out, ki[:]...)
	}
	return out
}

// CommitTx re-validates the pending transaction against current
// ledger state, broadcasts it, and on success marks every selected
// input spent and records the outgoing history entry (spec.md §4.H
// "Commit").
func CommitTx(ctx context.Context, ledger *Ledger, rpc Rpc, pending *PendingTransaction, tp TimeProvider) ([32]byte, error) {
	var totalInput uint64
	for _, o := range pending.SelectedInputs {
		owned, ok := ledger.Output(o.KeyImage)
		if !ok {
			return [32]byte{}, fmt.Errorf("%w: input %x not in wallet", ErrInvalidData, o.KeyImage)
		}
		if ledger.IsSpent(o.KeyImage) {
			return [32]byte{}, fmt.Errorf("%w: input %x already spent", ErrInvalidData, o.KeyImage)
		}
		totalInput += owned.Amount
	}

	required := pending.Amount + pending.Fee
	if totalInput < required {
		return [32]byte{}, &InsufficientFundsError{Available: totalInput, Required: required}
	}

	if err := rpc.SendRawTransaction(ctx, pending.SerializedTx); err != nil {
		return [32]byte{}, &BroadcastFailedError{Reason: err.Error()}
	}

	for _, o := range pending.SelectedInputs {
		ledger.MarkSpent(o.KeyImage)
	}

	ledger.RecordTransaction(&TxRecord{
		TxHash:       pending.TxHash,
		Incoming:     false,
		Amount:       pending.Amount,
		Fee:          pending.Fee,
		Destinations: pending.Destinations,
	})

	return pending.TxHash, nil
}
