package wallet

import "math"

// FeeRate is a daemon-quoted fee schedule: a per-weight-unit price and
// a rounding mask the final fee must be a multiple of (spec.md §4.G).
type FeeRate struct {
	PerWeight uint64
	Mask      uint64
}

// CalculateFee applies the rate to a weight, rounding up to the
// nearest multiple of Mask.
func (r FeeRate) CalculateFee(weight int) uint64 {
	fee := r.PerWeight * uint64(weight)
	if r.Mask <= 1 {
		return fee
	}
	remainder := fee % r.Mask
	if remainder == 0 {
		return fee
	}
	return fee + (r.Mask - remainder)
}

// WeightEstimator approximates the consensus serializer's transaction
// weight for fee calculation purposes (spec.md §4.G).
type WeightEstimator struct {
	RingSize            int
	NumInputs           int
	NumOutputs          int
	HasPaymentID        bool
	UseBulletproofsPlus bool
}

// NewWeightEstimator builds an estimator defaulted to the fixed ring
// size and bulletproofs+ range proofs.
func NewWeightEstimator(numInputs, numOutputs int) WeightEstimator {
	return WeightEstimator{
		RingSize:            RingSize,
		NumInputs:           numInputs,
		NumOutputs:          numOutputs,
		UseBulletproofsPlus: true,
	}
}

// EstimateWeight computes the approximate serialized weight in bytes.
func (w WeightEstimator) EstimateWeight() int {
	const baseWeight = 90
	const avgOffsetBytes = 5

	perInputWeight := 32 + w.RingSize*avgOffsetBytes + 200
	inputWeight := w.NumInputs * perInputWeight

	outputWeight := w.NumOutputs * 65

	extraWeight := 33
	if w.HasPaymentID {
		extraWeight += 33
	}

	var rangeProofWeight int
	if w.NumOutputs > 0 {
		logOutputs := int(math.Ceil(math.Log2(float64(w.NumOutputs))))
		if w.UseBulletproofsPlus {
			rangeProofWeight = 100 + w.NumOutputs*128 + logOutputs*32
		} else {
			rangeProofWeight = 150 + w.NumOutputs*160 + logOutputs*64
		}
	}

	total := baseWeight + inputWeight + outputWeight + extraWeight + rangeProofWeight

	var clawback int
	if w.UseBulletproofsPlus {
		clawback = saturatingSub(w.NumOutputs*16, 128)
	} else {
		clawback = saturatingSub(w.NumOutputs*32, 256)
	}

	return total + clawback
}

func saturatingSub(a, b int) int {
	if a < b {
		return 0
	}
	return a - b
}

// EstimateSweepWeight is EstimateWeight for a sweep transaction, where
// NumOutputs is the destination count with no implicit change output.
func EstimateSweepWeight(numInputs, numDestinations int) int {
	return NewWeightEstimator(numInputs, numDestinations).EstimateWeight()
}

// EstimateFee estimates the fee for a transaction spending numInputs
// and paying numDestinations recipients plus one change output.
func EstimateFee(numInputs, numDestinations int, rate FeeRate, hasPaymentID bool) uint64 {
	estimator := NewWeightEstimator(numInputs, numDestinations+1)
	estimator.HasPaymentID = hasPaymentID
	return rate.CalculateFee(estimator.EstimateWeight())
}

// EstimateSweepFee estimates the fee for a sweep transaction, which
// has no implicit change output.
func EstimateSweepFee(numInputs, numDestinations int, rate FeeRate) uint64 {
	return rate.CalculateFee(EstimateSweepWeight(numInputs, numDestinations))
}
