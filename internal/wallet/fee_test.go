package wallet

import "testing"

func TestFeeRateCalculateFeeRoundsUpToMask(t *testing.T) {
	rate := FeeRate{PerWeight: 10, Mask: 1000}
	fee := rate.CalculateFee(101) // raw fee = 1010
	if fee != 2000 {
		t.Errorf("CalculateFee(101) = %d, want 2000", fee)
	}
}

func TestFeeRateCalculateFeeExactMultiple(t *testing.T) {
	rate := FeeRate{PerWeight: 10, Mask: 1000}
	fee := rate.CalculateFee(100) // raw fee = 1000, already a multiple
	if fee != 1000 {
		t.Errorf("CalculateFee(100) = %d, want 1000", fee)
	}
}

func TestFeeRateCalculateFeeNoMask(t *testing.T) {
	rate := FeeRate{PerWeight: 10, Mask: 0}
	if fee := rate.CalculateFee(7); fee != 70 {
		t.Errorf("CalculateFee with no mask = %d, want 70", fee)
	}
}

func TestWeightEstimatorGrowsWithInputsAndOutputs(t *testing.T) {
	small := NewWeightEstimator(1, 2).EstimateWeight()
	large := NewWeightEstimator(4, 2).EstimateWeight()
	if large <= small {
		t.Errorf("weight should increase with input count: small=%d large=%d", small, large)
	}

	fewOutputs := NewWeightEstimator(1, 2).EstimateWeight()
	manyOutputs := NewWeightEstimator(1, 8).EstimateWeight()
	if manyOutputs <= fewOutputs {
		t.Errorf("weight should increase with output count: few=%d many=%d", fewOutputs, manyOutputs)
	}
}

func TestWeightEstimatorPaymentIDAddsWeight(t *testing.T) {
	without := NewWeightEstimator(1, 2)
	with := NewWeightEstimator(1, 2)
	with.HasPaymentID = true

	if with.EstimateWeight() <= without.EstimateWeight() {
		t.Errorf("a payment ID should add weight")
	}
}

func TestWeightEstimatorBulletproofsPlusIsLighter(t *testing.T) {
	plus := NewWeightEstimator(1, 4)
	legacy := NewWeightEstimator(1, 4)
	legacy.UseBulletproofsPlus = false

	if plus.EstimateWeight() >= legacy.EstimateWeight() {
		t.Errorf("bulletproofs+ should produce a lighter range proof than the legacy scheme")
	}
}

func TestSaturatingSub(t *testing.T) {
	if got := saturatingSub(5, 10); got != 0 {
		t.Errorf("saturatingSub(5, 10) = %d, want 0", got)
	}
	if got := saturatingSub(10, 5); got != 5 {
		t.Errorf("saturatingSub(10, 5) = %d, want 5", got)
	}
}

func TestEstimateFeeIncludesImplicitChangeOutput(t *testing.T) {
	rate := FeeRate{PerWeight: 1, Mask: 1}
	withChange := EstimateFee(1, 1, rate, false)
	sweepNoChange := EstimateSweepFee(1, 1, rate)
	if withChange <= sweepNoChange {
		t.Errorf("a regular send's implicit change output should cost more than a sweep with the same destination count: send=%d sweep=%d", withChange, sweepNoChange)
	}
}

func TestEstimateSweepWeightMatchesManualEstimator(t *testing.T) {
	manual := NewWeightEstimator(2, 3).EstimateWeight()
	sweep := EstimateSweepWeight(2, 3)
	if manual != sweep {
		t.Errorf("EstimateSweepWeight = %d, want %d", sweep, manual)
	}
}

func TestTransactionPriorityToFeePriorityCollapse(t *testing.T) {
	cases := []struct {
		priority TransactionPriority
		want     FeePriority
	}{
		{PriorityUnimportant, FeePriorityUnimportant},
		{PriorityLow, FeePriorityNormal},
		{PriorityDefault, FeePriorityNormal},
		{PriorityMedium, FeePriorityNormal},
		{PriorityHigh, FeePriorityElevated},
	}
	for _, c := range cases {
		if got := c.priority.ToFeePriority(); got != c.want {
			t.Errorf("priority %v ToFeePriority() = %v, want %v", c.priority, got, c.want)
		}
	}
}
