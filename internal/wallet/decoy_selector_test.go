package wallet

import (
	"context"
	"testing"
)

func TestBuildRingProducesFixedRingSize(t *testing.T) {
	rpc := newFakeRpc()
	rpc.fillDecoyPool(1000, 500)

	real := RingMember{GlobalIndex: 999, OneTimeKey: BasepointMul(mustScalar(t, 1)), Commitment: BasepointMul(mustScalar(t, 2))}

	ring, realIndex, err := BuildRing(context.Background(), rpc, 1000, real, DecoySelectionConfig{RingSize: RingSize, Height: 100})
	if err != nil {
		t.Fatalf("BuildRing failed: %v", err)
	}
	if len(ring) != RingSize {
		t.Fatalf("ring size = %d, want %d", len(ring), RingSize)
	}
	if realIndex < 0 || realIndex >= RingSize {
		t.Fatalf("realIndex %d out of bounds", realIndex)
	}
	if PointBytes(ring[realIndex].OneTimeKey) != PointBytes(real.OneTimeKey) {
		t.Errorf("real output not placed at the reported real index")
	}

	seen := make(map[uint64]bool)
	for _, m := range ring {
		if seen[m.GlobalIndex] {
			t.Errorf("duplicate global index %d in ring", m.GlobalIndex)
		}
		seen[m.GlobalIndex] = true
	}
}

func TestBuildRingRejectsWrongRingSize(t *testing.T) {
	rpc := newFakeRpc()
	rpc.fillDecoyPool(1000, 500)
	real := RingMember{GlobalIndex: 1, OneTimeKey: BasepointMul(mustScalar(t, 1))}

	if _, _, err := BuildRing(context.Background(), rpc, 1000, real, DecoySelectionConfig{RingSize: 5, Height: 100}); err == nil {
		t.Errorf("expected error for a ring size other than the fixed consensus size")
	}
}

func TestBuildRingDeterministicWithSeed(t *testing.T) {
	rpc := newFakeRpc()
	rpc.fillDecoyPool(1000, 500)
	real := RingMember{GlobalIndex: 250, OneTimeKey: BasepointMul(mustScalar(t, 1))}

	cfg := DecoySelectionConfig{RingSize: RingSize, Height: 100, Deterministic: true, Seed: 42}

	ring1, idx1, err := BuildRing(context.Background(), rpc, 1000, real, cfg)
	if err != nil {
		t.Fatalf("BuildRing failed: %v", err)
	}
	ring2, idx2, err := BuildRing(context.Background(), rpc, 1000, real, cfg)
	if err != nil {
		t.Fatalf("BuildRing failed: %v", err)
	}
	if idx1 != idx2 {
		t.Errorf("deterministic BuildRing produced different real indices: %d vs %d", idx1, idx2)
	}
	for i := range ring1 {
		if ring1[i].GlobalIndex != ring2[i].GlobalIndex {
			t.Errorf("deterministic BuildRing produced different rings at position %d", i)
		}
	}
}

func TestBuildRingFailsWithNoCandidates(t *testing.T) {
	rpc := newFakeRpc() // no decoy pool configured: OutputCount returns 0
	real := RingMember{GlobalIndex: 0, OneTimeKey: BasepointMul(mustScalar(t, 1))}

	if _, _, err := BuildRing(context.Background(), rpc, 1000, real, DecoySelectionConfig{RingSize: RingSize, Height: 100}); err == nil {
		t.Errorf("expected BuildRing to fail when the amount bucket has no candidate outputs")
	}
}

func mustScalar(t *testing.T, seed byte) *Scalar {
	t.Helper()
	return ScalarFromBytesModOrder(Keccak256([]byte{seed}))
}
