package wallet

import "testing"

func testOutput(seed byte, amount, height uint64) *Output {
	var ki [32]byte
	ki[0] = seed
	scalar := ScalarFromBytesModOrder(Keccak256([]byte{seed}))
	return &Output{
		TxHash:          Keccak256([]byte{seed, 'h'}),
		OutputIndex:     0,
		Amount:          amount,
		KeyImage:        ki,
		Height:          height,
		KeyOffset:       scalar,
		OutputPublicKey: BasepointMul(scalar),
		Mask:            ScalarFromBytesModOrder(Keccak256([]byte{seed, 'm'})),
	}
}

func TestLedgerInsertAndBalance(t *testing.T) {
	l := NewLedger()
	o1 := testOutput(1, 1000, 100)
	o2 := testOutput(2, 2000, 110)

	if err := l.Insert(o1); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := l.Insert(o2); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if got := l.Balance(); got != 3000 {
		t.Errorf("Balance = %d, want 3000", got)
	}
}

func TestLedgerInsertIsIdempotent(t *testing.T) {
	l := NewLedger()
	o := testOutput(1, 1000, 100)

	if err := l.Insert(o); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := l.Insert(o); err != nil {
		t.Errorf("re-inserting the same output should be a no-op, got error: %v", err)
	}
	if got := l.Balance(); got != 1000 {
		t.Errorf("Balance = %d, want 1000 (no duplication)", got)
	}
}

func TestLedgerInsertRejectsKeyImageCollision(t *testing.T) {
	l := NewLedger()
	o1 := testOutput(1, 1000, 100)
	if err := l.Insert(o1); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	o2 := testOutput(1, 2000, 200)
	o2.TxHash = Keccak256([]byte{9, 9})
	if err := l.Insert(o2); err == nil {
		t.Errorf("expected key image collision error")
	}
}

func TestLedgerUnlockedBalance(t *testing.T) {
	l := NewLedger()
	o := testOutput(1, 1000, 100)
	if err := l.Insert(o); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if got := l.UnlockedBalance(100 + LockBlocks - 1); got != 0 {
		t.Errorf("UnlockedBalance before maturity = %d, want 0", got)
	}
	if got := l.UnlockedBalance(100 + LockBlocks); got != 1000 {
		t.Errorf("UnlockedBalance at maturity = %d, want 1000", got)
	}
}

func TestLedgerSpentAndFrozenExcludedFromBalance(t *testing.T) {
	l := NewLedger()
	o := testOutput(1, 1000, 100)
	if err := l.Insert(o); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	l.MarkSpent(o.KeyImage)
	if got := l.Balance(); got != 0 {
		t.Errorf("Balance after spend = %d, want 0", got)
	}
	l.MarkUnspent(o.KeyImage)
	if got := l.Balance(); got != 1000 {
		t.Errorf("Balance after un-spending = %d, want 1000", got)
	}

	l.Freeze(o.KeyImage)
	if got := l.UnlockedBalance(100 + LockBlocks); got != 0 {
		t.Errorf("UnlockedBalance while frozen = %d, want 0", got)
	}
	if got := l.Balance(); got != 1000 {
		t.Errorf("Balance should be unaffected by freezing, got %d", got)
	}
	l.Thaw(o.KeyImage)
	if got := l.UnlockedBalance(100 + LockBlocks); got != 1000 {
		t.Errorf("UnlockedBalance after thaw = %d, want 1000", got)
	}
}

func TestLedgerAvailableOutputs(t *testing.T) {
	l := NewLedger()
	mature := testOutput(1, 1000, 100)
	immature := testOutput(2, 500, 1000000)
	spent := testOutput(3, 700, 100)

	for _, o := range []*Output{mature, immature, spent} {
		if err := l.Insert(o); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
	l.MarkSpent(spent.KeyImage)

	available := l.AvailableOutputs(100 + LockBlocks)
	if len(available) != 1 {
		t.Fatalf("expected exactly 1 available output, got %d", len(available))
	}
	if available[0].KeyImage != mature.KeyImage {
		t.Errorf("wrong output returned as available")
	}
}

func TestLedgerHandleReorganization(t *testing.T) {
	l := NewLedger()
	before := testOutput(1, 1000, 50)
	after := testOutput(2, 2000, 150)

	if err := l.Insert(before); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := l.Insert(after); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	l.SetCurrentScannedHeight(200)

	removed := l.HandleReorganization(100)
	if removed != 1 {
		t.Errorf("HandleReorganization removed %d outputs, want 1", removed)
	}
	if _, ok := l.Output(after.KeyImage); ok {
		t.Errorf("output at/after fork height should have been removed")
	}
	if _, ok := l.Output(before.KeyImage); !ok {
		t.Errorf("output before fork height should remain")
	}
	if got := l.CurrentScannedHeight(); got != 99 {
		t.Errorf("CurrentScannedHeight after reorg = %d, want 99", got)
	}
}

func TestLedgerHandleReorganizationIsIdempotent(t *testing.T) {
	l := NewLedger()
	o := testOutput(1, 1000, 150)
	if err := l.Insert(o); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	l.SetCurrentScannedHeight(200)

	first := l.HandleReorganization(100)
	second := l.HandleReorganization(100)
	if first != 1 {
		t.Errorf("first HandleReorganization removed %d, want 1", first)
	}
	if second != 0 {
		t.Errorf("second HandleReorganization on an already-rewound ledger removed %d, want 0", second)
	}
}

func TestLedgerDetectReorganization(t *testing.T) {
	l := NewLedger()
	l.SetCurrentScannedHeight(1000)

	if _, detected := l.DetectReorganization(1001); detected {
		t.Errorf("should not detect a reorg when the daemon is ahead")
	}

	forkHeight, detected := l.DetectReorganization(900)
	if !detected {
		t.Fatalf("expected a reorg to be detected when the daemon height goes backwards")
	}
	if forkHeight != 900-LockBlocks {
		t.Errorf("forkHeight = %d, want %d", forkHeight, 900-LockBlocks)
	}
}

func TestLedgerRecordTransaction(t *testing.T) {
	l := NewLedger()
	hash := Keccak256([]byte("tx"))
	l.RecordTransaction(&TxRecord{TxHash: hash, Height: 10, Amount: 500})

	l.mu.RLock()
	rec, ok := l.transactions[hash]
	l.mu.RUnlock()
	if !ok {
		t.Fatalf("expected transaction to be recorded")
	}
	if rec.Amount != 500 {
		t.Errorf("recorded amount = %d, want 500", rec.Amount)
	}
}
