package wallet

import (
	"context"
	"sync"
)

// fakeRpc is a minimal in-memory stand-in for a daemon's RPC surface,
// used by tests that exercise sync, fee estimation, decoy selection,
// and transaction broadcast without a network dependency.
type fakeRpc struct {
	mu sync.Mutex

	height    uint64
	blockHash map[uint64][32]byte
	blocks    map[uint64]RawBlock
	extras    map[uint64]map[[32]byte]TxExtra

	feeRate FeeRate

	spentKeyImages map[[32]byte]bool

	outputCounts map[uint64]uint64
	decoyPool    map[uint64][]RingMember

	sendErr    error
	broadcasts [][]byte
}

func newFakeRpc() *fakeRpc {
	return &fakeRpc{
		blockHash:      make(map[uint64][32]byte),
		blocks:         make(map[uint64]RawBlock),
		extras:         make(map[uint64]map[[32]byte]TxExtra),
		feeRate:        FeeRate{PerWeight: 1, Mask: 1},
		spentKeyImages: make(map[[32]byte]bool),
		outputCounts:   make(map[uint64]uint64),
		decoyPool:      make(map[uint64][]RingMember),
	}
}

func (f *fakeRpc) GetHeight(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.height, nil
}

func (f *fakeRpc) GetBlockHash(ctx context.Context, height uint64) ([32]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.blockHash[height], nil
}

func (f *fakeRpc) GetBlock(ctx context.Context, height uint64) (RawBlock, map[[32]byte]TxExtra, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	block, ok := f.blocks[height]
	if !ok {
		block = RawBlock{Height: height}
	}
	extras, ok := f.extras[height]
	if !ok {
		extras = map[[32]byte]TxExtra{block.MinerTx.TxHash: {}}
	}
	return block, extras, nil
}

func (f *fakeRpc) GetFeeRate(ctx context.Context, priority TransactionPriority) (FeeRate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.feeRate, nil
}

func (f *fakeRpc) IsKeyImageSpent(ctx context.Context, keyImage [32]byte) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.spentKeyImages[keyImage], nil
}

func (f *fakeRpc) SendRawTransaction(ctx context.Context, raw []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.broadcasts = append(f.broadcasts, raw)
	return nil
}

func (f *fakeRpc) OutputCount(ctx context.Context, amount uint64) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.outputCounts[amount], nil
}

func (f *fakeRpc) FetchOutputs(ctx context.Context, amount uint64, globalIndices []uint64) ([]RingMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pool := f.decoyPool[amount]
	out := make([]RingMember, 0, len(globalIndices))
	for _, idx := range globalIndices {
		for _, m := range pool {
			if m.GlobalIndex == idx {
				out = append(out, m)
				break
			}
		}
	}
	return out, nil
}

// fillDecoyPool populates a fake deep output population for amount,
// large enough that BuildRing's excluded-index sampling never starves.
func (f *fakeRpc) fillDecoyPool(amount uint64, count int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outputCounts[amount] = uint64(count)
	pool := make([]RingMember, 0, count)
	for i := 0; i < count; i++ {
		scalar := ScalarFromBytesModOrder(Keccak256(leUint64(amount), leUint32(uint32(i))))
		pool = append(pool, RingMember{
			GlobalIndex: uint64(i),
			OneTimeKey:  BasepointMul(scalar),
			Commitment:  BasepointMul(edwardsScalarSub(scalar, scalar)),
		})
	}
	f.decoyPool[amount] = pool
}
