package wallet

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

type fakeTransport struct{}

func (fakeTransport) Post(ctx context.Context, route string, body []byte) ([]byte, error) {
	return nil, nil
}

func fakeConnect(ctx context.Context, daemonAddress string, timeout time.Duration) (Transport, error) {
	return fakeTransport{}, nil
}

func testConfig() Config {
	cfg := DefaultConfig(Mainnet)
	cfg.SubaddressLookahead = 2
	cfg.ReconnectionPolicy.HealthCheckInterval = time.Hour
	return cfg
}

func TestNewWalletFromSeedRegistersLookahead(t *testing.T) {
	var seed Seed
	copy(seed.Entropy[:], []byte("a wallet state test seed material"))

	ws := NewWalletFromSeed(seed, testConfig())
	if ws.Keys.IsViewOnly() {
		t.Errorf("NewWalletFromSeed should produce a full spending wallet")
	}
	if ws.Ledger.Balance() != 0 {
		t.Errorf("a fresh wallet should have a zero balance")
	}
}

func TestNewViewOnlyWalletCannotSign(t *testing.T) {
	full := testKeyPair(t)
	ws := NewViewOnlyWallet(full.SpendPublic, full.ViewSecret, testConfig())
	if !ws.Keys.IsViewOnly() {
		t.Errorf("NewViewOnlyWallet should produce a view-only wallet")
	}
}

func TestWalletStateSaveOpenRoundTrip(t *testing.T) {
	var seed Seed
	copy(seed.Entropy[:], []byte("a save/open round trip test seed"))
	cfg := testConfig()
	cfg.RefreshFromHeight = 123

	ws := NewWalletFromSeed(seed, cfg)
	o := testOutput(1, 5000, 200)
	if err := ws.Ledger.Insert(o); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "wallet.keys")
	if err := ws.Save(path, "pw"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	reopened, err := OpenWallet(path, "pw", testConfig())
	if err != nil {
		t.Fatalf("OpenWallet failed: %v", err)
	}
	if reopened.Config.RefreshFromHeight != 123 {
		t.Errorf("OpenWallet did not restore RefreshFromHeight, got %d", reopened.Config.RefreshFromHeight)
	}
	if reopened.Balance() != 5000 {
		t.Errorf("reopened wallet balance = %d, want 5000", reopened.Balance())
	}
}

func TestWalletStateConnectAndDisconnect(t *testing.T) {
	var seed Seed
	copy(seed.Entropy[:], []byte("a connect/disconnect test seed!!"))
	ws := NewWalletFromSeed(seed, testConfig())

	rpc := newFakeRpc()
	if err := ws.Connect(context.Background(), fakeConnect, rpc); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if !ws.IsConnected() {
		t.Errorf("expected IsConnected to be true after Connect")
	}
	if err := ws.CheckConnection(context.Background()); err != nil {
		t.Errorf("CheckConnection failed: %v", err)
	}

	ws.Disconnect()
	if ws.IsConnected() {
		t.Errorf("expected IsConnected to be false after Disconnect")
	}
	if err := ws.CheckConnection(context.Background()); err != ErrNotConnected {
		t.Errorf("expected ErrNotConnected after Disconnect, got %v", err)
	}
}

func TestWalletStateCheckConnectionBeforeConnect(t *testing.T) {
	var seed Seed
	copy(seed.Entropy[:], []byte("a never-connected wallet test!!!"))
	ws := NewWalletFromSeed(seed, testConfig())

	if err := ws.CheckConnection(context.Background()); err != ErrNotConnected {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
}

func TestWalletStateSyncToHeightRecognizesOwnedOutputs(t *testing.T) {
	var seed Seed
	copy(seed.Entropy[:], []byte("a sync to height test wallet seed"))
	ws := NewWalletFromSeed(seed, testConfig())

	rpc := newFakeRpc()
	r, err := RandomScalar()
	if err != nil {
		t.Fatalf("RandomScalar failed: %v", err)
	}
	raw := buildOwnedOutputFor(ws.Keys.SpendPublic, ws.Keys.ViewSecret, r, 0, 7000)
	tx := RawTransaction{TxHash: Keccak256([]byte("owned tx")), Outputs: []RawOutput{raw}}
	block := RawBlock{Height: 1, MinerTx: RawTransaction{TxHash: Keccak256([]byte("miner"))}, Txs: []RawTransaction{tx}}
	rpc.blocks[1] = block
	rpc.extras[1] = map[[32]byte]TxExtra{
		block.MinerTx.TxHash: {},
		tx.TxHash:             {TxPublicKey: BasepointMul(r)},
	}

	if err := ws.Connect(context.Background(), fakeConnect, rpc); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	if err := ws.SyncToHeight(context.Background(), 1); err != nil {
		t.Fatalf("SyncToHeight failed: %v", err)
	}
	if ws.Balance() != 7000 {
		t.Errorf("Balance after sync = %d, want 7000", ws.Balance())
	}
	if ws.Ledger.CurrentScannedHeight() != 1 {
		t.Errorf("CurrentScannedHeight = %d, want 1", ws.Ledger.CurrentScannedHeight())
	}
}

func TestWalletStateSendBuildsAndCommitsTransaction(t *testing.T) {
	var seed Seed
	copy(seed.Entropy[:], []byte("a send round trip test wallet!!!"))
	ws := NewWalletFromSeed(seed, testConfig())

	const amount = uint64(9_000_000)
	o := ownedOutputWithValidKeyImage(ws.Keys, 1, amount, 0)
	o.OutputIndex = 55
	if err := ws.Ledger.Insert(o); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	rpc := newFakeRpc()
	rpc.height = LockBlocks
	rpc.fillDecoyPool(amount, 500)

	if err := ws.Connect(context.Background(), fakeConnect, rpc); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	var recipientSeed Seed
	copy(recipientSeed.Entropy[:], []byte("the recipient wallet seed value"))
	recipient := DeriveKeys(recipientSeed).PrimaryAddress(Mainnet)

	txHash, err := ws.Send(context.Background(), []Destination{{Address: recipient, Amount: 1_000_000}}, TxConfig{})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if txHash == ([32]byte{}) {
		t.Errorf("expected a non-zero tx hash")
	}
	if !ws.Ledger.IsSpent(o.KeyImage) {
		t.Errorf("expected the spent input to be marked spent after Send")
	}
	if len(rpc.broadcasts) != 1 {
		t.Errorf("expected exactly 1 broadcast, got %d", len(rpc.broadcasts))
	}
}

func TestWalletStateCloseScrubsSecrets(t *testing.T) {
	var seed Seed
	copy(seed.Entropy[:], []byte("a close/scrub test wallet seed!!"))
	ws := NewWalletFromSeed(seed, testConfig())
	ws.Close()

	zero := true
	for _, b := range ws.Keys.ViewSecret.Bytes() {
		if b != 0 {
			zero = false
			break
		}
	}
	if !zero {
		t.Errorf("expected Close to zero the view secret")
	}
}

func TestWalletStateOperationsFailAfterClose(t *testing.T) {
	var seed Seed
	copy(seed.Entropy[:], []byte("a closed-wallet rejection test!!"))
	ws := NewWalletFromSeed(seed, testConfig())
	ws.Close()

	if err := ws.Save(filepath.Join(t.TempDir(), "wallet.keys"), "pw"); err != ErrWalletClosed {
		t.Errorf("Save after Close = %v, want ErrWalletClosed", err)
	}
	if err := ws.Connect(context.Background(), fakeConnect, newFakeRpc()); err != ErrWalletClosed {
		t.Errorf("Connect after Close = %v, want ErrWalletClosed", err)
	}
	if err := ws.CheckConnection(context.Background()); err != ErrWalletClosed {
		t.Errorf("CheckConnection after Close = %v, want ErrWalletClosed", err)
	}
	if err := ws.SyncToHeight(context.Background(), 10); err != ErrWalletClosed {
		t.Errorf("SyncToHeight after Close = %v, want ErrWalletClosed", err)
	}
	if ws.Balance() != 0 {
		t.Errorf("Balance after Close = %d, want 0", ws.Balance())
	}
	if ws.UnlockedBalance(10) != 0 {
		t.Errorf("UnlockedBalance after Close = %d, want 0", ws.UnlockedBalance(10))
	}
	if _, err := ws.Send(context.Background(), nil, TxConfig{}); err != ErrWalletClosed {
		t.Errorf("Send after Close = %v, want ErrWalletClosed", err)
	}
	if _, err := ws.ExportKeyImages(); err != ErrWalletClosed {
		t.Errorf("ExportKeyImages after Close = %v, want ErrWalletClosed", err)
	}
	if _, err := ws.ImportKeyImages(nil); err != ErrWalletClosed {
		t.Errorf("ImportKeyImages after Close = %v, want ErrWalletClosed", err)
	}
	if ws.IsConnected() {
		t.Errorf("IsConnected after Close should be false")
	}

	ws.Close() // idempotent
}
