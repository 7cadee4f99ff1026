package wallet

import (
	"context"
	"fmt"
	"sync"
)

// WalletState aggregates a keypair, its scanner and output ledger, the
// connection to a daemon, and the config it was opened with into the
// single handle a caller drives (spec.md §4 "WalletState").
type WalletState struct {
	Keys    *KeyPair
	Ledger  *Ledger
	Scanner *Scanner
	Config  Config

	rpc  Rpc
	conn *ConnectionManager

	mu     sync.RWMutex
	closed bool
}

// NewWalletFromSeed derives a full (spending) wallet from a mnemonic
// seed and registers the subaddress lookahead range the config asks
// for.
func NewWalletFromSeed(seed Seed, cfg Config) *WalletState {
	keys := DeriveKeys(seed)
	scanner := NewScanner(keys)
	scanner.RegisterSubaddressRange(0, cfg.SubaddressLookahead)

	return &WalletState{
		Keys:    keys,
		Ledger:  NewLedger(),
		Scanner: scanner,
		Config:  cfg,
	}
}

// NewViewOnlyWallet builds a watch-only wallet from a public spend key
// and private view key: it can scan and recognize incoming outputs but
// can never sign a transaction.
func NewViewOnlyWallet(spendPublic *Point, viewSecret *Scalar, cfg Config) *WalletState {
	keys := NewViewOnlyKeyPair(spendPublic, viewSecret)
	scanner := NewScanner(keys)
	scanner.RegisterSubaddressRange(0, cfg.SubaddressLookahead)

	return &WalletState{
		Keys:    keys,
		Ledger:  NewLedger(),
		Scanner: scanner,
		Config:  cfg,
	}
}

// OpenWallet loads a previously saved wallet file, reconstructing its
// keypair and ledger, and wires it into a fresh WalletState.
func OpenWallet(path, password string, cfg Config) (*WalletState, error) {
	keys, ledger, network, refreshFromHeight, err := LoadWallet(path, password)
	if err != nil {
		return nil, err
	}
	cfg.Network = network
	cfg.RefreshFromHeight = refreshFromHeight

	scanner := NewScanner(keys)
	scanner.RegisterSubaddressRange(0, cfg.SubaddressLookahead)

	return &WalletState{
		Keys:    keys,
		Ledger:  ledger,
		Scanner: scanner,
		Config:  cfg,
	}, nil
}

// isClosed reports whether Close has already run.
func (w *WalletState) isClosed() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.closed
}

// Save persists the wallet's current keys and ledger to path.
func (w *WalletState) Save(path, password string) error {
	if w.isClosed() {
		return ErrWalletClosed
	}
	return SaveWallet(path, w.Config.Network, w.Keys, w.Ledger, w.Config.RefreshFromHeight, password)
}

// Close scrubs the wallet's private key material and tears down any
// open connection. The WalletState must not be used after Close; once
// this has run, every method that returns an error returns
// ErrWalletClosed, Balance and UnlockedBalance return 0, IsConnected
// returns false, and Disconnect does nothing. Calling Close more than
// once is a no-op.
func (w *WalletState) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true

	if w.conn != nil {
		w.conn.Disconnect()
	}
	w.rpc = nil
	zeroScalar(w.Keys.ViewSecret)
	if w.Keys.SpendSecret != nil {
		zeroScalar(w.Keys.SpendSecret)
	}
}

// Connect establishes a daemon connection through connect (typically
// provided by internal/rpc/http or internal/rpc/ws), held by a
// ConnectionManager, and on success installs rpc as this wallet's Rpc
// surface. rpc is used as given; it is not derived from the
// connection.
func (w *WalletState) Connect(ctx context.Context, connect connectFunc, rpc Rpc) error {
	if w.isClosed() {
		return ErrWalletClosed
	}
	w.conn = NewConnectionManager(connect, w.Config.ReconnectionPolicy)
	if err := w.conn.Connect(ctx, w.Config.DaemonAddress, w.Config.Timeout); err != nil {
		w.conn = nil
		return err
	}
	w.rpc = rpc
	return nil
}

// Disconnect tears down the daemon connection, if any.
func (w *WalletState) Disconnect() {
	if w.isClosed() {
		return
	}
	if w.conn != nil {
		w.conn.Disconnect()
	}
	w.rpc = nil
}

// IsConnected reports whether a daemon connection is currently live.
func (w *WalletState) IsConnected() bool {
	if w.isClosed() {
		return false
	}
	return w.conn != nil && w.conn.IsConnected()
}

// CheckConnection probes the daemon with a height query through the
// wallet's Rpc and returns that query's error, if any. It does not
// start the connection manager's reconnect loop; only the manager's
// health check does that.
func (w *WalletState) CheckConnection(ctx context.Context) error {
	if w.isClosed() {
		return ErrWalletClosed
	}
	if w.rpc == nil {
		return ErrNotConnected
	}
	_, err := w.rpc.GetHeight(ctx)
	return err
}

// SyncToHeight scans every block from the ledger's current cursor up
// to (and including) targetHeight, detecting and handling
// reorganizations before resuming forward scanning (spec.md §4.C/§4.D
// "Refresh loop").
func (w *WalletState) SyncToHeight(ctx context.Context, targetHeight uint64) error {
	if w.isClosed() {
		return ErrWalletClosed
	}
	if w.rpc == nil {
		return ErrNotConnected
	}

	if forkHeight, detected := w.Ledger.DetectReorganization(targetHeight); detected {
		w.Ledger.HandleReorganization(forkHeight)
	}

	start := w.Ledger.CurrentScannedHeight()
	if start == 0 && w.Config.RefreshFromHeight > 0 {
		start = w.Config.RefreshFromHeight
	} else if start > 0 {
		start++
	}

	for height := start; height <= targetHeight; height++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		block, extras, err := w.rpc.GetBlock(ctx, height)
		if err != nil {
			return fmt.Errorf("syncing block %d: %w", height, err)
		}
		owned, err := w.Scanner.ScanBlock(block, extras)
		if err != nil {
			return fmt.Errorf("scanning block %d: %w", height, err)
		}
		for _, outputs := range owned {
			for _, o := range outputs {
				if err := w.Ledger.Insert(o); err != nil {
					return err
				}
			}
		}
		w.Ledger.SetCurrentScannedHeight(height)
	}
	return nil
}

// Balance returns the sum of every owned, unspent output. Returns 0 on
// a closed wallet; callers that need to distinguish that from a
// genuinely empty wallet should check IsConnected/CheckConnection
// first, or avoid calling Balance after Close.
func (w *WalletState) Balance() uint64 {
	if w.isClosed() {
		return 0
	}
	return w.Ledger.Balance()
}

// UnlockedBalance returns the spendable subset of Balance at the
// caller-supplied daemonHeight.
func (w *WalletState) UnlockedBalance(daemonHeight uint64) uint64 {
	if w.isClosed() {
		return 0
	}
	return w.Ledger.UnlockedBalance(daemonHeight)
}

// Send builds, signs, and broadcasts a transaction in one call: the
// composition of CreateTx and CommitTx a caller uses when it does not
// need to inspect the pending transaction first.
func (w *WalletState) Send(ctx context.Context, destinations []Destination, cfg TxConfig) ([32]byte, error) {
	if w.isClosed() {
		return [32]byte{}, ErrWalletClosed
	}
	if w.rpc == nil {
		return [32]byte{}, ErrNotConnected
	}
	daemonHeight, err := w.rpc.GetHeight(ctx)
	if err != nil {
		return [32]byte{}, err
	}
	pending, err := CreateTx(ctx, w.Keys, w.Ledger, w.rpc, daemonHeight, destinations, cfg)
	if err != nil {
		return [32]byte{}, err
	}
	return CommitTx(ctx, w.Ledger, w.rpc, pending, w.Config.TimeProvider)
}

// ExportKeyImages serializes this wallet's owned key images for
// offline/view-only reconciliation (spec.md §4.I).
func (w *WalletState) ExportKeyImages() ([]byte, error) {
	if w.isClosed() {
		return nil, ErrWalletClosed
	}
	return ExportKeyImages(w.Keys, w.Ledger)
}

// ImportKeyImages applies a previously exported key image file to this
// wallet's ledger.
func (w *WalletState) ImportKeyImages(data []byte) (*ImportResult, error) {
	if w.isClosed() {
		return nil, ErrWalletClosed
	}
	return ImportKeyImages(w.Keys, w.Ledger, data)
}
