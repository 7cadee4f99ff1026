package wallet

import "context"

// Route names for the daemon RPC surface this wallet engine consumes
// (spec.md §6 "Daemon RPC"). Transport implementations (internal/rpc/http,
// internal/rpc/ws) translate these into the reference daemon's
// JSON-RPC/binary wire formats.
const (
	RouteGetHeight      = "get_height"
	RouteGetBlockHash   = "get_block_hash"
	RouteGetBlock       = "get_block"
	RouteGetTransactions = "get_transactions"
	RouteGetOuts        = "get_outs"
	RouteGetFeeEstimate = "get_fee_estimate"
	RouteIsKeyImageSpent = "is_key_image_spent"
	RouteSendRawTransaction = "send_raw_transaction"
	RouteOutputDistribution = "get_output_distribution.bin"
)

// Transport is the narrow contract the connection manager composes
// with a reconnection policy: post a route with a body, get bytes or
// an RpcError back (spec.md §4.J "Connection manager").
type Transport interface {
	Post(ctx context.Context, route string, body []byte) ([]byte, error)
}

// Rpc is the full daemon surface the wallet engine's higher-level
// operations (scanning, fee estimation, decoy selection, broadcast)
// depend on. Implementations adapt a Transport into these typed calls.
type Rpc interface {
	DecoyRpc

	GetHeight(ctx context.Context) (uint64, error)
	GetBlockHash(ctx context.Context, height uint64) ([32]byte, error)
	GetBlock(ctx context.Context, height uint64) (RawBlock, map[[32]byte]TxExtra, error)
	GetFeeRate(ctx context.Context, priority TransactionPriority) (FeeRate, error)
	IsKeyImageSpent(ctx context.Context, keyImage [32]byte) (bool, error)
	SendRawTransaction(ctx context.Context, raw []byte) error
}
