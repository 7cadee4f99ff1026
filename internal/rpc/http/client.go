// Package httprpc implements the wallet engine's daemon transport over
// plain HTTP JSON, the reference daemon's default RPC surface. It is
// the concrete Transport/Rpc the CLI wires into a wallet.ConnectionManager.
package httprpc

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jasony/monlite/internal/wallet"
)

// Client is a wallet.Transport and wallet.Rpc implementation that
// speaks JSON over HTTP to a single daemon instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Dial builds a Client bound to daemonAddress. It performs no network
// I/O itself; the first real request validates reachability.
func Dial(ctx context.Context, daemonAddress string, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    daemonAddress,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// ConnectFunc adapts Dial to the connection manager's connect-function
// shape; passed directly to wallet.WalletState.Connect.
var ConnectFunc = func(ctx context.Context, daemonAddress string, timeout time.Duration) (wallet.Transport, error) {
	return Dial(ctx, daemonAddress, timeout)
}

// Post implements wallet.Transport: POST body to baseURL/route,
// returning the raw response body or a *wallet.RpcError on failure.
func (c *Client) Post(ctx context.Context, route string, body []byte) ([]byte, error) {
	url := c.baseURL + "/" + route
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &wallet.RpcError{Kind: wallet.RpcConnectionError, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &wallet.RpcError{Kind: wallet.RpcTimeout, Err: ctx.Err()}
		}
		return nil, &wallet.RpcError{Kind: wallet.RpcConnectionError, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &wallet.RpcError{Kind: wallet.RpcInvalidResponse, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &wallet.RpcError{Kind: wallet.RpcHTTPStatus, HTTPStatus: resp.StatusCode}
	}
	return respBody, nil
}

func (c *Client) postJSON(ctx context.Context, route string, request, response any) error {
	body, err := json.Marshal(request)
	if err != nil {
		return &wallet.RpcError{Kind: wallet.RpcInvalidResponse, Err: err}
	}
	respBody, err := c.Post(ctx, route, body)
	if err != nil {
		return err
	}
	if response == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, response); err != nil {
		return &wallet.RpcError{Kind: wallet.RpcInvalidResponse, Err: err}
	}
	return nil
}

type heightResponse struct {
	Height uint64 `json:"height"`
}

// GetHeight implements wallet.Rpc.
func (c *Client) GetHeight(ctx context.Context) (uint64, error) {
	var resp heightResponse
	if err := c.postJSON(ctx, wallet.RouteGetHeight, struct{}{}, &resp); err != nil {
		return 0, err
	}
	return resp.Height, nil
}

type blockHashRequest struct {
	Height uint64 `json:"height"`
}

type blockHashResponse struct {
	Hash string `json:"block_hash"`
}

// GetBlockHash implements wallet.Rpc.
func (c *Client) GetBlockHash(ctx context.Context, height uint64) ([32]byte, error) {
	var resp blockHashResponse
	if err := c.postJSON(ctx, wallet.RouteGetBlockHash, blockHashRequest{Height: height}, &resp); err != nil {
		return [32]byte{}, err
	}
	return decodeHash32(resp.Hash)
}

type getBlockRequest struct {
	Height uint64 `json:"height"`
}

type wireOutput struct {
	OutputPublicKey    string  `json:"output_public_key"`
	MaskedAmount       string  `json:"masked_amount"`
	EncryptedPaymentID *string `json:"encrypted_payment_id,omitempty"`
}

type wireTx struct {
	TxHash               string       `json:"tx_hash"`
	TxPublicKey          string       `json:"tx_public_key"`
	AdditionalPublicKeys []string     `json:"additional_public_keys"`
	Outputs              []wireOutput `json:"outputs"`
}

type getBlockResponse struct {
	Height  uint64   `json:"height"`
	MinerTx wireTx   `json:"miner_tx"`
	Txs     []wireTx `json:"txs"`
}

// GetBlock implements wallet.Rpc: fetches a block and its tx_extra
// fields already resolved into curve points, since the JSON surface
// this client speaks decodes the reference daemon's raw blob format
// server-side.
func (c *Client) GetBlock(ctx context.Context, height uint64) (wallet.RawBlock, map[[32]byte]wallet.TxExtra, error) {
	var resp getBlockResponse
	if err := c.postJSON(ctx, wallet.RouteGetBlock, getBlockRequest{Height: height}, &resp); err != nil {
		return wallet.RawBlock{}, nil, err
	}

	extras := make(map[[32]byte]wallet.TxExtra)

	toRawTx := func(w wireTx) (wallet.RawTransaction, error) {
		hash, err := decodeHash32(w.TxHash)
		if err != nil {
			return wallet.RawTransaction{}, err
		}
		rPoint, err := decodePoint(w.TxPublicKey)
		if err != nil {
			return wallet.RawTransaction{}, err
		}
		additional := make([]*wallet.Point, 0, len(w.AdditionalPublicKeys))
		for _, s := range w.AdditionalPublicKeys {
			p, err := decodePoint(s)
			if err != nil {
				return wallet.RawTransaction{}, err
			}
			additional = append(additional, p)
		}
		extras[hash] = wallet.TxExtra{TxPublicKey: rPoint, AdditionalPublicKeys: additional}

		outputs := make([]wallet.RawOutput, 0, len(w.Outputs))
		for _, o := range w.Outputs {
			pub, err := decodePoint(o.OutputPublicKey)
			if err != nil {
				return wallet.RawTransaction{}, err
			}
			masked, err := decodeHash8(o.MaskedAmount)
			if err != nil {
				return wallet.RawTransaction{}, err
			}
			raw := wallet.RawOutput{OutputPublicKey: pub, MaskedAmount: masked}
			if o.EncryptedPaymentID != nil {
				pid, err := decodeHash8(*o.EncryptedPaymentID)
				if err != nil {
					return wallet.RawTransaction{}, err
				}
				raw.EncryptedPaymentID = &pid
			}
			outputs = append(outputs, raw)
		}

		return wallet.RawTransaction{TxHash: hash, Outputs: outputs}, nil
	}

	minerTx, err := toRawTx(resp.MinerTx)
	if err != nil {
		return wallet.RawBlock{}, nil, err
	}
	txs := make([]wallet.RawTransaction, 0, len(resp.Txs))
	for _, w := range resp.Txs {
		tx, err := toRawTx(w)
		if err != nil {
			return wallet.RawBlock{}, nil, err
		}
		txs = append(txs, tx)
	}

	return wallet.RawBlock{Height: resp.Height, MinerTx: minerTx, Txs: txs}, extras, nil
}

type feeEstimateResponse struct {
	FeePerByte uint64 `json:"fee_per_byte"`
	QuantizationMask uint64 `json:"quantization_mask"`
}

// GetFeeRate implements wallet.Rpc. priority is presently ignored by
// the reference daemon's get_fee_estimate call, which always returns
// the base rate; higher priorities multiply it client-side. The five
// wallet-facing priorities collapse onto the daemon's three fee tiers
// via TransactionPriority.ToFeePriority.
func (c *Client) GetFeeRate(ctx context.Context, priority wallet.TransactionPriority) (wallet.FeeRate, error) {
	var resp feeEstimateResponse
	if err := c.postJSON(ctx, wallet.RouteGetFeeEstimate, struct{}{}, &resp); err != nil {
		return wallet.FeeRate{}, err
	}
	multiplier := uint64(1)
	switch priority.ToFeePriority() {
	case wallet.FeePriorityUnimportant:
		multiplier = 1
	case wallet.FeePriorityNormal:
		multiplier = 4
	case wallet.FeePriorityElevated:
		multiplier = 20
	}
	mask := resp.QuantizationMask
	if mask == 0 {
		mask = 1
	}
	return wallet.FeeRate{PerWeight: resp.FeePerByte * multiplier, Mask: mask}, nil
}

type keyImageSpentRequest struct {
	KeyImages []string `json:"key_images"`
}

type keyImageSpentResponse struct {
	SpentStatus []int `json:"spent_status"`
}

// IsKeyImageSpent implements wallet.Rpc.
func (c *Client) IsKeyImageSpent(ctx context.Context, keyImage [32]byte) (bool, error) {
	var resp keyImageSpentResponse
	req := keyImageSpentRequest{KeyImages: []string{hex.EncodeToString(keyImage[:])}}
	if err := c.postJSON(ctx, wallet.RouteIsKeyImageSpent, req, &resp); err != nil {
		return false, err
	}
	if len(resp.SpentStatus) == 0 {
		return false, fmt.Errorf("%w: empty spent_status in response", wallet.ErrInvalidData)
	}
	return resp.SpentStatus[0] != 0, nil
}

type sendRawTransactionRequest struct {
	TxAsHex string `json:"tx_as_hex"`
}

type sendRawTransactionResponse struct {
	Status  string `json:"status"`
	Reason  string `json:"reason"`
	NotRelayed bool `json:"not_relayed"`
}

// SendRawTransaction implements wallet.Rpc.
func (c *Client) SendRawTransaction(ctx context.Context, raw []byte) error {
	var resp sendRawTransactionResponse
	req := sendRawTransactionRequest{TxAsHex: hex.EncodeToString(raw)}
	if err := c.postJSON(ctx, wallet.RouteSendRawTransaction, req, &resp); err != nil {
		return err
	}
	if resp.Status != "OK" || resp.NotRelayed {
		return &wallet.BroadcastFailedError{Reason: resp.Reason}
	}
	return nil
}

type outputCountRequest struct {
	Amount uint64 `json:"amount"`
}

type outputCountResponse struct {
	Count uint64 `json:"count"`
}

// OutputCount implements wallet.DecoyRpc.
func (c *Client) OutputCount(ctx context.Context, amount uint64) (uint64, error) {
	var resp outputCountResponse
	if err := c.postJSON(ctx, wallet.RouteOutputDistribution, outputCountRequest{Amount: amount}, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

type fetchOutputsRequest struct {
	Amount  uint64   `json:"amount"`
	Indices []uint64 `json:"indices"`
}

type wireRingMember struct {
	GlobalIndex uint64 `json:"global_index"`
	Key         string `json:"key"`
	Commitment  string `json:"commitment"`
}

type fetchOutputsResponse struct {
	Outputs []wireRingMember `json:"outputs"`
}

// FetchOutputs implements wallet.DecoyRpc.
func (c *Client) FetchOutputs(ctx context.Context, amount uint64, globalIndices []uint64) ([]wallet.RingMember, error) {
	var resp fetchOutputsResponse
	req := fetchOutputsRequest{Amount: amount, Indices: globalIndices}
	if err := c.postJSON(ctx, wallet.RouteGetOuts, req, &resp); err != nil {
		return nil, err
	}

	members := make([]wallet.RingMember, 0, len(resp.Outputs))
	for _, o := range resp.Outputs {
		key, err := decodePoint(o.Key)
		if err != nil {
			return nil, err
		}
		commitment, err := decodePoint(o.Commitment)
		if err != nil {
			return nil, err
		}
		members = append(members, wallet.RingMember{
			GlobalIndex: o.GlobalIndex,
			OneTimeKey:  key,
			Commitment:  commitment,
		})
	}
	return members, nil
}

func decodeHash32(s string) ([32]byte, error) {
	var out [32]byte
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 32 {
		return out, fmt.Errorf("%w: expected 32-byte hex field, got %q", wallet.ErrInvalidData, s)
	}
	copy(out[:], b)
	return out, nil
}

func decodeHash8(s string) ([8]byte, error) {
	var out [8]byte
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 8 {
		return out, fmt.Errorf("%w: expected 8-byte hex field, got %q", wallet.ErrInvalidData, s)
	}
	copy(out[:], b)
	return out, nil
}

func decodePoint(s string) (*wallet.Point, error) {
	b, err := decodeHash32(s)
	if err != nil {
		return nil, err
	}
	return wallet.PointFromBytes(b)
}
