// Package wsrpc implements the wallet engine's daemon transport over a
// persistent WebSocket connection: every Post correlates a request to
// its response by an incrementing id, so many calls can be in flight
// on one socket at once (unlike the one-shot httprpc.Client).
package wsrpc

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jasony/monlite/internal/wallet"
)

// envelope is the wire frame every request and response is wrapped in,
// so the read loop can route a reply back to the caller awaiting it.
type envelope struct {
	ID    uint64          `json:"id"`
	Route string          `json:"route,omitempty"`
	Body  json.RawMessage `json:"body,omitempty"`
	Error string          `json:"error,omitempty"`
}

// Client is a wallet.Transport and wallet.Rpc implementation backed by
// a single long-lived WebSocket connection.
type Client struct {
	conn   *websocket.Conn
	nextID uint64

	mu      sync.Mutex
	pending map[uint64]chan envelope

	writeMu sync.Mutex // the socket allows only one concurrent writer

	closeOnce sync.Once
	closed    chan struct{}
}

// Dial opens a WebSocket connection to daemonAddress and starts the
// background read loop that demultiplexes responses.
func Dial(ctx context.Context, daemonAddress string, timeout time.Duration) (*Client, error) {
	dialer := websocket.Dialer{HandshakeTimeout: timeout}
	conn, _, err := dialer.DialContext(ctx, daemonAddress, nil)
	if err != nil {
		return nil, &wallet.RpcError{Kind: wallet.RpcConnectionError, Err: err}
	}

	c := &Client{
		conn:    conn,
		pending: make(map[uint64]chan envelope),
		closed:  make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// ConnectFunc adapts Dial to the connection manager's connect-function
// shape; passed directly to wallet.WalletState.Connect.
var ConnectFunc = func(ctx context.Context, daemonAddress string, timeout time.Duration) (wallet.Transport, error) {
	return Dial(ctx, daemonAddress, timeout)
}

func (c *Client) readLoop() {
	defer close(c.closed)
	for {
		var env envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			c.failAllPending(err)
			return
		}
		c.mu.Lock()
		ch, ok := c.pending[env.ID]
		if ok {
			delete(c.pending, env.ID)
		}
		c.mu.Unlock()
		if ok {
			ch <- env
		}
	}
}

func (c *Client) failAllPending(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range c.pending {
		ch <- envelope{ID: id, Error: err.Error()}
		delete(c.pending, id)
	}
}

// Close shuts down the socket and its read loop.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close()
	})
	return err
}

// Post implements wallet.Transport: send body under route, correlate
// by a fresh id, and wait for the matching response frame.
func (c *Client) Post(ctx context.Context, route string, body []byte) ([]byte, error) {
	id := atomic.AddUint64(&c.nextID, 1)
	ch := make(chan envelope, 1)

	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()

	req := envelope{ID: id, Route: route, Body: body}
	c.writeMu.Lock()
	err := c.conn.WriteJSON(req)
	c.writeMu.Unlock()
	if err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, &wallet.RpcError{Kind: wallet.RpcConnectionError, Err: err}
	}

	select {
	case env := <-ch:
		if env.Error != "" {
			return nil, &wallet.RpcError{Kind: wallet.RpcConnectionError, Err: fmt.Errorf("%s", env.Error)}
		}
		return env.Body, nil
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, &wallet.RpcError{Kind: wallet.RpcTimeout, Err: ctx.Err()}
	case <-c.closed:
		return nil, &wallet.RpcError{Kind: wallet.RpcConnectionError, Err: fmt.Errorf("connection closed")}
	}
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

// GetHeight implements wallet.Rpc.
func (c *Client) GetHeight(ctx context.Context) (uint64, error) {
	var resp struct {
		Height uint64 `json:"height"`
	}
	if err := c.postJSON(ctx, wallet.RouteGetHeight, struct{}{}, &resp); err != nil {
		return 0, err
	}
	return resp.Height, nil
}

// GetBlockHash implements wallet.Rpc.
func (c *Client) GetBlockHash(ctx context.Context, height uint64) ([32]byte, error) {
	var resp struct {
		Hash string `json:"block_hash"`
	}
	req := struct {
		Height uint64 `json:"height"`
	}{Height: height}
	if err := c.postJSON(ctx, wallet.RouteGetBlockHash, req, &resp); err != nil {
		return [32]byte{}, err
	}
	return decodeHash32(resp.Hash)
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

// GetBlock implements wallet.Rpc.
func (c *Client) GetBlock(ctx context.Context, height uint64) (wallet.RawBlock, map[[32]byte]wallet.TxExtra, error) {
	var resp struct {
		Height  uint64   `json:"height"`
		MinerTx wireTx   `json:"miner_tx"`
		Txs     []wireTx `json:"txs"`
	}
	req := struct {
		Height uint64 `json:"height"`
	}{Height: height}
	if err := c.postJSON(ctx, wallet.RouteGetBlock, req, &resp); err != nil {
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

// GetFeeRate implements wallet.Rpc. The five wallet-facing priorities
// collapse onto the daemon's three fee tiers via
// TransactionPriority.ToFeePriority.
func (c *Client) GetFeeRate(ctx context.Context, priority wallet.TransactionPriority) (wallet.FeeRate, error) {
	var resp struct {
		FeePerByte       uint64 `json:"fee_per_byte"`
		QuantizationMask uint64 `json:"quantization_mask"`
	}
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

// IsKeyImageSpent implements wallet.Rpc.
func (c *Client) IsKeyImageSpent(ctx context.Context, keyImage [32]byte) (bool, error) {
	var resp struct {
		SpentStatus []int `json:"spent_status"`
	}
	req := struct {
		KeyImages []string `json:"key_images"`
	}{KeyImages: []string{hex.EncodeToString(keyImage[:])}}
	if err := c.postJSON(ctx, wallet.RouteIsKeyImageSpent, req, &resp); err != nil {
		return false, err
	}
	if len(resp.SpentStatus) == 0 {
		return false, fmt.Errorf("%w: empty spent_status in response", wallet.ErrInvalidData)
	}
	return resp.SpentStatus[0] != 0, nil
}

// SendRawTransaction implements wallet.Rpc.
func (c *Client) SendRawTransaction(ctx context.Context, raw []byte) error {
	var resp struct {
		Status     string `json:"status"`
		Reason     string `json:"reason"`
		NotRelayed bool   `json:"not_relayed"`
	}
	req := struct {
		TxAsHex string `json:"tx_as_hex"`
	}{TxAsHex: hex.EncodeToString(raw)}
	if err := c.postJSON(ctx, wallet.RouteSendRawTransaction, req, &resp); err != nil {
		return err
	}
	if resp.Status != "OK" || resp.NotRelayed {
		return &wallet.BroadcastFailedError{Reason: resp.Reason}
	}
	return nil
}

// OutputCount implements wallet.DecoyRpc.
func (c *Client) OutputCount(ctx context.Context, amount uint64) (uint64, error) {
	var resp struct {
		Count uint64 `json:"count"`
	}
	req := struct {
		Amount uint64 `json:"amount"`
	}{Amount: amount}
	if err := c.postJSON(ctx, wallet.RouteOutputDistribution, req, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// FetchOutputs implements wallet.DecoyRpc.
func (c *Client) FetchOutputs(ctx context.Context, amount uint64, globalIndices []uint64) ([]wallet.RingMember, error) {
	var resp struct {
		Outputs []struct {
			GlobalIndex uint64 `json:"global_index"`
			Key         string `json:"key"`
			Commitment  string `json:"commitment"`
		} `json:"outputs"`
	}
	req := struct {
		Amount  uint64   `json:"amount"`
		Indices []uint64 `json:"indices"`
	}{Amount: amount, Indices: globalIndices}
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
