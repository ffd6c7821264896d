package contract

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/vietddude/epicmint/internal/core/domain"
	"github.com/vietddude/epicmint/internal/infra/rpc"
)

// Method and event names used when Config leaves them empty.
const (
	DefaultTotalMintedMethod = "getTotalNFTsMintedSoFar"
	DefaultMintMethod        = "makeAnEpicNFT"
	DefaultMintedEvent       = "NewEpicNFTMinted"
)

// EVMFactory binds contracts through a wallet JSON-RPC endpoint. Transactions
// are sent with eth_sendTransaction so the wallet signs them.
type EVMFactory struct {
	client       rpc.Client
	totalMinted  string
	mint         string
	mintedEvent  string
	pollInterval time.Duration
	log          *slog.Logger
}

// NewEVMFactory creates a factory using the method names from cfg.
func NewEVMFactory(client rpc.Client, cfg Config, log *slog.Logger) *EVMFactory {
	if log == nil {
		log = slog.Default()
	}
	f := &EVMFactory{
		client:       client,
		totalMinted:  cfg.TotalMintedMethod,
		mint:         cfg.MintMethod,
		mintedEvent:  cfg.MintedEvent,
		pollInterval: cfg.PollInterval,
		log:          log.With("component", "contract"),
	}
	if f.totalMinted == "" {
		f.totalMinted = DefaultTotalMintedMethod
	}
	if f.mint == "" {
		f.mint = DefaultMintMethod
	}
	if f.mintedEvent == "" {
		f.mintedEvent = DefaultMintedEvent
	}
	if f.pollInterval <= 0 {
		f.pollInterval = 2 * time.Second
	}
	return f
}

func (f *EVMFactory) Bind(address, abiJSON, signer string) (Handle, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid contract address %q", address)
	}
	if !common.IsHexAddress(signer) {
		return nil, fmt.Errorf("invalid signer address %q", signer)
	}

	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("parse abi: %w", err)
	}
	for _, name := range []string{f.totalMinted, f.mint} {
		if _, ok := parsed.Methods[name]; !ok {
			return nil, fmt.Errorf("abi has no method %q", name)
		}
	}
	event, ok := parsed.Events[f.mintedEvent]
	if !ok {
		return nil, fmt.Errorf("abi has no event %q", f.mintedEvent)
	}

	return &EVMHandle{
		factory: f,
		abi:     parsed,
		event:   event,
		address: common.HexToAddress(address),
		signer:  common.HexToAddress(signer),
	}, nil
}

// EVMHandle is a contract bound to a signer.
type EVMHandle struct {
	factory *EVMFactory
	abi     abi.ABI
	event   abi.Event
	address common.Address
	signer  common.Address
}

func (h *EVMHandle) TotalMinted(ctx context.Context) (*big.Int, error) {
	name := h.factory.totalMinted
	data, err := h.abi.Pack(name)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", name, err)
	}

	call := map[string]any{
		"from": h.signer.Hex(),
		"to":   h.address.Hex(),
		"data": hexutil.Encode(data),
	}
	result, err := h.factory.client.Call(ctx, "eth_call", []any{call, "latest"})
	if err != nil {
		return nil, fmt.Errorf("eth_call %s failed: %w", name, err)
	}

	raw, err := hexutil.Decode(getString(result))
	if err != nil {
		return nil, fmt.Errorf("decode %s result: %w", name, err)
	}
	out, err := h.abi.Unpack(name, raw)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", name, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s returned no values", name)
	}
	count, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s returned %T, want uint256", name, out[0])
	}
	return count, nil
}

func (h *EVMHandle) Mint(ctx context.Context) (PendingTransaction, error) {
	name := h.factory.mint
	data, err := h.abi.Pack(name)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", name, err)
	}

	tx := map[string]any{
		"from": h.signer.Hex(),
		"to":   h.address.Hex(),
		"data": hexutil.Encode(data),
	}
	result, err := h.factory.client.Call(ctx, "eth_sendTransaction", []any{tx})
	if err != nil {
		return nil, fmt.Errorf("eth_sendTransaction failed: %w", err)
	}
	hash, ok := result.(string)
	if !ok || hash == "" {
		return nil, fmt.Errorf("invalid eth_sendTransaction response: %v", result)
	}
	return &pendingTx{handle: h, hash: hash}, nil
}

type pendingTx struct {
	handle *EVMHandle
	hash   string
}

func (p *pendingTx) Hash() string {
	return p.hash
}

// Wait polls eth_getTransactionReceipt until the transaction is mined.
func (p *pendingTx) Wait(ctx context.Context) (*Receipt, error) {
	client := p.handle.factory.client
	ticker := time.NewTicker(p.handle.factory.pollInterval)
	defer ticker.Stop()

	for {
		result, err := client.Call(ctx, "eth_getTransactionReceipt", []any{p.hash})
		if err != nil {
			return nil, fmt.Errorf("eth_getTransactionReceipt failed: %w", err)
		}
		if result != nil {
			raw, ok := result.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("invalid receipt format")
			}
			return p.handle.parseReceipt(raw)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (h *EVMHandle) parseReceipt(raw map[string]any) (*Receipt, error) {
	status, err := parseHexString(getString(raw["status"]))
	if err != nil {
		return nil, fmt.Errorf("invalid receipt status: %w", err)
	}
	blockNumber, _ := parseHexString(getString(raw["blockNumber"]))

	r := &Receipt{
		TxHash:      getString(raw["transactionHash"]),
		BlockNumber: blockNumber,
		Status:      status,
	}
	logs, _ := raw["logs"].([]any)
	for _, l := range logs {
		lm, ok := l.(map[string]any)
		if !ok {
			continue
		}
		minted, ok, err := h.decodeMinted(lm)
		if err != nil {
			h.factory.log.Warn("decode minted log failed", "error", err, "tx", r.TxHash)
			continue
		}
		if ok {
			r.Minted = append(r.Minted, minted)
		}
	}
	return r, nil
}

// decodeMinted decodes a raw log into a TokenMinted notification. It reports
// false for logs of other contracts or events. The first address argument
// is the minter and the first integer argument the token id.
func (h *EVMHandle) decodeMinted(raw map[string]any) (domain.TokenMinted, bool, error) {
	var minted domain.TokenMinted

	if !strings.EqualFold(getString(raw["address"]), h.address.Hex()) {
		return minted, false, nil
	}
	rawTopics, _ := raw["topics"].([]any)
	topics := make([]common.Hash, 0, len(rawTopics))
	for _, t := range rawTopics {
		topics = append(topics, common.HexToHash(getString(t)))
	}
	if len(topics) == 0 || topics[0] != h.event.ID {
		return minted, false, nil
	}

	data, err := hexutil.Decode(getStringOr(raw["data"], "0x"))
	if err != nil {
		return minted, false, fmt.Errorf("decode log data: %w", err)
	}
	values, err := h.event.Inputs.NonIndexed().Unpack(data)
	if err != nil {
		return minted, false, fmt.Errorf("unpack %s: %w", h.event.Name, err)
	}

	var from *common.Address
	var tokenID *big.Int
	nonIndexed, topic := 0, 1
	for _, arg := range h.event.Inputs {
		var v any
		if arg.Indexed {
			if topic >= len(topics) {
				return minted, false, fmt.Errorf("missing topic for %s", arg.Name)
			}
			switch arg.Type.T {
			case abi.AddressTy:
				v = common.BytesToAddress(topics[topic].Bytes())
			case abi.UintTy, abi.IntTy:
				v = new(big.Int).SetBytes(topics[topic].Bytes())
			}
			topic++
		} else {
			v = values[nonIndexed]
			nonIndexed++
		}

		switch x := v.(type) {
		case common.Address:
			if from == nil {
				from = &x
			}
		case *big.Int:
			if tokenID == nil {
				tokenID = x
			}
		}
	}
	if from == nil || tokenID == nil {
		return minted, false, fmt.Errorf("%s lacks an address or token id", h.event.Name)
	}

	id, err := ToTokenID(tokenID)
	if err != nil {
		return minted, false, err
	}
	blockNumber, _ := parseHexString(getString(raw["blockNumber"]))
	logIndex, _ := parseHexString(getString(raw["logIndex"]))

	minted = domain.TokenMinted{
		From:        strings.ToLower(from.Hex()),
		TokenID:     id,
		TxHash:      getString(raw["transactionHash"]),
		BlockNumber: blockNumber,
		LogIndex:    uint(logIndex),
	}
	return minted, true, nil
}

// ToTokenID narrows a uint256 token id to uint64.
func ToTokenID(v *big.Int) (uint64, error) {
	if v == nil || v.Sign() < 0 || !v.IsUint64() {
		return 0, fmt.Errorf("token id %v out of range", v)
	}
	return v.Uint64(), nil
}

// WatchMinted polls eth_getLogs for the minted event from the block after
// the current head. Notifications are delivered serially and each log at
// most once.
func (h *EVMHandle) WatchMinted(handler func(domain.TokenMinted)) Subscription {
	ctx, cancel := context.WithCancel(context.Background())
	w := &logWatcher{handle: h, handler: handler, seen: make(map[string]struct{})}
	go w.run(ctx)

	var once sync.Once
	return subscriptionFunc(func() { once.Do(cancel) })
}

type logWatcher struct {
	handle  *EVMHandle
	handler func(domain.TokenMinted)
	seen    map[string]struct{}
	next    uint64
	started bool
}

func (w *logWatcher) run(ctx context.Context) {
	ticker := time.NewTicker(w.handle.factory.pollInterval)
	defer ticker.Stop()

	for {
		if err := w.poll(ctx); err != nil && ctx.Err() == nil {
			w.handle.factory.log.Debug("poll minted logs failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *logWatcher) poll(ctx context.Context) error {
	client := w.handle.factory.client
	result, err := client.Call(ctx, "eth_blockNumber", nil)
	if err != nil {
		return fmt.Errorf("eth_blockNumber failed: %w", err)
	}
	head, err := parseHexString(getString(result))
	if err != nil {
		return fmt.Errorf("invalid block number: %w", err)
	}

	if !w.started {
		w.started = true
		w.next = head + 1
		return nil
	}
	if head < w.next {
		return nil
	}

	filter := map[string]any{
		"address":   w.handle.address.Hex(),
		"topics":    []any{w.handle.event.ID.Hex()},
		"fromBlock": hexutil.EncodeUint64(w.next),
		"toBlock":   hexutil.EncodeUint64(head),
	}
	result, err = client.Call(ctx, "eth_getLogs", []any{filter})
	if err != nil {
		return fmt.Errorf("eth_getLogs failed: %w", err)
	}
	logs, _ := result.([]any)
	for _, l := range logs {
		raw, ok := l.(map[string]any)
		if !ok {
			continue
		}
		if removed, _ := raw["removed"].(bool); removed {
			continue
		}
		minted, ok, err := w.handle.decodeMinted(raw)
		if err != nil {
			w.handle.factory.log.Warn("decode minted log failed", "error", err)
			continue
		}
		if !ok {
			continue
		}
		key := fmt.Sprintf("%s:%d", minted.TxHash, minted.LogIndex)
		if _, dup := w.seen[key]; dup {
			continue
		}
		w.seen[key] = struct{}{}
		if ctx.Err() != nil {
			return nil
		}
		w.handler(minted)
	}
	w.next = head + 1
	return nil
}

type subscriptionFunc func()

func (f subscriptionFunc) Unsubscribe() { f() }

func getString(v any) string {
	s, _ := v.(string)
	return s
}

func getStringOr(v any, def string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return def
}

func parseHexString(s string) (uint64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty hex string")
	}
	return hexutil.DecodeUint64(s)
}
