// Package mint coordinates the minting workflow against a contract bound to
// the session's active account.
package mint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"github.com/google/uuid"

	"github.com/vietddude/epicmint/internal/core/domain"
	"github.com/vietddude/epicmint/internal/infra/contract"
	"github.com/vietddude/epicmint/internal/infra/rpc"
	"github.com/vietddude/epicmint/internal/metrics"
)

// DefaultSupplyCeiling is the maximum number of mintable tokens.
const DefaultSupplyCeiling = 50

var (
	ErrNoBinding = errors.New("mint: no contract binding")
	ErrInFlight  = errors.New("mint: transaction already in flight")
)

// Listener observes state changes. Listeners are called one at a time, always
// with the latest state, and must not call back into the Coordinator.
type Listener func(domain.MintState)

// Options configures a Coordinator.
type Options struct {
	// Address and ABI are used by SyncAccount
	Address string
	ABI     string

	// SupplyCeiling defaults to DefaultSupplyCeiling
	SupplyCeiling uint64

	// TxURL renders an explorer link for log output; optional
	TxURL func(hash string) string
}

// Coordinator is the Mint Coordinator.
type Coordinator struct {
	factory contract.Factory
	opts    Options
	log     *slog.Logger

	mu        sync.Mutex
	binding   contract.Handle
	sub       contract.Subscription
	address   string
	abiJSON   string
	account   string
	gen       uint64 // bumped whenever the binding is discarded
	minting   bool   // an attempt of generation gen is between prologue and return
	seen      map[string]struct{}
	state     domain.MintState
	onMinted  func(domain.TokenMinted)
	listeners []Listener

	notifyMu sync.Mutex
}

// NewCoordinator creates an unbound coordinator.
func NewCoordinator(factory contract.Factory, opts Options, log *slog.Logger) *Coordinator {
	if opts.SupplyCeiling == 0 {
		opts.SupplyCeiling = DefaultSupplyCeiling
	}
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{
		factory: factory,
		opts:    opts,
		log:     log.With("component", "mint"),
		state:   domain.MintState{Status: domain.MintStatusIdle},
	}
}

// OnMinted sets the external callback invoked with every "token minted"
// notification.
func (c *Coordinator) OnMinted(fn func(domain.TokenMinted)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onMinted = fn
}

// OnChange registers a listener for state changes.
func (c *Coordinator) OnChange(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// Busy reports whether a mint attempt is running for the current binding.
func (c *Coordinator) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.minting
}

// State returns a snapshot of the mint state.
func (c *Coordinator) State() domain.MintState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SyncAccount follows the session account: an empty account discards the
// binding, any other account binds the configured contract to it.
func (c *Coordinator) SyncAccount(account string) error {
	if account == "" {
		c.Discard()
		return nil
	}
	return c.Bind(c.opts.Address, c.opts.ABI, account)
}

// Bind binds the contract to account. Rebinding with identical arguments is
// a no-op; anything else discards the current binding and its subscription
// first.
func (c *Coordinator) Bind(address, abiJSON, account string) error {
	c.mu.Lock()
	if c.binding != nil && address == c.address && abiJSON == c.abiJSON && account == c.account {
		c.mu.Unlock()
		return nil
	}
	c.discardLocked()

	if account == "" {
		c.state.Error = domain.NewStateError(domain.ErrorNoBinding, "no signing account")
		c.mu.Unlock()
		c.publish()
		return ErrNoBinding
	}

	handle, err := c.factory.Bind(address, abiJSON, account)
	if err != nil {
		c.log.Warn("contract binding failed", "error", err, "address", address)
		c.state.Error = domain.NewStateError(domain.ErrorNoBinding, err.Error())
		c.mu.Unlock()
		c.publish()
		return fmt.Errorf("%w: %v", ErrNoBinding, err)
	}

	c.binding = handle
	c.address, c.abiJSON, c.account = address, abiJSON, account
	c.seen = make(map[string]struct{})
	gen := c.gen
	c.sub = handle.WatchMinted(func(m domain.TokenMinted) {
		c.handleMinted(gen, m)
	})
	c.state = domain.MintState{
		Bound:           true,
		BoundAccount:    account,
		ContractAddress: address,
		Status:          domain.MintStatusIdle,
	}
	c.mu.Unlock()

	c.log.Debug("contract bound", "address", address, "account", account)
	c.publish()
	return nil
}

// Discard drops the binding and its subscription and resets to idle.
func (c *Coordinator) Discard() {
	c.mu.Lock()
	c.discardLocked()
	c.mu.Unlock()
	c.publish()
}

// Close is Discard for shutdown.
func (c *Coordinator) Close() error {
	c.Discard()
	return nil
}

func (c *Coordinator) discardLocked() {
	if c.sub != nil {
		c.sub.Unsubscribe()
		c.sub = nil
	}
	c.binding = nil
	c.address, c.abiJSON, c.account = "", "", ""
	c.seen = nil
	c.minting = false
	c.gen++
	c.state = domain.MintState{Status: domain.MintStatusIdle}
}

// Mint runs one mint attempt: supply check, submission, confirmation. It
// returns ErrNoBinding or ErrInFlight when the attempt cannot start; every
// other failure is recorded in the state and Mint returns nil. There is no
// retry.
func (c *Coordinator) Mint(ctx context.Context) error {
	c.mu.Lock()
	if c.binding == nil || c.account == "" {
		c.state.Error = domain.NewStateError(domain.ErrorNoBinding, "")
		c.mu.Unlock()
		c.publish()
		return ErrNoBinding
	}
	if c.minting {
		c.mu.Unlock()
		return ErrInFlight
	}
	c.minting = true
	handle, gen := c.binding, c.gen
	c.setStatusLocked(domain.MintStatusSubmitting)
	c.state.Error = nil
	c.state.LastTxHash = ""
	c.mu.Unlock()
	c.publish()

	defer func() {
		c.mu.Lock()
		if gen == c.gen {
			c.minting = false
		}
		c.mu.Unlock()
	}()

	log := c.log.With("attempt", uuid.NewString())

	count, err := handle.TotalMinted(ctx)
	if err != nil {
		log.Warn("total minted query failed", "error", err)
		c.fail(gen, domain.ErrorTxFailed, rpc.Message(err))
		return nil
	}
	log.Debug("total minted", "count", count.String())

	if count.Cmp(new(big.Int).SetUint64(c.opts.SupplyCeiling)) >= 0 {
		log.Info("We are out of NFTs", "count", count.String(), "ceiling", c.opts.SupplyCeiling)
		c.fail(gen, domain.ErrorSupplyExhausted, "")
		return nil
	}

	log.Debug("Going to pop wallet now to pay gas...")
	tx, err := handle.Mint(ctx)
	if err != nil {
		log.Warn("mint submission failed", "error", err, "user_rejected", rpc.IsUserRejected(err))
		c.fail(gen, domain.ErrorTxRejected, rpc.Message(err))
		return nil
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return nil
	}
	c.setStatusLocked(domain.MintStatusMining)
	c.state.LastTxHash = tx.Hash()
	c.mu.Unlock()
	c.publish()
	log.Info("mining...", "tx", tx.Hash())

	receipt, err := tx.Wait(ctx)
	if err != nil {
		log.Warn("confirmation failed", "error", err, "tx", tx.Hash())
		c.fail(gen, domain.ErrorTxFailed, rpc.Message(err))
		return nil
	}
	if !receipt.Succeeded() {
		log.Warn("transaction reverted", "tx", tx.Hash(), "block", receipt.BlockNumber)
		c.fail(gen, domain.ErrorTxFailed, "transaction reverted")
		return nil
	}

	attrs := []any{"tx", tx.Hash(), "block", receipt.BlockNumber}
	if c.opts.TxURL != nil {
		attrs = append(attrs, "url", c.opts.TxURL(tx.Hash()))
	}
	log.Info("Mined", attrs...)
	metrics.MintAttemptsTotal.WithLabelValues("mined").Inc()

	for _, m := range receipt.Minted {
		c.handleMinted(gen, m)
	}

	// Confirmed without a decodable event: the token id arrives with the
	// contract notification, if at all.
	c.mu.Lock()
	if gen == c.gen && c.state.Status == domain.MintStatusMining {
		c.setStatusLocked(domain.MintStatusIdle)
		c.mu.Unlock()
		c.publish()
		return nil
	}
	c.mu.Unlock()
	return nil
}

// handleMinted applies a "token minted" notification for the binding of
// generation gen. A log already delivered by either the receipt or the
// watcher is ignored; a failed state is kept, but the callback still runs.
func (c *Coordinator) handleMinted(gen uint64, m domain.TokenMinted) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	key := fmt.Sprintf("%s:%d:%d", m.TxHash, m.LogIndex, m.TokenID)
	if _, ok := c.seen[key]; ok {
		c.mu.Unlock()
		return
	}
	if c.seen == nil {
		c.seen = make(map[string]struct{})
	}
	c.seen[key] = struct{}{}
	if c.state.Status != domain.MintStatusFailed {
		id := m.TokenID
		c.state.Status = domain.MintStatusMinted
		c.state.MintedTokenID = &id
		c.state.Error = nil
	}
	cb := c.onMinted
	c.mu.Unlock()

	metrics.TokensMintedTotal.Inc()
	c.log.Info("token minted", "from", m.From, "token_id", m.TokenID, "tx", m.TxHash)
	c.publish()
	if cb != nil {
		cb(m)
	}
}

func (c *Coordinator) fail(gen uint64, kind domain.ErrorKind, detail string) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.setStatusLocked(domain.MintStatusFailed)
	c.state.Error = domain.NewStateError(kind, detail)
	c.mu.Unlock()

	metrics.MintAttemptsTotal.WithLabelValues(string(kind)).Inc()
	c.publish()
}

// setStatusLocked keeps MintedTokenID defined only in the minted status.
func (c *Coordinator) setStatusLocked(s domain.MintStatus) {
	c.state.Status = s
	if s != domain.MintStatusMinted {
		c.state.MintedTokenID = nil
	}
}

func (c *Coordinator) publish() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	state := c.state
	listeners := append([]Listener(nil), c.listeners...)
	c.mu.Unlock()

	for _, l := range listeners {
		l(state)
	}
}
